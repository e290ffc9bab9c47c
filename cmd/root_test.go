package cmd_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mautops/review-gin/cmd"
	"github.com/mautops/review-gin/internal/config"
	"github.com/mautops/review-gin/internal/database"
	"github.com/mautops/review-gin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
members:
  - {identity: alice, org_unit: CS, role: author}
  - {identity: R1, name: Reviewer One, org_unit: CS, role: first_reviewer}
  - {identity: R2, name: Reviewer Two, org_unit: CS, role: second_reviewer}
`

func TestRootCommands(t *testing.T) {
	root := cmd.GetRootCmd()
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["server"])
	assert.True(t, names["migrate"])
	assert.True(t, names["seed"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestMigrateAndSeed(t *testing.T) {
	t.Setenv("APP_ENV", "")
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "review.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  driver: sqlite\n  dsn: "+dbPath+"\nblob:\n  base_url: "+filepath.Join(dir, "blobs")+"\n"), 0o600))
	seedPath := filepath.Join(dir, "members.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedYAML), 0o600))

	root := cmd.GetRootCmd()

	root.SetArgs([]string{"seed", "--config", cfgPath, "--file="})
	assert.Error(t, root.Execute())

	root.SetArgs([]string{"migrate", "--config", cfgPath})
	require.NoError(t, root.Execute())

	root.SetArgs([]string{"seed", "--config", cfgPath, "--file", seedPath})
	require.NoError(t, root.Execute())
	// 重复导入按身份、组织与角色更新
	root.SetArgs([]string{"seed", "--config", cfgPath, "--file", seedPath})
	require.NoError(t, root.Execute())

	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", DSN: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	assert.True(t, db.Migrator().HasTable(&model.SubmissionModel{}))
	assert.True(t, db.Migrator().HasTable(&model.BlobModel{}))
	var count int64
	require.NoError(t, db.Model(&model.MemberModel{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}
