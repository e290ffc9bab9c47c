package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/mautops/review-gin/internal/model"
	"github.com/mautops/review-gin/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberUpsertAndOrder(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewMemberRepository(db)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	members := []*model.MemberModel{
		{ID: "m3", Identity: "carol", OrgUnit: "CS", Role: model.RoleFirstReviewer, Position: 1, CreatedAt: base},
		{ID: "m2", Identity: "bob", OrgUnit: "CS", Role: model.RoleFirstReviewer, Position: 0, CreatedAt: base.Add(time.Minute)},
		{ID: "m1", Identity: "alice", OrgUnit: "CS", Role: model.RoleFirstReviewer, Position: 0, CreatedAt: base},
		{ID: "m4", Identity: "dave", OrgUnit: "EE", Role: model.RoleFirstReviewer, Position: 0, CreatedAt: base},
	}
	for _, m := range members {
		require.NoError(t, repo.Upsert(ctx, m))
	}

	rows, err := repo.FindByUnitAndRole(ctx, "CS", model.RoleFirstReviewer)
	require.NoError(t, err)
	identities := make([]string, 0, len(rows))
	for _, m := range rows {
		identities = append(identities, m.Identity)
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, identities)

	// 同一 (identity, org_unit, role) 再次写入只更新属性
	require.NoError(t, repo.Upsert(ctx, &model.MemberModel{
		Identity: "bob", OrgUnit: "CS", Role: model.RoleFirstReviewer, Name: "Bob", Position: 5,
	}))
	rows, err = repo.FindByUnitAndRole(ctx, "CS", model.RoleFirstReviewer)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "bob", rows[2].Identity)
	assert.Equal(t, "Bob", rows[2].Name)
	assert.Equal(t, "m2", rows[2].ID)

	rows, err = repo.FindByUnitAndRole(ctx, "CS", model.RoleSecondReviewer)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemberUpsertValidates(t *testing.T) {
	repo := repository.NewMemberRepository(newTestDB(t))
	err := repo.Upsert(context.Background(), &model.MemberModel{Identity: "alice", OrgUnit: "CS", Role: "admin"})
	assert.Error(t, err)
}

func TestFindAuthorUnit(t *testing.T) {
	repo := repository.NewMemberRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.MemberModel{Identity: "alice", OrgUnit: "CS", Role: model.RoleAuthor}))
	require.NoError(t, repo.Upsert(ctx, &model.MemberModel{Identity: "bob", OrgUnit: "EE", Role: model.RoleFirstReviewer}))

	unit, err := repo.FindAuthorUnit(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "CS", unit)

	// 审批人角色不代表作者所属单元
	unit, err = repo.FindAuthorUnit(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, unit)

	unit, err = repo.FindAuthorUnit(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, unit)
}
