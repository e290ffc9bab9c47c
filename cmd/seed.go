/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"

	"github.com/mautops/review-gin/internal/config"
	"github.com/mautops/review-gin/internal/database"
	"github.com/mautops/review-gin/internal/directory"
	"github.com/mautops/review-gin/internal/logger"
	"github.com/mautops/review-gin/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load reviewer directory members from a YAML file",
	Long: `Load authors and reviewers into the reviewer directory.
Each member row binds an identity to an organizational unit with one of the
roles author, first_reviewer or second_reviewer. Existing rows with the same
identity, unit and role are updated in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return fmt.Errorf("--file is required")
		}

		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log := logger.GetLogger()

		seed, err := directory.LoadSeedFile(file)
		if err != nil {
			return err
		}

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect database: %w", err)
		}
		defer func() {
			sqlDB, _ := db.DB()
			if sqlDB != nil {
				sqlDB.Close()
			}
		}()
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		n, units, err := directory.Seed(cmd.Context(), repository.NewMemberRepository(db), seed)
		if err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"members":   n,
			"org_units": units,
		}).Info("directory seeded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().String("file", "", "Members YAML file")
}
