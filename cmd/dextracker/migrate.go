// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DexTracker Contributors

package main

import (
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/dextracker/dextracker/internal/config"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(nil)
}

func newMigrateCmd(deps *MigrateDeps) *cobra.Command {
	if deps == nil {
		deps = &MigrateDeps{}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = defaultMigratorFactory
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Manage the PostgreSQL schema. Without a subcommand, applies all
pending migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	}
	config.RegisterLogFlags(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Long:  `Roll back every applied migration. This drops all account data.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateDown(cmd, deps)
		},
	}
	down.Flags().Bool("yes", false, "confirm rolling back all migrations")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateStatus(cmd, deps)
		},
	})

	return cmd
}

// openMigrator loads configuration, sets up logging and opens a migrator.
func openMigrator(cmd *cobra.Command, deps *MigrateDeps) (Migrator, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := setupCommandLogging(cfg); err != nil {
		return nil, err
	}

	migrator, err := deps.MigratorFactory(cfg.Secrets.DatabaseURL)
	if err != nil {
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	return migrator, nil
}

func closeMigrator(m Migrator) {
	if err := m.Close(); err != nil {
		slog.Warn("error closing migrator", "error", err)
	}
}

func runMigrateUp(cmd *cobra.Command, deps *MigrateDeps) error {
	migrator, err := openMigrator(cmd, deps)
	if err != nil {
		return err
	}
	defer closeMigrator(migrator)

	cmd.Println("Running migrations...")
	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, deps *MigrateDeps) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return oops.Code("CONFIRMATION_REQUIRED").Errorf("refusing to roll back all migrations without --yes")
	}

	migrator, err := openMigrator(cmd, deps)
	if err != nil {
		return err
	}
	defer closeMigrator(migrator)

	cmd.Println("Rolling back migrations...")
	if err := migrator.Down(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "roll back migrations").Wrap(err)
	}

	cmd.Println("Rollback completed successfully")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, deps *MigrateDeps) error {
	migrator, err := openMigrator(cmd, deps)
	if err != nil {
		return err
	}
	defer closeMigrator(migrator)

	status, err := migrator.Status()
	if err != nil {
		return oops.Code("MIGRATION_STATUS_FAILED").Wrap(err)
	}

	cmd.Printf("Current version: %d\n", status.Current)
	if status.Dirty {
		cmd.Println("WARNING: database is dirty; a previous migration failed part-way")
	}
	cmd.Printf("Applied: %d\n", len(status.Applied))
	for _, m := range status.Applied {
		cmd.Printf("  [x] %06d %s\n", m.Version, m.Name)
	}
	cmd.Printf("Pending: %d\n", len(status.Pending))
	for _, m := range status.Pending {
		cmd.Printf("  [ ] %06d %s\n", m.Version, m.Name)
	}
	return nil
}
