package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/aura/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates the config file when missing, then initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using current settings", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if err := r.open(); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}

// SetupStatus prints the applied migrations.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	applied, err := shared.MigrationStatus(r.db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	r.writePlainHeader("Migrations")
	if len(applied) == 0 {
		return r.writePlain("No migrations applied\n")
	}
	for _, m := range applied {
		r.writePlain("%04d  applied %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// SetupRollback rolls back the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return err
	}
	r.logger.Warn("rolled back migration", "path", r.config.Database.Path)
	return r.writePlain("✓ Rolled back the latest migration\n")
}
