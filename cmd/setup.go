package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/musicblah/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
//
// A missing config file is created from the template first.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	applied, err := shared.AppliedMigrations(db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s (%d migrations applied)\n", config.Database.Path, len(applied))
	return nil
}

// SetupConfig writes the template configuration. An existing file is left untouched.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Configuration written to %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify client_id and client_secret (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)\n")
	r.writePlain("2. Set auth.jwt_secret (or MUSICBLAH_JWT_SECRET)\n")
	r.writePlain("3. Run 'musicblah setup database' and then 'musicblah serve'\n")
	return nil
}

// schemaDatabase opens the database without applying pending migrations.
//
// The returned func closes the connection unless it belongs to the runner.
func (r *Runner) schemaDatabase() (*sql.DB, func(), error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

// DBRollback rolls back the most recently applied migration.
func (r *Runner) DBRollback(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.schemaDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	applied, err := shared.AppliedMigrations(db)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return fmt.Errorf("%w: no migrations to roll back", shared.ErrInvalidArgument)
	}

	version := applied[len(applied)-1].Version
	if err := shared.RollbackMigration(db); err != nil {
		return err
	}

	r.logger.Info("rolled back migration", "version", version)
	r.writePlain("✓ Rolled back migration %04d\n", version)
	return nil
}

// DBStatus lists the applied migrations.
func (r *Runner) DBStatus(ctx context.Context, cmd *cli.Command) error {
	db, closeDB, err := r.schemaDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	applied, err := shared.AppliedMigrations(db)
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		return r.writePlain("No migrations applied\n")
	}

	r.writePlainHeader("Applied migrations")
	for _, m := range applied {
		r.writePlain("%04d  %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
