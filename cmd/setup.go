package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/unnipv/musync/internal/shared"
)

// SetupConfig writes the embedded config template to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Config written to %s\n", path)
	r.writePlain("Fill in [credentials.spotify] and [credentials.youtube], then run: musync setup database\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.cfg().Database.Path)

	if err := r.openStore(ctx); err != nil {
		return err
	}

	version, err := shared.CurrentVersion(ctx, r.db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", r.cfg().Database.Path)
	r.writePlain("✓ Database ready at schema version %d\n", version)
	return nil
}
