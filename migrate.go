package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/config"
	"github.com/greensdlc/sustainability-dashboard/pkg/database"
	"github.com/greensdlc/sustainability-dashboard/pkg/logging"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, logger, err := bootstrap(opts)
				if err != nil {
					return err
				}
				return migrateUp(cfg, logger)
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (one step by default)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = n
				}

				cfg, logger, err := bootstrap(opts)
				if err != nil {
					return err
				}
				return withSQL(cfg, func(db *sql.DB) error {
					return database.RollbackMigrations(db, steps, logger)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, logger, err := bootstrap(opts)
				if err != nil {
					return err
				}
				return withSQL(cfg, func(db *sql.DB) error {
					version, dirty, err := database.MigrationVersion(db, logger)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
					return nil
				})
			},
		},
	)

	return cmd
}

// migrateUp applies pending migrations over a short-lived database/sql handle.
func migrateUp(cfg *config.Config, logger *zap.Logger) error {
	return withSQL(cfg, func(db *sql.DB) error {
		return database.RunMigrations(db, logger)
	})
}

func withSQL(cfg *config.Config, fn func(db *sql.DB) error) error {
	db, err := database.OpenSQL(cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to open database: %s", logging.SanitizeError(err))
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}
