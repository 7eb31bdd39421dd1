package credctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/secure-credential-service/internal/health"
	"github.com/sandeepkv93/secure-credential-service/internal/tools/ui"
)

func newMigrateCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "migrate", Short: "Database schema tooling"}
	cmd.AddCommand(newMigrateUpCommand(opts), newMigrateStatusCommand(opts))
	return cmd
}

func newMigrateUpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, "migrate up", func(ctx context.Context, _ ui.ProgressFunc) ([]string, error) {
				runner, err := opts.deps.migrator()
				if err != nil {
					return nil, err
				}
				if err := runner.Run(); err != nil {
					return nil, err
				}
				return []string{"schema migration applied", "tables: users, credentials, legacy_credentials"}, nil
			})
		},
	}
}

func newMigrateStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the database is reachable and migrated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, "migrate status", func(ctx context.Context, _ ui.ProgressFunc) ([]string, error) {
				db, err := opts.deps.db()
				if err != nil {
					return nil, err
				}
				if sqlDB, err := db.DB(); err == nil {
					defer func() { _ = sqlDB.Close() }()
				}
				res := health.NewDBChecker(db).Check(ctx)
				if !res.Healthy {
					return nil, fmt.Errorf("database not ready: %s", res.Error)
				}
				return []string{"database reachable", "schema: migrated"}, nil
			})
		},
	}
}
