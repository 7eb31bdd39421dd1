package credctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/secure-credential-service/internal/legacy"
	"github.com/sandeepkv93/secure-credential-service/internal/tools/ui"
)

func newLegacyCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "legacy", Short: "Legacy credential migration tooling"}
	cmd.AddCommand(newLegacyImportCommand(opts))
	return cmd
}

func newLegacyImportCommand(opts *options) *cobra.Command {
	var (
		prefix      string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a legacy credential export from object storage",
		Long:  "Reads JSON-lines exports of {user_id, password_hash} bcrypt records from the configured bucket and upserts them into legacy_credentials. Rows that were already migrated are left alone.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, "legacy import", func(ctx context.Context, progress ui.ProgressFunc) ([]string, error) {
				tool, err := opts.deps.tool()
				if err != nil {
					return nil, err
				}
				defer tool.Close()

				source, err := opts.deps.objectSource(tool.Config)
				if err != nil {
					return nil, err
				}
				importer := legacy.NewImporter(tool.DB, source, tool.Logger,
					legacy.WithConcurrency(concurrency),
					legacy.WithProgress(func(key string, done, total int) { progress(key, done, total) }),
				)
				report, err := importer.Import(ctx, prefix)
				if err != nil {
					return nil, err
				}
				return []string{
					fmt.Sprintf("objects=%d", report.Objects),
					fmt.Sprintf("imported=%d", report.Imported),
					fmt.Sprintf("skipped=%d", report.Skipped),
					fmt.Sprintf("invalid=%d", report.Invalid),
				}, nil
			})
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "object key prefix to import")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "objects read in parallel")
	return cmd
}
