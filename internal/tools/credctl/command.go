package credctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-credential-service/internal/config"
	"github.com/sandeepkv93/secure-credential-service/internal/database"
	"github.com/sandeepkv93/secure-credential-service/internal/di"
	"github.com/sandeepkv93/secure-credential-service/internal/legacy"
	"github.com/sandeepkv93/secure-credential-service/internal/observability"
	"github.com/sandeepkv93/secure-credential-service/internal/tools/common"
	"github.com/sandeepkv93/secure-credential-service/internal/tools/ui"
)

const toolName = "credctl"

// Exit codes.
const (
	exitFailure  = 3
	exitRejected = 2
)

var errRejected = errors.New("invalid credentials")

type options struct {
	envFile string
	timeout time.Duration
	ci      bool

	deps dependencies
}

// dependencies are swapped out in tests.
type dependencies struct {
	tool         func() (*di.CredentialTool, error)
	migrator     func() (*di.MigrationRunner, error)
	db           func() (*gorm.DB, error)
	objectSource func(cfg *config.Config) (legacy.ObjectSource, error)
}

func defaultDependencies() dependencies {
	return dependencies{
		tool:     di.InitializeCredentialTool,
		migrator: di.InitializeMigrationRunner,
		db: func() (*gorm.DB, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return database.Open(cfg)
		},
		objectSource: func(cfg *config.Config) (legacy.ObjectSource, error) {
			if !cfg.LegacyImportConfigured() {
				return nil, errors.New("LEGACY_IMPORT_ENDPOINT, LEGACY_IMPORT_ACCESS_KEY and LEGACY_IMPORT_SECRET_KEY are required")
			}
			return legacy.NewMinIOObjectSource(cfg.LegacyImportEndpoint, cfg.LegacyImportAccess, cfg.LegacyImportSecret, cfg.LegacyImportBucket, cfg.LegacyImportSecure)
		},
	}
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{deps: defaultDependencies()})
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           toolName,
		Short:         "Credential service administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return common.LoadEnvFile(opts.envFile)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newMigrateCommand(opts),
		newUserCommand(opts),
		newPasswordCommand(opts),
		newLoginCommand(opts),
		newCredentialCommand(opts),
		newLegacyCommand(opts),
	)
	return cmd
}

// execute runs fn either behind the interactive view or, with --ci, directly
// with JSON output. Failures become exit errors carrying code.
func execute(cmd *cobra.Command, opts *options, title string, fn func(context.Context, ui.ProgressFunc) ([]string, error)) error {
	var (
		details []string
		err     error
	)
	if opts.ci {
		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		details, err = fn(ctx, func(string, int, int) {})
		cancel()
		common.PrintCIResult(cmd.OutOrStdout(), err == nil, title, details, err)
	} else {
		details, err = ui.RunWithProgress(title, opts.timeout, fn)
	}

	status := "success"
	code := exitFailure
	switch {
	case errors.Is(err, errRejected):
		status, code = "rejected", exitRejected
	case err != nil:
		status = "error"
	}
	observability.RecordToolCommandRun(cmd.Context(), toolName, title, status)
	return common.Exit(code, err)
}

func withTool(opts *options, fn func(ctx context.Context, tool *di.CredentialTool) ([]string, error)) func(context.Context, ui.ProgressFunc) ([]string, error) {
	return func(ctx context.Context, _ ui.ProgressFunc) ([]string, error) {
		tool, err := opts.deps.tool()
		if err != nil {
			return nil, err
		}
		defer tool.Close()
		return fn(ctx, tool)
	}
}

// readPassword takes the first line of r. Passwords are never accepted as
// flags so they stay out of shell history and process listings.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password must be supplied on stdin")
	}
	return pw, nil
}
