package loadgen

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/secure-credential-service/internal/observability"
	"github.com/sandeepkv93/secure-credential-service/internal/tools/common"
	"github.com/sandeepkv93/secure-credential-service/internal/tools/ui"
)

const (
	toolName    = "loadgen"
	passwordEnv = "LOADGEN_PASSWORD"
	exitFailure = 4
)

type options struct {
	baseURL     string
	profile     string
	duration    time.Duration
	rps         int
	concurrency int
	seed        int64
	users       []string
	checkOnly   bool
	ci          bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           toolName,
		Short:         "Generate login traffic against the credential service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.PersistentFlags().StringVar(&opts.profile, "profile", "mixed", "traffic profile: valid|mixed|invalid")
	cmd.PersistentFlags().DurationVar(&opts.duration, "duration", 15*time.Second, "traffic duration")
	cmd.PersistentFlags().IntVar(&opts.rps, "rps", 20, "requests per second")
	cmd.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 6, "concurrent workers")
	cmd.PersistentFlags().Int64Var(&opts.seed, "seed", 42, "random seed")
	cmd.PersistentFlags().StringSliceVar(&opts.users, "users", nil, "comma separated user names with the shared password")
	cmd.PersistentFlags().BoolVar(&opts.checkOnly, "check-only", true, "send check logins that leave last login untouched")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run load generation",
		Long:  "Run load generation. The password the users were provisioned with is read from " + passwordEnv + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := Config{
				BaseURL:     opts.baseURL,
				Profile:     opts.profile,
				Duration:    opts.duration,
				RPS:         opts.rps,
				Concurrency: opts.concurrency,
				Seed:        opts.seed,
				Users:       opts.users,
				Password:    strings.TrimSpace(os.Getenv(passwordEnv)),
				CheckOnly:   opts.checkOnly,
			}
			return execute(cmd, opts, "loadgen run", func(ctx context.Context) ([]string, error) {
				res, err := Run(ctx, cfg)
				if err != nil {
					return nil, err
				}
				return summarize(res), nil
			})
		},
	}
}

func summarize(res Result) []string {
	return []string{
		fmt.Sprintf("total_requests=%d", res.TotalRequests),
		fmt.Sprintf("failures=%d", res.Failures),
		fmt.Sprintf("accepted=%d", res.Accepted),
		fmt.Sprintf("rejected=%d", res.Rejected),
		fmt.Sprintf("status_2xx=%d", res.Status2xx),
		fmt.Sprintf("status_4xx=%d", res.Status4xx),
		fmt.Sprintf("status_5xx=%d", res.Status5xx),
	}
}

func execute(cmd *cobra.Command, opts *options, title string, fn func(context.Context) ([]string, error)) error {
	timeout := opts.duration + 15*time.Second
	var (
		details []string
		err     error
	)
	if opts.ci {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		details, err = fn(ctx)
		cancel()
		common.PrintCIResult(cmd.OutOrStdout(), err == nil, title, details, err)
	} else {
		details, err = ui.Run(title, timeout, fn)
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordToolCommandRun(cmd.Context(), toolName, title, status)
	return common.Exit(exitFailure, err)
}
