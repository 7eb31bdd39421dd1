package credctl

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/secure-credential-service/internal/database"
	"github.com/sandeepkv93/secure-credential-service/internal/di"
	"github.com/sandeepkv93/secure-credential-service/internal/repository"
)

func newUserCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "User registry tooling"}
	cmd.AddCommand(newUserAddCommand(opts), newUserListCommand(opts))
	return cmd
}

func newUserAddCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME [NAME...]",
		Short: "Ensure users exist in the registry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, "user add", withTool(opts, func(ctx context.Context, tool *di.CredentialTool) ([]string, error) {
				report, err := database.SeedUsers(tool.DB.WithContext(ctx), args)
				if err != nil {
					return nil, err
				}
				details := make([]string, 0, len(report.Users)+1)
				details = append(details, fmt.Sprintf("created=%d noop=%t", report.Created, report.Noop))
				for _, u := range report.Users {
					details = append(details, fmt.Sprintf("user_id=%d name=%s", u.ID, u.Name))
				}
				return details, nil
			}))
		},
	}
}

func newUserListCommand(opts *options) *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, "user list", withTool(opts, func(ctx context.Context, tool *di.CredentialTool) ([]string, error) {
				res, err := tool.Users.ListPaged(ctx, repository.PageRequest{Page: page, PageSize: pageSize})
				if err != nil {
					return nil, err
				}
				details := make([]string, 0, len(res.Items)+1)
				details = append(details, fmt.Sprintf("page=%d/%d total=%d", res.Page, res.TotalPages, res.Total))
				for _, u := range res.Items {
					details = append(details, fmt.Sprintf("user_id=%d name=%s", u.ID, u.Name))
				}
				return details, nil
			}))
		},
	}
	cmd.Flags().IntVar(&page, "page", repository.DefaultPage, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", repository.DefaultPageSize, "users per page")
	return cmd
}
