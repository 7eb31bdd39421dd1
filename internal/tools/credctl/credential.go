package credctl

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/secure-credential-service/internal/di"
	"github.com/sandeepkv93/secure-credential-service/internal/domain"
	"github.com/sandeepkv93/secure-credential-service/internal/security"
)

func newCredentialCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "credential", Short: "Credential record tooling"}
	cmd.AddCommand(newCredentialInspectCommand(opts), newCredentialDestroyCommand(opts))
	return cmd
}

func newCredentialInspectCommand(opts *options) *cobra.Command {
	var userID uint
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show credential bookkeeping for a user (never the hash)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, "credential inspect", withTool(opts, func(ctx context.Context, tool *di.CredentialTool) ([]string, error) {
				rec, err := tool.Backend.Inspect(ctx, userID)
				if err != nil {
					return nil, err
				}
				return describeCredential(rec, tool.Config.PasswordIterations), nil
			}))
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "target user id")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func newCredentialDestroyCommand(opts *options) *cobra.Command {
	var userID, actor uint
	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete a user's credential record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, "credential destroy", withTool(opts, func(ctx context.Context, tool *di.CredentialTool) ([]string, error) {
				if err := tool.Service.Destroy(ctx, actor, userID); err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("user_id=%d credential destroyed", userID)}, nil
			}))
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "target user id")
	cmd.Flags().UintVar(&actor, "actor", 0, "acting user id")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func describeCredential(rec *domain.Credential, configuredIterations int) []string {
	details := []string{fmt.Sprintf("user_id=%d", rec.UserID)}
	if len(rec.PasswordHash) == 0 {
		details = append(details, "password=none (legacy migration rejected)")
	} else if n, err := security.Iterations(rec.PasswordHash); err != nil {
		details = append(details, "password=unreadable")
	} else {
		details = append(details, fmt.Sprintf("password=set iterations=%d rehash_pending=%t", n, n != configuredIterations))
	}
	details = append(details, "last_write_at="+rec.LastWriteAt.UTC().Format(time.RFC3339))
	if rec.LastLoginAt != nil {
		details = append(details, "last_login_at="+rec.LastLoginAt.UTC().Format(time.RFC3339))
	} else {
		details = append(details, "last_login_at=never")
	}
	details = append(details, fmt.Sprintf("failed_attempts=%d", rec.FailedAttemptCount))
	return details
}
