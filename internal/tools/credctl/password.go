package credctl

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/secure-credential-service/internal/credential"
	"github.com/sandeepkv93/secure-credential-service/internal/di"
)

func newPasswordCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "password", Short: "Password management"}
	cmd.AddCommand(newPasswordSetCommand(opts))
	return cmd
}

func newPasswordSetCommand(opts *options) *cobra.Command {
	var (
		userID uint
		actor  uint
		mode   string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			writeMode, err := credential.ParseWriteMode(mode)
			if err != nil {
				return err
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return execute(cmd, opts, "password set", withTool(opts, func(ctx context.Context, tool *di.CredentialTool) ([]string, error) {
				outcome, err := tool.Service.CreateOrUpdate(ctx, actor, userID, password, writeMode)
				if err != nil {
					return nil, err
				}
				if !outcome.Operation.Mutated() {
					return nil, fmt.Errorf("credential not written for mode %s", writeMode)
				}
				return []string{fmt.Sprintf("user_id=%d operation=%s", userID, outcome.Operation)}, nil
			}))
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "target user id")
	cmd.Flags().UintVar(&actor, "actor", 0, "acting user id recorded with the write")
	cmd.Flags().StringVar(&mode, "mode", "create_or_update", "create_or_update|create_only|update_only")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func newLoginCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "login", Short: "Authentication checks"}
	cmd.AddCommand(newLoginCheckCommand(opts))
	return cmd
}

func newLoginCheckCommand(opts *options) *cobra.Command {
	var (
		userID uint
		name   string
		actual bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify a password read from stdin",
		Long:  "Verify a password read from stdin. Without --actual the attempt is a check login and leaves the last login time untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (userID == 0) == (name == "") {
				return errors.New("exactly one of --user-id or --name is required")
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return execute(cmd, opts, "login check", withTool(opts, func(ctx context.Context, tool *di.CredentialTool) ([]string, error) {
				var res credential.LoginResult
				if userID != 0 {
					res, err = tool.Service.LoginByUserID(ctx, userID, password, actual)
				} else {
					res, err = tool.Service.LoginByName(ctx, name, password, actual)
				}
				if err != nil {
					return nil, err
				}
				details := []string{fmt.Sprintf("user_id=%d failure=%s", res.UserID, res.Failure)}
				if !res.Succeeded {
					return details, errRejected
				}
				return details, nil
			}))
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "user id")
	cmd.Flags().StringVar(&name, "name", "", "user name")
	cmd.Flags().BoolVar(&actual, "actual", false, "record the attempt as an actual login")
	return cmd
}
