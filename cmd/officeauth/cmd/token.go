package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	officeauth "github.com/AbuSayeed917/MMKRegisteredOfficeServices-sub002"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect bearer tokens",
	}
	tokenCmd.AddCommand(newTokenIssueCmd())
	tokenCmd.AddCommand(newTokenVerifyCmd())
	return tokenCmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		userID string
		email  string
		role   string
	)

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token with AUTH_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := officeauth.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}

			manager, err := cfg.TokenManager()
			if err != nil {
				return err
			}
			token, err := manager.Issue(userID, email, string(r))
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	issueCmd.Flags().StringVar(&userID, "id", "", "user id (required)")
	issueCmd.Flags().StringVar(&email, "email", "", "user email")
	issueCmd.Flags().StringVar(&role, "role", string(officeauth.RoleClient), "CLIENT, ADMIN or SUPER_ADMIN")
	_ = issueCmd.MarkFlagRequired("id")

	return issueCmd
}

type verifiedToken struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Issuer    string    `json:"iss,omitempty"`
	TokenID   string    `json:"jti,omitempty"`
	ExpiresAt time.Time `json:"exp"`
}

func newTokenVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a bearer token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := cfg.TokenManager()
			if err != nil {
				return err
			}
			claims, err := manager.Verify(args[0])
			if err != nil {
				return fmt.Errorf("verify token: %w", err)
			}

			out := verifiedToken{
				ID:      claims.UserID,
				Email:   claims.Email,
				Role:    claims.Role,
				Issuer:  claims.Issuer,
				TokenID: claims.ID,
			}
			if claims.ExpiresAt != nil {
				out.ExpiresAt = claims.ExpiresAt.Time.UTC()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
