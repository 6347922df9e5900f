// Command chat-token issues development access tokens signed with the
// configured JWT secret, and decodes existing ones.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gosocialchat/internal/common"
	"gosocialchat/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "chat-token",
	Short: "Issue and inspect chat-svc access tokens",
}

var issueCmd = &cobra.Command{
	Use:   "issue <user-id>",
	Short: "Issue a token for a user id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, _ := cmd.Flags().GetString("handle")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		return issue(cmd, args[0], handle, ttl)
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <token>",
	Short: "Print the identity carried by a token without verifying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		claims, err := common.IdentityFromToken(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "user:   %s\n", claims.UserID)
		fmt.Fprintf(out, "handle: %s\n", claims.Handle)
		if claims.ExpiresAt != nil {
			fmt.Fprintf(out, "expires %s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true

	issueCmd.Flags().String("handle", "", "display handle, defaults to the user id")
	issueCmd.Flags().Duration("ttl", 0, "token lifetime, defaults to the configured JWT TTL")

	rootCmd.AddCommand(issueCmd, inspectCmd)
}

func issue(cmd *cobra.Command, userID, handle string, ttl time.Duration) error {
	if handle == "" {
		handle = userID
	}
	if err := common.ValidateHandle(handle); err != nil {
		return fmt.Errorf("invalid handle: %w", err)
	}

	cfg := config.LoadConfig()
	lifetime := cfg.TokenTTL()
	if ttl > 0 {
		lifetime = ttl
	}

	token, err := common.NewTokenIssuer(cfg.Auth.JWTSecret, lifetime).GenerateToken(userID, handle)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", time.Now().Add(lifetime).Format(time.RFC3339))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
