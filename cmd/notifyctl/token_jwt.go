package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-notifier/internal/auth"
)

var tokenJWTCmd = &cobra.Command{
	Use:   "token-jwt",
	Short: "Print an admin bearer token for the notifier API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, _ := cmd.Flags().GetString("secret")
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if secret == "" {
			return fmt.Errorf("--secret or AUTH_JWT_SECRET is required")
		}

		minutes := int(ttl / time.Minute)
		signed, expiresAt, err := auth.NewTokenManager(secret, minutes).GenerateToken(subject, auth.RoleAdmin)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signed)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenJWTCmd.Flags().String("secret", os.Getenv("AUTH_JWT_SECRET"), "HMAC secret shared with the notifier")
	tokenJWTCmd.Flags().String("subject", "operator", "subject claim")
	tokenJWTCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
}
