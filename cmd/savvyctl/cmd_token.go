package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"savvy/internal/config"
	"savvy/internal/session"
)

var tokenFlags struct {
	user  string
	email string
	name  string
	ttl   time.Duration
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint session tokens signed with JWT_SECRET",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Print a bearer token for a user",
	Long:  "Print an HS256 bearer token for local testing against a server\nthat shares the same JWT_SECRET.",
	Args:  cobra.NoArgs,
	RunE:  runTokenIssue,
}

func init() {
	f := tokenIssueCmd.Flags()
	f.StringVar(&tokenFlags.user, "user", "", "user ID (required)")
	f.StringVar(&tokenFlags.email, "email", "", "email claim")
	f.StringVar(&tokenFlags.name, "name", "", "full name claim")
	f.DurationVar(&tokenFlags.ttl, "ttl", time.Hour, "token lifetime")

	_ = tokenIssueCmd.MarkFlagRequired("user")

	tokenCmd.AddCommand(tokenIssueCmd)
}

func runTokenIssue(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if tokenFlags.ttl <= 0 {
		return fmt.Errorf("--ttl must be positive, got %s", tokenFlags.ttl)
	}
	p, err := session.NewJWTProvider([]byte(cfg.JWTSecret), nil, newLogger().Slog())
	if err != nil {
		return err
	}
	tok, err := p.Issue(tokenFlags.user, tokenFlags.email, tokenFlags.name, tokenFlags.ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
