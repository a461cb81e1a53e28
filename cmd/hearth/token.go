package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/nerrad567/gray-hearth/internal/auth"
	"github.com/nerrad567/gray-hearth/internal/infrastructure/config"
)

// runToken mints an access token signed with the configured secret:
//
//	hearth token -subject alice -role operator
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "", "token subject (required)")
	role := fs.String("role", string(auth.RoleOperator), "viewer, operator or admin")
	ttl := fs.Int("ttl", 0, "lifetime in minutes (default security.jwt.access_token_ttl)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return fmt.Errorf("-subject is required")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *ttl <= 0 {
		*ttl = cfg.Security.JWT.AccessTokenTTL
	}

	token, err := auth.GenerateAccessToken(*subject, auth.Role(*role), cfg.Security.JWT.Secret, *ttl)
	if err != nil {
		return fmt.Errorf("minting token: %w", err)
	}
	fmt.Fprintln(out, token)
	return nil
}
