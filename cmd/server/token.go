package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/config"
	"github.com/yerba/yerba-api/internal/service/auth"
)

// issueToken prints a signed access token for the user id in args.
// Accounts are managed elsewhere; this exists for local use and scripts.
func issueToken(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: token <user-uuid>")
	}

	userID, err := uuid.Parse(args[0])
	if err != nil || userID == uuid.Nil {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	svc, err := auth.NewJWTService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenLifetimeMinutes)*time.Minute)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	token, err := svc.GenerateToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}
