// Package main runs the yerba API server. It serves tenant spaces of
// uploaded documents over HTTP, ingests them through the external
// retrieval service, and answers questions as background tasks.
//
// Usage:
//
//	server              start the HTTP server
//	server token <uuid> print an access token for the given user id
package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "yerba-api: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches the command line. With no arguments it serves until a
// shutdown signal arrives.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	if len(args) > 0 {
		switch args[0] {
		case "token":
			return issueToken(ctx, cfg, args[1:], stdout)
		case "serve":
		default:
			return fmt.Errorf("unknown command %q", args[0])
		}
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
