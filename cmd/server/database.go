package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql

	"github.com/yerba/yerba-api/internal/config"
	"github.com/yerba/yerba-api/internal/platform/memory"
	"github.com/yerba/yerba-api/internal/platform/postgres"
	"github.com/yerba/yerba-api/internal/store"
)

// stores is the set of record stores the services and tasks run against.
type stores struct {
	spaces   store.SpaceStore
	files    store.FileStore
	messages store.MessageStore
	tasks    store.TaskStore
}

// setupStores builds the stores for the configured driver. For postgres
// it also returns the open pool, already migrated.
func setupStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stores, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "memory":
		db := memory.New()
		logger.Warn("using in-memory store; records are lost on restart")
		return stores{
			spaces:   db.Spaces(),
			files:    db.Files(),
			messages: db.Messages(),
			tasks:    db.Tasks(),
		}, nil, nil

	case "postgres":
		db, err := setupAppDatabase(ctx, cfg, logger)
		if err != nil {
			return stores{}, nil, err
		}
		if err := postgres.Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return stores{}, nil, err
		}
		return stores{
			spaces:   postgres.NewPostgresSpaceStore(db, logger),
			files:    postgres.NewPostgresFileStore(db, logger),
			messages: postgres.NewPostgresMessageStore(db, logger),
			tasks:    postgres.NewPostgresTaskStore(db, logger),
		}, db, nil

	default:
		return stores{}, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// setupAppDatabase opens the connection pool and checks it is reachable.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")
	return db, nil
}
