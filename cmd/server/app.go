package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/yerba/yerba-api/internal/config"
	"github.com/yerba/yerba-api/internal/events"
	"github.com/yerba/yerba-api/internal/inference"
	"github.com/yerba/yerba-api/internal/platform/gemini"
	"github.com/yerba/yerba-api/internal/platform/ollama"
	"github.com/yerba/yerba-api/internal/platform/ragserver"
	"github.com/yerba/yerba-api/internal/service"
	"github.com/yerba/yerba-api/internal/service/auth"
	"github.com/yerba/yerba-api/internal/space"
	"github.com/yerba/yerba-api/internal/task"
)

// application holds the shared dependencies of the server so they can be
// wired once and released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB // nil with the memory driver

	stores stores
	layout space.Layout

	bus        *events.Bus
	dispatcher *task.Dispatcher

	jwtService     auth.JWTService
	spaceService   service.SpaceService
	fileService    service.FileService
	messageService service.MessageService
	taskService    service.TaskService
}

// newApplication wires every component from cfg. On error everything
// opened so far is released.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *application, err error) {
	logConfig(cfg, logger)

	app := &application{config: cfg, logger: logger}
	defer func() {
		if err != nil {
			app.cleanup(context.Background())
		}
	}()

	app.jwtService, err = auth.NewJWTService(cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenLifetimeMinutes)*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.stores, app.db, err = setupStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app.layout, err = space.NewLayout(cfg.Storage.SpacesDir)
	if err != nil {
		return nil, err
	}

	app.bus = events.NewBus(cfg.Events.Backlog, logger)
	app.dispatcher = task.NewDispatcher(task.DispatcherConfig{
		Permits:       int64(cfg.Task.Permits),
		PruneFinished: cfg.Task.PruneFinished,
	}, logger)

	timeout := time.Duration(cfg.Inference.TimeoutSeconds) * time.Second
	ingester, err := ragserver.NewClient(cfg.Inference.BaseURL, timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference client: %w", err)
	}

	answerer, err := newAnswerer(ctx, cfg.Inference, ingester, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("answer backend initialized", "provider", cfg.Inference.Provider)

	factory, err := task.NewFactory(
		app.stores.tasks,
		app.stores.files,
		app.stores.messages,
		app.bus,
		ingester,
		answerer,
		task.KindsConfig{
			PollInterval:  time.Duration(cfg.Task.PollIntervalMS) * time.Millisecond,
			StableFor:     time.Duration(cfg.Task.StableForMS) * time.Millisecond,
			HistoryWindow: cfg.Task.HistoryWindow,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task factory: %w", err)
	}

	if app.spaceService, err = service.NewSpaceService(app.stores.spaces, app.layout, logger); err != nil {
		return nil, err
	}
	if app.fileService, err = service.NewFileService(app.stores.files, factory, app.dispatcher, logger); err != nil {
		return nil, err
	}
	if app.messageService, err = service.NewMessageService(
		app.stores.messages, factory, app.dispatcher, app.bus, logger,
	); err != nil {
		return nil, err
	}
	if app.taskService, err = service.NewTaskService(app.stores.tasks, app.dispatcher, logger); err != nil {
		return nil, err
	}

	logger.Info("application initialized")
	return app, nil
}

// newAnswerer selects the answer backend. The http provider reuses the
// ingestion client, which also serves /ask.
func newAnswerer(
	ctx context.Context,
	cfg config.InferenceConfig,
	rag *ragserver.Client,
	logger *slog.Logger,
) (inference.Answerer, error) {
	switch cfg.Provider {
	case "http":
		return rag, nil
	case "gemini":
		a, err := gemini.NewAnswerer(ctx, gemini.Config{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: time.Duration(cfg.RetryDelaySeconds) * time.Second,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini answerer: %w", err)
		}
		return a, nil
	case "ollama":
		a, err := ollama.NewAnswerer(cfg.OllamaHost, cfg.OllamaModel,
			time.Duration(cfg.TimeoutSeconds)*time.Second, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama answerer: %w", err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", inference.ErrInvalidConfig, cfg.Provider)
	}
}

// Run serves HTTP until ctx ends or a shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup lets in-flight tasks drain within the shutdown timeout, then
// stops the dispatcher, closes the bus and the database.
func (app *application) cleanup(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, app.shutdownTimeout())
	defer cancel()

	if app.dispatcher != nil {
		if err := app.dispatcher.Wait(ctx); err != nil {
			app.logger.Warn("tasks still running at shutdown", "count", len(app.dispatcher.List()), "error", err)
		}
		if err := app.dispatcher.Shutdown(ctx); err != nil {
			app.logger.Error("dispatcher shutdown failed", "error", err)
		}
	}

	if app.bus != nil {
		app.bus.Close()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}

// shutdownTimeout bounds graceful shutdown; zero falls back to ten seconds.
func (app *application) shutdownTimeout() time.Duration {
	if app.config.Server.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(app.config.Server.ShutdownTimeoutSeconds) * time.Second
}
