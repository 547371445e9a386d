package main

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yerba/yerba-api/internal/api"
	apiMiddleware "github.com/yerba/yerba-api/internal/api/middleware"
)

// setupRouter creates the router with every route and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	spaceHandler := api.NewSpaceHandler(app.spaceService, app.logger)
	fileHandler := api.NewFileHandler(app.spaceService, app.fileService,
		int64(app.config.Storage.MaxUploadMB)<<20, app.logger)
	messageHandler := api.NewMessageHandler(app.spaceService, app.messageService, app.logger)
	taskHandler := api.NewTaskHandler(app.spaceService, app.taskService, app.logger)
	updatesHandler := api.NewUpdatesHandler(app.spaceService, app.bus,
		originChecker(app.config.Server.AllowedOrigins), app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/spaces", spaceHandler.CreateSpace)
		r.Get("/spaces", spaceHandler.ListSpaces)

		r.Route("/spaces/{spaceID}", func(r chi.Router) {
			r.Get("/", spaceHandler.GetSpace)

			r.Get("/files", fileHandler.ListFiles)
			r.Put("/files/*", fileHandler.UploadFile)
			r.Post("/files/{fileID}/learn", fileHandler.LearnFile)

			r.Post("/messages", messageHandler.SendMessage)
			r.Get("/messages", messageHandler.ListMessages)

			r.Get("/tasks", taskHandler.ListActiveTasks)
			r.Get("/tasks/recent", taskHandler.ListRecentTasks)

			r.Get("/updates", updatesHandler.Stream)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}

// originChecker returns the websocket origin policy. A nil result keeps
// gorilla's same-origin default.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	if slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}
