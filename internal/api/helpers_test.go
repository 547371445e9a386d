package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yerba/yerba-api/internal/api/middleware"
	"github.com/yerba/yerba-api/internal/events"
	"github.com/yerba/yerba-api/internal/inference"
	"github.com/yerba/yerba-api/internal/platform/memory"
	"github.com/yerba/yerba-api/internal/service"
	"github.com/yerba/yerba-api/internal/service/auth"
	"github.com/yerba/yerba-api/internal/space"
	"github.com/yerba/yerba-api/internal/task"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeIngester struct{}

func (fakeIngester) Learn(ctx context.Context, req inference.LearnRequest) error { return nil }

type fakeAnswerer struct {
	mu    sync.Mutex
	asked []string
}

func (a *fakeAnswerer) Ask(ctx context.Context, req inference.AskRequest) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.asked = append(a.asked, req.Question)
	return "It is a tea.", nil
}

// apiEnv serves the handlers through a chi router over the in-memory
// store. Bearer tokens are user UUIDs.
type apiEnv struct {
	db         *memory.DB
	bus        *events.Bus
	dispatcher *task.Dispatcher
	spaces     service.SpaceService
	router     chi.Router
	owner      uuid.UUID
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	logger := discardLogger()
	db := memory.New()

	layout, err := space.NewLayout(t.TempDir())
	require.NoError(t, err)

	bus := events.NewBus(256, logger)
	t.Cleanup(bus.Close)

	dispatcher := task.NewDispatcher(task.DispatcherConfig{Permits: 2, PruneFinished: true}, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = dispatcher.Wait(ctx)
		_ = dispatcher.Shutdown(ctx)
	})

	factory, err := task.NewFactory(db.Tasks(), db.Files(), db.Messages(), bus, fakeIngester{}, &fakeAnswerer{},
		task.KindsConfig{PollInterval: 10 * time.Millisecond, StableFor: 40 * time.Millisecond, HistoryWindow: 5},
		logger)
	require.NoError(t, err)

	spaces, err := service.NewSpaceService(db.Spaces(), layout, logger)
	require.NoError(t, err)
	files, err := service.NewFileService(db.Files(), factory, dispatcher, logger)
	require.NoError(t, err)
	messages, err := service.NewMessageService(db.Messages(), factory, dispatcher, bus, logger)
	require.NoError(t, err)
	tasks, err := service.NewTaskService(db.Tasks(), dispatcher, logger)
	require.NoError(t, err)

	jwt := &auth.MockJWTService{
		ValidateTokenFunc: func(ctx context.Context, token string) (*auth.Claims, error) {
			id, err := uuid.Parse(token)
			if err != nil {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Claims{UserID: id}, nil
		},
	}

	spaceHandler := NewSpaceHandler(spaces, logger)
	fileHandler := NewFileHandler(spaces, files, 1<<20, logger)
	messageHandler := NewMessageHandler(spaces, messages, logger)
	taskHandler := NewTaskHandler(spaces, tasks, logger)
	updatesHandler := NewUpdatesHandler(spaces, bus, func(*http.Request) bool { return true }, logger)

	r := chi.NewRouter()
	r.Use(middleware.NewTraceMiddleware(logger))
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(jwt).Authenticate)
		r.Post("/api/spaces", spaceHandler.CreateSpace)
		r.Get("/api/spaces", spaceHandler.ListSpaces)
		r.Route("/api/spaces/{spaceID}", func(r chi.Router) {
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

	return &apiEnv{
		db:         db,
		bus:        bus,
		dispatcher: dispatcher,
		spaces:     spaces,
		router:     r,
		owner:      uuid.New(),
	}
}

// do sends a request as user and returns the recorder. A non-string body
// is JSON encoded.
func (e *apiEnv) do(t *testing.T, user uuid.UUID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if user != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+user.String())
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// createSpace creates a space for the env owner and returns its id.
func (e *apiEnv) createSpace(t *testing.T) uuid.UUID {
	t.Helper()

	rec := e.do(t, e.owner, http.MethodPost, "/api/spaces", CreateSpaceRequest{Name: "tea notes"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, rec, &body)
	return body.ID
}

func (e *apiEnv) wait(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.dispatcher.Wait(ctx))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
