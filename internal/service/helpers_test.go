package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/events"
	"github.com/yerba/yerba-api/internal/inference"
	"github.com/yerba/yerba-api/internal/platform/memory"
	"github.com/yerba/yerba-api/internal/space"
	"github.com/yerba/yerba-api/internal/task"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubIngester struct {
	err error
}

func (s *stubIngester) Learn(ctx context.Context, req inference.LearnRequest) error {
	return s.err
}

type stubAnswerer struct {
	mu     sync.Mutex
	answer string
	asked  []string
}

func (s *stubAnswerer) Ask(ctx context.Context, req inference.AskRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, req.Question)
	return s.answer, nil
}

// testEnv wires the services over the in-memory store and a real
// dispatcher with fast upload timings.
type testEnv struct {
	db         *memory.DB
	layout     space.Layout
	bus        *events.Bus
	dispatcher *task.Dispatcher
	ingester   *stubIngester
	answerer   *stubAnswerer
	owner      uuid.UUID

	spaces   SpaceService
	files    FileService
	messages MessageService
	tasks    TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := discardLogger()
	db := memory.New()

	layout, err := space.NewLayout(t.TempDir())
	require.NoError(t, err)

	bus := events.NewBus(256, logger)
	t.Cleanup(bus.Close)

	dispatcher := task.NewDispatcher(task.DispatcherConfig{Permits: 4, PruneFinished: true}, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = dispatcher.Wait(ctx)
		_ = dispatcher.Shutdown(ctx)
	})

	env := &testEnv{
		db:         db,
		layout:     layout,
		bus:        bus,
		dispatcher: dispatcher,
		ingester:   &stubIngester{},
		answerer:   &stubAnswerer{answer: "An answer."},
		owner:      uuid.New(),
	}

	factory, err := task.NewFactory(db.Tasks(), db.Files(), db.Messages(), bus, env.ingester, env.answerer,
		task.KindsConfig{PollInterval: 10 * time.Millisecond, StableFor: 50 * time.Millisecond, HistoryWindow: 10},
		logger)
	require.NoError(t, err)

	env.spaces, err = NewSpaceService(db.Spaces(), layout, logger)
	require.NoError(t, err)
	env.files, err = NewFileService(db.Files(), factory, dispatcher, logger)
	require.NoError(t, err)
	env.messages, err = NewMessageService(db.Messages(), factory, dispatcher, bus, logger)
	require.NoError(t, err)
	env.tasks, err = NewTaskService(db.Tasks(), dispatcher, logger)
	require.NoError(t, err)

	return env
}

// newSpace creates a space owned by env.owner and returns its handle.
func (e *testEnv) newSpace(t *testing.T) space.Space {
	t.Helper()

	created, err := e.spaces.Create(context.Background(), e.owner, "research")
	require.NoError(t, err)

	sp, err := e.spaces.Resolve(context.Background(), e.owner, created.ID)
	require.NoError(t, err)
	return sp
}

func (e *testEnv) wait(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.dispatcher.Wait(ctx))
}

func (e *testEnv) taskRow(t *testing.T, id uuid.UUID) *domain.Task {
	t.Helper()

	row, err := e.db.Tasks().GetByID(context.Background(), id)
	require.NoError(t, err)
	return row
}
