package task

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
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// recordingPublisher keeps every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

func (p *recordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

func (p *recordingPublisher) OfKind(kind events.Kind) []events.Event {
	var out []events.Event
	for _, e := range p.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type stubIngester struct {
	mu       sync.Mutex
	requests []inference.LearnRequest
	err      error
}

func (s *stubIngester) Learn(ctx context.Context, req inference.LearnRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.err
}

type stubAnswerer struct {
	mu       sync.Mutex
	requests []inference.AskRequest
	answer   string
	err      error
}

func (s *stubAnswerer) Ask(ctx context.Context, req inference.AskRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.answer, s.err
}

func (s *stubAnswerer) Requests() []inference.AskRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]inference.AskRequest(nil), s.requests...)
}

// testEnv wires a factory and dispatcher to an in-memory store rooted in a
// temporary spaces directory.
type testEnv struct {
	db         *memory.DB
	pub        *recordingPublisher
	ingester   *stubIngester
	answerer   *stubAnswerer
	factory    *Factory
	dispatcher *Dispatcher
	record     *domain.Space
	sp         space.Space
}

func newTestEnv(t *testing.T, kinds KindsConfig) *testEnv {
	t.Helper()

	logger := discardLogger()
	env := &testEnv{
		db:       memory.New(),
		pub:      &recordingPublisher{},
		ingester: &stubIngester{},
		answerer: &stubAnswerer{answer: "stub answer"},
	}

	record, err := domain.NewSpace(uuid.New(), "test space")
	require.NoError(t, err)
	require.NoError(t, env.db.Spaces().Create(context.Background(), record))
	env.record = record

	layout, err := space.NewLayout(t.TempDir())
	require.NoError(t, err)
	env.sp, err = layout.Ensure(record.ID)
	require.NoError(t, err)

	env.factory, err = NewFactory(
		env.db.Tasks(), env.db.Files(), env.db.Messages(),
		env.pub, env.ingester, env.answerer, kinds, logger,
	)
	require.NoError(t, err)

	env.dispatcher = NewDispatcher(DefaultDispatcherConfig(), logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = env.dispatcher.Wait(ctx)
		_ = env.dispatcher.Shutdown(ctx)
	})
	return env
}

func (env *testEnv) recorder() Recorder {
	return Recorder{
		Tasks:    env.db.Tasks(),
		Files:    env.db.Files(),
		Messages: env.db.Messages(),
		Events:   env.pub,
		Logger:   discardLogger(),
	}
}

// wait blocks until every dispatched task finished.
func (env *testEnv) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, env.dispatcher.Wait(ctx))
}

func (env *testEnv) taskRow(t *testing.T, id uuid.UUID) *domain.Task {
	t.Helper()
	row, err := env.db.Tasks().GetByID(context.Background(), id)
	require.NoError(t, err)
	return row
}
