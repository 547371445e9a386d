package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/platform/logger"
	"github.com/yerba/yerba-api/internal/space"
	"golang.org/x/sync/semaphore"
)

// DispatcherConfig holds configuration for the dispatcher
type DispatcherConfig struct {
	// Permits is the number of run phases allowed to execute at once.
	Permits int64

	// PruneFinished removes a task from the registry once its finish phase
	// returned, so List reports only tasks still in flight. When false the
	// registry keeps every task dispatched since start.
	PruneFinished bool
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Permits:       100,
		PruneFinished: true,
	}
}

// Dispatcher drives task handles through setup, run and finish.
//
// Setup runs on the caller's goroutine. Run executes on its own goroutine
// once a permit of the shared semaphore is acquired and releases it on
// return. Finish runs after that without a permit and always runs, with
// Succeeded when run returned nil and Failed otherwise. Run and finish get
// the caller's context values but never its cancellation.
type Dispatcher struct {
	sem    *semaphore.Weighted
	config DispatcherConfig
	logger *slog.Logger

	mu      sync.RWMutex
	running map[uuid.UUID]Handle

	wg sync.WaitGroup

	control chan chan struct{}
	stopped chan struct{}
}

// NewDispatcher creates a Dispatcher and starts its supervisory goroutine.
// Call Shutdown to stop it.
func NewDispatcher(config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if config.Permits <= 0 {
		config.Permits = DefaultDispatcherConfig().Permits
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sem:     semaphore.NewWeighted(config.Permits),
		config:  config,
		logger:  logger.With("component", "task_dispatcher"),
		running: make(map[uuid.UUID]Handle),
		control: make(chan chan struct{}),
		stopped: make(chan struct{}),
	}

	go d.supervise()
	d.logger.Debug("dispatcher initialized", "permits", config.Permits)
	return d
}

// Dispatch runs h's setup synchronously and, when it succeeds, schedules
// run and finish in the background. It returns the task id as soon as
// setup completed. A setup error is returned wrapped in ErrSetupFailed and
// the task is never scheduled.
func (d *Dispatcher) Dispatch(ctx context.Context, sp space.Space, h Handle) (uuid.UUID, error) {
	if h == nil {
		return uuid.Nil, ErrNilHandle
	}

	log := d.logger.With("task_id", h.ID(), "task_kind", h.Kind(), "space_id", sp.ID)

	if err := h.Setup(ctx, sp); err != nil {
		log.Warn("task setup failed", "error", err)
		return uuid.Nil, fmt.Errorf("%w: %w", ErrSetupFailed, err)
	}

	d.mu.Lock()
	d.running[h.ID()] = h
	d.mu.Unlock()

	d.wg.Add(1)
	go d.execute(logger.WithLogger(context.WithoutCancel(ctx), log), sp, h, log)

	log.Info("task dispatched")
	return h.ID(), nil
}

// List returns the ids of the tasks currently tracked by this dispatcher.
func (d *Dispatcher) List() []uuid.UUID {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(d.running))
	for id := range d.running {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown stops the supervisory goroutine and waits for it to
// acknowledge. In-flight tasks are not cancelled; use Wait to let them
// drain. Calling Shutdown again returns immediately.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	ack := make(chan struct{})

	select {
	case d.control <- ack:
	case <-d.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every dispatched task finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) supervise() {
	defer close(d.stopped)

	ack := <-d.control
	d.logger.Info("shutting down task dispatcher", "in_flight", len(d.List()))
	close(ack)
}

// execute is the background half of a dispatched task.
func (d *Dispatcher) execute(ctx context.Context, sp space.Space, h Handle, log *slog.Logger) {
	defer d.wg.Done()

	status := domain.TaskStatusFailed

	// The context never ends, so Acquire can only fail on a programming error.
	if err := d.sem.Acquire(ctx, 1); err != nil {
		log.Error("failed to acquire run permit", "error", err)
	} else {
		log.Debug("task acquired permit")
		err := d.runGuarded(ctx, sp, h)
		d.sem.Release(1)

		if err != nil {
			log.Warn("task run failed", "error", err)
		} else {
			status = domain.TaskStatusSucceeded
		}
	}

	if err := d.finishGuarded(ctx, sp, h, status); err != nil {
		log.Error("failed to finish task", "status", status.String(), "error", err)
	} else {
		log.Info("task finished", "status", status.String())
	}

	if d.config.PruneFinished {
		d.mu.Lock()
		delete(d.running, h.ID())
		d.mu.Unlock()
	}
}

// runGuarded converts a panic inside run into an ordinary run failure.
func (d *Dispatcher) runGuarded(ctx context.Context, sp space.Space, h Handle) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task run panicked: %v", p)
		}
	}()
	return h.Run(ctx, sp)
}

func (d *Dispatcher) finishGuarded(ctx context.Context, sp space.Space, h Handle, status domain.TaskStatus) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task finish panicked: %v", p)
		}
	}()
	return h.Finish(ctx, sp, status)
}
