package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/events"
	"github.com/yerba/yerba-api/internal/space"
	"github.com/yerba/yerba-api/internal/store"
)

// Recorder bundles what the lifecycle wrapper needs to persist task rows
// and announce the records associated with them.
type Recorder struct {
	Tasks    store.TaskStore
	Files    store.FileStore
	Messages store.MessageStore
	Events   events.Publisher
	Logger   *slog.Logger
}

// Validate reports the first missing dependency.
func (r Recorder) Validate() error {
	switch {
	case r.Tasks == nil:
		return ErrNilTaskStore
	case r.Files == nil:
		return ErrNilFileStore
	case r.Messages == nil:
		return ErrNilMsgStore
	case r.Events == nil:
		return ErrNilPublisher
	case r.Logger == nil:
		return ErrNilLogger
	}
	return nil
}

// Instance binds a Definition to an identity, a dedup hash and its scratch
// state, and exposes it as a Handle.
//
// Around the kind's own phases the wrapper creates the task row (status
// Pending) before Setup, writes the final status after Finish, and after
// every phase publishes the task row plus the file and message it links to.
type Instance[S any] struct {
	id    uuid.UUID
	def   Definition[S]
	hash  string
	state S
	rec   Recorder

	phase    atomic.Int32
	finished atomic.Bool

	mu     sync.Mutex
	status domain.TaskStatus
}

var _ Handle = (*Instance[struct{}])(nil)

// NewInstance wraps def. The task id is assigned here so it is known
// before the row exists.
func NewInstance[S any](def Definition[S], rec Recorder) (*Instance[S], error) {
	if def == nil {
		return nil, ErrNilDefinition
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	hash, err := Hash(def.Kind(), def.Input())
	if err != nil {
		return nil, err
	}

	inst := &Instance[S]{
		id:   uuid.New(),
		def:  def,
		hash: hash,
		rec:  rec,
	}
	inst.rec.Logger = rec.Logger.With("task_id", inst.id, "task_kind", def.Kind())
	return inst, nil
}

// ID returns the task's unique identifier.
func (i *Instance[S]) ID() uuid.UUID { return i.id }

// Kind returns the kind tag of the wrapped definition.
func (i *Instance[S]) Kind() string { return i.def.Kind() }

// Hash returns the dedup key.
func (i *Instance[S]) Hash() string { return i.hash }

// Phase returns the current lifecycle position.
func (i *Instance[S]) Phase() Phase { return Phase(i.phase.Load()) }

// Status returns the recorded outcome; Pending until Finish wrote it.
func (i *Instance[S]) Status() domain.TaskStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

// State exposes the scratch state for inspection after the task finished.
func (i *Instance[S]) State() *S { return &i.state }

// Setup creates the pending task row, runs the kind's setup and publishes
// the resulting records.
func (i *Instance[S]) Setup(ctx context.Context, sp space.Space) error {
	if !i.phase.CompareAndSwap(int32(PhaseCreated), int32(PhaseSettingUp)) {
		return fmt.Errorf("%w: setup in phase %s", ErrOutOfOrder, i.Phase())
	}
	log := i.rec.Logger.With("space_id", sp.ID)

	now := time.Now().UTC()
	row := &domain.Task{
		ID:        i.id,
		SpaceID:   sp.ID,
		Kind:      i.Kind(),
		Hash:      i.hash,
		Status:    domain.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := i.rec.Tasks.Create(ctx, row); err != nil {
		return fmt.Errorf("failed to create task row: %w", err)
	}
	log.Debug("created task row")

	if err := i.def.Setup(ctx, sp, i.id, &i.state); err != nil {
		return err
	}

	if err := i.announce(ctx, nil); err != nil {
		return err
	}

	i.phase.Store(int32(PhaseQueued))
	return nil
}

// Run executes the kind's primary work and republishes the task records.
func (i *Instance[S]) Run(ctx context.Context, sp space.Space) error {
	if !i.phase.CompareAndSwap(int32(PhaseQueued), int32(PhaseRunning)) {
		return fmt.Errorf("%w: run in phase %s", ErrOutOfOrder, i.Phase())
	}

	if err := i.def.Run(ctx, sp, i.id, &i.state); err != nil {
		return err
	}
	return i.announce(ctx, nil)
}

// Finish runs the kind's finish, then writes status to the task row and
// publishes it. When the kind's finish fails the row keeps its previous
// status.
func (i *Instance[S]) Finish(ctx context.Context, sp space.Space, status domain.TaskStatus) error {
	if !i.finished.CompareAndSwap(false, true) {
		return ErrAlreadyFinished
	}
	defer i.phase.Store(int32(PhaseFinished))

	if err := i.def.Finish(ctx, sp, i.id, &i.state, status); err != nil {
		return fmt.Errorf("%s finish: %w", i.Kind(), err)
	}

	row, err := i.rec.Tasks.UpdateStatus(ctx, i.id, status)
	if err != nil {
		return fmt.Errorf("failed to update task status to %s: %w", status, err)
	}

	i.mu.Lock()
	i.status = status
	i.mu.Unlock()

	return i.announce(ctx, row)
}

// announce publishes the linked file, the linked message and the task row,
// in that order. row is loaded from the store when nil.
func (i *Instance[S]) announce(ctx context.Context, row *domain.Task) error {
	if row == nil {
		var err error
		row, err = i.rec.Tasks.GetByID(ctx, i.id)
		if err != nil {
			return fmt.Errorf("failed to find task: %w", err)
		}
	}

	if row.FileID != nil {
		file, err := i.rec.Files.GetByID(ctx, *row.FileID)
		if err != nil {
			return fmt.Errorf("failed to find file associated with task: %w", err)
		}
		i.rec.Events.Publish(ctx, events.FileUpdated(file))
	}

	if row.MessageID != nil {
		msg, err := i.rec.Messages.GetByID(ctx, *row.MessageID)
		if err != nil {
			return fmt.Errorf("failed to find message associated with task: %w", err)
		}
		i.rec.Events.Publish(ctx, events.MessageUpdated(msg))
	}

	i.rec.Events.Publish(ctx, events.TaskUpdated(row))
	return nil
}
