package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/space"
)

// Task kind tags persisted on every task row.
const (
	KindUploadFile = "upload_file"
	KindLearnFile  = "learn_file"
	KindReply      = "reply"
)

// Common errors
var (
	ErrNilHandle     = errors.New("task handle cannot be nil")
	ErrNilDefinition = errors.New("task definition cannot be nil")
	ErrNilTaskStore  = errors.New("task store cannot be nil")
	ErrNilFileStore  = errors.New("file store cannot be nil")
	ErrNilMsgStore   = errors.New("message store cannot be nil")
	ErrNilPublisher  = errors.New("event publisher cannot be nil")
	ErrNilIngester   = errors.New("ingester cannot be nil")
	ErrNilAnswerer   = errors.New("answerer cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")

	// ErrSetupFailed wraps every error returned by a setup phase.
	ErrSetupFailed = errors.New("task setup failed")

	// ErrAlreadyFinished is returned when finish is invoked a second time.
	ErrAlreadyFinished = errors.New("task already finished")

	// ErrOutOfOrder is returned when a phase is invoked before the one
	// preceding it completed.
	ErrOutOfOrder = errors.New("task phase invoked out of order")
)

// Handle is the type-erased unit the Dispatcher schedules. Phases are
// invoked strictly in the order Setup, Run, Finish, each at most once.
type Handle interface {
	// ID returns the task's unique identifier, assigned at construction.
	ID() uuid.UUID

	// Kind returns the task kind tag.
	Kind() string

	// Hash returns the dedup key derived from kind and input.
	Hash() string

	// Setup persists the task row and establishes preconditions. It runs
	// synchronously inside Dispatch and is never throttled.
	Setup(ctx context.Context, sp space.Space) error

	// Run performs the primary work. It runs behind the concurrency gate.
	Run(ctx context.Context, sp space.Space) error

	// Finish records the final status. It always runs once Run resolved.
	Finish(ctx context.Context, sp space.Space, status domain.TaskStatus) error
}

// Definition is implemented by every concrete task kind. S is the kind's
// scratch state: it lives from Setup to Finish and is never persisted.
type Definition[S any] interface {
	// Kind returns the kind tag.
	Kind() string

	// Input returns the immutable, JSON-serializable submission parameters.
	Input() any

	Setup(ctx context.Context, sp space.Space, id uuid.UUID, state *S) error
	Run(ctx context.Context, sp space.Space, id uuid.UUID, state *S) error
	Finish(ctx context.Context, sp space.Space, id uuid.UUID, state *S, status domain.TaskStatus) error
}

// Phase is the lifecycle position of one task instance.
type Phase int32

const (
	PhaseCreated Phase = iota
	PhaseSettingUp
	PhaseQueued
	PhaseRunning
	PhaseFinished
)

// String returns the snake_case name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseSettingUp:
		return "setting_up"
	case PhaseQueued:
		return "queued"
	case PhaseRunning:
		return "running"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}
