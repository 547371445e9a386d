package task

import (
	"context"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/space"
)

// MockHandle is a configurable Handle for testing the Dispatcher
type MockHandle struct {
	TaskID   uuid.UUID
	TaskKind string
	SetupFn  func(ctx context.Context, sp space.Space) error
	RunFn    func(ctx context.Context, sp space.Space) error
	FinishFn func(ctx context.Context, sp space.Space, status domain.TaskStatus) error
}

// NewMockHandle creates a MockHandle whose phases all succeed
func NewMockHandle(kind string) *MockHandle {
	return &MockHandle{
		TaskID:   uuid.New(),
		TaskKind: kind,
		SetupFn:  func(ctx context.Context, sp space.Space) error { return nil },
		RunFn:    func(ctx context.Context, sp space.Space) error { return nil },
		FinishFn: func(ctx context.Context, sp space.Space, status domain.TaskStatus) error { return nil },
	}
}

// ID returns the task's unique identifier
func (h *MockHandle) ID() uuid.UUID { return h.TaskID }

// Kind returns the task kind tag
func (h *MockHandle) Kind() string { return h.TaskKind }

// Hash returns a fixed dedup key
func (h *MockHandle) Hash() string { return "mock:" + h.TaskID.String() }

// Setup calls SetupFn
func (h *MockHandle) Setup(ctx context.Context, sp space.Space) error { return h.SetupFn(ctx, sp) }

// Run calls RunFn
func (h *MockHandle) Run(ctx context.Context, sp space.Space) error { return h.RunFn(ctx, sp) }

// Finish calls FinishFn
func (h *MockHandle) Finish(ctx context.Context, sp space.Space, status domain.TaskStatus) error {
	return h.FinishFn(ctx, sp, status)
}
