package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the persisted outcome of a task. The ordinal encoding is
// stored as-is, so the order is fixed: Pending=0, Failed=1, Succeeded=2.
type TaskStatus int

const (
	TaskStatusPending TaskStatus = iota
	TaskStatusFailed
	TaskStatusSucceeded
)

// String returns the lowercase name of the status.
func (s TaskStatus) String() string {
	switch s {
	case TaskStatusPending:
		return "pending"
	case TaskStatusFailed:
		return "failed"
	case TaskStatusSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the defined statuses.
func (s TaskStatus) Valid() bool {
	return s >= TaskStatusPending && s <= TaskStatusSucceeded
}

// Common validation errors for Task
var (
	ErrEmptyTaskID       = invalid("task ID cannot be empty")
	ErrEmptyTaskSpaceID  = invalid("task space ID cannot be empty")
	ErrEmptyTaskKind     = invalid("task kind cannot be empty")
	ErrInvalidTaskStatus = invalid("invalid task status")
)

// Task is the persisted row for one dispatched unit of background work.
type Task struct {
	ID        uuid.UUID  `json:"id"`
	SpaceID   uuid.UUID  `json:"space_id"`
	Kind      string     `json:"kind"`
	Hash      string     `json:"hash"`
	Status    TaskStatus `json:"status"`
	FileID    *uuid.UUID `json:"file_id,omitempty"`
	MessageID *uuid.UUID `json:"message_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewTask creates a pending Task row with a fresh id.
func NewTask(spaceID uuid.UUID, kind, hash string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.New(),
		SpaceID:   spaceID,
		Kind:      kind,
		Hash:      hash,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.SpaceID == uuid.Nil {
		return ErrEmptyTaskSpaceID
	}
	if t.Kind == "" {
		return ErrEmptyTaskKind
	}
	if !t.Status.Valid() {
		return ErrInvalidTaskStatus
	}
	return nil
}

// Finished reports whether the task has reached a terminal status.
func (t *Task) Finished() bool {
	return t.Status == TaskStatusFailed || t.Status == TaskStatusSucceeded
}
