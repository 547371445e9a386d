package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
)

// TaskStore persists one row per dispatched task.
// Every mutating method returns the full updated record so callers can
// publish it without a second read.
type TaskStore interface {
	// Create inserts a new task row. The row is validated first.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// UpdateStatus overwrites the status and modification time.
	// Returns ErrTaskNotFound if the task does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error)

	// LinkFile associates the task with a file.
	LinkFile(ctx context.Context, id, fileID uuid.UUID) (*domain.Task, error)

	// LinkMessage associates the task with a message.
	LinkMessage(ctx context.Context, id, messageID uuid.UUID) (*domain.Task, error)

	// ListByIDs returns the tasks of spaceID whose ids are in ids.
	// Unknown ids are skipped. The result is ordered by creation time.
	ListByIDs(ctx context.Context, spaceID uuid.UUID, ids []uuid.UUID) ([]*domain.Task, error)

	// ListBySpace returns up to limit tasks of a space, newest first.
	ListBySpace(ctx context.Context, spaceID uuid.UUID, limit int) ([]*domain.Task, error)
}
