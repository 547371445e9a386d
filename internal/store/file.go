package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
)

// FileStore defines the interface for uploaded file records.
type FileStore interface {
	// Create inserts a new file record.
	Create(ctx context.Context, file *domain.File) error

	// GetByID retrieves a file by its unique ID.
	// Returns ErrFileNotFound if the file does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error)

	// GetByPath retrieves the file stored at path inside a space.
	// Returns ErrFileNotFound if no file has that path.
	GetByPath(ctx context.Context, spaceID uuid.UUID, path string) (*domain.File, error)

	// ResetContent zeroes the size and clears the learned flag of a file
	// whose bytes are being replaced by a new upload.
	ResetContent(ctx context.Context, id uuid.UUID) (*domain.File, error)

	// UpdateSize records the latest observed size of the file.
	UpdateSize(ctx context.Context, id uuid.UUID, size int64) (*domain.File, error)

	// MarkLearned sets the ingested flag.
	MarkLearned(ctx context.Context, id uuid.UUID) (*domain.File, error)

	// ListBySpace returns every file of a space ordered by path.
	ListBySpace(ctx context.Context, spaceID uuid.UUID) ([]*domain.File, error)
}
