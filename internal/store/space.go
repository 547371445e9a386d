package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
)

// SpaceStore defines the interface for tenant spaces.
type SpaceStore interface {
	// Create inserts a new space.
	Create(ctx context.Context, space *domain.Space) error

	// GetByID retrieves a space by its unique ID.
	// Returns ErrSpaceNotFound if the space does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Space, error)

	// ListByOwner returns the spaces owned by ownerID, oldest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Space, error)
}
