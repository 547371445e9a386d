package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/store"
)

// SpaceStore implements store.SpaceStore.
type SpaceStore struct {
	db *DB
}

var _ store.SpaceStore = (*SpaceStore)(nil)

// Create inserts a space.
func (s *SpaceStore) Create(ctx context.Context, space *domain.Space) error {
	if err := space.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.spaces[space.ID]; ok {
		return store.ErrDuplicate
	}
	s.db.spaces[space.ID] = *space
	return nil
}

// GetByID returns the space with id.
func (s *SpaceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Space, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	space, ok := s.db.spaces[id]
	if !ok {
		return nil, store.ErrSpaceNotFound
	}
	return copySpace(space), nil
}

// ListByOwner returns the owner's spaces, oldest first.
func (s *SpaceStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Space, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	spaces := make([]*domain.Space, 0)
	for _, space := range s.db.spaces {
		if space.OwnerID == ownerID {
			spaces = append(spaces, copySpace(space))
		}
	}
	sort.Slice(spaces, func(i, j int) bool { return spaces[i].CreatedAt.Before(spaces[j].CreatedAt) })
	return spaces, nil
}
