package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/space"
	"github.com/yerba/yerba-api/internal/store"
)

// SpaceService manages tenant spaces.
type SpaceService interface {
	// Create stores a new space for ownerID and creates its directory.
	Create(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Space, error)

	// Get returns the space when ownerID owns it.
	Get(ctx context.Context, ownerID, spaceID uuid.UUID) (*domain.Space, error)

	// List returns the spaces of ownerID.
	List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Space, error)

	// Resolve checks ownership and returns the handle task phases run
	// against, creating the space directory if needed.
	Resolve(ctx context.Context, ownerID, spaceID uuid.UUID) (space.Space, error)
}

type spaceServiceImpl struct {
	spaces store.SpaceStore
	layout space.Layout
	logger *slog.Logger
}

// NewSpaceService creates a SpaceService.
func NewSpaceService(spaces store.SpaceStore, layout space.Layout, logger *slog.Logger) (SpaceService, error) {
	if spaces == nil {
		return nil, &ServiceError{Service: "space", Operation: "create_service", Message: "spaces cannot be nil"}
	}
	if layout.Root() == "" {
		return nil, &ServiceError{Service: "space", Operation: "create_service", Message: "layout has no root"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &spaceServiceImpl{
		spaces: spaces,
		layout: layout,
		logger: logger.With("component", "space_service"),
	}, nil
}

func (s *spaceServiceImpl) Create(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Space, error) {
	sp, err := domain.NewSpace(ownerID, name)
	if err != nil {
		return nil, NewServiceError("space", "create", "invalid space", err)
	}

	if err := s.spaces.Create(ctx, sp); err != nil {
		s.logger.ErrorContext(ctx, "failed to store space", "error", err, "owner_id", ownerID)
		return nil, NewServiceError("space", "create", "failed to save space", err)
	}

	if _, err := s.layout.Ensure(sp.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to create space directory", "error", err, "space_id", sp.ID)
		return nil, NewServiceError("space", "create", "failed to create space directory", err)
	}

	s.logger.InfoContext(ctx, "space created", "space_id", sp.ID, "owner_id", ownerID)
	return sp, nil
}

func (s *spaceServiceImpl) Get(ctx context.Context, ownerID, spaceID uuid.UUID) (*domain.Space, error) {
	sp, err := s.spaces.GetByID(ctx, spaceID)
	if err != nil {
		return nil, NewServiceError("space", "get", "failed to load space", err)
	}
	if sp.OwnerID != ownerID {
		s.logger.WarnContext(ctx, "space access denied",
			"space_id", spaceID,
			"owner_id", sp.OwnerID,
			"requester_id", ownerID)
		return nil, ErrNotOwned
	}
	return sp, nil
}

func (s *spaceServiceImpl) List(ctx context.Context, ownerID uuid.UUID) ([]*domain.Space, error) {
	spaces, err := s.spaces.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, NewServiceError("space", "list", "failed to list spaces", err)
	}
	return spaces, nil
}

func (s *spaceServiceImpl) Resolve(ctx context.Context, ownerID, spaceID uuid.UUID) (space.Space, error) {
	if _, err := s.Get(ctx, ownerID, spaceID); err != nil {
		return space.Space{}, err
	}

	sp, err := s.layout.Ensure(spaceID)
	if err != nil {
		return space.Space{}, NewServiceError("space", "resolve", "failed to prepare space directory", err)
	}
	return sp, nil
}
