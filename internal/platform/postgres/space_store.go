package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/platform/logger"
	"github.com/yerba/yerba-api/internal/store"
)

// PostgresSpaceStore implements store.SpaceStore.
type PostgresSpaceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.SpaceStore = (*PostgresSpaceStore)(nil)

// NewPostgresSpaceStore creates a space store on db. A nil logger falls
// back to slog.Default().
func NewPostgresSpaceStore(db store.DBTX, logger *slog.Logger) *PostgresSpaceStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSpaceStore{db: db, logger: logger.With("component", "space_store")}
}

// WithTx returns a store that runs its queries in tx.
func (s *PostgresSpaceStore) WithTx(tx *sql.Tx) *PostgresSpaceStore {
	return &PostgresSpaceStore{db: tx, logger: s.logger}
}

// Create inserts a space.
func (s *PostgresSpaceStore) Create(ctx context.Context, space *domain.Space) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := space.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spaces (id, owner_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		space.ID, space.OwnerID, space.Name, space.CreatedAt, space.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create space", slog.String("space_id", space.ID.String()), slog.Any("error", err))
		return MapError(err)
	}
	return nil
}

// GetByID returns the space with id.
func (s *PostgresSpaceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Space, error) {
	var space domain.Space
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM spaces
		WHERE id = $1`, id,
	).Scan(&space.ID, &space.OwnerID, &space.Name, &space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err, store.ErrSpaceNotFound)
	}
	return &space, nil
}

// ListByOwner returns the owner's spaces, oldest first.
func (s *PostgresSpaceStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Space, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, created_at, updated_at
		FROM spaces
		WHERE owner_id = $1
		ORDER BY created_at ASC`, ownerID,
	)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.Any("error", err))
		}
	}()

	spaces := []*domain.Space{}
	for rows.Next() {
		var space domain.Space
		if err := rows.Scan(&space.ID, &space.OwnerID, &space.Name, &space.CreatedAt, &space.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan space row: %w", err)
		}
		spaces = append(spaces, &space)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating space rows: %w", err)
	}
	return spaces, nil
}
