package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/platform/logger"
	"github.com/yerba/yerba-api/internal/store"
)

const fileColumns = `id, space_id, path, name, extension, supported, learned, size, created_at, updated_at`

// PostgresFileStore implements store.FileStore.
type PostgresFileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.FileStore = (*PostgresFileStore)(nil)

// NewPostgresFileStore creates a file store on db.
func NewPostgresFileStore(db store.DBTX, logger *slog.Logger) *PostgresFileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFileStore{db: db, logger: logger.With("component", "file_store")}
}

// WithTx returns a store that runs its queries in tx.
func (s *PostgresFileStore) WithTx(tx *sql.Tx) *PostgresFileStore {
	return &PostgresFileStore{db: tx, logger: s.logger}
}

func scanFile(row interface{ Scan(...any) error }) (*domain.File, error) {
	var f domain.File
	err := row.Scan(
		&f.ID, &f.SpaceID, &f.Path, &f.Name, &f.Extension,
		&f.Supported, &f.Learned, &f.Size, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a file. A second file at the same path of a space is a
// duplicate.
func (s *PostgresFileStore) Create(ctx context.Context, file *domain.File) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := file.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		file.ID, file.SpaceID, file.Path, file.Name, file.Extension,
		file.Supported, file.Learned, file.Size, file.CreatedAt, file.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %w", store.ErrSpaceNotFound, err)
		}
		log.Warn("failed to create file", slog.String("file_id", file.ID.String()), slog.Any("error", err))
		return MapError(err)
	}
	return nil
}

// GetByID returns the file with id.
func (s *PostgresFileStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	file, err := scanFile(s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, store.ErrFileNotFound)
	}
	return file, nil
}

// GetByPath returns the file at path in space spaceID.
func (s *PostgresFileStore) GetByPath(ctx context.Context, spaceID uuid.UUID, path string) (*domain.File, error) {
	file, err := scanFile(s.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE space_id = $1 AND path = $2`, spaceID, path))
	if err != nil {
		return nil, notFoundOr(err, store.ErrFileNotFound)
	}
	return file, nil
}

// ResetContent clears size and learned for a replaced upload.
func (s *PostgresFileStore) ResetContent(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	file, err := scanFile(s.db.QueryRowContext(ctx, `
		UPDATE files SET size = 0, learned = FALSE, updated_at = $1
		WHERE id = $2
		RETURNING `+fileColumns,
		time.Now().UTC(), id,
	))
	if err != nil {
		return nil, notFoundOr(err, store.ErrFileNotFound)
	}
	return file, nil
}

// UpdateSize stores size and returns the updated file.
func (s *PostgresFileStore) UpdateSize(ctx context.Context, id uuid.UUID, size int64) (*domain.File, error) {
	file, err := scanFile(s.db.QueryRowContext(ctx, `
		UPDATE files SET size = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+fileColumns,
		size, time.Now().UTC(), id,
	))
	if err != nil {
		return nil, notFoundOr(err, store.ErrFileNotFound)
	}
	return file, nil
}

// MarkLearned flags the file as ingested.
func (s *PostgresFileStore) MarkLearned(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	file, err := scanFile(s.db.QueryRowContext(ctx, `
		UPDATE files SET learned = TRUE, updated_at = $1
		WHERE id = $2
		RETURNING `+fileColumns,
		time.Now().UTC(), id,
	))
	if err != nil {
		return nil, notFoundOr(err, store.ErrFileNotFound)
	}
	return file, nil
}

// ListBySpace returns the files of a space ordered by path.
func (s *PostgresFileStore) ListBySpace(ctx context.Context, spaceID uuid.UUID) ([]*domain.File, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE space_id = $1 ORDER BY path ASC`, spaceID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.Any("error", err))
		}
	}()

	files := []*domain.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating file rows: %w", err)
	}
	return files, nil
}
