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

const taskColumns = `id, space_id, kind, hash, status, file_id, message_id, created_at, updated_at`

// PostgresTaskStore implements store.TaskStore.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a task store on db.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{db: db, logger: logger.With("component", "task_store")}
}

// WithTx returns a store that runs its queries in tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) *PostgresTaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

func scanTask(row interface{ Scan(...any) error }) (*domain.Task, error) {
	var (
		t         domain.Task
		fileID    uuid.NullUUID
		messageID uuid.NullUUID
	)
	err := row.Scan(
		&t.ID, &t.SpaceID, &t.Kind, &t.Hash, &t.Status,
		&fileID, &messageID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if fileID.Valid {
		t.FileID = &fileID.UUID
	}
	if messageID.Valid {
		t.MessageID = &messageID.UUID
	}
	return &t, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// Create inserts a task row. Rows sharing a hash are allowed.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		task.ID, task.SpaceID, task.Kind, task.Hash, task.Status,
		nullUUID(task.FileID), nullUUID(task.MessageID), task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save task",
			slog.String("task_id", task.ID.String()),
			slog.String("task_kind", task.Kind),
			slog.Any("error", err))
		return MapError(err)
	}
	return nil
}

// GetByID returns the task with id.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, store.ErrTaskNotFound)
	}
	return task, nil
}

// UpdateStatus writes status and returns the updated row.
func (s *PostgresTaskStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
) (*domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidTaskStatus)
	}
	return s.updateReturning(ctx, id, `status = $1`, status)
}

// LinkFile associates the task with a file.
func (s *PostgresTaskStore) LinkFile(ctx context.Context, id, fileID uuid.UUID) (*domain.Task, error) {
	task, err := s.updateReturning(ctx, id, `file_id = $1`, fileID)
	if err != nil && IsForeignKeyViolation(err) {
		return nil, fmt.Errorf("%w: %w", store.ErrFileNotFound, err)
	}
	return task, err
}

// LinkMessage associates the task with a message.
func (s *PostgresTaskStore) LinkMessage(ctx context.Context, id, messageID uuid.UUID) (*domain.Task, error) {
	task, err := s.updateReturning(ctx, id, `message_id = $1`, messageID)
	if err != nil && IsForeignKeyViolation(err) {
		return nil, fmt.Errorf("%w: %w", store.ErrMessageNotFound, err)
	}
	return task, err
}

// updateReturning sets one column, given as "<column> = $1", bumps
// updated_at and returns the row.
func (s *PostgresTaskStore) updateReturning(
	ctx context.Context,
	id uuid.UUID,
	assignment string,
	value any,
) (*domain.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, `
		UPDATE tasks SET `+assignment+`, updated_at = $2
		WHERE id = $3
		RETURNING `+taskColumns,
		value, time.Now().UTC(), id,
	))
	if err != nil {
		if IsForeignKeyViolation(err) {
			return nil, err
		}
		logger.FromContextOrDefault(ctx, s.logger).Debug("task update failed",
			slog.String("task_id", id.String()), slog.Any("error", err))
		return nil, notFoundOr(err, store.ErrTaskNotFound)
	}
	return task, nil
}

// ListByIDs returns the rows among ids that belong to spaceID, newest first.
func (s *PostgresTaskStore) ListByIDs(
	ctx context.Context,
	spaceID uuid.UUID,
	ids []uuid.UUID,
) ([]*domain.Task, error) {
	if len(ids) == 0 {
		return []*domain.Task{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	return s.list(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE space_id = $1 AND id = ANY($2::uuid[])
		ORDER BY created_at DESC`, spaceID, keys)
}

// ListBySpace returns up to limit rows of a space, newest first. A
// non-positive limit returns every row.
func (s *PostgresTaskStore) ListBySpace(
	ctx context.Context,
	spaceID uuid.UUID,
	limit int,
) ([]*domain.Task, error) {
	if limit <= 0 {
		return s.list(ctx, `
			SELECT `+taskColumns+` FROM tasks
			WHERE space_id = $1
			ORDER BY created_at DESC`, spaceID)
	}
	return s.list(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE space_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, spaceID, limit)
}

func (s *PostgresTaskStore) list(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.Any("error", err))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.Any("error", err))
		}
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}
