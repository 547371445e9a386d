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

const messageColumns = `id, space_id, text, is_user_message, response_status, user_message_id, response_id, created_at, finalized_at`

// PostgresMessageStore implements store.MessageStore.
type PostgresMessageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.MessageStore = (*PostgresMessageStore)(nil)

// NewPostgresMessageStore creates a message store on db. Multi-row writes
// open their own transaction when db is a *sql.DB and join the caller's
// otherwise.
func NewPostgresMessageStore(db store.DBTX, logger *slog.Logger) *PostgresMessageStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMessageStore{db: db, logger: logger.With("component", "message_store")}
}

// WithTx returns a store that runs its queries in tx.
func (s *PostgresMessageStore) WithTx(tx *sql.Tx) *PostgresMessageStore {
	return &PostgresMessageStore{db: tx, logger: s.logger}
}

func scanMessage(row interface{ Scan(...any) error }) (*domain.Message, error) {
	var (
		m             domain.Message
		userMessageID uuid.NullUUID
		responseID    uuid.NullUUID
		finalizedAt   sql.NullTime
	)
	err := row.Scan(
		&m.ID, &m.SpaceID, &m.Text, &m.IsUserMessage, &m.ResponseStatus,
		&userMessageID, &responseID, &m.CreatedAt, &finalizedAt,
	)
	if err != nil {
		return nil, err
	}
	if userMessageID.Valid {
		m.UserMessageID = &userMessageID.UUID
	}
	if responseID.Valid {
		m.ResponseID = &responseID.UUID
	}
	if finalizedAt.Valid {
		t := finalizedAt.Time
		m.FinalizedAt = &t
	}
	return &m, nil
}

// inTx runs fn in a transaction of its own unless the store is already
// bound to one.
func (s *PostgresMessageStore) inTx(ctx context.Context, fn func(ctx context.Context, db store.DBTX) error) error {
	sqlDB, ok := s.db.(*sql.DB)
	if !ok {
		return fn(ctx, s.db)
	}
	return store.RunInTransaction(ctx, sqlDB, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, tx)
	})
}

func insertMessage(ctx context.Context, db store.DBTX, msg *domain.Message) error {
	var finalizedAt sql.NullTime
	if msg.FinalizedAt != nil {
		finalizedAt = sql.NullTime{Time: *msg.FinalizedAt, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.SpaceID, msg.Text, msg.IsUserMessage, msg.ResponseStatus,
		nullUUID(msg.UserMessageID), nullUUID(msg.ResponseID), msg.CreatedAt, finalizedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		return MapError(err)
	}
	return nil
}

// Create inserts a message.
func (s *PostgresMessageStore) Create(ctx context.Context, msg *domain.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if err := insertMessage(ctx, s.db, msg); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create message",
			slog.String("message_id", msg.ID.String()), slog.Any("error", err))
		return err
	}
	return nil
}

// CreateResponse inserts a response message and points its user message at
// it in one transaction.
func (s *PostgresMessageStore) CreateResponse(ctx context.Context, response *domain.Message) error {
	if err := response.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	return s.inTx(ctx, func(ctx context.Context, db store.DBTX) error {
		if err := insertMessage(ctx, db, response); err != nil {
			return err
		}

		result, err := db.ExecContext(ctx,
			`UPDATE messages SET response_id = $1 WHERE id = $2`,
			response.ID, *response.UserMessageID,
		)
		if err != nil {
			return MapError(err)
		}
		return CheckRowsAffected(result, store.ErrMessageNotFound)
	})
}

// GetByID returns the message with id.
func (s *PostgresMessageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	msg, err := scanMessage(s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, store.ErrMessageNotFound)
	}
	return msg, nil
}

// FinalizeExchange writes text into the response, sets status on both
// messages and stamps their finalization time in one transaction.
func (s *PostgresMessageStore) FinalizeExchange(
	ctx context.Context,
	userMessageID, responseID uuid.UUID,
	text string,
	status domain.ResponseStatus,
) (*domain.Message, *domain.Message, error) {
	if !status.Valid() {
		return nil, nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidResponseStatus)
	}
	if text == "" {
		return nil, nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyMessageText)
	}

	now := time.Now().UTC()
	var user, response *domain.Message

	err := s.inTx(ctx, func(ctx context.Context, db store.DBTX) error {
		var err error
		response, err = scanMessage(db.QueryRowContext(ctx, `
			UPDATE messages SET text = $1, response_status = $2, finalized_at = $3
			WHERE id = $4
			RETURNING `+messageColumns,
			text, status, now, responseID,
		))
		if err != nil {
			return notFoundOr(err, store.ErrMessageNotFound)
		}

		user, err = scanMessage(db.QueryRowContext(ctx, `
			UPDATE messages SET response_status = $1, finalized_at = $2
			WHERE id = $3
			RETURNING `+messageColumns,
			status, now, userMessageID,
		))
		if err != nil {
			return notFoundOr(err, store.ErrMessageNotFound)
		}
		return nil
	})
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to finalize exchange",
			slog.String("message_id", userMessageID.String()),
			slog.String("response_id", responseID.String()),
			slog.Any("error", err))
		return nil, nil, err
	}
	return user, response, nil
}

// ListBySpace returns up to limit messages created before the cursor,
// newest first. A zero cursor means no bound and a non-positive limit
// returns every message.
func (s *PostgresMessageStore) ListBySpace(
	ctx context.Context,
	spaceID uuid.UUID,
	before time.Time,
	limit int,
) ([]*domain.Message, error) {
	var cursor sql.NullTime
	if !before.IsZero() {
		cursor = sql.NullTime{Time: before, Valid: true}
	}
	var rowLimit sql.NullInt64
	if limit > 0 {
		rowLimit = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	log := logger.FromContextOrDefault(ctx, s.logger)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE space_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3`, spaceID, cursor, rowLimit,
	)
	if err != nil {
		log.Error("failed to query messages", slog.Any("error", err))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.Any("error", err))
		}
	}()

	msgs := []*domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return msgs, nil
}

// ListCompletedExchanges returns up to limit user messages whose response
// completed, newest first, each with its response text.
func (s *PostgresMessageStore) ListCompletedExchanges(
	ctx context.Context,
	spaceID uuid.UUID,
	limit int,
) ([]domain.Exchange, error) {
	if limit <= 0 {
		return []domain.Exchange{}, nil
	}

	log := logger.FromContextOrDefault(ctx, s.logger)
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.space_id, u.text, u.is_user_message, u.response_status,
		       u.user_message_id, u.response_id, u.created_at, u.finalized_at,
		       r.text
		FROM messages u
		JOIN messages r ON r.id = u.response_id
		WHERE u.space_id = $1 AND u.is_user_message AND u.response_status = $2
		ORDER BY u.created_at DESC
		LIMIT $3`, spaceID, domain.ResponseStatusCompleted, limit,
	)
	if err != nil {
		log.Error("failed to query chat history", slog.Any("error", err))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.Any("error", err))
		}
	}()

	exchanges := []domain.Exchange{}
	for rows.Next() {
		var responseText string
		msg, err := scanMessage(scanWithExtra{rows: rows, extra: &responseText})
		if err != nil {
			return nil, fmt.Errorf("failed to scan exchange row: %w", err)
		}
		exchanges = append(exchanges, domain.Exchange{UserMessage: msg, ResponseText: responseText})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchange rows: %w", err)
	}
	return exchanges, nil
}

// scanWithExtra appends one destination to every Scan call.
type scanWithExtra struct {
	rows  *sql.Rows
	extra any
}

func (s scanWithExtra) Scan(dest ...any) error {
	return s.rows.Scan(append(dest, s.extra)...)
}
