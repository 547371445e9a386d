package postgres

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/store"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	taskCols    = []string{"id", "space_id", "kind", "hash", "status", "file_id", "message_id", "created_at", "updated_at"}
	fileCols    = []string{
		"id", "space_id", "path", "name", "extension", "supported", "learned", "size", "created_at", "updated_at",
	}
	messageCols = []string{
		"id", "space_id", "text", "is_user_message", "response_status",
		"user_message_id", "response_id", "created_at", "finalized_at",
	}
)

func TestPostgresTaskStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now().UTC()
	spaceID := uuid.New()

	t.Run("create", func(t *testing.T) {
		db, mock := newMock(t)
		tasks := NewPostgresTaskStore(db, discardLogger())

		task, err := domain.NewTask(spaceID, "upload_file", "42")
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO tasks`).
			WithArgs(task.ID, spaceID, "upload_file", "42", sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), task.CreatedAt, task.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, tasks.Create(ctx, task))
	})

	t.Run("create rejects invalid row", func(t *testing.T) {
		db, _ := newMock(t)
		tasks := NewPostgresTaskStore(db, discardLogger())

		err := tasks.Create(ctx, &domain.Task{})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("get missing", func(t *testing.T) {
		db, mock := newMock(t)
		tasks := NewPostgresTaskStore(db, discardLogger())

		id := uuid.New()
		mock.ExpectQuery(`SELECT .+ FROM tasks WHERE id = \$1`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(taskCols))

		_, err := tasks.GetByID(ctx, id)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("update status returns row", func(t *testing.T) {
		db, mock := newMock(t)
		tasks := NewPostgresTaskStore(db, discardLogger())

		id, fileID := uuid.New(), uuid.New()
		mock.ExpectQuery(`UPDATE tasks SET status = \$1, updated_at = \$2`).
			WithArgs(domain.TaskStatusSucceeded, sqlmock.AnyArg(), id).
			WillReturnRows(sqlmock.NewRows(taskCols).AddRow(
				id.String(), spaceID.String(), "learn_file", "7", int64(2),
				fileID.String(), nil, now, now,
			))

		row, err := tasks.UpdateStatus(ctx, id, domain.TaskStatusSucceeded)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusSucceeded, row.Status)
		require.NotNil(t, row.FileID)
		assert.Equal(t, fileID, *row.FileID)
		assert.Nil(t, row.MessageID)
	})

	t.Run("update status rejects unknown status", func(t *testing.T) {
		db, _ := newMock(t)
		tasks := NewPostgresTaskStore(db, discardLogger())

		_, err := tasks.UpdateStatus(ctx, uuid.New(), domain.TaskStatus(9))
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("link missing file", func(t *testing.T) {
		db, mock := newMock(t)
		tasks := NewPostgresTaskStore(db, discardLogger())

		id, fileID := uuid.New(), uuid.New()
		mock.ExpectQuery(`UPDATE tasks SET file_id = \$1`).
			WithArgs(fileID, sqlmock.AnyArg(), id).
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "tasks_file_id_fkey"})

		_, err := tasks.LinkFile(ctx, id, fileID)
		assert.ErrorIs(t, err, store.ErrFileNotFound)
	})

	t.Run("list by no ids skips the query", func(t *testing.T) {
		db, _ := newMock(t)
		tasks := NewPostgresTaskStore(db, discardLogger())

		rows, err := tasks.ListByIDs(ctx, spaceID, nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("list by space with limit", func(t *testing.T) {
		db, mock := newMock(t)
		tasks := NewPostgresTaskStore(db, discardLogger())

		mock.ExpectQuery(`SELECT .+ FROM tasks\s+WHERE space_id = \$1\s+ORDER BY created_at DESC\s+LIMIT \$2`).
			WithArgs(spaceID, 5).
			WillReturnRows(sqlmock.NewRows(taskCols).
				AddRow(uuid.NewString(), spaceID.String(), "reply", "1", int64(0), nil, uuid.NewString(), now, now).
				AddRow(uuid.NewString(), spaceID.String(), "reply", "1", int64(1), nil, uuid.NewString(), now, now))

		rows, err := tasks.ListBySpace(ctx, spaceID, 5)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, rows[0].Hash, rows[1].Hash)
		assert.NotEqual(t, rows[0].ID, rows[1].ID)
	})
}

func TestPostgresFileStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("duplicate path", func(t *testing.T) {
		db, mock := newMock(t)
		files := NewPostgresFileStore(db, discardLogger())

		file, err := domain.NewFile(uuid.New(), "a/b.md")
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO files`).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		assert.ErrorIs(t, files.Create(ctx, file), store.ErrDuplicate)
	})

	t.Run("unknown space", func(t *testing.T) {
		db, mock := newMock(t)
		files := NewPostgresFileStore(db, discardLogger())

		file, err := domain.NewFile(uuid.New(), "a.md")
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO files`).
			WillReturnError(&pgconn.PgError{Code: "23503"})

		assert.ErrorIs(t, files.Create(ctx, file), store.ErrSpaceNotFound)
	})

	t.Run("update size of missing file", func(t *testing.T) {
		db, mock := newMock(t)
		files := NewPostgresFileStore(db, discardLogger())

		id := uuid.New()
		mock.ExpectQuery(`UPDATE files SET size = \$1`).
			WithArgs(int64(10), sqlmock.AnyArg(), id).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := files.UpdateSize(ctx, id, 10)
		assert.ErrorIs(t, err, store.ErrFileNotFound)
	})

	t.Run("get by path", func(t *testing.T) {
		db, mock := newMock(t)
		files := NewPostgresFileStore(db, discardLogger())

		spaceID, id := uuid.New(), uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery(`SELECT .+ FROM files WHERE space_id = \$1 AND path = \$2`).
			WithArgs(spaceID, "a/b.md").
			WillReturnRows(sqlmock.NewRows(fileCols).
				AddRow(id, spaceID, "a/b.md", "b", "md", true, true, int64(7), now, now))
		mock.ExpectQuery(`SELECT .+ FROM files WHERE space_id = \$1 AND path = \$2`).
			WithArgs(spaceID, "missing.md").
			WillReturnError(sql.ErrNoRows)

		file, err := files.GetByPath(ctx, spaceID, "a/b.md")
		require.NoError(t, err)
		assert.Equal(t, id, file.ID)

		_, err = files.GetByPath(ctx, spaceID, "missing.md")
		assert.ErrorIs(t, err, store.ErrFileNotFound)
	})

	t.Run("reset content", func(t *testing.T) {
		db, mock := newMock(t)
		files := NewPostgresFileStore(db, discardLogger())

		spaceID, id := uuid.New(), uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery(`UPDATE files SET size = 0, learned = FALSE`).
			WithArgs(sqlmock.AnyArg(), id).
			WillReturnRows(sqlmock.NewRows(fileCols).
				AddRow(id, spaceID, "a/b.md", "b", "md", true, false, int64(0), now, now))

		file, err := files.ResetContent(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, file.Size)
		assert.False(t, file.Learned)
	})
}

func TestPostgresMessageStore_FinalizeExchange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now().UTC()
	spaceID, userID, responseID := uuid.New(), uuid.New(), uuid.New()

	t.Run("commits both updates", func(t *testing.T) {
		db, mock := newMock(t)
		messages := NewPostgresMessageStore(db, discardLogger())

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE messages SET text = \$1, response_status = \$2`).
			WithArgs("42", domain.ResponseStatusCompleted, sqlmock.AnyArg(), responseID).
			WillReturnRows(sqlmock.NewRows(messageCols).AddRow(
				responseID.String(), spaceID.String(), "42", false, int64(2),
				userID.String(), nil, now, now,
			))
		mock.ExpectQuery(`UPDATE messages SET response_status = \$1, finalized_at = \$2`).
			WithArgs(domain.ResponseStatusCompleted, sqlmock.AnyArg(), userID).
			WillReturnRows(sqlmock.NewRows(messageCols).AddRow(
				userID.String(), spaceID.String(), "question", true, int64(2),
				nil, responseID.String(), now, now,
			))
		mock.ExpectCommit()

		user, response, err := messages.FinalizeExchange(ctx, userID, responseID, "42", domain.ResponseStatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, domain.ResponseStatusCompleted, user.ResponseStatus)
		assert.Equal(t, "42", response.Text)
		require.NotNil(t, response.FinalizedAt)
		require.NotNil(t, user.ResponseID)
		assert.Equal(t, responseID, *user.ResponseID)
	})

	t.Run("rolls back when the user message is missing", func(t *testing.T) {
		db, mock := newMock(t)
		messages := NewPostgresMessageStore(db, discardLogger())

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE messages SET text = \$1`).
			WillReturnRows(sqlmock.NewRows(messageCols).AddRow(
				responseID.String(), spaceID.String(), "boom", false, int64(3),
				userID.String(), nil, now, now,
			))
		mock.ExpectQuery(`UPDATE messages SET response_status = \$1`).
			WillReturnRows(sqlmock.NewRows(messageCols))
		mock.ExpectRollback()

		_, _, err := messages.FinalizeExchange(ctx, userID, responseID, "boom", domain.ResponseStatusErrored)
		assert.ErrorIs(t, err, store.ErrMessageNotFound)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		db, _ := newMock(t)
		messages := NewPostgresMessageStore(db, discardLogger())

		_, _, err := messages.FinalizeExchange(ctx, userID, responseID, "", domain.ResponseStatusCompleted)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresMessageStore_CreateResponse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	user, err := domain.NewUserMessage(uuid.New(), "hi")
	require.NoError(t, err)
	response, err := domain.NewResponseMessage(user)
	require.NoError(t, err)

	db, mock := newMock(t)
	messages := NewPostgresMessageStore(db, discardLogger())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO messages`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE messages SET response_id = \$1 WHERE id = \$2`).
		WithArgs(response.ID, user.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, messages.CreateResponse(ctx, response))
}

func TestPostgresMessageStore_ListCompletedExchanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now().UTC()
	spaceID := uuid.New()

	db, mock := newMock(t)
	messages := NewPostgresMessageStore(db, discardLogger())

	cols := append(append([]string{}, messageCols...), "text")
	mock.ExpectQuery(`FROM messages u\s+JOIN messages r ON r.id = u.response_id`).
		WithArgs(spaceID, domain.ResponseStatusCompleted, 10).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			uuid.NewString(), spaceID.String(), "t3", true, int64(2),
			nil, uuid.NewString(), now, now, "a3",
		))

	exchanges, err := messages.ListCompletedExchanges(ctx, spaceID, 10)
	require.NoError(t, err)
	require.Len(t, exchanges, 1)
	assert.Equal(t, "t3", exchanges[0].UserMessage.Text)
	assert.Equal(t, "a3", exchanges[0].ResponseText)
}

func TestPostgresSpaceStore_GetByID(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	spaces := NewPostgresSpaceStore(db, discardLogger())

	id := uuid.New()
	mock.ExpectQuery(`FROM spaces`).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "name", "created_at", "updated_at"}))

	_, err := spaces.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, store.ErrSpaceNotFound)
}
