package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/store"
)

func newSpace(t *testing.T, db *DB) *domain.Space {
	t.Helper()
	space, err := domain.NewSpace(uuid.New(), "notes")
	require.NoError(t, err)
	require.NoError(t, db.Spaces().Create(context.Background(), space))
	return space
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()
	space := newSpace(t, db)
	files := db.Files()

	file, err := domain.NewFile(space.ID, "docs/report.pdf")
	require.NoError(t, err)
	require.NoError(t, files.Create(ctx, file))

	t.Run("duplicate path", func(t *testing.T) {
		dup, err := domain.NewFile(space.ID, "docs/report.pdf")
		require.NoError(t, err)
		assert.ErrorIs(t, files.Create(ctx, dup), store.ErrDuplicate)
	})

	t.Run("unknown space", func(t *testing.T) {
		orphan, err := domain.NewFile(uuid.New(), "a.txt")
		require.NoError(t, err)
		assert.ErrorIs(t, files.Create(ctx, orphan), store.ErrSpaceNotFound)
	})

	t.Run("size and learned", func(t *testing.T) {
		updated, err := files.UpdateSize(ctx, file.ID, 512)
		require.NoError(t, err)
		assert.Equal(t, int64(512), updated.Size)

		learned, err := files.MarkLearned(ctx, file.ID)
		require.NoError(t, err)
		assert.True(t, learned.Learned)
		assert.Equal(t, int64(512), learned.Size)
	})

	t.Run("replaced content", func(t *testing.T) {
		other, err := domain.NewFile(space.ID, "docs/other.pdf")
		require.NoError(t, err)
		require.NoError(t, files.Create(ctx, other))
		_, err = files.UpdateSize(ctx, other.ID, 64)
		require.NoError(t, err)
		_, err = files.MarkLearned(ctx, other.ID)
		require.NoError(t, err)

		found, err := files.GetByPath(ctx, space.ID, "docs/other.pdf")
		require.NoError(t, err)
		assert.Equal(t, other.ID, found.ID)

		reset, err := files.ResetContent(ctx, other.ID)
		require.NoError(t, err)
		assert.Zero(t, reset.Size)
		assert.False(t, reset.Learned)

		_, err = files.GetByPath(ctx, uuid.New(), "docs/other.pdf")
		assert.ErrorIs(t, err, store.ErrFileNotFound)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := files.UpdateSize(ctx, uuid.New(), 1)
		assert.True(t, store.IsNotFoundError(err))
	})

	t.Run("returned records are copies", func(t *testing.T) {
		got, err := files.GetByID(ctx, file.ID)
		require.NoError(t, err)
		got.Size = 99

		again, err := files.GetByID(ctx, file.ID)
		require.NoError(t, err)
		assert.NotEqual(t, int64(99), again.Size)
	})
}

func TestTaskStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()
	space := newSpace(t, db)
	tasks := db.Tasks()

	first, err := domain.NewTask(space.ID, "upload_file", "1")
	require.NoError(t, err)
	require.NoError(t, tasks.Create(ctx, first))

	second, err := domain.NewTask(space.ID, "upload_file", "1")
	require.NoError(t, err)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, tasks.Create(ctx, second))

	t.Run("same hash creates two rows", func(t *testing.T) {
		rows, err := tasks.ListBySpace(ctx, space.ID, 0)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, second.ID, rows[0].ID)
	})

	t.Run("status", func(t *testing.T) {
		row, err := tasks.UpdateStatus(ctx, first.ID, domain.TaskStatusSucceeded)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusSucceeded, row.Status)

		_, err = tasks.UpdateStatus(ctx, first.ID, domain.TaskStatus(7))
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})

	t.Run("link requires target", func(t *testing.T) {
		_, err := tasks.LinkFile(ctx, first.ID, uuid.New())
		assert.ErrorIs(t, err, store.ErrFileNotFound)

		_, err = tasks.LinkMessage(ctx, first.ID, uuid.New())
		assert.ErrorIs(t, err, store.ErrMessageNotFound)
	})

	t.Run("list by ids filters space", func(t *testing.T) {
		rows, err := tasks.ListByIDs(ctx, space.ID, []uuid.UUID{first.ID, uuid.New()})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, first.ID, rows[0].ID)

		rows, err = tasks.ListByIDs(ctx, uuid.New(), []uuid.UUID{first.ID})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestMessageStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()
	space := newSpace(t, db)
	messages := db.Messages()

	base := time.Now().UTC()
	exchange := func(text string, offset time.Duration, status domain.ResponseStatus) *domain.Message {
		user, err := domain.NewUserMessage(space.ID, text)
		require.NoError(t, err)
		user.CreatedAt = base.Add(offset)
		require.NoError(t, messages.Create(ctx, user))

		response, err := domain.NewResponseMessage(user)
		require.NoError(t, err)
		response.CreatedAt = base.Add(offset + time.Millisecond)
		require.NoError(t, messages.CreateResponse(ctx, response))

		_, _, err = messages.FinalizeExchange(ctx, user.ID, response.ID, "answer to "+text, status)
		require.NoError(t, err)
		return user
	}

	exchange("t1", 0, domain.ResponseStatusCompleted)
	exchange("t2", time.Second, domain.ResponseStatusErrored)
	exchange("t3", 2*time.Second, domain.ResponseStatusCompleted)

	t.Run("create response links user message", func(t *testing.T) {
		user, err := domain.NewUserMessage(newSpace(t, db).ID, "hello")
		require.NoError(t, err)
		require.NoError(t, messages.Create(ctx, user))

		response, err := domain.NewResponseMessage(user)
		require.NoError(t, err)
		require.NoError(t, messages.CreateResponse(ctx, response))

		got, err := messages.GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ResponseID)
		assert.Equal(t, response.ID, *got.ResponseID)
	})

	t.Run("completed exchanges newest first", func(t *testing.T) {
		exchanges, err := messages.ListCompletedExchanges(ctx, space.ID, 10)
		require.NoError(t, err)
		require.Len(t, exchanges, 2)
		assert.Equal(t, "t3", exchanges[0].UserMessage.Text)
		assert.Equal(t, "answer to t3", exchanges[0].ResponseText)
		assert.Equal(t, "t1", exchanges[1].UserMessage.Text)
	})

	t.Run("limit", func(t *testing.T) {
		exchanges, err := messages.ListCompletedExchanges(ctx, space.ID, 1)
		require.NoError(t, err)
		require.Len(t, exchanges, 1)
		assert.Equal(t, "t3", exchanges[0].UserMessage.Text)
	})

	t.Run("list before cursor", func(t *testing.T) {
		msgs, err := messages.ListBySpace(ctx, space.ID, base.Add(time.Second), 10)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.False(t, msgs[0].IsUserMessage)
		assert.Equal(t, "t1", msgs[1].Text)
	})

	t.Run("finalize rejects empty text", func(t *testing.T) {
		_, _, err := messages.FinalizeExchange(ctx, uuid.New(), uuid.New(), "", domain.ResponseStatusCompleted)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestSpaceStore_ListByOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := New()

	owner := uuid.New()
	for _, name := range []string{"a", "b"} {
		space, err := domain.NewSpace(owner, name)
		require.NoError(t, err)
		require.NoError(t, db.Spaces().Create(ctx, space))
	}
	other := newSpace(t, db)

	spaces, err := db.Spaces().ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, spaces, 2)

	_, err = db.Spaces().GetByID(ctx, other.ID)
	assert.NoError(t, err)
	_, err = db.Spaces().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrSpaceNotFound)
}
