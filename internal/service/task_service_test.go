package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskService_ActiveAndRecent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sp := env.newSpace(t)
	other := env.newSpace(t)
	ctx := context.Background()

	active, err := env.tasks.Active(ctx, sp.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	up, err := env.files.Upload(ctx, sp, "a.txt", strings.NewReader("abc"))
	require.NoError(t, err)
	_, err = env.files.Upload(ctx, other, "b.txt", strings.NewReader("abc"))
	require.NoError(t, err)

	// Upload tasks stay in flight for the stability window.
	active, err = env.tasks.Active(ctx, sp.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, up.TaskID, active[0].ID)

	env.wait(t)

	active, err = env.tasks.Active(ctx, sp.ID)
	require.NoError(t, err)
	assert.Empty(t, active, "finished tasks are pruned")

	recent, err := env.tasks.Recent(ctx, sp.ID, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, up.TaskID, recent[0].ID)
}

func TestNewServiceError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewServiceError("file", "list", "x", nil))
	assert.ErrorIs(t, NewServiceError("file", "learn", "x", ErrFileNotFound), ErrFileNotFound)

	err := NewServiceError("file", "list", "failed to list files", assert.AnError)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "file service list failed: failed to list files: "+assert.AnError.Error(), err.Error())
	assert.ErrorIs(t, err, assert.AnError)
}
