package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/space"
	"github.com/yerba/yerba-api/internal/task"
)

// TaskDispatcher schedules task handles. *task.Dispatcher implements it.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, sp space.Space, h task.Handle) (uuid.UUID, error)
	List() []uuid.UUID
}

// TaskFactory builds task handles. *task.Factory implements it.
type TaskFactory interface {
	UploadFile(path string) (*task.Instance[task.UploadFileState], error)
	LearnFile(fileID uuid.UUID) (*task.Instance[task.LearnFileState], error)
	Reply(messageID uuid.UUID, text string) (*task.Instance[task.ReplyState], error)
}

var (
	_ TaskDispatcher = (*task.Dispatcher)(nil)
	_ TaskFactory    = (*task.Factory)(nil)
)
