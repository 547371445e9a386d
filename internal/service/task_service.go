package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/store"
)

// DefaultTaskHistoryLimit bounds Recent when no limit is given.
const DefaultTaskHistoryLimit = 50

// TaskService reports on dispatched tasks.
type TaskService interface {
	// Active returns the rows of the tasks of spaceID the dispatcher is
	// still tracking.
	Active(ctx context.Context, spaceID uuid.UUID) ([]*domain.Task, error)

	// Recent returns up to limit task rows of spaceID, newest first.
	Recent(ctx context.Context, spaceID uuid.UUID, limit int) ([]*domain.Task, error)
}

type taskServiceImpl struct {
	tasks      store.TaskStore
	dispatcher TaskDispatcher
	logger     *slog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(tasks store.TaskStore, dispatcher TaskDispatcher, logger *slog.Logger) (TaskService, error) {
	if tasks == nil {
		return nil, &ServiceError{Service: "task", Operation: "create_service", Message: "tasks cannot be nil"}
	}
	if dispatcher == nil {
		return nil, &ServiceError{Service: "task", Operation: "create_service", Message: "dispatcher cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		tasks:      tasks,
		dispatcher: dispatcher,
		logger:     logger.With("component", "task_service"),
	}, nil
}

func (s *taskServiceImpl) Active(ctx context.Context, spaceID uuid.UUID) ([]*domain.Task, error) {
	ids := s.dispatcher.List()
	if len(ids) == 0 {
		return []*domain.Task{}, nil
	}

	tasks, err := s.tasks.ListByIDs(ctx, spaceID, ids)
	if err != nil {
		return nil, NewServiceError("task", "active", "failed to load tasks", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) Recent(ctx context.Context, spaceID uuid.UUID, limit int) ([]*domain.Task, error) {
	if limit <= 0 {
		limit = DefaultTaskHistoryLimit
	}

	tasks, err := s.tasks.ListBySpace(ctx, spaceID, limit)
	if err != nil {
		return nil, NewServiceError("task", "recent", "failed to list tasks", err)
	}
	return tasks, nil
}
