package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/store"
)

// TaskStore implements store.TaskStore.
type TaskStore struct {
	db *DB
}

var _ store.TaskStore = (*TaskStore)(nil)

// Create inserts a task row.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.tasks[task.ID]; ok {
		return store.ErrDuplicate
	}
	s.db.tasks[task.ID] = *copyTask(*task)
	return nil
}

// GetByID returns the task with id.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	task, ok := s.db.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return copyTask(task), nil
}

// UpdateStatus writes status and returns the updated row.
func (s *TaskStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidTaskStatus)
	}
	return s.update(id, func(t *domain.Task) error {
		t.Status = status
		return nil
	})
}

// LinkFile associates the task with a file.
func (s *TaskStore) LinkFile(ctx context.Context, id, fileID uuid.UUID) (*domain.Task, error) {
	return s.update(id, func(t *domain.Task) error {
		if _, ok := s.db.files[fileID]; !ok {
			return store.ErrFileNotFound
		}
		t.FileID = &fileID
		return nil
	})
}

// LinkMessage associates the task with a message.
func (s *TaskStore) LinkMessage(ctx context.Context, id, messageID uuid.UUID) (*domain.Task, error) {
	return s.update(id, func(t *domain.Task) error {
		if _, ok := s.db.messages[messageID]; !ok {
			return store.ErrMessageNotFound
		}
		t.MessageID = &messageID
		return nil
	})
}

// ListByIDs returns the rows among ids that belong to spaceID, newest
// first. Unknown ids are skipped.
func (s *TaskStore) ListByIDs(ctx context.Context, spaceID uuid.UUID, ids []uuid.UUID) ([]*domain.Task, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	tasks := make([]*domain.Task, 0, len(ids))
	for _, id := range ids {
		if task, ok := s.db.tasks[id]; ok && task.SpaceID == spaceID {
			tasks = append(tasks, copyTask(task))
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

// ListBySpace returns up to limit rows of a space, newest first. A
// non-positive limit returns every row.
func (s *TaskStore) ListBySpace(ctx context.Context, spaceID uuid.UUID, limit int) ([]*domain.Task, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	tasks := make([]*domain.Task, 0)
	for _, task := range s.db.tasks {
		if task.SpaceID == spaceID {
			tasks = append(tasks, copyTask(task))
		}
	}
	sortTasks(tasks)
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (s *TaskStore) update(id uuid.UUID, apply func(*domain.Task) error) (*domain.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	task, ok := s.db.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	if err := apply(&task); err != nil {
		return nil, err
	}
	task.UpdatedAt = time.Now().UTC()
	s.db.tasks[id] = task
	return copyTask(task), nil
}

func sortTasks(tasks []*domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
}
