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

// FileStore implements store.FileStore.
type FileStore struct {
	db *DB
}

var _ store.FileStore = (*FileStore)(nil)

// Create inserts a file. A second file with the same path in the same
// space is a duplicate.
func (s *FileStore) Create(ctx context.Context, file *domain.File) error {
	if err := file.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.spaces[file.SpaceID]; !ok {
		return store.ErrSpaceNotFound
	}
	for _, existing := range s.db.files {
		if existing.ID == file.ID || (existing.SpaceID == file.SpaceID && existing.Path == file.Path) {
			return store.ErrDuplicate
		}
	}
	s.db.files[file.ID] = *file
	return nil
}

// GetByID returns the file with id.
func (s *FileStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	file, ok := s.db.files[id]
	if !ok {
		return nil, store.ErrFileNotFound
	}
	return copyFile(file), nil
}

// GetByPath returns the file at path in space spaceID.
func (s *FileStore) GetByPath(ctx context.Context, spaceID uuid.UUID, path string) (*domain.File, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, file := range s.db.files {
		if file.SpaceID == spaceID && file.Path == path {
			return copyFile(file), nil
		}
	}
	return nil, store.ErrFileNotFound
}

// ResetContent clears size and learned for a replaced upload.
func (s *FileStore) ResetContent(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	return s.update(id, func(f *domain.File) {
		f.Size = 0
		f.Learned = false
	})
}

// UpdateSize stores size and returns the updated file.
func (s *FileStore) UpdateSize(ctx context.Context, id uuid.UUID, size int64) (*domain.File, error) {
	return s.update(id, func(f *domain.File) { f.Size = size })
}

// MarkLearned flags the file as ingested.
func (s *FileStore) MarkLearned(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	return s.update(id, func(f *domain.File) { f.Learned = true })
}

// ListBySpace returns the files of a space ordered by path.
func (s *FileStore) ListBySpace(ctx context.Context, spaceID uuid.UUID) ([]*domain.File, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	files := make([]*domain.File, 0)
	for _, file := range s.db.files {
		if file.SpaceID == spaceID {
			files = append(files, copyFile(file))
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (s *FileStore) update(id uuid.UUID, apply func(*domain.File)) (*domain.File, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	file, ok := s.db.files[id]
	if !ok {
		return nil, store.ErrFileNotFound
	}
	apply(&file)
	file.UpdatedAt = time.Now().UTC()
	s.db.files[id] = file
	return copyFile(file), nil
}
