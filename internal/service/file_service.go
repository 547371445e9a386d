package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/space"
	"github.com/yerba/yerba-api/internal/store"
)

// ErrUnsupportedFile is returned when asked to learn a file type the
// ingestion service cannot read.
var ErrUnsupportedFile = fmt.Errorf("%w: unsupported file type", ErrInvalidInput)

// UploadResult describes an accepted upload.
type UploadResult struct {
	TaskID uuid.UUID `json:"task_id"`
	FileID uuid.UUID `json:"file_id"`
	Path   string    `json:"path"`
	// Bytes is the number of bytes written by this request.
	Bytes int64 `json:"bytes"`
}

// FileService manages the files of a space.
type FileService interface {
	// Upload writes body to rel inside the space directory, replacing any
	// earlier upload at that path. The upload task is dispatched before the
	// copy starts so the file record and its size updates are visible while
	// bytes arrive. A failed copy removes the partial file.
	Upload(ctx context.Context, sp space.Space, rel string, body io.Reader) (*UploadResult, error)

	// Learn dispatches ingestion of fileID and returns the task id.
	Learn(ctx context.Context, sp space.Space, fileID uuid.UUID) (uuid.UUID, error)

	// List returns the files of a space ordered by path.
	List(ctx context.Context, spaceID uuid.UUID) ([]*domain.File, error)
}

type fileServiceImpl struct {
	files      store.FileStore
	factory    TaskFactory
	dispatcher TaskDispatcher
	logger     *slog.Logger

	mu      sync.Mutex
	writing map[string]struct{}
}

// NewFileService creates a FileService.
func NewFileService(
	files store.FileStore,
	factory TaskFactory,
	dispatcher TaskDispatcher,
	logger *slog.Logger,
) (FileService, error) {
	if files == nil {
		return nil, &ServiceError{Service: "file", Operation: "create_service", Message: "files cannot be nil"}
	}
	if factory == nil {
		return nil, &ServiceError{Service: "file", Operation: "create_service", Message: "factory cannot be nil"}
	}
	if dispatcher == nil {
		return nil, &ServiceError{Service: "file", Operation: "create_service", Message: "dispatcher cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &fileServiceImpl{
		files:      files,
		factory:    factory,
		dispatcher: dispatcher,
		logger:     logger.With("component", "file_service"),
		writing:    make(map[string]struct{}),
	}, nil
}

func (s *fileServiceImpl) Upload(
	ctx context.Context,
	sp space.Space,
	rel string,
	body io.Reader,
) (*UploadResult, error) {
	clean, err := domain.CleanRelativePath(rel)
	if err != nil {
		return nil, NewServiceError("file", "upload", "invalid path", err)
	}

	abs, err := sp.FilePath(clean)
	if err != nil {
		return nil, NewServiceError("file", "upload", "invalid path", err)
	}

	release, ok := s.claim(abs)
	if !ok {
		return nil, ErrUploadInProgress
	}
	defer release()

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, NewServiceError("file", "upload", "failed to create directory", err)
	}

	// An existing file at the path is replaced.
	out, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, NewServiceError("file", "upload", "failed to create file", err)
	}

	h, err := s.factory.UploadFile(clean)
	if err != nil {
		s.discard(ctx, out, abs)
		return nil, NewServiceError("file", "upload", "failed to build upload task", err)
	}

	taskID, err := s.dispatcher.Dispatch(ctx, sp, h)
	if err != nil {
		s.discard(ctx, out, abs)
		return nil, NewServiceError("file", "upload", "failed to dispatch upload task", err)
	}

	log := s.logger.With("space_id", sp.ID, "task_id", taskID, "file_id", h.State().FileID)

	n, copyErr := io.Copy(out, body)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		// Without the file the upload task's next poll fails, so the task
		// is recorded Failed instead of settling on a truncated file.
		if rmErr := os.Remove(abs); rmErr != nil {
			log.WarnContext(ctx, "failed to remove partial upload", "error", rmErr)
		}
		log.WarnContext(ctx, "upload interrupted", "bytes", n, "error", err)
		return nil, NewServiceError("file", "upload", "failed to write file", err)
	}

	log.InfoContext(ctx, "upload received", "bytes", n)
	return &UploadResult{
		TaskID: taskID,
		FileID: h.State().FileID,
		Path:   clean,
		Bytes:  n,
	}, nil
}

// claim marks abs as being written. It reports false when another upload
// to the same path is still copying.
func (s *fileServiceImpl) claim(abs string) (release func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.writing[abs]; busy {
		return nil, false
	}
	s.writing[abs] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.writing, abs)
		s.mu.Unlock()
	}, true
}

// discard removes a file created for an upload that never got a task.
func (s *fileServiceImpl) discard(ctx context.Context, f *os.File, path string) {
	_ = f.Close()
	if err := os.Remove(path); err != nil {
		s.logger.WarnContext(ctx, "failed to remove abandoned upload", "error", err)
	}
}

func (s *fileServiceImpl) Learn(ctx context.Context, sp space.Space, fileID uuid.UUID) (uuid.UUID, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return uuid.Nil, NewServiceError("file", "learn", "failed to load file", err)
	}
	if file.SpaceID != sp.ID {
		return uuid.Nil, ErrFileNotFound
	}
	if !file.Supported {
		return uuid.Nil, ErrUnsupportedFile
	}

	h, err := s.factory.LearnFile(fileID)
	if err != nil {
		return uuid.Nil, NewServiceError("file", "learn", "failed to build learn task", err)
	}

	taskID, err := s.dispatcher.Dispatch(ctx, sp, h)
	if err != nil {
		return uuid.Nil, NewServiceError("file", "learn", "failed to dispatch learn task", err)
	}
	return taskID, nil
}

func (s *fileServiceImpl) List(ctx context.Context, spaceID uuid.UUID) ([]*domain.File, error) {
	files, err := s.files.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, NewServiceError("file", "list", "failed to list files", err)
	}
	return files, nil
}
