package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/events"
	"github.com/yerba/yerba-api/internal/platform/logger"
	"github.com/yerba/yerba-api/internal/space"
	"github.com/yerba/yerba-api/internal/store"
)

// Default upload detection timings
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultStableFor    = time.Second
)

// ErrStateMissing is returned when a phase finds no state from setup.
var ErrStateMissing = errors.New("task state missing")

// UploadFileInput identifies the uploaded file by its path relative to the
// space directory.
type UploadFileInput struct {
	Path string `json:"path"`
}

// UploadFileState is the scratch state of an upload task.
type UploadFileState struct {
	FileID   uuid.UUID
	Path     string
	LastSize int64
}

// UploadFileTask waits for an upload to stop growing. Setup registers the
// File record; run polls the file size until it is unchanged for the
// stability window, writing every observed change to the record.
type UploadFileTask struct {
	input        UploadFileInput
	tasks        store.TaskStore
	files        store.FileStore
	events       events.Publisher
	pollInterval time.Duration
	stableFor    time.Duration
	now          func() time.Time
	stat         func(path string) (int64, error)
}

var _ Definition[UploadFileState] = (*UploadFileTask)(nil)

// Kind returns KindUploadFile.
func (t *UploadFileTask) Kind() string { return KindUploadFile }

// Input returns the submission parameters.
func (t *UploadFileTask) Input() any { return t.input }

// Setup registers the File record and links it to the task. A path that
// already has a record is a replacement: the record is reused with its
// size and learned flag reset.
func (t *UploadFileTask) Setup(ctx context.Context, sp space.Space, id uuid.UUID, state *UploadFileState) error {
	file, err := t.registerFile(ctx, sp)
	if err != nil {
		return err
	}

	if _, err := t.tasks.LinkFile(ctx, id, file.ID); err != nil {
		return fmt.Errorf("failed to link task to file: %w", err)
	}

	state.FileID = file.ID
	state.Path = file.Path
	return nil
}

func (t *UploadFileTask) registerFile(ctx context.Context, sp space.Space) (*domain.File, error) {
	file, err := domain.NewFile(sp.ID, t.input.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid upload path: %w", err)
	}

	existing, err := t.files.GetByPath(ctx, sp.ID, file.Path)
	switch {
	case err == nil:
		reset, err := t.files.ResetContent(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reset replaced file: %w", err)
		}
		return reset, nil
	case !errors.Is(err, store.ErrFileNotFound):
		return nil, fmt.Errorf("failed to look up file: %w", err)
	}

	if err := t.files.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return file, nil
}

// Run polls the file size every poll interval and returns once the size
// stayed the same for the stability window. Each change is stored and
// published immediately.
func (t *UploadFileTask) Run(ctx context.Context, sp space.Space, id uuid.UUID, state *UploadFileState) error {
	if state.FileID == uuid.Nil {
		return ErrStateMissing
	}

	abs, err := sp.FilePath(state.Path)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx).With("file_id", state.FileID)

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	stableSince := t.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		size, err := t.stat(abs)
		if err != nil {
			return fmt.Errorf("failed to get file metadata: %w", err)
		}

		if size == state.LastSize {
			if t.now().Sub(stableSince) >= t.stableFor {
				log.Debug("upload size stable", "size", size)
				return nil
			}
			continue
		}

		state.LastSize = size
		stableSince = t.now()

		file, err := t.files.UpdateSize(ctx, state.FileID, size)
		if err != nil {
			return fmt.Errorf("failed to update file size: %w", err)
		}
		t.events.Publish(ctx, events.FileUpdated(file))
	}
}

// Finish tells subscribers the file listing changed.
func (t *UploadFileTask) Finish(
	ctx context.Context,
	sp space.Space,
	id uuid.UUID,
	state *UploadFileState,
	status domain.TaskStatus,
) error {
	t.events.Publish(ctx, events.QueryInvalidated(sp.ID, events.QueryFilesList))
	return nil
}

func statSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
