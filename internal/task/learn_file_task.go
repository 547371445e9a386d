package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/events"
	"github.com/yerba/yerba-api/internal/inference"
	"github.com/yerba/yerba-api/internal/space"
	"github.com/yerba/yerba-api/internal/store"
)

// LearnFileInput names the file to ingest.
type LearnFileInput struct {
	FileID uuid.UUID `json:"file_id"`
}

// LearnFileState is the scratch state of an ingestion task.
type LearnFileState struct {
	FileID uuid.UUID
	Path   string
}

// LearnFileTask sends one file to the ingestion service, which indexes it
// into the space's vector index. The file is flagged learned only when
// ingestion succeeded; there is no retry.
type LearnFileTask struct {
	input    LearnFileInput
	tasks    store.TaskStore
	files    store.FileStore
	events   events.Publisher
	ingester inference.Ingester
}

var _ Definition[LearnFileState] = (*LearnFileTask)(nil)

// Kind returns KindLearnFile.
func (t *LearnFileTask) Kind() string { return KindLearnFile }

// Input returns the submission parameters.
func (t *LearnFileTask) Input() any { return t.input }

// Setup resolves the file inside sp and links it to the task.
func (t *LearnFileTask) Setup(ctx context.Context, sp space.Space, id uuid.UUID, state *LearnFileState) error {
	file, err := t.files.GetByID(ctx, t.input.FileID)
	if err != nil {
		return fmt.Errorf("failed to find file: %w", err)
	}
	if file.SpaceID != sp.ID {
		return fmt.Errorf("failed to find file: %w", store.ErrFileNotFound)
	}

	if _, err := t.tasks.LinkFile(ctx, id, file.ID); err != nil {
		return fmt.Errorf("failed to link task to file: %w", err)
	}

	state.FileID = file.ID
	state.Path = file.Path
	return nil
}

// Run asks the ingestion service to index the file.
func (t *LearnFileTask) Run(ctx context.Context, sp space.Space, id uuid.UUID, state *LearnFileState) error {
	if state.FileID == uuid.Nil {
		return ErrStateMissing
	}

	abs, err := sp.FilePath(state.Path)
	if err != nil {
		return err
	}

	if err := t.ingester.Learn(ctx, inference.LearnRequest{
		VectorDBPath: sp.VectorDBPath(),
		FilePath:     abs,
	}); err != nil {
		return fmt.Errorf("failed to learn file: %w", err)
	}
	return nil
}

// Finish marks the file learned on success and tells subscribers the file
// listing changed either way.
func (t *LearnFileTask) Finish(
	ctx context.Context,
	sp space.Space,
	id uuid.UUID,
	state *LearnFileState,
	status domain.TaskStatus,
) error {
	if status == domain.TaskStatusSucceeded {
		if _, err := t.files.MarkLearned(ctx, state.FileID); err != nil {
			return fmt.Errorf("failed to mark file learned: %w", err)
		}
	}

	t.events.Publish(ctx, events.QueryInvalidated(sp.ID, events.QueryFilesList))
	return nil
}
