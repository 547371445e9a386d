package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
)

// Kind tags what an Event carries.
type Kind string

const (
	KindTaskUpdated      Kind = "task.updated"
	KindFileUpdated      Kind = "file.updated"
	KindMessageUpdated   Kind = "message.updated"
	KindQueryInvalidated Kind = "query.invalidated"
)

// QueryFilesList is the listing key subscribers refetch when files of a
// space were added or changed state.
const QueryFilesList = "files.list"

// Event is one lifecycle notification. Update events carry the entire
// updated record, so subscribers never need to re-read the store.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Kind      Kind            `json:"kind"`
	SpaceID   uuid.UUID       `json:"space_id"`
	Task      *domain.Task    `json:"task,omitempty"`
	File      *domain.File    `json:"file,omitempty"`
	Message   *domain.Message `json:"message,omitempty"`
	Query     string          `json:"query,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func newEvent(kind Kind, spaceID uuid.UUID) Event {
	return Event{
		ID:        uuid.New(),
		Kind:      kind,
		SpaceID:   spaceID,
		CreatedAt: time.Now().UTC(),
	}
}

// TaskUpdated builds the notification for a changed task row.
func TaskUpdated(task *domain.Task) Event {
	e := newEvent(KindTaskUpdated, task.SpaceID)
	e.Task = task
	return e
}

// FileUpdated builds the notification for a changed file record.
func FileUpdated(file *domain.File) Event {
	e := newEvent(KindFileUpdated, file.SpaceID)
	e.File = file
	return e
}

// MessageUpdated builds the notification for a changed message.
func MessageUpdated(msg *domain.Message) Event {
	e := newEvent(KindMessageUpdated, msg.SpaceID)
	e.Message = msg
	return e
}

// QueryInvalidated tells subscribers of spaceID to refetch query.
func QueryInvalidated(spaceID uuid.UUID, query string) Event {
	e := newEvent(KindQueryInvalidated, spaceID)
	e.Query = query
	return e
}

// Publisher is implemented by anything that can broadcast events.
// Publish must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}
