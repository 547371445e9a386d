package api

import (
	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
)

// MaxMessageTextLength bounds the text of a sent message.
const MaxMessageTextLength = 8000

// CreateSpaceRequest is the payload of POST /api/spaces.
type CreateSpaceRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// SendMessageRequest is the payload of POST /api/spaces/{spaceID}/messages.
type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=8000"`
}

// TaskAcceptedResponse acknowledges a dispatched task.
type TaskAcceptedResponse struct {
	TaskID uuid.UUID `json:"task_id"`
}

// SendMessageResponse carries the stored user message and the reply task.
type SendMessageResponse struct {
	Message *domain.Message `json:"message"`
	TaskID  uuid.UUID       `json:"task_id"`
}

// SpacesResponse wraps a space listing.
type SpacesResponse struct {
	Spaces []*domain.Space `json:"spaces"`
}

// FilesResponse wraps a file listing.
type FilesResponse struct {
	Files []*domain.File `json:"files"`
}

// MessagesResponse wraps a page of messages, newest first.
type MessagesResponse struct {
	Messages []*domain.Message `json:"messages"`
}

// TasksResponse wraps a task listing.
type TasksResponse struct {
	Tasks []*domain.Task `json:"tasks"`
}
