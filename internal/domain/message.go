package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResponseStatus tracks the progress of the answer paired with a message.
// The ordinal values are persisted and must not be reordered.
type ResponseStatus int

const (
	ResponseStatusNone ResponseStatus = iota
	ResponseStatusGenerating
	ResponseStatusCompleted
	ResponseStatusErrored
)

// String returns the lowercase name of the status.
func (s ResponseStatus) String() string {
	switch s {
	case ResponseStatusNone:
		return "none"
	case ResponseStatusGenerating:
		return "generating"
	case ResponseStatusCompleted:
		return "completed"
	case ResponseStatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the defined statuses.
func (s ResponseStatus) Valid() bool {
	return s >= ResponseStatusNone && s <= ResponseStatusErrored
}

// GeneratingResponseText is the placeholder text of a response message
// whose answer has not arrived yet.
const GeneratingResponseText = "Generating response..."

// Common validation errors for Message
var (
	ErrEmptyMessageID        = invalid("message ID cannot be empty")
	ErrEmptyMessageSpaceID   = invalid("message space ID cannot be empty")
	ErrEmptyMessageText      = invalid("message text cannot be empty")
	ErrInvalidResponseStatus = invalid("invalid response status")
	ErrResponseWithoutParent = invalid("response message must reference a user message")
)

// Message is a single conversation turn. A user message points at its
// paired response through ResponseID; the response points back through
// UserMessageID.
type Message struct {
	ID             uuid.UUID      `json:"id"`
	SpaceID        uuid.UUID      `json:"space_id"`
	Text           string         `json:"text"`
	IsUserMessage  bool           `json:"is_user_message"`
	ResponseStatus ResponseStatus `json:"response_status"`
	UserMessageID  *uuid.UUID     `json:"user_message_id,omitempty"`
	ResponseID     *uuid.UUID     `json:"response_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	FinalizedAt    *time.Time     `json:"finalized_at,omitempty"`
}

// NewUserMessage creates a message typed by a user, with no response yet.
func NewUserMessage(spaceID uuid.UUID, text string) (*Message, error) {
	msg := &Message{
		ID:             uuid.New(),
		SpaceID:        spaceID,
		Text:           text,
		IsUserMessage:  true,
		ResponseStatus: ResponseStatusNone,
		CreatedAt:      time.Now().UTC(),
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// NewResponseMessage creates the placeholder answer for userMessage.
func NewResponseMessage(userMessage *Message) (*Message, error) {
	if userMessage == nil {
		return nil, ErrResponseWithoutParent
	}

	parent := userMessage.ID
	msg := &Message{
		ID:             uuid.New(),
		SpaceID:        userMessage.SpaceID,
		Text:           GeneratingResponseText,
		IsUserMessage:  false,
		ResponseStatus: ResponseStatusGenerating,
		UserMessageID:  &parent,
		CreatedAt:      time.Now().UTC(),
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// Validate checks if the Message has valid data.
func (m *Message) Validate() error {
	if m.ID == uuid.Nil {
		return ErrEmptyMessageID
	}
	if m.SpaceID == uuid.Nil {
		return ErrEmptyMessageSpaceID
	}
	if m.Text == "" {
		return ErrEmptyMessageText
	}
	if !m.ResponseStatus.Valid() {
		return ErrInvalidResponseStatus
	}
	if !m.IsUserMessage && (m.UserMessageID == nil || *m.UserMessageID == uuid.Nil) {
		return ErrResponseWithoutParent
	}
	return nil
}

// Exchange pairs a completed user message with the text of its response.
type Exchange struct {
	UserMessage  *Message
	ResponseText string
}
