package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
)

// MessageStore defines the interface for conversation messages.
type MessageStore interface {
	// Create inserts a user message.
	Create(ctx context.Context, msg *domain.Message) error

	// CreateResponse inserts response, which must reference an existing user
	// message, and links the user message to it.
	CreateResponse(ctx context.Context, response *domain.Message) error

	// GetByID retrieves a message by its unique ID.
	// Returns ErrMessageNotFound if the message does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)

	// FinalizeExchange writes the final text of the response message and
	// sets status and finalization time on both messages of the pair in one
	// atomic step. It returns the updated user and response messages.
	FinalizeExchange(
		ctx context.Context,
		userMessageID, responseID uuid.UUID,
		text string,
		status domain.ResponseStatus,
	) (*domain.Message, *domain.Message, error)

	// ListBySpace returns up to limit messages of a space created strictly
	// before the given time (zero means no bound), newest first.
	ListBySpace(ctx context.Context, spaceID uuid.UUID, before time.Time, limit int) ([]*domain.Message, error)

	// ListCompletedExchanges returns up to limit user messages whose
	// response status is Completed, newest first, each paired with the text
	// of its response message (empty if it has none).
	ListCompletedExchanges(ctx context.Context, spaceID uuid.UUID, limit int) ([]domain.Exchange, error)
}
