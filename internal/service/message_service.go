package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/events"
	"github.com/yerba/yerba-api/internal/space"
	"github.com/yerba/yerba-api/internal/store"
)

// Message listing limits
const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

// SendResult is a stored user message and the reply task answering it.
type SendResult struct {
	Message *domain.Message `json:"message"`
	TaskID  uuid.UUID       `json:"task_id"`
}

// MessageService manages the conversation of a space.
type MessageService interface {
	// Send stores a user message and dispatches a reply task for it.
	Send(ctx context.Context, sp space.Space, text string) (*SendResult, error)

	// List returns up to limit messages created before the given time,
	// newest first. A zero before means now; limit is clamped to
	// [1, MaxMessageLimit] with 0 meaning DefaultMessageLimit.
	List(ctx context.Context, spaceID uuid.UUID, before time.Time, limit int) ([]*domain.Message, error)
}

type messageServiceImpl struct {
	messages   store.MessageStore
	factory    TaskFactory
	dispatcher TaskDispatcher
	events     events.Publisher
	logger     *slog.Logger
}

// NewMessageService creates a MessageService.
func NewMessageService(
	messages store.MessageStore,
	factory TaskFactory,
	dispatcher TaskDispatcher,
	publisher events.Publisher,
	logger *slog.Logger,
) (MessageService, error) {
	if messages == nil {
		return nil, &ServiceError{Service: "message", Operation: "create_service", Message: "messages cannot be nil"}
	}
	if factory == nil {
		return nil, &ServiceError{Service: "message", Operation: "create_service", Message: "factory cannot be nil"}
	}
	if dispatcher == nil {
		return nil, &ServiceError{Service: "message", Operation: "create_service", Message: "dispatcher cannot be nil"}
	}
	if publisher == nil {
		return nil, &ServiceError{Service: "message", Operation: "create_service", Message: "publisher cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &messageServiceImpl{
		messages:   messages,
		factory:    factory,
		dispatcher: dispatcher,
		events:     publisher,
		logger:     logger.With("component", "message_service"),
	}, nil
}

func (s *messageServiceImpl) Send(ctx context.Context, sp space.Space, text string) (*SendResult, error) {
	msg, err := domain.NewUserMessage(sp.ID, text)
	if err != nil {
		return nil, NewServiceError("message", "send", "invalid message", err)
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to store message", "error", err, "space_id", sp.ID)
		return nil, NewServiceError("message", "send", "failed to save message", err)
	}
	s.events.Publish(ctx, events.MessageUpdated(msg))

	h, err := s.factory.Reply(msg.ID, msg.Text)
	if err != nil {
		return nil, NewServiceError("message", "send", "failed to build reply task", err)
	}

	taskID, err := s.dispatcher.Dispatch(ctx, sp, h)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to dispatch reply",
			"error", err,
			"space_id", sp.ID,
			"message_id", msg.ID)
		return nil, NewServiceError("message", "send", "failed to dispatch reply task", err)
	}

	// Setup linked the response; reload so the caller sees it.
	if stored, err := s.messages.GetByID(ctx, msg.ID); err == nil {
		msg = stored
	}

	return &SendResult{Message: msg, TaskID: taskID}, nil
}

func (s *messageServiceImpl) List(
	ctx context.Context,
	spaceID uuid.UUID,
	before time.Time,
	limit int,
) ([]*domain.Message, error) {
	switch {
	case limit <= 0:
		limit = DefaultMessageLimit
	case limit > MaxMessageLimit:
		limit = MaxMessageLimit
	}

	msgs, err := s.messages.ListBySpace(ctx, spaceID, before, limit)
	if err != nil {
		return nil, NewServiceError("message", "list", "failed to list messages", err)
	}
	return msgs, nil
}
