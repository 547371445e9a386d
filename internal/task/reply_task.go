package task

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/events"
	"github.com/yerba/yerba-api/internal/inference"
	"github.com/yerba/yerba-api/internal/platform/logger"
	"github.com/yerba/yerba-api/internal/redact"
	"github.com/yerba/yerba-api/internal/space"
	"github.com/yerba/yerba-api/internal/store"
)

// DefaultHistoryWindow is the number of prior exchanges sent with a question.
const DefaultHistoryWindow = 10

// fallbackErrorText is shown when a reply failed without any error text.
const fallbackErrorText = "Failed to generate a response."

// ReplyInput is the user message to answer.
type ReplyInput struct {
	MessageID   uuid.UUID `json:"message_id"`
	MessageText string    `json:"message_text"`
}

// ReplyState is the scratch state of a reply task.
type ReplyState struct {
	MessageID     uuid.UUID
	ResponseID    uuid.UUID
	Question      string
	ResponseText  string
	ResponseError string
}

// ReplyTask answers a user message. Setup creates the paired response
// message in Generating status; run asks the answer service with the recent
// conversation as context; finish writes the answer, or the error text,
// into the response and finalizes both messages.
type ReplyTask struct {
	input         ReplyInput
	tasks         store.TaskStore
	messages      store.MessageStore
	events        events.Publisher
	answerer      inference.Answerer
	historyWindow int
}

var _ Definition[ReplyState] = (*ReplyTask)(nil)

// Kind returns KindReply.
func (t *ReplyTask) Kind() string { return KindReply }

// Input returns the submission parameters.
func (t *ReplyTask) Input() any { return t.input }

// Setup links the task to the user message and creates the placeholder
// response.
func (t *ReplyTask) Setup(ctx context.Context, sp space.Space, id uuid.UUID, state *ReplyState) error {
	userMessage, err := t.messages.GetByID(ctx, t.input.MessageID)
	if err != nil {
		return fmt.Errorf("failed to find message: %w", err)
	}
	if userMessage.SpaceID != sp.ID || !userMessage.IsUserMessage {
		return fmt.Errorf("failed to find message: %w", store.ErrMessageNotFound)
	}

	if _, err := t.tasks.LinkMessage(ctx, id, userMessage.ID); err != nil {
		return fmt.Errorf("failed to link task to message: %w", err)
	}

	response, err := domain.NewResponseMessage(userMessage)
	if err != nil {
		return err
	}
	if err := t.messages.CreateResponse(ctx, response); err != nil {
		return fmt.Errorf("failed to create response message: %w", err)
	}
	t.events.Publish(ctx, events.MessageUpdated(response))

	state.MessageID = userMessage.ID
	state.ResponseID = response.ID
	state.Question = t.input.MessageText
	return nil
}

// Run gathers the conversation history and asks the answer service. The
// outcome is kept in state for finish; a failure is also returned so the
// task is recorded as failed.
func (t *ReplyTask) Run(ctx context.Context, sp space.Space, id uuid.UUID, state *ReplyState) error {
	if state.ResponseID == uuid.Nil {
		return ErrStateMissing
	}

	history, err := t.history(ctx, sp.ID)
	if err != nil {
		state.ResponseError = "Failed to load the conversation history."
		return err
	}

	answer, err := t.answerer.Ask(ctx, inference.AskRequest{
		VectorDBPath: sp.VectorDBPath(),
		Question:     state.Question,
		ChatHistory:  history,
	})
	if err != nil {
		state.ResponseError = redact.Error(err)
		logger.FromContext(ctx).Warn("answer service failed", "error", redact.Error(err))
		return fmt.Errorf("failed to generate reply: %w", err)
	}

	state.ResponseText = answer
	return nil
}

// Finish finalizes the exchange. Both messages end Completed when an answer
// was captured and Errored otherwise.
func (t *ReplyTask) Finish(
	ctx context.Context,
	sp space.Space,
	id uuid.UUID,
	state *ReplyState,
	status domain.TaskStatus,
) error {
	if state.ResponseID == uuid.Nil {
		return ErrStateMissing
	}

	text := state.ResponseText
	responseStatus := domain.ResponseStatusCompleted
	if status != domain.TaskStatusSucceeded || state.ResponseError != "" {
		responseStatus = domain.ResponseStatusErrored
		text = state.ResponseError
		if text == "" {
			text = fallbackErrorText
		}
	}

	_, response, err := t.messages.FinalizeExchange(ctx, state.MessageID, state.ResponseID, text, responseStatus)
	if err != nil {
		return fmt.Errorf("failed to finalize messages: %w", err)
	}
	t.events.Publish(ctx, events.MessageUpdated(response))
	return nil
}

// history returns up to historyWindow completed exchanges, oldest first,
// encoded for the answer service.
func (t *ReplyTask) history(ctx context.Context, spaceID uuid.UUID) (string, error) {
	if t.historyWindow <= 0 {
		return inference.EncodeHistory(nil)
	}

	exchanges, err := t.messages.ListCompletedExchanges(ctx, spaceID, t.historyWindow)
	if err != nil {
		return "", fmt.Errorf("failed to load chat history: %w", err)
	}

	// Fetched newest first.
	slices.Reverse(exchanges)

	turns := make([]inference.Turn, 0, len(exchanges))
	for _, ex := range exchanges {
		turns = append(turns, inference.Turn{Human: ex.UserMessage.Text, AI: ex.ResponseText})
	}
	return inference.EncodeHistory(turns)
}
