package api

import (
	"log/slog"
	"net/http"

	"github.com/yerba/yerba-api/internal/api/shared"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/service"
)

// MessageHandler serves the conversation endpoints of a space.
type MessageHandler struct {
	spaces   service.SpaceService
	messages service.MessageService
	logger   *slog.Logger
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(
	spaces service.SpaceService,
	messages service.MessageService,
	logger *slog.Logger,
) *MessageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageHandler{
		spaces:   spaces,
		messages: messages,
		logger:   logger.With("component", "message_handler"),
	}
}

// SendMessage handles POST /api/spaces/{spaceID}/messages. The answer
// arrives later through the updates stream.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sp, ok := resolveSpace(w, r, h.spaces, h.logger)
	if !ok {
		return
	}

	var req SendMessageRequest
	if !parseAndValidateRequest(w, r, &req) {
		return
	}

	res, err := h.messages.Send(r.Context(), sp, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to send message")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SendMessageResponse{
		Message: res.Message,
		TaskID:  res.TaskID,
	})
}

// ListMessages handles GET /api/spaces/{spaceID}/messages?before=&limit=.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	sp, ok := resolveSpace(w, r, h.spaces, h.logger)
	if !ok {
		return
	}

	before, err := queryTime(r, "before")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	msgs, err := h.messages.List(r.Context(), sp.ID, before, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []*domain.Message{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessagesResponse{Messages: msgs})
}
