package api

import (
	"log/slog"
	"net/http"

	"github.com/yerba/yerba-api/internal/api/shared"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/service"
)

// SpaceHandler serves the space endpoints.
type SpaceHandler struct {
	spaces service.SpaceService
	logger *slog.Logger
}

// NewSpaceHandler creates a SpaceHandler.
func NewSpaceHandler(spaces service.SpaceService, logger *slog.Logger) *SpaceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpaceHandler{
		spaces: spaces,
		logger: logger.With("component", "space_handler"),
	}
}

// CreateSpace handles POST /api/spaces.
func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	var req CreateSpaceRequest
	if !parseAndValidateRequest(w, r, &req) {
		return
	}

	sp, err := h.spaces.Create(r.Context(), userID, req.Name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create space")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, sp)
}

// ListSpaces handles GET /api/spaces.
func (h *SpaceHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return
	}

	spaces, err := h.spaces.List(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list spaces")
		return
	}
	if spaces == nil {
		spaces = []*domain.Space{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SpacesResponse{Spaces: spaces})
}

// GetSpace handles GET /api/spaces/{spaceID}.
func (h *SpaceHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	userID, spaceID, ok := handleUserIDAndPathUUID(w, r, "spaceID", h.logger)
	if !ok {
		return
	}

	sp, err := h.spaces.Get(r.Context(), userID, spaceID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load space")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sp)
}
