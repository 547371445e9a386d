package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yerba/yerba-api/internal/api/shared"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/service"
)

// DefaultMaxUploadBytes caps a single upload body.
const DefaultMaxUploadBytes int64 = 512 << 20

// FileHandler serves the file endpoints of a space.
type FileHandler struct {
	spaces         service.SpaceService
	files          service.FileService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewFileHandler creates a FileHandler. A non-positive maxUploadBytes uses
// DefaultMaxUploadBytes.
func NewFileHandler(
	spaces service.SpaceService,
	files service.FileService,
	maxUploadBytes int64,
	logger *slog.Logger,
) *FileHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileHandler{
		spaces:         spaces,
		files:          files,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "file_handler"),
	}
}

// UploadFile handles PUT /api/spaces/{spaceID}/files/*. The raw request
// body becomes the file content; the wildcard is its path in the space.
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	sp, ok := resolveSpace(w, r, h.spaces, h.logger)
	if !ok {
		return
	}

	rel := chi.URLParam(r, "*")
	body := http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	res, err := h.files.Upload(r.Context(), sp, rel, body)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to upload file")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, res)
}

// LearnFile handles POST /api/spaces/{spaceID}/files/{fileID}/learn.
func (h *FileHandler) LearnFile(w http.ResponseWriter, r *http.Request) {
	sp, ok := resolveSpace(w, r, h.spaces, h.logger)
	if !ok {
		return
	}

	fileID, err := getPathUUID(r, "fileID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	taskID, err := h.files.Learn(r.Context(), sp, fileID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start learning")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskAcceptedResponse{TaskID: taskID})
}

// ListFiles handles GET /api/spaces/{spaceID}/files.
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	sp, ok := resolveSpace(w, r, h.spaces, h.logger)
	if !ok {
		return
	}

	files, err := h.files.List(r.Context(), sp.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list files")
		return
	}
	if files == nil {
		files = []*domain.File{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, FilesResponse{Files: files})
}
