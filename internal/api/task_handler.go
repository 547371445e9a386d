package api

import (
	"log/slog"
	"net/http"

	"github.com/yerba/yerba-api/internal/api/shared"
	"github.com/yerba/yerba-api/internal/domain"
	"github.com/yerba/yerba-api/internal/service"
)

// TaskHandler serves task listings of a space.
type TaskHandler struct {
	spaces service.SpaceService
	tasks  service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(spaces service.SpaceService, tasks service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		spaces: spaces,
		tasks:  tasks,
		logger: logger.With("component", "task_handler"),
	}
}

// ListActiveTasks handles GET /api/spaces/{spaceID}/tasks.
func (h *TaskHandler) ListActiveTasks(w http.ResponseWriter, r *http.Request) {
	sp, ok := resolveSpace(w, r, h.spaces, h.logger)
	if !ok {
		return
	}

	tasks, err := h.tasks.Active(r.Context(), sp.ID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	h.respond(w, r, tasks)
}

// ListRecentTasks handles GET /api/spaces/{spaceID}/tasks/recent?limit=.
func (h *TaskHandler) ListRecentTasks(w http.ResponseWriter, r *http.Request) {
	sp, ok := resolveSpace(w, r, h.spaces, h.logger)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tasks, err := h.tasks.Recent(r.Context(), sp.ID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	h.respond(w, r, tasks)
}

func (h *TaskHandler) respond(w http.ResponseWriter, r *http.Request, tasks []*domain.Task) {
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TasksResponse{Tasks: tasks})
}
