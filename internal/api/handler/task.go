package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rensmac/taskboard/internal/api/middleware"
	"github.com/rensmac/taskboard/internal/api/response"
	"github.com/rensmac/taskboard/internal/domain"
	"github.com/rensmac/taskboard/internal/service"
)

// TaskHandler handles task endpoints
type TaskHandler struct {
	taskService *service.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// List returns the project's tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	tasks, err := h.taskService.List(r.Context(), userID,
		chi.URLParam(r, "orgSlug"), chi.URLParam(r, "projectSlug"))
	if err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, tasks)
}

// Create creates a task in the project
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.TaskCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	task, err := h.taskService.Create(r.Context(), userID,
		chi.URLParam(r, "orgSlug"), chi.URLParam(r, "projectSlug"), input)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.Created(w, task)
}

// Get returns a task by its reference, e.g. BLIB-3
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	task, err := h.taskService.GetByReference(r.Context(), userID,
		chi.URLParam(r, "orgSlug"), chi.URLParam(r, "taskRef"))
	if err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, task)
}
