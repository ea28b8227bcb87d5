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

// ProjectHandler handles project endpoints
type ProjectHandler struct {
	projectService *service.ProjectService
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List returns the organization's projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	projects, err := h.projectService.List(r.Context(), userID, chi.URLParam(r, "orgSlug"))
	if err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, projects)
}

// Create creates a project in the organization
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.ProjectCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	project, err := h.projectService.Create(r.Context(), userID, chi.URLParam(r, "orgSlug"), input)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.Created(w, project)
}
