package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rensmac/taskboard/internal/api/middleware"
	"github.com/rensmac/taskboard/internal/api/response"
	"github.com/rensmac/taskboard/internal/domain"
	"github.com/rensmac/taskboard/internal/service"
)

// OrganizationHandler handles organization endpoints
type OrganizationHandler struct {
	orgService *service.OrganizationService
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(orgService *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// List returns the caller's organizations
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	orgs, err := h.orgService.ListByUser(r.Context(), userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, orgs)
}

// Create creates a new organization
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.OrganizationCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	org, err := h.orgService.Create(r.Context(), userID, input)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.Created(w, org)
}
