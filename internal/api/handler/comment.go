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

// CommentHandler handles task comment endpoints
type CommentHandler struct {
	commentService *service.CommentService
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// List returns a task's comment history
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	comments, err := h.commentService.ListByTask(r.Context(), userID,
		chi.URLParam(r, "orgSlug"), chi.URLParam(r, "taskRef"))
	if err != nil {
		serviceError(w, err)
		return
	}

	response.OK(w, comments)
}

// Create is the direct-write path: it persists a comment against the store
// and fans it out to connected sessions. Real-time delivery is best effort;
// a persisted comment is a success regardless.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	email, _ := middleware.GetUserEmail(r.Context())

	var input domain.CommentCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	author := &domain.User{ID: userID, Email: email}
	event, err := h.commentService.CreateForUser(r.Context(), author,
		chi.URLParam(r, "orgSlug"), chi.URLParam(r, "taskRef"), input.Content)
	if err != nil {
		serviceError(w, err)
		return
	}

	response.Created(w, event)
}
