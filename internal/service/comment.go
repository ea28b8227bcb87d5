package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rensmac/taskboard/internal/domain"
)

// CommentRepository is the comment data access the services need
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTask(ctx context.Context, taskID int64, limit int) ([]domain.CommentEvent, error)
}

// Publisher fans a persisted comment event out to room members. The realtime
// dispatcher implements it.
type Publisher interface {
	Publish(ctx context.Context, event *domain.CommentEvent) error
}

const commentHistoryLimit = 200

// CommentService persists task comments and hands the resulting events to
// the fan-out dispatcher. Both the session inbound path and the REST create
// endpoint go through Create, so they fan out identically.
type CommentService struct {
	commentRepo CommentRepository
	taskRepo    TaskRepository
	orgRepo     OrganizationRepository
	publisher   Publisher
}

// NewCommentService creates a new comment service
func NewCommentService(
	commentRepo CommentRepository,
	taskRepo TaskRepository,
	orgRepo OrganizationRepository,
	publisher Publisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		orgRepo:     orgRepo,
		publisher:   publisher,
	}
}

// Create persists a comment on the room's task and publishes the resulting
// event. Persistence must succeed independent of real-time delivery, so a
// publish failure is logged and the created event still returned.
func (s *CommentService) Create(ctx context.Context, content string, author *domain.User, room domain.RoomKey) (*domain.CommentEvent, error) {
	task, err := s.taskRepo.GetByReference(ctx, room.OrgSlug, room.TaskRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, ErrNotFound
	}

	comment := &domain.Comment{
		TaskID:    task.ID,
		Content:   content,
		AuthorID:  author.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	event := &domain.CommentEvent{
		ID:        comment.ID,
		Content:   comment.Content,
		Author:    domain.CommentAuthor{Email: author.Email, ID: author.ID},
		Timestamp: comment.CreatedAt,
		TaskRef:   task.Reference(),
		OrgSlug:   room.OrgSlug,
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("room", room.String()).
			Int64("comment_id", event.ID).
			Msg("Failed to publish comment event")
	}

	return event, nil
}

// CreateForUser is the REST entry point: it checks membership, then creates
// through the same path as the socket.
func (s *CommentService) CreateForUser(ctx context.Context, author *domain.User, orgSlug, taskRef, content string) (*domain.CommentEvent, error) {
	member, err := s.orgRepo.IsMember(ctx, author.ID, orgSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, ErrForbidden
	}

	return s.Create(ctx, content, author, domain.NewRoomKey(orgSlug, taskRef))
}

// ListByTask retrieves a task's comment history, membership permitting
func (s *CommentService) ListByTask(ctx context.Context, userID int64, orgSlug, taskRef string) ([]domain.CommentEvent, error) {
	member, err := s.orgRepo.IsMember(ctx, userID, orgSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, ErrForbidden
	}

	task, err := s.taskRepo.GetByReference(ctx, orgSlug, taskRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, ErrNotFound
	}

	comments, err := s.commentRepo.ListByTask(ctx, task.ID, commentHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	ref := task.Reference()
	for i := range comments {
		comments[i].TaskRef = ref
		comments[i].OrgSlug = orgSlug
	}
	return comments, nil
}
