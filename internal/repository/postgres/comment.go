package postgres

import (
	"context"
	"fmt"

	"github.com/rensmac/taskboard/internal/domain"
)

// CommentRepository handles task comment data access
type CommentRepository struct {
	db *DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create creates a new comment and fills in the generated ID
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO task_comments (task_id, content, author_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		comment.TaskID,
		comment.Content,
		comment.AuthorID,
		comment.CreatedAt,
	).Scan(&comment.ID)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	return nil
}

// ListByTask retrieves comments for a task in creation order, with author
// identity joined in for the wire format.
func (r *CommentRepository) ListByTask(ctx context.Context, taskID int64, limit int) ([]domain.CommentEvent, error) {
	query := `
		SELECT c.id, c.content, u.email, u.id, c.created_at
		FROM task_comments c
		INNER JOIN users u ON u.id = c.author_id
		WHERE c.task_id = $1
		ORDER BY c.created_at, c.id
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.CommentEvent
	for rows.Next() {
		var c domain.CommentEvent
		if err := rows.Scan(
			&c.ID,
			&c.Content,
			&c.Author.Email,
			&c.Author.ID,
			&c.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	return comments, nil
}
