package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rensmac/taskboard/internal/domain"
)

// TaskRepository handles task data access
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create creates a new task, assigning the next per-project number. The
// number assignment and insert run in one transaction so concurrent creates
// in the same project cannot collide.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the project row so two concurrent creates cannot take the same number
	if _, err := tx.Exec(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, task.ProjectID); err != nil {
		return fmt.Errorf("failed to lock project: %w", err)
	}

	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM tasks WHERE project_id = $1`,
		task.ProjectID,
	).Scan(&task.Number)
	if err != nil {
		return fmt.Errorf("failed to assign task number: %w", err)
	}

	query := `
		INSERT INTO tasks (project_id, number, title, description, status, assignee_id, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err = tx.QueryRow(ctx, query,
		task.ProjectID,
		task.Number,
		task.Title,
		task.Description,
		task.Status,
		task.AssigneeID,
		task.DueDate,
		task.CreatedAt,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	task.TaskID = task.Reference()
	return nil
}

// GetByReference retrieves a task by organization slug and task reference
// (e.g. "BLIB-3"); returns (nil, nil) when absent or when the reference is
// malformed.
func (r *TaskRepository) GetByReference(ctx context.Context, orgSlug, taskRef string) (*domain.Task, error) {
	projectSlug, number, err := domain.ParseTaskRef(taskRef)
	if err != nil {
		return nil, nil
	}

	query := `
		SELECT t.id, t.project_id, p.slug, t.number, t.title, t.description, t.status, t.assignee_id, t.due_date, t.created_at
		FROM tasks t
		INNER JOIN projects p ON p.id = t.project_id
		INNER JOIN organizations o ON o.id = p.organization_id
		WHERE o.slug = $1 AND p.slug = $2 AND t.number = $3
	`

	var task domain.Task
	err = r.db.Pool.QueryRow(ctx, query, orgSlug, projectSlug, number).Scan(
		&task.ID,
		&task.ProjectID,
		&task.ProjectSlug,
		&task.Number,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.AssigneeID,
		&task.DueDate,
		&task.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	task.TaskID = task.Reference()
	return &task, nil
}

// ListByProject retrieves all tasks in a project
func (r *TaskRepository) ListByProject(ctx context.Context, projectID int64) ([]domain.Task, error) {
	query := `
		SELECT t.id, t.project_id, p.slug, t.number, t.title, t.description, t.status, t.assignee_id, t.due_date, t.created_at
		FROM tasks t
		INNER JOIN projects p ON p.id = t.project_id
		WHERE t.project_id = $1
		ORDER BY t.number
	`

	rows, err := r.db.Pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(
			&task.ID,
			&task.ProjectID,
			&task.ProjectSlug,
			&task.Number,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.AssigneeID,
			&task.DueDate,
			&task.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		task.TaskID = task.Reference()
		tasks = append(tasks, task)
	}

	return tasks, nil
}
