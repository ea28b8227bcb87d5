package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rensmac/taskboard/internal/domain"
)

// ProjectRepository handles project data access
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create creates a new project and fills in the generated ID
func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (organization_id, name, slug, description, status, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		project.OrganizationID,
		project.Name,
		project.Slug,
		project.Description,
		project.Status,
		project.DueDate,
		project.CreatedAt,
	).Scan(&project.ID)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetBySlug retrieves a project by organization and slug; returns (nil, nil) when absent
func (r *ProjectRepository) GetBySlug(ctx context.Context, orgSlug, projectSlug string) (*domain.Project, error) {
	query := `
		SELECT p.id, p.organization_id, p.name, p.slug, p.description, p.status, p.due_date, p.created_at
		FROM projects p
		INNER JOIN organizations o ON o.id = p.organization_id
		WHERE o.slug = $1 AND p.slug = $2
	`

	var project domain.Project
	err := r.db.Pool.QueryRow(ctx, query, orgSlug, projectSlug).Scan(
		&project.ID,
		&project.OrganizationID,
		&project.Name,
		&project.Slug,
		&project.Description,
		&project.Status,
		&project.DueDate,
		&project.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// ListByOrganization retrieves all projects in an organization
func (r *ProjectRepository) ListByOrganization(ctx context.Context, orgSlug string) ([]domain.Project, error) {
	query := `
		SELECT p.id, p.organization_id, p.name, p.slug, p.description, p.status, p.due_date, p.created_at
		FROM projects p
		INNER JOIN organizations o ON o.id = p.organization_id
		WHERE o.slug = $1
		ORDER BY p.created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, orgSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var project domain.Project
		if err := rows.Scan(
			&project.ID,
			&project.OrganizationID,
			&project.Name,
			&project.Slug,
			&project.Description,
			&project.Status,
			&project.DueDate,
			&project.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, nil
}

// SlugExists checks whether a project slug is already taken
func (r *ProjectRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE slug = $1)`, slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check project slug: %w", err)
	}
	return exists, nil
}
