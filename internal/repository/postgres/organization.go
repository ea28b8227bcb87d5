package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rensmac/taskboard/internal/domain"
)

// OrganizationRepository handles organization data access
type OrganizationRepository struct {
	db *DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create creates a new organization and fills in the generated ID
func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (name, slug, contact_email, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		org.Name,
		org.Slug,
		org.ContactEmail,
		org.CreatedAt,
	).Scan(&org.ID)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

// GetBySlug retrieves an organization by slug; returns (nil, nil) when absent
func (r *OrganizationRepository) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	query := `
		SELECT id, name, slug, contact_email, created_at
		FROM organizations
		WHERE slug = $1
	`

	var org domain.Organization
	err := r.db.Pool.QueryRow(ctx, query, slug).Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.ContactEmail,
		&org.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

// ListByUserID retrieves all organizations a user belongs to
func (r *OrganizationRepository) ListByUserID(ctx context.Context, userID int64) ([]domain.Organization, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.contact_email, o.created_at
		FROM organizations o
		INNER JOIN organization_members om ON o.id = om.organization_id
		WHERE om.user_id = $1
		ORDER BY o.created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(
			&org.ID,
			&org.Name,
			&org.Slug,
			&org.ContactEmail,
			&org.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	return orgs, nil
}

// AddMember adds a user to an organization
func (r *OrganizationRepository) AddMember(ctx context.Context, member *domain.OrganizationMember) error {
	query := `
		INSERT INTO organization_members (user_id, organization_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		member.UserID,
		member.OrganizationID,
		member.Role,
		member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

// IsMember checks whether a user belongs to the organization with the given slug
func (r *OrganizationRepository) IsMember(ctx context.Context, userID int64, orgSlug string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM organization_members om
			INNER JOIN organizations o ON o.id = om.organization_id
			WHERE om.user_id = $1 AND o.slug = $2
		)
	`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, userID, orgSlug).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// MemberCount returns the number of members in an organization
func (r *OrganizationRepository) MemberCount(ctx context.Context, organizationID int64) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM organization_members WHERE organization_id = $1`, organizationID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}
