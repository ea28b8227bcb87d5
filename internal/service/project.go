package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rensmac/taskboard/internal/domain"
)

// ProjectRepository is the project data access the services need
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetBySlug(ctx context.Context, orgSlug, projectSlug string) (*domain.Project, error)
	ListByOrganization(ctx context.Context, orgSlug string) ([]domain.Project, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// ProjectService handles project operations
type ProjectService struct {
	projectRepo ProjectRepository
	orgRepo     OrganizationRepository
}

// NewProjectService creates a new project service
func NewProjectService(projectRepo ProjectRepository, orgRepo OrganizationRepository) *ProjectService {
	return &ProjectService{projectRepo: projectRepo, orgRepo: orgRepo}
}

// Create creates a project in an organization, generating a unique slug from
// the project name with a numeric suffix on collision.
func (s *ProjectService) Create(ctx context.Context, userID int64, orgSlug string, input domain.ProjectCreate) (*domain.Project, error) {
	member, err := s.orgRepo.IsMember(ctx, userID, orgSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, ErrForbidden
	}

	org, err := s.orgRepo.GetBySlug(ctx, orgSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return nil, ErrNotFound
	}

	slug, err := s.generateSlug(ctx, input.Name)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = domain.ProjectStatusActive
	}

	project := &domain.Project{
		OrganizationID: org.ID,
		Name:           input.Name,
		Slug:           slug,
		Description:    input.Description,
		Status:         status,
		DueDate:        input.DueDate,
		CreatedAt:      time.Now(),
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// List retrieves the organization's projects, membership permitting
func (s *ProjectService) List(ctx context.Context, userID int64, orgSlug string) ([]domain.Project, error) {
	member, err := s.orgRepo.IsMember(ctx, userID, orgSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, ErrForbidden
	}

	projects, err := s.projectRepo.ListByOrganization(ctx, orgSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// generateSlug slugifies the name and appends -1, -2, ... until the slug is
// free. Slugs are globally unique so task references stay unambiguous.
func (s *ProjectService) generateSlug(ctx context.Context, name string) (string, error) {
	base := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if base == "" {
		base = "project"
	}

	slug := base
	for counter := 1; ; counter++ {
		exists, err := s.projectRepo.SlugExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("failed to check project slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}
