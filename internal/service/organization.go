package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rensmac/taskboard/internal/domain"
)

// OrganizationRepository is the organization data access the services need
type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	ListByUserID(ctx context.Context, userID int64) ([]domain.Organization, error)
	AddMember(ctx context.Context, member *domain.OrganizationMember) error
	IsMember(ctx context.Context, userID int64, orgSlug string) (bool, error)
	MemberCount(ctx context.Context, organizationID int64) (int, error)
}

// OrganizationService handles organization operations
type OrganizationService struct {
	orgRepo OrganizationRepository
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(orgRepo OrganizationRepository) *OrganizationService {
	return &OrganizationService{orgRepo: orgRepo}
}

// Create creates a new organization and adds the creator as admin
func (s *OrganizationService) Create(ctx context.Context, userID int64, input domain.OrganizationCreate) (*domain.Organization, error) {
	existing, err := s.orgRepo.GetBySlug(ctx, input.Slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing != nil {
		return nil, ErrConflict
	}

	now := time.Now()
	org := &domain.Organization{
		Name:         input.Name,
		Slug:         input.Slug,
		ContactEmail: input.ContactEmail,
		CreatedAt:    now,
	}

	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	member := &domain.OrganizationMember{
		UserID:         userID,
		OrganizationID: org.ID,
		Role:           domain.RoleAdmin,
		CreatedAt:      now,
	}
	if err := s.orgRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return org, nil
}

// ListByUser retrieves all organizations the user belongs to
func (s *OrganizationService) ListByUser(ctx context.Context, userID int64) ([]domain.Organization, error) {
	orgs, err := s.orgRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}
