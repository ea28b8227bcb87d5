package service

import (
	"context"
	"fmt"

	"github.com/rensmac/taskboard/internal/domain"
)

// AccessService implements the realtime core's access check: a user may join
// a task's comment room iff they are a member of the organization and the
// task exists in that organization. Absence is a value, not a fault: both
// lookups report not-found explicitly and the caller branches.
type AccessService struct {
	orgRepo  OrganizationRepository
	taskRepo TaskRepository
}

// NewAccessService creates a new access service
func NewAccessService(orgRepo OrganizationRepository, taskRepo TaskRepository) *AccessService {
	return &AccessService{orgRepo: orgRepo, taskRepo: taskRepo}
}

// VerifyAccess reports whether the user may join the room. False covers both
// missing membership and a missing task; errors are reserved for store
// failures.
func (s *AccessService) VerifyAccess(ctx context.Context, userID int64, room domain.RoomKey) (bool, error) {
	member, err := s.orgRepo.IsMember(ctx, userID, room.OrgSlug)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return false, nil
	}

	task, err := s.taskRepo.GetByReference(ctx, room.OrgSlug, room.TaskRef)
	if err != nil {
		return false, fmt.Errorf("failed to get task: %w", err)
	}
	return task != nil, nil
}
