package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rensmac/taskboard/internal/domain"
)

// TaskRepository is the task data access the services need
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByReference(ctx context.Context, orgSlug, taskRef string) (*domain.Task, error)
	ListByProject(ctx context.Context, projectID int64) ([]domain.Task, error)
}

// TaskService handles task operations
type TaskService struct {
	taskRepo    TaskRepository
	projectRepo ProjectRepository
	orgRepo     OrganizationRepository
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo TaskRepository, projectRepo ProjectRepository, orgRepo OrganizationRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo, projectRepo: projectRepo, orgRepo: orgRepo}
}

// Create creates a task in a project; the repository assigns the next
// per-project number that forms the task reference.
func (s *TaskService) Create(ctx context.Context, userID int64, orgSlug, projectSlug string, input domain.TaskCreate) (*domain.Task, error) {
	member, err := s.orgRepo.IsMember(ctx, userID, orgSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, ErrForbidden
	}

	project, err := s.projectRepo.GetBySlug(ctx, orgSlug, projectSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return nil, ErrNotFound
	}

	status := input.Status
	if status == "" {
		status = domain.TaskStatusTodo
	}

	task := &domain.Task{
		ProjectID:   project.ID,
		ProjectSlug: project.Slug,
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		AssigneeID:  input.AssigneeID,
		DueDate:     input.DueDate,
		CreatedAt:   time.Now(),
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// List retrieves the project's tasks, membership permitting
func (s *TaskService) List(ctx context.Context, userID int64, orgSlug, projectSlug string) ([]domain.Task, error) {
	member, err := s.orgRepo.IsMember(ctx, userID, orgSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, ErrForbidden
	}

	project, err := s.projectRepo.GetBySlug(ctx, orgSlug, projectSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if project == nil {
		return nil, ErrNotFound
	}

	tasks, err := s.taskRepo.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetByReference retrieves a task by its reference, membership permitting
func (s *TaskService) GetByReference(ctx context.Context, userID int64, orgSlug, taskRef string) (*domain.Task, error) {
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
	return task, nil
}
