package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Task statuses
const (
	TaskStatusTodo       = "TODO"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusDone       = "DONE"
)

// Task represents a task within a project
type Task struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"-"`
	ProjectSlug string     `json:"project_slug"`
	Number      int        `json:"-"`
	TaskID      string     `json:"task_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Reference returns the human-facing task reference, e.g. "BLIB-3".
func (t *Task) Reference() string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(t.ProjectSlug), t.Number)
}

// TaskCreate represents task creation data
type TaskCreate struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Status      string     `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// ParseTaskRef splits a task reference like "BLIB-3" into its project slug
// (lowercased) and per-project number. The reference format is part of the
// URL contract, so malformed input is an expected condition.
func ParseTaskRef(ref string) (slug string, number int, err error) {
	i := strings.LastIndex(ref, "-")
	if i <= 0 || i == len(ref)-1 {
		return "", 0, fmt.Errorf("invalid task reference %q", ref)
	}
	number, err = strconv.Atoi(ref[i+1:])
	if err != nil || number <= 0 {
		return "", 0, fmt.Errorf("invalid task reference %q", ref)
	}
	return strings.ToLower(ref[:i]), number, nil
}
