package tasks

import (
	"fmt"
	"time"

	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// Task is an assignment inside one course. The task number orders tasks
// within the course and is unique there.
type Task struct {
	ID               int64      `json:"id"`
	CourseID         int64      `json:"course_id"`
	TaskNumber       int        `json:"task_number"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	DeadlinesEnabled bool       `json:"deadlines_enabled"`
	SoftDeadline     *time.Time `json:"soft_deadline"`
	HardDeadline     *time.Time `json:"hard_deadline"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Criteria is a grading criterion of one task. Its name is unique within
// the task.
type Criteria struct {
	ID          int64     `json:"id"`
	TaskID      int64     `json:"task_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Weight      int       `json:"weight"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ReorderPair assigns one task a new number within its course.
type ReorderPair struct {
	TaskID    int64 `json:"task_id" validate:"required,gt=0"`
	NewNumber int   `json:"new_number" validate:"required,gt=0"`
}

// resolveDeadlines validates the deadline fields of a create or update
// request and settles the tri-state enablement flag. With enablement
// stated true both deadlines must be present and ordered. With enablement
// omitted, setting exactly one deadline is ambiguous and rejected.
func resolveDeadlines(enabled *bool, soft, hard *time.Time) (bool, error) {
	if enabled == nil {
		if (soft == nil) != (hard == nil) {
			return false, fmt.Errorf("tasks: one deadline set without enablement: %w", shared.ErrBadRequest)
		}
		return false, nil
	}
	if !*enabled {
		return false, nil
	}
	if soft == nil || hard == nil {
		return false, fmt.Errorf("tasks: deadlines enabled but not both set: %w", shared.ErrBadRequest)
	}
	if soft.After(*hard) {
		return false, fmt.Errorf("tasks: soft deadline after hard deadline: %w", shared.ErrBadRequest)
	}
	return true, nil
}
