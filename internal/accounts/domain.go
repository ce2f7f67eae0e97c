package accounts

import (
	"fmt"
	"time"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// Account is a login credential bound to at most one identity. The role
// decides which target link must be set: TEACHER binds an employee,
// HEADMAN binds a student, ADMIN binds nothing. The role is settled at
// creation and never changes.
type Account struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         authn.Role `json:"role"`
	EmployeeID   *int64     `json:"employee_id"`
	StudentID    *int64     `json:"student_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// validateBinding checks the role/target shape. These are structural
// rules, so any violation is a bad request regardless of whether the
// named targets exist.
func validateBinding(role authn.Role, employeeID, studentID *int64) error {
	switch role {
	case authn.RoleAdmin:
		if employeeID != nil || studentID != nil {
			return fmt.Errorf("accounts: admin binds no target: %w", shared.ErrBadRequest)
		}
	case authn.RoleTeacher:
		if employeeID == nil || studentID != nil {
			return fmt.Errorf("accounts: teacher binds exactly one employee: %w", shared.ErrBadRequest)
		}
	case authn.RoleHeadman:
		if studentID == nil || employeeID != nil {
			return fmt.Errorf("accounts: headman binds exactly one student: %w", shared.ErrBadRequest)
		}
	default:
		return fmt.Errorf("accounts: unknown role %q: %w", role, shared.ErrBadRequest)
	}
	return nil
}
