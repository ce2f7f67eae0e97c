package authz

import (
	"context"
	"fmt"
)

// Store provides the single-hop parent lookups the resolver walks. Every
// method returns shared.ErrNotFound (possibly wrapped) when the row is
// absent, which the resolver propagates unchanged: a dangling parent is
// indistinguishable from a missing resource to the caller.
type Store interface {
	// CourseOwner returns the owning employee of a course.
	CourseOwner(ctx context.Context, courseID int64) (int64, error)
	// TaskCourse returns the course a task belongs to.
	TaskCourse(ctx context.Context, taskID int64) (int64, error)
	// CriteriaTask returns the task a criteria row belongs to.
	CriteriaTask(ctx context.Context, criteriaID int64) (int64, error)
	// SubmissionRef returns the task and student of a submission.
	SubmissionRef(ctx context.Context, submissionID int64) (taskID, studentID int64, err error)
	// AttendanceRef returns the course and student of an attendance row.
	AttendanceRef(ctx context.Context, attendanceID int64) (courseID, studentID int64, err error)
	// StudentCourse returns the enrolling course captured when the student
	// was created, or nil when none was recorded.
	StudentCourse(ctx context.Context, studentID int64) (*int64, error)
	// EmployeeExists verifies the employee row is present.
	EmployeeExists(ctx context.Context, employeeID int64) error
	// TokenCourse returns the course a course token is bound to.
	TokenCourse(ctx context.Context, tokenID int64) (int64, error)
}

// Resolver walks declared parent links up to the entities the policy cares
// about. The schema is a tree rooted at Course, so every walk is a fixed
// number of hops and cannot loop.
type Resolver struct {
	store Store
}

// NewResolver constructs a Resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// CourseFacts resolves a course: the course is its own root.
func (r *Resolver) CourseFacts(ctx context.Context, courseID int64) (Facts, error) {
	owner, err := r.store.CourseOwner(ctx, courseID)
	if err != nil {
		return Facts{}, fmt.Errorf("resolve course %d: %w", courseID, err)
	}
	return Facts{OwnerEmployeeID: ptr(owner), CourseID: ptr(courseID)}, nil
}

// TaskFacts resolves a task through its course.
func (r *Resolver) TaskFacts(ctx context.Context, taskID int64) (Facts, error) {
	courseID, err := r.store.TaskCourse(ctx, taskID)
	if err != nil {
		return Facts{}, fmt.Errorf("resolve task %d: %w", taskID, err)
	}
	return r.CourseFacts(ctx, courseID)
}

// CriteriaFacts resolves a criteria row through its task and that task's
// course.
func (r *Resolver) CriteriaFacts(ctx context.Context, criteriaID int64) (Facts, error) {
	taskID, err := r.store.CriteriaTask(ctx, criteriaID)
	if err != nil {
		return Facts{}, fmt.Errorf("resolve criteria %d: %w", criteriaID, err)
	}
	return r.TaskFacts(ctx, taskID)
}

// SubmissionFacts resolves a submission through its task, and records the
// submitting student for self-access checks.
func (r *Resolver) SubmissionFacts(ctx context.Context, submissionID int64) (Facts, error) {
	taskID, studentID, err := r.store.SubmissionRef(ctx, submissionID)
	if err != nil {
		return Facts{}, fmt.Errorf("resolve submission %d: %w", submissionID, err)
	}
	facts, err := r.TaskFacts(ctx, taskID)
	if err != nil {
		return Facts{}, err
	}
	facts.StudentID = ptr(studentID)
	return facts, nil
}

// AttendanceFacts resolves an attendance row through its course, and records
// the student for self-access checks.
func (r *Resolver) AttendanceFacts(ctx context.Context, attendanceID int64) (Facts, error) {
	courseID, studentID, err := r.store.AttendanceRef(ctx, attendanceID)
	if err != nil {
		return Facts{}, fmt.Errorf("resolve attendance %d: %w", attendanceID, err)
	}
	facts, err := r.CourseFacts(ctx, courseID)
	if err != nil {
		return Facts{}, err
	}
	facts.StudentID = ptr(studentID)
	return facts, nil
}

// StudentFacts resolves a student. A student may be enrolled in many
// courses; for authorization the enrolling course captured at creation is
// exposed, plus the student's own id for self-access checks.
func (r *Resolver) StudentFacts(ctx context.Context, studentID int64) (Facts, error) {
	courseID, err := r.store.StudentCourse(ctx, studentID)
	if err != nil {
		return Facts{}, fmt.Errorf("resolve student %d: %w", studentID, err)
	}
	facts := Facts{StudentID: ptr(studentID)}
	if courseID != nil {
		courseFacts, err := r.CourseFacts(ctx, *courseID)
		if err != nil {
			return Facts{}, err
		}
		facts.OwnerEmployeeID = courseFacts.OwnerEmployeeID
		facts.CourseID = courseFacts.CourseID
	}
	return facts, nil
}

// EmployeeFacts resolves an employee: it exposes its own id as the owner and
// has no course.
func (r *Resolver) EmployeeFacts(ctx context.Context, employeeID int64) (Facts, error) {
	if err := r.store.EmployeeExists(ctx, employeeID); err != nil {
		return Facts{}, fmt.Errorf("resolve employee %d: %w", employeeID, err)
	}
	return Facts{OwnerEmployeeID: ptr(employeeID)}, nil
}

// TokenFacts resolves a course token through its bound course.
func (r *Resolver) TokenFacts(ctx context.Context, tokenID int64) (Facts, error) {
	courseID, err := r.store.TokenCourse(ctx, tokenID)
	if err != nil {
		return Facts{}, fmt.Errorf("resolve course token %d: %w", tokenID, err)
	}
	return r.CourseFacts(ctx, courseID)
}
