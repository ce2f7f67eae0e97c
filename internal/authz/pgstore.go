package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// PGStore implements Store with one single-row query per hop. Facts must be
// derived from current parent links on every check, so nothing here caches.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) CourseOwner(ctx context.Context, courseID int64) (int64, error) {
	var ownerID int64
	err := s.pool.QueryRow(ctx, `SELECT owner_id FROM courses WHERE id = $1`, courseID).Scan(&ownerID)
	return ownerID, mapRowErr(err, "course owner")
}

func (s *PGStore) TaskCourse(ctx context.Context, taskID int64) (int64, error) {
	var courseID int64
	err := s.pool.QueryRow(ctx, `SELECT course_id FROM tasks WHERE id = $1`, taskID).Scan(&courseID)
	return courseID, mapRowErr(err, "task course")
}

func (s *PGStore) CriteriaTask(ctx context.Context, criteriaID int64) (int64, error) {
	var taskID int64
	err := s.pool.QueryRow(ctx, `SELECT task_id FROM criteria WHERE id = $1`, criteriaID).Scan(&taskID)
	return taskID, mapRowErr(err, "criteria task")
}

func (s *PGStore) SubmissionRef(ctx context.Context, submissionID int64) (int64, int64, error) {
	var taskID, studentID int64
	err := s.pool.QueryRow(ctx, `SELECT task_id, student_id FROM submissions WHERE id = $1`, submissionID).Scan(&taskID, &studentID)
	return taskID, studentID, mapRowErr(err, "submission ref")
}

func (s *PGStore) AttendanceRef(ctx context.Context, attendanceID int64) (int64, int64, error) {
	var courseID, studentID int64
	err := s.pool.QueryRow(ctx, `SELECT course_id, student_id FROM attendance WHERE id = $1`, attendanceID).Scan(&courseID, &studentID)
	return courseID, studentID, mapRowErr(err, "attendance ref")
}

func (s *PGStore) StudentCourse(ctx context.Context, studentID int64) (*int64, error) {
	var courseID *int64
	err := s.pool.QueryRow(ctx, `SELECT enrolled_course_id FROM students WHERE id = $1`, studentID).Scan(&courseID)
	return courseID, mapRowErr(err, "student course")
}

func (s *PGStore) EmployeeExists(ctx context.Context, employeeID int64) error {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM employees WHERE id = $1`, employeeID).Scan(&id)
	return mapRowErr(err, "employee")
}

func (s *PGStore) TokenCourse(ctx context.Context, tokenID int64) (int64, error) {
	var courseID int64
	err := s.pool.QueryRow(ctx, `SELECT course_id FROM course_tokens WHERE id = $1`, tokenID).Scan(&courseID)
	return courseID, mapRowErr(err, "token course")
}

func mapRowErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	return fmt.Errorf("authz: %s: %w", what, err)
}

var _ Store = (*PGStore)(nil)
