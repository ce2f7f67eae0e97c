package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// RepositoryPort defines data access methods for attendance records.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Record, error)
	Find(ctx context.Context, courseID int64, date time.Time, class int, studentID int64) (*Record, error)
	ListByCourse(ctx context.Context, courseID int64, page shared.Page) ([]Record, error)
	Create(ctx context.Context, rec Record) (*Record, error)
	Update(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id int64) error
}

// Service handles attendance business logic.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// ListByCourse returns the attendance records of one course.
func (s *Service) ListByCourse(ctx context.Context, p authn.Principal, courseID int64, page shared.Page) ([]Record, error) {
	facts, err := s.resolver.CourseFacts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindAttendance, facts); err != nil {
		return nil, err
	}
	return s.repo.ListByCourse(ctx, courseID, page)
}

// Get fetches one attendance record. The resolved facts carry the
// student id, so a headman reading its own record passes the policy.
func (s *Service) Get(ctx context.Context, p authn.Principal, id int64) (*Record, error) {
	facts, err := s.resolver.AttendanceFacts(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindAttendance, facts); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create records a student's presence in one class.
func (s *Service) Create(ctx context.Context, p authn.Principal, rec Record) (*Record, error) {
	facts, err := s.resolver.CourseFacts(ctx, rec.CourseID)
	if err != nil {
		return nil, err
	}
	studentFacts, err := s.resolver.StudentFacts(ctx, rec.StudentID)
	if err != nil {
		return nil, err
	}
	facts.StudentID = studentFacts.StudentID
	if err := authz.Decide(p, authz.ActionCreate, authz.KindAttendance, facts); err != nil {
		return nil, err
	}
	existing, err := s.repo.Find(ctx, rec.CourseID, rec.Date, rec.Class, rec.StudentID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("attendance: already recorded: %w", shared.ErrConflict)
	}
	return s.repo.Create(ctx, rec)
}

// Update rewrites the presence flag. Course, student, date and class are
// structural: a request naming different values is rejected.
func (s *Service) Update(ctx context.Context, p authn.Principal, rec Record) (*Record, error) {
	facts, err := s.resolver.AttendanceFacts(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindAttendance, facts); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if rec.CourseID != 0 && rec.CourseID != existing.CourseID {
		return nil, fmt.Errorf("attendance: course is immutable: %w", shared.ErrBadRequest)
	}
	if rec.StudentID != 0 && rec.StudentID != existing.StudentID {
		return nil, fmt.Errorf("attendance: student is immutable: %w", shared.ErrBadRequest)
	}
	if !rec.Date.IsZero() && !rec.Date.Equal(existing.Date) {
		return nil, fmt.Errorf("attendance: date is immutable: %w", shared.ErrBadRequest)
	}
	if rec.Class != 0 && rec.Class != existing.Class {
		return nil, fmt.Errorf("attendance: class is immutable: %w", shared.ErrBadRequest)
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, rec.ID)
}

// Delete removes one attendance record.
func (s *Service) Delete(ctx context.Context, p authn.Principal, id int64) error {
	facts, err := s.resolver.AttendanceFacts(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Decide(p, authz.ActionDelete, authz.KindAttendance, facts); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
