package students

import (
	"context"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// RepositoryPort defines data access methods for students.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Student, error)
	List(ctx context.Context, page shared.Page) ([]Student, error)
	Create(ctx context.Context, s Student) (int64, error)
	Update(ctx context.Context, s Student) error
	DeleteCascade(ctx context.Context, id int64) error
}

// Service handles student business logic.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// List returns students. Only ADMIN passes the policy here: listing crosses
// course boundaries, so per-student facts cannot gate it.
func (s *Service) List(ctx context.Context, p authn.Principal, page shared.Page) ([]Student, error) {
	if err := authz.Decide(p, authz.ActionRead, authz.KindStudent, authz.Facts{}); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, page)
}

// Get fetches one student. Teachers reach students enrolled in an owned
// course, a headman reaches its own record, tokens reach students of the
// bound course.
func (s *Service) Get(ctx context.Context, p authn.Principal, id int64) (*Student, error) {
	facts, err := s.resolver.StudentFacts(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindStudent, facts); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create registers a student, capturing the enrolling course when given.
func (s *Service) Create(ctx context.Context, p authn.Principal, student Student) (*Student, error) {
	facts := authz.Facts{}
	if student.EnrolledCourseID != nil {
		resolved, err := s.resolver.CourseFacts(ctx, *student.EnrolledCourseID)
		if err != nil {
			return nil, err
		}
		facts = resolved
		facts.StudentID = nil
	}
	if err := authz.Decide(p, authz.ActionCreate, authz.KindStudent, facts); err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, student)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update rewrites a student's names and group. The enrolling course is
// captured at creation and never rewritten here.
func (s *Service) Update(ctx context.Context, p authn.Principal, student Student) (*Student, error) {
	facts, err := s.resolver.StudentFacts(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindStudent, facts); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, student.ID)
}

// Delete removes a student and its dependent rows bottom-up.
func (s *Service) Delete(ctx context.Context, p authn.Principal, id int64) error {
	facts, err := s.resolver.StudentFacts(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Decide(p, authz.ActionDelete, authz.KindStudent, facts); err != nil {
		return err
	}
	return s.repo.DeleteCascade(ctx, id)
}
