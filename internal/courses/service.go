package courses

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// RepositoryPort defines data access methods for courses.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Course, error)
	FindByName(ctx context.Context, name string) (*Course, error)
	List(ctx context.Context, page shared.Page) ([]Course, error)
	ListOwned(ctx context.Context, ownerID int64, page shared.Page) ([]Course, error)
	Create(ctx context.Context, c Course) (int64, error)
	Update(ctx context.Context, c Course) error
	UpdateOwner(ctx context.Context, id, ownerID int64) error
	DeleteCascade(ctx context.Context, id int64) error

	GetToken(ctx context.Context, courseID int64) (*Token, error)
	CreateToken(ctx context.Context, courseID int64, token string) (*Token, error)
	DeleteToken(ctx context.Context, courseID int64) error

	ListStudentIDs(ctx context.Context, courseID int64) ([]int64, error)
	Enroll(ctx context.Context, courseID, studentID int64) error
	Unenroll(ctx context.Context, courseID, studentID int64) error

	CountTasks(ctx context.Context, courseID int64) (int64, error)
	CountStudents(ctx context.Context, courseID int64) (int64, error)
	CountSubmissions(ctx context.Context, courseID int64) (int64, error)
	CountAttendance(ctx context.Context, courseID int64) (int64, error)
}

// Service handles course business logic.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// List returns the courses visible to the principal: all for ADMIN, owned
// for a teacher, the bound course for a token holder.
func (s *Service) List(ctx context.Context, p authn.Principal, page shared.Page) ([]Course, error) {
	switch {
	case p.IsAnonymous():
		return nil, shared.ErrUnauthenticated
	case p.IsUser() && p.Role == authn.RoleAdmin:
		return s.repo.List(ctx, page)
	case p.IsUser() && p.Role == authn.RoleTeacher:
		return s.repo.ListOwned(ctx, p.IdentityID, page)
	case p.IsToken():
		course, err := s.repo.Get(ctx, p.BoundCourseID)
		if err != nil {
			return nil, err
		}
		return []Course{*course}, nil
	}
	return nil, shared.ErrForbidden
}

// Get fetches one course.
func (s *Service) Get(ctx context.Context, p authn.Principal, id int64) (*Course, error) {
	facts, err := s.resolver.CourseFacts(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindCourse, facts); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create registers a course. The owner must exist; a teacher may only
// create courses owned by itself, which the policy enforces through the
// prospective ownership facts.
func (s *Service) Create(ctx context.Context, p authn.Principal, c Course) (*Course, error) {
	ownerFacts, err := s.resolver.EmployeeFacts(ctx, c.OwnerID)
	if err != nil {
		return nil, err
	}
	facts := authz.Facts{OwnerEmployeeID: ownerFacts.OwnerEmployeeID}
	if err := authz.Decide(p, authz.ActionCreate, authz.KindCourse, facts); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByName(ctx, c.Name)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("check existing course: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("course name already taken: %w", shared.ErrConflict)
	}
	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update rewrites a course's name and description. Ownership is not
// touched here: owner moves go through TransferOwner only.
func (s *Service) Update(ctx context.Context, p authn.Principal, c Course) (*Course, error) {
	facts, err := s.resolver.CourseFacts(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindCourse, facts); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByName(ctx, c.Name)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("check existing course: %w", err)
	}
	if existing != nil && existing.ID != c.ID {
		return nil, fmt.Errorf("course name already taken: %w", shared.ErrConflict)
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, c.ID)
}

// TransferOwner re-assigns a course to another employee. Only ADMIN passes
// the policy: a teacher can neither give a course away nor receive one.
func (s *Service) TransferOwner(ctx context.Context, p authn.Principal, courseID, newOwnerID int64) (*Course, error) {
	facts, err := s.resolver.CourseFacts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionTransferOwner, authz.KindCourse, facts); err != nil {
		return nil, err
	}
	if _, err := s.resolver.EmployeeFacts(ctx, newOwnerID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateOwner(ctx, courseID, newOwnerID); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, courseID)
}

// Delete removes a course and its entire subtree.
func (s *Service) Delete(ctx context.Context, p authn.Principal, id int64) error {
	facts, err := s.resolver.CourseFacts(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Decide(p, authz.ActionDelete, authz.KindCourse, facts); err != nil {
		return err
	}
	return s.repo.DeleteCascade(ctx, id)
}

// GetToken returns the course's access token. Reading the credential is
// course management: only ADMIN and the owning teacher reach it.
func (s *Service) GetToken(ctx context.Context, p authn.Principal, courseID int64) (*Token, error) {
	facts, err := s.resolver.CourseFacts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindCourseToken, facts); err != nil {
		return nil, err
	}
	return s.repo.GetToken(ctx, courseID)
}

// CreateToken mints the course's opaque token.
func (s *Service) CreateToken(ctx context.Context, p authn.Principal, courseID int64) (*Token, error) {
	facts, err := s.resolver.CourseFacts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionCreate, authz.KindCourseToken, facts); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetToken(ctx, courseID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("course already has a token: %w", shared.ErrConflict)
	}
	return s.repo.CreateToken(ctx, courseID, uuid.NewString())
}

// DeleteToken revokes the course's token.
func (s *Service) DeleteToken(ctx context.Context, p authn.Principal, courseID int64) error {
	facts, err := s.resolver.CourseFacts(ctx, courseID)
	if err != nil {
		return err
	}
	if err := authz.Decide(p, authz.ActionDelete, authz.KindCourseToken, facts); err != nil {
		return err
	}
	return s.repo.DeleteToken(ctx, courseID)
}

// Summary gathers the size of the course's subtree. The four counts are
// independent reads, so they run concurrently.
func (s *Service) Summary(ctx context.Context, p authn.Principal, courseID int64) (*Summary, error) {
	facts, err := s.resolver.CourseFacts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindCourse, facts); err != nil {
		return nil, err
	}
	course, err := s.repo.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}

	summary := Summary{Course: *course}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.Tasks, err = s.repo.CountTasks(gctx, courseID)
		return err
	})
	g.Go(func() error {
		var err error
		summary.Students, err = s.repo.CountStudents(gctx, courseID)
		return err
	})
	g.Go(func() error {
		var err error
		summary.Submissions, err = s.repo.CountSubmissions(gctx, courseID)
		return err
	})
	g.Go(func() error {
		var err error
		summary.Attendance, err = s.repo.CountAttendance(gctx, courseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListStudents returns the ids of students enrolled in the course.
func (s *Service) ListStudents(ctx context.Context, p authn.Principal, courseID int64) ([]int64, error) {
	facts, err := s.resolver.CourseFacts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindCourse, facts); err != nil {
		return nil, err
	}
	return s.repo.ListStudentIDs(ctx, courseID)
}

// Enroll adds a student to the course's enrollment list.
func (s *Service) Enroll(ctx context.Context, p authn.Principal, courseID, studentID int64) error {
	facts, err := s.resolver.CourseFacts(ctx, courseID)
	if err != nil {
		return err
	}
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindCourse, facts); err != nil {
		return err
	}
	if _, err := s.resolver.StudentFacts(ctx, studentID); err != nil {
		return err
	}
	return s.repo.Enroll(ctx, courseID, studentID)
}

// Unenroll removes a student from the enrollment list.
func (s *Service) Unenroll(ctx context.Context, p authn.Principal, courseID, studentID int64) error {
	facts, err := s.resolver.CourseFacts(ctx, courseID)
	if err != nil {
		return err
	}
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindCourse, facts); err != nil {
		return err
	}
	return s.repo.Unenroll(ctx, courseID, studentID)
}
