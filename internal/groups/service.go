package groups

import (
	"context"
	"fmt"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// RepositoryPort defines data access methods for groups and faculties.
type RepositoryPort interface {
	GetFaculty(ctx context.Context, id int64) (*Faculty, error)
	ListFaculties(ctx context.Context, page shared.Page) ([]Faculty, error)
	CreateFaculty(ctx context.Context, name string) (int64, error)
	UpdateFaculty(ctx context.Context, id int64, name string) error
	DeleteFaculty(ctx context.Context, id int64) error
	CountFacultyGroups(ctx context.Context, facultyID int64) (int, error)

	GetGroup(ctx context.Context, id int64) (*Group, error)
	ListGroups(ctx context.Context, page shared.Page) ([]Group, error)
	CreateGroup(ctx context.Context, g Group) (int64, error)
	UpdateGroup(ctx context.Context, g Group) error
	DeleteGroup(ctx context.Context, id int64) error
	CountGroupStudents(ctx context.Context, groupID int64) (int, error)
}

// Service handles group and faculty directory logic. Directory reads are
// open to any authenticated or tokened caller; writes are ADMIN territory,
// which the policy evaluator enforces.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListFaculties returns the faculty directory.
func (s *Service) ListFaculties(ctx context.Context, p authn.Principal, page shared.Page) ([]Faculty, error) {
	if err := authz.Decide(p, authz.ActionRead, authz.KindFaculty, authz.Facts{}); err != nil {
		return nil, err
	}
	return s.repo.ListFaculties(ctx, page)
}

// GetFaculty fetches one faculty.
func (s *Service) GetFaculty(ctx context.Context, p authn.Principal, id int64) (*Faculty, error) {
	if err := authz.Decide(p, authz.ActionRead, authz.KindFaculty, authz.Facts{}); err != nil {
		return nil, err
	}
	return s.repo.GetFaculty(ctx, id)
}

// CreateFaculty registers a faculty with an absolutely unique name.
func (s *Service) CreateFaculty(ctx context.Context, p authn.Principal, name string) (*Faculty, error) {
	if err := authz.Decide(p, authz.ActionCreate, authz.KindFaculty, authz.Facts{}); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateFaculty(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.repo.GetFaculty(ctx, id)
}

// UpdateFaculty renames a faculty.
func (s *Service) UpdateFaculty(ctx context.Context, p authn.Principal, id int64, name string) (*Faculty, error) {
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindFaculty, authz.Facts{}); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetFaculty(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFaculty(ctx, id, name); err != nil {
		return nil, err
	}
	return s.repo.GetFaculty(ctx, id)
}

// DeleteFaculty removes a faculty that has no remaining groups.
func (s *Service) DeleteFaculty(ctx context.Context, p authn.Principal, id int64) error {
	if err := authz.Decide(p, authz.ActionDelete, authz.KindFaculty, authz.Facts{}); err != nil {
		return err
	}
	if _, err := s.repo.GetFaculty(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountFacultyGroups(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("faculty still has %d group(s): %w", count, shared.ErrConflict)
	}
	return s.repo.DeleteFaculty(ctx, id)
}

// ListGroups returns the group directory.
func (s *Service) ListGroups(ctx context.Context, p authn.Principal, page shared.Page) ([]Group, error) {
	if err := authz.Decide(p, authz.ActionRead, authz.KindGroup, authz.Facts{}); err != nil {
		return nil, err
	}
	return s.repo.ListGroups(ctx, page)
}

// GetGroup fetches one group.
func (s *Service) GetGroup(ctx context.Context, p authn.Principal, id int64) (*Group, error) {
	if err := authz.Decide(p, authz.ActionRead, authz.KindGroup, authz.Facts{}); err != nil {
		return nil, err
	}
	return s.repo.GetGroup(ctx, id)
}

// CreateGroup registers a group under a faculty and a course.
func (s *Service) CreateGroup(ctx context.Context, p authn.Principal, g Group) (*Group, error) {
	if err := authz.Decide(p, authz.ActionCreate, authz.KindGroup, authz.Facts{}); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateGroup(ctx, g)
	if err != nil {
		return nil, err
	}
	return s.repo.GetGroup(ctx, id)
}

// UpdateGroup rewrites a group. The faculty link is structural: attempting
// to move a group to another faculty is rejected outright.
func (s *Service) UpdateGroup(ctx context.Context, p authn.Principal, g Group) (*Group, error) {
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindGroup, authz.Facts{}); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetGroup(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	if g.FacultyID != 0 && g.FacultyID != existing.FacultyID {
		return nil, fmt.Errorf("group faculty cannot be changed: %w", shared.ErrBadRequest)
	}
	g.FacultyID = existing.FacultyID
	if err := s.repo.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}
	return s.repo.GetGroup(ctx, g.ID)
}

// DeleteGroup removes a group that has no remaining students.
func (s *Service) DeleteGroup(ctx context.Context, p authn.Principal, id int64) error {
	if err := authz.Decide(p, authz.ActionDelete, authz.KindGroup, authz.Facts{}); err != nil {
		return err
	}
	if _, err := s.repo.GetGroup(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountGroupStudents(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("group still has %d student(s): %w", count, shared.ErrConflict)
	}
	return s.repo.DeleteGroup(ctx, id)
}
