package employees

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// RepositoryPort defines data access methods for employees.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Employee, error)
	List(ctx context.Context, page shared.Page) ([]Employee, error)
	FindByIdentity(ctx context.Context, firstName, lastName, middleName, department string) (*Employee, error)
	Create(ctx context.Context, e Employee) (int64, error)
	Update(ctx context.Context, e Employee) error
	Delete(ctx context.Context, id int64) error
	CountOwnedCourses(ctx context.Context, id int64) (int, error)
}

// Service handles employee business logic.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// List returns the employee directory, ordered by id ascending.
func (s *Service) List(ctx context.Context, p authn.Principal, page shared.Page) ([]Employee, error) {
	if err := authz.Decide(p, authz.ActionRead, authz.KindEmployee, authz.Facts{}); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, page)
}

// Get fetches one employee.
func (s *Service) Get(ctx context.Context, p authn.Principal, id int64) (*Employee, error) {
	facts, err := s.resolver.EmployeeFacts(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindEmployee, facts); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create registers a new employee. The identity tuple must be unique.
func (s *Service) Create(ctx context.Context, p authn.Principal, e Employee) (*Employee, error) {
	if err := authz.Decide(p, authz.ActionCreate, authz.KindEmployee, authz.Facts{}); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByIdentity(ctx, e.FirstName, e.LastName, e.MiddleName, e.Department)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("check existing employee: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("employee identity already registered: %w", shared.ErrConflict)
	}
	id, err := s.repo.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update rewrites an employee record.
func (s *Service) Update(ctx context.Context, p authn.Principal, e Employee) (*Employee, error) {
	facts, err := s.resolver.EmployeeFacts(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindEmployee, facts); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByIdentity(ctx, e.FirstName, e.LastName, e.MiddleName, e.Department)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("check existing employee: %w", err)
	}
	if existing != nil && existing.ID != e.ID {
		return nil, fmt.Errorf("employee identity already registered: %w", shared.ErrConflict)
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, e.ID)
}

// Delete removes an employee. An employee that still owns courses cannot be
// deleted: the courses would be orphaned.
func (s *Service) Delete(ctx context.Context, p authn.Principal, id int64) error {
	facts, err := s.resolver.EmployeeFacts(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Decide(p, authz.ActionDelete, authz.KindEmployee, facts); err != nil {
		return err
	}
	owned, err := s.repo.CountOwnedCourses(ctx, id)
	if err != nil {
		return err
	}
	if owned > 0 {
		return fmt.Errorf("employee still owns %d course(s): %w", owned, shared.ErrConflict)
	}
	return s.repo.Delete(ctx, id)
}
