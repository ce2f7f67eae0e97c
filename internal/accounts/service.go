package accounts

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// RepositoryPort defines data access methods for accounts.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByEmployee(ctx context.Context, employeeID int64) (*Account, error)
	FindByStudent(ctx context.Context, studentID int64) (*Account, error)
	List(ctx context.Context, page shared.Page) ([]Account, error)
	Create(ctx context.Context, a Account) (int64, error)
	Update(ctx context.Context, a Account) error
	Delete(ctx context.Context, id int64) error
}

// Service handles account management. Every operation is gated on the
// account resource kind, which the policy reserves to ADMIN.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// List returns all accounts.
func (s *Service) List(ctx context.Context, p authn.Principal, page shared.Page) ([]Account, error) {
	if err := authz.Decide(p, authz.ActionRead, authz.KindAccount, authz.Facts{}); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, page)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, p authn.Principal, id int64) (*Account, error) {
	if err := authz.Decide(p, authz.ActionRead, authz.KindAccount, authz.Facts{}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create registers an account. Checks run structural shape first, then
// target existence, then binding and username conflicts, so a request
// that is wrong in several ways reports the most fundamental problem.
func (s *Service) Create(ctx context.Context, p authn.Principal, a Account, secret string) (*Account, error) {
	if err := authz.Decide(p, authz.ActionCreate, authz.KindAccount, authz.Facts{}); err != nil {
		return nil, err
	}
	if err := validateBinding(a.Role, a.EmployeeID, a.StudentID); err != nil {
		return nil, err
	}
	if err := s.checkTargetExists(ctx, a); err != nil {
		return nil, err
	}
	if err := s.checkTargetFree(ctx, a, 0); err != nil {
		return nil, err
	}
	if err := s.checkUsernameFree(ctx, a.Username, 0); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("accounts: hash secret: %w", err)
	}
	a.PasswordHash = string(hash)
	id, err := s.repo.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update rewrites an account. The role is settled at creation: naming a
// different one is rejected before anything else is looked at. The target
// may move to another record of the same shape; a nil secret leaves the
// stored hash untouched.
func (s *Service) Update(ctx context.Context, p authn.Principal, a Account, secret *string) (*Account, error) {
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindAccount, authz.Facts{}); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if a.Role != "" && a.Role != existing.Role {
		return nil, fmt.Errorf("accounts: role is settled: %w", shared.ErrBadRequest)
	}
	a.Role = existing.Role
	if err := validateBinding(a.Role, a.EmployeeID, a.StudentID); err != nil {
		return nil, err
	}
	if err := s.checkTargetExists(ctx, a); err != nil {
		return nil, err
	}
	if err := s.checkTargetFree(ctx, a, a.ID); err != nil {
		return nil, err
	}
	if err := s.checkUsernameFree(ctx, a.Username, a.ID); err != nil {
		return nil, err
	}
	a.PasswordHash = existing.PasswordHash
	if secret != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("accounts: hash secret: %w", err)
		}
		a.PasswordHash = string(hash)
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, a.ID)
}

// Delete removes one account.
func (s *Service) Delete(ctx context.Context, p authn.Principal, id int64) error {
	if err := authz.Decide(p, authz.ActionDelete, authz.KindAccount, authz.Facts{}); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) checkTargetExists(ctx context.Context, a Account) error {
	if a.EmployeeID != nil {
		if _, err := s.resolver.EmployeeFacts(ctx, *a.EmployeeID); err != nil {
			return err
		}
	}
	if a.StudentID != nil {
		if _, err := s.resolver.StudentFacts(ctx, *a.StudentID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkTargetFree(ctx context.Context, a Account, selfID int64) error {
	if a.EmployeeID != nil {
		holder, err := s.repo.FindByEmployee(ctx, *a.EmployeeID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if holder != nil && holder.ID != selfID {
			return fmt.Errorf("accounts: employee already bound: %w", shared.ErrConflict)
		}
	}
	if a.StudentID != nil {
		holder, err := s.repo.FindByStudent(ctx, *a.StudentID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if holder != nil && holder.ID != selfID {
			return fmt.Errorf("accounts: student already bound: %w", shared.ErrConflict)
		}
	}
	return nil
}

func (s *Service) checkUsernameFree(ctx context.Context, username string, selfID int64) error {
	holder, err := s.repo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if holder != nil && holder.ID != selfID {
		return fmt.Errorf("accounts: username taken: %w", shared.ErrConflict)
	}
	return nil
}
