package submissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// RepositoryPort defines data access methods for submissions.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Submission, error)
	FindByTaskStudent(ctx context.Context, taskID, studentID int64) (*Submission, error)
	ListByTask(ctx context.Context, taskID int64) ([]Submission, error)
	Create(ctx context.Context, s Submission) (*Submission, error)
	Update(ctx context.Context, s Submission) error
	Delete(ctx context.Context, id int64) error
}

// Service handles submission business logic.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// ListByTask returns the submissions of one task.
func (s *Service) ListByTask(ctx context.Context, p authn.Principal, taskID int64) ([]Submission, error) {
	facts, err := s.resolver.TaskFacts(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindSubmission, facts); err != nil {
		return nil, err
	}
	return s.repo.ListByTask(ctx, taskID)
}

// Get fetches one submission.
func (s *Service) Get(ctx context.Context, p authn.Principal, id int64) (*Submission, error) {
	facts, err := s.resolver.SubmissionFacts(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindSubmission, facts); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create records a submission. Authorization facts come from the target
// task plus the submitting student, matching what a resolve of the stored
// row would produce.
func (s *Service) Create(ctx context.Context, p authn.Principal, sub Submission) (*Submission, error) {
	facts, err := s.resolver.TaskFacts(ctx, sub.TaskID)
	if err != nil {
		return nil, err
	}
	studentFacts, err := s.resolver.StudentFacts(ctx, sub.StudentID)
	if err != nil {
		return nil, err
	}
	facts.StudentID = studentFacts.StudentID
	if err := authz.Decide(p, authz.ActionCreate, authz.KindSubmission, facts); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByTaskStudent(ctx, sub.TaskID, sub.StudentID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("submissions: student already submitted: %w", shared.ErrConflict)
	}
	return s.repo.Create(ctx, sub)
}

// Update rewrites a submission's text and grade. The task and student
// links are structural and rejected when a request tries to move them.
func (s *Service) Update(ctx context.Context, p authn.Principal, sub Submission) (*Submission, error) {
	facts, err := s.resolver.SubmissionFacts(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindSubmission, facts); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if sub.TaskID != 0 && sub.TaskID != existing.TaskID {
		return nil, fmt.Errorf("submissions: task is immutable: %w", shared.ErrBadRequest)
	}
	if sub.StudentID != 0 && sub.StudentID != existing.StudentID {
		return nil, fmt.Errorf("submissions: student is immutable: %w", shared.ErrBadRequest)
	}
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, sub.ID)
}

// Delete removes one submission.
func (s *Service) Delete(ctx context.Context, p authn.Principal, id int64) error {
	facts, err := s.resolver.SubmissionFacts(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Decide(p, authz.ActionDelete, authz.KindSubmission, facts); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
