package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// RepositoryPort defines data access methods for tasks and criteria.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Task, error)
	ListByCourse(ctx context.Context, courseID int64) ([]Task, error)
	Create(ctx context.Context, t Task) (int64, error)
	Update(ctx context.Context, t Task) error
	DeleteCascade(ctx context.Context, id int64) error
	Renumber(ctx context.Context, courseID int64, pairs []ReorderPair) error

	GetCriteria(ctx context.Context, id int64) (*Criteria, error)
	ListCriteria(ctx context.Context, taskID int64) ([]Criteria, error)
	CreateCriteria(ctx context.Context, c Criteria) (*Criteria, error)
	UpdateCriteria(ctx context.Context, c Criteria) error
	DeleteCriteria(ctx context.Context, id int64) error
}

// Service handles task and criteria business logic.
type Service struct {
	repo     RepositoryPort
	resolver *authz.Resolver
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, resolver *authz.Resolver) *Service {
	return &Service{repo: repo, resolver: resolver}
}

// List returns the tasks of one course.
func (s *Service) List(ctx context.Context, p authn.Principal, courseID int64) ([]Task, error) {
	facts, err := s.resolver.CourseFacts(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindTask, facts); err != nil {
		return nil, err
	}
	return s.repo.ListByCourse(ctx, courseID)
}

// Get fetches one task.
func (s *Service) Get(ctx context.Context, p authn.Principal, id int64) (*Task, error) {
	facts, err := s.resolver.TaskFacts(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindTask, facts); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Create registers a task inside a course. The enabled argument carries
// the request's tri-state deadline enablement flag.
func (s *Service) Create(ctx context.Context, p authn.Principal, t Task, enabled *bool) (*Task, error) {
	facts, err := s.resolver.CourseFacts(ctx, t.CourseID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionCreate, authz.KindTask, facts); err != nil {
		return nil, err
	}
	t.DeadlinesEnabled, err = resolveDeadlines(enabled, t.SoftDeadline, t.HardDeadline)
	if err != nil {
		return nil, err
	}
	if err := s.checkNumberFree(ctx, t.CourseID, t.TaskNumber, 0); err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update rewrites a task. The course link is structural and never moves:
// a request naming a different course is rejected before authorization
// facts are even consulted.
func (s *Service) Update(ctx context.Context, p authn.Principal, t Task, enabled *bool) (*Task, error) {
	existing, err := s.repo.Get(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if t.CourseID != 0 && t.CourseID != existing.CourseID {
		return nil, fmt.Errorf("tasks: course is immutable: %w", shared.ErrBadRequest)
	}
	t.CourseID = existing.CourseID
	facts, err := s.resolver.TaskFacts(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindTask, facts); err != nil {
		return nil, err
	}
	t.DeadlinesEnabled, err = resolveDeadlines(enabled, t.SoftDeadline, t.HardDeadline)
	if err != nil {
		return nil, err
	}
	if err := s.checkNumberFree(ctx, t.CourseID, t.TaskNumber, t.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, t.ID)
}

// Delete removes a task together with its criteria and submissions.
func (s *Service) Delete(ctx context.Context, p authn.Principal, id int64) error {
	facts, err := s.resolver.TaskFacts(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Decide(p, authz.ActionDelete, authz.KindTask, facts); err != nil {
		return err
	}
	return s.repo.DeleteCascade(ctx, id)
}

// Reorder atomically reassigns task numbers within one course. The input
// is the full desired ordering for some subset of the course's tasks:
// every referenced task must belong to the course, target numbers must be
// pairwise distinct, and no target number may collide with a task outside
// the input set. Either every reassignment applies or none does.
func (s *Service) Reorder(ctx context.Context, p authn.Principal, courseID int64, pairs []ReorderPair) error {
	facts, err := s.resolver.CourseFacts(ctx, courseID)
	if err != nil {
		return err
	}
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindTask, facts); err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("tasks: empty reorder set: %w", shared.ErrBadRequest)
	}

	inCourse, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	current := make(map[int64]int, len(inCourse))
	for _, t := range inCourse {
		current[t.ID] = t.TaskNumber
	}

	inSet := make(map[int64]struct{}, len(pairs))
	targets := make(map[int]struct{}, len(pairs))
	for _, pair := range pairs {
		if _, dup := inSet[pair.TaskID]; dup {
			return fmt.Errorf("tasks: task %d listed twice: %w", pair.TaskID, shared.ErrBadRequest)
		}
		inSet[pair.TaskID] = struct{}{}
		if _, ok := current[pair.TaskID]; !ok {
			// Distinguish a task that lives in another course from one
			// that does not exist at all.
			if _, err := s.repo.Get(ctx, pair.TaskID); err != nil {
				return err
			}
			return fmt.Errorf("tasks: task %d not in course %d: %w", pair.TaskID, courseID, shared.ErrBadRequest)
		}
		if _, dup := targets[pair.NewNumber]; dup {
			return fmt.Errorf("tasks: duplicate target number %d: %w", pair.NewNumber, shared.ErrBadRequest)
		}
		targets[pair.NewNumber] = struct{}{}
	}
	for _, t := range inCourse {
		if _, moved := inSet[t.ID]; moved {
			continue
		}
		if _, hit := targets[t.TaskNumber]; hit {
			return fmt.Errorf("tasks: number %d held by task %d outside the set: %w",
				t.TaskNumber, t.ID, shared.ErrConflict)
		}
	}
	return s.repo.Renumber(ctx, courseID, pairs)
}

func (s *Service) checkNumberFree(ctx context.Context, courseID int64, number int, selfID int64) error {
	existing, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	for _, t := range existing {
		if t.TaskNumber == number && t.ID != selfID {
			return fmt.Errorf("tasks: number %d taken in course %d: %w", number, courseID, shared.ErrConflict)
		}
	}
	return nil
}

// ListCriteria returns the criteria of one task.
func (s *Service) ListCriteria(ctx context.Context, p authn.Principal, taskID int64) ([]Criteria, error) {
	facts, err := s.resolver.TaskFacts(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindCriteria, facts); err != nil {
		return nil, err
	}
	return s.repo.ListCriteria(ctx, taskID)
}

// GetCriteria fetches one criteria row.
func (s *Service) GetCriteria(ctx context.Context, p authn.Principal, id int64) (*Criteria, error) {
	facts, err := s.resolver.CriteriaFacts(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionRead, authz.KindCriteria, facts); err != nil {
		return nil, err
	}
	return s.repo.GetCriteria(ctx, id)
}

// CreateCriteria adds a criterion to a task.
func (s *Service) CreateCriteria(ctx context.Context, p authn.Principal, c Criteria) (*Criteria, error) {
	facts, err := s.resolver.TaskFacts(ctx, c.TaskID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionCreate, authz.KindCriteria, facts); err != nil {
		return nil, err
	}
	if err := s.checkCriteriaNameFree(ctx, c.TaskID, c.Name, 0); err != nil {
		return nil, err
	}
	return s.repo.CreateCriteria(ctx, c)
}

// UpdateCriteria rewrites a criterion. The task link never moves.
func (s *Service) UpdateCriteria(ctx context.Context, p authn.Principal, c Criteria) (*Criteria, error) {
	existing, err := s.repo.GetCriteria(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if c.TaskID != 0 && c.TaskID != existing.TaskID {
		return nil, fmt.Errorf("criteria: task is immutable: %w", shared.ErrBadRequest)
	}
	c.TaskID = existing.TaskID
	facts, err := s.resolver.CriteriaFacts(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if err := authz.Decide(p, authz.ActionUpdate, authz.KindCriteria, facts); err != nil {
		return nil, err
	}
	if err := s.checkCriteriaNameFree(ctx, c.TaskID, c.Name, c.ID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCriteria(ctx, c); err != nil {
		return nil, err
	}
	return s.repo.GetCriteria(ctx, c.ID)
}

// DeleteCriteria removes one criterion.
func (s *Service) DeleteCriteria(ctx context.Context, p authn.Principal, id int64) error {
	facts, err := s.resolver.CriteriaFacts(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Decide(p, authz.ActionDelete, authz.KindCriteria, facts); err != nil {
		return err
	}
	return s.repo.DeleteCriteria(ctx, id)
}

func (s *Service) checkCriteriaNameFree(ctx context.Context, taskID int64, name string, selfID int64) error {
	existing, err := s.repo.ListCriteria(ctx, taskID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	for _, c := range existing {
		if c.Name == name && c.ID != selfID {
			return fmt.Errorf("criteria: name %q taken in task %d: %w", name, taskID, shared.ErrConflict)
		}
	}
	return nil
}
