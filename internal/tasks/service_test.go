package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// graphStore is a minimal ownership graph for resolver-backed tests.
type graphStore struct {
	courseOwners map[int64]int64
	taskCourses  map[int64]int64
}

func (s *graphStore) CourseOwner(_ context.Context, id int64) (int64, error) {
	owner, ok := s.courseOwners[id]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return owner, nil
}

func (s *graphStore) TaskCourse(_ context.Context, id int64) (int64, error) {
	courseID, ok := s.taskCourses[id]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return courseID, nil
}

func (s *graphStore) CriteriaTask(_ context.Context, _ int64) (int64, error) {
	return 0, shared.ErrNotFound
}

func (s *graphStore) SubmissionRef(_ context.Context, _ int64) (int64, int64, error) {
	return 0, 0, shared.ErrNotFound
}

func (s *graphStore) AttendanceRef(_ context.Context, _ int64) (int64, int64, error) {
	return 0, 0, shared.ErrNotFound
}

func (s *graphStore) StudentCourse(_ context.Context, _ int64) (*int64, error) {
	return nil, shared.ErrNotFound
}

func (s *graphStore) EmployeeExists(_ context.Context, _ int64) error {
	return shared.ErrNotFound
}

func (s *graphStore) TokenCourse(_ context.Context, _ int64) (int64, error) {
	return 0, shared.ErrNotFound
}

// stubRepo keeps tasks in memory and records renumber calls.
type stubRepo struct {
	tasks      map[int64]*Task
	criteria   map[int64]*Criteria
	renumbered [][]ReorderPair
	nextID     int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{tasks: make(map[int64]*Task), criteria: make(map[int64]*Criteria), nextID: 1}
}

func (r *stubRepo) Get(_ context.Context, id int64) (*Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *stubRepo) ListByCourse(_ context.Context, courseID int64) ([]Task, error) {
	var result []Task
	for _, t := range r.tasks {
		if t.CourseID == courseID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (r *stubRepo) Create(_ context.Context, t Task) (int64, error) {
	t.ID = r.nextID
	r.nextID++
	r.tasks[t.ID] = &t
	return t.ID, nil
}

func (r *stubRepo) Update(_ context.Context, t Task) error {
	if _, ok := r.tasks[t.ID]; !ok {
		return shared.ErrNotFound
	}
	r.tasks[t.ID] = &t
	return nil
}

func (r *stubRepo) DeleteCascade(_ context.Context, id int64) error {
	if _, ok := r.tasks[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *stubRepo) Renumber(_ context.Context, _ int64, pairs []ReorderPair) error {
	r.renumbered = append(r.renumbered, pairs)
	for _, p := range pairs {
		r.tasks[p.TaskID].TaskNumber = p.NewNumber
	}
	return nil
}

func (r *stubRepo) GetCriteria(_ context.Context, id int64) (*Criteria, error) {
	c, ok := r.criteria[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *stubRepo) ListCriteria(_ context.Context, taskID int64) ([]Criteria, error) {
	var result []Criteria
	for _, c := range r.criteria {
		if c.TaskID == taskID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (r *stubRepo) CreateCriteria(_ context.Context, c Criteria) (*Criteria, error) {
	c.ID = r.nextID
	r.nextID++
	r.criteria[c.ID] = &c
	return &c, nil
}

func (r *stubRepo) UpdateCriteria(_ context.Context, c Criteria) error {
	if _, ok := r.criteria[c.ID]; !ok {
		return shared.ErrNotFound
	}
	r.criteria[c.ID] = &c
	return nil
}

func (r *stubRepo) DeleteCriteria(_ context.Context, id int64) error {
	if _, ok := r.criteria[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.criteria, id)
	return nil
}

func owner() authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleTeacher, IdentityID: 1}
}

func otherTeacher() authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleTeacher, IdentityID: 2}
}

func courseToken(courseID int64) authn.Principal {
	return authn.Principal{Kind: authn.KindCourseToken, BoundCourseID: courseID}
}

// fixture: course 10 owned by employee 1, tasks 100..102 numbered 1..3.
func setup() (*Service, *stubRepo) {
	graph := &graphStore{
		courseOwners: map[int64]int64{10: 1},
		taskCourses:  map[int64]int64{100: 10, 101: 10, 102: 10},
	}
	repo := newStubRepo()
	repo.tasks[100] = &Task{ID: 100, CourseID: 10, TaskNumber: 1, Name: "one"}
	repo.tasks[101] = &Task{ID: 101, CourseID: 10, TaskNumber: 2, Name: "two"}
	repo.tasks[102] = &Task{ID: 102, CourseID: 10, TaskNumber: 3, Name: "three"}
	return NewService(repo, authz.NewResolver(graph)), repo
}

func TestReorderSwapByOwner(t *testing.T) {
	svc, repo := setup()

	err := svc.Reorder(context.Background(), owner(), 10, []ReorderPair{
		{TaskID: 100, NewNumber: 2},
		{TaskID: 101, NewNumber: 1},
	})
	require.NoError(t, err)
	assert.Len(t, repo.renumbered, 1)
	assert.Equal(t, 2, repo.tasks[100].TaskNumber)
	assert.Equal(t, 1, repo.tasks[101].TaskNumber)
}

func TestReorderDeniedForOutsiders(t *testing.T) {
	svc, repo := setup()
	pairs := []ReorderPair{{TaskID: 100, NewNumber: 2}, {TaskID: 101, NewNumber: 1}}

	err := svc.Reorder(context.Background(), otherTeacher(), 10, pairs)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	err = svc.Reorder(context.Background(), courseToken(10), 10, pairs)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	assert.Empty(t, repo.renumbered)
}

func TestReorderDuplicateTargetIsBadRequest(t *testing.T) {
	svc, repo := setup()

	err := svc.Reorder(context.Background(), owner(), 10, []ReorderPair{
		{TaskID: 100, NewNumber: 5},
		{TaskID: 101, NewNumber: 5},
	})
	assert.ErrorIs(t, err, shared.ErrBadRequest)
	assert.Empty(t, repo.renumbered)
}

func TestReorderForeignAndMissingTasks(t *testing.T) {
	svc, repo := setup()
	// Task 200 lives in course 20, task 999 does not exist anywhere.
	repo.tasks[200] = &Task{ID: 200, CourseID: 20, TaskNumber: 1}

	err := svc.Reorder(context.Background(), owner(), 10, []ReorderPair{{TaskID: 200, NewNumber: 9}})
	assert.ErrorIs(t, err, shared.ErrBadRequest)

	err = svc.Reorder(context.Background(), owner(), 10, []ReorderPair{{TaskID: 999, NewNumber: 9}})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.Empty(t, repo.renumbered)
}

func TestReorderOutOfSetCollisionIsConflict(t *testing.T) {
	svc, repo := setup()

	// Task 102 holds number 3 and is not part of the set.
	err := svc.Reorder(context.Background(), owner(), 10, []ReorderPair{
		{TaskID: 100, NewNumber: 3},
		{TaskID: 101, NewNumber: 1},
	})
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Empty(t, repo.renumbered)
	assert.Equal(t, 1, repo.tasks[100].TaskNumber)
}

func TestCreateRejectsInconsistentDeadlines(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()
	now := time.Now()
	later := now.Add(time.Hour)
	yes := true

	_, err := svc.Create(ctx, owner(), Task{CourseID: 10, TaskNumber: 4, Name: "x", SoftDeadline: &now}, &yes)
	assert.ErrorIs(t, err, shared.ErrBadRequest)

	_, err = svc.Create(ctx, owner(), Task{CourseID: 10, TaskNumber: 4, Name: "x", SoftDeadline: &later, HardDeadline: &now}, &yes)
	assert.ErrorIs(t, err, shared.ErrBadRequest)

	// One deadline without an explicit enablement flag is ambiguous.
	_, err = svc.Create(ctx, owner(), Task{CourseID: 10, TaskNumber: 4, Name: "x", HardDeadline: &later}, nil)
	assert.ErrorIs(t, err, shared.ErrBadRequest)

	created, err := svc.Create(ctx, owner(), Task{CourseID: 10, TaskNumber: 4, Name: "x", SoftDeadline: &now, HardDeadline: &later}, &yes)
	require.NoError(t, err)
	assert.True(t, created.DeadlinesEnabled)
}

func TestCreateDuplicateNumberIsConflict(t *testing.T) {
	svc, _ := setup()

	_, err := svc.Create(context.Background(), owner(), Task{CourseID: 10, TaskNumber: 1, Name: "dup"}, nil)
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateCourseIsImmutable(t *testing.T) {
	svc, _ := setup()

	_, err := svc.Update(context.Background(), owner(), Task{ID: 100, CourseID: 20, TaskNumber: 1, Name: "one"}, nil)
	assert.ErrorIs(t, err, shared.ErrBadRequest)
}

func TestCriteriaNameUniqueWithinTask(t *testing.T) {
	svc, repo := setup()
	ctx := context.Background()
	repo.criteria[500] = &Criteria{ID: 500, TaskID: 100, Name: "style"}

	_, err := svc.CreateCriteria(ctx, owner(), Criteria{TaskID: 100, Name: "style"})
	assert.ErrorIs(t, err, shared.ErrConflict)

	// The same name under a different task is fine.
	created, err := svc.CreateCriteria(ctx, owner(), Criteria{TaskID: 101, Name: "style"})
	require.NoError(t, err)
	assert.Equal(t, int64(101), created.TaskID)
}

func TestCriteriaTaskIsImmutable(t *testing.T) {
	svc, repo := setup()
	repo.criteria[500] = &Criteria{ID: 500, TaskID: 100, Name: "style"}

	_, err := svc.UpdateCriteria(context.Background(), owner(), Criteria{ID: 500, TaskID: 101, Name: "style"})
	assert.ErrorIs(t, err, shared.ErrBadRequest)
}
