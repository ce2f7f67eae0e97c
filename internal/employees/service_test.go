package employees

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

type graphStore struct {
	repo *stubRepo
}

func (s *graphStore) CourseOwner(_ context.Context, _ int64) (int64, error) {
	return 0, shared.ErrNotFound
}

func (s *graphStore) TaskCourse(_ context.Context, _ int64) (int64, error) {
	return 0, shared.ErrNotFound
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

func (s *graphStore) EmployeeExists(_ context.Context, id int64) error {
	if _, ok := s.repo.employees[id]; !ok {
		return shared.ErrNotFound
	}
	return nil
}

func (s *graphStore) TokenCourse(_ context.Context, _ int64) (int64, error) {
	return 0, shared.ErrNotFound
}

type stubRepo struct {
	employees    map[int64]*Employee
	ownedCourses map[int64]int
	accounts     map[int64]bool // employee id -> bound credential record
	nextID       int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		employees:    make(map[int64]*Employee),
		ownedCourses: make(map[int64]int),
		accounts:     make(map[int64]bool),
		nextID:       1,
	}
}

func (r *stubRepo) Get(_ context.Context, id int64) (*Employee, error) {
	e, ok := r.employees[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *stubRepo) List(_ context.Context, _ shared.Page) ([]Employee, error) {
	var result []Employee
	for _, e := range r.employees {
		result = append(result, *e)
	}
	return result, nil
}

func (r *stubRepo) FindByIdentity(_ context.Context, firstName, lastName, middleName, department string) (*Employee, error) {
	for _, e := range r.employees {
		if e.FirstName == firstName && e.LastName == lastName &&
			e.MiddleName == middleName && e.Department == department {
			copied := *e
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubRepo) Create(_ context.Context, e Employee) (int64, error) {
	e.ID = r.nextID
	r.nextID++
	r.employees[e.ID] = &e
	return e.ID, nil
}

func (r *stubRepo) Update(_ context.Context, e Employee) error {
	if _, ok := r.employees[e.ID]; !ok {
		return shared.ErrNotFound
	}
	r.employees[e.ID] = &e
	return nil
}

// Delete mirrors the repository contract: the bound credential record goes
// away in the same step as the employee row.
func (r *stubRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.employees[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.accounts, id)
	delete(r.employees, id)
	return nil
}

func (r *stubRepo) CountOwnedCourses(_ context.Context, id int64) (int, error) {
	return r.ownedCourses[id], nil
}

func admin() authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleAdmin}
}

func headman(studentID int64) authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleHeadman, IdentityID: studentID}
}

func setup() (*Service, *stubRepo) {
	repo := newStubRepo()
	svc := NewService(repo, authz.NewResolver(&graphStore{repo: repo}))
	return svc, repo
}

func TestDirectoryIsReadableByAnyUser(t *testing.T) {
	svc, repo := setup()
	repo.employees[1] = &Employee{ID: 1, FirstName: "Ada", LastName: "Lovelace"}
	ctx := context.Background()

	_, err := svc.Get(ctx, headman(5), 1)
	require.NoError(t, err)

	_, err = svc.List(ctx, headman(5), shared.Page{Limit: 10})
	require.NoError(t, err)

	_, err = svc.Get(ctx, authn.Anonymous(), 1)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestWritesAreAdminOnly(t *testing.T) {
	svc, repo := setup()
	repo.employees[1] = &Employee{ID: 1, FirstName: "Ada", LastName: "Lovelace"}
	teacher := authn.Principal{Kind: authn.KindUser, Role: authn.RoleTeacher, IdentityID: 1}
	ctx := context.Background()

	_, err := svc.Create(ctx, teacher, Employee{FirstName: "Alan", LastName: "Turing"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// A teacher may not even edit its own record.
	_, err = svc.Update(ctx, teacher, Employee{ID: 1, FirstName: "Ada", LastName: "L"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Create(ctx, admin(), Employee{FirstName: "Alan", LastName: "Turing"})
	require.NoError(t, err)
}

func TestCreateDuplicateIdentityIsConflict(t *testing.T) {
	svc, repo := setup()
	repo.employees[1] = &Employee{ID: 1, FirstName: "Ada", LastName: "Lovelace", Department: "CS"}

	_, err := svc.Create(context.Background(), admin(),
		Employee{FirstName: "Ada", LastName: "Lovelace", Department: "CS"})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestDeleteRefusedWhileOwningCourses(t *testing.T) {
	svc, repo := setup()
	repo.employees[1] = &Employee{ID: 1, FirstName: "Ada", LastName: "Lovelace"}
	repo.ownedCourses[1] = 2
	ctx := context.Background()

	err := svc.Delete(ctx, admin(), 1)
	assert.ErrorIs(t, err, shared.ErrConflict)

	repo.ownedCourses[1] = 0
	require.NoError(t, svc.Delete(ctx, admin(), 1))
}

func TestDeleteReleasesBoundAccount(t *testing.T) {
	svc, repo := setup()
	repo.employees[1] = &Employee{ID: 1, FirstName: "Ada", LastName: "Lovelace"}
	repo.accounts[1] = true

	// An employee with a credential record but no courses deletes cleanly;
	// the account goes with it instead of blocking the delete.
	require.NoError(t, svc.Delete(context.Background(), admin(), 1))
	assert.False(t, repo.accounts[1])
	_, err := svc.Get(context.Background(), admin(), 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
