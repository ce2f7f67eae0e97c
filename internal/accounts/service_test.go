package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/authz"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// graphStore exposes the employee and student records the account checks
// walk.
type graphStore struct {
	employees map[int64]struct{}
	students  map[int64]struct{}
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

func (s *graphStore) StudentCourse(_ context.Context, id int64) (*int64, error) {
	if _, ok := s.students[id]; !ok {
		return nil, shared.ErrNotFound
	}
	return nil, nil
}

func (s *graphStore) EmployeeExists(_ context.Context, id int64) error {
	if _, ok := s.employees[id]; !ok {
		return shared.ErrNotFound
	}
	return nil
}

func (s *graphStore) TokenCourse(_ context.Context, _ int64) (int64, error) {
	return 0, shared.ErrNotFound
}

type stubRepo struct {
	accounts map[int64]*Account
	nextID   int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{accounts: make(map[int64]*Account), nextID: 1}
}

func (r *stubRepo) Get(_ context.Context, id int64) (*Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *stubRepo) FindByUsername(_ context.Context, username string) (*Account, error) {
	for _, a := range r.accounts {
		if a.Username == username {
			copied := *a
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubRepo) FindByEmployee(_ context.Context, employeeID int64) (*Account, error) {
	for _, a := range r.accounts {
		if a.EmployeeID != nil && *a.EmployeeID == employeeID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubRepo) FindByStudent(_ context.Context, studentID int64) (*Account, error) {
	for _, a := range r.accounts {
		if a.StudentID != nil && *a.StudentID == studentID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubRepo) List(_ context.Context, _ shared.Page) ([]Account, error) {
	var result []Account
	for _, a := range r.accounts {
		result = append(result, *a)
	}
	return result, nil
}

func (r *stubRepo) Create(_ context.Context, a Account) (int64, error) {
	a.ID = r.nextID
	r.nextID++
	r.accounts[a.ID] = &a
	return a.ID, nil
}

func (r *stubRepo) Update(_ context.Context, a Account) error {
	if _, ok := r.accounts[a.ID]; !ok {
		return shared.ErrNotFound
	}
	r.accounts[a.ID] = &a
	return nil
}

func (r *stubRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.accounts[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

func admin() authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleAdmin}
}

func ptr(v int64) *int64 { return &v }

func setupWithRepo() (*Service, *stubRepo) {
	graph := &graphStore{
		employees: map[int64]struct{}{1: {}, 2: {}},
		students:  map[int64]struct{}{5: {}},
	}
	repo := newStubRepo()
	return NewService(repo, authz.NewResolver(graph)), repo
}

func TestCreateOnlyAdmin(t *testing.T) {
	svc, _ := setupWithRepo()
	teacher := authn.Principal{Kind: authn.KindUser, Role: authn.RoleTeacher, IdentityID: 1}

	_, err := svc.Create(context.Background(), teacher,
		Account{Username: "u", Role: authn.RoleAdmin}, "secret-pass")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.List(context.Background(), authn.Anonymous(), shared.Page{Limit: 10})
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestCreateRoleTargetShape(t *testing.T) {
	svc, _ := setupWithRepo()
	ctx := context.Background()

	cases := []struct {
		name    string
		account Account
	}{
		{"admin with employee", Account{Username: "a", Role: authn.RoleAdmin, EmployeeID: ptr(1)}},
		{"teacher without employee", Account{Username: "b", Role: authn.RoleTeacher}},
		{"teacher with student", Account{Username: "c", Role: authn.RoleTeacher, EmployeeID: ptr(1), StudentID: ptr(5)}},
		{"headman without student", Account{Username: "d", Role: authn.RoleHeadman}},
		{"headman with employee", Account{Username: "e", Role: authn.RoleHeadman, StudentID: ptr(5), EmployeeID: ptr(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, admin(), tc.account, "secret-pass")
			assert.ErrorIs(t, err, shared.ErrBadRequest)
		})
	}
}

func TestCreateChecksShapeBeforeExistence(t *testing.T) {
	svc, _ := setupWithRepo()

	// Both targets set and the student does not exist: the structural
	// violation wins over the missing record.
	_, err := svc.Create(context.Background(), admin(),
		Account{Username: "u", Role: authn.RoleTeacher, EmployeeID: ptr(99), StudentID: ptr(99)}, "secret-pass")
	assert.ErrorIs(t, err, shared.ErrBadRequest)

	// Shape is right but the employee does not exist.
	_, err = svc.Create(context.Background(), admin(),
		Account{Username: "u", Role: authn.RoleTeacher, EmployeeID: ptr(99)}, "secret-pass")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateTargetAndUsernameConflicts(t *testing.T) {
	svc, repo := setupWithRepo()
	ctx := context.Background()

	first, err := svc.Create(ctx, admin(),
		Account{Username: "ada", Role: authn.RoleTeacher, EmployeeID: ptr(1)}, "secret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, repo.accounts[first.ID].PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword(
		[]byte(repo.accounts[first.ID].PasswordHash), []byte("secret-pass")))

	// Employee 1 is already bound.
	_, err = svc.Create(ctx, admin(),
		Account{Username: "other", Role: authn.RoleTeacher, EmployeeID: ptr(1)}, "secret-pass")
	assert.ErrorIs(t, err, shared.ErrConflict)

	// Username is already taken.
	_, err = svc.Create(ctx, admin(),
		Account{Username: "ada", Role: authn.RoleTeacher, EmployeeID: ptr(2)}, "secret-pass")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateRoleIsSettled(t *testing.T) {
	svc, _ := setupWithRepo()
	ctx := context.Background()

	created, err := svc.Create(ctx, admin(),
		Account{Username: "ada", Role: authn.RoleTeacher, EmployeeID: ptr(1)}, "secret-pass")
	require.NoError(t, err)

	_, err = svc.Update(ctx, admin(),
		Account{ID: created.ID, Username: "ada", Role: authn.RoleHeadman, StudentID: ptr(5)}, nil)
	assert.ErrorIs(t, err, shared.ErrBadRequest)

	// Moving the binding to another employee of the same shape is allowed.
	updated, err := svc.Update(ctx, admin(),
		Account{ID: created.ID, Username: "ada", EmployeeID: ptr(2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), *updated.EmployeeID)
	assert.Equal(t, authn.RoleTeacher, updated.Role)
}

func TestUpdateKeepsHashWhenSecretOmitted(t *testing.T) {
	svc, repo := setupWithRepo()
	ctx := context.Background()

	created, err := svc.Create(ctx, admin(),
		Account{Username: "ada", Role: authn.RoleTeacher, EmployeeID: ptr(1)}, "secret-pass")
	require.NoError(t, err)
	before := repo.accounts[created.ID].PasswordHash

	_, err = svc.Update(ctx, admin(),
		Account{ID: created.ID, Username: "ada2", EmployeeID: ptr(1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, before, repo.accounts[created.ID].PasswordHash)
}
