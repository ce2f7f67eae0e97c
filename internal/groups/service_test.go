package groups

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

type stubRepo struct {
	faculties map[int64]*Faculty
	groups    map[int64]*Group
	students  map[int64]int
	nextID    int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		faculties: make(map[int64]*Faculty),
		groups:    make(map[int64]*Group),
		students:  make(map[int64]int),
		nextID:    1,
	}
}

func (r *stubRepo) GetFaculty(_ context.Context, id int64) (*Faculty, error) {
	f, ok := r.faculties[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *f
	return &copied, nil
}

func (r *stubRepo) ListFaculties(_ context.Context, _ shared.Page) ([]Faculty, error) {
	var result []Faculty
	for _, f := range r.faculties {
		result = append(result, *f)
	}
	return result, nil
}

func (r *stubRepo) CreateFaculty(_ context.Context, name string) (int64, error) {
	for _, f := range r.faculties {
		if f.Name == name {
			return 0, shared.ErrConflict
		}
	}
	id := r.nextID
	r.nextID++
	r.faculties[id] = &Faculty{ID: id, Name: name}
	return id, nil
}

func (r *stubRepo) UpdateFaculty(_ context.Context, id int64, name string) error {
	f, ok := r.faculties[id]
	if !ok {
		return shared.ErrNotFound
	}
	f.Name = name
	return nil
}

func (r *stubRepo) DeleteFaculty(_ context.Context, id int64) error {
	if _, ok := r.faculties[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.faculties, id)
	return nil
}

func (r *stubRepo) CountFacultyGroups(_ context.Context, facultyID int64) (int, error) {
	count := 0
	for _, g := range r.groups {
		if g.FacultyID == facultyID {
			count++
		}
	}
	return count, nil
}

func (r *stubRepo) GetGroup(_ context.Context, id int64) (*Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *stubRepo) ListGroups(_ context.Context, _ shared.Page) ([]Group, error) {
	var result []Group
	for _, g := range r.groups {
		result = append(result, *g)
	}
	return result, nil
}

func (r *stubRepo) CreateGroup(_ context.Context, g Group) (int64, error) {
	for _, existing := range r.groups {
		if existing.Name == g.Name && existing.FacultyID == g.FacultyID {
			return 0, shared.ErrConflict
		}
	}
	g.ID = r.nextID
	r.nextID++
	r.groups[g.ID] = &g
	return g.ID, nil
}

func (r *stubRepo) UpdateGroup(_ context.Context, g Group) error {
	existing, ok := r.groups[g.ID]
	if !ok {
		return shared.ErrNotFound
	}
	existing.Name = g.Name
	existing.CourseID = g.CourseID
	return nil
}

func (r *stubRepo) DeleteGroup(_ context.Context, id int64) error {
	if _, ok := r.groups[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.groups, id)
	return nil
}

func (r *stubRepo) CountGroupStudents(_ context.Context, groupID int64) (int, error) {
	return r.students[groupID], nil
}

func admin() authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleAdmin}
}

func headman(studentID int64) authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleHeadman, IdentityID: studentID}
}

func setup() (*Service, *stubRepo) {
	repo := newStubRepo()
	repo.faculties[1] = &Faculty{ID: 1, Name: "Computer Science"}
	repo.groups[2] = &Group{ID: 2, Name: "CS-101", FacultyID: 1, CourseID: 10}
	repo.nextID = 3
	return NewService(repo), repo
}

func TestDirectoryReadsAreOpenWritesAreNot(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	_, err := svc.ListGroups(ctx, headman(5), shared.Page{Limit: 10})
	require.NoError(t, err)

	token := authn.Principal{Kind: authn.KindCourseToken, BoundCourseID: 99}
	_, err = svc.GetFaculty(ctx, token, 1)
	require.NoError(t, err)

	_, err = svc.CreateFaculty(ctx, headman(5), "Mathematics")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.ListGroups(ctx, authn.Anonymous(), shared.Page{Limit: 10})
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestGroupFacultyIsImmutable(t *testing.T) {
	svc, repo := setup()
	repo.faculties[5] = &Faculty{ID: 5, Name: "Mathematics"}

	_, err := svc.UpdateGroup(context.Background(), admin(),
		Group{ID: 2, Name: "CS-101", FacultyID: 5, CourseID: 10})
	assert.ErrorIs(t, err, shared.ErrBadRequest)

	// Renaming within the same faculty is fine, as is omitting the link.
	updated, err := svc.UpdateGroup(context.Background(), admin(),
		Group{ID: 2, Name: "CS-102", CourseID: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.FacultyID)
	assert.Equal(t, "CS-102", updated.Name)
}

func TestDeletesRefuseWhileChildrenExist(t *testing.T) {
	svc, repo := setup()
	ctx := context.Background()

	err := svc.DeleteFaculty(ctx, admin(), 1)
	assert.ErrorIs(t, err, shared.ErrConflict)

	repo.students[2] = 3
	err = svc.DeleteGroup(ctx, admin(), 2)
	assert.ErrorIs(t, err, shared.ErrConflict)

	repo.students[2] = 0
	require.NoError(t, svc.DeleteGroup(ctx, admin(), 2))
	require.NoError(t, svc.DeleteFaculty(ctx, admin(), 1))
}

func TestGroupNameUniqueWithinFaculty(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	_, err := svc.CreateGroup(ctx, admin(), Group{Name: "CS-101", FacultyID: 1, CourseID: 10})
	assert.ErrorIs(t, err, shared.ErrConflict)

	created, err := svc.CreateGroup(ctx, admin(), Group{Name: "CS-201", FacultyID: 1, CourseID: 10})
	require.NoError(t, err)
	assert.Equal(t, "CS-201", created.Name)
}
