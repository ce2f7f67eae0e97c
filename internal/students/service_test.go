package students

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
	repo         *stubRepo
	courseOwners map[int64]int64
}

func (s *graphStore) CourseOwner(_ context.Context, id int64) (int64, error) {
	owner, ok := s.courseOwners[id]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return owner, nil
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
	student, ok := s.repo.students[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return student.EnrolledCourseID, nil
}

func (s *graphStore) EmployeeExists(_ context.Context, _ int64) error {
	return shared.ErrNotFound
}

func (s *graphStore) TokenCourse(_ context.Context, _ int64) (int64, error) {
	return 0, shared.ErrNotFound
}

type stubRepo struct {
	students map[int64]*Student
	nextID   int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{students: make(map[int64]*Student), nextID: 1}
}

func (r *stubRepo) Get(_ context.Context, id int64) (*Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *stubRepo) List(_ context.Context, _ shared.Page) ([]Student, error) {
	var result []Student
	for _, s := range r.students {
		result = append(result, *s)
	}
	return result, nil
}

func (r *stubRepo) Create(_ context.Context, s Student) (int64, error) {
	s.ID = r.nextID
	r.nextID++
	r.students[s.ID] = &s
	return s.ID, nil
}

func (r *stubRepo) Update(_ context.Context, s Student) error {
	existing, ok := r.students[s.ID]
	if !ok {
		return shared.ErrNotFound
	}
	existing.FirstName = s.FirstName
	existing.LastName = s.LastName
	existing.MiddleName = s.MiddleName
	existing.GroupID = s.GroupID
	return nil
}

func (r *stubRepo) DeleteCascade(_ context.Context, id int64) error {
	if _, ok := r.students[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.students, id)
	return nil
}

func admin() authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleAdmin}
}

func teacher(employeeID int64) authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleTeacher, IdentityID: employeeID}
}

func headman(studentID int64) authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleHeadman, IdentityID: studentID}
}

func ptr(v int64) *int64 { return &v }

// fixture: course 10 owned by employee 1; student 5 enrolled into course 10
// at creation, student 6 with no enrolling course.
func setup() (*Service, *stubRepo) {
	repo := newStubRepo()
	repo.students[5] = &Student{ID: 5, FirstName: "Alan", LastName: "Turing", GroupID: 2, EnrolledCourseID: ptr(10)}
	repo.students[6] = &Student{ID: 6, FirstName: "Grace", LastName: "Hopper", GroupID: 2}
	repo.nextID = 7
	graph := &graphStore{repo: repo, courseOwners: map[int64]int64{10: 1}}
	return NewService(repo, authz.NewResolver(graph)), repo
}

func TestCreateCapturesEnrollingCourse(t *testing.T) {
	svc, repo := setup()
	ctx := context.Background()

	created, err := svc.Create(ctx, admin(),
		Student{FirstName: "Edsger", LastName: "Dijkstra", GroupID: 2, EnrolledCourseID: ptr(10)})
	require.NoError(t, err)
	require.NotNil(t, created.EnrolledCourseID)
	assert.Equal(t, int64(10), *created.EnrolledCourseID)

	// The captured course now routes the ownership walk to employee 1.
	_, err = svc.Get(ctx, teacher(1), created.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, teacher(2), created.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// A dangling enrolling course fails before any row is written.
	before := len(repo.students)
	_, err = svc.Create(ctx, admin(),
		Student{FirstName: "John", LastName: "Backus", GroupID: 2, EnrolledCourseID: ptr(99)})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Len(t, repo.students, before)
}

func TestCreateIsDeniedToTeachers(t *testing.T) {
	svc, _ := setup()

	// Student records are directory writes, admin territory even when the
	// enrolling course is the teacher's own.
	_, err := svc.Create(context.Background(), teacher(1),
		Student{FirstName: "Edsger", LastName: "Dijkstra", GroupID: 2, EnrolledCourseID: ptr(10)})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestReadsFollowEnrollingCourseAndSelf(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	// Teacher 1 reaches the student enrolled in its course, but not the
	// student with no enrolling course on record.
	_, err := svc.Get(ctx, teacher(1), 5)
	require.NoError(t, err)
	_, err = svc.Get(ctx, teacher(1), 6)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// A headman reads its own record only.
	_, err = svc.Get(ctx, headman(5), 5)
	require.NoError(t, err)
	_, err = svc.Get(ctx, headman(5), 6)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// A token bound to the enrolling course reads, any other token does not.
	_, err = svc.Get(ctx, authn.Principal{Kind: authn.KindCourseToken, BoundCourseID: 10}, 5)
	require.NoError(t, err)
	_, err = svc.Get(ctx, authn.Principal{Kind: authn.KindCourseToken, BoundCourseID: 20}, 5)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// Cross-course listing stays admin-only.
	_, err = svc.List(ctx, teacher(1), shared.Page{Limit: 10})
	assert.ErrorIs(t, err, shared.ErrForbidden)
	all, err := svc.List(ctx, admin(), shared.Page{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestWritesAreOwnerBlindForStudents(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	_, err := svc.Update(ctx, teacher(1), Student{ID: 5, FirstName: "Alan", LastName: "T", GroupID: 2})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	err = svc.Delete(ctx, headman(5), 5)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	updated, err := svc.Update(ctx, admin(), Student{ID: 5, FirstName: "Alan", LastName: "T", GroupID: 2})
	require.NoError(t, err)
	assert.Equal(t, "T", updated.LastName)

	require.NoError(t, svc.Delete(ctx, admin(), 6))
}
