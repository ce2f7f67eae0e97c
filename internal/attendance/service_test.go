package attendance

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

type graphStore struct {
	repo         *stubRepo
	courseOwners map[int64]int64
	students     map[int64]struct{}
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

func (s *graphStore) AttendanceRef(_ context.Context, id int64) (int64, int64, error) {
	rec, ok := s.repo.records[id]
	if !ok {
		return 0, 0, shared.ErrNotFound
	}
	return rec.CourseID, rec.StudentID, nil
}

func (s *graphStore) StudentCourse(_ context.Context, id int64) (*int64, error) {
	if _, ok := s.students[id]; !ok {
		return nil, shared.ErrNotFound
	}
	return nil, nil
}

func (s *graphStore) EmployeeExists(_ context.Context, _ int64) error {
	return shared.ErrNotFound
}

func (s *graphStore) TokenCourse(_ context.Context, _ int64) (int64, error) {
	return 0, shared.ErrNotFound
}

type stubRepo struct {
	records map[int64]*Record
	nextID  int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{records: make(map[int64]*Record), nextID: 1}
}

func (r *stubRepo) Get(_ context.Context, id int64) (*Record, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (r *stubRepo) Find(_ context.Context, courseID int64, date time.Time, class int, studentID int64) (*Record, error) {
	for _, rec := range r.records {
		if rec.CourseID == courseID && rec.Date.Equal(date) && rec.Class == class && rec.StudentID == studentID {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubRepo) ListByCourse(_ context.Context, courseID int64, _ shared.Page) ([]Record, error) {
	var result []Record
	for _, rec := range r.records {
		if rec.CourseID == courseID {
			result = append(result, *rec)
		}
	}
	return result, nil
}

func (r *stubRepo) Create(_ context.Context, rec Record) (*Record, error) {
	rec.ID = r.nextID
	r.nextID++
	r.records[rec.ID] = &rec
	copied := rec
	return &copied, nil
}

func (r *stubRepo) Update(_ context.Context, rec Record) error {
	existing, ok := r.records[rec.ID]
	if !ok {
		return shared.ErrNotFound
	}
	existing.Present = rec.Present
	return nil
}

func (r *stubRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.records[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func owner() authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleTeacher, IdentityID: 1}
}

func headman(studentID int64) authn.Principal {
	return authn.Principal{Kind: authn.KindUser, Role: authn.RoleHeadman, IdentityID: studentID}
}

// fixture: course 10 owned by employee 1, students 5 and 6 enrolled.
func setup() (*Service, *stubRepo) {
	repo := newStubRepo()
	graph := &graphStore{
		repo:         repo,
		courseOwners: map[int64]int64{10: 1},
		students:     map[int64]struct{}{5: {}, 6: {}},
	}
	return NewService(repo, authz.NewResolver(graph)), repo
}

func day(d int) time.Time {
	return time.Date(2026, time.September, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateDuplicateTupleIsConflict(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()
	rec := Record{CourseID: 10, StudentID: 5, Date: day(1), Class: 2, Present: true}

	_, err := svc.Create(ctx, owner(), rec)
	require.NoError(t, err)

	_, err = svc.Create(ctx, owner(), rec)
	assert.ErrorIs(t, err, shared.ErrConflict)

	// A different class on the same day is a separate record.
	rec.Class = 3
	_, err = svc.Create(ctx, owner(), rec)
	require.NoError(t, err)
}

func TestCreateUnknownStudentIsNotFound(t *testing.T) {
	svc, _ := setup()

	_, err := svc.Create(context.Background(), owner(),
		Record{CourseID: 10, StudentID: 99, Date: day(1), Class: 1})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateOnlyTouchesPresence(t *testing.T) {
	svc, repo := setup()
	ctx := context.Background()
	repo.records[1] = &Record{ID: 1, CourseID: 10, StudentID: 5, Date: day(1), Class: 2, Present: true}

	cases := []struct {
		name string
		rec  Record
	}{
		{"course", Record{ID: 1, CourseID: 20}},
		{"student", Record{ID: 1, StudentID: 6}},
		{"date", Record{ID: 1, Date: day(2)}},
		{"class", Record{ID: 1, Class: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Update(ctx, owner(), tc.rec)
			assert.ErrorIs(t, err, shared.ErrBadRequest)
		})
	}

	updated, err := svc.Update(ctx, owner(), Record{ID: 1, Present: false})
	require.NoError(t, err)
	assert.False(t, updated.Present)
	assert.Equal(t, 2, updated.Class)
}

func TestHeadmanReadsOnlyItsOwnRecords(t *testing.T) {
	svc, repo := setup()
	ctx := context.Background()
	repo.records[1] = &Record{ID: 1, CourseID: 10, StudentID: 5, Date: day(1), Class: 2, Present: true}
	repo.records[2] = &Record{ID: 2, CourseID: 10, StudentID: 6, Date: day(1), Class: 2, Present: false}

	_, err := svc.Get(ctx, headman(5), 1)
	require.NoError(t, err)

	_, err = svc.Get(ctx, headman(5), 2)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// Presence is recorded by the course owner, never by the headman.
	_, err = svc.Update(ctx, headman(5), Record{ID: 1, Present: false})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}
