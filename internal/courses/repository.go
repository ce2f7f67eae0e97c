package courses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursekeeper/coursekeeper/internal/platform/db"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const courseColumns = `id, name, description, owner_id, created_at, updated_at`

func scanCourse(row pgx.Row) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("courses: scan: %w", err)
	}
	return &c, nil
}

// Get fetches one course by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Course, error) {
	return scanCourse(r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
}

// FindByName fetches one course by its unique name.
func (r *Repository) FindByName(ctx context.Context, name string) (*Course, error) {
	return scanCourse(r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE name = $1`, name))
}

// List returns all courses ordered by id ascending.
func (r *Repository) List(ctx context.Context, page shared.Page) ([]Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("courses: list: %w", err)
	}
	return collectCourses(rows)
}

// ListOwned returns the courses owned by one employee, ordered by id.
func (r *Repository) ListOwned(ctx context.Context, ownerID int64, page shared.Page) ([]Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE owner_id = $1 ORDER BY id LIMIT $2 OFFSET $3`,
		ownerID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("courses: list owned: %w", err)
	}
	return collectCourses(rows)
}

func collectCourses(rows pgx.Rows) ([]Course, error) {
	defer rows.Close()
	var result []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("courses: scan row: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Create inserts a new course.
func (r *Repository) Create(ctx context.Context, c Course) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO courses (name, description, owner_id) VALUES ($1, $2, $3) RETURNING id`,
		c.Name, c.Description, c.OwnerID).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("courses: name taken: %w", shared.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return 0, fmt.Errorf("courses: owner: %w", shared.ErrNotFound)
		}
		return 0, fmt.Errorf("courses: create: %w", err)
	}
	return id, nil
}

// Update rewrites a course's name and description. Ownership moves only
// through UpdateOwner.
func (r *Repository) Update(ctx context.Context, c Course) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE courses SET name = $2, description = $3, updated_at = now() WHERE id = $1`,
		c.ID, c.Name, c.Description)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("courses: name taken: %w", shared.ErrConflict)
		}
		return fmt.Errorf("courses: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateOwner re-assigns the owning employee. Downstream authorization
// outcomes change immediately: facts are always derived from current links.
func (r *Repository) UpdateOwner(ctx context.Context, id, ownerID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE courses SET owner_id = $2, updated_at = now() WHERE id = $1`, id, ownerID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("courses: owner: %w", shared.ErrNotFound)
		}
		return fmt.Errorf("courses: update owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteCascade removes a course and its whole subtree bottom-up in one
// transaction: attendance, submissions, criteria, tasks, the course token,
// enrollments, then the course row. The order is explicit so it can be
// tested, instead of relying on storage-side cascades.
func (r *Repository) DeleteCascade(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Groups hang off a course but are managed independently; they
		// refuse the deletion instead of being swept away with it.
		var groupCount int
		if err := tx.QueryRow(ctx,
			`SELECT count(*) FROM groups WHERE course_id = $1`, id).Scan(&groupCount); err != nil {
			return fmt.Errorf("courses: count groups: %w", err)
		}
		if groupCount > 0 {
			return fmt.Errorf("courses: groups still reference course: %w", shared.ErrConflict)
		}
		steps := []struct {
			what  string
			query string
		}{
			{"attendance", `DELETE FROM attendance WHERE course_id = $1`},
			{"submissions", `DELETE FROM submissions WHERE task_id IN (SELECT id FROM tasks WHERE course_id = $1)`},
			{"criteria", `DELETE FROM criteria WHERE task_id IN (SELECT id FROM tasks WHERE course_id = $1)`},
			{"tasks", `DELETE FROM tasks WHERE course_id = $1`},
			{"token", `DELETE FROM course_tokens WHERE course_id = $1`},
			{"enrollments", `DELETE FROM course_students WHERE course_id = $1`},
			{"enrolling refs", `UPDATE students SET enrolled_course_id = NULL WHERE enrolled_course_id = $1`},
		}
		for _, step := range steps {
			if _, err := tx.Exec(ctx, step.query, id); err != nil {
				return fmt.Errorf("courses: delete %s: %w", step.what, err)
			}
		}
		tag, err := tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("courses: delete: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// GetToken fetches the course's token, if any.
func (r *Repository) GetToken(ctx context.Context, courseID int64) (*Token, error) {
	var t Token
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, token, created_at FROM course_tokens WHERE course_id = $1`, courseID).
		Scan(&t.ID, &t.CourseID, &t.Token, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("courses: get token: %w", err)
	}
	return &t, nil
}

// CreateToken mints the course's token. The course_id unique constraint
// backs the at-most-one invariant.
func (r *Repository) CreateToken(ctx context.Context, courseID int64, token string) (*Token, error) {
	var t Token
	err := r.pool.QueryRow(ctx,
		`INSERT INTO course_tokens (course_id, token) VALUES ($1, $2)
		 RETURNING id, course_id, token, created_at`,
		courseID, token).Scan(&t.ID, &t.CourseID, &t.Token, &t.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("courses: token already issued: %w", shared.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("courses: course: %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("courses: create token: %w", err)
	}
	return &t, nil
}

// DeleteToken revokes the course's token.
func (r *Repository) DeleteToken(ctx context.Context, courseID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM course_tokens WHERE course_id = $1`, courseID)
	if err != nil {
		return fmt.Errorf("courses: delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListStudentIDs returns the enrolled student ids, ordered ascending.
func (r *Repository) ListStudentIDs(ctx context.Context, courseID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id FROM course_students WHERE course_id = $1 ORDER BY student_id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("courses: list students: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("courses: scan student id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Enroll adds a student to the course's enrollment list.
func (r *Repository) Enroll(ctx context.Context, courseID, studentID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO course_students (course_id, student_id) VALUES ($1, $2)`, courseID, studentID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("courses: already enrolled: %w", shared.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("courses: enrollment parent: %w", shared.ErrNotFound)
		}
		return fmt.Errorf("courses: enroll: %w", err)
	}
	return nil
}

// CountTasks returns the number of tasks in one course.
func (r *Repository) CountTasks(ctx context.Context, courseID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tasks WHERE course_id = $1`, courseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("courses: count tasks: %w", err)
	}
	return n, nil
}

// CountStudents returns the number of enrolled students.
func (r *Repository) CountStudents(ctx context.Context, courseID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM course_students WHERE course_id = $1`, courseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("courses: count students: %w", err)
	}
	return n, nil
}

// CountSubmissions returns the number of submissions in the course subtree.
func (r *Repository) CountSubmissions(ctx context.Context, courseID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM submissions WHERE task_id IN (SELECT id FROM tasks WHERE course_id = $1)`,
		courseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("courses: count submissions: %w", err)
	}
	return n, nil
}

// CountAttendance returns the number of attendance records in the course.
func (r *Repository) CountAttendance(ctx context.Context, courseID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM attendance WHERE course_id = $1`, courseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("courses: count attendance: %w", err)
	}
	return n, nil
}

// Unenroll removes a student from the enrollment list.
func (r *Repository) Unenroll(ctx context.Context, courseID, studentID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM course_students WHERE course_id = $1 AND student_id = $2`, courseID, studentID)
	if err != nil {
		return fmt.Errorf("courses: unenroll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
