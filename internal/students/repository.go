package students

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

const studentColumns = `id, first_name, last_name, middle_name, group_id, enrolled_course_id, created_at, updated_at`

// Get fetches one student by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Student, error) {
	var s Student
	err := r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id).
		Scan(&s.ID, &s.FirstName, &s.LastName, &s.MiddleName, &s.GroupID, &s.EnrolledCourseID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("students: get: %w", err)
	}
	return &s, nil
}

// List returns students ordered by id ascending.
func (r *Repository) List(ctx context.Context, page shared.Page) ([]Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("students: list: %w", err)
	}
	defer rows.Close()
	var result []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.MiddleName, &s.GroupID, &s.EnrolledCourseID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("students: scan: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Create inserts a new student, recording the enrolling course when given.
// When an enrolling course is present the enrollment row is written in the
// same transaction.
func (r *Repository) Create(ctx context.Context, s Student) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO students (first_name, last_name, middle_name, group_id, enrolled_course_id)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			s.FirstName, s.LastName, s.MiddleName, s.GroupID, s.EnrolledCourseID).Scan(&id)
		if err != nil {
			return err
		}
		if s.EnrolledCourseID != nil {
			_, err = tx.Exec(ctx,
				`INSERT INTO course_students (course_id, student_id) VALUES ($1, $2)`,
				*s.EnrolledCourseID, id)
		}
		return err
	})
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return 0, fmt.Errorf("students: referenced parent: %w", shared.ErrNotFound)
		}
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("students: already enrolled: %w", shared.ErrConflict)
		}
		return 0, fmt.Errorf("students: create: %w", err)
	}
	return id, nil
}

// Update rewrites a student's mutable fields (names and group).
func (r *Repository) Update(ctx context.Context, s Student) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE students
		 SET first_name = $2, last_name = $3, middle_name = $4, group_id = $5, updated_at = now()
		 WHERE id = $1`,
		s.ID, s.FirstName, s.LastName, s.MiddleName, s.GroupID)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("students: referenced parent: %w", shared.ErrNotFound)
		}
		return fmt.Errorf("students: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteCascade removes a student and everything hanging off it, bottom-up,
// in one transaction: submissions, attendance, enrollments, the credential
// record bound to the student, then the student row.
func (r *Repository) DeleteCascade(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM submissions WHERE student_id = $1`, id); err != nil {
			return fmt.Errorf("students: delete submissions: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM attendance WHERE student_id = $1`, id); err != nil {
			return fmt.Errorf("students: delete attendance: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM course_students WHERE student_id = $1`, id); err != nil {
			return fmt.Errorf("students: delete enrollments: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE student_id = $1`, id); err != nil {
			return fmt.Errorf("students: delete account: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("students: delete: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

var _ RepositoryPort = (*Repository)(nil)
