package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const columns = `id, course_id, student_id, date, class, present, created_at, updated_at`

func scan(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.CourseID, &rec.StudentID, &rec.Date, &rec.Class,
		&rec.Present, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("attendance: scan: %w", err)
	}
	return &rec, nil
}

// Get fetches one attendance record by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Record, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM attendance WHERE id = $1`, id))
}

// Find fetches the record for one (course, date, class, student) tuple.
func (r *Repository) Find(ctx context.Context, courseID int64, date time.Time, class int, studentID int64) (*Record, error) {
	return scan(r.pool.QueryRow(ctx,
		`SELECT `+columns+` FROM attendance
		 WHERE course_id = $1 AND date = $2 AND class = $3 AND student_id = $4`,
		courseID, date, class, studentID))
}

// ListByCourse returns the attendance records of one course ordered by
// date, class and student.
func (r *Repository) ListByCourse(ctx context.Context, courseID int64, page shared.Page) ([]Record, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM attendance WHERE course_id = $1
		 ORDER BY date, class, student_id LIMIT $2 OFFSET $3`,
		courseID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("attendance: list: %w", err)
	}
	defer rows.Close()
	var result []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.CourseID, &rec.StudentID, &rec.Date, &rec.Class,
			&rec.Present, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("attendance: scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Create inserts a new attendance record.
func (r *Repository) Create(ctx context.Context, rec Record) (*Record, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attendance (course_id, student_id, date, class, present)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+columns,
		rec.CourseID, rec.StudentID, rec.Date, rec.Class, rec.Present).
		Scan(&rec.ID, &rec.CourseID, &rec.StudentID, &rec.Date, &rec.Class,
			&rec.Present, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("attendance: already recorded: %w", shared.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("attendance: parent: %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("attendance: create: %w", err)
	}
	return &rec, nil
}

// Update rewrites the presence flag. Every other field is structural.
func (r *Repository) Update(ctx context.Context, rec Record) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attendance SET present = $2, updated_at = now() WHERE id = $1`,
		rec.ID, rec.Present)
	if err != nil {
		return fmt.Errorf("attendance: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes one attendance record.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("attendance: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
