package submissions

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

const columns = `id, task_id, student_id, text, grade, created_at, updated_at`

func scan(row pgx.Row) (*Submission, error) {
	var s Submission
	err := row.Scan(&s.ID, &s.TaskID, &s.StudentID, &s.Text, &s.Grade, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("submissions: scan: %w", err)
	}
	return &s, nil
}

// Get fetches one submission by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Submission, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM submissions WHERE id = $1`, id))
}

// FindByTaskStudent fetches the submission of one student for one task.
func (r *Repository) FindByTaskStudent(ctx context.Context, taskID, studentID int64) (*Submission, error) {
	return scan(r.pool.QueryRow(ctx,
		`SELECT `+columns+` FROM submissions WHERE task_id = $1 AND student_id = $2`, taskID, studentID))
}

// ListByTask returns the submissions for one task ordered by id.
func (r *Repository) ListByTask(ctx context.Context, taskID int64) ([]Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM submissions WHERE task_id = $1 ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("submissions: list: %w", err)
	}
	defer rows.Close()
	var result []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.TaskID, &s.StudentID, &s.Text, &s.Grade, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("submissions: scan row: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Create inserts a new submission.
func (r *Repository) Create(ctx context.Context, s Submission) (*Submission, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO submissions (task_id, student_id, text, grade) VALUES ($1, $2, $3, $4)
		 RETURNING `+columns,
		s.TaskID, s.StudentID, s.Text, s.Grade).
		Scan(&s.ID, &s.TaskID, &s.StudentID, &s.Text, &s.Grade, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("submissions: already submitted: %w", shared.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("submissions: parent: %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("submissions: create: %w", err)
	}
	return &s, nil
}

// Update rewrites a submission's text and grade. The task and student
// links never move.
func (r *Repository) Update(ctx context.Context, s Submission) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions SET text = $2, grade = $3, updated_at = now() WHERE id = $1`,
		s.ID, s.Text, s.Grade)
	if err != nil {
		return fmt.Errorf("submissions: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes one submission.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("submissions: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
