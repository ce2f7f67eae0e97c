package tasks

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

const taskColumns = `id, course_id, task_number, name, description,
	deadlines_enabled, soft_deadline, hard_deadline, created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.CourseID, &t.TaskNumber, &t.Name, &t.Description,
		&t.DeadlinesEnabled, &t.SoftDeadline, &t.HardDeadline, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("tasks: scan: %w", err)
	}
	return &t, nil
}

// Get fetches one task by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// ListByCourse returns the tasks of one course ordered by task number.
func (r *Repository) ListByCourse(ctx context.Context, courseID int64) ([]Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE course_id = $1 ORDER BY task_number, id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("tasks: list: %w", err)
	}
	defer rows.Close()
	var result []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.CourseID, &t.TaskNumber, &t.Name, &t.Description,
			&t.DeadlinesEnabled, &t.SoftDeadline, &t.HardDeadline, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("tasks: scan row: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// Create inserts a new task.
func (r *Repository) Create(ctx context.Context, t Task) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tasks (course_id, task_number, name, description, deadlines_enabled, soft_deadline, hard_deadline)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		t.CourseID, t.TaskNumber, t.Name, t.Description, t.DeadlinesEnabled, t.SoftDeadline, t.HardDeadline).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("tasks: number taken in course: %w", shared.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return 0, fmt.Errorf("tasks: course: %w", shared.ErrNotFound)
		}
		return 0, fmt.Errorf("tasks: create: %w", err)
	}
	return id, nil
}

// Update rewrites a task's mutable fields. The course link never moves.
func (r *Repository) Update(ctx context.Context, t Task) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET task_number = $2, name = $3, description = $4,
		 deadlines_enabled = $5, soft_deadline = $6, hard_deadline = $7, updated_at = now()
		 WHERE id = $1`,
		t.ID, t.TaskNumber, t.Name, t.Description, t.DeadlinesEnabled, t.SoftDeadline, t.HardDeadline)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("tasks: number taken in course: %w", shared.ErrConflict)
		}
		return fmt.Errorf("tasks: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteCascade removes a task and its subtree bottom-up in one
// transaction: submissions, criteria, then the task row.
func (r *Repository) DeleteCascade(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM submissions WHERE task_id = $1`, id); err != nil {
			return fmt.Errorf("tasks: delete submissions: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM criteria WHERE task_id = $1`, id); err != nil {
			return fmt.Errorf("tasks: delete criteria: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("tasks: delete: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Renumber applies a validated set of number reassignments atomically.
// The first phase parks every task on a negative number so the unique
// (course_id, task_number) constraint never trips on intermediate states,
// the second phase writes the final numbers.
func (r *Repository) Renumber(ctx context.Context, courseID int64, pairs []ReorderPair) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, p := range pairs {
			tag, err := tx.Exec(ctx,
				`UPDATE tasks SET task_number = -task_number WHERE id = $1 AND course_id = $2`,
				p.TaskID, courseID)
			if err != nil {
				return fmt.Errorf("tasks: park number: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return shared.ErrNotFound
			}
		}
		for _, p := range pairs {
			if _, err := tx.Exec(ctx,
				`UPDATE tasks SET task_number = $3, updated_at = now() WHERE id = $1 AND course_id = $2`,
				p.TaskID, courseID, p.NewNumber); err != nil {
				if db.IsUniqueViolation(err) {
					return fmt.Errorf("tasks: number collision: %w", shared.ErrConflict)
				}
				return fmt.Errorf("tasks: renumber: %w", err)
			}
		}
		return nil
	})
}

const criteriaColumns = `id, task_id, name, description, weight, created_at, updated_at`

func scanCriteria(row pgx.Row) (*Criteria, error) {
	var c Criteria
	err := row.Scan(&c.ID, &c.TaskID, &c.Name, &c.Description, &c.Weight, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("criteria: scan: %w", err)
	}
	return &c, nil
}

// GetCriteria fetches one criteria row by id.
func (r *Repository) GetCriteria(ctx context.Context, id int64) (*Criteria, error) {
	return scanCriteria(r.pool.QueryRow(ctx,
		`SELECT `+criteriaColumns+` FROM criteria WHERE id = $1`, id))
}

// ListCriteria returns the criteria of one task ordered by id.
func (r *Repository) ListCriteria(ctx context.Context, taskID int64) ([]Criteria, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+criteriaColumns+` FROM criteria WHERE task_id = $1 ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("criteria: list: %w", err)
	}
	defer rows.Close()
	var result []Criteria
	for rows.Next() {
		var c Criteria
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Name, &c.Description, &c.Weight, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("criteria: scan row: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// CreateCriteria inserts a new criteria row.
func (r *Repository) CreateCriteria(ctx context.Context, c Criteria) (*Criteria, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO criteria (task_id, name, description, weight) VALUES ($1, $2, $3, $4)
		 RETURNING `+criteriaColumns,
		c.TaskID, c.Name, c.Description, c.Weight).
		Scan(&c.ID, &c.TaskID, &c.Name, &c.Description, &c.Weight, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("criteria: name taken in task: %w", shared.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("criteria: task: %w", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("criteria: create: %w", err)
	}
	return &c, nil
}

// UpdateCriteria rewrites a criteria row. The task link never moves.
func (r *Repository) UpdateCriteria(ctx context.Context, c Criteria) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE criteria SET name = $2, description = $3, weight = $4, updated_at = now() WHERE id = $1`,
		c.ID, c.Name, c.Description, c.Weight)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("criteria: name taken in task: %w", shared.ErrConflict)
		}
		return fmt.Errorf("criteria: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteCriteria removes one criteria row.
func (r *Repository) DeleteCriteria(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM criteria WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("criteria: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
