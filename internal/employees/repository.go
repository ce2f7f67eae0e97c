package employees

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

const employeeColumns = `id, first_name, last_name, middle_name, department, created_at, updated_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.MiddleName, &e.Department, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("employees: scan: %w", err)
	}
	return &e, nil
}

// Get fetches one employee by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Employee, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	return scanEmployee(row)
}

// List returns employees ordered by id ascending.
func (r *Repository) List(ctx context.Context, page shared.Page) ([]Employee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+employeeColumns+` FROM employees ORDER BY id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("employees: list: %w", err)
	}
	defer rows.Close()
	var result []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.MiddleName, &e.Department, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("employees: scan row: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("employees: rows: %w", err)
	}
	return result, nil
}

// FindByIdentity looks up an employee by the full identity tuple.
func (r *Repository) FindByIdentity(ctx context.Context, firstName, lastName, middleName, department string) (*Employee, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees
		 WHERE first_name = $1 AND last_name = $2 AND middle_name = $3 AND department = $4`,
		firstName, lastName, middleName, department)
	return scanEmployee(row)
}

// Create inserts a new employee.
func (r *Repository) Create(ctx context.Context, e Employee) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO employees (first_name, last_name, middle_name, department)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		e.FirstName, e.LastName, e.MiddleName, e.Department).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("employees: identity already registered: %w", shared.ErrConflict)
		}
		return 0, fmt.Errorf("employees: create: %w", err)
	}
	return id, nil
}

// Update rewrites an employee's mutable fields.
func (r *Repository) Update(ctx context.Context, e Employee) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE employees
		 SET first_name = $2, last_name = $3, middle_name = $4, department = $5, updated_at = now()
		 WHERE id = $1`,
		e.ID, e.FirstName, e.LastName, e.MiddleName, e.Department)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("employees: identity already registered: %w", shared.ErrConflict)
		}
		return fmt.Errorf("employees: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an employee row together with the credential record bound
// to it, in one transaction. The service refuses the call while the employee
// still owns courses, so only the account can be left hanging off the row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM accounts WHERE employee_id = $1`, id); err != nil {
			return fmt.Errorf("employees: delete account: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("employees: delete: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountOwnedCourses returns how many courses an employee owns.
func (r *Repository) CountOwnedCourses(ctx context.Context, id int64) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM courses WHERE owner_id = $1`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("employees: count owned courses: %w", err)
	}
	return count, nil
}

var _ RepositoryPort = (*Repository)(nil)
