package accounts

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

const columns = `id, username, password_hash, user_role, employee_id, student_id, created_at, updated_at`

func scan(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.EmployeeID, &a.StudentID,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("accounts: scan: %w", err)
	}
	return &a, nil
}

// Get fetches one account by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Account, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM accounts WHERE id = $1`, id))
}

// FindByUsername fetches one account by its unique username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM accounts WHERE username = $1`, username))
}

// FindByEmployee fetches the account bound to one employee.
func (r *Repository) FindByEmployee(ctx context.Context, employeeID int64) (*Account, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM accounts WHERE employee_id = $1`, employeeID))
}

// FindByStudent fetches the account bound to one student.
func (r *Repository) FindByStudent(ctx context.Context, studentID int64) (*Account, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM accounts WHERE student_id = $1`, studentID))
}

// List returns all accounts ordered by id ascending.
func (r *Repository) List(ctx context.Context, page shared.Page) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM accounts ORDER BY id LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("accounts: list: %w", err)
	}
	defer rows.Close()
	var result []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.EmployeeID, &a.StudentID,
			&a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("accounts: scan row: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// Create inserts a new account.
func (r *Repository) Create(ctx context.Context, a Account) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (username, password_hash, user_role, employee_id, student_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.Username, a.PasswordHash, a.Role, a.EmployeeID, a.StudentID).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("accounts: username or target taken: %w", shared.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return 0, fmt.Errorf("accounts: target: %w", shared.ErrNotFound)
		}
		return 0, fmt.Errorf("accounts: create: %w", err)
	}
	return id, nil
}

// Update rewrites an account's username, secret and target binding. The
// role column is never touched after creation.
func (r *Repository) Update(ctx context.Context, a Account) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET username = $2, password_hash = $3, employee_id = $4, student_id = $5,
		 updated_at = now() WHERE id = $1`,
		a.ID, a.Username, a.PasswordHash, a.EmployeeID, a.StudentID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("accounts: username or target taken: %w", shared.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("accounts: target: %w", shared.ErrNotFound)
		}
		return fmt.Errorf("accounts: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes one account.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("accounts: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
