package authn

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// PGStore implements CredentialStore against PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// FindAccountByUsername fetches a credential record by username.
func (s *PGStore) FindAccountByUsername(ctx context.Context, username string) (*Account, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, user_role, employee_id, student_id
		 FROM accounts WHERE username = $1`, username)
	var account Account
	if err := row.Scan(&account.ID, &account.Username, &account.PasswordHash, &account.Role, &account.EmployeeID, &account.StudentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("authn: find account: %w", err)
	}
	return &account, nil
}

// FindCourseToken fetches a live course token by its opaque value.
func (s *PGStore) FindCourseToken(ctx context.Context, token string) (*CourseToken, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, course_id, token FROM course_tokens WHERE token = $1`, token)
	var record CourseToken
	if err := row.Scan(&record.ID, &record.CourseID, &record.Token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("authn: find course token: %w", err)
	}
	return &record, nil
}

var _ CredentialStore = (*PGStore)(nil)
