package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coursekeeper/coursekeeper/internal/platform/db"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// Repository provides PostgreSQL backed persistence for groups and
// faculties.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetFaculty fetches one faculty by id.
func (r *Repository) GetFaculty(ctx context.Context, id int64) (*Faculty, error) {
	var f Faculty
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM faculties WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("groups: get faculty: %w", err)
	}
	return &f, nil
}

// ListFaculties returns faculties ordered by id ascending.
func (r *Repository) ListFaculties(ctx context.Context, page shared.Page) ([]Faculty, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_at, updated_at FROM faculties ORDER BY id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("groups: list faculties: %w", err)
	}
	defer rows.Close()
	var result []Faculty
	for rows.Next() {
		var f Faculty
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("groups: scan faculty: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// CreateFaculty inserts a faculty. The name is unique absolutely.
func (r *Repository) CreateFaculty(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO faculties (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("groups: faculty name taken: %w", shared.ErrConflict)
		}
		return 0, fmt.Errorf("groups: create faculty: %w", err)
	}
	return id, nil
}

// UpdateFaculty renames a faculty.
func (r *Repository) UpdateFaculty(ctx context.Context, id int64, name string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE faculties SET name = $2, updated_at = now() WHERE id = $1`, id, name)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("groups: faculty name taken: %w", shared.ErrConflict)
		}
		return fmt.Errorf("groups: update faculty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteFaculty removes a faculty row.
func (r *Repository) DeleteFaculty(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM faculties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("groups: delete faculty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountFacultyGroups returns how many groups reference a faculty.
func (r *Repository) CountFacultyGroups(ctx context.Context, facultyID int64) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM groups WHERE faculty_id = $1`, facultyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("groups: count faculty groups: %w", err)
	}
	return count, nil
}

// GetGroup fetches one group by id.
func (r *Repository) GetGroup(ctx context.Context, id int64) (*Group, error) {
	var g Group
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, faculty_id, course_id, created_at, updated_at FROM groups WHERE id = $1`, id).
		Scan(&g.ID, &g.Name, &g.FacultyID, &g.CourseID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("groups: get group: %w", err)
	}
	return &g, nil
}

// ListGroups returns groups ordered by id ascending.
func (r *Repository) ListGroups(ctx context.Context, page shared.Page) ([]Group, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, faculty_id, course_id, created_at, updated_at
		 FROM groups ORDER BY id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("groups: list groups: %w", err)
	}
	defer rows.Close()
	var result []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.FacultyID, &g.CourseID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("groups: scan group: %w", err)
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// CreateGroup inserts a group. (name, faculty) is unique; dangling faculty
// or course references surface as not-found.
func (r *Repository) CreateGroup(ctx context.Context, g Group) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO groups (name, faculty_id, course_id) VALUES ($1, $2, $3) RETURNING id`,
		g.Name, g.FacultyID, g.CourseID).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("groups: group name taken within faculty: %w", shared.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return 0, fmt.Errorf("groups: referenced parent: %w", shared.ErrNotFound)
		}
		return 0, fmt.Errorf("groups: create group: %w", err)
	}
	return id, nil
}

// UpdateGroup rewrites a group's mutable fields (name and course).
func (r *Repository) UpdateGroup(ctx context.Context, g Group) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE groups SET name = $2, course_id = $3, updated_at = now() WHERE id = $1`,
		g.ID, g.Name, g.CourseID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("groups: group name taken within faculty: %w", shared.ErrConflict)
		}
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("groups: referenced parent: %w", shared.ErrNotFound)
		}
		return fmt.Errorf("groups: update group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteGroup removes a group row.
func (r *Repository) DeleteGroup(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("groups: delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountGroupStudents returns how many students belong to a group.
func (r *Repository) CountGroupStudents(ctx context.Context, groupID int64) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM students WHERE group_id = $1`, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("groups: count group students: %w", err)
	}
	return count, nil
}

var _ RepositoryPort = (*Repository)(nil)
