package authn

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// Account is the credential record backing a user principal.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	EmployeeID   *int64
	StudentID    *int64
}

// CourseToken is a course-scoped opaque credential. At most one exists per
// course.
type CourseToken struct {
	ID       int64
	CourseID int64
	Token    string
}

// CredentialStore provides read-only credential lookups.
type CredentialStore interface {
	FindAccountByUsername(ctx context.Context, username string) (*Account, error)
	FindCourseToken(ctx context.Context, token string) (*CourseToken, error)
}

// LastSeenRecorder records a non-authoritative "last seen" marker for an
// account. Failures never affect the request.
type LastSeenRecorder interface {
	Touch(ctx context.Context, accountID int64) error
}

// Service resolves request credentials into a Principal. Resolution is
// read-only; the only side effect is the best-effort last-seen marker.
type Service struct {
	store CredentialStore
	seen  LastSeenRecorder
}

// NewService constructs a Service. The recorder may be nil.
func NewService(store CredentialStore, seen LastSeenRecorder) *Service {
	return &Service{store: store, seen: seen}
}

// ResolveUser validates a username/secret pair and builds a user principal.
// A missing account reads as unauthenticated; a failing store does not, so
// an outage is not mistaken for a bad password.
func (s *Service) ResolveUser(ctx context.Context, username, secret string) (Principal, error) {
	account, err := s.store.FindAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Anonymous(), fmt.Errorf("resolve user: %w", shared.ErrUnauthenticated)
		}
		return Anonymous(), fmt.Errorf("resolve user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(secret)); err != nil {
		return Anonymous(), fmt.Errorf("resolve user: %w", shared.ErrUnauthenticated)
	}

	principal := Principal{Kind: KindUser, AccountID: account.ID, Role: account.Role}
	switch account.Role {
	case RoleTeacher:
		if account.EmployeeID == nil {
			return Anonymous(), fmt.Errorf("resolve user: teacher account without employee: %w", shared.ErrUnauthenticated)
		}
		principal.IdentityID = *account.EmployeeID
	case RoleHeadman:
		if account.StudentID == nil {
			return Anonymous(), fmt.Errorf("resolve user: headman account without student: %w", shared.ErrUnauthenticated)
		}
		principal.IdentityID = *account.StudentID
	case RoleAdmin:
		// Bound to no identity record.
	default:
		return Anonymous(), fmt.Errorf("resolve user: unknown role %q: %w", account.Role, shared.ErrUnauthenticated)
	}

	if s.seen != nil {
		_ = s.seen.Touch(ctx, account.ID)
	}
	return principal, nil
}

// ResolveCourseToken matches an opaque token string against the live course
// tokens and builds a course-token principal.
func (s *Service) ResolveCourseToken(ctx context.Context, token string) (Principal, error) {
	record, err := s.store.FindCourseToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Anonymous(), fmt.Errorf("resolve token: %w", shared.ErrUnauthenticated)
		}
		return Anonymous(), fmt.Errorf("resolve token: %w", err)
	}
	return Principal{Kind: KindCourseToken, BoundCourseID: record.CourseID}, nil
}
