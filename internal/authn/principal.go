package authn

// Role is the role attached to a registered account.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleHeadman Role = "HEADMAN"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleHeadman:
		return true
	}
	return false
}

// PrincipalKind distinguishes the three caller shapes.
type PrincipalKind int

const (
	// KindAnonymous is a caller that presented no credentials.
	KindAnonymous PrincipalKind = iota
	// KindUser is a registered account with a role.
	KindUser
	// KindCourseToken is the holder of a course-scoped access token.
	KindCourseToken
)

// Principal describes the caller for the duration of one request. It is
// built once by the middleware and never mutated afterwards.
type Principal struct {
	Kind      PrincipalKind
	AccountID int64
	Role      Role
	// IdentityID references the Employee for TEACHER and the Student for
	// HEADMAN. Zero for ADMIN, which is bound to no identity record.
	IdentityID int64
	// BoundCourseID is set only for course-token principals.
	BoundCourseID int64
}

// Anonymous returns the principal used when no credentials were presented.
func Anonymous() Principal {
	return Principal{Kind: KindAnonymous}
}

// IsAnonymous reports whether no credentials were resolved.
func (p Principal) IsAnonymous() bool { return p.Kind == KindAnonymous }

// IsUser reports whether the principal is a registered account.
func (p Principal) IsUser() bool { return p.Kind == KindUser }

// IsToken reports whether the principal is a course-token holder.
func (p Principal) IsToken() bool { return p.Kind == KindCourseToken }
