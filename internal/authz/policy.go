package authz

import (
	"github.com/coursekeeper/coursekeeper/internal/authn"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// Decide renders the access decision for one operation. It is pure: the
// outcome depends only on its arguments, and it never returns anything
// other than nil (allow), shared.ErrUnauthenticated or shared.ErrForbidden.
//
// Rules are evaluated role-first, ownership second, first match wins.
// Ownership alone is insufficient: a teacher must not transfer an owned
// course away, so the specific action is consulted as well.
func Decide(p authn.Principal, action Action, kind Kind, facts Facts) error {
	if p.IsAnonymous() {
		return shared.ErrUnauthenticated
	}

	if p.IsUser() && p.Role == authn.RoleAdmin {
		return nil
	}

	if p.IsToken() {
		return decideToken(p, action, kind, facts)
	}

	switch p.Role {
	case authn.RoleTeacher:
		return decideTeacher(p, action, kind, facts)
	case authn.RoleHeadman:
		return decideHeadman(p, action, kind, facts)
	}

	return shared.ErrForbidden
}

// decideToken scopes a course-token principal to read-only access inside its
// bound course's subtree. Directory kinds are open to any tokened caller;
// credential records and course management are never reachable.
func decideToken(p authn.Principal, action Action, kind Kind, facts Facts) error {
	if action != ActionRead {
		return shared.ErrForbidden
	}
	switch kind {
	case KindEmployee, KindGroup, KindFaculty:
		return nil
	case KindAccount, KindCourseToken:
		return shared.ErrForbidden
	}
	if matches(facts.CourseID, p.BoundCourseID) {
		return nil
	}
	return shared.ErrForbidden
}

func decideTeacher(p authn.Principal, action Action, kind Kind, facts Facts) error {
	// Only ADMIN may move course ownership, in either direction.
	if action == ActionTransferOwner {
		return shared.ErrForbidden
	}

	switch kind {
	case KindEmployee, KindGroup, KindFaculty:
		// Directory reads are open to any authenticated teacher; the
		// directory itself, including the teacher's own employee record,
		// is not self-serviceable.
		if action == ActionRead {
			return nil
		}
		return shared.ErrForbidden
	case KindAccount:
		return shared.ErrForbidden
	case KindStudent:
		if action == ActionRead && matches(facts.OwnerEmployeeID, p.IdentityID) {
			return nil
		}
		return shared.ErrForbidden
	case KindCourse, KindTask, KindCriteria, KindSubmission, KindAttendance, KindCourseToken:
		if matches(facts.OwnerEmployeeID, p.IdentityID) {
			return nil
		}
		return shared.ErrForbidden
	}

	return shared.ErrForbidden
}

func decideHeadman(p authn.Principal, action Action, kind Kind, facts Facts) error {
	if action != ActionRead {
		return shared.ErrForbidden
	}
	switch kind {
	case KindEmployee, KindGroup, KindFaculty:
		return nil
	case KindStudent, KindAttendance:
		if matches(facts.StudentID, p.IdentityID) {
			return nil
		}
		return shared.ErrForbidden
	}
	return shared.ErrForbidden
}
