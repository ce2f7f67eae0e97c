// Package authz implements the access-decision core: the ownership graph
// resolver that derives ancestor ids for any resource, and the policy
// evaluator that turns (principal, action, resource kind, facts) into an
// allow or deny decision. The full rule set lives in Decide so it can be
// audited in one place instead of being re-derived per endpoint.
package authz

// Kind enumerates the resource families the policy distinguishes.
type Kind int

const (
	KindCourse Kind = iota
	KindTask
	KindCriteria
	KindSubmission
	KindAttendance
	KindStudent
	KindEmployee
	KindGroup
	KindFaculty
	KindAccount
	KindCourseToken
)

// Action enumerates the operations the policy distinguishes.
type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
	// ActionTransferOwner is the owner-change operation on a course. It is
	// separate from ActionUpdate because teachers may update owned courses
	// but may never move ownership in either direction.
	ActionTransferOwner
)

// Facts is the derived set of ancestor ids for one resource. Facts are
// recomputed from current parent links on every check and never cached, so
// re-parenting is reflected immediately.
type Facts struct {
	OwnerEmployeeID *int64
	CourseID        *int64
	StudentID       *int64
}

func ptr(v int64) *int64 { return &v }

func matches(have *int64, want int64) bool {
	return have != nil && *have == want
}
