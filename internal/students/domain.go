package students

import "time"

// Student is the identity record backing a HEADMAN principal. A student
// belongs to exactly one group; the enrolling course is captured at creation
// and used by the ownership resolver, while further enrollments live on the
// course's enrollment list.
type Student struct {
	ID               int64     `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	MiddleName       string    `json:"middle_name"`
	GroupID          int64     `json:"group_id"`
	EnrolledCourseID *int64    `json:"enrolled_course_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
