package courses

import "time"

// Course is the root of the ownership tree. Every task, criteria row,
// submission and attendance record resolves up to exactly one course, and a
// course is owned by exactly one employee.
type Course struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Token is the course-scoped opaque credential. At most one exists per
// course; it grants read-only access to the course's subtree.
type Token struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"course_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary aggregates the size of a course's subtree.
type Summary struct {
	Course      Course `json:"course"`
	Tasks       int64  `json:"tasks"`
	Students    int64  `json:"students"`
	Submissions int64  `json:"submissions"`
	Attendance  int64  `json:"attendance"`
}
