package groups

import "time"

// Faculty is the top of the group hierarchy.
type Faculty struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Group is a student group. It belongs to one faculty and one course; the
// faculty link is structural and cannot be changed after creation.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FacultyID int64     `json:"faculty_id"`
	CourseID  int64     `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
