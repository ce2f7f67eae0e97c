package attendance

import "time"

// Record marks one student's presence in one class of a course on one
// date. The (course, date, class, student) tuple is unique; the course and
// student links are structural and never move.
type Record struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"course_id"`
	StudentID int64     `json:"student_id"`
	Date      time.Time `json:"date"`
	Class     int       `json:"class"`
	Present   bool      `json:"present"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
