package submissions

import "time"

// Submission is one student's answer to one task. At most one exists per
// (task, student) pair; both links are structural and never move.
type Submission struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	StudentID int64     `json:"student_id"`
	Text      string    `json:"text"`
	Grade     *int      `json:"grade"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
