package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDeadlineReminderScan sweeps for tasks approaching their soft
	// deadline and fans out reminder tasks.
	TaskDeadlineReminderScan = "tasks:deadline_reminder_scan"
	// TaskDeadlineReminder notifies about one task nearing its deadline.
	TaskDeadlineReminder = "tasks:deadline_reminder"
)

// DeadlineReminderScanPayload parameterises one sweep.
type DeadlineReminderScanPayload struct {
	Lookahead time.Duration `json:"lookahead"`
}

// NewDeadlineReminderScanTask constructs the periodic sweep task.
func NewDeadlineReminderScanTask(lookahead time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(DeadlineReminderScanPayload{Lookahead: lookahead})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeadlineReminderScan, data), nil
}

// DeadlineReminderPayload identifies one task due for a reminder.
type DeadlineReminderPayload struct {
	TaskID       int64     `json:"task_id"`
	CourseID     int64     `json:"course_id"`
	TaskName     string    `json:"task_name"`
	SoftDeadline time.Time `json:"soft_deadline"`
}

// NewDeadlineReminderTask constructs a single reminder task.
func NewDeadlineReminderTask(payload DeadlineReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeadlineReminder, data), nil
}
