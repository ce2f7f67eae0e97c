package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/coursekeeper/coursekeeper/internal/jobs"
)

// Enqueuer abstracts task submission so the scan can be tested without a
// live queue.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DeadlineReminderScanJob sweeps for tasks whose soft deadline falls inside
// the lookahead window and fans out one reminder task per hit.
type DeadlineReminderScanJob struct {
	Pool    *pgxpool.Pool
	Client  Enqueuer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDeadlineReminderScanJob initialises the sweep handler.
func NewDeadlineReminderScanJob(pool *pgxpool.Pool, client Enqueuer, logger *slog.Logger, metrics *jobmetrics.Metrics) *DeadlineReminderScanJob {
	return &DeadlineReminderScanJob{
		Pool:    pool,
		Client:  client,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one sweep.
func (j *DeadlineReminderScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("deadline reminder scan: handler not configured")
	}
	tracker := j.Metrics.Track(TaskDeadlineReminderScan)
	return tracker.End(j.handle(ctx, t))
}

func (j *DeadlineReminderScanJob) handle(ctx context.Context, t *asynq.Task) error {
	var payload DeadlineReminderScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Lookahead <= 0 {
		payload.Lookahead = 24 * time.Hour
	}

	now := j.clock()
	logger := j.Logger.With(slog.Duration("lookahead", payload.Lookahead))
	logger.Info("starting deadline reminder scan")

	rows, err := j.Pool.Query(ctx,
		`SELECT id, course_id, name, soft_deadline FROM tasks
		 WHERE deadlines_enabled AND soft_deadline >= $1 AND soft_deadline < $2
		 ORDER BY soft_deadline`,
		now, now.Add(payload.Lookahead))
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return fmt.Errorf("deadline reminder scan: %w", err)
	}
	defer rows.Close()

	var enqueued int
	for rows.Next() {
		var p DeadlineReminderPayload
		if err := rows.Scan(&p.TaskID, &p.CourseID, &p.TaskName, &p.SoftDeadline); err != nil {
			return fmt.Errorf("deadline reminder scan: scan row: %w", err)
		}
		task, err := NewDeadlineReminderTask(p)
		if err != nil {
			return fmt.Errorf("deadline reminder scan: build task: %w", err)
		}
		if j.Client != nil {
			if _, err := j.Client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
				logger.Warn("enqueue reminder failed",
					slog.Int64("task_id", p.TaskID), slog.Any("error", err))
				continue
			}
		}
		j.Metrics.AddReminders(p.CourseID, 1)
		enqueued++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("deadline reminder scan: %w", err)
	}

	logger.Info("completed deadline reminder scan",
		slog.Int("enqueued", enqueued),
		slog.Duration("duration", time.Since(now)))
	return nil
}

// HandleDeadlineReminderTask processes one reminder. Delivery is a log line
// until a notification channel exists.
func HandleDeadlineReminderTask(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DeadlineReminderPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("task deadline approaching",
			slog.Int64("task_id", payload.TaskID),
			slog.Int64("course_id", payload.CourseID),
			slog.String("task", payload.TaskName),
			slog.Time("soft_deadline", payload.SoftDeadline))
		return nil
	}
}
