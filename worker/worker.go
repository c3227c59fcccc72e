package worker

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"aura-api/board"
	"aura-api/domain"
	"aura-api/storage"
)

// Queue is the part of storage the worker consumes.
type Queue interface {
	DequeueSyncJob(ctx context.Context) (*storage.QueuedJob, error)
	DeleteSyncJob(ctx context.Context, q *storage.QueuedJob) error
}

// Users looks up the settings of the user who queued a job.
type Users interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
}

const (
	defaultMaxAttempts = 5
	defaultIdle        = time.Second
)

// Worker drains the sync queue, putting each action item on its board.
type Worker struct {
	Queue  Queue
	Users  Users
	Boards func(domain.Settings) (board.API, error)
	Log    *log.Logger
	// MaxAttempts is how many deliveries a job gets before it is dropped.
	MaxAttempts int64
	// Idle is the pause after an empty poll or a receive error.
	Idle time.Duration
}

// Outcome of a single poll.
type Outcome string

const (
	OutcomeEmpty   Outcome = "empty"
	OutcomeApplied Outcome = "applied"
	OutcomeRetry   Outcome = "retry"
	OutcomeDropped Outcome = "dropped"
)

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	logger := w.logger()
	logger.Info("sync.worker.started")
	for {
		out, err := w.Poll(ctx)
		if ctx.Err() != nil {
			logger.Info("sync.worker.stopped")
			return nil
		}
		if err != nil {
			logger.WithError(err).Warn("sync.worker.receive_failed")
		}
		if err == nil && out != OutcomeEmpty {
			continue
		}
		select {
		case <-ctx.Done():
			logger.Info("sync.worker.stopped")
			return nil
		case <-time.After(w.idle()):
		}
	}
}

// Poll receives and handles at most one job. A job whose apply fails
// transiently is left on the queue so it becomes visible again.
func (w *Worker) Poll(ctx context.Context) (Outcome, error) {
	q, err := w.Queue.DequeueSyncJob(ctx)
	if err != nil {
		return OutcomeEmpty, err
	}
	if q == nil {
		return OutcomeEmpty, nil
	}
	entry := w.logger().WithFields(log.Fields{
		"message_id": q.MessageID,
		"attempt":    q.DequeueCount,
		"job_id":     q.Job.ID,
		"meeting_id": q.Job.MeetingID,
	})

	if q.Raw != "" {
		entry.WithField("raw", q.Raw).Error("sync.job.undecodable")
		return w.drop(ctx, q, entry)
	}
	if q.DequeueCount > w.maxAttempts() {
		entry.Error("sync.job.attempts_exhausted")
		return w.drop(ctx, q, entry)
	}

	res, err := w.apply(ctx, q.Job)
	if err != nil {
		if permanent(err) {
			entry.WithError(err).Error("sync.job.rejected")
			return w.drop(ctx, q, entry)
		}
		entry.WithError(err).Warn("sync.job.failed")
		return OutcomeRetry, nil
	}
	if err := w.Queue.DeleteSyncJob(ctx, q); err != nil {
		entry.WithError(err).Warn("sync.job.delete_failed")
	}
	entry.WithFields(log.Fields{
		"board":   q.Job.BoardID,
		"item_id": res.ItemID,
		"created": res.Created,
	}).Info("sync.job.applied")
	return OutcomeApplied, nil
}

func (w *Worker) apply(ctx context.Context, job domain.SyncJob) (board.SyncResult, error) {
	user, err := w.Users.GetUser(ctx, job.UserID)
	if err != nil {
		return board.SyncResult{}, err
	}
	if err := user.Settings.RequireBoardCredentials(); err != nil {
		return board.SyncResult{}, err
	}
	api, err := w.Boards(user.Settings)
	if err != nil {
		return board.SyncResult{}, err
	}
	return board.NewSynchronizer(api, w.logger()).EnsureTask(ctx, board.TaskRequest{
		BoardID: job.BoardID,
		Person:  job.Person,
		Text:    job.Text,
		Due:     job.Due,
	})
}

func (w *Worker) drop(ctx context.Context, q *storage.QueuedJob, entry *log.Entry) (Outcome, error) {
	if err := w.Queue.DeleteSyncJob(ctx, q); err != nil {
		entry.WithError(err).Warn("sync.job.delete_failed")
	}
	return OutcomeDropped, nil
}

// permanent reports errors that another delivery cannot fix.
func permanent(err error) bool {
	var (
		cfgErr    *domain.ConfigurationError
		ambErr    *domain.AmbiguousInputError
		remoteErr *domain.RemoteServiceError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return true
	case errors.As(err, &cfgErr), errors.As(err, &ambErr):
		return true
	case errors.As(err, &remoteErr):
		return remoteErr.CallerFault()
	}
	return false
}

func (w *Worker) logger() *log.Logger {
	if w.Log == nil {
		return log.StandardLogger()
	}
	return w.Log
}

func (w *Worker) maxAttempts() int64 {
	if w.MaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return w.MaxAttempts
}

func (w *Worker) idle() time.Duration {
	if w.Idle <= 0 {
		return defaultIdle
	}
	return w.Idle
}
