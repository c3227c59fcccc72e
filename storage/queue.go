package storage

import (
	"context"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"aura-api/domain"
)

// ErrNoQueue is returned when no sync queue was configured.
var ErrNoQueue = errors.New("sync queue not configured")

type queueClient interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
	DequeueMessage(ctx context.Context, o *azqueue.DequeueMessageOptions) (azqueue.DequeueMessagesResponse, error)
	DeleteMessage(ctx context.Context, messageID string, popReceipt string, o *azqueue.DeleteMessageOptions) (azqueue.DeleteMessageResponse, error)
}

// QueuedJob is a dequeued sync job with the receipt needed to delete it.
type QueuedJob struct {
	Job          domain.SyncJob
	MessageID    string
	PopReceipt   string
	DequeueCount int64
	// Raw holds the message text when it could not be decoded.
	Raw string
}

// EnqueueSyncJobs sends jobs to the sync queue, assigning ids and
// timestamps where missing. It stops at the first failure.
func (s *Storage) EnqueueSyncJobs(ctx context.Context, jobs []domain.SyncJob) ([]string, error) {
	if s.syncQueue == nil {
		return nil, ErrNoQueue
	}
	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		if job.Timestamp == 0 {
			job.Timestamp = s.now().UnixMilli()
		}
		data, err := sonic.MarshalString(job)
		if err != nil {
			return ids, err
		}
		if _, err := s.syncQueue.EnqueueMessage(ctx, data, nil); err != nil {
			return ids, err
		}
		ids = append(ids, job.ID)
	}
	return ids, nil
}

// DequeueSyncJob receives one job, or nil when the queue is empty.
func (s *Storage) DequeueSyncJob(ctx context.Context) (*QueuedJob, error) {
	if s.syncQueue == nil {
		return nil, ErrNoQueue
	}
	resp, err := s.syncQueue.DequeueMessage(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	msg := resp.Messages[0]
	q := &QueuedJob{}
	if msg.MessageID != nil {
		q.MessageID = *msg.MessageID
	}
	if msg.PopReceipt != nil {
		q.PopReceipt = *msg.PopReceipt
	}
	if msg.DequeueCount != nil {
		q.DequeueCount = *msg.DequeueCount
	}
	if msg.MessageText != nil {
		if err := sonic.UnmarshalString(*msg.MessageText, &q.Job); err != nil {
			q.Raw = *msg.MessageText
		}
	}
	return q, nil
}

// DeleteSyncJob removes a processed job from the queue.
func (s *Storage) DeleteSyncJob(ctx context.Context, q *QueuedJob) error {
	if s.syncQueue == nil {
		return ErrNoQueue
	}
	_, err := s.syncQueue.DeleteMessage(ctx, q.MessageID, q.PopReceipt, nil)
	return err
}
