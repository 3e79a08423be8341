package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/papers-hub-api/internal/models"
	"github.com/noah-isme/papers-hub-api/pkg/jobs"
)

const notificationJobType = "upload_notification"

type notificationDeliverer interface {
	Deliver(ctx context.Context, doc models.Document, recipients []string) error
}

type notificationJob struct {
	Document   models.Document
	Recipients []string
}

// AsyncNotifier hands notifications to a background queue so uploads never wait on mail.
type AsyncNotifier struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAsyncNotifier builds and starts the queue.
func NewAsyncNotifier(ctx context.Context, deliverer notificationDeliverer, logger *zap.Logger, workers, retries int) *AsyncNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(notificationJob)
		if !ok {
			return fmt.Errorf("unexpected payload %T", job.Payload)
		}
		return deliverer.Deliver(ctx, payload.Document, payload.Recipients)
	}
	queue := jobs.NewQueue("notifications", handler, jobs.QueueConfig{
		Workers:    workers,
		BufferSize: 128,
		MaxRetries: retries,
		RetryDelay: 2 * time.Second,
		JobTimeout: time.Minute,
		Logger:     logger,
	})
	queue.Start(ctx)
	return &AsyncNotifier{queue: queue, logger: logger}
}

// Notify enqueues the notification. A full queue drops it with a warning.
func (n *AsyncNotifier) Notify(_ context.Context, doc models.Document, recipients []string) {
	if len(recipients) == 0 {
		return
	}
	job := jobs.Job{
		Type:    notificationJobType,
		Payload: notificationJob{Document: doc, Recipients: append([]string(nil), recipients...)},
	}
	if err := n.queue.Enqueue(job); err != nil {
		n.logger.Warn("upload notification dropped", zap.String("document_id", doc.ID), zap.Error(err))
	}
}

// Stop stops accepting notifications and delivers the ones already queued.
func (n *AsyncNotifier) Stop() {
	n.queue.Stop()
}
