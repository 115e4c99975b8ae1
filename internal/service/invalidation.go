package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coopvalles/asamblea-api/pkg/jobs"
)

const invalidationChunkSize = 500

type unreadCacheDropper interface {
	InvalidateUnreadCount(ctx context.Context, recipientIDs ...string) error
}

// UnreadInvalidator drops cached unread counts off the request path. A mass
// aviso touches every account; deleting thousands of keys inline would stall
// the create call, so the work goes through the background queue.
type UnreadInvalidator struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewUnreadInvalidator builds the invalidator and its queue.
func NewUnreadInvalidator(cache unreadCacheDropper, opts jobs.Options) *UnreadInvalidator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		ids, ok := job.Payload.([]string)
		if !ok {
			return fmt.Errorf("unexpected payload type for job %s", job.ID)
		}
		return cache.InvalidateUnreadCount(ctx, ids...)
	}

	return &UnreadInvalidator{
		queue:  jobs.NewQueue("unread-invalidation", handler, opts),
		logger: logger,
	}
}

// Start launches the queue workers.
func (i *UnreadInvalidator) Start(ctx context.Context) {
	i.queue.Start(ctx)
}

// Stop drains the workers.
func (i *UnreadInvalidator) Stop() {
	i.queue.Stop()
}

// Invalidate enqueues cache drops for the given recipients in chunks.
func (i *UnreadInvalidator) Invalidate(recipientIDs []string) {
	for start := 0; start < len(recipientIDs); start += invalidationChunkSize {
		end := start + invalidationChunkSize
		if end > len(recipientIDs) {
			end = len(recipientIDs)
		}
		chunk := recipientIDs[start:end]
		job := jobs.Job{ID: uuid.NewString(), Type: "unread-invalidation", Payload: chunk}
		if err := i.queue.Enqueue(job); err != nil {
			i.logger.Warn("failed to enqueue cache invalidation", zap.Int("recipients", len(chunk)), zap.Error(err))
		}
	}
}
