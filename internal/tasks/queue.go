package tasks

import "context"

// Queue is the async task collaborator. Enqueues are fire-and-forget from
// the caller's point of view: a failed enqueue is logged by the caller and
// never affects game state.
type Queue interface {
	EnqueueSmoothing(ctx context.Context, answerID uint) error
	Close() error
}

// NoopQueue discards tasks. Used when no broker is configured and in tests.
type NoopQueue struct{}

func (NoopQueue) EnqueueSmoothing(ctx context.Context, answerID uint) error { return nil }

func (NoopQueue) Close() error { return nil }
