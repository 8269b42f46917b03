package outbox

import "context"

// Repository persists outbox rows. SaveAll accepts a session context so the
// rows commit atomically with the state change that produced them; the other
// methods serve the publisher's poll loop.
type Repository interface {
	SaveAll(ctx context.Context, events []*OutboxEvent) error
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkPublished(ctx context.Context, eventID string) error
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error
}
