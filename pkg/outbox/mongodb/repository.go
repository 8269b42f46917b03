package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/fulfillment-service/pkg/outbox"
)

const collectionName = "outbox_events"

// maxRetries is the attempt ceiling after which a row is left for manual
// inspection instead of being retried forever
const maxRetries = 10

// OutboxRepository implements outbox.Repository on MongoDB
type OutboxRepository struct {
	collection *mongo.Collection
}

// NewOutboxRepository binds the repository to the outbox_events collection.
func NewOutboxRepository(db *mongo.Database) *OutboxRepository {
	return &OutboxRepository{
		collection: db.Collection(collectionName),
	}
}

// SaveAll stages a batch of rows. Callers pass the transaction's session
// context, so the rows land together with the business writes or not at all.
func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	docs := make([]interface{}, len(events))
	for i, event := range events {
		docs[i] = event
	}

	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("stage outbox events: %w", err)
	}
	return nil
}

// FindUnpublished returns the oldest undelivered rows still under the retry
// ceiling, in creation order so events for one aggregate leave in sequence.
func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	filter := bson.M{
		"publishedAt": bson.M{"$exists": false},
		"$or": []bson.M{
			{"retryCount": bson.M{"$lt": maxRetries}},
			{"retryCount": bson.M{"$exists": false}},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find unpublished outbox events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*outbox.OutboxEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode outbox events: %w", err)
	}
	return events, nil
}

// MarkPublished stamps publishedAt, which also starts the TTL clock that
// eventually removes the row
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$set": bson.M{"publishedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("mark outbox event published: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("outbox event not found: %s", eventID)
	}
	return nil
}

// IncrementRetry bumps the attempt count and records the delivery error
func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{
			"$inc": bson.M{"retryCount": 1},
			"$set": bson.M{"lastError": errorMsg},
		},
	)
	if err != nil {
		return fmt.Errorf("increment outbox retry count: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("outbox event not found: %s", eventID)
	}
	return nil
}

// EnsureIndexes creates the poll-loop index and the TTL index that clears
// published rows after seven days. Unpublished rows have no publishedAt and
// are never expired.
func (r *OutboxRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "publishedAt", Value: 1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetName("idx_publishedAt_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "publishedAt", Value: 1}},
			Options: options.Index().SetName("idx_publishedAt_ttl").SetExpireAfterSeconds(7 * 24 * 3600),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create outbox indexes: %w", err)
	}
	return nil
}
