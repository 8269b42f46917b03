package mongodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

// WorkerRepository implements domain.WorkerRepository using MongoDB
type WorkerRepository struct {
	collection *mongo.Collection
}

// NewWorkerRepository creates a new WorkerRepository
func NewWorkerRepository(db *mongo.Database) *WorkerRepository {
	collection := db.Collection("workers")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "workerId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "active", Value: 1},
				{Key: "roles", Value: 1},
			},
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &WorkerRepository{collection: collection}
}

// Save registers a new worker. The unique index on workerId turns a
// duplicate insert into a conflict.
func (r *WorkerRepository) Save(ctx context.Context, worker *domain.Worker) error {
	worker.UpdatedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, worker); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.ErrConflict(fmt.Sprintf("worker %s already exists", worker.WorkerID))
		}
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

// Update persists worker changes
func (r *WorkerRepository) Update(ctx context.Context, worker *domain.Worker) error {
	worker.UpdatedAt = time.Now().UTC()

	filter := bson.M{"workerId": worker.WorkerID}
	update := bson.M{"$set": worker}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update worker: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", domain.ErrWorkerNotFound, worker.WorkerID)
	}
	return nil
}

// FindByID retrieves a worker by its WorkerID
func (r *WorkerRepository) FindByID(ctx context.Context, workerID string) (*domain.Worker, error) {
	var worker domain.Worker
	err := r.collection.FindOne(ctx, bson.M{"workerId": workerID}).Decode(&worker)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrWorkerNotFound, workerID)
		}
		return nil, err
	}
	return &worker, nil
}

// List retrieves a page of workers
func (r *WorkerRepository) List(ctx context.Context, page, pageSize int64) ([]*domain.Worker, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	skip, limit := normalizePaging(page, pageSize)
	opts := options.Find().
		SetSort(bson.D{{Key: "workerId", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var workers []*domain.Worker
	if err := cursor.All(ctx, &workers); err != nil {
		return nil, 0, err
	}
	return workers, total, nil
}

// IncrementActiveOrders is the claim-side workload guard. The filter only
// matches an active picker below the cap; when it misses, the follow-up
// read names which prerequisite failed.
func (r *WorkerRepository) IncrementActiveOrders(ctx context.Context, workerID string, maxActive int) error {
	filter := bson.M{
		"workerId":     workerID,
		"active":       true,
		"roles":        domain.RolePicker,
		"activeOrders": bson.M{"$lt": maxActive},
	}
	update := bson.M{
		"$inc": bson.M{"activeOrders": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to increment active orders: %w", err)
	}
	if result.MatchedCount == 0 {
		worker, ferr := r.FindByID(ctx, workerID)
		if ferr != nil {
			return ferr
		}
		switch {
		case !worker.Active:
			return fmt.Errorf("%w: %s", domain.ErrWorkerInactive, workerID)
		case !worker.HasRole(domain.RolePicker):
			return fmt.Errorf("%w: %s is not a picker", domain.ErrMissingRole, workerID)
		default:
			return fmt.Errorf("%w: %s holds %d of %d", domain.ErrWorkerAtCapacity, workerID, worker.ActiveOrders, maxActive)
		}
	}
	return nil
}

// DecrementActiveOrders releases one claim slot, flooring at zero
func (r *WorkerRepository) DecrementActiveOrders(ctx context.Context, workerID string) error {
	filter := bson.M{
		"workerId":     workerID,
		"activeOrders": bson.M{"$gt": 0},
	}
	update := bson.M{
		"$inc": bson.M{"activeOrders": -1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement active orders: %w", err)
	}
	if result.MatchedCount == 0 {
		// Already at zero is fine, missing worker is not
		if _, ferr := r.FindByID(ctx, workerID); ferr != nil {
			return ferr
		}
	}
	return nil
}
