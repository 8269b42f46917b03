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

// ExceptionRepository implements domain.ExceptionRepository using MongoDB
type ExceptionRepository struct {
	collection *mongo.Collection
}

// NewExceptionRepository creates a new ExceptionRepository
func NewExceptionRepository(db *mongo.Database) *ExceptionRepository {
	collection := db.Collection("order_exceptions")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "exceptionId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "orderId", Value: 1},
				{Key: "createdAt", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &ExceptionRepository{collection: collection}
}

// Save inserts a new exception
func (r *ExceptionRepository) Save(ctx context.Context, exc *domain.OrderException) error {
	exc.UpdatedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, exc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.ErrConflict(fmt.Sprintf("exception %s already exists", exc.ExceptionID))
		}
		return fmt.Errorf("failed to save exception: %w", err)
	}
	return nil
}

// Update persists the exception only while its stored status still matches
// expectedStatus, so two reviewers cannot both move the same exception.
func (r *ExceptionRepository) Update(ctx context.Context, exc *domain.OrderException, expectedStatus domain.ExceptionStatus) error {
	exc.UpdatedAt = time.Now().UTC()

	filter := bson.M{"exceptionId": exc.ExceptionID, "status": expectedStatus}
	update := bson.M{"$set": exc}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update exception: %w", err)
	}
	if result.MatchedCount == 0 {
		current, ferr := r.FindByID(ctx, exc.ExceptionID)
		if ferr != nil {
			return ferr
		}
		return fmt.Errorf("%w: exception %s is %s", domain.ErrConcurrentModification, exc.ExceptionID, current.Status)
	}
	return nil
}

// FindByID retrieves an exception by its ExceptionID
func (r *ExceptionRepository) FindByID(ctx context.Context, exceptionID string) (*domain.OrderException, error) {
	var exc domain.OrderException
	err := r.collection.FindOne(ctx, bson.M{"exceptionId": exceptionID}).Decode(&exc)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrExceptionNotFound, exceptionID)
		}
		return nil, err
	}
	return &exc, nil
}

// FindByOrderID retrieves all exceptions logged against an order, oldest
// first
func (r *ExceptionRepository) FindByOrderID(ctx context.Context, orderID string) ([]*domain.OrderException, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"orderId": orderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var excs []*domain.OrderException
	if err := cursor.All(ctx, &excs); err != nil {
		return nil, err
	}
	return excs, nil
}

// FindByStatus retrieves a page of exceptions, newest first. An empty status
// matches exceptions in any status.
func (r *ExceptionRepository) FindByStatus(ctx context.Context, status domain.ExceptionStatus, page, pageSize int64) ([]*domain.OrderException, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip, limit := normalizePaging(page, pageSize)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var excs []*domain.OrderException
	if err := cursor.All(ctx, &excs); err != nil {
		return nil, 0, err
	}
	return excs, total, nil
}
