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

// OrderRepository implements domain.OrderRepository on the orders collection
type OrderRepository struct {
	collection *mongo.Collection
}

// NewOrderRepository creates the repository and ensures its indexes
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	collection := db.Collection("orders")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "customerId", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "pickerId", Value: 1},
				{Key: "status", Value: 1},
			},
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &OrderRepository{collection: collection}
}

// Save inserts a new order. The unique index on orderId turns a duplicate
// insert into a conflict.
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	order.UpdatedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.ErrConflict(fmt.Sprintf("order %s already exists", order.OrderID))
		}
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// Update persists the order only while its stored status still matches
// expectedStatus. A no-match means another request moved the order first,
// or the order never existed; the follow-up read tells the two apart.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order, expectedStatus domain.OrderStatus) error {
	order.UpdatedAt = time.Now().UTC()

	filter := bson.M{"orderId": order.OrderID, "status": expectedStatus}
	update := bson.M{"$set": order}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if result.MatchedCount == 0 {
		current, ferr := r.FindByID(ctx, order.OrderID)
		if ferr != nil {
			return ferr
		}
		return fmt.Errorf("%w: order %s is %s", domain.ErrConcurrentModification, order.OrderID, current.Status)
	}
	return nil
}

// FindByID retrieves one order by its business identifier
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var order domain.Order
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&order)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
		}
		return nil, err
	}
	return &order, nil
}

// FindByStatus retrieves a page of orders in the given status
func (r *OrderRepository) FindByStatus(ctx context.Context, status domain.OrderStatus, page, pageSize int64) ([]*domain.Order, int64, error) {
	return r.findPage(ctx, bson.M{"status": status}, page, pageSize)
}

// FindByPicker retrieves the orders a picker holds, optionally narrowed to
// the given statuses
func (r *OrderRepository) FindByPicker(ctx context.Context, pickerID string, statuses []domain.OrderStatus) ([]*domain.Order, error) {
	filter := bson.M{"pickerId": pickerID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return r.findMany(ctx, filter, opts)
}

// List retrieves a page of orders in any status
func (r *OrderRepository) List(ctx context.Context, page, pageSize int64) ([]*domain.Order, int64, error) {
	return r.findPage(ctx, bson.M{}, page, pageSize)
}

// CountActiveByPicker counts the orders the picker is currently picking
func (r *OrderRepository) CountActiveByPicker(ctx context.Context, pickerID string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"pickerId": pickerID,
		"status":   domain.StatusPicking,
	})
}

func (r *OrderRepository) findPage(ctx context.Context, filter bson.M, page, pageSize int64) ([]*domain.Order, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip, limit := normalizePaging(page, pageSize)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	orders, err := r.findMany(ctx, filter, opts)
	return orders, total, err
}

func (r *OrderRepository) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Order, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}
