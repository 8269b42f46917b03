package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/fulfillment-service/internal/domain"
)

// InventoryTransactionRepository implements
// domain.InventoryTransactionRepository using MongoDB. The collection is
// insert-only; nothing here updates or deletes.
type InventoryTransactionRepository struct {
	collection *mongo.Collection
}

// NewInventoryTransactionRepository creates a new
// InventoryTransactionRepository
func NewInventoryTransactionRepository(db *mongo.Database) *InventoryTransactionRepository {
	collection := db.Collection("inventory_transactions")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "sku", Value: 1},
				{Key: "bin", Value: 1},
				{Key: "createdAt", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "orderId", Value: 1}},
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &InventoryTransactionRepository{collection: collection}
}

// Insert appends one row to the inventory audit trail
func (r *InventoryTransactionRepository) Insert(ctx context.Context, tx *domain.InventoryTransaction) error {
	if _, err := r.collection.InsertOne(ctx, tx); err != nil {
		return fmt.Errorf("failed to insert inventory transaction: %w", err)
	}
	return nil
}

// InsertAll appends a batch of rows to the inventory audit trail
func (r *InventoryTransactionRepository) InsertAll(ctx context.Context, txs []*domain.InventoryTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	docs := make([]interface{}, len(txs))
	for i, tx := range txs {
		docs[i] = tx
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert inventory transactions: %w", err)
	}
	return nil
}

// FindBySKUAndBin retrieves a page of the audit trail for one SKU in one
// bin, oldest first
func (r *InventoryTransactionRepository) FindBySKUAndBin(ctx context.Context, sku, bin string, page, pageSize int64) ([]*domain.InventoryTransaction, int64, error) {
	filter := bson.M{"sku": sku, "bin": bin}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip, limit := normalizePaging(page, pageSize)
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var txs []*domain.InventoryTransaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// FindByOrderID retrieves every ledger movement an order caused, oldest
// first
func (r *InventoryTransactionRepository) FindByOrderID(ctx context.Context, orderID string) ([]*domain.InventoryTransaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"orderId": orderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var txs []*domain.InventoryTransaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// OrderStateChangeRepository implements domain.OrderStateChangeRepository
// using MongoDB. The collection is insert-only; nothing here updates or
// deletes.
type OrderStateChangeRepository struct {
	collection *mongo.Collection
}

// NewOrderStateChangeRepository creates a new OrderStateChangeRepository
func NewOrderStateChangeRepository(db *mongo.Database) *OrderStateChangeRepository {
	collection := db.Collection("order_state_changes")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "orderId", Value: 1},
				{Key: "occurredAt", Value: 1},
			},
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &OrderStateChangeRepository{collection: collection}
}

// Insert appends one row to the order audit trail
func (r *OrderStateChangeRepository) Insert(ctx context.Context, change *domain.OrderStateChange) error {
	if _, err := r.collection.InsertOne(ctx, change); err != nil {
		return fmt.Errorf("failed to insert order state change: %w", err)
	}
	return nil
}

// FindByOrderID retrieves an order's audit trail, oldest first
func (r *OrderStateChangeRepository) FindByOrderID(ctx context.Context, orderID string) ([]*domain.OrderStateChange, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurredAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"orderId": orderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var changes []*domain.OrderStateChange
	if err := cursor.All(ctx, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}
