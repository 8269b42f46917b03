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

// InventoryRepository implements domain.InventoryRepository using MongoDB.
// Every counter operation is a conditional update whose filter only matches
// while the ledger invariant would survive the write, so two requests racing
// on the same bin cannot both take the last unit.
type InventoryRepository struct {
	collection *mongo.Collection
}

// NewInventoryRepository creates a new InventoryRepository
func NewInventoryRepository(db *mongo.Database) *InventoryRepository {
	collection := db.Collection("inventory_units")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "sku", Value: 1},
				{Key: "bin", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "bin", Value: 1}},
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)

	return &InventoryRepository{collection: collection}
}

// Save inserts a new ledger entry. The unique index on sku+bin turns a
// duplicate insert into a conflict.
func (r *InventoryRepository) Save(ctx context.Context, unit *domain.InventoryUnit) error {
	unit.UpdatedAt = time.Now().UTC()

	if _, err := r.collection.InsertOne(ctx, unit); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.ErrConflict(fmt.Sprintf("inventory unit %s@%s already exists", unit.SKU, unit.Bin))
		}
		return fmt.Errorf("failed to save inventory unit: %w", err)
	}
	return nil
}

// FindBySKUAndBin retrieves the ledger entry for one SKU in one bin
func (r *InventoryRepository) FindBySKUAndBin(ctx context.Context, sku, bin string) (*domain.InventoryUnit, error) {
	var unit domain.InventoryUnit
	err := r.collection.FindOne(ctx, bson.M{"sku": sku, "bin": bin}).Decode(&unit)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s at %s", domain.ErrInventoryNotFound, sku, bin)
		}
		return nil, err
	}
	return &unit, nil
}

// FindBySKU retrieves the ledger entries for a SKU across all bins
func (r *InventoryRepository) FindBySKU(ctx context.Context, sku string) ([]*domain.InventoryUnit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "bin", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"sku": sku}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var units []*domain.InventoryUnit
	if err := cursor.All(ctx, &units); err != nil {
		return nil, err
	}
	return units, nil
}

// List retrieves a page of ledger entries
func (r *InventoryRepository) List(ctx context.Context, page, pageSize int64) ([]*domain.InventoryUnit, int64, error) {
	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	skip, limit := normalizePaging(page, pageSize)
	opts := options.Find().
		SetSort(bson.D{{Key: "sku", Value: 1}, {Key: "bin", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var units []*domain.InventoryUnit
	if err := cursor.All(ctx, &units); err != nil {
		return nil, 0, err
	}
	return units, total, nil
}

// Reserve moves quantity from available to reserved. The filter only matches
// while onHand - reserved still covers the request.
func (r *InventoryRepository) Reserve(ctx context.Context, sku, bin string, quantity int) error {
	filter := bson.M{
		"sku": sku,
		"bin": bin,
		"$expr": bson.M{
			"$gte": bson.A{
				bson.M{"$subtract": bson.A{"$onHand", "$reserved"}},
				quantity,
			},
		},
	}
	update := bson.M{
		"$inc": bson.M{"reserved": quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to reserve stock: %w", err)
	}
	if result.MatchedCount == 0 {
		unit, ferr := r.FindBySKUAndBin(ctx, sku, bin)
		if ferr != nil {
			return ferr
		}
		return domain.NewInsufficientInventoryError(sku, bin, quantity, unit.Available())
	}
	return nil
}

// Release returns quantity from reserved to available
func (r *InventoryRepository) Release(ctx context.Context, sku, bin string, quantity int) error {
	filter := bson.M{
		"sku":      sku,
		"bin":      bin,
		"reserved": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"reserved": -quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to release stock: %w", err)
	}
	if result.MatchedCount == 0 {
		unit, ferr := r.FindBySKUAndBin(ctx, sku, bin)
		if ferr != nil {
			return ferr
		}
		return fmt.Errorf("%w: %d reserved, releasing %d", domain.ErrReleaseExceedsReserved, unit.Reserved, quantity)
	}
	return nil
}

// Deduct removes quantity from both counters when an order ships. Reserved
// covering the deduction implies onHand covers it too.
func (r *InventoryRepository) Deduct(ctx context.Context, sku, bin string, quantity int) error {
	filter := bson.M{
		"sku":      sku,
		"bin":      bin,
		"reserved": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"onHand": -quantity, "reserved": -quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to deduct stock: %w", err)
	}
	if result.MatchedCount == 0 {
		unit, ferr := r.FindBySKUAndBin(ctx, sku, bin)
		if ferr != nil {
			return ferr
		}
		return fmt.Errorf("%w: %d reserved, deducting %d", domain.ErrDeductExceedsReserved, unit.Reserved, quantity)
	}
	return nil
}

// Adjust sets onHand to a corrected count. The filter refuses counts below
// the standing reservations.
func (r *InventoryRepository) Adjust(ctx context.Context, sku, bin string, newOnHand int) error {
	if newOnHand < 0 {
		return domain.ErrNegativeOnHand
	}

	filter := bson.M{
		"sku":      sku,
		"bin":      bin,
		"reserved": bson.M{"$lte": newOnHand},
	}
	update := bson.M{
		"$set": bson.M{"onHand": newOnHand, "updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if result.MatchedCount == 0 {
		unit, ferr := r.FindBySKUAndBin(ctx, sku, bin)
		if ferr != nil {
			return ferr
		}
		return fmt.Errorf("%w: %d reserved, adjusting to %d", domain.ErrAdjustBelowReserved, unit.Reserved, newOnHand)
	}
	return nil
}

// Receive adds received stock to onHand
func (r *InventoryRepository) Receive(ctx context.Context, sku, bin string, quantity int) error {
	filter := bson.M{"sku": sku, "bin": bin}
	update := bson.M{
		"$inc": bson.M{"onHand": quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to receive stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s at %s", domain.ErrInventoryNotFound, sku, bin)
	}
	return nil
}
