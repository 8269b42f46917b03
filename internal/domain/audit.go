package domain

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType classifies a ledger movement
type TransactionType string

const (
	TransactionReservation  TransactionType = "RESERVATION"
	TransactionRelease      TransactionType = "RELEASE"
	TransactionDeduction    TransactionType = "DEDUCTION"
	TransactionCancellation TransactionType = "CANCELLATION"
	TransactionAdjustment   TransactionType = "ADJUSTMENT"
	TransactionReceipt      TransactionType = "RECEIPT"
)

// InventoryTransaction is one row of the inventory audit trail. Rows are
// written in the same transaction as the counter change they describe and
// are never updated or deleted afterwards.
type InventoryTransaction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SKU       string             `bson:"sku"`
	Bin       string             `bson:"bin"`
	Type      TransactionType    `bson:"type"`
	Quantity  int                `bson:"quantity"`
	OrderID   string             `bson:"orderId,omitempty"`
	Reason    string             `bson:"reason,omitempty"`
	Actor     string             `bson:"actor"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// NewInventoryTransaction creates an audit row for a ledger movement.
// Quantity carries sign: positive for units entering a counter's meaning
// (reserve, receipt), negative for units leaving (release, deduction), and
// the cycle-count delta for adjustments.
func NewInventoryTransaction(sku, bin string, txType TransactionType, quantity int, orderID, reason, actor string) (*InventoryTransaction, error) {
	if sku == "" || bin == "" {
		return nil, fmt.Errorf("inventory transaction requires sku and bin")
	}
	if actor == "" {
		return nil, fmt.Errorf("inventory transaction requires an actor")
	}

	return &InventoryTransaction{
		SKU:       sku,
		Bin:       bin,
		Type:      txType,
		Quantity:  quantity,
		OrderID:   orderID,
		Reason:    reason,
		Actor:     actor,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// OrderStateChange is one row of the order audit trail, recording who moved
// an order along which edge and when. Insert-only, like the inventory trail.
type OrderStateChange struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	OrderID    string             `bson:"orderId"`
	FromStatus OrderStatus        `bson:"fromStatus"`
	ToStatus   OrderStatus        `bson:"toStatus"`
	Actor      string             `bson:"actor"`
	Reason     string             `bson:"reason,omitempty"`
	OccurredAt time.Time          `bson:"occurredAt"`
}

// NewOrderStateChange creates an audit row for an order transition
func NewOrderStateChange(orderID string, from, to OrderStatus, actor, reason string) (*OrderStateChange, error) {
	if orderID == "" {
		return nil, fmt.Errorf("state change requires an order id")
	}
	if actor == "" {
		return nil, fmt.Errorf("state change requires an actor")
	}

	return &OrderStateChange{
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}, nil
}
