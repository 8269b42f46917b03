package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrReleaseExceedsReserved = errors.New("release would exceed reserved quantity")
	ErrDeductExceedsReserved  = errors.New("deduction would exceed reserved quantity")
	ErrNegativeOnHand         = errors.New("on-hand quantity cannot be negative")
	ErrAdjustBelowReserved    = errors.New("adjustment cannot take on-hand below reserved quantity")
)

// InsufficientInventoryError is returned when a reservation asks for more
// units than a bin can promise
type InsufficientInventoryError struct {
	SKU       string
	Bin       string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s at %s: requested %d, available %d",
		e.SKU, e.Bin, e.Requested, e.Available)
}

// NewInsufficientInventoryError creates an InsufficientInventoryError
func NewInsufficientInventoryError(sku, bin string, requested, available int) *InsufficientInventoryError {
	return &InsufficientInventoryError{SKU: sku, Bin: bin, Requested: requested, Available: available}
}

// InventoryUnit is the ledger aggregate for one SKU in one bin. OnHand counts
// units physically present, Reserved counts units promised to claimed orders.
// Both counters only move inside the transaction that moves the order, so
// 0 <= Reserved <= OnHand holds at every commit point.
type InventoryUnit struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	SKU          string             `bson:"sku"`
	Bin          string             `bson:"bin"`
	OnHand       int                `bson:"onHand"`
	Reserved     int                `bson:"reserved"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
	DomainEvents []DomainEvent      `bson:"-"`
}

// NewInventoryUnit creates a ledger entry for a SKU and bin
func NewInventoryUnit(sku, bin string, onHand int) (*InventoryUnit, error) {
	if sku == "" || bin == "" {
		return nil, fmt.Errorf("inventory unit requires sku and bin")
	}
	if onHand < 0 {
		return nil, ErrNegativeOnHand
	}

	now := time.Now().UTC()
	return &InventoryUnit{
		SKU:          sku,
		Bin:          bin,
		OnHand:       onHand,
		Reserved:     0,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}, nil
}

// Available returns the units that can still be promised
func (u *InventoryUnit) Available() int {
	return u.OnHand - u.Reserved
}

// Reserve promises units to an order. It fails with an
// InsufficientInventoryError when fewer units are available than requested,
// leaving the counters untouched.
func (u *InventoryUnit) Reserve(quantity int, orderID string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if u.Available() < quantity {
		return NewInsufficientInventoryError(u.SKU, u.Bin, quantity, u.Available())
	}

	now := time.Now().UTC()
	u.Reserved += quantity
	u.UpdatedAt = now

	u.AddDomainEvent(&StockReservedEvent{
		SKU:        u.SKU,
		Bin:        u.Bin,
		Quantity:   quantity,
		OrderID:    orderID,
		Available:  u.Available(),
		ReservedAt: now,
	})

	return nil
}

// Release returns promised units to the available pool without touching
// on-hand, used by cancellations and short-pick resolutions
func (u *InventoryUnit) Release(quantity int, orderID string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > u.Reserved {
		return fmt.Errorf("%w: %s at %s has %d reserved, asked to release %d",
			ErrReleaseExceedsReserved, u.SKU, u.Bin, u.Reserved, quantity)
	}

	now := time.Now().UTC()
	u.Reserved -= quantity
	u.UpdatedAt = now

	u.AddDomainEvent(&StockReleasedEvent{
		SKU:        u.SKU,
		Bin:        u.Bin,
		Quantity:   quantity,
		OrderID:    orderID,
		Available:  u.Available(),
		ReleasedAt: now,
	})

	return nil
}

// Deduct removes shipped units from the warehouse, decrementing on-hand and
// reserved together so available stays unchanged. Deducting more than is
// reserved means the books never matched the order and is an invariant
// violation, not a user error.
func (u *InventoryUnit) Deduct(quantity int, orderID string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > u.Reserved {
		return fmt.Errorf("%w: %s at %s has %d reserved, asked to deduct %d",
			ErrDeductExceedsReserved, u.SKU, u.Bin, u.Reserved, quantity)
	}

	now := time.Now().UTC()
	u.OnHand -= quantity
	u.Reserved -= quantity
	u.UpdatedAt = now

	u.AddDomainEvent(&StockDeductedEvent{
		SKU:        u.SKU,
		Bin:        u.Bin,
		Quantity:   quantity,
		OrderID:    orderID,
		OnHand:     u.OnHand,
		DeductedAt: now,
	})

	return nil
}

// Adjust corrects on-hand to a counted value after a cycle count or
// write-off. The correction cannot go negative and cannot undercut
// outstanding reservations; those have to be released first.
func (u *InventoryUnit) Adjust(newOnHand int, reason string) error {
	if newOnHand < 0 {
		return ErrNegativeOnHand
	}
	if newOnHand < u.Reserved {
		return fmt.Errorf("%w: %s at %s has %d reserved, adjustment to %d",
			ErrAdjustBelowReserved, u.SKU, u.Bin, u.Reserved, newOnHand)
	}

	now := time.Now().UTC()
	delta := newOnHand - u.OnHand
	u.OnHand = newOnHand
	u.UpdatedAt = now

	u.AddDomainEvent(&InventoryAdjustedEvent{
		SKU:        u.SKU,
		Bin:        u.Bin,
		Delta:      delta,
		OnHand:     u.OnHand,
		Reason:     reason,
		AdjustedAt: now,
	})

	return nil
}

// Receive adds received units to on-hand
func (u *InventoryUnit) Receive(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	now := time.Now().UTC()
	u.OnHand += quantity
	u.UpdatedAt = now

	u.AddDomainEvent(&StockReceivedEvent{
		SKU:        u.SKU,
		Bin:        u.Bin,
		Quantity:   quantity,
		OnHand:     u.OnHand,
		ReceivedAt: now,
	})

	return nil
}

// AddDomainEvent records an event for the outbox to publish after commit
func (u *InventoryUnit) AddDomainEvent(event DomainEvent) {
	u.DomainEvents = append(u.DomainEvents, event)
}

// ClearDomainEvents resets the recorded list once events are staged
func (u *InventoryUnit) ClearDomainEvents() {
	u.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns the events recorded since the last clear
func (u *InventoryUnit) GetDomainEvents() []DomainEvent {
	return u.DomainEvents
}
