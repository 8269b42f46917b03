package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrNoOrderLines        = errors.New("order must have at least one line")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrLineNotFound        = errors.New("order line not found")
	ErrPickExceedsOrdered  = errors.New("picked quantity would exceed ordered quantity")
	ErrPackExceedsOrdered  = errors.New("verified quantity would exceed ordered quantity")
	ErrPickerRequired      = errors.New("picker id is required")
	ErrPackerRequired      = errors.New("packer id is required")
	ErrOrderNotPicking     = errors.New("order is not being picked")
	ErrOrderNotPacking     = errors.New("order is not being packed")
	ErrShippingInfoMissing = errors.New("shipping method and carrier are required before shipping")
	ErrBackorderReason     = errors.New("backorder reason is required")
	ErrQuantityBelowPicked = errors.New("quantity cannot be reduced below the picked quantity")
	ErrLastLine            = errors.New("cannot remove the last line of an order")
)

// Order is the aggregate root for the fulfillment bounded context. It owns
// its lines by value: loading an order always loads every line, and saving
// it writes them back in the same document.
type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	OrderID        string             `bson:"orderId"`
	CustomerID     string             `bson:"customerId"`
	Status         OrderStatus        `bson:"status"`
	Items          []OrderItem        `bson:"items"`
	ShippingMethod string             `bson:"shippingMethod,omitempty"`
	Carrier        string             `bson:"carrier,omitempty"`
	PickerID       string             `bson:"pickerId,omitempty"`
	PackerID       string             `bson:"packerId,omitempty"`
	TrackingNumber string             `bson:"trackingNumber,omitempty"`
	CancelReason   string             `bson:"cancelReason,omitempty"`
	HoldReason     string             `bson:"holdReason,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
	ClaimedAt      *time.Time         `bson:"claimedAt,omitempty"`
	PickedAt       *time.Time         `bson:"pickedAt,omitempty"`
	PackingAt      *time.Time         `bson:"packingAt,omitempty"`
	PackedAt       *time.Time         `bson:"packedAt,omitempty"`
	ShippedAt      *time.Time         `bson:"shippedAt,omitempty"`
	CancelledAt    *time.Time         `bson:"cancelledAt,omitempty"`
	DomainEvents   []DomainEvent      `bson:"-"`
}

// OrderItem represents one line of an order. A line is identified by its
// SKU and the bin it is picked from; the same SKU may appear twice when it
// is stocked in two bins.
type OrderItem struct {
	SKU         string `bson:"sku"`
	Bin         string `bson:"bin"`
	ProductName string `bson:"productName,omitempty"`
	Quantity    int    `bson:"quantity"`
	PickedQty   int    `bson:"pickedQty"`
	VerifiedQty int    `bson:"verifiedQty"`
}

// Remaining returns the quantity still to pick for the line
func (i OrderItem) Remaining() int {
	return i.Quantity - i.PickedQty
}

// FullyPicked reports whether the line has been picked in full
func (i OrderItem) FullyPicked() bool {
	return i.PickedQty >= i.Quantity
}

// FullyVerified reports whether the line has been verified in full
func (i OrderItem) FullyVerified() bool {
	return i.VerifiedQty >= i.Quantity
}

// NewOrder creates a new Order aggregate in PENDING status
func NewOrder(orderID, customerID string, items []OrderItem, shippingMethod, carrier string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoOrderLines
	}
	for _, item := range items {
		if item.SKU == "" || item.Bin == "" {
			return nil, fmt.Errorf("order line requires sku and bin")
		}
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if item.PickedQty != 0 || item.VerifiedQty != 0 {
			return nil, fmt.Errorf("order line for %s must start with zero progress", item.SKU)
		}
	}

	now := time.Now().UTC()
	order := &Order{
		OrderID:        orderID,
		CustomerID:     customerID,
		Status:         StatusPending,
		Items:          items,
		ShippingMethod: shippingMethod,
		Carrier:        carrier,
		CreatedAt:      now,
		UpdatedAt:      now,
		DomainEvents:   make([]DomainEvent, 0),
	}

	order.AddDomainEvent(&OrderCreatedEvent{
		OrderID:    orderID,
		CustomerID: customerID,
		LineCount:  len(items),
		TotalUnits: order.TotalOrdered(),
		CreatedAt:  now,
	})

	return order, nil
}

// transitionTo moves the order along a legal edge or fails with an
// InvalidTransitionError naming the legal alternatives
func (o *Order) transitionTo(target OrderStatus) error {
	if !IsValidTransition(o.Status, target) {
		return NewInvalidTransitionError(o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Claim assigns the order to a picker and moves it to PICKING. Inventory
// reservation and the picker workload check happen around this call in the
// same transaction.
func (o *Order) Claim(pickerID string) error {
	if pickerID == "" {
		return ErrPickerRequired
	}
	if err := o.transitionTo(StatusPicking); err != nil {
		return err
	}

	now := time.Now().UTC()
	o.PickerID = pickerID
	o.ClaimedAt = &now

	o.AddDomainEvent(&OrderClaimedEvent{
		OrderID:   o.OrderID,
		PickerID:  pickerID,
		LineCount: len(o.Items),
		ClaimedAt: now,
	})

	return nil
}

// RecordPick records picked units against a line. The line must match both
// SKU and bin; callers resolving a bin mismatch pass the line's bin after
// logging the discrepancy. Completing the last line moves the order to
// PICKED automatically.
func (o *Order) RecordPick(sku, bin string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if o.Status != StatusPicking {
		return fmt.Errorf("%w: status is %s", ErrOrderNotPicking, o.Status)
	}

	idx := o.lineIndex(sku, bin)
	if idx < 0 {
		return fmt.Errorf("%w: %s at %s", ErrLineNotFound, sku, bin)
	}

	item := &o.Items[idx]
	if item.PickedQty+quantity > item.Quantity {
		return fmt.Errorf("%w: %s has %d of %d picked, cannot pick %d more",
			ErrPickExceedsOrdered, sku, item.PickedQty, item.Quantity, quantity)
	}

	now := time.Now().UTC()
	item.PickedQty += quantity
	o.UpdatedAt = now

	o.AddDomainEvent(&ItemPickedEvent{
		OrderID:     o.OrderID,
		SKU:         sku,
		Bin:         item.Bin,
		Quantity:    quantity,
		PickedTotal: item.PickedQty,
		Progress:    o.Progress(),
		PickedAt:    now,
	})

	if o.allPicked() {
		if err := o.transitionTo(StatusPicked); err != nil {
			return err
		}
		o.PickedAt = &now
		o.AddDomainEvent(&OrderPickedEvent{
			OrderID:  o.OrderID,
			PickerID: o.PickerID,
			PickedAt: now,
		})
	}

	return nil
}

// UndoPick reverses previously recorded picks on a line, clamping at zero.
// It returns the quantity actually reversed. Undo is only possible while the
// order is still PICKING; once the last pick has promoted the order there is
// no edge back.
func (o *Order) UndoPick(sku, bin string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	if o.Status != StatusPicking {
		return 0, fmt.Errorf("%w: status is %s", ErrOrderNotPicking, o.Status)
	}

	idx := o.lineIndex(sku, bin)
	if idx < 0 {
		return 0, fmt.Errorf("%w: %s at %s", ErrLineNotFound, sku, bin)
	}

	item := &o.Items[idx]
	undone := quantity
	if undone > item.PickedQty {
		undone = item.PickedQty
	}

	now := time.Now().UTC()
	item.PickedQty -= undone
	o.UpdatedAt = now

	o.AddDomainEvent(&PickUndoneEvent{
		OrderID:     o.OrderID,
		SKU:         sku,
		Bin:         item.Bin,
		Quantity:    undone,
		PickedTotal: item.PickedQty,
		Progress:    o.Progress(),
		UndoneAt:    now,
	})

	return undone, nil
}

// StartPacking assigns a packer and moves the order to PACKING
func (o *Order) StartPacking(packerID string) error {
	if packerID == "" {
		return ErrPackerRequired
	}
	if err := o.transitionTo(StatusPacking); err != nil {
		return err
	}

	now := time.Now().UTC()
	o.PackerID = packerID
	o.PackingAt = &now

	o.AddDomainEvent(&PackingStartedEvent{
		OrderID:   o.OrderID,
		PackerID:  packerID,
		StartedAt: now,
	})

	return nil
}

// RecordPack records verified units against a line. Completing the last line
// moves the order to PACKED automatically.
func (o *Order) RecordPack(sku, bin string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if o.Status != StatusPacking {
		return fmt.Errorf("%w: status is %s", ErrOrderNotPacking, o.Status)
	}

	idx := o.lineIndex(sku, bin)
	if idx < 0 {
		return fmt.Errorf("%w: %s at %s", ErrLineNotFound, sku, bin)
	}

	item := &o.Items[idx]
	if item.VerifiedQty+quantity > item.Quantity {
		return fmt.Errorf("%w: %s has %d of %d verified, cannot verify %d more",
			ErrPackExceedsOrdered, sku, item.VerifiedQty, item.Quantity, quantity)
	}

	now := time.Now().UTC()
	item.VerifiedQty += quantity
	o.UpdatedAt = now

	o.AddDomainEvent(&ItemPackedEvent{
		OrderID:       o.OrderID,
		SKU:           sku,
		Bin:           item.Bin,
		Quantity:      quantity,
		VerifiedTotal: item.VerifiedQty,
		PackedAt:      now,
	})

	if o.allVerified() {
		if err := o.transitionTo(StatusPacked); err != nil {
			return err
		}
		o.PackedAt = &now
		o.AddDomainEvent(&OrderPackedEvent{
			OrderID:  o.OrderID,
			PackerID: o.PackerID,
			PackedAt: now,
		})
	}

	return nil
}

// Ship moves the order to SHIPPED. The shipping method and carrier captured
// at creation must still be present; the ledger deduction happens around
// this call in the same transaction.
func (o *Order) Ship(trackingNumber string) error {
	if o.ShippingMethod == "" || o.Carrier == "" {
		return ErrShippingInfoMissing
	}
	if err := o.transitionTo(StatusShipped); err != nil {
		return err
	}

	now := time.Now().UTC()
	o.TrackingNumber = trackingNumber
	o.ShippedAt = &now

	o.AddDomainEvent(&OrderShippedEvent{
		OrderID:        o.OrderID,
		Carrier:        o.Carrier,
		ShippingMethod: o.ShippingMethod,
		TrackingNumber: trackingNumber,
		ShippedAt:      now,
	})

	return nil
}

// Cancel moves the order to CANCELLED. Releasing the order's reservations
// happens around this call in the same transaction.
func (o *Order) Cancel(reason string) error {
	if err := o.transitionTo(StatusCancelled); err != nil {
		return err
	}

	now := time.Now().UTC()
	o.CancelReason = reason
	o.CancelledAt = &now

	o.AddDomainEvent(&OrderCancelledEvent{
		OrderID:     o.OrderID,
		Reason:      reason,
		CancelledAt: now,
	})

	return nil
}

// Backorder parks a PENDING order that cannot be fulfilled. The reason is
// mandatory: a parked order with no explanation cannot be worked.
func (o *Order) Backorder(reason string) error {
	if reason == "" {
		return ErrBackorderReason
	}
	if err := o.transitionTo(StatusBackorder); err != nil {
		return err
	}

	now := time.Now().UTC()
	o.HoldReason = reason
	o.UpdatedAt = now

	o.AddDomainEvent(&OrderBackorderedEvent{
		OrderID:       o.OrderID,
		Reason:        reason,
		BackorderedAt: now,
	})

	return nil
}

// ReleaseBackorder returns a BACKORDER order to PENDING. Availability is not
// re-checked here; the next claim re-validates everything under its own
// transaction.
func (o *Order) ReleaseBackorder() error {
	if err := o.transitionTo(StatusPending); err != nil {
		return err
	}

	now := time.Now().UTC()
	o.HoldReason = ""
	o.UpdatedAt = now

	o.AddDomainEvent(&OrderReleasedEvent{
		OrderID:    o.OrderID,
		ReleasedAt: now,
	})

	return nil
}

// AdjustLineQuantity reduces (or raises) a line's ordered quantity, used by
// exception resolutions that split off backordered units. The new quantity
// can never undercut units already picked.
func (o *Order) AdjustLineQuantity(sku, bin string, newQuantity int) error {
	if newQuantity < 0 {
		return ErrInvalidQuantity
	}

	idx := o.lineIndex(sku, bin)
	if idx < 0 {
		return fmt.Errorf("%w: %s at %s", ErrLineNotFound, sku, bin)
	}

	item := &o.Items[idx]
	if newQuantity < item.PickedQty {
		return fmt.Errorf("%w: %d picked, requested %d", ErrQuantityBelowPicked, item.PickedQty, newQuantity)
	}

	item.Quantity = newQuantity
	o.UpdatedAt = time.Now().UTC()

	return nil
}

// RemoveLine drops a line from the order, used by CANCEL_ITEM resolutions.
// The last line cannot be removed; cancelling the whole order is a separate
// decision.
func (o *Order) RemoveLine(sku, bin string) (OrderItem, error) {
	idx := o.lineIndex(sku, bin)
	if idx < 0 {
		return OrderItem{}, fmt.Errorf("%w: %s at %s", ErrLineNotFound, sku, bin)
	}
	if len(o.Items) == 1 {
		return OrderItem{}, fmt.Errorf("%w: %s", ErrLastLine, o.OrderID)
	}

	removed := o.Items[idx]
	o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
	o.UpdatedAt = time.Now().UTC()

	return removed, nil
}

// SubstituteLine swaps a line's SKU and bin for a replacement, keeping the
// ordered quantity. Pick progress resets: the replacement still has to be
// picked.
func (o *Order) SubstituteLine(sku, bin, newSKU, newBin string) error {
	if newSKU == "" || newBin == "" {
		return fmt.Errorf("substitute requires sku and bin")
	}

	idx := o.lineIndex(sku, bin)
	if idx < 0 {
		return fmt.Errorf("%w: %s at %s", ErrLineNotFound, sku, bin)
	}

	item := &o.Items[idx]
	item.SKU = newSKU
	item.Bin = newBin
	item.PickedQty = 0
	item.VerifiedQty = 0
	o.UpdatedAt = time.Now().UTC()

	return nil
}

// CompletePickingIfDone promotes a PICKING order whose lines are all picked,
// used after a resolution shrinks or removes a line. Returns true when the
// order moved to PICKED.
func (o *Order) CompletePickingIfDone() (bool, error) {
	if o.Status != StatusPicking || !o.allPicked() {
		return false, nil
	}
	if err := o.transitionTo(StatusPicked); err != nil {
		return false, err
	}

	now := time.Now().UTC()
	o.PickedAt = &now
	o.AddDomainEvent(&OrderPickedEvent{
		OrderID:  o.OrderID,
		PickerID: o.PickerID,
		PickedAt: now,
	})

	return true, nil
}

// Progress returns whole-percent pick progress across all lines, rounded down
func (o *Order) Progress() int {
	ordered := o.TotalOrdered()
	if ordered == 0 {
		return 0
	}
	picked := 0
	for _, item := range o.Items {
		picked += item.PickedQty
	}
	return picked * 100 / ordered
}

// TotalOrdered returns the total ordered units across all lines
func (o *Order) TotalOrdered() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// Line returns a copy of the line matching sku and bin
func (o *Order) Line(sku, bin string) (OrderItem, bool) {
	idx := o.lineIndex(sku, bin)
	if idx < 0 {
		return OrderItem{}, false
	}
	return o.Items[idx], true
}

// LineBySKU returns a copy of the first line matching the SKU regardless of
// bin, preferring lines that still have units to pick. Used to resolve picks
// reported from the wrong bin.
func (o *Order) LineBySKU(sku string) (OrderItem, bool) {
	found := -1
	for i, item := range o.Items {
		if item.SKU != sku {
			continue
		}
		if item.Remaining() > 0 {
			return item, true
		}
		if found < 0 {
			found = i
		}
	}
	if found < 0 {
		return OrderItem{}, false
	}
	return o.Items[found], true
}

// AddDomainEvent records an event for the outbox to publish after commit
func (o *Order) AddDomainEvent(event DomainEvent) {
	o.DomainEvents = append(o.DomainEvents, event)
}

// ClearDomainEvents resets the recorded list once events are staged
func (o *Order) ClearDomainEvents() {
	o.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns the events recorded since the last clear
func (o *Order) GetDomainEvents() []DomainEvent {
	return o.DomainEvents
}

// Helper functions

func (o *Order) lineIndex(sku, bin string) int {
	for i, item := range o.Items {
		if item.SKU == sku && item.Bin == bin {
			return i
		}
	}
	return -1
}

func (o *Order) allPicked() bool {
	for _, item := range o.Items {
		if !item.FullyPicked() {
			return false
		}
	}
	return true
}

func (o *Order) allVerified() bool {
	for _, item := range o.Items {
		if !item.FullyVerified() {
			return false
		}
	}
	return true
}
