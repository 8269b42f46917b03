package domain

import "time"

// DomainEvent is the contract aggregates record and the outbox ships
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// OrderCreatedEvent is published when an order enters the backlog
type OrderCreatedEvent struct {
	OrderID    string    `json:"orderId"`
	CustomerID string    `json:"customerId"`
	LineCount  int       `json:"lineCount"`
	TotalUnits int       `json:"totalUnits"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (e *OrderCreatedEvent) EventType() string     { return "wms.fulfillment.order-created" }
func (e *OrderCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// OrderClaimedEvent is published when a picker wins an order
type OrderClaimedEvent struct {
	OrderID   string    `json:"orderId"`
	PickerID  string    `json:"pickerId"`
	LineCount int       `json:"lineCount"`
	ClaimedAt time.Time `json:"claimedAt"`
}

func (e *OrderClaimedEvent) EventType() string     { return "wms.fulfillment.order-claimed" }
func (e *OrderClaimedEvent) OccurredAt() time.Time { return e.ClaimedAt }

// ItemPickedEvent is published for each recorded pick
type ItemPickedEvent struct {
	OrderID     string    `json:"orderId"`
	SKU         string    `json:"sku"`
	Bin         string    `json:"bin"`
	Quantity    int       `json:"quantity"`
	PickedTotal int       `json:"pickedTotal"`
	Progress    int       `json:"progress"`
	PickedAt    time.Time `json:"pickedAt"`
}

func (e *ItemPickedEvent) EventType() string     { return "wms.fulfillment.item-picked" }
func (e *ItemPickedEvent) OccurredAt() time.Time { return e.PickedAt }

// PickUndoneEvent is published when a recorded pick is reversed
type PickUndoneEvent struct {
	OrderID     string    `json:"orderId"`
	SKU         string    `json:"sku"`
	Bin         string    `json:"bin"`
	Quantity    int       `json:"quantity"`
	PickedTotal int       `json:"pickedTotal"`
	Progress    int       `json:"progress"`
	UndoneAt    time.Time `json:"undoneAt"`
}

func (e *PickUndoneEvent) EventType() string     { return "wms.fulfillment.item-pick-undone" }
func (e *PickUndoneEvent) OccurredAt() time.Time { return e.UndoneAt }

// OrderPickedEvent is published when the last line is picked in full
type OrderPickedEvent struct {
	OrderID  string    `json:"orderId"`
	PickerID string    `json:"pickerId"`
	PickedAt time.Time `json:"pickedAt"`
}

func (e *OrderPickedEvent) EventType() string     { return "wms.fulfillment.order-picked" }
func (e *OrderPickedEvent) OccurredAt() time.Time { return e.PickedAt }

// PackingStartedEvent is published when a packer takes the order
type PackingStartedEvent struct {
	OrderID   string    `json:"orderId"`
	PackerID  string    `json:"packerId"`
	StartedAt time.Time `json:"startedAt"`
}

func (e *PackingStartedEvent) EventType() string     { return "wms.fulfillment.packing-started" }
func (e *PackingStartedEvent) OccurredAt() time.Time { return e.StartedAt }

// ItemPackedEvent is published for each verified line quantity
type ItemPackedEvent struct {
	OrderID       string    `json:"orderId"`
	SKU           string    `json:"sku"`
	Bin           string    `json:"bin"`
	Quantity      int       `json:"quantity"`
	VerifiedTotal int       `json:"verifiedTotal"`
	PackedAt      time.Time `json:"packedAt"`
}

func (e *ItemPackedEvent) EventType() string     { return "wms.fulfillment.item-packed" }
func (e *ItemPackedEvent) OccurredAt() time.Time { return e.PackedAt }

// OrderPackedEvent is published when the last line is verified in full
type OrderPackedEvent struct {
	OrderID  string    `json:"orderId"`
	PackerID string    `json:"packerId"`
	PackedAt time.Time `json:"packedAt"`
}

func (e *OrderPackedEvent) EventType() string     { return "wms.fulfillment.order-packed" }
func (e *OrderPackedEvent) OccurredAt() time.Time { return e.PackedAt }

// OrderShippedEvent is published when the order leaves the warehouse
type OrderShippedEvent struct {
	OrderID        string    `json:"orderId"`
	Carrier        string    `json:"carrier"`
	ShippingMethod string    `json:"shippingMethod"`
	TrackingNumber string    `json:"trackingNumber,omitempty"`
	ShippedAt      time.Time `json:"shippedAt"`
}

func (e *OrderShippedEvent) EventType() string     { return "wms.fulfillment.order-shipped" }
func (e *OrderShippedEvent) OccurredAt() time.Time { return e.ShippedAt }

// OrderCancelledEvent is published when an order is cancelled
type OrderCancelledEvent struct {
	OrderID     string    `json:"orderId"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *OrderCancelledEvent) EventType() string     { return "wms.fulfillment.order-cancelled" }
func (e *OrderCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// OrderBackorderedEvent is published when an order is parked for stock
type OrderBackorderedEvent struct {
	OrderID       string    `json:"orderId"`
	Reason        string    `json:"reason"`
	BackorderedAt time.Time `json:"backorderedAt"`
}

func (e *OrderBackorderedEvent) EventType() string     { return "wms.fulfillment.order-backordered" }
func (e *OrderBackorderedEvent) OccurredAt() time.Time { return e.BackorderedAt }

// OrderReleasedEvent is published when a backordered order rejoins the backlog
type OrderReleasedEvent struct {
	OrderID    string    `json:"orderId"`
	ReleasedAt time.Time `json:"releasedAt"`
}

func (e *OrderReleasedEvent) EventType() string     { return "wms.fulfillment.order-released" }
func (e *OrderReleasedEvent) OccurredAt() time.Time { return e.ReleasedAt }

// StockReservedEvent is published when units are promised to an order
type StockReservedEvent struct {
	SKU        string    `json:"sku"`
	Bin        string    `json:"bin"`
	Quantity   int       `json:"quantity"`
	OrderID    string    `json:"orderId,omitempty"`
	Available  int       `json:"available"`
	ReservedAt time.Time `json:"reservedAt"`
}

func (e *StockReservedEvent) EventType() string     { return "wms.inventory.stock-reserved" }
func (e *StockReservedEvent) OccurredAt() time.Time { return e.ReservedAt }

// StockReleasedEvent is published when promised units return to the pool
type StockReleasedEvent struct {
	SKU        string    `json:"sku"`
	Bin        string    `json:"bin"`
	Quantity   int       `json:"quantity"`
	OrderID    string    `json:"orderId,omitempty"`
	Available  int       `json:"available"`
	ReleasedAt time.Time `json:"releasedAt"`
}

func (e *StockReleasedEvent) EventType() string     { return "wms.inventory.stock-released" }
func (e *StockReleasedEvent) OccurredAt() time.Time { return e.ReleasedAt }

// StockDeductedEvent is published when shipped units leave the warehouse
type StockDeductedEvent struct {
	SKU        string    `json:"sku"`
	Bin        string    `json:"bin"`
	Quantity   int       `json:"quantity"`
	OrderID    string    `json:"orderId,omitempty"`
	OnHand     int       `json:"onHand"`
	DeductedAt time.Time `json:"deductedAt"`
}

func (e *StockDeductedEvent) EventType() string     { return "wms.inventory.stock-deducted" }
func (e *StockDeductedEvent) OccurredAt() time.Time { return e.DeductedAt }

// InventoryAdjustedEvent is published when a count correction lands
type InventoryAdjustedEvent struct {
	SKU        string    `json:"sku"`
	Bin        string    `json:"bin"`
	Delta      int       `json:"delta"`
	OnHand     int       `json:"onHand"`
	Reason     string    `json:"reason,omitempty"`
	AdjustedAt time.Time `json:"adjustedAt"`
}

func (e *InventoryAdjustedEvent) EventType() string     { return "wms.inventory.adjusted" }
func (e *InventoryAdjustedEvent) OccurredAt() time.Time { return e.AdjustedAt }

// StockReceivedEvent is published when received units are put away
type StockReceivedEvent struct {
	SKU        string    `json:"sku"`
	Bin        string    `json:"bin"`
	Quantity   int       `json:"quantity"`
	OnHand     int       `json:"onHand"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (e *StockReceivedEvent) EventType() string     { return "wms.inventory.received" }
func (e *StockReceivedEvent) OccurredAt() time.Time { return e.ReceivedAt }

// ExceptionLoggedEvent is published when a discrepancy is recorded
type ExceptionLoggedEvent struct {
	ExceptionID string    `json:"exceptionId"`
	OrderID     string    `json:"orderId"`
	Type        string    `json:"type"`
	SKU         string    `json:"sku,omitempty"`
	Bin         string    `json:"bin,omitempty"`
	Quantity    int       `json:"quantity,omitempty"`
	ReportedBy  string    `json:"reportedBy"`
	LoggedAt    time.Time `json:"loggedAt"`
}

func (e *ExceptionLoggedEvent) EventType() string     { return "wms.exception.logged" }
func (e *ExceptionLoggedEvent) OccurredAt() time.Time { return e.LoggedAt }

// ExceptionResolvedEvent is published when an exception closes with a
// compensating action
type ExceptionResolvedEvent struct {
	ExceptionID string    `json:"exceptionId"`
	OrderID     string    `json:"orderId"`
	Type        string    `json:"type"`
	Resolution  string    `json:"resolution"`
	ResolvedBy  string    `json:"resolvedBy"`
	ResolvedAt  time.Time `json:"resolvedAt"`
}

func (e *ExceptionResolvedEvent) EventType() string     { return "wms.exception.resolved" }
func (e *ExceptionResolvedEvent) OccurredAt() time.Time { return e.ResolvedAt }
