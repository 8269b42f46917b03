package cloudevents

import (
	"time"
)

// EventType constants for fulfillment domain events
const (
	// Order lifecycle events
	OrderCreated     = "wms.fulfillment.order-created"
	OrderClaimed     = "wms.fulfillment.order-claimed"
	OrderPicked      = "wms.fulfillment.order-picked"
	PackingStarted   = "wms.fulfillment.packing-started"
	OrderPacked      = "wms.fulfillment.order-packed"
	OrderShipped     = "wms.fulfillment.order-shipped"
	OrderCancelled   = "wms.fulfillment.order-cancelled"
	OrderBackordered = "wms.fulfillment.order-backordered"
	OrderReleased    = "wms.fulfillment.order-released"

	// Pick and pack progress events
	ItemPicked     = "wms.fulfillment.item-picked"
	ItemPickUndone = "wms.fulfillment.item-pick-undone"
	ItemPacked     = "wms.fulfillment.item-packed"

	// Stock movement and adjustment events
	StockReserved     = "wms.inventory.stock-reserved"
	StockReleased     = "wms.inventory.stock-released"
	StockDeducted     = "wms.inventory.stock-deducted"
	InventoryAdjusted = "wms.inventory.adjusted"
	StockReceived     = "wms.inventory.received"

	// Exception events
	ExceptionLogged   = "wms.exception.logged"
	ExceptionResolved = "wms.exception.resolved"
)

// SourceFulfillment is the source URI this service stamps on its events
const (
	SourceFulfillment = "/wms/fulfillment-service"
)

// WMSCloudEvent is the CloudEvents 1.0 envelope published by this service.
// Extension attributes serialize as additional top-level members, as the
// CloudEvents JSON format requires.
type WMSCloudEvent struct {
	SpecVersion     string                 `json:"specversion"`
	Type            string                 `json:"type"`
	Source          string                 `json:"source"`
	Subject         string                 `json:"subject,omitempty"`
	ID              string                 `json:"id"`
	Time            time.Time              `json:"time"`
	DataContentType string                 `json:"datacontenttype"`
	Data            interface{}            `json:"data"`
	Extensions      map[string]interface{} `json:"-"`

	// Extension attributes promoted to top-level JSON members
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	OrderID       string `json:"wmsorderid,omitempty"`

	// W3C trace context, populated at publish time
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// OrderCreatedData is the payload of an OrderCreated event
type OrderCreatedData struct {
	OrderID        string      `json:"orderId"`
	CustomerID     string      `json:"customerId"`
	Lines          []OrderLine `json:"lines"`
	ShippingMethod string      `json:"shippingMethod,omitempty"`
	Carrier        string      `json:"carrier,omitempty"`
}

// OrderLine represents an item line within an order payload
type OrderLine struct {
	SKU      string `json:"sku"`
	Bin      string `json:"bin"`
	Quantity int    `json:"quantity"`
}

// OrderClaimedData is the payload of an OrderClaimed event
type OrderClaimedData struct {
	OrderID  string      `json:"orderId"`
	PickerID string      `json:"pickerId"`
	Lines    []OrderLine `json:"lines"`
}

// OrderPickedData is the payload of an OrderPicked event
type OrderPickedData struct {
	OrderID  string `json:"orderId"`
	PickerID string `json:"pickerId"`
}

// OrderPackedData is the payload of an OrderPacked event
type OrderPackedData struct {
	OrderID  string `json:"orderId"`
	PackerID string `json:"packerId"`
}

// OrderShippedData is the payload of an OrderShipped event
type OrderShippedData struct {
	OrderID        string `json:"orderId"`
	Carrier        string `json:"carrier"`
	ShippingMethod string `json:"shippingMethod"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}

// OrderCancelledData is the payload of an OrderCancelled event
type OrderCancelledData struct {
	OrderID       string `json:"orderId"`
	Reason        string `json:"reason,omitempty"`
	ReleasedUnits int    `json:"releasedUnits"`
}

// OrderBackorderedData is the payload of an OrderBackordered event
type OrderBackorderedData struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// ItemPickedData is the payload of an ItemPicked event
type ItemPickedData struct {
	OrderID     string `json:"orderId"`
	SKU         string `json:"sku"`
	Bin         string `json:"bin"`
	Quantity    int    `json:"quantity"`
	PickedTotal int    `json:"pickedTotal"`
	Progress    int    `json:"progress"`
}

// ItemPackedData is the payload of an ItemPacked event
type ItemPackedData struct {
	OrderID       string `json:"orderId"`
	SKU           string `json:"sku"`
	Quantity      int    `json:"quantity"`
	VerifiedTotal int    `json:"verifiedTotal"`
}

// StockMovementData is the payload shared by the reservation ledger events.
// OnHand, Reserved and Available carry the post-movement ledger state.
type StockMovementData struct {
	SKU       string `json:"sku"`
	Bin       string `json:"bin"`
	Quantity  int    `json:"quantity"`
	OrderID   string `json:"orderId,omitempty"`
	OnHand    int    `json:"onHand"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
}

// InventoryAdjustedData is the payload of an InventoryAdjusted event
type InventoryAdjustedData struct {
	SKU            string `json:"sku"`
	Bin            string `json:"bin"`
	PreviousQty    int    `json:"previousQuantity"`
	NewQty         int    `json:"newQuantity"`
	AdjustmentType string `json:"adjustmentType"` // "receive", "cycle_count", "damage", "correction"
	Reason         string `json:"reason,omitempty"`
}

// ExceptionLoggedData is the payload of an ExceptionLogged event
type ExceptionLoggedData struct {
	ExceptionID string `json:"exceptionId"`
	OrderID     string `json:"orderId"`
	SKU         string `json:"sku,omitempty"`
	Type        string `json:"type"`
	ReportedBy  string `json:"reportedBy"`
}

// ExceptionResolvedData is the payload of an ExceptionResolved event
type ExceptionResolvedData struct {
	ExceptionID string `json:"exceptionId"`
	OrderID     string `json:"orderId"`
	Resolution  string `json:"resolution"`
	ResolvedBy  string `json:"resolvedBy"`
}
