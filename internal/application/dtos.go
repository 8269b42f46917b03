package application

import "time"

// OrderDTO represents an order in responses
type OrderDTO struct {
	OrderID        string         `json:"orderId"`
	CustomerID     string         `json:"customerId"`
	Status         string         `json:"status"`
	Progress       int            `json:"progress"`
	Items          []OrderItemDTO `json:"items"`
	ShippingMethod string         `json:"shippingMethod,omitempty"`
	Carrier        string         `json:"carrier,omitempty"`
	PickerID       string         `json:"pickerId,omitempty"`
	PackerID       string         `json:"packerId,omitempty"`
	TrackingNumber string         `json:"trackingNumber,omitempty"`
	CancelReason   string         `json:"cancelReason,omitempty"`
	HoldReason     string         `json:"holdReason,omitempty"`
	NextStatuses   []string       `json:"nextStatuses"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	ClaimedAt      *time.Time     `json:"claimedAt,omitempty"`
	PickedAt       *time.Time     `json:"pickedAt,omitempty"`
	PackingAt      *time.Time     `json:"packingAt,omitempty"`
	PackedAt       *time.Time     `json:"packedAt,omitempty"`
	ShippedAt      *time.Time     `json:"shippedAt,omitempty"`
	CancelledAt    *time.Time     `json:"cancelledAt,omitempty"`
}

// OrderItemDTO represents an order line in responses
type OrderItemDTO struct {
	SKU         string `json:"sku"`
	Bin         string `json:"bin"`
	ProductName string `json:"productName,omitempty"`
	Quantity    int    `json:"quantity"`
	PickedQty   int    `json:"pickedQty"`
	VerifiedQty int    `json:"verifiedQty"`
}

// InventoryUnitDTO represents a ledger entry in responses
type InventoryUnitDTO struct {
	SKU       string    `json:"sku"`
	Bin       string    `json:"bin"`
	OnHand    int       `json:"onHand"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ExceptionDTO represents an exception in responses
type ExceptionDTO struct {
	ExceptionID     string     `json:"exceptionId"`
	OrderID         string     `json:"orderId"`
	SKU             string     `json:"sku,omitempty"`
	Bin             string     `json:"bin,omitempty"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Quantity        int        `json:"quantity,omitempty"`
	Description     string     `json:"description,omitempty"`
	ReportedBy      string     `json:"reportedBy"`
	ReviewedBy      string     `json:"reviewedBy,omitempty"`
	ResolvedBy      string     `json:"resolvedBy,omitempty"`
	Resolution      string     `json:"resolution,omitempty"`
	ResolutionNotes string     `json:"resolutionNotes,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	ReviewedAt      *time.Time `json:"reviewedAt,omitempty"`
	ResolvedAt      *time.Time `json:"resolvedAt,omitempty"`
}

// WorkerDTO represents a floor worker in responses
type WorkerDTO struct {
	WorkerID     string   `json:"workerId"`
	Name         string   `json:"name"`
	Roles        []string `json:"roles"`
	Active       bool     `json:"active"`
	ActiveOrders int      `json:"activeOrders"`
}

// OrderStateChangeDTO represents one audit trail entry for an order
type OrderStateChangeDTO struct {
	OrderID    string    `json:"orderId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Actor      string    `json:"actor"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// InventoryTransactionDTO represents one audit trail entry for the ledger
type InventoryTransactionDTO struct {
	SKU       string    `json:"sku"`
	Bin       string    `json:"bin"`
	Type      string    `json:"type"`
	Quantity  int       `json:"quantity"`
	OrderID   string    `json:"orderId,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"createdAt"`
}

// PickResultDTO represents the outcome of a pick, including any exception
// the pick raised along the way
type PickResultDTO struct {
	Order       *OrderDTO     `json:"order"`
	ExceptionID string        `json:"exceptionId,omitempty"`
	Exception   *ExceptionDTO `json:"exception,omitempty"`
}
