package application

import "github.com/wms-platform/fulfillment-service/internal/domain"

// CreateOrderCommand represents the command to enter a new order into the
// backlog
type CreateOrderCommand struct {
	OrderID        string
	CustomerID     string
	ShippingMethod string
	Carrier        string
	Items          []domain.OrderItem
	Actor          string
}

// ClaimOrderCommand represents the command to claim an order for picking
type ClaimOrderCommand struct {
	OrderID  string
	PickerID string
	Actor    string
}

// RecordPickCommand represents the command to record picked units
type RecordPickCommand struct {
	OrderID  string
	SKU      string
	Bin      string
	Quantity int
	Actor    string
}

// UndoPickCommand represents the command to reverse recorded picks
type UndoPickCommand struct {
	OrderID  string
	SKU      string
	Bin      string
	Quantity int
	Reason   string
	Actor    string
}

// StartPackingCommand represents the command to start packing an order
type StartPackingCommand struct {
	OrderID  string
	PackerID string
	Actor    string
}

// RecordPackCommand represents the command to record verified units
type RecordPackCommand struct {
	OrderID  string
	SKU      string
	Bin      string
	Quantity int
	Actor    string
}

// ShipOrderCommand represents the command to ship a packed order
type ShipOrderCommand struct {
	OrderID        string
	TrackingNumber string
	Actor          string
}

// CancelOrderCommand represents the command to cancel an order that is still
// pending or picking
type CancelOrderCommand struct {
	OrderID string
	Reason  string
	Actor   string
}

// BackorderOrderCommand represents the command to park an order for stock
type BackorderOrderCommand struct {
	OrderID string
	Reason  string
	Actor   string
}

// ReleaseBackorderCommand represents the command to return a backordered
// order to the backlog
type ReleaseBackorderCommand struct {
	OrderID string
	Actor   string
}

// LogExceptionCommand represents the command to record a discrepancy
type LogExceptionCommand struct {
	OrderID     string
	Type        string
	SKU         string
	Bin         string
	Quantity    int
	Description string
	ReportedBy  string
}

// StartExceptionReviewCommand represents the command to pick up an exception
type StartExceptionReviewCommand struct {
	ExceptionID string
	ReviewerID  string
}

// ApproveExceptionCommand represents the command to approve an exception
type ApproveExceptionCommand struct {
	ExceptionID string
	ReviewerID  string
}

// RejectExceptionCommand represents the command to reject an exception
type RejectExceptionCommand struct {
	ExceptionID string
	ReviewerID  string
}

// ResolveExceptionCommand represents the command to close an exception with a
// compensating action. NewSKU, NewBin and NewQuantity feed the resolutions
// that need a replacement line, a target bin or a corrected quantity.
type ResolveExceptionCommand struct {
	ExceptionID string
	Resolution  string
	Notes       string
	NewSKU      string
	NewBin      string
	NewQuantity int
	Actor       string
}

// CancelExceptionCommand represents the command to withdraw an exception
type CancelExceptionCommand struct {
	ExceptionID string
	Reason      string
	Actor       string
}

// ReceiveStockCommand represents the command to put received stock away
type ReceiveStockCommand struct {
	SKU      string
	Bin      string
	Quantity int
	Actor    string
}

// AdjustStockCommand represents the command to correct an on-hand count
type AdjustStockCommand struct {
	SKU       string
	Bin       string
	NewOnHand int
	Reason    string
	Actor     string
}

// RegisterWorkerCommand represents the command to register a floor worker
type RegisterWorkerCommand struct {
	WorkerID string
	Name     string
	Roles    []string
}

// SetWorkerActiveCommand represents the command to put a worker on or off
// the floor
type SetWorkerActiveCommand struct {
	WorkerID string
	Active   bool
}

// GetOrderQuery represents the query to get an order by ID
type GetOrderQuery struct {
	OrderID string
}

// ListOrdersQuery represents the query to list orders, optionally filtered
// by status
type ListOrdersQuery struct {
	Status   string
	Page     int64
	PageSize int64
}

// GetOrderHistoryQuery represents the query for an order's audit trail
type GetOrderHistoryQuery struct {
	OrderID string
}

// GetExceptionQuery represents the query to get an exception by ID
type GetExceptionQuery struct {
	ExceptionID string
}

// ListExceptionsQuery represents the query to list exceptions
type ListExceptionsQuery struct {
	OrderID  string
	Status   string
	Page     int64
	PageSize int64
}

// GetInventoryQuery represents the query to get a ledger entry
type GetInventoryQuery struct {
	SKU string
	Bin string
}

// ListInventoryQuery represents the query to list ledger entries
type ListInventoryQuery struct {
	Page     int64
	PageSize int64
}

// GetInventoryHistoryQuery represents the query for a ledger audit trail
type GetInventoryHistoryQuery struct {
	SKU      string
	Bin      string
	Page     int64
	PageSize int64
}

// GetWorkerQuery represents the query to get a worker by ID
type GetWorkerQuery struct {
	WorkerID string
}

// ListWorkersQuery represents the query to list workers
type ListWorkersQuery struct {
	Page     int64
	PageSize int64
}
