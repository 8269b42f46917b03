package domain

import (
	"context"
	"errors"
)

// Repository errors
var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrInventoryNotFound      = errors.New("inventory unit not found")
	ErrExceptionNotFound      = errors.New("exception not found")
	ErrWorkerNotFound         = errors.New("worker not found")
	ErrConcurrentModification = errors.New("document was modified concurrently")
)

// OrderRepository defines the interface for order persistence. Update is a
// compare-and-set on status: it only applies when the stored order still has
// expectedStatus, and fails with ErrConcurrentModification when another
// request moved the order first.
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order, expectedStatus OrderStatus) error
	FindByID(ctx context.Context, orderID string) (*Order, error)
	FindByStatus(ctx context.Context, status OrderStatus, page, pageSize int64) ([]*Order, int64, error)
	FindByPicker(ctx context.Context, pickerID string, statuses []OrderStatus) ([]*Order, error)
	List(ctx context.Context, page, pageSize int64) ([]*Order, int64, error)
	CountActiveByPicker(ctx context.Context, pickerID string) (int64, error)
}

// InventoryRepository defines the interface for the inventory ledger. The
// counter operations carry their invariant in the write itself: each one is
// a conditional update that matches only while the invariant would hold, so
// two requests racing on the same bin cannot both get the last unit.
type InventoryRepository interface {
	Save(ctx context.Context, unit *InventoryUnit) error
	FindBySKUAndBin(ctx context.Context, sku, bin string) (*InventoryUnit, error)
	FindBySKU(ctx context.Context, sku string) ([]*InventoryUnit, error)
	List(ctx context.Context, page, pageSize int64) ([]*InventoryUnit, int64, error)
	Reserve(ctx context.Context, sku, bin string, quantity int) error
	Release(ctx context.Context, sku, bin string, quantity int) error
	Deduct(ctx context.Context, sku, bin string, quantity int) error
	Adjust(ctx context.Context, sku, bin string, newOnHand int) error
	Receive(ctx context.Context, sku, bin string, quantity int) error
}

// WorkerRepository defines the interface for worker persistence.
// IncrementActiveOrders is the claim-side workload guard: a conditional
// update that only matches an active picker below the cap.
type WorkerRepository interface {
	Save(ctx context.Context, worker *Worker) error
	Update(ctx context.Context, worker *Worker) error
	FindByID(ctx context.Context, workerID string) (*Worker, error)
	List(ctx context.Context, page, pageSize int64) ([]*Worker, int64, error)
	IncrementActiveOrders(ctx context.Context, workerID string, maxActive int) error
	DecrementActiveOrders(ctx context.Context, workerID string) error
}

// ExceptionRepository defines the interface for exception persistence.
// FindByStatus with an empty status returns exceptions in any status.
type ExceptionRepository interface {
	Save(ctx context.Context, exc *OrderException) error
	Update(ctx context.Context, exc *OrderException, expectedStatus ExceptionStatus) error
	FindByID(ctx context.Context, exceptionID string) (*OrderException, error)
	FindByOrderID(ctx context.Context, orderID string) ([]*OrderException, error)
	FindByStatus(ctx context.Context, status ExceptionStatus, page, pageSize int64) ([]*OrderException, int64, error)
}

// InventoryTransactionRepository appends to the inventory audit trail.
// Rows are insert-only; there is no update or delete.
type InventoryTransactionRepository interface {
	Insert(ctx context.Context, tx *InventoryTransaction) error
	InsertAll(ctx context.Context, txs []*InventoryTransaction) error
	FindBySKUAndBin(ctx context.Context, sku, bin string, page, pageSize int64) ([]*InventoryTransaction, int64, error)
	FindByOrderID(ctx context.Context, orderID string) ([]*InventoryTransaction, error)
}

// OrderStateChangeRepository appends to the order audit trail.
// Rows are insert-only; there is no update or delete.
type OrderStateChangeRepository interface {
	Insert(ctx context.Context, change *OrderStateChange) error
	FindByOrderID(ctx context.Context, orderID string) ([]*OrderStateChange, error)
}
