package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrWorkerInactive   = errors.New("worker is not active")
	ErrWorkerAtCapacity = errors.New("worker has reached the active order limit")
	ErrMissingRole      = errors.New("worker does not have the required role")
)

// WorkerRole names a floor role a worker can act in
type WorkerRole string

const (
	RolePicker     WorkerRole = "PICKER"
	RolePacker     WorkerRole = "PACKER"
	RoleSupervisor WorkerRole = "SUPERVISOR"
)

// AllWorkerRoles returns every known role
func AllWorkerRoles() []WorkerRole {
	return []WorkerRole{RolePicker, RolePacker, RoleSupervisor}
}

// ParseWorkerRole converts a string into a WorkerRole
func ParseWorkerRole(s string) (WorkerRole, error) {
	for _, r := range AllWorkerRoles() {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown worker role: %s", s)
}

// Worker is a warehouse floor worker. ActiveOrders counts the orders the
// worker currently holds in PICKING; the count is maintained with
// conditional updates so the per-picker cap holds under concurrent claims.
type Worker struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	WorkerID     string             `bson:"workerId"`
	Name         string             `bson:"name"`
	Roles        []WorkerRole       `bson:"roles"`
	Active       bool               `bson:"active"`
	ActiveOrders int                `bson:"activeOrders"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

// NewWorker creates an active worker with the given roles
func NewWorker(workerID, name string, roles []WorkerRole) (*Worker, error) {
	if workerID == "" {
		return nil, fmt.Errorf("worker id is required")
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("worker requires at least one role")
	}

	now := time.Now().UTC()
	return &Worker{
		WorkerID:     workerID,
		Name:         name,
		Roles:        roles,
		Active:       true,
		ActiveOrders: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasRole reports whether the worker holds the role
func (w *Worker) HasRole(role WorkerRole) bool {
	for _, r := range w.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanClaim checks the preconditions for claiming another order. The same
// checks are re-applied as a conditional update when the claim commits, so
// passing here is advisory, not a promise.
func (w *Worker) CanClaim(maxActiveOrders int) error {
	if !w.Active {
		return fmt.Errorf("%w: %s", ErrWorkerInactive, w.WorkerID)
	}
	if !w.HasRole(RolePicker) {
		return fmt.Errorf("%w: %s is not a picker", ErrMissingRole, w.WorkerID)
	}
	if w.ActiveOrders >= maxActiveOrders {
		return fmt.Errorf("%w: %s holds %d of %d", ErrWorkerAtCapacity, w.WorkerID, w.ActiveOrders, maxActiveOrders)
	}
	return nil
}

// CanPack checks the preconditions for starting to pack an order
func (w *Worker) CanPack() error {
	if !w.Active {
		return fmt.Errorf("%w: %s", ErrWorkerInactive, w.WorkerID)
	}
	if !w.HasRole(RolePacker) {
		return fmt.Errorf("%w: %s is not a packer", ErrMissingRole, w.WorkerID)
	}
	return nil
}

// Activate puts the worker back on the floor
func (w *Worker) Activate() {
	w.Active = true
	w.UpdatedAt = time.Now().UTC()
}

// Deactivate takes the worker off the floor. Orders already claimed stay
// claimed; only new claims are blocked.
func (w *Worker) Deactivate() {
	w.Active = false
	w.UpdatedAt = time.Now().UTC()
}
