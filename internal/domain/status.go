package domain

import (
	"fmt"
	"strings"
)

// OrderStatus represents the fulfillment state of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusPicking   OrderStatus = "PICKING"
	StatusPicked    OrderStatus = "PICKED"
	StatusPacking   OrderStatus = "PACKING"
	StatusPacked    OrderStatus = "PACKED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusBackorder OrderStatus = "BACKORDER"
)

// statusTransitions is the complete transition table. A status missing a
// target here cannot reach it, no matter who asks.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPicking, StatusCancelled, StatusBackorder},
	StatusPicking:   {StatusPicked, StatusCancelled},
	StatusPicked:    {StatusPacking},
	StatusPacking:   {StatusPacked},
	StatusPacked:    {StatusShipped},
	StatusShipped:   {},
	StatusCancelled: {},
	StatusBackorder: {StatusPending},
}

// AllStatuses returns every valid order status
func AllStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPending,
		StatusPicking,
		StatusPicked,
		StatusPacking,
		StatusPacked,
		StatusShipped,
		StatusCancelled,
		StatusBackorder,
	}
}

// ParseOrderStatus validates a raw status string against the closed set
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid order status %q", s)
	}
	return status, nil
}

// IsValid reports whether the status is a member of the closed set
func (s OrderStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsTerminal reports whether the status admits no further transitions
func (s OrderStatus) IsTerminal() bool {
	targets, ok := statusTransitions[s]
	return ok && len(targets) == 0
}

// String returns the wire representation of the status
func (s OrderStatus) String() string {
	return string(s)
}

// IsValidTransition reports whether the edge from -> to exists in the
// transition table
func IsValidTransition(from, to OrderStatus) bool {
	targets, ok := statusTransitions[from]
	if !ok {
		return false
	}
	for _, target := range targets {
		if target == to {
			return true
		}
	}
	return false
}

// NextStates returns the legal successor statuses for a status. Terminal
// statuses return an empty slice, unknown statuses return nil.
func NextStates(s OrderStatus) []OrderStatus {
	targets, ok := statusTransitions[s]
	if !ok {
		return nil
	}
	out := make([]OrderStatus, len(targets))
	copy(out, targets)
	return out
}

// InvalidTransitionError reports an attempted edge that does not exist in
// the transition table. It is distinct from prerequisite failures: the edge
// itself is illegal regardless of order content.
type InvalidTransitionError struct {
	From    OrderStatus
	To      OrderStatus
	Allowed []OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot transition from %s to %s: %s is a terminal status", e.From, e.To, e.From)
	}
	names := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		names[i] = string(s)
	}
	return fmt.Sprintf("cannot transition from %s to %s: allowed transitions are %s", e.From, e.To, strings.Join(names, ", "))
}

// NewInvalidTransitionError builds the error for an illegal edge, capturing
// the legal alternatives from the transition table
func NewInvalidTransitionError(from, to OrderStatus) *InvalidTransitionError {
	return &InvalidTransitionError{
		From:    from,
		To:      to,
		Allowed: NextStates(from),
	}
}
