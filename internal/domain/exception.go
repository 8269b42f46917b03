package domain

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Errors
var (
	ErrUnknownExceptionType    = errors.New("unknown exception type")
	ErrUnknownResolution       = errors.New("unknown resolution")
	ErrExceptionNotOpen        = errors.New("exception is not open")
	ErrExceptionNotUnderReview = errors.New("exception is not under review")
	ErrExceptionNotDecided     = errors.New("exception has not been approved or rejected")
	ErrExceptionClosed         = errors.New("exception is already closed")
	ErrReporterRequired        = errors.New("reported by is required")
)

// ExceptionType classifies what went wrong on the floor
type ExceptionType string

const (
	ExceptionBinMismatch    ExceptionType = "BIN_MISMATCH"
	ExceptionUndoPick       ExceptionType = "UNDO_PICK"
	ExceptionShortPick      ExceptionType = "SHORT_PICK"
	ExceptionDamagedItem    ExceptionType = "DAMAGED_ITEM"
	ExceptionMissingItem    ExceptionType = "MISSING_ITEM"
	ExceptionWrongItem      ExceptionType = "WRONG_ITEM"
	ExceptionOverage        ExceptionType = "OVERAGE"
	ExceptionUnclaimRequest ExceptionType = "UNCLAIM_REQUEST"
	ExceptionOther          ExceptionType = "OTHER"
)

// AllExceptionTypes returns every recognized exception type
func AllExceptionTypes() []ExceptionType {
	return []ExceptionType{
		ExceptionBinMismatch,
		ExceptionUndoPick,
		ExceptionShortPick,
		ExceptionDamagedItem,
		ExceptionMissingItem,
		ExceptionWrongItem,
		ExceptionOverage,
		ExceptionUnclaimRequest,
		ExceptionOther,
	}
}

// ParseExceptionType validates a raw string against the known types
func ParseExceptionType(s string) (ExceptionType, error) {
	for _, t := range AllExceptionTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExceptionType, s)
}

// ExceptionStatus tracks an exception through its review workflow
type ExceptionStatus string

const (
	ExceptionOpen      ExceptionStatus = "OPEN"
	ExceptionReviewing ExceptionStatus = "REVIEWING"
	ExceptionApproved  ExceptionStatus = "APPROVED"
	ExceptionRejected  ExceptionStatus = "REJECTED"
	ExceptionResolved  ExceptionStatus = "RESOLVED"
	ExceptionCancelled ExceptionStatus = "CANCELLED"
)

// Resolution names the compensating action applied when an exception is
// resolved. Every resolution is a transactional change to the order, the
// ledger, or both.
type Resolution string

const (
	ResolutionBackorder       Resolution = "BACKORDER"
	ResolutionSubstitute      Resolution = "SUBSTITUTE"
	ResolutionCancelItem      Resolution = "CANCEL_ITEM"
	ResolutionCancelOrder     Resolution = "CANCEL_ORDER"
	ResolutionAdjustQuantity  Resolution = "ADJUST_QUANTITY"
	ResolutionReturnToStock   Resolution = "RETURN_TO_STOCK"
	ResolutionWriteOff        Resolution = "WRITE_OFF"
	ResolutionTransferBin     Resolution = "TRANSFER_BIN"
	ResolutionContactCustomer Resolution = "CONTACT_CUSTOMER"
	ResolutionManualOverride  Resolution = "MANUAL_OVERRIDE"
)

// AllResolutions returns every recognized resolution
func AllResolutions() []Resolution {
	return []Resolution{
		ResolutionBackorder,
		ResolutionSubstitute,
		ResolutionCancelItem,
		ResolutionCancelOrder,
		ResolutionAdjustQuantity,
		ResolutionReturnToStock,
		ResolutionWriteOff,
		ResolutionTransferBin,
		ResolutionContactCustomer,
		ResolutionManualOverride,
	}
}

// ParseResolution validates a raw string against the known resolutions
func ParseResolution(s string) (Resolution, error) {
	for _, r := range AllResolutions() {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResolution, s)
}

// OrderException records a discrepancy found while working an order. Logging
// one never blocks the pick line; supervisors review and resolve them out of
// band while the order keeps moving wherever it legally can.
type OrderException struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	ExceptionID     string             `bson:"exceptionId"`
	OrderID         string             `bson:"orderId"`
	SKU             string             `bson:"sku,omitempty"`
	Bin             string             `bson:"bin,omitempty"`
	Type            ExceptionType      `bson:"type"`
	Status          ExceptionStatus    `bson:"status"`
	Quantity        int                `bson:"quantity,omitempty"`
	Description     string             `bson:"description"`
	ReportedBy      string             `bson:"reportedBy"`
	ReviewedBy      string             `bson:"reviewedBy,omitempty"`
	ResolvedBy      string             `bson:"resolvedBy,omitempty"`
	Resolution      Resolution         `bson:"resolution,omitempty"`
	ResolutionNotes string             `bson:"resolutionNotes,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
	ReviewedAt      *time.Time         `bson:"reviewedAt,omitempty"`
	ResolvedAt      *time.Time         `bson:"resolvedAt,omitempty"`
	CancelledAt     *time.Time         `bson:"cancelledAt,omitempty"`
	DomainEvents    []DomainEvent      `bson:"-"`
}

// NewOrderException creates an OPEN exception against an order, optionally
// pinned to one of its lines
func NewOrderException(exceptionID, orderID string, excType ExceptionType, sku, bin string, quantity int, description, reportedBy string) (*OrderException, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order id is required")
	}
	if reportedBy == "" {
		return nil, ErrReporterRequired
	}
	if _, err := ParseExceptionType(string(excType)); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	now := time.Now().UTC()
	exc := &OrderException{
		ExceptionID:  exceptionID,
		OrderID:      orderID,
		SKU:          sku,
		Bin:          bin,
		Type:         excType,
		Status:       ExceptionOpen,
		Quantity:     quantity,
		Description:  description,
		ReportedBy:   reportedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
		DomainEvents: make([]DomainEvent, 0),
	}

	exc.AddDomainEvent(&ExceptionLoggedEvent{
		ExceptionID: exceptionID,
		OrderID:     orderID,
		Type:        string(excType),
		SKU:         sku,
		Bin:         bin,
		Quantity:    quantity,
		ReportedBy:  reportedBy,
		LoggedAt:    now,
	})

	return exc, nil
}

// StartReview moves an OPEN exception to REVIEWING
func (e *OrderException) StartReview(reviewerID string) error {
	if e.Status != ExceptionOpen {
		return fmt.Errorf("%w: status is %s", ErrExceptionNotOpen, e.Status)
	}
	if reviewerID == "" {
		return fmt.Errorf("reviewer id is required")
	}

	now := time.Now().UTC()
	e.Status = ExceptionReviewing
	e.ReviewedBy = reviewerID
	e.ReviewedAt = &now
	e.UpdatedAt = now

	return nil
}

// Approve accepts a REVIEWING exception so it can be resolved with a
// compensating action
func (e *OrderException) Approve(reviewerID string) error {
	if e.Status != ExceptionReviewing {
		return fmt.Errorf("%w: status is %s", ErrExceptionNotUnderReview, e.Status)
	}

	e.Status = ExceptionApproved
	e.ReviewedBy = reviewerID
	e.UpdatedAt = time.Now().UTC()

	return nil
}

// Reject declines a REVIEWING exception; it still closes through Resolve so
// the trail records who dismissed it and why
func (e *OrderException) Reject(reviewerID string) error {
	if e.Status != ExceptionReviewing {
		return fmt.Errorf("%w: status is %s", ErrExceptionNotUnderReview, e.Status)
	}

	e.Status = ExceptionRejected
	e.ReviewedBy = reviewerID
	e.UpdatedAt = time.Now().UTC()

	return nil
}

// Resolve closes a decided exception with the chosen resolution. The caller
// applies the matching compensating action in the same transaction.
func (e *OrderException) Resolve(resolution Resolution, resolvedBy, notes string) error {
	if e.Status != ExceptionApproved && e.Status != ExceptionRejected {
		return fmt.Errorf("%w: status is %s", ErrExceptionNotDecided, e.Status)
	}
	if _, err := ParseResolution(string(resolution)); err != nil {
		return err
	}

	now := time.Now().UTC()
	e.Status = ExceptionResolved
	e.Resolution = resolution
	e.ResolvedBy = resolvedBy
	e.ResolutionNotes = notes
	e.ResolvedAt = &now
	e.UpdatedAt = now

	e.AddDomainEvent(&ExceptionResolvedEvent{
		ExceptionID: e.ExceptionID,
		OrderID:     e.OrderID,
		Type:        string(e.Type),
		Resolution:  string(resolution),
		ResolvedBy:  resolvedBy,
		ResolvedAt:  now,
	})

	return nil
}

// Cancel withdraws an exception that has not been decided yet
func (e *OrderException) Cancel(actor, reason string) error {
	if e.Status != ExceptionOpen && e.Status != ExceptionReviewing {
		return fmt.Errorf("%w: status is %s", ErrExceptionClosed, e.Status)
	}

	now := time.Now().UTC()
	e.Status = ExceptionCancelled
	e.ResolvedBy = actor
	e.ResolutionNotes = reason
	e.CancelledAt = &now
	e.UpdatedAt = now

	return nil
}

// IsClosed reports whether the exception reached a terminal status
func (e *OrderException) IsClosed() bool {
	return e.Status == ExceptionResolved || e.Status == ExceptionCancelled
}

// AddDomainEvent records an event for the outbox to publish after commit
func (e *OrderException) AddDomainEvent(event DomainEvent) {
	e.DomainEvents = append(e.DomainEvents, event)
}

// ClearDomainEvents resets the recorded list once events are staged
func (e *OrderException) ClearDomainEvents() {
	e.DomainEvents = make([]DomainEvent, 0)
}

// GetDomainEvents returns the events recorded since the last clear
func (e *OrderException) GetDomainEvents() []DomainEvent {
	return e.DomainEvents
}
