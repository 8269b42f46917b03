package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes carried in API responses.
const (
	CodeValidationError       = "VALIDATION_ERROR"
	CodeBadRequest            = "BAD_REQUEST"
	CodeNotFound              = "RESOURCE_NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	CodeInvariantViolation    = "INVARIANT_VIOLATION"
	CodeTimeout               = "TIMEOUT"
	CodeInternalError         = "INTERNAL_ERROR"
)

// AppError couples a stable error code with the HTTP status it maps to.
// Handlers attach it to the Gin context; the error middleware renders it.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithDetails replaces the detail map.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds one detail entry.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap attaches the underlying cause.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates an AppError with the given code, message and status.
func NewAppError(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// ErrValidation rejects malformed input with 400.
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields rejects malformed input with per-field messages.
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// ErrBadRequest rejects a request body that cannot be decoded.
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// ErrNotFound reports a missing resource.
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, resource+" not found", http.StatusNotFound)
}

// ErrNotFoundWithID reports a missing resource and names its ID.
func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

// ErrConflict reports a request whose preconditions do not hold.
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrInvalidTransition reports an illegal status edge and lists the edges
// that would have been legal from the current status.
func ErrInvalidTransition(from, to string, allowed []string) *AppError {
	msg := fmt.Sprintf("cannot transition from %s to %s", from, to)
	return NewAppError(CodeInvalidTransition, msg, http.StatusConflict).
		WithDetail("from", from).
		WithDetail("to", to).
		WithDetail("allowed", strings.Join(allowed, ", "))
}

// ErrInsufficientInventory reports a reservation shortfall.
func ErrInsufficientInventory(sku, bin string, requested, available int) *AppError {
	msg := fmt.Sprintf("insufficient inventory for %s at %s: requested %d, available %d", sku, bin, requested, available)
	return NewAppError(CodeInsufficientInventory, msg, http.StatusConflict).
		WithDetail("sku", sku).
		WithDetail("bin", bin)
}

// ErrInvariantViolation reports corrupted ledger or order state. The
// enclosing transaction must roll back in full.
func ErrInvariantViolation(message string) *AppError {
	return NewAppError(CodeInvariantViolation, message, http.StatusInternalServerError)
}

// ErrTimeout reports an operation that ran out of time.
func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, operation+" timed out", http.StatusGatewayTimeout)
}

// ErrInternal reports an unexpected failure without leaking its cause.
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// AsAppError unwraps err into an *AppError when one is in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsConflict reports whether err is a conflict or invalid-transition error.
func IsConflict(err error) bool {
	return IsCode(err, CodeConflict) || IsCode(err, CodeInvalidTransition)
}

// IsInsufficientInventory reports whether err is a reservation shortfall.
func IsInsufficientInventory(err error) bool {
	return IsCode(err, CodeInsufficientInventory)
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// MapDomainError classifies err by its message when no AppError is in the
// chain. The application layer maps its own errors precisely; this is the
// net under everything that reaches the error middleware raw.
func MapDomainError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return ErrNotFound("resource").Wrap(err)
	case strings.Contains(msg, "insufficient"):
		return NewAppError(CodeInsufficientInventory, err.Error(), http.StatusConflict).Wrap(err)
	case strings.Contains(msg, "invariant"):
		return ErrInvariantViolation(err.Error()).Wrap(err)
	case strings.Contains(msg, "already exists"), strings.Contains(msg, "already claimed"):
		return ErrConflict(err.Error()).Wrap(err)
	case strings.Contains(msg, "cannot transition"), strings.Contains(msg, "terminal"):
		return ErrConflict(err.Error()).Wrap(err)
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "required"), strings.Contains(msg, "must be"):
		return ErrValidation(err.Error()).Wrap(err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return ErrTimeout("operation").Wrap(err)
	default:
		return ErrInternal("").Wrap(err)
	}
}
