package application

import (
	stderrors "errors"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

// ToOrderDTO converts a domain Order to its API shape
func ToOrderDTO(order *domain.Order) *OrderDTO {
	if order == nil {
		return nil
	}

	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDTO{
			SKU:         item.SKU,
			Bin:         item.Bin,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			PickedQty:   item.PickedQty,
			VerifiedQty: item.VerifiedQty,
		})
	}

	next := domain.NextStates(order.Status)
	nextStatuses := make([]string, 0, len(next))
	for _, s := range next {
		nextStatuses = append(nextStatuses, string(s))
	}

	return &OrderDTO{
		OrderID:        order.OrderID,
		CustomerID:     order.CustomerID,
		Status:         string(order.Status),
		Progress:       order.Progress(),
		Items:          items,
		ShippingMethod: order.ShippingMethod,
		Carrier:        order.Carrier,
		PickerID:       order.PickerID,
		PackerID:       order.PackerID,
		TrackingNumber: order.TrackingNumber,
		CancelReason:   order.CancelReason,
		HoldReason:     order.HoldReason,
		NextStatuses:   nextStatuses,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
		ClaimedAt:      order.ClaimedAt,
		PickedAt:       order.PickedAt,
		PackingAt:      order.PackingAt,
		PackedAt:       order.PackedAt,
		ShippedAt:      order.ShippedAt,
		CancelledAt:    order.CancelledAt,
	}
}

// ToInventoryUnitDTO converts a domain InventoryUnit to InventoryUnitDTO
func ToInventoryUnitDTO(unit *domain.InventoryUnit) *InventoryUnitDTO {
	if unit == nil {
		return nil
	}
	return &InventoryUnitDTO{
		SKU:       unit.SKU,
		Bin:       unit.Bin,
		OnHand:    unit.OnHand,
		Reserved:  unit.Reserved,
		Available: unit.Available(),
		UpdatedAt: unit.UpdatedAt,
	}
}

// ToExceptionDTO converts a domain OrderException to ExceptionDTO
func ToExceptionDTO(exc *domain.OrderException) *ExceptionDTO {
	if exc == nil {
		return nil
	}
	return &ExceptionDTO{
		ExceptionID:     exc.ExceptionID,
		OrderID:         exc.OrderID,
		SKU:             exc.SKU,
		Bin:             exc.Bin,
		Type:            string(exc.Type),
		Status:          string(exc.Status),
		Quantity:        exc.Quantity,
		Description:     exc.Description,
		ReportedBy:      exc.ReportedBy,
		ReviewedBy:      exc.ReviewedBy,
		ResolvedBy:      exc.ResolvedBy,
		Resolution:      string(exc.Resolution),
		ResolutionNotes: exc.ResolutionNotes,
		CreatedAt:       exc.CreatedAt,
		UpdatedAt:       exc.UpdatedAt,
		ReviewedAt:      exc.ReviewedAt,
		ResolvedAt:      exc.ResolvedAt,
	}
}

// ToWorkerDTO converts a domain Worker to its API shape
func ToWorkerDTO(worker *domain.Worker) *WorkerDTO {
	if worker == nil {
		return nil
	}
	roles := make([]string, 0, len(worker.Roles))
	for _, r := range worker.Roles {
		roles = append(roles, string(r))
	}
	return &WorkerDTO{
		WorkerID:     worker.WorkerID,
		Name:         worker.Name,
		Roles:        roles,
		Active:       worker.Active,
		ActiveOrders: worker.ActiveOrders,
	}
}

// ToOrderStateChangeDTO converts a domain OrderStateChange to its DTO
func ToOrderStateChangeDTO(change *domain.OrderStateChange) *OrderStateChangeDTO {
	if change == nil {
		return nil
	}
	return &OrderStateChangeDTO{
		OrderID:    change.OrderID,
		FromStatus: string(change.FromStatus),
		ToStatus:   string(change.ToStatus),
		Actor:      change.Actor,
		Reason:     change.Reason,
		OccurredAt: change.OccurredAt,
	}
}

// ToInventoryTransactionDTO converts a domain InventoryTransaction to its DTO
func ToInventoryTransactionDTO(tx *domain.InventoryTransaction) *InventoryTransactionDTO {
	if tx == nil {
		return nil
	}
	return &InventoryTransactionDTO{
		SKU:       tx.SKU,
		Bin:       tx.Bin,
		Type:      string(tx.Type),
		Quantity:  tx.Quantity,
		OrderID:   tx.OrderID,
		Reason:    tx.Reason,
		Actor:     tx.Actor,
		CreatedAt: tx.CreatedAt,
	}
}

// toAppError maps domain errors onto API errors. Typed domain errors carry
// structured detail into the response; everything else falls through to the
// shared message-pattern mapping.
func toAppError(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	var transitionErr *domain.InvalidTransitionError
	if stderrors.As(err, &transitionErr) {
		allowed := make([]string, 0, len(transitionErr.Allowed))
		for _, s := range transitionErr.Allowed {
			allowed = append(allowed, string(s))
		}
		return errors.ErrInvalidTransition(string(transitionErr.From), string(transitionErr.To), allowed)
	}

	var insufficientErr *domain.InsufficientInventoryError
	if stderrors.As(err, &insufficientErr) {
		return errors.ErrInsufficientInventory(
			insufficientErr.SKU, insufficientErr.Bin,
			insufficientErr.Requested, insufficientErr.Available)
	}

	switch {
	case stderrors.Is(err, domain.ErrOrderNotFound):
		return errors.ErrNotFound("order").Wrap(err)
	case stderrors.Is(err, domain.ErrInventoryNotFound):
		return errors.ErrNotFound("inventory unit").Wrap(err)
	case stderrors.Is(err, domain.ErrExceptionNotFound):
		return errors.ErrNotFound("exception").Wrap(err)
	case stderrors.Is(err, domain.ErrWorkerNotFound):
		return errors.ErrNotFound("worker").Wrap(err)
	case stderrors.Is(err, domain.ErrLineNotFound):
		return errors.ErrNotFound("order line").Wrap(err)

	case stderrors.Is(err, domain.ErrConcurrentModification),
		stderrors.Is(err, domain.ErrOrderNotPicking),
		stderrors.Is(err, domain.ErrOrderNotPacking),
		stderrors.Is(err, domain.ErrWorkerInactive),
		stderrors.Is(err, domain.ErrWorkerAtCapacity),
		stderrors.Is(err, domain.ErrMissingRole),
		stderrors.Is(err, domain.ErrAdjustBelowReserved),
		stderrors.Is(err, domain.ErrLastLine),
		stderrors.Is(err, domain.ErrExceptionNotOpen),
		stderrors.Is(err, domain.ErrExceptionNotUnderReview),
		stderrors.Is(err, domain.ErrExceptionNotDecided),
		stderrors.Is(err, domain.ErrExceptionClosed):
		return errors.ErrConflict(err.Error()).Wrap(err)

	case stderrors.Is(err, domain.ErrReleaseExceedsReserved),
		stderrors.Is(err, domain.ErrDeductExceedsReserved):
		return errors.ErrInvariantViolation(err.Error()).Wrap(err)

	case stderrors.Is(err, domain.ErrInvalidQuantity),
		stderrors.Is(err, domain.ErrNoOrderLines),
		stderrors.Is(err, domain.ErrPickExceedsOrdered),
		stderrors.Is(err, domain.ErrPackExceedsOrdered),
		stderrors.Is(err, domain.ErrPickerRequired),
		stderrors.Is(err, domain.ErrPackerRequired),
		stderrors.Is(err, domain.ErrShippingInfoMissing),
		stderrors.Is(err, domain.ErrBackorderReason),
		stderrors.Is(err, domain.ErrQuantityBelowPicked),
		stderrors.Is(err, domain.ErrNegativeOnHand),
		stderrors.Is(err, domain.ErrReporterRequired),
		stderrors.Is(err, domain.ErrUnknownExceptionType),
		stderrors.Is(err, domain.ErrUnknownResolution):
		return errors.ErrValidation(err.Error()).Wrap(err)
	}

	return errors.MapDomainError(err)
}
