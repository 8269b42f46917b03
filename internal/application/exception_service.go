package application

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/mongodb"
)

// ExceptionService manages the exception workflow: logging discrepancies
// found on the floor and applying supervisor resolutions. Logging never
// blocks floor work; resolutions carry their compensating action in the
// same transaction as the status change, so a half-applied resolution
// cannot be observed.
type ExceptionService struct {
	deps ServiceDependencies
}

// NewExceptionService creates a new ExceptionService
func NewExceptionService(deps ServiceDependencies) *ExceptionService {
	return &ExceptionService{deps: deps}
}

// resolutionEffects accumulates the side effects of a compensating action so
// they can be committed and reported once per resolution.
type resolutionEffects struct {
	order             *domain.Order
	orderStatusAtLoad domain.OrderStatus
	stockEvents       []domain.DomainEvent
	auditRows         []*domain.InventoryTransaction
	stateChanges      []*domain.OrderStateChange
	movements         []domain.TransactionType
	transitions       [][2]domain.OrderStatus
}

// LogException records a discrepancy against an order. The order must exist,
// and when a SKU is named it must be on the order; beyond that, logging
// always succeeds so floor workers are never stuck on a broken pick.
func (s *ExceptionService) LogException(ctx context.Context, cmd LogExceptionCommand) (*ExceptionDTO, error) {
	excType, err := domain.ParseExceptionType(cmd.Type)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}
	if cmd.ReportedBy == "" {
		return nil, errors.ErrValidation("reportedBy is required")
	}

	var dto *ExceptionDTO
	err = s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		order, err := s.deps.Orders.FindByID(sessCtx, cmd.OrderID)
		if err != nil {
			return err
		}

		bin := cmd.Bin
		if cmd.SKU != "" {
			if _, ok := order.Line(cmd.SKU, cmd.Bin); !ok {
				line, found := order.LineBySKU(cmd.SKU)
				if !found {
					return fmt.Errorf("%w: %s is not on order %s", domain.ErrLineNotFound, cmd.SKU, cmd.OrderID)
				}
				if bin == "" {
					bin = line.Bin
				}
			}
		}

		exceptionID := "EXC-" + mongodb.GenerateIDString()
		exc, err := domain.NewOrderException(exceptionID, order.OrderID, excType,
			cmd.SKU, bin, cmd.Quantity, cmd.Description, cmd.ReportedBy)
		if err != nil {
			return err
		}
		if err := s.deps.Exceptions.Save(sessCtx, exc); err != nil {
			return err
		}

		if err := s.deps.saveDomainEvents(sessCtx, "OrderException", exceptionID, order.OrderID, exc.GetDomainEvents()); err != nil {
			return err
		}
		exc.ClearDomainEvents()

		dto = ToExceptionDTO(exc)
		return nil
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.HTTPStatus >= 500 {
			s.deps.Logger.WithError(err).Error("Failed to log exception", "orderId", cmd.OrderID, "type", cmd.Type)
		}
		return nil, appErr
	}

	s.deps.Metrics.RecordExceptionLogged(string(excType))
	s.deps.Logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "exception.logged",
		EntityType: "exception",
		EntityID:   dto.ExceptionID,
		Action:     "logged",
		ActorID:    cmd.ReportedBy,
		RelatedIDs: map[string]string{"orderId": cmd.OrderID, "type": cmd.Type},
	})
	return dto, nil
}

// StartReview moves an open exception under review
func (s *ExceptionService) StartReview(ctx context.Context, cmd StartExceptionReviewCommand) (*ExceptionDTO, error) {
	if cmd.ReviewerID == "" {
		return nil, errors.ErrValidation("reviewerId is required")
	}

	var dto *ExceptionDTO
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		exc, err := s.deps.Exceptions.FindByID(sessCtx, cmd.ExceptionID)
		if err != nil {
			return err
		}
		statusAtLoad := exc.Status
		if err := exc.StartReview(cmd.ReviewerID); err != nil {
			return err
		}
		if err := s.deps.Exceptions.Update(sessCtx, exc, statusAtLoad); err != nil {
			return err
		}
		dto = ToExceptionDTO(exc)
		return nil
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return dto, nil
}

// ApproveException marks a reviewed exception as approved for resolution
func (s *ExceptionService) ApproveException(ctx context.Context, cmd ApproveExceptionCommand) (*ExceptionDTO, error) {
	if cmd.ReviewerID == "" {
		return nil, errors.ErrValidation("reviewerId is required")
	}

	var dto *ExceptionDTO
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		exc, err := s.deps.Exceptions.FindByID(sessCtx, cmd.ExceptionID)
		if err != nil {
			return err
		}
		statusAtLoad := exc.Status
		if err := exc.Approve(cmd.ReviewerID); err != nil {
			return err
		}
		if err := s.deps.Exceptions.Update(sessCtx, exc, statusAtLoad); err != nil {
			return err
		}
		dto = ToExceptionDTO(exc)
		return nil
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return dto, nil
}

// RejectException marks a reviewed exception as rejected. Rejected exceptions
// still require a closing resolution, typically MANUAL_OVERRIDE with notes.
func (s *ExceptionService) RejectException(ctx context.Context, cmd RejectExceptionCommand) (*ExceptionDTO, error) {
	if cmd.ReviewerID == "" {
		return nil, errors.ErrValidation("reviewerId is required")
	}

	var dto *ExceptionDTO
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		exc, err := s.deps.Exceptions.FindByID(sessCtx, cmd.ExceptionID)
		if err != nil {
			return err
		}
		statusAtLoad := exc.Status
		if err := exc.Reject(cmd.ReviewerID); err != nil {
			return err
		}
		if err := s.deps.Exceptions.Update(sessCtx, exc, statusAtLoad); err != nil {
			return err
		}
		dto = ToExceptionDTO(exc)
		return nil
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return dto, nil
}

// CancelException withdraws an exception that has not been decided yet
func (s *ExceptionService) CancelException(ctx context.Context, cmd CancelExceptionCommand) (*ExceptionDTO, error) {
	if cmd.Actor == "" {
		return nil, errors.ErrValidation("actor is required")
	}

	var dto *ExceptionDTO
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		exc, err := s.deps.Exceptions.FindByID(sessCtx, cmd.ExceptionID)
		if err != nil {
			return err
		}
		statusAtLoad := exc.Status
		if err := exc.Cancel(cmd.Actor, cmd.Reason); err != nil {
			return err
		}
		if err := s.deps.Exceptions.Update(sessCtx, exc, statusAtLoad); err != nil {
			return err
		}
		dto = ToExceptionDTO(exc)
		return nil
	})
	if err != nil {
		return nil, toAppError(err)
	}
	return dto, nil
}

// ResolveException applies a resolution and its compensating action in one
// transaction. An OPEN or REVIEWING exception is fast-tracked through review
// and approval by the resolving supervisor; a rejected exception can still be
// closed with a notes-only resolution.
func (s *ExceptionService) ResolveException(ctx context.Context, cmd ResolveExceptionCommand) (*ExceptionDTO, error) {
	resolution, err := domain.ParseResolution(cmd.Resolution)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}
	actor := cmd.Actor
	if actor == "" {
		return nil, errors.ErrValidation("actor is required")
	}

	var dto *ExceptionDTO
	var out resolutionEffects
	err = s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		out = resolutionEffects{}

		exc, err := s.deps.Exceptions.FindByID(sessCtx, cmd.ExceptionID)
		if err != nil {
			return err
		}
		if exc.IsClosed() {
			return fmt.Errorf("%w: status is %s", domain.ErrExceptionClosed, exc.Status)
		}
		statusAtLoad := exc.Status

		if exc.Status == domain.ExceptionOpen {
			if err := exc.StartReview(actor); err != nil {
				return err
			}
		}
		if exc.Status == domain.ExceptionReviewing {
			if err := exc.Approve(actor); err != nil {
				return err
			}
		}

		if err := s.applyResolution(sessCtx, exc, resolution, cmd, actor, &out); err != nil {
			return err
		}

		if err := exc.Resolve(resolution, actor, cmd.Notes); err != nil {
			return err
		}
		if err := s.deps.Exceptions.Update(sessCtx, exc, statusAtLoad); err != nil {
			return err
		}

		if out.order != nil {
			if err := s.deps.Orders.Update(sessCtx, out.order, out.orderStatusAtLoad); err != nil {
				return err
			}
		}
		for _, change := range out.stateChanges {
			if err := s.deps.StateChanges.Insert(sessCtx, change); err != nil {
				return err
			}
		}
		if len(out.auditRows) > 0 {
			if err := s.deps.InventoryLog.InsertAll(sessCtx, out.auditRows); err != nil {
				return err
			}
		}

		events := exc.GetDomainEvents()
		if out.order != nil {
			events = append(events, out.order.GetDomainEvents()...)
		}
		events = append(events, out.stockEvents...)
		if err := s.deps.saveDomainEvents(sessCtx, "OrderException", exc.ExceptionID, exc.OrderID, events); err != nil {
			return err
		}
		exc.ClearDomainEvents()
		if out.order != nil {
			out.order.ClearDomainEvents()
		}

		dto = ToExceptionDTO(exc)
		return nil
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.HTTPStatus >= 500 {
			s.deps.Logger.WithError(err).Error("Failed to resolve exception",
				"exceptionId", cmd.ExceptionID, "resolution", cmd.Resolution)
		}
		return nil, appErr
	}

	s.deps.Metrics.RecordExceptionResolved(string(resolution))
	for _, movement := range out.movements {
		s.deps.Metrics.RecordStockMovement(string(movement))
	}
	for _, transition := range out.transitions {
		s.deps.Metrics.RecordOrderTransition(string(transition[0]), string(transition[1]))
	}
	s.deps.Logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "exception.resolved",
		EntityType: "exception",
		EntityID:   cmd.ExceptionID,
		Action:     "resolved",
		ActorID:    actor,
		RelatedIDs: map[string]string{"orderId": dto.OrderID, "resolution": cmd.Resolution},
	})
	return dto, nil
}

// GetException returns a single exception
func (s *ExceptionService) GetException(ctx context.Context, query GetExceptionQuery) (*ExceptionDTO, error) {
	exc, err := s.deps.Exceptions.FindByID(ctx, query.ExceptionID)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToExceptionDTO(exc), nil
}

// ListExceptions returns exceptions filtered by order or by status
func (s *ExceptionService) ListExceptions(ctx context.Context, query ListExceptionsQuery) ([]*ExceptionDTO, int64, error) {
	if query.OrderID != "" {
		excs, err := s.deps.Exceptions.FindByOrderID(ctx, query.OrderID)
		if err != nil {
			return nil, 0, toAppError(err)
		}
		dtos := make([]*ExceptionDTO, 0, len(excs))
		for _, exc := range excs {
			dtos = append(dtos, ToExceptionDTO(exc))
		}
		return dtos, int64(len(dtos)), nil
	}

	excs, total, err := s.deps.Exceptions.FindByStatus(ctx, domain.ExceptionStatus(query.Status), query.Page, query.PageSize)
	if err != nil {
		return nil, 0, toAppError(err)
	}
	dtos := make([]*ExceptionDTO, 0, len(excs))
	for _, exc := range excs {
		dtos = append(dtos, ToExceptionDTO(exc))
	}
	return dtos, total, nil
}

// Helper functions

func (s *ExceptionService) applyResolution(sessCtx mongo.SessionContext, exc *domain.OrderException, resolution domain.Resolution, cmd ResolveExceptionCommand, actor string, out *resolutionEffects) error {
	switch resolution {
	case domain.ResolutionContactCustomer, domain.ResolutionManualOverride:
		// Notes-only resolutions, nothing to compensate
		return nil
	case domain.ResolutionWriteOff:
		return s.applyWriteOff(sessCtx, exc, actor, out)
	case domain.ResolutionTransferBin:
		return s.applyTransferBin(sessCtx, exc, cmd.NewBin, actor, out)
	}

	order, err := s.deps.Orders.FindByID(sessCtx, exc.OrderID)
	if err != nil {
		return err
	}
	out.order = order
	out.orderStatusAtLoad = order.Status

	switch resolution {
	case domain.ResolutionBackorder:
		return s.applyLineBackorder(sessCtx, exc, order, actor, out)
	case domain.ResolutionSubstitute:
		return s.applySubstitute(sessCtx, exc, order, cmd.NewSKU, cmd.NewBin, actor, out)
	case domain.ResolutionCancelItem:
		return s.applyCancelItem(sessCtx, exc, order, actor, out)
	case domain.ResolutionCancelOrder:
		return s.applyCancelOrder(sessCtx, exc, order, cmd.Notes, actor, out)
	case domain.ResolutionAdjustQuantity:
		return s.applyAdjustQuantity(sessCtx, exc, order, cmd.NewQuantity, actor, out)
	case domain.ResolutionReturnToStock:
		return s.applyReturnToStock(exc, order)
	}
	return domain.ErrUnknownResolution
}

// applyLineBackorder shrinks the line to what was actually picked and hands
// the shortfall reservation back to the pool. The remainder ships on a later
// order; if every other line is done the order still completes picking.
func (s *ExceptionService) applyLineBackorder(sessCtx mongo.SessionContext, exc *domain.OrderException, order *domain.Order, actor string, out *resolutionEffects) error {
	line, ok := order.Line(exc.SKU, exc.Bin)
	if !ok {
		return fmt.Errorf("%w: %s at %s", domain.ErrLineNotFound, exc.SKU, exc.Bin)
	}

	shortfall := line.Quantity - line.PickedQty
	if shortfall > 0 && holdsReservations(order.Status) {
		reason := "backorder " + exc.ExceptionID
		if err := s.releaseStock(sessCtx, exc.SKU, exc.Bin, shortfall, order.OrderID, reason, actor, out); err != nil {
			return err
		}
	}

	if err := order.AdjustLineQuantity(exc.SKU, exc.Bin, line.PickedQty); err != nil {
		return err
	}
	return s.completePickingIfDone(sessCtx, order, actor, out)
}

// applySubstitute swaps the line for a replacement SKU, moving the
// reservation with it. Insufficient stock on the replacement fails the whole
// resolution.
func (s *ExceptionService) applySubstitute(sessCtx mongo.SessionContext, exc *domain.OrderException, order *domain.Order, newSKU, newBin, actor string, out *resolutionEffects) error {
	if newSKU == "" || newBin == "" {
		return errors.ErrValidation("substitute resolution requires newSku and newBin")
	}
	line, ok := order.Line(exc.SKU, exc.Bin)
	if !ok {
		return fmt.Errorf("%w: %s at %s", domain.ErrLineNotFound, exc.SKU, exc.Bin)
	}

	if holdsReservations(order.Status) {
		reason := "substitute " + exc.ExceptionID
		if err := s.releaseStock(sessCtx, exc.SKU, exc.Bin, line.Quantity, order.OrderID, reason, actor, out); err != nil {
			return err
		}
		if err := s.reserveStock(sessCtx, newSKU, newBin, line.Quantity, order.OrderID, reason, actor, out); err != nil {
			return err
		}
	}

	return order.SubstituteLine(exc.SKU, exc.Bin, newSKU, newBin)
}

// applyCancelItem removes the line and releases its reservation. The last
// line cannot be cancelled this way; that decision is CANCEL_ORDER.
func (s *ExceptionService) applyCancelItem(sessCtx mongo.SessionContext, exc *domain.OrderException, order *domain.Order, actor string, out *resolutionEffects) error {
	line, ok := order.Line(exc.SKU, exc.Bin)
	if !ok {
		return fmt.Errorf("%w: %s at %s", domain.ErrLineNotFound, exc.SKU, exc.Bin)
	}

	if holdsReservations(order.Status) {
		reason := "cancel item " + exc.ExceptionID
		if err := s.releaseStock(sessCtx, exc.SKU, exc.Bin, line.Quantity, order.OrderID, reason, actor, out); err != nil {
			return err
		}
	}

	if _, err := order.RemoveLine(exc.SKU, exc.Bin); err != nil {
		return err
	}
	return s.completePickingIfDone(sessCtx, order, actor, out)
}

// applyCancelOrder cancels the whole order, releasing every reservation it
// holds
func (s *ExceptionService) applyCancelOrder(sessCtx mongo.SessionContext, exc *domain.OrderException, order *domain.Order, notes, actor string, out *resolutionEffects) error {
	previous := order.Status
	reason := notes
	if reason == "" {
		reason = "exception " + exc.ExceptionID
	}

	if err := order.Cancel(reason); err != nil {
		return err
	}

	if holdsReservations(previous) {
		for _, item := range order.Items {
			unit, err := s.deps.Inventory.FindBySKUAndBin(sessCtx, item.SKU, item.Bin)
			if err != nil {
				return err
			}
			if err := unit.Release(item.Quantity, order.OrderID); err != nil {
				return err
			}
			if err := s.deps.Inventory.Release(sessCtx, item.SKU, item.Bin, item.Quantity); err != nil {
				return err
			}
			out.stockEvents = append(out.stockEvents, unit.GetDomainEvents()...)

			row, err := domain.NewInventoryTransaction(item.SKU, item.Bin, domain.TransactionCancellation, -item.Quantity, order.OrderID, reason, actor)
			if err != nil {
				return err
			}
			out.auditRows = append(out.auditRows, row)
			out.movements = append(out.movements, domain.TransactionCancellation)
		}
		if order.PickerID != "" && previous == domain.StatusPicking {
			if err := s.deps.Workers.DecrementActiveOrders(sessCtx, order.PickerID); err != nil {
				return err
			}
		}
	}

	change, err := domain.NewOrderStateChange(order.OrderID, previous, domain.StatusCancelled, actor, reason)
	if err != nil {
		return err
	}
	out.stateChanges = append(out.stateChanges, change)
	out.transitions = append(out.transitions, [2]domain.OrderStatus{previous, domain.StatusCancelled})
	return nil
}

// applyAdjustQuantity changes the ordered quantity of the exception's line,
// moving the reservation delta in the matching direction
func (s *ExceptionService) applyAdjustQuantity(sessCtx mongo.SessionContext, exc *domain.OrderException, order *domain.Order, newQuantity int, actor string, out *resolutionEffects) error {
	if newQuantity < 0 {
		return errors.ErrValidation("newQuantity must not be negative")
	}
	line, ok := order.Line(exc.SKU, exc.Bin)
	if !ok {
		return fmt.Errorf("%w: %s at %s", domain.ErrLineNotFound, exc.SKU, exc.Bin)
	}

	if holdsReservations(order.Status) {
		delta := line.Quantity - newQuantity
		reason := "adjust quantity " + exc.ExceptionID
		if delta > 0 {
			if err := s.releaseStock(sessCtx, exc.SKU, exc.Bin, delta, order.OrderID, reason, actor, out); err != nil {
				return err
			}
		} else if delta < 0 {
			if err := s.reserveStock(sessCtx, exc.SKU, exc.Bin, -delta, order.OrderID, reason, actor, out); err != nil {
				return err
			}
		}
	}

	if err := order.AdjustLineQuantity(exc.SKU, exc.Bin, newQuantity); err != nil {
		return err
	}
	return s.completePickingIfDone(sessCtx, order, actor, out)
}

// applyReturnToStock walks picked units back to the bin. The reservation is
// untouched, picks never moved the ledger, so only the order's progress
// counters change.
func (s *ExceptionService) applyReturnToStock(exc *domain.OrderException, order *domain.Order) error {
	if exc.Quantity <= 0 {
		return errors.ErrValidation("return to stock requires the exception quantity")
	}
	_, err := order.UndoPick(exc.SKU, exc.Bin, exc.Quantity)
	return err
}

// applyWriteOff removes damaged or lost units from on-hand stock. Stock that
// is still reserved for an order cannot be written off underneath it.
func (s *ExceptionService) applyWriteOff(sessCtx mongo.SessionContext, exc *domain.OrderException, actor string, out *resolutionEffects) error {
	if exc.Quantity <= 0 {
		return errors.ErrValidation("write-off requires the exception quantity")
	}
	unit, err := s.deps.Inventory.FindBySKUAndBin(sessCtx, exc.SKU, exc.Bin)
	if err != nil {
		return err
	}

	if err := unit.Adjust(unit.OnHand-exc.Quantity, "write-off "+exc.ExceptionID); err != nil {
		return err
	}
	if err := s.deps.Inventory.Adjust(sessCtx, exc.SKU, exc.Bin, unit.OnHand); err != nil {
		return err
	}
	out.stockEvents = append(out.stockEvents, unit.GetDomainEvents()...)

	row, err := domain.NewInventoryTransaction(exc.SKU, exc.Bin, domain.TransactionAdjustment, -exc.Quantity, exc.OrderID, "write-off "+exc.ExceptionID, actor)
	if err != nil {
		return err
	}
	out.auditRows = append(out.auditRows, row)
	out.movements = append(out.movements, domain.TransactionAdjustment)
	return nil
}

// applyTransferBin books stock from the exception's bin into another bin of
// the same SKU, creating the target unit if the bin is new
func (s *ExceptionService) applyTransferBin(sessCtx mongo.SessionContext, exc *domain.OrderException, newBin, actor string, out *resolutionEffects) error {
	if exc.Quantity <= 0 {
		return errors.ErrValidation("bin transfer requires the exception quantity")
	}
	if newBin == "" {
		return errors.ErrValidation("bin transfer requires newBin")
	}
	reason := "bin transfer " + exc.ExceptionID

	source, err := s.deps.Inventory.FindBySKUAndBin(sessCtx, exc.SKU, exc.Bin)
	if err != nil {
		return err
	}
	if err := source.Adjust(source.OnHand-exc.Quantity, reason); err != nil {
		return err
	}
	if err := s.deps.Inventory.Adjust(sessCtx, exc.SKU, exc.Bin, source.OnHand); err != nil {
		return err
	}
	out.stockEvents = append(out.stockEvents, source.GetDomainEvents()...)

	target, err := s.deps.Inventory.FindBySKUAndBin(sessCtx, exc.SKU, newBin)
	if err != nil {
		if !stderrors.Is(err, domain.ErrInventoryNotFound) {
			return err
		}
		target, err = domain.NewInventoryUnit(exc.SKU, newBin, 0)
		if err != nil {
			return err
		}
		if err := s.deps.Inventory.Save(sessCtx, target); err != nil {
			return err
		}
	}
	if err := target.Adjust(target.OnHand+exc.Quantity, reason); err != nil {
		return err
	}
	if err := s.deps.Inventory.Adjust(sessCtx, exc.SKU, newBin, target.OnHand); err != nil {
		return err
	}
	out.stockEvents = append(out.stockEvents, target.GetDomainEvents()...)

	outRow, err := domain.NewInventoryTransaction(exc.SKU, exc.Bin, domain.TransactionAdjustment, -exc.Quantity, exc.OrderID, reason, actor)
	if err != nil {
		return err
	}
	inRow, err := domain.NewInventoryTransaction(exc.SKU, newBin, domain.TransactionAdjustment, exc.Quantity, exc.OrderID, reason, actor)
	if err != nil {
		return err
	}
	out.auditRows = append(out.auditRows, outRow, inRow)
	out.movements = append(out.movements, domain.TransactionAdjustment, domain.TransactionAdjustment)
	return nil
}

func (s *ExceptionService) releaseStock(sessCtx mongo.SessionContext, sku, bin string, quantity int, orderID, reason, actor string, out *resolutionEffects) error {
	unit, err := s.deps.Inventory.FindBySKUAndBin(sessCtx, sku, bin)
	if err != nil {
		return err
	}
	if err := unit.Release(quantity, orderID); err != nil {
		return err
	}
	if err := s.deps.Inventory.Release(sessCtx, sku, bin, quantity); err != nil {
		return err
	}
	out.stockEvents = append(out.stockEvents, unit.GetDomainEvents()...)

	row, err := domain.NewInventoryTransaction(sku, bin, domain.TransactionRelease, -quantity, orderID, reason, actor)
	if err != nil {
		return err
	}
	out.auditRows = append(out.auditRows, row)
	out.movements = append(out.movements, domain.TransactionRelease)
	return nil
}

func (s *ExceptionService) reserveStock(sessCtx mongo.SessionContext, sku, bin string, quantity int, orderID, reason, actor string, out *resolutionEffects) error {
	unit, err := s.deps.Inventory.FindBySKUAndBin(sessCtx, sku, bin)
	if err != nil {
		if stderrors.Is(err, domain.ErrInventoryNotFound) {
			return domain.NewInsufficientInventoryError(sku, bin, quantity, 0)
		}
		return err
	}
	if err := unit.Reserve(quantity, orderID); err != nil {
		return err
	}
	if err := s.deps.Inventory.Reserve(sessCtx, sku, bin, quantity); err != nil {
		return err
	}
	out.stockEvents = append(out.stockEvents, unit.GetDomainEvents()...)

	row, err := domain.NewInventoryTransaction(sku, bin, domain.TransactionReservation, quantity, orderID, reason, actor)
	if err != nil {
		return err
	}
	out.auditRows = append(out.auditRows, row)
	out.movements = append(out.movements, domain.TransactionReservation)
	return nil
}

func (s *ExceptionService) completePickingIfDone(sessCtx mongo.SessionContext, order *domain.Order, actor string, out *resolutionEffects) error {
	promoted, err := order.CompletePickingIfDone()
	if err != nil {
		return err
	}
	if !promoted {
		return nil
	}

	change, err := domain.NewOrderStateChange(order.OrderID, domain.StatusPicking, domain.StatusPicked, actor, "completed by resolution")
	if err != nil {
		return err
	}
	out.stateChanges = append(out.stateChanges, change)
	out.transitions = append(out.transitions, [2]domain.OrderStatus{domain.StatusPicking, domain.StatusPicked})

	if order.PickerID != "" {
		if err := s.deps.Workers.DecrementActiveOrders(sessCtx, order.PickerID); err != nil {
			return err
		}
	}
	return nil
}

func holdsReservations(status domain.OrderStatus) bool {
	switch status {
	case domain.StatusPicking, domain.StatusPicked, domain.StatusPacking, domain.StatusPacked:
		return true
	}
	return false
}
