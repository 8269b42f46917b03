package application

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/mongodb"
)

// OrderExecutionService handles the floor work on a claimed order: picking,
// packing and shipping. Every command re-validates the order's status inside
// its transaction, so stale requests lose cleanly instead of corrupting
// progress counters.
type OrderExecutionService struct {
	deps ServiceDependencies
}

// NewOrderExecutionService creates a new OrderExecutionService
func NewOrderExecutionService(deps ServiceDependencies) *OrderExecutionService {
	return &OrderExecutionService{deps: deps}
}

// RecordPick records picked units against an order line. A pick reported
// from the wrong bin does not fail: it is recorded against the line's actual
// bin and a BIN_MISMATCH exception is logged in the same transaction for a
// supervisor to square up later.
func (s *OrderExecutionService) RecordPick(ctx context.Context, cmd RecordPickCommand) (*PickResultDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation("quantity must be greater than zero")
	}
	actor := cmd.Actor
	if actor == "" {
		return nil, errors.ErrValidation("actor is required")
	}

	result := &PickResultDTO{}
	var promoted bool
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		order, err := s.deps.Orders.FindByID(sessCtx, cmd.OrderID)
		if err != nil {
			return err
		}

		bin := cmd.Bin
		if _, ok := order.Line(cmd.SKU, cmd.Bin); !ok {
			line, found := order.LineBySKU(cmd.SKU)
			if !found {
				return fmt.Errorf("%w: %s is not on order %s", domain.ErrLineNotFound, cmd.SKU, cmd.OrderID)
			}

			// Wrong bin reported: pick the line anyway, flag the discrepancy
			bin = line.Bin
			exceptionID := "EXC-" + mongodb.GenerateIDString()
			exc, err := domain.NewOrderException(exceptionID, order.OrderID, domain.ExceptionBinMismatch,
				cmd.SKU, cmd.Bin, cmd.Quantity,
				fmt.Sprintf("pick reported from %s, line is stocked at %s", cmd.Bin, line.Bin), actor)
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
			result.ExceptionID = exceptionID
			result.Exception = ToExceptionDTO(exc)
		}

		if err := order.RecordPick(cmd.SKU, bin, cmd.Quantity); err != nil {
			return err
		}
		promoted = order.Status == domain.StatusPicked

		if err := s.deps.Orders.Update(sessCtx, order, domain.StatusPicking); err != nil {
			return err
		}

		if promoted {
			change, err := domain.NewOrderStateChange(order.OrderID, domain.StatusPicking, domain.StatusPicked, actor, "")
			if err != nil {
				return err
			}
			if err := s.deps.StateChanges.Insert(sessCtx, change); err != nil {
				return err
			}
			// The order left the picker's active set
			if err := s.deps.Workers.DecrementActiveOrders(sessCtx, order.PickerID); err != nil {
				return err
			}
		}

		if err := s.deps.saveDomainEvents(sessCtx, "Order", order.OrderID, order.OrderID, order.GetDomainEvents()); err != nil {
			return err
		}
		order.ClearDomainEvents()

		result.Order = ToOrderDTO(order)
		return nil
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.HTTPStatus >= 500 {
			s.deps.Logger.WithError(err).Error("Failed to record pick", "orderId", cmd.OrderID, "sku", cmd.SKU)
		}
		return nil, appErr
	}

	s.deps.Metrics.RecordItemsPicked(cmd.Quantity)
	if promoted {
		s.deps.Metrics.RecordOrderTransition(string(domain.StatusPicking), string(domain.StatusPicked))
	}
	if result.ExceptionID != "" {
		s.deps.Metrics.RecordExceptionLogged(string(domain.ExceptionBinMismatch))
		s.deps.Logger.Warn("Pick recorded with bin mismatch",
			"orderId", cmd.OrderID, "sku", cmd.SKU, "reportedBin", cmd.Bin, "exceptionId", result.ExceptionID)
	}
	return result, nil
}

// UndoPick reverses previously recorded picks, clamping at zero. Undo is an
// exceptional flow, so every undo logs an UNDO_PICK exception alongside the
// correction.
func (s *OrderExecutionService) UndoPick(ctx context.Context, cmd UndoPickCommand) (*PickResultDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation("quantity must be greater than zero")
	}
	actor := cmd.Actor
	if actor == "" {
		return nil, errors.ErrValidation("actor is required")
	}

	result := &PickResultDTO{}
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		order, err := s.deps.Orders.FindByID(sessCtx, cmd.OrderID)
		if err != nil {
			return err
		}

		undone, err := order.UndoPick(cmd.SKU, cmd.Bin, cmd.Quantity)
		if err != nil {
			return err
		}

		if err := s.deps.Orders.Update(sessCtx, order, domain.StatusPicking); err != nil {
			return err
		}

		description := cmd.Reason
		if description == "" {
			description = fmt.Sprintf("undid %d picked units", undone)
		}
		exceptionID := "EXC-" + mongodb.GenerateIDString()
		exc, err := domain.NewOrderException(exceptionID, order.OrderID, domain.ExceptionUndoPick,
			cmd.SKU, cmd.Bin, undone, description, actor)
		if err != nil {
			return err
		}
		if err := s.deps.Exceptions.Save(sessCtx, exc); err != nil {
			return err
		}

		events := append(order.GetDomainEvents(), exc.GetDomainEvents()...)
		if err := s.deps.saveDomainEvents(sessCtx, "Order", order.OrderID, order.OrderID, events); err != nil {
			return err
		}
		order.ClearDomainEvents()
		exc.ClearDomainEvents()

		result.Order = ToOrderDTO(order)
		result.ExceptionID = exceptionID
		result.Exception = ToExceptionDTO(exc)
		return nil
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.HTTPStatus >= 500 {
			s.deps.Logger.WithError(err).Error("Failed to undo pick", "orderId", cmd.OrderID, "sku", cmd.SKU)
		}
		return nil, appErr
	}

	s.deps.Metrics.RecordExceptionLogged(string(domain.ExceptionUndoPick))
	s.deps.Logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "order.pick-undone",
		EntityType: "order",
		EntityID:   cmd.OrderID,
		Action:     "pick-undone",
		ActorID:    actor,
		RelatedIDs: map[string]string{"sku": cmd.SKU, "exceptionId": result.ExceptionID},
	})
	return result, nil
}

// StartPacking assigns a packer to a fully picked order
func (s *OrderExecutionService) StartPacking(ctx context.Context, cmd StartPackingCommand) (*OrderDTO, error) {
	if cmd.PackerID == "" {
		return nil, errors.ErrValidation("packerId is required")
	}
	actor := cmd.Actor
	if actor == "" {
		actor = cmd.PackerID
	}

	var dto *OrderDTO
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		order, err := s.deps.Orders.FindByID(sessCtx, cmd.OrderID)
		if err != nil {
			return err
		}

		worker, err := s.deps.Workers.FindByID(sessCtx, cmd.PackerID)
		if err != nil {
			return err
		}
		if err := worker.CanPack(); err != nil {
			return err
		}

		if err := order.StartPacking(cmd.PackerID); err != nil {
			return err
		}
		if err := s.deps.Orders.Update(sessCtx, order, domain.StatusPicked); err != nil {
			return err
		}

		change, err := domain.NewOrderStateChange(order.OrderID, domain.StatusPicked, domain.StatusPacking, actor, "")
		if err != nil {
			return err
		}
		if err := s.deps.StateChanges.Insert(sessCtx, change); err != nil {
			return err
		}

		if err := s.deps.saveDomainEvents(sessCtx, "Order", order.OrderID, order.OrderID, order.GetDomainEvents()); err != nil {
			return err
		}
		order.ClearDomainEvents()

		dto = ToOrderDTO(order)
		return nil
	})
	if err != nil {
		return nil, toAppError(err)
	}

	s.deps.Metrics.RecordOrderTransition(string(domain.StatusPicked), string(domain.StatusPacking))
	return dto, nil
}

// RecordPack records verified units against a line; verifying the last line
// promotes the order to PACKED
func (s *OrderExecutionService) RecordPack(ctx context.Context, cmd RecordPackCommand) (*OrderDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation("quantity must be greater than zero")
	}
	actor := cmd.Actor
	if actor == "" {
		return nil, errors.ErrValidation("actor is required")
	}

	var dto *OrderDTO
	var promoted bool
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		order, err := s.deps.Orders.FindByID(sessCtx, cmd.OrderID)
		if err != nil {
			return err
		}

		if err := order.RecordPack(cmd.SKU, cmd.Bin, cmd.Quantity); err != nil {
			return err
		}
		promoted = order.Status == domain.StatusPacked

		if err := s.deps.Orders.Update(sessCtx, order, domain.StatusPacking); err != nil {
			return err
		}

		if promoted {
			change, err := domain.NewOrderStateChange(order.OrderID, domain.StatusPacking, domain.StatusPacked, actor, "")
			if err != nil {
				return err
			}
			if err := s.deps.StateChanges.Insert(sessCtx, change); err != nil {
				return err
			}
		}

		if err := s.deps.saveDomainEvents(sessCtx, "Order", order.OrderID, order.OrderID, order.GetDomainEvents()); err != nil {
			return err
		}
		order.ClearDomainEvents()

		dto = ToOrderDTO(order)
		return nil
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.HTTPStatus >= 500 {
			s.deps.Logger.WithError(err).Error("Failed to record pack", "orderId", cmd.OrderID, "sku", cmd.SKU)
		}
		return nil, appErr
	}

	s.deps.Metrics.RecordItemsPacked(cmd.Quantity)
	if promoted {
		s.deps.Metrics.RecordOrderTransition(string(domain.StatusPacking), string(domain.StatusPacked))
	}
	return dto, nil
}

// ShipOrder ships a packed order and deducts every line from the ledger.
// The deduction moves on-hand and reserved together, so availability for
// other orders is untouched by a shipment.
func (s *OrderExecutionService) ShipOrder(ctx context.Context, cmd ShipOrderCommand) (*OrderDTO, error) {
	actor := cmd.Actor
	if actor == "" {
		return nil, errors.ErrValidation("actor is required")
	}

	var dto *OrderDTO
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		order, err := s.deps.Orders.FindByID(sessCtx, cmd.OrderID)
		if err != nil {
			return err
		}

		if err := order.Ship(cmd.TrackingNumber); err != nil {
			return err
		}

		auditRows := make([]*domain.InventoryTransaction, 0, len(order.Items))
		stockEvents := make([]domain.DomainEvent, 0, len(order.Items))
		for _, item := range order.Items {
			unit, err := s.deps.Inventory.FindBySKUAndBin(sessCtx, item.SKU, item.Bin)
			if err != nil {
				return err
			}
			if err := unit.Deduct(item.Quantity, order.OrderID); err != nil {
				return err
			}
			if err := s.deps.Inventory.Deduct(sessCtx, item.SKU, item.Bin, item.Quantity); err != nil {
				return err
			}
			stockEvents = append(stockEvents, unit.GetDomainEvents()...)

			row, err := domain.NewInventoryTransaction(item.SKU, item.Bin, domain.TransactionDeduction, -item.Quantity, order.OrderID, "", actor)
			if err != nil {
				return err
			}
			auditRows = append(auditRows, row)
		}

		if err := s.deps.Orders.Update(sessCtx, order, domain.StatusPacked); err != nil {
			return err
		}

		change, err := domain.NewOrderStateChange(order.OrderID, domain.StatusPacked, domain.StatusShipped, actor, "")
		if err != nil {
			return err
		}
		if err := s.deps.StateChanges.Insert(sessCtx, change); err != nil {
			return err
		}
		if err := s.deps.InventoryLog.InsertAll(sessCtx, auditRows); err != nil {
			return err
		}

		events := append(order.GetDomainEvents(), stockEvents...)
		if err := s.deps.saveDomainEvents(sessCtx, "Order", order.OrderID, order.OrderID, events); err != nil {
			return err
		}
		order.ClearDomainEvents()

		dto = ToOrderDTO(order)
		return nil
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.HTTPStatus >= 500 {
			s.deps.Logger.WithError(err).Error("Failed to ship order", "orderId", cmd.OrderID)
		}
		return nil, appErr
	}

	s.deps.Metrics.RecordPackageShipped(dto.Carrier)
	s.deps.Metrics.RecordOrderTransition(string(domain.StatusPacked), string(domain.StatusShipped))
	for range dto.Items {
		s.deps.Metrics.RecordStockMovement(string(domain.TransactionDeduction))
	}
	s.deps.Logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "order.shipped",
		EntityType: "order",
		EntityID:   cmd.OrderID,
		Action:     "shipped",
		ActorID:    actor,
		RelatedIDs: map[string]string{"carrier": dto.Carrier, "trackingNumber": cmd.TrackingNumber},
	})
	return dto, nil
}
