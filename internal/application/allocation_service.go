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

// DefaultMaxActiveOrders is the per-picker cap on concurrently claimed orders
const DefaultMaxActiveOrders = 10

// OrderAllocationService handles the contested side of fulfillment: getting
// orders into and out of the backlog. Claiming is the hot path; every claim
// runs in one transaction so that exactly one picker wins a contested order
// and the loser sees a conflict, never a half-reserved order.
type OrderAllocationService struct {
	deps            ServiceDependencies
	maxActiveOrders int
}

// NewOrderAllocationService creates a new OrderAllocationService
func NewOrderAllocationService(deps ServiceDependencies, maxActiveOrders int) *OrderAllocationService {
	if maxActiveOrders <= 0 {
		maxActiveOrders = DefaultMaxActiveOrders
	}
	return &OrderAllocationService{
		deps:            deps,
		maxActiveOrders: maxActiveOrders,
	}
}

// CreateOrder creates a new order in the backlog
func (s *OrderAllocationService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*OrderDTO, error) {
	orderID := cmd.OrderID
	if orderID == "" {
		orderID = "ORD-" + mongodb.GenerateIDString()
	}

	order, err := domain.NewOrder(orderID, cmd.CustomerID, cmd.Items, cmd.ShippingMethod, cmd.Carrier)
	if err != nil {
		return nil, toAppError(err)
	}

	err = s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.deps.Orders.Save(sessCtx, order); err != nil {
			return err
		}
		if err := s.deps.saveDomainEvents(sessCtx, "Order", order.OrderID, order.OrderID, order.GetDomainEvents()); err != nil {
			return err
		}
		order.ClearDomainEvents()
		return nil
	})
	if err != nil {
		s.deps.Logger.WithError(err).Error("Failed to create order", "orderId", orderID)
		return nil, toAppError(err)
	}

	s.deps.Metrics.RecordOrderCreated()
	s.deps.Logger.Info("Created order", "orderId", orderID, "customerId", cmd.CustomerID, "lines", len(order.Items))
	return ToOrderDTO(order), nil
}

// ClaimOrder assigns a PENDING order to a picker, reserving inventory for
// every line. The claim, the reservations, the workload increment and the
// audit rows commit in one transaction; any shortfall rolls the whole claim
// back naming the failing SKU.
func (s *OrderAllocationService) ClaimOrder(ctx context.Context, cmd ClaimOrderCommand) (*OrderDTO, error) {
	if cmd.PickerID == "" {
		return nil, errors.ErrValidation("pickerId is required")
	}
	actor := cmd.Actor
	if actor == "" {
		actor = cmd.PickerID
	}

	var dto *OrderDTO
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		order, err := s.deps.Orders.FindByID(sessCtx, cmd.OrderID)
		if err != nil {
			return err
		}
		if order.Status != domain.StatusPending {
			return errors.ErrConflict(fmt.Sprintf("order %s is %s, only PENDING orders can be claimed", order.OrderID, order.Status))
		}

		worker, err := s.deps.Workers.FindByID(sessCtx, cmd.PickerID)
		if err != nil {
			return err
		}
		if err := worker.CanClaim(s.maxActiveOrders); err != nil {
			return err
		}

		// The conditional increment re-checks activity and the cap so two
		// claims landing together cannot push the picker past the limit
		if err := s.deps.Workers.IncrementActiveOrders(sessCtx, cmd.PickerID, s.maxActiveOrders); err != nil {
			return err
		}

		auditRows := make([]*domain.InventoryTransaction, 0, len(order.Items))
		stockEvents := make([]domain.DomainEvent, 0, len(order.Items))
		for _, item := range order.Items {
			unit, err := s.deps.Inventory.FindBySKUAndBin(sessCtx, item.SKU, item.Bin)
			if err != nil {
				if stderrors.Is(err, domain.ErrInventoryNotFound) {
					return domain.NewInsufficientInventoryError(item.SKU, item.Bin, item.Quantity, 0)
				}
				return err
			}
			if err := unit.Reserve(item.Quantity, order.OrderID); err != nil {
				return err
			}
			if err := s.deps.Inventory.Reserve(sessCtx, item.SKU, item.Bin, item.Quantity); err != nil {
				return err
			}
			stockEvents = append(stockEvents, unit.GetDomainEvents()...)

			row, err := domain.NewInventoryTransaction(item.SKU, item.Bin, domain.TransactionReservation, item.Quantity, order.OrderID, "", actor)
			if err != nil {
				return err
			}
			auditRows = append(auditRows, row)
		}

		if err := order.Claim(cmd.PickerID); err != nil {
			return err
		}
		// Status compare-and-set: of N concurrent claims exactly one matches
		if err := s.deps.Orders.Update(sessCtx, order, domain.StatusPending); err != nil {
			return err
		}

		change, err := domain.NewOrderStateChange(order.OrderID, domain.StatusPending, domain.StatusPicking, actor, "")
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
			s.deps.Logger.WithError(err).Error("Failed to claim order", "orderId", cmd.OrderID, "pickerId", cmd.PickerID)
		}
		return nil, appErr
	}

	s.deps.Metrics.RecordOrderTransition(string(domain.StatusPending), string(domain.StatusPicking))
	for range dto.Items {
		s.deps.Metrics.RecordStockMovement(string(domain.TransactionReservation))
	}
	s.deps.Logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "order.claimed",
		EntityType: "order",
		EntityID:   cmd.OrderID,
		Action:     "claimed",
		ActorID:    actor,
		RelatedIDs: map[string]string{"pickerId": cmd.PickerID},
	})
	return dto, nil
}

// CancelOrder cancels an order and releases every reservation it holds. The
// release rows are written as CANCELLATION movements so the trail shows why
// the units came back.
func (s *OrderAllocationService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (*OrderDTO, error) {
	actor := cmd.Actor
	if actor == "" {
		return nil, errors.ErrValidation("actor is required")
	}

	var dto *OrderDTO
	var releasedLines int
	var previous domain.OrderStatus
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		order, err := s.deps.Orders.FindByID(sessCtx, cmd.OrderID)
		if err != nil {
			return err
		}
		previous = order.Status

		if err := order.Cancel(cmd.Reason); err != nil {
			return err
		}

		// Reservations exist from claim onward; a PENDING order has none
		stockEvents := make([]domain.DomainEvent, 0)
		if previous == domain.StatusPicking {
			auditRows := make([]*domain.InventoryTransaction, 0, len(order.Items))
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
				stockEvents = append(stockEvents, unit.GetDomainEvents()...)

				row, err := domain.NewInventoryTransaction(item.SKU, item.Bin, domain.TransactionCancellation, -item.Quantity, order.OrderID, cmd.Reason, actor)
				if err != nil {
					return err
				}
				auditRows = append(auditRows, row)
			}
			if err := s.deps.InventoryLog.InsertAll(sessCtx, auditRows); err != nil {
				return err
			}
			if err := s.deps.Workers.DecrementActiveOrders(sessCtx, order.PickerID); err != nil {
				return err
			}
			releasedLines = len(auditRows)
		}

		if err := s.deps.Orders.Update(sessCtx, order, previous); err != nil {
			return err
		}

		change, err := domain.NewOrderStateChange(order.OrderID, previous, domain.StatusCancelled, actor, cmd.Reason)
		if err != nil {
			return err
		}
		if err := s.deps.StateChanges.Insert(sessCtx, change); err != nil {
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
			s.deps.Logger.WithError(err).Error("Failed to cancel order", "orderId", cmd.OrderID)
		}
		return nil, appErr
	}

	s.deps.Metrics.RecordOrderTransition(string(previous), string(domain.StatusCancelled))
	for i := 0; i < releasedLines; i++ {
		s.deps.Metrics.RecordStockMovement(string(domain.TransactionCancellation))
	}
	s.deps.Logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "order.cancelled",
		EntityType: "order",
		EntityID:   cmd.OrderID,
		Action:     "cancelled",
		ActorID:    actor,
	})
	return dto, nil
}

// BackorderOrder parks a PENDING order that cannot be fulfilled yet
func (s *OrderAllocationService) BackorderOrder(ctx context.Context, cmd BackorderOrderCommand) (*OrderDTO, error) {
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

		if err := order.Backorder(cmd.Reason); err != nil {
			return err
		}
		if err := s.deps.Orders.Update(sessCtx, order, domain.StatusPending); err != nil {
			return err
		}

		change, err := domain.NewOrderStateChange(order.OrderID, domain.StatusPending, domain.StatusBackorder, actor, cmd.Reason)
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

	s.deps.Metrics.RecordOrderTransition(string(domain.StatusPending), string(domain.StatusBackorder))
	return dto, nil
}

// ReleaseBackorder returns a BACKORDER order to the backlog. Nothing is
// re-checked here; the next claim re-validates availability and workload
// under its own transaction.
func (s *OrderAllocationService) ReleaseBackorder(ctx context.Context, cmd ReleaseBackorderCommand) (*OrderDTO, error) {
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

		if err := order.ReleaseBackorder(); err != nil {
			return err
		}
		if err := s.deps.Orders.Update(sessCtx, order, domain.StatusBackorder); err != nil {
			return err
		}

		change, err := domain.NewOrderStateChange(order.OrderID, domain.StatusBackorder, domain.StatusPending, actor, "")
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

	s.deps.Metrics.RecordOrderTransition(string(domain.StatusBackorder), string(domain.StatusPending))
	return dto, nil
}

// GetOrder looks up a single order and returns it as a DTO
func (s *OrderAllocationService) GetOrder(ctx context.Context, query GetOrderQuery) (*OrderDTO, error) {
	order, err := s.deps.Orders.FindByID(ctx, query.OrderID)
	if err != nil {
		return nil, toAppError(err)
	}
	return ToOrderDTO(order), nil
}

// ListOrders lists orders, optionally filtered by status
func (s *OrderAllocationService) ListOrders(ctx context.Context, query ListOrdersQuery) ([]*OrderDTO, int64, error) {
	var (
		orders []*domain.Order
		total  int64
		err    error
	)

	if query.Status != "" {
		status, parseErr := domain.ParseOrderStatus(query.Status)
		if parseErr != nil {
			return nil, 0, toAppError(parseErr)
		}
		orders, total, err = s.deps.Orders.FindByStatus(ctx, status, query.Page, query.PageSize)
	} else {
		orders, total, err = s.deps.Orders.List(ctx, query.Page, query.PageSize)
	}
	if err != nil {
		return nil, 0, toAppError(err)
	}

	dtos := make([]*OrderDTO, 0, len(orders))
	for _, order := range orders {
		dtos = append(dtos, ToOrderDTO(order))
	}
	return dtos, total, nil
}

// GetOrderHistory returns the order's audit trail in occurrence order
func (s *OrderAllocationService) GetOrderHistory(ctx context.Context, query GetOrderHistoryQuery) ([]*OrderStateChangeDTO, error) {
	if _, err := s.deps.Orders.FindByID(ctx, query.OrderID); err != nil {
		return nil, toAppError(err)
	}

	changes, err := s.deps.StateChanges.FindByOrderID(ctx, query.OrderID)
	if err != nil {
		return nil, toAppError(err)
	}

	dtos := make([]*OrderStateChangeDTO, 0, len(changes))
	for _, change := range changes {
		dtos = append(dtos, ToOrderStateChangeDTO(change))
	}
	return dtos, nil
}
