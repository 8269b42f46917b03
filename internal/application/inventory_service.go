package application

import (
	"context"
	stderrors "errors"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
)

// InventoryService handles stock movements that are not tied to an order:
// receiving inbound stock and supervisor count corrections. Order-driven
// movements (reserve, release, deduct) live with the order services so they
// share the order's transaction.
type InventoryService struct {
	deps ServiceDependencies
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(deps ServiceDependencies) *InventoryService {
	return &InventoryService{deps: deps}
}

// ReceiveStock books inbound units into a bin, creating the inventory unit
// on first receipt
func (s *InventoryService) ReceiveStock(ctx context.Context, cmd ReceiveStockCommand) (*InventoryUnitDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation("quantity must be greater than zero")
	}
	if cmd.SKU == "" || cmd.Bin == "" {
		return nil, errors.ErrValidation("sku and bin are required")
	}
	actor := cmd.Actor
	if actor == "" {
		return nil, errors.ErrValidation("actor is required")
	}

	var dto *InventoryUnitDTO
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		unit, err := s.deps.Inventory.FindBySKUAndBin(sessCtx, cmd.SKU, cmd.Bin)
		if err != nil {
			if !stderrors.Is(err, domain.ErrInventoryNotFound) {
				return err
			}
			unit, err = domain.NewInventoryUnit(cmd.SKU, cmd.Bin, 0)
			if err != nil {
				return err
			}
			if err := s.deps.Inventory.Save(sessCtx, unit); err != nil {
				return err
			}
		}

		if err := unit.Receive(cmd.Quantity); err != nil {
			return err
		}
		if err := s.deps.Inventory.Receive(sessCtx, cmd.SKU, cmd.Bin, cmd.Quantity); err != nil {
			return err
		}

		row, err := domain.NewInventoryTransaction(cmd.SKU, cmd.Bin, domain.TransactionReceipt, cmd.Quantity, "", "", actor)
		if err != nil {
			return err
		}
		if err := s.deps.InventoryLog.Insert(sessCtx, row); err != nil {
			return err
		}

		if err := s.deps.saveDomainEvents(sessCtx, "InventoryUnit", inventoryAggregateID(cmd.SKU, cmd.Bin), "", unit.GetDomainEvents()); err != nil {
			return err
		}
		unit.ClearDomainEvents()

		dto = ToInventoryUnitDTO(unit)
		return nil
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.HTTPStatus >= 500 {
			s.deps.Logger.WithError(err).Error("Failed to receive stock", "sku", cmd.SKU, "bin", cmd.Bin)
		}
		return nil, appErr
	}

	s.deps.Metrics.RecordStockMovement(string(domain.TransactionReceipt))
	s.deps.Logger.LogBusinessEvent(ctx, logging.BusinessEvent{
		EventType:  "inventory.received",
		EntityType: "inventory",
		EntityID:   inventoryAggregateID(cmd.SKU, cmd.Bin),
		Action:     "received",
		ActorID:    actor,
		RelatedIDs: map[string]string{"sku": cmd.SKU, "bin": cmd.Bin},
	})
	return dto, nil
}

// AdjustStock sets a bin's on-hand count to a verified physical count.
// Adjusting below the reserved quantity is rejected; reservations already
// promised to orders cannot be corrected away.
func (s *InventoryService) AdjustStock(ctx context.Context, cmd AdjustStockCommand) (*InventoryUnitDTO, error) {
	if cmd.Reason == "" {
		return nil, errors.ErrValidation("reason is required")
	}
	actor := cmd.Actor
	if actor == "" {
		return nil, errors.ErrValidation("actor is required")
	}

	var delta int
	var dto *InventoryUnitDTO
	err := s.deps.Tx.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		unit, err := s.deps.Inventory.FindBySKUAndBin(sessCtx, cmd.SKU, cmd.Bin)
		if err != nil {
			return err
		}

		delta = cmd.NewOnHand - unit.OnHand
		if err := unit.Adjust(cmd.NewOnHand, cmd.Reason); err != nil {
			return err
		}
		if err := s.deps.Inventory.Adjust(sessCtx, cmd.SKU, cmd.Bin, cmd.NewOnHand); err != nil {
			return err
		}

		row, err := domain.NewInventoryTransaction(cmd.SKU, cmd.Bin, domain.TransactionAdjustment, delta, "", cmd.Reason, actor)
		if err != nil {
			return err
		}
		if err := s.deps.InventoryLog.Insert(sessCtx, row); err != nil {
			return err
		}

		if err := s.deps.saveDomainEvents(sessCtx, "InventoryUnit", inventoryAggregateID(cmd.SKU, cmd.Bin), "", unit.GetDomainEvents()); err != nil {
			return err
		}
		unit.ClearDomainEvents()

		dto = ToInventoryUnitDTO(unit)
		return nil
	})
	if err != nil {
		appErr := toAppError(err)
		if appErr.HTTPStatus >= 500 {
			s.deps.Logger.WithError(err).Error("Failed to adjust stock", "sku", cmd.SKU, "bin", cmd.Bin)
		}
		return nil, appErr
	}

	s.deps.Metrics.RecordStockMovement(string(domain.TransactionAdjustment))
	s.deps.Logger.Audit(ctx, "inventory.adjusted", "inventory", inventoryAggregateID(cmd.SKU, cmd.Bin), actor,
		map[string]any{"delta": delta, "newOnHand": cmd.NewOnHand, "reason": cmd.Reason})
	return dto, nil
}

// GetInventory returns the unit for one SKU and bin, or every bin holding
// the SKU when no bin is given
func (s *InventoryService) GetInventory(ctx context.Context, query GetInventoryQuery) ([]*InventoryUnitDTO, error) {
	if query.Bin != "" {
		unit, err := s.deps.Inventory.FindBySKUAndBin(ctx, query.SKU, query.Bin)
		if err != nil {
			return nil, toAppError(err)
		}
		return []*InventoryUnitDTO{ToInventoryUnitDTO(unit)}, nil
	}

	units, err := s.deps.Inventory.FindBySKU(ctx, query.SKU)
	if err != nil {
		return nil, toAppError(err)
	}
	if len(units) == 0 {
		return nil, errors.ErrNotFoundWithID("inventory unit", query.SKU)
	}
	dtos := make([]*InventoryUnitDTO, 0, len(units))
	for _, unit := range units {
		dtos = append(dtos, ToInventoryUnitDTO(unit))
	}
	return dtos, nil
}

// ListInventory returns a page of inventory units
func (s *InventoryService) ListInventory(ctx context.Context, query ListInventoryQuery) ([]*InventoryUnitDTO, int64, error) {
	units, total, err := s.deps.Inventory.List(ctx, query.Page, query.PageSize)
	if err != nil {
		return nil, 0, toAppError(err)
	}
	dtos := make([]*InventoryUnitDTO, 0, len(units))
	for _, unit := range units {
		dtos = append(dtos, ToInventoryUnitDTO(unit))
	}
	return dtos, total, nil
}

// GetInventoryHistory returns the audit trail for one SKU and bin
func (s *InventoryService) GetInventoryHistory(ctx context.Context, query GetInventoryHistoryQuery) ([]*InventoryTransactionDTO, int64, error) {
	if _, err := s.deps.Inventory.FindBySKUAndBin(ctx, query.SKU, query.Bin); err != nil {
		return nil, 0, toAppError(err)
	}

	rows, total, err := s.deps.InventoryLog.FindBySKUAndBin(ctx, query.SKU, query.Bin, query.Page, query.PageSize)
	if err != nil {
		return nil, 0, toAppError(err)
	}
	dtos := make([]*InventoryTransactionDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, ToInventoryTransactionDTO(row))
	}
	return dtos, total, nil
}
