package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

func TestInventoryService_ReceiveStock_NewUnit(t *testing.T) {
	env := newTestEnv()
	svc := NewInventoryService(env.deps)

	dto, err := svc.ReceiveStock(context.Background(), ReceiveStockCommand{
		SKU: "SKU-ALPHA", Bin: "A-01", Quantity: 10, Actor: "WRK-9",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, dto.OnHand)
	assert.Equal(t, 0, dto.Reserved)
	assert.Equal(t, 10, dto.Available)

	require.Len(t, env.store.stockLog, 1)
	row := env.store.stockLog[0]
	assert.Equal(t, domain.TransactionReceipt, row.Type)
	assert.Equal(t, 10, row.Quantity)
	assert.Equal(t, "WRK-9", row.Actor)
	assert.Contains(t, env.outboxTypes(), "wms.inventory.received")
}

func TestInventoryService_ReceiveStock_ExistingUnit(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "SKU-ALPHA", "A-01", 5, 2)
	svc := NewInventoryService(env.deps)

	dto, err := svc.ReceiveStock(context.Background(), ReceiveStockCommand{
		SKU: "SKU-ALPHA", Bin: "A-01", Quantity: 3, Actor: "WRK-9",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, dto.OnHand)
	assert.Equal(t, 2, dto.Reserved)
	assert.Equal(t, 6, dto.Available)
}

func TestInventoryService_ReceiveStock_Validation(t *testing.T) {
	env := newTestEnv()
	svc := NewInventoryService(env.deps)
	ctx := context.Background()

	_, err := svc.ReceiveStock(ctx, ReceiveStockCommand{SKU: "SKU-ALPHA", Bin: "A-01", Quantity: 0, Actor: "WRK-9"})
	requireAppError(t, err, errors.CodeValidationError)

	_, err = svc.ReceiveStock(ctx, ReceiveStockCommand{SKU: "SKU-ALPHA", Bin: "A-01", Quantity: 5})
	requireAppError(t, err, errors.CodeValidationError)
	assert.Empty(t, env.store.units)
}

func TestInventoryService_AdjustStock(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "SKU-ALPHA", "A-01", 10, 2)
	svc := NewInventoryService(env.deps)

	dto, err := svc.AdjustStock(context.Background(), AdjustStockCommand{
		SKU: "SKU-ALPHA", Bin: "A-01", NewOnHand: 7, Reason: "cycle count", Actor: "SUP-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, dto.OnHand)
	assert.Equal(t, 2, dto.Reserved)

	// The audit row carries the signed delta, not the new count
	require.Len(t, env.store.stockLog, 1)
	row := env.store.stockLog[0]
	assert.Equal(t, domain.TransactionAdjustment, row.Type)
	assert.Equal(t, -3, row.Quantity)
	assert.Equal(t, "cycle count", row.Reason)
	assert.Contains(t, env.outboxTypes(), "wms.inventory.adjusted")
}

func TestInventoryService_AdjustStock_BelowReserved(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "SKU-ALPHA", "A-01", 10, 4)
	svc := NewInventoryService(env.deps)

	_, err := svc.AdjustStock(context.Background(), AdjustStockCommand{
		SKU: "SKU-ALPHA", Bin: "A-01", NewOnHand: 3, Reason: "cycle count", Actor: "SUP-1",
	})
	requireAppError(t, err, errors.CodeConflict)
	assert.Equal(t, 10, env.storedUnit(t, "SKU-ALPHA", "A-01").OnHand)
	assert.Empty(t, env.store.stockLog)
}

func TestInventoryService_AdjustStock_ReasonRequired(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "SKU-ALPHA", "A-01", 10, 0)
	svc := NewInventoryService(env.deps)

	_, err := svc.AdjustStock(context.Background(), AdjustStockCommand{
		SKU: "SKU-ALPHA", Bin: "A-01", NewOnHand: 7, Actor: "SUP-1",
	})
	requireAppError(t, err, errors.CodeValidationError)
}

func TestInventoryService_AdjustStock_UnknownUnit(t *testing.T) {
	env := newTestEnv()
	svc := NewInventoryService(env.deps)

	_, err := svc.AdjustStock(context.Background(), AdjustStockCommand{
		SKU: "SKU-NOPE", Bin: "A-01", NewOnHand: 7, Reason: "cycle count", Actor: "SUP-1",
	})
	requireAppError(t, err, errors.CodeNotFound)
}

func TestInventoryService_GetInventory(t *testing.T) {
	env := newTestEnv()
	env.seedUnit(t, "SKU-ALPHA", "A-01", 5, 1)
	env.seedUnit(t, "SKU-ALPHA", "B-07", 3, 0)
	svc := NewInventoryService(env.deps)
	ctx := context.Background()

	dtos, err := svc.GetInventory(ctx, GetInventoryQuery{SKU: "SKU-ALPHA", Bin: "A-01"})
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	assert.Equal(t, 4, dtos[0].Available)

	// Without a bin the query walks every bin holding the SKU
	dtos, err = svc.GetInventory(ctx, GetInventoryQuery{SKU: "SKU-ALPHA"})
	require.NoError(t, err)
	assert.Len(t, dtos, 2)

	_, err = svc.GetInventory(ctx, GetInventoryQuery{SKU: "SKU-NOPE"})
	requireAppError(t, err, errors.CodeNotFound)
}

func TestInventoryService_GetInventoryHistory(t *testing.T) {
	env := newTestEnv()
	svc := NewInventoryService(env.deps)
	ctx := context.Background()

	_, err := svc.ReceiveStock(ctx, ReceiveStockCommand{SKU: "SKU-ALPHA", Bin: "A-01", Quantity: 10, Actor: "WRK-9"})
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, AdjustStockCommand{SKU: "SKU-ALPHA", Bin: "A-01", NewOnHand: 9, Reason: "damaged on arrival", Actor: "SUP-1"})
	require.NoError(t, err)

	rows, total, err := svc.GetInventoryHistory(ctx, GetInventoryHistoryQuery{SKU: "SKU-ALPHA", Bin: "A-01", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	assert.Equal(t, string(domain.TransactionReceipt), rows[0].Type)
	assert.Equal(t, string(domain.TransactionAdjustment), rows[1].Type)
	assert.Equal(t, -1, rows[1].Quantity)
}

func TestInventoryService_GetInventoryHistory_UnknownUnit(t *testing.T) {
	env := newTestEnv()
	svc := NewInventoryService(env.deps)

	_, _, err := svc.GetInventoryHistory(context.Background(), GetInventoryHistoryQuery{SKU: "SKU-NOPE", Bin: "A-01"})
	requireAppError(t, err, errors.CodeNotFound)
}
