package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUnit(t *testing.T, onHand int) *InventoryUnit {
	t.Helper()
	unit, err := NewInventoryUnit("SKU-ALPHA", "A-01-02-B1", onHand)
	require.NoError(t, err)
	return unit
}

// TestNewInventoryUnit tests ledger entry creation
func TestNewInventoryUnit(t *testing.T) {
	t.Run("Valid unit", func(t *testing.T) {
		unit := createTestUnit(t, 10)
		assert.Equal(t, 10, unit.OnHand)
		assert.Equal(t, 0, unit.Reserved)
		assert.Equal(t, 10, unit.Available())
	})

	t.Run("Cannot start negative", func(t *testing.T) {
		_, err := NewInventoryUnit("SKU-ALPHA", "A-01-02-B1", -1)
		assert.ErrorIs(t, err, ErrNegativeOnHand)
	})

	t.Run("Requires sku and bin", func(t *testing.T) {
		_, err := NewInventoryUnit("", "A-01-02-B1", 5)
		assert.Error(t, err)
	})
}

// TestInventoryReserve tests promising units to orders
func TestInventoryReserve(t *testing.T) {
	t.Run("Reserve within availability", func(t *testing.T) {
		unit := createTestUnit(t, 5)
		require.NoError(t, unit.Reserve(2, "ORD-001"))

		assert.Equal(t, 5, unit.OnHand)
		assert.Equal(t, 2, unit.Reserved)
		assert.Equal(t, 3, unit.Available())

		events := unit.GetDomainEvents()
		require.Len(t, events, 1)
		reserved, ok := events[0].(*StockReservedEvent)
		require.True(t, ok)
		assert.Equal(t, 3, reserved.Available)
	})

	t.Run("Insufficient availability names the shortfall", func(t *testing.T) {
		unit := createTestUnit(t, 5)
		require.NoError(t, unit.Reserve(4, "ORD-001"))

		err := unit.Reserve(2, "ORD-002")
		var insufficient *InsufficientInventoryError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, "SKU-ALPHA", insufficient.SKU)
		assert.Equal(t, "A-01-02-B1", insufficient.Bin)
		assert.Equal(t, 2, insufficient.Requested)
		assert.Equal(t, 1, insufficient.Available)

		// Counters untouched on failure
		assert.Equal(t, 4, unit.Reserved)
	})

	t.Run("Reserving everything leaves zero available", func(t *testing.T) {
		unit := createTestUnit(t, 3)
		require.NoError(t, unit.Reserve(3, "ORD-001"))
		assert.Equal(t, 0, unit.Available())
	})

	t.Run("Rejects zero quantity", func(t *testing.T) {
		unit := createTestUnit(t, 3)
		assert.ErrorIs(t, unit.Reserve(0, "ORD-001"), ErrInvalidQuantity)
	})
}

// TestInventoryRelease tests returning promised units to the pool
func TestInventoryRelease(t *testing.T) {
	t.Run("Release reserved units", func(t *testing.T) {
		unit := createTestUnit(t, 5)
		require.NoError(t, unit.Reserve(3, "ORD-001"))
		unit.ClearDomainEvents()

		require.NoError(t, unit.Release(2, "ORD-001"))
		assert.Equal(t, 5, unit.OnHand)
		assert.Equal(t, 1, unit.Reserved)
		assert.Equal(t, 4, unit.Available())
	})

	t.Run("Cannot release more than reserved", func(t *testing.T) {
		unit := createTestUnit(t, 5)
		require.NoError(t, unit.Reserve(1, "ORD-001"))

		err := unit.Release(2, "ORD-001")
		assert.ErrorIs(t, err, ErrReleaseExceedsReserved)
		assert.Equal(t, 1, unit.Reserved)
	})
}

// TestInventoryDeduct tests removing shipped units from the warehouse
func TestInventoryDeduct(t *testing.T) {
	t.Run("Deduct moves both counters", func(t *testing.T) {
		unit := createTestUnit(t, 5)
		require.NoError(t, unit.Reserve(3, "ORD-001"))
		available := unit.Available()
		unit.ClearDomainEvents()

		require.NoError(t, unit.Deduct(3, "ORD-001"))
		assert.Equal(t, 2, unit.OnHand)
		assert.Equal(t, 0, unit.Reserved)

		// Available never moves on a deduction
		assert.Equal(t, available, unit.Available())

		events := unit.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*StockDeductedEvent)
		assert.True(t, ok)
	})

	t.Run("Cannot deduct beyond the reservation", func(t *testing.T) {
		unit := createTestUnit(t, 5)
		require.NoError(t, unit.Reserve(2, "ORD-001"))

		err := unit.Deduct(3, "ORD-001")
		assert.ErrorIs(t, err, ErrDeductExceedsReserved)
		assert.Equal(t, 5, unit.OnHand)
		assert.Equal(t, 2, unit.Reserved)
	})
}

// TestInventoryAdjust tests cycle count corrections
func TestInventoryAdjust(t *testing.T) {
	t.Run("Adjust down to a counted value", func(t *testing.T) {
		unit := createTestUnit(t, 10)
		require.NoError(t, unit.Adjust(7, "cycle count"))
		assert.Equal(t, 7, unit.OnHand)

		events := unit.GetDomainEvents()
		require.Len(t, events, 1)
		adjusted, ok := events[0].(*InventoryAdjustedEvent)
		require.True(t, ok)
		assert.Equal(t, -3, adjusted.Delta)
	})

	t.Run("Cannot adjust negative", func(t *testing.T) {
		unit := createTestUnit(t, 10)
		assert.ErrorIs(t, unit.Adjust(-1, "bad count"), ErrNegativeOnHand)
	})

	t.Run("Cannot adjust below outstanding reservations", func(t *testing.T) {
		unit := createTestUnit(t, 10)
		require.NoError(t, unit.Reserve(4, "ORD-001"))

		err := unit.Adjust(3, "cycle count")
		assert.ErrorIs(t, err, ErrAdjustBelowReserved)
		assert.Equal(t, 10, unit.OnHand)
	})

	t.Run("Adjust to exactly reserved is allowed", func(t *testing.T) {
		unit := createTestUnit(t, 10)
		require.NoError(t, unit.Reserve(4, "ORD-001"))

		require.NoError(t, unit.Adjust(4, "cycle count"))
		assert.Equal(t, 0, unit.Available())
	})
}

// TestInventoryReceive tests put-away of received stock
func TestInventoryReceive(t *testing.T) {
	unit := createTestUnit(t, 2)
	require.NoError(t, unit.Receive(8))
	assert.Equal(t, 10, unit.OnHand)
	assert.Equal(t, 10, unit.Available())

	assert.ErrorIs(t, unit.Receive(0), ErrInvalidQuantity)
}
