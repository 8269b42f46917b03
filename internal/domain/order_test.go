package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test fixtures
func createTestOrderItems() []OrderItem {
	return []OrderItem{
		{SKU: "SKU-ALPHA", Bin: "A-01-02-B1", ProductName: "Widget", Quantity: 2},
		{SKU: "SKU-BETA", Bin: "B-03-04-C2", ProductName: "Gadget", Quantity: 3},
	}
}

func createTestOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("ORD-TEST0001", "CUST-001", createTestOrderItems(), "standard", "UPS")
	require.NoError(t, err)
	order.ClearDomainEvents()
	return order
}

func createPickingOrder(t *testing.T) *Order {
	t.Helper()
	order := createTestOrder(t)
	require.NoError(t, order.Claim("WRK-PICK1"))
	order.ClearDomainEvents()
	return order
}

func createPickedOrder(t *testing.T) *Order {
	t.Helper()
	order := createPickingOrder(t)
	require.NoError(t, order.RecordPick("SKU-ALPHA", "A-01-02-B1", 2))
	require.NoError(t, order.RecordPick("SKU-BETA", "B-03-04-C2", 3))
	require.Equal(t, StatusPicked, order.Status)
	order.ClearDomainEvents()
	return order
}

func createPackingOrder(t *testing.T) *Order {
	t.Helper()
	order := createPickedOrder(t)
	require.NoError(t, order.StartPacking("WRK-PACK1"))
	order.ClearDomainEvents()
	return order
}

func createPackedOrder(t *testing.T) *Order {
	t.Helper()
	order := createPackingOrder(t)
	require.NoError(t, order.RecordPack("SKU-ALPHA", "A-01-02-B1", 2))
	require.NoError(t, order.RecordPack("SKU-BETA", "B-03-04-C2", 3))
	require.Equal(t, StatusPacked, order.Status)
	order.ClearDomainEvents()
	return order
}

// TestNewOrder tests order construction and item validation
func TestNewOrder(t *testing.T) {
	tests := []struct {
		name        string
		items       []OrderItem
		expectError error
	}{
		{
			name:        "Valid order",
			items:       createTestOrderItems(),
			expectError: nil,
		},
		{
			name:        "Cannot create with no lines",
			items:       []OrderItem{},
			expectError: ErrNoOrderLines,
		},
		{
			name:        "Cannot create with zero quantity",
			items:       []OrderItem{{SKU: "SKU-ALPHA", Bin: "A-01-02-B1", Quantity: 0}},
			expectError: ErrInvalidQuantity,
		},
		{
			name:        "Cannot create with negative quantity",
			items:       []OrderItem{{SKU: "SKU-ALPHA", Bin: "A-01-02-B1", Quantity: -1}},
			expectError: ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := NewOrder("ORD-TEST0001", "CUST-001", tt.items, "standard", "UPS")

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, order)
			} else {
				require.NoError(t, err)
				require.NotNil(t, order)
				assert.Equal(t, StatusPending, order.Status)
				assert.Equal(t, 5, order.TotalOrdered())
				assert.Equal(t, 0, order.Progress())

				events := order.GetDomainEvents()
				require.Len(t, events, 1)
				created, ok := events[0].(*OrderCreatedEvent)
				require.True(t, ok)
				assert.Equal(t, "ORD-TEST0001", created.OrderID)
				assert.Equal(t, 5, created.TotalUnits)
			}
		})
	}

	t.Run("Cannot create with missing bin", func(t *testing.T) {
		_, err := NewOrder("ORD-TEST0001", "CUST-001", []OrderItem{{SKU: "SKU-ALPHA", Quantity: 1}}, "standard", "UPS")
		assert.Error(t, err)
	})

	t.Run("Cannot create with pre-filled progress", func(t *testing.T) {
		items := []OrderItem{{SKU: "SKU-ALPHA", Bin: "A-01-02-B1", Quantity: 2, PickedQty: 1}}
		_, err := NewOrder("ORD-TEST0001", "CUST-001", items, "standard", "UPS")
		assert.Error(t, err)
	})
}

// TestOrderClaim tests claiming an order for picking
func TestOrderClaim(t *testing.T) {
	t.Run("Claim pending order", func(t *testing.T) {
		order := createTestOrder(t)
		err := order.Claim("WRK-PICK1")

		require.NoError(t, err)
		assert.Equal(t, StatusPicking, order.Status)
		assert.Equal(t, "WRK-PICK1", order.PickerID)
		require.NotNil(t, order.ClaimedAt)

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		claimed, ok := events[0].(*OrderClaimedEvent)
		require.True(t, ok)
		assert.Equal(t, "WRK-PICK1", claimed.PickerID)
	})

	t.Run("Requires a picker id", func(t *testing.T) {
		order := createTestOrder(t)
		assert.ErrorIs(t, order.Claim(""), ErrPickerRequired)
	})

	t.Run("Cannot claim an order already picking", func(t *testing.T) {
		order := createPickingOrder(t)
		err := order.Claim("WRK-PICK2")

		var transitionErr *InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, StatusPicking, transitionErr.From)
		assert.Equal(t, StatusPicking, transitionErr.To)
		assert.Equal(t, "WRK-PICK1", order.PickerID)
	})

	t.Run("Cannot claim a cancelled order", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.Cancel("customer request"))

		err := order.Claim("WRK-PICK1")
		var transitionErr *InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Contains(t, err.Error(), "terminal")
	})
}

// TestOrderRecordPick tests recording picks against order lines
func TestOrderRecordPick(t *testing.T) {
	t.Run("Records a partial pick", func(t *testing.T) {
		order := createPickingOrder(t)
		err := order.RecordPick("SKU-ALPHA", "A-01-02-B1", 1)

		require.NoError(t, err)
		assert.Equal(t, StatusPicking, order.Status)

		line, ok := order.Line("SKU-ALPHA", "A-01-02-B1")
		require.True(t, ok)
		assert.Equal(t, 1, line.PickedQty)
		assert.Equal(t, 20, order.Progress())

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		picked, ok := events[0].(*ItemPickedEvent)
		require.True(t, ok)
		assert.Equal(t, 1, picked.Quantity)
		assert.Equal(t, 20, picked.Progress)
	})

	t.Run("Completing all lines promotes the order", func(t *testing.T) {
		order := createPickingOrder(t)
		require.NoError(t, order.RecordPick("SKU-ALPHA", "A-01-02-B1", 2))
		require.NoError(t, order.RecordPick("SKU-BETA", "B-03-04-C2", 3))

		assert.Equal(t, StatusPicked, order.Status)
		require.NotNil(t, order.PickedAt)
		assert.Equal(t, 100, order.Progress())

		events := order.GetDomainEvents()
		require.Len(t, events, 3)
		_, ok := events[2].(*OrderPickedEvent)
		assert.True(t, ok)
	})

	t.Run("Cannot pick more than ordered", func(t *testing.T) {
		order := createPickingOrder(t)
		require.NoError(t, order.RecordPick("SKU-ALPHA", "A-01-02-B1", 1))

		err := order.RecordPick("SKU-ALPHA", "A-01-02-B1", 2)
		assert.ErrorIs(t, err, ErrPickExceedsOrdered)

		line, _ := order.Line("SKU-ALPHA", "A-01-02-B1")
		assert.Equal(t, 1, line.PickedQty)
	})

	t.Run("Rejects zero quantity", func(t *testing.T) {
		order := createPickingOrder(t)
		assert.ErrorIs(t, order.RecordPick("SKU-ALPHA", "A-01-02-B1", 0), ErrInvalidQuantity)
	})

	t.Run("Rejects unknown line", func(t *testing.T) {
		order := createPickingOrder(t)
		assert.ErrorIs(t, order.RecordPick("SKU-GAMMA", "A-01-02-B1", 1), ErrLineNotFound)
	})

	t.Run("Rejects line with wrong bin", func(t *testing.T) {
		order := createPickingOrder(t)
		assert.ErrorIs(t, order.RecordPick("SKU-ALPHA", "Z-09-09-Z9", 1), ErrLineNotFound)
	})

	t.Run("Cannot pick a pending order", func(t *testing.T) {
		order := createTestOrder(t)
		assert.ErrorIs(t, order.RecordPick("SKU-ALPHA", "A-01-02-B1", 1), ErrOrderNotPicking)
	})
}

// TestOrderUndoPick tests reversing recorded picks
func TestOrderUndoPick(t *testing.T) {
	t.Run("Undo decrements the line", func(t *testing.T) {
		order := createPickingOrder(t)
		require.NoError(t, order.RecordPick("SKU-BETA", "B-03-04-C2", 2))
		order.ClearDomainEvents()

		undone, err := order.UndoPick("SKU-BETA", "B-03-04-C2", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, undone)

		line, _ := order.Line("SKU-BETA", "B-03-04-C2")
		assert.Equal(t, 1, line.PickedQty)

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*PickUndoneEvent)
		assert.True(t, ok)
	})

	t.Run("Undo clamps at zero", func(t *testing.T) {
		order := createPickingOrder(t)
		require.NoError(t, order.RecordPick("SKU-BETA", "B-03-04-C2", 1))

		undone, err := order.UndoPick("SKU-BETA", "B-03-04-C2", 5)
		require.NoError(t, err)
		assert.Equal(t, 1, undone)

		line, _ := order.Line("SKU-BETA", "B-03-04-C2")
		assert.Equal(t, 0, line.PickedQty)
	})

	t.Run("Cannot undo once the order is picked", func(t *testing.T) {
		order := createPickedOrder(t)
		_, err := order.UndoPick("SKU-ALPHA", "A-01-02-B1", 1)
		assert.ErrorIs(t, err, ErrOrderNotPicking)
	})
}

// TestOrderProgress tests the whole-percent progress calculation
func TestOrderProgress(t *testing.T) {
	order, err := NewOrder("ORD-TEST0002", "CUST-001",
		[]OrderItem{{SKU: "SKU-ALPHA", Bin: "A-01-02-B1", Quantity: 3}}, "standard", "UPS")
	require.NoError(t, err)
	require.NoError(t, order.Claim("WRK-PICK1"))

	require.NoError(t, order.RecordPick("SKU-ALPHA", "A-01-02-B1", 1))
	assert.Equal(t, 33, order.Progress())

	require.NoError(t, order.RecordPick("SKU-ALPHA", "A-01-02-B1", 1))
	assert.Equal(t, 66, order.Progress())

	require.NoError(t, order.RecordPick("SKU-ALPHA", "A-01-02-B1", 1))
	assert.Equal(t, 100, order.Progress())
}

// TestOrderPackingFlow tests the packing stage
func TestOrderPackingFlow(t *testing.T) {
	t.Run("Start packing a picked order", func(t *testing.T) {
		order := createPickedOrder(t)
		err := order.StartPacking("WRK-PACK1")

		require.NoError(t, err)
		assert.Equal(t, StatusPacking, order.Status)
		assert.Equal(t, "WRK-PACK1", order.PackerID)
		require.NotNil(t, order.PackingAt)
	})

	t.Run("Requires a packer id", func(t *testing.T) {
		order := createPickedOrder(t)
		assert.ErrorIs(t, order.StartPacking(""), ErrPackerRequired)
	})

	t.Run("Cannot start packing before picking completes", func(t *testing.T) {
		order := createPickingOrder(t)
		var transitionErr *InvalidTransitionError
		assert.ErrorAs(t, order.StartPacking("WRK-PACK1"), &transitionErr)
	})

	t.Run("Verifying all lines promotes the order", func(t *testing.T) {
		order := createPackingOrder(t)
		require.NoError(t, order.RecordPack("SKU-ALPHA", "A-01-02-B1", 2))
		assert.Equal(t, StatusPacking, order.Status)

		require.NoError(t, order.RecordPack("SKU-BETA", "B-03-04-C2", 3))
		assert.Equal(t, StatusPacked, order.Status)
		require.NotNil(t, order.PackedAt)

		events := order.GetDomainEvents()
		require.Len(t, events, 3)
		_, ok := events[2].(*OrderPackedEvent)
		assert.True(t, ok)
	})

	t.Run("Cannot verify more than ordered", func(t *testing.T) {
		order := createPackingOrder(t)
		err := order.RecordPack("SKU-ALPHA", "A-01-02-B1", 3)
		assert.ErrorIs(t, err, ErrPackExceedsOrdered)
	})
}

// TestOrderShip tests shipping a packed order
func TestOrderShip(t *testing.T) {
	t.Run("Ship packed order", func(t *testing.T) {
		order := createPackedOrder(t)
		err := order.Ship("1Z999AA10123456784")

		require.NoError(t, err)
		assert.Equal(t, StatusShipped, order.Status)
		assert.Equal(t, "1Z999AA10123456784", order.TrackingNumber)
		require.NotNil(t, order.ShippedAt)

		events := order.GetDomainEvents()
		require.Len(t, events, 1)
		shipped, ok := events[0].(*OrderShippedEvent)
		require.True(t, ok)
		assert.Equal(t, "UPS", shipped.Carrier)
	})

	t.Run("Requires shipping method and carrier", func(t *testing.T) {
		order := createPackedOrder(t)
		order.Carrier = ""
		assert.ErrorIs(t, order.Ship(""), ErrShippingInfoMissing)
		assert.Equal(t, StatusPacked, order.Status)
	})

	t.Run("Cannot ship before packing", func(t *testing.T) {
		order := createPickedOrder(t)
		var transitionErr *InvalidTransitionError
		assert.ErrorAs(t, order.Ship(""), &transitionErr)
	})
}

// TestOrderCancel tests cancellation edges
func TestOrderCancel(t *testing.T) {
	t.Run("Cancel pending order", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.Cancel("customer request"))
		assert.Equal(t, StatusCancelled, order.Status)
		assert.Equal(t, "customer request", order.CancelReason)
		require.NotNil(t, order.CancelledAt)
	})

	t.Run("Cancel order mid-pick", func(t *testing.T) {
		order := createPickingOrder(t)
		require.NoError(t, order.Cancel("out of stock"))
		assert.Equal(t, StatusCancelled, order.Status)
	})

	t.Run("Cannot cancel after picking completes", func(t *testing.T) {
		order := createPickedOrder(t)
		var transitionErr *InvalidTransitionError
		require.ErrorAs(t, order.Cancel("too late"), &transitionErr)
		assert.Equal(t, []OrderStatus{StatusPacking}, transitionErr.Allowed)
	})

	t.Run("Cannot cancel a shipped order", func(t *testing.T) {
		order := createPackedOrder(t)
		require.NoError(t, order.Ship(""))
		assert.Error(t, order.Cancel("changed mind"))
	})
}

// TestOrderBackorder tests parking and releasing orders
func TestOrderBackorder(t *testing.T) {
	t.Run("Backorder pending order", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.Backorder("SKU-ALPHA out of stock"))
		assert.Equal(t, StatusBackorder, order.Status)
		assert.Equal(t, "SKU-ALPHA out of stock", order.HoldReason)
	})

	t.Run("Requires a reason", func(t *testing.T) {
		order := createTestOrder(t)
		assert.ErrorIs(t, order.Backorder(""), ErrBackorderReason)
		assert.Equal(t, StatusPending, order.Status)
	})

	t.Run("Cannot backorder mid-pick", func(t *testing.T) {
		order := createPickingOrder(t)
		var transitionErr *InvalidTransitionError
		assert.ErrorAs(t, order.Backorder("stock gone"), &transitionErr)
	})

	t.Run("Release returns the order to pending", func(t *testing.T) {
		order := createTestOrder(t)
		require.NoError(t, order.Backorder("stock gone"))

		require.NoError(t, order.ReleaseBackorder())
		assert.Equal(t, StatusPending, order.Status)
		assert.Empty(t, order.HoldReason)
	})
}

// TestAdjustLineQuantity tests resolution-driven quantity changes
func TestAdjustLineQuantity(t *testing.T) {
	t.Run("Reduce below picked fails", func(t *testing.T) {
		order := createPickingOrder(t)
		require.NoError(t, order.RecordPick("SKU-BETA", "B-03-04-C2", 2))

		err := order.AdjustLineQuantity("SKU-BETA", "B-03-04-C2", 1)
		assert.ErrorIs(t, err, ErrQuantityBelowPicked)
	})

	t.Run("Reduce to picked succeeds", func(t *testing.T) {
		order := createPickingOrder(t)
		require.NoError(t, order.RecordPick("SKU-BETA", "B-03-04-C2", 2))

		require.NoError(t, order.AdjustLineQuantity("SKU-BETA", "B-03-04-C2", 2))
		line, _ := order.Line("SKU-BETA", "B-03-04-C2")
		assert.Equal(t, 2, line.Quantity)
		assert.True(t, line.FullyPicked())
	})
}

// TestRemoveLine tests dropping a line from an order
func TestRemoveLine(t *testing.T) {
	t.Run("Remove one of two lines", func(t *testing.T) {
		order := createTestOrder(t)
		removed, err := order.RemoveLine("SKU-ALPHA", "A-01-02-B1")

		require.NoError(t, err)
		assert.Equal(t, "SKU-ALPHA", removed.SKU)
		assert.Len(t, order.Items, 1)
	})

	t.Run("Cannot remove the last line", func(t *testing.T) {
		order, err := NewOrder("ORD-TEST0003", "CUST-001",
			[]OrderItem{{SKU: "SKU-ALPHA", Bin: "A-01-02-B1", Quantity: 1}}, "standard", "UPS")
		require.NoError(t, err)

		_, err = order.RemoveLine("SKU-ALPHA", "A-01-02-B1")
		assert.Error(t, err)
		assert.Len(t, order.Items, 1)
	})
}

// TestSubstituteLine tests swapping a line for a replacement SKU
func TestSubstituteLine(t *testing.T) {
	order := createPickingOrder(t)
	require.NoError(t, order.RecordPick("SKU-ALPHA", "A-01-02-B1", 1))

	require.NoError(t, order.SubstituteLine("SKU-ALPHA", "A-01-02-B1", "SKU-GAMMA", "C-05-06-D3"))

	line, ok := order.Line("SKU-GAMMA", "C-05-06-D3")
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 0, line.PickedQty)

	_, ok = order.Line("SKU-ALPHA", "A-01-02-B1")
	assert.False(t, ok)
}

// TestLineBySKU tests bin-agnostic line lookup
func TestLineBySKU(t *testing.T) {
	items := []OrderItem{
		{SKU: "SKU-ALPHA", Bin: "A-01-02-B1", Quantity: 1},
		{SKU: "SKU-ALPHA", Bin: "B-03-04-C2", Quantity: 2},
	}
	order, err := NewOrder("ORD-TEST0004", "CUST-001", items, "standard", "UPS")
	require.NoError(t, err)
	require.NoError(t, order.Claim("WRK-PICK1"))

	require.NoError(t, order.RecordPick("SKU-ALPHA", "A-01-02-B1", 1))

	line, ok := order.LineBySKU("SKU-ALPHA")
	require.True(t, ok)
	assert.Equal(t, "B-03-04-C2", line.Bin, "prefers the line with units remaining")

	_, ok = order.LineBySKU("SKU-OMEGA")
	assert.False(t, ok)
}
