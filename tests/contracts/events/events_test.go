package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/contracts/asyncapi"
)

const asyncAPISpecPath = "../../../docs/asyncapi.yaml"

func newValidator(t *testing.T) *asyncapi.EventValidator {
	t.Helper()

	validator, err := asyncapi.NewEventValidator(asyncAPISpecPath)
	require.NoError(t, err, "AsyncAPI spec should load and compile")
	require.NotNil(t, validator)
	return validator
}

// envelope wraps a payload in the CloudEvents envelope the outbox publisher
// emits on the wire.
func envelope(eventType string, data interface{}) asyncapi.CloudEvent {
	return asyncapi.CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          "/fulfillment-service",
		ID:              uuid.NewString(),
		Time:            time.Now().UTC().Format(time.RFC3339),
		DataContentType: "application/json",
		Data:            data,
	}
}

func TestAllEventTypesHaveSchemas(t *testing.T) {
	validator := newValidator(t)

	expected := []string{
		"wms.fulfillment.order-created",
		"wms.fulfillment.order-claimed",
		"wms.fulfillment.item-picked",
		"wms.fulfillment.item-pick-undone",
		"wms.fulfillment.order-picked",
		"wms.fulfillment.packing-started",
		"wms.fulfillment.item-packed",
		"wms.fulfillment.order-packed",
		"wms.fulfillment.order-shipped",
		"wms.fulfillment.order-cancelled",
		"wms.fulfillment.order-backordered",
		"wms.fulfillment.order-released",
		"wms.inventory.stock-reserved",
		"wms.inventory.stock-released",
		"wms.inventory.stock-deducted",
		"wms.inventory.adjusted",
		"wms.inventory.received",
		"wms.exception.logged",
		"wms.exception.resolved",
	}

	for _, eventType := range expected {
		assert.True(t, validator.HasSchema(eventType), "missing schema for %s", eventType)
	}

	assert.ElementsMatch(t, expected, validator.GetSupportedEventTypes())
}

func TestOrderEventPayloads(t *testing.T) {
	validator := newValidator(t)
	now := time.Now().UTC()

	events := []domain.DomainEvent{
		&domain.OrderCreatedEvent{
			OrderID:    "ORD-1001",
			CustomerID: "CUST-42",
			LineCount:  3,
			TotalUnits: 7,
			CreatedAt:  now,
		},
		&domain.OrderClaimedEvent{
			OrderID:   "ORD-1001",
			PickerID:  "WRK-PICK-01",
			LineCount: 3,
			ClaimedAt: now,
		},
		&domain.ItemPickedEvent{
			OrderID:     "ORD-1001",
			SKU:         "SKU-WIDGET",
			Bin:         "A-01-03",
			Quantity:    2,
			PickedTotal: 2,
			Progress:    28,
			PickedAt:    now,
		},
		&domain.PickUndoneEvent{
			OrderID:     "ORD-1001",
			SKU:         "SKU-WIDGET",
			Bin:         "A-01-03",
			Quantity:    1,
			PickedTotal: 1,
			Progress:    14,
			UndoneAt:    now,
		},
		&domain.OrderPickedEvent{
			OrderID:  "ORD-1001",
			PickerID: "WRK-PICK-01",
			PickedAt: now,
		},
		&domain.PackingStartedEvent{
			OrderID:   "ORD-1001",
			PackerID:  "WRK-PACK-01",
			StartedAt: now,
		},
		&domain.ItemPackedEvent{
			OrderID:       "ORD-1001",
			SKU:           "SKU-WIDGET",
			Bin:           "A-01-03",
			Quantity:      2,
			VerifiedTotal: 2,
			PackedAt:      now,
		},
		&domain.OrderPackedEvent{
			OrderID:  "ORD-1001",
			PackerID: "WRK-PACK-01",
			PackedAt: now,
		},
		&domain.OrderShippedEvent{
			OrderID:        "ORD-1001",
			Carrier:        "UPS",
			ShippingMethod: "GROUND",
			TrackingNumber: "1Z999AA10123456784",
			ShippedAt:      now,
		},
		&domain.OrderCancelledEvent{
			OrderID:     "ORD-1002",
			Reason:      "customer request",
			CancelledAt: now,
		},
		&domain.OrderBackorderedEvent{
			OrderID:       "ORD-1003",
			Reason:        "SKU-GADGET out of stock",
			BackorderedAt: now,
		},
		&domain.OrderReleasedEvent{
			OrderID:    "ORD-1003",
			ReleasedAt: now,
		},
	}

	for _, event := range events {
		t.Run(event.EventType(), func(t *testing.T) {
			err := validator.ValidateEvent(envelope(event.EventType(), event))
			assert.NoError(t, err)
		})
	}
}

func TestInventoryEventPayloads(t *testing.T) {
	validator := newValidator(t)
	now := time.Now().UTC()

	events := []domain.DomainEvent{
		&domain.StockReservedEvent{
			SKU:        "SKU-WIDGET",
			Bin:        "A-01-03",
			Quantity:   2,
			OrderID:    "ORD-1001",
			Available:  8,
			ReservedAt: now,
		},
		&domain.StockReleasedEvent{
			SKU:        "SKU-WIDGET",
			Bin:        "A-01-03",
			Quantity:   2,
			OrderID:    "ORD-1002",
			Available:  10,
			ReleasedAt: now,
		},
		&domain.StockDeductedEvent{
			SKU:        "SKU-WIDGET",
			Bin:        "A-01-03",
			Quantity:   2,
			OrderID:    "ORD-1001",
			OnHand:     8,
			DeductedAt: now,
		},
		&domain.InventoryAdjustedEvent{
			SKU:        "SKU-GADGET",
			Bin:        "B-02-01",
			Delta:      -3,
			OnHand:     4,
			Reason:     "cycle count",
			AdjustedAt: now,
		},
		&domain.StockReceivedEvent{
			SKU:        "SKU-GADGET",
			Bin:        "B-02-01",
			Quantity:   20,
			OnHand:     24,
			ReceivedAt: now,
		},
	}

	for _, event := range events {
		t.Run(event.EventType(), func(t *testing.T) {
			err := validator.ValidateEvent(envelope(event.EventType(), event))
			assert.NoError(t, err)
		})
	}
}

func TestExceptionEventPayloads(t *testing.T) {
	validator := newValidator(t)
	now := time.Now().UTC()

	events := []domain.DomainEvent{
		&domain.ExceptionLoggedEvent{
			ExceptionID: uuid.NewString(),
			OrderID:     "ORD-1001",
			Type:        "BIN_MISMATCH",
			SKU:         "SKU-WIDGET",
			Bin:         "A-01-04",
			Quantity:    2,
			ReportedBy:  "WRK-PICK-01",
			LoggedAt:    now,
		},
		&domain.ExceptionResolvedEvent{
			ExceptionID: uuid.NewString(),
			OrderID:     "ORD-1001",
			Type:        "SHORT_PICK",
			Resolution:  "BACKORDER",
			ResolvedBy:  "WRK-SUP-01",
			ResolvedAt:  now,
		},
	}

	for _, event := range events {
		t.Run(event.EventType(), func(t *testing.T) {
			err := validator.ValidateEvent(envelope(event.EventType(), event))
			assert.NoError(t, err)
		})
	}
}

func TestRejectsPayloadMissingRequiredFields(t *testing.T) {
	validator := newValidator(t)

	// Reservation without a SKU
	err := validator.ValidateEvent(envelope("wms.inventory.stock-reserved", map[string]interface{}{
		"bin":        "A-01-03",
		"quantity":   2,
		"available":  8,
		"reservedAt": time.Now().UTC().Format(time.RFC3339),
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestRejectsProgressOutOfRange(t *testing.T) {
	validator := newValidator(t)

	err := validator.ValidateEvent(envelope("wms.fulfillment.item-picked", map[string]interface{}{
		"orderId":     "ORD-1001",
		"sku":         "SKU-WIDGET",
		"bin":         "A-01-03",
		"quantity":    2,
		"pickedTotal": 2,
		"progress":    150,
		"pickedAt":    time.Now().UTC().Format(time.RFC3339),
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestRejectsUnknownEventType(t *testing.T) {
	validator := newValidator(t)

	err := validator.ValidateEvent(envelope("wms.fulfillment.order-teleported", map[string]interface{}{
		"orderId": "ORD-1001",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no schema found")
}

func TestRejectsMissingData(t *testing.T) {
	validator := newValidator(t)

	event := envelope("wms.fulfillment.order-created", nil)
	err := validator.ValidateEvent(event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event data is required")
}

func TestValidateEventJSON(t *testing.T) {
	validator := newValidator(t)

	event := envelope("wms.fulfillment.order-claimed", &domain.OrderClaimedEvent{
		OrderID:   "ORD-1001",
		PickerID:  "WRK-PICK-01",
		LineCount: 2,
		ClaimedAt: time.Now().UTC(),
	})

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	assert.NoError(t, validator.ValidateEventJSON(raw))
	assert.Error(t, validator.ValidateEventJSON([]byte("{not json")))
}

func TestRegisterCustomSchema(t *testing.T) {
	validator := newValidator(t)

	schema := []byte(`{
		"type": "object",
		"required": ["orderId", "delayedUntil"],
		"properties": {
			"orderId": {"type": "string"},
			"delayedUntil": {"type": "string", "format": "date-time"}
		}
	}`)

	const eventType = "wms.fulfillment.order-delayed"
	require.NoError(t, validator.RegisterSchema(eventType, schema))
	assert.True(t, validator.HasSchema(eventType))

	err := validator.ValidateEvent(envelope(eventType, map[string]interface{}{
		"orderId":      "ORD-1001",
		"delayedUntil": time.Now().UTC().Format(time.RFC3339),
	}))
	assert.NoError(t, err)

	err = validator.ValidateEvent(envelope(eventType, map[string]interface{}{
		"orderId": "ORD-1001",
	}))
	assert.Error(t, err)
}
