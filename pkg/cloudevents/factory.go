package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for fulfillment domain events
type EventFactory struct {
	source string
}

// NewEventFactory fixes the source URI stamped on every event.
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent assembles the envelope shared by all event types: a fresh ID,
// UTC timestamp, source and content type.
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		Extensions:      make(map[string]interface{}),
	}

	return event
}

// CreateEventWithCorrelation also carries the caller's correlation ID so
// consumers can stitch the event back to the originating request.
func (f *EventFactory) CreateEventWithCorrelation(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
	correlationID string,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, subject, data)
	event.CorrelationID = correlationID
	return event
}

// CreateOrderClaimedEvent announces a picker winning an order.
func (f *EventFactory) CreateOrderClaimedEvent(
	ctx context.Context,
	orderID string,
	pickerID string,
	lines []OrderLine,
) *WMSCloudEvent {
	data := OrderClaimedData{
		OrderID:  orderID,
		PickerID: pickerID,
		Lines:    lines,
	}
	event := f.CreateEvent(ctx, OrderClaimed, "order/"+orderID, data)
	event.OrderID = orderID
	return event
}

// CreateOrderShippedEvent announces the handoff to the carrier.
func (f *EventFactory) CreateOrderShippedEvent(
	ctx context.Context,
	orderID string,
	carrier string,
	shippingMethod string,
	trackingNumber string,
) *WMSCloudEvent {
	data := OrderShippedData{
		OrderID:        orderID,
		Carrier:        carrier,
		ShippingMethod: shippingMethod,
		TrackingNumber: trackingNumber,
	}
	event := f.CreateEvent(ctx, OrderShipped, "order/"+orderID, data)
	event.OrderID = orderID
	return event
}

// CreateOrderCancelledEvent announces a cancellation and the reservation
// units it released.
func (f *EventFactory) CreateOrderCancelledEvent(
	ctx context.Context,
	orderID string,
	reason string,
	releasedUnits int,
) *WMSCloudEvent {
	data := OrderCancelledData{
		OrderID:       orderID,
		Reason:        reason,
		ReleasedUnits: releasedUnits,
	}
	event := f.CreateEvent(ctx, OrderCancelled, "order/"+orderID, data)
	event.OrderID = orderID
	return event
}

// CreateItemPickedEvent announces one pick and the order's running progress.
func (f *EventFactory) CreateItemPickedEvent(
	ctx context.Context,
	orderID string,
	sku string,
	bin string,
	quantity int,
	pickedTotal int,
	progress int,
) *WMSCloudEvent {
	data := ItemPickedData{
		OrderID:     orderID,
		SKU:         sku,
		Bin:         bin,
		Quantity:    quantity,
		PickedTotal: pickedTotal,
		Progress:    progress,
	}
	event := f.CreateEvent(ctx, ItemPicked, "order/"+orderID, data)
	event.OrderID = orderID
	return event
}

// CreateStockMovementEvent announces a reservation ledger movement of the
// given type.
func (f *EventFactory) CreateStockMovementEvent(
	ctx context.Context,
	eventType string,
	data StockMovementData,
) *WMSCloudEvent {
	event := f.CreateEvent(ctx, eventType, "inventory/"+data.SKU, data)
	event.OrderID = data.OrderID
	return event
}

// CreateInventoryAdjustedEvent announces a manual stock correction.
func (f *EventFactory) CreateInventoryAdjustedEvent(
	ctx context.Context,
	sku string,
	bin string,
	previousQty int,
	newQty int,
	adjustmentType string,
	reason string,
) *WMSCloudEvent {
	data := InventoryAdjustedData{
		SKU:            sku,
		Bin:            bin,
		PreviousQty:    previousQty,
		NewQty:         newQty,
		AdjustmentType: adjustmentType,
		Reason:         reason,
	}
	return f.CreateEvent(ctx, InventoryAdjusted, "inventory/"+sku, data)
}

// CreateExceptionLoggedEvent announces a new floor exception.
func (f *EventFactory) CreateExceptionLoggedEvent(
	ctx context.Context,
	exceptionID string,
	orderID string,
	sku string,
	exceptionType string,
	reportedBy string,
) *WMSCloudEvent {
	data := ExceptionLoggedData{
		ExceptionID: exceptionID,
		OrderID:     orderID,
		SKU:         sku,
		Type:        exceptionType,
		ReportedBy:  reportedBy,
	}
	event := f.CreateEvent(ctx, ExceptionLogged, "exception/"+exceptionID, data)
	event.OrderID = orderID
	return event
}

// CreateExceptionResolvedEvent announces how an exception was closed.
func (f *EventFactory) CreateExceptionResolvedEvent(
	ctx context.Context,
	exceptionID string,
	orderID string,
	resolution string,
	resolvedBy string,
) *WMSCloudEvent {
	data := ExceptionResolvedData{
		ExceptionID: exceptionID,
		OrderID:     orderID,
		Resolution:  resolution,
		ResolvedBy:  resolvedBy,
	}
	event := f.CreateEvent(ctx, ExceptionResolved, "exception/"+exceptionID, data)
	event.OrderID = orderID
	return event
}
