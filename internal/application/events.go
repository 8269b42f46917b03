package application

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/fulfillment-service/internal/domain"
	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/fulfillment-service/pkg/kafka"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
	"github.com/wms-platform/fulfillment-service/pkg/outbox"
)

// TxRunner executes a function inside a MongoDB transaction
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error
}

// ServiceDependencies bundles the collaborators shared by the application
// services
type ServiceDependencies struct {
	Tx           TxRunner
	Orders       domain.OrderRepository
	Inventory    domain.InventoryRepository
	Workers      domain.WorkerRepository
	Exceptions   domain.ExceptionRepository
	InventoryLog domain.InventoryTransactionRepository
	StateChanges domain.OrderStateChangeRepository
	Outbox       outbox.Repository
	EventFactory *cloudevents.EventFactory
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
}

// routeTopic maps an event type to its Kafka topic by family
func routeTopic(eventType string) string {
	switch {
	case strings.HasPrefix(eventType, "wms.inventory."):
		return kafka.Topics.InventoryEvents
	case strings.HasPrefix(eventType, "wms.exception."):
		return kafka.Topics.ExceptionsEvents
	default:
		return kafka.Topics.OrdersEvents
	}
}

func subjectFor(aggregateType, aggregateID string) string {
	switch aggregateType {
	case "InventoryUnit":
		return "inventory/" + aggregateID
	case "OrderException":
		return "exception/" + aggregateID
	default:
		return "order/" + aggregateID
	}
}

// saveDomainEvents wraps domain events as CloudEvents and stages them in the
// outbox. Called with a session context so the events commit or roll back
// together with the state change that raised them.
func (d ServiceDependencies) saveDomainEvents(ctx context.Context, aggregateType, aggregateID, orderID string, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		ce := d.EventFactory.CreateEvent(ctx, event.EventType(), subjectFor(aggregateType, aggregateID), event)
		ce.OrderID = orderID

		row, err := outbox.NewOutboxEventFromCloudEvent(aggregateID, aggregateType, routeTopic(event.EventType()), ce)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return d.Outbox.SaveAll(ctx, rows)
}

func inventoryAggregateID(sku, bin string) string {
	return sku + "@" + bin
}
