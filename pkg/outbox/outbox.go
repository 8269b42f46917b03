package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
)

// OutboxEvent is one staged row of the transactional outbox. The payload is
// the fully rendered CloudEvent, so the publisher replays it byte for byte
// without consulting the aggregate again.
type OutboxEvent struct {
	ID            string          `bson:"_id"`
	AggregateID   string          `bson:"aggregateId"`
	AggregateType string          `bson:"aggregateType"`
	EventType     string          `bson:"eventType"`
	Topic         string          `bson:"topic"`
	Payload       json.RawMessage `bson:"payload"`
	CreatedAt     time.Time       `bson:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount"`
	LastError     string          `bson:"lastError,omitempty"`
}

// NewOutboxEventFromCloudEvent stages a CloudEvent for later publication to
// the given topic.
func NewOutboxEventFromCloudEvent(aggregateID, aggregateType, topic string, cloudEvent *cloudevents.WMSCloudEvent) (*OutboxEvent, error) {
	payload, err := json.Marshal(cloudEvent)
	if err != nil {
		return nil, fmt.Errorf("marshal CloudEvent %s: %w", cloudEvent.ID, err)
	}

	return &OutboxEvent{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     cloudEvent.Type,
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// ToCloudEvent decodes the staged payload back into a CloudEvent.
func (e *OutboxEvent) ToCloudEvent() (*cloudevents.WMSCloudEvent, error) {
	var cloudEvent cloudevents.WMSCloudEvent
	if err := json.Unmarshal(e.Payload, &cloudEvent); err != nil {
		return nil, fmt.Errorf("decode outbox payload %s: %w", e.ID, err)
	}
	return &cloudEvent, nil
}
