package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
)

// Producer writes CloudEvents to Kafka, one lazily created writer per
// topic. It is not safe for concurrent use; the outbox publisher is its
// only caller and runs single-threaded.
type Producer struct {
	writers map[string]*kafka.Writer
	config  *Config
}

// NewProducer creates a producer. Writers are dialed on first publish.
func NewProducer(config *Config) *Producer {
	return &Producer{
		writers: make(map[string]*kafka.Writer),
		config:  config,
	}
}

func (p *Producer) writer(topic string) *kafka.Writer {
	if w, ok := p.writers[topic]; ok {
		return w
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(p.config.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    p.config.BatchSize,
		BatchTimeout: p.config.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(p.config.RequiredAcks),
		Async:        false,
	}
	p.writers[topic] = w
	return w
}

// eventHeaders renders the CloudEvents attributes as binary-mode Kafka
// headers, so consumers can route on type without decoding the value.
func eventHeaders(event *cloudevents.WMSCloudEvent) []kafka.Header {
	headers := []kafka.Header{
		{Key: "ce-specversion", Value: []byte(event.SpecVersion)},
		{Key: "ce-type", Value: []byte(event.Type)},
		{Key: "ce-source", Value: []byte(event.Source)},
		{Key: "ce-id", Value: []byte(event.ID)},
		{Key: "ce-time", Value: []byte(event.Time.Format(time.RFC3339))},
		{Key: "content-type", Value: []byte(event.DataContentType)},
	}

	if event.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "ce-wmscorrelationid", Value: []byte(event.CorrelationID)})
	}
	if event.OrderID != "" {
		headers = append(headers, kafka.Header{Key: "ce-wmsorderid", Value: []byte(event.OrderID)})
	}

	// W3C trace context rides with the event so consumers continue the trace.
	if event.TraceParent != "" {
		headers = append(headers, kafka.Header{Key: "ce-traceparent", Value: []byte(event.TraceParent)})
	}
	if event.TraceState != "" {
		headers = append(headers, kafka.Header{Key: "ce-tracestate", Value: []byte(event.TraceState)})
	}

	return headers
}

// PublishEvent writes one CloudEvent to the topic, keyed by the event
// subject so all events about one aggregate stay ordered.
func (p *Producer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	msg := kafka.Message{
		Key:     []byte(event.Subject),
		Value:   data,
		Headers: eventHeaders(event),
		Time:    event.Time,
	}

	if err := p.writer(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}
	return nil
}

// Close closes every writer that was opened.
func (p *Producer) Close() error {
	var lastErr error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			lastErr = fmt.Errorf("close writer for %s: %w", topic, err)
		}
	}
	return lastErr
}
