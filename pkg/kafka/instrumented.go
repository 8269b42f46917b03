package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
	"github.com/wms-platform/fulfillment-service/pkg/tracing"
)

// InstrumentedProducer wraps a Producer with a producer span, publish
// metrics and a structured log line per publish.
type InstrumentedProducer struct {
	producer *Producer
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewInstrumentedProducer wraps the given producer. Nil metrics or logger
// disable that concern.
func NewInstrumentedProducer(producer *Producer, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		producer: producer,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("kafka-producer"),
	}
}

// PublishEvent publishes one CloudEvent inside a producer span and stamps
// the event with the current trace context before it leaves the process.
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "kafka.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("kafka"),
			semconv.MessagingDestinationNameKey.String(topic),
			semconv.MessagingOperationKey.String("publish"),
			attribute.String("messaging.kafka.event_type", event.Type),
			attribute.String("messaging.message_id", event.ID),
		),
	)
	defer span.End()

	if event.CorrelationID != "" {
		span.SetAttributes(attribute.String("wms.correlation_id", event.CorrelationID))
	}
	if event.OrderID != "" {
		span.SetAttributes(attribute.String("wms.order_id", event.OrderID))
	}

	carrier := tracing.MapCarrier{}
	tracing.InjectTraceContext(ctx, carrier)
	if tp, ok := carrier["traceparent"]; ok {
		event.TraceParent = tp
	}
	if ts, ok := carrier["tracestate"]; ok {
		event.TraceState = ts
	}

	err := p.producer.PublishEvent(ctx, topic, event)
	duration := time.Since(start)

	success := err == nil
	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, success, duration)
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, success, duration)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.Int64("messaging.duration_ms", duration.Milliseconds()))
	return nil
}

// Close closes the underlying producer.
func (p *InstrumentedProducer) Close() error {
	return p.producer.Close()
}
