package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
	"github.com/wms-platform/fulfillment-service/pkg/resilience"
)

// CircuitBreakerProducer guards publishes with a breaker so a broker outage
// fails fast instead of stalling outbox polls. Failed rows stay in the
// outbox and retry once the breaker lets traffic through again.
type CircuitBreakerProducer struct {
	producer *InstrumentedProducer
	breaker  *resilience.CircuitBreaker
}

// NewProductionProducer builds the full producer stack: base writers,
// tracing and metrics instrumentation, then the circuit breaker.
func NewProductionProducer(config *Config, m *metrics.Metrics, logger *logging.Logger) *CircuitBreakerProducer {
	var slogger *slog.Logger
	if logger != nil {
		slogger = logger.Logger
	}

	breakerConfig := resilience.CircuitBreakerConfig{
		Name:                  "kafka-producer",
		MaxRequests:           5,
		Interval:              60 * time.Second,
		Timeout:               30 * time.Second,
		FailureThreshold:      5,
		FailureRatioThreshold: 0.5,
		MinRequestsToTrip:     10,
	}
	if m != nil {
		breakerConfig.OnStateChange = func(name string, from, to gobreaker.State) {
			m.SetCircuitBreakerState(name, int(to))
			if to == gobreaker.StateOpen {
				m.RecordCircuitBreakerTrip(name)
			}
		}
	}

	return &CircuitBreakerProducer{
		producer: NewInstrumentedProducer(NewProducer(config), m, logger),
		breaker:  resilience.NewCircuitBreaker(breakerConfig, slogger),
	}
}

// PublishEvent publishes one event through the breaker.
func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	return p.breaker.Execute(func() error {
		return p.producer.PublishEvent(ctx, topic, event)
	})
}

// Close closes the underlying producer.
func (p *CircuitBreakerProducer) Close() error {
	return p.producer.Close()
}
