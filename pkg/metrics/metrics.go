package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Duration bucket layouts per backend.
var (
	httpBuckets  = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	kafkaBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}
	mongoBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
)

// Metrics holds every Prometheus collector the service writes to.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	OutboxPending   prometheus.Gauge
	OutboxPublished *prometheus.CounterVec
	OutboxRetries   *prometheus.CounterVec

	OrdersCreated      *prometheus.CounterVec
	OrderTransitions   *prometheus.CounterVec
	ItemsPicked        *prometheus.CounterVec
	ItemsPacked        *prometheus.CounterVec
	PackagesShipped    *prometheus.CounterVec
	StockMovements     *prometheus.CounterVec
	ExceptionsLogged   *prometheus.CounterVec
	ExceptionsResolved *prometheus.CounterVec

	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration.
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig puts all collectors under the wms namespace.
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// builder stamps the shared namespace onto each collector as it registers it.
type builder struct {
	factory promauto.Factory
	ns      string
}

func (b builder) counter(name, help string, labels ...string) *prometheus.CounterVec {
	return b.factory.NewCounterVec(prometheus.CounterOpts{Namespace: b.ns, Name: name, Help: help}, labels)
}

func (b builder) histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return b.factory.NewHistogramVec(prometheus.HistogramOpts{Namespace: b.ns, Name: name, Help: help, Buckets: buckets}, labels)
}

func (b builder) gauge(name, help string, constLabels prometheus.Labels) prometheus.Gauge {
	return b.factory.NewGauge(prometheus.GaugeOpts{Namespace: b.ns, Name: name, Help: help, ConstLabels: constLabels})
}

func (b builder) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return b.factory.NewGaugeVec(prometheus.GaugeOpts{Namespace: b.ns, Name: name, Help: help}, labels)
}

// New builds a Metrics instance backed by its own registry, with the Go
// runtime and process collectors included.
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	b := builder{factory: promauto.With(registry), ns: config.Namespace}
	service := prometheus.Labels{"service": config.ServiceName}

	return &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,

		HTTPRequestsTotal: b.counter("http_requests_total",
			"Total number of HTTP requests", "service", "method", "path", "status"),
		HTTPRequestDuration: b.histogram("http_request_duration_seconds",
			"HTTP request duration in seconds", httpBuckets, "service", "method", "path"),
		HTTPRequestsInFlight: b.gauge("http_requests_in_flight",
			"Number of HTTP requests currently being processed", service),

		KafkaEventsPublished: b.counter("kafka_events_published_total",
			"Total number of Kafka events published", "service", "topic", "event_type", "status"),
		KafkaPublishDuration: b.histogram("kafka_publish_duration_seconds",
			"Kafka publish duration in seconds", kafkaBuckets, "service", "topic"),

		MongoDBOperations: b.counter("mongodb_operations_total",
			"Total number of MongoDB operations", "service", "collection", "operation", "status"),
		MongoDBOperationDuration: b.histogram("mongodb_operation_duration_seconds",
			"MongoDB operation duration in seconds", mongoBuckets, "service", "collection", "operation"),

		OutboxPending: b.gauge("outbox_pending_events",
			"Number of outbox events waiting for publication", service),
		OutboxPublished: b.counter("outbox_events_published_total",
			"Total number of outbox events published", "service", "event_type", "status"),
		OutboxRetries: b.counter("outbox_event_retries_total",
			"Total number of outbox publish retries", "service", "event_type"),

		OrdersCreated: b.counter("orders_created_total",
			"Total number of orders created", "service"),
		OrderTransitions: b.counter("order_transitions_total",
			"Total number of order status transitions", "service", "from", "to"),
		ItemsPicked: b.counter("items_picked_total",
			"Total number of item units picked", "service"),
		ItemsPacked: b.counter("items_packed_total",
			"Total number of item units pack-verified", "service"),
		PackagesShipped: b.counter("packages_shipped_total",
			"Total number of orders shipped", "service", "carrier"),
		StockMovements: b.counter("stock_movements_total",
			"Total number of inventory ledger movements", "service", "type"),
		ExceptionsLogged: b.counter("exceptions_logged_total",
			"Total number of fulfillment exceptions logged", "service", "type"),
		ExceptionsResolved: b.counter("exceptions_resolved_total",
			"Total number of fulfillment exceptions resolved", "service", "resolution"),

		CircuitBreakerState: b.gaugeVec("circuit_breaker_state",
			"Circuit breaker state (0=closed, 1=half-open, 2=open)", "service", "name"),
		CircuitBreakerTrips: b.counter("circuit_breaker_trips_total",
			"Total number of circuit breaker trips", "service", "name"),
	}
}

// Handler serves the registry in OpenMetrics format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordKafkaPublish records a broker publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, outcome(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records one repository round trip.
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, outcome(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// SetOutboxPending tracks the current outbox backlog.
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}

// RecordOutboxPublish records one outbox publish attempt.
func (m *Metrics) RecordOutboxPublish(eventType string, success bool) {
	m.OutboxPublished.WithLabelValues(m.serviceName, eventType, outcome(success)).Inc()
}

// RecordOutboxRetry counts a failed publish scheduled for another attempt.
func (m *Metrics) RecordOutboxRetry(eventType string) {
	m.OutboxRetries.WithLabelValues(m.serviceName, eventType).Inc()
}

// RecordOrderCreated counts an accepted order.
func (m *Metrics) RecordOrderCreated() {
	m.OrdersCreated.WithLabelValues(m.serviceName).Inc()
}

// RecordOrderTransition counts a status change by edge.
func (m *Metrics) RecordOrderTransition(from, to string) {
	m.OrderTransitions.WithLabelValues(m.serviceName, from, to).Inc()
}

// RecordItemsPicked adds picked units.
func (m *Metrics) RecordItemsPicked(count int) {
	m.ItemsPicked.WithLabelValues(m.serviceName).Add(float64(count))
}

// RecordItemsPacked adds pack-verified units.
func (m *Metrics) RecordItemsPacked(count int) {
	m.ItemsPacked.WithLabelValues(m.serviceName).Add(float64(count))
}

// RecordPackageShipped counts a shipped order by carrier.
func (m *Metrics) RecordPackageShipped(carrier string) {
	m.PackagesShipped.WithLabelValues(m.serviceName, carrier).Inc()
}

// RecordStockMovement counts an inventory ledger entry by movement type.
func (m *Metrics) RecordStockMovement(movementType string) {
	m.StockMovements.WithLabelValues(m.serviceName, movementType).Inc()
}

// RecordExceptionLogged counts a logged fulfillment exception by type.
func (m *Metrics) RecordExceptionLogged(exceptionType string) {
	m.ExceptionsLogged.WithLabelValues(m.serviceName, exceptionType).Inc()
}

// RecordExceptionResolved counts a resolved fulfillment exception by resolution.
func (m *Metrics) RecordExceptionResolved(resolution string) {
	m.ExceptionsResolved.WithLabelValues(m.serviceName, resolution).Inc()
}

// SetCircuitBreakerState mirrors the breaker state as a gauge.
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip counts a transition to the open state.
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

// IncrementHTTPRequestsInFlight adds one to the in-flight gauge.
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight subtracts one from the in-flight gauge.
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
