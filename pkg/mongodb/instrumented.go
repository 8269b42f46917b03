package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
)

// InstrumentedClient wraps Client with tracing and metrics on the operations
// the service drives through it: transactions and health probes. Repositories
// run on the raw database handle inside the session context, so the
// transaction span is the parent that ties their operations together.
type InstrumentedClient struct {
	client  *Client
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewInstrumentedClient layers observability over an established connection.
func NewInstrumentedClient(client *Client, m *metrics.Metrics, logger *logging.Logger) *InstrumentedClient {
	return &InstrumentedClient{
		client:  client,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("mongodb"),
	}
}

// Database exposes the wrapped database handle for repository construction.
func (c *InstrumentedClient) Database() *mongo.Database {
	return c.client.Database()
}

// Close tears down the wrapped connection.
func (c *InstrumentedClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck pings the primary, recording the probe as a span
func (c *InstrumentedClient) HealthCheck(ctx context.Context) error {
	ctx, span := c.startSpan(ctx, "mongodb.ping")
	defer span.End()

	err := c.client.HealthCheck(ctx)
	c.finishSpan(span, err)
	return err
}

// WithTransaction runs fn inside a MongoDB transaction, wrapped in a span and
// recorded as one timed operation. Commit-or-abort latency is what the
// dashboards watch; the per-collection work inside is visible as child spans.
func (c *InstrumentedClient) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "mongodb.transaction")
	defer span.End()

	err := c.client.WithTransaction(ctx, fn)
	duration := time.Since(start)

	if c.metrics != nil {
		c.metrics.RecordMongoDBOperation("session", "transaction", err == nil, duration)
	}
	if c.logger != nil {
		c.logger.DatabaseQuery(ctx, "session", "transaction", duration, err == nil, 0)
	}

	c.finishSpan(span, err)
	return err
}

func (c *InstrumentedClient) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.client.config.Database),
		),
	)
}

func (c *InstrumentedClient) finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
