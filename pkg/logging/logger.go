package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel is the string form accepted by Config and the LOG_LEVEL
// environment variable.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config controls handler construction. An unrecognized Level falls back
// to info, a nil Output to stdout.
type Config struct {
	Level       LogLevel
	ServiceName string
	Environment string
	Version     string
	Output      io.Writer
	AddSource   bool
}

// DefaultConfig returns an info-level JSON logger configuration for the
// given service, reading environment and version from the process env.
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Level:       LevelInfo,
		ServiceName: serviceName,
		Environment: getEnv("ENVIRONMENT", "development"),
		Version:     getEnv("VERSION", "unknown"),
		Output:      os.Stdout,
		AddSource:   false,
	}
}

// Logger embeds slog.Logger, so the plain Info/Warn/Error calls work
// directly alongside the structured helpers below.
type Logger struct {
	*slog.Logger
}

// New builds a JSON logger that stamps every line with the service
// identity and an RFC 3339 UTC timestamp.
func New(config *Config) *Logger {
	level := slog.LevelInfo
	switch config.Level {
	case LevelDebug:
		level = slog.LevelDebug
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}

	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
				}
			}
			return a
		},
	}

	base := slog.New(slog.NewJSONHandler(output, opts)).With(
		"service", config.ServiceName,
		"environment", config.Environment,
		"version", config.Version,
	)

	return &Logger{Logger: base}
}

// WithError returns a logger that tags every line with the error message.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{Logger: l.Logger.With("error", err.Error())}
}

// WithContext returns a logger carrying the request, correlation and trace
// IDs found in ctx, so service-layer lines join up with the access log and
// the trace backend.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := contextAttrs(ctx)
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.Logger.With(attrs...)}
}

// BusinessEvent describes a domain-level occurrence worth a structured
// log line in addition to the persisted audit record.
type BusinessEvent struct {
	EventType  string
	EntityType string
	EntityID   string
	Action     string
	ActorID    string
	RelatedIDs map[string]string
}

// LogBusinessEvent emits one info line per domain occurrence, keyed so log
// pipelines can aggregate by event type and entity.
func (l *Logger) LogBusinessEvent(ctx context.Context, event BusinessEvent) {
	attrs := []any{
		"eventType", event.EventType,
		"entityType", event.EntityType,
		"entityId", event.EntityID,
		"action", event.Action,
	}

	if event.ActorID != "" {
		attrs = append(attrs, "actorId", event.ActorID)
	}
	for k, v := range event.RelatedIDs {
		attrs = append(attrs, k, v)
	}

	l.WithContext(ctx).Info("Business event", attrs...)
}

// Audit records who changed what. These lines are the operational audit
// trail for manual adjustments, distinct from the inventory ledger.
func (l *Logger) Audit(ctx context.Context, action string, resource string, resourceID string, userID string, details map[string]any) {
	attrs := []any{
		"auditAction", action,
		"resource", resource,
		"resourceId", resourceID,
		"userId", userID,
	}
	for k, v := range details {
		attrs = append(attrs, k, v)
	}

	l.WithContext(ctx).Info("Audit event", attrs...)
}

// DatabaseQuery logs one store operation, at debug on success and error on
// failure.
func (l *Logger) DatabaseQuery(ctx context.Context, collection, operation string, duration time.Duration, success bool, rowsAffected int64) {
	level := slog.LevelDebug
	if !success {
		level = slog.LevelError
	}

	l.WithContext(ctx).Log(ctx, level, "Database query",
		"collection", collection,
		"operation", operation,
		"durationMs", duration.Milliseconds(),
		"success", success,
		"rowsAffected", rowsAffected,
	)
}

// KafkaPublish logs one broker publish, at debug on success and error on
// failure.
func (l *Logger) KafkaPublish(ctx context.Context, topic, eventType string, success bool, duration time.Duration) {
	level := slog.LevelDebug
	if !success {
		level = slog.LevelError
	}

	l.WithContext(ctx).Log(ctx, level, "Kafka publish",
		"topic", topic,
		"eventType", eventType,
		"success", success,
		"durationMs", duration.Milliseconds(),
	)
}

// SetDefault installs this logger as the process-wide slog default, so
// library code logging through slog lands in the same JSON stream.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

type contextKey string

const (
	requestIDKey     contextKey = "requestId"
	correlationIDKey contextKey = "correlationId"
)

// ContextWithRequestID stores the request ID where WithContext will find it.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithCorrelationID stores the correlation ID where WithContext will
// find it.
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

func contextAttrs(ctx context.Context) []any {
	var attrs []any
	if v := ctx.Value(requestIDKey); v != nil {
		attrs = append(attrs, "requestId", v)
	}
	if v := ctx.Value(correlationIDKey); v != nil {
		attrs = append(attrs, "correlationId", v)
	}
	if span := trace.SpanContextFromContext(ctx); span.HasTraceID() {
		attrs = append(attrs, "traceId", span.TraceID().String())
	}
	return attrs
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
