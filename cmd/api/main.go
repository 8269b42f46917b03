package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/internal/api/handlers"
	"github.com/wms-platform/fulfillment-service/internal/application"
	mongoRepo "github.com/wms-platform/fulfillment-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/fulfillment-service/pkg/kafka"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
	"github.com/wms-platform/fulfillment-service/pkg/mongodb"
	"github.com/wms-platform/fulfillment-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/fulfillment-service/pkg/outbox/mongodb"
	"github.com/wms-platform/fulfillment-service/pkg/resilience"
	"github.com/wms-platform/fulfillment-service/pkg/tracing"
)

const serviceName = "fulfillment-service"

func main() {
	// Structured logger, also installed as the slog default
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fulfillment-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Trace pipeline. An export failure degrades to no tracing rather than
	// aborting startup.
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Prometheus registry and collectors
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// MongoDB can come up after the service does, so retry the initial
	// connect with backoff before giving up.
	mongoClient, err := resilience.RetryWithResult(ctx, resilience.DefaultRetryConfig(), func() (*mongodb.Client, error) {
		return mongodb.NewClient(ctx, config.MongoDB)
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)
	defer instrumentedMongo.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer with instrumentation and circuit breaker
	producer := kafka.NewProductionProducer(config.Kafka, m, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceFulfillment)

	// Repositories all share the one database handle
	db := instrumentedMongo.Database()
	orderRepo := mongoRepo.NewOrderRepository(db)
	inventoryRepo := mongoRepo.NewInventoryRepository(db)
	workerRepo := mongoRepo.NewWorkerRepository(db)
	exceptionRepo := mongoRepo.NewExceptionRepository(db)
	inventoryLogRepo := mongoRepo.NewInventoryTransactionRepository(db)
	stateChangeRepo := mongoRepo.NewOrderStateChangeRepository(db)
	outboxRepo := outboxMongo.NewOutboxRepository(db)
	if err := outboxRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to create outbox indexes, continuing without them")
	}

	// Outbox publisher drains staged events to Kafka
	outboxPublisher := outbox.NewPublisher(
		outboxRepo,
		producer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Application services share one dependency bundle
	deps := application.ServiceDependencies{
		Tx:           instrumentedMongo,
		Orders:       orderRepo,
		Inventory:    inventoryRepo,
		Workers:      workerRepo,
		Exceptions:   exceptionRepo,
		InventoryLog: inventoryLogRepo,
		StateChanges: stateChangeRepo,
		Outbox:       outboxRepo,
		EventFactory: eventFactory,
		Logger:       logger,
		Metrics:      m,
	}

	allocationService := application.NewOrderAllocationService(deps, config.MaxActiveOrders)
	executionService := application.NewOrderExecutionService(deps)
	exceptionService := application.NewExceptionService(deps)
	inventoryService := application.NewInventoryService(deps)
	workerService := application.NewWorkerService(deps)

	// HTTP surface: the shared middleware chain, then metrics and tracing
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(serviceName)))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Operational endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return instrumentedMongo.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		handlers.NewOrderHandler(allocationService, executionService, logger).RegisterRoutes(v1)
		handlers.NewExceptionHandler(exceptionService, logger).RegisterRoutes(v1)
		handlers.NewInventoryHandler(inventoryService, logger).RegisterRoutes(v1)
		handlers.NewWorkerHandler(workerService, logger).RegisterRoutes(v1)
	}

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Block until SIGINT or SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config gathers the environment-driven settings for the process
type Config struct {
	ServerAddr      string
	MaxActiveOrders int
	MongoDB         *mongodb.Config
	Kafka           *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8080"),
		MaxActiveOrders: getEnvInt("MAX_ACTIVE_ORDERS_PER_PICKER", application.DefaultMaxActiveOrders),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "wms_fulfillment"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
