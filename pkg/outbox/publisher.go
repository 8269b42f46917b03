package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wms-platform/fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
)

// EventPublisher is the transport side of the outbox. The circuit-breaker
// wrapped Kafka producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
}

// Publisher drains staged outbox rows into Kafka on a fixed poll interval.
// A row is marked published only after the broker accepts it, so a crash
// between publish and mark produces a duplicate, never a loss. Consumers
// dedupe on event ID.
type Publisher struct {
	repo      Repository
	producer  EventPublisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// published and failed are written only by the poll goroutine and read
	// after it exits, so they need no lock of their own.
	published int
	failed    int
}

// PublisherConfig holds configuration for the outbox publisher.
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultPublisherConfig returns the stock one-second, 100-row drain.
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval: 1 * time.Second,
		BatchSize:    100,
	}
}

// NewPublisher creates a publisher over the given repository and transport.
// A nil config falls back to DefaultPublisherConfig.
func NewPublisher(
	repo Repository,
	producer EventPublisher,
	logger *logging.Logger,
	metrics *metrics.Metrics,
	config *PublisherConfig,
) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}

	return &Publisher{
		repo:      repo,
		producer:  producer,
		logger:    logger,
		metrics:   metrics,
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the poll loop. Calling Start twice is an error.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("outbox publisher already started")
	}
	p.running = true

	p.logger.Info("Starting outbox publisher", "interval", p.interval, "batchSize", p.batchSize)
	go p.loop(ctx)
	return nil
}

// Stop halts the poll loop and waits for the in-flight batch to finish.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return fmt.Errorf("outbox publisher not started")
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh

	p.logger.Info("Outbox publisher stopped", "published", p.published, "failed", p.failed)
	return nil
}

func (p *Publisher) loop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.drain(ctx)
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// drain publishes one batch of unpublished rows. Failures are retried on a
// later poll; the repository stops returning rows that have exhausted their
// retry budget.
func (p *Publisher) drain(ctx context.Context) {
	events, err := p.repo.FindUnpublished(ctx, p.batchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to load unpublished outbox events")
		return
	}

	if p.metrics != nil {
		p.metrics.SetOutboxPending(len(events))
	}
	if len(events) == 0 {
		return
	}

	p.logger.Info("Draining outbox", "events", len(events))

	for _, event := range events {
		if err := p.publishOne(ctx, event); err != nil {
			p.failed++
			p.logger.WithError(err).Error("Outbox publish failed",
				"eventId", event.ID,
				"eventType", event.EventType,
				"aggregateId", event.AggregateID,
			)
			if p.metrics != nil {
				p.metrics.RecordOutboxPublish(event.EventType, false)
				p.metrics.RecordOutboxRetry(event.EventType)
			}
			if err := p.repo.IncrementRetry(ctx, event.ID, err.Error()); err != nil {
				p.logger.WithError(err).Error("Failed to record outbox retry", "eventId", event.ID)
			}
			continue
		}

		p.published++
		if p.metrics != nil {
			p.metrics.RecordOutboxPublish(event.EventType, true)
		}
		if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
			p.logger.WithError(err).Error("Failed to mark outbox event published", "eventId", event.ID)
		}
	}
}

func (p *Publisher) publishOne(ctx context.Context, event *OutboxEvent) error {
	cloudEvent, err := event.ToCloudEvent()
	if err != nil {
		return fmt.Errorf("rebuild CloudEvent from outbox row: %w", err)
	}

	if err := p.producer.PublishEvent(ctx, event.Topic, cloudEvent); err != nil {
		return err
	}

	p.logger.Info("Published outbox event",
		"eventId", event.ID,
		"eventType", event.EventType,
		"topic", event.Topic,
	)
	return nil
}
