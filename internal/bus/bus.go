// Package bus publishes Kestrel domain events over an in-process channel
// bus or NATS.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/opensource-regtech/kestrel/internal/domain"
	"github.com/opensource-regtech/kestrel/internal/metrics"
)

// New creates an event bus based on configuration. Type "none" (or empty)
// yields a bus that accepts and discards every message.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "", "none":
		return NoopBus{}, nil

	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}

// NoopBus discards everything published to it.
type NoopBus struct{}

func (NoopBus) Publish(context.Context, string, []byte) error { return nil }

func (NoopBus) Subscribe(_ context.Context, topic string, _ domain.MessageHandler) (domain.Subscription, error) {
	return noopSubscription(topic), nil
}

func (NoopBus) Ping(context.Context) error { return nil }
func (NoopBus) Close() error               { return nil }

type noopSubscription string

func (noopSubscription) Unsubscribe() error { return nil }
func (s noopSubscription) Topic() string    { return string(s) }

// Publisher encodes events as JSON and publishes them. Failures are logged
// and counted, never returned: event delivery is best effort.
type Publisher struct {
	bus    domain.EventBus
	logger *slog.Logger
}

// NewPublisher wraps bus. A nil bus behaves like NoopBus.
func NewPublisher(bus domain.EventBus, logger *slog.Logger) *Publisher {
	if bus == nil {
		bus = NoopBus{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{bus: bus, logger: logger}
}

// PublishEvent marshals event and publishes it on topic. It reports
// whether the bus accepted the message.
func (p *Publisher) PublishEvent(ctx context.Context, topic string, event any) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode event", "topic", topic, "error", err)
		metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
		return false
	}

	if err := p.bus.Publish(ctx, topic, payload); err != nil {
		p.logger.Warn("failed to publish event", "topic", topic, "error", err)
		metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
		return false
	}

	metrics.EventsPublished.WithLabelValues(topic, "ok").Inc()
	return true
}

// PublishMatch publishes the aggregate figures of a successful match.
func (p *Publisher) PublishMatch(ctx context.Context, result *domain.MatchResult) bool {
	if result == nil {
		return false
	}
	return p.PublishEvent(ctx, domain.TopicRequirementsMatched, domain.MatchEvent{
		BusinessType:          result.BusinessProfile.BusinessType,
		TotalRequirements:     result.Summary.TotalRequirements,
		MandatoryRequirements: result.Summary.MandatoryRequirements,
		ComplexityLevel:       result.Summary.ComplexityLevel,
		ProcessedAt:           result.ProcessedAt,
	})
}

// PublishReport announces a built report.
func (p *Publisher) PublishReport(ctx context.Context, report *domain.Report) bool {
	if report == nil {
		return false
	}
	return p.PublishEvent(ctx, domain.TopicReportGenerated, domain.ReportEvent{
		ReportID:    report.ID,
		Source:      report.Source,
		GeneratedAt: report.GeneratedAt,
	})
}
