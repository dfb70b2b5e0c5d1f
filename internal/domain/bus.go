package domain

import (
	"context"
	"time"
)

// EventBus publishes domain events to interested consumers.
// Supports Go channels (in-process) or NATS.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "none", "channel" or "nats"
	Type string `mapstructure:"type"`

	// Channel settings
	ChannelBufferSize int `mapstructure:"channel_buffer_size"`

	// NATS settings
	NATSUrl           string `mapstructure:"nats_url"`
	NATSToken         string `mapstructure:"nats_token"`
	NATSMaxReconnects int    `mapstructure:"nats_max_reconnects"`
	NATSReconnectWait int    `mapstructure:"nats_reconnect_wait"` // seconds
}

// Topic names.
const (
	TopicRequirementsMatched = "kestrel.requirements.matched"
	TopicReportGenerated     = "kestrel.report.generated"
)

// MatchEvent is the payload published after a successful match. It carries
// aggregate figures only, never the submitted profile.
type MatchEvent struct {
	BusinessType          BusinessType `json:"businessType"`
	TotalRequirements     int          `json:"totalRequirements"`
	MandatoryRequirements int          `json:"mandatoryRequirements"`
	ComplexityLevel       string       `json:"complexityLevel"`
	ProcessedAt           time.Time    `json:"processedAt"`
}

// ReportEvent is the payload published after a report is built.
type ReportEvent struct {
	ReportID    string    `json:"reportId"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generatedAt"`
}
