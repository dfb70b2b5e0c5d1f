// Package worker consumes Kestrel domain events from the EventBus and keeps
// running activity totals.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

// Worker tallies match and report events received from the bus.
type Worker struct {
	bus    domain.EventBus
	logger *slog.Logger

	mu            sync.RWMutex
	matches       int
	byType        map[domain.BusinessType]int
	byComplexity  map[string]int
	requirements  int
	reports       map[string]int
	lastEventAt   time.Time
	decodeErrors  int
	subscriptions []domain.Subscription

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorker creates a worker for bus.
func NewWorker(bus domain.EventBus, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:          bus,
		logger:       logger,
		byType:       make(map[domain.BusinessType]int),
		byComplexity: make(map[string]int),
		reports:      make(map[string]int),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start subscribes to the match and report topics.
func (w *Worker) Start() error {
	handlers := map[string]domain.MessageHandler{
		domain.TopicRequirementsMatched: w.handleMatch,
		domain.TopicReportGenerated:     w.handleReport,
	}

	for _, topic := range []string{domain.TopicRequirementsMatched, domain.TopicReportGenerated} {
		sub, err := w.bus.Subscribe(w.ctx, topic, handlers[topic])
		if err != nil {
			w.Stop()
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		w.mu.Lock()
		w.subscriptions = append(w.subscriptions, sub)
		w.mu.Unlock()
	}

	w.logger.Info("event worker started", "topics", 2)
	return nil
}

func (w *Worker) handleMatch(_ context.Context, msg *domain.Message) error {
	var event domain.MatchEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		w.countDecodeError(msg, err)
		return err
	}

	w.mu.Lock()
	w.matches++
	w.byType[event.BusinessType]++
	w.byComplexity[event.ComplexityLevel]++
	w.requirements += event.TotalRequirements
	w.touch(event.ProcessedAt)
	w.mu.Unlock()

	w.logger.Debug("match event received",
		"business_type", event.BusinessType,
		"complexity", event.ComplexityLevel,
		"total_requirements", event.TotalRequirements,
	)
	return nil
}

func (w *Worker) handleReport(_ context.Context, msg *domain.Message) error {
	var event domain.ReportEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		w.countDecodeError(msg, err)
		return err
	}

	w.mu.Lock()
	w.reports[event.Source]++
	w.touch(event.GeneratedAt)
	w.mu.Unlock()

	w.logger.Debug("report event received", "report_id", event.ReportID, "source", event.Source)
	return nil
}

// touch must be called with mu held.
func (w *Worker) touch(at time.Time) {
	if at.After(w.lastEventAt) {
		w.lastEventAt = at
	}
}

func (w *Worker) countDecodeError(msg *domain.Message, err error) {
	w.mu.Lock()
	w.decodeErrors++
	w.mu.Unlock()
	w.logger.Error("failed to decode event", "message_id", msg.ID, "topic", msg.Topic, "error", err)
}

// Stop unsubscribes from every topic.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	subs := w.subscriptions
	w.subscriptions = nil
	w.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			w.logger.Error("failed to unsubscribe", "topic", sub.Topic(), "error", err)
		}
	}

	w.logger.Info("event worker stopped")
	return nil
}

// Stats is a snapshot of the event totals.
type Stats struct {
	Matches             int            `json:"matches"`
	ByBusinessType      map[string]int `json:"byBusinessType"`
	ByComplexity        map[string]int `json:"byComplexity"`
	AverageRequirements float64        `json:"averageRequirements"`
	Reports             map[string]int `json:"reports"`
	DecodeErrors        int            `json:"decodeErrors"`
	LastEventAt         *time.Time     `json:"lastEventAt,omitempty"`
	Topics              []string       `json:"topics"`
}

// GetStats returns the current totals.
func (w *Worker) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := Stats{
		Matches:        w.matches,
		ByBusinessType: make(map[string]int, len(w.byType)),
		ByComplexity:   make(map[string]int, len(w.byComplexity)),
		Reports:        make(map[string]int, len(w.reports)),
		DecodeErrors:   w.decodeErrors,
		Topics:         make([]string, 0, len(w.subscriptions)),
	}
	for bt, n := range w.byType {
		stats.ByBusinessType[string(bt)] = n
	}
	for level, n := range w.byComplexity {
		stats.ByComplexity[level] = n
	}
	for source, n := range w.reports {
		stats.Reports[source] = n
	}
	if w.matches > 0 {
		stats.AverageRequirements = float64(w.requirements) / float64(w.matches)
	}
	if !w.lastEventAt.IsZero() {
		last := w.lastEventAt
		stats.LastEventAt = &last
	}
	for _, sub := range w.subscriptions {
		stats.Topics = append(stats.Topics, sub.Topic())
	}
	sort.Strings(stats.Topics)
	return stats
}
