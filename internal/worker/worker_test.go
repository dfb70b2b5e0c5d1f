package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opensource-regtech/kestrel/internal/bus"
	"github.com/opensource-regtech/kestrel/internal/domain"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	worker := NewWorker(eventBus, nil)
	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer worker.Stop()

	publisher := bus.NewPublisher(eventBus, nil)
	ctx := context.Background()
	processed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("TalliesMatches", func(t *testing.T) {
		publisher.PublishMatch(ctx, &domain.MatchResult{
			BusinessProfile: domain.BusinessProfile{BusinessType: domain.BusinessCafe},
			Summary:         domain.Summary{TotalRequirements: 5, MandatoryRequirements: 4, ComplexityLevel: "Medium"},
			ProcessedAt:     processed,
		})
		publisher.PublishMatch(ctx, &domain.MatchResult{
			BusinessProfile: domain.BusinessProfile{BusinessType: domain.BusinessRestaurant},
			Summary:         domain.Summary{TotalRequirements: 11, MandatoryRequirements: 9, ComplexityLevel: "High"},
			ProcessedAt:     processed.Add(time.Minute),
		})

		waitFor(t, func() bool { return worker.GetStats().Matches == 2 })

		stats := worker.GetStats()
		if stats.ByBusinessType["cafe"] != 1 || stats.ByBusinessType["restaurant"] != 1 {
			t.Errorf("unexpected business type totals %v", stats.ByBusinessType)
		}
		if stats.ByComplexity["Medium"] != 1 || stats.ByComplexity["High"] != 1 {
			t.Errorf("unexpected complexity totals %v", stats.ByComplexity)
		}
		if stats.AverageRequirements != 8 {
			t.Errorf("expected average 8, got %v", stats.AverageRequirements)
		}
		if stats.LastEventAt == nil || !stats.LastEventAt.Equal(processed.Add(time.Minute)) {
			t.Errorf("unexpected last event time %v", stats.LastEventAt)
		}
	})

	t.Run("TalliesReports", func(t *testing.T) {
		publisher.PublishReport(ctx, &domain.Report{ID: "r-1", Source: domain.ReportSourceFallback, GeneratedAt: processed})

		waitFor(t, func() bool { return worker.GetStats().Reports[domain.ReportSourceFallback] == 1 })
	})

	t.Run("CountsUndecodableEvents", func(t *testing.T) {
		if err := eventBus.Publish(ctx, domain.TopicRequirementsMatched, []byte("not json")); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		waitFor(t, func() bool { return worker.GetStats().DecodeErrors == 1 })
		if got := worker.GetStats().Matches; got != 2 {
			t.Errorf("expected matches to stay at 2, got %d", got)
		}
	})

	t.Run("Topics", func(t *testing.T) {
		topics := worker.GetStats().Topics
		if len(topics) != 2 || topics[0] != domain.TopicReportGenerated || topics[1] != domain.TopicRequirementsMatched {
			t.Errorf("unexpected topics %v", topics)
		}
	})
}

func TestWorkerStop(t *testing.T) {
	eventBus := bus.NewChannelBus(10)
	defer eventBus.Close()

	worker := NewWorker(eventBus, nil)
	if err := worker.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := worker.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	stats := worker.GetStats()
	if len(stats.Topics) != 0 {
		t.Errorf("expected no topics after stop, got %v", stats.Topics)
	}
	if stats.LastEventAt != nil {
		t.Error("expected no last event time on an idle worker")
	}
}

type failingBus struct{ bus.NoopBus }

func (failingBus) Subscribe(context.Context, string, domain.MessageHandler) (domain.Subscription, error) {
	return nil, errors.New("subscribe refused")
}

func TestWorkerStartError(t *testing.T) {
	worker := NewWorker(failingBus{}, nil)
	if err := worker.Start(); err == nil {
		t.Fatal("expected Start to fail when the bus refuses subscriptions")
	}
}
