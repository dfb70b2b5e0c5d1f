package bus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/opensource-regtech/kestrel/internal/domain"
	"github.com/opensource-regtech/kestrel/internal/metrics"
)

func waitFor(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestChannelBus(t *testing.T) {
	bus := NewChannelBus(100)
	defer bus.Close()

	ctx := context.Background()

	t.Run("PublishAndSubscribe", func(t *testing.T) {
		received := make(chan *domain.Message, 1)

		_, err := bus.Subscribe(ctx, "test.topic", func(ctx context.Context, msg *domain.Message) error {
			received <- msg
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}

		if err := bus.Publish(ctx, "test.topic", []byte("hello")); err != nil {
			t.Fatalf("publish failed: %v", err)
		}

		select {
		case msg := <-received:
			if string(msg.Payload) != "hello" {
				t.Errorf("expected payload 'hello', got '%s'", string(msg.Payload))
			}
			if msg.Topic != "test.topic" {
				t.Errorf("expected topic 'test.topic', got '%s'", msg.Topic)
			}
			if msg.ID == "" || msg.Timestamp == 0 {
				t.Error("expected message id and timestamp to be set")
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	})

	t.Run("TopicIsolation", func(t *testing.T) {
		var matched, other atomic.Int32
		done := make(chan struct{})

		bus.Subscribe(ctx, "isolation.a", func(ctx context.Context, msg *domain.Message) error {
			matched.Add(1)
			close(done)
			return nil
		})
		bus.Subscribe(ctx, "isolation.b", func(ctx context.Context, msg *domain.Message) error {
			other.Add(1)
			return nil
		})

		bus.Publish(ctx, "isolation.a", []byte("x"))
		waitFor(t, done)

		// Give a misrouted delivery a chance to show up.
		time.Sleep(20 * time.Millisecond)
		if matched.Load() != 1 {
			t.Errorf("expected 1 delivery on isolation.a, got %d", matched.Load())
		}
		if other.Load() != 0 {
			t.Errorf("expected no delivery on isolation.b, got %d", other.Load())
		}
	})

	t.Run("FanOut", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(3)
		for i := 0; i < 3; i++ {
			bus.Subscribe(ctx, "fanout", func(ctx context.Context, msg *domain.Message) error {
				wg.Done()
				return nil
			})
		}

		bus.Publish(ctx, "fanout", []byte("x"))

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		waitFor(t, done)
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		var count atomic.Int32
		sub, err := bus.Subscribe(ctx, "unsub.topic", func(ctx context.Context, msg *domain.Message) error {
			count.Add(1)
			return nil
		})
		if err != nil {
			t.Fatalf("subscribe failed: %v", err)
		}
		if sub.Topic() != "unsub.topic" {
			t.Errorf("expected topic 'unsub.topic', got '%s'", sub.Topic())
		}

		sub.Unsubscribe()
		bus.Publish(ctx, "unsub.topic", []byte("ignored"))
		time.Sleep(20 * time.Millisecond)

		if count.Load() != 0 {
			t.Errorf("expected no deliveries after unsubscribe, got %d", count.Load())
		}
	})

	t.Run("PublishWithoutSubscribers", func(t *testing.T) {
		if err := bus.Publish(ctx, "nobody.listens", []byte("x")); err != nil {
			t.Errorf("publish failed: %v", err)
		}
	})
}

func TestChannelBusDropsOnFullBuffer(t *testing.T) {
	bus := NewChannelBus(1)
	defer bus.Close()

	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	bus.Subscribe(ctx, "slow", func(ctx context.Context, msg *domain.Message) error {
		once.Do(func() { close(started) })
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	bus.Publish(ctx, "slow", []byte("1"))
	waitFor(t, started)

	// The handler is busy with "1": "2" fills the buffer, the rest drop.
	for _, p := range []string{"2", "3", "4"} {
		if err := bus.Publish(ctx, "slow", []byte(p)); err != nil {
			t.Fatalf("publish must not fail on a full buffer: %v", err)
		}
	}

	if got := bus.Dropped(); got != 2 {
		t.Errorf("expected 2 dropped deliveries, got %d", got)
	}
	close(release)
}

func TestChannelBusClose(t *testing.T) {
	bus := NewChannelBus(100)
	ctx := context.Background()

	bus.Subscribe(ctx, "test", func(ctx context.Context, msg *domain.Message) error {
		return nil
	})

	if err := bus.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if err := bus.Publish(ctx, "test", []byte("data")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
	if _, err := bus.Subscribe(ctx, "test", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on subscribe after close, got %v", err)
	}
	if err := bus.Ping(ctx); err == nil {
		t.Error("expected ping error after close")
	}

	// Double close is safe.
	if err := bus.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func TestNewBus(t *testing.T) {
	t.Run("None", func(t *testing.T) {
		for _, typ := range []string{"", "none"} {
			bus, err := New(domain.EventBusConfig{Type: typ})
			if err != nil {
				t.Fatalf("failed to create bus: %v", err)
			}
			if _, ok := bus.(NoopBus); !ok {
				t.Errorf("expected NoopBus for %q, got %T", typ, bus)
			}
			if err := bus.Publish(context.Background(), "any", nil); err != nil {
				t.Errorf("noop publish failed: %v", err)
			}
		}
	})

	t.Run("Channel", func(t *testing.T) {
		bus, err := New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 10})
		if err != nil {
			t.Fatalf("failed to create channel bus: %v", err)
		}
		defer bus.Close()

		if _, ok := bus.(*ChannelBus); !ok {
			t.Errorf("expected *ChannelBus, got %T", bus)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		if _, err := New(domain.EventBusConfig{Type: "kafka"}); err == nil {
			t.Error("expected error for unsupported bus type")
		}
	})
}

func TestNATSDefaults(t *testing.T) {
	cfg := natsDefaults(domain.EventBusConfig{Type: "nats"})
	if cfg.NATSUrl != "nats://127.0.0.1:4222" {
		t.Errorf("unexpected default url %q", cfg.NATSUrl)
	}
	if cfg.NATSMaxReconnects != 10 || cfg.NATSReconnectWait != 5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}

	opts := natsOptions(domain.EventBusConfig{NATSToken: "secret", NATSMaxReconnects: 1, NATSReconnectWait: 1})
	withoutToken := natsOptions(domain.EventBusConfig{NATSMaxReconnects: 1, NATSReconnectWait: 1})
	if len(opts) != len(withoutToken)+1 {
		t.Error("expected token option to be appended")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	data, err := encodeEnvelope(domain.TopicRequirementsMatched, []byte(`{"totalRequirements":5}`))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	msg, err := decodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg.Topic != domain.TopicRequirementsMatched {
		t.Errorf("unexpected topic %q", msg.Topic)
	}
	if string(msg.Payload) != `{"totalRequirements":5}` {
		t.Errorf("unexpected payload %s", msg.Payload)
	}

	if _, err := decodeEnvelope([]byte("not json")); err == nil {
		t.Error("expected decode error")
	}
}

type recordingBus struct {
	NoopBus
	mu     sync.Mutex
	topics []string
	bodies [][]byte
	err    error
}

func (b *recordingBus) Publish(_ context.Context, topic string, payload []byte) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	b.bodies = append(b.bodies, payload)
	return nil
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()
	processed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	result := &domain.MatchResult{
		BusinessProfile: domain.BusinessProfile{BusinessType: domain.BusinessCafe},
		Summary: domain.Summary{
			TotalRequirements:     5,
			MandatoryRequirements: 4,
			ComplexityLevel:       domain.ComplexityLow,
		},
		ProcessedAt: processed,
	}

	t.Run("PublishMatch", func(t *testing.T) {
		rec := &recordingBus{}
		pub := NewPublisher(rec, nil)

		before := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.TopicRequirementsMatched, "ok"))
		if !pub.PublishMatch(ctx, result) {
			t.Fatal("expected publish to succeed")
		}
		after := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.TopicRequirementsMatched, "ok"))
		if after-before != 1 {
			t.Errorf("expected ok counter to grow by 1, got %v", after-before)
		}

		if len(rec.topics) != 1 || rec.topics[0] != domain.TopicRequirementsMatched {
			t.Fatalf("unexpected topics %v", rec.topics)
		}

		var event domain.MatchEvent
		if err := json.Unmarshal(rec.bodies[0], &event); err != nil {
			t.Fatalf("payload is not a MatchEvent: %v", err)
		}
		if event.BusinessType != domain.BusinessCafe || event.TotalRequirements != 5 ||
			event.MandatoryRequirements != 4 || event.ComplexityLevel != domain.ComplexityLow ||
			!event.ProcessedAt.Equal(processed) {
			t.Errorf("unexpected event %+v", event)
		}

		// Only aggregate figures leave the process.
		var raw map[string]any
		json.Unmarshal(rec.bodies[0], &raw)
		if _, ok := raw["businessProfile"]; ok {
			t.Error("match event must not carry the profile")
		}
	})

	t.Run("PublishReport", func(t *testing.T) {
		rec := &recordingBus{}
		pub := NewPublisher(rec, nil)

		ok := pub.PublishReport(ctx, &domain.Report{ID: "r-1", Source: domain.ReportSourceFallback, GeneratedAt: processed})
		if !ok {
			t.Fatal("expected publish to succeed")
		}
		var event domain.ReportEvent
		json.Unmarshal(rec.bodies[0], &event)
		if event.ReportID != "r-1" || event.Source != domain.ReportSourceFallback {
			t.Errorf("unexpected event %+v", event)
		}
	})

	t.Run("FailureIsSwallowed", func(t *testing.T) {
		pub := NewPublisher(&recordingBus{err: errors.New("broker down")}, nil)

		before := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.TopicRequirementsMatched, "error"))
		if pub.PublishMatch(ctx, result) {
			t.Error("expected publish to report failure")
		}
		after := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.TopicRequirementsMatched, "error"))
		if after-before != 1 {
			t.Errorf("expected error counter to grow by 1, got %v", after-before)
		}
	})

	t.Run("NilInputs", func(t *testing.T) {
		pub := NewPublisher(nil, nil)
		if pub.PublishMatch(ctx, nil) || pub.PublishReport(ctx, nil) {
			t.Error("nil events must not be published")
		}
		if !pub.PublishEvent(ctx, "any", map[string]int{"a": 1}) {
			t.Error("nil bus should behave like a noop bus")
		}
	})

	t.Run("EncodeError", func(t *testing.T) {
		pub := NewPublisher(&recordingBus{}, nil)
		if pub.PublishEvent(ctx, "bad", make(chan int)) {
			t.Error("expected unencodable event to fail")
		}
	})
}

func TestChannelBusHighLoad(t *testing.T) {
	bus := NewChannelBus(10000)
	defer bus.Close()

	ctx := context.Background()
	var received atomic.Int64
	numMessages := 1000

	var wg sync.WaitGroup
	wg.Add(numMessages)

	bus.Subscribe(ctx, "load.test", func(ctx context.Context, msg *domain.Message) error {
		received.Add(1)
		wg.Done()
		return nil
	})

	start := time.Now()
	for i := 0; i < numMessages; i++ {
		bus.Publish(ctx, "load.test", []byte("message"))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Logf("processed %d messages in %v", numMessages, time.Since(start))
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout: only received %d/%d messages", received.Load(), numMessages)
	}
}
