package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jediswimmer/ironcurtain/pkg/metrics"
)

// Publisher delivers persistence events to the external match store.
type Publisher interface {
	PublishMatchEnded(ctx context.Context, payload MatchEndedPayload) error
	PublishMatchCancelled(ctx context.Context, payload MatchCancelledPayload) error
	PublishTick(ctx context.Context, payload TickEventPayload) error
	Close() error
}

// LogPublisher writes events to the structured log only. Used when no
// broker is configured; the arena stays fully functional without one.
type LogPublisher struct{}

// NewLogPublisher creates a log-only publisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) PublishMatchEnded(_ context.Context, payload MatchEndedPayload) error {
	slog.Info("Match ended",
		"match_id", payload.Record.MatchID,
		"mode", payload.Record.Mode,
		"winner", payload.Record.WinnerID,
		"draw", payload.Record.Draw,
		"reason", payload.Record.TerminationReason,
		"duration", payload.Record.Duration)
	return nil
}

func (p *LogPublisher) PublishMatchCancelled(_ context.Context, payload MatchCancelledPayload) error {
	slog.Info("Match cancelled",
		"match_id", payload.MatchID, "mode", payload.Mode, "reason", payload.Reason)
	return nil
}

func (p *LogPublisher) PublishTick(_ context.Context, payload TickEventPayload) error {
	slog.Debug("Tick event",
		"match_id", payload.MatchID, "tick", payload.Tick, "event_kind", payload.EventKind)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// kafkaWriter is the subset of kafka.Writer the publisher uses.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits events to Kafka: match lifecycle on one topic,
// per-tick events on another. Messages are keyed by match id so one
// match's events land on one partition in order.
type KafkaPublisher struct {
	matchWriter kafkaWriter
	tickWriter  kafkaWriter
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewKafkaPublisher creates a publisher against the given brokers.
// The metrics parameter may be nil.
func NewKafkaPublisher(brokers []string, matchTopic, tickTopic string, m *metrics.Metrics) *KafkaPublisher {
	return &KafkaPublisher{
		matchWriter: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        matchTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		tickWriter: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        tickTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		metrics: m,
		now:     time.Now,
	}
}

func (p *KafkaPublisher) PublishMatchEnded(ctx context.Context, payload MatchEndedPayload) error {
	return p.publish(ctx, p.matchWriter, EventTypeMatchEnded, payload.Record.MatchID, payload)
}

func (p *KafkaPublisher) PublishMatchCancelled(ctx context.Context, payload MatchCancelledPayload) error {
	return p.publish(ctx, p.matchWriter, EventTypeMatchCancelled, payload.MatchID, payload)
}

func (p *KafkaPublisher) PublishTick(ctx context.Context, payload TickEventPayload) error {
	return p.publish(ctx, p.tickWriter, EventTypeMatchTick, payload.MatchID, payload)
}

func (p *KafkaPublisher) publish(ctx context.Context, w kafkaWriter, kind, key string, payload any) error {
	value, err := json.Marshal(Envelope{Type: kind, EmittedAt: p.now(), Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", kind, err)
	}
	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(kind).Inc()
	}
	return nil
}

// Close flushes and closes both writers, returning the first error.
func (p *KafkaPublisher) Close() error {
	err := p.matchWriter.Close()
	if tickErr := p.tickWriter.Close(); err == nil {
		err = tickErr
	}
	return err
}
