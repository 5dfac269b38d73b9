package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jediswimmer/ironcurtain/pkg/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestPublisher() (*KafkaPublisher, *fakeWriter, *fakeWriter) {
	match := &fakeWriter{}
	tick := &fakeWriter{}
	p := &KafkaPublisher{
		matchWriter: match,
		tickWriter:  tick,
		now:         func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	return p, match, tick
}

func TestPublishMatchEndedKeyedByMatchID(t *testing.T) {
	p, match, tick := newTestPublisher()

	err := p.PublishMatchEnded(context.Background(), MatchEndedPayload{
		Record: models.MatchRecord{
			MatchID:           "m-42",
			Mode:              models.ModeRanked1v1,
			WinnerID:          "a1",
			TerminationReason: models.ReasonGameEnd,
		},
	})
	require.NoError(t, err)
	require.Len(t, match.messages, 1)
	assert.Empty(t, tick.messages)

	msg := match.messages[0]
	assert.Equal(t, "m-42", string(msg.Key))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, EventTypeMatchEnded, env.Type)
	assert.False(t, env.EmittedAt.IsZero())
}

func TestPublishTickUsesTickTopic(t *testing.T) {
	p, match, tick := newTestPublisher()

	err := p.PublishTick(context.Background(), TickEventPayload{
		MatchID: "m-42", Tick: 120, EventKind: "unit_lost", SubjectIDs: []int{77},
	})
	require.NoError(t, err)
	assert.Empty(t, match.messages)
	require.Len(t, tick.messages, 1)
	assert.Equal(t, "m-42", string(tick.messages[0].Key))
}

func TestPublishWrapsWriterError(t *testing.T) {
	p, match, _ := newTestPublisher()
	match.err = errors.New("broker unreachable")

	err := p.PublishMatchCancelled(context.Background(), MatchCancelledPayload{
		MatchID: "m-9", Mode: models.ModeCasual1v1, Reason: models.ReasonConnectTimeout,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match.cancelled")
}

func TestCloseClosesBothWriters(t *testing.T) {
	p, match, tick := newTestPublisher()
	require.NoError(t, p.Close())
	assert.True(t, match.closed)
	assert.True(t, tick.closed)
}

func TestLogPublisherNeverFails(t *testing.T) {
	p := NewLogPublisher()
	assert.NoError(t, p.PublishMatchEnded(context.Background(), MatchEndedPayload{}))
	assert.NoError(t, p.PublishMatchCancelled(context.Background(), MatchCancelledPayload{}))
	assert.NoError(t, p.PublishTick(context.Background(), TickEventPayload{}))
	assert.NoError(t, p.Close())
}
