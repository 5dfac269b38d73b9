package sim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jediswimmer/ironcurtain/pkg/models"
	"github.com/jediswimmer/ironcurtain/pkg/wire"
)

// fakeConn feeds canned inbound frames to Read and records Write calls.
// onWrite, when set, runs for each written frame so tests can inject the
// simulator's response.
type fakeConn struct {
	inbound chan []byte

	mu      sync.Mutex
	written [][]byte
	onWrite func(frame []byte)
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16)}
}

func (c *fakeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case data, ok := <-c.inbound:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.MessageText, data, nil
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (c *fakeConn) Write(_ context.Context, _ websocket.MessageType, p []byte) error {
	c.mu.Lock()
	c.written = append(c.written, p)
	hook := c.onWrite
	c.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	return nil
}

func (c *fakeConn) push(t *testing.T, typ wire.FrameType, payload any) {
	t.Helper()
	frame, err := wire.Encode(typ, payload)
	require.NoError(t, err)
	c.inbound <- frame
}

type fakeSession struct {
	mu          sync.Mutex
	snapshots   []*models.StateSnapshot
	winnerIDs   []string
	commentary  []string
	escalations []string
}

func (s *fakeSession) HandleSnapshot(snap *models.StateSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
}

func (s *fakeSession) HandleGameEnd(winnerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winnerIDs = append(s.winnerIDs, winnerID)
}

func (s *fakeSession) HandleCommentary(text string, _ int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commentary = append(s.commentary, text)
}

func (s *fakeSession) EscalateError(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalations = append(s.escalations, reason)
}

func (s *fakeSession) snapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

func TestForwardOrdersWaitsForAck(t *testing.T) {
	conn := newFakeConn()
	b := newBridge(conn)

	// Echo every forwarded seq straight back as an ack.
	conn.onWrite = func(frame []byte) {
		env, err := wire.DecodeEnvelope(frame)
		require.NoError(t, err)
		require.Equal(t, wire.FrameOrderForward, env.Type)
		var p wire.OrderForwardPayload
		require.NoError(t, env.DecodePayload(&p))
		conn.push(t, wire.FrameOrderAck, &wire.OrderAckPayload{Seq: p.Seq})
	}

	sess := &fakeSession{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx, "m-1", sess)

	fwd := []models.ForwardedOrder{{
		PlayerID: "a1",
		Order:    models.Order{Kind: models.OrderMove, UnitIDs: []int{1}},
	}}
	callCtx, callCancel := context.WithTimeout(context.Background(), time.Second)
	defer callCancel()
	require.NoError(t, b.ForwardOrders(callCtx, fwd))

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.written, 1)
	var env wire.Envelope
	require.NoError(t, json.Unmarshal(conn.written[0], &env))
	var p wire.OrderForwardPayload
	require.NoError(t, env.DecodePayload(&p))
	assert.Equal(t, int64(1), p.Seq)
	assert.Equal(t, "a1", p.Orders[0].PlayerID)
}

func TestForwardOrdersAckTimeout(t *testing.T) {
	conn := newFakeConn()
	b := newBridge(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := b.ForwardOrders(ctx, []models.ForwardedOrder{{PlayerID: "a1"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAckTimeout))

	b.mu.Lock()
	assert.Empty(t, b.pending, "timed-out seq must not leak")
	b.mu.Unlock()
}

func TestForwardOrdersSeqIncrements(t *testing.T) {
	conn := newFakeConn()
	b := newBridge(conn)
	conn.onWrite = func(frame []byte) {
		env, _ := wire.DecodeEnvelope(frame)
		var p wire.OrderForwardPayload
		_ = env.DecodePayload(&p)
		conn.push(t, wire.FrameOrderAck, &wire.OrderAckPayload{Seq: p.Seq})
	}

	sess := &fakeSession{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx, "m-1", sess)

	for i := 0; i < 3; i++ {
		require.NoError(t, b.ForwardOrders(context.Background(), nil))
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.written, 3)
	var env wire.Envelope
	require.NoError(t, json.Unmarshal(conn.written[2], &env))
	var p wire.OrderForwardPayload
	require.NoError(t, env.DecodePayload(&p))
	assert.Equal(t, int64(3), p.Seq)
}

func TestRunDispatchesFrames(t *testing.T) {
	conn := newFakeConn()
	b := newBridge(conn)
	sess := &fakeSession{}

	conn.push(t, wire.FrameStateSnapshot, &wire.StateSnapshotPayload{
		Snapshot: &models.StateSnapshot{Tick: 7},
	})
	conn.push(t, wire.FrameCommentary, &wire.CommentaryPayload{Text: "tanks rolling", Tick: 7})
	conn.push(t, wire.FrameGameEnd, &wire.GameEndPayload{WinnerID: "a1"})
	close(conn.inbound)

	b.Run(context.Background(), "m-1", sess)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	require.Len(t, sess.snapshots, 1)
	assert.Equal(t, int64(7), sess.snapshots[0].Tick)
	assert.Equal(t, []string{"tanks rolling"}, sess.commentary)
	assert.Equal(t, []string{"a1"}, sess.winnerIDs)
	// Run escalates on stream close; after a terminal game_end the session
	// treats that as a no-op.
	assert.Equal(t, []string{"simulator stream closed"}, sess.escalations)
}

func TestRunSkipsMalformedFrames(t *testing.T) {
	conn := newFakeConn()
	b := newBridge(conn)
	sess := &fakeSession{}

	conn.inbound <- []byte("not json")
	conn.inbound <- []byte(`{"payload":{}}`)
	conn.push(t, wire.FrameStateSnapshot, &wire.StateSnapshotPayload{})
	conn.push(t, wire.FrameStateSnapshot, &wire.StateSnapshotPayload{
		Snapshot: &models.StateSnapshot{Tick: 1},
	})
	close(conn.inbound)

	b.Run(context.Background(), "m-1", sess)

	assert.Equal(t, 1, sess.snapshotCount())
}

func TestAckForUnknownSeqIgnored(t *testing.T) {
	conn := newFakeConn()
	b := newBridge(conn)
	sess := &fakeSession{}

	conn.push(t, wire.FrameOrderAck, &wire.OrderAckPayload{Seq: 99})
	close(conn.inbound)

	b.Run(context.Background(), "m-1", sess)
	assert.Equal(t, 0, sess.snapshotCount())
}
