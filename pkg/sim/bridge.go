// Package sim bridges a match session to its external game simulator over
// one WebSocket. Inbound frames (snapshots, commentary, game end) are
// dispatched to the session; admitted orders go the other way as
// request/response exchanges with a per-call ack deadline.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/jediswimmer/ironcurtain/pkg/models"
	"github.com/jediswimmer/ironcurtain/pkg/wire"
)

// ErrAckTimeout indicates the simulator did not acknowledge a forwarded
// batch within the call deadline.
var ErrAckTimeout = errors.New("simulator ack timeout")

// Session is the bridge's view of a match session.
type Session interface {
	HandleSnapshot(snap *models.StateSnapshot)
	HandleGameEnd(winnerID string)
	HandleCommentary(text string, tick int64)
	EscalateError(reason string)
}

// conn is the subset of *websocket.Conn the bridge uses.
type conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
}

// Bridge is one simulator connection. It implements session.Forwarder.
type Bridge struct {
	conn conn

	mu      sync.Mutex
	seq     int64
	pending map[int64]chan struct{}
}

// NewBridge wraps a simulator WebSocket connection.
func NewBridge(c *websocket.Conn) *Bridge {
	return newBridge(c)
}

func newBridge(c conn) *Bridge {
	return &Bridge{conn: c, pending: make(map[int64]chan struct{})}
}

// ForwardOrders relays an admitted batch and waits for the matching ack.
// The context deadline bounds the whole exchange; on expiry the caller
// escalates the session to error.
func (b *Bridge) ForwardOrders(ctx context.Context, fwd []models.ForwardedOrder) error {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	ack := make(chan struct{}, 1)
	b.pending[seq] = ack
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, seq)
		b.mu.Unlock()
	}()

	frame, err := wire.Encode(wire.FrameOrderForward, &wire.OrderForwardPayload{Seq: seq, Orders: fwd})
	if err != nil {
		return fmt.Errorf("encode order_forward: %w", err)
	}
	if err := b.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("write order_forward: %w", err)
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: seq %d", ErrAckTimeout, seq)
	}
}

// Run reads simulator frames and dispatches them to the session until the
// connection closes or the context ends. A mid-match stream loss escalates
// the session to error; after a terminal frame the escalation is a no-op.
func (b *Bridge) Run(ctx context.Context, matchID string, sess Session) {
	for {
		_, data, err := b.conn.Read(ctx)
		if err != nil {
			sess.EscalateError("simulator stream closed")
			return
		}

		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			slog.Warn("Malformed simulator frame", "match_id", matchID, "error", err)
			continue
		}
		b.dispatch(env, matchID, sess)
	}
}

func (b *Bridge) dispatch(env *wire.Envelope, matchID string, sess Session) {
	switch env.Type {
	case wire.FrameStateSnapshot:
		var p wire.StateSnapshotPayload
		if err := env.DecodePayload(&p); err != nil || p.Snapshot == nil {
			slog.Warn("Bad state_snapshot payload", "match_id", matchID, "error", err)
			return
		}
		sess.HandleSnapshot(p.Snapshot)

	case wire.FrameOrderAck:
		var p wire.OrderAckPayload
		if err := env.DecodePayload(&p); err != nil {
			return
		}
		b.mu.Lock()
		ack, ok := b.pending[p.Seq]
		b.mu.Unlock()
		if ok {
			select {
			case ack <- struct{}{}:
			default:
			}
		}

	case wire.FrameCommentary:
		var p wire.CommentaryPayload
		if err := env.DecodePayload(&p); err != nil {
			return
		}
		sess.HandleCommentary(p.Text, p.Tick)

	case wire.FrameGameEnd:
		var p wire.GameEndPayload
		if err := env.DecodePayload(&p); err != nil {
			return
		}
		sess.HandleGameEnd(p.WinnerID)

	default:
		slog.Warn("Unexpected simulator frame", "match_id", matchID, "type", env.Type)
	}
}
