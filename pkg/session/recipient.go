// Package session owns the per-match state machine: agent identification,
// tick fan-out through the fog enforcer, serialized order intake, chat,
// termination, and rating hand-off. One MatchSession exists per pairing;
// the Manager consumes matchmaker pairings and tracks live sessions.
package session

import (
	"sync"
)

// RecipientKind distinguishes fan-out policies on queue overflow.
type RecipientKind string

const (
	// RecipientAgent queues are never trimmed: overflow evicts the agent,
	// which forfeits a running match.
	RecipientAgent RecipientKind = "agent"

	// RecipientSpectator queues drop their oldest pending frame on overflow,
	// so a slow spectator misses ticks but keeps monotonic order.
	RecipientSpectator RecipientKind = "spectator"
)

// Recipient is one bounded outbound frame queue. The session enqueues;
// the connection's writer goroutine drains Frames and writes to the socket.
type Recipient struct {
	ID   string
	Kind RecipientKind

	mu     sync.Mutex
	queue  chan []byte
	closed bool
}

func newRecipient(id string, kind RecipientKind, size int) *Recipient {
	return &Recipient{
		ID:    id,
		Kind:  kind,
		queue: make(chan []byte, size),
	}
}

// Frames is the outbound channel. It is closed when the recipient is
// evicted or the session terminates; the writer must treat a closed
// channel as end-of-stream.
func (r *Recipient) Frames() <-chan []byte {
	return r.queue
}

// offer enqueues a frame without blocking. For agents a full queue refuses
// the frame and the caller evicts the recipient. For spectators the oldest
// pending frame is dropped to make room.
func (r *Recipient) offer(frame []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}

	select {
	case r.queue <- frame:
		return true
	default:
	}

	if r.Kind == RecipientSpectator {
		select {
		case <-r.queue:
		default:
		}
		select {
		case r.queue <- frame:
			return true
		default:
		}
	}
	return false
}

// close ends the stream. Pending frames stay queued for the writer to
// flush. Idempotent.
func (r *Recipient) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.queue)
}
