// Package events publishes persistence events to the external match store.
// The arena owns no database; completed matches and optional per-tick
// events are emitted as JSON messages for a downstream collaborator to
// consume. Each publisher method accepts a specific typed payload struct.
package events

import (
	"time"

	"github.com/jediswimmer/ironcurtain/pkg/models"
)

// Event kinds carried in the message envelope.
const (
	EventTypeMatchEnded     = "match.ended"
	EventTypeMatchCancelled = "match.cancelled"
	EventTypeMatchTick      = "match.tick"
)

// Envelope wraps every published payload with its kind and emission time.
type Envelope struct {
	Type      string    `json:"type"`
	EmittedAt time.Time `json:"emitted_at"`
	Payload   any       `json:"payload"`
}

// MatchEndedPayload is the one-per-match completion record.
type MatchEndedPayload struct {
	Record models.MatchRecord `json:"record"`
}

// MatchCancelledPayload records a match that terminated without running.
type MatchCancelledPayload struct {
	MatchID     string      `json:"match_id"`
	Mode        models.Mode `json:"mode"`
	Reason      string      `json:"reason"`
	CancelledAt time.Time   `json:"cancelled_at"`
}

// TickEventPayload is an optional per-tick notable event (combat, loss,
// production) for replay enrichment.
type TickEventPayload struct {
	MatchID    string `json:"match_id"`
	Tick       int64  `json:"tick"`
	EventKind  string `json:"event_kind"`
	SubjectIDs []int  `json:"subject_ids,omitempty"`
	Payload    any    `json:"payload,omitempty"`
}
