package orders

import (
	"sync"
	"time"
)

// defaultAuditCap bounds the suspicious-event log; overflow drops the oldest.
const defaultAuditCap = 10000

// SuspiciousEvent is a recorded high-severity violation, consumed by
// higher-level anomaly detection.
type SuspiciousEvent struct {
	MatchID    string        `json:"match_id"`
	AgentID    string        `json:"agent_id"`
	Code       ViolationCode `json:"code"`
	Message    string        `json:"message"`
	ObservedAt time.Time     `json:"observed_at"`
}

// AuditLog is a bounded, drop-oldest log of high-severity violations.
type AuditLog struct {
	mu     sync.Mutex
	events []SuspiciousEvent
	cap    int
}

// NewAuditLog creates an audit log with the default capacity.
func NewAuditLog() *AuditLog {
	return &AuditLog{cap: defaultAuditCap}
}

// NewAuditLogWithCap creates an audit log with a custom capacity.
func NewAuditLogWithCap(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = defaultAuditCap
	}
	return &AuditLog{cap: capacity}
}

// Record appends an event, dropping the oldest entry on overflow.
func (l *AuditLog) Record(ev SuspiciousEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) >= l.cap {
		copy(l.events, l.events[1:])
		l.events = l.events[:len(l.events)-1]
	}
	l.events = append(l.events, ev)
}

// Len returns the number of stored events.
func (l *AuditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// ForMatch returns a copy of all events recorded for a match, oldest first.
func (l *AuditLog) ForMatch(matchID string) []SuspiciousEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SuspiciousEvent, 0, 8)
	for _, ev := range l.events {
		if ev.MatchID == matchID {
			out = append(out, ev)
		}
	}
	return out
}
