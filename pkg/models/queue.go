package models

import "time"

// QueueEntry is one agent waiting in a mode queue.
type QueueEntry struct {
	AgentID       string    `json:"agent_id"`
	DisplayName   string    `json:"display_name"`
	Rating        int       `json:"rating"`
	Mode          Mode      `json:"mode"`
	FactionPref   Faction   `json:"faction_pref"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
	InitialRadius int       `json:"initial_radius"`
}

// RadiusAt returns the entry's rating window half-width after waiting:
// the initial radius widened by widenStep for every full widenPer
// elapsed, capped at maxRadius.
func (e *QueueEntry) RadiusAt(now time.Time, widenPer time.Duration, widenStep, maxRadius int) int {
	radius := e.InitialRadius
	if widenPer > 0 {
		steps := int(now.Sub(e.EnqueuedAt) / widenPer)
		if steps > 0 {
			radius += steps * widenStep
		}
	}
	if maxRadius > 0 && radius > maxRadius {
		radius = maxRadius
	}
	return radius
}

// Pairing is the matchmaker's output: two entries with resolved factions,
// a chosen map, and the mode they met in.
type Pairing struct {
	A        *QueueEntry `json:"a"`
	B        *QueueEntry `json:"b"`
	FactionA Faction     `json:"faction_a"`
	FactionB Faction     `json:"faction_b"`
	Map      string      `json:"map"`
	Mode     Mode        `json:"mode"`
	PairedAt time.Time   `json:"paired_at"`
}

// QueueStatus answers an agent's queue query.
type QueueStatus struct {
	Position      int           `json:"position"`
	WaitedFor     time.Duration `json:"waited_for"`
	EstimatedWait time.Duration `json:"estimated_wait"`
	CurrentRadius int           `json:"current_radius"`
}
