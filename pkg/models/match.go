package models

import "time"

// MatchStatus is the lifecycle state of a match session.
type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusConnecting MatchStatus = "connecting"
	MatchStatusRunning    MatchStatus = "running"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCancelled  MatchStatus = "cancelled"
	MatchStatusError      MatchStatus = "error"
)

// Terminal reports whether the status admits no further transitions.
func (s MatchStatus) Terminal() bool {
	switch s {
	case MatchStatusCompleted, MatchStatusCancelled, MatchStatusError:
		return true
	}
	return false
}

// Termination reasons attached to terminal matches.
const (
	ReasonGameEnd            = "game_end"
	ReasonSurrender          = "surrender"
	ReasonOpponentDisconnect = "opponent_disconnect"
	ReasonGameTimeout        = "game_timeout"
	ReasonViolationForfeit   = "violation_forfeit"
	ReasonConnectTimeout     = "agent connect timeout"
	ReasonPreMatchCancel     = "agent cancelled pre-match"
	ReasonSimulatorFault     = "simulator_fault"
)

// RatingDelta is one side's rating movement from a completed match.
type RatingDelta struct {
	AgentID     string `json:"agent_id"`
	GlobalDelta int    `json:"global_delta"`
	ModeDelta   int    `json:"mode_delta"`
	NewRating   int    `json:"new_rating"`
	NewPeak     int    `json:"new_peak"`
}

// MatchRecord is the persisted summary of a finished match, emitted to the
// persistence collaborator at completion.
type MatchRecord struct {
	MatchID           string                 `json:"match_id"`
	Mode              Mode                   `json:"mode"`
	AgentA            string                 `json:"agent_a"`
	AgentB            string                 `json:"agent_b"`
	Factions          map[string]Faction     `json:"factions"`
	Map               string                 `json:"map"`
	WinnerID          string                 `json:"winner_id,omitempty"`
	Draw              bool                   `json:"draw,omitempty"`
	Duration          time.Duration          `json:"duration"`
	RatingDeltas      map[string]RatingDelta `json:"rating_deltas,omitempty"`
	TerminationReason string                 `json:"termination_reason"`
	StartedAt         time.Time              `json:"started_at"`
	EndedAt           time.Time              `json:"ended_at"`
}
