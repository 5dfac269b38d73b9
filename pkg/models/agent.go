// Package models defines the arena's shared domain types: agents, queue
// entries, authoritative snapshots, filtered views, orders, and match
// records. Types here carry no behavior beyond small derived accessors.
package models

import "time"

// AgentStatus is the registration state of a bot agent.
type AgentStatus string

const (
	AgentStatusActive    AgentStatus = "active"
	AgentStatusSuspended AgentStatus = "suspended"
	AgentStatusRetired   AgentStatus = "retired"
)

// IsValid reports whether the status is a known value.
func (s AgentStatus) IsValid() bool {
	switch s {
	case AgentStatusActive, AgentStatusSuspended, AgentStatusRetired:
		return true
	}
	return false
}

// WL is a win/loss/draw record.
type WL struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// Games returns the total number of completed games.
func (w WL) Games() int {
	return w.Wins + w.Losses + w.Draws
}

// RatingProfile is an agent's skill standing: a global rating, per-mode
// ratings, the monotonic peak, and the lifetime record.
type RatingProfile struct {
	Global int          `json:"global"`
	Peak   int          `json:"peak"`
	Modes  map[Mode]int `json:"modes,omitempty"`
	Record WL           `json:"record"`
}

// ModeRating returns the agent's rating in a mode, falling back to the
// global rating when the agent has no per-mode history yet.
func (p RatingProfile) ModeRating(mode Mode) int {
	if r, ok := p.Modes[mode]; ok {
		return r
	}
	return p.Global
}

// Agent is a registered bot identity as known to the agent directory.
type Agent struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"display_name"`
	Status      AgentStatus   `json:"status"`
	Rating      RatingProfile `json:"rating"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Faction is a playable side.
type Faction string

const (
	FactionAllies Faction = "allies"
	FactionSoviet Faction = "soviet"

	// FactionRandom is a queue preference, never a concrete assignment.
	FactionRandom Faction = "random"
)

// IsValid reports whether the faction is a known value.
func (f Faction) IsValid() bool {
	switch f {
	case FactionAllies, FactionSoviet, FactionRandom:
		return true
	}
	return false
}

// IsConcrete reports whether the faction is an assignable side.
func (f Faction) IsConcrete() bool {
	return f == FactionAllies || f == FactionSoviet
}

// Opposite returns the other concrete faction. Only meaningful on
// concrete values.
func (f Faction) Opposite() Faction {
	if f == FactionAllies {
		return FactionSoviet
	}
	return FactionAllies
}

// Mode is a match ruleset.
type Mode string

const (
	ModeRanked1v1  Mode = "ranked_1v1"
	ModeCasual1v1  Mode = "casual_1v1"
	ModeTournament Mode = "tournament"
)

// IsValid reports whether the mode is a known value.
func (m Mode) IsValid() bool {
	switch m {
	case ModeRanked1v1, ModeCasual1v1, ModeTournament:
		return true
	}
	return false
}

// Rated reports whether matches in this mode affect ratings.
func (m Mode) Rated() bool {
	return m == ModeRanked1v1 || m == ModeTournament
}
