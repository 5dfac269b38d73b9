// Package rating implements the Elo skill engine. The engine is pure: it
// holds no state beyond its configuration, and all persistence of the
// resulting deltas happens downstream.
package rating

import (
	"math"

	"github.com/jediswimmer/ironcurtain/pkg/config"
	"github.com/jediswimmer/ironcurtain/pkg/models"
)

// PlayerInput is one side's pre-match standing.
type PlayerInput struct {
	AgentID    string
	Rating     int
	ModeRating int
	PeakRating int
	Games      int
}

// Outcome is the rating engine input for a completed match.
type Outcome struct {
	Winner PlayerInput
	Loser  PlayerInput
	Mode   models.Mode
	Draw   bool // when true, Winner/Loser are positional only
}

// Result carries both sides' deltas and new monotonic-peak values.
type Result struct {
	Winner models.RatingDelta
	Loser  models.RatingDelta
}

// Engine computes Elo deltas under a bucketed K-factor schedule.
type Engine struct {
	cfg *config.RatingConfig
}

// NewEngine creates a rating engine.
func NewEngine(cfg *config.RatingConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Compute returns the global and per-mode deltas for a completed match.
// Never fails on well-formed inputs; the configured floor guards underflow.
func (e *Engine) Compute(o Outcome) Result {
	winScore, loseScore := 1.0, 0.0
	if o.Draw {
		winScore, loseScore = 0.5, 0.5
	}

	kWin := e.kFor(o.Winner)
	kLose := e.kFor(o.Loser)

	wGlobal := e.delta(o.Winner.Rating, o.Loser.Rating, winScore, kWin)
	lGlobal := e.delta(o.Loser.Rating, o.Winner.Rating, loseScore, kLose)
	wMode := e.delta(o.Winner.ModeRating, o.Loser.ModeRating, winScore, kWin)
	lMode := e.delta(o.Loser.ModeRating, o.Winner.ModeRating, loseScore, kLose)

	wNew := e.floored(o.Winner.Rating + wGlobal)
	lNew := e.floored(o.Loser.Rating + lGlobal)

	return Result{
		Winner: models.RatingDelta{
			AgentID:     o.Winner.AgentID,
			GlobalDelta: wNew - o.Winner.Rating,
			ModeDelta:   e.floored(o.Winner.ModeRating+wMode) - o.Winner.ModeRating,
			NewRating:   wNew,
			NewPeak:     maxInt(o.Winner.PeakRating, wNew),
		},
		Loser: models.RatingDelta{
			AgentID:     o.Loser.AgentID,
			GlobalDelta: lNew - o.Loser.Rating,
			ModeDelta:   e.floored(o.Loser.ModeRating+lMode) - o.Loser.ModeRating,
			NewRating:   lNew,
			NewPeak:     maxInt(o.Loser.PeakRating, lNew),
		},
	}
}

// ExpectedScore returns E_A = 1 / (1 + 10^((R_B - R_A)/400)).
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
}

// delta computes round(K * (S - E)) for one side.
func (e *Engine) delta(own, opp int, score float64, k int) int {
	return int(math.Round(float64(k) * (score - ExpectedScore(own, opp))))
}

// kFor picks the K-factor bucket: plateau rating dominates, then games played.
func (e *Engine) kFor(p PlayerInput) int {
	if p.Rating >= e.cfg.PlateauRating {
		return e.cfg.KPlateau
	}
	if p.Games < e.cfg.NewGamesThreshold {
		return e.cfg.KNew
	}
	return e.cfg.KEstablished
}

func (e *Engine) floored(r int) int {
	if r < e.cfg.Floor {
		return e.cfg.Floor
	}
	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
