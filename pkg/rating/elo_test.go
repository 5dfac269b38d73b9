package rating

import (
	"testing"

	"github.com/jediswimmer/ironcurtain/pkg/config"
	"github.com/jediswimmer/ironcurtain/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(config.DefaultRatingConfig())
}

func TestExpectedScore(t *testing.T) {
	// Equal ratings → 0.5
	assert.InDelta(t, 0.5, ExpectedScore(1500, 1500), 1e-9)

	// 200-point favorite ≈ 0.7597
	assert.InDelta(t, 0.7597, ExpectedScore(1600, 1400), 1e-4)

	// Symmetry: E_A + E_B == 1
	assert.InDelta(t, 1.0, ExpectedScore(1600, 1400)+ExpectedScore(1400, 1600), 1e-9)
}

func TestComputeFavoriteWins(t *testing.T) {
	e := newTestEngine()

	res := e.Compute(Outcome{
		Winner: PlayerInput{AgentID: "w", Rating: 1600, ModeRating: 1600, PeakRating: 1600, Games: 100},
		Loser:  PlayerInput{AgentID: "l", Rating: 1400, ModeRating: 1400, PeakRating: 1450, Games: 100},
		Mode:   models.ModeRanked1v1,
	})

	// K=20 for both: round(20*(1-0.7597)) = 5
	assert.Equal(t, 5, res.Winner.GlobalDelta)
	assert.Equal(t, -5, res.Loser.GlobalDelta)
	assert.Equal(t, 1605, res.Winner.NewRating)
	assert.Equal(t, 1395, res.Loser.NewRating)
}

func TestComputeZeroSumSymmetricK(t *testing.T) {
	e := newTestEngine()

	cases := []struct {
		name           string
		winner, loser  int
	}{
		{"equal", 1500, 1500},
		{"favorite wins", 1800, 1500},
		{"upset", 1200, 1700},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Compute(Outcome{
				Winner: PlayerInput{AgentID: "w", Rating: tc.winner, ModeRating: tc.winner, Games: 50},
				Loser:  PlayerInput{AgentID: "l", Rating: tc.loser, ModeRating: tc.loser, Games: 50},
				Mode:   models.ModeRanked1v1,
			})
			assert.Zero(t, res.Winner.GlobalDelta+res.Loser.GlobalDelta,
				"deltas must sum to zero under symmetric K")
		})
	}
}

func TestComputeKBuckets(t *testing.T) {
	e := newTestEngine()

	// New player (<30 games) gets K=40: equal ratings, win → +20.
	res := e.Compute(Outcome{
		Winner: PlayerInput{AgentID: "new", Rating: 1200, ModeRating: 1200, Games: 3},
		Loser:  PlayerInput{AgentID: "old", Rating: 1200, ModeRating: 1200, Games: 500},
		Mode:   models.ModeRanked1v1,
	})
	assert.Equal(t, 20, res.Winner.GlobalDelta) // K=40 * 0.5
	assert.Equal(t, -10, res.Loser.GlobalDelta) // K=20 * 0.5

	// Plateau player gets K=10 even with few games.
	res = e.Compute(Outcome{
		Winner: PlayerInput{AgentID: "gm", Rating: 2500, ModeRating: 2500, Games: 5},
		Loser:  PlayerInput{AgentID: "x", Rating: 2500, ModeRating: 2500, Games: 500},
		Mode:   models.ModeRanked1v1,
	})
	assert.Equal(t, 5, res.Winner.GlobalDelta) // K=10 * 0.5
}

func TestComputeDraw(t *testing.T) {
	e := newTestEngine()

	// Equal pre-ratings, symmetric K: equal-magnitude opposite deltas (both zero).
	res := e.Compute(Outcome{
		Winner: PlayerInput{AgentID: "a", Rating: 1500, ModeRating: 1500, Games: 50},
		Loser:  PlayerInput{AgentID: "b", Rating: 1500, ModeRating: 1500, Games: 50},
		Mode:   models.ModeRanked1v1,
		Draw:   true,
	})
	assert.Zero(t, res.Winner.GlobalDelta)
	assert.Zero(t, res.Loser.GlobalDelta)

	// Unequal ratings: the lower-rated side gains on a draw.
	res = e.Compute(Outcome{
		Winner: PlayerInput{AgentID: "high", Rating: 1700, ModeRating: 1700, Games: 50},
		Loser:  PlayerInput{AgentID: "low", Rating: 1300, ModeRating: 1300, Games: 50},
		Mode:   models.ModeRanked1v1,
		Draw:   true,
	})
	assert.Negative(t, res.Winner.GlobalDelta)
	assert.Positive(t, res.Loser.GlobalDelta)
}

func TestComputePeakMonotonic(t *testing.T) {
	e := newTestEngine()

	// Winner's peak tracks the new maximum.
	res := e.Compute(Outcome{
		Winner: PlayerInput{AgentID: "w", Rating: 1600, ModeRating: 1600, PeakRating: 1600, Games: 50},
		Loser:  PlayerInput{AgentID: "l", Rating: 1600, ModeRating: 1600, PeakRating: 1900, Games: 50},
		Mode:   models.ModeRanked1v1,
	})
	assert.Equal(t, res.Winner.NewRating, res.Winner.NewPeak)

	// Loser's peak never decreases.
	assert.Equal(t, 1900, res.Loser.NewPeak)
	assert.Less(t, res.Loser.NewRating, res.Loser.NewPeak)
}

func TestComputeFloor(t *testing.T) {
	e := newTestEngine()

	res := e.Compute(Outcome{
		Winner: PlayerInput{AgentID: "w", Rating: 2000, ModeRating: 2000, Games: 50},
		Loser:  PlayerInput{AgentID: "l", Rating: 105, ModeRating: 105, Games: 5},
		Mode:   models.ModeRanked1v1,
	})
	require.GreaterOrEqual(t, res.Loser.NewRating, 100, "floor must hold")
}

func TestComputeModeDeltaUsesModeRatings(t *testing.T) {
	e := newTestEngine()

	// Global ratings equal, mode ratings skewed: the mode delta must follow
	// the mode pre-ratings, not the global ones.
	res := e.Compute(Outcome{
		Winner: PlayerInput{AgentID: "w", Rating: 1500, ModeRating: 1800, Games: 50},
		Loser:  PlayerInput{AgentID: "l", Rating: 1500, ModeRating: 1200, Games: 50},
		Mode:   models.ModeTournament,
	})
	assert.Equal(t, 10, res.Winner.GlobalDelta) // even match, K=20
	assert.Less(t, res.Winner.ModeDelta, res.Winner.GlobalDelta,
		"heavy mode favorite gains less on the mode ladder")
}
