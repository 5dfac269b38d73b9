package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jediswimmer/ironcurtain/pkg/config"
	"github.com/jediswimmer/ironcurtain/pkg/models"
)

func staticAgents() []config.StaticAgent {
	return []config.StaticAgent{
		{ID: "a1", DisplayName: "RushBot", APIKey: "key-a1", Rating: 1600},
		{ID: "a2", DisplayName: "TurtleBot", APIKey: "key-a2"},
		{ID: "a3", DisplayName: "BannedBot", APIKey: "key-a3", Suspended: true},
	}
}

func TestStaticDirectoryLookup(t *testing.T) {
	dir := NewStaticDirectory(staticAgents())
	defer dir.Close()

	agent, err := dir.Lookup(context.Background(), "key-a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", agent.ID)
	assert.Equal(t, "RushBot", agent.DisplayName)
	assert.Equal(t, 1600, agent.Rating.Global)
	assert.Equal(t, models.AgentStatusActive, agent.Status)
}

func TestStaticDirectoryDefaultRating(t *testing.T) {
	dir := NewStaticDirectory(staticAgents())

	agent, err := dir.Lookup(context.Background(), "key-a2")
	require.NoError(t, err)
	assert.Equal(t, 1200, agent.Rating.Global)
	assert.Equal(t, 1200, agent.Rating.Peak)
}

func TestStaticDirectoryUnknownKey(t *testing.T) {
	dir := NewStaticDirectory(staticAgents())

	_, err := dir.Lookup(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestStaticDirectorySuspended(t *testing.T) {
	dir := NewStaticDirectory(staticAgents())

	_, err := dir.Lookup(context.Background(), "key-a3")
	assert.ErrorIs(t, err, ErrAgentSuspended)
}

func TestStaticDirectoryLookupReturnsCopy(t *testing.T) {
	dir := NewStaticDirectory(staticAgents())

	first, err := dir.Lookup(context.Background(), "key-a1")
	require.NoError(t, err)
	first.Rating.Global = 9999

	second, err := dir.Lookup(context.Background(), "key-a1")
	require.NoError(t, err)
	assert.Equal(t, 1600, second.Rating.Global)
}

func TestModeRatingFallsBackToGlobal(t *testing.T) {
	profile := models.RatingProfile{
		Global: 1500,
		Modes:  map[models.Mode]int{models.ModeRanked1v1: 1720},
	}
	assert.Equal(t, 1720, profile.ModeRating(models.ModeRanked1v1))
	assert.Equal(t, 1500, profile.ModeRating(models.ModeTournament))
}
