package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jediswimmer/ironcurtain/pkg/models"
)

func writeArenaYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "arena.yaml"), []byte(content), 0o644))
	return dir
}

func TestInitializeDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Matchmaker.InitialRadius)
	assert.Equal(t, 400, cfg.Matchmaker.MaxRadius)
	assert.Equal(t, 5*time.Minute, cfg.Matchmaker.QueueTimeout)
	assert.Equal(t, 60*time.Second, cfg.Session.ConnectDeadline)
	assert.Equal(t, 30*time.Minute, cfg.Session.GameTimeout)
	assert.Equal(t, 32, cfg.Session.RecipientQueueSize)
	assert.False(t, cfg.Events.Enabled)
	assert.Len(t, cfg.Modes, 3)
	assert.NotEmpty(t, cfg.MapPool)
}

func TestInitializeMergesUserValues(t *testing.T) {
	t.Setenv("ARENA_TEST_BROKER", "kafka-0:9092")

	dir := writeArenaYAML(t, `
matchmaker:
  initial_radius: 100
  queue_timeout: 2m
session:
  chat_max_len: 140
events:
  enabled: true
  brokers: ["{{.ARENA_TEST_BROKER}}"]
  match_topic: arena.results
map_pool: [alpha, beta]
allowed_ws_origins: ["arena.example.com"]
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Matchmaker.InitialRadius)
	assert.Equal(t, 2*time.Minute, cfg.Matchmaker.QueueTimeout)
	// Untouched fields keep their defaults.
	assert.Equal(t, 10, cfg.Matchmaker.WidenStep)
	assert.Equal(t, 5*time.Second, cfg.Matchmaker.WidenPer)

	assert.Equal(t, 140, cfg.Session.ChatMaxLen)
	assert.Equal(t, 5, cfg.Session.ViolationBudget)

	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, []string{"kafka-0:9092"}, cfg.Events.Brokers)
	assert.Equal(t, "arena.results", cfg.Events.MatchTopic)

	assert.Equal(t, []string{"alpha", "beta"}, cfg.MapPool)
	assert.Equal(t, []string{"arena.example.com"}, cfg.AllowedWSOrigins)
}

func TestInitializeRejectsKafkaWithoutBrokers(t *testing.T) {
	dir := writeArenaYAML(t, `
events:
  enabled: true
`)
	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestInitializeRejectsBadYAML(t *testing.T) {
	dir := writeArenaYAML(t, "matchmaker: [not: a: map")
	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitializeRejectsBadModeConfig(t *testing.T) {
	dir := writeArenaYAML(t, `
modes:
  ranked_1v1:
    apm_profile: warp_speed
    game_speed: normal
    tech_level: unrestricted
    fog_of_war: true
    shroud: true
`)
	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestModeValidateCompetitiveRequiresFog(t *testing.T) {
	mc := &ModeConfig{
		APMProfile: APMProfileCompetitive,
		GameSpeed:  GameSpeedNormal,
		TechLevel:  TechLevelUnrestricted,
		FogOfWar:   false,
		Shroud:     true,
	}
	err := mc.Validate(models.ModeRanked1v1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)

	// Casual modes may disable fog.
	assert.NoError(t, mc.Validate(models.ModeCasual1v1))
}

func TestModeConfigFor(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)

	mc, err := cfg.ModeConfigFor(models.ModeRanked1v1)
	require.NoError(t, err)
	assert.Equal(t, APMProfileCompetitive, mc.APMProfile)

	_, err = cfg.ModeConfigFor(models.Mode("free_for_all"))
	assert.ErrorIs(t, err, ErrModeNotFound)
}

func TestMapPoolForPinnedMode(t *testing.T) {
	dir := writeArenaYAML(t, `
map_pool: [alpha, beta]
modes:
  tournament:
    apm_profile: competitive
    game_speed: normal
    tech_level: high
    starting_cash: 10000
    fog_of_war: true
    shroud: true
    map_pool: [finals-only]
`)
	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"finals-only"}, cfg.MapPoolFor(models.ModeTournament))
	assert.Equal(t, []string{"alpha", "beta"}, cfg.MapPoolFor(models.ModeRanked1v1))
}

func TestProfileFor(t *testing.T) {
	comp := ProfileFor(APMProfileCompetitive)
	assert.Equal(t, 600, comp.MaxAPM)
	assert.Equal(t, 8, comp.MaxOrdersPerBatch)
	assert.False(t, comp.Unlimited())

	unlimited := ProfileFor(APMProfileUnlimited)
	assert.True(t, unlimited.Unlimited())
	assert.Zero(t, unlimited.MaxAPM)

	// Unknown names fall back to the most restrictive profile.
	fallback := ProfileFor("who_knows")
	assert.Equal(t, APMProfileHumanLike, fallback.Name)
	assert.Equal(t, 200, fallback.MaxAPM)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("ARENA_EXPAND_A", "one")

	out := ExpandEnv([]byte("a: {{.ARENA_EXPAND_A}}\nb: {{.ARENA_EXPAND_MISSING}}\nc: lit$eral"))
	assert.Equal(t, "a: one\nb: \nc: lit$eral", string(out))

	// Malformed templates pass the input through unchanged.
	raw := []byte("broken: {{.unclosed")
	assert.Equal(t, raw, ExpandEnv(raw))
}
