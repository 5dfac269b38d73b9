package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jediswimmer/ironcurtain/pkg/models"
	"gopkg.in/yaml.v3"
)

// Config is the root arena configuration, assembled by Initialize and held
// by the root service. No package-level config state exists.
type Config struct {
	configDir string

	Matchmaker *MatchmakerConfig
	Session    *SessionConfig
	Rating     *RatingConfig
	Events     *EventsConfig
	Registry   *RegistryConfig

	// Modes maps each mode to its game configuration.
	Modes map[models.Mode]*ModeConfig

	// MapPool is the global map pool, used when a mode does not pin its own.
	MapPool []string

	// AllowedWSOrigins are additional origin patterns accepted on WebSocket upgrade.
	AllowedWSOrigins []string
}

// EventsConfig controls emission of persistence events to the store collaborator.
type EventsConfig struct {
	// Enabled switches Kafka publishing on. When false, events are logged only.
	Enabled bool `yaml:"enabled"`

	// Brokers is the Kafka broker list.
	Brokers []string `yaml:"brokers"`

	// MatchTopic receives match completion and cancellation records.
	MatchTopic string `yaml:"match_topic"`

	// TickTopic receives optional per-tick event records. Empty disables them.
	TickTopic string `yaml:"tick_topic,omitempty"`
}

// DefaultEventsConfig returns the built-in events defaults (logging only).
func DefaultEventsConfig() *EventsConfig {
	return &EventsConfig{
		Enabled:    false,
		MatchTopic: "arena.matches",
	}
}

// RegistryConfig locates the agent identity directory.
type RegistryConfig struct {
	// DSN is the Postgres connection string for the agent directory.
	// Empty selects the static directory seeded from Agents.
	DSN string `yaml:"dsn"`

	// Agents seeds the static directory (dev and test deployments).
	Agents []StaticAgent `yaml:"agents,omitempty"`
}

// StaticAgent is a statically configured agent credential.
type StaticAgent struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	APIKey      string `yaml:"api_key"`
	Rating      int    `yaml:"rating"`
	Suspended   bool   `yaml:"suspended"`
}

// arenaYAMLConfig is the on-disk arena.yaml structure.
type arenaYAMLConfig struct {
	Matchmaker       *MatchmakerConfig            `yaml:"matchmaker"`
	Session          *SessionConfig               `yaml:"session"`
	Rating           *RatingConfig                `yaml:"rating"`
	Events           *EventsConfig                `yaml:"events"`
	Registry         *RegistryConfig              `yaml:"registry"`
	Modes            map[models.Mode]*ModeConfig  `yaml:"modes"`
	MapPool          []string                     `yaml:"map_pool"`
	AllowedWSOrigins []string                     `yaml:"allowed_ws_origins"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
//
// Steps performed:
//  1. Load arena.yaml from configDir
//  2. Expand environment variables
//  3. Merge user values over built-in defaults
//  4. Validate all configuration
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	raw, err := loadArenaYAML(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := &Config{
		configDir:        configDir,
		Matchmaker:       mergeMatchmaker(raw.Matchmaker),
		Session:          mergeSession(raw.Session),
		Rating:           mergeRating(raw.Rating),
		Events:           mergeEvents(raw.Events),
		Registry:         raw.Registry,
		Modes:            mergeModes(raw.Modes),
		MapPool:          raw.MapPool,
		AllowedWSOrigins: raw.AllowedWSOrigins,
	}
	if cfg.Registry == nil {
		cfg.Registry = &RegistryConfig{}
	}
	if len(cfg.MapPool) == 0 {
		cfg.MapPool = defaultMapPool()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("Configuration initialized successfully",
		"modes", len(cfg.Modes),
		"maps", len(cfg.MapPool),
		"events_enabled", cfg.Events.Enabled)

	return cfg, nil
}

// Validate checks every configuration section.
func (c *Config) Validate() error {
	for mode, mc := range c.Modes {
		if !mode.IsValid() {
			return NewValidationError("mode", string(mode), "", ErrInvalidValue)
		}
		if err := mc.Validate(mode); err != nil {
			return err
		}
		for _, m := range mc.MapPool {
			if m == "" {
				return NewValidationError("mode", string(mode), "map_pool", ErrInvalidValue)
			}
		}
	}
	if c.Matchmaker.InitialRadius <= 0 || c.Matchmaker.MaxRadius < c.Matchmaker.InitialRadius {
		return NewValidationError("matchmaker", "radius", "initial_radius", ErrInvalidValue)
	}
	if c.Session.RecipientQueueSize <= 0 {
		return NewValidationError("session", "fanout", "recipient_queue_size", ErrInvalidValue)
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		return NewValidationError("events", "kafka", "brokers", ErrMissingRequiredField)
	}
	return nil
}

// ModeConfigFor returns the configuration for a mode.
func (c *Config) ModeConfigFor(mode models.Mode) (*ModeConfig, error) {
	mc, ok := c.Modes[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModeNotFound, mode)
	}
	return mc, nil
}

// MapPoolFor returns the effective map pool for a mode: the mode's own pool
// when pinned, otherwise the global pool.
func (c *Config) MapPoolFor(mode models.Mode) []string {
	if mc, ok := c.Modes[mode]; ok && len(mc.MapPool) > 0 {
		return mc.MapPool
	}
	return c.MapPool
}

func loadArenaYAML(configDir string) (*arenaYAMLConfig, error) {
	var raw arenaYAMLConfig
	path := filepath.Join(configDir, "arena.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// A missing file selects pure defaults: usable for dev and tests.
			slog.Warn("arena.yaml not found, using built-in defaults", "path", path)
			return &raw, nil
		}
		return nil, NewLoadError("arena.yaml", err)
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, NewLoadError("arena.yaml", fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &raw, nil
}

// merge helpers: user values override defaults field-by-field, zero values
// preserve the default.

func mergeMatchmaker(user *MatchmakerConfig) *MatchmakerConfig {
	out := DefaultMatchmakerConfig()
	if user == nil {
		return out
	}
	if user.PairingInterval > 0 {
		out.PairingInterval = user.PairingInterval
	}
	if user.InitialRadius > 0 {
		out.InitialRadius = user.InitialRadius
	}
	if user.WidenStep > 0 {
		out.WidenStep = user.WidenStep
	}
	if user.WidenPer > 0 {
		out.WidenPer = user.WidenPer
	}
	if user.MaxRadius > 0 {
		out.MaxRadius = user.MaxRadius
	}
	if user.QueueTimeout > 0 {
		out.QueueTimeout = user.QueueTimeout
	}
	if user.MaxQueueSize > 0 {
		out.MaxQueueSize = user.MaxQueueSize
	}
	return out
}

func mergeSession(user *SessionConfig) *SessionConfig {
	out := DefaultSessionConfig()
	if user == nil {
		return out
	}
	if user.ConnectDeadline > 0 {
		out.ConnectDeadline = user.ConnectDeadline
	}
	if user.GameTimeout > 0 {
		out.GameTimeout = user.GameTimeout
	}
	if user.RecipientQueueSize > 0 {
		out.RecipientQueueSize = user.RecipientQueueSize
	}
	if user.ViolationBudget > 0 {
		out.ViolationBudget = user.ViolationBudget
	}
	if user.ChatMaxLen > 0 {
		out.ChatMaxLen = user.ChatMaxLen
	}
	if user.RemovalGrace > 0 {
		out.RemovalGrace = user.RemovalGrace
	}
	if user.SimulatorCallTimeout > 0 {
		out.SimulatorCallTimeout = user.SimulatorCallTimeout
	}
	return out
}

func mergeRating(user *RatingConfig) *RatingConfig {
	out := DefaultRatingConfig()
	if user == nil {
		return out
	}
	if user.KNew > 0 {
		out.KNew = user.KNew
	}
	if user.KEstablished > 0 {
		out.KEstablished = user.KEstablished
	}
	if user.KPlateau > 0 {
		out.KPlateau = user.KPlateau
	}
	if user.NewGamesThreshold > 0 {
		out.NewGamesThreshold = user.NewGamesThreshold
	}
	if user.PlateauRating > 0 {
		out.PlateauRating = user.PlateauRating
	}
	if user.Floor > 0 {
		out.Floor = user.Floor
	}
	return out
}

func mergeEvents(user *EventsConfig) *EventsConfig {
	out := DefaultEventsConfig()
	if user == nil {
		return out
	}
	out.Enabled = user.Enabled
	if len(user.Brokers) > 0 {
		out.Brokers = user.Brokers
	}
	if user.MatchTopic != "" {
		out.MatchTopic = user.MatchTopic
	}
	if user.TickTopic != "" {
		out.TickTopic = user.TickTopic
	}
	return out
}

func mergeModes(user map[models.Mode]*ModeConfig) map[models.Mode]*ModeConfig {
	out := DefaultModeConfigs()
	for mode, mc := range user {
		out[mode] = mc
	}
	return out
}

func defaultMapPool() []string {
	return []string{
		"coastal-influence",
		"desert-rats",
		"king-of-the-hills",
		"ore-gardens",
		"path-beyond",
		"singles",
	}
}
