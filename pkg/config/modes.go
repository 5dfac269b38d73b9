package config

import (
	"fmt"
	"time"

	"github.com/jediswimmer/ironcurtain/pkg/models"
)

// ModeConfig is the per-mode game configuration passed to the simulator and
// used to fix the APM profile at session creation.
type ModeConfig struct {
	APMProfile   APMProfileName `yaml:"apm_profile"`
	GameSpeed    GameSpeed      `yaml:"game_speed"`
	TechLevel    TechLevel      `yaml:"tech_level"`
	StartingCash int            `yaml:"starting_cash"`
	FogOfWar     bool           `yaml:"fog_of_war"`
	Shroud       bool           `yaml:"shroud"`

	// MapPool overrides the global map pool when non-empty.
	MapPool []string `yaml:"map_pool,omitempty"`

	// GameTimeout overrides SessionConfig.GameTimeout when positive.
	GameTimeout time.Duration `yaml:"game_timeout,omitempty"`
}

// Validate checks the mode config. Competitive modes require fog and shroud.
func (m *ModeConfig) Validate(mode models.Mode) error {
	if !m.APMProfile.IsValid() {
		return NewValidationError("mode", string(mode), "apm_profile", ErrInvalidValue)
	}
	if !m.GameSpeed.IsValid() {
		return NewValidationError("mode", string(mode), "game_speed", ErrInvalidValue)
	}
	if !m.TechLevel.IsValid() {
		return NewValidationError("mode", string(mode), "tech_level", ErrInvalidValue)
	}
	if m.StartingCash < 0 {
		return NewValidationError("mode", string(mode), "starting_cash", ErrInvalidValue)
	}
	if mode.Rated() && (!m.FogOfWar || !m.Shroud) {
		return NewValidationError("mode", string(mode), "fog_of_war",
			fmt.Errorf("%w: competitive modes require fog_of_war and shroud", ErrInvalidValue))
	}
	return nil
}

// DefaultModeConfigs returns built-in configurations for all modes.
func DefaultModeConfigs() map[models.Mode]*ModeConfig {
	return map[models.Mode]*ModeConfig{
		models.ModeRanked1v1: {
			APMProfile:   APMProfileCompetitive,
			GameSpeed:    GameSpeedNormal,
			TechLevel:    TechLevelUnrestricted,
			StartingCash: 5000,
			FogOfWar:     true,
			Shroud:       true,
		},
		models.ModeCasual1v1: {
			APMProfile:   APMProfileUnlimited,
			GameSpeed:    GameSpeedNormal,
			TechLevel:    TechLevelUnrestricted,
			StartingCash: 5000,
			FogOfWar:     true,
			Shroud:       true,
		},
		models.ModeTournament: {
			APMProfile:   APMProfileCompetitive,
			GameSpeed:    GameSpeedNormal,
			TechLevel:    TechLevelHigh,
			StartingCash: 10000,
			FogOfWar:     true,
			Shroud:       true,
		},
	}
}
