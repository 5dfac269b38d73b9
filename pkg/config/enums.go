package config

// APMProfileName selects one of the built-in action-rate profiles.
type APMProfileName string

const (
	// APMProfileHumanLike caps agents near strong human play speed.
	APMProfileHumanLike APMProfileName = "human_like"
	// APMProfileCompetitive allows bot-speed play with sane ceilings.
	APMProfileCompetitive APMProfileName = "competitive"
	// APMProfileUnlimited removes all rate limits.
	APMProfileUnlimited APMProfileName = "unlimited"
)

// IsValid checks if the APM profile name is valid.
func (p APMProfileName) IsValid() bool {
	return p == APMProfileHumanLike || p == APMProfileCompetitive || p == APMProfileUnlimited
}

// GameSpeed is the simulator tick-rate setting, passed through to the simulator.
type GameSpeed string

// Game speed constants.
const (
	GameSpeedSlower GameSpeed = "slower"
	GameSpeedSlow   GameSpeed = "slow"
	GameSpeedNormal GameSpeed = "normal"
	GameSpeedFast   GameSpeed = "fast"
	GameSpeedFaster GameSpeed = "faster"
)

// IsValid checks if the game speed is valid.
func (s GameSpeed) IsValid() bool {
	switch s {
	case GameSpeedSlower, GameSpeedSlow, GameSpeedNormal, GameSpeedFast, GameSpeedFaster:
		return true
	default:
		return false
	}
}

// TechLevel restricts the available tech tree, passed through to the simulator.
type TechLevel string

// Tech level constants.
const (
	TechLevelLow          TechLevel = "low"
	TechLevelMedium       TechLevel = "medium"
	TechLevelHigh         TechLevel = "high"
	TechLevelUnrestricted TechLevel = "unrestricted"
)

// IsValid checks if the tech level is valid.
func (t TechLevel) IsValid() bool {
	switch t {
	case TechLevelLow, TechLevelMedium, TechLevelHigh, TechLevelUnrestricted:
		return true
	default:
		return false
	}
}
