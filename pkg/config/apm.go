package config

import "time"

// APMProfile contains the four action-rate caps enforced by the order
// limiter. A profile is fixed at session creation from the mode config.
type APMProfile struct {
	// Name identifies the profile in logs and violation messages.
	Name APMProfileName `yaml:"name"`

	// MaxAPM is the ceiling on admitted orders within any 60-second window.
	MaxAPM int `yaml:"max_apm"`

	// MaxOrdersPerBatch is the per-tick order cap for a single batch.
	MaxOrdersPerBatch int `yaml:"max_orders_per_batch"`

	// MinBatchGap is the minimum wall-clock gap between two batches.
	MinBatchGap time.Duration `yaml:"min_batch_gap"`

	// MaxUnitsPerOrder caps the subject set size of a single order.
	MaxUnitsPerOrder int `yaml:"max_units_per_order"`
}

// Unlimited reports whether the profile disables rate limiting entirely.
func (p *APMProfile) Unlimited() bool {
	return p.Name == APMProfileUnlimited
}

// ProfileFor returns the built-in profile for a profile name.
// Unknown names fall back to human_like, the most restrictive profile.
func ProfileFor(name APMProfileName) *APMProfile {
	switch name {
	case APMProfileCompetitive:
		return &APMProfile{
			Name:              APMProfileCompetitive,
			MaxAPM:            600,
			MaxOrdersPerBatch: 8,
			MinBatchGap:       10 * time.Millisecond,
			MaxUnitsPerOrder:  50,
		}
	case APMProfileUnlimited:
		return &APMProfile{Name: APMProfileUnlimited}
	default:
		return &APMProfile{
			Name:              APMProfileHumanLike,
			MaxAPM:            200,
			MaxOrdersPerBatch: 3,
			MinBatchGap:       50 * time.Millisecond,
			MaxUnitsPerOrder:  12,
		}
	}
}
