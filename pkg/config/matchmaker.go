package config

import "time"

// MatchmakerConfig controls the skill-banded queue and its pairing pass.
type MatchmakerConfig struct {
	// PairingInterval is how often the pairing pass runs per mode.
	PairingInterval time.Duration `yaml:"pairing_interval"`

	// InitialRadius is the starting rating window radius for new entries.
	InitialRadius int `yaml:"initial_radius"`

	// WidenStep is the rating added to the radius every WidenPer of waiting.
	WidenStep int `yaml:"widen_step"`

	// WidenPer is the wait interval per widening step.
	WidenPer time.Duration `yaml:"widen_per"`

	// MaxRadius caps the widened rating window.
	MaxRadius int `yaml:"max_radius"`

	// QueueTimeout cancels entries that waited too long and notifies the agent.
	QueueTimeout time.Duration `yaml:"queue_timeout"`

	// MaxQueueSize rejects enqueues once a mode queue reaches this size.
	// Zero disables the cap.
	MaxQueueSize int `yaml:"max_queue_size"`
}

// DefaultMatchmakerConfig returns the built-in matchmaker defaults.
func DefaultMatchmakerConfig() *MatchmakerConfig {
	return &MatchmakerConfig{
		PairingInterval: 2 * time.Second,
		InitialRadius:   50,
		WidenStep:       10,
		WidenPer:        5 * time.Second,
		MaxRadius:       400,
		QueueTimeout:    5 * time.Minute,
		MaxQueueSize:    0,
	}
}
