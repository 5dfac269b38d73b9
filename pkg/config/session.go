package config

import "time"

// SessionConfig controls per-match session lifecycle and fan-out behavior.
type SessionConfig struct {
	// ConnectDeadline is how long a session in `connecting` waits for both
	// agents to identify before cancelling.
	ConnectDeadline time.Duration `yaml:"connect_deadline"`

	// GameTimeout ends a running match as a draw. Mode configs may override.
	GameTimeout time.Duration `yaml:"game_timeout"`

	// RecipientQueueSize bounds each recipient's pending outbound messages.
	// Overflow evicts the recipient.
	RecipientQueueSize int `yaml:"recipient_queue_size"`

	// ViolationBudget is the number of high-severity violations an agent may
	// accumulate in one match before being forfeited.
	ViolationBudget int `yaml:"violation_budget"`

	// ChatMaxLen caps inbound chat message length.
	ChatMaxLen int `yaml:"chat_max_len"`

	// RemovalGrace keeps a terminal session queryable before self-removal.
	RemovalGrace time.Duration `yaml:"removal_grace"`

	// SimulatorCallTimeout bounds each request/response exchange with the
	// simulator; a timeout escalates the session to error.
	SimulatorCallTimeout time.Duration `yaml:"simulator_call_timeout"`
}

// DefaultSessionConfig returns the built-in session defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ConnectDeadline:      60 * time.Second,
		GameTimeout:          30 * time.Minute,
		RecipientQueueSize:   32,
		ViolationBudget:      5,
		ChatMaxLen:           200,
		RemovalGrace:         30 * time.Second,
		SimulatorCallTimeout: 10 * time.Second,
	}
}
