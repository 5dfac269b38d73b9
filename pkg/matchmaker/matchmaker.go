// Package matchmaker implements the skill-banded queue. Entries are grouped
// by mode; a periodic pairing pass widens each entry's rating window with
// wait time and emits pairings for the session registry to consume.
package matchmaker

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jediswimmer/ironcurtain/pkg/config"
	"github.com/jediswimmer/ironcurtain/pkg/metrics"
	"github.com/jediswimmer/ironcurtain/pkg/models"
)

var (
	// ErrAlreadyQueued indicates the agent has an active entry in this mode.
	ErrAlreadyQueued = errors.New("agent already queued in this mode")

	// ErrQueueFull indicates the mode queue reached its configured cap.
	ErrQueueFull = errors.New("matchmaker queue is full")

	// ErrInvalidEntry indicates a malformed queue entry.
	ErrInvalidEntry = errors.New("invalid queue entry")
)

// TimeoutFunc is notified when an entry is cancelled by queue timeout.
type TimeoutFunc func(entry *models.QueueEntry)

// Matchmaker owns the per-mode queues. All queue mutation is serialized
// under one mutex, shared by the pairing pass and the enqueue/cancel
// handlers. Produced pairings are delivered on a buffered channel.
type Matchmaker struct {
	cfg     *config.MatchmakerConfig
	arena   *config.Config
	metrics *metrics.Metrics

	mu     sync.Mutex
	queues map[models.Mode][]*models.QueueEntry

	pairings  chan *models.Pairing
	onTimeout TimeoutFunc

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	now  func() time.Time
	intN func(n int) int
}

// New creates a matchmaker. The metrics parameter may be nil.
func New(arena *config.Config, m *metrics.Metrics) *Matchmaker {
	return &Matchmaker{
		cfg:      arena.Matchmaker,
		arena:    arena,
		metrics:  m,
		queues:   make(map[models.Mode][]*models.QueueEntry),
		pairings: make(chan *models.Pairing, 64),
		stopCh:   make(chan struct{}),
		now:      time.Now,
		intN:     rand.IntN,
	}
}

// SetTimeoutFunc installs the queue-timeout notification hook.
// Must be called before Start.
func (m *Matchmaker) SetTimeoutFunc(fn TimeoutFunc) {
	m.onTimeout = fn
}

// Pairings returns the channel of produced pairings.
func (m *Matchmaker) Pairings() <-chan *models.Pairing {
	return m.pairings
}

// Start launches the periodic pairing pass.
func (m *Matchmaker) Start() {
	m.wg.Add(1)
	go m.run()
	slog.Info("Matchmaker started", "pairing_interval", m.cfg.PairingInterval)
}

// Stop signals the pairing loop to exit and waits for it.
// Safe to call multiple times.
func (m *Matchmaker) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
	slog.Info("Matchmaker stopped")
}

// Enqueue adds an entry to its mode queue.
// Fails with ErrAlreadyQueued if the agent has an active entry in the mode.
func (m *Matchmaker) Enqueue(entry *models.QueueEntry) error {
	if entry.AgentID == "" || !entry.Mode.IsValid() || !entry.FactionPref.IsValid() {
		return ErrInvalidEntry
	}
	if entry.InitialRadius <= 0 {
		entry.InitialRadius = m.cfg.InitialRadius
	}
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	queue := m.queues[entry.Mode]
	for _, e := range queue {
		if e.AgentID == entry.AgentID {
			return ErrAlreadyQueued
		}
	}
	if m.cfg.MaxQueueSize > 0 && len(queue) >= m.cfg.MaxQueueSize {
		return ErrQueueFull
	}

	m.queues[entry.Mode] = append(queue, entry)
	m.updateDepth(entry.Mode)

	slog.Info("Agent enqueued",
		"agent_id", entry.AgentID,
		"mode", entry.Mode,
		"rating", entry.Rating,
		"queue_depth", len(m.queues[entry.Mode]))
	return nil
}

// Cancel removes the agent's entry from a mode queue. Idempotent: cancelling
// an absent entry succeeds silently.
func (m *Matchmaker) Cancel(agentID string, mode models.Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue := m.queues[mode]
	for i, e := range queue {
		if e.AgentID == agentID {
			m.queues[mode] = append(queue[:i], queue[i+1:]...)
			m.updateDepth(mode)
			slog.Info("Queue entry cancelled", "agent_id", agentID, "mode", mode)
			return
		}
	}
}

// Query returns the agent's queue position and wait estimate, or false if
// the agent has no active entry in the mode.
func (m *Matchmaker) Query(agentID string, mode models.Mode) (*models.QueueStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for i, e := range m.queues[mode] {
		if e.AgentID != agentID {
			continue
		}
		return &models.QueueStatus{
			Position:  i + 1,
			WaitedFor: now.Sub(e.EnqueuedAt),
			// Rough estimate: one pairing pass per remaining position ahead.
			EstimatedWait: time.Duration(i+1) * m.cfg.PairingInterval,
			CurrentRadius: e.RadiusAt(now, m.cfg.WidenPer, m.cfg.WidenStep, m.cfg.MaxRadius),
		}, true
	}
	return nil, false
}

// Depth returns the number of waiting entries in a mode.
func (m *Matchmaker) Depth(mode models.Mode) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[mode])
}

func (m *Matchmaker) run() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.PairingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.PairingPass()
		}
	}
}

// PairingPass runs one pass over every mode queue: expires timed-out
// entries, then pairs admissible partners in enqueue order. Pairing is
// best-effort; entries with no admissible partner remain queued.
func (m *Matchmaker) PairingPass() {
	now := m.now()

	m.mu.Lock()
	var produced []*models.Pairing
	var timedOut []*models.QueueEntry

	for mode, queue := range m.queues {
		kept := queue[:0]
		for _, e := range queue {
			if now.Sub(e.EnqueuedAt) >= m.cfg.QueueTimeout {
				timedOut = append(timedOut, e)
				if m.metrics != nil {
					m.metrics.QueueTimeouts.WithLabelValues(string(mode)).Inc()
				}
				continue
			}
			kept = append(kept, e)
		}
		queue = kept

		paired := make(map[string]bool)
		var remaining []*models.QueueEntry
		for i, a := range queue {
			if paired[a.AgentID] {
				continue
			}
			b := m.findPartner(queue[i+1:], a, paired, now)
			if b == nil {
				remaining = append(remaining, a)
				continue
			}
			paired[a.AgentID] = true
			paired[b.AgentID] = true
			produced = append(produced, m.buildPairing(a, b, mode, now))
		}
		m.queues[mode] = remaining
		m.updateDepth(mode)
	}
	m.mu.Unlock()

	for _, e := range timedOut {
		slog.Info("Queue entry timed out",
			"agent_id", e.AgentID, "mode", e.Mode, "waited", now.Sub(e.EnqueuedAt))
		if m.onTimeout != nil {
			m.onTimeout(e)
		}
	}

	for _, p := range produced {
		slog.Info("Pairing produced",
			"mode", p.Mode,
			"agent_a", p.A.AgentID, "faction_a", p.FactionA,
			"agent_b", p.B.AgentID, "faction_b", p.FactionB,
			"map", p.Map,
			"rating_gap", absInt(p.A.Rating-p.B.Rating))
		if m.metrics != nil {
			m.metrics.PairingsTotal.WithLabelValues(string(p.Mode)).Inc()
		}
		select {
		case m.pairings <- p:
		case <-m.stopCh:
			return
		}
	}
}

// findPartner scans candidates in enqueue order for the first admissible
// partner, preferring one whose faction preference resolves without a
// re-roll when such a candidate is equally admissible.
func (m *Matchmaker) findPartner(candidates []*models.QueueEntry, a *models.QueueEntry, paired map[string]bool, now time.Time) *models.QueueEntry {
	radiusA := a.RadiusAt(now, m.cfg.WidenPer, m.cfg.WidenStep, m.cfg.MaxRadius)

	var fallback *models.QueueEntry
	for _, b := range candidates {
		if paired[b.AgentID] {
			continue
		}
		radiusB := b.RadiusAt(now, m.cfg.WidenPer, m.cfg.WidenStep, m.cfg.MaxRadius)
		if absInt(a.Rating-b.Rating) > maxInt(radiusA, radiusB) {
			continue
		}
		if jointlyResolvable(a.FactionPref, b.FactionPref) {
			return b
		}
		if fallback == nil {
			fallback = b
		}
	}
	return fallback
}

func (m *Matchmaker) buildPairing(a, b *models.QueueEntry, mode models.Mode, now time.Time) *models.Pairing {
	factionA, factionB := ResolveFactions(a.AgentID, a.FactionPref, b.AgentID, b.FactionPref, m.intN)

	pool := m.arena.MapPoolFor(mode)
	chosen := ""
	if len(pool) > 0 {
		chosen = pool[m.intN(len(pool))]
	}

	return &models.Pairing{
		A:        a,
		B:        b,
		FactionA: factionA,
		FactionB: factionB,
		Map:      chosen,
		Mode:     mode,
		PairedAt: now,
	}
}

func (m *Matchmaker) updateDepth(mode models.Mode) {
	if m.metrics != nil {
		m.metrics.QueueDepth.WithLabelValues(string(mode)).Set(float64(len(m.queues[mode])))
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
