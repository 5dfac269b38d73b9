package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jediswimmer/ironcurtain/pkg/config"
	"github.com/jediswimmer/ironcurtain/pkg/events"
	"github.com/jediswimmer/ironcurtain/pkg/metrics"
	"github.com/jediswimmer/ironcurtain/pkg/models"
	"github.com/jediswimmer/ironcurtain/pkg/orders"
	"github.com/jediswimmer/ironcurtain/pkg/rating"
)

// Manager consumes matchmaker pairings, creates match sessions, and tracks
// them until their post-terminal grace expires so late result queries still
// succeed.
type Manager struct {
	arena     *config.Config
	ratings   *rating.Engine
	publisher events.Publisher
	metrics   *metrics.Metrics
	audit     *orders.AuditLog

	mu       sync.RWMutex
	sessions map[string]*MatchSession
	profiles map[string]models.RatingProfile

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	newID func() string
}

// NewManager creates a session manager. The metrics parameter may be nil.
func NewManager(arena *config.Config, ratings *rating.Engine, publisher events.Publisher, m *metrics.Metrics) *Manager {
	return &Manager{
		arena:     arena,
		ratings:   ratings,
		publisher: publisher,
		metrics:   m,
		audit:     orders.NewAuditLog(),
		sessions:  make(map[string]*MatchSession),
		profiles:  make(map[string]models.RatingProfile),
		stopCh:    make(chan struct{}),
		newID:     func() string { return uuid.New().String() },
	}
}

// Start launches the pairing consumer.
func (m *Manager) Start(pairings <-chan *models.Pairing) {
	m.wg.Add(1)
	go m.run(pairings)
	slog.Info("Session manager started")
}

// Stop halts pairing intake and waits for the consumer. Live sessions keep
// running; the caller cancels them separately if a hard stop is needed.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
	slog.Info("Session manager stopped")
}

func (m *Manager) run(pairings <-chan *models.Pairing) {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case p, ok := <-pairings:
			if !ok {
				return
			}
			m.CreateSession(p)
		}
	}
}

// RememberAgent caches an agent's pre-match standing so sessions created
// from later pairings can seed the rating engine with full profiles.
func (m *Manager) RememberAgent(agent *models.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[agent.ID] = agent.Rating
}

// CreateSession builds a session for a pairing and registers it.
func (m *Manager) CreateSession(p *models.Pairing) *MatchSession {
	modeCfg, err := m.arena.ModeConfigFor(p.Mode)
	if err != nil {
		slog.Error("Pairing in unknown mode dropped", "mode", p.Mode, "error", err)
		return nil
	}

	m.mu.Lock()
	profiles := map[string]models.RatingProfile{}
	if prof, ok := m.profiles[p.A.AgentID]; ok {
		profiles[p.A.AgentID] = prof
	}
	if prof, ok := m.profiles[p.B.AgentID]; ok {
		profiles[p.B.AgentID] = prof
	}
	m.mu.Unlock()

	sess := NewMatchSession(m.newID(), p, Deps{
		Config:     m.arena.Session,
		ModeConfig: modeCfg,
		Profile:    config.ProfileFor(modeCfg.APMProfile),
		Audit:      m.audit,
		Ratings:    m.ratings,
		Publisher:  m.publisher,
		Metrics:    m.metrics,
		Profiles:   profiles,
		EmitTicks:  m.arena.Events != nil && m.arena.Events.TickTopic != "",
		OnTerminal: m.onTerminal,
	})

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	active := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(active))
	}
	slog.Info("Session created",
		"match_id", sess.ID,
		"mode", p.Mode,
		"agent_a", p.A.AgentID,
		"agent_b", p.B.AgentID,
		"map", p.Map)
	return sess
}

// Get returns a session by match id.
func (m *Manager) Get(matchID string) (*MatchSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[matchID]
	return sess, ok
}

// List returns all tracked sessions, including recently terminal ones
// within their grace window.
func (m *Manager) List() []*MatchSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*MatchSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// FindForAgent resolves the session an agent is expected to join: the one
// it is seated in that has not started running yet. Identify frames may
// omit the match id and rely on this lookup.
func (m *Manager) FindForAgent(agentID string) (*MatchSession, bool) {
	m.mu.RLock()
	var candidates []*MatchSession
	for _, s := range m.sessions {
		if _, err := s.seatFor(agentID); err == nil {
			candidates = append(candidates, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range candidates {
		switch s.Status() {
		case models.MatchStatusPending, models.MatchStatusConnecting:
			return s, true
		}
	}
	return nil, false
}

// CancelForAgent cancels any not-yet-running session the agent is seated
// in. Called when an agent cancels after its pairing was already produced.
func (m *Manager) CancelForAgent(agentID string) {
	m.mu.RLock()
	var affected []*MatchSession
	for _, s := range m.sessions {
		if _, err := s.seatFor(agentID); err == nil {
			affected = append(affected, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range affected {
		s.CancelPreMatch(models.ReasonPreMatchCancel)
	}
}

// Violations returns the audited high-severity events for a match.
func (m *Manager) Violations(matchID string) []orders.SuspiciousEvent {
	return m.audit.ForMatch(matchID)
}

// onTerminal schedules self-removal after the grace window.
func (m *Manager) onTerminal(s *MatchSession) {
	grace := m.arena.Session.RemovalGrace
	time.AfterFunc(grace, func() {
		m.mu.Lock()
		delete(m.sessions, s.ID)
		active := len(m.sessions)
		m.mu.Unlock()
		if m.metrics != nil {
			m.metrics.ActiveSessions.Set(float64(active))
		}
		slog.Debug("Session removed after grace", "match_id", s.ID)
	})
}
