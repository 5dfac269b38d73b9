package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jediswimmer/ironcurtain/pkg/config"
	"github.com/jediswimmer/ironcurtain/pkg/events"
	"github.com/jediswimmer/ironcurtain/pkg/fog"
	"github.com/jediswimmer/ironcurtain/pkg/metrics"
	"github.com/jediswimmer/ironcurtain/pkg/models"
	"github.com/jediswimmer/ironcurtain/pkg/orders"
	"github.com/jediswimmer/ironcurtain/pkg/rating"
	"github.com/jediswimmer/ironcurtain/pkg/wire"
)

var (
	// ErrNotParticipant indicates the agent id is not a seat in this match.
	ErrNotParticipant = errors.New("agent is not a participant of this match")

	// ErrAlreadyConnected indicates a second identify for an occupied seat.
	ErrAlreadyConnected = errors.New("agent already identified")

	// ErrSessionTerminal indicates an operation on a finished session.
	ErrSessionTerminal = errors.New("session already terminal")

	// ErrSimulatorAttached indicates a duplicate simulator attachment.
	ErrSimulatorAttached = errors.New("simulator already attached")

	// ErrNoViewYet indicates orders arrived before the first tick.
	ErrNoViewYet = errors.New("no state received yet")
)

// Forwarder relays admitted orders to the simulator. Implementations must
// honor the context deadline; a timeout escalates the session to error.
type Forwarder interface {
	ForwardOrders(ctx context.Context, fwd []models.ForwardedOrder) error
}

// seat is one agent's side of a match.
type seat struct {
	agentID     string
	displayName string
	faction     models.Faction
	profile     models.RatingProfile

	tracker  *orders.Tracker
	frozen   *fog.FrozenStore
	lastView *models.FilteredView

	recipient  *Recipient
	connected  bool
	violations int

	// orderMu serializes order batches from this agent so successive
	// batches never race on the tracker or the violation count.
	orderMu sync.Mutex
}

// AgentSummary is one seat in a result view.
type AgentSummary struct {
	AgentID     string         `json:"agent_id"`
	DisplayName string         `json:"display_name"`
	Faction     models.Faction `json:"faction"`
}

// Result is the queryable outcome of a session, valid at any lifecycle stage.
type Result struct {
	MatchID      string                        `json:"match_id"`
	Status       models.MatchStatus            `json:"status"`
	Mode         models.Mode                   `json:"mode"`
	Map          string                        `json:"map"`
	Agents       []AgentSummary                `json:"agents"`
	WinnerID     string                        `json:"winner_id,omitempty"`
	Draw         bool                          `json:"draw,omitempty"`
	Reason       string                        `json:"reason,omitempty"`
	StartedAt    time.Time                     `json:"started_at,omitempty"`
	EndedAt      time.Time                     `json:"ended_at,omitempty"`
	RatingDeltas map[string]models.RatingDelta `json:"rating_deltas,omitempty"`
}

// Deps bundles the collaborators a session needs.
type Deps struct {
	Config     *config.SessionConfig
	ModeConfig *config.ModeConfig
	Profile    *config.APMProfile
	Audit      *orders.AuditLog
	Ratings    *rating.Engine
	Publisher  events.Publisher
	Metrics    *metrics.Metrics

	// Profiles carries each agent's pre-match standing, keyed by agent id.
	// Missing entries fall back to the queue entry's rating.
	Profiles map[string]models.RatingProfile

	// EmitTicks switches on per-snapshot tick events to the publisher.
	EmitTicks bool

	// OnTerminal is invoked exactly once after the session reaches a
	// terminal status and all farewell frames are queued.
	OnTerminal func(*MatchSession)
}

// MatchSession is the authoritative state of one match. All mutation goes
// through its methods; the mutex serializes the intake task and the two
// inbound agent tasks.
type MatchSession struct {
	ID      string
	Mode    models.Mode
	MapName string

	cfg       *config.SessionConfig
	modeCfg   *config.ModeConfig
	validator *orders.Validator
	ratings   *rating.Engine
	publisher events.Publisher
	metrics   *metrics.Metrics
	emitTicks bool

	mu         sync.Mutex
	status     models.MatchStatus
	reason     string
	winnerID   string
	draw       bool
	seats      map[string]*seat
	order      [2]string // seat ids in pairing order
	spectators map[string]*Recipient
	forwarder  Forwarder
	lastTick   int64
	seenTick   bool
	deltas     map[string]models.RatingDelta
	terminalCb func(*MatchSession)

	createdAt time.Time
	startedAt time.Time
	endedAt   time.Time

	connectTimer *time.Timer
	gameTimer    *time.Timer

	now func() time.Time
}

// NewMatchSession creates a session in `pending` from a pairing.
func NewMatchSession(id string, pairing *models.Pairing, deps Deps) *MatchSession {
	s := &MatchSession{
		ID:         id,
		Mode:       pairing.Mode,
		MapName:    pairing.Map,
		cfg:        deps.Config,
		modeCfg:    deps.ModeConfig,
		validator:  orders.NewValidator(deps.Profile, deps.Audit),
		ratings:    deps.Ratings,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		emitTicks:  deps.EmitTicks,
		status:     models.MatchStatusPending,
		seats:      make(map[string]*seat, 2),
		spectators: make(map[string]*Recipient),
		terminalCb: deps.OnTerminal,
		now:        time.Now,
	}
	s.createdAt = s.now()

	s.addSeat(pairing.A, pairing.FactionA, deps)
	s.addSeat(pairing.B, pairing.FactionB, deps)
	s.order = [2]string{pairing.A.AgentID, pairing.B.AgentID}
	return s
}

func (s *MatchSession) addSeat(entry *models.QueueEntry, faction models.Faction, deps Deps) {
	profile, ok := deps.Profiles[entry.AgentID]
	if !ok {
		profile = models.RatingProfile{Global: entry.Rating, Peak: entry.Rating}
	}
	s.seats[entry.AgentID] = &seat{
		agentID:     entry.AgentID,
		displayName: entry.DisplayName,
		faction:     faction,
		profile:     profile,
		tracker:     orders.NewTracker(deps.Profile),
		frozen:      fog.NewFrozenStore(),
	}
}

// Status returns the current lifecycle state.
func (s *MatchSession) Status() models.MatchStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Result returns the queryable outcome snapshot.
func (s *MatchSession) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Result{
		MatchID:      s.ID,
		Status:       s.status,
		Mode:         s.Mode,
		Map:          s.MapName,
		WinnerID:     s.winnerID,
		Draw:         s.draw,
		Reason:       s.reason,
		StartedAt:    s.startedAt,
		EndedAt:      s.endedAt,
		RatingDeltas: s.deltas,
	}
	for _, id := range s.order {
		st := s.seats[id]
		res.Agents = append(res.Agents, AgentSummary{
			AgentID:     st.agentID,
			DisplayName: st.displayName,
			Faction:     st.faction,
		})
	}
	return res
}

// AttachSimulator moves the session from pending to connecting: the
// simulator is ready to accept, and both agents are now expected to
// identify within the connect deadline.
func (s *MatchSession) AttachSimulator(f Forwarder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return ErrSessionTerminal
	}
	if s.forwarder != nil {
		return ErrSimulatorAttached
	}
	s.forwarder = f
	if s.status == models.MatchStatusPending {
		s.status = models.MatchStatusConnecting
		s.connectTimer = time.AfterFunc(s.cfg.ConnectDeadline, s.onConnectDeadline)
	}
	slog.Info("Simulator attached", "match_id", s.ID)
	s.maybeStartLocked()
	return nil
}

// Identify binds an authenticated agent to its seat and returns the
// recipient whose frames the connection writer must drain. The connected
// acknowledgment is already queued on return.
func (s *MatchSession) Identify(agentID string) (*Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return nil, ErrSessionTerminal
	}
	st, ok := s.seats[agentID]
	if !ok {
		return nil, ErrNotParticipant
	}
	if st.connected {
		return nil, ErrAlreadyConnected
	}

	st.recipient = newRecipient(agentID, RecipientAgent, s.cfg.RecipientQueueSize)
	st.connected = true

	opponent := s.seats[s.opponentOf(agentID)]
	s.send(st.recipient, wire.FrameConnected, &wire.ConnectedPayload{
		MatchID:  s.ID,
		AgentID:  agentID,
		Faction:  st.faction,
		Opponent: opponent.displayName,
		Map:      s.MapName,
		Mode:     s.Mode,
		Settings: s.gameSettings(),
	})

	slog.Info("Agent identified", "match_id", s.ID, "agent_id", agentID)
	s.maybeStartLocked()
	return st.recipient, nil
}

// AttachSpectator subscribes a spectator to the session's fan-out.
func (s *MatchSession) AttachSpectator(id string) (*Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return nil, ErrSessionTerminal
	}
	r := newRecipient(id, RecipientSpectator, s.cfg.RecipientQueueSize)
	s.spectators[id] = r
	return r, nil
}

// DetachSpectator removes a spectator. Idempotent.
func (s *MatchSession) DetachSpectator(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.spectators[id]; ok {
		delete(s.spectators, id)
		r.close()
	}
}

// maybeStartLocked transitions connecting → running once the simulator is
// attached and both agents have identified.
func (s *MatchSession) maybeStartLocked() {
	if s.status != models.MatchStatusConnecting || s.forwarder == nil {
		return
	}
	for _, st := range s.seats {
		if !st.connected {
			return
		}
	}

	s.status = models.MatchStatusRunning
	s.startedAt = s.now()
	if s.connectTimer != nil {
		s.connectTimer.Stop()
	}
	s.gameTimer = time.AfterFunc(s.gameTimeout(), s.onGameTimeout)

	payload := &wire.GameStartPayload{
		MatchID:   s.ID,
		Map:       models.MapInfo{Name: s.MapName},
		Mode:      s.Mode,
		Settings:  s.gameSettings(),
		StartedAt: s.startedAt,
	}
	for _, id := range s.order {
		st := s.seats[id]
		payload.Players = append(payload.Players, wire.GameStartPlayer{
			AgentID:     st.agentID,
			DisplayName: st.displayName,
			Faction:     st.faction,
			Rating:      st.profile.Global,
		})
	}
	s.broadcastLocked(wire.FrameGameStart, payload)
	slog.Info("Match running", "match_id", s.ID, "map", s.MapName, "mode", s.Mode)
}

// gameSettings flattens the mode config for the setup frames.
func (s *MatchSession) gameSettings() wire.GameSettings {
	if s.modeCfg == nil {
		return wire.GameSettings{}
	}
	return wire.GameSettings{
		GameSpeed:    string(s.modeCfg.GameSpeed),
		TechLevel:    string(s.modeCfg.TechLevel),
		StartingCash: s.modeCfg.StartingCash,
		FogOfWar:     s.modeCfg.FogOfWar,
		Shroud:       s.modeCfg.Shroud,
	}
}

func (s *MatchSession) gameTimeout() time.Duration {
	if s.modeCfg != nil && s.modeCfg.GameTimeout > 0 {
		return s.modeCfg.GameTimeout
	}
	return s.cfg.GameTimeout
}

// HandleSnapshot fans one authoritative tick out to both agents (filtered)
// and all spectators (full). Stale or duplicate ticks are dropped so every
// recipient observes a strictly monotonic tick sequence.
func (s *MatchSession) HandleSnapshot(snap *models.StateSnapshot) {
	snap.Normalize()

	s.mu.Lock()
	if s.status != models.MatchStatusRunning {
		s.mu.Unlock()
		return
	}
	if s.seenTick && snap.Tick <= s.lastTick {
		slog.Warn("Dropping non-monotonic snapshot",
			"match_id", s.ID, "tick", snap.Tick, "last_tick", s.lastTick)
		s.mu.Unlock()
		return
	}
	s.lastTick = snap.Tick
	s.seenTick = true

	var evicted *seat
	for _, id := range s.order {
		st := s.seats[id]
		view, err := fog.Enforce(snap, st.agentID, st.frozen)
		if err != nil {
			s.mu.Unlock()
			s.EscalateError(fmt.Sprintf("fog enforcement failed: %v", err))
			return
		}
		st.lastView = view

		ok := s.send(st.recipient, wire.FrameStateUpdate, &wire.StateUpdatePayload{
			Tick:     snap.Tick,
			GameTime: snap.GameTime,
			View:     view,
		})
		if !ok && evicted == nil {
			evicted = st
		}
	}

	if len(s.spectators) > 0 {
		frame, err := wire.Encode(wire.FrameStateUpdate, &wire.StateUpdatePayload{
			Tick:     snap.Tick,
			GameTime: snap.GameTime,
			Snapshot: snap,
		})
		if err == nil {
			for id, r := range s.spectators {
				if !r.offer(frame) {
					delete(s.spectators, id)
					r.close()
					s.countEviction(RecipientSpectator)
				}
			}
		}
	}

	if s.metrics != nil {
		s.metrics.TicksFanned.Inc()
	}
	s.mu.Unlock()

	if s.emitTicks && s.publisher != nil {
		go func(tick int64) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := s.publisher.PublishTick(ctx, events.TickEventPayload{
				MatchID:   s.ID,
				Tick:      tick,
				EventKind: "snapshot",
			})
			if err != nil {
				slog.Error("Failed to publish tick event",
					"match_id", s.ID, "tick", tick, "error", err)
			}
		}(snap.Tick)
	}

	if evicted != nil {
		s.countEviction(RecipientAgent)
		slog.Warn("Agent evicted on fan-out overflow",
			"match_id", s.ID, "agent_id", evicted.agentID)
		s.finish(s.opponentOf(evicted.agentID), false, models.ReasonOpponentDisconnect)
	}
}

// HandleOrders validates one order batch and forwards the admitted part to
// the simulator. Batches from the same agent are serialized; violations are
// reported back and high-severity ones count against the forfeit budget.
func (s *MatchSession) HandleOrders(agentID string, batch []models.Order) error {
	st, err := s.seatFor(agentID)
	if err != nil {
		return err
	}

	st.orderMu.Lock()
	defer st.orderMu.Unlock()

	s.mu.Lock()
	if s.status != models.MatchStatusRunning {
		s.mu.Unlock()
		return ErrSessionTerminal
	}
	view := st.lastView
	s.mu.Unlock()

	if view == nil {
		return ErrNoViewYet
	}

	res := s.validator.ValidateBatch(s.ID, agentID, batch, view, st.tracker)

	s.mu.Lock()
	if len(res.Violations) > 0 {
		infos := make([]wire.ViolationInfo, 0, len(res.Violations))
		for _, v := range res.Violations {
			infos = append(infos, wire.ViolationInfo{
				Code:       string(v.Code),
				Message:    v.Message,
				OrderIndex: v.OrderIndex,
				Severity:   string(v.Severity),
			})
			if s.metrics != nil {
				s.metrics.OrdersRejected.WithLabelValues(string(v.Code)).Inc()
			}
		}
		s.send(st.recipient, wire.FrameOrderViolations, &wire.OrderViolationsPayload{
			Tick:       s.lastTick,
			Admitted:   len(res.Admitted),
			Violations: infos,
		})
	}
	st.violations += res.HighSeverity
	overBudget := st.violations >= s.cfg.ViolationBudget
	forwarder := s.forwarder
	if s.metrics != nil && len(res.Admitted) > 0 {
		s.metrics.OrdersAdmitted.Add(float64(len(res.Admitted)))
	}
	s.mu.Unlock()

	if overBudget {
		slog.Warn("Agent forfeited on violation budget",
			"match_id", s.ID, "agent_id", agentID, "violations", st.violations)
		s.finish(s.opponentOf(agentID), false, models.ReasonViolationForfeit)
		return nil
	}

	if len(res.Admitted) == 0 || forwarder == nil {
		return nil
	}

	fwd := make([]models.ForwardedOrder, 0, len(res.Admitted))
	for _, o := range res.Admitted {
		fwd = append(fwd, models.ForwardedOrder{PlayerID: agentID, Order: o})
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SimulatorCallTimeout)
	defer cancel()
	if err := forwarder.ForwardOrders(ctx, fwd); err != nil {
		s.EscalateError(fmt.Sprintf("order forward failed: %v", err))
		return err
	}
	return nil
}

// HandleGetState answers an explicit state pull with the agent's most
// recent filtered view.
func (s *MatchSession) HandleGetState(agentID string) error {
	st, err := s.seatFor(agentID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st.lastView == nil {
		return ErrNoViewYet
	}
	s.send(st.recipient, wire.FrameStateResponse, &wire.StateUpdatePayload{
		Tick:     st.lastView.Tick,
		GameTime: st.lastView.GameTime,
		View:     st.lastView,
	})
	return nil
}

// HandleChat length-caps a chat line and fans it out verbatim to both
// agents and all spectators. Chat bypasses the APM limiter.
func (s *MatchSession) HandleChat(agentID, message string) error {
	st, err := s.seatFor(agentID)
	if err != nil {
		return err
	}
	if runes := []rune(message); len(runes) > s.cfg.ChatMaxLen {
		message = string(runes[:s.cfg.ChatMaxLen])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return ErrSessionTerminal
	}
	s.broadcastLocked(wire.FrameChat, &wire.ChatBroadcastPayload{
		From:    st.displayName,
		Message: message,
		Tick:    s.lastTick,
	})
	return nil
}

// HandleCommentary forwards simulator commentary to spectators.
func (s *MatchSession) HandleCommentary(text string, tick int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	frame, err := wire.Encode(wire.FrameCommentary, &wire.CommentaryPayload{Text: text, Tick: tick})
	if err != nil {
		return
	}
	for id, r := range s.spectators {
		if !r.offer(frame) {
			delete(s.spectators, id)
			r.close()
			s.countEviction(RecipientSpectator)
		}
	}
}

// HandleSurrender ends a running match with the opponent as winner.
func (s *MatchSession) HandleSurrender(agentID string) error {
	if _, err := s.seatFor(agentID); err != nil {
		return err
	}
	if s.Status() != models.MatchStatusRunning {
		return ErrSessionTerminal
	}
	slog.Info("Agent surrendered", "match_id", s.ID, "agent_id", agentID)
	s.finish(s.opponentOf(agentID), false, models.ReasonSurrender)
	return nil
}

// HandleGameEnd records the simulator's natural game end.
// An empty winner id is a draw.
func (s *MatchSession) HandleGameEnd(winnerID string) {
	s.finish(winnerID, winnerID == "", models.ReasonGameEnd)
}

// HandleDisconnect reacts to a mid-stream connection loss. In running, the
// opponent wins by default; while connecting, the seat reopens and the
// connect deadline keeps running.
func (s *MatchSession) HandleDisconnect(agentID string) {
	st, err := s.seatFor(agentID)
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return
	}
	running := s.status == models.MatchStatusRunning
	st.connected = false
	if st.recipient != nil {
		st.recipient.close()
		st.recipient = nil
	}
	s.mu.Unlock()

	slog.Info("Agent disconnected", "match_id", s.ID, "agent_id", agentID, "running", running)
	if running {
		s.finish(s.opponentOf(agentID), false, models.ReasonOpponentDisconnect)
	}
}

// CancelPreMatch cancels a session that has not started running.
// No rating is applied.
func (s *MatchSession) CancelPreMatch(reason string) {
	s.mu.Lock()
	if s.status.Terminal() || s.status == models.MatchStatusRunning {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.terminate(models.MatchStatusCancelled, "", false, reason)
}

// EscalateError moves the session to error from any state. No rating is
// applied.
func (s *MatchSession) EscalateError(reason string) {
	slog.Error("Session escalated to error", "match_id", s.ID, "reason", reason)
	s.terminate(models.MatchStatusError, "", false, models.ReasonSimulatorFault+": "+reason)
}

// finish completes a running match with a winner (or a draw) and applies
// ratings for rated modes.
func (s *MatchSession) finish(winnerID string, draw bool, reason string) {
	s.terminate(models.MatchStatusCompleted, winnerID, draw, reason)
}

func (s *MatchSession) onConnectDeadline() {
	s.mu.Lock()
	if s.status != models.MatchStatusConnecting {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	slog.Warn("Connect deadline expired", "match_id", s.ID)
	s.terminate(models.MatchStatusCancelled, "", false, models.ReasonConnectTimeout)
}

func (s *MatchSession) onGameTimeout() {
	if s.Status() != models.MatchStatusRunning {
		return
	}
	slog.Info("Game timed out, ending as draw", "match_id", s.ID)
	s.terminate(models.MatchStatusCompleted, "", true, models.ReasonGameTimeout)
}

// terminate finalizes the session exactly once: status, ratings, farewell
// frames in order, recipient closure, event emission, terminal callback.
func (s *MatchSession) terminate(status models.MatchStatus, winnerID string, draw bool, reason string) {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.winnerID = winnerID
	s.draw = draw
	s.reason = reason
	s.endedAt = s.now()
	if s.connectTimer != nil {
		s.connectTimer.Stop()
	}
	if s.gameTimer != nil {
		s.gameTimer.Stop()
	}

	if status == models.MatchStatusCompleted && s.Mode.Rated() {
		s.deltas = s.computeRatingsLocked(winnerID, draw)
	}

	s.farewellLocked()

	record := s.recordLocked()
	publisher := s.publisher
	cb := s.terminalCb
	if s.metrics != nil {
		s.metrics.SessionsTotal.WithLabelValues(string(status)).Inc()
	}
	s.mu.Unlock()

	if publisher != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			var err error
			if status == models.MatchStatusCompleted {
				err = publisher.PublishMatchEnded(ctx, events.MatchEndedPayload{Record: record})
			} else {
				err = publisher.PublishMatchCancelled(ctx, events.MatchCancelledPayload{
					MatchID: record.MatchID, Mode: record.Mode,
					Reason: record.TerminationReason, CancelledAt: record.EndedAt,
				})
			}
			if err != nil {
				slog.Error("Failed to publish match event",
					"match_id", record.MatchID, "error", err)
			}
		}()
	}

	if cb != nil {
		cb(s)
	}
}

// farewellLocked queues the ordered terminal frame for every recipient and
// closes all queues. Pending frames are flushed by the writers.
func (s *MatchSession) farewellLocked() {
	durationSecs := 0
	if !s.startedAt.IsZero() {
		durationSecs = int(s.endedAt.Sub(s.startedAt).Seconds())
	}

	for _, st := range s.seats {
		if st.recipient == nil {
			continue
		}
		if s.status == models.MatchStatusCompleted {
			result := wire.ResultDraw
			if !s.draw {
				result = wire.ResultDefeat
				if st.agentID == s.winnerID {
					result = wire.ResultVictory
				}
			}
			payload := &wire.GameEndPayload{
				MatchID:      s.ID,
				Result:       result,
				WinnerID:     s.winnerID,
				Draw:         s.draw,
				Reason:       s.reason,
				DurationSecs: durationSecs,
			}
			if delta, ok := s.deltas[st.agentID]; ok {
				payload.EloChange = &delta
			}
			s.send(st.recipient, wire.FrameGameEnd, payload)
		} else {
			s.send(st.recipient, wire.FrameMatchCancelled, &wire.MatchCancelledPayload{
				MatchID: s.ID,
				Reason:  s.reason,
			})
		}
		st.recipient.close()
		st.recipient = nil
	}

	var frameType wire.FrameType
	var payload any
	if s.status == models.MatchStatusCompleted {
		frameType = wire.FrameGameEnd
		payload = &wire.GameEndPayload{
			MatchID:      s.ID,
			WinnerID:     s.winnerID,
			Draw:         s.draw,
			Reason:       s.reason,
			DurationSecs: durationSecs,
		}
	} else {
		frameType = wire.FrameMatchCancelled
		payload = &wire.MatchCancelledPayload{MatchID: s.ID, Reason: s.reason}
	}
	frame, err := wire.Encode(frameType, payload)
	for id, r := range s.spectators {
		if err == nil {
			r.offer(frame)
		}
		delete(s.spectators, id)
		r.close()
	}
}

// computeRatingsLocked applies the Elo engine. On a draw the pairing order
// decides the positional winner/loser inputs.
func (s *MatchSession) computeRatingsLocked(winnerID string, draw bool) map[string]models.RatingDelta {
	winID, loseID := s.order[0], s.order[1]
	if !draw && winnerID == s.order[1] {
		winID, loseID = s.order[1], s.order[0]
	}
	win, lose := s.seats[winID], s.seats[loseID]

	res := s.ratings.Compute(rating.Outcome{
		Winner: rating.PlayerInput{
			AgentID:    win.agentID,
			Rating:     win.profile.Global,
			ModeRating: win.profile.ModeRating(s.Mode),
			PeakRating: win.profile.Peak,
			Games:      win.profile.Record.Games(),
		},
		Loser: rating.PlayerInput{
			AgentID:    lose.agentID,
			Rating:     lose.profile.Global,
			ModeRating: lose.profile.ModeRating(s.Mode),
			PeakRating: lose.profile.Peak,
			Games:      lose.profile.Record.Games(),
		},
		Mode: s.Mode,
		Draw: draw,
	})
	return map[string]models.RatingDelta{
		res.Winner.AgentID: res.Winner,
		res.Loser.AgentID:  res.Loser,
	}
}

func (s *MatchSession) recordLocked() models.MatchRecord {
	factions := make(map[string]models.Faction, 2)
	for id, st := range s.seats {
		factions[id] = st.faction
	}
	duration := time.Duration(0)
	if !s.startedAt.IsZero() {
		duration = s.endedAt.Sub(s.startedAt)
	}
	return models.MatchRecord{
		MatchID:           s.ID,
		Mode:              s.Mode,
		AgentA:            s.order[0],
		AgentB:            s.order[1],
		Factions:          factions,
		Map:               s.MapName,
		WinnerID:          s.winnerID,
		Draw:              s.draw,
		Duration:          duration,
		RatingDeltas:      s.deltas,
		TerminationReason: s.reason,
		StartedAt:         s.startedAt,
		EndedAt:           s.endedAt,
	}
}

// broadcastLocked queues a frame for both agents and all spectators.
func (s *MatchSession) broadcastLocked(t wire.FrameType, payload any) {
	frame, err := wire.Encode(t, payload)
	if err != nil {
		slog.Error("Failed to encode frame", "match_id", s.ID, "type", t, "error", err)
		return
	}
	for _, st := range s.seats {
		if st.recipient != nil {
			st.recipient.offer(frame)
		}
	}
	for id, r := range s.spectators {
		if !r.offer(frame) {
			delete(s.spectators, id)
			r.close()
			s.countEviction(RecipientSpectator)
		}
	}
}

// send encodes and offers one frame to a single recipient. Returns false
// when the recipient is gone or refused the frame.
func (s *MatchSession) send(r *Recipient, t wire.FrameType, payload any) bool {
	if r == nil {
		return false
	}
	frame, err := wire.Encode(t, payload)
	if err != nil {
		slog.Error("Failed to encode frame", "match_id", s.ID, "type", t, "error", err)
		return false
	}
	return r.offer(frame)
}

func (s *MatchSession) seatFor(agentID string) (*seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.seats[agentID]
	if !ok {
		return nil, ErrNotParticipant
	}
	return st, nil
}

// opponentOf returns the other seat's agent id.
func (s *MatchSession) opponentOf(agentID string) string {
	if s.order[0] == agentID {
		return s.order[1]
	}
	return s.order[0]
}

func (s *MatchSession) countEviction(kind RecipientKind) {
	if s.metrics != nil {
		s.metrics.RecipientEvicted.WithLabelValues(string(kind)).Inc()
	}
}
