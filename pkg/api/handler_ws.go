package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/jediswimmer/ironcurtain/pkg/session"
	"github.com/jediswimmer/ironcurtain/pkg/sim"
	"github.com/jediswimmer/ironcurtain/pkg/wire"
)

// The WebSocket endpoints are served off a plain http.ServeMux rather than
// gin: websocket.Accept must hijack the raw http.ResponseWriter, and gin's
// wrapped writer does not support hijacking.

// AgentWS handles GET /ws/agent. The first frame must be an identify
// binding the connection to a seat; after that the connection carries the
// agent's full match traffic.
func (s *Server) AgentWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.arena.AllowedWSOrigins,
	})
	if err != nil {
		slog.Warn("Agent WebSocket upgrade failed", "error", err)
		return
	}

	ctx := r.Context()
	identify, err := s.readIdentify(ctx, conn)
	if err != nil {
		s.refuse(conn, "identify_failed", err.Error())
		return
	}

	agent, err := s.directory.Lookup(ctx, identify.APIKey)
	if err != nil {
		s.refuse(conn, "auth_failed", "invalid credentials")
		return
	}
	if agent.ID != identify.AgentID {
		s.refuse(conn, "auth_failed", "api key does not belong to this agent")
		return
	}

	// match_id is optional: without it the agent's own pending match is
	// looked up.
	var sess *session.MatchSession
	var ok bool
	if identify.MatchID != "" {
		sess, ok = s.sessions.Get(identify.MatchID)
	} else {
		sess, ok = s.sessions.FindForAgent(agent.ID)
	}
	if !ok {
		s.refuse(conn, "unknown_match", "no such match")
		return
	}

	rec, err := sess.Identify(agent.ID)
	if err != nil {
		s.refuse(conn, "identify_failed", err.Error())
		return
	}

	slog.Info("Agent WebSocket established",
		"match_id", sess.ID, "agent_id", agent.ID)

	go s.writePump(conn, rec)
	s.agentReadLoop(ctx, conn, sess, agent.ID)
}

// agentReadLoop dispatches inbound agent frames until the connection drops.
func (s *Server) agentReadLoop(ctx context.Context, conn *websocket.Conn, sess *session.MatchSession, agentID string) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			sess.HandleDisconnect(agentID)
			return
		}

		env, err := wire.DecodeEnvelope(data)
		if err != nil {
			slog.Warn("Malformed agent frame",
				"match_id", sess.ID, "agent_id", agentID, "error", err)
			continue
		}

		switch env.Type {
		case wire.FrameOrders:
			var p wire.OrdersPayload
			if err := env.DecodePayload(&p); err != nil {
				slog.Warn("Bad orders payload", "match_id", sess.ID, "agent_id", agentID, "error", err)
				continue
			}
			if err := sess.HandleOrders(agentID, p.Orders); err != nil {
				if errors.Is(err, session.ErrSessionTerminal) {
					return
				}
				slog.Warn("Order batch refused",
					"match_id", sess.ID, "agent_id", agentID, "error", err)
			}

		case wire.FrameGetState:
			if err := sess.HandleGetState(agentID); err != nil {
				slog.Warn("State pull refused",
					"match_id", sess.ID, "agent_id", agentID, "error", err)
			}

		case wire.FrameChat:
			var p wire.ChatPayload
			if err := env.DecodePayload(&p); err != nil {
				continue
			}
			if err := sess.HandleChat(agentID, p.Message); err != nil {
				return
			}

		case wire.FrameSurrender:
			if err := sess.HandleSurrender(agentID); err == nil {
				return
			}

		default:
			slog.Warn("Unexpected agent frame",
				"match_id", sess.ID, "agent_id", agentID, "type", env.Type)
		}
	}
}

// SpectateWS handles GET /ws/spectate/{match_id}. Spectators are read-only:
// inbound frames are discarded, the connection exists to drain fan-out.
func (s *Server) SpectateWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("match_id"))
	if !ok {
		notFound(w, "match not found")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.arena.AllowedWSOrigins,
	})
	if err != nil {
		slog.Warn("Spectator WebSocket upgrade failed", "error", err)
		return
	}

	specID := uuid.New().String()
	rec, err := sess.AttachSpectator(specID)
	if err != nil {
		s.refuse(conn, "match_over", err.Error())
		return
	}
	defer sess.DetachSpectator(specID)

	slog.Info("Spectator attached", "match_id", sess.ID, "spectator_id", specID)

	go s.writePump(conn, rec)
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// SimulatorWS handles GET /ws/simulator/{match_id}. One simulator per match;
// the bridge owns the connection for the rest of the session.
func (s *Server) SimulatorWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("match_id"))
	if !ok {
		notFound(w, "match not found")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.arena.AllowedWSOrigins,
	})
	if err != nil {
		slog.Warn("Simulator WebSocket upgrade failed", "error", err)
		return
	}

	bridge := sim.NewBridge(conn)
	if err := sess.AttachSimulator(bridge); err != nil {
		s.refuse(conn, "attach_failed", err.Error())
		return
	}

	slog.Info("Simulator attached via WebSocket", "match_id", sess.ID)
	bridge.Run(r.Context(), sess.ID, sess)
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// readIdentify reads and validates the mandatory first frame.
func (s *Server) readIdentify(ctx context.Context, conn *websocket.Conn) (*wire.IdentifyPayload, error) {
	readCtx, cancel := context.WithTimeout(ctx, identifyTimeout)
	defer cancel()

	_, data, err := conn.Read(readCtx)
	if err != nil {
		return nil, errors.New("no identify frame received")
	}
	env, err := wire.DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if env.Type != wire.FrameIdentify {
		return nil, errors.New("first frame must be identify")
	}
	var p wire.IdentifyPayload
	if err := env.DecodePayload(&p); err != nil {
		return nil, err
	}
	if p.AgentID == "" || p.APIKey == "" {
		return nil, errors.New("identify requires agent_id and api_key")
	}
	return &p, nil
}

// writePump drains a recipient queue onto the socket. It owns all writes
// after identify; a write failure abandons the connection and lets the read
// loop observe the close.
func (s *Server) writePump(conn *websocket.Conn, rec *session.Recipient) {
	for frame := range rec.Frames() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			slog.Warn("WebSocket write failed", "recipient", rec.ID, "error", err)
			return
		}
	}
	// Stream ended by the session: flush done, close cleanly.
	_ = conn.Close(websocket.StatusNormalClosure, "match over")
}

// refuse sends a terminal error frame on a pre-pump connection and closes it.
func (s *Server) refuse(conn *websocket.Conn, code, message string) {
	frame, err := wire.Encode(wire.FrameError, &wire.ErrorPayload{Code: code, Message: message})
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		_ = conn.Write(ctx, websocket.MessageText, frame)
		cancel()
	}
	_ = conn.Close(websocket.StatusPolicyViolation, code)
}

// notFound writes a pre-upgrade JSON 404.
func notFound(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
