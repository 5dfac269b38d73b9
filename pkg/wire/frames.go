// Package wire defines the JSON frame protocol spoken on every arena
// WebSocket: agent connections, spectator connections, and the simulator
// bridge. A frame is an envelope carrying a type discriminator and a raw
// payload; payload structs are defined per frame type.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jediswimmer/ironcurtain/pkg/models"
)

// FrameType discriminates envelope payloads.
type FrameType string

// Agent → arena frames.
const (
	FrameIdentify  FrameType = "identify"
	FrameOrders    FrameType = "orders"
	FrameGetState  FrameType = "get_state"
	FrameChat      FrameType = "chat"
	FrameSurrender FrameType = "surrender"
)

// Arena → agent / spectator frames.
const (
	FrameConnected       FrameType = "connected"
	FrameGameStart       FrameType = "game_start"
	FrameStateUpdate     FrameType = "state_update"
	FrameStateResponse   FrameType = "state_response"
	FrameOrderViolations FrameType = "order_violations"
	FrameGameEnd         FrameType = "game_end"
	FrameMatchCancelled  FrameType = "match_cancelled"
	FrameCommentary      FrameType = "commentary"
	FrameError           FrameType = "error"
)

// Simulator bridge frames.
const (
	FrameStateSnapshot FrameType = "state_snapshot"
	FrameOrderForward  FrameType = "order_forward"
	FrameOrderAck      FrameType = "order_ack"
)

var (
	// ErrUnknownFrameType indicates an envelope with a type the receiver
	// does not handle.
	ErrUnknownFrameType = errors.New("unknown frame type")

	// ErrMalformedFrame indicates an envelope that failed to parse.
	ErrMalformedFrame = errors.New("malformed frame")
)

// Envelope is the outer structure of every frame.
type Envelope struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals a payload into a complete frame. A nil payload produces
// an envelope with the type alone.
func Encode(t FrameType, payload any) ([]byte, error) {
	env := Envelope{Type: t}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", t, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// DecodeEnvelope parses the outer envelope without touching the payload.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return &env, nil
}

// DecodePayload unmarshals the envelope payload into v.
func (e *Envelope) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s frame has no payload", ErrMalformedFrame, e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedFrame, e.Type, err)
	}
	return nil
}

// IdentifyPayload binds a fresh agent connection to a pending match seat.
type IdentifyPayload struct {
	AgentID string `json:"agent_id"`
	APIKey  string `json:"api_key"`
	MatchID string `json:"match_id"`
}

// OrdersPayload is one order batch submitted by an agent.
type OrdersPayload struct {
	Orders []models.Order `json:"orders"`
}

// ChatPayload is an agent chat line, fanned out to the opponent and
// spectators after length capping.
type ChatPayload struct {
	Message string `json:"message"`
}

// GameSettings is the mode's game configuration, passed through to agents
// and the simulator at match setup.
type GameSettings struct {
	GameSpeed    string `json:"game_speed"`
	TechLevel    string `json:"tech_level"`
	StartingCash int    `json:"starting_cash"`
	FogOfWar     bool   `json:"fog_of_war"`
	Shroud       bool   `json:"shroud"`
}

// ConnectedPayload acknowledges a successful identify.
type ConnectedPayload struct {
	MatchID  string         `json:"match_id"`
	AgentID  string         `json:"agent_id"`
	Faction  models.Faction `json:"faction"`
	Opponent string         `json:"opponent"`
	Map      string         `json:"map"`
	Mode     models.Mode    `json:"mode"`
	Settings GameSettings   `json:"settings"`
}

// GameStartPlayer describes one seat in a game_start frame.
type GameStartPlayer struct {
	AgentID     string         `json:"agent_id"`
	DisplayName string         `json:"display_name"`
	Faction     models.Faction `json:"faction"`
	Rating      int            `json:"rating"`
}

// GameStartPayload announces that both agents connected and the simulator
// launched the game.
type GameStartPayload struct {
	MatchID   string            `json:"match_id"`
	Map       models.MapInfo    `json:"map"`
	Mode      models.Mode       `json:"mode"`
	Settings  GameSettings      `json:"settings"`
	Players   []GameStartPlayer `json:"players"`
	StartedAt time.Time         `json:"started_at"`
}

// StateUpdatePayload carries one tick's state to a recipient. Agents
// receive their fog-filtered view; spectators receive the full snapshot.
type StateUpdatePayload struct {
	Tick     int64                 `json:"tick"`
	GameTime string                `json:"game_time"`
	View     *models.FilteredView  `json:"view,omitempty"`
	Snapshot *models.StateSnapshot `json:"snapshot,omitempty"`
}

// ViolationInfo is the wire form of a single order violation.
type ViolationInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	OrderIndex int    `json:"order_index"`
	Severity   string `json:"severity"`
}

// OrderViolationsPayload reports the rejected portion of an order batch.
type OrderViolationsPayload struct {
	Tick       int64           `json:"tick"`
	Admitted   int             `json:"admitted"`
	Violations []ViolationInfo `json:"violations"`
}

// Result values carried in game_end frames. Victory and defeat are
// per-recipient; spectators always receive the winner id instead.
const (
	ResultVictory = "victory"
	ResultDefeat  = "defeat"
	ResultDraw    = "draw"
)

// GameEndPayload is the terminal frame of a completed match.
type GameEndPayload struct {
	MatchID      string              `json:"match_id"`
	Result       string              `json:"result,omitempty"`
	WinnerID     string              `json:"winner_id,omitempty"`
	Draw         bool                `json:"draw,omitempty"`
	Reason       string              `json:"reason"`
	DurationSecs int                 `json:"duration_secs"`
	EloChange    *models.RatingDelta `json:"elo_change,omitempty"`
}

// MatchCancelledPayload is the terminal frame of a match that never ran.
type MatchCancelledPayload struct {
	MatchID string `json:"match_id"`
	Reason  string `json:"reason"`
}

// ChatBroadcastPayload is a fanned-out chat line. It travels under the
// same `chat` frame type as the inbound agent form; direction decides
// the payload shape.
type ChatBroadcastPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
	Tick    int64  `json:"tick"`
}

// CommentaryPayload is simulator-generated commentary passed through to
// spectators.
type CommentaryPayload struct {
	Text string `json:"text"`
	Tick int64  `json:"tick"`
}

// ErrorPayload reports a protocol-level failure to the peer before the
// connection is closed or the frame is dropped.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateSnapshotPayload is the simulator's authoritative per-tick state.
type StateSnapshotPayload struct {
	Snapshot *models.StateSnapshot `json:"snapshot"`
}

// OrderForwardPayload relays admitted orders to the simulator. Seq is
// echoed back in the matching order_ack.
type OrderForwardPayload struct {
	Seq    int64                   `json:"seq"`
	Orders []models.ForwardedOrder `json:"orders"`
}

// OrderAckPayload confirms the simulator applied a forwarded batch.
type OrderAckPayload struct {
	Seq int64 `json:"seq"`
}
