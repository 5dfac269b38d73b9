package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jediswimmer/ironcurtain/pkg/config"
	"github.com/jediswimmer/ironcurtain/pkg/matchmaker"
	"github.com/jediswimmer/ironcurtain/pkg/models"
	"github.com/jediswimmer/ironcurtain/pkg/rating"
	"github.com/jediswimmer/ironcurtain/pkg/registry"
	"github.com/jediswimmer/ironcurtain/pkg/session"
	"github.com/jediswimmer/ironcurtain/pkg/wire"
)

type stubForwarder struct{}

func (stubForwarder) ForwardOrders(context.Context, []models.ForwardedOrder) error { return nil }

func newTestServer(t *testing.T) (*Server, *session.Manager, *matchmaker.Matchmaker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	arena := &config.Config{
		Matchmaker: config.DefaultMatchmakerConfig(),
		Session:    config.DefaultSessionConfig(),
		Rating:     config.DefaultRatingConfig(),
		Modes:      config.DefaultModeConfigs(),
		MapPool:    []string{"singles"},
	}
	dir := registry.NewStaticDirectory([]config.StaticAgent{
		{ID: "a1", DisplayName: "RushBot", APIKey: "key-1", Rating: 1600},
		{ID: "a2", DisplayName: "TurtleBot", APIKey: "key-2", Rating: 1400},
		{ID: "a3", DisplayName: "Banned", APIKey: "key-3", Rating: 1500, Suspended: true},
	})
	mgr := session.NewManager(arena, rating.NewEngine(arena.Rating), nil, nil)
	mm := matchmaker.New(arena, nil)
	return NewServer(arena, dir, mm, mgr, nil), mgr, mm
}

func apiPairing() *models.Pairing {
	now := time.Now()
	return &models.Pairing{
		A: &models.QueueEntry{
			AgentID: "a1", DisplayName: "RushBot", Rating: 1600,
			Mode: models.ModeRanked1v1, FactionPref: models.FactionAllies, EnqueuedAt: now,
		},
		B: &models.QueueEntry{
			AgentID: "a2", DisplayName: "TurtleBot", Rating: 1400,
			Mode: models.ModeRanked1v1, FactionPref: models.FactionSoviet, EnqueuedAt: now,
		},
		FactionA: models.FactionAllies,
		FactionB: models.FactionSoviet,
		Map:      "singles",
		Mode:     models.ModeRanked1v1,
		PairedAt: now,
	}
}

func doJSON(t *testing.T, router http.Handler, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestQueueAuth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Handler()

	body := EnqueueRequest{Mode: models.ModeRanked1v1}
	assert.Equal(t, http.StatusUnauthorized,
		doJSON(t, router, http.MethodPost, "/api/v1/queue", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized,
		doJSON(t, router, http.MethodPost, "/api/v1/queue", "wrong", body).Code)
	assert.Equal(t, http.StatusForbidden,
		doJSON(t, router, http.MethodPost, "/api/v1/queue", "key-3", body).Code)
}

func TestEnqueueAndQuery(t *testing.T) {
	srv, _, mm := newTestServer(t)
	router := srv.Handler()

	w := doJSON(t, router, http.MethodPost, "/api/v1/queue", "key-1",
		EnqueueRequest{Mode: models.ModeRanked1v1})
	require.Equal(t, http.StatusAccepted, w.Code)

	var st QueueStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 1, st.Position)
	assert.Equal(t, mm.Depth(models.ModeRanked1v1), 1)

	// Duplicate enqueue in the same mode conflicts.
	w = doJSON(t, router, http.MethodPost, "/api/v1/queue", "key-1",
		EnqueueRequest{Mode: models.ModeRanked1v1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/queue/ranked_1v1", "key-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Not queued in casual.
	w = doJSON(t, router, http.MethodGet, "/api/v1/queue/casual_1v1", "key-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEnqueueRejectsBadInput(t *testing.T) {
	srv, _, _ := newTestServer(t)
	router := srv.Handler()

	w := doJSON(t, router, http.MethodPost, "/api/v1/queue", "key-1",
		EnqueueRequest{Mode: "capture_the_flag"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/queue", "key-1",
		map[string]string{"mode": "ranked_1v1", "faction": "martians"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/queue/warzone", "key-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelQueue(t *testing.T) {
	srv, _, mm := newTestServer(t)
	router := srv.Handler()

	require.Equal(t, http.StatusAccepted,
		doJSON(t, router, http.MethodPost, "/api/v1/queue", "key-1",
			EnqueueRequest{Mode: models.ModeRanked1v1}).Code)

	w := doJSON(t, router, http.MethodDelete, "/api/v1/queue/ranked_1v1", "key-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, mm.Depth(models.ModeRanked1v1))

	// Cancelling an absent entry still succeeds.
	w = doJSON(t, router, http.MethodDelete, "/api/v1/queue/ranked_1v1", "key-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCancelQueueReachesPreMatchSession(t *testing.T) {
	srv, mgr, _ := newTestServer(t)
	router := srv.Handler()

	sess := mgr.CreateSession(apiPairing())
	require.NotNil(t, sess)

	w := doJSON(t, router, http.MethodDelete, "/api/v1/queue/ranked_1v1", "key-1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, models.MatchStatusCancelled, sess.Status())
}

func TestGetMatch(t *testing.T) {
	srv, mgr, _ := newTestServer(t)
	router := srv.Handler()

	assert.Equal(t, http.StatusNotFound,
		doJSON(t, router, http.MethodGet, "/api/v1/matches/nope", "", nil).Code)

	sess := mgr.CreateSession(apiPairing())
	require.NotNil(t, sess)

	w := doJSON(t, router, http.MethodGet, "/api/v1/matches/"+sess.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res session.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, sess.ID, res.MatchID)
	assert.Equal(t, models.MatchStatusPending, res.Status)
	assert.Len(t, res.Agents, 2)

	w = doJSON(t, router, http.MethodGet, "/api/v1/matches", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []session.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestGetMatchViolationsEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/matches/whatever/violations", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"violations"`)
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func wsSend(t *testing.T, ctx context.Context, conn *websocket.Conn, typ wire.FrameType, payload any) {
	t.Helper()
	frame, err := wire.Encode(typ, payload)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, frame))
}

func wsRead(t *testing.T, ctx context.Context, conn *websocket.Conn) *wire.Envelope {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	env, err := wire.DecodeEnvelope(data)
	require.NoError(t, err)
	return env
}

func TestAgentWSIdentify(t *testing.T) {
	srv, mgr, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	sess := mgr.CreateSession(apiPairing())
	require.NotNil(t, sess)
	require.NoError(t, sess.AttachSimulator(stubForwarder{}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts, "/ws/agent"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	wsSend(t, ctx, conn, wire.FrameIdentify, &wire.IdentifyPayload{
		AgentID: "a1", APIKey: "key-1", MatchID: sess.ID,
	})

	env := wsRead(t, ctx, conn)
	require.Equal(t, wire.FrameConnected, env.Type)
	var p wire.ConnectedPayload
	require.NoError(t, env.DecodePayload(&p))
	assert.Equal(t, sess.ID, p.MatchID)
	assert.Equal(t, models.FactionAllies, p.Faction)
	assert.Equal(t, "TurtleBot", p.Opponent)
}

func TestAgentWSIdentifyWithoutMatchID(t *testing.T) {
	srv, mgr, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	sess := mgr.CreateSession(apiPairing())
	require.NotNil(t, sess)
	require.NoError(t, sess.AttachSimulator(stubForwarder{}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts, "/ws/agent"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// No match_id: the agent's own pending match is resolved.
	wsSend(t, ctx, conn, wire.FrameIdentify, &wire.IdentifyPayload{
		AgentID: "a2", APIKey: "key-2",
	})

	env := wsRead(t, ctx, conn)
	require.Equal(t, wire.FrameConnected, env.Type)
	var p wire.ConnectedPayload
	require.NoError(t, env.DecodePayload(&p))
	assert.Equal(t, sess.ID, p.MatchID)
	assert.Equal(t, models.FactionSoviet, p.Faction)
}

func TestAgentWSRejectsWrongKey(t *testing.T) {
	srv, mgr, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	sess := mgr.CreateSession(apiPairing())
	require.NotNil(t, sess)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts, "/ws/agent"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Key belongs to a2, claims to be a1.
	wsSend(t, ctx, conn, wire.FrameIdentify, &wire.IdentifyPayload{
		AgentID: "a1", APIKey: "key-2", MatchID: sess.ID,
	})

	env := wsRead(t, ctx, conn)
	require.Equal(t, wire.FrameError, env.Type)
	var p wire.ErrorPayload
	require.NoError(t, env.DecodePayload(&p))
	assert.Equal(t, "auth_failed", p.Code)
}

func TestAgentWSRequiresIdentifyFirst(t *testing.T) {
	srv, mgr, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	sess := mgr.CreateSession(apiPairing())
	require.NotNil(t, sess)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(ts, "/ws/agent"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	wsSend(t, ctx, conn, wire.FrameChat, &wire.ChatPayload{Message: "gl hf"})

	env := wsRead(t, ctx, conn)
	require.Equal(t, wire.FrameError, env.Type)
}

func TestSpectateWSUnknownMatch(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := doJSON(t, srv.Handler(), http.MethodGet, "/ws/spectate/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
