// Package api exposes the arena over HTTP: the REST queue and match
// endpoints, the Prometheus scrape handler, and the three WebSocket
// surfaces (agent, spectator, simulator).
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jediswimmer/ironcurtain/pkg/config"
	"github.com/jediswimmer/ironcurtain/pkg/matchmaker"
	"github.com/jediswimmer/ironcurtain/pkg/metrics"
	"github.com/jediswimmer/ironcurtain/pkg/registry"
	"github.com/jediswimmer/ironcurtain/pkg/session"
)

const (
	// identifyTimeout bounds how long a fresh WebSocket may sit silent
	// before its identify frame arrives.
	identifyTimeout = 10 * time.Second

	// writeTimeout bounds each outbound WebSocket write.
	writeTimeout = 10 * time.Second

	// shutdownTimeout bounds graceful HTTP shutdown.
	shutdownTimeout = 10 * time.Second
)

// Server wires the HTTP surface to the arena components.
type Server struct {
	arena     *config.Config
	directory registry.Directory
	mm        *matchmaker.Matchmaker
	sessions  *session.Manager
	metrics   *metrics.Metrics
}

// NewServer creates the API server. The metrics parameter may be nil; the
// /metrics endpoint is then omitted.
func NewServer(arena *config.Config, directory registry.Directory, mm *matchmaker.Matchmaker, sessions *session.Manager, m *metrics.Metrics) *Server {
	return &Server{
		arena:     arena,
		directory: directory,
		mm:        mm,
		sessions:  sessions,
		metrics:   m,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.Health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	{
		authed := v1.Group("", s.requireAgent())
		authed.POST("/queue", s.EnqueueAgent)
		authed.GET("/queue/:mode", s.QueryQueue)
		authed.DELETE("/queue/:mode", s.CancelQueue)

		v1.GET("/matches", s.ListMatches)
		v1.GET("/matches/:id", s.GetMatch)
		v1.GET("/matches/:id/violations", s.GetMatchViolations)
	}

	return r
}

// Handler combines the gin routes with the WebSocket endpoints. The latter
// sit on a plain ServeMux because websocket.Accept hijacks the connection,
// which gin's response writer does not allow.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/agent", s.AgentWS)
	mux.HandleFunc("GET /ws/spectate/{match_id}", s.SpectateWS)
	mux.HandleFunc("GET /ws/simulator/{match_id}", s.SimulatorWS)
	mux.Handle("/", s.Router())
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return g.Wait()
}

// Health handles GET /healthz.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"active_sessions": len(s.sessions.List()),
	})
}
