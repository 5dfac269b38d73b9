package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jediswimmer/ironcurtain/pkg/matchmaker"
	"github.com/jediswimmer/ironcurtain/pkg/models"
)

// EnqueueRequest is the body of POST /api/v1/queue.
type EnqueueRequest struct {
	Mode    models.Mode    `json:"mode" binding:"required"`
	Faction models.Faction `json:"faction"`
}

// QueueStatusResponse is the wire form of a queue position query.
type QueueStatusResponse struct {
	Mode              models.Mode `json:"mode"`
	Position          int         `json:"position"`
	WaitedSecs        int         `json:"waited_secs"`
	EstimatedWaitSecs int         `json:"estimated_wait_secs"`
	CurrentRadius     int         `json:"current_radius"`
}

func queueStatusResponse(mode models.Mode, st *models.QueueStatus) QueueStatusResponse {
	return QueueStatusResponse{
		Mode:              mode,
		Position:          st.Position,
		WaitedSecs:        int(st.WaitedFor.Seconds()),
		EstimatedWaitSecs: int(st.EstimatedWait.Seconds()),
		CurrentRadius:     st.CurrentRadius,
	}
}

// EnqueueAgent handles POST /api/v1/queue.
func (s *Server) EnqueueAgent(c *gin.Context) {
	var req EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Mode.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mode"})
		return
	}
	if req.Faction == "" {
		req.Faction = models.FactionRandom
	}
	if !req.Faction.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown faction"})
		return
	}

	agent := currentAgent(c)

	// Sessions created from this agent's pairings need its full standing.
	s.sessions.RememberAgent(agent)

	err := s.mm.Enqueue(&models.QueueEntry{
		AgentID:     agent.ID,
		DisplayName: agent.DisplayName,
		Rating:      agent.Rating.ModeRating(req.Mode),
		Mode:        req.Mode,
		FactionPref: req.Faction,
	})
	switch {
	case errors.Is(err, matchmaker.ErrAlreadyQueued):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, matchmaker.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if st, ok := s.mm.Query(agent.ID, req.Mode); ok {
		c.JSON(http.StatusAccepted, queueStatusResponse(req.Mode, st))
		return
	}
	c.Status(http.StatusAccepted)
}

// QueryQueue handles GET /api/v1/queue/:mode.
func (s *Server) QueryQueue(c *gin.Context) {
	mode := models.Mode(c.Param("mode"))
	if !mode.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mode"})
		return
	}

	agent := currentAgent(c)
	st, ok := s.mm.Query(agent.ID, mode)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent is not queued in this mode"})
		return
	}
	c.JSON(http.StatusOK, queueStatusResponse(mode, st))
}

// CancelQueue handles DELETE /api/v1/queue/:mode. Cancelling also reaches
// any already-produced pairing whose match has not started.
func (s *Server) CancelQueue(c *gin.Context) {
	mode := models.Mode(c.Param("mode"))
	if !mode.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown mode"})
		return
	}

	agent := currentAgent(c)
	s.mm.Cancel(agent.ID, mode)
	s.sessions.CancelForAgent(agent.ID)
	c.Status(http.StatusNoContent)
}
