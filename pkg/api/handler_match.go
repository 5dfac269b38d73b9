package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jediswimmer/ironcurtain/pkg/session"
)

// ListMatches handles GET /api/v1/matches.
func (s *Server) ListMatches(c *gin.Context) {
	sessions := s.sessions.List()
	results := make([]session.Result, 0, len(sessions))
	for _, sess := range sessions {
		results = append(results, sess.Result())
	}
	c.JSON(http.StatusOK, results)
}

// GetMatch handles GET /api/v1/matches/:id.
func (s *Server) GetMatch(c *gin.Context) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	c.JSON(http.StatusOK, sess.Result())
}

// GetMatchViolations handles GET /api/v1/matches/:id/violations. Known to
// return an empty list for matches with no audited violations, including
// matches the registry has already forgotten.
func (s *Server) GetMatchViolations(c *gin.Context) {
	events := s.sessions.Violations(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{
		"match_id":   c.Param("id"),
		"violations": events,
	})
}
