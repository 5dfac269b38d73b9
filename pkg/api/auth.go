package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jediswimmer/ironcurtain/pkg/models"
	"github.com/jediswimmer/ironcurtain/pkg/registry"
)

// agentContextKey is the gin context key the auth middleware stores the
// resolved agent under.
const agentContextKey = "arena.agent"

// requireAgent authenticates the request's bearer API key against the agent
// directory and stores the resolved agent in the context.
func (s *Server) requireAgent() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := bearerToken(c.GetHeader("Authorization"))
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer API key"})
			return
		}

		agent, err := s.directory.Lookup(c.Request.Context(), apiKey)
		if err != nil {
			switch {
			case errors.Is(err, registry.ErrUnknownAgent):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown API key"})
			case errors.Is(err, registry.ErrAgentSuspended):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "agent is suspended"})
			default:
				slog.Error("Agent directory lookup failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
			return
		}

		c.Set(agentContextKey, agent)
		c.Next()
	}
}

// currentAgent returns the agent the auth middleware resolved.
func currentAgent(c *gin.Context) *models.Agent {
	v, ok := c.Get(agentContextKey)
	if !ok {
		return nil
	}
	agent, _ := v.(*models.Agent)
	return agent
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
