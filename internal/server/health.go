package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/auraflow/auraflow"
	"github.com/auraflow/auraflow/pkg/api"
)

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	if err := s.catalog.Ping(c.Request.Context()); err != nil {
		status = "degraded"
	}

	c.JSON(http.StatusOK, api.HealthResponse{
		Service:   auraflow.Name,
		Version:   auraflow.Version,
		Status:    status,
		Sessions:  s.sessions.Count(),
		Timestamp: time.Now(),
	})
}
