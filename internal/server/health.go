package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	s.registry.ListActions()
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleQuit(c *gin.Context) {
	slog.Info("Shutting down reflection API")
	c.String(http.StatusOK, "OK")
	c.Writer.Flush()
	if s.quit != nil {
		s.quit()
	}
}
