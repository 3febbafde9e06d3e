package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(200, echo.Map{"ok": true, "service": ServiceName})
}

// handleReadiness additionally checks the bus connection. The relay stays
// up without Redis (it simply stops receiving bus-sourced events), so this
// is informational for orchestration rather than a liveness gate.
func (s *Server) handleReadiness(c echo.Context) error {
	if s.redisClient == nil {
		return c.JSON(200, echo.Map{"status": "ready"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return c.JSON(503, echo.Map{
			"status":       "unhealthy",
			"failed_check": "redis",
			"error":        err.Error(),
		})
	}

	return c.JSON(200, echo.Map{"status": "ready"})
}
