package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Internal event push (bearer token, size-bounded body)
	s.echo.POST("/internal/events", s.handlePushEvent, middleware.BodyLimit("256K"))

	// Client-facing realtime channel
	s.echo.GET("/ws", s.handleWebSocket)
}
