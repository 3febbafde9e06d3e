package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/gunturachievement/socket-io-roconal/internal/config"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "realtime-server"

// Hub is the subset of hub operations the server depends on. Keeping it an
// interface lets handler tests swap in a per-test instance.
type Hub interface {
	Register(sessionID uuid.UUID, conn *websocket.Conn) error
	Unregister(sessionID uuid.UUID)
	Join(sessionID uuid.UUID, room string)
	Leave(sessionID uuid.UUID, room string)
	Broadcast(event, room string, data json.RawMessage) bool
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	hub         Hub
	redisClient *goredis.Client
}

func NewServer(cfg *config.Config, h Hub, redisClient *goredis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = errorHandler

	srv := &Server{
		echo:        e,
		config:      cfg,
		hub:         h,
		redisClient: redisClient,
	}

	srv.registerRoutes()

	return srv
}

// errorHandler converts every unhandled error into the relay's JSON error
// envelope. Unexpected failures surface as a 500, never as a crash.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if code != http.StatusInternalServerError {
			if m, ok := httpErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		}
	}

	if code == http.StatusInternalServerError {
		slog.Error("Unhandled request error", "path", c.Request().URL.Path, "error", err)
	}

	if jsonErr := c.JSON(code, echo.Map{"ok": false, "message": message}); jsonErr != nil {
		slog.Error("Failed to write error response", "error", jsonErr)
	}
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
