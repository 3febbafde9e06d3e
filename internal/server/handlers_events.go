package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gunturachievement/socket-io-roconal/internal/correlation"
	"github.com/gunturachievement/socket-io-roconal/internal/domain"
	"github.com/gunturachievement/socket-io-roconal/internal/metrics"
)

const invalidPayloadMessage = "Invalid payload. Field 'event' is required."

// handlePushEvent accepts one event envelope synchronously and hands it to
// the hub. Authorization compares the bearer credential against the
// configured internal token; when no token is configured the endpoint is
// open (main logs that loudly at startup).
func (s *Server) handlePushEvent(c echo.Context) error {
	ctx := correlation.WithID(c.Request().Context(), correlation.NewID())

	if s.config.InternalEventsToken != "" {
		credential := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if subtle.ConstantTimeCompare([]byte(credential), []byte(s.config.InternalEventsToken)) != 1 {
			metrics.PushRequestsTotal.WithLabelValues("401").Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"ok": false, "message": "Unauthorized"})
		}
	}

	var envelope domain.Envelope
	if err := c.Bind(&envelope); err != nil {
		slog.DebugContext(ctx, "Rejecting unparseable push payload", "error", err)
		metrics.PushRequestsTotal.WithLabelValues("422").Inc()
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"ok": false, "message": invalidPayloadMessage})
	}

	if !s.hub.Broadcast(envelope.Event, envelope.Room, envelope.Data) {
		slog.DebugContext(ctx, "Rejecting push envelope without event name")
		metrics.PushRequestsTotal.WithLabelValues("422").Inc()
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"ok": false, "message": invalidPayloadMessage})
	}

	slog.InfoContext(ctx, "Push event accepted", "event", envelope.Event, "room", envelope.Room)
	metrics.PushRequestsTotal.WithLabelValues("200").Inc()
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

func bearerToken(header string) string {
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return token
}
