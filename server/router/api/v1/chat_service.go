package v1

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/pawdesk/pawdesk/server/chat"
	"github.com/pawdesk/pawdesk/server/internal/observability"
	"github.com/pawdesk/pawdesk/server/middleware"
)

// Chat handles one conversation turn.
func (s *APIV1Service) Chat(c echo.Context) error {
	var req chat.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	if middleware.SuspiciousPayload(req.Message) {
		return echo.NewHTTPError(http.StatusBadRequest, "message rejected")
	}

	reqCtx := observability.NewRequestContext(s.Logger, c.Path(), req.SessionID)
	s.Metrics.RecordRequest(c.Path())

	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)
	resp, err := s.Orchestrator.Handle(ctx, req)
	if err != nil {
		s.Metrics.RecordFailure(c.Path())
		if errors.Is(err, chat.ErrEmptyMessage) {
			return echo.NewHTTPError(http.StatusBadRequest, "message is required")
		}
		reqCtx.Error("chat turn failed", err)
		// Persistence trouble is not the user's fault and not theirs to debug.
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong, please try again")
	}

	duration := time.Duration(reqCtx.DurationMs()) * time.Millisecond
	s.Metrics.RecordDuration(c.Path(), duration)
	reqCtx.Info("chat turn handled",
		slog.String(observability.LogFieldSessionID, resp.SessionID),
		slog.String(observability.LogFieldBookingState, string(resp.BookingState)),
		slog.Int(observability.LogFieldMessageLen, len(req.Message)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)

	return c.JSON(http.StatusOK, resp)
}
