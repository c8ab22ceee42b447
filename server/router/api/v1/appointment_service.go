package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListAppointments returns the bookings made in a session, newest first.
func (s *APIV1Service) ListAppointments(c echo.Context) error {
	sessionID := c.Param("id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session id is required")
	}

	appointments, err := s.Store.FindAppointments(c.Request().Context(), sessionID)
	if err != nil {
		s.Logger.Error("list appointments failed", "session_id", sessionID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "something went wrong, please try again")
	}

	return c.JSON(http.StatusOK, appointments)
}

// Health reports liveness.
func (s *APIV1Service) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}

// CacheStats exposes the response cache counters.
func (s *APIV1Service) CacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Responses.Stats())
}

// MetricsSnapshot exposes the request counters.
func (s *APIV1Service) MetricsSnapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Metrics.Read())
}
