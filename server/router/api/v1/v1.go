// Package v1 exposes the HTTP API: the chat endpoint, appointment listing,
// and operational introspection.
package v1

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/pawdesk/pawdesk/internal/profile"
	"github.com/pawdesk/pawdesk/server/chat"
	"github.com/pawdesk/pawdesk/server/internal/observability"
	"github.com/pawdesk/pawdesk/server/middleware"
	"github.com/pawdesk/pawdesk/store"
	"github.com/pawdesk/pawdesk/store/cache"
)

// APIV1Service holds the handlers' collaborators.
type APIV1Service struct {
	Profile      *profile.Profile
	Store        *store.Store
	Orchestrator *chat.Orchestrator
	Responses    *cache.ResponseCache
	Metrics      *observability.Metrics
	Logger       *slog.Logger

	limiter *middleware.RateLimiter
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(p *profile.Profile, st *store.Store, orch *chat.Orchestrator, responses *cache.ResponseCache) *APIV1Service {
	return &APIV1Service{
		Profile:      p,
		Store:        st,
		Orchestrator: orch,
		Responses:    responses,
		Metrics:      observability.NewMetrics(1000),
		Logger:       slog.Default(),
		limiter:      middleware.NewRateLimiter(),
	}
}

// RegisterRoutes attaches all handlers to the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.Health)

	api := e.Group("/api/v1", s.limiter.Middleware(), middleware.PayloadGuard())
	api.POST("/chat", s.Chat)
	api.GET("/sessions/:id/appointments", s.ListAppointments)
	api.GET("/cache/stats", s.CacheStats)
	api.GET("/metrics", s.MetricsSnapshot)
}
