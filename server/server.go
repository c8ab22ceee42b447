// Package server assembles the HTTP server around the conversation core.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/pawdesk/pawdesk/internal/profile"
	"github.com/pawdesk/pawdesk/plugin/llm"
	"github.com/pawdesk/pawdesk/plugin/timeparse"
	"github.com/pawdesk/pawdesk/server/chat"
	apiv1 "github.com/pawdesk/pawdesk/server/router/api/v1"
	"github.com/pawdesk/pawdesk/server/scheduling"
	"github.com/pawdesk/pawdesk/store"
	"github.com/pawdesk/pawdesk/store/cache"
)

// Server owns the long-lived components and their shutdown order.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	responses  *cache.ResponseCache
	slots      *scheduling.Manager

	cleanupCancel context.CancelFunc
}

// NewServer wires every component and registers the routes. The store is
// owned by the caller; everything else is owned by the server.
func NewServer(ctx context.Context, p *profile.Profile, st *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	snapshots, err := cache.NewFileSnapshotStore(filepath.Join(p.Data, "response_cache.json"))
	if err != nil {
		return nil, errors.Wrap(err, "create snapshot store")
	}
	responses := cache.NewResponseCache(cache.Config{
		HotCapacity:  p.CacheHotCapacity,
		WarmCapacity: p.CacheWarmCapacity,
		DefaultTTL:   p.CacheTTL,
	}, snapshots)

	slots := scheduling.NewManager(scheduling.Config{})
	slots.Start(ctx)

	times := timeparse.NewService(p.Timezone)
	generator, err := newGenerator(p)
	if err != nil {
		return nil, err
	}

	orchestrator := chat.NewOrchestrator(st, slots, times, responses, generator)
	apiService := apiv1.NewAPIV1Service(p, st, orchestrator, responses)
	orchestrator.OnBooked = apiService.Metrics.RecordBooking
	apiService.RegisterRoutes(e)

	cleanupCtx, cleanupCancel := context.WithCancel(ctx)
	go st.RunSessionCleanup(cleanupCtx, store.CleanupConfig{})

	return &Server{
		Profile:       p,
		Store:         st,
		echoServer:    e,
		responses:     responses,
		slots:         slots,
		cleanupCancel: cleanupCancel,
	}, nil
}

// newGenerator picks the upstream text generator. Without an API key the
// server still runs; open Q&A degrades to a fixed notice while booking works
// fully.
func newGenerator(p *profile.Profile) (llm.Generator, error) {
	if p.GeneratorAPIKey == "" {
		slog.Warn("no generator api key configured, open Q&A will be limited")
		return llm.NewMockGenerator("I'm sorry, I can only help with appointment booking right now."), nil
	}
	generator, err := llm.NewOpenAIGenerator(llm.Config{
		APIKey:  p.GeneratorAPIKey,
		BaseURL: p.GeneratorBaseURL,
		Model:   p.GeneratorModel,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create generator")
	}
	return generator, nil
}

// Start begins serving. Blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server listening", "address", addr, "mode", s.Profile.Mode)
	if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "start server")
	}
	return nil
}

// Shutdown drains in-flight requests, stops the background loops, and writes
// a final cache snapshot.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server gracefully", "error", err)
	}

	s.cleanupCancel()
	s.slots.Stop()
	s.responses.Close()

	slog.Info("server stopped")
}
