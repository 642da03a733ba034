package server

import (
	"log/slog"
	"net/http"

	"market-dashboard/internal/handlers"
	"market-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

// Pages carries the handlers that live outside the API packages: the
// rendered dashboard and the metrics scrape endpoint. A nil Metrics leaves
// /metrics unrouted.
type Pages struct {
	Dashboard http.Handler
	Metrics   http.Handler
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, pages Pages) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(pages)
	return s
}

func (s *Server) setupRoutes(pages Pages) {
	// Dashboard and operations
	if pages.Dashboard != nil {
		s.mux.Handle("GET /{$}", pages.Dashboard)
	}
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	if pages.Metrics != nil {
		s.mux.Handle("GET /metrics", pages.Metrics)
	}

	// REST API endpoints
	s.mux.HandleFunc("GET /api/industries", s.apiHandlers.HandleIndustries)
	s.mux.HandleFunc("GET /api/rankings", s.apiHandlers.HandleRankings)
	s.mux.HandleFunc("GET /api/rankings/export", s.apiHandlers.HandleRankingsExport)
	s.mux.HandleFunc("GET /api/districts/{district}/targeting", s.apiHandlers.HandleTargeting)
	s.mux.HandleFunc("GET /api/districts/{district}/flow/hourly", s.apiHandlers.HandleHourlyFlow)
	s.mux.HandleFunc("GET /api/districts/{district}/flow/weekly", s.apiHandlers.HandleWeeklyFlow)
	s.mux.HandleFunc("GET /api/districts/{district}/residency", s.apiHandlers.HandleResidency)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/rankings", s.sseHandlers.HandleRankings)
	s.mux.HandleFunc("GET /sse/targeting", s.sseHandlers.HandleTargeting)
	s.mux.HandleFunc("GET /sse/flow", s.sseHandlers.HandleFlow)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
