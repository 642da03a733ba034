package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"market-dashboard/internal/config"
	"market-dashboard/internal/ingest"
	"market-dashboard/internal/middleware"
	"market-dashboard/internal/observability"
	"market-dashboard/internal/refdata"
	"market-dashboard/internal/server"
	"market-dashboard/internal/services"
	"market-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	loadTimeout   = 2 * time.Minute
	cacheMaxAge   = "public, max-age=300"
)

// dashboardData flattens the industry catalog into the page's selector
// options. Mid and minor options cover every major; the server narrows by
// whatever combination is submitted.
func dashboardData(analytics *services.Analytics) templates.DashboardData {
	catalog := analytics.Industries()

	var mids, minors []string
	for _, code := range catalog.Codes() {
		mids = append(mids, code.Mid)
		minors = append(minors, code.Minor)
	}
	clean := func(s []string) []string {
		s = slices.DeleteFunc(s, func(v string) bool { return v == "" })
		slices.Sort(s)
		return slices.Compact(s)
	}

	return templates.DashboardData{
		Districts: analytics.Districts(),
		Majors:    catalog.Majors(),
		Mids:      clean(mids),
		Minors:    clean(minors),
	}
}

func handleDashboard(analytics *services.Analytics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Cache-Control", cacheMaxAge)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.Dashboard(dashboardData(analytics)).Render(ctx, w); err != nil {
			logger.Error("render dashboard", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func newSource(cfg config.DataConfig, timeout time.Duration) ingest.Source {
	if cfg.BaseURL != "" {
		return ingest.NewHTTPSource(cfg.BaseURL, timeout)
	}
	return ingest.NewDirSource(cfg.Dir)
}

func newHandler(cfg *config.Config, analytics *services.Analytics, metrics *observability.Metrics, logger *slog.Logger) http.Handler {
	srv := server.NewServer(analytics, logger, server.Pages{
		Dashboard: handleDashboard(analytics, logger),
		Metrics:   metrics.Handler(),
	})

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.Metrics(metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"data_dir", cfg.Data.Dir,
		"data_base_url", cfg.Data.BaseURL,
	)

	shutdownTracing, err := observability.InitTracing(cfg.Tracing)
	if err != nil {
		logger.Error("failed to initialise tracing", "error", err)
		os.Exit(1)
	}

	ref, err := refdata.Load(cfg.Data.ReferenceFile)
	if err != nil {
		logger.Error("failed to load reference data", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	loader := ingest.NewLoader(newSource(cfg.Data, cfg.Analytics.FetchTimeout), ref, ingest.LoaderOptions{
		MaxWorkers:   cfg.Analytics.MaxWorkers,
		FetchTimeout: cfg.Analytics.FetchTimeout,
		Logger:       logger,
		Metrics:      metrics,
	})

	hour := cfg.Analytics.RepresentativeHour
	analytics := services.NewAnalytics(loader, ref, services.Options{
		CoverageRatio:      cfg.Analytics.CoverageRatio,
		RepresentativeHour: &hour,
		CatalogName:        cfg.Data.IndustryCatalog,
		Logger:             logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	err = analytics.Load(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to load district data", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, metrics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)
	gracefulServer.RegisterShutdownHook("tracing", shutdownTracing)

	if err := gracefulServer.ListenAndServe(context.Background()); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
