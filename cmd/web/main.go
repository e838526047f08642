package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"salary-dashboard/internal/config"
	"salary-dashboard/internal/dataset"
	apperrors "salary-dashboard/internal/errors"
	"salary-dashboard/internal/middleware"
	"salary-dashboard/internal/observability"
	"salary-dashboard/internal/refresh"
	"salary-dashboard/internal/server"
	"salary-dashboard/internal/services"
	"salary-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	csvLoadTimeout = 30 * time.Second
	cacheMaxAge    = "public, max-age=300"

	dashboardTitle    = "Data Salary Dashboard"
	dashboardSubtitle = "Explore salaries in the data field. Use the filters on the left to refine the analysis."
)

func dashboardHandler(analytics *services.Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		page := templates.PageData{
			Title:      dashboardTitle,
			Subtitle:   dashboardSubtitle,
			Options:    analytics.Options(),
			FocusTitle: analytics.ReportConfig().FocusTitle,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(page).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func newAnalytics(cfg *config.Config) *services.Analytics {
	return services.NewAnalytics(services.ReportConfig{
		TopTitles:     cfg.Data.TopTitles,
		HistogramBins: cfg.Data.HistogramBins,
		FocusTitle:    cfg.Data.FocusTitle,
	})
}

func newHandler(cfg *config.Config, analytics *services.Analytics, rateLimiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics),
	}

	srv := server.NewServer(analytics, logger, templateHandlers)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.AccessLog(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"remote_url", cfg.Data.RemoteURL,
		"local_path", cfg.Data.LocalPath,
	)

	cache := dataset.NewCache()
	loader := dataset.NewLoader(cfg.Data, cfg.Columns, logger)
	analytics := newAnalytics(cfg)

	loadCtx, cancel := context.WithTimeout(context.Background(), csvLoadTimeout)
	start := time.Now()
	ds, err := cache.Load(loadCtx, loader)
	cancel()
	if err != nil {
		switch {
		case apperrors.HasCode(err, apperrors.CodeSchemaMismatch):
			logger.Error("salary data has an unexpected layout", "error", err)
		case apperrors.HasCode(err, apperrors.CodeDataUnavailable):
			logger.Error("salary data unavailable from remote and local sources", "error", err)
		default:
			logger.Error("failed to load salary data", "error", err)
		}
		os.Exit(1)
	}
	analytics.SetDataset(ds)
	logger.Info("salary data loaded successfully", "duration", time.Since(start), "source", ds.Source)

	refresher := refresh.New(cache, loader, analytics, refresh.Config{
		Schedule:  cfg.Data.RefreshSchedule,
		WatchFile: cfg.Data.WatchLocalFile,
	}, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, rateLimiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("stopping dataset refresher")
		refresher.Stop()
		return nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gracefulServer.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return refresher.Run(gctx)
	})
	g.Go(func() error {
		return rateLimiter.Run(gctx)
	})

	logger.Info("starting graceful server")
	if err := g.Wait(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
