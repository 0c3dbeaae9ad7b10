package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/werkstatt/internal/adapters/cache"
	"github.com/okian/werkstatt/internal/adapters/http/api"
	"github.com/okian/werkstatt/internal/adapters/http/swagger"
	"github.com/okian/werkstatt/internal/adapters/osm"
	app "github.com/okian/werkstatt/internal/app"
	"github.com/okian/werkstatt/internal/config"
	"github.com/okian/werkstatt/internal/domain/model"
	"github.com/okian/werkstatt/pkg/logger"
	"github.com/okian/werkstatt/pkg/metrics"
)

// HTTP server timeout constants. Writes wait for Overpass, which may take
// up to its own client timeout.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 150 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		os.Stderr.WriteString("failed to load .env: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	handler, cleanup, err := buildHandler(ctx, cfg)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		return
	}
	defer cleanup()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("cache", cfg.CacheBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildHandler wires cache, upstream client, service and routes. The
// returned cleanup releases the cache backend.
func buildHandler(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	store, err := cache.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if c, ok := store.(io.Closer); ok {
			_ = c.Close()
		}
	}

	client := osm.New(osm.ConfigFrom(cfg),
		osm.WithCache(store),
		osm.WithLogger(logger.Named("osm")),
	)

	svc := app.New(
		app.WithLogger(logger.Named("service")),
		app.WithGeocoder(client),
		app.WithSource(client),
		app.WithMaxRadiusKM(cfg.MaxRadiusKM),
		app.WithQueryTimeout(cfg.OverpassQueryTimeoutS),
		app.WithDefaults(app.Defaults{
			RadiusKM: cfg.DefaultRadiusKM,
			Categories: model.CategoryFlags{
				Workshops:     cfg.IncludeWorkshops,
				GenericRepair: cfg.IncludeGenericRepair,
				Dealers:       cfg.IncludeDealers,
				Tyres:         cfg.IncludeTyres,
				Parts:         cfg.IncludeParts,
			},
			Dedup: cfg.DedupEnabled,
		}),
	)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc, api.WithSheetName(cfg.ExportSheetName))
	apiServer.Register(ctx, mux)

	return api.RequestIDMiddleware(mux), cleanup, nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
