package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/rickgao/gecko-volumes/internal/api"
	"github.com/rickgao/gecko-volumes/internal/config"
	"github.com/rickgao/gecko-volumes/internal/database"
	"github.com/rickgao/gecko-volumes/internal/poller"
	"github.com/rickgao/gecko-volumes/internal/scheduler"
	"github.com/rickgao/gecko-volumes/internal/store"
	"github.com/rickgao/gecko-volumes/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/tracker.local.yaml", "path to config file")
	once := flag.Bool("once", false, "run the initial sync and snapshot, then exit")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	logger.Info("starting tracker",
		"version", version.String(),
		"config", *configPath,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	st, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		logger.Error("failed to create schema", "error", err)
		os.Exit(1)
	}

	apiClient := api.NewClient(
		cfg.API.BaseURL,
		cfg.API.APIKey,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
		api.WithRateLimit(cfg.API.DefaultRetryAfter, cfg.API.MaxBackoff),
		api.WithAPIKeyHeader(cfg.API.APIKeyHeader),
		api.WithUserAgent(version.UserAgent()),
	)

	p := poller.New(poller.Config{
		VsCurrency:    cfg.API.VsCurrency,
		RetentionDays: cfg.Poller.RetentionDays,
		SpikeFactor:   decimal.NewFromFloat(cfg.Poller.SpikeFactor),
	}, apiClient, st, logger)

	// Start health server early so we can monitor the initial sync
	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           createHealthHandler(st, cfg.Metrics.Path),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if !*once {
		go func() {
			logger.Info("starting health server", "port", cfg.Metrics.Port)
			if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()
	}

	// Initial sync. Failures are logged and the scheduler retries later.
	if _, err := p.SyncTokenList(ctx); err != nil {
		logger.Error("initial token list sync failed", "error", err)
	}
	if _, err := p.SnapshotVolumes(ctx); err != nil {
		logger.Error("initial volume snapshot failed", "error", err)
	}

	if *once {
		logger.Info("tracker finished")
		return
	}

	if cfg.Scheduler.IsEnabled() {
		loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			logger.Error("failed to load scheduler timezone", "error", err)
			os.Exit(1)
		}

		sched := scheduler.New(loc, logger)
		jobs := p.Jobs(poller.Schedule{
			VolumeInterval:    cfg.Scheduler.VolumeInterval,
			TokenListInterval: cfg.Scheduler.TokenListInterval,
			PurgeAt:           cfg.Scheduler.PurgeAt,
		})
		for _, job := range jobs {
			if err := sched.Add(job); err != nil {
				logger.Error("failed to schedule job", "job", job.Name, "error", err)
				os.Exit(1)
			}
		}
		sched.Start(ctx)
		defer sched.Stop()
	} else {
		logger.Info("scheduler disabled")
	}

	logger.Info("tracker running",
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("tracker stopped")
}

// openStore connects to the configured database driver.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		logger.Info("connecting to database",
			"driver", cfg.Driver,
			"host", cfg.Postgres.Host,
			"port", cfg.Postgres.Port,
			"database", cfg.Postgres.Name,
		)
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return store.NewPostgres(pool), nil
	case config.DriverSQLite:
		logger.Info("opening database", "driver", cfg.Driver, "path", cfg.SQLite.Path)
		db, err := database.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return store.NewSQLite(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// createHealthHandler creates the HTTP handler for health checks and metrics.
func createHealthHandler(st store.Store, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := st.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"

			tokens, volumes, err := st.Counts(ctx)
			if err != nil {
				health.Status = "degraded"
				health.Components["store"] = map[string]string{"error": err.Error()}
			} else {
				health.Components["store"] = map[string]int64{
					"tokens":  tokens,
					"volumes": volumes,
				}
				if tokens == 0 {
					health.Status = "degraded"
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.Handle(metricsPath, promhttp.Handler())

	return mux
}
