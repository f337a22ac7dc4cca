package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dragonfall-gg/dragonfall/internal/api"
	"github.com/dragonfall-gg/dragonfall/internal/app/engine"
	"github.com/dragonfall-gg/dragonfall/internal/app/maintenance"
	"github.com/dragonfall-gg/dragonfall/internal/daemon"
	"github.com/dragonfall-gg/dragonfall/internal/infra/alert"
	"github.com/dragonfall-gg/dragonfall/internal/infra/audit"
	"github.com/dragonfall-gg/dragonfall/internal/infra/ratelimit"
	"github.com/dragonfall-gg/dragonfall/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Dragonfall API server",
	Long: `Start the HTTP server: postback ingestion, public fetch endpoints,
the operator admin API, and (when enabled) Prometheus metrics.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if cfg.Postback.Key == "" {
		logger.Warn("no postback key configured, all postbacks will be rejected")
	}
	if cfg.Postback.AdminToken == "" {
		logger.Warn("no admin token configured, admin API is disabled")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Rate limiting: durable sqlite counters, failing open to an
	// in-process limiter when the database is degraded.
	postbackCfg := ratelimit.Config{
		MaxPerWindow: cfg.RateLimit.PostbackPerMinute,
		Window:       time.Minute,
	}
	apiCfg := ratelimit.Config{
		MaxPerWindow: cfg.RateLimit.APIPerMinute,
		Window:       time.Minute,
	}
	postbackLimiter := ratelimit.NewFailover(
		ratelimit.NewStore(postbackCfg, db),
		ratelimit.NewMemory(postbackCfg),
		logger,
	)
	defer postbackLimiter.Close()
	apiLimiter := ratelimit.NewFailover(
		ratelimit.NewStore(apiCfg, db),
		ratelimit.NewMemory(apiCfg),
		logger,
	)
	defer apiLimiter.Close()

	janitor := maintenance.New(db, maintenance.DefaultConfig(), logger)
	janitor.Start()
	defer janitor.Stop()

	recorder := audit.NewWorker(db, cfg.Audit.BufferSize, logger)
	recorder.Start()
	defer recorder.Shutdown()

	alerter := alert.NewDiscord(cfg.Alerts.DiscordWebhookURL, logger)
	if alerter.Enabled() {
		logger.Info("discord alerts enabled")
	}

	eng := engine.New(db, recorder, alerter, engine.Config{
		LargeSpendThreshold: cfg.Economy.LargeSpendThreshold,
		HighLootThreshold:   cfg.Economy.HighLootThreshold,
	}, logger)

	srv := api.NewServer(api.Options{
		Engine:          eng,
		Store:           db,
		Recorder:        recorder,
		Alerter:         alerter,
		PostbackLimiter: postbackLimiter,
		APILimiter:      apiLimiter,
		PostbackKey:     cfg.Postback.Key,
		AdminToken:      cfg.Postback.AdminToken,
		Logger:          logger,
	})
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr())
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}
	return nil
}
