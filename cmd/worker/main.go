package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brojonat/stakeguard/service/config"
	"github.com/brojonat/stakeguard/service/confirm"
	"github.com/brojonat/stakeguard/service/metrics"
	natspkg "github.com/brojonat/stakeguard/service/nats"
	"github.com/brojonat/stakeguard/service/stacks"
	"github.com/brojonat/stakeguard/service/temporal"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.MustLoad()
	logger := setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

// run wires the confirmation worker and blocks until ctx is cancelled or the
// worker fails.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting confirmation worker",
		"network", cfg.Network,
		"api_url", cfg.APIURL(),
		"temporal_host", cfg.TemporalHost,
		"task_queue", cfg.TemporalTaskQueue,
	)

	m := metrics.NewMetrics(nil)
	stopMetrics := serveMetrics(cfg.MetricsAddr, logger)
	defer stopMetrics()

	indexer := stacks.NewClient(stacks.ClientConfig{
		Network: cfg.Network,
		BaseURL: cfg.APIURL(),
		Limiter: rate.NewLimiter(rate.Limit(cfg.IndexerRPS), cfg.IndexerBurst),
		Metrics: m,
		Logger:  logger,
	})
	prober := confirm.NewPoller(indexer, cfg.ConfirmTimeout, cfg.ConfirmPollInterval, m, logger)

	var publisher natspkg.Publisher
	if cfg.NATSURL != "" {
		p, err := natspkg.NewPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			return fmt.Errorf("failed to create NATS publisher: %w", err)
		}
		defer p.Close()
		publisher = p
	} else {
		logger.Info("NATS_URL not set, transfer outcomes will not be published")
	}

	w, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Concurrency:       cfg.WorkerConcurrency,
		Prober:            prober,
		Publisher:         publisher,
		Metrics:           m,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- w.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		w.Stop()
		return nil
	}
}

// serveMetrics exposes the default registry on addr and returns a shutdown func.
func serveMetrics(addr string, logger *slog.Logger) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}
}

func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(levelStr))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
