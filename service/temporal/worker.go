package temporal

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/brojonat/stakeguard/service/metrics"
	natspkg "github.com/brojonat/stakeguard/service/nats"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// defaultConcurrency bounds in-flight probes per worker. Each probe is one
// indexer request, so this also caps how hard a worker leans on the limiter.
const defaultConcurrency = 10

// WorkerConfig contains configuration for the Temporal worker.
type WorkerConfig struct {
	TemporalHost      string
	TemporalNamespace string
	TaskQueue         string

	// Concurrency caps concurrent activities and workflow tasks. Zero uses 10.
	Concurrency int

	Prober    Prober
	Publisher natspkg.Publisher // Optional: if nil, outcomes are not published
	Metrics   *metrics.Metrics  // Optional: if nil, no metrics will be recorded
	Logger    *slog.Logger
}

// Worker runs ConfirmTransferWorkflow and its activities on one task queue.
type Worker struct {
	client client.Client
	worker worker.Worker
	logger *slog.Logger
}

// NewWorker dials Temporal and registers the confirmation workflow.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Prober == nil {
		return nil, errors.New("prober is required")
	}
	if cfg.TaskQueue == "" {
		return nil, errors.New("task queue is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	logger := cfg.Logger.With("component", "temporal_worker", "task_queue", cfg.TaskQueue)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal at %s: %w", cfg.TemporalHost, err)
	}

	w := worker.New(c, cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     cfg.Concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: cfg.Concurrency,
	})

	acts := NewActivities(cfg.Prober, cfg.Publisher, cfg.Metrics, logger)
	w.RegisterWorkflow(ConfirmTransferWorkflow)
	w.RegisterActivity(acts.ProbeTransaction)
	w.RegisterActivity(acts.PublishOutcome)

	logger.Info("temporal worker ready",
		"namespace", cfg.TemporalNamespace,
		"concurrency", cfg.Concurrency,
		"publishing", cfg.Publisher != nil,
	)
	return &Worker{client: c, worker: w, logger: logger}, nil
}

// Start runs the worker until Stop is called or the process is interrupted.
func (w *Worker) Start() error {
	w.logger.Info("polling task queue")
	if err := w.worker.Run(worker.InterruptCh()); err != nil {
		return fmt.Errorf("worker stopped with error: %w", err)
	}
	return nil
}

// Stop drains in-flight tasks and closes the Temporal connection.
func (w *Worker) Stop() {
	w.worker.Stop()
	w.client.Close()
	w.logger.Info("temporal worker stopped")
}
