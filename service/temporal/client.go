package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
)

// Client starts and follows confirmation workflows on Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Debug("connected to temporal", "host", host, "namespace", namespace)

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// StartConfirmation starts a ConfirmTransferWorkflow for the transaction and
// returns its run id. Starting twice for the same transaction while the
// first run is open returns the existing run.
func (c *Client) StartConfirmation(ctx context.Context, input ConfirmTransferInput) (string, error) {
	if input.TxID == "" {
		return "", fmt.Errorf("tx id is required")
	}

	id := confirmationWorkflowID(input.TxID)
	timeout := input.Timeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}

	run, err := c.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: c.taskQueue,
		// Leave room for the final probe and the outcome publish.
		WorkflowExecutionTimeout: timeout + DefaultPollInterval + 5*time.Minute,
		Memo: map[string]interface{}{
			"tx_id":        input.TxID,
			"sender":       input.Sender,
			"reference_id": input.ReferenceID,
			"created_by":   "stakeguard",
		},
	}, ConfirmTransferWorkflow, input)
	if err != nil {
		return "", fmt.Errorf("failed to start workflow %q: %w", id, err)
	}

	c.logger.Info("confirmation workflow started",
		"tx_id", input.TxID,
		"workflow_id", id,
		"run_id", run.GetRunID(),
	)

	return run.GetRunID(), nil
}

// AwaitConfirmation blocks until the confirmation workflow for txID finishes.
// On timeout the error wraps the workflow failure; the result is nil.
func (c *Client) AwaitConfirmation(ctx context.Context, txID string) (*ConfirmTransferResult, error) {
	id := confirmationWorkflowID(txID)

	var result ConfirmTransferResult
	if err := c.client.GetWorkflow(ctx, id, "").Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("confirmation workflow %q: %w", id, err)
	}
	return &result, nil
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.client.Close()
}

// confirmationWorkflowID generates the workflow ID for a transaction.
func confirmationWorkflowID(txID string) string {
	return "confirm-transfer-" + txID
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
