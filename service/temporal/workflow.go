package temporal

import (
	"fmt"
	"time"

	"github.com/brojonat/stakeguard/service/transfer"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	DefaultConfirmTimeout = 5 * time.Minute
	DefaultPollInterval   = 10 * time.Second

	// OutcomeTimeout is the result status when no terminal state was seen.
	OutcomeTimeout = "timeout"
)

var a *Activities // for type-safe activity invocation

// ConfirmTransferWorkflow polls the indexer for a submitted transaction until
// it is confirmed or failed, or the timeout elapses. It is the durable
// counterpart of the in-process poller: a worker restart resumes the wait
// instead of losing it.
//
// Each probe is a single-attempt activity; a probe error counts as pending
// and the next probe follows after the poll interval. Terminal outcomes are
// published with PublishOutcome. A failed transaction completes the
// workflow successfully with Status "failed"; only a timeout fails it.
func ConfirmTransferWorkflow(ctx workflow.Context, input ConfirmTransferInput) (*ConfirmTransferResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("ConfirmTransferWorkflow started", "tx_id", input.TxID)

	timeout := input.Timeout
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	interval := input.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	start := workflow.Now(ctx)
	result := &ConfirmTransferResult{
		TxID:      input.TxID,
		StartedAt: start,
	}

	probeCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	})

	for workflow.Now(ctx).Sub(start) < timeout {
		var probe *ProbeTransactionResult
		err := workflow.ExecuteActivity(probeCtx, a.ProbeTransaction, ProbeTransactionInput{TxID: input.TxID}).Get(ctx, &probe)
		result.Probes++

		switch {
		case err != nil:
			logger.Warn("probe failed, treating as pending", "tx_id", input.TxID, "probe", result.Probes, "error", err)
		case probe.Status.IsTerminal():
			result.Status = string(probe.Status.State)
			result.Reason = probe.Status.Reason
			result.BlockHeight = probe.Status.BlockHeight
			result.FinishedAt = workflow.Now(ctx)

			logger.Info("transaction reached terminal state",
				"tx_id", input.TxID,
				"status", result.Status,
				"probes", result.Probes,
			)

			status := probe.Status
			status.Probes = result.Probes
			err := workflow.ExecuteActivity(publishCtx, a.PublishOutcome, PublishOutcomeInput{
				Transfer: input,
				Status:   status,
			}).Get(ctx, nil)
			if err != nil {
				// The outcome stands even if nobody heard about it.
				logger.Error("failed to publish outcome", "tx_id", input.TxID, "error", err)
				errMsg := fmt.Sprintf("failed to publish outcome: %v", err)
				result.Error = &errMsg
			}
			return result, nil
		default:
			logger.Debug("transaction still pending", "tx_id", input.TxID, "probe", result.Probes)
		}

		if err := workflow.Sleep(ctx, interval); err != nil {
			return result, err
		}
	}

	result.Status = OutcomeTimeout
	result.FinishedAt = workflow.Now(ctx)
	errMsg := transfer.ErrConfirmationTimeout.Error()
	result.Error = &errMsg

	logger.Warn("ConfirmTransferWorkflow timed out", "tx_id", input.TxID, "probes", result.Probes)
	return result, fmt.Errorf("transaction %s: %w", input.TxID, transfer.ErrConfirmationTimeout)
}
