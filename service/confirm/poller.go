// Package confirm drives a submitted transaction to a terminal state by
// polling the indexer.
package confirm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brojonat/stakeguard/service/metrics"
	"github.com/brojonat/stakeguard/service/stacks"
	"github.com/brojonat/stakeguard/service/transfer"
)

const (
	DefaultTimeout      = 5 * time.Minute
	DefaultPollInterval = 10 * time.Second
)

// TransactionGetter is the indexer operation the poller needs.
// This allows us to mock the indexer in tests.
type TransactionGetter interface {
	GetTransaction(ctx context.Context, txID string) (*stacks.Transaction, error)
}

// Poller waits for transactions to reach a terminal state.
type Poller struct {
	indexer  TransactionGetter
	timeout  time.Duration
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a poller. Zero timeout or interval select the defaults.
// If metrics is nil, no metrics will be recorded.
func NewPoller(indexer TransactionGetter, timeout, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) *Poller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		indexer:  indexer,
		timeout:  timeout,
		interval: interval,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Probe performs a single status check. A 404 from the indexer is reported
// as a pending status, not an error; any other failure is returned.
func (p *Poller) Probe(ctx context.Context, txID string) (transfer.Status, error) {
	tx, err := p.indexer.GetTransaction(ctx, txID)
	if errors.Is(err, stacks.ErrTxNotFound) {
		return Classify(txID, nil), nil
	}
	if err != nil {
		return transfer.Status{TxID: txID, State: transfer.StatePending}, err
	}
	return Classify(txID, tx), nil
}

// Await polls until the transaction is confirmed or failed, the timeout
// elapses, or ctx is done. Zero timeout or interval use the poller's
// configured values.
//
// Both terminal states are returned with a nil error; a failed transaction
// is a definitive answer, not a polling error. On timeout the last pending
// status is returned with transfer.ErrConfirmationTimeout. Transient probe
// errors are logged and retried until the timeout.
func (p *Poller) Await(ctx context.Context, handle transfer.Handle, timeout, interval time.Duration) (transfer.Status, error) {
	if timeout <= 0 {
		timeout = p.timeout
	}
	if interval <= 0 {
		interval = p.interval
	}

	logger := p.logger.With("tx_id", handle.ID)
	logger.InfoContext(ctx, "waiting for transaction confirmation",
		"timeout", timeout,
		"poll_interval", interval,
	)

	start := p.now()
	last := transfer.Status{TxID: handle.ID, State: transfer.StatePending}
	probes := 0

	for p.now().Sub(start) < timeout {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		status, err := p.Probe(ctx, handle.ID)
		probes++
		status.Probes = probes

		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return last, ctxErr
			}
			p.recordProbe("error")
			logger.WarnContext(ctx, "error checking transaction status, retrying",
				"probe", probes,
				"error", err,
			)
		case status.State == transfer.StateConfirmed:
			p.recordProbe("confirmed")
			p.recordDone("confirmed", start)
			logger.InfoContext(ctx, "transaction confirmed",
				"probe", probes,
				"block_height", status.BlockHeight,
			)
			return status, nil
		case status.State == transfer.StateFailed:
			p.recordProbe("failed")
			p.recordDone("failed", start)
			logger.ErrorContext(ctx, "transaction failed",
				"probe", probes,
				"reason", status.Reason,
			)
			return status, nil
		default:
			last = status
			if status.RawStatus == "" {
				p.recordProbe("not_found")
			} else {
				p.recordProbe("pending")
			}
			logger.DebugContext(ctx, "transaction still pending",
				"probe", probes,
				"tx_status", status.RawStatus,
			)
		}
		last.Probes = probes

		if err := p.sleep(ctx, interval); err != nil {
			return last, err
		}
	}

	p.recordDone("timeout", start)
	logger.WarnContext(ctx, "transaction confirmation timed out",
		"probes", probes,
		"elapsed", p.now().Sub(start),
	)
	return last, transfer.ErrConfirmationTimeout
}

func (p *Poller) recordProbe(outcome string) {
	if p.metrics != nil {
		p.metrics.RecordProbe(outcome)
	}
}

func (p *Poller) recordDone(outcome string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordConfirmation(outcome, p.now().Sub(start).Seconds())
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
