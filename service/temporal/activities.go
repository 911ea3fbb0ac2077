package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/stakeguard/service/metrics"
	natspkg "github.com/brojonat/stakeguard/service/nats"
	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/shopspring/decimal"
)

// ConfirmTransferInput contains the input parameters for confirming a transfer.
type ConfirmTransferInput struct {
	TxID        string          `json:"tx_id"`
	Sender      string          `json:"sender"`
	Recipient   string          `json:"recipient"`
	Amount      decimal.Decimal `json:"amount"`
	ReferenceID string          `json:"reference_id"`
	Memo        string          `json:"memo,omitempty"`

	// Zero values select DefaultConfirmTimeout and DefaultPollInterval.
	Timeout      time.Duration `json:"timeout"`
	PollInterval time.Duration `json:"poll_interval"`
}

// ConfirmTransferResult contains the result of confirming a transfer.
type ConfirmTransferResult struct {
	TxID        string    `json:"tx_id"`
	Status      string    `json:"status"` // "confirmed", "failed" or "timeout"
	Reason      string    `json:"reason,omitempty"`
	BlockHeight *int64    `json:"block_height,omitempty"`
	Probes      int       `json:"probes"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Error       *string   `json:"error,omitempty"`
}

// ProbeTransactionInput contains parameters for the ProbeTransaction activity.
type ProbeTransactionInput struct {
	TxID string `json:"tx_id"`
}

// ProbeTransactionResult contains the result of a single status probe.
type ProbeTransactionResult struct {
	Status transfer.Status `json:"status"`
}

// PublishOutcomeInput contains parameters for the PublishOutcome activity.
type PublishOutcomeInput struct {
	Transfer ConfirmTransferInput `json:"transfer"`
	Status   transfer.Status      `json:"status"`
}

// Prober performs a single status check against the indexer.
// This allows for easy mocking in tests.
type Prober interface {
	Probe(ctx context.Context, txID string) (transfer.Status, error)
}

// Activities holds the dependencies needed by Temporal activities.
// Following go-kit pattern, all dependencies are explicit.
type Activities struct {
	prober    Prober
	publisher natspkg.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// Publisher and metrics are optional.
func NewActivities(prober Prober, publisher natspkg.Publisher, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		prober:    prober,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// ProbeTransaction checks the status of a transaction once. A transaction
// the indexer has not seen yet is reported as pending, not as an error.
func (a *Activities) ProbeTransaction(ctx context.Context, input ProbeTransactionInput) (*ProbeTransactionResult, error) {
	status, err := a.prober.Probe(ctx, input.TxID)
	if err != nil {
		a.recordProbe("error")
		a.logger.WarnContext(ctx, "failed to probe transaction",
			"tx_id", input.TxID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to probe transaction %s: %w", input.TxID, err)
	}

	outcome := string(status.State)
	if status.State == transfer.StatePending && status.RawStatus == "" {
		outcome = "not_found"
	}
	a.recordProbe(outcome)

	a.logger.DebugContext(ctx, "probed transaction",
		"tx_id", input.TxID,
		"state", status.State,
		"tx_status", status.RawStatus,
	)

	return &ProbeTransactionResult{Status: status}, nil
}

// PublishOutcome publishes the terminal outcome of a transfer to NATS.
// It is a no-op when no publisher is configured.
func (a *Activities) PublishOutcome(ctx context.Context, input PublishOutcomeInput) error {
	if a.publisher == nil {
		a.logger.DebugContext(ctx, "no publisher configured, skipping outcome",
			"tx_id", input.Status.TxID,
		)
		return nil
	}

	req := transfer.Request{
		Amount:        input.Transfer.Amount,
		SenderAddress: input.Transfer.Sender,
		ReferenceID:   input.Transfer.ReferenceID,
		Memo:          input.Transfer.Memo,
	}
	event := natspkg.NewTransferEvent(req, input.Transfer.Recipient, input.Status)

	if err := a.publisher.PublishTransfer(ctx, event); err != nil {
		a.logger.ErrorContext(ctx, "failed to publish transfer outcome",
			"tx_id", input.Status.TxID,
			"error", err,
		)
		return fmt.Errorf("failed to publish transfer outcome: %w", err)
	}

	a.logger.InfoContext(ctx, "published transfer outcome",
		"tx_id", input.Status.TxID,
		"status", input.Status.State,
		"subject", event.Subject(),
	)
	return nil
}

func (a *Activities) recordProbe(outcome string) {
	if a.metrics != nil {
		a.metrics.RecordProbe(outcome)
	}
}
