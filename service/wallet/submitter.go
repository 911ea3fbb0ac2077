package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brojonat/stakeguard/service/metrics"
	"github.com/brojonat/stakeguard/service/transfer"
)

// Submitter hands validated transfers to the wallet provider.
type Submitter struct {
	provider  Provider
	recipient string
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewSubmitter creates a submitter that sends every transfer to recipient
// (the platform address). If metrics is nil, no metrics will be recorded.
func NewSubmitter(provider Provider, recipient string, m *metrics.Metrics, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		provider:  provider,
		recipient: recipient,
		metrics:   m,
		logger:    logger,
	}
}

// Recipient returns the platform address transfers are sent to.
func (s *Submitter) Recipient() string {
	return s.recipient
}

// Submit asks the wallet to sign and broadcast req. It blocks for as long as
// the user takes in the signing prompt. The request must already be validated.
func (s *Submitter) Submit(ctx context.Context, req transfer.Request) (transfer.Handle, error) {
	params := TransferParams{
		Amount:    transfer.ToMicro(req.Amount),
		Recipient: s.recipient,
		Memo:      req.Memo,
	}

	s.logger.InfoContext(ctx, "submitting transfer to wallet",
		"sender", req.SenderAddress,
		"recipient", s.recipient,
		"amount_micro", params.Amount,
		"reference_id", req.ReferenceID,
	)

	txID, err := s.provider.TransferSTX(ctx, params)
	switch {
	case errors.Is(err, ErrUserRejected):
		s.record("rejected")
		return transfer.Handle{}, fmt.Errorf("%w: %w", transfer.ErrSubmissionRejected, err)
	case err != nil:
		s.record("error")
		s.logger.ErrorContext(ctx, "wallet transfer failed", "error", err)
		return transfer.Handle{}, fmt.Errorf("%w: %w", transfer.ErrSubmission, err)
	case txID == "":
		s.record("rejected")
		return transfer.Handle{}, transfer.ErrSubmissionRejected
	}

	s.record("submitted")
	s.logger.InfoContext(ctx, "transfer broadcast", "tx_id", txID)
	return transfer.Handle{ID: txID}, nil
}

func (s *Submitter) record(status string) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(status)
	}
}
