package transfer

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every request validation failure.
// Validation errors are reported immediately and never retried.
var ErrValidation = errors.New("invalid transfer request")

var (
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	ErrAmountTooSmall   = fmt.Errorf("%w: amount below minimum of %s STX", ErrValidation, MinAmount)
	ErrAmountTooLarge   = fmt.Errorf("%w: amount above maximum of %s STX", ErrValidation, MaxAmount)
	ErrInvalidAddress   = fmt.Errorf("%w: sender address too short", ErrValidation)
	ErrInvalidReference = fmt.Errorf("%w: reference id is empty", ErrValidation)
)

var (
	// ErrInsufficientBalance is returned by the advisory balance pre-check.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrSubmissionRejected means the wallet produced no transaction id,
	// usually because the user declined the signing prompt.
	ErrSubmissionRejected = errors.New("transaction rejected by wallet")

	// ErrSubmission wraps any other wallet provider failure.
	ErrSubmission = errors.New("transaction submission failed")

	// ErrConfirmationTimeout means no terminal status was observed in time.
	// The transaction may still confirm later; the outcome is unknown.
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")

	// ErrBalanceFetch wraps indexer failures while reading a balance.
	ErrBalanceFetch = errors.New("failed to fetch balance")

	// ErrNetwork wraps transport failures talking to the indexer.
	ErrNetwork = errors.New("indexer request failed")

	// ErrNotConnected is returned when no wallet session is active.
	ErrNotConnected = errors.New("wallet not connected")
)

// FailedError reports a transaction the ledger aborted. It is terminal:
// the transfer did not happen and polling must not resume.
type FailedError struct {
	TxID   string
	Reason string
}

func (e *FailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transaction %s failed", e.TxID)
	}
	return fmt.Sprintf("transaction %s failed: %s", e.TxID, e.Reason)
}
