package transfer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request is a transfer the caller wants to make to the platform address.
type Request struct {
	Amount        decimal.Decimal // whole STX
	SenderAddress string
	ReferenceID   string // opaque correlation id, e.g. a pool id
	Memo          string // optional
}

// Handle identifies a submitted transaction. It is the sole key for polling.
type Handle struct {
	ID string `json:"tx_id"`
}

// State is the lifecycle position of a submitted transaction.
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
)

// Status is a snapshot of a transaction as last observed on the indexer.
// Pending covers both "not yet seen" and "seen but not final".
type Status struct {
	TxID        string `json:"tx_id"`
	State       State  `json:"state"`
	Reason      string `json:"reason,omitempty"`       // set only when State is failed
	RawStatus   string `json:"raw_status,omitempty"`   // tx_status as reported, empty when not found
	BlockHeight *int64 `json:"block_height,omitempty"` // nil until mined
	Probes      int    `json:"probes,omitempty"`
}

// IsTerminal reports whether no further state change can occur.
func (s Status) IsTerminal() bool {
	return s.State == StateConfirmed || s.State == StateFailed
}

// BalanceSnapshot is a point-in-time spendable balance. It is advisory only.
type BalanceSnapshot struct {
	Address   string          `json:"address"`
	Available decimal.Decimal `json:"available"`
	FetchedAt time.Time       `json:"fetched_at"`
}
