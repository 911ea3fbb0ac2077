package nats

import (
	"time"

	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferEvent is the terminal outcome of a transfer, published to the
// subject "transfers.{sender}" in JetStream. Downstream services (e.g. the
// stake recorder) consume it instead of being called directly.
type TransferEvent struct {
	EventID string `json:"event_id"`
	TxID    string `json:"tx_id"`

	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`

	Amount      decimal.Decimal `json:"amount"` // whole STX
	ReferenceID string          `json:"reference_id"`
	Memo        string          `json:"memo,omitempty"`

	Status      transfer.State `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	BlockHeight *int64         `json:"block_height,omitempty"`

	PublishedAt time.Time `json:"published_at"`
}

// NewTransferEvent builds an event for a request that reached status.
func NewTransferEvent(req transfer.Request, recipient string, status transfer.Status) *TransferEvent {
	return &TransferEvent{
		EventID:     uuid.NewString(),
		TxID:        status.TxID,
		Sender:      req.SenderAddress,
		Recipient:   recipient,
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
		Memo:        req.Memo,
		Status:      status.State,
		Reason:      status.Reason,
		BlockHeight: status.BlockHeight,
		PublishedAt: time.Now().UTC(),
	}
}

// Subject returns the JetStream subject the event is published to.
func (e *TransferEvent) Subject() string {
	return SubjectPrefix + e.Sender
}
