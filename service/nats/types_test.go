package nats

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransferEvent(t *testing.T) {
	req := transfer.Request{
		Amount:        decimal.RequireFromString("2.5"),
		SenderAddress: "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM",
		ReferenceID:   "pool-1",
	}
	height := int64(42)
	status := transfer.Status{TxID: "0xabc", State: transfer.StateConfirmed, BlockHeight: &height}

	event := NewTransferEvent(req, "ST3EKY2FG5KW60TZC2R9D0DF6DJJ98RPW5CN3B9P4", status)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "0xabc", event.TxID)
	assert.Equal(t, "transfers.ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", event.Subject())
	assert.Equal(t, transfer.StateConfirmed, event.Status)
	assert.False(t, event.PublishedAt.IsZero())

	data, err := json.Marshal(event)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "2.5", decoded["amount"])
	assert.Equal(t, "confirmed", decoded["status"])
	assert.Equal(t, "pool-1", decoded["reference_id"])
	assert.NotContains(t, decoded, "reason")
}

func TestMockPublisher(t *testing.T) {
	m := NewMockPublisher()
	require.NoError(t, m.PublishTransfer(context.Background(), &TransferEvent{TxID: "0x1"}))
	assert.Len(t, m.GetPublishedEvents(), 1)

	m.SetPublishError(assert.AnError)
	assert.ErrorIs(t, m.PublishTransfer(context.Background(), &TransferEvent{TxID: "0x2"}), assert.AnError)
	assert.Len(t, m.GetPublishedEvents(), 1)

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())
}
