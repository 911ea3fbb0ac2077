package confirm

import (
	"testing"

	"github.com/brojonat/stakeguard/service/stacks"
	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		tx        *stacks.Transaction
		wantState transfer.State
		wantTerm  bool
	}{
		{"not yet indexed", nil, transfer.StatePending, false},
		{"success", &stacks.Transaction{TxStatus: "success"}, transfer.StateConfirmed, true},
		{"abort by response", &stacks.Transaction{TxStatus: "abort_by_response"}, transfer.StateFailed, true},
		{"abort by post condition", &stacks.Transaction{TxStatus: "abort_by_post_condition"}, transfer.StateFailed, true},
		{"mempool pending", &stacks.Transaction{TxStatus: "pending"}, transfer.StatePending, false},
		{"dropped stays pending", &stacks.Transaction{TxStatus: "dropped_stale_garbage_collect"}, transfer.StatePending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Classify("0xabc", tt.tx)
			assert.Equal(t, "0xabc", s.TxID)
			assert.Equal(t, tt.wantState, s.State)
			assert.Equal(t, tt.wantTerm, s.IsTerminal())
			if tt.wantState != transfer.StateFailed {
				assert.Empty(t, s.Reason)
			}
		})
	}
}
