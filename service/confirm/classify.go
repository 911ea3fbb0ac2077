package confirm

import (
	"github.com/brojonat/stakeguard/service/stacks"
	"github.com/brojonat/stakeguard/service/transfer"
)

// Classify maps an indexer transaction to a lifecycle status. A nil
// transaction means the indexer has not seen it yet and is pending.
//
// Only success and the two abort statuses are terminal. Every other
// tx_status, including dropped_* mempool states, stays pending until the
// caller's timeout decides.
func Classify(txID string, tx *stacks.Transaction) transfer.Status {
	status := transfer.Status{TxID: txID, State: transfer.StatePending}
	if tx == nil {
		return status
	}

	status.RawStatus = tx.TxStatus
	status.BlockHeight = tx.BlockHeight

	switch tx.TxStatus {
	case stacks.TxStatusSuccess:
		status.State = transfer.StateConfirmed
	case stacks.TxStatusAbortByResponse, stacks.TxStatusAbortByPostCondition:
		status.State = transfer.StateFailed
		status.Reason = tx.TxStatus
		if tx.TxResult != nil && tx.TxResult.Repr != "" {
			status.Reason = tx.TxResult.Repr
		}
	}
	return status
}
