package stacks

import (
	"fmt"
	"strings"
)

// Network selects which Stacks deployment the indexer client talks to.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

const (
	DefaultMainnetAPIURL = "https://stacks-node-api.mainnet.stacks.co"
	DefaultTestnetAPIURL = "https://stacks-node-api.testnet.stacks.co"
)

// ParseNetwork accepts "mainnet" or "testnet" (case-insensitive).
func ParseNetwork(s string) (Network, error) {
	switch Network(strings.ToLower(strings.TrimSpace(s))) {
	case Mainnet:
		return Mainnet, nil
	case Testnet:
		return Testnet, nil
	default:
		return "", fmt.Errorf("unknown stacks network %q (want mainnet or testnet)", s)
	}
}

// DefaultAPIURL returns the public indexer URL for the network.
func (n Network) DefaultAPIURL() string {
	if n == Mainnet {
		return DefaultMainnetAPIURL
	}
	return DefaultTestnetAPIURL
}

// Transaction status values reported by the indexer's tx_status field.
const (
	TxStatusSuccess              = "success"
	TxStatusPending              = "pending"
	TxStatusAbortByResponse      = "abort_by_response"
	TxStatusAbortByPostCondition = "abort_by_post_condition"
)

// Transaction is the subset of GET /extended/v1/tx/{id} we rely on.
type Transaction struct {
	TxID        string    `json:"tx_id"`
	TxStatus    string    `json:"tx_status"`
	BlockHeight *int64    `json:"block_height,omitempty"`
	TxResult    *TxResult `json:"tx_result,omitempty"`
}

// TxResult carries the Clarity result of an executed transaction.
type TxResult struct {
	Hex  string `json:"hex"`
	Repr string `json:"repr"`
}

// balancesResponse is the subset of GET /extended/v1/address/{addr}/balances we use.
// The balance is a string-encoded micro-STX integer.
type balancesResponse struct {
	STX struct {
		Balance string `json:"balance"`
	} `json:"stx"`
}
