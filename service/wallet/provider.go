// Package wallet is the boundary to the user's wallet: the component that
// holds keys, prompts for approval and broadcasts signed transactions.
package wallet

import (
	"context"
	"errors"
)

// ErrUserRejected is returned by providers when the user declines a prompt.
var ErrUserRejected = errors.New("user rejected the request")

// Address is one account exposed by the wallet.
type Address struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey,omitempty"`
}

// TransferParams are the arguments of an stx_transferStx request.
// Amount is in micro-STX.
type TransferParams struct {
	Amount    int64
	Recipient string
	Memo      string
}

// Provider is the set of wallet operations the coordinator depends on.
// Calls may block on human interaction; callers bound them with ctx.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected(ctx context.Context) bool
	Addresses(ctx context.Context) ([]Address, error)
	TransferSTX(ctx context.Context, params TransferParams) (string, error)
}
