package transfer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinAddressLength is a sanity bound, not a checksum validation.
const MinAddressLength = 20

var (
	MinAmount = decimal.RequireFromString("0.1")
	MaxAmount = decimal.NewFromInt(1000)
)

// Validate checks a request before anything is sent to the wallet.
// The first failing check is returned; all failures wrap ErrValidation.
// Address and reference are checked before the amount bounds, so a short
// address is reported as ErrInvalidAddress whatever the amount.
func Validate(req Request) error {
	if !req.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(req.SenderAddress) < MinAddressLength {
		return ErrInvalidAddress
	}
	if strings.TrimSpace(req.ReferenceID) == "" {
		return ErrInvalidReference
	}
	if req.Amount.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	if req.Amount.LessThan(MinAmount) {
		return ErrAmountTooSmall
	}
	return nil
}

// ParseAmount parses a user-entered STX amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}
