package transfer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MicroPerUnit is the number of micro-STX in one STX.
const MicroPerUnit = 1_000_000

var microPerUnit = decimal.NewFromInt(MicroPerUnit)

// ToMicro converts whole STX to micro-STX, dropping any sub-micro remainder.
func ToMicro(amount decimal.Decimal) int64 {
	return amount.Mul(microPerUnit).Floor().IntPart()
}

// FromMicro converts micro-STX to whole STX.
func FromMicro(micro int64) decimal.Decimal {
	return decimal.New(micro, -6)
}

// ParseMicro converts a string-encoded micro-STX integer, as returned by the
// indexer, to whole STX. An empty string is zero. Anything other than a
// non-negative integer is rejected with an error wrapping ErrBalanceFetch.
func ParseMicro(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return decimal.Zero, fmt.Errorf("%w: micro-STX amount %q is not a non-negative integer", ErrBalanceFetch, s)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrBalanceFetch, err)
	}
	return d.Shift(-6), nil
}
