package transfer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMicro(t *testing.T) {
	assert.Equal(t, int64(10_000_000), ToMicro(decimal.NewFromInt(10)))
	assert.Equal(t, int64(100_000), ToMicro(decimal.RequireFromString("0.1")))
	// sub-micro remainders are floored
	assert.Equal(t, int64(1_234_567), ToMicro(decimal.RequireFromString("1.2345679")))
}

func TestMicroRoundTrip(t *testing.T) {
	for _, s := range []string{"0.1", "1", "12.345678", "999.999999", "1000"} {
		a := decimal.RequireFromString(s)
		assert.True(t, FromMicro(ToMicro(a)).Equal(a), "round trip %s", s)
	}
}

func TestParseMicro(t *testing.T) {
	d, err := ParseMicro("2500000")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("2.5")))

	d, err = ParseMicro("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseMicro("not-a-number")
	assert.ErrorIs(t, err, ErrBalanceFetch)
}

func TestParseMicro_RejectsNonInteger(t *testing.T) {
	for _, s := range []string{"1.5", "-3", "+7", "1e6", " 100", "0x10"} {
		_, err := ParseMicro(s)
		assert.ErrorIs(t, err, ErrBalanceFetch, "input %q", s)
	}
}
