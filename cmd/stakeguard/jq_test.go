package main

import (
	"testing"

	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTruthy(t *testing.T) {
	assert.False(t, isTruthy(nil))
	assert.False(t, isTruthy(false))
	assert.True(t, isTruthy(true))
	assert.True(t, isTruthy(0.0))
	assert.True(t, isTruthy(""))
	assert.True(t, isTruthy(map[string]interface{}{}))
}

func TestRunJQ(t *testing.T) {
	height := int64(1200)
	status := transfer.Status{TxID: "0xabc", State: transfer.StateConfirmed, RawStatus: "success", BlockHeight: &height}

	tests := []struct {
		name string
		expr string
		want []interface{}
	}{
		{"field", ".state", []interface{}{"confirmed"}},
		{"comparison", `.raw_status == "success"`, []interface{}{true}},
		{"number", ".block_height", []interface{}{1200.0}},
		{"multiple results", ".tx_id, .state", []interface{}{"0xabc", "confirmed"}},
		{"omitted field is null", ".reason", []interface{}{nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := compileJQ(tt.expr)
			require.NoError(t, err)
			got, err := runJQ(code, status)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileJQ_InvalidExpression(t *testing.T) {
	_, err := compileJQ(".state ==")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse jq filter")
}

func TestRunJQ_FilterError(t *testing.T) {
	code, err := compileJQ(`.state | error("boom")`)
	require.NoError(t, err)
	_, err = runJQ(code, transfer.Status{State: transfer.StatePending})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jq filter error")
}

func TestMustMatch(t *testing.T) {
	status := transfer.Status{TxID: "0xabc", State: transfer.StatePending, RawStatus: "pending"}

	assert.NoError(t, mustMatch(nil, status))
	assert.NoError(t, mustMatch([]string{`.state == "pending"`, `.tx_id | startswith("0x")`}, status))

	err := mustMatch([]string{`.state == "pending"`, `.state == "confirmed"`}, status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `.state == "confirmed"`)

	assert.Error(t, mustMatch([]string{`.reason`}, status))
	assert.Error(t, mustMatch([]string{`empty`}, status))
}
