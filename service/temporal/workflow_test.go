package temporal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

const testTxID = "0x5f1c0a3d"

func testInput() ConfirmTransferInput {
	return ConfirmTransferInput{
		TxID:         testTxID,
		Sender:       "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM",
		Recipient:    "ST3EKY2FG5KW60TZC2R9D0DF6DJJ98RPW5CN3B9P4",
		Amount:       decimal.RequireFromString("2.5"),
		ReferenceID:  "pool-1",
		Timeout:      30 * time.Second,
		PollInterval: 10 * time.Second,
	}
}

type probeStep struct {
	state transfer.State
	raw   string
	err   error
}

// workflowHarness mocks both activities. Probes follow steps; the last step repeats.
type workflowHarness struct {
	env       *testsuite.TestWorkflowEnvironment
	probes    int
	published []PublishOutcomeInput
}

func newWorkflowHarness(t *testing.T, publishErr error, steps ...probeStep) *workflowHarness {
	t.Helper()
	testSuite := &testsuite.WorkflowTestSuite{}
	h := &workflowHarness{env: testSuite.NewTestWorkflowEnvironment()}

	activities := &Activities{}
	h.env.RegisterActivity(activities.ProbeTransaction)
	h.env.RegisterActivity(activities.PublishOutcome)

	h.env.OnActivity(activities.ProbeTransaction, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, input ProbeTransactionInput) (*ProbeTransactionResult, error) {
			i := h.probes
			if i >= len(steps) {
				i = len(steps) - 1
			}
			h.probes++
			step := steps[i]
			if step.err != nil {
				return nil, step.err
			}
			status := transfer.Status{TxID: input.TxID, State: step.state, RawStatus: step.raw}
			if step.state == transfer.StateFailed {
				status.Reason = step.raw
			}
			return &ProbeTransactionResult{Status: status}, nil
		})

	h.env.OnActivity(activities.PublishOutcome, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, input PublishOutcomeInput) error {
			h.published = append(h.published, input)
			return publishErr
		})

	return h
}

func pending() probeStep   { return probeStep{state: transfer.StatePending, raw: "pending"} }
func notFound() probeStep  { return probeStep{state: transfer.StatePending} }
func confirmed() probeStep { return probeStep{state: transfer.StateConfirmed, raw: "success"} }

func TestConfirmTransferWorkflow(t *testing.T) {
	tests := []struct {
		name          string
		steps         []probeStep
		wantStatus    string
		wantProbes    int
		wantPublished bool
	}{
		{
			name:          "confirmed on first probe",
			steps:         []probeStep{confirmed()},
			wantStatus:    "confirmed",
			wantProbes:    1,
			wantPublished: true,
		},
		{
			name:          "confirmed after not found and pending",
			steps:         []probeStep{notFound(), pending(), confirmed()},
			wantStatus:    "confirmed",
			wantProbes:    3,
			wantPublished: true,
		},
		{
			name:          "aborted by post condition",
			steps:         []probeStep{pending(), {state: transfer.StateFailed, raw: "abort_by_post_condition"}},
			wantStatus:    "failed",
			wantProbes:    2,
			wantPublished: true,
		},
		{
			name:          "probe errors count as pending",
			steps:         []probeStep{{err: errors.New("indexer unavailable")}, confirmed()},
			wantStatus:    "confirmed",
			wantProbes:    2,
			wantPublished: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newWorkflowHarness(t, nil, tt.steps...)

			h.env.ExecuteWorkflow(ConfirmTransferWorkflow, testInput())

			require.True(t, h.env.IsWorkflowCompleted())
			require.NoError(t, h.env.GetWorkflowError())

			var result ConfirmTransferResult
			require.NoError(t, h.env.GetWorkflowResult(&result))
			assert.Equal(t, testTxID, result.TxID)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantProbes, result.Probes)
			assert.Equal(t, tt.wantProbes, h.probes)
			assert.Nil(t, result.Error)

			if tt.wantPublished {
				require.Len(t, h.published, 1)
				assert.Equal(t, transfer.State(tt.wantStatus), h.published[0].Status.State)
				assert.Equal(t, "pool-1", h.published[0].Transfer.ReferenceID)
				assert.Equal(t, tt.wantProbes, h.published[0].Status.Probes)
			}
		})
	}
}

func TestConfirmTransferWorkflow_FailedReason(t *testing.T) {
	h := newWorkflowHarness(t, nil, probeStep{state: transfer.StateFailed, raw: "(err u1)"})

	h.env.ExecuteWorkflow(ConfirmTransferWorkflow, testInput())

	require.NoError(t, h.env.GetWorkflowError())
	var result ConfirmTransferResult
	require.NoError(t, h.env.GetWorkflowResult(&result))
	assert.Equal(t, "failed", result.Status)
	assert.Equal(t, "(err u1)", result.Reason)
}

func TestConfirmTransferWorkflow_Timeout(t *testing.T) {
	h := newWorkflowHarness(t, nil, notFound())

	h.env.ExecuteWorkflow(ConfirmTransferWorkflow, testInput())

	require.True(t, h.env.IsWorkflowCompleted())
	err := h.env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	// 30s timeout at a 10s interval probes at 0s, 10s and 20s.
	assert.Equal(t, 3, h.probes)
	assert.Empty(t, h.published)
}

func TestConfirmTransferWorkflow_PersistentProbeErrorsTimeOut(t *testing.T) {
	h := newWorkflowHarness(t, nil, probeStep{err: errors.New("indexer unavailable")})

	input := testInput()
	input.Timeout = time.Minute
	h.env.ExecuteWorkflow(ConfirmTransferWorkflow, input)

	require.Error(t, h.env.GetWorkflowError())
	assert.Equal(t, 6, h.probes)
}

func TestConfirmTransferWorkflow_PublishFailureKeepsOutcome(t *testing.T) {
	h := newWorkflowHarness(t, errors.New("nats unavailable"), confirmed())

	h.env.ExecuteWorkflow(ConfirmTransferWorkflow, testInput())

	require.NoError(t, h.env.GetWorkflowError())
	var result ConfirmTransferResult
	require.NoError(t, h.env.GetWorkflowResult(&result))
	assert.Equal(t, "confirmed", result.Status)
	require.NotNil(t, result.Error)
	assert.Contains(t, *result.Error, "failed to publish outcome")
}

func TestConfirmTransferWorkflow_Defaults(t *testing.T) {
	h := newWorkflowHarness(t, nil, pending())

	input := testInput()
	input.Timeout = 0
	input.PollInterval = 0
	h.env.ExecuteWorkflow(ConfirmTransferWorkflow, input)

	require.Error(t, h.env.GetWorkflowError())
	// 5m at 10s.
	assert.Equal(t, 30, h.probes)
}
