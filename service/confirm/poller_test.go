package confirm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/brojonat/stakeguard/service/metrics"
	"github.com/brojonat/stakeguard/service/stacks"
	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedIndexer returns one scripted response per call; the last entry
// repeats once the script is exhausted.
type scriptedIndexer struct {
	mu        sync.Mutex
	responses []probeResponse
	calls     int
}

type probeResponse struct {
	tx  *stacks.Transaction
	err error
}

func (s *scriptedIndexer) GetTransaction(ctx context.Context, txID string) (*stacks.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	r := s.responses[i]
	return r.tx, r.err
}

func (s *scriptedIndexer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeClock advances only when the poller sleeps.
type fakeClock struct {
	mu     sync.Mutex
	t      time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return nil
}

func notFound() probeResponse { return probeResponse{err: stacks.ErrTxNotFound} }

func withStatus(status string) probeResponse {
	return probeResponse{tx: &stacks.Transaction{TxID: "0xabc", TxStatus: status}}
}

func newTestPoller(indexer TransactionGetter) (*Poller, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	p := NewPoller(indexer, 0, 0, metrics.NewMetrics(prometheus.NewRegistry()), slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.now = clock.Now
	p.sleep = clock.Sleep
	return p, clock
}

var handle = transfer.Handle{ID: "0xabc"}

func TestAwait_ConfirmedOnFirstPollWithoutSleeping(t *testing.T) {
	height := int64(100)
	indexer := &scriptedIndexer{responses: []probeResponse{
		{tx: &stacks.Transaction{TxID: "0xabc", TxStatus: "success", BlockHeight: &height}},
	}}
	p, clock := newTestPoller(indexer)

	status, err := p.Await(context.Background(), handle, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, transfer.StateConfirmed, status.State)
	require.NotNil(t, status.BlockHeight)
	assert.Equal(t, int64(100), *status.BlockHeight)
	assert.Equal(t, 1, indexer.Calls())
	assert.Empty(t, clock.sleeps)
}

func TestAwait_ConfirmedAfterNotFoundAndPending(t *testing.T) {
	indexer := &scriptedIndexer{responses: []probeResponse{
		notFound(),
		notFound(),
		withStatus("pending"),
		withStatus("pending"),
		withStatus("success"),
	}}
	p, clock := newTestPoller(indexer)

	status, err := p.Await(context.Background(), handle, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, transfer.StateConfirmed, status.State)
	assert.Equal(t, 5, status.Probes)
	assert.Equal(t, 5, indexer.Calls())
	assert.Len(t, clock.sleeps, 4)
	for _, d := range clock.sleeps {
		assert.Equal(t, DefaultPollInterval, d)
	}
}

func TestAwait_FailedAfterThreeNotFound(t *testing.T) {
	indexer := &scriptedIndexer{responses: []probeResponse{
		notFound(),
		notFound(),
		notFound(),
		{tx: &stacks.Transaction{TxID: "0xabc", TxStatus: "abort_by_post_condition"}},
		withStatus("success"), // must never be reached
	}}
	p, clock := newTestPoller(indexer)

	status, err := p.Await(context.Background(), handle, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, transfer.StateFailed, status.State)
	assert.Equal(t, "abort_by_post_condition", status.Reason)
	assert.Equal(t, 4, indexer.Calls(), "exactly one terminal probe after three pending probes")
	assert.Len(t, clock.sleeps, 3)
}

func TestAwait_FailedReasonFromResult(t *testing.T) {
	indexer := &scriptedIndexer{responses: []probeResponse{
		{tx: &stacks.Transaction{
			TxID:     "0xabc",
			TxStatus: "abort_by_response",
			TxResult: &stacks.TxResult{Repr: "(err u1)"},
		}},
	}}
	p, _ := newTestPoller(indexer)

	status, err := p.Await(context.Background(), handle, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, transfer.StateFailed, status.State)
	assert.Equal(t, "(err u1)", status.Reason)
}

func TestAwait_TimeoutAfterThreePolls(t *testing.T) {
	indexer := &scriptedIndexer{responses: []probeResponse{notFound()}}
	p, clock := newTestPoller(indexer)
	start := clock.Now()

	status, err := p.Await(context.Background(), handle, 30*time.Second, 10*time.Second)
	require.ErrorIs(t, err, transfer.ErrConfirmationTimeout)
	assert.Equal(t, transfer.StatePending, status.State)
	assert.Equal(t, 3, indexer.Calls())
	assert.LessOrEqual(t, clock.Now().Sub(start), 30*time.Second+10*time.Second)
}

func TestAwait_TransientErrorsAreRetried(t *testing.T) {
	indexer := &scriptedIndexer{responses: []probeResponse{
		{err: errors.New("connection reset by peer")},
		{err: errors.New("502 bad gateway")},
		withStatus("success"),
	}}
	p, _ := newTestPoller(indexer)

	status, err := p.Await(context.Background(), handle, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, transfer.StateConfirmed, status.State)
	assert.Equal(t, 3, indexer.Calls())
}

func TestAwait_PersistentErrorsTimeOut(t *testing.T) {
	indexer := &scriptedIndexer{responses: []probeResponse{{err: errors.New("indexer down")}}}
	p, _ := newTestPoller(indexer)

	_, err := p.Await(context.Background(), handle, time.Minute, 10*time.Second)
	assert.ErrorIs(t, err, transfer.ErrConfirmationTimeout)
	assert.Equal(t, 6, indexer.Calls())
}

func TestAwait_UnknownStatusStaysPending(t *testing.T) {
	indexer := &scriptedIndexer{responses: []probeResponse{withStatus("dropped_replace_by_fee")}}
	p, _ := newTestPoller(indexer)

	status, err := p.Await(context.Background(), handle, 20*time.Second, 10*time.Second)
	assert.ErrorIs(t, err, transfer.ErrConfirmationTimeout)
	assert.Equal(t, "dropped_replace_by_fee", status.RawStatus)
	assert.Equal(t, 2, indexer.Calls())
}

func TestAwait_CancelledContextStopsPolling(t *testing.T) {
	indexer := &scriptedIndexer{responses: []probeResponse{notFound()}}
	p, _ := newTestPoller(indexer)

	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, d)
	}

	_, err := p.Await(ctx, handle, 0, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, indexer.Calls())
}

func TestAwait_RealClockBound(t *testing.T) {
	indexer := &scriptedIndexer{responses: []probeResponse{notFound()}}
	p := NewPoller(indexer, 0, 0, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	timeout := 60 * time.Millisecond
	interval := 20 * time.Millisecond
	start := time.Now()
	_, err := p.Await(context.Background(), handle, timeout, interval)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, transfer.ErrConfirmationTimeout)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+interval+50*time.Millisecond)
}

func TestProbe(t *testing.T) {
	indexer := &scriptedIndexer{responses: []probeResponse{notFound()}}
	p, _ := newTestPoller(indexer)

	status, err := p.Probe(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, transfer.StatePending, status.State)
	assert.Empty(t, status.RawStatus)
}
