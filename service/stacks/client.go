package stacks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/brojonat/stakeguard/service/metrics"
	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// ErrTxNotFound is returned when the indexer has not seen a transaction yet.
// Freshly broadcast transactions 404 until they propagate.
var ErrTxNotFound = errors.New("transaction not found")

// ClientConfig configures a Stacks indexer client.
type ClientConfig struct {
	Network    Network
	BaseURL    string       // defaults to Network.DefaultAPIURL()
	HTTPClient *http.Client // defaults to a client with a 30s timeout
	Limiter    *rate.Limiter
	Metrics    *metrics.Metrics // Optional: if nil, no metrics will be recorded
	Logger     *slog.Logger
}

// Client is the HTTP client for the Stacks blockchain indexer API.
// The network is fixed at construction and never changes.
type Client struct {
	network    Network
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a new indexer client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Network == "" {
		cfg.Network = Testnet
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = cfg.Network.DefaultAPIURL()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		network:    cfg.Network,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		limiter:    cfg.Limiter,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// Network returns the network this client was built for.
func (c *Client) Network() Network {
	return c.network
}

// GetBalance returns the spendable STX balance of an address in whole STX.
// Any failure wraps transfer.ErrBalanceFetch.
func (c *Client) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/extended/v1/address/%s/balances", c.baseURL, url.PathEscape(address))

	var body balancesResponse
	status, err := c.getJSON(ctx, "GetBalance", u, &body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", transfer.ErrBalanceFetch, err)
	}
	if status != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: unexpected status %d", transfer.ErrBalanceFetch, status)
	}

	balance, err := transfer.ParseMicro(body.STX.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid balance %q: %w", transfer.ErrBalanceFetch, body.STX.Balance, err)
	}

	c.logger.DebugContext(ctx, "fetched balance",
		"address", address,
		"balance", balance.String(),
		"network", c.network,
	)
	return balance, nil
}

// Balance is GetBalance with a fetch timestamp attached.
func (c *Client) Balance(ctx context.Context, address string) (*transfer.BalanceSnapshot, error) {
	available, err := c.GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	return &transfer.BalanceSnapshot{
		Address:   address,
		Available: available,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// GetTransaction looks a transaction up by id. It returns ErrTxNotFound on 404
// and an error wrapping transfer.ErrNetwork for any other failure.
func (c *Client) GetTransaction(ctx context.Context, txID string) (*Transaction, error) {
	u := fmt.Sprintf("%s/extended/v1/tx/%s", c.baseURL, url.PathEscape(txID))

	var tx Transaction
	status, err := c.getJSON(ctx, "GetTransaction", u, &tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transfer.ErrNetwork, err)
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrTxNotFound
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", transfer.ErrNetwork, status)
	}

	if tx.TxID == "" {
		tx.TxID = txID
	}
	return &tx, nil
}

// getJSON performs a rate-limited GET and decodes a 200 body into out.
// Non-200 responses are drained and their status returned without error.
func (c *Client) getJSON(ctx context.Context, method, u string, out interface{}) (int, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start).Seconds()
	if err != nil {
		c.record(method, "error", duration)
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.record(method, fmt.Sprintf("http_%d", resp.StatusCode), duration)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.DebugContext(ctx, "indexer returned non-200",
			"method", method,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.record(method, "decode_error", duration)
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	c.record(method, "success", duration)
	return resp.StatusCode, nil
}

// wait blocks until the limiter allows one request, or ctx is done.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	r := c.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	if c.metrics != nil {
		c.metrics.RecordRateLimitWait(string(c.network))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

func (c *Client) record(method, status string, duration float64) {
	if c.metrics != nil {
		c.metrics.RecordAPICall(method, status, string(c.network), duration)
	}
}
