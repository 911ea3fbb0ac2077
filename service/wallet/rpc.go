package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// JSON-RPC method names understood by the wallet bridge. The stx_* names
// match the wallet request API.
const (
	MethodConnect      = "wallet_connect"
	MethodDisconnect   = "wallet_disconnect"
	MethodIsConnected  = "wallet_isConnected"
	MethodGetAddresses = "stx_getAddresses"
	MethodTransferSTX  = "stx_transferStx"
)

// codeUserRejected is the EIP-1193 style code wallets use for a declined prompt.
const codeUserRejected = 4001

// RPCProvider talks JSON-RPC 2.0 over HTTP to a local wallet bridge.
// The bridge owns the signing UI; requests block until the user responds.
type RPCProvider struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRPCProvider creates a provider for the bridge at url.
// The default http.Client has no timeout because signing is human-paced;
// bound calls with the context instead.
func NewRPCProvider(url string, httpClient *http.Client, logger *slog.Logger) *RPCProvider {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &RPCProvider{
		url:        url,
		httpClient: httpClient,
		logger:     logger,
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error object returned by the bridge.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("wallet rpc error %d: %s", e.Code, e.Message)
}

// Unwrap lets errors.Is(err, ErrUserRejected) see declined prompts.
func (e *RPCError) Unwrap() error {
	if e.Code == codeUserRejected {
		return ErrUserRejected
	}
	return nil
}

func (p *RPCProvider) Connect(ctx context.Context) error {
	return p.call(ctx, MethodConnect, nil, nil)
}

func (p *RPCProvider) Disconnect(ctx context.Context) error {
	return p.call(ctx, MethodDisconnect, nil, nil)
}

// IsConnected reports false if the bridge cannot be reached.
func (p *RPCProvider) IsConnected(ctx context.Context) bool {
	var connected bool
	if err := p.call(ctx, MethodIsConnected, nil, &connected); err != nil {
		p.logger.WarnContext(ctx, "failed to query wallet connection", "error", err)
		return false
	}
	return connected
}

func (p *RPCProvider) Addresses(ctx context.Context) ([]Address, error) {
	var result struct {
		Addresses []Address `json:"addresses"`
	}
	if err := p.call(ctx, MethodGetAddresses, nil, &result); err != nil {
		return nil, err
	}
	return result.Addresses, nil
}

// TransferSTX asks the wallet to sign and broadcast a transfer and returns
// the transaction id. An empty id is returned as-is for the caller to judge.
func (p *RPCProvider) TransferSTX(ctx context.Context, params TransferParams) (string, error) {
	reqParams := map[string]string{
		"amount":    strconv.FormatInt(params.Amount, 10),
		"recipient": params.Recipient,
	}
	if params.Memo != "" {
		reqParams["memo"] = params.Memo
	}

	var result struct {
		TxID string `json:"txid"`
	}
	if err := p.call(ctx, MethodTransferSTX, reqParams, &result); err != nil {
		return "", err
	}
	return result.TxID, nil
}

func (p *RPCProvider) call(ctx context.Context, method string, params, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	p.logger.DebugContext(ctx, "calling wallet bridge", "method", method)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(b))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil || len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
