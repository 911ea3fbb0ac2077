// Package session owns the wallet session and sequences a transfer from
// validation through confirmation.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	natspkg "github.com/brojonat/stakeguard/service/nats"
	"github.com/brojonat/stakeguard/service/transfer"
	"github.com/brojonat/stakeguard/service/wallet"
	"github.com/shopspring/decimal"
)

// Session is the observable wallet state. Balance is invalid (absent) when
// disconnected, not yet fetched, or when the last fetch failed.
type Session struct {
	Connected      bool                `json:"connected"`
	Address        string              `json:"address,omitempty"`
	Balance        decimal.NullDecimal `json:"balance"`
	BalanceLoading bool                `json:"balance_loading"`
}

// Oracle reads the spendable balance of an address.
type Oracle interface {
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Submitter hands a transfer to the wallet for signing and broadcast.
type Submitter interface {
	Submit(ctx context.Context, req transfer.Request) (transfer.Handle, error)
	Recipient() string
}

// Confirmer waits for a submitted transaction to reach a terminal state.
type Confirmer interface {
	Await(ctx context.Context, handle transfer.Handle, timeout, interval time.Duration) (transfer.Status, error)
}

// Config wires a Manager to its collaborators.
type Config struct {
	Provider  wallet.Provider
	Oracle    Oracle
	Submitter Submitter
	Confirmer Confirmer

	// Publisher is optional. When set, terminal outcomes are published.
	Publisher natspkg.Publisher

	// Zero values defer to the confirmer's defaults.
	ConfirmTimeout time.Duration
	PollInterval   time.Duration

	Logger *slog.Logger
}

// Manager is the single owner of the Session. Every method returns a copy
// of the state it left behind.
type Manager struct {
	provider  wallet.Provider
	oracle    Oracle
	submitter Submitter
	confirmer Confirmer
	publisher natspkg.Publisher
	timeout   time.Duration
	interval  time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	session Session
	loading int

	refreshes sync.WaitGroup
}

// NewManager creates a Manager in the disconnected state.
func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		provider:  cfg.Provider,
		oracle:    cfg.Oracle,
		submitter: cfg.Submitter,
		confirmer: cfg.Confirmer,
		publisher: cfg.Publisher,
		timeout:   cfg.ConfirmTimeout,
		interval:  cfg.PollInterval,
		logger:    logger,
	}
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Connect opens a wallet session if one is not already open, then derives
// the active address and refreshes its balance before returning.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	if !m.provider.IsConnected(ctx) {
		if err := m.provider.Connect(ctx); err != nil {
			return m.Snapshot(), fmt.Errorf("failed to connect wallet: %w", err)
		}
	}

	if !m.provider.IsConnected(ctx) {
		m.clear()
		return m.Snapshot(), transfer.ErrNotConnected
	}

	addresses, err := m.provider.Addresses(ctx)
	if err != nil {
		m.mu.Lock()
		m.session = Session{Connected: true}
		m.mu.Unlock()
		return m.Snapshot(), fmt.Errorf("failed to read wallet addresses: %w", err)
	}
	address := pickAddress(addresses)

	m.mu.Lock()
	changed := m.session.Address != address
	m.session.Connected = true
	m.session.Address = address
	if changed {
		m.session.Balance = decimal.NullDecimal{}
	}
	m.mu.Unlock()

	if address == "" {
		m.logger.WarnContext(ctx, "wallet connected without an STX address")
		return m.Snapshot(), nil
	}

	m.logger.InfoContext(ctx, "wallet connected", "address", address)
	return m.RefreshBalance(ctx, address), nil
}

// Disconnect ends the wallet session. The local state is cleared even when
// the provider fails to disconnect.
func (m *Manager) Disconnect(ctx context.Context) Session {
	if err := m.provider.Disconnect(ctx); err != nil {
		m.logger.WarnContext(ctx, "wallet disconnect failed", "error", err)
	}
	m.clear()
	m.logger.InfoContext(ctx, "wallet disconnected")
	return m.Snapshot()
}

// RefreshBalance fetches the balance of the session address. An empty
// address means the session address; any other address that is not the
// session address is ignored without a fetch, since only the session
// address's balance is stored. A failed fetch leaves the balance absent;
// it is logged and not returned.
func (m *Manager) RefreshBalance(ctx context.Context, address string) Session {
	m.mu.Lock()
	if address == "" {
		address = m.session.Address
	}
	if address == "" || !m.session.Connected || address != m.session.Address {
		s := m.session
		m.mu.Unlock()
		return s
	}
	m.loading++
	m.session.BalanceLoading = true
	m.mu.Unlock()

	balance, err := m.oracle.GetBalance(ctx, address)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading--
	m.session.BalanceLoading = m.loading > 0

	// The session may have been closed or switched while the fetch was in
	// flight; a stale result must not resurrect a balance.
	if !m.session.Connected || m.session.Address != address {
		return m.session
	}
	if err != nil {
		m.logger.WarnContext(ctx, "balance refresh failed", "address", address, "error", err)
		m.session.Balance = decimal.NullDecimal{}
		return m.session
	}
	m.session.Balance = decimal.NullDecimal{Decimal: balance, Valid: true}
	return m.session
}

// SubmitRequest is a transfer from the connected wallet.
type SubmitRequest struct {
	Amount      decimal.Decimal
	ReferenceID string
	Memo        string
}

// SubmitAndConfirm validates req, checks the sender's balance, submits the
// transfer through the wallet and waits for a terminal status. It returns the
// transaction id on confirmation.
//
// Once the wallet has broadcast, the transaction id is returned alongside
// any error so the caller can follow up on an unknown outcome. A ledger
// abort is reported as *transfer.FailedError; a timeout wraps
// transfer.ErrConfirmationTimeout.
func (m *Manager) SubmitAndConfirm(ctx context.Context, req SubmitRequest) (string, error) {
	snap := m.Snapshot()
	if !snap.Connected || snap.Address == "" {
		return "", transfer.ErrNotConnected
	}

	full := transfer.Request{
		Amount:        req.Amount,
		SenderAddress: snap.Address,
		ReferenceID:   req.ReferenceID,
		Memo:          req.Memo,
	}
	if err := transfer.Validate(full); err != nil {
		return "", err
	}

	balance, err := m.oracle.GetBalance(ctx, full.SenderAddress)
	if err != nil {
		return "", err
	}
	m.setBalance(full.SenderAddress, balance)
	if full.Amount.GreaterThan(balance) {
		return "", fmt.Errorf("%w: have %s STX, need %s STX", transfer.ErrInsufficientBalance, balance, full.Amount)
	}

	handle, err := m.submitter.Submit(ctx, full)
	if err != nil {
		return "", err
	}

	logger := m.logger.With("tx_id", handle.ID, "reference_id", full.ReferenceID)
	logger.InfoContext(ctx, "transfer submitted", "amount", full.Amount.String())

	status, err := m.confirmer.Await(ctx, handle, m.timeout, m.interval)
	if err != nil {
		logger.WarnContext(ctx, "transfer outcome unknown", "error", err)
		return handle.ID, fmt.Errorf("transaction %s: %w", handle.ID, err)
	}

	m.publish(ctx, full, status)

	if status.State == transfer.StateFailed {
		return handle.ID, &transfer.FailedError{TxID: handle.ID, Reason: status.Reason}
	}

	m.refreshes.Add(1)
	go func() {
		defer m.refreshes.Done()
		m.RefreshBalance(context.WithoutCancel(ctx), full.SenderAddress)
	}()

	logger.InfoContext(ctx, "transfer confirmed", "block_height", status.BlockHeight)
	return handle.ID, nil
}

// Wait blocks until background balance refreshes have finished.
func (m *Manager) Wait() {
	m.refreshes.Wait()
}

func (m *Manager) publish(ctx context.Context, req transfer.Request, status transfer.Status) {
	if m.publisher == nil {
		return
	}
	event := natspkg.NewTransferEvent(req, m.submitter.Recipient(), status)
	if err := m.publisher.PublishTransfer(ctx, event); err != nil {
		m.logger.ErrorContext(ctx, "failed to publish transfer outcome",
			"tx_id", status.TxID,
			"error", err,
		)
	}
}

func (m *Manager) setBalance(address string, balance decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Connected && m.session.Address == address {
		m.session.Balance = decimal.NullDecimal{Decimal: balance, Valid: true}
	}
}

func (m *Manager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.Connected = false
	m.session.Address = ""
	m.session.Balance = decimal.NullDecimal{}
}

// pickAddress returns the first Stacks address, falling back to the first
// address of any kind.
func pickAddress(addresses []wallet.Address) string {
	for _, a := range addresses {
		if strings.HasPrefix(a.Address, "SP") || strings.HasPrefix(a.Address, "ST") {
			return a.Address
		}
	}
	if len(addresses) > 0 {
		return addresses[0].Address
	}
	return ""
}
