package wallet

import (
	"context"
	"sync"
)

// MockProvider is an in-memory Provider for testing.
type MockProvider struct {
	mu sync.Mutex

	connected   bool
	addresses   []Address
	txID        string
	connectErr  error
	addrErr     error
	transferErr error

	connectCalls    int
	disconnectCalls int
	transfers       []TransferParams
}

// NewMockProvider creates a disconnected mock wallet exposing addresses.
func NewMockProvider(addresses ...string) *MockProvider {
	m := &MockProvider{}
	for _, a := range addresses {
		m.addresses = append(m.addresses, Address{Address: a})
	}
	return m
}

// SetTxID sets the id returned by TransferSTX. Empty simulates no id.
func (m *MockProvider) SetTxID(txID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txID = txID
}

// SetConnectError makes Connect fail.
func (m *MockProvider) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

// SetAddressesError makes Addresses fail.
func (m *MockProvider) SetAddressesError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addrErr = err
}

// SetTransferError makes TransferSTX fail.
func (m *MockProvider) SetTransferError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transferErr = err
}

func (m *MockProvider) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectCalls++
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *MockProvider) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectCalls++
	m.connected = false
	return nil
}

func (m *MockProvider) IsConnected(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockProvider) Addresses(ctx context.Context) ([]Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addrErr != nil {
		return nil, m.addrErr
	}
	return append([]Address(nil), m.addresses...), nil
}

func (m *MockProvider) TransferSTX(ctx context.Context, params TransferParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers = append(m.transfers, params)
	if m.transferErr != nil {
		return "", m.transferErr
	}
	return m.txID, nil
}

// ConnectCalls returns how many times Connect was called.
func (m *MockProvider) ConnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectCalls
}

// DisconnectCalls returns how many times Disconnect was called.
func (m *MockProvider) DisconnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disconnectCalls
}

// Transfers returns every TransferSTX request received.
func (m *MockProvider) Transfers() []TransferParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TransferParams(nil), m.transfers...)
}
