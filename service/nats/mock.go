package nats

import (
	"context"
	"sync"
)

// MockPublisher records events in memory instead of sending them.
type MockPublisher struct {
	mu     sync.Mutex
	events []*TransferEvent
	err    error
	closed bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishTransfer records event unless an error has been set.
func (m *MockPublisher) PublishTransfer(ctx context.Context, event *TransferEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns a copy of the recorded events.
func (m *MockPublisher) GetPublishedEvents() []*TransferEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*TransferEvent(nil), m.events...)
}

// SetPublishError makes every later PublishTransfer fail with err.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockPublisher) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
