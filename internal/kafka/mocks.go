package kafka

import (
	"context"
	"sync"
)

// MockProducer records what it publishes. PublishFunc, when set, runs first
// and a non-nil result is returned without recording the message.
type MockProducer struct {
	mu          sync.Mutex
	published   []PublishedMessage
	PublishFunc func(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
	CloseFunc   func() error
}

type PublishedMessage struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

func NewMockProducer() *MockProducer {
	return &MockProducer{}
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, topic, key, value, headers); err != nil {
			return err
		}
	}

	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	m.published = append(m.published, PublishedMessage{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: copied,
	})
	return nil
}

func (m *MockProducer) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockProducer) Published() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PublishedMessage, len(m.published))
	copy(out, m.published)
	return out
}

// MockDedupeStore holds reservations in a map and remembers releases.
// ReserveErr makes every Reserve fail.
type MockDedupeStore struct {
	mu         sync.Mutex
	ReserveErr error
	held       map[string]bool
	released   []string
}

func NewMockDedupeStore() *MockDedupeStore {
	return &MockDedupeStore{held: make(map[string]bool)}
}

func (m *MockDedupeStore) Reserve(requestID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReserveErr != nil {
		return false, m.ReserveErr
	}
	if m.held[requestID] {
		return false, nil
	}
	m.held[requestID] = true
	return true, nil
}

func (m *MockDedupeStore) Release(requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.held, requestID)
	m.released = append(m.released, requestID)
	return nil
}

func (m *MockDedupeStore) Holds(requestID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[requestID]
}

func (m *MockDedupeStore) Released() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.released...)
}
