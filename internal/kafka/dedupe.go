package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupeStore claims request IDs so that each request is answered once.
// Reserve reports false when the ID is already held. Release gives up a
// claim so that a later redelivery can be processed.
type DedupeStore interface {
	Reserve(requestID string) (bool, error)
	Release(requestID string) error
}

// InMemoryDedupeStore keeps IDs until their TTL passes.
type InMemoryDedupeStore struct {
	mu    sync.RWMutex
	store map[string]time.Time
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

func NewInMemoryDedupeStore(ttl time.Duration) *InMemoryDedupeStore {
	s := &InMemoryDedupeStore{
		store: make(map[string]time.Time),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go s.cleanup(time.Minute)
	return s
}

func (s *InMemoryDedupeStore) Reserve(requestID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, held := s.store[requestID]; held && now.Before(expiry) {
		return false, nil
	}
	s.store[requestID] = now.Add(s.ttl)
	return true, nil
}

func (s *InMemoryDedupeStore) Release(requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, requestID)
	return nil
}

func (s *InMemoryDedupeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.store)
}

// Close stops the background sweeper.
func (s *InMemoryDedupeStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *InMemoryDedupeStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *InMemoryDedupeStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, expiry := range s.store {
		if !now.Before(expiry) {
			delete(s.store, id)
		}
	}
}

// RedisDedupeStore shares dedupe state between responder instances.
type RedisDedupeStore struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

func NewRedisDedupeStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisDedupeStore {
	if prefix == "" {
		prefix = "message-details:dedupe:"
	}
	return &RedisDedupeStore{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		timeout: 2 * time.Second,
	}
}

// Reserve claims the ID with SET NX, so only one instance wins it.
func (s *RedisDedupeStore) Reserve(requestID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ok, err := s.client.SetNX(ctx, s.key(requestID), 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve request %s: %w", requestID, err)
	}
	return ok, nil
}

func (s *RedisDedupeStore) Release(requestID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key(requestID)).Err(); err != nil {
		return fmt.Errorf("failed to release request %s: %w", requestID, err)
	}
	return nil
}

func (s *RedisDedupeStore) key(requestID string) string {
	return s.prefix + requestID
}
