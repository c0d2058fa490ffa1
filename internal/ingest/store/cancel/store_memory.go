// Package cancel holds operator cancel requests for running batches. The batch
// coordinator polls it between records.
package cancel

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps cancel requests with their expiry.
type InMemoryStore struct {
	mu       sync.Mutex
	requests map[string]time.Time
	now      func() time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{requests: make(map[string]time.Time), now: time.Now}
}

// Request marks batchID for cancellation for ttl.
func (s *InMemoryStore) Request(_ context.Context, batchID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[batchID] = s.now().Add(ttl)
	return nil
}

func (s *InMemoryStore) IsRequested(_ context.Context, batchID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.requests[batchID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		delete(s.requests, batchID)
		return false, nil
	}
	return true, nil
}

func (s *InMemoryStore) Clear(_ context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, batchID)
	return nil
}
