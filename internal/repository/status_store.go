package repository

import (
	"context"
	"sync"
)

// StatusStore holds the SystemStatus of this process. Nothing is persisted;
// a new process starts from the zero status.
type StatusStore struct {
	mu     sync.Mutex
	status SystemStatus
}

// NewStatusStore returns an empty status store.
func NewStatusStore() *StatusStore {
	return &StatusStore{}
}

// Get returns a copy of the current status.
func (s *StatusStore) Get(_ context.Context) SystemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.Clone()
}

// Save replaces the status.
func (s *StatusStore) Save(_ context.Context, status SystemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status.Clone()
	return nil
}

// Update applies fn to the current status while holding the store lock, so
// concurrent updates and saves never observe each other halfway.
func (s *StatusStore) Update(_ context.Context, fn func(SystemStatus) SystemStatus) SystemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = fn(s.status.Clone()).Clone()
	return s.status.Clone()
}

// ClearCache resets the status to its zero value.
func (s *StatusStore) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = SystemStatus{}
}
