package session

import (
	"context"
	"sync"
)

// MemoryStore is the in-process fallback used in development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
	users    map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]Turn),
		users:    make(map[string]string),
	}
}

func (s *MemoryStore) Register(_ context.Context, sessionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[sessionID]; !ok {
		s.users[sessionID] = userID
	}
	return nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turns ...Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], turns...)
	return nil
}

func (s *MemoryStore) History(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := trimTail(s.sessions[sessionID], limit)
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
