package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory. Suitable for tests and
// single-instance deployments where losing sessions on restart is fine.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Session{}}
}

func (s *MemoryStore) Read(_ context.Context, sid string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sessions[sid].clone(), nil
}

func (s *MemoryStore) Write(_ context.Context, sid string, sess Session) error {
	s.mu.Lock()
	s.sessions[sid] = sess.clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sid string) error {
	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()
	return nil
}
