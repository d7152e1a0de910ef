package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore persists sessions to a single JSON file so they survive portal
// restarts. The whole file is rewritten on every mutation, which is fine at
// the scale of one salon's staff.
type FileStore struct {
	path     string
	mu       sync.Mutex
	sessions map[string]Session
}

func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, os.ErrInvalid
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	store := &FileStore{path: path, sessions: map[string]Session{}}
	if err := store.load(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *FileStore) Read(_ context.Context, sid string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions[sid].clone(), nil
}

func (s *FileStore) Write(_ context.Context, sid string, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sid] = sess.clone()
	return s.saveLocked()
}

func (s *FileStore) Clear(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sid)
	return s.saveLocked()
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	return json.Unmarshal(data, &s.sessions)
}

func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o600)
}
