// internal/session/session.go
package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"bookhub/internal/book"
	"bookhub/internal/storage"
)

// storageKey names the single persisted session entry.
const storageKey = "session"

// Store owns the authenticated (user, token) pair for this client. The pair
// persists across restarts and is cleared on logout or on any unauthorized
// response.
type Store struct {
	mu      sync.Mutex
	storage storage.Store
	current *book.Session
}

// NewStore restores any persisted session. A corrupt persisted value is
// deleted and treated as logged-out rather than surfaced as an error.
func NewStore(st storage.Store) *Store {
	s := &Store{storage: st}
	data, ok, err := st.Get(storageKey)
	if err != nil || !ok {
		return s
	}
	var sess book.Session
	if err := json.Unmarshal(data, &sess); err != nil || sess.Token == "" {
		st.Delete(storageKey)
		return s
	}
	s.current = &sess
	return s
}

// Current returns the active session, if any.
func (s *Store) Current() (book.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return book.Session{}, false
	}
	return *s.current, true
}

// Token returns the bearer token for the active session, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Set replaces the active session and persists it.
func (s *Store) Set(sess book.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.storage.Set(storageKey, data); err != nil {
		return err
	}
	s.current = &sess
	return nil
}

// Clear forgets the active session and removes the persisted entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	return s.storage.Delete(storageKey)
}
