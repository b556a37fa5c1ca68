// internal/storage/storage.go
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists small named entries across sessions, one blob per name.
// It is the storefront's stand-in for browser local storage.
type Store interface {
	Get(name string) ([]byte, bool, error)
	Set(name string, value []byte) error
	Delete(name string) error
}

// FileStore keeps each entry as a JSON file inside a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *FileStore) Get(name string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read entry %q: %w", name, err)
	}
	return data, true, nil
}

func (s *FileStore) Set(name string, value []byte) error {
	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("write entry %q: %w", name, err)
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		return fmt.Errorf("write entry %q: %w", name, err)
	}
	return nil
}

func (s *FileStore) Delete(name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete entry %q: %w", name, err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string][]byte)}
}

func (s *MemStore) Get(name string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.entries[name]
	return value, ok, nil
}

func (s *MemStore) Set(name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = append([]byte(nil), value...)
	return nil
}

func (s *MemStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
	return nil
}
