// Package store persists each subsystem's state as a single JSON document.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store loads and saves one subsystem's state document. The host must
// serialize calls into each store (single-writer discipline).
type Store interface {
	Load(v any) error
	Save(v any) error
}

// FileStore writes JSON documents atomically (write to a temp file in the
// same directory, then rename).
type FileStore struct {
	path string
}

// NewFileStore creates a store for the given document path, creating parent
// directories as needed.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Load reads the document into v. A missing file leaves v untouched and
// returns nil; a corrupt file returns an error so the caller can fall back
// to empty state.
func (s *FileStore) Load(v any) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	return nil
}

// Save writes the document. Durability is best effort: callers log and
// swallow errors, keeping the in-memory state authoritative.
func (s *FileStore) Save(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", s.path, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	data []byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Load(v any) error {
	if m.data == nil {
		return nil
	}
	return json.Unmarshal(m.data, v)
}

func (m *MemStore) Save(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}
