// Package file keeps the last-seen identifier in a plain text file.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/dropwatch/internal/store"
	"github.com/MrSnakeDoc/dropwatch/internal/utils"
)

const backend = "file"

// Store writes the raw identifier, nothing else, to path.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ store.Store = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Backend() string { return backend }

func (s *Store) Path() string { return s.path }

func (s *Store) Load(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, &store.ReadError{Backend: backend, Err: err}
	}

	id := strings.TrimSpace(string(raw))
	if id == "" {
		return "", false, nil
	}
	return id, true, nil
}

// Save replaces the file through a temp file and rename so a reader never
// observes a partial identifier.
func (s *Store) Save(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeAtomic(id); err != nil {
		return &store.WriteError{Backend: backend, ID: id, Err: err}
	}
	return nil
}

func (s *Store) writeAtomic(id string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() // no-op after a successful rename

	if _, err := tmp.WriteString(id); err != nil {
		utils.Close(tmp)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		utils.Close(tmp)
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
