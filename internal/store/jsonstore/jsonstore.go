package jsonstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/Makepad-fr/hosttodo/internal/model"
)

// JSON-backed snapshot of the last successful fetch. Single file,
// human-readable. Read-only as far as mutations go: add/rm always hit the
// server.

const dataFileName = "todos.json"

// Snapshot is what gets written to disk.
type Snapshot struct {
	Endpoint  string       `json:"endpoint"`
	FetchedAt time.Time    `json:"fetched_at"`
	Todos     []model.Todo `json:"todos"`
}

// Store reads and writes one snapshot file.
type Store struct {
	path string
}

// New returns a store at path, or at the default cache location when path
// is empty.
func New(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{path: path}, nil
}

// DefaultPath is $XDG_CACHE_HOME/hosttodo/todos.json.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cache dir: %w", err)
	}
	return filepath.Join(dir, "hosttodo", dataFileName), nil
}

func (s *Store) Path() string { return s.path }

// Load returns the stored snapshot. A missing file is an empty snapshot.
func (s *Store) Load() (Snapshot, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{Todos: []model.Todo{}}, nil
		}
		return Snapshot{}, fmt.Errorf("read file: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	if snap.Todos == nil {
		snap.Todos = []model.Todo{}
	}
	return snap, nil
}

// Save replaces the snapshot.
func (s *Store) Save(snap Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
