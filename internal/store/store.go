// Package store persists entity collections as flat JSON array files.
//
// Every mutation is a whole-collection read-modify-write with no locking and
// no transactional grouping across files; the system assumes a single writer
// at a time. A crash between two file writes can leave one collection
// updated and the other not — accepted, matching the historical data layout.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store is the persistence contract for one entity collection. Load returns
// the full collection; Save replaces it wholesale.
type Store[T any] interface {
	Load() ([]T, error)
	Save(records []T) error
}

// FileStore keeps a collection in a single JSON file holding one array of
// records.
type FileStore[T any] struct {
	path string
}

// NewFileStore returns a FileStore backed by the given file path.
func NewFileStore[T any](path string) *FileStore[T] {
	return &FileStore[T]{path: path}
}

// Path returns the backing file path.
func (s *FileStore[T]) Path() string { return s.path }

// Load reads the full collection. A missing file reads as an empty
// collection, not an error.
func (s *FileStore[T]) Load() ([]T, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", s.path, err)
	}
	return records, nil
}

// Save replaces the collection on disk. The file is written to a temp name
// and renamed into place so a crash mid-write never truncates the
// collection.
func (s *FileStore[T]) Save(records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", s.path, err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("store: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: temp file for %s: %w", s.path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("store: write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: close %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: replace %s: %w", s.path, err)
	}
	return nil
}

// Append loads the collection, appends one record and saves it back.
func Append[T any](s Store[T], record T) error {
	records, err := s.Load()
	if err != nil {
		return err
	}
	return s.Save(append(records, record))
}
