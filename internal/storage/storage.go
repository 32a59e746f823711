// Package storage persists the published events document.
//
// The document is a plain JSON array, the sole contract with the calendar
// front end. It is read at most once per run and replaced wholesale at run
// end; it is never patched in place, so a failed run can never leave a
// half-written calendar behind.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"harborcal/internal/event"
)

// Store reads and rewrites the events document at one path.
type Store struct {
	path string
}

// New creates a Store for the given document path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted event sequence. A missing document is an empty
// sequence, not an error; first runs start from nothing.
func (s *Store) Load() ([]event.Event, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading events document: %w", err)
	}

	var events []event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parsing events document: %w", err)
	}
	return events, nil
}

// Write atomically replaces the document with the given sequence: encode
// with 2-space indentation and a trailing newline, write to a temp file in
// the same directory, keep a .bak of the previous document, then rename
// over the target.
func (s *Store) Write(events []event.Event) error {
	if events == nil {
		events = []event.Event{}
	}

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding events document: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".events-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}

	// Keep the previous document around; a bad scrape is easier to undo
	// with yesterday's calendar still on disk.
	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, s.path+".bak"); err != nil {
			return fmt.Errorf("backing up previous document: %w", err)
		}
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing events document: %w", err)
	}
	return nil
}
