// Package storage persists small editor state as JSON values under
// fixed keys, mirroring the browser's local storage model with a
// directory-backed implementation.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Well-known keys.
const (
	KeySavedSignatures           = "pdf-editor-saved-signatures"
	KeyRedactionWarningDismissed = "pdf-editor-redaction-warning-dismissed"
)

// Store is a JSON key-value store.
type Store interface {
	// Get unmarshals the value under key into out, reporting false
	// when the key does not exist.
	Get(key string, out interface{}) (bool, error)

	// Set marshals v and stores it under key.
	Set(key string, v interface{}) error

	// Delete removes the key; deleting a missing key is not an error.
	Delete(key string) error
}

// FileStore keeps one JSON file per key inside a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory when missing.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(key string) string {
	// Keys are fixed names, but keep path characters out anyway.
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '-'
		}
		return r
	}, key)
	return filepath.Join(s.root, safe+".json")
}

func (s *FileStore) Get(key string, out interface{}) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *FileStore) Set(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// SavedSignature is one reusable signature image.
type SavedSignature struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	DataURL   string    `json:"dataUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoadSignatures reads the saved signature list; a missing key yields
// an empty list.
func LoadSignatures(s Store) ([]SavedSignature, error) {
	var out []SavedSignature
	if _, err := s.Get(KeySavedSignatures, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveSignatures replaces the saved signature list.
func SaveSignatures(s Store, sigs []SavedSignature) error {
	return s.Set(KeySavedSignatures, sigs)
}

// RedactionWarningDismissed reads the "don't show again" flag; errors
// read as not dismissed.
func RedactionWarningDismissed(s Store) bool {
	var dismissed bool
	ok, err := s.Get(KeyRedactionWarningDismissed, &dismissed)
	return err == nil && ok && dismissed
}

// DismissRedactionWarning persists the flag.
func DismissRedactionWarning(s Store) error {
	return s.Set(KeyRedactionWarningDismissed, true)
}
