package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists the identity as a small JSON file, the console
// analog of the browser's local storage entry.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type identityFile struct {
	Email string `json:"email"`
}

// Load reads the persisted email. A missing file is not an error, it
// just means anonymous.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read identity file: %w", err)
	}

	var f identityFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("parse identity file: %w", err)
	}
	return f.Email, nil
}

// Save writes the email, creating parent directories as needed.
func (s *FileStore) Save(email string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create identity directory: %w", err)
	}
	data, err := json.Marshal(identityFile{Email: email})
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	return nil
}

// Clear removes the persisted identity. Missing file is fine.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove identity file: %w", err)
	}
	return nil
}
