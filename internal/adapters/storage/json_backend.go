package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tempora/internal/logging"
)

// JSONBackend stores records as a single JSON object file mapping record id
// to raw document. A missing or corrupt file reads as empty so one bad file
// cannot block the rest of the store.
type JSONBackend struct {
	path string
}

// NewJSONBackend creates a file-backed record backend at path.
func NewJSONBackend(path string) *JSONBackend {
	return &JSONBackend{path: path}
}

// Read returns all records, degrading to an empty map on absence or
// corruption.
func (b *JSONBackend) Read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Logger.Warn("record file unreadable, treating as empty", "path", b.path, "error", err)
		}
		return map[string]json.RawMessage{}, nil
	}

	records := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &records); err != nil {
		logging.Logger.Warn("record file corrupt, treating as empty", "path", b.path, "error", err)
		return map[string]json.RawMessage{}, nil
	}
	return records, nil
}

// Write replaces the whole record set atomically via a temp file rename.
func (b *JSONBackend) Write(records map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("failed to replace record file: %w", err)
	}
	return nil
}

// Exists reports whether the record file has been created.
func (b *JSONBackend) Exists() bool {
	_, err := os.Stat(b.path)
	return err == nil
}
