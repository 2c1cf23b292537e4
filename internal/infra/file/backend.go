package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Backend stores the state document as a single JSON file. This is the default
// backend when neither redis nor postgres is configured.
type Backend struct {
	path string
}

func NewBackend(path string) *Backend {
	return &Backend{path: path}
}

func (b *Backend) Load(_ context.Context) ([]byte, bool, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read state file: %w", err)
	}
	return data, true, nil
}

// Save writes to a temp file and renames it over the target, so a crash
// mid-write never leaves a truncated document behind.
func (b *Backend) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
