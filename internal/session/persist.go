package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// PersistedState is the subset of AuthState that survives restarts. The
// loading flag is deliberately absent: a restored client always boots with
// IsLoading true until the session is re-verified.
type PersistedState struct {
	User            *AuthUser `json:"user"`
	Profile         *Profile  `json:"profile"`
	IsAuthenticated bool      `json:"isAuthenticated"`
}

// Persister stores auth state across restarts.
type Persister interface {
	Load() (*PersistedState, error)
	Save(state PersistedState) error
}

// FilePersister keeps auth state in a JSON file.
type FilePersister struct {
	path string
}

// NewFilePersister creates a FilePersister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load reads the persisted state. A missing file yields (nil, nil).
func (p *FilePersister) Load() (*PersistedState, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read auth state: %w", err)
	}

	var state PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode auth state: %w", err)
	}
	return &state, nil
}

// Save writes the state atomically via a temp file rename.
func (p *FilePersister) Save(state PersistedState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode auth state: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".auth-state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write auth state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close auth state: %w", err)
	}

	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("replace auth state: %w", err)
	}
	return nil
}
