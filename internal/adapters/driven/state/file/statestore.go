// Package file provides file-backed implementations of the driven
// persistence ports.
package file

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/semdex/internal/core/domain"
	"github.com/custodia-labs/semdex/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// StateStore is a JSON-file-based implementation of driven.StateStore.
// State is written atomically via a temp file and rename, so a crash
// mid-write leaves the previous state intact.
type StateStore struct {
	mu       sync.Mutex
	filePath string
}

// NewStateStore creates a state store under dataDir.
// If dataDir is empty, defaults to ~/.semdex.
func NewStateStore(dataDir string) (*StateStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(home, ".semdex")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, err
	}

	return &StateStore{
		filePath: filepath.Join(dataDir, "index_state.json"),
	}, nil
}

// Load reads the persisted state. A missing file yields an empty state.
func (s *StateStore) Load() (driven.IndexState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := driven.IndexState{
		Records: make(map[string]domain.FileRecord),
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, err
	}

	if err := json.Unmarshal(data, &state); err != nil {
		return driven.IndexState{Records: make(map[string]domain.FileRecord)}, err
	}
	if state.Records == nil {
		state.Records = make(map[string]domain.FileRecord)
	}
	return state, nil
}

// Save writes the state, replacing any previous contents.
func (s *StateStore) Save(state driven.IndexState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}

// Path returns the state file path.
func (s *StateStore) Path() string {
	return s.filePath
}
