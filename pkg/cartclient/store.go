package cartclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// StateStore persists the local cart so it survives a restart; it plays the
// role browser local storage plays for the web storefront.
type StateStore interface {
	// Load returns the persisted state, or (nil, nil) when none exists.
	Load() (*CartState, error)
	Save(state *CartState) error
}

// FileStore persists cart state as a JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted state. A missing file is not an error.
func (s *FileStore) Load() (*CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cart state file: %w", err)
	}

	var state CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart state file: %w", err)
	}
	return &state, nil
}

// Save writes the state to disk.
func (s *FileStore) Save(state *CartState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal cart state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cart state file: %w", err)
	}
	return nil
}

// MemoryStore keeps state in memory. Used in tests.
type MemoryStore struct {
	state *CartState
	mu    sync.Mutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored state.
func (s *MemoryStore) Load() (*CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil, nil
	}
	out := *s.state
	return &out, nil
}

// Save stores a copy of the state.
func (s *MemoryStore) Save(state *CartState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *state
	s.state = &copied
	return nil
}
