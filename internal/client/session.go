package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/yukikurage/taskpilot/internal/constants"
	"github.com/yukikurage/taskpilot/internal/dto"
)

// SessionStore persists the last known signed-in user between runs. It
// only speeds up the first render and is not a security boundary.
type SessionStore interface {
	Load() (*dto.UserDTO, error)
	Save(user *dto.UserDTO) error
	Clear() error
}

// FileSessionStore keeps the user under a single key of a JSON file.
type FileSessionStore struct {
	mu   sync.Mutex
	path string
}

func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

// Load returns nil when nothing is stored.
func (s *FileSessionStore) Load() (*dto.UserDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return nil, err
	}
	raw, ok := entries[constants.PersistedUserKey]
	if !ok || string(raw) == "null" {
		return nil, nil
	}

	var user dto.UserDTO
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to parse stored user: %w", err)
	}
	return &user, nil
}

// Save stores user, replacing any previous one. A nil user clears the key.
func (s *FileSessionStore) Save(user *dto.UserDTO) error {
	if user == nil {
		return s.Clear()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		// Unreadable contents are replaced
		entries = make(map[string]json.RawMessage)
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	entries[constants.PersistedUserKey] = raw
	return s.write(entries)
}

// Clear removes the stored user.
func (s *FileSessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		entries = make(map[string]json.RawMessage)
	}
	if _, ok := entries[constants.PersistedUserKey]; !ok && err == nil {
		return nil
	}
	delete(entries, constants.PersistedUserKey)
	return s.write(entries)
}

func (s *FileSessionStore) read() (map[string]json.RawMessage, error) {
	entries := make(map[string]json.RawMessage)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return entries, nil
}

func (s *FileSessionStore) write(entries map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
