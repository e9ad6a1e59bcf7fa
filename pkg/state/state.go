// Package state persists CLI session data between invocations.
//
// A browser keeps the exchanged authorization codes in its session cookie.
// The CLI has no cookie, so the same data lives in a YAML file under the XDG
// state directory:
//
//   - Linux: ~/.local/state/isbridge/session.yaml
//   - macOS: ~/Library/Application Support/isbridge/session.yaml
//   - Windows: %LOCALAPPDATA%\isbridge\session.yaml
//
// The Manager satisfies auth.Session, so it can be handed straight to
// Manager.ExchangeCode and saved afterwards.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Manager handles loading and saving the session file.
type Manager struct {
	statePath string
	state     *State
	mu        sync.RWMutex
}

// State is the persisted session.
type State struct {
	// Authorization codes already exchanged, oldest first.
	PendingCodes []string `yaml:"pending_codes,omitempty" json:"pending_codes,omitempty"`

	LastCommand     string    `yaml:"last_command,omitempty" json:"last_command,omitempty"`
	LastCommandTime time.Time `yaml:"last_command_time,omitempty" json:"last_command_time,omitempty"`

	LastModified time.Time `yaml:"last_modified,omitempty" json:"last_modified,omitempty"`
}

// NewManager opens the session file for appName in the XDG state directory.
func NewManager(appName string) (*Manager, error) {
	return NewManagerAt(filepath.Join(xdg.StateHome, appName, "session.yaml"))
}

// NewManagerAt opens the session file at path. A missing file is not an error.
func NewManagerAt(path string) (*Manager, error) {
	m := &Manager{
		statePath: path,
		state:     &State{},
	}

	if err := m.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load state: %w", err)
		}
	}

	return m, nil
}

// Load loads state from disk.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		return err
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}

	m.state = &state
	return nil
}

// Save saves state to disk.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.statePath), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	m.state.LastModified = time.Now()

	data, err := yaml.Marshal(m.state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Write to file with atomic rename
	tmpPath := m.statePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpPath, m.statePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save state file: %w", err)
	}

	return nil
}

// PendingCodes returns a copy of the exchanged codes.
func (m *Manager) PendingCodes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.state.PendingCodes...)
}

// SetPendingCodes replaces the exchanged codes. Call Save to persist them.
func (m *Manager) SetPendingCodes(codes []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.PendingCodes = append([]string(nil), codes...)
}

// ClearPendingCodes forgets every exchanged code.
func (m *Manager) ClearPendingCodes() {
	m.SetPendingCodes(nil)
}

// SetSessionCommand records the last command run.
func (m *Manager) SetSessionCommand(command string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastCommand = command
	m.state.LastCommandTime = time.Now()
}

// GetStatePath returns the path to the state file.
func (m *Manager) GetStatePath() string {
	return m.statePath
}

// Reset clears all state in memory.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = &State{}
}

// GetState returns a copy of the current state.
func (m *Manager) GetState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stateCopy := *m.state
	stateCopy.PendingCodes = append([]string(nil), m.state.PendingCodes...)
	return stateCopy
}
