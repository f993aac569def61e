// Package state persists per-world sync status between Scheduler ticks:
// last-tick status, last sync time, and last error string, read back by the
// status command.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultStateFile = "state.yaml"
)

// Status values for a World's last tick.
const (
	StatusPending = "pending"
	StatusSynced  = "synced"
	StatusError   = "error"
)

// Manager handles the state file
type Manager struct {
	stateFile string
	mu        sync.RWMutex
}

// State represents the entire state file
type State struct {
	Worlds map[string]*World `yaml:"worlds"`
}

// World represents a single tracked world's last-tick status.
type World struct {
	URL        string    `yaml:"url"`
	Status     string    `yaml:"status"` // "synced", "pending", "error"
	LastSync   time.Time `yaml:"last_sync,omitempty"`
	NeedsRetry bool      `yaml:"needs_retry"`
	LastError  string    `yaml:"last_error,omitempty"`
}

// NewManager creates a new state manager
func NewManager(stateDir string) (*Manager, error) {
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".wasync")
	}

	// Ensure state directory exists
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	stateFile := filepath.Join(stateDir, defaultStateFile)

	return &Manager{
		stateFile: stateFile,
	}, nil
}

// Load loads the state from file
func (m *Manager) Load() (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// If file doesn't exist, return empty state
	if _, err := os.Stat(m.stateFile); os.IsNotExist(err) {
		return &State{
			Worlds: make(map[string]*World),
		}, nil
	}

	data, err := os.ReadFile(m.stateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	// Initialize map if nil
	if st.Worlds == nil {
		st.Worlds = make(map[string]*World)
	}

	return &st, nil
}

// Save saves the state to file
func (m *Manager) Save(st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(m.stateFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// GetWorld retrieves a world's recorded status by id.
func (m *Manager) GetWorld(id string) (*World, error) {
	st, err := m.Load()
	if err != nil {
		return nil, err
	}

	w, exists := st.Worlds[id]
	if !exists {
		return nil, fmt.Errorf("world %s not found in state", id)
	}

	return w, nil
}

// ListWorlds returns every tracked world's recorded status.
func (m *Manager) ListWorlds() (map[string]*World, error) {
	st, err := m.Load()
	if err != nil {
		return nil, err
	}

	return st.Worlds, nil
}

// MarkPending records that a tick is starting for the given world.
func (m *Manager) MarkPending(id, url string) error {
	st, err := m.Load()
	if err != nil {
		return err
	}

	w, exists := st.Worlds[id]
	if !exists {
		w = &World{URL: url}
		st.Worlds[id] = w
	}
	w.Status = StatusPending

	return m.Save(st)
}

// MarkSynced records a successful tick for the given world.
func (m *Manager) MarkSynced(id, url string) error {
	st, err := m.Load()
	if err != nil {
		return err
	}

	w, exists := st.Worlds[id]
	if !exists {
		w = &World{URL: url}
		st.Worlds[id] = w
	}
	w.Status = StatusSynced
	w.LastSync = time.Now()
	w.LastError = ""
	w.NeedsRetry = false

	return m.Save(st)
}

// MarkError records a failed tick for the given world.
func (m *Manager) MarkError(id, url string, tickErr error) error {
	st, err := m.Load()
	if err != nil {
		return err
	}

	w, exists := st.Worlds[id]
	if !exists {
		w = &World{URL: url}
		st.Worlds[id] = w
	}
	w.Status = StatusError
	w.LastError = tickErr.Error()
	w.NeedsRetry = true

	return m.Save(st)
}
