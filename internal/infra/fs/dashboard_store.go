package fs

// JSON file persistence for user dashboards (tracked wallets and
// whale-alert settings). Writes go through a temp file + rename so a
// crash mid-write never leaves a truncated dashboard behind.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"vybe-pulse/internal/tracker"
)

const dashboardFile = "user_dashboard.json"

// DashboardStore implements tracker.RegistryStore on a single JSON
// file under the data directory.
type DashboardStore struct {
	mu   sync.Mutex
	path string
}

func NewDashboardStore(dataDir string) *DashboardStore {
	return &DashboardStore{path: filepath.Join(dataDir, dashboardFile)}
}

// Load reads persisted user state. A missing file is an empty
// registry, not an error.
func (s *DashboardStore) Load() (map[int64]*tracker.UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[int64]*tracker.UserState{}, nil
		}
		return nil, fmt.Errorf("failed to read dashboard file: %w", err)
	}

	// Keys are strings in JSON; user IDs are int64.
	raw := make(map[string]*tracker.UserState)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dashboard file: %w", err)
	}

	state := make(map[int64]*tracker.UserState, len(raw))
	for key, st := range raw {
		uid, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q in dashboard file: %w", key, err)
		}
		state[uid] = st
	}
	return state, nil
}

// Save writes the whole state atomically.
func (s *DashboardStore) Save(state map[int64]*tracker.UserState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	raw := make(map[string]*tracker.UserState, len(state))
	for uid, st := range state {
		raw[strconv.FormatInt(uid, 10)] = st
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal dashboard state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write dashboard file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace dashboard file: %w", err)
	}
	return nil
}
