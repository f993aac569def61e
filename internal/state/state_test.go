package state

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestManager_LoadEmptyWhenFileAbsent(t *testing.T) {
	m := newTestManager(t)

	st, err := m.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(st.Worlds) != 0 {
		t.Errorf("expected empty Worlds map, got %d entries", len(st.Worlds))
	}
}

func TestManager_MarkPendingThenSynced(t *testing.T) {
	m := newTestManager(t)
	const id = "550e8400-e29b-41d4-a716-446655440000"
	const url = "https://worldanvil.example/w"

	if err := m.MarkPending(id, url); err != nil {
		t.Fatalf("MarkPending() error = %v", err)
	}

	w, err := m.GetWorld(id)
	if err != nil {
		t.Fatalf("GetWorld() error = %v", err)
	}
	if w.Status != StatusPending {
		t.Errorf("Status = %q, want %q", w.Status, StatusPending)
	}

	if err := m.MarkSynced(id, url); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}

	w, err = m.GetWorld(id)
	if err != nil {
		t.Fatalf("GetWorld() error = %v", err)
	}
	if w.Status != StatusSynced {
		t.Errorf("Status = %q, want %q", w.Status, StatusSynced)
	}
	if w.LastSync.IsZero() {
		t.Error("expected LastSync to be set")
	}
	if w.NeedsRetry {
		t.Error("expected NeedsRetry false after a synced tick")
	}
}

func TestManager_MarkErrorSetsRetry(t *testing.T) {
	m := newTestManager(t)
	const id = "550e8400-e29b-41d4-a716-446655440000"
	const url = "https://worldanvil.example/w"

	if err := m.MarkError(id, url, errors.New("upstream unreachable")); err != nil {
		t.Fatalf("MarkError() error = %v", err)
	}

	w, err := m.GetWorld(id)
	if err != nil {
		t.Fatalf("GetWorld() error = %v", err)
	}
	if w.Status != StatusError {
		t.Errorf("Status = %q, want %q", w.Status, StatusError)
	}
	if w.LastError != "upstream unreachable" {
		t.Errorf("LastError = %q, want %q", w.LastError, "upstream unreachable")
	}
	if !w.NeedsRetry {
		t.Error("expected NeedsRetry true after an error tick")
	}
}

func TestManager_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	const id = "550e8400-e29b-41d4-a716-446655440000"
	const url = "https://worldanvil.example/w"

	m1, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if err := m1.MarkSynced(id, url); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}

	m2, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	worlds, err := m2.ListWorlds()
	if err != nil {
		t.Fatalf("ListWorlds() error = %v", err)
	}
	if _, ok := worlds[id]; !ok {
		t.Fatal("expected world to persist across Manager instances")
	}
}

func TestManager_GetWorldMissingReturnsError(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.GetWorld("unknown"); err == nil {
		t.Error("expected error for unknown world id")
	}
}

func TestNewManager_DefaultsStateFileName(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	if filepath.Base(m.stateFile) != defaultStateFile {
		t.Errorf("state file = %q, want base %q", m.stateFile, defaultStateFile)
	}
}
