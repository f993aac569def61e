// Package registry implements the crash-tolerant persistent id->hash mapping
// that backs beacon/track change detection and the file index: a single JSON
// object file per registry, replaced atomically on every update.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lcgerke/wasync/internal/canonhash"
	syncerr "github.com/lcgerke/wasync/internal/errors"
)

// Registry is a persistent JSON object file mapping identifier -> string
// value (a hash for beacon_hash_reg/track_hash_reg, a kind tag for
// file_index).
type Registry struct {
	path string
	mu   sync.RWMutex
}

// Open returns a Registry backed by path. The file must already exist; use
// Init to create a fresh empty registry.
func Open(path string) *Registry {
	return &Registry{path: path}
}

// Init creates an empty registry file ("{}") if one does not already exist.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return syncerr.Wrap(syncerr.KindIOError, "stat registry file", err)
	}
	return writeAtomic(path, map[string]string{})
}

// Load reads and parses the whole registry. A missing, empty, or malformed
// file surfaces as CorruptState.
func (r *Registry) Load() (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadLocked()
}

func (r *Registry) loadLocked() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, syncerr.Wrap(syncerr.KindCorruptState, fmt.Sprintf("registry file missing: %s", r.path), err)
		}
		return nil, syncerr.Wrap(syncerr.KindIOError, "read registry file", err)
	}
	if len(data) == 0 {
		return nil, syncerr.New(syncerr.KindCorruptState, fmt.Sprintf("registry file empty: %s", r.path))
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, syncerr.Wrap(syncerr.KindCorruptState, fmt.Sprintf("registry file is not valid JSON: %s", r.path), err)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

// Get returns the stored value for id, or "", false if absent. O(1) after
// the whole-file load.
func (r *Registry) Get(id string) (string, bool, error) {
	m, err := r.Load()
	if err != nil {
		return "", false, err
	}
	v, ok := m[id]
	return v, ok, nil
}

// UpdateEntry sets id -> hash(value) and persists the whole map atomically.
func (r *Registry) UpdateEntry(id string, value []byte) error {
	hash, err := canonhash.Hash(value)
	if err != nil {
		return syncerr.Wrap(syncerr.KindIOError, "hash registry value", err)
	}
	return r.UpdateRegistry(map[string]string{id: hash})
}

// UpdateRegistry merges delta into the stored map and persists it atomically
// (temp file, fsync, rename) so a crash mid-write leaves either the prior or
// the new state, never a partial one.
func (r *Registry) UpdateRegistry(delta map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.loadLocked()
	if err != nil {
		return err
	}
	for k, v := range delta {
		m[k] = v
	}
	return writeAtomic(r.path, m)
}

// Set writes a literal value for id (used by the file index, whose values
// are kind tags rather than hashes).
func (r *Registry) Set(id, value string) error {
	return r.UpdateRegistry(map[string]string{id: value})
}

// CompareAgainstEntry reports whether hash(value) equals the stored entry
// for id. Absence yields false, never an error.
func (r *Registry) CompareAgainstEntry(id string, value []byte) (bool, error) {
	stored, ok, err := r.Get(id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	hash, err := canonhash.Hash(value)
	if err != nil {
		return false, syncerr.Wrap(syncerr.KindIOError, "hash comparison value", err)
	}
	return stored == hash, nil
}

// CompareAgainstRegistry reports whether hash(value) equals the canonical
// hash of the whole loaded registry (whole-file equality, used for file
// index drift detection).
func (r *Registry) CompareAgainstRegistry(value map[string]string) (bool, error) {
	current, err := r.Load()
	if err != nil {
		return false, err
	}

	currentHash, err := canonhash.HashAny(toAnyMap(current))
	if err != nil {
		return false, err
	}
	valueHash, err := canonhash.HashAny(toAnyMap(value))
	if err != nil {
		return false, err
	}
	return currentHash == valueHash, nil
}

// Rebuild recomputes a track hash registry from the payload files already
// present in workdir: every file named by a 36-character UUID is hashed and
// written back, recovering from a corrupted registry without re-fetching
// from upstream.
func (r *Registry) Rebuild(workdir string, isUUID func(string) bool) (int, error) {
	entries, err := os.ReadDir(workdir)
	if err != nil {
		return 0, syncerr.Wrap(syncerr.KindIOError, "read working tree", err)
	}

	rebuilt := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() || !isUUID(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(workdir, entry.Name()))
		if err != nil {
			return 0, syncerr.Wrap(syncerr.KindIOError, "read tracked payload", err)
		}
		hash, err := canonhash.Hash(data)
		if err != nil {
			return 0, syncerr.Wrap(syncerr.KindIOError, "hash tracked payload", err)
		}
		rebuilt[entry.Name()] = hash
	}

	if err := writeAtomic(r.path, rebuilt); err != nil {
		return 0, err
	}
	return len(rebuilt), nil
}

func toAnyMap(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// writeAtomic writes v as JSON to path via a temp sibling file, fsync, then
// rename. The rename is atomic on the same filesystem, so a crash mid-write
// never leaves a partially-written registry in place.
func writeAtomic(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return syncerr.Wrap(syncerr.KindIOError, "marshal registry", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return syncerr.Wrap(syncerr.KindIOError, "create temp registry file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return syncerr.Wrap(syncerr.KindIOError, "write temp registry file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return syncerr.Wrap(syncerr.KindIOError, "fsync temp registry file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return syncerr.Wrap(syncerr.KindIOError, "close temp registry file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return syncerr.Wrap(syncerr.KindIOError, "rename temp registry file into place", err)
	}
	return nil
}
