// Package hooks installs the git hook that defends registry integrity at
// the repository layer: a pre-commit hook that shells out to the daemon's
// own verify-registries subcommand, so a corrupt registry file can never be
// baked into a snapshot.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	backupSuffix = ".wasync-backup"
)

// PreCommitHook rejects a commit if any of the three registry files would
// fail to parse as JSON, defending registry integrity at the git layer in
// addition to the Go layer.
const PreCommitHook = `#!/bin/bash
# wasync pre-commit hook
# Rejects the commit if a registry file is not valid JSON.

wasyncd verify-registries --quiet || {
    echo "wasync: a registry file failed validation, refusing to commit"
    echo "Run 'wasyncd verify-registries' for details"
    exit 1
}
`

// Manager handles git hook installation.
type Manager struct {
	repoPath string
	hooksDir string
}

// NewManager creates a new hooks manager rooted at repoPath's .git/hooks.
func NewManager(repoPath string) *Manager {
	hooksDir := filepath.Join(repoPath, ".git", "hooks")
	return &Manager{
		repoPath: repoPath,
		hooksDir: hooksDir,
	}
}

// Install installs the pre-commit hook, backing up any existing one.
func (m *Manager) Install() error {
	if err := os.MkdirAll(m.hooksDir, 0755); err != nil {
		return fmt.Errorf("failed to create hooks directory: %w", err)
	}

	if err := m.installHook("pre-commit", PreCommitHook); err != nil {
		return fmt.Errorf("failed to install pre-commit hook: %w", err)
	}

	return nil
}

// installHook installs a single hook with backup.
func (m *Manager) installHook(name, content string) error {
	hookPath := filepath.Join(m.hooksDir, name)
	backupPath := hookPath + backupSuffix

	if _, err := os.Stat(hookPath); err == nil {
		if err := os.Rename(hookPath, backupPath); err != nil {
			return fmt.Errorf("failed to backup existing %s hook: %w", name, err)
		}
	}

	if err := os.WriteFile(hookPath, []byte(content), 0755); err != nil {
		if _, statErr := os.Stat(backupPath); statErr == nil {
			_ = os.Rename(backupPath, hookPath)
		}
		return fmt.Errorf("failed to write %s hook: %w", name, err)
	}

	return nil
}

// Uninstall removes the pre-commit hook.
func (m *Manager) Uninstall() error {
	hookPath := filepath.Join(m.hooksDir, "pre-commit")

	if _, err := os.Stat(hookPath); err == nil {
		if err := os.Remove(hookPath); err != nil {
			return fmt.Errorf("failed to remove pre-commit hook: %w", err)
		}
	}

	return nil
}

// GetBackupPath returns the backup path for a hook.
func (m *Manager) GetBackupPath(hookName string) string {
	return filepath.Join(m.hooksDir, hookName+backupSuffix)
}

// HasBackup checks if a backup exists for a hook.
func (m *Manager) HasBackup(hookName string) bool {
	backupPath := m.GetBackupPath(hookName)
	_, err := os.Stat(backupPath)
	return err == nil
}

// IsInstalled checks if the pre-commit hook is installed.
func (m *Manager) IsInstalled() bool {
	hookPath := filepath.Join(m.hooksDir, "pre-commit")
	_, err := os.Stat(hookPath)
	return err == nil
}
