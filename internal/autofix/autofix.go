// Package autofix detects the handful of local problems the doctor command
// can find and repairs the one that is locally fixable, a missing
// pre-commit hook. A missing working tree and worlds that need a retry are
// only reported; FixIssue returns an error for them. Detection is rooted at
// the single shared working tree; per-world entries in state are consulted only to surface worlds
// that need a retry.
package autofix

import (
	"fmt"
	"os"

	"github.com/lcgerke/wasync/internal/git"
	"github.com/lcgerke/wasync/internal/hooks"
	"github.com/lcgerke/wasync/internal/state"
)

// Issue represents a fixable (or at least flaggable) problem.
type Issue struct {
	Type        string // "missing_working_tree", "missing_hook", "needs_retry"
	Description string
	WorldURL    string
	Severity    string // "low", "medium", "high"
}

// Fixer handles automatic fixing of common issues in the shared working
// tree and per-world state.
type Fixer struct {
	stateMgr *state.Manager
	workDir  string
	dryRun   bool
}

// NewFixer creates a new auto-fixer rooted at workDir.
func NewFixer(stateMgr *state.Manager, workDir string, dryRun bool) *Fixer {
	return &Fixer{
		stateMgr: stateMgr,
		workDir:  workDir,
		dryRun:   dryRun,
	}
}

// DetectIssues scans the working tree and per-world state for fixable
// issues.
func (f *Fixer) DetectIssues() ([]*Issue, error) {
	issues := []*Issue{}

	if _, err := os.Stat(f.workDir); os.IsNotExist(err) {
		issues = append(issues, &Issue{
			Type:        "missing_working_tree",
			Description: fmt.Sprintf("working tree not found: %s", f.workDir),
			Severity:    "high",
		})
	} else {
		gitClient := git.NewClient(f.workDir)
		if !gitClient.IsRepository() {
			issues = append(issues, &Issue{
				Type:        "missing_working_tree",
				Description: "working tree directory exists but is not a git repository",
				Severity:    "high",
			})
		} else {
			hookMgr := hooks.NewManager(f.workDir)
			if !hookMgr.IsInstalled() {
				issues = append(issues, &Issue{
					Type:        "missing_hook",
					Description: "pre-commit registry-verification hook not installed",
					Severity:    "low",
				})
			}
		}
	}

	if f.stateMgr != nil {
		worlds, err := f.stateMgr.ListWorlds()
		if err == nil {
			for url, w := range worlds {
				if w.NeedsRetry {
					issues = append(issues, &Issue{
						Type:        "needs_retry",
						Description: fmt.Sprintf("last tick failed: %s", w.LastError),
						WorldURL:    url,
						Severity:    "medium",
					})
				}
			}
		}
	}

	return issues, nil
}

// FixIssue attempts to fix a single issue.
func (f *Fixer) FixIssue(issue *Issue) error {
	if f.dryRun {
		return nil
	}

	switch issue.Type {
	case "missing_hook":
		return hooks.NewManager(f.workDir).Install()
	case "needs_retry":
		return fmt.Errorf("world %s needs a scheduler tick, not a manual fix", issue.WorldURL)
	case "missing_working_tree":
		return fmt.Errorf("critical issue requires manual resolution (run the daemon to re-checkout)")
	default:
		return fmt.Errorf("unknown issue type: %s", issue.Type)
	}
}

// FixAll attempts to fix all detected issues.
func (f *Fixer) FixAll(issues []*Issue) (int, int, error) {
	fixed := 0
	failed := 0

	for _, issue := range issues {
		if err := f.FixIssue(issue); err != nil {
			failed++
		} else {
			fixed++
		}
	}

	return fixed, failed, nil
}
