package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lcgerke/wasync/internal/autofix"
	"github.com/lcgerke/wasync/internal/config"
	"github.com/lcgerke/wasync/internal/git"
	"github.com/lcgerke/wasync/internal/hooks"
	"github.com/lcgerke/wasync/internal/objectsource"
	"github.com/lcgerke/wasync/internal/registry"
	"github.com/lcgerke/wasync/internal/secrets"
	"github.com/lcgerke/wasync/internal/state"
	"github.com/lcgerke/wasync/internal/store/ghrepo"
	"github.com/lcgerke/wasync/internal/ui"
)

// repairableRegistries lists the registry file names rebuildable from on-disk
// payloads. file_index is excluded: its values are kind tags, not payload
// hashes, so it cannot be recovered by rehashing tracked files.
var repairableRegistries = []string{"beacon_hash_reg", "track_hash_reg"}

func handleCheckError(out *ui.Output, results *DiagnosticResults, checkName, message string, err error) {
	if !out.IsJSON() {
		out.Checkline("error", message)
	}
	results.AddCheck(checkName, "error", err.Error(), nil)
}

// resolveStateDir applies the same ~/.wasync default the state manager and
// the run command use, so doctor reports the directory it is actually
// inspecting.
func resolveStateDir(stateDir string) string {
	if stateDir != "" {
		return stateDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wasync")
}

func resolveWorkDir(workDir string) string {
	if workDir != "" {
		return workDir
	}
	return filepath.Join(resolveStateDir(""), "work")
}

func checkGitInstallation(out *ui.Output, results *DiagnosticResults) {
	err := git.CheckGitVersion()
	if err != nil {
		handleCheckError(out, results, "git_installation", fmt.Sprintf("Git not found: %v", err), err)
		return
	}

	if !out.IsJSON() {
		out.Checkline("ok", "Git installed and accessible")
	}
	results.AddCheck("git_installation", "ok", "Git installed and accessible", nil)
}

func checkConfig(out *ui.Output, results *DiagnosticResults, path string) *config.File {
	cfg, err := config.Load(path)
	if err != nil {
		if !out.IsJSON() {
			out.Checkline("warning", fmt.Sprintf("Config not loaded (%s): %v", path, err))
		}
		results.AddCheck("config", "warning", fmt.Sprintf("could not load %s", path), nil)
		return nil
	}

	if !out.IsJSON() {
		out.Checkline("ok", fmt.Sprintf("Config loaded: %d world(s) tracked", len(cfg.WorldAnvil.Track.Worlds)))
	}
	results.AddCheck("config", "ok", "Config loaded", map[string]interface{}{
		"world_count":           len(cfg.WorldAnvil.Track.Worlds),
		"remote_repository_url": cfg.RemoteRepo.RemoteRepositoryURL,
	})
	return cfg
}

func checkVault(out *ui.Output, results *DiagnosticResults, stateDir string, cfg *config.File) *secrets.Manager {
	ctx := context.Background()

	var fallback *config.CredentialsConfig
	if cfg != nil {
		fallback = &cfg.WorldAnvil.Credentials
	}

	secretsMgr, err := secrets.NewManager(ctx, resolveStateDir(stateDir), fallback)
	if err != nil {
		handleCheckError(out, results, "vault_connectivity", fmt.Sprintf("Secrets manager init failed: %v", err), err)
		return nil
	}

	if !secretsMgr.IsVaultReachable() {
		if !out.IsJSON() {
			out.Checkline("warning", "Vault not reachable (will use cache or config fallback)")
		}
		results.AddCheck("vault_connectivity", "warning", "Vault not reachable", map[string]interface{}{
			"cache_age_s": secretsMgr.CacheAge().Seconds(),
		})
		return secretsMgr
	}

	if !out.IsJSON() {
		out.Checkline("ok", "Vault reachable")
	}
	results.AddCheck("vault_connectivity", "ok", "Vault reachable", nil)
	return secretsMgr
}

func checkStateFile(out *ui.Output, results *DiagnosticResults, stateDir string) *state.Manager {
	stateMgr, err := state.NewManager(stateDir)
	if err != nil {
		handleCheckError(out, results, "state_file", fmt.Sprintf("State manager failed: %v", err), err)
		return nil
	}

	worlds, err := stateMgr.ListWorlds()
	if err != nil {
		handleCheckError(out, results, "state_file", fmt.Sprintf("Failed to load state: %v", err), err)
		return nil
	}

	retrying := 0
	for _, w := range worlds {
		if w.NeedsRetry {
			retrying++
		}
	}

	if !out.IsJSON() {
		out.Checkline("ok", fmt.Sprintf("State file loaded (%d world(s), %d needing retry)", len(worlds), retrying))
	}
	results.AddCheck("state_file", "ok", "State file loaded", map[string]int{
		"world_count":   len(worlds),
		"needing_retry": retrying,
	})

	return stateMgr
}

func checkWorkingTree(out *ui.Output, results *DiagnosticResults, workDir string) {
	if _, err := os.Stat(workDir); os.IsNotExist(err) {
		if !out.IsJSON() {
			out.Checkline("warning", fmt.Sprintf("Working tree not found yet: %s", workDir))
		}
		results.AddCheck("working_tree", "warning", "working tree not checked out yet", map[string]string{"path": workDir})
		return
	}

	gitClient := git.NewClient(workDir)
	if !gitClient.IsRepository() {
		handleCheckError(out, results, "working_tree", fmt.Sprintf("%s exists but is not a git repository", workDir), fmt.Errorf("not a git repository"))
		return
	}

	if !out.IsJSON() {
		out.Checkline("ok", fmt.Sprintf("Working tree present: %s", workDir))
	}

	if hash, err := gitClient.GetBranchHash("HEAD"); err == nil {
		if !out.IsJSON() {
			out.Checkline("ok", fmt.Sprintf("HEAD at %s", hash[:12]))
		}
	}

	if remotes, err := gitClient.ListRemotes(); err == nil && len(remotes) > 0 {
		if err := gitClient.FetchRemote(context.Background(), remotes[0]); err != nil {
			if !out.IsJSON() {
				out.Checkline("warning", fmt.Sprintf("Remote %s not reachable: %v", remotes[0], err))
			}
			results.AddCheck("remote_connectivity", "warning", "remote fetch failed", nil)
		} else {
			if !out.IsJSON() {
				out.Checkline("ok", fmt.Sprintf("Remote %s reachable", remotes[0]))
			}
			results.AddCheck("remote_connectivity", "ok", "remote fetch succeeded", nil)
		}
	}

	hookMgr := hooks.NewManager(workDir)
	if hookMgr.IsInstalled() {
		if !out.IsJSON() {
			out.Checkline("ok", "pre-commit hook installed")
		}
		results.AddCheck("working_tree", "ok", "working tree healthy", map[string]bool{"hook_installed": true})
	} else {
		if !out.IsJSON() {
			out.Checkline("warning", "pre-commit hook not installed")
		}
		results.AddCheck("working_tree", "warning", "pre-commit hook missing", map[string]bool{"hook_installed": false})
	}
}

func checkCredentials(out *ui.Output, results *DiagnosticResults, secretsMgr *secrets.Manager) {
	if secretsMgr == nil {
		if !out.IsJSON() {
			out.Checkline("warning", "Secrets manager unavailable - cannot check credentials")
		}
		return
	}

	inventory := make(map[string]interface{})

	creds, err := secretsMgr.GetCredentials()
	if err != nil {
		if !out.IsJSON() {
			out.Checkline("warning", fmt.Sprintf("WorldAnvil credentials not resolved: %v", err))
		}
	} else {
		if !out.IsJSON() {
			out.Checkline("ok", fmt.Sprintf("WorldAnvil credentials resolved (application_key length %d)", len(creds.ApplicationKey)))
		}
		inventory["worldanvil_credentials"] = "configured"
	}

	if _, err := secretsMgr.GetRemoteSSHKey(); err != nil {
		if !out.IsJSON() {
			out.Checkline("warning", fmt.Sprintf("Remote deploy key not found: %v", err))
		}
	} else {
		if !out.IsJSON() {
			out.Checkline("ok", "Remote deploy key found")
		}
		inventory["remote_ssh_key"] = "configured"
	}

	if token, err := secretsMgr.GetGitHubToken(); err != nil {
		if !out.IsJSON() {
			out.Checkline("warning", fmt.Sprintf("GitHub bootstrap token not found: %v", err))
		}
	} else if err := ghrepo.New(context.Background(), token).TestConnection(); err != nil {
		if !out.IsJSON() {
			out.Checkline("warning", fmt.Sprintf("GitHub bootstrap token does not authenticate: %v", err))
		}
	} else {
		if !out.IsJSON() {
			out.Checkline("ok", "GitHub bootstrap token authenticates")
		}
		inventory["github_bootstrap_token"] = "configured"
	}

	results.AddCheck("credentials", "ok", "Credential inventory complete", inventory)
}

func runAutoFix(out *ui.Output, results *DiagnosticResults, stateMgr *state.Manager, workDir string) {
	fixer := autofix.NewFixer(stateMgr, workDir, false)

	issues, err := fixer.DetectIssues()
	if err != nil {
		handleCheckError(out, results, "auto_fix", fmt.Sprintf("Failed to detect issues: %v", err), err)
		return
	}

	if len(issues) == 0 {
		if !out.IsJSON() {
			out.Checkline("ok", "No fixable issues detected")
		}
		results.AddCheck("auto_fix", "ok", "No issues detected", nil)
		return
	}

	if !out.IsJSON() {
		fmt.Printf("\n  Found %d fixable issue(s):\n", len(issues))
		for i, issue := range issues {
			fmt.Printf("    %d. [%s] %s - %s\n", i+1, issue.Severity, issue.WorldURL, issue.Description)
		}
		fmt.Println()
	}

	fixed, failed, err := fixer.FixAll(issues)
	if err != nil {
		handleCheckError(out, results, "auto_fix", fmt.Sprintf("Auto-fix failed: %v", err), err)
		return
	}

	if !out.IsJSON() {
		if fixed > 0 {
			out.Checkline("ok", fmt.Sprintf("Fixed %d issue(s)", fixed))
		}
		if failed > 0 {
			out.Checkline("warning", fmt.Sprintf("Could not fix %d issue(s) (require manual intervention)", failed))
		}
	}

	results.AddCheck("auto_fix", "ok", fmt.Sprintf("Fixed %d of %d issues", fixed, len(issues)), map[string]int{
		"detected": len(issues),
		"fixed":    fixed,
		"failed":   failed,
	})
}

// runRepairRegistry rebuilds the beacon and track hash registries from the
// payload files already present in workDir, recovering from a CorruptState
// registry without re-fetching from upstream (internal/registry.Rebuild).
func runRepairRegistry(out *ui.Output, results *DiagnosticResults, workDir string) {
	if _, err := os.Stat(workDir); os.IsNotExist(err) {
		handleCheckError(out, results, "repair_registry", fmt.Sprintf("working tree not found: %s", workDir), err)
		return
	}

	rebuilt := map[string]int{}
	for _, name := range repairableRegistries {
		path := filepath.Join(workDir, name)
		if err := registry.Init(path); err != nil {
			handleCheckError(out, results, "repair_registry", fmt.Sprintf("initializing %s: %v", name, err), err)
			return
		}
		reg := registry.Open(path)
		n, err := reg.Rebuild(workDir, objectsource.IsUUID)
		if err != nil {
			handleCheckError(out, results, "repair_registry", fmt.Sprintf("rebuilding %s: %v", name, err), err)
			return
		}
		rebuilt[name] = n
		if !out.IsJSON() {
			out.Checkline("ok", fmt.Sprintf("%s rebuilt from %d on-disk payload file(s)", name, n))
		}
	}

	results.AddCheck("repair_registry", "ok", "registries rebuilt from on-disk payloads", rebuilt)
}

func printSummary(out *ui.Output, results *DiagnosticResults) {
	totalChecks := len(results.Checks)
	passed := totalChecks - results.Warnings - results.Errors

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total Checks: %d\n", totalChecks)
	fmt.Printf("  Passed: %d\n", passed)

	if results.Warnings > 0 {
		out.Warning(fmt.Sprintf("  Warnings: %d", results.Warnings))
	} else {
		fmt.Printf("  Warnings: %d\n", results.Warnings)
	}

	if results.Errors > 0 {
		out.Error(fmt.Sprintf("  Errors: %d", results.Errors))
	} else {
		fmt.Printf("  Errors: %d\n", results.Errors)
	}

	fmt.Println()
	if results.Errors == 0 && results.Warnings == 0 {
		out.Success("All systems healthy")
	} else if results.Errors == 0 {
		out.Warning("Some warnings detected")
	} else {
		out.Error("Critical errors detected")
	}
}
