package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lcgerke/wasync/internal/ui"
	"github.com/spf13/cobra"
)

var (
	showCredentials  bool
	autoFix          bool
	repairRegistry   bool
	doctorConfigPath string
	doctorStateDir   string
	doctorWorkDir    string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run comprehensive diagnostics",
	Long: `Performs a comprehensive health check of the wasyncd installation.

Checks:
- Git installation and version
- Vault connectivity and WorldAnvil credential resolution
- State file and per-world sync status
- Shared working tree and pre-commit hook
- Fixable issues (missing hook, missing working tree, worlds needing retry)

Use --credentials to show detailed credential inventory.
Use --auto-fix to automatically fix common issues.
Use --repair-registry to rebuild the beacon/track hash registries from the
payload files already on disk, recovering from CorruptState without a
full resync against the upstream.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&showCredentials, "credentials", false, "Show detailed credential inventory")
	doctorCmd.Flags().BoolVar(&autoFix, "auto-fix", false, "Automatically fix common issues")
	doctorCmd.Flags().BoolVar(&repairRegistry, "repair-registry", false, "Rebuild beacon/track hash registries from on-disk payload files")
	doctorCmd.Flags().StringVar(&doctorConfigPath, "config", "wasync.yaml", "path to the daemon configuration file")
	doctorCmd.Flags().StringVar(&doctorStateDir, "state-dir", "", "directory containing state.yaml (default ~/.wasync)")
	doctorCmd.Flags().StringVar(&doctorWorkDir, "work-dir", "", "path to the shared working tree (default ~/.wasync/work)")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := ui.NewOutput(os.Stdout)
	if format != "" {
		out.SetFormat(ui.OutputFormat(format))
	}
	if noColor {
		out.SetColorEnabled(false)
	}

	if !out.IsJSON() {
		out.Header("wasyncd Diagnostic Report")
		out.Separator()
		fmt.Println()
	}

	results := &DiagnosticResults{
		Checks:    make(map[string]*CheckResult),
		StartTime: time.Now(),
	}

	workDir := resolveWorkDir(doctorWorkDir)

	if !out.IsJSON() {
		fmt.Println("Git Installation:")
	}
	checkGitInstallation(out, results)

	if !out.IsJSON() {
		fmt.Println("\nConfiguration:")
	}
	cfg := checkConfig(out, results, doctorConfigPath)

	if !out.IsJSON() {
		fmt.Println("\nVault / Credentials:")
	}
	secretsMgr := checkVault(out, results, doctorStateDir, cfg)

	if !out.IsJSON() {
		fmt.Println("\nState Management:")
	}
	stateMgr := checkStateFile(out, results, doctorStateDir)

	if !out.IsJSON() {
		fmt.Println("\nWorking Tree:")
	}
	checkWorkingTree(out, results, workDir)

	if showCredentials {
		if !out.IsJSON() {
			fmt.Println("\n" + strings.Repeat("-", 60))
			fmt.Println("\nCredential Inventory:")
		}
		checkCredentials(out, results, secretsMgr)
	}

	if autoFix && stateMgr != nil {
		if !out.IsJSON() {
			fmt.Println("\n" + strings.Repeat("-", 60))
			fmt.Println("\nAuto-Fix:")
		}
		runAutoFix(out, results, stateMgr, workDir)
	}

	if repairRegistry {
		if !out.IsJSON() {
			fmt.Println("\n" + strings.Repeat("-", 60))
			fmt.Println("\nRegistry Repair:")
		}
		runRepairRegistry(out, results, workDir)
	}

	results.EndTime = time.Now()

	if !out.IsJSON() {
		fmt.Println("\n" + strings.Repeat("-", 60))
		printSummary(out, results)
	} else {
		out.JSON(results)
	}

	if results.HasCriticalErrors() {
		return fmt.Errorf("diagnostic checks found critical errors")
	}

	return nil
}

// DiagnosticResults aggregates every check's outcome for the summary and
// the --format json report.
type DiagnosticResults struct {
	Checks    map[string]*CheckResult `json:"checks"`
	Warnings  int                     `json:"warnings"`
	Errors    int                     `json:"errors"`
	StartTime time.Time               `json:"start_time"`
	EndTime   time.Time               `json:"end_time"`
}

// CheckResult is a single diagnostic check's outcome.
type CheckResult struct {
	Name    string      `json:"name"`
	Status  string      `json:"status"` // "ok", "warning", "error"
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (r *DiagnosticResults) AddCheck(name, status, message string, details interface{}) {
	r.Checks[name] = &CheckResult{
		Name:    name,
		Status:  status,
		Message: message,
		Details: details,
	}

	if status == "warning" {
		r.Warnings++
	} else if status == "error" {
		r.Errors++
	}
}

func (r *DiagnosticResults) HasCriticalErrors() bool {
	return r.Errors > 0
}
