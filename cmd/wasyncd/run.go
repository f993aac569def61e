package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/lcgerke/wasync/internal/config"
	"github.com/lcgerke/wasync/internal/objectsource"
	"github.com/lcgerke/wasync/internal/scheduler"
	"github.com/lcgerke/wasync/internal/secrets"
	"github.com/lcgerke/wasync/internal/state"
	"github.com/lcgerke/wasync/internal/store"
	"github.com/lcgerke/wasync/internal/sync"
	"github.com/lcgerke/wasync/internal/ui"
	"github.com/spf13/cobra"
)

// forever stands in for "no deadline configured" — the loop's exit
// condition is a wall-clock comparison, so an indefinite run needs some
// concrete (if distant) QuitAt rather than a sentinel zero value.
const forever = 100 * 365 * 24 * time.Hour

// quitAtLayout is the wall-clock form the quit time is configured in,
// matching the WASYNC_QUIT_AT environment variable.
const quitAtLayout = "2006-01-02 15:04"

var (
	runConfigPath   string
	runStateDir     string
	runWorkDir      string
	runFor          string
	runQuitAt       string
	runPingInterval time.Duration

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the sync daemon",
		RunE:  runRun,
	}
)

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", envOr("WASYNC_CONFIG", "wasync.yaml"), "path to the daemon configuration file")
	runCmd.Flags().StringVar(&runStateDir, "state-dir", "", "directory for state.yaml (default ~/.wasync)")
	runCmd.Flags().StringVar(&runWorkDir, "work-dir", os.Getenv("WASYNC_WORK_DIR"), "path to the shared working tree (default ~/.wasync/work)")
	runCmd.Flags().StringVar(&runFor, "run-for", "", "stop after this duration (default: run indefinitely)")
	runCmd.Flags().StringVar(&runQuitAt, "quit-at", os.Getenv("WASYNC_QUIT_AT"), `stop at this local time, "YYYY-MM-DD HH:MM"`)
	runCmd.Flags().DurationVar(&runPingInterval, "ping-interval", envSeconds("WASYNC_PING_INTERVAL_S"), "override the per-tick sleep interval (default 60s)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envSeconds(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := ui.NewOutput(cmd.OutOrStdout())

	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	stateMgr, err := state.NewManager(runStateDir)
	if err != nil {
		return fmt.Errorf("opening state: %w", err)
	}

	workDir := runWorkDir
	if workDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving default work dir: %w", err)
		}
		workDir = filepath.Join(home, ".wasync", "work")
	}

	cacheDir := runStateDir
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving default cache dir: %w", err)
		}
		cacheDir = filepath.Join(home, ".wasync")
	}

	secretsMgr, err := secrets.NewManager(ctx, cacheDir, &cfg.WorldAnvil.Credentials)
	if err != nil {
		return fmt.Errorf("initializing secrets manager: %w", err)
	}
	creds, err := secretsMgr.GetCredentials()
	if err != nil {
		return fmt.Errorf("resolving WorldAnvil credentials: %w", err)
	}

	source := objectsource.NewHTTPSource(ctx, "https://www.worldanvil.com/api/external/boromir", creds.ApplicationKey, creds.AuthenticationToken)

	var storeOpts []store.Option
	if ghToken, err := secretsMgr.GetGitHubToken(); err == nil {
		storeOpts = append(storeOpts, store.WithGitHubBootstrap(ctx, ghToken))
	} else {
		out.Warningf("GitHub bootstrap disabled: %v", err)
	}
	if sshKey, err := secretsMgr.GetRemoteSSHKey(); err == nil {
		storeOpts = append(storeOpts, store.WithSSHKey(sshKey.PrivateKey))
	} else {
		out.Warningf("using the host's default SSH identity to publish: %v", err)
	}

	vstore := store.NewGitStore(workDir, cfg.RemoteRepo.RemoteRepositoryURL, storeOpts...)
	if err := vstore.Checkout(ctx); err != nil {
		return fmt.Errorf("checking out working tree: %w", err)
	}

	synchronizer, err := sync.New(source, vstore, objectsource.DefaultDepths)
	if err != nil {
		return fmt.Errorf("initializing synchronizer: %w", err)
	}

	quitAt := time.Now().Add(forever)
	switch {
	case runQuitAt != "":
		at, err := time.ParseInLocation(quitAtLayout, runQuitAt, time.Local)
		if err != nil {
			return fmt.Errorf("parsing --quit-at: %w", err)
		}
		quitAt = at
	case runFor != "":
		d, err := time.ParseDuration(runFor)
		if err != nil {
			return fmt.Errorf("parsing --run-for: %w", err)
		}
		quitAt = time.Now().Add(d)
	}

	sched := scheduler.New(synchronizer, stateMgr, cfg.WorldConfigs(), runPingInterval, quitAt)

	out.Infof("wasyncd running: %d world(s) tracked, ping interval %s", len(cfg.WorldConfigs()), sched.PingInterval)
	return sched.Run(ctx)
}
