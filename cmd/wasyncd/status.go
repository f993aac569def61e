package main

import (
	"fmt"
	"sort"

	"github.com/lcgerke/wasync/internal/state"
	"github.com/lcgerke/wasync/internal/ui"
	"github.com/spf13/cobra"
)

var statusStateDir string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last-tick status of every tracked world",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusStateDir, "state-dir", "", "directory containing state.yaml (default ~/.wasync)")
}

// worldStatus is the JSON-friendly shape printed per world.
type worldStatus struct {
	URL        string `json:"url"`
	Status     string `json:"status"`
	LastSync   string `json:"last_sync,omitempty"`
	NeedsRetry bool   `json:"needs_retry"`
	LastError  string `json:"last_error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := ui.NewOutput(cmd.OutOrStdout())
	if noColor {
		out.SetColorEnabled(false)
	}
	if format != "" {
		out.SetFormat(ui.OutputFormat(format))
	}

	stateMgr, err := state.NewManager(statusStateDir)
	if err != nil {
		return fmt.Errorf("opening state: %w", err)
	}

	worlds, err := stateMgr.ListWorlds()
	if err != nil {
		return fmt.Errorf("reading state: %w", err)
	}

	urls := make([]string, 0, len(worlds))
	for url := range worlds {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	if out.IsJSON() {
		rows := make([]worldStatus, 0, len(urls))
		for _, url := range urls {
			w := worlds[url]
			row := worldStatus{URL: w.URL, Status: w.Status, NeedsRetry: w.NeedsRetry, LastError: w.LastError}
			if !w.LastSync.IsZero() {
				row.LastSync = w.LastSync.Format("2006-01-02T15:04:05Z07:00")
			}
			rows = append(rows, row)
		}
		return out.JSON(rows)
	}

	if len(urls) == 0 {
		out.Info("no worlds tracked yet")
		return nil
	}

	out.Header("World sync status")
	for _, url := range urls {
		w := worlds[url]
		detail := ""
		switch w.Status {
		case state.StatusSynced:
			detail = "last sync " + w.LastSync.Format("2006-01-02 15:04:05")
		case state.StatusError:
			detail = w.LastError
		}
		out.WorldLine(w.URL, w.Status, detail)
		if w.NeedsRetry {
			out.Warning("  needs retry on the next scheduler tick")
		}
	}

	return nil
}
