package main

import (
	"fmt"

	"github.com/lcgerke/wasync/internal/hooks"
	"github.com/spf13/cobra"
)

var hooksWorkDir string

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Manage the pre-commit registry-verification hook",
}

var hooksInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the pre-commit hook in the shared working tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := hooks.NewManager(hooksWorkDir)
		if err := mgr.Install(); err != nil {
			return fmt.Errorf("installing hook: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "pre-commit hook installed")
		return nil
	},
}

var hooksUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the pre-commit hook from the shared working tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := hooks.NewManager(hooksWorkDir)
		if err := mgr.Uninstall(); err != nil {
			return fmt.Errorf("removing hook: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "pre-commit hook removed")
		return nil
	},
}

func init() {
	hooksCmd.PersistentFlags().StringVar(&hooksWorkDir, "work-dir", ".", "path to the shared working tree")
	hooksCmd.AddCommand(hooksInstallCmd)
	hooksCmd.AddCommand(hooksUninstallCmd)
}
