// Command wasyncd mirrors WorldAnvil world, category, and article content
// into a git repository on a fixed polling interval.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lcgerke/wasync/internal/git"
	"github.com/spf13/cobra"
)

var (
	format  string
	noColor bool
	quiet   bool
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "wasyncd",
		Short: "Mirrors WorldAnvil content into a git repository",
		Long: `wasyncd polls WorldAnvil for world, category, and article content and
mirrors it into a single git working tree using a two-tier beacon/track
change-detection protocol.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := git.CheckGitVersion(); err != nil {
				return fmt.Errorf("git check failed: %w", err)
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "Output format (human|json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(verifyRegistriesCmd)
	rootCmd.AddCommand(hooksCmd)
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
