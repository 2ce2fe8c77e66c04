package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "baselinegate",
	Short: "Baseline compatibility scoring and CI gating",
	Long: "baselinegate resolves detected web-platform feature usages against the\n" +
		"Web Platform Status authority, computes a reproducible 0-1 compatibility\n" +
		"score, gates pipelines on a declared budget, and diffs scoring runs.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(gateCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
