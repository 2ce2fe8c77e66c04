package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baselinegate/baselinegate/internal/diff"
	"github.com/baselinegate/baselinegate/internal/report"
)

var diffFlags struct {
	basePath   string
	headPath   string
	outputPath string
}

var diffCmd = &cobra.Command{
	Use:   "diff --base <artifact> --head <artifact>",
	Short: "Diff two scoring runs and surface regressions",
	Long: `Diff compares two run artifacts and reports the score delta, newly
Limited features, status downgrades, and the top score contributors.
Regressions are reported, not judged; only invalid input exits non-zero.`,
	RunE: runDiff,
}

func init() {
	f := diffCmd.Flags()
	f.StringVar(&diffFlags.basePath, "base", "", "Base run artifact (required)")
	f.StringVar(&diffFlags.headPath, "head", "", "Head run artifact (required)")
	f.StringVarP(&diffFlags.outputPath, "output", "o", "", "Diff output path (default: stdout)")
	_ = diffCmd.MarkFlagRequired("base")
	_ = diffCmd.MarkFlagRequired("head")
}

func runDiff(cmd *cobra.Command, args []string) error {
	base, err := report.Read(diffFlags.basePath)
	if err != nil {
		return err
	}
	head, err := report.Read(diffFlags.headPath)
	if err != nil {
		return err
	}

	result, err := diff.Compare(base, head)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	if diffFlags.outputPath != "" {
		if err := os.WriteFile(diffFlags.outputPath, append(out, '\n'), 0o644); err != nil {
			return fmt.Errorf("failed to write diff output: %w", err)
		}
		return nil
	}
	fmt.Println(string(out))
	return nil
}
