package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baselinegate/baselinegate/internal/budget"
	"github.com/baselinegate/baselinegate/internal/report"
)

var gateFlags struct {
	artifactPath string
	policyPath   string
}

var gateCmd = &cobra.Command{
	Use:   "gate --artifact <artifact> --policy <policy>",
	Short: "Evaluate an existing run artifact against a budget policy",
	Long: `Gate re-evaluates a previously written run artifact against a budget
policy without resolving anything. Useful for gating on a new policy
without re-running the scoring pipeline.

Exits non-zero when the budget is violated.`,
	RunE: runGate,
}

func init() {
	f := gateCmd.Flags()
	f.StringVar(&gateFlags.artifactPath, "artifact", "", "Run artifact to evaluate (required)")
	f.StringVarP(&gateFlags.policyPath, "policy", "p", "", "Budget policy file (JSON or YAML)")
	_ = gateCmd.MarkFlagRequired("artifact")
}

func runGate(cmd *cobra.Command, args []string) error {
	artifact, err := report.Read(gateFlags.artifactPath)
	if err != nil {
		return err
	}

	policy, err := budget.Load(gateFlags.policyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: using permissive default policy: %v\n", err)
	}

	verdict := budget.Evaluate(policy, artifact.Score, artifact.Rows)

	out, err := json.MarshalIndent(struct {
		RunID   string         `json:"run_id"`
		Score   float64        `json:"score"`
		Verdict budget.Verdict `json:"verdict"`
	}{
		RunID:   artifact.RunID,
		Score:   artifact.Score,
		Verdict: verdict,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if verdict.Violated {
		os.Exit(1)
	}
	return nil
}
