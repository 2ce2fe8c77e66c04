package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baselinegate/baselinegate/internal/budget"
	"github.com/baselinegate/baselinegate/internal/config"
	"github.com/baselinegate/baselinegate/internal/dictionary"
	"github.com/baselinegate/baselinegate/internal/logging"
	"github.com/baselinegate/baselinegate/internal/monitoring"
	"github.com/baselinegate/baselinegate/internal/report"
	"github.com/baselinegate/baselinegate/internal/resolver"
	"github.com/baselinegate/baselinegate/internal/scoring"
	"github.com/baselinegate/baselinegate/internal/usage"
)

var scoreFlags struct {
	usagesPath     string
	uaPath         string
	policyPath     string
	dictionaryPath string
	artifactPath   string
	endpoint       string
	timeout        time.Duration
	strict         bool
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Resolve feature statuses and compute the compatibility score",
	Long: `Score resolves every detected feature against the status authority,
computes the weighted compatibility score, evaluates it against the
declared budget, and writes the run artifact.

Exits non-zero on budget violation or operational error.`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.StringVarP(&scoreFlags.usagesPath, "usages", "u", "", "Detected-usage JSON file (required)")
	f.StringVar(&scoreFlags.uaPath, "ua", "", "UA distribution JSON file")
	f.StringVarP(&scoreFlags.policyPath, "policy", "p", "", "Budget policy file (JSON or YAML)")
	f.StringVar(&scoreFlags.dictionaryPath, "dictionary", "", "Token-to-feature dictionary asset")
	f.StringVarP(&scoreFlags.artifactPath, "output", "o", "", "Run artifact output path (.json or .json.gz)")
	f.StringVar(&scoreFlags.endpoint, "endpoint", "", "Status authority endpoint (default: $BASELINE_ENDPOINT)")
	f.DurationVar(&scoreFlags.timeout, "timeout", 2*time.Minute, "Overall resolution timeout")
	f.BoolVar(&scoreFlags.strict, "strict", false, "Treat degraded resolution as a gate failure")
	_ = scoreCmd.MarkFlagRequired("usages")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg := config.LoadOrDefault()
	if scoreFlags.endpoint != "" {
		cfg.Resolver.Endpoint = scoreFlags.endpoint
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	usages, err := usage.Load(scoreFlags.usagesPath)
	if err != nil {
		return err
	}

	dict := dictionary.Empty()
	if scoreFlags.dictionaryPath != "" {
		dict, err = dictionary.Load(scoreFlags.dictionaryPath)
		if err != nil {
			return err
		}
	}

	byFeature := usage.ByFeature(usages, dict.Lookup)
	ids := make([]string, 0, len(byFeature))
	for id := range byFeature {
		ids = append(ids, id)
	}

	ua := scoring.LoadUA(scoreFlags.uaPath)

	policy, err := budget.Load(scoreFlags.policyPath)
	if err != nil {
		// Malformed policy input degrades to the permissive default.
		logger.Warn("using permissive default policy", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), scoreFlags.timeout)
	defer cancel()

	metrics := monitoring.NewMetrics(nil)
	res := resolver.New(cfg.Resolver, logger, metrics)

	statuses, err := res.Resolve(ctx, ids)
	degraded := errors.Is(err, resolver.ErrDegraded)
	if err != nil && !degraded {
		return fmt.Errorf("status resolution failed: %w", err)
	}
	if degraded {
		logger.Warn("status resolution degraded; unknown-heavy result",
			zap.Int("features", len(ids)),
			zap.String("breaker", res.Breaker().State().String()),
		)
	}

	engine := scoring.NewEngine(logger)
	result := engine.Score(statuses, byFeature, ua)
	if degraded {
		result.Warnings = append(result.Warnings, "status resolution degraded by authority failures")
	}

	verdict := budget.Evaluate(policy, result.Score, result.Rows)

	artifact := report.New(result, cfg.Resolver.Endpoint)
	if scoreFlags.artifactPath != "" {
		if err := report.Write(scoreFlags.artifactPath, artifact); err != nil {
			return err
		}
	}

	summary := struct {
		RunID    string         `json:"run_id"`
		Score    float64        `json:"score"`
		Features int            `json:"features"`
		Warnings []string       `json:"warnings,omitempty"`
		Verdict  budget.Verdict `json:"verdict"`
	}{
		RunID:    artifact.RunID,
		Score:    result.Score,
		Features: len(result.Rows),
		Warnings: result.Warnings,
		Verdict:  verdict,
	}
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if verdict.Violated || (scoreFlags.strict && degraded) {
		os.Exit(1)
	}
	return nil
}
