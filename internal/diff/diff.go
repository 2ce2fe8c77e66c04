// Package diff computes regressions between two independently produced
// scoring runs.
package diff

import (
	"fmt"
	"math"
	"sort"

	"github.com/baselinegate/baselinegate/internal/baseline"
	"github.com/baselinegate/baselinegate/internal/report"
	"github.com/baselinegate/baselinegate/internal/scoring"
)

const (
	// epsilon filters contributor deltas too small to matter.
	epsilon = 1e-3
	// defaultTopN bounds the contributor list.
	defaultTopN = 5
)

// StatusChange records one feature whose support rank decreased.
type StatusChange struct {
	Feature string          `json:"feature"`
	From    baseline.Status `json:"from"`
	To      baseline.Status `json:"to"`
}

// Contributor is one feature's weighted-points delta between runs.
type Contributor struct {
	Feature string  `json:"feature"`
	Delta   float64 `json:"delta"`
}

// Result is the regression report between a base and a head run.
type Result struct {
	ScoreDelta      float64        `json:"scoreDelta"`
	NewLimited      []string       `json:"newLimited"`
	Downgrades      []StatusChange `json:"downgrades"`
	TopContributors []Contributor  `json:"topContributors"`
}

// Compare diffs two run artifacts. Structurally invalid input is a hard
// explicit error, never guessed around or defaulted to zero.
func Compare(base, head report.Artifact) (Result, error) {
	if err := base.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid base run: %w", err)
	}
	if err := head.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid head run: %w", err)
	}

	baseRows := rowsByFeature(base.Rows)
	headRows := rowsByFeature(head.Rows)

	result := Result{
		ScoreDelta:      head.Score - base.Score,
		NewLimited:      []string{},
		Downgrades:      []StatusChange{},
		TopContributors: []Contributor{},
	}

	headIDs := make([]string, 0, len(headRows))
	for id := range headRows {
		headIDs = append(headIDs, id)
	}
	sort.Strings(headIDs)

	for _, id := range headIDs {
		headRow := headRows[id]
		baseRow, inBase := baseRows[id]

		if headRow.Status == baseline.StatusLimited {
			if !inBase || baseRow.Status != baseline.StatusLimited {
				result.NewLimited = append(result.NewLimited, id)
			}
		}

		if inBase && downgraded(baseRow.Status, headRow.Status) {
			result.Downgrades = append(result.Downgrades, StatusChange{
				Feature: id,
				From:    baseRow.Status,
				To:      headRow.Status,
			})
		}

		delta := headRow.Status.Points() * headRow.Weight
		if inBase {
			delta -= baseRow.Status.Points() * baseRow.Weight
		}
		if math.Abs(delta) > epsilon {
			result.TopContributors = append(result.TopContributors, Contributor{
				Feature: id,
				Delta:   delta,
			})
		}
	}

	sort.Slice(result.TopContributors, func(i, j int) bool {
		di, dj := math.Abs(result.TopContributors[i].Delta), math.Abs(result.TopContributors[j].Delta)
		if di != dj {
			return di > dj
		}
		return result.TopContributors[i].Feature < result.TopContributors[j].Feature
	})
	if len(result.TopContributors) > defaultTopN {
		result.TopContributors = result.TopContributors[:defaultTopN]
	}

	return result, nil
}

// downgraded reports whether the support rank decreased. The rank order
// is Limited < Newly < Widely; transitions involving Unknown are not
// downgrades.
func downgraded(from, to baseline.Status) bool {
	if from == baseline.StatusUnknown || to == baseline.StatusUnknown {
		return false
	}
	return rank(to) < rank(from)
}

func rank(s baseline.Status) int {
	switch s {
	case baseline.StatusLimited:
		return 0
	case baseline.StatusNewly:
		return 1
	default:
		return 2
	}
}

func rowsByFeature(rows []scoring.Row) map[string]scoring.Row {
	out := make(map[string]scoring.Row, len(rows))
	for _, row := range rows {
		out[row.FeatureID] = row
	}
	return out
}
