package scoring

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/baselinegate/baselinegate/internal/baseline"
	"github.com/baselinegate/baselinegate/internal/logging"
	"github.com/baselinegate/baselinegate/internal/usage"
)

const (
	weightFloor = 0.5
	weightCeil  = 1.5

	nicheDownweight = 0.75

	coreBonus          = 0.10
	coreBonusThreshold = 0.90

	nonCoreBonus          = 0.05
	nonCoreBonusThreshold = 0.80

	bonusCap = 0.15

	limitedRatioThreshold = 0.30
	limitedPenaltyFactor  = 0.80
)

// Row is one scored feature, derived per run and never persisted
// outside a run artifact.
type Row struct {
	FeatureID string           `json:"feature_id"`
	Status    baseline.Status  `json:"status"`
	Weight    float64          `json:"weight"`
	IsCore    bool             `json:"is_core"`
	Origin    OriginType       `json:"origin"`
	Locations []usage.Location `json:"locations,omitempty"`
}

// Result is the normalized score with its ranked rows and advisory
// warnings.
type Result struct {
	Score    float64  `json:"score"`
	Rows     []Row    `json:"rows"`
	Warnings []string `json:"warnings,omitempty"`
}

// Engine computes compatibility scores from resolved statuses, detected
// usage, and the UA distribution.
type Engine struct {
	logger *logging.Logger
}

// NewEngine creates a scoring engine.
func NewEngine(logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{logger: logger}
}

// Score computes the normalized 0-1 compatibility score. It never
// fails: Unknown statuses simply contribute zero points, and the output
// is deterministic regardless of input map iteration order.
func (e *Engine) Score(statuses map[string]baseline.StatusRecord, usages map[string]usage.Usage, ua UADistribution) Result {
	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		return Result{
			Score:    1.0,
			Rows:     []Row{},
			Warnings: []string{"no web platform features detected"},
		}
	}

	rows := make([]Row, 0, len(ids))
	earned := make([]float64, 0, len(ids))
	possible := make([]float64, 0, len(ids))

	var unknownCount, limitedCount int
	var coreDetected, coreWidely int
	var nonCoreDetected, nonCoreNewlyOrBetter int

	for _, id := range ids {
		status := statuses[id].Status
		u := usages[id]
		weight := e.featureWeight(id, status, u, ua)

		switch status {
		case baseline.StatusUnknown:
			unknownCount++
		case baseline.StatusLimited:
			limitedCount++
		}

		isCore := IsCore(id)
		if isCore {
			coreDetected++
			if status == baseline.StatusWidely {
				coreWidely++
			}
		} else {
			nonCoreDetected++
			if status == baseline.StatusWidely || status == baseline.StatusNewly {
				nonCoreNewlyOrBetter++
			}
		}

		rows = append(rows, Row{
			FeatureID: id,
			Status:    status,
			Weight:    weight,
			IsCore:    isCore,
			Origin:    originOf(u.Locations),
			Locations: u.Locations,
		})

		earned = append(earned, status.Points()*weight)
		possible = append(possible, 2*weight)
	}

	// Normalized against the theoretical maximum of every feature being
	// Widely available.
	score := floats.Sum(earned) / floats.Sum(possible)

	var bonus float64
	if coreDetected > 0 && float64(coreWidely)/float64(coreDetected) >= coreBonusThreshold {
		bonus += coreBonus
	}
	if nonCoreDetected > 0 && float64(nonCoreNewlyOrBetter)/float64(nonCoreDetected) >= nonCoreBonusThreshold {
		bonus += nonCoreBonus
	}
	if bonus > bonusCap {
		bonus = bonusCap
	}
	score = clamp(score+bonus, 0, 1)

	if float64(limitedCount)/float64(len(ids)) > limitedRatioThreshold {
		score *= limitedPenaltyFactor
	}

	sortRows(rows)

	var warnings []string
	if unknownCount > 0 {
		warnings = append(warnings, fmt.Sprintf("%d features resolved to unknown status", unknownCount))
	}
	if coreDetected == 0 {
		warnings = append(warnings, "no core features detected")
	}

	e.logger.Debug("scored features",
		zap.Int("features", len(ids)),
		zap.Int("unknown", unknownCount),
		zap.Int("limited", limitedCount),
		zap.Float64("bonus", bonus),
		zap.Float64("score", score),
	)

	return Result{
		Score:    score,
		Rows:     rows,
		Warnings: warnings,
	}
}

// featureWeight combines usage weight, UA support factor, and the
// vendor-niche downweight, clamped to [0.5, 1.5].
func (e *Engine) featureWeight(id string, status baseline.Status, u usage.Usage, ua UADistribution) float64 {
	weight := usageWeight(u.Count)

	if u.Coverage != nil {
		weight *= clamp(0.5+*u.Coverage, weightFloor, weightCeil)
	}

	weight *= ua.SupportFactor(status)

	if IsNiche(id) && allVendor(u.Locations) {
		weight *= nicheDownweight
	}

	return clamp(weight, weightFloor, weightCeil)
}

// usageWeight maps a token-occurrence count to a weight.
func usageWeight(count int) float64 {
	switch {
	case count > 50:
		return 1.5
	case count >= 21:
		return 1.3
	case count >= 6:
		return 1.1
	case count == 1:
		return 0.8
	case count == 0:
		return 0.5
	default:
		return 1.0
	}
}

// statusRank orders rows for display: Limited first, Unknown last.
func statusRank(s baseline.Status) int {
	switch s {
	case baseline.StatusLimited:
		return 0
	case baseline.StatusNewly:
		return 1
	case baseline.StatusWidely:
		return 2
	default:
		return 3
	}
}

// sortRows sorts by status rank ascending, weight descending, feature
// ID ascending. Fully deterministic regardless of map iteration order.
func sortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		ri, rj := statusRank(rows[i].Status), statusRank(rows[j].Status)
		if ri != rj {
			return ri < rj
		}
		if rows[i].Weight != rows[j].Weight {
			return rows[i].Weight > rows[j].Weight
		}
		return rows[i].FeatureID < rows[j].FeatureID
	})
}
