package budget

import (
	"fmt"
	"sort"
	"strings"

	"github.com/baselinegate/baselinegate/internal/baseline"
	"github.com/baselinegate/baselinegate/internal/scoring"
)

// Verdict is the gate decision. The score itself is never mutated;
// callers decide downstream consequences.
type Verdict struct {
	Violated bool     `json:"violated"`
	Reasons  []string `json:"reasons"`
}

// Evaluate checks a scoring result against the policy. Global checks
// run first; each per-route override is then checked against the rows
// on that route, with explicitly set route fields winning over the
// global policy.
func Evaluate(p Policy, score float64, rows []scoring.Row) Verdict {
	var reasons []string

	if p.MinScore != nil && score < *p.MinScore {
		reasons = append(reasons, fmt.Sprintf("score %s < %s minimum", percent(score), percent(*p.MinScore)))
	}

	if p.ForbidLimited {
		if limited := featuresWithStatus(rows, baseline.StatusLimited); len(limited) > 0 {
			reasons = append(reasons, fmt.Sprintf("limited features forbidden: %s", strings.Join(limited, ", ")))
		}
	}

	if !p.AllowsUnknown() {
		if unknown := featuresWithStatus(rows, baseline.StatusUnknown); len(unknown) > 0 {
			reasons = append(reasons, fmt.Sprintf("unknown features not allowed: %s", strings.Join(unknown, ", ")))
		}
	}

	routes := make([]string, 0, len(p.PerRoute))
	for route := range p.PerRoute {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	for _, route := range routes {
		rp := p.PerRoute[route]

		if rp.MinScore != nil && score < *rp.MinScore {
			reasons = append(reasons, fmt.Sprintf("route %s: score %s < %s minimum", route, percent(score), percent(*rp.MinScore)))
		}

		forbidLimited := p.ForbidLimited
		if rp.ForbidLimited != nil {
			forbidLimited = *rp.ForbidLimited
		}
		if forbidLimited && !p.ForbidLimited {
			// Only overridden routes add a check here; the global
			// forbidLimited pass already covered every row.
			if limited := featuresWithStatus(rowsOnRoute(rows, route), baseline.StatusLimited); len(limited) > 0 {
				reasons = append(reasons, fmt.Sprintf("route %s: limited features forbidden: %s", route, strings.Join(limited, ", ")))
			}
		}
	}

	return Verdict{
		Violated: len(reasons) > 0,
		Reasons:  reasons,
	}
}

// rowsOnRoute returns the rows with at least one detected location on
// the route.
func rowsOnRoute(rows []scoring.Row, route string) []scoring.Row {
	var out []scoring.Row
	for _, row := range rows {
		for _, loc := range row.Locations {
			if loc.Route == route {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// featuresWithStatus returns sorted feature IDs with the given status.
func featuresWithStatus(rows []scoring.Row, status baseline.Status) []string {
	var out []string
	for _, row := range rows {
		if row.Status == status {
			out = append(out, row.FeatureID)
		}
	}
	sort.Strings(out)
	return out
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
