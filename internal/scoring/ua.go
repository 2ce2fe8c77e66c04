package scoring

import (
	"encoding/json"
	"math"
	"os"

	"github.com/baselinegate/baselinegate/internal/baseline"
)

// UADistribution holds browser-engine market-share weights. A valid
// distribution always sums to 1.0.
type UADistribution struct {
	Safari  float64 `json:"safari"`
	Chrome  float64 `json:"chrome"`
	Firefox float64 `json:"firefox"`
	Edge    float64 `json:"edge"`
}

// DefaultUA returns the equal-share fallback distribution.
func DefaultUA() UADistribution {
	return UADistribution{Safari: 0.25, Chrome: 0.25, Firefox: 0.25, Edge: 0.25}
}

// Normalize scales the distribution to sum to 1.0. Negative or
// non-finite entries are zeroed first; if nothing positive survives,
// the equal-share fallback is used.
func (ua UADistribution) Normalize() UADistribution {
	sanitize := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0
		}
		return v
	}

	ua.Safari = sanitize(ua.Safari)
	ua.Chrome = sanitize(ua.Chrome)
	ua.Firefox = sanitize(ua.Firefox)
	ua.Edge = sanitize(ua.Edge)

	sum := ua.Safari + ua.Chrome + ua.Firefox + ua.Edge
	if sum <= 0 {
		return DefaultUA()
	}

	return UADistribution{
		Safari:  ua.Safari / sum,
		Chrome:  ua.Chrome / sum,
		Firefox: ua.Firefox / sum,
		Edge:    ua.Edge / sum,
	}
}

// ChromiumShare is the combined Chrome and Edge weight.
func (ua UADistribution) ChromiumShare() float64 {
	return ua.Chrome + ua.Edge
}

// SupportFactor is the UA-dependent scoring factor for a status. All
// factors lie in [0.5, 1.0]: a Limited feature hurts less when the
// audience is mostly Chromium, a Newly feature hurts more when the
// audience is mostly Safari.
func (ua UADistribution) SupportFactor(status baseline.Status) float64 {
	switch status {
	case baseline.StatusWidely:
		return 1.0
	case baseline.StatusLimited:
		return clamp(0.5+0.5*ua.ChromiumShare(), 0.5, 1.0)
	case baseline.StatusNewly:
		return clamp(0.8-0.2*ua.Safari, 0.5, 1.0)
	default:
		return 0.7
	}
}

type uaFile struct {
	UADistribution *UADistribution `json:"uaDistribution"`
}

// LoadUA reads a UA distribution file. Malformed or missing input never
// aborts the run; it falls back to the equal-share default.
func LoadUA(path string) UADistribution {
	if path == "" {
		return DefaultUA()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultUA()
	}
	return ParseUA(data)
}

// ParseUA decodes a UA distribution payload, falling back permissively.
func ParseUA(data []byte) UADistribution {
	var f uaFile
	if err := json.Unmarshal(data, &f); err != nil || f.UADistribution == nil {
		return DefaultUA()
	}
	return f.UADistribution.Normalize()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
