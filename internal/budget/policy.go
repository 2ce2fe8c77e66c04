package budget

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// Policy is a declared compatibility budget used to gate automation.
type Policy struct {
	MinScore      *float64               `json:"minScore,omitempty" yaml:"minScore,omitempty"`
	ForbidLimited bool                   `json:"forbidLimited" yaml:"forbidLimited"`
	AllowUnknown  *bool                  `json:"allowUnknown,omitempty" yaml:"allowUnknown,omitempty"`
	PerRoute      map[string]RoutePolicy `json:"perRoute,omitempty" yaml:"perRoute,omitempty"`
}

// RoutePolicy is a partial per-route override; a set field wins over
// the global policy for rows on that route.
type RoutePolicy struct {
	MinScore      *float64 `json:"minScore,omitempty" yaml:"minScore,omitempty"`
	ForbidLimited *bool    `json:"forbidLimited,omitempty" yaml:"forbidLimited,omitempty"`
}

// Default returns the permissive policy: no minimum score, Limited
// allowed, Unknown allowed.
func Default() Policy {
	return Policy{}
}

// AllowsUnknown reports the effective allowUnknown value (default true).
func (p Policy) AllowsUnknown() bool {
	return p.AllowUnknown == nil || *p.AllowUnknown
}

// Load reads a policy file, JSON by default or YAML by extension.
// Malformed policy input never aborts a run: it degrades to the
// permissive default.
func Load(path string) (Policy, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("failed to read policy: %w", err)
	}

	var p Policy
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return Default(), fmt.Errorf("malformed policy: %w", err)
	}

	p.clampScores()
	return p, nil
}

// clampScores forces declared minimum scores into [0, 1].
func (p *Policy) clampScores() {
	clamp := func(v *float64) {
		if v == nil {
			return
		}
		if *v < 0 {
			*v = 0
		}
		if *v > 1 {
			*v = 1
		}
	}

	clamp(p.MinScore)
	for route, rp := range p.PerRoute {
		clamp(rp.MinScore)
		p.PerRoute[route] = rp
	}
}
