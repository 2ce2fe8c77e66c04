package usage

import (
	"encoding/json"
	"fmt"
	"os"
)

// Location is one place a feature usage was detected.
type Location struct {
	File   string `json:"file"`
	Route  string `json:"route,omitempty"`
	Origin string `json:"origin,omitempty"` // "first-party" or "third-party"
	Host   string `json:"host,omitempty"`
}

// Usage aggregates the detected occurrences of one token or feature.
// Extraction happens upstream; this package only consumes the artifact.
type Usage struct {
	Token     string     `json:"token,omitempty"`
	FeatureID string     `json:"feature_id,omitempty"`
	Count     int        `json:"count"`
	Coverage  *float64   `json:"coverage,omitempty"` // fraction of page loads exercising the feature
	Locations []Location `json:"locations,omitempty"`
}

// Key returns the identifier the usage should be resolved under: the
// explicit feature ID when present, otherwise the raw token.
func (u Usage) Key() string {
	if u.FeatureID != "" {
		return u.FeatureID
	}
	return u.Token
}

type usageFile struct {
	Usages []Usage `json:"usages"`
}

// Load reads a detected-usage artifact from disk.
func Load(path string) ([]Usage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a detected-usage artifact.
func Parse(data []byte) ([]Usage, error) {
	var f usageFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("malformed usage file: %w", err)
	}
	return f.Usages, nil
}

// ByFeature maps usages onto feature identifiers, applying the injected
// dictionary lookup to tokens without an explicit feature ID. Tokens the
// dictionary cannot map are kept under their own name so they still
// resolve (typically to Unknown) instead of silently disappearing.
func ByFeature(usages []Usage, lookup func(token string) (string, bool)) map[string]Usage {
	out := make(map[string]Usage, len(usages))
	for _, u := range usages {
		id := u.FeatureID
		if id == "" {
			if mapped, ok := lookup(u.Token); ok {
				id = mapped
			} else {
				id = u.Token
			}
		}
		if id == "" {
			continue
		}

		merged := out[id]
		merged.FeatureID = id
		merged.Count += u.Count
		merged.Locations = append(merged.Locations, u.Locations...)
		if u.Coverage != nil {
			merged.Coverage = u.Coverage
		}
		out[id] = merged
	}
	return out
}
