package resolver

import (
	"encoding/json"
	"fmt"

	"github.com/baselinegate/baselinegate/internal/baseline"
)

// statusResponse is the authority's wire format. Anything that fails to
// match this shape is rejected outright, never partially trusted.
type statusResponse struct {
	Data     []featureResult `json:"data"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type featureResult struct {
	FeatureID string        `json:"feature_id"`
	Baseline  *baselineInfo `json:"baseline,omitempty"`
}

type baselineInfo struct {
	Status   string `json:"status"`
	LowDate  string `json:"low_date,omitempty"`
	HighDate string `json:"high_date,omitempty"`
}

// parseResponse decodes and validates an authority response body.
func parseResponse(body []byte) (*statusResponse, error) {
	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed response body: %w", err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("malformed response: missing data array")
	}

	for i, entry := range resp.Data {
		if entry.FeatureID == "" {
			return nil, fmt.Errorf("malformed response: entry %d missing feature_id", i)
		}
		if entry.Baseline != nil {
			switch entry.Baseline.Status {
			case "limited", "newly", "widely":
			default:
				return nil, fmt.Errorf("malformed response: entry %d has invalid baseline status %q", i, entry.Baseline.Status)
			}
		}
	}
	return &resp, nil
}

// record converts a feature result into a status record. An entry
// without baseline data resolves to Unknown; that is data absence, not
// an error.
func (f featureResult) record() baseline.StatusRecord {
	if f.Baseline == nil {
		return baseline.StatusRecord{Status: baseline.StatusUnknown}
	}
	return baseline.StatusRecord{
		Status:   baseline.ParseStatus(f.Baseline.Status),
		LowDate:  f.Baseline.LowDate,
		HighDate: f.Baseline.HighDate,
	}
}
