package baseline

import "regexp"

// Status classifies a web-platform feature's cross-browser support
// maturity as reported by the status authority.
type Status int

const (
	// StatusUnknown is the only permitted result of an unreachable or
	// data-less lookup. It is never silently upgraded.
	StatusUnknown Status = iota
	StatusLimited
	StatusNewly
	StatusWidely
)

// String returns the wire representation of the status.
func (s Status) String() string {
	switch s {
	case StatusLimited:
		return "limited"
	case StatusNewly:
		return "newly"
	case StatusWidely:
		return "widely"
	default:
		return "unknown"
	}
}

// ParseStatus maps a wire status string to a Status. Anything
// unrecognized is Unknown.
func ParseStatus(s string) Status {
	switch s {
	case "limited":
		return StatusLimited
	case "newly":
		return StatusNewly
	case "widely":
		return StatusWidely
	default:
		return StatusUnknown
	}
}

// Points returns the base score contribution for the status.
func (s Status) Points() float64 {
	switch s {
	case StatusWidely:
		return 2
	case StatusNewly:
		return 1
	default:
		return 0
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	*s = ParseStatus(string(b))
	return nil
}

// StatusRecord is the resolved support maturity for one feature.
// Immutable once produced; cached for the lifetime of the process.
type StatusRecord struct {
	Status   Status `json:"status"`
	LowDate  string `json:"low_date,omitempty"`
	HighDate string `json:"high_date,omitempty"`
}

// featureIDPattern is the full set of characters allowed in a feature
// identifier sent to the status authority.
var featureIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidFeatureID reports whether id is safe to embed in an authority query.
func ValidFeatureID(id string) bool {
	return id != "" && featureIDPattern.MatchString(id)
}
