package scoring

import (
	"strings"

	"github.com/baselinegate/baselinegate/internal/usage"
)

// OriginType classifies where a feature's detected usage comes from.
type OriginType string

const (
	OriginFirstParty OriginType = "first-party"
	OriginVendor     OriginType = "vendor"
	OriginMixed      OriginType = "mixed"
)

// coreFeatures is the fixed allowlist of foundational web-platform
// capabilities that earn the progressive-enhancement bonus.
var coreFeatures = map[string]struct{}{
	"grid":              {},
	"flexbox":           {},
	"fetch":             {},
	"promises":          {},
	"custom-properties": {},
	"media-queries":     {},
	"transforms2d":      {},
	"async-await":       {},
}

// nicheFeatures is the fixed allowlist of vendor-niche capabilities
// eligible for the downweight. Kept hard-coded and deliberately small;
// it is not versioned alongside the feature dictionary.
var nicheFeatures = map[string]struct{}{
	"webusb":        {},
	"web-bluetooth": {},
	"webhid":        {},
	"web-nfc":       {},
	"web-serial":    {},
	"webmidi":       {},
}

// cdnHostFragments mark hosts that serve vendor bundles.
var cdnHostFragments = []string{
	"cdn.",
	"cdnjs",
	"jsdelivr",
	"unpkg",
	"googleapis",
	"cloudflare",
	"akamai",
	"fastly",
}

// vendorPathSegments mark file paths that belong to vendored code.
var vendorPathSegments = []string{
	"/vendor/",
	"/node_modules/",
	"/third_party/",
	"/3rdparty/",
}

// IsCore reports whether a feature is in the core allowlist.
func IsCore(featureID string) bool {
	_, ok := coreFeatures[featureID]
	return ok
}

// IsNiche reports whether a feature is in the niche allowlist.
func IsNiche(featureID string) bool {
	_, ok := nicheFeatures[featureID]
	return ok
}

// isVendorLocation reports whether one detected location originates
// from third-party or vendor code: different origin, a known CDN host
// substring, or a vendor path segment.
func isVendorLocation(loc usage.Location) bool {
	if loc.Origin == "third-party" {
		return true
	}

	host := strings.ToLower(loc.Host)
	for _, fragment := range cdnHostFragments {
		if host != "" && strings.Contains(host, fragment) {
			return true
		}
	}

	file := strings.ToLower(loc.File)
	for _, segment := range vendorPathSegments {
		if strings.Contains(file, segment) || strings.HasPrefix(file, strings.TrimPrefix(segment, "/")) {
			return true
		}
	}
	return false
}

// allVendor reports whether every detected location is vendor code.
// Features with no locations at all are not vendor-only.
func allVendor(locations []usage.Location) bool {
	if len(locations) == 0 {
		return false
	}
	for _, loc := range locations {
		if !isVendorLocation(loc) {
			return false
		}
	}
	return true
}

// originOf derives the row origin from its locations.
func originOf(locations []usage.Location) OriginType {
	if len(locations) == 0 {
		return OriginFirstParty
	}
	if allVendor(locations) {
		return OriginVendor
	}
	for _, loc := range locations {
		if isVendorLocation(loc) {
			return OriginMixed
		}
	}
	return OriginFirstParty
}
