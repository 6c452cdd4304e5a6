package addon

import (
	"slices"
	"strconv"
	"strings"

	"github.com/c360studio/odoolint/config"
)

// SupportedVersions are the explicitly supported target series. Future
// X.0 series at or above the minimum major are accepted too.
var SupportedVersions = []string{"17.0", "18.0", "19.0"}

const (
	minimumSupportedMajor = 17
	defaultVersion        = "17.0"
)

// NormalizeVersion reduces a version string to its series: the
// manifest's "17.0.1.0.3" becomes "17.0".
func NormalizeVersion(v string) string {
	parts := strings.Split(v, ".")
	switch {
	case len(parts) >= 2:
		return parts[0] + "." + parts[1]
	case len(parts) == 1 && parts[0] != "":
		if _, err := strconv.Atoi(parts[0]); err == nil {
			return parts[0] + ".0"
		}
	}
	return v
}

// DetectVersion resolves the target version: the manifest declaration
// when it names a supported series, then the configured fallback, then
// the default.
func DetectVersion(m *Manifest, cfg *config.Config) string {
	if m != nil && m.Version != "" {
		parts := strings.Split(m.Version, ".")
		if len(parts) >= 2 {
			series := parts[0] + "." + parts[1]
			if slices.Contains(SupportedVersions, series) {
				return series
			}
			if major, err := strconv.Atoi(parts[0]); err == nil && major >= minimumSupportedMajor && parts[1] == "0" {
				return series
			}
		}
	}
	if cfg != nil && cfg.OdooVersion != "" {
		return NormalizeVersion(cfg.OdooVersion)
	}
	return defaultVersion
}
