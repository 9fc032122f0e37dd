// Package version exposes the build version of the geocoder binary.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// fallbackVersion is reported for local builds without -ldflags.
const fallbackVersion = "0.0.0-dev"

// version is set at build time:
//
//	go build -ldflags "-X github.com/planevent/geocoder/pkg/version.version=1.2.0"
var version = "" //nolint:gochecknoglobals // Overridden via -ldflags at build time.

// GetVersion returns the build version as a semantic version string without a
// leading "v". Unset or unparsable values fall back to "0.0.0-dev".
func GetVersion() string {
	return normalize(version)
}

// UserAgent returns the User-Agent string sent to the geocoding provider.
func UserAgent() string {
	return "PlanEvent-Geocoder/" + GetVersion()
}

func normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallbackVersion
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return fallbackVersion
	}
	return v.String()
}
