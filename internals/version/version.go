package version

import "strings"

// SemVer is set at build time for releases.
//
// Example:
//
//	-ldflags "-X github.com/orderly-agent/orderly/internals/version.SemVer=1.2.3"
var SemVer = "0.0.0-dev"

// Version returns a SemVer string with best-effort build metadata
// identity, e.g. 0.0.0-dev+a1b2c3d4e5f6.dirty.1e4b9caa2210.
func Version() string {
	v := strings.TrimSpace(SemVer)
	if v == "" {
		v = "0.0.0-dev"
	}
	meta := identityMetadata()
	if meta == "" {
		return v
	}
	if strings.Contains(v, "+") {
		return v + "." + meta
	}
	return v + "+" + meta
}
