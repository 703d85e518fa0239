// Package version exposes the release version baked into the binary at
// build time from the VERSION file.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var raw string

// String returns the release version with surrounding whitespace trimmed.
func String() string {
	return strings.TrimSpace(raw)
}
