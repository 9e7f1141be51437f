package elevate

import (
	"strings"

	"openclaw-setup/internal/platform"
)

// Predicate decides whether a failed command's diagnostic text describes an
// access-rights problem that elevation could fix.
type Predicate interface {
	Matches(diagnostic string) bool
}

// Markers is a Predicate that matches when the text contains any of its
// substrings. Matching is case-sensitive, as tools print these markers
// verbatim. Localized messages that carry none of the markers are not
// detected.
type Markers []string

// Matches reports whether diagnostic contains one of the markers.
func (m Markers) Matches(diagnostic string) bool {
	for _, marker := range m {
		if marker != "" && strings.Contains(diagnostic, marker) {
			return true
		}
	}
	return false
}

// With returns a new list holding m followed by extra, skipping duplicates.
func (m Markers) With(extra ...string) Markers {
	out := make(Markers, 0, len(m)+len(extra))
	seen := make(map[string]bool, len(m)+len(extra))
	for _, marker := range append(append([]string(nil), m...), extra...) {
		if marker == "" || seen[marker] {
			continue
		}
		seen[marker] = true
		out = append(out, marker)
	}
	return out
}

// commonMarkers are printed by npm and libuv on every host:
// "EACCES" is the errno name, "errno -13" its numeric form on
// Windows-style stacks.
var commonMarkers = Markers{"EACCES", "permission denied", "errno -13"}

// hostMarkers adds markers specific to one OS family.
var hostMarkers = map[platform.OS]Markers{
	platform.Windows: {"EPERM", "operation not permitted"},
}

// DefaultMarkers returns the permission-denied markers for the given host.
func DefaultMarkers(os platform.OS) Markers {
	return commonMarkers.With(hostMarkers[os]...)
}
