package pipeline

import (
	"strconv"
	"strings"
)

// ParseMajor extracts the major version from free-form version text such as
// "v22.1.0", "22.3" or "v18.19.1\n". Only a leading, optionally
// "v"-prefixed integer counts; ok is false when there is none.
func ParseMajor(version string) (major int, ok bool) {
	v := strings.TrimSpace(version)
	v = strings.TrimPrefix(v, "v")
	v = strings.TrimPrefix(v, "V")

	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
