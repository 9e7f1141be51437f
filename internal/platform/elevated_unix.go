//go:build !windows

package platform

import "golang.org/x/sys/unix"

// IsElevated reports whether the process runs as root.
func IsElevated() bool {
	return unix.Geteuid() == 0
}
