// Package platform reports facts about the host the installer runs on:
// which operating system family it is and whether the process already holds
// administrator rights.
package platform

import (
	"runtime"
)

// OS names an operating system family the installer distinguishes.
type OS string

const (
	Darwin  OS = "darwin"
	Linux   OS = "linux"
	Windows OS = "windows"
)

// Current returns the OS family of the running process. BSDs and other
// unix-likes are reported by their GOOS value and treated like Linux where a
// choice has to be made.
func Current() OS {
	return OS(runtime.GOOS)
}

// Info describes the host for display purposes.
type Info struct {
	OS       OS
	Arch     string
	Elevated bool
}

// Describe collects Info for the running process.
func Describe() Info {
	return Info{
		OS:       Current(),
		Arch:     runtime.GOARCH,
		Elevated: IsElevated(),
	}
}

// RecommendWSL reports whether the user should be pointed at WSL2, which is
// the better supported way to run the tool on Windows.
func (i Info) RecommendWSL() bool {
	return i.OS == Windows
}
