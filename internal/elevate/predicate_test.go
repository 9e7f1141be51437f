package elevate

import (
	"testing"

	"openclaw-setup/internal/platform"
)

func TestDefaultMarkers(t *testing.T) {
	markers := DefaultMarkers(platform.Linux)

	matches := []string{
		"npm ERR! code EACCES\nnpm ERR! syscall mkdir",
		"Error: permission denied, mkdir '/usr/local/lib/node_modules'",
		"npm ERR! errno -13",
	}
	for _, s := range matches {
		if !markers.Matches(s) {
			t.Errorf("Matches(%q) = false, want true", s)
		}
	}

	misses := []string{
		"npm ERR! code E404\nnpm ERR! 404 Not Found",
		"npm ERR! code ENOTFOUND",
		"",
	}
	for _, s := range misses {
		if markers.Matches(s) {
			t.Errorf("Matches(%q) = true, want false", s)
		}
	}
}

func TestDefaultMarkers_WindowsExtras(t *testing.T) {
	stderr := "npm ERR! code EPERM\nnpm ERR! syscall rename"
	if DefaultMarkers(platform.Linux).Matches(stderr) {
		t.Error("EPERM should not match on linux")
	}
	if !DefaultMarkers(platform.Windows).Matches(stderr) {
		t.Error("EPERM should match on windows")
	}
}

func TestMarkersWith(t *testing.T) {
	m := Markers{"EACCES"}.With("Zugriff verweigert", "EACCES", "")
	if len(m) != 2 {
		t.Fatalf("markers = %v, want 2 entries", m)
	}
	if !m.Matches("Fehler: Zugriff verweigert") {
		t.Error("added marker not matched")
	}
}
