package pipeline

import "testing"

func TestParseMajor(t *testing.T) {
	tests := []struct {
		in    string
		major int
		ok    bool
	}{
		{"v22.1.0", 22, true},
		{"v21.5.0\n", 21, true},
		{"22.3", 22, true},
		{"  v18.19.1  ", 18, true},
		{"V20", 20, true},
		{"v", 0, false},
		{"", 0, false},
		{"node: command not found", 0, false},
	}
	for _, tt := range tests {
		major, ok := ParseMajor(tt.in)
		if major != tt.major || ok != tt.ok {
			t.Errorf("ParseMajor(%q) = %d, %v; want %d, %v", tt.in, major, ok, tt.major, tt.ok)
		}
	}
}
