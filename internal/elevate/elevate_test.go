package elevate

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"openclaw-setup/internal/platform"
)

func fakeRun(code int, output string, err error, seen *[]Invocation) func(context.Context, Invocation) (int, string, error) {
	return func(_ context.Context, inv Invocation) (int, string, error) {
		*seen = append(*seen, inv)
		return code, output, err
	}
}

func TestNativeElevate_Success(t *testing.T) {
	var seen []Invocation
	n := &Native{OS: platform.Linux, run: fakeRun(0, "", nil, &seen)}

	if err := n.Elevate(context.Background(), npmInstall); err != nil {
		t.Fatalf("Elevate: %v", err)
	}
	if len(seen) != 1 || seen[0].Program != "pkexec" {
		t.Errorf("invocations = %+v", seen)
	}
}

func TestNativeElevate_Declined(t *testing.T) {
	tests := []struct {
		name   string
		os     platform.OS
		code   int
		output string
	}{
		{"pkexec dismissed", platform.Linux, 126, ""},
		{"pkexec not authorized", platform.Linux, 127, "Error executing command as another user: Not authorized"},
		{"osascript cancel", platform.Darwin, 1, "execution error: User canceled. (-128)"},
		{"uac cancel", platform.Windows, 1, "Start-Process : This command cannot be run due to the error: The operation was canceled by the user."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen []Invocation
			n := &Native{OS: tt.os, run: fakeRun(tt.code, tt.output, nil, &seen)}

			err := n.Elevate(context.Background(), npmInstall)
			if !errors.Is(err, ErrDeclined) {
				t.Fatalf("err = %v, want ErrDeclined", err)
			}
			var failure *Failure
			if !errors.As(err, &failure) || failure.Output != tt.output {
				t.Errorf("failure = %+v", failure)
			}
		})
	}
}

func TestNativeElevate_CommandFails(t *testing.T) {
	var seen []Invocation
	n := &Native{OS: platform.Darwin, run: fakeRun(1, "npm ERR! code E404", nil, &seen)}

	err := n.Elevate(context.Background(), npmInstall)
	if err == nil || errors.Is(err, ErrDeclined) {
		t.Fatalf("err = %v, want plain failure", err)
	}
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("err %T is not *Failure", err)
	}
	if failure.ExitCode != 1 || failure.Output != "npm ERR! code E404" {
		t.Errorf("failure = %+v", failure)
	}
}

func TestNativeElevate_Unavailable(t *testing.T) {
	var seen []Invocation
	notFound := &exec.Error{Name: "pkexec", Err: exec.ErrNotFound}
	n := &Native{OS: platform.Linux, run: fakeRun(-1, "", notFound, &seen)}

	if err := n.Elevate(context.Background(), npmInstall); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
