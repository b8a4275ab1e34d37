package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("reasoner.api_key", "required")
	if err.Error() != "config error in reasoner.api_key: required" {
		t.Errorf("Error() = %q", err.Error())
	}
	if NewConfigError("", "bad file").Error() != "config error: bad file" {
		t.Errorf("Error() without field = %q", NewConfigError("", "bad file").Error())
	}
}

func TestCommandError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewCommandError("classify", cause)

	if !errors.Is(err, cause) {
		t.Error("CommandError does not unwrap to its cause")
	}
	if err.Error() != "command classify failed: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "config", err: NewConfigError("x", "y"), want: ExitConfig},
		{name: "wrapped config", err: fmt.Errorf("load: %w", NewConfigError("x", "y")), want: ExitConfig},
		{name: "command", err: NewCommandError("classify", errors.New("boom")), want: ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
