package cliutil

import (
	"errors"
	"testing"

	"github.com/manifoldco/promptui"
)

func TestIsAbortedRecognizesPromptUIInterrupts(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"interrupt", promptui.ErrInterrupt, true},
		{"abort", promptui.ErrAbort, true},
		{"our own ErrAborted", ErrAborted, true},
		{"wrapped interrupt", errors.New("wrap: " + promptui.ErrInterrupt.Error()), false},
		{"unrelated error", errors.New("disk full"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAborted(tc.err); got != tc.want {
				t.Errorf("IsAborted(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestWrapErrorNormalizesAbortsToErrAborted(t *testing.T) {
	if err := wrapError(promptui.ErrInterrupt); !errors.Is(err, ErrAborted) {
		t.Errorf("wrapError(ErrInterrupt) = %v, want ErrAborted", err)
	}
	if err := wrapError(nil); err != nil {
		t.Errorf("wrapError(nil) = %v, want nil", err)
	}
	other := errors.New("disk full")
	if err := wrapError(other); !errors.Is(err, other) {
		t.Errorf("wrapError(other) = %v, want the original error passed through", err)
	}
}
