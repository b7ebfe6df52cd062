package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterationFailureError(t *testing.T) {
	err := &IterationFailureError{Failed: 2, Total: 5}

	assert.Equal(t, "run completed with 2 of 5 iteration(s) failed", err.Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: ExitSuccess},
		{name: "iteration failure", err: &IterationFailureError{Failed: 1, Total: 3}, want: ExitIterationFailed},
		{
			name: "wrapped iteration failure",
			err:  fmt.Errorf("run: %w", &IterationFailureError{Failed: 1, Total: 3}),
			want: ExitIterationFailed,
		},
		{name: "config error", err: errors.New("failed to load spec"), want: ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	assert.NoError(t, err)
	assert.Equal(t, "physbench dev\n", out)
}
