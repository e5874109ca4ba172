package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		want       int
		wantStderr string
	}{
		{"nil", nil, ExitClean, ""},
		{"staged", staged(), ExitStaged, ""},
		{"wrapped staged", fmt.Errorf("run: %w", staged()), ExitStaged, ""},
		{"exit error with cause", &ExitError{Code: ExitFatal, Err: errors.New("boom")}, ExitFatal, "Error: boom\n"},
		{"plain error", errors.New("config broken"), ExitFatal, "Error: config broken\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			assert.Equal(t, tt.want, exitCode(tt.err, &stderr))
			assert.Equal(t, tt.wantStderr, stderr.String())
		})
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("writer failed")
	err := &ExitError{Code: ExitFatal, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "writer failed", err.Error())
	assert.Equal(t, "exit status 2", staged().Error())
}

func TestRootCmd_Commands(t *testing.T) {
	root := NewRootCmd(&bytes.Buffer{}, &bytes.Buffer{})

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"parse", "run", "review", "watch"})
}

func TestExecute_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"parse", "--help"}, &stdout, &stderr)
	assert.Equal(t, ExitClean, code)
	assert.Contains(t, stdout.String(), "--strict-level")
	assert.Contains(t, stdout.String(), "--metrics-file")
}
