package runner

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Run(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		stdout   string
		stderr   string
		exitCode int
	}{
		{name: "stdout", command: "echo hello", stdout: "hello\n"},
		{name: "stderr", command: "echo oops >&2", stderr: "oops\n"},
		{name: "non-zero exit", command: "echo partial; exit 3", stdout: "partial\n", exitCode: 3},
		{name: "multi line", command: "echo a\necho b", stdout: "a\nb\n"},
	}

	r := New("", time.Second*5, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Run(context.Background(), tt.command)
			require.NoError(t, err)
			assert.Equal(t, tt.stdout, res.Stdout)
			assert.Equal(t, tt.stderr, res.Stderr)
			assert.Equal(t, tt.exitCode, res.ExitCode)
		})
	}
}

func TestRunner_Timeout(t *testing.T) {
	r := New("/bin/sh", 100*time.Millisecond, nil)

	start := time.Now()
	_, err := r.Run(context.Background(), "sleep 5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunner_MissingShell(t *testing.T) {
	r := New("/nonexistent/shell", time.Second, nil)

	res, err := r.Run(context.Background(), "true")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, -1, res.ExitCode)
}

func TestNew_Defaults(t *testing.T) {
	r := New("", 0, nil)
	assert.Equal(t, DefaultTimeout, r.Timeout())
	assert.Equal(t, "/bin/sh", r.shell)
}

func TestResult_Output(t *testing.T) {
	assert.Equal(t, "out", Result{Stdout: "out"}.Output())
	assert.Equal(t, "err", Result{Stderr: "err"}.Output())
	assert.Equal(t, "out\nerr", Result{Stdout: "out", Stderr: "err"}.Output())
}
