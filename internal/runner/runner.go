// Package runner executes a command once, outside cron, to let the user try
// it before scheduling it.
package runner

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/aatumaykin/chronos/internal/logger"
)

// DefaultTimeout bounds a test run when none is configured.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when the command outlives its timeout.
var ErrTimeout = errors.New("command timed out")

// Result is the outcome of a finished run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Output returns stdout followed by stderr.
func (r Result) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Runner runs commands through a shell with a timeout.
type Runner struct {
	shell   string
	timeout time.Duration
	logger  *logger.Logger
}

// New creates a Runner. Empty shell means /bin/sh, a non-positive timeout
// means DefaultTimeout.
func New(shell string, timeout time.Duration, log *logger.Logger) *Runner {
	if shell == "" {
		shell = "/bin/sh"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{shell: shell, timeout: timeout, logger: log}
}

// Timeout returns the configured limit.
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Run executes command with `<shell> -c`. A non-zero exit is reported in
// Result.ExitCode, not as an error.
func (r *Runner) Run(ctx context.Context, command string) (Result, error) {
	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, r.shell, "-c", command)
	// children may keep the pipes open after the shell is killed
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running test command", logger.Field{Key: "command", Value: command})

	start := time.Now()
	err := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(err),
		Duration: time.Since(start),
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return result, errors.Mark(
			errors.Newf("command did not finish within %s", r.timeout), ErrTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, nil
		}
		return result, errors.Wrap(err, "run command")
	}
	return result, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
