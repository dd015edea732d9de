// Package pidfile keeps `chronos serve` to a single instance.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
)

// ErrAlreadyRunning is returned by Acquire when the PID file names a live
// process.
var ErrAlreadyRunning = errors.New("chronos serve is already running")

// Write writes pid to path.
func Write(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create PID directory")
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0600); err != nil {
		return errors.Wrap(err, "failed to write PID file")
	}
	return nil
}

// Read reads a PID from path.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrapf(err, "malformed PID file %s", path)
	}
	return pid, nil
}

// IsRunning reports whether a process with pid exists.
func IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 only checks that the process exists
	return process.Signal(syscall.Signal(0)) == nil
}

// Acquire writes the current PID to path unless another live process holds
// it. A stale or malformed file is replaced. The returned release removes the
// file.
func Acquire(path string) (release func() error, err error) {
	if pid, err := Read(path); err == nil && pid != os.Getpid() && IsRunning(pid) {
		return nil, errors.WithHint(
			errors.Mark(errors.Newf("PID %d holds %s", pid, path), ErrAlreadyRunning),
			"stop the running instance or remove the PID file if it is stale")
	}

	if err := Write(path, os.Getpid()); err != nil {
		return nil, err
	}

	return func() error { return Remove(path) }, nil
}

// Remove deletes the PID file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
