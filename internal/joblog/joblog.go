// Package joblog manages per-job log files under the workspace logs/ dir.
//
// Wrapper scripts append to these files on every run; chronos itself only
// writes banners (creation, clearing) and otherwise reads, exports or
// follows them.
package joblog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/aatumaykin/chronos/internal/logger"
	"github.com/aatumaykin/chronos/internal/workspace"
)

// LogPerm is the mode of log files created by chronos.
const LogPerm os.FileMode = 0644

const (
	timestampLayout = "2006-01-02 15:04:05"
	exportLayout    = "20060102_150405"
)

var (
	// ErrRead is returned when an existing log cannot be read.
	ErrRead = errors.New("log read failed")
	// ErrWrite is returned when a log cannot be written.
	ErrWrite = errors.New("log write failed")
)

// Store reads and writes job logs.
type Store struct {
	ws     *workspace.Workspace
	logger *logger.Logger
	now    func() time.Time
}

// NewStore creates a Store rooted at the workspace logs/ dir.
func NewStore(ws *workspace.Workspace, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{ws: ws, logger: log, now: time.Now}
}

// WithClock sets the clock used for banner timestamps and returns s.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Path returns the log path for name.
func (s *Store) Path(name string) string {
	return s.ws.LogPath(name)
}

func (s *Store) stamp() string {
	return s.now().Format(timestampLayout)
}

// Ensure creates the log for name with a creation banner if it is absent.
func (s *Store) Ensure(name string) error {
	path := s.Path(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, LogPerm)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return errors.Mark(errors.Wrapf(err, "create log %s", path), ErrWrite)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "=== Log created at %s ===\n", s.stamp()); err != nil {
		return errors.Mark(errors.Wrapf(err, "write log %s", path), ErrWrite)
	}
	return nil
}

// Append adds text to the end of the log for name, creating it if needed.
func (s *Store) Append(name, text string) error {
	path := s.Path(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, LogPerm)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "open log %s", path), ErrWrite)
	}
	defer f.Close()

	if _, err := io.WriteString(f, text); err != nil {
		return errors.Mark(errors.Wrapf(err, "append to log %s", path), ErrWrite)
	}
	return nil
}

// Read returns the full log for name. A missing log is reported through
// found rather than as an error.
func (s *Store) Read(name string) (text string, found bool, err error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		s.logger.Error("failed to read log", err, logger.Field{Key: "path", Value: path})
		return "", false, errors.Mark(errors.Wrapf(err, "read log %s", path), ErrRead)
	}
	return string(data), true, nil
}

// Clear truncates the log for name and leaves a banner saying so.
func (s *Store) Clear(name string) error {
	path := s.Path(name)
	banner := fmt.Sprintf("=== Log cleared at %s ===\n", s.stamp())
	if err := os.WriteFile(path, []byte(banner), LogPerm); err != nil {
		s.logger.Error("failed to clear log", err, logger.Field{Key: "path", Value: path})
		return errors.Mark(errors.Wrapf(err, "clear log %s", path), ErrWrite)
	}
	return nil
}

// ExportName returns the file name used when Export is given a directory.
func ExportName(t time.Time) string {
	return fmt.Sprintf("log_export_%s.txt", t.Format(exportLayout))
}

// Export copies the log for name verbatim to dst. When dst is an existing
// directory the copy is placed there under ExportName.
func (s *Store) Export(name, dst string) (string, error) {
	src := s.Path(name)
	data, err := os.ReadFile(src)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "read log %s", src), ErrRead)
	}

	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, ExportName(s.now()))
	}

	if err := os.WriteFile(dst, data, LogPerm); err != nil {
		return "", errors.Mark(errors.Wrapf(err, "write export %s", dst), ErrWrite)
	}
	return dst, nil
}

// CreationBanner is what a newly created job's log starts with.
func (s *Store) CreationBanner(name, command, schedule string) string {
	header := "Log created"
	if _, err := os.Stat(s.Path(name)); err == nil {
		header = "Job created"
	}
	return fmt.Sprintf("=== %s at %s ===\nTask: %s\nCommand: %s\nSchedule: %s\n\n",
		header, s.stamp(), name, command, schedule)
}

// StageAppend writes text to a temporary sibling of the log for name.
// Committing the returned file appends text to the log.
func (s *Store) StageAppend(name, text string) (*workspace.StagedFile, error) {
	staged, err := workspace.Stage(s.Path(name), []byte(text), LogPerm, workspace.StageAppend)
	if err != nil {
		return nil, errors.Mark(err, ErrWrite)
	}
	return staged, nil
}

// Rename moves the log of oldName to newName. When newName already has a
// log the old content is appended to it.
func (s *Store) Rename(oldName, newName string) error {
	oldPath, newPath := s.Path(oldName), s.Path(newName)
	if oldPath == newPath {
		return nil
	}

	if _, err := os.Stat(oldPath); os.IsNotExist(err) {
		return nil
	}

	if _, err := os.Stat(newPath); os.IsNotExist(err) {
		if err := os.Rename(oldPath, newPath); err != nil {
			return errors.Mark(errors.Wrapf(err, "rename log %s", oldPath), ErrWrite)
		}
		return nil
	}

	data, err := os.ReadFile(oldPath)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "read log %s", oldPath), ErrRead)
	}
	if err := s.Append(newName, string(data)); err != nil {
		return err
	}
	return s.Remove(oldName)
}

// Remove deletes the log for name. A missing log is not an error.
func (s *Store) Remove(name string) error {
	path := s.Path(name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Mark(errors.Wrapf(err, "remove log %s", path), ErrWrite)
	}
	return nil
}
