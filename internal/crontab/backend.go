package crontab

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	// ErrPermissionDenied is returned when the user may not read or install
	// the crontab.
	ErrPermissionDenied = errors.New("crontab permission denied")
	// ErrBackend is returned for any other failure of the underlying table.
	ErrBackend = errors.New("crontab backend failed")
)

// Backend stores the raw crontab text.
type Backend interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, content string) error
}

// arbiter is implemented by backends that range-check schedules themselves.
type arbiter interface {
	ValidatesSchedules() bool
}

// CommandBackend drives crontab(1).
type CommandBackend struct {
	Binary string // defaults to "crontab"
	User   string // optional -u user
}

// NewCommandBackend creates a backend for the given binary and user.
func NewCommandBackend(binary, user string) *CommandBackend {
	if binary == "" {
		binary = "crontab"
	}
	return &CommandBackend{Binary: binary, User: user}
}

// ValidatesSchedules reports that crontab(1) rejects bad schedules itself.
func (b *CommandBackend) ValidatesSchedules() bool { return true }

func (b *CommandBackend) args(args ...string) []string {
	if b.User != "" {
		return append([]string{"-u", b.User}, args...)
	}
	return args
}

// Read runs `crontab -l`. A user without a crontab has an empty table.
func (b *CommandBackend) Read(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, b.Binary, b.args("-l")...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(strings.ToLower(msg), "no crontab for") {
			return "", nil
		}
		return "", classify(err, msg, "crontab -l")
	}
	return stdout.String(), nil
}

// Write installs content with `crontab -`.
func (b *CommandBackend) Write(ctx context.Context, content string) error {
	cmd := exec.CommandContext(ctx, b.Binary, b.args("-")...)
	cmd.Stdin = strings.NewReader(content)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return classify(err, strings.TrimSpace(stderr.String()), "crontab -")
	}
	return nil
}

func classify(err error, stderr, op string) error {
	if stderr != "" {
		err = errors.Wrapf(err, "%s: %s", op, stderr)
	} else {
		err = errors.Wrap(err, op)
	}

	if isPermission(stderr) || errors.Is(err, fs.ErrPermission) {
		return errors.WithHint(errors.Mark(err, ErrPermissionDenied),
			"check /etc/cron.allow and /etc/cron.deny, or run as a user allowed to use cron")
	}
	return errors.Mark(err, ErrBackend)
}

func isPermission(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "not permitted") ||
		strings.Contains(s, "permission denied") ||
		strings.Contains(s, "not allowed")
}

// FileBackend keeps the table in a crontab-format file. Useful for system
// crontab fragments and for environments without crontab(1).
type FileBackend struct {
	Path string
}

// NewFileBackend creates a backend for path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{Path: path}
}

// Read returns the file content; a missing file is an empty table.
func (b *FileBackend) Read(_ context.Context) (string, error) {
	data, err := os.ReadFile(b.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", classify(err, "", "read "+b.Path)
	}
	return string(data), nil
}

// Write replaces the file atomically (temp file + rename).
func (b *FileBackend) Write(_ context.Context, content string) error {
	dir := filepath.Dir(b.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return classify(err, "", "create "+dir)
	}

	tmp := b.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return classify(err, "", "write "+tmp)
	}
	if err := os.Rename(tmp, b.Path); err != nil {
		_ = os.Remove(tmp)
		return classify(err, "", "rename "+tmp)
	}
	return nil
}

// MemoryBackend holds the table in memory.
type MemoryBackend struct {
	mu       sync.Mutex
	content  string
	writes   int
	WriteErr error // returned by Write when set
	ReadErr  error // returned by Read when set
}

// NewMemoryBackend creates a backend holding content.
func NewMemoryBackend(content string) *MemoryBackend {
	return &MemoryBackend{content: content}
}

func (b *MemoryBackend) Read(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ReadErr != nil {
		return "", b.ReadErr
	}
	return b.content, nil
}

func (b *MemoryBackend) Write(_ context.Context, content string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.WriteErr != nil {
		return b.WriteErr
	}
	b.content = content
	b.writes++
	return nil
}

// Content returns the stored table.
func (b *MemoryBackend) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content
}

// Writes returns how many times Write succeeded.
func (b *MemoryBackend) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}
