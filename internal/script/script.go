// Package script generates the wrapper scripts that crontab entries invoke.
//
// Each wrapper records the job's original command on a single marker line
// ("## <command>"). The marker is the only durable copy of the command: the
// crontab entry itself only points at the script.
package script

import (
	"bufio"
	"bytes"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"

	"github.com/aatumaykin/chronos/internal/logger"
	"github.com/aatumaykin/chronos/internal/workspace"
)

// MarkerPrefix starts the line holding the original command.
const MarkerPrefix = "## "

// DefaultShell is used when the store is created without one.
const DefaultShell = "/bin/bash"

// ScriptPerm is the mode of every generated script.
const ScriptPerm os.FileMode = 0755

var (
	// ErrWrite is returned when a script cannot be written.
	ErrWrite = errors.New("script write failed")
	// ErrRead is returned when an existing script cannot be read.
	ErrRead = errors.New("script read failed")
)

var wrapper = template.Must(template.New("wrapper").Parse(`#!{{.Shell}}

# Task: {{.Name}}
# Created: {{.Created}}

` + MarkerPrefix + `{{.Marker}}

cd "$(dirname "$0")"

LOG={{.Log}}

printf '\n----------------------------------------\nRun at: %s\n----------------------------------------\n' "$(date '+%Y-%m-%d %H:%M:%S')" >> "$LOG"

{
{{.Command}}
} 2>&1 | tee -a "$LOG"
status=${PIPESTATUS[0]}

if [ "$status" -eq 0 ]; then
    echo "[$(date '+%Y-%m-%d %H:%M:%S')] succeeded" >> "$LOG"
else
    echo "[$(date '+%Y-%m-%d %H:%M:%S')] failed (exit $status)" >> "$LOG"
fi

exit "$status"
`))

type wrapperData struct {
	Shell   string
	Name    string
	Created string
	Marker  string
	Log     string
	Command string
}

// Store writes and reads wrapper scripts under the workspace scripts/ dir.
type Store struct {
	ws     *workspace.Workspace
	shell  string
	logger *logger.Logger
	now    func() time.Time
}

// NewStore creates a Store. An empty shell falls back to DefaultShell.
func NewStore(ws *workspace.Workspace, shell string, log *logger.Logger) *Store {
	if shell == "" {
		shell = DefaultShell
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{ws: ws, shell: shell, logger: log, now: time.Now}
}

// WithClock sets the clock used for the Created: header and returns s.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Path returns the script path for name.
func (s *Store) Path(name string) string {
	return s.ws.ScriptPath(name)
}

// Render returns the wrapper script text for a job.
func (s *Store) Render(name, command string) ([]byte, error) {
	var buf bytes.Buffer
	err := wrapper.Execute(&buf, wrapperData{
		Shell:   s.shell,
		Name:    singleLine(name),
		Created: s.now().Format("2006-01-02 15:04:05"),
		Marker:  EncodeMarker(command),
		Log:     shellquote.Join(s.ws.LogPath(name)),
		Command: strings.TrimRight(command, " \t\r\n"),
	})
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "render script for %q", name), ErrWrite)
	}
	return buf.Bytes(), nil
}

// Write renders the script for name and writes it in place with mode 0755.
func (s *Store) Write(name, command string) (string, error) {
	content, err := s.Render(name, command)
	if err != nil {
		return "", err
	}

	path := s.Path(name)
	if err := os.WriteFile(path, content, ScriptPerm); err != nil {
		s.logger.Error("failed to write script", err, logger.Field{Key: "path", Value: path})
		return "", errors.Mark(errors.Wrapf(err, "write script %s", path), ErrWrite)
	}
	if err := os.Chmod(path, ScriptPerm); err != nil {
		return "", errors.Mark(errors.Wrapf(err, "chmod script %s", path), ErrWrite)
	}
	return path, nil
}

// Stage renders the script for name into a temporary sibling of its final
// path. The caller commits it once the crontab is persisted.
func (s *Store) Stage(name, command string) (*workspace.StagedFile, error) {
	content, err := s.Render(name, command)
	if err != nil {
		return nil, err
	}

	staged, err := workspace.Stage(s.Path(name), content, ScriptPerm, workspace.StageReplace)
	if err != nil {
		s.logger.Error("failed to stage script", err, logger.Field{Key: "name", Value: name})
		return nil, errors.Mark(err, ErrWrite)
	}
	return staged, nil
}

// ReadOriginalCommand returns the command recorded in the script for name,
// or "" when the script is missing, unreadable or has no marker.
func (s *Store) ReadOriginalCommand(name string) string {
	cmd, err := s.ReadOriginalCommandErr(name)
	if err != nil {
		s.logger.Debug("original command unavailable",
			logger.Field{Key: "name", Value: name},
			logger.Field{Key: "error", Value: err.Error()})
		return ""
	}
	return cmd
}

// ReadOriginalCommandErr is ReadOriginalCommand that reports why the
// command could not be read. A missing script or marker yields "" and nil.
func (s *Store) ReadOriginalCommandErr(name string) (string, error) {
	path := s.Path(name)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Mark(errors.Wrapf(err, "open script %s", path), ErrRead)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, MarkerPrefix) {
			return DecodeMarker(line[len(MarkerPrefix):]), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Mark(errors.Wrapf(err, "read script %s", path), ErrRead)
	}
	return "", nil
}

// Remove deletes the script for name. A missing script is not an error.
func (s *Store) Remove(name string) error {
	path := s.Path(name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Mark(errors.Wrapf(err, "remove script %s", path), ErrWrite)
	}
	return nil
}

// EncodeMarker returns the marker payload for command. Multi-line commands
// and commands starting with a double quote are stored as a Go quoted string,
// so the marker stays on one line and decodes unambiguously.
func EncodeMarker(command string) string {
	if strings.ContainsAny(command, "\r\n") || strings.HasPrefix(strings.TrimSpace(command), `"`) {
		return strconv.Quote(command)
	}
	return command
}

// DecodeMarker reverses EncodeMarker.
func DecodeMarker(payload string) string {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, `"`) {
		if unquoted, err := strconv.Unquote(payload); err == nil {
			return unquoted
		}
	}
	return payload
}

func singleLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
