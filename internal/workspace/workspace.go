// Package workspace manages the chronos data directory.
//
// The workspace is the root under which chronos keeps the artifacts of every
// managed job:
//   - scripts/: generated wrapper scripts (<normalized-name>.sh)
//   - logs/: per-job output logs (<normalized-name>.log)
//
// Example usage:
//
//	ws := workspace.New(config.WorkspaceConfig{Path: "~/.chronos"})
//	if err := ws.EnsureDirs(); err != nil {
//	    return err
//	}
//	fmt.Println(ws.ScriptPath("nightly backup"))
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aatumaykin/chronos/internal/config"
)

const (
	// SubdirScripts holds generated wrapper scripts
	SubdirScripts = "scripts"
	// SubdirLogs holds per-job logs
	SubdirLogs = "logs"

	// ScriptExt is the extension of wrapper scripts
	ScriptExt = ".sh"
	// LogExt is the extension of job logs
	LogExt = ".log"
)

// Workspace resolves every path chronos writes to.
type Workspace struct {
	path     string // Expanded workspace path
	basePath string // Path as configured (may contain ~)
}

// New creates a Workspace from the given configuration.
func New(cfg config.WorkspaceConfig) *Workspace {
	return &Workspace{
		path:     expandHome(cfg.Path),
		basePath: cfg.Path,
	}
}

// Path returns the expanded workspace root.
func (w *Workspace) Path() string {
	return w.path
}

// BasePath returns the root as it was configured.
func (w *Workspace) BasePath() string {
	return w.basePath
}

// ScriptsDir returns the directory holding wrapper scripts.
func (w *Workspace) ScriptsDir() string {
	return filepath.Join(w.path, SubdirScripts)
}

// LogsDir returns the directory holding job logs.
func (w *Workspace) LogsDir() string {
	return filepath.Join(w.path, SubdirLogs)
}

// ScriptPath returns the wrapper script path for a job name.
func (w *Workspace) ScriptPath(name string) string {
	return filepath.Join(w.ScriptsDir(), Normalize(name)+ScriptExt)
}

// LogPath returns the log path for a job name.
func (w *Workspace) LogPath(name string) string {
	return filepath.Join(w.LogsDir(), Normalize(name)+LogExt)
}

// EnsureDirs creates the workspace root, scripts/ and logs/ when missing.
func (w *Workspace) EnsureDirs() error {
	if w.path == "" {
		return fmt.Errorf("workspace path is empty")
	}

	info, err := os.Stat(w.path)
	if err == nil && !info.IsDir() {
		return fmt.Errorf("workspace path exists but is not a directory: %s", w.path)
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to access workspace path %s: %w", w.path, err)
	}

	for _, dir := range []string{w.path, w.ScriptsDir(), w.LogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create workspace directory %s: %w", dir, err)
		}
	}
	return nil
}

// expandHome expands a leading ~/ to the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
