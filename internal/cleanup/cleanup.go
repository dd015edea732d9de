package cleanup

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/aatumaykin/chronos/internal/logger"
	"github.com/aatumaykin/chronos/internal/workspace"
)

// Run removes stale staging files from the scripts and logs directories.
// Failures on single files are collected; the pass continues.
func (r *Runner) Run(ws *workspace.Workspace, log *logger.Logger) (Stats, error) {
	if log == nil {
		log = logger.Nop()
	}

	start := r.now()
	cutoff := start.Add(-r.config.StagingTTL)
	stats := Stats{}
	var errs error

	for _, dir := range []string{ws.ScriptsDir(), ws.LogsDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "list %s", dir))
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !workspace.IsStagingFile(entry.Name()) {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				// removed concurrently
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Error("failed to remove staging file", err, logger.Field{Key: "path", Value: path})
				errs = errors.CombineErrors(errs, errors.Wrapf(err, "remove %s", path))
				continue
			}

			stats.FilesRemoved++
			stats.BytesFreed += info.Size()
			log.Debug("removed staging file",
				logger.Field{Key: "path", Value: path},
				logger.Field{Key: "age", Value: start.Sub(info.ModTime())})
		}
	}

	stats.Duration = r.now().Sub(start)
	return stats, errs
}
