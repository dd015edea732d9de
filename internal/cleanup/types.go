// Package cleanup removes files left behind by interrupted job writes.
//
// Creating or editing a job stages its script and log next to their final
// paths before the crontab is written. A crash between the two leaves hidden
// staging files in scripts/ and logs/; the runner deletes the ones older than
// a TTL so that writes still in flight are never touched.
package cleanup

import "time"

// Stats holds statistics about cleanup operations.
type Stats struct {
	FilesRemoved int           // Number of staging files removed
	BytesFreed   int64         // Bytes freed
	Duration     time.Duration // Time taken for cleanup
}

// Config holds configuration for cleanup operations.
type Config struct {
	StagingTTL time.Duration // Minimum age of a staging file before removal
}

// Runner performs one cleanup pass over a workspace.
type Runner struct {
	config Config
	now    func() time.Time
}

// NewRunner creates a new cleanup runner.
func NewRunner(config Config) *Runner {
	return &Runner{
		config: config,
		now:    time.Now,
	}
}
