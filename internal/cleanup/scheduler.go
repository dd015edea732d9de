package cleanup

import (
	"context"
	"time"

	"github.com/aatumaykin/chronos/internal/logger"
	"github.com/aatumaykin/chronos/internal/workspace"
)

// Scheduler manages periodic cleanup runs.
type Scheduler struct {
	runner    *Runner
	config    SchedulerConfig
	logger    *logger.Logger
	workspace *workspace.Workspace
	cancel    context.CancelFunc
	done      chan struct{}
}

// SchedulerConfig holds configuration for the cleanup scheduler.
type SchedulerConfig struct {
	Enabled  bool          // Enable periodic cleanup
	Interval time.Duration // Interval between cleanup runs
}

// NewScheduler creates a new cleanup scheduler.
func NewScheduler(
	runner *Runner,
	config SchedulerConfig,
	ws *workspace.Workspace,
	log *logger.Logger,
) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		runner:    runner,
		config:    config,
		logger:    log,
		workspace: ws,
	}
}

// Start runs one cleanup immediately and then every Interval until ctx is
// done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.config.Enabled || s.config.Interval <= 0 {
		s.logger.Info("cleanup scheduler disabled")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	s.logger.Info("cleanup scheduler started",
		logger.Field{Key: "interval", Value: s.config.Interval.String()})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		s.runCleanup(ctx)
		for {
			select {
			case <-ticker.C:
				s.runCleanup(ctx)
			case <-ctx.Done():
				s.logger.Info("cleanup scheduler stopped")
				return
			}
		}
	}()
}

// Stop stops the scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// runCleanup executes a single cleanup run.
func (s *Scheduler) runCleanup(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	stats, err := s.Trigger()
	if err != nil {
		s.logger.Error("cleanup failed", err)
	}

	if stats.FilesRemoved > 0 {
		s.logger.Info("cleanup completed",
			logger.Field{Key: "files_removed", Value: stats.FilesRemoved},
			logger.Field{Key: "bytes_freed", Value: stats.BytesFreed},
			logger.Field{Key: "duration_ms", Value: stats.Duration.Milliseconds()})
	} else {
		s.logger.Debug("cleanup completed: nothing to remove")
	}
}

// Trigger runs cleanup immediately (manual trigger).
func (s *Scheduler) Trigger() (Stats, error) {
	return s.runner.Run(s.workspace, s.logger)
}
