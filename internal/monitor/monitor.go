// Package monitor periodically re-reads the crontab for `chronos serve`.
//
// Nothing is cached between runs: every tick asks the job manager for a
// fresh summary and publishes it as metrics.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/chronos/internal/jobs"
	"github.com/aatumaykin/chronos/internal/logger"
)

// Source provides job counts.
type Source interface {
	Summary(ctx context.Context) (jobs.Summary, error)
}

// Monitor re-reads the crontab on a cron schedule.
type Monitor struct {
	source   Source
	metrics  *PrometheusMetrics
	logger   *logger.Logger
	schedule string
	cron     *cron.Cron

	mu      sync.RWMutex
	last    jobs.Summary
	lastAt  time.Time
	lastErr error
}

// New creates a Monitor. metrics may be nil when metrics are disabled.
func New(source Source, schedule string, metrics *PrometheusMetrics, log *logger.Logger) *Monitor {
	if log == nil {
		log = logger.Nop()
	}
	return &Monitor{
		source:   source,
		metrics:  metrics,
		logger:   log,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start runs one refresh immediately and then schedules the rest. Refreshes
// stop when ctx is done or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	if _, err := m.cron.AddFunc(m.schedule, func() { _ = m.Refresh(ctx) }); err != nil {
		return errors.Wrapf(err, "invalid monitor schedule %q", m.schedule)
	}

	_ = m.Refresh(ctx)
	m.cron.Start()

	m.logger.Info("monitor started", logger.Field{Key: "schedule", Value: m.schedule})

	go func() {
		<-ctx.Done()
		m.Stop()
	}()
	return nil
}

// Stop halts scheduling and waits for a running refresh to finish.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

// Refresh re-reads the crontab once.
func (m *Monitor) Refresh(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	start := time.Now()
	summary, err := m.source.Summary(ctx)
	duration := time.Since(start)

	m.mu.Lock()
	m.lastErr = err
	if err == nil {
		m.last = summary
		m.lastAt = start
	}
	m.mu.Unlock()

	status := "ok"
	if err != nil {
		status = "error"
		m.logger.Error("crontab refresh failed", err)
	} else {
		m.logger.Debug("crontab refreshed",
			logger.Field{Key: "total", Value: summary.Total},
			logger.Field{Key: "enabled", Value: summary.Enabled},
			logger.Field{Key: "duration", Value: duration})
	}

	if m.metrics != nil {
		m.metrics.RecordRefresh(status, duration)
		if err == nil {
			m.metrics.SetSummary(summary, start)
		}
	}
	return err
}

// Last returns the most recent successful summary, when it was taken, and
// the error of the most recent refresh.
func (m *Monitor) Last() (jobs.Summary, time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.lastAt, m.lastErr
}
