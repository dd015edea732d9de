// Package app wires chronos together and runs the serve daemon.
// The daemon re-reads the crontab on a schedule, publishes job counts as
// Prometheus metrics and guards itself with a PID file.
package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/aatumaykin/chronos/internal/cleanup"
	"github.com/aatumaykin/chronos/internal/logger"
	"github.com/aatumaykin/chronos/internal/monitor"
	"github.com/aatumaykin/chronos/internal/pidfile"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "chronos"

const shutdownTimeout = 5 * time.Second

// App represents the serve daemon.
type App struct {
	container *Container
	logger    *logger.Logger

	registry *prometheus.Registry
	monitor  *monitor.Monitor
	cleanup  *cleanup.Scheduler

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// New creates the daemon around an already wired container.
func New(c *Container) *App {
	registry := prometheus.NewRegistry()

	var metrics *monitor.PrometheusMetrics
	if c.Config().Monitor.MetricsEnabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = monitor.InitPrometheusMetrics(MetricsNamespace, registry)
	}

	cfg := c.Config()
	sweeper := cleanup.NewScheduler(c.Cleanup(), cleanup.SchedulerConfig{
		Enabled:  cfg.Cleanup.Enabled,
		Interval: cfg.Cleanup.Interval(),
	}, c.Workspace(), c.Logger())

	return &App{
		container: c,
		cleanup:   sweeper,
		logger:    c.Logger(),
		registry:  registry,
		monitor:   monitor.New(c.Manager(), c.Config().Monitor.Schedule, metrics, c.Logger()),
		ready:     make(chan struct{}),
	}
}

// Run starts the daemon and blocks until ctx is cancelled.
// It performs the following steps:
//  1. Acquires the PID file
//  2. Starts the monitor
//  3. Starts the staging file sweep
//  4. Serves metrics when enabled
//  5. Shuts everything down when ctx is done
func (a *App) Run(ctx context.Context) error {
	cfg := a.container.Config()

	release, err := pidfile.Acquire(cfg.Monitor.PIDFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			a.logger.Error("failed to remove PID file", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	if err := a.monitor.Start(gctx); err != nil {
		return err
	}
	defer a.monitor.Stop()

	a.cleanup.Start(gctx)
	defer a.cleanup.Stop()

	if cfg.Monitor.MetricsEnabled {
		ln, err := net.Listen("tcp", cfg.Monitor.Listen)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on %s", cfg.Monitor.Listen)
		}
		a.mu.Lock()
		a.listener = ln
		a.mu.Unlock()

		srv := &http.Server{
			Handler:           a.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			a.logger.Info("metrics server listening", logger.Field{Key: "addr", Value: ln.Addr().String()})
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "metrics server failed")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// keep the group alive until ctx is done, even without the HTTP server
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	close(a.ready)
	a.logger.Info("chronos serve is running")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.logger.Info("chronos serve stopped")
	return nil
}

// Ready is closed once Run has started every component.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the metrics listener address, or "" when not listening.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

type healthResponse struct {
	Status      string    `json:"status"`
	Total       int       `json:"total"`
	Enabled     int       `json:"enabled"`
	Disabled    int       `json:"disabled"`
	RefreshedAt time.Time `json:"refreshed_at"`
	Error       string    `json:"error,omitempty"`
}

// Handler serves /metrics and /healthz.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		summary, at, err := a.monitor.Last()

		resp := healthResponse{
			Status:      "ok",
			Total:       summary.Total,
			Enabled:     summary.Enabled,
			Disabled:    summary.Disabled,
			RefreshedAt: at,
		}
		code := http.StatusOK
		if err != nil {
			resp.Status = "error"
			resp.Error = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}
