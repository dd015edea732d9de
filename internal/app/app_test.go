package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/chronos/internal/config"
	"github.com/aatumaykin/chronos/internal/crontab"
	"github.com/aatumaykin/chronos/internal/pidfile"
	"github.com/aatumaykin/chronos/internal/schedule"
)

// Helper function to create test config
func createTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Workspace.Path = filepath.Join(dir, "workspace")
	cfg.Crontab.Backend = config.BackendFile
	cfg.Crontab.File = filepath.Join(dir, "crontab")
	cfg.Monitor.Listen = "127.0.0.1:0"
	cfg.Monitor.PIDFile = filepath.Join(dir, "chronos.pid")
	cfg.Monitor.Schedule = "@every 1h"
	return cfg
}

func TestNewContainer(t *testing.T) {
	cfg := createTestConfig(t)

	c, err := NewContainer(cfg, nil)
	require.NoError(t, err)

	assert.Same(t, cfg, c.Config())
	assert.NotNil(t, c.Logger())
	assert.Equal(t, cfg.Workspace.Path, c.Workspace().Path())
	assert.NotNil(t, c.Manager())
	assert.Same(t, c.Manager().Logs(), c.Logs())
	assert.Equal(t, 10*time.Second, c.Runner().Timeout())
	assert.NotNil(t, c.Cleanup())
}

func TestNewContainer_UsesFileBackend(t *testing.T) {
	cfg := createTestConfig(t)
	c, err := NewContainer(cfg, nil)
	require.NoError(t, err)

	_, err = c.Manager().Create(context.Background(), "backup", "tar czf /tmp/b.tgz /srv", schedule.MustParse("0 3 * * *"))
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Crontab.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "0 3 * * * ")
	assert.Contains(t, string(data), " # backup")
}

func TestNewBackend(t *testing.T) {
	cfg := config.Default()

	b, err := newBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &crontab.CommandBackend{}, b)

	cfg.Crontab.Backend = config.BackendFile
	_, err = newBackend(cfg)
	assert.Error(t, err, "file backend without a path")

	cfg.Crontab.File = filepath.Join(t.TempDir(), "tab")
	b, err = newBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &crontab.FileBackend{}, b)

	cfg.Crontab.Backend = "systemd"
	_, err = NewContainer(cfg, nil)
	assert.Error(t, err)
}

func TestApp_Handler(t *testing.T) {
	cfg := createTestConfig(t)
	c, err := NewContainer(cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Manager().Create(ctx, "a", "echo a", schedule.MustParse("* * * * *"))
	require.NoError(t, err)
	_, err = c.Manager().Create(ctx, "b", "echo b", schedule.MustParse("* * * * *"))
	require.NoError(t, err)
	require.NoError(t, c.Manager().SetEnabled(ctx, []string{"b"}, false))

	a := New(c)
	require.NoError(t, a.monitor.Refresh(ctx))

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "chronos_jobs_total 2")
	assert.Contains(t, string(body), "chronos_jobs_disabled 1")

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Total)
	assert.Equal(t, 1, health.Enabled)
}

func TestApp_Healthz_Error(t *testing.T) {
	cfg := createTestConfig(t)
	// a directory instead of a file makes the crontab read fail
	require.NoError(t, os.MkdirAll(cfg.Crontab.File, 0755))

	c, err := NewContainer(cfg, nil)
	require.NoError(t, err)

	a := New(c)
	require.Error(t, a.monitor.Refresh(context.Background()))

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestApp_Run(t *testing.T) {
	cfg := createTestConfig(t)
	c, err := NewContainer(cfg, nil)
	require.NoError(t, err)

	a := New(c)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case <-a.Ready():
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not become ready")
	}

	pid, err := pidfile.Read(cfg.Monitor.PIDFile)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	resp, err := http.Get("http://" + a.Addr() + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop")
	}

	_, err = os.Stat(cfg.Monitor.PIDFile)
	assert.True(t, os.IsNotExist(err), "PID file is removed on shutdown")
}

func TestApp_Run_WithoutMetrics(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.Monitor.MetricsEnabled = false
	c, err := NewContainer(cfg, nil)
	require.NoError(t, err)

	a := New(c)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	<-a.Ready()
	assert.Empty(t, a.Addr())

	cancel()
	assert.NoError(t, <-done)
}

func TestApp_Run_SweepsStagingFiles(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.Monitor.MetricsEnabled = false
	c, err := NewContainer(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, c.Workspace().EnsureDirs())

	stale := filepath.Join(c.Workspace().ScriptsDir(), ".backup.sh.1234.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	a := New(c)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	<-a.Ready()
	assert.Eventually(t, func() bool {
		_, err := os.Stat(stale)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestApp_Run_RefusesSecondInstance(t *testing.T) {
	cfg := createTestConfig(t)
	require.NoError(t, pidfile.Write(cfg.Monitor.PIDFile, os.Getppid()))

	c, err := NewContainer(cfg, nil)
	require.NoError(t, err)

	err = New(c).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, pidfile.ErrAlreadyRunning))
}
