package joblog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/chronos/internal/config"
	"github.com/aatumaykin/chronos/internal/workspace"
)

var fixedNow = time.Date(2026, 3, 1, 8, 15, 30, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *workspace.Workspace) {
	t.Helper()
	ws := workspace.New(config.WorkspaceConfig{Path: t.TempDir()})
	require.NoError(t, ws.EnsureDirs())

	s := NewStore(ws, nil)
	s.now = func() time.Time { return fixedNow }
	return s, ws
}

func TestStore_Ensure(t *testing.T) {
	s, ws := newTestStore(t)

	require.NoError(t, s.Ensure("backup"))

	data, err := os.ReadFile(ws.LogPath("backup"))
	require.NoError(t, err)
	assert.Equal(t, "=== Log created at 2026-03-01 08:15:30 ===\n", string(data))

	require.NoError(t, s.Append("backup", "run 1\n"))
	require.NoError(t, s.Ensure("backup"), "existing log is left alone")

	text, found, err := s.Read("backup")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "=== Log created at 2026-03-01 08:15:30 ===\nrun 1\n", text)
}

func TestStore_Read_Missing(t *testing.T) {
	s, _ := newTestStore(t)

	text, found, err := s.Read("absent")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, text)
}

func TestStore_Read_Unreadable(t *testing.T) {
	s, ws := newTestStore(t)

	require.NoError(t, os.Mkdir(ws.LogPath("broken"), 0755))

	_, found, err := s.Read("broken")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRead)
	assert.False(t, found)
}

func TestStore_Clear(t *testing.T) {
	s, _ := newTestStore(t)

	require.NoError(t, s.Append("job", "lots of output\n"))
	require.NoError(t, s.Clear("job"))

	text, found, err := s.Read("job")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "=== Log cleared at 2026-03-01 08:15:30 ===\n", text)
}

func TestStore_Clear_Failure(t *testing.T) {
	s, ws := newTestStore(t)

	require.NoError(t, os.Mkdir(ws.LogPath("broken"), 0755))

	err := s.Clear("broken")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)
}

func TestStore_Export(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Append("job", "line 1\nline 2\n"))

	t.Run("to file", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "out.txt")

		path, err := s.Export("job", dst)
		require.NoError(t, err)
		assert.Equal(t, dst, path)

		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "line 1\nline 2\n", string(data))
	})

	t.Run("to directory", func(t *testing.T) {
		dir := t.TempDir()

		path, err := s.Export("job", dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "log_export_20260301_081530.txt"), path)
		assert.FileExists(t, path)
	})

	t.Run("missing log", func(t *testing.T) {
		_, err := s.Export("absent", t.TempDir())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRead)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestStore_CreationBanner(t *testing.T) {
	s, _ := newTestStore(t)

	banner := s.CreationBanner("backup", "tar czf b.tgz /srv", "0 3 * * *")
	assert.Equal(t, "=== Log created at 2026-03-01 08:15:30 ===\n"+
		"Task: backup\nCommand: tar czf b.tgz /srv\nSchedule: 0 3 * * *\n\n", banner)

	require.NoError(t, s.Append("backup", "old run\n"))
	assert.True(t, strings.HasPrefix(s.CreationBanner("backup", "x", "* * * * *"), "=== Job created at"))
}

func TestStore_StageAppend(t *testing.T) {
	s, ws := newTestStore(t)

	staged, err := s.StageAppend("job", "banner\n")
	require.NoError(t, err)
	assert.NoFileExists(t, ws.LogPath("job"))

	require.NoError(t, staged.Commit())
	text, found, err := s.Read("job")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "banner\n", text)

	staged, err = s.StageAppend("job", "dropped\n")
	require.NoError(t, err)
	require.NoError(t, staged.Discard())

	text, _, err = s.Read("job")
	require.NoError(t, err)
	assert.Equal(t, "banner\n", text)
}

func TestStore_Rename(t *testing.T) {
	t.Run("moves log", func(t *testing.T) {
		s, ws := newTestStore(t)
		require.NoError(t, s.Append("old", "history\n"))

		require.NoError(t, s.Rename("old", "new"))

		assert.NoFileExists(t, ws.LogPath("old"))
		text, found, err := s.Read("new")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "history\n", text)
	})

	t.Run("appends to existing target", func(t *testing.T) {
		s, ws := newTestStore(t)
		require.NoError(t, s.Append("old", "from old\n"))
		require.NoError(t, s.Append("new", "from new\n"))

		require.NoError(t, s.Rename("old", "new"))

		assert.NoFileExists(t, ws.LogPath("old"))
		text, _, err := s.Read("new")
		require.NoError(t, err)
		assert.Equal(t, "from new\nfrom old\n", text)
	})

	t.Run("missing source", func(t *testing.T) {
		s, ws := newTestStore(t)
		require.NoError(t, s.Rename("old", "new"))
		assert.NoFileExists(t, ws.LogPath("new"))
	})

	t.Run("same normalized name", func(t *testing.T) {
		s, _ := newTestStore(t)
		require.NoError(t, s.Append("a b", "kept\n"))

		require.NoError(t, s.Rename("a b", "a_b"))

		text, found, err := s.Read("a b")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "kept\n", text)
	})
}

func TestStore_Remove(t *testing.T) {
	s, ws := newTestStore(t)
	require.NoError(t, s.Ensure("job"))

	require.NoError(t, s.Remove("job"))
	assert.NoFileExists(t, ws.LogPath("job"))
	require.NoError(t, s.Remove("job"))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStore_Follow(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Append("job", "existing\n"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- s.Follow(ctx, "job", out) }()

	require.Eventually(t, func() bool {
		return out.String() == "existing\n"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Append("job", "appended\n"))

	require.Eventually(t, func() bool {
		return out.String() == "existing\nappended\n"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}

func TestStore_Follow_WaitsForCreation(t *testing.T) {
	s, _ := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- s.Follow(ctx, "job", out) }()

	// give the watcher time to register before the file appears
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Append("job", "first run\n"))

	require.Eventually(t, func() bool {
		return out.String() == "first run\n"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
