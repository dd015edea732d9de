package crontab

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/chronos/internal/schedule"
)

const sampleTab = `# m h  dom mon dow   command
SHELL=/bin/bash
MAILTO=ops@example.com

@reboot /usr/local/bin/warmup
0 3 * * * /home/u/.chronos/scripts/backup.sh # backup
# */5 * * * * /home/u/.chronos/scripts/poll.sh # poll
#this line is just a note about things
30 1 * * 1-5   /usr/bin/foreign   --flag
`

func TestParse(t *testing.T) {
	tab := Parse(sampleTab)
	entries := tab.Entries()
	require.Len(t, entries, 3)

	assert.Equal(t, "0 3 * * *", entries[0].Schedule().String())
	assert.Equal(t, "/home/u/.chronos/scripts/backup.sh", entries[0].Command())
	assert.Equal(t, "backup", entries[0].Comment())
	assert.True(t, entries[0].Enabled())

	assert.Equal(t, "*/5 * * * *", entries[1].Schedule().String())
	assert.Equal(t, "poll", entries[1].Comment())
	assert.False(t, entries[1].Enabled())

	assert.Equal(t, "30 1 * * 1-5", entries[2].Schedule().String())
	assert.Equal(t, "/usr/bin/foreign   --flag", entries[2].Command())
	assert.Empty(t, entries[2].Comment())
}

func TestParse_RoundTripPreservesForeignLines(t *testing.T) {
	tab := Parse(sampleTab)
	assert.Equal(t, sampleTab, tab.Render())
}

func TestParse_Empty(t *testing.T) {
	tab := Parse("")
	assert.Empty(t, tab.Entries())
	assert.Equal(t, "", tab.Render())
}

func TestParse_CommentWithHash(t *testing.T) {
	tab := Parse("0 * * * * /s/x.sh # name # with hash\n")
	entries := tab.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "/s/x.sh", entries[0].Command())
	assert.Equal(t, "name # with hash", entries[0].Comment())
}

func TestParse_CommentAfterQuotedCommand(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		command string
		comment string
	}{
		{
			name:    "single quoted path with separator",
			line:    "0 2 * * * '/tmp/my # jobs/scripts/backup.sh' # backup",
			command: "'/tmp/my # jobs/scripts/backup.sh'",
			comment: "backup",
		},
		{
			name:    "double quoted path with separator",
			line:    `0 2 * * * "/tmp/my # jobs/run.sh" --now # nightly`,
			command: `"/tmp/my # jobs/run.sh" --now`,
			comment: "nightly",
		},
		{
			name:    "escaped quote outside quotes",
			line:    `0 2 * * * echo it\'s # note`,
			command: `echo it\'s`,
			comment: "note",
		},
		{
			name:    "unbalanced quote",
			line:    "0 2 * * * echo don't # note",
			command: "echo don't",
			comment: "note",
		},
		{
			name:    "quoted separator without comment",
			line:    "0 2 * * * echo ' # '",
			command: "echo ' # '",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := Parse(tt.line + "\n").Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.command, entries[0].Command())
			assert.Equal(t, tt.comment, entries[0].Comment())
		})
	}
}

func TestEntry_Line(t *testing.T) {
	tab := Parse("")
	e := tab.New("/s/job.sh", "job")
	e.SetSchedule(schedule.MustParse("15 4 * * 0"))

	assert.Equal(t, "15 4 * * 0 /s/job.sh # job", e.Line())

	e.SetEnabled(false)
	assert.Equal(t, "# 15 4 * * 0 /s/job.sh # job", e.Line())

	e.SetComment("")
	assert.Equal(t, "# 15 4 * * 0 /s/job.sh", e.Line())
}

func TestEntry_DisabledRoundTrip(t *testing.T) {
	tab := Parse("")
	e := tab.New("/s/job.sh", "job")
	e.SetSchedule(schedule.MustParse("0 0 1 * *"))
	e.SetEnabled(false)

	reparsed := Parse(tab.Render()).Entries()
	require.Len(t, reparsed, 1)
	assert.False(t, reparsed[0].Enabled())
	assert.Equal(t, "job", reparsed[0].Comment())
	assert.Equal(t, "/s/job.sh", reparsed[0].Command())
	assert.Equal(t, "0 0 1 * *", reparsed[0].Schedule().String())
}

func TestTab_FindByComment(t *testing.T) {
	tab := Parse("0 * * * * /a # dup\n1 * * * * /b # dup\n2 * * * * /c # single\n")

	assert.Len(t, tab.FindByComment("dup"), 2)
	assert.Len(t, tab.FindByComment("single"), 1)
	assert.Empty(t, tab.FindByComment("absent"))
}

func TestTab_Remove(t *testing.T) {
	tab := Parse("SHELL=/bin/sh\n0 * * * * /a # a\n1 * * * * /b # b\n")
	a := tab.FindByComment("a")[0]

	assert.Equal(t, 1, tab.Remove(a))
	assert.Equal(t, 0, tab.Remove(a))
	assert.Equal(t, "SHELL=/bin/sh\n1 * * * * /b # b\n", tab.Render())
}

func TestTab_Write(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend("MAILTO=root\n")

	tab, err := Load(ctx, backend)
	require.NoError(t, err)

	e := tab.New("/s/job.sh", "job")
	e.SetSchedule(schedule.MustParse("*/10 * * * *"))
	require.NoError(t, tab.Write(ctx))

	assert.Equal(t, "MAILTO=root\n*/10 * * * * /s/job.sh # job\n", backend.Content())
	assert.Equal(t, 1, backend.Writes())
}

func TestTab_Write_ValidatesModifiedEntries(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(tab *Tab)
	}{
		{
			name:  "missing schedule",
			setup: func(tab *Tab) { tab.New("/s/job.sh", "job") },
		},
		{
			name: "out of range minute",
			setup: func(tab *Tab) {
				tab.New("/s/job.sh", "job").SetSchedule(schedule.MustParse("61 * * * *"))
			},
		},
		{
			name: "multi line comment",
			setup: func(tab *Tab) {
				tab.New("/s/job.sh", "a\nb").SetSchedule(schedule.MustParse("* * * * *"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewMemoryBackend("")
			tab, err := Load(ctx, backend)
			require.NoError(t, err)

			tt.setup(tab)

			err = tab.Write(ctx)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidEntry))
			assert.Equal(t, 0, backend.Writes())
		})
	}
}

func TestTab_Write_UntouchedInvalidEntryIsKept(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend("99 * * * * /legacy\n")

	tab, err := Load(ctx, backend)
	require.NoError(t, err)
	tab.New("/s/job.sh", "job").SetSchedule(schedule.MustParse("0 * * * *"))

	require.NoError(t, tab.Write(ctx))
	assert.Equal(t, "99 * * * * /legacy\n0 * * * * /s/job.sh # job\n", backend.Content())
}

func TestTab_Write_BackendFailure(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend("")
	backend.WriteErr = errors.Mark(errors.New("denied"), ErrPermissionDenied)

	tab, err := Load(ctx, backend)
	require.NoError(t, err)
	tab.New("/s/job.sh", "job").SetSchedule(schedule.MustParse("0 * * * *"))

	err = tab.Write(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPermissionDenied))
	assert.Equal(t, "", backend.Content())
}

func TestTab_Write_NoBackend(t *testing.T) {
	err := Parse("").Write(context.Background())
	assert.True(t, errors.Is(err, ErrBackend))
}

func TestFileBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "crontab")
	backend := NewFileBackend(path)

	content, err := backend.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, content)

	require.NoError(t, backend.Write(ctx, "0 * * * * /x # x\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0 * * * * /x # x\n", string(data))
	assert.NoFileExists(t, path+".tmp")

	content, err = backend.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0 * * * * /x # x\n", content)
}

func TestFileBackend_ValidatesSchedules(t *testing.T) {
	ctx := context.Background()
	tab, err := Load(ctx, NewFileBackend(filepath.Join(t.TempDir(), "crontab")))
	require.NoError(t, err)

	tab.New("/x", "x").SetSchedule(schedule.MustParse("* 25 * * *"))
	assert.True(t, errors.Is(tab.Write(ctx), ErrInvalidEntry))
}

func TestMemoryBackend_ReadErr(t *testing.T) {
	backend := NewMemoryBackend("")
	backend.ReadErr = errors.New("boom")

	_, err := Load(context.Background(), backend)
	assert.Error(t, err)
}
