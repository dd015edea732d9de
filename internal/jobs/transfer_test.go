package jobs

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ExportAll(t *testing.T) {
	f := newFixture(t, "0 0 * * * /usr/bin/unnamed\n")
	f.create(t, "a", "echo a", "0 1 * * *")
	f.create(t, "b", "echo b\necho c", "0 2 * * *", Disabled())

	records, err := f.m.ExportAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Record{
		{Name: "a", Command: "echo a", Schedule: "0 1 * * *", Enabled: true},
		{Name: "b", Command: "echo b\necho c", Schedule: "0 2 * * *", Enabled: false},
	}, records)
}

func TestManager_ImportAll_IntoEmpty(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	result, err := f.m.ImportAll(ctx, []Record{
		{Name: "a", Command: "echo a", Schedule: "0 1 * * *", Enabled: true},
		{Name: "b", Command: "echo b", Schedule: "0 2 * * *", Enabled: false},
	}, ConflictSkip)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, result.Created)

	jobs, err := f.m.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.True(t, jobs[0].Enabled)
	assert.False(t, jobs[1].Enabled)
}

func TestManager_ImportAll_ExportRoundTrip(t *testing.T) {
	src := newFixture(t, "")
	src.create(t, "a", "echo a", "0 1 * * *")
	src.create(t, "b", "cd /srv\nmake", "*/15 * * * *", Disabled())

	records, err := src.m.ExportAll(context.Background())
	require.NoError(t, err)

	dst := newFixture(t, "")
	_, err = dst.m.ImportAll(context.Background(), records, ConflictSkip)
	require.NoError(t, err)

	again, err := dst.m.ExportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, records, again)
}

func TestManager_ImportAll_Policies(t *testing.T) {
	incoming := []Record{
		{Name: "existing", Command: "echo new", Schedule: "5 5 * * *", Enabled: false},
		{Name: "fresh", Command: "echo fresh", Schedule: "0 0 * * *", Enabled: true},
	}

	t.Run("skip", func(t *testing.T) {
		f := newFixture(t, "")
		f.create(t, "existing", "echo old", "0 * * * *")

		result, err := f.m.ImportAll(context.Background(), incoming, ConflictSkip)
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh"}, result.Created)
		assert.Equal(t, []string{"existing"}, result.Skipped)

		job, err := f.m.Get(context.Background(), "existing")
		require.NoError(t, err)
		assert.Equal(t, "echo old", job.Command)
	})

	t.Run("overwrite", func(t *testing.T) {
		f := newFixture(t, "")
		f.create(t, "existing", "echo old", "0 * * * *")

		result, err := f.m.ImportAll(context.Background(), incoming, ConflictOverwrite)
		require.NoError(t, err)
		assert.Equal(t, []string{"fresh"}, result.Created)
		assert.Equal(t, []string{"existing"}, result.Updated)

		job, err := f.m.Get(context.Background(), "existing")
		require.NoError(t, err)
		assert.Equal(t, "echo new", job.Command)
		assert.Equal(t, "5 5 * * *", job.Schedule.String())
		assert.False(t, job.Enabled)
	})

	t.Run("error", func(t *testing.T) {
		f := newFixture(t, "")
		f.create(t, "existing", "echo old", "0 * * * *")
		writes := f.backend.Writes()

		_, err := f.m.ImportAll(context.Background(), incoming, ConflictError)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDuplicateName))
		assert.Equal(t, writes, f.backend.Writes(), "nothing imported")
		assert.NoFileExists(t, f.ws.ScriptPath("fresh"))
	})

	t.Run("default is skip", func(t *testing.T) {
		f := newFixture(t, "")
		f.create(t, "existing", "echo old", "0 * * * *")

		result, err := f.m.ImportAll(context.Background(), incoming, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"existing"}, result.Skipped)
	})

	t.Run("unknown policy", func(t *testing.T) {
		f := newFixture(t, "")
		_, err := f.m.ImportAll(context.Background(), incoming, "merge")
		assert.True(t, errors.Is(err, ErrInvalidPolicy))
	})
}

func TestManager_ImportAll_MalformedRecordsStopEverything(t *testing.T) {
	tests := []struct {
		name   string
		record Record
	}{
		{name: "missing name", record: Record{Command: "true", Schedule: "* * * * *"}},
		{name: "missing command", record: Record{Name: "x", Schedule: "* * * * *"}},
		{name: "missing schedule", record: Record{Name: "x", Command: "true"}},
		{name: "short schedule", record: Record{Name: "x", Command: "true", Schedule: "* * *"}},
		{name: "duplicate name", record: Record{Name: "good", Command: "true", Schedule: "* * * * *"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "")
			records := []Record{
				{Name: "good", Command: "echo ok", Schedule: "0 * * * *", Enabled: true},
				tt.record,
			}

			result, err := f.m.ImportAll(context.Background(), records, ConflictSkip)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedImportRecord))
			assert.Contains(t, err.Error(), "record 2")
			assert.Empty(t, result.Created)
			assert.Equal(t, 0, f.backend.Writes())
		})
	}
}

func TestManager_ImportAll_PartialFailure(t *testing.T) {
	f := newFixture(t, "")
	records := []Record{
		{Name: "a", Command: "echo a", Schedule: "0 * * * *", Enabled: true},
		{Name: "b", Command: "echo b", Schedule: "99 * * * *", Enabled: true},
		{Name: "c", Command: "echo c", Schedule: "0 * * * *", Enabled: true},
	}

	result, err := f.m.ImportAll(context.Background(), records, ConflictSkip)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersist))
	assert.Equal(t, []string{"a"}, result.Created)

	jobs, err := f.m.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestParseConflictPolicy(t *testing.T) {
	for in, want := range map[string]ConflictPolicy{
		"":          ConflictSkip,
		"skip":      ConflictSkip,
		"Overwrite": ConflictOverwrite,
		" error ":   ConflictError,
	} {
		got, err := ParseConflictPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseConflictPolicy("merge")
	assert.True(t, errors.Is(err, ErrInvalidPolicy))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("jobs.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("jobs"))
	assert.Equal(t, FormatYAML, FormatFromPath("jobs.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("JOBS.YML"))
	assert.Equal(t, FormatTOML, FormatFromPath("/tmp/jobs.toml"))
}

func TestEncodeDecodeRecords(t *testing.T) {
	records := []Record{
		{Name: "a", Command: `echo "a" && ls <dir>`, Schedule: "0 1 * * *", Enabled: true},
		{Name: "b", Command: "cd /srv\nmake", Schedule: "*/5 * * * *", Enabled: false},
	}

	for _, format := range []Format{FormatJSON, FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, EncodeRecords(&buf, format, records))

			decoded, err := DecodeRecords(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, records, decoded)
		})
	}
}

func TestEncodeRecords_JSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRecords(&buf, FormatJSON, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, EncodeRecords(&buf, FormatJSON, []Record{{Name: "a", Command: "x", Schedule: "* * * * *"}}))
	assert.Contains(t, buf.String(), "\n  {\n    \"name\": \"a\",")
}

func TestEncodeRecords_TOMLShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRecords(&buf, FormatTOML, []Record{{Name: "a", Command: "x", Schedule: "* * * * *"}}))
	assert.Contains(t, buf.String(), "[[jobs]]")
}

func TestDecodeRecords_EnabledDefaultsToTrue(t *testing.T) {
	tests := map[Format]string{
		FormatJSON: `[{"name": "a", "command": "x", "schedule": "* * * * *"}]`,
		FormatYAML: "- name: a\n  command: x\n  schedule: '* * * * *'\n",
		FormatTOML: "[[jobs]]\nname = \"a\"\ncommand = \"x\"\nschedule = \"* * * * *\"\n",
	}

	for format, input := range tests {
		t.Run(string(format), func(t *testing.T) {
			records, err := DecodeRecords(strings.NewReader(input), format)
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.True(t, records[0].Enabled)
		})
	}
}

func TestDecodeRecords_Errors(t *testing.T) {
	_, err := DecodeRecords(strings.NewReader("{not json"), FormatJSON)
	assert.True(t, errors.Is(err, ErrMalformedImportRecord))

	records, err := DecodeRecords(strings.NewReader("  \n"), FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, records)
}
