package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/aatumaykin/chronos/internal/logger"
	"github.com/aatumaykin/chronos/internal/schedule"
)

// Record is the portable form of a job used by export and import.
type Record struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Command  string `json:"command" yaml:"command" toml:"command"`
	Schedule string `json:"schedule" yaml:"schedule" toml:"schedule"`
	Enabled  bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
}

// ConflictPolicy decides what ImportAll does with a record whose name is
// already a job.
type ConflictPolicy string

const (
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
	ConflictError     ConflictPolicy = "error"
)

// ParseConflictPolicy accepts skip, overwrite or error. Empty means skip.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ConflictSkip, nil
	case ConflictSkip, ConflictOverwrite, ConflictError:
		return p, nil
	default:
		return "", errors.Mark(errors.Newf("unknown conflict policy %q", s), ErrInvalidPolicy)
	}
}

// ImportResult lists what ImportAll did with each record name.
type ImportResult struct {
	Created []string
	Updated []string
	Skipped []string
}

// ExportAll returns a record for every named job.
func (m *Manager) ExportAll(ctx context.Context) ([]Record, error) {
	jobs, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(jobs))
	for _, job := range jobs {
		if job.Name == "" {
			continue
		}
		records = append(records, Record{
			Name:     job.Name,
			Command:  job.Command,
			Schedule: job.Schedule.String(),
			Enabled:  job.Enabled,
		})
	}
	return records, nil
}

type validRecord struct {
	name     string
	command  string
	schedule schedule.Schedule
	enabled  bool
}

func validateRecords(records []Record) ([]validRecord, error) {
	var (
		out  = make([]validRecord, 0, len(records))
		errs error
		seen = make(map[string]int, len(records))
	)

	malformed := func(i int, format string, args ...any) {
		err := errors.Newf(format, args...)
		errs = errors.CombineErrors(errs,
			errors.Mark(errors.Wrapf(err, "record %d", i+1), ErrMalformedImportRecord))
	}

	for i, r := range records {
		name := strings.TrimSpace(r.Name)
		command := strings.TrimSpace(r.Command)

		switch {
		case name == "":
			malformed(i, "missing name")
			continue
		case strings.ContainsAny(name, "\r\n"):
			malformed(i, "name %q spans several lines", name)
			continue
		case command == "":
			malformed(i, "job %q: missing command", name)
			continue
		}

		sched, err := schedule.Parse(r.Schedule)
		if err != nil {
			malformed(i, "job %q: invalid schedule %q: %v", name, r.Schedule, err)
			continue
		}

		if first, dup := seen[name]; dup {
			malformed(i, "job %q: duplicate of record %d", name, first+1)
			continue
		}
		seen[name] = i

		out = append(out, validRecord{name: name, command: command, schedule: sched, enabled: r.Enabled})
	}
	return out, errs
}

// ImportAll creates jobs from records. Every record is validated before
// anything is written. Records naming an existing job are handled by policy.
// A failure part way stops the import; the result tells what was done.
func (m *Manager) ImportAll(ctx context.Context, records []Record, policy ConflictPolicy) (ImportResult, error) {
	var result ImportResult

	if policy == "" {
		policy = ConflictSkip
	}
	if _, err := ParseConflictPolicy(string(policy)); err != nil {
		return result, err
	}

	valid, err := validateRecords(records)
	if err != nil {
		return result, err
	}

	tab, err := m.load(ctx)
	if err != nil {
		return result, err
	}
	exists := make(map[string]bool, len(valid))
	var conflicts error
	for _, r := range valid {
		if len(tab.FindByComment(r.name)) > 0 {
			exists[r.name] = true
			if policy == ConflictError {
				conflicts = errors.CombineErrors(conflicts, duplicate(r.name))
			}
		}
	}
	if conflicts != nil {
		return result, conflicts
	}

	for _, r := range valid {
		switch {
		case !exists[r.name]:
			var opts []CreateOption
			if !r.enabled {
				opts = append(opts, Disabled())
			}
			if _, err := m.Create(ctx, r.name, r.command, r.schedule, opts...); err != nil {
				return result, errors.Wrapf(err, "import %q", r.name)
			}
			result.Created = append(result.Created, r.name)

		case policy == ConflictOverwrite:
			if _, err := m.Edit(ctx, r.name, r.name, r.command, r.schedule); err != nil {
				return result, errors.Wrapf(err, "import %q", r.name)
			}
			if err := m.setEnabled(ctx, r.name, r.enabled); err != nil {
				return result, errors.Wrapf(err, "import %q", r.name)
			}
			result.Updated = append(result.Updated, r.name)

		default:
			result.Skipped = append(result.Skipped, r.name)
		}
	}

	m.logger.InfoCtx(ctx, "import finished",
		logger.Field{Key: "created", Value: len(result.Created)},
		logger.Field{Key: "updated", Value: len(result.Updated)},
		logger.Field{Key: "skipped", Value: len(result.Skipped)})
	return result, nil
}

// Format is a serialization of a record list.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension; JSON is the
// default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

type tomlDocument struct {
	Jobs []Record `toml:"jobs"`
}

// rawRecord lets a missing "enabled" key default to true.
type rawRecord struct {
	Name     string `json:"name" yaml:"name" toml:"name"`
	Command  string `json:"command" yaml:"command" toml:"command"`
	Schedule string `json:"schedule" yaml:"schedule" toml:"schedule"`
	Enabled  *bool  `json:"enabled" yaml:"enabled" toml:"enabled"`
}

type rawTOMLDocument struct {
	Jobs []rawRecord `toml:"jobs"`
}

// EncodeRecords writes records to w in format.
func EncodeRecords(w io.Writer, format Format, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(tomlDocument{Jobs: records}); err != nil {
			return errors.Wrap(err, "encode toml")
		}
		return nil
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(records); err != nil {
			return errors.Wrap(err, "encode json")
		}
		return nil
	}
}

// DecodeRecords reads a record list in format from r.
func DecodeRecords(r io.Reader, format Format) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read records")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []rawRecord
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		var doc rawTOMLDocument
		err = toml.Unmarshal(data, &doc)
		raw = doc.Jobs
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decode %s records", format), ErrMalformedImportRecord)
	}

	records := make([]Record, 0, len(raw))
	for _, rr := range raw {
		enabled := true
		if rr.Enabled != nil {
			enabled = *rr.Enabled
		}
		records = append(records, Record{
			Name:     rr.Name,
			Command:  rr.Command,
			Schedule: rr.Schedule,
			Enabled:  enabled,
		})
	}
	return records, nil
}
