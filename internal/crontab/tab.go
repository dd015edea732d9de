// Package crontab reads, edits and writes a user's crontab.
//
// A Tab keeps every line of the table. Lines that look like a five-field job
// (optionally disabled with a leading "#") become Entries; everything else
// (environment assignments, free comments, @daily style descriptors, blank
// lines) is kept verbatim and written back untouched. Entries that were not
// modified are also written back byte for byte.
//
// Entry line format:
//
//	[# ]<minute> <hour> <dom> <month> <dow> <command>[ # <comment>]
package crontab

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/chronos/internal/schedule"
)

// ErrInvalidEntry is returned by Write when a modified entry cannot be
// installed.
var ErrInvalidEntry = errors.New("invalid crontab entry")

const (
	disabledPrefix = "#"
	disabledLine   = "# "
	commentSep     = " # "
)

// dormant lines are only treated as disabled jobs when their schedule is
// valid, so that prose comments stay prose.
var dormantParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Entry is one job line of the table.
type Entry struct {
	schedule schedule.Schedule
	command  string
	comment  string
	enabled  bool

	raw   string
	dirty bool
}

// Schedule returns the entry's schedule.
func (e *Entry) Schedule() schedule.Schedule { return e.schedule }

// SetSchedule replaces the schedule.
func (e *Entry) SetSchedule(s schedule.Schedule) {
	e.schedule = s
	e.dirty = true
}

// Command returns the literal command of the line.
func (e *Entry) Command() string { return e.command }

// SetCommand replaces the command.
func (e *Entry) SetCommand(command string) {
	e.command = command
	e.dirty = true
}

// Comment returns the trailing comment (the job name for chronos entries).
func (e *Entry) Comment() string { return e.comment }

// SetComment replaces the trailing comment.
func (e *Entry) SetComment(comment string) {
	e.comment = comment
	e.dirty = true
}

// Enabled reports whether the line is active.
func (e *Entry) Enabled() bool { return e.enabled }

// SetEnabled comments the line out or back in.
func (e *Entry) SetEnabled(enabled bool) {
	if e.enabled != enabled {
		e.enabled = enabled
		e.dirty = true
	}
}

// Line renders the entry.
func (e *Entry) Line() string {
	if !e.dirty && e.raw != "" {
		return e.raw
	}

	var b strings.Builder
	if !e.enabled {
		b.WriteString(disabledLine)
	}
	b.WriteString(e.schedule.String())
	b.WriteByte(' ')
	b.WriteString(e.command)
	if e.comment != "" {
		b.WriteString(commentSep)
		b.WriteString(e.comment)
	}
	return b.String()
}

func (e *Entry) validate(strict bool) error {
	if e.schedule.IsZero() {
		return errors.Mark(errors.Newf("entry %q has no schedule", e.comment), ErrInvalidEntry)
	}
	if strings.TrimSpace(e.command) == "" {
		return errors.Mark(errors.Newf("entry %q has no command", e.comment), ErrInvalidEntry)
	}
	if strings.ContainsAny(e.command+e.comment, "\r\n") {
		return errors.Mark(errors.Newf("entry %q spans several lines", e.comment), ErrInvalidEntry)
	}
	if strict {
		if err := e.schedule.Validate(); err != nil {
			return errors.Mark(errors.Wrapf(err, "entry %q", e.comment), ErrInvalidEntry)
		}
	}
	return nil
}

type line struct {
	raw   string
	entry *Entry
}

// Tab is a parsed crontab bound to the backend it came from.
type Tab struct {
	backend Backend
	lines   []line
}

// Load reads and parses the table held by backend.
func Load(ctx context.Context, backend Backend) (*Tab, error) {
	content, err := backend.Read(ctx)
	if err != nil {
		return nil, err
	}
	t := Parse(content)
	t.backend = backend
	return t, nil
}

// Parse parses crontab text. The returned Tab has no backend.
func Parse(content string) *Tab {
	t := &Tab{}
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return t
	}
	for _, raw := range strings.Split(content, "\n") {
		t.lines = append(t.lines, line{raw: raw, entry: parseEntry(raw)})
	}
	return t
}

func parseEntry(raw string) *Entry {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	enabled := true
	if strings.HasPrefix(text, disabledPrefix) {
		enabled = false
		text = strings.TrimSpace(strings.TrimPrefix(text, disabledPrefix))
	}

	fields, rest, ok := splitFields(text, schedule.FieldCount)
	if !ok || strings.TrimSpace(rest) == "" {
		return nil
	}
	// environment assignments and @descriptors are not five-field jobs
	if strings.Contains(fields[0], "=") || strings.HasPrefix(fields[0], "@") {
		return nil
	}

	sched, err := schedule.Parse(strings.Join(fields, " "))
	if err != nil {
		return nil
	}
	if !enabled {
		if _, err := dormantParser.Parse(sched.String()); err != nil {
			return nil
		}
	}

	command, comment := rest, ""
	if i := commentIndex(rest); i >= 0 {
		command, comment = rest[:i], rest[i+len(commentSep):]
	}

	return &Entry{
		schedule: sched,
		command:  strings.TrimSpace(command),
		comment:  strings.TrimSpace(comment),
		enabled:  enabled,
		raw:      raw,
	}
}

// commentIndex returns the position of the first comment separator that is
// not inside shell quotes, or -1. Script paths are shell quoted and may
// themselves contain the separator. Unbalanced quotes fall back to the first
// separator.
func commentIndex(s string) int {
	var quote byte
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case quote == '\'':
			if c == '\'' {
				quote = 0
			}
		case c == '\\':
			escaped = true
		case quote == '"':
			if c == '"' {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case strings.HasPrefix(s[i:], commentSep):
			return i
		}
	}
	if quote != 0 {
		return strings.Index(s, commentSep)
	}
	return -1
}

// splitFields cuts n whitespace separated fields off the front of s and
// returns the remainder with its inner spacing intact.
func splitFields(s string, n int) ([]string, string, bool) {
	fields := make([]string, 0, n)
	for len(fields) < n {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return nil, "", false
		}
		end := strings.IndexAny(s, " \t")
		if end < 0 {
			fields = append(fields, s)
			s = ""
			continue
		}
		fields = append(fields, s[:end])
		s = s[end:]
	}
	return fields, strings.TrimLeft(s, " \t"), true
}

// Entries returns the job entries in table order.
func (t *Tab) Entries() []*Entry {
	var out []*Entry
	for _, l := range t.lines {
		if l.entry != nil {
			out = append(out, l.entry)
		}
	}
	return out
}

// FindByComment returns every entry whose comment equals comment.
func (t *Tab) FindByComment(comment string) []*Entry {
	var out []*Entry
	for _, e := range t.Entries() {
		if e.comment == comment {
			out = append(out, e)
		}
	}
	return out
}

// New appends an enabled entry. Its schedule must be set before Write.
func (t *Tab) New(command, comment string) *Entry {
	e := &Entry{command: command, comment: comment, enabled: true, dirty: true}
	t.lines = append(t.lines, line{entry: e})
	return e
}

// Remove drops entries from the table. It returns how many were found.
func (t *Tab) Remove(entries ...*Entry) int {
	drop := make(map[*Entry]bool, len(entries))
	for _, e := range entries {
		drop[e] = true
	}

	removed := 0
	kept := t.lines[:0]
	for _, l := range t.lines {
		if l.entry != nil && drop[l.entry] {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	t.lines = kept
	return removed
}

// Render returns the table as crontab text.
func (t *Tab) Render() string {
	if len(t.lines) == 0 {
		return ""
	}
	var b strings.Builder
	for _, l := range t.lines {
		if l.entry != nil {
			b.WriteString(l.entry.Line())
		} else {
			b.WriteString(l.raw)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Write persists the table. Modified entries are checked first; backends
// without their own arbiter also get a range check of the schedule.
func (t *Tab) Write(ctx context.Context) error {
	if t.backend == nil {
		return errors.Mark(errors.New("crontab has no backend"), ErrBackend)
	}

	strict := true
	if a, ok := t.backend.(arbiter); ok && a.ValidatesSchedules() {
		strict = false
	}
	for _, e := range t.Entries() {
		if !e.dirty {
			continue
		}
		if err := e.validate(strict); err != nil {
			return err
		}
	}

	if err := t.backend.Write(ctx, t.Render()); err != nil {
		return err
	}

	for _, e := range t.Entries() {
		e.raw = e.Line()
		e.dirty = false
	}
	return nil
}
