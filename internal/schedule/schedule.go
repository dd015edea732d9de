// Package schedule holds the five-field cron schedule of a job.
//
// Parse only checks the field count. Range checking is left to whoever
// installs the schedule (the crontab binary, or Validate for backends that
// have no arbiter of their own).
package schedule

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
)

// FieldCount is the number of fields in a crontab schedule.
const FieldCount = 5

// ErrInvalidFormat is returned when a schedule does not have exactly five fields.
var ErrInvalidFormat = errors.New("invalid schedule format")

var standardParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Schedule is a parsed minute/hour/day-of-month/month/day-of-week expression.
type Schedule struct {
	fields [FieldCount]string
}

// Parse splits text on whitespace and keeps the five fields verbatim.
func Parse(text string) (Schedule, error) {
	parts := strings.Fields(text)
	if len(parts) != FieldCount {
		return Schedule{}, errors.Mark(
			errors.Newf("schedule %q has %d fields, expected %d", text, len(parts), FieldCount),
			ErrInvalidFormat)
	}

	var s Schedule
	copy(s.fields[:], parts)
	return s, nil
}

// MustParse is Parse for schedules known at compile time.
func MustParse(text string) Schedule {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

// String reproduces the five-field expression.
func (s Schedule) String() string {
	if s.IsZero() {
		return ""
	}
	return strings.Join(s.fields[:], " ")
}

// IsZero reports whether s was never parsed.
func (s Schedule) IsZero() bool {
	return s.fields[0] == ""
}

// Fields returns a copy of the five fields.
func (s Schedule) Fields() []string {
	out := make([]string, FieldCount)
	copy(out, s.fields[:])
	return out
}

func (s Schedule) Minute() string     { return s.fields[0] }
func (s Schedule) Hour() string       { return s.fields[1] }
func (s Schedule) DayOfMonth() string { return s.fields[2] }
func (s Schedule) Month() string      { return s.fields[3] }
func (s Schedule) DayOfWeek() string  { return s.fields[4] }

// Validate range-checks every field the way cron(8) would.
func (s Schedule) Validate() error {
	if s.IsZero() {
		return errors.Mark(errors.New("empty schedule"), ErrInvalidFormat)
	}
	if _, err := standardParser.Parse(s.String()); err != nil {
		return errors.Wrapf(err, "schedule %q", s.String())
	}
	return nil
}

// Next returns the first activation strictly after from.
func (s Schedule) Next(from time.Time) (time.Time, error) {
	sched, err := standardParser.Parse(s.String())
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "schedule %q", s.String())
	}
	next := sched.Next(from)
	if next.IsZero() {
		return time.Time{}, errors.Newf("schedule %q never fires", s.String())
	}
	return next, nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Schedule) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Schedule) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
