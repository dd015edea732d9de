package jobs

import (
	"github.com/cockroachdb/errors"
)

// Error taxonomy of the manager. Callers match with errors.Is; store and
// schedule failures keep their own marks (script.ErrWrite, joblog.ErrRead,
// schedule.ErrInvalidFormat, ...).
var (
	ErrEmptyName             = errors.New("job name is empty")
	ErrInvalidName           = errors.New("job name is invalid")
	ErrEmptyCommand          = errors.New("job command is empty")
	ErrDuplicateName         = errors.New("job name already exists")
	ErrJobNotFound           = errors.New("job not found")
	ErrAmbiguousName         = errors.New("job name matches several crontab entries")
	ErrPermissionDenied      = errors.New("not permitted to modify the crontab")
	ErrPersist               = errors.New("failed to persist the crontab")
	ErrMalformedImportRecord = errors.New("malformed import record")
	ErrInvalidPolicy         = errors.New("unknown conflict policy")
)

const permissionHint = "check that your user may use crontab (see /etc/cron.allow and /etc/cron.deny)"

func notFound(name string) error {
	return errors.Mark(errors.Newf("job %q not found", name), ErrJobNotFound)
}

func ambiguous(name string, count int) error {
	return errors.WithHint(
		errors.Mark(errors.Newf("job %q matches %d crontab entries", name, count), ErrAmbiguousName),
		"edit the crontab by hand so that every job name is used once")
}

func duplicate(name string) error {
	return errors.WithHint(
		errors.Mark(errors.Newf("job %q already exists", name), ErrDuplicateName),
		"choose another name or delete the existing job first")
}
