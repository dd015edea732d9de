// Package jobs is the job lifecycle manager.
//
// A job is three artifacts kept consistent by the Manager:
//   - a crontab entry whose comment is the job name and whose command is the
//     quoted path of the wrapper script
//   - the wrapper script, whose marker line holds the original command
//   - the job log
//
// The Manager keeps no job collection of its own; every operation re-reads
// the crontab. Writes are two-phase: new files are staged next to their
// destination, the crontab is persisted, and only then are the staged files
// committed (or discarded when persisting failed).
package jobs

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"

	"github.com/aatumaykin/chronos/internal/crontab"
	"github.com/aatumaykin/chronos/internal/joblog"
	"github.com/aatumaykin/chronos/internal/logger"
	"github.com/aatumaykin/chronos/internal/schedule"
	"github.com/aatumaykin/chronos/internal/script"
	"github.com/aatumaykin/chronos/internal/workspace"
)

// Job is the caller's view of one crontab entry.
type Job struct {
	Name     string
	Command  string
	Schedule schedule.Schedule
	Enabled  bool

	ScriptPath   string
	LogPath      string
	EntryCommand string    // literal command of the crontab line
	Next         time.Time // zero when disabled or not computable
}

// Summary counts the jobs in the crontab.
type Summary struct {
	Total    int
	Enabled  int
	Disabled int
}

// Options configures a Manager.
type Options struct {
	Workspace *workspace.Workspace
	Backend   crontab.Backend
	Scripts   *script.Store
	Logs      *joblog.Store
	Logger    *logger.Logger
	// Now drives next-run times and the timestamps of stores built here.
	Now func() time.Time
}

// Manager performs job lifecycle operations.
type Manager struct {
	ws      *workspace.Workspace
	backend crontab.Backend
	scripts *script.Store
	logs    *joblog.Store
	logger  *logger.Logger
	now     func() time.Time
}

// NewManager creates a Manager. Workspace and Backend are required; the
// stores are built from the workspace when not given.
func NewManager(opts Options) (*Manager, error) {
	if opts.Workspace == nil {
		return nil, errors.New("jobs: workspace is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("jobs: crontab backend is required")
	}

	m := &Manager{
		ws:      opts.Workspace,
		backend: opts.Backend,
		scripts: opts.Scripts,
		logs:    opts.Logs,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if m.logger == nil {
		m.logger = logger.Nop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.scripts == nil {
		m.scripts = script.NewStore(m.ws, "", m.logger).WithClock(m.now)
	}
	if m.logs == nil {
		m.logs = joblog.NewStore(m.ws, m.logger).WithClock(m.now)
	}
	return m, nil
}

// Logs returns the log store used by the manager.
func (m *Manager) Logs() *joblog.Store {
	return m.logs
}

func (m *Manager) load(ctx context.Context) (*crontab.Tab, error) {
	tab, err := crontab.Load(ctx, m.backend)
	if err != nil {
		if errors.Is(err, crontab.ErrPermissionDenied) {
			return nil, errors.WithHint(errors.Mark(err, ErrPermissionDenied), permissionHint)
		}
		return nil, errors.Wrap(err, "read crontab")
	}
	return tab, nil
}

func (m *Manager) persist(ctx context.Context, tab *crontab.Tab) error {
	err := tab.Write(ctx)
	if err == nil {
		return nil
	}

	m.logger.ErrorCtx(ctx, "failed to persist crontab", err)
	if errors.Is(err, crontab.ErrPermissionDenied) {
		return errors.WithHint(errors.Mark(err, ErrPermissionDenied), permissionHint)
	}
	return errors.Mark(errors.Wrap(err, "persist crontab"), ErrPersist)
}

func findOne(tab *crontab.Tab, name string) (*crontab.Entry, error) {
	matches := tab.FindByComment(name)
	switch len(matches) {
	case 0:
		return nil, notFound(name)
	case 1:
		return matches[0], nil
	default:
		return nil, ambiguous(name, len(matches))
	}
}

func (m *Manager) entryCommand(name string) string {
	return shellquote.Join(m.scripts.Path(name))
}

func (m *Manager) toJob(e *crontab.Entry) Job {
	job := Job{
		Name:         e.Comment(),
		Command:      e.Command(),
		Schedule:     e.Schedule(),
		Enabled:      e.Enabled(),
		EntryCommand: e.Command(),
	}

	if job.Name != "" {
		job.ScriptPath = m.scripts.Path(job.Name)
		job.LogPath = m.logs.Path(job.Name)
		if cmd := m.scripts.ReadOriginalCommand(job.Name); cmd != "" {
			job.Command = cmd
		}
	}

	if job.Enabled {
		if next, err := job.Schedule.Next(m.now()); err == nil {
			job.Next = next
		}
	}
	return job
}

// List enumerates every crontab entry in table order.
func (m *Manager) List(ctx context.Context) ([]Job, error) {
	tab, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	entries := tab.Entries()
	jobs := make([]Job, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		job := m.toJob(e)
		if job.Name != "" {
			seen[job.Name]++
			if seen[job.Name] == 2 {
				m.logger.Warn("job name used by several crontab entries",
					logger.Field{Key: "name", Value: job.Name})
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Get returns the job called name.
func (m *Manager) Get(ctx context.Context, name string) (Job, error) {
	tab, err := m.load(ctx)
	if err != nil {
		return Job{}, err
	}
	e, err := findOne(tab, name)
	if err != nil {
		return Job{}, err
	}
	return m.toJob(e), nil
}

// Summary counts enabled and disabled jobs.
func (m *Manager) Summary(ctx context.Context) (Summary, error) {
	tab, err := m.load(ctx)
	if err != nil {
		return Summary{}, err
	}

	var s Summary
	for _, e := range tab.Entries() {
		s.Total++
		if e.Enabled() {
			s.Enabled++
		} else {
			s.Disabled++
		}
	}
	return s, nil
}

// CreateOption adjusts Create.
type CreateOption func(*createOptions)

type createOptions struct {
	disabled bool
}

// Disabled creates the job commented out.
func Disabled() CreateOption {
	return func(o *createOptions) { o.disabled = true }
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Mark(errors.New("job name is empty"), ErrEmptyName)
	}
	if strings.ContainsAny(name, "\r\n") {
		return "", errors.Mark(errors.Newf("job name %q spans several lines", name), ErrInvalidName)
	}
	return name, nil
}

func validateCommand(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", errors.Mark(errors.New("job command is empty"), ErrEmptyCommand)
	}
	return command, nil
}

func validateSchedule(s schedule.Schedule) error {
	if s.IsZero() {
		return errors.Mark(errors.New("job schedule is empty"), schedule.ErrInvalidFormat)
	}
	return nil
}

// Create adds a new job. Nothing is written when validation fails or the
// name is taken; when persisting the crontab fails the staged script and log
// banner are discarded.
func (m *Manager) Create(ctx context.Context, name, command string, sched schedule.Schedule, opts ...CreateOption) (Job, error) {
	var o createOptions
	for _, opt := range opts {
		opt(&o)
	}

	name, err := validateName(name)
	if err != nil {
		return Job{}, err
	}
	command, err = validateCommand(command)
	if err != nil {
		return Job{}, err
	}
	if err := validateSchedule(sched); err != nil {
		return Job{}, err
	}

	tab, err := m.load(ctx)
	if err != nil {
		return Job{}, err
	}
	if len(tab.FindByComment(name)) > 0 {
		return Job{}, duplicate(name)
	}

	if err := m.ws.EnsureDirs(); err != nil {
		return Job{}, errors.Mark(err, script.ErrWrite)
	}

	scriptFile, err := m.scripts.Stage(name, command)
	if err != nil {
		return Job{}, err
	}
	banner, err := m.logs.StageAppend(name, m.logs.CreationBanner(name, command, sched.String()))
	if err != nil {
		m.discard(scriptFile)
		return Job{}, err
	}

	entry := tab.New(m.entryCommand(name), name)
	entry.SetSchedule(sched)
	if o.disabled {
		entry.SetEnabled(false)
	}

	if err := m.persist(ctx, tab); err != nil {
		m.discard(scriptFile, banner)
		return Job{}, err
	}

	if err := scriptFile.Commit(); err != nil {
		m.logger.ErrorCtx(ctx, "crontab entry installed but script could not be committed", err,
			logger.Field{Key: "name", Value: name})
		m.discard(banner)
		return Job{}, errors.Mark(err, script.ErrWrite)
	}
	if err := banner.Commit(); err != nil {
		m.logger.Warn("failed to write creation banner",
			logger.Field{Key: "name", Value: name},
			logger.Field{Key: "error", Value: err.Error()})
	}

	m.logger.InfoCtx(ctx, "job created",
		logger.Field{Key: "name", Value: name},
		logger.Field{Key: "schedule", Value: sched.String()},
		logger.Field{Key: "enabled", Value: !o.disabled})

	return m.toJob(entry), nil
}

// Edit replaces name, command and schedule of the job called existing. The
// enabled state is kept. A rename carries the log forward.
func (m *Manager) Edit(ctx context.Context, existing, newName, newCommand string, newSchedule schedule.Schedule) (Job, error) {
	newName, err := validateName(newName)
	if err != nil {
		return Job{}, err
	}
	newCommand, err = validateCommand(newCommand)
	if err != nil {
		return Job{}, err
	}
	if err := validateSchedule(newSchedule); err != nil {
		return Job{}, err
	}

	tab, err := m.load(ctx)
	if err != nil {
		return Job{}, err
	}
	entry, err := findOne(tab, existing)
	if err != nil {
		return Job{}, err
	}

	renamed := newName != existing
	if renamed && len(tab.FindByComment(newName)) > 0 {
		return Job{}, duplicate(newName)
	}

	if err := m.ws.EnsureDirs(); err != nil {
		return Job{}, errors.Mark(err, script.ErrWrite)
	}
	scriptFile, err := m.scripts.Stage(newName, newCommand)
	if err != nil {
		return Job{}, err
	}

	entry.SetCommand(m.entryCommand(newName))
	entry.SetComment(newName)
	entry.SetSchedule(newSchedule)

	if err := m.persist(ctx, tab); err != nil {
		m.discard(scriptFile)
		return Job{}, err
	}

	if err := scriptFile.Commit(); err != nil {
		m.logger.ErrorCtx(ctx, "crontab entry updated but script could not be committed", err,
			logger.Field{Key: "name", Value: newName})
		return Job{}, errors.Mark(err, script.ErrWrite)
	}

	// normalized names may collide, in which case the new script already
	// took the old one's place
	if renamed && m.scripts.Path(existing) != m.scripts.Path(newName) {
		if err := m.scripts.Remove(existing); err != nil {
			m.logger.Warn("failed to remove old script",
				logger.Field{Key: "name", Value: existing},
				logger.Field{Key: "error", Value: err.Error()})
		}
		if err := m.logs.Rename(existing, newName); err != nil {
			m.logger.Warn("failed to carry log forward",
				logger.Field{Key: "from", Value: existing},
				logger.Field{Key: "to", Value: newName},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}

	m.logger.InfoCtx(ctx, "job updated",
		logger.Field{Key: "name", Value: newName},
		logger.Field{Key: "previous_name", Value: existing},
		logger.Field{Key: "schedule", Value: newSchedule.String()})

	return m.toJob(entry), nil
}

// Delete removes the named jobs in one crontab write and then deletes their
// scripts and logs. Names that match no entry, or several, are skipped and
// reported in the returned error alongside the count of deleted jobs.
func (m *Manager) Delete(ctx context.Context, names []string) (int, error) {
	tab, err := m.load(ctx)
	if err != nil {
		return 0, err
	}

	var (
		targets []*crontab.Entry
		deleted []string
		skipped error
	)
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		entry, err := findOne(tab, name)
		if err != nil {
			skipped = errors.CombineErrors(skipped, err)
			continue
		}
		targets = append(targets, entry)
		deleted = append(deleted, name)
	}

	if len(targets) == 0 {
		return 0, skipped
	}

	tab.Remove(targets...)
	if err := m.persist(ctx, tab); err != nil {
		return 0, err
	}

	var cleanup error
	for _, name := range deleted {
		if err := m.scripts.Remove(name); err != nil {
			cleanup = errors.CombineErrors(cleanup, err)
		}
		if err := m.logs.Remove(name); err != nil {
			cleanup = errors.CombineErrors(cleanup, err)
		}
		m.logger.InfoCtx(ctx, "job deleted", logger.Field{Key: "name", Value: name})
	}

	if cleanup != nil {
		cleanup = errors.Wrap(cleanup, "jobs removed from crontab but files remain")
	}
	return len(deleted), errors.CombineErrors(skipped, cleanup)
}

// SetEnabled enables or disables each named job, persisting after each one.
// The first failure stops the batch; jobs handled before it stay changed.
func (m *Manager) SetEnabled(ctx context.Context, names []string, enabled bool) error {
	for i, name := range names {
		if err := m.setEnabled(ctx, name, enabled); err != nil {
			if i > 0 {
				return errors.Wrapf(err, "%d of %d jobs updated before failure", i, len(names))
			}
			return err
		}
	}
	return nil
}

func (m *Manager) setEnabled(ctx context.Context, name string, enabled bool) error {
	tab, err := m.load(ctx)
	if err != nil {
		return err
	}
	entry, err := findOne(tab, name)
	if err != nil {
		return err
	}
	if entry.Enabled() == enabled {
		return nil
	}

	entry.SetEnabled(enabled)
	if err := m.persist(ctx, tab); err != nil {
		return err
	}

	m.logger.InfoCtx(ctx, "job state changed",
		logger.Field{Key: "name", Value: name},
		logger.Field{Key: "enabled", Value: enabled})
	return nil
}

func (m *Manager) discard(files ...*workspace.StagedFile) {
	for _, f := range files {
		if err := f.Discard(); err != nil {
			m.logger.Warn("failed to discard staged file",
				logger.Field{Key: "path", Value: f.TempPath()},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}
}
