package app

import (
	"go.uber.org/dig"

	"github.com/cockroachdb/errors"

	"github.com/aatumaykin/chronos/internal/cleanup"
	"github.com/aatumaykin/chronos/internal/config"
	"github.com/aatumaykin/chronos/internal/crontab"
	"github.com/aatumaykin/chronos/internal/jobs"
	"github.com/aatumaykin/chronos/internal/joblog"
	"github.com/aatumaykin/chronos/internal/logger"
	"github.com/aatumaykin/chronos/internal/runner"
	"github.com/aatumaykin/chronos/internal/script"
	"github.com/aatumaykin/chronos/internal/workspace"
)

// Container holds the resolved services of one chronos invocation.
// Callers use the typed getters; they never need to import dig directly.
type Container struct {
	config    *config.Config
	logger    *logger.Logger
	workspace *workspace.Workspace
	manager   *jobs.Manager
	logs      *joblog.Store
	runner    *runner.Runner
	cleanup   *cleanup.Runner
}

func (c *Container) Config() *config.Config          { return c.config }
func (c *Container) Logger() *logger.Logger          { return c.logger }
func (c *Container) Workspace() *workspace.Workspace { return c.workspace }
func (c *Container) Manager() *jobs.Manager          { return c.manager }
func (c *Container) Logs() *joblog.Store             { return c.logs }
func (c *Container) Runner() *runner.Runner          { return c.runner }
func (c *Container) Cleanup() *cleanup.Runner        { return c.cleanup }

// NewContainer wires every service from cfg. Nothing touches the crontab or
// the filesystem until an operation is called.
func NewContainer(cfg *config.Config, log *logger.Logger) (*Container, error) {
	if log == nil {
		log = logger.Nop()
	}

	d := dig.New()

	providers := []any{
		func() *config.Config { return cfg },
		func() *logger.Logger { return log },
		newWorkspace,
		newBackend,
		newScriptStore,
		newLogStore,
		newManager,
		newRunner,
		newCleanupRunner,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, errors.Wrap(err, "failed to register provider")
		}
	}

	var result *Container
	err := d.Invoke(func(
		ws *workspace.Workspace,
		manager *jobs.Manager,
		logs *joblog.Store,
		run *runner.Runner,
		sweeper *cleanup.Runner,
	) {
		result = &Container{
			config:    cfg,
			logger:    log,
			workspace: ws,
			manager:   manager,
			logs:      logs,
			runner:    run,
			cleanup:   sweeper,
		}
	})
	if err != nil {
		// dig wraps constructor errors; surface the original one
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func newWorkspace(cfg *config.Config) *workspace.Workspace {
	return workspace.New(cfg.Workspace)
}

func newBackend(cfg *config.Config) (crontab.Backend, error) {
	switch cfg.Crontab.Backend {
	case config.BackendCommand, "":
		return crontab.NewCommandBackend(cfg.Crontab.Binary, cfg.Crontab.User), nil
	case config.BackendFile:
		if cfg.Crontab.File == "" {
			return nil, errors.New("crontab.file is required for the file backend")
		}
		return crontab.NewFileBackend(cfg.Crontab.File), nil
	default:
		return nil, errors.Newf("unknown crontab backend %q", cfg.Crontab.Backend)
	}
}

func newScriptStore(cfg *config.Config, ws *workspace.Workspace, log *logger.Logger) *script.Store {
	return script.NewStore(ws, cfg.Scripts.Shell, log)
}

func newLogStore(ws *workspace.Workspace, log *logger.Logger) *joblog.Store {
	return joblog.NewStore(ws, log)
}

func newManager(
	ws *workspace.Workspace,
	backend crontab.Backend,
	scripts *script.Store,
	logs *joblog.Store,
	log *logger.Logger,
) (*jobs.Manager, error) {
	return jobs.NewManager(jobs.Options{
		Workspace: ws,
		Backend:   backend,
		Scripts:   scripts,
		Logs:      logs,
		Logger:    log,
	})
}

func newRunner(cfg *config.Config, log *logger.Logger) *runner.Runner {
	return runner.New(cfg.Runner.Shell, cfg.Runner.Timeout(), log)
}

func newCleanupRunner(cfg *config.Config) *cleanup.Runner {
	return cleanup.NewRunner(cleanup.Config{StagingTTL: cfg.Cleanup.StagingTTL()})
}
