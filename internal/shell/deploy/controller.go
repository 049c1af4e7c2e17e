// Package deploy drives the remote deployment pipeline: synchronize the
// project tree, provision the container runtime, launch the application.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/prodkit/prodkit/internal/core/compose"
	"github.com/prodkit/prodkit/internal/core/manifest"
	"github.com/prodkit/prodkit/internal/core/target"
	"github.com/prodkit/prodkit/internal/shell/prompt"
)

// TargetStore persists the last-used deployment target.
type TargetStore interface {
	Load() (target.Target, error)
	Save(target.Target) error
}

// HistoryRecorder records run outcomes. Its failures are downgraded to
// warnings; deployment never blocks on bookkeeping.
type HistoryRecorder interface {
	RecordStart(runID string, t target.Target, startedAt time.Time) error
	RecordOutcome(runID, stage, status, message string, finishedAt time.Time) error
}

// Dialer opens the remote session. Swapped for a fake in tests.
type Dialer func(t target.Target) (SessionConn, error)

// Config carries everything the controller needs, passed in explicitly
// rather than read from ambient state.
type Config struct {
	ProjectRoot    string
	IgnorePatterns []string // defaults to manifest.DefaultIgnorePatterns
	ProgressEvery  int
	AppPort        int // port used in the post-deploy URL hint
}

// Outcome summarises a successful run for display.
type Outcome struct {
	Target     target.Target
	Containers string // compose ps output, may be empty
	AppURL     string
}

// Controller owns one deployment run: it validates inputs, opens the
// remote session, and delegates to the synchronizer, provisioner and
// launcher in strict sequence. There is no rollback and no retry.
type Controller struct {
	cfg      Config
	store    TargetStore
	history  HistoryRecorder
	prompter prompt.Prompter
	dial     Dialer
	logger   *slog.Logger

	sync     *Synchronizer
	prov     *Provisioner
	launcher *Launcher

	stage Stage
}

// NewController wires a controller. history may be nil.
func NewController(cfg Config, store TargetStore, history HistoryRecorder, prompter prompt.Prompter, dial Dialer, logger *slog.Logger) *Controller {
	if cfg.AppPort == 0 {
		cfg.AppPort = 8000
	}
	return &Controller{
		cfg:      cfg,
		store:    store,
		history:  history,
		prompter: prompter,
		dial:     dial,
		logger:   logger,
		sync:     NewSynchronizer(logger, cfg.ProgressEvery),
		prov:     NewProvisioner(logger),
		launcher: NewLauncher(logger),
	}
}

// Synchronizer exposes the run's synchronizer so callers can attach a
// progress notification.
func (c *Controller) Synchronizer() *Synchronizer {
	return c.sync
}

// Stage reports the pipeline position, for display and tests.
func (c *Controller) Stage() Stage {
	return c.stage
}

// Run executes the pipeline. A nil Outcome with a nil error means the
// operator cancelled before any work was done.
func (c *Controller) Run(ctx context.Context) (*Outcome, error) {
	c.stage = StageLoadConfig
	saved, err := c.store.Load()
	if err != nil {
		// A broken config file never blocks a deployment.
		c.logger.Warn("could not load saved deployment config", "error", err)
		saved = target.Target{}
	}
	defaults := saved.Merge(target.Default())

	c.stage = StagePromptAndValidate
	tgt, err := c.promptTarget(defaults)
	if errors.Is(err, prompt.ErrCancelled) {
		c.stage = StageIdle
		return nil, nil
	}
	if err != nil {
		// Nothing persisted, no network touched.
		c.stage = StageIdle
		return nil, err
	}

	// Persist before connecting so a failed connect can be retried
	// without retyping credentials.
	c.stage = StageSaveConfig
	if err := c.store.Save(tgt); err != nil {
		c.logger.Warn("could not save deployment config", "error", err)
	}

	runID := uuid.NewString()
	c.recordStart(runID, tgt)
	c.describeProject()

	out, err := c.deploy(ctx, tgt)
	if err == nil {
		c.stage = StageDone
	}
	c.recordOutcome(runID, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// promptTarget asks for the three target parameters and validates them,
// reporting every violated constraint individually.
func (c *Controller) promptTarget(def target.Target) (target.Target, error) {
	host, err := c.prompter.Text("IP address of your VPS:", def.Host)
	if err != nil {
		return target.Target{}, err
	}
	user, err := c.prompter.Text("SSH username:", def.User)
	if err != nil {
		return target.Target{}, err
	}
	key, err := c.prompter.Text("Path to your private SSH key:", def.KeyPath)
	if err != nil {
		return target.Target{}, err
	}

	tgt := target.Target{Host: host, User: user, KeyPath: key}
	if err := tgt.Validate(); err != nil {
		var vErr *target.ValidationError
		if errors.As(err, &vErr) {
			for _, p := range vErr.Problems {
				c.logger.Error(p)
			}
		}
		return target.Target{}, err
	}
	return tgt, nil
}

// deploy runs the network-touching stages against a validated target.
func (c *Controller) deploy(ctx context.Context, tgt target.Target) (*Outcome, error) {
	c.stage = StageConnect
	c.logger.Info("connecting", "host", tgt.Host, "user", tgt.User)
	conn, err := c.dial(tgt)
	if err != nil {
		return nil, &PipelineError{Stage: StageConnect, Err: err}
	}
	defer conn.Close()

	basePath := tgt.RemoteBasePath()

	c.stage = StageSync
	m, err := manifest.Build(c.cfg.ProjectRoot, c.ignorePatterns())
	if err != nil {
		return nil, &PipelineError{Stage: StageSync, Err: err}
	}
	c.logger.Info("uploading project", "files", m.Len(), "dest", basePath)
	if err := c.sync.Sync(ctx, conn, m, basePath); err != nil {
		return nil, &PipelineError{Stage: StageSync, Err: err}
	}

	c.stage = StageProvision
	if err := c.prov.EnsureRuntime(ctx, conn); err != nil {
		return nil, &PipelineError{Stage: StageProvision, Err: err}
	}

	c.stage = StageLaunch
	composeCmd, err := c.launcher.SelectCommand(ctx, conn)
	if err != nil {
		return nil, &PipelineError{Stage: StageLaunch, Err: err}
	}
	c.logger.Info("launching application", "cmd", composeCmd)
	containers, err := c.launcher.Launch(ctx, conn, basePath, composeCmd)
	if err != nil {
		return nil, &PipelineError{Stage: StageLaunch, Err: err}
	}

	return &Outcome{
		Target:     tgt,
		Containers: containers,
		AppURL:     fmt.Sprintf("http://%s:%d", tgt.Host, c.cfg.AppPort),
	}, nil
}

func (c *Controller) ignorePatterns() []string {
	if len(c.cfg.IgnorePatterns) > 0 {
		return c.cfg.IgnorePatterns
	}
	return manifest.DefaultIgnorePatterns
}

// describeProject logs the compose service inventory. A missing or
// unparsable compose file is only a warning: the remote launch is the
// authority.
func (c *Controller) describeProject() {
	path, err := compose.Locate(c.cfg.ProjectRoot)
	if err != nil {
		c.logger.Warn("no compose file at project root; launch will likely fail", "root", c.cfg.ProjectRoot)
		return
	}
	spec, err := compose.ParseFile(path)
	if err != nil {
		c.logger.Warn("could not parse compose file", "path", path, "error", err)
		return
	}
	c.logger.Info("deploying services", "services", spec.ServiceNames())
}

func (c *Controller) recordStart(runID string, tgt target.Target) {
	if c.history == nil {
		return
	}
	if err := c.history.RecordStart(runID, tgt, time.Now()); err != nil {
		c.logger.Warn("could not record deployment run", "error", err)
	}
}

func (c *Controller) recordOutcome(runID string, runErr error) {
	if c.history == nil {
		return
	}
	status, message := "succeeded", ""
	if runErr != nil {
		status = "failed"
		message = runErr.Error()
	}
	if err := c.history.RecordOutcome(runID, c.stage.String(), status, message, time.Now()); err != nil {
		c.logger.Warn("could not record deployment outcome", "error", err)
	}
}
