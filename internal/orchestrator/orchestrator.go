// Package orchestrator sequences a release: it inspects the repository,
// resolves the next version, mutates the release-owned files, gates on human
// confirmation, and performs the irreversible publish and push. Once the
// working tree is confirmed clean the run is armed, and every exit path from
// then on passes through a single finalizer that rolls the repository back
// unless the release completed.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/papapumpkin/releaseme/internal/config"
	"github.com/papapumpkin/releaseme/internal/git"
	"github.com/papapumpkin/releaseme/internal/release"
	"github.com/papapumpkin/releaseme/internal/rollback"
	"github.com/papapumpkin/releaseme/internal/shell"
	"github.com/papapumpkin/releaseme/internal/telemetry"
	"github.com/papapumpkin/releaseme/internal/ui"
	"github.com/papapumpkin/releaseme/internal/version"
)

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, c shell.Command) (string, error)
}

// Reporter receives human-facing progress.
type Reporter interface {
	Banner(pkgName, oldVersion, newVersion string)
	Step(state string)
	Info(msg string)
	Warn(msg string)
	Aborted(reason string)
	Released(pkgName, version, tag string)
	CommitReleased(pkgName, version string)
	RollbackStarted(baseCommit string)
	RollbackDone(baseCommit string)
	RollbackFailed(err error, baseCommit, tag string)
}

// Confirmer blocks until the user approves the release.
type Confirmer interface {
	Confirm(ctx context.Context, msg string) error
}

// confirmPrompt is shown before the irreversible steps.
const confirmPrompt = "Press <ENTER> to confirm the release, or <CTRL-C> to abort. "

// Orchestrator runs release workflows. Its fields are collaborators and
// settings; all per-run state lives in the run value created by Run, so one
// Orchestrator may be used for independent runs.
type Orchestrator struct {
	Fs        afero.Fs
	Runner    Runner
	Dir       string // directory release-me was invoked from
	Config    config.Config
	Reporter  Reporter
	Confirmer Confirmer
	Out       io.Writer // preview output; defaults to os.Stderr
	Logger    *zap.Logger

	// RecordEvents appends the run's events to the log under the git dir.
	RecordEvents bool
	// PersistCheckpoint stores the rollback checkpoint under the git dir.
	PersistCheckpoint bool
	// Now stamps changelog entries; defaults to time.Now.
	Now func() time.Time
}

// Options are the per-invocation directives.
type Options struct {
	Target version.Target
	Force  bool // skip the latest-main check and the empty-changelog abort
	Yes    bool // skip the confirmation prompt
}

// Result describes a finished run.
type Result struct {
	Package     string
	Pair        version.Pair
	Tag         string // empty for commit releases
	Boilerplate string // new boilerplate version when one was bumped
	Aborted     bool
	AbortReason string
}

// Run executes one release. Errors before the run is armed leave the
// repository untouched. After that, any error, interruption, soft abort, or
// completed commit release rolls the repository back to the base commit. A
// soft abort returns a Result with Aborted set and a nil error.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (res Result, err error) {
	r := o.newRun(opts)
	defer func() {
		p := recover()
		if p != nil && err == nil {
			err = fmt.Errorf("panic: %v", p)
		}
		r.finish(ctx, &err)
		res = r.res
		if p != nil {
			panic(p)
		}
	}()
	err = r.execute(ctx)
	return r.res, err
}

// run is the state of a single Run.
type run struct {
	o      *Orchestrator
	opts   Options
	log    *zap.Logger
	report Reporter
	repo   *git.Repo
	exec   *release.Executor
	ctrl   *rollback.Controller
	events *telemetry.Emitter

	res       Result
	published string // version already on the registry
}

func (o *Orchestrator) newRun(opts Options) *run {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var report Reporter = o.Reporter
	if report == nil {
		report = ui.New()
	}
	repo := &git.Repo{Dir: o.Dir, Runner: o.Runner}
	return &run{
		o:      o,
		opts:   opts,
		log:    log,
		report: report,
		repo:   repo,
		exec: &release.Executor{
			Runner: o.Runner,
			Repo:   repo,
			Logger: log,
			Opts: release.Options{
				PackageManager: o.Config.PackageManager,
				RegistryClient: o.Config.RegistryClient,
				BuildScript:    o.Config.BuildScript,
				InstallTimeout: o.Config.InstallTimeout,
				CommitDistTag:  o.Config.CommitDistTag,
			},
		},
	}
}

func (o *Orchestrator) out() io.Writer {
	if o.Out == nil {
		return os.Stderr
	}
	return o.Out
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// enter records the transition into state.
func (r *run) enter(state State) {
	r.log.Debug("state", zap.String("state", string(state)))
	if state != StateStart && state != StateEnd && state != StateArmed {
		r.report.Step(string(state))
	}
	r.emit(telemetry.Event{Kind: telemetry.KindState, State: string(state)})
}

func (r *run) emit(evt telemetry.Event) {
	if evt.Version == "" {
		evt.Version = r.res.Pair.New
	}
	if err := r.events.Emit(evt); err != nil {
		r.log.Warn("event log write failed", zap.Error(err))
	}
}

func (r *run) openEvents(gitDir string) {
	if !r.o.RecordEvents {
		return
	}
	em, err := telemetry.NewEmitter(r.o.Fs, telemetry.Path(gitDir))
	if err != nil {
		r.log.Warn("event log unavailable", zap.Error(err))
		return
	}
	r.events = em
}

// finish is the run's single finalizer. It rolls back whenever the
// checkpoint is still armed, using a context that outlives cancellation of
// the run so an interrupted release is still restored.
func (r *run) finish(ctx context.Context, err *error) {
	if r.ctrl != nil && r.ctrl.Armed() {
		if *err != nil && r.published != "" {
			r.report.Warn(fmt.Sprintf("%s@%s was already published; only local changes are rolled back",
				r.res.Package, r.published))
		}
		if rbErr := r.rollback(context.WithoutCancel(ctx)); rbErr != nil && *err == nil {
			*err = rbErr
		}
	}

	data := map[string]any{"aborted": r.res.Aborted}
	if *err != nil {
		data["error"] = (*err).Error()
	}
	r.emit(telemetry.Event{Kind: telemetry.KindRunDone, Data: data})
	if cerr := r.events.Close(); cerr != nil {
		r.log.Warn("closing event log", zap.Error(cerr))
	}
}

func (r *run) rollback(ctx context.Context) error {
	r.enter(StateRollback)
	cp := r.ctrl.Checkpoint()
	r.report.RollbackStarted(cp.BaseCommit)
	err := r.ctrl.Rollback(ctx)

	data := map[string]any{"base": cp.BaseCommit}
	if cp.Tag != "" {
		data["tag"] = cp.Tag
	}
	if err != nil {
		data["error"] = err.Error()
		r.report.RollbackFailed(err, cp.BaseCommit, cp.Tag)
	} else {
		r.report.RollbackDone(cp.BaseCommit)
	}
	r.emit(telemetry.Event{Kind: telemetry.KindRollback, Data: data})
	return err
}

// abort ends the run softly; the finalizer rolls back.
func (r *run) abort(reason string) {
	r.res.Aborted = true
	r.res.AbortReason = reason
	r.report.Aborted(reason)
}
