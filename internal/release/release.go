// Package release performs the irreversible tail of a release: lockfile
// refresh, commit, tag, build, publish, and push.
package release

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papapumpkin/releaseme/internal/shell"
)

// peerDepIssues is the pnpm error code for unmet peer dependencies, which
// does not invalidate the refreshed lockfile.
const peerDepIssues = "ERR_PNPM_PEER_DEP_ISSUES"

// registryOverride is inherited from package-manager scripts and breaks
// registry authentication when publishing.
const registryOverride = "npm_config_registry"

// CommitMessagePrefix starts every release commit message.
const CommitMessagePrefix = "release: "

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, c shell.Command) (string, error)
}

// Repo is the subset of version control the executor mutates.
type Repo interface {
	AddAll(ctx context.Context) error
	Commit(ctx context.Context, msg string) error
	Tag(ctx context.Context, name string) error
	Push(ctx context.Context) error
	PushTags(ctx context.Context) error
}

// Options names the external tools and their settings.
type Options struct {
	PackageManager string        // lockfile install, build, and publish
	RegistryClient string        // dist-tag management
	BuildScript    string        // package script run as the build
	InstallTimeout time.Duration // bound on the lockfile install
	CommitDistTag  string        // dist-tag for commit releases
}

// Executor runs the release steps.
type Executor struct {
	Runner   Runner
	Repo     Repo
	RepoRoot string
	Opts     Options
	Logger   *zap.Logger
}

func (e *Executor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// RefreshLockfile runs the package manager install at the repository root.
// Unmet peer dependency failures are tolerated.
func (e *Executor) RefreshLockfile(ctx context.Context) error {
	_, err := e.Runner.Run(ctx, shell.Command{
		Name:    e.Opts.PackageManager,
		Args:    []string{"install"},
		Dir:     e.RepoRoot,
		Timeout: e.Opts.InstallTimeout,
		Stream:  true,
	})
	if err != nil && ctx.Err() == nil && shell.OutputContains(err, peerDepIssues) {
		e.logger().Warn("ignoring peer dependency issues during lockfile refresh", zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("refresh lockfile: %w", err)
	}
	return nil
}

// Commit stages every change and commits it as the release of tag.
func (e *Executor) Commit(ctx context.Context, tag string) error {
	if err := e.Repo.AddAll(ctx); err != nil {
		return err
	}
	return e.Repo.Commit(ctx, CommitMessagePrefix+tag)
}

// Tag creates the release tag.
func (e *Executor) Tag(ctx context.Context, tag string) error {
	return e.Repo.Tag(ctx, tag)
}

// Build runs the build script in dir.
func (e *Executor) Build(ctx context.Context, dir string) error {
	_, err := e.Runner.Run(ctx, shell.Command{
		Name:   e.Opts.PackageManager,
		Args:   []string{"run", e.Opts.BuildScript},
		Dir:    dir,
		Stream: true,
	})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return nil
}

// Publish publishes the package in dir. A non-empty distTag publishes under
// that dist-tag and skips the package manager's git checks.
func (e *Executor) Publish(ctx context.Context, dir, distTag string) error {
	args := []string{"publish"}
	if distTag != "" {
		args = append(args, "--tag", distTag, "--no-git-checks")
	}
	_, err := e.Runner.Run(ctx, shell.Command{
		Name:   e.Opts.PackageManager,
		Args:   args,
		Dir:    dir,
		Unset:  []string{registryOverride},
		Stream: true,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", dir, err)
	}
	return nil
}

// PublishCommit publishes a commit release under the commit dist-tag.
func (e *Executor) PublishCommit(ctx context.Context, dir string) error {
	return e.Publish(ctx, dir, e.Opts.CommitDistTag)
}

// RemoveCommitDistTag deletes the commit dist-tag of pkgName from the
// registry, leaving the published version reachable only by exact version.
func (e *Executor) RemoveCommitDistTag(ctx context.Context, pkgName string) error {
	_, err := e.Runner.Run(ctx, shell.Command{
		Name:  e.Opts.RegistryClient,
		Args:  []string{"dist-tag", "rm", pkgName, e.Opts.CommitDistTag},
		Dir:   e.RepoRoot,
		Unset: []string{registryOverride},
	})
	if err != nil {
		return fmt.Errorf("remove dist-tag %s from %s: %w", e.Opts.CommitDistTag, pkgName, err)
	}
	return nil
}

// Push pushes the release commit and then the tags.
func (e *Executor) Push(ctx context.Context) error {
	if err := e.Repo.Push(ctx); err != nil {
		return err
	}
	return e.Repo.PushTags(ctx)
}
