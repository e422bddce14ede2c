package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/papapumpkin/releaseme/internal/changelog"
	"github.com/papapumpkin/releaseme/internal/mutate"
	"github.com/papapumpkin/releaseme/internal/preview"
	"github.com/papapumpkin/releaseme/internal/rollback"
	"github.com/papapumpkin/releaseme/internal/telemetry"
	"github.com/papapumpkin/releaseme/internal/version"
	"github.com/papapumpkin/releaseme/internal/workspace"
)

// target is what the inspection states establish about the release.
type target struct {
	root           string
	pkg            workspace.Package
	info           workspace.Info
	files          workspace.FilesOfInterest
	manifestBefore string
}

func (r *run) execute(ctx context.Context) error {
	cfg := r.o.Config
	afs := r.o.Fs

	r.enter(StateStart)
	root, err := r.repo.Root(ctx)
	if err != nil {
		return err
	}
	gitDir, err := r.repo.GitDir(ctx)
	if err != nil {
		return err
	}
	r.openEvents(gitDir)
	r.emit(telemetry.Event{Kind: telemetry.KindRunStart, Data: map[string]any{
		"target": r.opts.Target.String(),
		"force":  r.opts.Force,
		"yes":    r.opts.Yes,
		"dir":    r.o.Dir,
	}})

	cpPath := ""
	if r.o.PersistCheckpoint {
		cpPath = rollback.Path(gitDir)
		_, pending, err := rollback.Load(afs, cpPath)
		if err != nil {
			return err
		}
		if pending {
			return fmt.Errorf("%w: run `release-me recover` to roll it back, then retry", ErrPendingRecovery)
		}
	}
	r.ctrl = rollback.NewController(r.repo, afs, cpPath)

	r.enter(StateAbortIfDirty)
	dirty, err := r.repo.HasUncommittedChanges(ctx)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("%w: commit or stash them before releasing", ErrDirty)
	}

	r.enter(StateLocatePackage)
	pkg, err := workspace.Locate(afs, r.o.Dir, root, cfg.ManifestFile)
	if err != nil {
		return err
	}
	r.res.Package = pkg.Name

	r.enter(StateResolveVersion)
	head, err := r.repo.CommitHash(ctx, "HEAD")
	if err != nil {
		return err
	}
	old, err := version.Read(afs, pkg.ManifestPath)
	if err != nil {
		return err
	}
	pair, err := version.Resolve(old, r.opts.Target, head)
	if err != nil {
		return err
	}
	r.res.Pair = pair
	r.report.Banner(pkg.Name, pair.Old, pair.New)

	r.enter(StateAnalyzeWorkspace)
	tracked, err := r.repo.ListTrackedFiles(ctx, root)
	if err != nil {
		return err
	}
	files := workspace.Classify(tracked, pkg, root, workspace.ClassifyOptions{
		ManifestFile:  cfg.ManifestFile,
		VersionFile:   cfg.VersionFile,
		ChangelogFile: cfg.ChangelogFile,
		ChangelogDir:  cfg.ChangelogDir,
	})
	info, err := workspace.Analyze(afs, files.Manifests, pkg, root, cfg.ToolPackage)
	if err != nil {
		return err
	}

	r.enter(StateArmed)
	if err := r.ctrl.Arm(head, pkg.Name, pair.New); err != nil {
		return err
	}

	if !pair.IsCommitRelease && !r.opts.Force {
		r.enter(StateAbortIfNotLatest)
		if err := r.checkLatestMain(ctx, head); err != nil {
			return err
		}
	}

	before, err := afero.ReadFile(afs, pkg.ManifestPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", pkg.ManifestPath, err)
	}
	t := target{root: root, pkg: pkg, info: info, files: files, manifestBefore: string(before)}

	r.enter(StateMutateConstants)
	if _, err := mutate.UpdateVersionConstants(afs, files.VersionFiles, cfg.VersionSnippet, pair.Old, pair.New); err != nil {
		return err
	}
	r.enter(StateMutateManifest)
	if err := mutate.BumpManifestVersion(afs, pkg.ManifestPath, pair.Old, pair.New); err != nil {
		return err
	}

	r.exec.RepoRoot = root
	if pair.IsCommitRelease {
		return r.commitRelease(ctx, t)
	}
	return r.canonicalRelease(ctx, t)
}

// checkLatestMain requires HEAD to be the tip of the remote main branch.
func (r *run) checkLatestMain(ctx context.Context, head string) error {
	cfg := r.o.Config
	branch, err := r.repo.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if branch != cfg.MainBranch {
		return fmt.Errorf("%w: on %q, expected %q (use --force to release anyway)", ErrNotMainBranch, branch, cfg.MainBranch)
	}
	if err := r.repo.Fetch(ctx, cfg.Remote); err != nil {
		return err
	}
	ref := cfg.Remote + "/" + cfg.MainBranch
	remote, err := r.repo.CommitHash(ctx, ref)
	if err != nil {
		return err
	}
	if remote != head {
		return fmt.Errorf("%w: HEAD is %.7s but %s is %.7s; pull or push first (use --force to release anyway)",
			ErrNotLatest, head, ref, remote)
	}
	return nil
}

// commitRelease publishes an out-of-band version under the commit dist-tag
// and then removes the dist-tag. The finalizer restores the working tree.
func (r *run) commitRelease(ctx context.Context, t target) error {
	r.enter(StateBuild)
	if err := r.exec.Build(ctx, t.pkg.RootDir); err != nil {
		return err
	}
	r.enter(StatePublishCommit)
	if err := r.exec.PublishCommit(ctx, t.pkg.RootDir); err != nil {
		return err
	}
	r.published = r.res.Pair.New
	r.enter(StateRemoveDistTag)
	if err := r.exec.RemoveCommitDistTag(ctx, t.pkg.Name); err != nil {
		return err
	}
	r.report.CommitReleased(t.pkg.Name, r.res.Pair.New)
	return nil
}

func (r *run) canonicalRelease(ctx context.Context, t target) error {
	cfg := r.o.Config
	afs := r.o.Fs
	pair := r.res.Pair

	r.enter(StateMutateDependents)
	if _, err := mutate.RewriteDependents(afs, t.files.Manifests, t.pkg.Name, pair.Old, pair.New); err != nil {
		return err
	}

	r.enter(StateBumpBoilerplate)
	boilerplate, err := mutate.FindBoilerplate(afs, t.files.Manifests, t.pkg.Name, cfg.BoilerplatePrefix)
	if err != nil {
		return err
	}
	if boilerplate != "" {
		v, err := mutate.BumpBoilerplate(afs, boilerplate)
		if err != nil {
			return err
		}
		r.res.Boilerplate = v
	}

	tag := version.Tag{
		Prefix:  version.TagPrefix(t.info.HasMultiplePackages, t.pkg.Name, cfg.GitTagPrefix),
		Version: pair.New,
	}
	r.res.Tag = tag.String()

	r.enter(StateGenerateChangelog)
	existed, err := afero.Exists(afs, t.files.Changelog)
	if err != nil {
		return err
	}
	if !existed {
		if err := r.ctrl.RecordCreatedFile(t.files.Changelog); err != nil {
			return err
		}
	}
	gen := &changelog.Generator{Fs: afs, History: r.repo}
	entry, err := gen.Generate(ctx, changelog.Options{
		Path:              t.files.Changelog,
		ScopeToPackageDir: t.info.HasMultiplePackages,
		PackageDir:        t.pkg.RootDir,
		TagPrefix:         tag.Prefix,
		PackageName:       t.pkg.Name,
		Version:           pair.New,
		OtherPackages:     t.info.OtherNames(),
		Date:              r.o.now(),
	})
	if err != nil {
		return err
	}

	r.enter(StateShowPreview)
	pv := &preview.Previewer{Fs: afs, Out: r.o.out(), Status: r.repo}
	err = pv.Show(ctx,
		preview.File{Path: t.files.Changelog, Before: entry.PreviousContent, Existed: entry.Existed},
		preview.File{Path: t.pkg.ManifestPath, Before: t.manifestBefore, Existed: true},
	)
	if err != nil {
		return err
	}

	if entry.Empty && !r.opts.Force {
		since := entry.PreviousTag
		if since == "" {
			since = "the first commit"
		}
		r.abort(fmt.Sprintf("no changelog entries for %s since %s (use --force to release anyway)", t.pkg.Name, since))
		return nil
	}

	if !r.opts.Yes {
		r.enter(StateAwaitConfirmation)
		if err := r.confirmer().Confirm(ctx, confirmPrompt); err != nil {
			return err
		}
	}

	r.enter(StateRefreshLockfile)
	if err := r.exec.RefreshLockfile(ctx); err != nil {
		return err
	}
	r.enter(StateGitCommit)
	if err := r.exec.Commit(ctx, tag.String()); err != nil {
		return err
	}
	r.enter(StateGitTag)
	if err := r.exec.Tag(ctx, tag.String()); err != nil {
		return err
	}
	if err := r.ctrl.RecordTag(tag.String()); err != nil {
		return err
	}
	r.enter(StateBuild)
	if err := r.exec.Build(ctx, t.pkg.RootDir); err != nil {
		return err
	}
	r.enter(StatePublish)
	if err := r.exec.Publish(ctx, t.pkg.RootDir, ""); err != nil {
		return err
	}
	r.published = pair.New
	if boilerplate != "" {
		r.enter(StatePublishBoilerplate)
		if err := r.exec.Publish(ctx, filepath.Dir(boilerplate), ""); err != nil {
			return err
		}
	}
	r.enter(StateGitPush)
	if err := r.exec.Push(ctx); err != nil {
		return err
	}

	r.enter(StateEnd)
	if err := r.ctrl.Disarm(); err != nil {
		r.report.Warn(fmt.Sprintf("release finished but the checkpoint could not be removed: %v", err))
	}
	r.report.Released(t.pkg.Name, pair.New, tag.String())
	return nil
}

func (r *run) confirmer() Confirmer {
	if r.o.Confirmer == nil {
		return &preview.Prompter{Out: r.o.out()}
	}
	return r.o.Confirmer
}
