// Package rollback restores the repository to its pre-release commit when a
// release fails or is interrupted after the working tree was confirmed clean.
//
// A Controller is armed once with the base commit and then records what the
// run creates (the release tag, new files). Rollback runs at most once per
// Controller; later calls are no-ops, so it is safe to invoke from both the
// error path and an interruption path.
package rollback

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// ErrNotArmed indicates a record call before Arm.
var ErrNotArmed = errors.New("rollback checkpoint not armed")

// Repo is the subset of version control rollback drives.
type Repo interface {
	ResetHard(ctx context.Context, hash string) error
	DeleteTag(ctx context.Context, name string) error
}

// Controller owns the rollback checkpoint of one release run.
type Controller struct {
	repo Repo
	fs   afero.Fs
	path string // persisted checkpoint; empty disables persistence
	now  func() time.Time

	mu    sync.Mutex
	cp    Checkpoint
	armed bool
	once  sync.Once
}

// NewController returns a disarmed Controller. When path is non-empty every
// checkpoint change is persisted there so `release-me recover` can finish a
// rollback the process never ran.
func NewController(repo Repo, afs afero.Fs, path string) *Controller {
	return &Controller{repo: repo, fs: afs, path: path, now: time.Now}
}

// Arm records the base commit the repository is reset to on rollback.
func (c *Controller) Arm(baseCommit, pkg, releaseVersion string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cp = Checkpoint{
		Package:        pkg,
		ReleaseVersion: releaseVersion,
		BaseCommit:     baseCommit,
		ArmedAt:        c.now().UTC(),
	}
	c.armed = true
	return c.persist()
}

// Restore arms the Controller with a previously persisted checkpoint.
func (c *Controller) Restore(cp Checkpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cp = cp
	c.armed = true
}

// Armed reports whether a rollback would do anything.
func (c *Controller) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Checkpoint returns a copy of the current checkpoint.
func (c *Controller) Checkpoint() Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := c.cp
	cp.CreatedFiles = append([]string(nil), c.cp.CreatedFiles...)
	return cp
}

// RecordTag records a tag created by the run.
func (c *Controller) RecordTag(tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed {
		return ErrNotArmed
	}
	c.cp.Tag = tag
	return c.persist()
}

// RecordCreatedFile records a file that did not exist before the run.
// A hard reset leaves such files behind when they were never committed.
func (c *Controller) RecordCreatedFile(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed {
		return ErrNotArmed
	}
	c.cp.CreatedFiles = append(c.cp.CreatedFiles, path)
	return c.persist()
}

// Disarm marks the run as finished; a later Rollback does nothing.
func (c *Controller) Disarm() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = false
	if c.path == "" {
		return nil
	}
	return remove(c.fs, c.path)
}

// Rollback resets the repository to the base commit, deletes the recorded
// tag, and removes created files. It runs at most once; every later call
// returns nil. Individual failures are aggregated and do not stop the
// remaining steps.
func (c *Controller) Rollback(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		armed, cp := c.armed, c.cp
		c.armed = false
		c.mu.Unlock()
		if !armed {
			return
		}
		err = c.run(ctx, cp)
	})
	return err
}

func (c *Controller) run(ctx context.Context, cp Checkpoint) error {
	var errs error
	if cp.Tag != "" {
		multierr.AppendInto(&errs, c.repo.DeleteTag(ctx, cp.Tag))
	}
	multierr.AppendInto(&errs, c.repo.ResetHard(ctx, cp.BaseCommit))
	for _, f := range cp.CreatedFiles {
		if err := c.fs.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			multierr.AppendInto(&errs, fmt.Errorf("removing %s: %w", f, err))
		}
	}
	if errs != nil {
		return fmt.Errorf("rollback to %s: %w", cp.BaseCommit, errs)
	}
	if c.path != "" {
		return remove(c.fs, c.path)
	}
	return nil
}

// persist must be called with mu held.
func (c *Controller) persist() error {
	if c.path == "" {
		return nil
	}
	return save(c.fs, c.path, c.cp)
}
