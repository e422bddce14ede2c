// Package git wraps the git CLI queries and mutations the release workflow
// needs. Every call is a single git process run through a Runner so the
// workflow can be exercised against a scripted transport.
package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/releaseme/internal/shell"
)

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, c shell.Command) (string, error)
}

// Repo runs git commands in Dir.
type Repo struct {
	Dir    string
	Runner Runner
}

// File is a tracked file.
type File struct {
	Rel string // relative to the directory that was listed
	Abs string
}

// Commit is a raw commit as read from git log.
type Commit struct {
	Hash    string
	Message string
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	return r.Runner.Run(ctx, shell.Command{Name: "git", Args: args, Dir: r.Dir})
}

// Root returns the absolute top-level directory of the work tree.
func (r *Repo) Root(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %w", ErrNotRepository, r.Dir, err)
	}
	return filepath.Clean(out), nil
}

// GitDir returns the absolute path of the repository's git directory.
func (r *Repo) GitDir(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", fmt.Errorf("git rev-parse --absolute-git-dir: %w", err)
	}
	return out, nil
}

// HasUncommittedChanges reports whether git status --porcelain prints anything.
func (r *Repo) HasUncommittedChanges(ctx context.Context) (bool, error) {
	out, err := r.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return out != "", nil
}

// Status returns the human-readable working tree status.
func (r *Repo) Status(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "status")
	if err != nil {
		return "", fmt.Errorf("git status: %w", err)
	}
	return out, nil
}

// ListTrackedFiles returns every file git tracks under dir, in git's order.
// Untracked files are never included.
func (r *Repo) ListTrackedFiles(ctx context.Context, dir string) ([]File, error) {
	out, err := r.Runner.Run(ctx, shell.Command{Name: "git", Args: []string{"ls-files", "-z"}, Dir: dir})
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}
	var files []File
	for _, rel := range strings.Split(out, "\x00") {
		if rel == "" {
			continue
		}
		files = append(files, File{Rel: rel, Abs: filepath.Join(dir, filepath.FromSlash(rel))})
	}
	return files, nil
}

// CurrentBranch returns the checked-out branch name ("HEAD" when detached).
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse --abbrev-ref HEAD: %w", err)
	}
	return out, nil
}

// CommitHash resolves ref to a full commit hash.
func (r *Repo) CommitHash(ctx context.Context, ref string) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %w", ErrUnknownRef, ref, err)
	}
	return out, nil
}

// Fetch updates remote-tracking refs from remote.
func (r *Repo) Fetch(ctx context.Context, remote string) error {
	if _, err := r.git(ctx, "fetch", remote); err != nil {
		return fmt.Errorf("git fetch %s: %w", remote, err)
	}
	return nil
}

// AddAll stages every change in the work tree.
func (r *Repo) AddAll(ctx context.Context) error {
	if _, err := r.git(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	return nil
}

// Commit records the staged changes with msg.
func (r *Repo) Commit(ctx context.Context, msg string) error {
	if _, err := r.git(ctx, "commit", "-m", msg); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

// Tag creates a lightweight tag at HEAD.
func (r *Repo) Tag(ctx context.Context, name string) error {
	if _, err := r.git(ctx, "tag", name); err != nil {
		return fmt.Errorf("git tag %s: %w", name, err)
	}
	return nil
}

// DeleteTag removes a local tag.
func (r *Repo) DeleteTag(ctx context.Context, name string) error {
	if _, err := r.git(ctx, "tag", "-d", name); err != nil {
		return fmt.Errorf("git tag -d %s: %w", name, err)
	}
	return nil
}

// Push pushes the current branch to its upstream.
func (r *Repo) Push(ctx context.Context) error {
	if _, err := r.git(ctx, "push"); err != nil {
		return fmt.Errorf("git push: %w", err)
	}
	return nil
}

// PushTags pushes all local tags.
func (r *Repo) PushTags(ctx context.Context) error {
	if _, err := r.git(ctx, "push", "--tags"); err != nil {
		return fmt.Errorf("git push --tags: %w", err)
	}
	return nil
}

// ResetHard resets the index and work tree to hash.
func (r *Repo) ResetHard(ctx context.Context, hash string) error {
	if _, err := r.git(ctx, "reset", "--hard", hash); err != nil {
		return fmt.Errorf("git reset --hard %s: %w", hash, err)
	}
	return nil
}

// LastTag returns the nearest tag reachable from HEAD whose name starts with
// prefix, or "" when there is none.
func (r *Repo) LastTag(ctx context.Context, prefix string) (string, error) {
	out, err := r.git(ctx, "describe", "--tags", "--abbrev=0", "--match", prefix+"*")
	if err != nil {
		if shell.OutputContains(err, "No names found") || shell.OutputContains(err, "No tags can describe") ||
			shell.OutputContains(err, "cannot describe") {
			return "", nil
		}
		return "", fmt.Errorf("git describe: %w", err)
	}
	return out, nil
}

// Field and record separators for the log format.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// Log returns the commits reachable from HEAD but not from since (all of
// HEAD's history when since is empty), newest first. When paths is non-empty
// only commits touching those paths are listed.
func (r *Repo) Log(ctx context.Context, since string, paths []string) ([]Commit, error) {
	rev := "HEAD"
	if since != "" {
		rev = since + "..HEAD"
	}
	args := []string{"log", "--format=%H" + "%x1f" + "%B" + "%x1e", rev}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := r.git(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	var commits []Commit
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		hash, body, ok := strings.Cut(rec, fieldSep)
		if !ok {
			continue
		}
		commits = append(commits, Commit{Hash: strings.TrimSpace(hash), Message: strings.TrimSpace(body)})
	}
	return commits, nil
}
