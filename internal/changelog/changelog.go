// Package changelog renders conventional commits since the previous release
// tag into a markdown entry and prepends it to the changelog file.
package changelog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/papapumpkin/releaseme/internal/git"
)

// History reads release tags and commits from version control.
type History interface {
	LastTag(ctx context.Context, prefix string) (string, error)
	Log(ctx context.Context, since string, paths []string) ([]git.Commit, error)
}

// Generator writes changelog entries.
type Generator struct {
	Fs      afero.Fs
	History History
}

// Options configures one entry.
type Options struct {
	Path              string // changelog file
	ScopeToPackageDir bool   // restrict commits to PackageDir
	PackageDir        string
	TagPrefix         string
	PackageName       string
	Version           string
	OtherPackages     []string // workspace siblings whose scoped commits are dropped
	Date              time.Time
}

// Entry is the result of Generate.
type Entry struct {
	Markdown        string
	PreviousContent string
	Existed         bool
	PreviousTag     string
	Empty           bool // the entry has no list items
}

// Generate renders the entry for opts and prepends it to the changelog file,
// creating the file if needed.
func (g *Generator) Generate(ctx context.Context, opts Options) (Entry, error) {
	prev, err := g.History.LastTag(ctx, opts.TagPrefix)
	if err != nil {
		return Entry{}, fmt.Errorf("changelog: %w", err)
	}
	var paths []string
	if opts.ScopeToPackageDir {
		paths = []string{opts.PackageDir}
	}
	raw, err := g.History.Log(ctx, prev, paths)
	if err != nil {
		return Entry{}, fmt.Errorf("changelog: %w", err)
	}

	commits := make([]Commit, 0, len(raw))
	for _, rc := range raw {
		commits = append(commits, Parse(rc))
	}
	commits = dropReverted(commits)
	kept := commits[:0]
	for _, c := range commits {
		if !foreignScope(c, opts.PackageName, opts.OtherPackages) {
			kept = append(kept, c)
		}
	}

	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}
	entry := Entry{Markdown: render(opts.Version, date, kept), PreviousTag: prev}
	entry.Empty = !hasBullets(entry.Markdown)

	data, err := afero.ReadFile(g.Fs, opts.Path)
	switch {
	case err == nil:
		entry.Existed = true
		entry.PreviousContent = string(data)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Entry{}, fmt.Errorf("changelog: read %s: %w", opts.Path, err)
	}

	if err := g.Fs.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return Entry{}, fmt.Errorf("changelog: %w", err)
	}
	mode := os.FileMode(0o644)
	if info, err := g.Fs.Stat(opts.Path); err == nil {
		mode = info.Mode().Perm()
	}
	content := entry.Markdown + entry.PreviousContent
	if err := afero.WriteFile(g.Fs, opts.Path, []byte(content), mode); err != nil {
		return Entry{}, fmt.Errorf("changelog: write %s: %w", opts.Path, err)
	}
	return entry, nil
}
