// Package mutate applies a version change to the files a release owns:
// embedded version constants, the package manifest, dependents' constraints,
// and the companion boilerplate manifest. Every operation checks the prior
// state it expects before writing.
package mutate

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/papapumpkin/releaseme/internal/manifest"
	"github.com/papapumpkin/releaseme/internal/version"
)

// rangeMarker prefixes a caret range constraint.
const rangeMarker = "^"

// ReplaceSnippet replaces the first occurrence of snippetFmt rendered with old
// by snippetFmt rendered with new. Swapping old and new reverses the edit.
func ReplaceSnippet(content, snippetFmt, old, new string) (string, error) {
	from := fmt.Sprintf(snippetFmt, old)
	if !strings.Contains(content, from) {
		return "", &SnippetError{Expected: from}
	}
	return strings.Replace(content, from, fmt.Sprintf(snippetFmt, new), 1), nil
}

// UpdateVersionConstants rewrites every file in files and returns the paths
// written. A file missing the expected literal fails the whole update.
func UpdateVersionConstants(fs afero.Fs, files []string, snippetFmt, old, new string) ([]string, error) {
	type edit struct {
		path    string
		content string
		mode    os.FileMode
	}
	edits := make([]edit, 0, len(files))
	for _, path := range files {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("mutate: read %s: %w", path, err)
		}
		out, err := ReplaceSnippet(string(data), snippetFmt, old, new)
		if err != nil {
			var se *SnippetError
			if errors.As(err, &se) {
				se.Path = path
			}
			return nil, err
		}
		mode := os.FileMode(0o644)
		if info, err := fs.Stat(path); err == nil {
			mode = info.Mode().Perm()
		}
		edits = append(edits, edit{path: path, content: out, mode: mode})
	}
	written := make([]string, 0, len(edits))
	for _, e := range edits {
		if err := afero.WriteFile(fs, e.path, []byte(e.content), e.mode); err != nil {
			return written, fmt.Errorf("mutate: write %s: %w", e.path, err)
		}
		written = append(written, e.path)
	}
	return written, nil
}

// BumpManifestVersion sets the version of the manifest at path from old to new.
func BumpManifestVersion(fs afero.Fs, path, old, new string) error {
	doc, err := manifest.Load(fs, path)
	if err != nil {
		return err
	}
	if got := doc.Version(); got != old {
		return &VersionError{Path: path, Got: got, Want: old}
	}
	if err := doc.SetVersion(new); err != nil {
		return err
	}
	return manifest.Save(fs, path, doc)
}

// RewriteDependents moves every constraint on pkgName from old to new across
// manifests, keeping caret ranges as ranges and exact pins as pins. Workspace,
// link, and file references are left alone. All manifests are checked before
// any is written; the written paths are returned.
func RewriteDependents(fs afero.Fs, manifests []string, pkgName, old, new string) ([]string, error) {
	type pending struct {
		path string
		doc  *manifest.Document
	}
	var edits []pending
	for _, path := range manifests {
		doc, err := manifest.Load(fs, path)
		if err != nil {
			return nil, err
		}
		changed := false
		for _, section := range manifest.Sections() {
			got, ok := doc.Dependency(section, pkgName)
			if !ok || isLocal(got) {
				continue
			}
			want, next := old, new
			if strings.HasPrefix(got, rangeMarker) {
				want, next = rangeMarker+old, rangeMarker+new
			}
			if got != want {
				return nil, &ConstraintError{Path: path, Section: section, Dependency: pkgName, Got: got, Want: want}
			}
			if err := doc.SetDependency(section, pkgName, next); err != nil {
				return nil, err
			}
			changed = true
		}
		if changed {
			edits = append(edits, pending{path: path, doc: doc})
		}
	}
	written := make([]string, 0, len(edits))
	for _, e := range edits {
		if err := manifest.Save(fs, e.path, e.doc); err != nil {
			return written, err
		}
		written = append(written, e.path)
	}
	return written, nil
}

// isLocal reports whether constraint is resolved inside the workspace.
func isLocal(constraint string) bool {
	scheme, _, ok := strings.Cut(constraint, ":")
	if !ok {
		return false
	}
	switch scheme {
	case "workspace", "link", "file":
		return true
	}
	return false
}

// FindBoilerplate returns the manifest among manifests whose package is named
// prefix+pkgName, or "" when there is none.
func FindBoilerplate(fs afero.Fs, manifests []string, pkgName, prefix string) (string, error) {
	want := prefix + pkgName
	for _, path := range manifests {
		doc, err := manifest.Load(fs, path)
		if err != nil {
			return "", err
		}
		if doc.Name() == want {
			return path, nil
		}
	}
	return "", nil
}

// BumpBoilerplate increments the 0.0.x version of the boilerplate manifest at
// path and returns the new version.
func BumpBoilerplate(fs afero.Fs, path string) (string, error) {
	doc, err := manifest.Load(fs, path)
	if err != nil {
		return "", err
	}
	next, err := version.BumpBoilerplate(doc.Version())
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if err := doc.SetVersion(next); err != nil {
		return "", err
	}
	if err := manifest.Save(fs, path, doc); err != nil {
		return "", err
	}
	return next, nil
}
