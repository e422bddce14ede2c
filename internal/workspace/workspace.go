// Package workspace locates the package being released and describes the
// workspace it belongs to.
package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/papapumpkin/releaseme/internal/git"
	"github.com/papapumpkin/releaseme/internal/manifest"
)

// pnpmWorkspaceFile lists the package globs of a pnpm workspace.
const pnpmWorkspaceFile = "pnpm-workspace.yaml"

// Package is the subject of a release.
type Package struct {
	Name         string
	RootDir      string
	ManifestPath string
}

// LocateError explains why dir is not a releasable package.
type LocateError struct {
	Dir   string
	Err   error
	Globs []string // package globs from pnpm-workspace.yaml, when present
}

// Error renders the failure with a remediation hint.
func (e *LocateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v in %s: run release-me from the root directory of the package you want to release", e.Err, e.Dir)
	if len(e.Globs) > 0 {
		fmt.Fprintf(&b, " (workspace packages: %s)", strings.Join(e.Globs, ", "))
	}
	return b.String()
}

// Unwrap returns the underlying sentinel.
func (e *LocateError) Unwrap() error {
	return e.Err
}

// Locate requires a named manifest directly in dir.
func Locate(fs afero.Fs, dir, repoRoot, manifestName string) (Package, error) {
	path := filepath.Join(dir, manifestName)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return Package{}, fmt.Errorf("workspace: stat %s: %w", path, err)
	}
	if !exists {
		return Package{}, &LocateError{Dir: dir, Err: ErrNoManifest, Globs: workspaceGlobs(fs, repoRoot)}
	}
	doc, err := manifest.Load(fs, path)
	if err != nil {
		return Package{}, err
	}
	if doc.Name() == "" {
		return Package{}, &LocateError{Dir: dir, Err: ErrNoName}
	}
	return Package{Name: doc.Name(), RootDir: dir, ManifestPath: path}, nil
}

type pnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

// workspaceGlobs reads the package globs of a pnpm workspace at repoRoot.
// Any read or parse failure yields no globs; they only decorate a hint.
func workspaceGlobs(fs afero.Fs, repoRoot string) []string {
	if repoRoot == "" {
		return nil
	}
	data, err := afero.ReadFile(fs, filepath.Join(repoRoot, pnpmWorkspaceFile))
	if err != nil {
		return nil
	}
	var ws pnpmWorkspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil
	}
	return ws.Packages
}

// Member is one package participating in the release flow.
type Member struct {
	Name      string
	RootRel   string // relative to the repository root, slash separated
	IsCurrent bool
}

// Info describes the workspace around the released package.
type Info struct {
	HasMultiplePackages bool
	Packages            []Member
}

// OtherNames returns the names of every member except the current package.
func (i Info) OtherNames() []string {
	var names []string
	for _, m := range i.Packages {
		if !m.IsCurrent {
			names = append(names, m.Name)
		}
	}
	return names
}

// Analyze scans manifests (absolute paths) and keeps those declaring toolName
// as a development dependency. Exactly one of them must be pkg.
func Analyze(fs afero.Fs, manifests []string, pkg Package, repoRoot, toolName string) (Info, error) {
	var info Info
	current := 0
	for _, path := range manifests {
		doc, err := manifest.Load(fs, path)
		if err != nil {
			return Info{}, err
		}
		if _, ok := doc.Dependency(manifest.DevDependencies, toolName); !ok {
			continue
		}
		if _, ok := doc.Dependency(manifest.Dependencies, toolName); ok {
			return Info{}, fmt.Errorf("%w: %s lists %s in %s", ErrRuntimeDependency, path, toolName, manifest.Dependencies)
		}
		dir := filepath.Dir(path)
		rel, err := filepath.Rel(repoRoot, dir)
		if err != nil {
			return Info{}, fmt.Errorf("workspace: %s outside %s: %w", dir, repoRoot, err)
		}
		m := Member{Name: doc.Name(), RootRel: filepath.ToSlash(rel), IsCurrent: dir == pkg.RootDir}
		if m.IsCurrent {
			current++
			if m.Name != pkg.Name {
				return Info{}, fmt.Errorf("%w: %s is named %q, expected %q", ErrCurrentPackage, path, m.Name, pkg.Name)
			}
		}
		info.Packages = append(info.Packages, m)
	}
	if current != 1 {
		return Info{}, fmt.Errorf("%w: found %d for %s (is %s a devDependency of it?)", ErrCurrentPackage, current, pkg.Name, toolName)
	}
	info.HasMultiplePackages = len(info.Packages) > 1
	return info, nil
}

// ClassifyOptions names the files the release touches.
type ClassifyOptions struct {
	ManifestFile  string
	VersionFile   string // base name of embedded version-constant files; empty disables them
	ChangelogFile string
	ChangelogDir  string // relative to the repository root; empty means the root itself
}

// FilesOfInterest is the bounded set of files a release may write.
type FilesOfInterest struct {
	VersionFiles []string
	Manifests    []string
	Changelog    string
}

// Classify partitions tracked files into version-constant files under the
// package root and manifests anywhere in the repository, and resolves the
// changelog path.
func Classify(files []git.File, pkg Package, repoRoot string, opts ClassifyOptions) FilesOfInterest {
	var foi FilesOfInterest
	for _, f := range files {
		base := filepath.Base(f.Abs)
		switch {
		case base == opts.ManifestFile:
			foi.Manifests = append(foi.Manifests, f.Abs)
		case opts.VersionFile != "" && base == opts.VersionFile && within(pkg.RootDir, f.Abs):
			foi.VersionFiles = append(foi.VersionFiles, f.Abs)
		}
	}
	dir := filepath.Join(repoRoot, filepath.FromSlash(opts.ChangelogDir))
	foi.Changelog = filepath.Join(dir, opts.ChangelogFile)
	return foi
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
