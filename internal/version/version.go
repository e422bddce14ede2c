// Package version computes the next release version from a release target.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"

	"github.com/papapumpkin/releaseme/internal/manifest"
)

// Kind selects how the next version is computed.
type Kind string

const (
	// KindPatch increments the patch component.
	KindPatch Kind = "patch"
	// KindMinor increments the minor component.
	KindMinor Kind = "minor"
	// KindMajor increments the major component.
	KindMajor Kind = "major"
	// KindCommit produces an out-of-band version labeled with the HEAD hash.
	KindCommit Kind = "commit"
	// KindExplicit uses a caller-supplied version verbatim.
	KindExplicit Kind = "explicit"
)

// explicitMarker prefixes an explicit version on the command line.
const explicitMarker = "v"

// commitHashLen is the number of hash characters in a commit release label.
const commitHashLen = 7

// Target is a parsed release directive.
type Target struct {
	Kind     Kind
	Explicit string
}

// String renders the target the way it is typed on the command line.
func (t Target) String() string {
	if t.Kind == KindExplicit {
		return explicitMarker + t.Explicit
	}
	return string(t.Kind)
}

// ParseTarget parses patch, minor, major, commit, or a v-prefixed version.
func ParseTarget(s string) (Target, error) {
	switch Kind(s) {
	case KindPatch, KindMinor, KindMajor, KindCommit:
		return Target{Kind: Kind(s)}, nil
	}
	if v, ok := strings.CutPrefix(s, explicitMarker); ok && v != "" {
		return Target{Kind: KindExplicit, Explicit: v}, nil
	}
	return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, s)
}

// Pair is the version transition of one release.
type Pair struct {
	Old             string
	New             string
	IsCommitRelease bool
}

// Resolve computes the new version for target given the current version and
// the HEAD commit hash. Explicit versions are taken verbatim without checking
// that they sort after old.
func Resolve(old string, target Target, commitHash string) (Pair, error) {
	if old == "" {
		return Pair{}, ErrNoVersion
	}
	switch target.Kind {
	case KindCommit:
		if len(commitHash) < commitHashLen {
			return Pair{}, fmt.Errorf("%w: %q", ErrShortHash, commitHash)
		}
		return Pair{
			Old:             old,
			New:             old + "-commit-" + commitHash[:commitHashLen],
			IsCommitRelease: true,
		}, nil
	case KindExplicit:
		return Pair{Old: old, New: target.Explicit}, nil
	case KindPatch, KindMinor, KindMajor:
		v, err := semver.StrictNewVersion(old)
		if err != nil {
			return Pair{}, fmt.Errorf("%w: %q: %v", ErrNotSemver, old, err)
		}
		return Pair{Old: old, New: bump(v, target.Kind).String()}, nil
	}
	return Pair{}, fmt.Errorf("%w: %q", ErrInvalidTarget, target.Kind)
}

// bump increments v the way npm does. A prerelease already sitting on the
// boundary of the requested bump is promoted by dropping its prerelease
// (1.0.0-beta.3 major is 1.0.0, 1.2.0-beta minor is 1.2.0).
func bump(v *semver.Version, kind Kind) semver.Version {
	onBoundary := false
	if v.Prerelease() != "" {
		switch kind {
		case KindPatch:
			onBoundary = true
		case KindMinor:
			onBoundary = v.Patch() == 0
		case KindMajor:
			onBoundary = v.Minor() == 0 && v.Patch() == 0
		}
	}
	if onBoundary {
		return *semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
	}
	switch kind {
	case KindPatch:
		return v.IncPatch()
	case KindMinor:
		return v.IncMinor()
	default:
		return v.IncMajor()
	}
}

// Read returns the version recorded in the manifest at path.
func Read(fs afero.Fs, manifestPath string) (string, error) {
	doc, err := manifest.Load(fs, manifestPath)
	if err != nil {
		return "", err
	}
	v := doc.Version()
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrNoVersion, manifestPath)
	}
	return v, nil
}

// Tag is a git release tag.
type Tag struct {
	Prefix  string
	Version string
}

// String returns the tag name.
func (t Tag) String() string {
	return t.Prefix + t.Version
}

// TagPrefix returns override when set, "<name>@" in a multi-package
// workspace, and "v" otherwise.
func TagPrefix(multiplePackages bool, name, override string) string {
	switch {
	case override != "":
		return override
	case multiplePackages:
		return name + "@"
	default:
		return "v"
	}
}

// BumpBoilerplate increments a 0.0.x boilerplate version.
func BumpBoilerplate(v string) (string, error) {
	parts := strings.Split(v, ".")
	if len(parts) != 3 || parts[0] != "0" || parts[1] != "0" {
		return "", fmt.Errorf("%w: %q", ErrBoilerplateScheme, v)
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil || patch < 0 {
		return "", fmt.Errorf("%w: %q", ErrBoilerplateScheme, v)
	}
	return "0.0." + strconv.Itoa(patch+1), nil
}
