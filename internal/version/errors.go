package version

import "errors"

// Sentinel errors for release-target parsing and version resolution.
var (
	// ErrInvalidTarget indicates a release target that is not a bump kind,
	// "commit", or a v-prefixed version.
	ErrInvalidTarget = errors.New("invalid release target")
	// ErrNoVersion indicates a manifest without a version field.
	ErrNoVersion = errors.New("manifest has no version field")
	// ErrNotSemver indicates a current version that cannot be incremented.
	ErrNotSemver = errors.New("version is not valid semver")
	// ErrShortHash indicates a commit hash too short to label a commit release.
	ErrShortHash = errors.New("commit hash shorter than 7 characters")
	// ErrBoilerplateScheme indicates a boilerplate version outside 0.0.x.
	ErrBoilerplateScheme = errors.New("boilerplate version must follow the 0.0.x scheme")
)
