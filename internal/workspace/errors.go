package workspace

import "errors"

// Sentinel errors for package discovery.
var (
	// ErrNoManifest indicates the working directory has no manifest file.
	ErrNoManifest = errors.New("no manifest found")
	// ErrNoName indicates a manifest without a name field.
	ErrNoName = errors.New("manifest has no name field")
	// ErrCurrentPackage indicates the workspace scan did not find exactly one
	// participating package at the current package's location.
	ErrCurrentPackage = errors.New("workspace does not contain exactly one current package")
	// ErrRuntimeDependency indicates a package lists the release tool under
	// its runtime dependencies instead of its development dependencies.
	ErrRuntimeDependency = errors.New("release tool listed as a runtime dependency")
)
