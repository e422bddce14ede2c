package mutate

import "fmt"

// SnippetError reports a version-constant file that does not contain the
// literal assignment of the version being released from.
type SnippetError struct {
	Path     string
	Expected string
}

// Error names the exact literal that was expected.
func (e *SnippetError) Error() string {
	return fmt.Sprintf("%s does not contain `%s`: the embedded version constant is out of sync with the manifest version", e.Path, e.Expected)
}

// ConstraintError reports a dependent manifest whose constraint on the
// released package differs from the one derived from the old version.
type ConstraintError struct {
	Path       string
	Section    string
	Dependency string
	Got        string
	Want       string
}

// Error names the offending manifest and both constraints.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s.%s is %q, expected %q", e.Path, e.Section, e.Dependency, e.Got, e.Want)
}

// VersionError reports a manifest whose version changed since it was read.
type VersionError struct {
	Path string
	Got  string
	Want string
}

// Error names the manifest and both versions.
func (e *VersionError) Error() string {
	return fmt.Sprintf("%s: version is %q, expected %q", e.Path, e.Got, e.Want)
}
