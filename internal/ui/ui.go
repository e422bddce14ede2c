// Package ui renders the human-facing progress output of a release run.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/papapumpkin/releaseme/internal/ansi"
)

// Printer writes colored status lines to stderr (or Out when set).
type Printer struct {
	Out io.Writer
}

// New returns a Printer writing to os.Stderr.
func New() *Printer {
	return &Printer{Out: os.Stderr}
}

func (p *Printer) w() io.Writer {
	if p == nil || p.Out == nil {
		return os.Stderr
	}
	return p.Out
}

// Banner announces the package and version transition about to be released.
func (p *Printer) Banner(pkgName, oldVersion, newVersion string) {
	fmt.Fprintf(p.w(), "%s %s %s %s\n",
		ansi.Style("release-me", ansi.Bold, ansi.Cyan),
		ansi.Style(pkgName, ansi.Bold),
		ansi.Style(oldVersion+" →", ansi.Dim),
		ansi.Style(newVersion, ansi.Bold, ansi.Green))
}

// Step prints the workflow state being entered.
func (p *Printer) Step(state string) {
	fmt.Fprintf(p.w(), "%s %s\n", ansi.Style("›", ansi.Magenta), ansi.Style(strings.ReplaceAll(state, "_", " "), ansi.Dim))
}

// Info prints a dimmed informational line.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w(), ansi.Style(msg, ansi.Dim))
}

// Warn prints a highlighted warning.
func (p *Printer) Warn(msg string) {
	fmt.Fprintf(p.w(), "%s %s\n", ansi.Style("⚠", ansi.Yellow, ansi.Bold), ansi.Style(msg, ansi.Yellow))
}

// Error prints an error banner.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w(), "%s %s\n", ansi.Style("error:", ansi.Red, ansi.Bold), msg)
}

// Aborted reports a soft abort. It is informational, not an error.
func (p *Printer) Aborted(reason string) {
	fmt.Fprintf(p.w(), "%s %s\n", ansi.Style("✗ release aborted", ansi.Yellow, ansi.Bold), reason)
}

// Released reports a successful canonical release.
func (p *Printer) Released(pkgName, version, tag string) {
	fmt.Fprintf(p.w(), "%s %s\n",
		ansi.Style(fmt.Sprintf("✓ released %s@%s", pkgName, version), ansi.Green, ansi.Bold),
		ansi.Style("(tag "+tag+")", ansi.Dim))
}

// CommitReleased reports a successful out-of-band commit release.
func (p *Printer) CommitReleased(pkgName, version string) {
	fmt.Fprintf(p.w(), "%s %s\n",
		ansi.Style(fmt.Sprintf("✓ published %s@%s", pkgName, version), ansi.Green, ansi.Bold),
		ansi.Style("(commit release, install by exact version)", ansi.Dim))
}

// RollbackStarted announces that the working tree is being reset.
func (p *Printer) RollbackStarted(baseCommit string) {
	fmt.Fprintln(p.w(), ansi.Style("↺ rolling back to "+short(baseCommit), ansi.Blue))
}

// RollbackDone reports a completed rollback.
func (p *Printer) RollbackDone(baseCommit string) {
	fmt.Fprintln(p.w(), ansi.Style("✓ rolled back to "+short(baseCommit), ansi.Blue))
}

// RollbackFailed reports a failed rollback together with the state the
// repository may have been left in.
func (p *Printer) RollbackFailed(err error, baseCommit, tag string) {
	fmt.Fprintf(p.w(), "%s %v\n", ansi.Style("✗ rollback failed:", ansi.Red, ansi.Bold), err)
	fmt.Fprintf(p.w(), "  base commit: %s\n", baseCommit)
	if tag != "" {
		fmt.Fprintf(p.w(), "  created tag: %s\n", tag)
	}
	fmt.Fprintln(p.w(), ansi.Style("  run `release-me recover` or reset manually", ansi.Dim))
}

// Check is one line of `release-me validate` output.
type Check struct {
	Name string
	OK   bool
	Note string
}

// Checks prints validation results and reports whether every check passed.
func (p *Printer) Checks(checks []Check) bool {
	ok := true
	for _, c := range checks {
		if c.OK {
			fmt.Fprintf(p.w(), "%s %-16s %s\n", ansi.Style("✓", ansi.Green), c.Name, ansi.Style(c.Note, ansi.Dim))
			continue
		}
		ok = false
		fmt.Fprintf(p.w(), "%s %-16s %s\n", ansi.Style("✗", ansi.Red), c.Name, c.Note)
	}
	return ok
}

func short(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
