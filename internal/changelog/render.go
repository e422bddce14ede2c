package changelog

import (
	"fmt"
	"strings"
	"time"
)

// section maps a commit type to its changelog heading, in rendering order.
type section struct {
	typ   string
	title string
}

func sections() []section {
	return []section{
		{"feat", "Features"},
		{"fix", "Bug Fixes"},
		{"perf", "Performance Improvements"},
		{"revert", "Reverts"},
	}
}

const hashLen = 7

// render formats commits as one changelog entry for version.
func render(version string, date time.Time, commits []Commit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%s)\n\n", version, date.Format(time.DateOnly))

	for _, s := range sections() {
		var lines []string
		for _, c := range commits {
			if c.Type == s.typ {
				lines = append(lines, bullet(c))
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", s.title)
		for _, l := range lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	var notes []string
	for _, c := range commits {
		for _, n := range c.Notes {
			notes = append(notes, noteBullet(c, n))
		}
	}
	if len(notes) > 0 {
		b.WriteString("### BREAKING CHANGES\n\n")
		for _, n := range notes {
			b.WriteString(n)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

func bullet(c Commit) string {
	subject := c.Subject
	if c.Type == "revert" {
		subject = "revert " + c.RevertsHeader
	}
	return "* " + scopePrefix(c) + subject + " (" + shortHash(c.Hash) + ")"
}

func noteBullet(c Commit, note string) string {
	note = strings.ReplaceAll(note, "\n", "\n  ")
	return "* " + scopePrefix(c) + note
}

func scopePrefix(c Commit) string {
	if c.Scope == "" {
		return ""
	}
	return "**" + c.Scope + ":** "
}

func shortHash(h string) string {
	if len(h) > hashLen {
		return h[:hashLen]
	}
	return h
}

// hasBullets reports whether markdown contains at least one list item.
func hasBullets(markdown string) bool {
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "* ") {
			return true
		}
	}
	return false
}
