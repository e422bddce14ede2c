package changelog

import (
	"regexp"
	"strings"

	"github.com/papapumpkin/releaseme/internal/git"
)

var (
	headerRe = regexp.MustCompile(`^(\w+)(?:\(([^()]*)\))?(!)?: (.+)$`)
	revertRe = regexp.MustCompile(`^Revert "(.+)"\s*$`)
	// revertedHashRe matches the body line git writes into revert commits.
	revertedHashRe = regexp.MustCompile(`This reverts commit ([0-9a-fA-F]{7,40})`)
	noteRe         = regexp.MustCompile(`^BREAKING[ -]CHANGES?:\s*(.*)$`)
)

// Commit is a parsed conventional commit.
type Commit struct {
	Hash    string
	Header  string
	Type    string // empty when the header is not conventional
	Scope   string
	Subject string
	Notes   []string // BREAKING CHANGE notes

	// Set on revert commits.
	Reverts       string // hash of the reverted commit
	RevertsHeader string
}

// Parse splits a raw commit message into its conventional parts.
func Parse(c git.Commit) Commit {
	header, body, _ := strings.Cut(strings.ReplaceAll(c.Message, "\r\n", "\n"), "\n")
	header = strings.TrimSpace(header)
	out := Commit{Hash: c.Hash, Header: header}

	if m := revertRe.FindStringSubmatch(header); m != nil {
		out.Type = "revert"
		out.RevertsHeader = m[1]
		if h := revertedHashRe.FindStringSubmatch(body); h != nil {
			out.Reverts = h[1]
		}
		return out
	}

	if m := headerRe.FindStringSubmatch(header); m != nil {
		out.Type = strings.ToLower(m[1])
		out.Scope = m[2]
		out.Subject = strings.TrimSpace(m[4])
		if m[3] == "!" {
			out.Notes = append(out.Notes, out.Subject)
		}
	}
	if out.Type == "revert" {
		// "revert: <header>" shape written by hand.
		out.RevertsHeader = out.Subject
		if h := revertedHashRe.FindStringSubmatch(body); h != nil {
			out.Reverts = h[1]
		}
	}
	out.Notes = append(out.Notes, parseNotes(body)...)
	return out
}

// parseNotes collects BREAKING CHANGE paragraphs from a commit body.
func parseNotes(body string) []string {
	var notes []string
	var cur []string
	inNote := false
	flush := func() {
		if inNote && len(cur) > 0 {
			notes = append(notes, strings.TrimSpace(strings.Join(cur, "\n")))
		}
		cur, inNote = nil, false
	}
	for _, line := range strings.Split(body, "\n") {
		if m := noteRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			inNote = true
			if m[1] != "" {
				cur = append(cur, m[1])
			}
			continue
		}
		if !inNote {
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, strings.TrimSpace(line))
	}
	flush()
	return notes
}

// dropReverted removes revert commits together with the commits they revert
// when both fall inside commits. A revert whose target lies outside the range
// is kept so the reversal of released work stays visible.
func dropReverted(commits []Commit) []Commit {
	drop := make(map[int]bool)
	for i, c := range commits {
		if c.Type != "revert" {
			continue
		}
		for j, target := range commits {
			if j == i || drop[j] {
				continue
			}
			if matchesRevert(c, target) {
				drop[i], drop[j] = true, true
				break
			}
		}
	}
	out := make([]Commit, 0, len(commits))
	for i, c := range commits {
		if !drop[i] {
			out = append(out, c)
		}
	}
	return out
}

func matchesRevert(revert, target Commit) bool {
	if revert.Reverts != "" {
		return strings.HasPrefix(target.Hash, revert.Reverts)
	}
	return revert.RevertsHeader != "" && target.Header == revert.RevertsHeader
}

// foreignScope reports whether c is scoped to one of the other workspace
// packages, by full name or by name without its npm scope. A scope naming the
// current package is never foreign.
func foreignScope(c Commit, current string, others []string) bool {
	if c.Scope == "" || c.Scope == current || c.Scope == unscoped(current) {
		return false
	}
	for _, name := range others {
		if c.Scope == name || c.Scope == unscoped(name) {
			return true
		}
	}
	return false
}

func unscoped(name string) string {
	if strings.HasPrefix(name, "@") {
		if _, rest, ok := strings.Cut(name, "/"); ok {
			return rest
		}
	}
	return name
}
