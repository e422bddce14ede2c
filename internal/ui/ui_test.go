package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestPrinter_Lines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		print func(p *Printer)
		want  []string
	}{
		{
			name:  "banner",
			print: func(p *Printer) { p.Banner("vike", "0.4.1", "0.4.2") },
			want:  []string{"release-me", "vike", "0.4.1", "0.4.2"},
		},
		{
			name:  "step replaces underscores",
			print: func(p *Printer) { p.Step("mutate_manifest_version") },
			want:  []string{"mutate manifest version"},
		},
		{
			name:  "released",
			print: func(p *Printer) { p.Released("vike", "0.4.2", "v0.4.2") },
			want:  []string{"released vike@0.4.2", "tag v0.4.2"},
		},
		{
			name:  "commit release",
			print: func(p *Printer) { p.CommitReleased("vike", "0.4.1-commit-abcdef1") },
			want:  []string{"vike@0.4.1-commit-abcdef1", "exact version"},
		},
		{
			name:  "aborted",
			print: func(p *Printer) { p.Aborted("no relevant changes") },
			want:  []string{"release aborted", "no relevant changes"},
		},
		{
			name:  "rollback shortens hash",
			print: func(p *Printer) { p.RollbackDone("0123456789abcdef") },
			want:  []string{"rolled back to 0123456"},
		},
		{
			name:  "rollback failure names state",
			print: func(p *Printer) { p.RollbackFailed(errors.New("boom"), "0123456789", "v1.0.0") },
			want:  []string{"rollback failed", "boom", "base commit: 0123456789", "created tag: v1.0.0", "release-me recover"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tt.print(&Printer{Out: &buf})
			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestPrinter_Checks(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := &Printer{Out: &buf}

	if !p.Checks([]Check{{Name: "git", OK: true}}) {
		t.Error("all-passing checks reported failure")
	}
	if p.Checks([]Check{{Name: "git", OK: true}, {Name: "pnpm", Note: "not found on PATH"}}) {
		t.Error("failing check reported success")
	}
	if !strings.Contains(buf.String(), "not found on PATH") {
		t.Errorf("missing failure note:\n%s", buf.String())
	}
}

func TestPrinter_RollbackFailedWithoutTag(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	(&Printer{Out: &buf}).RollbackFailed(errors.New("x"), "abc", "")
	if strings.Contains(buf.String(), "created tag") {
		t.Errorf("unexpected tag line:\n%s", buf.String())
	}
}
