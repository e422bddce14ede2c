package preview

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

type staticStatus string

func (s staticStatus) Status(context.Context) (string, error) { return string(s), nil }

func TestPreviewer_Show(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/r/CHANGELOG.md", []byte("## 1.0.1\n\n* fix (abc)\n"), 0o644)
	afero.WriteFile(fs, "/r/package.json", []byte("{\n  \"version\": \"1.0.1\"\n}\n"), 0o644)

	var out bytes.Buffer
	p := &Previewer{Fs: fs, Out: &out, Status: staticStatus("On branch main\nChanges not staged for commit:")}
	err := p.Show(context.Background(),
		File{Path: "/r/CHANGELOG.md"},
		File{Path: "/r/package.json", Before: "{\n  \"version\": \"1.0.0\"\n}\n", Existed: true},
	)
	if err != nil {
		t.Fatalf("Show: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"On branch main",
		"--- /dev/null",
		"+++ /r/CHANGELOG.md",
		"+* fix (abc)",
		"--- /r/package.json",
		"-  \"version\": \"1.0.0\"",
		"+  \"version\": \"1.0.1\"",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPreviewer_DiffUnchanged(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/f", []byte("same\n"), 0o644)
	d, err := (&Previewer{Fs: fs}).Diff(File{Path: "/f", Before: "same\n", Existed: true})
	if err != nil || d != "" {
		t.Errorf("Diff = %q, %v; want empty", d, err)
	}
}

func TestPrompter_Confirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want error
	}{
		{"enter confirms", "\n", nil},
		{"any text confirms", "yes please\n", nil},
		{"eof fails", "", ErrNoInput},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			p := &Prompter{In: strings.NewReader(tt.in), Out: &out}
			if err := p.Confirm(context.Background(), "continue? "); !errors.Is(err, tt.want) {
				t.Errorf("Confirm = %v, want %v", err, tt.want)
			}
			if !strings.Contains(out.String(), "continue? ") {
				t.Errorf("prompt not printed: %q", out.String())
			}
		})
	}
}

func TestPrompter_ConfirmCanceled(t *testing.T) {
	t.Parallel()
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p := &Prompter{In: r, Out: io.Discard}

	done := make(chan error, 1)
	go func() { done <- p.Confirm(ctx, "> ") }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Confirm = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Confirm did not return after cancellation")
	}
}
