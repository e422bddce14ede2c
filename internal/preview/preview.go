// Package preview shows the pending release changes and gates the
// irreversible steps behind interactive confirmation.
package preview

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/afero"
)

// ErrNoInput indicates input ended before the user confirmed. A run without
// a terminal on stdin must pass --yes to skip the prompt.
var ErrNoInput = errors.New("confirmation input ended (use --yes to skip the prompt)")

// newFile is the diff label used for files that did not exist before.
const newFile = "/dev/null"

// diffContext is the number of unchanged lines around each hunk.
const diffContext = 3

// StatusReader returns the human-readable working tree status.
type StatusReader interface {
	Status(ctx context.Context) (string, error)
}

// File is a file whose pending change is previewed.
type File struct {
	Path    string
	Before  string
	Existed bool
}

// Previewer prints the working tree status and the pending diffs.
type Previewer struct {
	Fs     afero.Fs
	Out    io.Writer
	Status StatusReader
}

// Show prints the status followed by a unified diff for each file.
func (p *Previewer) Show(ctx context.Context, files ...File) error {
	status, err := p.Status.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.Out, status)
	for _, f := range files {
		d, err := p.Diff(f)
		if err != nil {
			return err
		}
		if d != "" {
			fmt.Fprintln(p.Out)
			fmt.Fprint(p.Out, d)
		}
	}
	return nil
}

// Diff returns the unified diff of f between its prior and current content.
// A file that did not exist before is diffed against nothing.
func (p *Previewer) Diff(f File) (string, error) {
	after, err := afero.ReadFile(p.Fs, f.Path)
	if err != nil {
		return "", fmt.Errorf("preview: read %s: %w", f.Path, err)
	}
	from := f.Path
	if !f.Existed {
		from = newFile
	}
	d, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(f.Before),
		B:        difflib.SplitLines(string(after)),
		FromFile: from,
		ToFile:   f.Path,
		Context:  diffContext,
	})
	if err != nil {
		return "", fmt.Errorf("preview: diff %s: %w", f.Path, err)
	}
	return d, nil
}

// Prompter asks for a single line of confirmation.
type Prompter struct {
	In  io.Reader
	Out io.Writer
}

// Confirm prints msg and blocks until a line is read. Any line confirms;
// end of input returns ErrNoInput. Cancellation of ctx returns ctx.Err()
// without waiting for input.
func (p *Prompter) Confirm(ctx context.Context, msg string) error {
	in := p.In
	if in == nil {
		in = os.Stdin
	}
	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprint(out, msg)

	// Read input in a goroutine so we can respect context cancellation.
	ch := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		if scanner.Scan() {
			ch <- nil
			return
		}
		if err := scanner.Err(); err != nil {
			ch <- fmt.Errorf("preview: read confirmation: %w", err)
			return
		}
		ch <- ErrNoInput
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(out)
		return ctx.Err()
	case err := <-ch:
		return err
	}
}
