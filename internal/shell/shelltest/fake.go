// Package shelltest provides a scripted command transport for tests that
// exercise code built on shell.Command without spawning processes.
package shelltest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/papapumpkin/releaseme/internal/shell"
)

// Fake records every command it receives and answers through Handler.
// A nil Handler answers every command with empty output.
type Fake struct {
	Handler func(c shell.Command) (string, error)

	mu    sync.Mutex
	calls []shell.Command
}

// Run records c and delegates to Handler. A canceled ctx fails the call
// the way a killed child process would.
func (f *Fake) Run(ctx context.Context, c shell.Command) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	h := f.Handler
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", &shell.ExitError{Command: c.String(), Dir: c.Dir, Err: err}
	}
	if h == nil {
		return "", nil
	}
	return h(c)
}

// Calls returns a copy of the recorded commands.
func (f *Fake) Calls() []shell.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]shell.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// Lines returns the recorded commands rendered with Command.String.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Ran reports whether any recorded command line starts with prefix.
func (f *Fake) Ran(prefix string) bool {
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

// Fail builds the error a non-zero exit of c with the given output produces.
func Fail(c shell.Command, output string) error {
	return &shell.ExitError{
		Command: c.String(),
		Dir:     c.Dir,
		Output:  output,
		Err:     errors.New("exit status 1"),
	}
}
