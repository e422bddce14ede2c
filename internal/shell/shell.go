// Package shell runs external processes (git, the package manager, the
// registry client) on behalf of the release workflow. Callers describe an
// invocation as a Command value and hand it to a transport; Exec is the
// os/exec-backed transport and shelltest.Fake is the scripted one used in tests.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrTimeout indicates a command exceeded its Timeout.
var ErrTimeout = errors.New("command timed out")

// waitDelay bounds how long Run waits for grandchildren holding the output
// pipes after the child itself was killed.
const waitDelay = 2 * time.Second

// Command describes a single external process invocation.
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string      // extra KEY=VALUE pairs appended to the inherited environment
	Unset   []string      // variable names stripped from the inherited environment
	Timeout time.Duration // zero means no bound
	Stream  bool          // mirror output to the transport's writer while capturing it
}

// String returns the command line as a human would type it.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// ExitError reports a command that could not be started or exited non-zero.
type ExitError struct {
	Command string
	Dir     string
	Output  string // captured stderr, falling back to stdout
	Err     error
}

// Error renders the failed command with its captured output.
func (e *ExitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command `%s` (%s) failed: %v", e.Command, e.Dir, e.Err)
	if e.Output != "" {
		b.WriteString("\n")
		b.WriteString(e.Output)
	}
	return b.String()
}

// Unwrap returns the underlying process or context error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// OutputContains reports whether err is an ExitError whose captured output
// or message contains s.
func OutputContains(err error, s string) bool {
	var ee *ExitError
	if !errors.As(err, &ee) {
		return false
	}
	return strings.Contains(ee.Output, s) || strings.Contains(ee.Err.Error(), s)
}

// Exec runs commands as child processes.
type Exec struct {
	Logger *zap.Logger
	Out    io.Writer // receives streamed output; defaults to os.Stderr
}

// Run executes c and returns its trimmed stdout. The child is killed when ctx
// is canceled or c.Timeout elapses.
func (e *Exec) Run(ctx context.Context, c Command) (string, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = Environ(os.Environ(), c.Unset, c.Env)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if c.Stream {
		out := e.Out
		if out == nil {
			out = os.Stderr
		}
		cmd.Stdout = io.MultiWriter(&stdout, out)
		cmd.Stderr = io.MultiWriter(&stderr, out)
	}

	start := time.Now()
	err := cmd.Run()
	logger.Debug("command finished",
		zap.String("cmd", c.String()),
		zap.String("dir", c.Dir),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
	if err == nil {
		return strings.TrimSpace(stdout.String()), nil
	}

	switch {
	case ctx.Err() != nil:
		err = ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("%w after %s", ErrTimeout, c.Timeout)
	}

	output := strings.TrimSpace(stderr.String())
	if output == "" {
		output = strings.TrimSpace(stdout.String())
	}
	return "", &ExitError{Command: c.String(), Dir: c.Dir, Output: output, Err: err}
}

// Environ builds a child environment from base, dropping every variable named
// in unset (case-insensitively) and appending extra.
func Environ(base, unset, extra []string) []string {
	if len(unset) == 0 && len(extra) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if containsFold(unset, name) {
			continue
		}
		env = append(env, kv)
	}
	return append(env, extra...)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
