package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/papapumpkin/releaseme/internal/config"
	"github.com/papapumpkin/releaseme/internal/shell"
	"github.com/papapumpkin/releaseme/internal/shell/shelltest"
	"github.com/papapumpkin/releaseme/internal/telemetry"
	"github.com/papapumpkin/releaseme/internal/ui"
)

const (
	repoRoot   = "/repo"
	gitDir     = "/repo/.git"
	headHash   = "0123456789abcdef0123456789abcdef01234567"
	otherHash  = "fedcba9876543210fedcba9876543210fedcba98"
	toolDevDep = `"devDependencies": {"@brillout/release-me": "^0.4.0"}`
)

// world is a scripted repository: files live in an in-memory filesystem and
// git, pnpm, and npm are answered by a handler that mutates it the way the
// real tools would.
type world struct {
	t      *testing.T
	fs     afero.Fs
	fake   *shelltest.Fake
	stderr bytes.Buffer

	// base is the content of every tracked file at HEAD, keyed by absolute path.
	base map[string]string

	mu         sync.Mutex
	branch     string
	remoteHead string
	dirty      bool
	lastTag    string
	log        []string // "hash\x1fmessage" records, newest first
	tags       map[string]bool
	committed  map[string]bool // files added to the tree by a release commit
	failOn     string          // command line prefix that exits non-zero
}

func newWorld(t *testing.T, files map[string]string) *world {
	t.Helper()
	w := &world{
		t:          t,
		fs:         afero.NewMemMapFs(),
		base:       files,
		branch:     "main",
		remoteHead: headHash,
		tags:       map[string]bool{},
		committed:  map[string]bool{},
	}
	if err := w.fs.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatal(err)
	}
	w.restore()
	w.fake = &shelltest.Fake{Handler: w.handle}
	return w
}

// singlePackage is a one-package repository releasing my-pkg@1.2.3.
func singlePackage() map[string]string {
	return map[string]string{
		"/repo/package.json": `{
  "name": "my-pkg",
  "version": "1.2.3",
  ` + toolDevDep + `
}
`,
		"/repo/src/projectInfo.ts": "export const projectInfo = {\n  const PROJECT_VERSION = '1.2.3'\n}\n",
		"/repo/CHANGELOG.md":       "## 1.2.2 (2026-01-01)\n\n* old entry\n",
	}
}

func (w *world) commit(hash, message string) {
	w.log = append(w.log, hash+"\x1f"+message)
}

func (w *world) restore() {
	for path, content := range w.base {
		if err := w.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			w.t.Fatal(err)
		}
		if err := afero.WriteFile(w.fs, path, []byte(content), 0o644); err != nil {
			w.t.Fatal(err)
		}
	}
}

func (w *world) handle(c shell.Command) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	line := c.String()
	if w.failOn != "" && strings.HasPrefix(line, w.failOn) {
		return "", shelltest.Fail(c, "simulated failure")
	}
	if c.Name != "git" {
		return "", nil
	}

	switch {
	case line == "git rev-parse --show-toplevel":
		return repoRoot, nil
	case line == "git rev-parse --absolute-git-dir":
		return gitDir, nil
	case line == "git rev-parse --abbrev-ref HEAD":
		return w.branch, nil
	case line == "git rev-parse --verify --quiet HEAD^{commit}":
		return headHash, nil
	case line == "git rev-parse --verify --quiet origin/main^{commit}":
		return w.remoteHead, nil
	case line == "git status --porcelain":
		if w.dirty {
			return " M src/index.ts", nil
		}
		return "", nil
	case line == "git status":
		return "On branch " + w.branch, nil
	case line == "git ls-files -z":
		return w.lsFiles(c.Dir), nil
	case strings.HasPrefix(line, "git describe"):
		if w.lastTag == "" {
			return "", shelltest.Fail(c, "fatal: No names found, cannot describe anything.")
		}
		return w.lastTag, nil
	case strings.HasPrefix(line, "git log"):
		if len(w.log) == 0 {
			return "", nil
		}
		return strings.Join(w.log, "\x1e") + "\x1e", nil
	case strings.HasPrefix(line, "git commit"):
		w.snapshotCommitted()
		return "", nil
	case strings.HasPrefix(line, "git tag -d "):
		delete(w.tags, c.Args[len(c.Args)-1])
		return "", nil
	case strings.HasPrefix(line, "git tag "):
		w.tags[c.Args[len(c.Args)-1]] = true
		return "", nil
	case strings.HasPrefix(line, "git reset --hard"):
		for path := range w.committed {
			if _, ok := w.base[path]; !ok {
				_ = w.fs.Remove(path)
			}
		}
		w.restore()
		return "", nil
	}
	return "", nil
}

func (w *world) lsFiles(dir string) string {
	var rels []string
	for path := range w.base {
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	sort.Strings(rels)
	return strings.Join(rels, "\x00") + "\x00"
}

// snapshotCommitted records every file of the work tree as committed.
func (w *world) snapshotCommitted() {
	for path := range w.snapshot() {
		w.committed[path] = true
	}
}

// snapshot returns the work tree outside the git directory.
func (w *world) snapshot() map[string]string {
	out := map[string]string{}
	err := afero.Walk(w.fs, repoRoot, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path == gitDir {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := afero.ReadFile(w.fs, path)
		if err != nil {
			return err
		}
		out[path] = string(data)
		return nil
	})
	if err != nil {
		w.t.Fatal(err)
	}
	return out
}

func (w *world) read(path string) string {
	w.t.Helper()
	data, err := afero.ReadFile(w.fs, path)
	if err != nil {
		w.t.Fatal(err)
	}
	return string(data)
}

// ranBefore reports whether a command starting with first ran before one
// starting with second.
func (w *world) ranBefore(first, second string) bool {
	fi, si := -1, -1
	for i, l := range w.fake.Lines() {
		if fi < 0 && strings.HasPrefix(l, first) {
			fi = i
		}
		if si < 0 && strings.HasPrefix(l, second) {
			si = i
		}
	}
	return fi >= 0 && si >= 0 && fi < si
}

// events decodes the run event log written under the git directory.
func (w *world) events() []telemetry.Event {
	w.t.Helper()
	var out []telemetry.Event
	for _, line := range strings.Split(strings.TrimSpace(w.read(telemetry.Path(gitDir))), "\n") {
		var evt telemetry.Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			w.t.Fatalf("event log line %q: %v", line, err)
		}
		out = append(out, evt)
	}
	return out
}

func testConfig() config.Config {
	return config.Config{
		MainBranch:        "main",
		Remote:            "origin",
		ToolPackage:       "@brillout/release-me",
		ManifestFile:      "package.json",
		ChangelogFile:     "CHANGELOG.md",
		VersionFile:       "projectInfo.ts",
		VersionSnippet:    "const PROJECT_VERSION = '%s'",
		BoilerplatePrefix: "create-",
		PackageManager:    "pnpm",
		RegistryClient:    "npm",
		BuildScript:       "build",
		InstallTimeout:    time.Minute,
		CommitDistTag:     "commit",
		LogLevel:          "none",
	}
}

// confirmFunc adapts a function to Confirmer.
type confirmFunc func(ctx context.Context) error

func (f confirmFunc) Confirm(ctx context.Context, _ string) error { return f(ctx) }

func confirmAll() Confirmer {
	return confirmFunc(func(context.Context) error { return nil })
}

func (w *world) orchestrator(dir string) *Orchestrator {
	return &Orchestrator{
		Fs:                w.fs,
		Runner:            w.fake,
		Dir:               dir,
		Config:            testConfig(),
		Reporter:          &ui.Printer{Out: &w.stderr},
		Confirmer:         confirmAll(),
		Out:               &w.stderr,
		PersistCheckpoint: true,
		RecordEvents:      true,
		Now:               func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) },
	}
}
