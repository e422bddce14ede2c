// Package telemetry provides a JSONL event stream recording the state
// transitions of a release run. Every state entered, rollback, and final
// outcome is written as one JSON object per line under the repository's git
// directory, so an interrupted or failed release can be audited afterwards.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Event kinds identify the type of telemetry event.
const (
	KindRunStart = "run_start"
	KindState    = "state"
	KindRollback = "rollback"
	KindRunDone  = "run_done"
)

// DirName is the directory under the git dir holding release-me run files.
const DirName = "release-me"

// FileName is the name of the JSONL event log inside DirName.
const FileName = "events.jsonl"

// Event represents a single telemetry record. Each event carries a timestamp,
// a kind tag, the optional workflow state and version, and arbitrary
// structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	State     string    `json:"state,omitempty"`
	Version   string    `json:"version,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Path returns the event log location for the repository whose git
// directory is gitDir.
func Path(gitDir string) string {
	return filepath.Join(gitDir, DirName, FileName)
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file afero.File
	enc  *json.Encoder
	mu   sync.Mutex
	now  func() time.Time
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path on fs. Missing parent directories are created, and an existing file is
// appended to.
func NewEmitter(fs afero.Fs, path string) (*Emitter, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: create dir for %s: %w", path, err)
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

// Emit writes a single event to the JSONL file, stamping it with the current
// time when Timestamp is zero. Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
