package rollback

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// FileName is the checkpoint file name inside the release-me run directory.
const FileName = "checkpoint.toml"

const checkpointVersion = 1

// Checkpoint is everything rollback needs to restore the repository.
type Checkpoint struct {
	Version        int       `toml:"version"`
	Package        string    `toml:"package,omitempty"`
	ReleaseVersion string    `toml:"release_version,omitempty"`
	BaseCommit     string    `toml:"base_commit"`
	Tag            string    `toml:"tag,omitempty"`
	CreatedFiles   []string  `toml:"created_files,omitempty"`
	ArmedAt        time.Time `toml:"armed_at"`
}

// Path returns the checkpoint location for the repository whose git
// directory is gitDir.
func Path(gitDir string) string {
	return filepath.Join(gitDir, "release-me", FileName)
}

// Load reads a persisted checkpoint. The boolean is false when no checkpoint
// file exists.
func Load(afs afero.Fs, path string) (Checkpoint, bool, error) {
	data, err := afero.ReadFile(afs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("reading checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := toml.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parsing checkpoint %s: %w", path, err)
	}
	if cp.BaseCommit == "" {
		return Checkpoint{}, false, fmt.Errorf("checkpoint %s has no base_commit", path)
	}
	return cp, true, nil
}

// save writes the checkpoint atomically (write temp + rename).
func save(afs afero.Fs, path string, cp Checkpoint) error {
	cp.Version = checkpointVersion
	data, err := toml.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}
	if err := afs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating checkpoint dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(afs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing temp checkpoint: %w", err)
	}
	if err := afs.Rename(tmp, path); err != nil {
		afs.Remove(tmp)
		return fmt.Errorf("renaming checkpoint: %w", err)
	}
	return nil
}

func remove(afs afero.Fs, path string) error {
	if err := afs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing checkpoint: %w", err)
	}
	return nil
}
