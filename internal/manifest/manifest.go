// Package manifest reads and edits package.json documents without disturbing
// their key order or formatting beyond the canonical two-space layout.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Dependency sections that may reference a workspace package.
const (
	Dependencies    = "dependencies"
	DevDependencies = "devDependencies"
)

// Sections lists the dependency sections rewritten on release, in order.
func Sections() []string {
	return []string{Dependencies, DevDependencies}
}

// ErrInvalidJSON indicates a manifest that is not a JSON object.
var ErrInvalidJSON = errors.New("manifest is not a valid JSON object")

// Document is a parsed manifest. Edits are applied to the raw bytes so that
// unknown fields and key order survive a read/write cycle.
type Document struct {
	raw []byte
}

// Parse validates data and wraps it in a Document.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, ErrInvalidJSON
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	return &Document{raw: raw}, nil
}

// Name returns the package name, or "" when absent or not a string.
func (d *Document) Name() string {
	return d.str("name")
}

// Version returns the package version, or "" when absent or not a string.
func (d *Document) Version() string {
	return d.str("version")
}

// Dependency returns the constraint declared for name in section.
func (d *Document) Dependency(section, name string) (string, bool) {
	r := gjson.GetBytes(d.raw, escape(section)+"."+escape(name))
	if !r.Exists() || r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

// SetVersion replaces the version field.
func (d *Document) SetVersion(version string) error {
	return d.set("version", version)
}

// SetDependency replaces the constraint for name in section.
func (d *Document) SetDependency(section, name, constraint string) error {
	return d.set(escape(section)+"."+escape(name), constraint)
}

// Bytes returns the document in its canonical form: two-space indentation,
// original key order, and a trailing newline.
func (d *Document) Bytes() []byte {
	out := pretty.PrettyOptions(d.raw, &pretty.Options{Indent: "  "})
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out
}

func (d *Document) str(path string) string {
	r := gjson.GetBytes(d.raw, path)
	if r.Type != gjson.String {
		return ""
	}
	return r.String()
}

func (d *Document) set(path, value string) error {
	out, err := sjson.SetBytes(d.raw, path, value)
	if err != nil {
		return fmt.Errorf("manifest: set %s: %w", path, err)
	}
	d.raw = out
	return nil
}

// Load reads and parses the manifest at path.
func Load(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return doc, nil
}

// Save writes doc to path in canonical form, keeping the file's permissions
// when it already exists.
func Save(fs afero.Fs, path string, doc *Document) error {
	mode := os.FileMode(0o644)
	if info, err := fs.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := afero.WriteFile(fs, path, doc.Bytes(), mode); err != nil {
		return fmt.Errorf("manifest: write %s: %w", path, err)
	}
	return nil
}

// escape quotes the characters gjson and sjson treat as path syntax so that
// scoped package names like "@scope/pkg" address a single key.
func escape(key string) string {
	var b strings.Builder
	for _, c := range key {
		if !isPlainKeyChar(c) {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func isPlainKeyChar(c rune) bool {
	return c > '~' || c == '_' || c == '-' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
