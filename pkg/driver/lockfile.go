package driver

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LockfileName sits next to bc.yml.
const LockfileName = "bc.lock"

// Lockfile models the bc.lock contents: the commit every git library was
// resolved to when it was installed.
type Lockfile struct {
	Path      string
	Generated string
	Tool      string
	Libraries []*LockedLibrary
}

// LockedLibrary captures a single installed git library.
type LockedLibrary struct {
	Name     string
	Source   string
	Revision string
	Checksum string
	Files    []string
}

// NewLockfile constructs an empty lockfile stamped with tool.
func NewLockfile(tool string) *Lockfile {
	return &Lockfile{
		Generated: time.Now().UTC().Format(time.RFC3339),
		Tool:      strings.TrimSpace(tool),
		Libraries: []*LockedLibrary{},
	}
}

// LockfilePath returns where the lockfile for cfg lives.
func LockfilePath(cfg *Config) string {
	return filepath.Join(cfg.Dir(), LockfileName)
}

// LoadLockfile parses bc.lock from disk. A missing file surfaces as an
// error matching os.ErrNotExist.
func LoadLockfile(path string) (*Lockfile, error) {
	if path == "" {
		return nil, fmt.Errorf("lockfile: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var raw lockfileDisk
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", abs, err)
	}

	lock := raw.toLockfile()
	lock.Path = abs
	return lock, nil
}

// WriteLockfile serialises the lockfile back to disk.
func WriteLockfile(lock *Lockfile, path string) error {
	if lock == nil {
		return fmt.Errorf("lockfile: nil lockfile")
	}
	if path == "" {
		if lock.Path == "" {
			return fmt.Errorf("lockfile: missing path")
		}
		path = lock.Path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	if lock.Generated == "" {
		lock.Generated = time.Now().UTC().Format(time.RFC3339)
	}
	lock.Path = abs
	lock.normalize()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(lock.toDisk()); err != nil {
		return fmt.Errorf("lockfile: marshal %s: %w", abs, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("lockfile: encoder close: %w", err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", abs, err)
	}
	return nil
}

// Find returns the locked entry for name, or nil.
func (l *Lockfile) Find(name string) *LockedLibrary {
	if l == nil {
		return nil
	}
	name = sanitizeSegment(name)
	for _, lib := range l.Libraries {
		if lib != nil && lib.Name == name {
			return lib
		}
	}
	return nil
}

// Upsert records lib, replacing any entry with the same name. It reports
// whether the lockfile changed.
func (l *Lockfile) Upsert(lib *LockedLibrary) bool {
	if lib == nil {
		return false
	}
	if existing := l.Find(lib.Name); existing != nil {
		if existing.equal(lib) {
			return false
		}
		*existing = *lib
		return true
	}
	l.Libraries = append(l.Libraries, lib)
	l.normalize()
	return true
}

// Prune drops entries whose names are not in keep and reports whether any
// were removed.
func (l *Lockfile) Prune(keep []string) bool {
	wanted := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		wanted[sanitizeSegment(name)] = struct{}{}
	}
	kept := l.Libraries[:0]
	for _, lib := range l.Libraries {
		if _, ok := wanted[lib.Name]; ok {
			kept = append(kept, lib)
		}
	}
	changed := len(kept) != len(l.Libraries)
	l.Libraries = kept
	return changed
}

func (lib *LockedLibrary) equal(other *LockedLibrary) bool {
	if lib.Name != other.Name || lib.Source != other.Source ||
		lib.Revision != other.Revision || lib.Checksum != other.Checksum ||
		len(lib.Files) != len(other.Files) {
		return false
	}
	for i := range lib.Files {
		if lib.Files[i] != other.Files[i] {
			return false
		}
	}
	return true
}

func (l *Lockfile) normalize() {
	if l == nil {
		return
	}
	l.Tool = strings.TrimSpace(l.Tool)
	for _, lib := range l.Libraries {
		if lib == nil {
			continue
		}
		lib.Name = sanitizeSegment(lib.Name)
		lib.Source = strings.TrimSpace(lib.Source)
		lib.Revision = strings.TrimSpace(lib.Revision)
		lib.Checksum = strings.TrimSpace(lib.Checksum)
	}
	sort.SliceStable(l.Libraries, func(i, j int) bool {
		return l.Libraries[i].Name < l.Libraries[j].Name
	})
}

func (l *Lockfile) toDisk() lockfileDisk {
	libs := make([]lockfileLibrary, 0, len(l.Libraries))
	for _, lib := range l.Libraries {
		if lib == nil {
			continue
		}
		libs = append(libs, lockfileLibrary{
			Name:     lib.Name,
			Source:   lib.Source,
			Revision: lib.Revision,
			Checksum: lib.Checksum,
			Files:    lib.Files,
		})
	}
	return lockfileDisk{
		Generated: l.Generated,
		Tool:      l.Tool,
		Libraries: libs,
	}
}

type lockfileDisk struct {
	Generated string            `yaml:"generated"`
	Tool      string            `yaml:"tool"`
	Libraries []lockfileLibrary `yaml:"libraries"`
}

type lockfileLibrary struct {
	Name     string   `yaml:"name"`
	Source   string   `yaml:"source"`
	Revision string   `yaml:"revision"`
	Checksum string   `yaml:"checksum"`
	Files    []string `yaml:"files"`
}

func (d lockfileDisk) toLockfile() *Lockfile {
	lock := &Lockfile{
		Generated: strings.TrimSpace(d.Generated),
		Tool:      strings.TrimSpace(d.Tool),
		Libraries: make([]*LockedLibrary, 0, len(d.Libraries)),
	}
	for _, lib := range d.Libraries {
		lock.Libraries = append(lock.Libraries, &LockedLibrary{
			Name:     lib.Name,
			Source:   lib.Source,
			Revision: lib.Revision,
			Checksum: lib.Checksum,
			Files:    append([]string(nil), lib.Files...),
		})
	}
	lock.normalize()
	return lock
}

// FilesChecksum hashes the library files a checkout provides, in the order
// bc.yml lists them.
func FilesChecksum(dir string, files []string) (string, error) {
	h := sha256.New()
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil {
			return "", err
		}
		h.Write([]byte(name))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
