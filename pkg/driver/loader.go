package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bc-cli/pkg/interpreter"
	"bc-cli/pkg/parser"
)

// ErrLibraryNotInstalled is returned when a git library has no bc.lock entry
// or its checkout is missing from the cache.
var ErrLibraryNotInstalled = errors.New("library not installed")

// ErrChecksumMismatch is returned when a cached git checkout no longer
// matches the checksum bc.lock recorded for it.
var ErrChecksumMismatch = errors.New("library checksum mismatch")

// SourceError prefixes a lex, parse or evaluation error with the file it
// came from.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	if hasPosition(e.Err) {
		return fmt.Sprintf("%s:%v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func hasPosition(err error) bool {
	var (
		lexErr   *parser.LexError
		parseErr *parser.ParseError
		incErr   *parser.IncompleteInputError
		evalErr  *interpreter.EvaluationError
	)
	switch {
	case errors.As(err, &lexErr), errors.As(err, &parseErr), errors.As(err, &incErr):
		return true
	case errors.As(err, &evalErr):
		return evalErr.Pos.IsValid()
	default:
		return false
	}
}

// LoadSource parses src as a whole program and runs it. Nothing runs when
// the source does not parse.
func LoadSource(ctx context.Context, interp *interpreter.Interpreter, name, src string) error {
	program, err := parser.ParseProgram(src)
	if err != nil {
		return &SourceError{Path: name, Err: err}
	}
	if err := interp.Run(ctx, program); err != nil {
		return &SourceError{Path: name, Err: err}
	}
	return nil
}

// LoadFile reads path and runs it with LoadSource.
func LoadFile(ctx context.Context, interp *interpreter.Interpreter, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return LoadSource(ctx, interp, path, string(data))
}

// LibraryCacheDir is where the checkout of a git library at revision lives
// under the cache root.
func LibraryCacheDir(home, name, revision string) string {
	return filepath.Join(home, "libs", sanitizePathSegment(name), sanitizePathSegment(revision))
}

// ResolveLibraryFiles lists the source files of every configured library in
// load order. Path libraries resolve relative to bc.yml; git libraries need
// a bc.lock entry and a checkout under home.
func ResolveLibraryFiles(cfg *Config, lock *Lockfile, home string) ([]string, error) {
	var files []string
	for _, lib := range cfg.OrderedLibraries() {
		var (
			resolved []string
			err      error
		)
		if lib.IsGit() {
			resolved, err = resolveGitLibrary(lib, lock, home)
		} else {
			resolved, err = resolvePathLibrary(cfg.Dir(), lib)
		}
		if err != nil {
			return nil, fmt.Errorf("library %q: %w", lib.Name, err)
		}
		files = append(files, resolved...)
	}
	return files, nil
}

func resolvePathLibrary(base string, lib *LibrarySpec) ([]string, error) {
	root := lib.Path
	if !filepath.IsAbs(root) {
		root = filepath.Join(base, root)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if len(lib.Files) > 0 {
			return nil, fmt.Errorf("files given but %s is not a directory", root)
		}
		return []string{root}, nil
	}
	if len(lib.Files) > 0 {
		return joinFiles(root, lib.Files)
	}
	matches, err := filepath.Glob(filepath.Join(root, "*.bc"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func resolveGitLibrary(lib *LibrarySpec, lock *Lockfile, home string) ([]string, error) {
	locked := lock.Find(lib.Name)
	if locked == nil {
		return nil, fmt.Errorf("%w: no bc.lock entry; run `bc-cli libs install`", ErrLibraryNotInstalled)
	}
	dir := LibraryCacheDir(home, lib.Name, locked.Revision)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s missing; run `bc-cli libs install`", ErrLibraryNotInstalled, dir)
		}
		return nil, err
	}
	files, err := joinFiles(dir, lib.Files)
	if err != nil {
		return nil, err
	}
	if locked.Checksum != "" {
		sum, err := FilesChecksum(dir, lib.Files)
		if err != nil {
			return nil, err
		}
		if sum != locked.Checksum {
			return nil, fmt.Errorf("%w: %s changed since install; run `bc-cli libs install`", ErrChecksumMismatch, dir)
		}
	}
	return files, nil
}

func joinFiles(root string, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, nil
}

// LoadLibraries runs every configured library file in order, so the
// functions and globals they define are in place before user input.
func LoadLibraries(ctx context.Context, interp *interpreter.Interpreter, cfg *Config, lock *Lockfile, home string) ([]string, error) {
	if cfg == nil || len(cfg.LibraryOrder) == 0 {
		return nil, nil
	}
	files, err := ResolveLibraryFiles(cfg, lock, home)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if err := LoadFile(ctx, interp, file); err != nil {
			return nil, err
		}
	}
	return files, nil
}

func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
