package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bc-cli/pkg/interpreter"
	"bc-cli/pkg/parser"
	"bc-cli/pkg/runtime"
)

func newInterp() (*interpreter.Interpreter, *bytes.Buffer) {
	var out bytes.Buffer
	return interpreter.New(runtime.NewEnvironment(runtime.DefaultConfig()), interpreter.Options{Output: &out}), &out
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadSourceRunsProgram(t *testing.T) {
	interp, out := newInterp()
	if err := LoadSource(context.Background(), interp, "<expr>", "x = 2\nx * 21"); err != nil {
		t.Fatalf("LoadSource: %v", err)
	}
	if out.String() != "42\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestLoadSourceErrorsCarryPath(t *testing.T) {
	interp, out := newInterp()
	err := LoadSource(context.Background(), interp, "calc.bc", "print 1\nprint z")
	if !errors.Is(err, interpreter.ErrUndefinedVariable) {
		t.Fatalf("expected ErrUndefinedVariable, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "calc.bc:2:7: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if out.String() != "1\n" {
		t.Fatalf("statements before the error should run, got %q", out.String())
	}

	interp, out = newInterp()
	err = LoadSource(context.Background(), interp, "bad.bc", "print 1\n1 +* 2")
	if !errors.Is(err, parser.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should run when parsing fails, got %q", out.String())
	}
}

func TestLoadFileMissing(t *testing.T) {
	interp, _ := newInterp()
	err := LoadFile(context.Background(), interp, filepath.Join(t.TempDir(), "nope.bc"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadLibrariesFromPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "sq.bc"), "define sq(n) { return n * n }\n")
	writeFile(t, filepath.Join(dir, "more", "b.bc"), "define cube(n) { return n * sq(n) }\n")
	writeFile(t, filepath.Join(dir, "more", "a.bc"), "offset = 100\n")
	writeFile(t, filepath.Join(dir, ConfigFileName), `
libraries:
  squares:
    path: lib/sq.bc
  more:
    path: more
`)
	cfg, err := LoadConfig(filepath.Join(dir, ConfigFileName))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	interp, out := newInterp()
	files, err := LoadLibraries(context.Background(), interp, cfg, nil, "")
	if err != nil {
		t.Fatalf("LoadLibraries: %v", err)
	}
	if len(files) != 3 || filepath.Base(files[1]) != "a.bc" {
		t.Fatalf("unexpected load order %v", files)
	}
	if err := LoadSource(context.Background(), interp, "<expr>", "cube(3) + offset"); err != nil {
		t.Fatalf("LoadSource: %v", err)
	}
	if out.String() != "127\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestResolveGitLibraryNeedsLock(t *testing.T) {
	cfg := &Config{
		Path:         filepath.Join(t.TempDir(), ConfigFileName),
		Libraries:    map[string]*LibrarySpec{"fin": {Name: "fin", Git: "https://example.com/fin.git", Files: []string{"fin.bc"}}},
		LibraryOrder: []string{"fin"},
	}
	home := t.TempDir()
	if _, err := ResolveLibraryFiles(cfg, nil, home); !errors.Is(err, ErrLibraryNotInstalled) {
		t.Fatalf("expected ErrLibraryNotInstalled without a lockfile, got %v", err)
	}

	lock := NewLockfile("t")
	lock.Upsert(&LockedLibrary{Name: "fin", Revision: "v1@abc", Files: []string{"fin.bc"}})
	if _, err := ResolveLibraryFiles(cfg, lock, home); !errors.Is(err, ErrLibraryNotInstalled) {
		t.Fatalf("expected ErrLibraryNotInstalled without a checkout, got %v", err)
	}

	checkout := LibraryCacheDir(home, "fin", "v1@abc")
	writeFile(t, filepath.Join(checkout, "fin.bc"), "define fee() { return 3 }\n")
	files, err := ResolveLibraryFiles(cfg, lock, home)
	if err != nil {
		t.Fatalf("ResolveLibraryFiles: %v", err)
	}
	if len(files) != 1 || files[0] != filepath.Join(checkout, "fin.bc") {
		t.Fatalf("unexpected files %v", files)
	}
	if filepath.Base(checkout) != "v1_abc" {
		t.Fatalf("revision should be sanitized into a path segment, got %q", checkout)
	}
}

func TestResolveGitLibraryVerifiesChecksum(t *testing.T) {
	cfg := &Config{
		Path:         filepath.Join(t.TempDir(), ConfigFileName),
		Libraries:    map[string]*LibrarySpec{"fin": {Name: "fin", Git: "https://example.com/fin.git", Files: []string{"fin.bc"}}},
		LibraryOrder: []string{"fin"},
	}
	home := t.TempDir()
	checkout := LibraryCacheDir(home, "fin", "abc")
	writeFile(t, filepath.Join(checkout, "fin.bc"), "define fee() { return 3 }\n")
	sum, err := FilesChecksum(checkout, []string{"fin.bc"})
	if err != nil {
		t.Fatalf("FilesChecksum: %v", err)
	}

	lock := NewLockfile("t")
	lock.Upsert(&LockedLibrary{Name: "fin", Revision: "abc", Checksum: sum, Files: []string{"fin.bc"}})
	if _, err := ResolveLibraryFiles(cfg, lock, home); err != nil {
		t.Fatalf("matching checksum should load: %v", err)
	}

	writeFile(t, filepath.Join(checkout, "fin.bc"), "define fee() { return 300 }\n")
	_, err = ResolveLibraryFiles(cfg, lock, home)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch after the checkout changed, got %v", err)
	}
	if !strings.Contains(err.Error(), "libs install") {
		t.Fatalf("mismatch should hint at libs install, got %v", err)
	}
}
