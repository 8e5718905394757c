package driver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLockfileWriteAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockfileName)
	lock := NewLockfile("bc-cli test")
	lock.Upsert(&LockedLibrary{Name: "zeta", Source: "git+https://example.com/z.git@abc", Revision: "abc", Checksum: "c1", Files: []string{"z.bc"}})
	lock.Upsert(&LockedLibrary{Name: "alpha-lib", Source: "git+https://example.com/a.git@def", Revision: "v1@def", Checksum: "c2", Files: []string{"a.bc", "b.bc"}})

	if err := WriteLockfile(lock, path); err != nil {
		t.Fatalf("WriteLockfile: %v", err)
	}
	loaded, err := LoadLockfile(path)
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if loaded.Tool != "bc-cli test" || loaded.Generated == "" {
		t.Fatalf("metadata not preserved: %+v", loaded)
	}
	if len(loaded.Libraries) != 2 || loaded.Libraries[0].Name != "alpha_lib" || loaded.Libraries[1].Name != "zeta" {
		t.Fatalf("libraries should be sorted and sanitized, got %+v", loaded.Libraries)
	}
	alpha := loaded.Find("alpha-lib")
	if alpha == nil || alpha.Revision != "v1@def" || len(alpha.Files) != 2 {
		t.Fatalf("Find returned %+v", alpha)
	}
}

func TestLockfileUpsertReportsChanges(t *testing.T) {
	lock := NewLockfile("t")
	entry := &LockedLibrary{Name: "stats", Revision: "abc", Files: []string{"s.bc"}}
	if !lock.Upsert(entry) {
		t.Fatalf("first insert must change the lockfile")
	}
	same := *entry
	if lock.Upsert(&same) {
		t.Fatalf("identical entry must not change the lockfile")
	}
	if !lock.Upsert(&LockedLibrary{Name: "stats", Revision: "def", Files: []string{"s.bc"}}) {
		t.Fatalf("new revision must change the lockfile")
	}
	if got := lock.Find("stats").Revision; got != "def" {
		t.Fatalf("Revision = %q, want def", got)
	}
	if len(lock.Libraries) != 1 {
		t.Fatalf("expected a single entry, got %d", len(lock.Libraries))
	}
}

func TestLockfilePrune(t *testing.T) {
	lock := NewLockfile("t")
	lock.Upsert(&LockedLibrary{Name: "keep"})
	lock.Upsert(&LockedLibrary{Name: "drop"})
	if !lock.Prune([]string{"keep"}) {
		t.Fatalf("expected Prune to report a change")
	}
	if lock.Find("drop") != nil || lock.Find("keep") == nil {
		t.Fatalf("unexpected libraries after prune: %+v", lock.Libraries)
	}
	if lock.Prune([]string{"keep"}) {
		t.Fatalf("second Prune must be a no-op")
	}
}

func TestLoadLockfileMissing(t *testing.T) {
	_, err := LoadLockfile(filepath.Join(t.TempDir(), LockfileName))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadLockfileRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockfileName)
	if err := os.WriteFile(path, []byte("root: x\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadLockfile(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestFilesChecksumTracksContents(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.bc"), "a = 1")
	first, err := FilesChecksum(dir, []string{"a.bc"})
	if err != nil {
		t.Fatalf("FilesChecksum: %v", err)
	}
	writeFile(t, filepath.Join(dir, "a.bc"), "a = 2")
	second, err := FilesChecksum(dir, []string{"a.bc"})
	if err != nil {
		t.Fatalf("FilesChecksum: %v", err)
	}
	if first == second {
		t.Fatalf("checksum should change with file contents")
	}
	if _, err := FilesChecksum(dir, []string{"missing.bc"}); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
