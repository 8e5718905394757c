package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"bc-cli/pkg/driver"
)

type gitFetcher struct {
	home string
}

func newGitFetcher(home string) *gitFetcher {
	if home == "" {
		return nil
	}
	return &gitFetcher{home: home}
}

// Fetch makes sure the checkout for lib exists under the cache and returns
// the lock entry describing it. A locked revision is reused when its
// checkout is still present.
func (g *gitFetcher) Fetch(lib *driver.LibrarySpec, locked *driver.LockedLibrary) (*driver.LockedLibrary, error) {
	if g == nil {
		return nil, errors.New("git fetcher unavailable")
	}
	url := strings.TrimSpace(lib.Git)
	if url == "" {
		return nil, fmt.Errorf("library %q: git URL required", lib.Name)
	}

	revision, commit := "", ""
	if locked != nil && locked.Source == gitSource(url, commitOf(locked.Revision)) && lockMatchesSpec(locked, lib) {
		if _, err := os.Stat(driver.LibraryCacheDir(g.home, lib.Name, locked.Revision)); err == nil {
			revision, commit = locked.Revision, commitOf(locked.Revision)
		}
	}
	if revision == "" {
		var err error
		revision, commit, err = ensureGitCheckout(g.home, lib, url)
		if err != nil {
			return nil, err
		}
	}

	dir := driver.LibraryCacheDir(g.home, lib.Name, revision)
	checksum, err := driver.FilesChecksum(dir, lib.Files)
	if err != nil {
		return nil, fmt.Errorf("library %q: %w", lib.Name, err)
	}
	return &driver.LockedLibrary{
		Name:     lib.Name,
		Source:   gitSource(url, commit),
		Revision: revision,
		Checksum: checksum,
		Files:    append([]string(nil), lib.Files...),
	}, nil
}

func ensureGitCheckout(home string, lib *driver.LibrarySpec, url string) (string, string, error) {
	baseDir := filepath.Dir(driver.LibraryCacheDir(home, lib.Name, "head"))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}

	rev, descriptor := gitRevisionFromSpec(lib)
	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{URL: url})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git clone %s: %w", url, err)
	}
	hash, err := repo.ResolveRevision(rev)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("resolve revision %s: %w", rev, err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := driver.LibraryCacheDir(home, lib.Name, version)
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git checkout %s: %w", rev, err)
	}
	// The cache only needs the working tree.
	if err := os.RemoveAll(filepath.Join(tmpDir, ".git")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, hash.String(), nil
}

// gitPinnedVersion names a checkout: the commit alone, or tag@commit and
// branch@commit when the library is pinned by name.
func gitPinnedVersion(descriptor, commit string) string {
	commit = strings.TrimSpace(commit)
	descriptor = strings.TrimSpace(descriptor)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

func commitOf(revision string) string {
	if at := strings.LastIndexByte(revision, '@'); at >= 0 {
		return revision[at+1:]
	}
	return revision
}

func descriptorOf(revision string) string {
	if at := strings.LastIndexByte(revision, '@'); at >= 0 {
		return revision[:at]
	}
	return ""
}

// lockMatchesSpec reports whether the locked revision still satisfies the
// pin in bc.yml. Unpinned libraries keep whatever was locked.
func lockMatchesSpec(locked *driver.LockedLibrary, lib *driver.LibrarySpec) bool {
	switch {
	case lib.Rev != "":
		return strings.HasPrefix(commitOf(locked.Revision), lib.Rev)
	case lib.Tag != "":
		return descriptorOf(locked.Revision) == lib.Tag
	case lib.Branch != "":
		return descriptorOf(locked.Revision) == lib.Branch
	default:
		return true
	}
}

func gitRevisionFromSpec(lib *driver.LibrarySpec) (plumbing.Revision, string) {
	if rev := strings.TrimSpace(lib.Rev); rev != "" {
		return plumbing.Revision(rev), rev
	}
	if tag := strings.TrimSpace(lib.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), tag
	}
	if branch := strings.TrimSpace(lib.Branch); branch != "" {
		return plumbing.Revision("refs/remotes/origin/" + branch), branch
	}
	return plumbing.Revision(plumbing.HEAD), ""
}

func gitSource(url, commit string) string {
	return fmt.Sprintf("git+%s@%s", url, commit)
}
