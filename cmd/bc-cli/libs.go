package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"bc-cli/pkg/driver"
)

func runLibs(args []string) int {
	if len(args) == 0 {
		printLibsUsage()
		return 2
	}
	switch args[0] {
	case "install":
		return runLibsInstall(args[1:])
	case "--help", "-h", "help":
		printLibsUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown libs command %q\n", args[0])
		printLibsUsage()
		return 2
	}
}

func printLibsUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  bc-cli libs install [--config bc.yml] [--log-level level]")
}

func runLibsInstall(args []string) int {
	fs := flag.NewFlagSet("bc-cli libs install", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "path to bc.yml")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %v\n", fs.Args())
		return 2
	}
	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	settings, err := driver.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg, err := loadConfig(*configPath, settings, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	if cfg == nil {
		fmt.Fprintln(os.Stderr, "bc-cli libs install requires a bc.yml (none found)")
		return 1
	}
	home, err := settings.ResolveHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve %s: %v\n", driver.EnvHome, err)
		return 1
	}

	fmt.Fprintf(os.Stdout, "Config: %s\n", cfg.Path)
	fmt.Fprintf(os.Stdout, "Libraries: %d\n", len(cfg.LibraryOrder))
	fmt.Fprintf(os.Stdout, "Cache directory: %s\n", home)

	lockPath := driver.LockfilePath(cfg)
	lock, err := driver.LoadLockfile(lockPath)
	lockCreated := false
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		lock = driver.NewLockfile(cliToolVersion)
		lockCreated = true
	default:
		fmt.Fprintf(os.Stderr, "failed to read lockfile: %v\n", err)
		return 1
	}
	lock.Tool = cliToolVersion

	fetcher := newGitFetcher(home)
	changed := false
	var gitNames []string
	for _, lib := range cfg.OrderedLibraries() {
		if !lib.IsGit() {
			fmt.Fprintf(os.Stdout, "Library %s: path %s\n", lib.Name, lib.Path)
			continue
		}
		gitNames = append(gitNames, lib.Name)
		logger.Info("fetching library", "name", lib.Name, "git", lib.Git)
		entry, err := fetcher.Fetch(lib, lock.Find(lib.Name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to install library %q: %v\n", lib.Name, err)
			return 1
		}
		if lock.Upsert(entry) {
			changed = true
		}
		fmt.Fprintf(os.Stdout, "Library %s: %s\n", entry.Name, entry.Source)
	}
	if lock.Prune(gitNames) {
		changed = true
	}

	if changed || lockCreated {
		action := "Updated"
		if lockCreated {
			action = "Created"
		}
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write lockfile: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "%s %s: %s\n", action, driver.LockfileName, lock.Path)
	} else {
		fmt.Fprintf(os.Stdout, "%s already up to date: %s\n", driver.LockfileName, lockPath)
	}
	fmt.Fprintln(os.Stdout, "Libraries installed.")
	return 0
}
