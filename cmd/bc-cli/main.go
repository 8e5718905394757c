package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bc-cli/pkg/driver"
	"bc-cli/pkg/interpreter"
	"bc-cli/pkg/runtime"
)

const cliToolVersion = "bc-cli 0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 && args[0] == "libs" {
		return runLibs(args[1:])
	}
	return runCalculator(args)
}

// exprList collects repeated -e flags.
type exprList []string

func (e *exprList) String() string { return strings.Join(*e, "; ") }

func (e *exprList) Set(v string) error {
	*e = append(*e, v)
	return nil
}

type options struct {
	scale       int
	ibase       int
	obase       int
	mathLib     bool
	quiet       bool
	interactive bool
	version     bool
	exprs       exprList
	configPath  string
	logLevel    string
	files       []string
	set         map[string]bool
}

func parseOptions(args []string) (*options, error) {
	o := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("bc-cli", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { printUsage(fs) }
	fs.IntVar(&o.scale, "s", 0, "shorthand for --scale")
	fs.IntVar(&o.scale, "scale", 0, "digits kept after the point by / % and sqrt")
	fs.IntVar(&o.ibase, "ibase", 10, "input base for number literals (2-16)")
	fs.IntVar(&o.obase, "obase", 10, "output base (2-16)")
	fs.BoolVar(&o.mathLib, "l", false, "start with scale 20")
	fs.BoolVar(&o.quiet, "q", false, "do not print the banner")
	fs.BoolVar(&o.interactive, "i", false, "force interactive mode")
	fs.BoolVar(&o.version, "version", false, "print the version and exit")
	fs.Var(&o.exprs, "e", "evaluate expression (repeatable)")
	fs.StringVar(&o.configPath, "config", "", "path to bc.yml")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	o.files = fs.Args()
	return o, nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  bc-cli [flags] [file ...]")
	fmt.Fprintln(os.Stderr, "  bc-cli libs install")
	fmt.Fprintln(os.Stderr, "Flags:")
	fs.PrintDefaults()
}

// runtimeConfig layers defaults, bc.yml, the environment and flags, in
// increasing precedence.
func (o *options) runtimeConfig(file *driver.Config, settings driver.EnvSettings) (runtime.Config, error) {
	cfg := runtime.DefaultConfig()
	cfg = file.Apply(cfg)
	cfg = settings.Apply(cfg)
	if o.mathLib {
		cfg.Scale = 20
	}
	if o.set["s"] || o.set["scale"] {
		cfg.Scale = o.scale
	}
	if o.set["ibase"] {
		cfg.IBase = o.ibase
	}
	if o.set["obase"] {
		cfg.OBase = o.obase
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

// loadConfig resolves bc.yml from --config, then BC_CONFIG, then by walking
// up from the working directory. No config found is not an error.
func loadConfig(explicit string, settings driver.EnvSettings, logger *slog.Logger) (*driver.Config, error) {
	path := explicit
	if path == "" {
		path = settings.ConfigPath
	}
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		found, err := driver.FindConfig(cwd)
		if err != nil {
			if errors.Is(err, driver.ErrConfigNotFound) {
				logger.Debug("no config file found", "from", cwd)
				return nil, nil
			}
			return nil, err
		}
		path = found
	}
	cfg, err := driver.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("config loaded", "path", cfg.Path, "libraries", len(cfg.LibraryOrder))
	return cfg, nil
}

func loadLockfileForConfig(cfg *driver.Config) (*driver.Lockfile, error) {
	if cfg == nil {
		return nil, nil
	}
	lock, err := driver.LoadLockfile(driver.LockfilePath(cfg))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lockfile: %w", err)
	}
	return lock, nil
}

func runCalculator(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.version {
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	}
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	settings, err := driver.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	fileCfg, err := loadConfig(opts.configPath, settings, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	cfg, err := opts.runtimeConfig(fileCfg, settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid settings: %v\n", err)
		return 2
	}
	logger.Debug("settings resolved", "scale", cfg.Scale, "ibase", cfg.IBase, "obase", cfg.OBase, "line_length", cfg.LineLength)

	home, err := settings.ResolveHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve %s: %v\n", driver.EnvHome, err)
		return 1
	}
	lock, err := loadLockfileForConfig(fileCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	interp := interpreter.New(runtime.NewEnvironment(cfg), interpreter.Options{Output: os.Stdout})
	intr := watchInterrupts(logger)
	defer intr.stop()
	ctx := context.Background()

	step := func(load func(context.Context) error) error {
		runCtx, done := intr.begin(ctx)
		defer done()
		return load(runCtx)
	}

	err = step(func(ctx context.Context) error {
		files, err := driver.LoadLibraries(ctx, interp, fileCfg, lock, home)
		if err == nil && len(files) > 0 {
			logger.Info("libraries loaded", "files", len(files))
		}
		return err
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	for _, file := range opts.files {
		logger.Debug("running script", "path", file)
		if err := step(func(ctx context.Context) error { return driver.LoadFile(ctx, interp, file) }); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}
	for _, expr := range opts.exprs {
		if err := step(func(ctx context.Context) error { return driver.LoadSource(ctx, interp, "-e", expr) }); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}

	if !opts.interactive && (len(opts.files) > 0 || len(opts.exprs) > 0) {
		return 0
	}

	interactive := opts.interactive || isTerminal(os.Stdin.Fd())
	if interactive && !opts.quiet && !settings.Quiet {
		fmt.Fprintln(os.Stdout, cliToolVersion)
		fmt.Fprintln(os.Stdout, "Press Ctrl-D or Ctrl-C at the prompt to exit, Ctrl-C to interrupt a calculation.")
	}
	r := &repl{
		interp:      interp,
		in:          os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
		interactive: interactive,
		interrupts:  intr,
		logger:      logger,
	}
	if interactive {
		if history := openHistory(home, logger); history != nil {
			defer history.Close()
			r.history = history
		}
	}
	// Ctrl-C at the prompt ends the session like Ctrl-D; a non-interactive
	// run exits with the usual SIGINT status.
	intr.onIdle(func() {
		if interactive {
			fmt.Fprintln(os.Stdout)
			os.Exit(0)
		}
		os.Exit(130)
	})
	failed, err := r.run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if failed && !interactive {
		return 1
	}
	return 0
}

// openHistory appends complete REPL inputs to <home>/history.
func openHistory(home string, logger *slog.Logger) io.WriteCloser {
	if err := os.MkdirAll(home, 0o755); err != nil {
		logger.Warn("history disabled", "error", err)
		return nil
	}
	path := filepath.Join(home, "history")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return nil
	}
	logger.Debug("history enabled", "path", path)
	return file
}
