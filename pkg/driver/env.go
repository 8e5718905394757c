package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xyproto/env/v2"

	"bc-cli/pkg/runtime"
)

// Environment variables read by FromEnv.
const (
	EnvConfig     = "BC_CONFIG"
	EnvLineLength = "BC_LINE_LENGTH"
	EnvHome       = "BC_HOME"
	EnvQuiet      = "BC_QUIET"
)

// EnvSettings holds the settings taken from the process environment.
type EnvSettings struct {
	ConfigPath string
	LineLength *int
	Home       string
	Quiet      bool
}

// FromEnv reads BC_CONFIG, BC_LINE_LENGTH, BC_HOME and BC_QUIET. A
// malformed or negative BC_LINE_LENGTH is reported rather than ignored.
func FromEnv() (EnvSettings, error) {
	settings := EnvSettings{
		ConfigPath: strings.TrimSpace(env.Str(EnvConfig)),
		Home:       strings.TrimSpace(env.Str(EnvHome)),
		Quiet:      env.Bool(EnvQuiet),
	}
	if env.Has(EnvLineLength) {
		n, err := parseLineLength(env.Str(EnvLineLength))
		if err != nil {
			return settings, err
		}
		settings.LineLength = &n
	}
	return settings, nil
}

func parseLineLength(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: expected a non-negative integer, got %q", EnvLineLength, raw)
	}
	return n, nil
}

// Apply overlays the environment settings onto base.
func (s EnvSettings) Apply(base runtime.Config) runtime.Config {
	if s.LineLength != nil {
		base.LineLength = *s.LineLength
	}
	return base
}

// ResolveHome returns the library cache root: BC_HOME when set, otherwise
// ~/.bc-cli.
func (s EnvSettings) ResolveHome() (string, error) {
	if s.Home != "" {
		abs, err := filepath.Abs(s.Home)
		if err != nil {
			return "", fmt.Errorf("resolve %s %q: %w", EnvHome, s.Home, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(userHome, ".bc-cli"), nil
}
