package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"bc-cli/pkg/runtime"
)

// ConfigFileName is the file FindConfig looks for.
const ConfigFileName = "bc.yml"

// ErrConfigNotFound is returned by FindConfig when no bc.yml exists between
// the start directory and the filesystem root.
var ErrConfigNotFound = errors.New("config: bc.yml not found")

// Config represents the parsed contents of bc.yml. Numeric settings are
// pointers so an absent key leaves the lower-precedence value alone.
type Config struct {
	Path         string
	Scale        *int
	IBase        *int
	OBase        *int
	LineLength   *int
	Libraries    map[string]*LibrarySpec
	LibraryOrder []string
}

// LibrarySpec describes one library source. Exactly one of Path or Git is set.
type LibrarySpec struct {
	Name   string
	Path   string
	Git    string
	Rev    string
	Tag    string
	Branch string
	Files  []string
}

// IsGit reports whether the library is fetched from a git remote.
func (l *LibrarySpec) IsGit() bool { return l != nil && l.Git != "" }

// ValidationError aggregates config validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("config validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// FindConfig walks up from start looking for bc.yml.
func FindConfig(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("config: resolve %s: %w", start, err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("config: stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched from %s)", ErrConfigNotFound, start)
		}
		dir = parent
	}
}

// LoadConfig parses bc.yml from disk, returning a validated config. An empty
// file is a valid config with nothing set.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw configFile
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", absPath, err)
	}

	cfg := raw.toConfig(absPath)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Dir is the directory relative library paths are resolved against.
func (c *Config) Dir() string {
	if c == nil || c.Path == "" {
		return "."
	}
	return filepath.Dir(c.Path)
}

// OrderedLibraries returns libraries in the order bc.yml declares them.
func (c *Config) OrderedLibraries() []*LibrarySpec {
	if c == nil {
		return nil
	}
	out := make([]*LibrarySpec, 0, len(c.LibraryOrder))
	for _, name := range c.LibraryOrder {
		if lib := c.Libraries[name]; lib != nil {
			out = append(out, lib)
		}
	}
	return out
}

// HasGitLibraries reports whether any library needs `libs install`.
func (c *Config) HasGitLibraries() bool {
	for _, lib := range c.OrderedLibraries() {
		if lib.IsGit() {
			return true
		}
	}
	return false
}

// Apply overlays the settings present in c onto base.
func (c *Config) Apply(base runtime.Config) runtime.Config {
	if c == nil {
		return base
	}
	if c.Scale != nil {
		base.Scale = *c.Scale
	}
	if c.IBase != nil {
		base.IBase = *c.IBase
	}
	if c.OBase != nil {
		base.OBase = *c.OBase
	}
	if c.LineLength != nil {
		base.LineLength = *c.LineLength
	}
	return base
}

func (c *Config) validate() error {
	var errs ValidationError
	if c.Scale != nil && *c.Scale < 0 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("scale must not be negative, got %d", *c.Scale))
	}
	if c.IBase != nil && (*c.IBase < 2 || *c.IBase > 16) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("ibase must be between 2 and 16, got %d", *c.IBase))
	}
	if c.OBase != nil && (*c.OBase < 2 || *c.OBase > 16) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("obase must be between 2 and 16, got %d", *c.OBase))
	}
	if c.LineLength != nil && *c.LineLength < 0 {
		errs.Issues = append(errs.Issues, fmt.Sprintf("line_length must not be negative, got %d", *c.LineLength))
	}
	for _, name := range c.LibraryOrder {
		for _, issue := range c.Libraries[name].validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("libraries.%s: %s", name, issue))
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (l *LibrarySpec) validate() []string {
	var errs []string
	if l == nil {
		return errs
	}
	switch {
	case l.Path == "" && l.Git == "":
		errs = append(errs, "must specify path or git")
	case l.Path != "" && l.Git != "":
		errs = append(errs, "path libraries cannot also specify git")
	}
	if l.Path != "" && (l.Rev != "" || l.Tag != "" || l.Branch != "") {
		errs = append(errs, "rev, tag and branch apply only to git libraries")
	}
	pins := 0
	for _, pin := range []string{l.Rev, l.Tag, l.Branch} {
		if pin != "" {
			pins++
		}
	}
	if pins > 1 {
		errs = append(errs, "specify at most one of rev, tag or branch")
	}
	if l.Git != "" && len(l.Files) == 0 {
		errs = append(errs, "git libraries must list files")
	}
	for i, file := range l.Files {
		if filepath.IsAbs(file) || strings.HasPrefix(filepath.Clean(file), "..") {
			errs = append(errs, fmt.Sprintf("files[%d] must stay inside the library", i))
		}
	}
	return errs
}

type configFile struct {
	Scale      *int       `yaml:"scale"`
	IBase      *int       `yaml:"ibase"`
	OBase      *int       `yaml:"obase"`
	LineLength *int       `yaml:"line_length"`
	Libraries  libraryMap `yaml:"libraries"`
}

type libraryYAML struct {
	Path   string     `yaml:"path"`
	Git    string     `yaml:"git"`
	Rev    string     `yaml:"rev"`
	Tag    string     `yaml:"tag"`
	Branch string     `yaml:"branch"`
	Files  stringList `yaml:"files"`
}

// libraryMap keeps declaration order, which is the order libraries load in.
type libraryMap struct {
	items []libraryMapEntry
}

type libraryMapEntry struct {
	name string
	spec *libraryYAML
}

func (lm *libraryMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 || (value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
		lm.items = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("config: libraries must be a mapping")
	}
	items := make([]libraryMapEntry, 0, len(value.Content)/2)
	seen := make(map[string]struct{}, len(value.Content)/2)
	for i := 0; i < len(value.Content); i += 2 {
		var key string
		if err := value.Content[i].Decode(&key); err != nil {
			return err
		}
		key = sanitizeSegment(key)
		if key == "" {
			return fmt.Errorf("config: libraries must not use empty keys")
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("config: library %q declared twice", key)
		}
		seen[key] = struct{}{}
		entry := new(libraryYAML)
		if err := value.Content[i+1].Decode(entry); err != nil {
			return fmt.Errorf("config: library %q: %w", key, err)
		}
		items = append(items, libraryMapEntry{name: key, spec: entry})
	}
	lm.items = items
	return nil
}

type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*l = nil
			return nil
		}
		*l = stringList{strings.TrimSpace(value.Value)}
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			var str string
			if err := node.Decode(&str); err != nil {
				return err
			}
			if str = strings.TrimSpace(str); str != "" {
				items = append(items, str)
			}
		}
		*l = stringList(items)
		return nil
	case yaml.AliasNode:
		return l.UnmarshalYAML(value.Alias)
	case 0:
		*l = nil
		return nil
	default:
		return fmt.Errorf("config: expected string or sequence for list but found %s", value.ShortTag())
	}
}

func (cf configFile) toConfig(path string) *Config {
	cfg := &Config{
		Path:         path,
		Scale:        cf.Scale,
		IBase:        cf.IBase,
		OBase:        cf.OBase,
		LineLength:   cf.LineLength,
		Libraries:    make(map[string]*LibrarySpec, len(cf.Libraries.items)),
		LibraryOrder: make([]string, 0, len(cf.Libraries.items)),
	}
	for _, item := range cf.Libraries.items {
		if item.spec == nil {
			continue
		}
		cfg.Libraries[item.name] = &LibrarySpec{
			Name:   item.name,
			Path:   strings.TrimSpace(item.spec.Path),
			Git:    strings.TrimSpace(item.spec.Git),
			Rev:    strings.TrimSpace(item.spec.Rev),
			Tag:    strings.TrimSpace(item.spec.Tag),
			Branch: strings.TrimSpace(item.spec.Branch),
			Files:  append([]string(nil), item.spec.Files...),
		}
		cfg.LibraryOrder = append(cfg.LibraryOrder, item.name)
	}
	return cfg
}

func sanitizeSegment(seg string) string {
	seg = strings.TrimSpace(seg)
	seg = strings.ReplaceAll(seg, "-", "_")
	return seg
}
