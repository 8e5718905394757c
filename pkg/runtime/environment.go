package runtime

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"bc-cli/pkg/number"
)

var (
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrUndefinedFunction = errors.New("undefined function")
)

// Names of the variables bound to the session configuration.
const (
	VarScale = "scale"
	VarIBase = "ibase"
	VarOBase = "obase"
)

// MaxScale bounds the scale variable.
const MaxScale = math.MaxInt32

// Scope provides lexical scoping for variables.
type Scope struct {
	values map[string]number.Number
	parent *Scope
}

// NewScope creates a new scope, optionally nested under a parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		values: make(map[string]number.Number),
		parent: parent,
	}
}

// Parent exposes the enclosing scope (nil when global).
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Snapshot returns a copy of the current bindings.
func (s *Scope) Snapshot() map[string]number.Number {
	out := make(map[string]number.Number, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Define inserts or shadows a binding in the current scope.
func (s *Scope) Define(name string, value number.Number) {
	s.values[name] = value
}

// Assign updates an existing binding in the first scope where it appears.
func (s *Scope) Assign(name string, value number.Number) error {
	if _, ok := s.values[name]; ok {
		s.values[name] = value
		return nil
	}
	if s.parent != nil {
		return s.parent.Assign(name, value)
	}
	return fmt.Errorf("%w: %s", ErrUndefinedVariable, name)
}

// Set assigns the nearest existing binding, or defines name in s.
func (s *Scope) Set(name string, value number.Number) {
	if err := s.Assign(name, value); err != nil {
		s.Define(name, value)
	}
}

// Get retrieves a binding, searching outward through the scope chain.
func (s *Scope) Get(name string) (number.Number, error) {
	if v, ok := s.values[name]; ok {
		return v, nil
	}
	if s.parent != nil {
		return s.parent.Get(name)
	}
	return number.Number{}, fmt.Errorf("%w: %s", ErrUndefinedVariable, name)
}

// Keys returns the bindings in sorted order.
func (s *Scope) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Extend creates a child scope.
func (s *Scope) Extend() *Scope {
	return NewScope(s)
}

// Config is the numeric configuration of a session.
type Config struct {
	Scale      int
	IBase      int
	OBase      int
	LineLength int
}

// DefaultConfig matches classic bc: scale 0, decimal in and out, 70 columns.
func DefaultConfig() Config {
	return Config{Scale: 0, IBase: 10, OBase: 10, LineLength: 70}
}

// Validate checks ranges: scale >= 0, bases in 2-16, line length >= 0.
func (c Config) Validate() error {
	if c.Scale < 0 || c.Scale > MaxScale {
		return fmt.Errorf("%w: scale %d out of range", number.ErrDomain, c.Scale)
	}
	if c.IBase < 2 || c.IBase > 16 {
		return fmt.Errorf("%w: ibase %d out of range 2-16", number.ErrDomain, c.IBase)
	}
	if c.OBase < 2 || c.OBase > 16 {
		return fmt.Errorf("%w: obase %d out of range 2-16", number.ErrDomain, c.OBase)
	}
	if c.LineLength < 0 {
		return fmt.Errorf("%w: line length %d is negative", number.ErrDomain, c.LineLength)
	}
	return nil
}

// Environment is the state of one session: global variables, the function
// table and the numeric configuration.
type Environment struct {
	global    *Scope
	functions map[string]Function
	config    Config
}

// NewEnvironment creates a session. An invalid cfg falls back to defaults
// field by field.
func NewEnvironment(cfg Config) *Environment {
	def := DefaultConfig()
	if cfg.Scale < 0 || cfg.Scale > MaxScale {
		cfg.Scale = def.Scale
	}
	if cfg.IBase < 2 || cfg.IBase > 16 {
		cfg.IBase = def.IBase
	}
	if cfg.OBase < 2 || cfg.OBase > 16 {
		cfg.OBase = def.OBase
	}
	if cfg.LineLength < 0 {
		cfg.LineLength = def.LineLength
	}
	return &Environment{
		global:    NewScope(nil),
		functions: make(map[string]Function),
		config:    cfg,
	}
}

// Global returns the outermost scope.
func (e *Environment) Global() *Scope { return e.global }

// PushFrame creates a call frame. Frames see globals, never the caller's locals.
func (e *Environment) PushFrame() *Scope { return NewScope(e.global) }

// Config returns the current configuration.
func (e *Environment) Config() Config { return e.config }

// DefineFunction binds fn under its name, replacing any previous entry.
func (e *Environment) DefineFunction(fn Function) {
	e.functions[fn.FunctionName()] = fn
}

// LookupFunction finds a function by name.
func (e *Environment) LookupFunction(name string) (Function, error) {
	if fn, ok := e.functions[name]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUndefinedFunction, name)
}

// FunctionNames returns the defined names in sorted order.
func (e *Environment) FunctionNames() []string {
	names := make([]string, 0, len(e.functions))
	for name := range e.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsSpecial reports whether name is bound to the configuration.
func IsSpecial(name string) bool {
	switch name {
	case VarScale, VarIBase, VarOBase:
		return true
	}
	return false
}

// Special reads a configuration variable.
func (e *Environment) Special(name string) (number.Number, bool) {
	switch name {
	case VarScale:
		return number.FromInt64(int64(e.config.Scale)), true
	case VarIBase:
		return number.FromInt64(int64(e.config.IBase)), true
	case VarOBase:
		return number.FromInt64(int64(e.config.OBase)), true
	}
	return number.Number{}, false
}

// SetSpecial validates and stores a configuration variable. The value
// must be a non-negative integer; bases must lie in 2-16.
func (e *Environment) SetSpecial(name string, value number.Number) error {
	if !value.IsInteger() || value.Sign() < 0 {
		return fmt.Errorf("%w: %s must be a non-negative integer, got %s", number.ErrDomain, name, value)
	}
	v, ok := value.Int64()
	if !ok || v > MaxScale {
		return fmt.Errorf("%w: %s value %s too large", number.ErrDomain, name, value)
	}
	next := e.config
	switch name {
	case VarScale:
		next.Scale = int(v)
	case VarIBase:
		next.IBase = int(v)
	case VarOBase:
		next.OBase = int(v)
	default:
		return fmt.Errorf("%w: %s", ErrUndefinedVariable, name)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	e.config = next
	return nil
}

func (e *Environment) SetScale(v int) error {
	return e.SetSpecial(VarScale, number.FromInt64(int64(v)))
}

func (e *Environment) SetIBase(v int) error {
	return e.SetSpecial(VarIBase, number.FromInt64(int64(v)))
}

func (e *Environment) SetOBase(v int) error {
	return e.SetSpecial(VarOBase, number.FromInt64(int64(v)))
}

// Snapshot captures everything a top-level statement can change.
type Snapshot struct {
	globals   map[string]number.Number
	functions map[string]Function
	config    Config
}

func (e *Environment) Snapshot() *Snapshot {
	fns := make(map[string]Function, len(e.functions))
	for k, v := range e.functions {
		fns[k] = v
	}
	return &Snapshot{globals: e.global.Snapshot(), functions: fns, config: e.config}
}

// Restore rolls the session back to s.
func (e *Environment) Restore(s *Snapshot) {
	if s == nil {
		return
	}
	e.global.values = make(map[string]number.Number, len(s.globals))
	for k, v := range s.globals {
		e.global.values[k] = v
	}
	e.functions = make(map[string]Function, len(s.functions))
	for k, v := range s.functions {
		e.functions[k] = v
	}
	e.config = s.config
}
