package runtime

import (
	"errors"
	"testing"

	"bc-cli/pkg/ast"
	"bc-cli/pkg/number"
)

func TestScopeChainLookupAndAssign(t *testing.T) {
	global := NewScope(nil)
	global.Define("x", number.FromInt64(1))
	inner := global.Extend()

	if v, err := inner.Get("x"); err != nil || v.String() != "1" {
		t.Fatalf("expected inner lookup of x to find 1, got %v (%v)", v, err)
	}
	if err := inner.Assign("x", number.FromInt64(2)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if v, _ := global.Get("x"); v.String() != "2" {
		t.Fatalf("expected assignment to update the global binding, got %s", v)
	}
	if err := inner.Assign("y", number.One()); !errors.Is(err, ErrUndefinedVariable) {
		t.Fatalf("expected ErrUndefinedVariable, got %v", err)
	}
	if _, err := inner.Get("y"); !errors.Is(err, ErrUndefinedVariable) {
		t.Fatalf("expected ErrUndefinedVariable, got %v", err)
	}
}

func TestScopeSetDefinesInInnermost(t *testing.T) {
	global := NewScope(nil)
	global.Define("a", number.Zero())
	inner := global.Extend()

	inner.Set("a", number.FromInt64(5))
	inner.Set("b", number.FromInt64(6))

	if got := global.Keys(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected only a in global scope, got %v", got)
	}
	if v, _ := global.Get("a"); v.String() != "5" {
		t.Fatalf("expected a=5, got %s", v)
	}
	if got := inner.Keys(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected b in inner scope, got %v", got)
	}
}

func TestFramesSeeGlobalsOnly(t *testing.T) {
	env := NewEnvironment(DefaultConfig())
	env.Global().Define("g", number.One())
	caller := env.PushFrame()
	caller.Define("local", number.One())

	callee := env.PushFrame()
	if _, err := callee.Get("g"); err != nil {
		t.Fatalf("expected globals to be visible, got %v", err)
	}
	if _, err := callee.Get("local"); !errors.Is(err, ErrUndefinedVariable) {
		t.Fatalf("expected caller locals to be hidden, got %v", err)
	}
}

func TestSpecialVariables(t *testing.T) {
	env := NewEnvironment(DefaultConfig())
	if err := env.SetSpecial(VarScale, number.FromInt64(4)); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if v, ok := env.Special(VarScale); !ok || v.String() != "4" {
		t.Fatalf("expected scale 4, got %v", v)
	}
	cases := []struct {
		name  string
		value string
	}{
		{VarScale, "-1"},
		{VarScale, "1.5"},
		{VarIBase, "1"},
		{VarIBase, "17"},
		{VarOBase, "0"},
	}
	for _, tc := range cases {
		err := env.SetSpecial(tc.name, number.MustParse(tc.value))
		if !errors.Is(err, number.ErrDomain) {
			t.Fatalf("%s=%s: expected ErrDomain, got %v", tc.name, tc.value, err)
		}
	}
	if got := env.Config(); got.Scale != 4 || got.IBase != 10 || got.OBase != 10 {
		t.Fatalf("rejected assignments must not change config, got %+v", got)
	}
	if err := env.SetOBase(16); err != nil || env.Config().OBase != 16 {
		t.Fatalf("expected obase 16, got %+v (%v)", env.Config(), err)
	}
}

func TestNewEnvironmentNormalizesConfig(t *testing.T) {
	env := NewEnvironment(Config{Scale: -3, IBase: 40, OBase: 2, LineLength: -1})
	got := env.Config()
	want := Config{Scale: 0, IBase: 10, OBase: 2, LineLength: 70}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if err := (Config{Scale: 1, IBase: 1, OBase: 10}).Validate(); !errors.Is(err, number.ErrDomain) {
		t.Fatalf("expected ErrDomain from Validate, got %v", err)
	}
}

func TestFunctionTable(t *testing.T) {
	env := NewEnvironment(DefaultConfig())
	env.DefineFunction(NativeFunctionValue{Name: "sqrt", Arity: 1})
	if fn, err := env.LookupFunction("sqrt"); err != nil || fn.Kind() != KindNativeFunction {
		t.Fatalf("expected native sqrt, got %v (%v)", fn, err)
	}

	def := ast.Def("sqrt", []string{"x"}, ast.Ret(ast.ID("x")))
	env.DefineFunction(&FunctionValue{Declaration: def})
	fn, err := env.LookupFunction("sqrt")
	if err != nil || fn.Kind() != KindFunction || fn.ParamCount() != 1 {
		t.Fatalf("expected user sqrt to replace the native, got %v (%v)", fn, err)
	}
	if _, err := env.LookupFunction("nope"); !errors.Is(err, ErrUndefinedFunction) {
		t.Fatalf("expected ErrUndefinedFunction, got %v", err)
	}
	if names := env.FunctionNames(); len(names) != 1 || names[0] != "sqrt" {
		t.Fatalf("unexpected function names %v", names)
	}
}

func TestSnapshotRestore(t *testing.T) {
	env := NewEnvironment(DefaultConfig())
	env.Global().Define("x", number.One())
	snap := env.Snapshot()

	env.Global().Define("x", number.FromInt64(9))
	env.Global().Define("y", number.FromInt64(2))
	env.DefineFunction(&FunctionValue{Declaration: ast.Def("f", nil)})
	if err := env.SetScale(7); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	env.Restore(snap)
	if v, _ := env.Global().Get("x"); v.String() != "1" {
		t.Fatalf("expected x restored to 1, got %s", v)
	}
	if _, err := env.Global().Get("y"); !errors.Is(err, ErrUndefinedVariable) {
		t.Fatalf("expected y to be gone, got %v", err)
	}
	if _, err := env.LookupFunction("f"); !errors.Is(err, ErrUndefinedFunction) {
		t.Fatalf("expected f to be gone, got %v", err)
	}
	if env.Config().Scale != 0 {
		t.Fatalf("expected scale restored to 0, got %d", env.Config().Scale)
	}
}
