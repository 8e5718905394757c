package runtime

import (
	"bc-cli/pkg/ast"
	"bc-cli/pkg/number"
)

// Kind identifies the function table entry category.
type Kind int

const (
	KindFunction Kind = iota
	KindNativeFunction
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindNativeFunction:
		return "native_function"
	default:
		return "unknown"
	}
}

// Function is an entry in the function table.
type Function interface {
	Kind() Kind
	FunctionName() string
	ParamCount() int
}

// FunctionValue is a user definition. The table keeps the definition node
// alive for as long as the name is bound.
type FunctionValue struct {
	Declaration *ast.FunctionDefinition
}

func (v *FunctionValue) Kind() Kind { return KindFunction }

func (v *FunctionValue) FunctionName() string { return v.Declaration.ID.Name }

func (v *FunctionValue) ParamCount() int { return len(v.Declaration.Params) }

// NativeCallContext gives builtins access to the session state.
type NativeCallContext struct {
	Env *Environment
}

type NativeFunc func(*NativeCallContext, []number.Number) (number.Number, error)

type NativeFunctionValue struct {
	Name  string
	Arity int
	Impl  NativeFunc
}

func (v NativeFunctionValue) Kind() Kind { return KindNativeFunction }

func (v NativeFunctionValue) FunctionName() string { return v.Name }

func (v NativeFunctionValue) ParamCount() int { return v.Arity }
