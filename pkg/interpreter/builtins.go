package interpreter

import (
	"bc-cli/pkg/number"
	"bc-cli/pkg/runtime"
)

func (i *Interpreter) initBuiltins() {
	for _, fn := range []runtime.NativeFunctionValue{
		{
			Name:  "sqrt",
			Arity: 1,
			Impl: func(ctx *runtime.NativeCallContext, args []number.Number) (number.Number, error) {
				return args[0].Sqrt(ctx.Env.Config().Scale)
			},
		},
		{
			Name:  "length",
			Arity: 1,
			Impl: func(_ *runtime.NativeCallContext, args []number.Number) (number.Number, error) {
				return number.FromInt64(int64(args[0].Length())), nil
			},
		},
		{
			Name:  "scale",
			Arity: 1,
			Impl: func(_ *runtime.NativeCallContext, args []number.Number) (number.Number, error) {
				return number.FromInt64(int64(args[0].Scale())), nil
			},
		},
	} {
		// A user definition loaded earlier keeps its name.
		if _, err := i.env.LookupFunction(fn.Name); err == nil {
			continue
		}
		i.env.DefineFunction(fn)
	}
}
