package interpreter

import (
	"context"
	"fmt"
	"io"

	"bc-cli/pkg/ast"
	"bc-cli/pkg/number"
	"bc-cli/pkg/runtime"
)

// Options configures an Interpreter.
type Options struct {
	// Output receives printed and echoed values, one per line.
	// Nil discards output.
	Output io.Writer
}

// MaxCallDepth bounds how deeply user-defined functions may nest.
const MaxCallDepth = 10000

// Interpreter evaluates bc programs against one Environment.
type Interpreter struct {
	env   *runtime.Environment
	out   io.Writer
	depth int
}

// Result is the outcome of one top-level statement. Echo is set for bare
// expression statements whose value a REPL should display.
type Result struct {
	Value number.Number
	Echo  bool
}

// New returns an interpreter bound to env, creating a default environment
// when env is nil. Builtins are added for names not already defined.
func New(env *runtime.Environment, opts Options) *Interpreter {
	if env == nil {
		env = runtime.NewEnvironment(runtime.DefaultConfig())
	}
	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	i := &Interpreter{env: env, out: out}
	i.initBuiltins()
	return i
}

// Environment returns the session state.
func (i *Interpreter) Environment() *runtime.Environment {
	return i.env
}

// Run executes every top-level statement in order, echoing the values of
// bare expression statements. It stops at the first failing statement;
// effects of earlier statements are kept.
func (i *Interpreter) Run(ctx context.Context, program *ast.Program) error {
	if program == nil {
		return nil
	}
	for _, stmt := range program.Body {
		res, err := i.Exec(ctx, stmt)
		if err != nil {
			return err
		}
		if res.Echo {
			if err := i.emit(res.Value); err != nil {
				return fail(stmt, err)
			}
		}
	}
	return nil
}

// Exec executes one top-level statement. When it fails the Environment is
// rolled back to its state before the statement; output already written
// stays written.
func (i *Interpreter) Exec(ctx context.Context, stmt ast.Statement) (Result, error) {
	if err := checkCancelled(ctx, stmt); err != nil {
		return Result{}, err
	}
	snap := i.env.Snapshot()
	res, err := i.execTopLevel(ctx, stmt)
	if err != nil {
		i.env.Restore(snap)
		return Result{}, err
	}
	return res, nil
}

func (i *Interpreter) execTopLevel(ctx context.Context, stmt ast.Statement) (Result, error) {
	if es, ok := stmt.(*ast.ExpressionStatement); ok {
		val, err := i.evaluateExpression(ctx, es.Expression, i.env.Global())
		if err != nil {
			return Result{}, err
		}
		_, isAssign := es.Expression.(*ast.AssignmentExpression)
		return Result{Value: val, Echo: !isAssign}, nil
	}
	val, err := i.evaluateStatement(ctx, stmt, i.env.Global())
	if err != nil {
		if _, ok := err.(returnSignal); ok {
			return Result{}, fail(stmt, fmt.Errorf("return outside a function"))
		}
		return Result{}, err
	}
	return Result{Value: val}, nil
}

// Format renders v the way the interpreter prints it: in the current
// output base, wrapped at the configured line length.
func (i *Interpreter) Format(v number.Number) string {
	cfg := i.env.Config()
	return number.WrapLines(v.Format(cfg.OBase), cfg.LineLength)
}

func (i *Interpreter) emit(v number.Number) error {
	_, err := fmt.Fprintln(i.out, i.Format(v))
	return err
}

func checkCancelled(ctx context.Context, node ast.Node) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return fail(node, ErrCancelled)
	default:
		return nil
	}
}
