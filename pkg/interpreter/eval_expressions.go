package interpreter

import (
	"context"
	"fmt"

	"bc-cli/pkg/ast"
	"bc-cli/pkg/number"
	"bc-cli/pkg/runtime"
)

func (i *Interpreter) evaluateExpression(ctx context.Context, node ast.Expression, scope *runtime.Scope) (number.Number, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		return i.evaluateNumberLiteral(n)
	case *ast.Identifier:
		return i.evaluateIdentifier(n, scope)
	case *ast.UnaryExpression:
		return i.evaluateUnaryExpression(ctx, n, scope)
	case *ast.BinaryExpression:
		return i.evaluateBinaryExpression(ctx, n, scope)
	case *ast.AssignmentExpression:
		return i.evaluateAssignmentExpression(ctx, n, scope)
	case *ast.FunctionCall:
		return i.evaluateFunctionCall(ctx, n, scope)
	default:
		return number.Number{}, fail(node, fmt.Errorf("unsupported expression type: %s", node.NodeType()))
	}
}

func (i *Interpreter) evaluateNumberLiteral(lit *ast.NumberLiteral) (number.Number, error) {
	val, err := number.ParseBase(lit.Literal, i.env.Config().IBase)
	if err != nil {
		return number.Number{}, fail(lit, err)
	}
	return val, nil
}

func (i *Interpreter) evaluateIdentifier(id *ast.Identifier, scope *runtime.Scope) (number.Number, error) {
	if val, ok := i.env.Special(id.Name); ok {
		return val, nil
	}
	val, err := scope.Get(id.Name)
	if err != nil {
		return number.Number{}, fail(id, err)
	}
	return val, nil
}

func (i *Interpreter) evaluateAssignmentExpression(ctx context.Context, assign *ast.AssignmentExpression, scope *runtime.Scope) (number.Number, error) {
	val, err := i.evaluateExpression(ctx, assign.Value, scope)
	if err != nil {
		return number.Number{}, err
	}
	name := assign.Target.Name
	if runtime.IsSpecial(name) {
		if err := i.env.SetSpecial(name, val); err != nil {
			return number.Number{}, fail(assign, err)
		}
		stored, _ := i.env.Special(name)
		return stored, nil
	}
	scope.Set(name, val)
	return val, nil
}

func (i *Interpreter) evaluateUnaryExpression(ctx context.Context, expr *ast.UnaryExpression, scope *runtime.Scope) (number.Number, error) {
	operand, err := i.evaluateExpression(ctx, expr.Operand, scope)
	if err != nil {
		return number.Number{}, err
	}
	switch expr.Operator {
	case "-":
		return operand.Neg(), nil
	case "!":
		return number.Bool(operand.IsZero()), nil
	default:
		return number.Number{}, fail(expr, fmt.Errorf("unsupported unary operator %s", expr.Operator))
	}
}

func (i *Interpreter) evaluateBinaryExpression(ctx context.Context, expr *ast.BinaryExpression, scope *runtime.Scope) (number.Number, error) {
	switch expr.Operator {
	case "&&":
		left, err := i.evaluateExpression(ctx, expr.Left, scope)
		if err != nil || left.IsZero() {
			return number.Zero(), err
		}
		right, err := i.evaluateExpression(ctx, expr.Right, scope)
		if err != nil {
			return number.Number{}, err
		}
		return number.Bool(!right.IsZero()), nil
	case "||":
		left, err := i.evaluateExpression(ctx, expr.Left, scope)
		if err != nil {
			return number.Number{}, err
		}
		if !left.IsZero() {
			return number.One(), nil
		}
		right, err := i.evaluateExpression(ctx, expr.Right, scope)
		if err != nil {
			return number.Number{}, err
		}
		return number.Bool(!right.IsZero()), nil
	}

	left, err := i.evaluateExpression(ctx, expr.Left, scope)
	if err != nil {
		return number.Number{}, err
	}
	right, err := i.evaluateExpression(ctx, expr.Right, scope)
	if err != nil {
		return number.Number{}, err
	}
	result, err := i.applyBinary(expr.Operator, left, right)
	if err != nil {
		return number.Number{}, fail(expr, err)
	}
	return result, nil
}

func (i *Interpreter) applyBinary(op string, left, right number.Number) (number.Number, error) {
	scale := i.env.Config().Scale
	switch op {
	case "+":
		return left.Add(right), nil
	case "-":
		return left.Sub(right), nil
	case "*":
		return left.Mul(right), nil
	case "/":
		return left.Div(right, scale)
	case "%":
		return left.Mod(right, scale)
	case "^":
		return left.Pow(right)
	case "==":
		return number.Bool(left.Cmp(right) == 0), nil
	case "!=":
		return number.Bool(left.Cmp(right) != 0), nil
	case "<":
		return number.Bool(left.Cmp(right) < 0), nil
	case "<=":
		return number.Bool(left.Cmp(right) <= 0), nil
	case ">":
		return number.Bool(left.Cmp(right) > 0), nil
	case ">=":
		return number.Bool(left.Cmp(right) >= 0), nil
	default:
		return number.Number{}, fmt.Errorf("unsupported binary operator %s", op)
	}
}

func (i *Interpreter) evaluateFunctionCall(ctx context.Context, call *ast.FunctionCall, scope *runtime.Scope) (number.Number, error) {
	if err := checkCancelled(ctx, call); err != nil {
		return number.Number{}, err
	}
	fn, err := i.env.LookupFunction(call.Callee.Name)
	if err != nil {
		return number.Number{}, fail(call, err)
	}
	if len(call.Arguments) != fn.ParamCount() {
		return number.Number{}, fail(call, fmt.Errorf("%w: %s expects %d arguments, got %d",
			ErrArityMismatch, fn.FunctionName(), fn.ParamCount(), len(call.Arguments)))
	}
	args := make([]number.Number, len(call.Arguments))
	for idx, arg := range call.Arguments {
		val, err := i.evaluateExpression(ctx, arg, scope)
		if err != nil {
			return number.Number{}, err
		}
		args[idx] = val
	}
	return i.callFunction(ctx, call, fn, args)
}

func (i *Interpreter) callFunction(ctx context.Context, call *ast.FunctionCall, fn runtime.Function, args []number.Number) (number.Number, error) {
	switch f := fn.(type) {
	case *runtime.FunctionValue:
		if i.depth >= MaxCallDepth {
			return number.Number{}, fail(call, fmt.Errorf("%w: %s nested %d calls deep", ErrRecursionLimit, f.FunctionName(), MaxCallDepth))
		}
		i.depth++
		defer func() { i.depth-- }()
		decl := f.Declaration
		frame := i.env.PushFrame()
		for idx, param := range decl.Params {
			frame.Define(param.Name, args[idx])
		}
		_, err := i.evaluateBlock(ctx, decl.Body, frame)
		if err != nil {
			if ret, ok := err.(returnSignal); ok {
				return ret.value, nil
			}
			return number.Number{}, err
		}
		return number.Zero(), nil
	case runtime.NativeFunctionValue:
		val, err := f.Impl(&runtime.NativeCallContext{Env: i.env}, args)
		if err != nil {
			return number.Number{}, fail(call, err)
		}
		return val, nil
	default:
		return number.Number{}, fail(call, fmt.Errorf("%s is not callable", fn.FunctionName()))
	}
}
