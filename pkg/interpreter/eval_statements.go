package interpreter

import (
	"context"
	"fmt"

	"bc-cli/pkg/ast"
	"bc-cli/pkg/number"
	"bc-cli/pkg/runtime"
)

func (i *Interpreter) evaluateStatement(ctx context.Context, node ast.Statement, scope *runtime.Scope) (number.Number, error) {
	switch n := node.(type) {
	case *ast.ExpressionStatement:
		return i.evaluateExpression(ctx, n.Expression, scope)
	case *ast.PrintStatement:
		return i.evaluatePrintStatement(ctx, n, scope)
	case *ast.IfStatement:
		return i.evaluateIfStatement(ctx, n, scope)
	case *ast.WhileStatement:
		return i.evaluateWhileStatement(ctx, n, scope)
	case *ast.BlockStatement:
		return i.evaluateBlock(ctx, n, scope.Extend())
	case *ast.FunctionDefinition:
		return i.evaluateFunctionDefinition(n)
	case *ast.ReturnStatement:
		return i.evaluateReturnStatement(ctx, n, scope)
	default:
		return number.Number{}, fail(node, fmt.Errorf("unsupported statement type: %s", node.NodeType()))
	}
}

// evaluateBlock runs the statements of block directly in scope; callers
// decide whether a new scope is pushed.
func (i *Interpreter) evaluateBlock(ctx context.Context, block *ast.BlockStatement, scope *runtime.Scope) (number.Number, error) {
	var result number.Number
	for _, stmt := range block.Body {
		val, err := i.evaluateStatement(ctx, stmt, scope)
		if err != nil {
			return number.Number{}, err
		}
		result = val
	}
	return result, nil
}

func (i *Interpreter) evaluatePrintStatement(ctx context.Context, stmt *ast.PrintStatement, scope *runtime.Scope) (number.Number, error) {
	var last number.Number
	for _, arg := range stmt.Arguments {
		val, err := i.evaluateExpression(ctx, arg, scope)
		if err != nil {
			return number.Number{}, err
		}
		if err := i.emit(val); err != nil {
			return number.Number{}, fail(stmt, err)
		}
		last = val
	}
	return last, nil
}

func (i *Interpreter) evaluateIfStatement(ctx context.Context, stmt *ast.IfStatement, scope *runtime.Scope) (number.Number, error) {
	cond, err := i.evaluateExpression(ctx, stmt.Condition, scope)
	if err != nil {
		return number.Number{}, err
	}
	if !cond.IsZero() {
		return i.evaluateStatement(ctx, stmt.Then, scope)
	}
	if stmt.Else != nil {
		return i.evaluateStatement(ctx, stmt.Else, scope)
	}
	return number.Number{}, nil
}

func (i *Interpreter) evaluateWhileStatement(ctx context.Context, loop *ast.WhileStatement, scope *runtime.Scope) (number.Number, error) {
	var result number.Number
	for {
		if err := checkCancelled(ctx, loop); err != nil {
			return number.Number{}, err
		}
		cond, err := i.evaluateExpression(ctx, loop.Condition, scope)
		if err != nil {
			return number.Number{}, err
		}
		if cond.IsZero() {
			return result, nil
		}
		val, err := i.evaluateStatement(ctx, loop.Body, scope)
		if err != nil {
			return number.Number{}, err
		}
		result = val
	}
}

func (i *Interpreter) evaluateFunctionDefinition(def *ast.FunctionDefinition) (number.Number, error) {
	if def.ID == nil || def.Body == nil {
		return number.Number{}, fail(def, fmt.Errorf("incomplete function definition"))
	}
	i.env.DefineFunction(&runtime.FunctionValue{Declaration: def})
	return number.Number{}, nil
}

func (i *Interpreter) evaluateReturnStatement(ctx context.Context, stmt *ast.ReturnStatement, scope *runtime.Scope) (number.Number, error) {
	var result number.Number
	if stmt.Argument != nil {
		val, err := i.evaluateExpression(ctx, stmt.Argument, scope)
		if err != nil {
			return number.Number{}, err
		}
		result = val
	}
	return number.Number{}, returnSignal{value: result}
}
