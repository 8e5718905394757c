package interpreter

import (
	"errors"
	"fmt"

	"bc-cli/pkg/ast"
	"bc-cli/pkg/number"
	"bc-cli/pkg/runtime"
)

var (
	ErrUndefinedVariable = runtime.ErrUndefinedVariable
	ErrUndefinedFunction = runtime.ErrUndefinedFunction
	ErrDivisionByZero    = number.ErrDivisionByZero
	ErrDomain            = number.ErrDomain

	// ErrArityMismatch indicates a call with the wrong number of arguments.
	ErrArityMismatch = errors.New("arity mismatch")

	// ErrCancelled indicates evaluation stopped because its context ended.
	ErrCancelled = errors.New("cancelled")

	// ErrRecursionLimit indicates user function calls nested deeper than
	// MaxCallDepth.
	ErrRecursionLimit = errors.New("recursion limit exceeded")
)

// EvaluationError attaches the position of the failing node to a runtime
// error. errors.Is and errors.As see through it.
type EvaluationError struct {
	Pos ast.Position
	Err error
}

func (e *EvaluationError) Error() string {
	if e.Err == nil {
		return ""
	}
	if !e.Pos.IsValid() {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// fail wraps err with the position of node unless it already carries one.
func fail(node ast.Node, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}
	if _, ok := err.(returnSignal); ok {
		return err
	}
	var pos ast.Position
	if node != nil {
		pos = node.Span().Start
	}
	return &EvaluationError{Pos: pos, Err: err}
}

// returnSignal unwinds a function body back to its call.
type returnSignal struct {
	value number.Number
}

func (r returnSignal) Error() string {
	return "return"
}
