package parser

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"bc-cli/pkg/ast"
)

// sexpr renders expressions in prefix form so tests can compare shapes.
func sexpr(expr ast.Expression) string {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return e.Literal
	case *ast.Identifier:
		return e.Name
	case *ast.UnaryExpression:
		return fmt.Sprintf("(%s %s)", e.Operator, sexpr(e.Operand))
	case *ast.BinaryExpression:
		return fmt.Sprintf("(%s %s %s)", e.Operator, sexpr(e.Left), sexpr(e.Right))
	case *ast.AssignmentExpression:
		return fmt.Sprintf("(= %s %s)", e.Target.Name, sexpr(e.Value))
	case *ast.FunctionCall:
		parts := []string{e.Callee.Name}
		for _, arg := range e.Arguments {
			parts = append(parts, sexpr(arg))
		}
		return "(call " + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("<%T>", expr)
	}
}

func parseSingleExpression(t *testing.T, src string) ast.Expression {
	t.Helper()
	prog, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	if len(prog.Body) != 1 {
		t.Fatalf("parse %q: expected 1 statement, got %d", src, len(prog.Body))
	}
	stmt, ok := prog.Body[0].(*ast.ExpressionStatement)
	if !ok {
		t.Fatalf("parse %q: expected expression statement, got %T", src, prog.Body[0])
	}
	return stmt.Expression
}

func TestParserPrecedence(t *testing.T) {
	cases := map[string]string{
		"1 + 2 * 3":         "(+ 1 (* 2 3))",
		"(1 + 2) * 3":       "(* (+ 1 2) 3)",
		"10 - 4 - 3":        "(- (- 10 4) 3)",
		"-2^2":              "(- (^ 2 2))",
		"2^3^2":             "(^ 2 (^ 3 2))",
		"2 ^ -1":            "(^ 2 (- 1))",
		"a = b = 3":         "(= a (= b 3))",
		"a < b == c":        "(== (< a b) c)",
		"a || b && c":       "(|| a (&& b c))",
		"!a + 1":            "(+ (! a) 1)",
		"7 % 2 * 3":         "(* (% 7 2) 3)",
		"f(1, x + 1) * g()": "(* (call f 1 (+ x 1)) (call g))",
		"x = 1 +\n2":        "(= x (+ 1 2))",
	}
	for src, want := range cases {
		if got := sexpr(parseSingleExpression(t, src)); got != want {
			t.Fatalf("%q: expected %s, got %s", src, want, got)
		}
	}
}

func TestParserStatements(t *testing.T) {
	src := `scale = 2
define f(a, b) {
  if (a > b) return a else return b
}
while (i < 3) { i = i + 1; print i }
print f(1, 2), 3
{ x; y }
`
	prog, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(prog.Body) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(prog.Body))
	}

	def, ok := prog.Body[1].(*ast.FunctionDefinition)
	if !ok {
		t.Fatalf("expected function definition, got %T", prog.Body[1])
	}
	if def.ID.Name != "f" || len(def.Params) != 2 || def.Params[1].Name != "b" {
		t.Fatalf("unexpected definition %+v", def)
	}
	ifStmt, ok := def.Body.Body[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected if statement, got %T", def.Body.Body[0])
	}
	if _, ok := ifStmt.Else.(*ast.ReturnStatement); !ok {
		t.Fatalf("expected else branch to be a return, got %T", ifStmt.Else)
	}

	loop, ok := prog.Body[2].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("expected while statement, got %T", prog.Body[2])
	}
	if body, ok := loop.Body.(*ast.BlockStatement); !ok || len(body.Body) != 2 {
		t.Fatalf("expected two-statement loop body, got %#v", loop.Body)
	}

	pr, ok := prog.Body[3].(*ast.PrintStatement)
	if !ok || len(pr.Arguments) != 2 {
		t.Fatalf("expected print with two arguments, got %#v", prog.Body[3])
	}

	if block, ok := prog.Body[4].(*ast.BlockStatement); !ok || len(block.Body) != 2 {
		t.Fatalf("expected two-statement block, got %#v", prog.Body[4])
	}
}

func TestParserEmptyStatementsAndReturnWithoutValue(t *testing.T) {
	prog, err := ParseProgram(";;\n;\n")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(prog.Body) != 0 {
		t.Fatalf("expected empty program, got %d statements", len(prog.Body))
	}

	prog, err = ParseProgram("define f() { return }")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	ret := prog.Body[0].(*ast.FunctionDefinition).Body.Body[0].(*ast.ReturnStatement)
	if ret.Argument != nil {
		t.Fatalf("expected bare return, got %s", sexpr(ret.Argument))
	}
}

func TestParserErrors(t *testing.T) {
	cases := []struct {
		src      string
		pos      ast.Position
		expected string
	}{
		{"1 = 2", ast.Position{Line: 1, Column: 3}, "variable name before '='"},
		{"1 + )", ast.Position{Line: 1, Column: 5}, "expression"},
		{"x = 1 +\n)", ast.Position{Line: 2, Column: 1}, "expression"},
		{"a b", ast.Position{Line: 1, Column: 3}, "newline or ';'"},
		{"return 1", ast.Position{Line: 1, Column: 1}, "statement"},
		{"{ define f() { } }", ast.Position{Line: 1, Column: 3}, "statement"},
		{"if (1) define f() { }", ast.Position{Line: 1, Column: 8}, "statement"},
		{"while (0) define g() { }", ast.Position{Line: 1, Column: 11}, "statement"},
		{"if (0) 1 else define h() { }", ast.Position{Line: 1, Column: 15}, "statement"},
		{"if (x) a = 1\nelse b = 2", ast.Position{Line: 2, Column: 1}, "statement"},
		{"define f(a, a) { }", ast.Position{Line: 1, Column: 13}, "distinct parameter names"},
		{"if (1) {", ast.Position{Line: 1, Column: 9}, "'}'"},
	}
	for _, tc := range cases {
		_, err := ParseProgram(tc.src)
		if !errors.Is(err, ErrParse) {
			t.Fatalf("%q: expected ErrParse, got %v", tc.src, err)
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("%q: expected *ParseError, got %T", tc.src, err)
		}
		if perr.Pos != tc.pos || perr.Expected != tc.expected {
			t.Fatalf("%q: unexpected error %+v", tc.src, perr)
		}
	}
}

func TestParseIncrementalReportsIncompleteInput(t *testing.T) {
	for _, src := range []string{
		"if (1) {",
		"1 +",
		"x = (1 + 2",
		"define f(x) {\n  return x\n",
		"while (i < 3)\n",
		"/* still open",
		"print 1,",
	} {
		_, err := ParseIncremental(src)
		if !errors.Is(err, ErrIncompleteInput) {
			t.Fatalf("%q: expected ErrIncompleteInput, got %v", src, err)
		}
		if errors.Is(err, ErrParse) {
			t.Fatalf("%q: incomplete input must not be a parse error", src)
		}
	}
}

func TestParseIncrementalCompleteInput(t *testing.T) {
	prog, err := ParseIncremental("if (1) {\n  print 1\n}\n")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if len(prog.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Body))
	}
	if _, err := ParseIncremental("1 + )"); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for a real syntax error, got %v", err)
	}
	if _, err := ParseProgram("/* open"); !errors.Is(err, ErrLex) {
		t.Fatalf("expected ErrLex from a full parse, got %v", err)
	}
}

func TestParserSpans(t *testing.T) {
	prog, err := ParseProgram("\n  x = 12 + y")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	stmt := prog.Body[0].(*ast.ExpressionStatement)
	want := ast.Span{Start: ast.Position{Line: 2, Column: 3}, End: ast.Position{Line: 2, Column: 13}}
	if got := stmt.Span(); got != want {
		t.Fatalf("statement span: expected %+v, got %+v", want, got)
	}
	bin := stmt.Expression.(*ast.AssignmentExpression).Value.(*ast.BinaryExpression)
	if got := bin.Span().Start; got != (ast.Position{Line: 2, Column: 7}) {
		t.Fatalf("binary span start: got %+v", got)
	}
}
