package parser

import "bc-cli/pkg/ast"

// Binary operator precedence, loosest first. '^' and the unary operators
// are handled separately so that unary minus binds looser than '^'.
var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3,
	"!=": 3,
	"<":  4,
	"<=": 4,
	">":  4,
	">=": 4,
	"+":  5,
	"-":  5,
	"*":  6,
	"/":  6,
	"%":  6,
}

func (p *parser) parseExpression() (ast.Expression, error) {
	return p.parseAssignment()
}

func (p *parser) parseAssignment() (ast.Expression, error) {
	start, err := p.peek()
	if err != nil {
		return nil, err
	}
	left, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if !tok.is(TokenOperator, "=") {
		return left, nil
	}
	target, ok := left.(*ast.Identifier)
	if !ok {
		return nil, &ParseError{Pos: tok.Pos, Expected: "variable name before '='", Found: "expression"}
	}
	p.next()
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	value, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	assign := ast.NewAssignmentExpression(target, value)
	p.setSpan(assign, start)
	return assign, nil
}

// parseBinary is a precedence climber over the left-associative operators.
func (p *parser) parseBinary(minPrec int) (ast.Expression, error) {
	start, err := p.peek()
	if err != nil {
		return nil, err
	}
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokenOperator {
			return left, nil
		}
		prec, ok := binaryPrecedence[tok.Lexeme]
		if !ok || prec < minPrec {
			return left, nil
		}
		p.next()
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		bin := ast.NewBinaryExpression(tok.Lexeme, left, right)
		p.setSpan(bin, start)
		left = bin
	}
}

func (p *parser) parseUnary() (ast.Expression, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.is(TokenOperator, "-") || tok.is(TokenOperator, "!") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		un := ast.NewUnaryExpression(tok.Lexeme, operand)
		p.setSpan(un, tok)
		return un, nil
	}
	return p.parsePower()
}

// parsePower handles right-associative '^'. The exponent may carry its own
// sign, as in 2^-1.
func (p *parser) parsePower() (ast.Expression, error) {
	start, err := p.peek()
	if err != nil {
		return nil, err
	}
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if !tok.is(TokenOperator, "^") {
		return base, nil
	}
	p.next()
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	bin := ast.NewBinaryExpression("^", base, exp)
	p.setSpan(bin, start)
	return bin, nil
}

func (p *parser) parsePrimary() (ast.Expression, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch {
	case tok.Kind == TokenNumber:
		lit := ast.NewNumberLiteral(tok.Lexeme)
		p.setSpan(lit, tok)
		return lit, nil
	case tok.Kind == TokenIdent:
		next, err := p.peek()
		if err != nil {
			return nil, err
		}
		if next.is(TokenPunctuation, "(") {
			return p.parseCall(tok)
		}
		id := ast.NewIdentifier(tok.Lexeme)
		p.setSpan(id, tok)
		return id, nil
	case tok.is(TokenPunctuation, "("):
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenPunctuation, ")", "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, p.unexpected(tok, "expression")
}

func (p *parser) parseCall(name Token) (ast.Expression, error) {
	p.next() // '('
	callee := ast.NewIdentifier(name.Lexeme)
	p.setSpan(callee, name)

	var args []ast.Expression
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if !tok.is(TokenPunctuation, ")") {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if err := p.skipNewlines(); err != nil {
				return nil, err
			}
			sep, err := p.peek()
			if err != nil {
				return nil, err
			}
			if !sep.is(TokenPunctuation, ",") {
				break
			}
			p.next()
			if err := p.skipNewlines(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(TokenPunctuation, ")", "')'"); err != nil {
		return nil, err
	}
	call := ast.NewFunctionCall(callee, args)
	p.setSpan(call, name)
	return call, nil
}
