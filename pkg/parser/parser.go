package parser

import (
	"errors"

	"bc-cli/pkg/ast"
)

// ParseProgram parses a complete script.
func ParseProgram(src string) (*ast.Program, error) {
	p := newParser(src, false)
	return p.parseProgram()
}

// ParseIncremental parses REPL input. When src ends where more tokens are
// needed, or inside a block comment, it returns an *IncompleteInputError
// instead of a syntax error.
func ParseIncremental(src string) (*ast.Program, error) {
	p := newParser(src, true)
	return p.parseProgram()
}

type parser struct {
	lex         *Lexer
	buf         Token
	has         bool
	prev        Token
	incremental bool
	blockDepth  int
	inFunction  bool
}

func newParser(src string, incremental bool) *parser {
	return &parser{lex: NewLexer(src), incremental: incremental}
}

func (p *parser) lexError(err error) error {
	var lexErr *LexError
	if p.incremental && errors.As(err, &lexErr) && lexErr.Unterminated {
		return &IncompleteInputError{Pos: lexErr.Pos, Expected: "end of comment"}
	}
	return err
}

// next consumes and returns the next token.
func (p *parser) next() (Token, error) {
	if p.has {
		p.has = false
		p.prev = p.buf
		return p.buf, nil
	}
	tok, err := p.lex.Next()
	if err != nil {
		return tok, p.lexError(err)
	}
	p.prev = tok
	return tok, nil
}

// peek returns the next token without consuming it.
func (p *parser) peek() (Token, error) {
	if p.has {
		return p.buf, nil
	}
	tok, err := p.lex.Next()
	if err != nil {
		return tok, p.lexError(err)
	}
	p.buf = tok
	p.has = true
	return tok, nil
}

// unexpected builds the error for tok. Running out of input while parsing
// incrementally is reported as incomplete rather than as a syntax error.
func (p *parser) unexpected(tok Token, expected string) error {
	if tok.Kind == TokenEOF && p.incremental {
		return &IncompleteInputError{Pos: tok.Pos, Expected: expected}
	}
	return &ParseError{Pos: tok.Pos, Expected: expected, Found: tok.describe()}
}

func (p *parser) expect(kind TokenKind, lexeme string, expected string) (Token, error) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if !tok.is(kind, lexeme) {
		return tok, p.unexpected(tok, expected)
	}
	return tok, nil
}

func (p *parser) skipNewlines() error {
	for {
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if !tok.is(TokenPunctuation, "\n") {
			return nil
		}
		p.next()
	}
}

// skipSeparators consumes empty statements.
func (p *parser) skipSeparators() error {
	for {
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if !tok.is(TokenPunctuation, "\n") && !tok.is(TokenPunctuation, ";") {
			return nil
		}
		p.next()
	}
}

func (p *parser) setSpan(node ast.Node, start Token) {
	ast.SetSpan(node, ast.Span{Start: start.Pos, End: p.prev.end()})
}

func (p *parser) parseProgram() (*ast.Program, error) {
	startTok, err := p.peek()
	if err != nil {
		return nil, err
	}
	var body []ast.Statement
	for {
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == TokenEOF {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
		if err := p.endStatement(false); err != nil {
			return nil, err
		}
	}
	prog := ast.NewProgram(body)
	p.setSpan(prog, startTok)
	return prog, nil
}

// endStatement consumes the terminator after a statement. A statement that
// ended with '}' needs none, and inside a block '}' closes the last one.
func (p *parser) endStatement(inBlock bool) error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	switch {
	case tok.is(TokenPunctuation, ";"), tok.is(TokenPunctuation, "\n"):
		p.next()
		return nil
	case tok.Kind == TokenEOF && !inBlock:
		return nil
	case inBlock && tok.is(TokenPunctuation, "}"):
		return nil
	case p.prev.is(TokenPunctuation, "}"):
		return nil
	}
	return p.unexpected(tok, "newline or ';'")
}

func (p *parser) parseStatement() (ast.Statement, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokenKeyword {
		switch tok.Lexeme {
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile()
		case "define":
			return p.parseDefine()
		case "return":
			return p.parseReturn()
		case "print":
			return p.parsePrint()
		}
		return nil, p.unexpected(tok, "statement")
	}
	if tok.is(TokenPunctuation, "{") {
		return p.parseBlock()
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt := ast.NewExpressionStatement(expr)
	p.setSpan(stmt, tok)
	return stmt, nil
}

func (p *parser) parseBlock() (*ast.BlockStatement, error) {
	open, err := p.expect(TokenPunctuation, "{", "'{'")
	if err != nil {
		return nil, err
	}
	p.blockDepth++
	defer func() { p.blockDepth-- }()

	var body []ast.Statement
	for {
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.is(TokenPunctuation, "}") {
			p.next()
			break
		}
		if tok.Kind == TokenEOF {
			return nil, p.unexpected(tok, "'}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
		if err := p.endStatement(true); err != nil {
			return nil, err
		}
	}
	block := ast.NewBlockStatement(body)
	p.setSpan(block, open)
	return block, nil
}

// parseBody parses the statement controlled by if, else or while. A lone
// ';' is an empty body. The body counts as nested, so define is rejected.
func (p *parser) parseBody() (ast.Statement, error) {
	p.blockDepth++
	defer func() { p.blockDepth-- }()
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Kind == TokenEOF {
		return nil, p.unexpected(tok, "statement")
	}
	if tok.is(TokenPunctuation, ";") {
		p.next()
		empty := ast.NewBlockStatement(nil)
		p.setSpan(empty, tok)
		return empty, nil
	}
	return p.parseStatement()
}

func (p *parser) parseCondition() (ast.Expression, error) {
	if _, err := p.expect(TokenPunctuation, "(", "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenPunctuation, ")", "')'"); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *parser) parseIf() (ast.Statement, error) {
	start, _ := p.next()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	var elseBranch ast.Statement
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.is(TokenKeyword, "else") {
		p.next()
		if elseBranch, err = p.parseBody(); err != nil {
			return nil, err
		}
	}
	stmt := ast.NewIfStatement(cond, then, elseBranch)
	p.setSpan(stmt, start)
	return stmt, nil
}

func (p *parser) parseWhile() (ast.Statement, error) {
	start, _ := p.next()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	stmt := ast.NewWhileStatement(cond, body)
	p.setSpan(stmt, start)
	return stmt, nil
}

func (p *parser) parseIdentifier(expected string) (*ast.Identifier, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokenIdent {
		return nil, p.unexpected(tok, expected)
	}
	id := ast.NewIdentifier(tok.Lexeme)
	p.setSpan(id, tok)
	return id, nil
}

func (p *parser) parseDefine() (ast.Statement, error) {
	start, _ := p.next()
	if p.blockDepth > 0 || p.inFunction {
		return nil, &ParseError{Pos: start.Pos, Expected: "statement", Found: "'define' outside top level"}
	}
	name, err := p.parseIdentifier("function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenPunctuation, "(", "'('"); err != nil {
		return nil, err
	}

	var params []*ast.Identifier
	seen := make(map[string]struct{})
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if !tok.is(TokenPunctuation, ")") {
		for {
			param, err := p.parseIdentifier("parameter name")
			if err != nil {
				return nil, err
			}
			if _, dup := seen[param.Name]; dup {
				return nil, &ParseError{Pos: param.Span().Start, Expected: "distinct parameter names", Found: "duplicate " + param.Name}
			}
			seen[param.Name] = struct{}{}
			params = append(params, param)
			sep, err := p.peek()
			if err != nil {
				return nil, err
			}
			if !sep.is(TokenPunctuation, ",") {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(TokenPunctuation, ")", "')'"); err != nil {
		return nil, err
	}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}

	p.inFunction = true
	body, err := p.parseBlock()
	p.inFunction = false
	if err != nil {
		return nil, err
	}
	def := ast.NewFunctionDefinition(name, params, body)
	p.setSpan(def, start)
	return def, nil
}

func (p *parser) parseReturn() (ast.Statement, error) {
	start, _ := p.next()
	if !p.inFunction {
		return nil, &ParseError{Pos: start.Pos, Expected: "statement", Found: "'return' outside a function"}
	}
	var arg ast.Expression
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if !tok.isTerminator() && !tok.is(TokenPunctuation, "}") {
		if arg, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	stmt := ast.NewReturnStatement(arg)
	p.setSpan(stmt, start)
	return stmt, nil
}

func (p *parser) parsePrint() (ast.Statement, error) {
	start, _ := p.next()
	var args []ast.Expression
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if !tok.is(TokenPunctuation, ",") {
			break
		}
		p.next()
	}
	stmt := ast.NewPrintStatement(args)
	p.setSpan(stmt, start)
	return stmt, nil
}
