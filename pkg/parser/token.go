package parser

import (
	"fmt"

	"bc-cli/pkg/ast"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenNumber
	TokenIdent
	TokenKeyword
	TokenOperator
	TokenPunctuation
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenNumber:
		return "Number"
	case TokenIdent:
		return "Ident"
	case TokenKeyword:
		return "Keyword"
	case TokenOperator:
		return "Operator"
	case TokenPunctuation:
		return "Punctuation"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is a lexeme with its kind and the position of its first character.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Pos    ast.Position
}

// end returns the position just past the token on its line.
func (t Token) end() ast.Position {
	return ast.Position{Line: t.Pos.Line, Column: t.Pos.Column + len(t.Lexeme)}
}

func (t Token) describe() string {
	switch t.Kind {
	case TokenEOF:
		return "end of input"
	case TokenPunctuation:
		if t.Lexeme == "\n" {
			return "newline"
		}
	}
	return fmt.Sprintf("%q", t.Lexeme)
}

func (t Token) is(kind TokenKind, lexeme string) bool {
	return t.Kind == kind && t.Lexeme == lexeme
}

// isTerminator reports whether t ends a statement.
func (t Token) isTerminator() bool {
	return t.Kind == TokenEOF || t.is(TokenPunctuation, ";") || t.is(TokenPunctuation, "\n")
}

var keywords = map[string]struct{}{
	"if":     {},
	"else":   {},
	"while":  {},
	"define": {},
	"return": {},
	"print":  {},
}

// IsKeyword reports whether name is reserved.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}
