package parser

import (
	"errors"
	"fmt"

	"bc-cli/pkg/ast"
)

var (
	// ErrLex indicates a lexer failure.
	ErrLex = errors.New("lex error")

	// ErrParse indicates a parser failure.
	ErrParse = errors.New("parse error")

	// ErrIncompleteInput indicates the input ended where more tokens were
	// required. A REPL should read another line and retry.
	ErrIncompleteInput = errors.New("incomplete input")
)

// LexError reports a character the lexer cannot accept, or a block comment
// that runs to the end of the input.
type LexError struct {
	Pos          ast.Position
	Char         rune
	Unterminated bool
}

func (e *LexError) Error() string {
	if e.Unterminated {
		return fmt.Sprintf("%s: unterminated comment", e.Pos)
	}
	return fmt.Sprintf("%s: unexpected character %q", e.Pos, e.Char)
}

func (e *LexError) Unwrap() error { return ErrLex }

// ParseError reports the first token the parser could not accept.
type ParseError struct {
	Pos      ast.Position
	Expected string
	Found    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// IncompleteInputError is returned by ParseIncremental when the input stops
// early.
type IncompleteInputError struct {
	Pos      ast.Position
	Expected string
}

func (e *IncompleteInputError) Error() string {
	return fmt.Sprintf("%s: incomplete input, expected %s", e.Pos, e.Expected)
}

func (e *IncompleteInputError) Unwrap() error { return ErrIncompleteInput }
