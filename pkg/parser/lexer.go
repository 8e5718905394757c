package parser

import (
	"strings"
	"unicode/utf8"

	"bc-cli/pkg/ast"
)

// Lexer produces tokens lazily from an in-memory source. It can be rewound
// with Reset.
type Lexer struct {
	src  string
	off  int
	line int
	col  int
}

// NewLexer creates a lexer positioned at the start of src.
func NewLexer(src string) *Lexer {
	l := &Lexer{src: src}
	l.Reset()
	return l
}

// Reset rewinds the lexer to the start of its source.
func (l *Lexer) Reset() {
	l.off = 0
	l.line = 1
	l.col = 1
}

// All drains the lexer, returning every token up to and including EOF.
func (l *Lexer) All() ([]Token, error) {
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokenEOF {
			return toks, nil
		}
	}
}

func (l *Lexer) pos() ast.Position {
	return ast.Position{Line: l.line, Column: l.col}
}

func (l *Lexer) peekByte(ahead int) byte {
	if l.off+ahead >= len(l.src) {
		return 0
	}
	return l.src[l.off+ahead]
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n && l.off < len(l.src); i++ {
		if l.src[l.off] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.off++
	}
}

// Next returns the next token. At the end of input it keeps returning EOF.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipWhitespace(); err != nil {
		return Token{}, err
	}
	start := l.pos()
	if l.off >= len(l.src) {
		return Token{Kind: TokenEOF, Pos: start}, nil
	}

	ch := l.src[l.off]
	switch {
	case ch == '\n':
		l.advance(1)
		return Token{Kind: TokenPunctuation, Lexeme: "\n", Pos: start}, nil
	case isDigit(ch) || isUpperDigit(ch) || (ch == '.' && isDigit(l.peekByte(1))):
		return Token{Kind: TokenNumber, Lexeme: l.readNumber(), Pos: start}, nil
	case isIdentStart(ch):
		lit := l.readIdent()
		if IsKeyword(lit) {
			return Token{Kind: TokenKeyword, Lexeme: lit, Pos: start}, nil
		}
		return Token{Kind: TokenIdent, Lexeme: lit, Pos: start}, nil
	}

	switch ch {
	case '(', ')', '{', '}', ',', ';':
		l.advance(1)
		return Token{Kind: TokenPunctuation, Lexeme: string(ch), Pos: start}, nil
	case '=', '!', '<', '>':
		if l.peekByte(1) == '=' {
			l.advance(2)
			return Token{Kind: TokenOperator, Lexeme: string(ch) + "=", Pos: start}, nil
		}
		l.advance(1)
		return Token{Kind: TokenOperator, Lexeme: string(ch), Pos: start}, nil
	case '&', '|':
		if l.peekByte(1) == ch {
			l.advance(2)
			return Token{Kind: TokenOperator, Lexeme: string([]byte{ch, ch}), Pos: start}, nil
		}
	case '+', '-', '*', '/', '%', '^':
		l.advance(1)
		return Token{Kind: TokenOperator, Lexeme: string(ch), Pos: start}, nil
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.off:])
	return Token{}, &LexError{Pos: start, Char: r}
}

// skipWhitespace skips blanks, comments and line continuations. Newlines
// are significant and are left in place.
func (l *Lexer) skipWhitespace() error {
	for l.off < len(l.src) {
		switch ch := l.src[l.off]; {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\f' || ch == '\v':
			l.advance(1)
		case ch == '\\' && l.peekByte(1) == '\n':
			l.advance(2)
		case ch == '\\' && l.peekByte(1) == '\r' && l.peekByte(2) == '\n':
			l.advance(3)
		case ch == '#':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance(1)
			}
		case ch == '/' && l.peekByte(1) == '*':
			start := l.pos()
			l.advance(2)
			for {
				if l.off >= len(l.src) {
					return &LexError{Pos: start, Char: '/', Unterminated: true}
				}
				if l.src[l.off] == '*' && l.peekByte(1) == '/' {
					l.advance(2)
					break
				}
				l.advance(1)
			}
		default:
			return nil
		}
	}
	return nil
}

// readNumber consumes digits 0-9A-F with at most one radix point. A
// backslash-newline inside the digits is dropped, so wrapped output lexes
// back as one literal.
func (l *Lexer) readNumber() string {
	var lit []byte
	seenDot := false
	for l.off < len(l.src) {
		ch := l.src[l.off]
		if ch == '\\' {
			n := continuationLen(l.src[l.off:])
			if n == 0 || !isNumberPart(l.peekByte(n)) || (l.peekByte(n) == '.' && seenDot) {
				break
			}
			l.advance(n)
			continue
		}
		if ch == '.' {
			if seenDot {
				break
			}
			seenDot = true
		} else if !isDigit(ch) && !isUpperDigit(ch) {
			break
		}
		lit = append(lit, ch)
		l.advance(1)
	}
	return string(lit)
}

// continuationLen returns the length of a backslash-newline at the start
// of s, or 0.
func continuationLen(s string) int {
	switch {
	case strings.HasPrefix(s, "\\\n"):
		return 2
	case strings.HasPrefix(s, "\\\r\n"):
		return 3
	}
	return 0
}

func (l *Lexer) readIdent() string {
	start := l.off
	for l.off < len(l.src) && isIdentPart(l.src[l.off]) {
		l.advance(1)
	}
	return l.src[start:l.off]
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isNumberPart(ch byte) bool { return isDigit(ch) || isUpperDigit(ch) || ch == '.' }

// isUpperDigit reports the digits above 9. They always begin a number, so
// identifiers start with a lowercase letter or '_'.
func isUpperDigit(ch byte) bool { return ch >= 'A' && ch <= 'F' }

func isIdentStart(ch byte) bool { return ch == '_' || (ch >= 'a' && ch <= 'z') }

func isIdentPart(ch byte) bool { return isIdentStart(ch) || (ch >= 'A' && ch <= 'Z') || isDigit(ch) }
