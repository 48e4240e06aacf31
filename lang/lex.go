package lang

import (
	"strings"
)

// Tokenize converts source text into a token stream terminated by an EOF
// token. Any failure aborts the whole unit and no tokens are returned.
//
// A '$' that is the last non-blank character of a line (optionally followed
// by a comment) joins the line with the next one.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{src: src, line: 1, col: 1}

	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}

		lx.toks = append(lx.toks, tok)

		if tok.Kind == EOF {
			return lx.toks, nil
		}
	}
}

type lexer struct {
	src  string
	off  int
	line int
	col  int
	toks []Token
}

func (lx *lexer) pos() Pos {
	return Pos{Offset: lx.off, Line: lx.line, Column: lx.col}
}

func (lx *lexer) peek(n int) byte {
	if lx.off+n >= len(lx.src) {
		return 0
	}

	return lx.src[lx.off+n]
}

func (lx *lexer) advance() byte {
	c := lx.src[lx.off]
	lx.off++

	if c == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}

	return c
}

// skipBlank skips spaces, tabs, carriage returns, comments, and line
// continuations. It stops at a line break.
func (lx *lexer) skipBlank() error {
	for lx.off < len(lx.src) {
		switch c := lx.peek(0); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f':
			lx.advance()
		case c == ';':
			for lx.off < len(lx.src) && lx.peek(0) != '\n' {
				lx.advance()
			}
		case c == '$':
			if !lx.continuation() {
				return lexError(lx.pos(), "invalid character", "$")
			}
		default:
			return nil
		}
	}

	return nil
}

// continuation consumes a '$' marker through the following line break when
// nothing but blanks or a comment follows it on the line.
func (lx *lexer) continuation() bool {
	i := lx.off + 1
	for i < len(lx.src) && (lx.src[i] == ' ' || lx.src[i] == '\t' ||
		lx.src[i] == '\r') {
		i++
	}

	if i < len(lx.src) && lx.src[i] == ';' {
		for i < len(lx.src) && lx.src[i] != '\n' {
			i++
		}
	}

	if i < len(lx.src) && lx.src[i] != '\n' {
		return false
	}

	for lx.off < i {
		lx.advance()
	}

	if lx.off < len(lx.src) {
		lx.advance() // '\n'
	}

	return true
}

func (lx *lexer) next() (Token, error) {
	if err := lx.skipBlank(); err != nil {
		return Token{}, err
	}

	start := lx.pos()

	if lx.off >= len(lx.src) {
		return Token{Kind: EOF, Pos: start}, nil
	}

	c := lx.peek(0)

	switch {
	case c == '\n':
		lx.advance()

		return Token{Kind: Newline, Key: "\n", Text: "\n", Pos: start}, nil

	case isLetter(c):
		return lx.word(start), nil

	case isDigit(c) || (c == '.' && isDigit(lx.peek(1))):
		return lx.number(start)

	case c == '\'' || c == '"':
		return lx.str(start)

	case c == '!':
		if !isLetter(lx.peek(1)) {
			return Token{}, lexError(start, "invalid character", "!")
		}

		lx.advance()

		// word spans from start, so Key and Text keep the '!'.
		tok := lx.word(start)
		tok.Kind = SysVar

		return tok, nil

	case c == '@':
		return lx.include(start)
	}

	return lx.operator(start)
}

func (lx *lexer) word(start Pos) Token {
	for lx.off < len(lx.src) && isWordChar(lx.peek(0)) {
		lx.advance()
	}

	text := lx.src[start.Offset:lx.off]
	key := strings.ToUpper(text)

	kind := Identifier
	if _, ok := keywords[key]; ok {
		kind = Keyword
	}

	return Token{Kind: kind, Key: key, Text: text, Pos: start}
}

var integerSuffixes = []string{"ULL", "LL", "UL", "US", "U", "L", "S", "B"}

func (lx *lexer) number(start Pos) (Token, error) {
	var key strings.Builder

	kind := Int

	digits := func() int {
		n := 0
		for lx.off < len(lx.src) && isDigit(lx.peek(0)) {
			key.WriteByte(lx.advance())
			n++
		}

		return n
	}

	digits()

	if lx.peek(0) == '.' {
		key.WriteByte(lx.advance())

		kind = Float

		digits()

		if lx.peek(0) == '.' && isDigit(lx.peek(1)) {
			return Token{}, lexError(start, "invalid numeric literal",
				lx.src[start.Offset:lx.off+2])
		}
	}

	if e := lx.peek(0); e == 'e' || e == 'E' || e == 'd' || e == 'D' {
		double := e == 'd' || e == 'D'
		sign := lx.peek(1) == '+' || lx.peek(1) == '-'

		switch {
		case isDigit(lx.peek(1)) || (sign && isDigit(lx.peek(2))):
			lx.advance()
			key.WriteByte('e')

			if sign {
				key.WriteByte(lx.advance())
			}

			digits()

			kind = Float
			if double {
				kind = Double
			}

		case double && !isWordChar(lx.peek(1)):
			// bare trailing 'd' marks a double-precision literal
			lx.advance()

			kind = Double

		case sign || !isWordChar(lx.peek(1)):
			lx.advance()

			return Token{}, lexError(start, "invalid numeric literal",
				lx.src[start.Offset:lx.off])
		}
	}

	if kind == Int {
		rest := strings.ToUpper(lx.src[lx.off:])
		for _, sfx := range integerSuffixes {
			if strings.HasPrefix(rest, sfx) &&
				!isWordChar(byteAt(rest, len(sfx))) {
				for range sfx {
					lx.advance()
				}

				break
			}
		}
	}

	if isWordChar(lx.peek(0)) || lx.peek(0) == '.' && isDigit(lx.peek(1)) {
		for lx.off < len(lx.src) && isWordChar(lx.peek(0)) {
			lx.advance()
		}

		return Token{}, lexError(start, "invalid numeric literal",
			lx.src[start.Offset:lx.off])
	}

	k := key.String()
	if strings.HasPrefix(k, ".") {
		k = "0" + k
	}

	return Token{
		Kind: kind,
		Key:  k,
		Text: lx.src[start.Offset:lx.off],
		Pos:  start,
	}, nil
}

func (lx *lexer) str(start Pos) (Token, error) {
	quote := lx.advance()

	var key strings.Builder

	for {
		if lx.off >= len(lx.src) || lx.peek(0) == '\n' {
			return Token{}, lexError(start, "unterminated string",
				lx.src[start.Offset:lx.off])
		}

		c := lx.advance()
		if c == quote {
			if lx.peek(0) != quote {
				break
			}

			lx.advance()
		}

		key.WriteByte(c)
	}

	return Token{
		Kind: String,
		Key:  key.String(),
		Text: lx.src[start.Offset:lx.off],
		Pos:  start,
	}, nil
}

func (lx *lexer) include(start Pos) (Token, error) {
	lx.advance()

	begin := lx.off
	for lx.off < len(lx.src) {
		c := lx.peek(0)
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == ';' {
			break
		}

		lx.advance()
	}

	name := lx.src[begin:lx.off]
	if name == "" {
		return Token{}, lexError(start, "missing include file name", "@")
	}

	return Token{
		Kind: Include,
		Key:  name,
		Text: lx.src[start.Offset:lx.off],
		Pos:  start,
	}, nil
}

// operators lists symbolic operators, longest first.
var operators = []string{
	"##", "+=", "-=", "*=", "/=", "&&", "||",
	"+", "-", "*", "/", "^", "#", "<", ">", "=", "(", ")", "[", "]",
	",", ":", "?", "~", "&",
}

func (lx *lexer) operator(start Pos) (Token, error) {
	rest := lx.src[lx.off:]

	for _, op := range operators {
		if !strings.HasPrefix(rest, op) {
			continue
		}

		for range op {
			lx.advance()
		}

		if op == "&" {
			return Token{Kind: Newline, Key: "&", Text: "&", Pos: start}, nil
		}

		return Token{Kind: Operator, Key: op, Text: op, Pos: start}, nil
	}

	return Token{}, lexError(start, "invalid character", rest[:1])
}

func byteAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}

	return 0
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isWordChar(c byte) bool { return isLetter(c) || isDigit(c) }
