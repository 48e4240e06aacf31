package lang

import (
	"bytes"
	"errors"
	"testing"
	"unicode/utf8"
)

// FuzzTokenize checks that the lexer either fails with ErrLex or produces a
// stream ending in exactly one EOF token.
func FuzzTokenize(f *testing.F) {
	f.Add("x = 1")
	f.Add("a[0:*] = FINDGEN(5) ; comment")
	f.Add("'it''s' + \"q\"")
	f.Add("y = 1.5d-3 + 3L + 2B")
	f.Add("PRINT, x, $\n  y")
	f.Add("!pi * 2 & @lib")
	f.Add("z = x ## y # w")

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("invalid UTF-8")
		}

		toks, err := Tokenize(input)
		if err != nil {
			if !errors.Is(err, ErrLex) {
				t.Errorf("unexpected error kind for %q: %v", input, err)
			}

			return
		}

		if len(toks) == 0 || toks[len(toks)-1].Kind != EOF {
			t.Fatalf("missing EOF for %q", input)
		}

		for i, tok := range toks[:len(toks)-1] {
			if tok.Kind == EOF {
				t.Errorf("EOF at token %d of %d for %q", i, len(toks), input)
			}
		}
	})
}

// FuzzFormat checks that any program that parses still parses after
// formatting, and that formatting is stable.
func FuzzFormat(f *testing.F) {
	f.Add("x = 1 + 2 * 3")
	f.Add("IF a THEN b = 1 ELSE b = 2")
	f.Add("FOR i = 0, 9 DO BEGIN\n  a[i] = i\nENDFOR")
	f.Add("CASE x OF\n1: y = 1\nELSE: y = 0\nENDCASE")
	f.Add("FUNCTION f, x, SCALE=s\nRETURN, x * s\nEND")
	f.Add("y = -(x + 1)^2 < 3 > 0")

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("invalid UTF-8")
		}

		prog, err := ParseString(t.Context(), input)
		if err != nil {
			return
		}

		var first bytes.Buffer
		if err := prog.Format(t.Context(), &first, 2); err != nil {
			t.Fatalf("format: %v", err)
		}

		again, err := ParseString(t.Context(), first.String())
		if err != nil {
			t.Fatalf("formatted output does not parse: %v\ninput: %q\noutput:\n%s",
				err, input, first.String())
		}

		var second bytes.Buffer
		if err := again.Format(t.Context(), &second, 2); err != nil {
			t.Fatalf("format: %v", err)
		}

		if first.String() != second.String() {
			t.Errorf("formatting is not stable:\n%s\n---\n%s", first.String(), second.String())
		}
	})
}
