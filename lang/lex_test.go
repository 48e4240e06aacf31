package lang

import (
	"errors"
	"testing"
)

func TestTokenize_Continuation(t *testing.T) {
	tests := []struct {
		name   string
		joined string
		split  string
	}{
		{"array", "arr = [1, 2, 3]", "arr = [1, 2, $\n 3]"},
		{"comment after marker", "x = 1 + 2", "x = 1 + $ ; more\n2"},
		{"crlf", "PRINT, a, b", "PRINT, a, $\r\nb"},
		{"procedure", "PLOT, x, y, /XLOG", "PLOT, x, $\n  y, $\n  /XLOG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := Tokenize(tt.joined)
			if err != nil {
				t.Fatalf("tokenize %q: %v", tt.joined, err)
			}

			got, err := Tokenize(tt.split)
			if err != nil {
				t.Fatalf("tokenize %q: %v", tt.split, err)
			}

			if len(got) != len(want) {
				t.Fatalf("got %d tokens, want %d", len(got), len(want))
			}

			for i := range want {
				if !got[i].Same(want[i]) {
					t.Errorf("token %d: got %v %q, want %v %q",
						i, got[i].Kind, got[i].Text, want[i].Kind, want[i].Text)
				}
			}
		})
	}
}

func TestTokenize_CaseInsensitive(t *testing.T) {
	toks, err := Tokenize("For myVar = 0, 9 dO x")
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}

	want := []struct {
		kind Kind
		key  string
		text string
	}{
		{Keyword, "FOR", "For"},
		{Identifier, "MYVAR", "myVar"},
		{Operator, "=", "="},
		{Int, "0", "0"},
		{Operator, ",", ","},
		{Int, "9", "9"},
		{Keyword, "DO", "dO"},
		{Identifier, "X", "x"},
		{EOF, "", ""},
	}

	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}

	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Key != w.key || toks[i].Text != w.text {
			t.Errorf("token %d: got {%v %q %q}, want {%v %q %q}",
				i, toks[i].Kind, toks[i].Key, toks[i].Text, w.kind, w.key, w.text)
		}
	}
}

func TestTokenize_Numbers(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
		key   string
	}{
		{"42", Int, "42"},
		{"42L", Int, "42"},
		{"7ULL", Int, "7"},
		{"3.14", Float, "3.14"},
		{".5", Float, "0.5"},
		{"2.", Float, "2."},
		{"1e3", Float, "1e3"},
		{"1.5E-2", Float, "1.5e-2"},
		{"1.5d0", Double, "1.5e0"},
		{"2D+3", Double, "2e+3"},
		{"5d", Double, "5"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("tokenize error: %v", err)
			}

			if toks[0].Kind != tt.kind || toks[0].Key != tt.key {
				t.Errorf("got {%v %q}, want {%v %q}", toks[0].Kind, toks[0].Key, tt.kind, tt.key)
			}

			if toks[0].Text != tt.input {
				t.Errorf("text: got %q, want %q", toks[0].Text, tt.input)
			}
		})
	}
}

func TestTokenize_Strings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`'hello'`, "hello"},
		{`"hello"`, "hello"},
		{`'it''s'`, "it's"},
		{`"say ""hi"""`, `say "hi"`},
		{`'a;b'`, "a;b"},
		{`''`, ""},
	}

	for _, tt := range tests {
		toks, err := Tokenize(tt.input)
		if err != nil {
			t.Errorf("tokenize %s: %v", tt.input, err)

			continue
		}

		if toks[0].Kind != String || toks[0].Key != tt.want {
			t.Errorf("tokenize %s: got {%v %q}, want %q", tt.input, toks[0].Kind, toks[0].Key, tt.want)
		}
	}
}

func TestTokenize_Comments(t *testing.T) {
	toks, err := Tokenize("x = 1 ; set x\n; whole line\ny = 2")
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}

	var idents []string

	for _, tok := range toks {
		if tok.Kind == Identifier {
			idents = append(idents, tok.Key)
		}
	}

	if len(idents) != 2 || idents[0] != "X" || idents[1] != "Y" {
		t.Errorf("got identifiers %v, want [X Y]", idents)
	}
}

func TestTokenize_SysVarAndInclude(t *testing.T) {
	toks, err := Tokenize("x = !pi\n@lib/setup")
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}

	if toks[2].Kind != SysVar || toks[2].Key != "!PI" || toks[2].Text != "!pi" {
		t.Errorf("got {%v %q %q}, want SysVar !PI", toks[2].Kind, toks[2].Key, toks[2].Text)
	}

	if toks[4].Kind != Include || toks[4].Key != "lib/setup" {
		t.Errorf("got {%v %q}, want Include lib/setup", toks[4].Kind, toks[4].Key)
	}
}

func TestTokenize_SysVarNames(t *testing.T) {
	tests := []struct {
		input string
		key   string
	}{
		{"!dtor", "!DTOR"},
		{"!NULL", "!NULL"},
		{"!Radeg", "!RADEG"},
		{"!c2", "!C2"},
	}

	for _, tt := range tests {
		toks, err := Tokenize(tt.input)
		if err != nil {
			t.Fatalf("Tokenize(%q) error: %v", tt.input, err)
		}

		if toks[0].Kind != SysVar || toks[0].Key != tt.key || toks[0].Text != tt.input {
			t.Errorf("Tokenize(%q) = {%v %q %q}, want SysVar %s",
				tt.input, toks[0].Kind, toks[0].Key, toks[0].Text, tt.key)
		}
	}
}

func TestTokenize_Ampersand(t *testing.T) {
	toks, err := Tokenize("a = 1 & b = 2")
	if err != nil {
		t.Fatalf("tokenize error: %v", err)
	}

	if toks[3].Kind != Newline {
		t.Errorf("got %v, want Newline", toks[3].Kind)
	}
}

func TestTokenize_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		col   int
	}{
		{"unterminated string", "x = 'abc", 1, 5},
		{"string across lines", "x = \"abc\ny\"", 1, 5},
		{"invalid character", "x = `y`", 1, 5},
		{"bad exponent", "x = 1e+", 1, 5},
		{"trailing letters", "x = 12abc", 1, 5},
		{"two decimal points", "y = 1.2.3", 1, 5},
		{"marker mid-line", "x = $ 1", 1, 5},
		{"bare bang", "x = !", 1, 5},
		{"second line", "a = 1\nb = 'x", 2, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := Tokenize(tt.input)
			if err == nil {
				t.Fatalf("expected error, got %d tokens", len(toks))
			}

			if toks != nil {
				t.Errorf("expected no tokens on error, got %d", len(toks))
			}

			if !errors.Is(err, ErrLex) {
				t.Errorf("expected ErrLex, got %v", err)
			}

			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected *SyntaxError in %v", err)
			}

			if se.Pos.Line != tt.line || se.Pos.Column != tt.col {
				t.Errorf("position: got %d:%d, want %d:%d",
					se.Pos.Line, se.Pos.Column, tt.line, tt.col)
			}
		})
	}
}
