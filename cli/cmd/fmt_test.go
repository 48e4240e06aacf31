package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/xdl/lang"
)

func TestFmt_Formats(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir, "s.pro", "if x gt 1 then y=2 else y=3\n")

	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{"native", func(t *testing.T, out string) {
			if !strings.Contains(out, "IF x GT 1 THEN") {
				t.Errorf("keywords not canonical: %q", out)
			}

			if _, err := lang.ParseString(t.Context(), out); err != nil {
				t.Errorf("formatted output does not parse: %v", err)
			}
		}},
		{"json", func(t *testing.T, out string) {
			var m map[string]any
			if err := json.Unmarshal([]byte(out), &m); err != nil {
				t.Fatalf("not JSON: %v", err)
			}

			if _, ok := m["program"]; !ok {
				t.Errorf("missing program key: %v", m)
			}
		}},
		{"yaml", func(t *testing.T, out string) {
			var m map[string]any
			if err := yaml.Unmarshal([]byte(out), &m); err != nil {
				t.Fatalf("not YAML: %v", err)
			}

			if _, ok := m["program"]; !ok {
				t.Errorf("missing program key: %v", m)
			}
		}},
		{"ast", func(t *testing.T, out string) {
			lines := strings.Split(strings.TrimSpace(out), "\n")
			if !strings.HasPrefix(lines[0], "if @1:1") {
				t.Errorf("first line: got %q", lines[0])
			}

			if !strings.Contains(out, "    binary @1:6 op=GT") {
				t.Errorf("condition missing or misindented:\n%s", out)
			}
		}},
		{"tokens", func(t *testing.T, out string) {
			lines := strings.Split(strings.TrimSpace(out), "\n")
			if lines[0] != "1:1\tKeyword\tif" {
				t.Errorf("first token: got %q", lines[0])
			}

			if !strings.HasPrefix(lines[len(lines)-1], "2:1\tEOF") {
				t.Errorf("last token: got %q", lines[len(lines)-1])
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var out bytes.Buffer

			f := &Fmt{Format: tt.format, Indent: 2, Sources: []string{script}, out: &out}
			if err := f.Run(t.Context()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			tt.check(t, out.String())
		})
	}
}

func TestFmt_Idempotent(t *testing.T) {
	dir := t.TempDir()
	src := "pro p,a,KEY=k\nfor i=0,3 do begin\nprint,i\nendfor\nend\n"

	var first, second bytes.Buffer

	f := &Fmt{Format: "native", Indent: 4, Sources: []string{writeScript(t, dir, "a.pro", src)}, out: &first}
	if err := f.Run(t.Context()); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	f = &Fmt{Format: "native", Indent: 4, Sources: []string{writeScript(t, dir, "b.pro", first.String())}, out: &second}
	if err := f.Run(t.Context()); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if first.String() != second.String() {
		t.Errorf("not idempotent:\n%s\n---\n%s", first.String(), second.String())
	}
}

func TestFmt_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		format string
		src    string
		want   error
	}{
		{"parse", "native", "x = [1, 2", lang.ErrParse},
		{"parse json", "json", "IF THEN", lang.ErrParse},
		{"lex", "tokens", "x = 1 ` 2", lang.ErrLex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			f := &Fmt{Format: tt.format, Sources: []string{writeScript(t, dir, tt.name+".pro", tt.src)}, out: &out}

			err := f.Run(t.Context())
			if !errors.Is(err, ErrFormat) || !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v and %v", err, ErrFormat, tt.want)
			}
		})
	}
}
