package lang

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Kind classifies a Token.
type Kind uint8

// Token kinds.
const (
	EOF        Kind = iota
	Newline         // statement separator: line break or '&'
	Identifier      // identifier, Key is the uppercase spelling
	SysVar          // system variable such as !PI, Key includes the '!'
	Keyword         // reserved word, Key is the uppercase spelling
	Int             // integer literal
	Float           // single-precision literal
	Double          // double-precision literal
	String          // quoted string, Key is the decoded content
	Operator        // punctuation and symbolic operators
	Include         // @file directive, Key is the file name
)

var kindNames = [...]string{
	EOF:        "EOF",
	Newline:    "Newline",
	Identifier: "Identifier",
	SysVar:     "SysVar",
	Keyword:    "Keyword",
	Int:        "Int",
	Float:      "Float",
	Double:     "Double",
	String:     "String",
	Operator:   "Operator",
	Include:    "Include",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Pos is a location in source text. Line and Column are 1-based; Column
// counts bytes.
type Pos struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Pos) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// Token is a lexical unit.
//
// Key is the canonical comparison form: uppercase for identifiers, keywords
// and system variables, the decoded content for strings, and a normalized
// literal for numbers (a 'd' exponent becomes 'e', suffixes are dropped).
// Text keeps the original spelling for diagnostics.
type Token struct {
	Kind Kind   `json:"kind"`
	Key  string `json:"key"`
	Text string `json:"text"`
	Pos  Pos    `json:"pos"`
}

// Is reports whether t is the operator or keyword key.
func (t Token) Is(key string) bool {
	return (t.Kind == Operator || t.Kind == Keyword) && t.Key == key
}

// Same reports whether t and o are the same token ignoring position.
func (t Token) Same(o Token) bool {
	return t.Kind == o.Kind && t.Key == o.Key && t.Text == o.Text
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case Newline:
		return "end of line"
	default:
		return t.Text
	}
}

var keywords = map[string]struct{}{
	"IF": {}, "THEN": {}, "ELSE": {}, "ENDIF": {}, "ENDELSE": {},
	"FOR": {}, "ENDFOR": {}, "FOREACH": {}, "ENDFOREACH": {}, "IN": {},
	"WHILE": {}, "ENDWHILE": {}, "DO": {},
	"REPEAT": {}, "UNTIL": {}, "ENDREP": {},
	"BREAK": {}, "CONTINUE": {}, "BEGIN": {}, "END": {},
	"FUNCTION": {}, "ENDFUNCTION": {}, "PRO": {}, "ENDPRO": {}, "RETURN": {},
	"CASE": {}, "SWITCH": {}, "OF": {}, "ENDCASE": {}, "ENDSWITCH": {},
	"COMPILE_OPT": {}, "COMMON": {},
	"MOD": {}, "EQ": {}, "NE": {}, "LT": {}, "GT": {}, "LE": {}, "GE": {},
	"AND": {}, "OR": {}, "NOT": {}, "XOR": {},
}

// IsKeyword reports whether name is a reserved word, case-insensitively.
func IsKeyword(name string) bool {
	_, ok := keywords[strings.ToUpper(name)]

	return ok
}

// ReservedWords returns the reserved words in sorted order.
func ReservedWords() []string {
	return slices.Sorted(maps.Keys(keywords))
}

// Canonical returns the comparison key of an identifier.
func Canonical(name string) string { return strings.ToUpper(name) }
