package repl

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/xdl/lang"
)

var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
	signatureSeparatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// callSite describes the routine call enclosing the cursor.
type callSite struct {
	name      string // routine name as typed
	procedure bool   // NAME, args... rather than NAME(args...)
	argIndex  int    // 0-based positional argument under the cursor
	keyword   string // canonical keyword under the cursor, if any
	inCall    bool
}

// detectCall scans the statement holding the cursor and reports the
// innermost routine call whose argument list contains it. Commas inside
// strings, subscripts, and array literals are not argument separators.
func detectCall(input string, cursor int) callSite {
	cursor = min(max(cursor, 0), len(input))
	text := input[:cursor]

	// Only the statement under the cursor matters.
	if i := strings.LastIndexAny(text, "\n&"); i >= 0 {
		text = text[i+1:]
	}

	type frame struct {
		open     byte
		at       int // offset of the bracket
		commas   int
		argStart int
	}

	var (
		stack    []frame
		quote    byte
		top      = frame{argStart: 0}
		topLevel = true
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		if quote != 0 {
			if c == quote {
				quote = 0
			}

			continue
		}

		switch c {
		case ';':
			// Comment to end of line.
			text = text[:i]

		case '\'', '"':
			quote = c

		case '(', '[':
			stack = append(stack, frame{open: c, at: i, argStart: i + 1})
			topLevel = false

		case ')', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

			topLevel = len(stack) == 0

		case ',':
			if len(stack) > 0 {
				stack[len(stack)-1].commas++
				stack[len(stack)-1].argStart = i + 1
			} else {
				top.commas++
				top.argStart = i + 1
			}
		}
	}

	switch {
	case len(stack) > 0:
		f := stack[len(stack)-1]
		if f.open != '(' {
			return callSite{}
		}

		name := identBefore(text, f.at)
		if name == "" {
			return callSite{}
		}

		return callSite{
			name:     name,
			argIndex: f.commas,
			keyword:  keywordArg(text[f.argStart:]),
			inCall:   true,
		}

	case topLevel && top.commas > 0:
		// A procedure call statement starts with its name and a comma.
		head, _, _ := strings.Cut(strings.TrimSpace(text), ",")
		if !isIdentifier(head) || lang.IsKeyword(head) {
			return callSite{}
		}

		return callSite{
			name:      head,
			procedure: true,
			argIndex:  top.commas - 1,
			keyword:   keywordArg(text[top.argStart:]),
			inCall:    true,
		}
	}

	return callSite{}
}

// identBefore returns the identifier ending just before offset end, skipping
// blanks.
func identBefore(s string, end int) string {
	end = len(strings.TrimRight(s[:end], " \t"))
	start := end

	for start > 0 && isIdentChar(s[start-1]) {
		start--
	}

	if !isIdentifier(s[start:end]) {
		return ""
	}

	return s[start:end]
}

// keywordArg returns the canonical keyword name of an argument written as
// NAME=value or /NAME, or "" for a positional argument.
func keywordArg(arg string) string {
	arg = strings.TrimSpace(arg)

	if name, ok := strings.CutPrefix(arg, "/"); ok && isIdentifier(name) {
		return lang.Canonical(name)
	}

	name, _, ok := strings.Cut(arg, "=")
	if name = strings.TrimSpace(name); ok && isIdentifier(name) {
		return lang.Canonical(name)
	}

	return ""
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isIdentifier(s string) bool {
	if s == "" || s[0] == '$' || (s[0] >= '0' && s[0] <= '9') {
		return false
	}

	for i := range len(s) {
		if !isIdentChar(s[i]) {
			return false
		}
	}

	return true
}

// signature is the calling form of a builtin or user routine.
type signature struct {
	name      string
	procedure bool
	params    []string // positional, optional ones in brackets
	variadic  bool
	keywords  []string
}

func builtinSignature(b *lang.Builtin) signature {
	sig := signature{
		name:      b.Name,
		procedure: b.Procedure,
		variadic:  b.MaxArgs < 0,
		keywords:  b.Keywords,
	}

	for i, p := range b.Params {
		if i >= b.MinArgs {
			p = "[" + p + "]"
		}

		sig.params = append(sig.params, p)
	}

	return sig
}

func routineSignature(def *lang.RoutineDef) signature {
	name := def.Text
	if name == "" {
		name = def.Name
	}

	sig := signature{
		name:      name,
		procedure: !def.Function,
		params:    def.Params,
	}

	for _, k := range def.Keywords {
		sig.keywords = append(sig.keywords, k.Name)
	}

	return sig
}

// parts returns the rendered parameter list: positional parameters, "..."
// when variadic, then each keyword as "NAME=".
func (s signature) parts() []string {
	out := make([]string, 0, len(s.params)+len(s.keywords)+1)
	out = append(out, s.params...)

	if s.variadic {
		out = append(out, "...")
	}

	for _, k := range s.keywords {
		out = append(out, k+"=")
	}

	return out
}

func (s signature) String() string {
	if s.procedure {
		var sb strings.Builder

		sb.WriteString(s.name)

		for _, p := range s.parts() {
			sb.WriteString(", " + p)
		}

		return sb.String()
	}

	return s.name + "(" + strings.Join(s.parts(), ", ") + ")"
}

// current returns the index into parts() of the parameter the call site is
// filling, or -1.
func (s signature) current(call callSite) int {
	if call.keyword != "" {
		for i, k := range s.keywords {
			if strings.HasPrefix(lang.Canonical(k), call.keyword) {
				return len(s.params) + boolInt(s.variadic) + i
			}
		}

		return -1
	}

	switch {
	case call.argIndex < len(s.params):
		return call.argIndex
	case s.variadic:
		return len(s.params)
	}

	return -1
}

func boolInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// lookupSignature finds the routine named name: user routines first, since
// they shadow builtins, then the interpreter's registry.
func (m model) lookupSignature(name string, procedure bool) (signature, bool) {
	if def, ok := m.interp.Routine(name); ok && def.Function != procedure {
		return routineSignature(def), true
	}

	if t, ok := m.interp.Registry().(*lang.Table); ok {
		if b, ok := t.Lookup(name); ok && b.Procedure == procedure {
			return builtinSignature(b), true
		}
	}

	return signature{}, false
}

// renderSignatureHint renders the signature with the parameter under the
// cursor highlighted.
func renderSignatureHint(sig signature, call callSite) string {
	parts := sig.parts()
	cur := sig.current(call)

	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(sig.name))

	if !sig.procedure {
		b.WriteString(signatureStyle.Render("("))
	}

	for i, p := range parts {
		if i > 0 || sig.procedure {
			b.WriteString(signatureSeparatorStyle.Render(", "))
		}

		if i == cur {
			b.WriteString(currentParamStyle.Render(p))
		} else {
			b.WriteString(signatureStyle.Render(p))
		}
	}

	if !sig.procedure {
		b.WriteString(signatureStyle.Render(")"))
	}

	return b.String()
}
