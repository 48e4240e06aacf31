package repl

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/xdl/lang"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{"help", "list", "edit", "reset", "clear", "quit"}

// isWordChar reports whether c can appear in a completable word: identifier
// characters plus the leading '!' of system variables.
func isWordChar(c byte) bool {
	return isIdentChar(c) || c == '!'
}

// wordBounds returns the current word at the cursor position and its byte
// boundaries within input. Returns an empty word when the cursor sits on a
// boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(max(cursor, 0), len(input))

	start = cursor
	for start > 0 && isWordChar(input[start-1]) {
		start--
	}

	// '!' only starts a word.
	if i := strings.LastIndexByte(input[start:cursor], '!'); i > 0 {
		start += i
	}

	end = cursor
	for end < len(input) && isIdentChar(input[end]) {
		end++
	}

	return input[start:end], start, end
}

// knownNames returns every name the interpreter knows: reserved words,
// builtins, global variables, user routines, and system variables.
func (m model) knownNames(word string) []string {
	if strings.HasPrefix(word, "!") {
		return m.interp.SystemVariables()
	}

	var names []string

	names = append(names, lang.ReservedWords()...)

	if t, ok := m.interp.Registry().(*lang.Table); ok {
		names = append(names, t.Names()...)
	}

	names = append(names, m.interp.Globals().Names()...)

	for _, def := range m.interp.Routines() {
		names = append(names, def.Name)
	}

	slices.Sort(names)

	return slices.Compact(names)
}

// isFunction reports whether name is called with parentheses.
func (m model) isFunction(name string) bool {
	if def, ok := m.interp.Routine(name); ok {
		return def.Function
	}

	if t, ok := m.interp.Registry().(*lang.Table); ok {
		if b, ok := t.Lookup(name); ok {
			return !b.IsProcedure()
		}
	}

	return false
}

// computeMatches calculates the fuzzy match results for the word at the
// cursor, ranked best-first, along with the candidate list and the word
// boundaries. An empty word yields no matches so the hint line stays visible.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()
	cursor := m.input.Position()

	word, wordStart, wordEnd := wordBounds(input, cursor)
	if word == "" || inString(input, wordStart) {
		return nil, nil, wordStart, wordEnd
	}

	if m.mode == modeCtrl {
		candidates = ctrlCommands
	} else {
		candidates = m.knownNames(word)
		// Names are case-insensitive and stored canonical.
		word = lang.Canonical(word)
	}

	if len(candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	return fuzzy.Find(word, candidates), candidates, wordStart, wordEnd
}

// inString reports whether offset lies inside a string literal.
func inString(input string, offset int) bool {
	var quote byte

	for i := 0; i < offset && i < len(input); i++ {
		switch c := input[i]; {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			// Comments are not completed either.
			return true
		}
	}

	return quote != 0
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within the terminal width. The selected candidate (when tabbing) uses the
// selected style.
func (m model) renderCandidateBar() string {
	if len(m.matches) == 0 || m.width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range m.matches {
		selected := m.tabActive && i == m.suggIdx
		rendered := renderCandidate(match, selected, m.isFunction(match.Str))
		entryWidth := lipgloss.Width(rendered)

		if i > 0 {
			entryWidth += sepWidth
		}

		if used+entryWidth+ellipsisWidth > m.width && i > 0 {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a single candidate with matched characters
// highlighted. Functions are displayed with a "()" suffix that is not part
// of the completion.
func renderCandidate(match fuzzy.Match, selected, function bool) string {
	baseStyle := suggestionStyle
	highlightStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true)

	if selected {
		baseStyle = selectedStyle
		highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4")).
			Bold(true)
	}

	matchSet := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matchSet[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		ch := string(r)
		if matchSet[i] {
			b.WriteString(highlightStyle.Render(ch))
		} else {
			b.WriteString(baseStyle.Render(ch))
		}
	}

	if function {
		b.WriteString(baseStyle.Render("()"))
	}

	return b.String()
}
