package repl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/xdl/lang"
	"github.com/ardnew/xdl/log"
)

// editDoneMsg is sent when editing produced a program that parses.
type editDoneMsg struct{ prog *lang.Program }

// editCancelledMsg is sent when the user cleared the editor content.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit after a parse
// error.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the edit process encounters a non-parse error.
type editErrorMsg struct{ err error }

const (
	evalPrompt = "xdl> "
	contPrompt = "...> "
	ctrlPrompt = "   :"
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  help          Print this cruft
  list          List variables and routines
  edit [NAME]   Edit pending input, or routine NAME, in $EDITOR
  reset         Discard all variables and routines
  clear         Clear screen
  quit          Exit REPL

Usage:
  Type a statement to run it; a bare expression prints its value
  Unfinished blocks (PRO, IF ... BEGIN, etc.) continue on the next line
  Press Ctrl+C to discard an unfinished block
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Space to accept the current candidate
  Press Esc to toggle between eval and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

// formatCommand formats the echo line of an eval input.
func formatCommand(prompt, input string) string {
	return promptStyle.Render(prompt) + inputStyle.Render(input)
}

// formatCtrlCommand formats the control command echo line with prompt and input
// styled.
func formatCtrlCommand(input string) string {
	return ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input)
}

// snippetOf renders the source line a syntax error points at, or "".
func snippetOf(err error, src string) string {
	var se *lang.SyntaxError
	if !errors.As(err, &se) {
		return ""
	}

	return se.Snippet(src)
}

// config holds the options of [Run].
type config struct {
	history string
	logger  log.Logger
}

// Option configures [Run].
type Option func(config) config

// WithHistory sets the history file. An empty path keeps history in memory.
func WithHistory(path string) Option {
	return func(c config) config {
		c.history = path

		return c
	}
}

// WithLogger sets the logger used for REPL tracing and editor parses.
func WithLogger(logger log.Logger) Option {
	return func(c config) config {
		c.logger = logger

		return c
	}
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc      func() context.Context
	input        textinput.Model
	interp       *lang.Interpreter
	out          *bytes.Buffer // interpreter output not yet printed
	logger       log.Logger
	history      *History
	historyIdx   int
	pending      []string      // lines of an unfinished block
	matches      fuzzy.Matches // current fuzzy match results
	candidates   []string      // backing candidate list
	wordStart    int           // byte offset of current word start
	wordEnd      int           // byte offset of current word end
	suggIdx      int           // selected candidate index
	tabActive    bool          // whether user is tab-cycling
	preTabText   string        // input text before tab-cycling began
	preTabCursor int           // cursor position before tab-cycling began
	width        int           // terminal width for ellipsization
	quitting     bool
	mode         inputMode
	evalText     string
	evalCursor   int
	ctrlText     string
	ctrlCursor   int
}

// Run starts an interactive session with interpreter in. Output the
// interpreter writes to out is printed above the prompt after each input.
func Run(
	ctx context.Context,
	in *lang.Interpreter,
	out *bytes.Buffer,
	opts ...Option,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	cfg := config{logger: log.Default()}
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	cfg.logger.TraceContext(
		ctx,
		"repl start",
		slog.String("history", cfg.history),
		slog.Int("variable_count", in.Globals().Len()),
	)

	history := NewHistory(cfg.history)
	if err := history.Load(); err != nil {
		fmt.Printf("Warning: could not load history: %v\n", err)
	}

	cfg.logger.TraceContext(
		ctx,
		"repl history loaded",
		slog.Int("entry_count", history.Len()),
	)

	m := newModel(ctx, in, out, history, cfg.logger)

	p := tea.NewProgram(m, tea.WithContext(ctx))
	_, err = p.Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	in *lang.Interpreter,
	out *bytes.Buffer,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	if out == nil {
		out = new(bytes.Buffer)
	}

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		interp:     in,
		out:        out,
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		width:      defaultWidth,
		mode:       modeEval,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil

	case editDoneMsg:
		m.pending = nil
		m.setPrompt()

		m.logger.TraceContext(
			m.ctxFunc(),
			"repl edit complete",
			slog.Int("statement_count", len(msg.prog.Stmts)),
		)

		err := m.interp.Execute(m.ctxFunc(), msg.prog)

		cmds := m.flushOutput()
		if err != nil {
			cmds = append(cmds, m.printError(err, msg.prog.Source()))
		} else {
			cmds = append(cmds, tea.Println(resultStyle.Render("edit applied")))
		}

		return m, tea.Sequence(cmds...)

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("edit cancelled"))

	case editDeclinedMsg:
		return m, tea.Println(hintStyle.Render("edit discarded"))

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	input := m.input.Value()
	viewingHistory := m.historyIdx < m.history.Len()
	call := detectCall(input, m.input.Position())

	switch {
	case viewingHistory:
		pos := m.historyIdx + 1
		hint := fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(pos)),
			m.history.Len())
		b.WriteString(hintStyle.Render(hint))

	case strings.TrimSpace(input) == "":
		var hint string

		switch {
		case m.mode == modeCtrl:
			hint = "Type: help, list, edit, reset, clear, quit (press Esc to return)"
		case len(m.pending) > 0:
			hint = fmt.Sprintf("Continuing a %d-line block (Ctrl+C discards it)",
				len(m.pending))
		default:
			hint = "Type a statement or press Esc for commands"
		}

		b.WriteString(hintStyle.Render(hint))

	case call.inCall && m.mode == modeEval:
		if sig, ok := m.lookupSignature(call.name, call.procedure); ok {
			b.WriteString(renderSignatureHint(sig, call))
		} else if len(m.matches) > 0 {
			b.WriteString(m.renderCandidateBar())
		}

	case len(m.matches) > 0:
		b.WriteString(m.renderCandidateBar())
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(
		m.ctxFunc(),
		"repl keypress",
		slog.String("key", msg.String()),
		slog.Int("type", int(msg.Type)),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" && len(m.pending) == 0 {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.pending = nil
		m.setPrompt()
		m.tabActive = false
		m.historyIdx = m.history.Len()
		refreshMatches(&m, false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		if !m.tabActive || len(m.matches) == 0 {
			return m.executeInput()
		}
		// Lock in the current tab candidate without executing.
		m.tabActive = false
		refreshMatches(&m, true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(1)

	case tea.KeyShiftTab:
		return m.cycle(-1)

	case tea.KeyUp:
		return m.historyPrev()

	case tea.KeyDown:
		return m.historyNext()

	case tea.KeyShiftUp:
		return m.historyPrevInMode()

	case tea.KeyShiftDown:
		return m.historyNextInMode()

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			refreshMatches(&m, false)

			return m, nil
		}

		return m.toggleMode()

	case tea.KeyRunes, tea.KeySpace:
		// Space breaks out of tab-cycling, keeping the candidate.
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		refreshMatches(&m, true)

		return m, cmd
	}

	// For any other key (backspace, delete, arrows, etc.),
	// update input and recompute matches without auto-confirm.
	var cmd tea.Cmd

	m.tabActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	refreshMatches(&m, false)

	return m, cmd
}

// cycle steps through completion candidates in direction dir.
func (m model) cycle(dir int) (model, tea.Cmd) {
	if len(m.matches) == 0 {
		return m, nil
	}

	// Single candidate: complete and confirm immediately.
	if len(m.matches) == 1 {
		replaceCurrentWord(&m, m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m, nil
	}

	n := len(m.matches)

	switch {
	case m.tabActive:
		m.suggIdx = (m.suggIdx + dir + n) % n
	case dir < 0:
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()
		m.suggIdx = n - 1
	default:
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()
		m.suggIdx = 0
	}

	replaceCurrentWord(&m, m.matches[m.suggIdx].Str)

	return m, nil
}

// replaceCurrentWord replaces the current word boundaries in the input with
// the given replacement text and repositions the cursor.
func replaceCurrentWord(m *model, replacement string) {
	input := m.input.Value()
	newInput := input[:m.wordStart] + replacement + input[m.wordEnd:]
	newCursor := m.wordStart + len(replacement)

	m.input.SetValue(newInput)
	m.input.SetCursor(newCursor)

	m.wordEnd = newCursor
}

// refreshMatches recomputes fuzzy matches for the current input state.
// When autoConfirm is true it also confirms the completion when exactly one
// candidate remains and the typed word already equals it.
func refreshMatches(m *model, autoConfirm bool) {
	m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	candidate := m.matches[0].Str
	word := m.input.Value()[m.wordStart:m.wordEnd]

	if strings.EqualFold(word, candidate) {
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

// setPrompt shows the continuation prompt while a block is pending.
func (m *model) setPrompt() {
	switch {
	case m.mode == modeCtrl:
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
	case len(m.pending) > 0:
		m.input.Prompt = promptStyle.Render(contPrompt)
	default:
		m.input.Prompt = promptStyle.Render(evalPrompt)
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	line := m.input.Value()
	input := strings.TrimSpace(line)

	if input == "" && len(m.pending) == 0 {
		return m, nil
	}

	m.evalText = ""
	m.evalCursor = 0
	m.ctrlText = ""
	m.ctrlCursor = 0
	m.input.SetValue("")

	if m.mode == modeCtrl {
		_, _ = m.history.Add(input, modeCtrl)
		m.historyIdx = m.history.Len()
		m.logger.TraceContext(
			m.ctxFunc(),
			"repl command",
			slog.String("input", input),
		)

		return m.executeCommand(input)
	}

	prompt := evalPrompt
	if len(m.pending) > 0 {
		prompt = contPrompt
	}

	echoCmd := tea.Println(formatCommand(prompt, line))

	m.pending = append(m.pending, line)
	src := strings.Join(m.pending, "\n") + "\n"

	value, err := m.interp.RunString(m.ctxFunc(), src)
	if errors.Is(err, lang.ErrIncomplete) {
		m.setPrompt()
		refreshMatches(&m, false)

		return m, echoCmd
	}

	// The whole block is one history entry.
	_, _ = m.history.Add(strings.TrimSpace(src), modeEval)
	m.historyIdx = m.history.Len()
	m.pending = nil
	m.setPrompt()
	refreshMatches(&m, false)

	cmds := append([]tea.Cmd{echoCmd}, m.flushOutput()...)

	if err != nil {
		m.logger.TraceContext(
			m.ctxFunc(),
			"repl eval result",
			slog.String("result_type", "error"),
			slog.String("error", err.Error()),
		)

		return m, tea.Sequence(append(cmds, m.printError(err, src))...)
	}

	if !lang.IsUndefined(value) {
		m.logger.TraceContext(
			m.ctxFunc(),
			"repl eval result",
			slog.String("result_type", value.Type().String()),
		)

		cmds = append(cmds, tea.Println(resultStyle.Render(value.String())))
	}

	return m, tea.Sequence(cmds...)
}

// flushOutput moves interpreter output into print commands.
func (m model) flushOutput() []tea.Cmd {
	if m.out.Len() == 0 {
		return nil
	}

	text := strings.TrimSuffix(m.out.String(), "\n")
	m.out.Reset()

	return []tea.Cmd{tea.Println(text)}
}

func (m model) printError(err error, src string) tea.Cmd {
	text := errorStyle.Render("error: " + err.Error())

	if snippet := snippetOf(err, src); snippet != "" {
		text += "\n" + hintStyle.Render(snippet)
	}

	return tea.Println(text)
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	echoCmd := tea.Println(formatCtrlCommand(input))

	cmd := parts[0]
	args := parts[1:]

	m.logger.TraceContext(
		m.ctxFunc(),
		"repl exec command",
		slog.String("command", cmd),
		slog.Any("args", args),
	)

	switch cmd {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echoCmd, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echoCmd, tea.Println(helpMessage()))

	case "l", "list":
		return m, tea.Sequence(echoCmd, tea.Println(m.listDefinitions()))

	case "c", "clear":
		return m, tea.ClearScreen

	case "r", "reset":
		m.interp.Reset()
		m.pending = nil
		m.out.Reset()

		return m, tea.Sequence(echoCmd,
			tea.Println(hintStyle.Render("all variables and routines discarded")))

	case "e", "edit":
		src, err := m.editSource(args)
		if err != nil {
			return m, tea.Sequence(echoCmd,
				tea.Println(errorStyle.Render("error: "+err.Error())))
		}

		return m, tea.Sequence(echoCmd, m.handleEdit(src))

	default:
		return m, tea.Println(
			errorStyle.Render("Unknown command: " + cmd + " (try 'help')"),
		)
	}
}

// editSource returns the text to open in the editor: the named routine,
// or else the pending block.
func (m model) editSource(args []string) (string, error) {
	if len(args) == 0 {
		if len(m.pending) == 0 {
			return "", nil
		}

		return strings.Join(m.pending, "\n") + "\n", nil
	}

	def, ok := m.interp.Routine(args[0])
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoRoutine, args[0])
	}

	var b strings.Builder

	prog := &lang.Program{Stmts: []lang.Stmt{def}}
	if err := prog.Format(m.ctxFunc(), &b, lang.DefaultIndent); err != nil {
		return "", err
	}

	return b.String(), nil
}

func (m model) handleEdit(src string) tea.Cmd {
	cmd := &editCommand{
		source:  src,
		ctxFunc: m.ctxFunc,
		logger:  m.logger,
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		if errors.Is(err, ErrEditDeclined) {
			return editDeclinedMsg{}
		}

		if err != nil {
			return editErrorMsg{err: err}
		}

		if cmd.prog == nil {
			return editCancelledMsg{}
		}

		return editDoneMsg{prog: cmd.prog}
	})
}

// historyLoad replaces the input with history entry i.
func (m model) historyLoad(i int) model {
	entry, err := m.history.At(i)
	if err != nil {
		return m
	}

	if m.mode != entry.Mode {
		m, _ = m.switchToMode(entry.Mode)
	}

	m.historyIdx = i
	m.input.SetValue(entry.Line)
	m.input.SetCursor(len(entry.Line))
	refreshMatches(&m, false)

	return m
}

// historyEnd leaves history navigation with an empty input.
func (m model) historyEnd() model {
	m.historyIdx = m.history.Len()
	m.input.SetValue("")
	refreshMatches(&m, false)

	return m
}

func (m model) historyPrev() (model, tea.Cmd) {
	if m.historyIdx > 0 {
		return m.historyLoad(m.historyIdx - 1), nil
	}

	return m, nil
}

func (m model) historyNext() (model, tea.Cmd) {
	if m.historyIdx < m.history.Len()-1 {
		return m.historyLoad(m.historyIdx + 1), nil
	}

	return m.historyEnd(), nil
}

func (m model) historyPrevInMode() (model, tea.Cmd) {
	for i := m.historyIdx - 1; i >= 0; i-- {
		if entry, err := m.history.At(i); err == nil && entry.Mode == m.mode {
			return m.historyLoad(i), nil
		}
	}

	return m, nil
}

func (m model) historyNextInMode() (model, tea.Cmd) {
	for i := m.historyIdx + 1; i < m.history.Len(); i++ {
		if entry, err := m.history.At(i); err == nil && entry.Mode == m.mode {
			return m.historyLoad(i), nil
		}
	}

	if m.historyIdx < m.history.Len() {
		return m.historyEnd(), nil
	}

	return m, nil
}

// listDefinitions renders global variables with their type and a preview,
// followed by user routines with their signatures.
func (m model) listDefinitions() string {
	var b strings.Builder

	globals := m.interp.Globals()

	for _, name := range globals.Names() {
		v, _ := globals.Get(name)
		fmt.Fprintf(&b, "  %s %s %s\n",
			name, hintStyle.Render(typeOf(v)), hintStyle.Render(preview(v)))
	}

	for _, def := range m.interp.Routines() {
		fmt.Fprintf(&b, "  %s\n", routineSignature(def))
	}

	if b.Len() == 0 {
		return hintStyle.Render("  (nothing defined)")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// typeOf describes v's type, with the dimensions of arrays.
func typeOf(v lang.Value) string {
	a, ok := v.(*lang.Array)
	if !ok {
		return v.Type().String()
	}

	dims := make([]string, a.Rank())
	for i, n := range a.Shape() {
		dims[i] = strconv.Itoa(n)
	}

	return a.Elem().String() + "[" + strings.Join(dims, ",") + "]"
}

const previewLimit = 40

func preview(v lang.Value) string {
	s := v.String()
	if len(s) > previewLimit {
		return s[:previewLimit-3] + "..."
	}

	return s
}

// toggleMode switches between eval and control modes, preserving input state.
func (m model) toggleMode() (model, tea.Cmd) {
	if m.mode == modeEval {
		return m.switchToMode(modeCtrl)
	}

	return m.switchToMode(modeEval)
}

// switchToMode switches to the specified mode, preserving input state.
func (m model) switchToMode(mode inputMode) (model, tea.Cmd) {
	if m.mode == modeEval {
		m.evalText = m.input.Value()
		m.evalCursor = m.input.Position()
	} else {
		m.ctrlText = m.input.Value()
		m.ctrlCursor = m.input.Position()
	}

	m.mode = mode
	m.setPrompt()

	if mode == modeEval {
		m.input.SetValue(m.evalText)
		m.input.SetCursor(m.evalCursor)
	} else {
		m.input.SetValue(m.ctrlText)
		m.input.SetCursor(m.ctrlCursor)
	}

	refreshMatches(&m, false)

	return m, nil
}
