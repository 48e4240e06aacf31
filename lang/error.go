package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
var (
	ErrLex              = NewError("lex error")
	ErrParse            = NewError("parse error")
	ErrIncomplete       = NewError("incomplete input")
	ErrReadInput        = NewError("failed to read input")
	ErrUnboundVariable  = NewError("unbound variable")
	ErrTypeMismatch     = NewError("type mismatch")
	ErrIndexOutOfRange  = NewError("index out of range")
	ErrShapeMismatch    = NewError("shape mismatch")
	ErrArity            = NewError("arity mismatch")
	ErrFunctionNotFound = NewError("function not found")
	ErrNotImplemented   = NewError("not implemented")
	ErrInvalidArgument  = NewError("invalid argument")
	ErrMaxDepth         = NewError("maximum call depth exceeded")
	ErrIncludeNotFound  = NewError("include file not found")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
//
// Errors derived from a sentinel with Wrap, With, or At still match that
// sentinel with errors.Is.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	base  *Error      // Sentinel this error was derived from
	pos   *Pos        // Source position, if known
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	e := &Error{msg: msg}
	e.base = e

	return e
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	part := make([]string, 0, 3)

	if e.pos != nil {
		part = append(part, e.pos.String())
	}

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether e was derived from the same sentinel as target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.base == nil {
		return false
	}

	return e.base == t.base
}

// Position returns the source position attached to e, if any.
func (e *Error) Position() (Pos, bool) {
	if e.pos == nil {
		return Pos{}, false
	}

	return *e.pos, true
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+3)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	if e.pos != nil {
		attrs = append(attrs, slog.String("pos", e.pos.String()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		base:  e.base,
		pos:   e.pos,
		attrs: e.attrs, // Share attrs
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		base:  e.base,
		pos:   e.pos,
		attrs: newAttrs,
	}
}

// At returns a copy of e located at pos.
func (e *Error) At(pos Pos) *Error {
	return &Error{
		msg:   e.msg,
		err:   e.err,
		base:  e.base,
		pos:   &pos,
		attrs: e.attrs,
	}
}

// Attr returns the value of the first attribute with the given key.
func (e *Error) Attr(key string) (slog.Value, bool) {
	for _, a := range e.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}

	return slog.Value{}, false
}

// locate attaches pos to err unless it already carries a position.
func locate(err error, pos Pos) error {
	var ee *Error
	if !errors.As(err, &ee) {
		return WrapError(err).At(pos)
	}

	if ee.pos != nil {
		return err
	}

	return ee.At(pos)
}

// SyntaxError describes the token that stopped lexing or parsing.
// It is the cause wrapped by ErrLex and ErrParse.
type SyntaxError struct {
	Pos      Pos
	Expected string
	Found    string
	Reason   string
}

// Error implements the error interface. The position is reported by the
// enclosing *Error.
func (e *SyntaxError) Error() string {
	part := make([]string, 0, 3)

	if e.Reason != "" {
		part = append(part, e.Reason)
	}

	if e.Expected != "" {
		part = append(part, "expected "+e.Expected)
	}

	if e.Found != "" {
		part = append(part, "found "+strconv.Quote(e.Found))
	}

	return strings.Join(part, ", ")
}

// Snippet renders the source line containing the error with a caret under
// the offending column.
func (e *SyntaxError) Snippet(source string) string {
	lines := strings.Split(source, "\n")
	if e.Pos.Line < 1 || e.Pos.Line > len(lines) {
		return ""
	}

	var src strings.Builder

	num := strconv.Itoa(e.Pos.Line)

	src.WriteString("  ")
	src.WriteString(num)
	src.WriteString(" | ")
	src.WriteString(lines[e.Pos.Line-1])
	src.WriteRune('\n')

	// 2 leading spaces + " | "
	padding := strings.Repeat(" ", len(num)+5)
	if e.Pos.Column > 0 {
		padding += strings.Repeat(" ", e.Pos.Column-1)
	}

	src.WriteString(padding + "^\n")

	return src.String()
}

func lexError(pos Pos, reason, found string) error {
	return ErrLex.Wrap(&SyntaxError{Pos: pos, Reason: reason, Found: found}).
		At(pos)
}

func parseError(pos Pos, expected, found string) error {
	return ErrParse.Wrap(&SyntaxError{
		Pos:      pos,
		Expected: expected,
		Found:    found,
	}).At(pos)
}
