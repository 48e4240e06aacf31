package lang

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// Registry resolves names that are not user routines.
type Registry interface {
	Resolve(name string) (Callable, bool)
}

// Callable is a routine provided by a Registry. Arguments arrive fully
// evaluated and in source order.
type Callable interface {
	Call(ctx context.Context, args []Value, kw *Keywords) (Value, error)
}

// Keywords is an ordered mapping of canonical keyword names to values.
type Keywords struct {
	names []string
	vals  map[string]Value
}

// NewKeywords returns an empty mapping.
func NewKeywords() *Keywords {
	return &Keywords{vals: map[string]Value{}}
}

// Set binds name to v, keeping the position of an existing binding.
func (k *Keywords) Set(name string, v Value) {
	name = Canonical(name)

	if _, ok := k.vals[name]; !ok {
		k.names = append(k.names, name)
	}

	k.vals[name] = v
}

// Get returns the value bound to name.
func (k *Keywords) Get(name string) (Value, bool) {
	if k == nil {
		return nil, false
	}

	v, ok := k.vals[Canonical(name)]

	return v, ok
}

// IsSet reports whether name is bound to a defined, truthy value.
func (k *Keywords) IsSet(name string) bool {
	v, ok := k.Get(name)
	if !ok || IsUndefined(v) {
		return false
	}

	t, err := Truthy(v)

	return err == nil && t
}

// Names returns the bound names in insertion order.
func (k *Keywords) Names() []string {
	if k == nil {
		return nil
	}

	return slices.Clone(k.names)
}

// Len returns the number of bindings.
func (k *Keywords) Len() int {
	if k == nil {
		return 0
	}

	return len(k.names)
}

// matchKeyword returns the entry of accepted that name abbreviates. An
// exact match wins; otherwise the prefix must be unique.
func matchKeyword(name string, accepted []string) (string, *Error) {
	var found []string

	for _, a := range accepted {
		if a == name {
			return a, nil
		}

		if strings.HasPrefix(a, name) {
			found = append(found, a)
		}
	}

	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", ErrInvalidArgument.With(
			slog.String("reason", "unknown keyword"),
			slog.String("keyword", name),
		)
	}

	return "", ErrInvalidArgument.With(
		slog.String("reason", "ambiguous keyword"),
		slog.String("keyword", name),
		slog.String("candidates", strings.Join(found, ",")),
	)
}

// Builtin describes a routine in a capability table.
type Builtin struct {
	Name      string
	Procedure bool
	Params    []string // positional parameter names, for signatures
	Keywords  []string
	MinArgs   int
	MaxArgs   int  // -1 for no limit
	Undefined bool // accepts arguments naming unbound variables
	Doc       string
	Fn        func(ctx context.Context, args []Value, kw *Keywords) (Value, error)
}

// IsProcedure reports whether b is called as a statement.
func (b *Builtin) IsProcedure() bool { return b.Procedure }

// AcceptsUndefined reports whether b may receive Undefined arguments.
func (b *Builtin) AcceptsUndefined() bool { return b.Undefined }

// Call validates the argument count and keyword names, expands keyword
// abbreviations, and invokes the implementation.
func (b *Builtin) Call(ctx context.Context, args []Value, kw *Keywords) (Value, error) {
	if len(args) < b.MinArgs || (b.MaxArgs >= 0 && len(args) > b.MaxArgs) {
		return nil, ErrArity.With(
			slog.String("routine", b.Name),
			slog.Int("min", b.MinArgs),
			slog.Int("max", b.MaxArgs),
			slog.Int("got", len(args)),
		)
	}

	full := NewKeywords()

	for _, name := range kw.Names() {
		key, err := matchKeyword(name, b.Keywords)
		if err != nil {
			return nil, err.With(slog.String("routine", b.Name))
		}

		v, _ := kw.Get(name)
		full.Set(key, v)
	}

	if !b.Undefined {
		for i, a := range args {
			if IsUndefined(a) {
				return nil, ErrUnboundVariable.With(
					slog.String("routine", b.Name),
					slog.Int("argument", i+1),
				)
			}
		}
	}

	return b.Fn(ctx, args, full)
}

// Signature renders the calling form of b, such as "FINDGEN(d1, ...)" or
// "PRINT, value, ...".
func (b *Builtin) Signature() string {
	var sb strings.Builder

	sb.WriteString(b.Name)

	params := make([]string, 0, len(b.Params)+len(b.Keywords)+1)

	for i, p := range b.Params {
		if i >= b.MinArgs {
			p = "[" + p + "]"
		}

		params = append(params, p)
	}

	if b.MaxArgs < 0 {
		params = append(params, "...")
	}

	for _, k := range b.Keywords {
		params = append(params, k+"=")
	}

	if b.Procedure {
		for _, p := range params {
			sb.WriteString(", ")
			sb.WriteString(p)
		}

		return sb.String()
	}

	sb.WriteByte('(')
	sb.WriteString(strings.Join(params, ", "))
	sb.WriteByte(')')

	return sb.String()
}

// Table is a capability table of builtins keyed by canonical name.
type Table struct {
	m map[string]*Builtin
}

// NewTable returns a table holding bs.
func NewTable(bs ...*Builtin) *Table {
	t := &Table{m: make(map[string]*Builtin, len(bs))}
	t.Add(bs...)

	return t
}

// Add registers bs, replacing entries with the same name.
func (t *Table) Add(bs ...*Builtin) {
	for _, b := range bs {
		t.m[Canonical(b.Name)] = b
	}
}

// Lookup returns the builtin registered under name.
func (t *Table) Lookup(name string) (*Builtin, bool) {
	b, ok := t.m[Canonical(name)]

	return b, ok
}

// Resolve implements Registry.
func (t *Table) Resolve(name string) (Callable, bool) {
	b, ok := t.Lookup(name)
	if !ok {
		return nil, false
	}

	return b, true
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []string {
	return slices.Sorted(maps.Keys(t.m))
}

type outputKey struct{}

// WithOutputContext returns a context carrying the writer that output
// routines such as PRINT write to.
func WithOutputContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

// OutputFrom returns the writer carried by ctx, or io.Discard.
func OutputFrom(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok {
		return w
	}

	return io.Discard
}
