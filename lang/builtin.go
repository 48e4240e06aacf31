package lang

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

//nolint:gochecknoglobals
var builtins = sync.OnceValue(func() []*Builtin {
	return slices.Concat(
		coreBuiltins(),
		arrayBuiltins(),
		mathBuiltins(),
		convertBuiltins(),
	)
})

// Builtins returns a new table holding the standard library. Tables are
// independent; adding to one does not affect another.
func Builtins() *Table { return NewTable(builtins()...) }

func coreBuiltins() []*Builtin {
	return []*Builtin{
		{
			Name:      "PRINT",
			Procedure: true,
			Params:    []string{"value"},
			MaxArgs:   -1,
			Doc:       "Write each value, separated by spaces, followed by a newline.",
			Fn:        builtinPrint,
		},
		{
			Name:      "HELP",
			Procedure: true,
			Params:    []string{"name"},
			MaxArgs:   -1,
			Undefined: true,
			Doc:       "Describe variables in the current frame, or the named ones.",
			Fn:        intrinsic("HELP"),
		},
		{
			Name:    "N_PARAMS",
			Doc:     "Number of positional arguments passed to the current routine.",
			MaxArgs: 0,
			Fn:      intrinsic("N_PARAMS"),
		},
		{
			Name:      "N_ELEMENTS",
			Params:    []string{"x"},
			MinArgs:   1,
			MaxArgs:   1,
			Undefined: true,
			Doc:       "Number of elements in x; 0 when x is undefined.",
			Fn: func(_ context.Context, args []Value, _ *Keywords) (Value, error) {
				return NewInt(int64(Len(args[0]))), nil
			},
		},
		{
			Name:      "KEYWORD_SET",
			Params:    []string{"x"},
			MinArgs:   1,
			MaxArgs:   1,
			Undefined: true,
			Doc:       "1 when x is defined and nonzero, or an array of more than one element.",
			Fn:        builtinKeywordSet,
		},
		{
			Name:      "SIZE",
			Params:    []string{"x"},
			Keywords:  []string{"DIMENSIONS", "N_DIMENSIONS", "N_ELEMENTS", "TYPE"},
			MinArgs:   1,
			MaxArgs:   1,
			Undefined: true,
			Doc:       "Size vector [rank, dims..., type code, count] of x.",
			Fn:        builtinSize,
		},
	}
}

// intrinsic returns the implementation of a routine that only the
// interpreter can evaluate, because it inspects the call stack.
func intrinsic(name string) func(context.Context, []Value, *Keywords) (Value, error) {
	return func(context.Context, []Value, *Keywords) (Value, error) {
		return nil, ErrNotImplemented.With(
			slog.String("reason", "routine is evaluated by the interpreter"),
			slog.String("routine", name),
		)
	}
}

func builtinPrint(ctx context.Context, args []Value, _ *Keywords) (Value, error) {
	part := make([]string, len(args))
	for i, a := range args {
		part[i] = a.String()
	}

	w := OutputFrom(ctx)
	if _, err := io.WriteString(w, strings.Join(part, " ")+"\n"); err != nil {
		return nil, WrapError(err)
	}

	return nil, nil
}

func builtinKeywordSet(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	switch x := args[0].(type) {
	case *Array:
		if x.Len() > 1 {
			return NewBool(true), nil
		}
	case *Nested:
		return NewBool(len(x.Elems) > 0), nil
	}

	if IsUndefined(args[0]) {
		return NewBool(false), nil
	}

	t, err := Truthy(args[0])
	if err != nil {
		return NewBool(false), nil //nolint:nilerr // non-numeric values are not set
	}

	return NewBool(t), nil
}

// typeCodes are the conventional numeric codes reported by SIZE.
//
//nolint:gochecknoglobals
var typeCodes = map[Type]int64{
	TypeUndefined: 0,
	TypeBool:      1,
	TypeInt:       3,
	TypeFloat:     4,
	TypeDouble:    5,
	TypeString:    7,
	TypeComplex:   9,
	TypeNested:    11,
}

func builtinSize(_ context.Context, args []Value, kw *Keywords) (Value, error) {
	x := args[0]

	var (
		dims []int
		code = typeCodes[typeOf(x)]
		n    = Len(x)
	)

	switch v := x.(type) {
	case *Array:
		dims = v.Shape()
		code = typeCodes[v.elem]
	case *Nested:
		dims = []int{len(v.Elems)}
	}

	switch {
	case kw.IsSet("N_DIMENSIONS"):
		return NewInt(int64(len(dims))), nil
	case kw.IsSet("N_ELEMENTS"):
		return NewInt(int64(n)), nil
	case kw.IsSet("TYPE"):
		return NewInt(code), nil
	case kw.IsSet("DIMENSIONS"):
		if len(dims) == 0 {
			return NewInt(0), nil
		}

		return intVector(dims...), nil
	}

	out := make([]int, 0, len(dims)+3)
	out = append(out, len(dims))
	out = append(out, dims...)
	out = append(out, int(code), n)

	return intVector(out...), nil
}

func intVector(v ...int) *Array {
	data := make([]float64, len(v))
	for i, x := range v {
		data[i] = float64(x)
	}

	return Vector(TypeInt, data...)
}

// arrayArg returns v as an array; a real scalar becomes a one-element
// vector.
func arrayArg(routine string, v Value) (*Array, error) {
	switch x := v.(type) {
	case *Array:
		return x, nil
	case Scalar:
		if x.typ.numeric() {
			return Vector(x.typ, x.Float()), nil
		}
	}

	return nil, ErrTypeMismatch.With(
		slog.String("reason", "expected a numeric array"),
		slog.String("routine", routine),
		slog.String("type", typeOf(v).String()),
	)
}

// dimensions collects a shape from integer arguments or from a single
// array argument listing the sizes.
func dimensions(routine string, args []Value) ([]int, error) {
	if len(args) == 1 {
		if a, ok := args[0].(*Array); ok {
			dims := make([]int, a.Len())
			for i, f := range a.data {
				dims[i] = int(f)
			}

			return dims, nil
		}
	}

	dims := make([]int, len(args))

	for i, a := range args {
		d, err := IntValue(a)
		if err != nil {
			return nil, WrapError(err).With(
				slog.String("routine", routine),
				slog.Int("argument", i+1),
			)
		}

		dims[i] = d
	}

	return dims, nil
}

func stringArg(routine string, v Value) (string, error) {
	if s, ok := v.(Scalar); ok && s.typ == TypeString {
		return s.s, nil
	}

	return "", ErrTypeMismatch.With(
		slog.String("reason", "expected a string"),
		slog.String("routine", routine),
		slog.String("type", typeOf(v).String()),
	)
}
