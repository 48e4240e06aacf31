package lang

import (
	"context"
	"log/slog"
	"math"
	"slices"
)

func arrayBuiltins() []*Builtin {
	dimParams := []string{"d1"}

	return []*Builtin{
		generator("FINDGEN", TypeFloat, true, dimParams),
		generator("DINDGEN", TypeDouble, true, dimParams),
		generator("INDGEN", TypeInt, true, dimParams),
		generator("LINDGEN", TypeInt, true, dimParams),
		generator("FLTARR", TypeFloat, false, dimParams),
		generator("DBLARR", TypeDouble, false, dimParams),
		generator("INTARR", TypeInt, false, dimParams),
		generator("LONARR", TypeInt, false, dimParams),
		{
			Name:    "REPLICATE",
			Params:  []string{"value", "d1"},
			MinArgs: 2,
			MaxArgs: -1,
			Doc:     "Array of the given dimensions with every element set to value.",
			Fn:      builtinReplicate,
		},
		{
			Name:    "LINSPACE",
			Params:  []string{"start", "stop", "n"},
			MinArgs: 2,
			MaxArgs: 3,
			Doc:     "n evenly spaced doubles from start to stop inclusive (default 100).",
			Fn:      builtinLinspace,
		},
		{
			Name:    "REFORM",
			Params:  []string{"array", "d1"},
			MinArgs: 1,
			MaxArgs: -1,
			Doc:     "Copy of array with new dimensions; without dimensions, size-1 axes are removed.",
			Fn:      builtinReform,
		},
		{
			Name:    "TRANSPOSE",
			Params:  []string{"array", "permutation"},
			MinArgs: 1,
			MaxArgs: 2,
			Doc:     "Array with its axes permuted, reversed by default.",
			Fn:      builtinTranspose,
		},
		{
			Name:     "TOTAL",
			Params:   []string{"array", "dimension"},
			Keywords: []string{"DOUBLE", "INTEGER"},
			MinArgs:  1,
			MaxArgs:  2,
			Doc:      "Sum of the elements, or sums along a 1-based dimension.",
			Fn:       builtinTotal,
		},
		{
			Name:    "MEAN",
			Params:  []string{"array"},
			MinArgs: 1,
			MaxArgs: 1,
			Doc:     "Arithmetic mean of the elements.",
			Fn:      builtinMean,
		},
		{
			Name:    "MIN",
			Params:  []string{"array"},
			MinArgs: 1,
			MaxArgs: 1,
			Doc:     "Smallest element.",
			Fn:      extremum("MIN", math.Min),
		},
		{
			Name:    "MAX",
			Params:  []string{"array"},
			MinArgs: 1,
			MaxArgs: 1,
			Doc:     "Largest element.",
			Fn:      extremum("MAX", math.Max),
		},
		{
			Name:    "WHERE",
			Params:  []string{"array"},
			MinArgs: 1,
			MaxArgs: 1,
			Doc:     "Flat indices of the nonzero elements, or -1 when there are none.",
			Fn:      builtinWhere,
		},
		{
			Name:    "MESHGRID",
			Params:  []string{"x", "y"},
			MinArgs: 2,
			MaxArgs: 2,
			Doc:     "List [X, Y] of coordinate grids of shape [len(y), len(x)].",
			Fn:      builtinMeshgrid,
		},
	}
}

// generator describes an array constructor of element type elem. Index
// generators fill element i with i; the others fill zeros.
func generator(name string, elem Type, index bool, params []string) *Builtin {
	doc := "Zero-filled array of the given dimensions."
	if index {
		doc = "Array of the given dimensions where each element holds its flat index."
	}

	return &Builtin{
		Name:    name,
		Params:  params,
		MinArgs: 1,
		MaxArgs: -1,
		Doc:     doc,
		Fn: func(_ context.Context, args []Value, _ *Keywords) (Value, error) {
			dims, err := dimensions(name, args)
			if err != nil {
				return nil, err
			}

			a, err := MakeArray(elem, dims...)
			if err != nil {
				return nil, WrapError(err).With(slog.String("routine", name))
			}

			if index {
				for i := range a.data {
					a.data[i] = castElem(elem, float64(i))
				}
			}

			return a, nil
		},
	}
}

func builtinReplicate(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	v, err := ScalarValue(args[0])
	if err != nil {
		return nil, WrapError(err).With(slog.String("routine", "REPLICATE"))
	}

	dims, err := dimensions("REPLICATE", args[1:])
	if err != nil {
		return nil, err
	}

	t := promote(v.typ, v.typ)
	if v.typ == TypeBool {
		t = TypeBool
	}

	a, err := MakeArray(t, dims...)
	if err != nil {
		return nil, err
	}

	for i := range a.data {
		a.data[i] = castElem(t, v.Float())
	}

	return a, nil
}

func builtinLinspace(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	start, err := ScalarValue(args[0])
	if err != nil {
		return nil, err
	}

	stop, err := ScalarValue(args[1])
	if err != nil {
		return nil, err
	}

	n := 100
	if len(args) > 2 {
		if n, err = IntValue(args[2]); err != nil {
			return nil, err
		}
	}

	return Linspace(start.Float(), stop.Float(), n)
}

func builtinReform(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	a, err := arrayArg("REFORM", args[0])
	if err != nil {
		return nil, err
	}

	if len(args) == 1 {
		shape := slices.DeleteFunc(a.Shape(), func(d int) bool { return d == 1 })
		if len(shape) == 0 {
			shape = []int{1}
		}

		return a.Reform(shape...)
	}

	dims, err := dimensions("REFORM", args[1:])
	if err != nil {
		return nil, err
	}

	return a.Reform(dims...)
}

func builtinTranspose(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	a, ok := args[0].(*Array)
	if !ok {
		return nil, ErrNotImplemented.With(
			slog.String("reason", "TRANSPOSE requires an array with dimensions"),
			slog.String("type", typeOf(args[0]).String()),
		)
	}

	if len(args) == 1 {
		return a.Transpose()
	}

	perm, err := dimensions("TRANSPOSE", args[1:2])
	if err != nil {
		return nil, err
	}

	return a.Transpose(perm...)
}

// reduce applies f to the elements of a, or to each line of elements along
// a 0-based axis, producing values of type t.
func reduce(a *Array, axis int, t Type, f func([]float64) float64) (Value, error) {
	if axis < 0 {
		return newNumber(t, f(a.data)), nil
	}

	if axis >= a.Rank() {
		return nil, ErrInvalidArgument.With(
			slog.String("reason", "dimension out of range"),
			slog.Int("dimension", axis+1),
			slog.Int("rank", a.Rank()),
		)
	}

	if a.Rank() == 1 {
		return newNumber(t, f(a.data)), nil
	}

	n := a.shape[axis]
	inner := Strides(a.shape)[axis]
	outer := len(a.data) / (n * inner)

	out := make([]float64, 0, outer*inner)
	line := make([]float64, n)

	for o := range outer {
		for i := range inner {
			for k := range n {
				line[k] = a.data[(o*n+k)*inner+i]
			}

			out = append(out, castElem(t, f(line)))
		}
	}

	return NewArray(t, slices.Delete(a.Shape(), axis, axis+1), out)
}

func sum(v []float64) float64 {
	var s float64
	for _, f := range v {
		s += f
	}

	return s
}

func builtinTotal(_ context.Context, args []Value, kw *Keywords) (Value, error) {
	a, err := arrayArg("TOTAL", args[0])
	if err != nil {
		return nil, err
	}

	axis := -1

	if len(args) > 1 {
		d, err := IntValue(args[1])
		if err != nil {
			return nil, err
		}

		axis = d - 1
		if d == 0 {
			axis = -1
		}
	}

	t := TypeFloat

	switch {
	case kw.IsSet("INTEGER"):
		t = TypeInt
	case kw.IsSet("DOUBLE") || a.elem == TypeDouble:
		t = TypeDouble
	}

	return reduce(a, axis, t, sum)
}

func builtinMean(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	a, err := arrayArg("MEAN", args[0])
	if err != nil {
		return nil, err
	}

	t := TypeFloat
	if a.elem == TypeDouble {
		t = TypeDouble
	}

	return reduce(a, -1, t, func(v []float64) float64 {
		return sum(v) / float64(len(v))
	})
}

func extremum(
	name string,
	pick func(a, b float64) float64,
) func(context.Context, []Value, *Keywords) (Value, error) {
	return func(_ context.Context, args []Value, _ *Keywords) (Value, error) {
		a, err := arrayArg(name, args[0])
		if err != nil {
			return nil, err
		}

		return reduce(a, -1, a.elem, func(v []float64) float64 {
			m := v[0]
			for _, f := range v[1:] {
				m = pick(m, f)
			}

			return m
		})
	}
}

func builtinWhere(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	a, err := arrayArg("WHERE", args[0])
	if err != nil {
		return nil, err
	}

	var idx []int

	for i, f := range a.data {
		if f != 0 {
			idx = append(idx, i)
		}
	}

	if len(idx) == 0 {
		return NewInt(-1), nil
	}

	return intVector(idx...), nil
}

func builtinMeshgrid(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	x, err := arrayArg("MESHGRID", args[0])
	if err != nil {
		return nil, err
	}

	y, err := arrayArg("MESHGRID", args[1])
	if err != nil {
		return nil, err
	}

	gx, gy, err := Meshgrid(x, y)
	if err != nil {
		return nil, err
	}

	return &Nested{Elems: []Value{gx, gy}}, nil
}
