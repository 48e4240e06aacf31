package lang

import (
	"context"
	"log/slog"
	"math"
	"strings"
)

func mathBuiltins() []*Builtin {
	return []*Builtin{
		{
			Name:    "ABS",
			Params:  []string{"x"},
			MinArgs: 1,
			MaxArgs: 1,
			Doc:     "Absolute value, or magnitude of a complex number.",
			Fn:      builtinAbs,
		},
		unary("SQRT", "Square root.", math.Sqrt),
		unary("EXP", "Natural exponential.", math.Exp),
		unary("ALOG", "Natural logarithm.", math.Log),
		unary("ALOG10", "Base-10 logarithm.", math.Log10),
		unary("SIN", "Sine of an angle in radians.", math.Sin),
		unary("COS", "Cosine of an angle in radians.", math.Cos),
		unary("TAN", "Tangent of an angle in radians.", math.Tan),
		unary("ASIN", "Arcsine in radians.", math.Asin),
		unary("ACOS", "Arccosine in radians.", math.Acos),
		{
			Name:    "ATAN",
			Params:  []string{"y", "x"},
			MinArgs: 1,
			MaxArgs: 2,
			Doc:     "Arctangent in radians; with two arguments, the angle of the point (x, y).",
			Fn:      builtinAtan,
		},
		rounding("FLOOR", "Largest integer not greater than x.", math.Floor),
		rounding("CEIL", "Smallest integer not less than x.", math.Ceil),
		rounding("ROUND", "Nearest integer, halves away from zero.", math.Round),
		{
			Name:    "NCHOOSEK",
			Params:  []string{"n", "k"},
			MinArgs: 2,
			MaxArgs: 2,
			Doc:     "Binomial coefficient C(n, k) for 0 <= k <= n.",
			Fn:      builtinNChooseK,
		},
		complexCtor("COMPLEX"),
		complexCtor("DCOMPLEX"),
		{
			Name:    "CONJ",
			Params:  []string{"z"},
			MinArgs: 1,
			MaxArgs: 1,
			Doc:     "Complex conjugate; real values are returned unchanged.",
			Fn: func(_ context.Context, args []Value, _ *Keywords) (Value, error) {
				return complexPart("CONJ", args[0],
					func(z Complex) Value { return z.Conj() },
					func(v Value) (Value, error) { return v, nil })
			},
		},
		{
			Name:    "REAL_PART",
			Params:  []string{"z"},
			MinArgs: 1,
			MaxArgs: 1,
			Doc:     "Real part of a complex number.",
			Fn: func(_ context.Context, args []Value, _ *Keywords) (Value, error) {
				return complexPart("REAL_PART", args[0],
					func(z Complex) Value { return NewDouble(z.Re) },
					func(v Value) (Value, error) { return v, nil })
			},
		},
		{
			Name:    "IMAGINARY",
			Params:  []string{"z"},
			MinArgs: 1,
			MaxArgs: 1,
			Doc:     "Imaginary part of a complex number; zero for real values.",
			Fn: func(_ context.Context, args []Value, _ *Keywords) (Value, error) {
				return complexPart("IMAGINARY", args[0],
					func(z Complex) Value { return NewDouble(z.Im) },
					func(v Value) (Value, error) {
						return MapKeep(v, func(float64) float64 { return 0 })
					})
			},
		},
	}
}

func unary(name, doc string, f func(float64) float64) *Builtin {
	return &Builtin{
		Name:    name,
		Params:  []string{"x"},
		MinArgs: 1,
		MaxArgs: 1,
		Doc:     doc,
		Fn: func(_ context.Context, args []Value, _ *Keywords) (Value, error) {
			v, err := Map(args[0], f)
			if err != nil {
				return nil, WrapError(err).With(slog.String("routine", name))
			}

			return v, nil
		},
	}
}

func rounding(name, doc string, f func(float64) float64) *Builtin {
	return &Builtin{
		Name:    name,
		Params:  []string{"x"},
		MinArgs: 1,
		MaxArgs: 1,
		Doc:     doc,
		Fn: func(_ context.Context, args []Value, _ *Keywords) (Value, error) {
			v, err := MapKeep(args[0], f)
			if err != nil {
				return nil, WrapError(err).With(slog.String("routine", name))
			}

			return Convert(v, TypeInt)
		},
	}
}

func builtinAbs(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	if z, ok := args[0].(Complex); ok {
		return NewDouble(z.Abs()), nil
	}

	return MapKeep(args[0], math.Abs)
}

func builtinAtan(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	if len(args) == 1 {
		return Map(args[0], math.Atan)
	}

	y, err := ScalarValue(args[0])
	if err != nil {
		return nil, err
	}

	x, err := ScalarValue(args[1])
	if err != nil {
		return nil, err
	}

	if y.typ == TypeDouble || x.typ == TypeDouble {
		return NewDouble(math.Atan2(y.Float(), x.Float())), nil
	}

	return NewFloat(math.Atan2(y.Float(), x.Float())), nil
}

func builtinNChooseK(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	n, err := ScalarValue(args[0])
	if err != nil {
		return nil, err
	}

	k, err := ScalarValue(args[1])
	if err != nil {
		return nil, err
	}

	return NChooseK(n.Int(), k.Int())
}

func complexCtor(name string) *Builtin {
	return &Builtin{
		Name:    name,
		Params:  []string{"real", "imaginary"},
		MinArgs: 1,
		MaxArgs: 2,
		Doc:     "Complex number from real and imaginary parts.",
		Fn: func(_ context.Context, args []Value, _ *Keywords) (Value, error) {
			if z, ok := args[0].(Complex); ok && len(args) == 1 {
				return z, nil
			}

			parts := make([]float64, 2)

			for i, a := range args {
				s, err := ScalarValue(a)
				if err != nil {
					return nil, ErrNotImplemented.Wrap(err).With(
						slog.String("reason", "complex arrays are not supported"),
						slog.String("routine", name),
					)
				}

				parts[i] = s.Float()
			}

			return Complex{Re: parts[0], Im: parts[1]}, nil
		},
	}
}

// complexPart applies onComplex to a complex argument and onReal to a real
// scalar or array.
func complexPart(
	name string,
	v Value,
	onComplex func(Complex) Value,
	onReal func(Value) (Value, error),
) (Value, error) {
	switch x := v.(type) {
	case Complex:
		return onComplex(x), nil
	case Scalar:
		if x.typ.numeric() {
			return onReal(v)
		}
	case *Array:
		return onReal(v)
	}

	return nil, ErrTypeMismatch.With(
		slog.String("reason", "expected a number"),
		slog.String("routine", name),
		slog.String("type", typeOf(v).String()),
	)
}

func convertBuiltins() []*Builtin {
	return []*Builtin{
		conversion("FIX", TypeInt),
		conversion("LONG", TypeInt),
		conversion("FLOAT", TypeFloat),
		conversion("DOUBLE", TypeDouble),
		{
			Name:    "STRING",
			Params:  []string{"value"},
			MinArgs: 1,
			MaxArgs: -1,
			Doc:     "Text form of the values, concatenated; an array yields a list of strings.",
			Fn:      builtinString,
		},
		{
			Name:    "STRLEN",
			Params:  []string{"s"},
			MinArgs: 1,
			MaxArgs: 1,
			Doc:     "Length of a string, or of each string in a list.",
			Fn:      builtinStrlen,
		},
		caseMapper("STRUPCASE", "Copy of s in upper case.", strings.ToUpper),
		caseMapper("STRLOWCASE", "Copy of s in lower case.", strings.ToLower),
	}
}

func conversion(name string, t Type) *Builtin {
	return &Builtin{
		Name:    name,
		Params:  []string{"x"},
		MinArgs: 1,
		MaxArgs: 1,
		Doc:     "Convert x to " + t.String() + ".",
		Fn: func(_ context.Context, args []Value, _ *Keywords) (Value, error) {
			v, err := Convert(args[0], t)
			if err != nil {
				return nil, WrapError(err).With(slog.String("routine", name))
			}

			return v, nil
		},
	}
}

func builtinString(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	if len(args) == 1 {
		if a, ok := args[0].(*Array); ok {
			elems := make([]Value, a.Len())
			for i := range elems {
				elems[i] = NewString(a.Element(i).String())
			}

			return &Nested{Elems: elems}, nil
		}
	}

	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(a.String())
	}

	return NewString(sb.String()), nil
}

// eachString applies f to a string or to every string in a list.
func eachString(name string, v Value, f func(string) Value) (Value, error) {
	if n, ok := v.(*Nested); ok {
		out := make([]Value, len(n.Elems))

		for i, e := range n.Elems {
			s, err := stringArg(name, e)
			if err != nil {
				return nil, err
			}

			out[i] = f(s)
		}

		return &Nested{Elems: out}, nil
	}

	s, err := stringArg(name, v)
	if err != nil {
		return nil, err
	}

	return f(s), nil
}

func builtinStrlen(_ context.Context, args []Value, _ *Keywords) (Value, error) {
	v, err := eachString("STRLEN", args[0], func(s string) Value {
		return NewInt(int64(len([]rune(s))))
	})
	if err != nil {
		return nil, err
	}

	if n, ok := v.(*Nested); ok {
		if a, ok := Concat(n.Elems); ok {
			return a, nil
		}
	}

	return v, nil
}

func caseMapper(name, doc string, f func(string) string) *Builtin {
	return &Builtin{
		Name:    name,
		Params:  []string{"s"},
		MinArgs: 1,
		MaxArgs: 1,
		Doc:     doc,
		Fn: func(_ context.Context, args []Value, _ *Keywords) (Value, error) {
			return eachString(name, args[0], func(s string) Value {
				return NewString(f(s))
			})
		},
	}
}
