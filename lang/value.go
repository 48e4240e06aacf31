package lang

import (
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Type identifies the runtime type of a Value or of an array's elements.
type Type uint8

// Runtime types. Numeric types are ordered by promotion rank.
const (
	TypeUndefined Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeDouble
	TypeComplex
	TypeString
	TypeArray
	TypeNested
)

var typeNames = [...]string{
	TypeUndefined: "UNDEFINED",
	TypeBool:      "BYTE",
	TypeInt:       "LONG",
	TypeFloat:     "FLOAT",
	TypeDouble:    "DOUBLE",
	TypeComplex:   "DCOMPLEX",
	TypeString:    "STRING",
	TypeArray:     "ARRAY",
	TypeNested:    "LIST",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}

	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// numeric reports whether t is a real numeric type.
func (t Type) numeric() bool { return t >= TypeBool && t <= TypeDouble }

// promote returns the result type of arithmetic between a and b.
func promote(a, b Type) Type {
	t := max(a, b)
	if t == TypeBool {
		return TypeInt
	}

	return t
}

// Value is a runtime value: Scalar, Complex, *Array, *Nested, or Undefined.
type Value interface {
	Type() Type
	String() string
	value()
}

// Scalar is a single boolean, integer, float, double, or string.
type Scalar struct {
	typ Type
	i   int64
	f   float64
	s   string
}

// NewBool returns a boolean scalar. Booleans print as 1 and 0.
func NewBool(b bool) Scalar {
	if b {
		return Scalar{typ: TypeBool, i: 1, f: 1}
	}

	return Scalar{typ: TypeBool}
}

// NewInt returns an integer scalar.
func NewInt(v int64) Scalar { return Scalar{typ: TypeInt, i: v, f: float64(v)} }

// NewFloat returns a single-precision scalar.
func NewFloat(v float64) Scalar {
	return Scalar{typ: TypeFloat, f: float64(float32(v))}
}

// NewDouble returns a double-precision scalar.
func NewDouble(v float64) Scalar { return Scalar{typ: TypeDouble, f: v} }

// NewString returns a string scalar.
func NewString(s string) Scalar { return Scalar{typ: TypeString, s: s} }

// newNumber returns a scalar of numeric type t holding v.
func newNumber(t Type, v float64) Scalar {
	switch t {
	case TypeBool:
		return NewBool(v != 0)
	case TypeInt:
		return NewInt(int64(v))
	case TypeFloat:
		return NewFloat(v)
	default:
		return NewDouble(v)
	}
}

func (s Scalar) Type() Type { return s.typ }
func (Scalar) value()       {}

// Float returns the numeric value of s as a float64.
func (s Scalar) Float() float64 {
	if s.typ == TypeInt || s.typ == TypeBool {
		return float64(s.i)
	}

	return s.f
}

// Int returns the numeric value of s truncated to an integer.
func (s Scalar) Int() int64 {
	if s.typ == TypeInt || s.typ == TypeBool {
		return s.i
	}

	return int64(s.f)
}

// Str returns the content of a string scalar.
func (s Scalar) Str() string { return s.s }

// Truthy reports whether s is nonzero or a non-empty string.
func (s Scalar) Truthy() bool {
	if s.typ == TypeString {
		return s.s != ""
	}

	return s.Float() != 0
}

func (s Scalar) String() string {
	switch s.typ {
	case TypeBool, TypeInt:
		return strconv.FormatInt(s.i, 10)
	case TypeFloat:
		return formatFloat(s.f, 32)
	case TypeDouble:
		return formatFloat(s.f, 64)
	case TypeString:
		return s.s
	}

	return "!NULL"
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case math.IsNaN(f):
		return "NaN"
	}

	return strconv.FormatFloat(f, 'g', -1, bits)
}

// LogValue implements slog.LogValuer.
func (s Scalar) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", s.typ.String()),
		slog.String("value", s.String()),
	)
}

// Complex is a complex number with double-precision parts.
type Complex struct {
	Re float64
	Im float64
}

func (Complex) Type() Type { return TypeComplex }
func (Complex) value()     {}

func (c Complex) String() string {
	return "(" + formatFloat(c.Re, 64) + ", " + formatFloat(c.Im, 64) + ")"
}

// Conj returns the complex conjugate of c.
func (c Complex) Conj() Complex { return Complex{Re: c.Re, Im: -c.Im} }

// Abs returns the magnitude of c.
func (c Complex) Abs() float64 { return math.Hypot(c.Re, c.Im) }

// Add returns c + d.
func (c Complex) Add(d Complex) Complex {
	return Complex{Re: c.Re + d.Re, Im: c.Im + d.Im}
}

// Sub returns c - d.
func (c Complex) Sub(d Complex) Complex {
	return Complex{Re: c.Re - d.Re, Im: c.Im - d.Im}
}

// Nested is an ordered list of values of any type.
type Nested struct {
	Elems []Value
}

func (*Nested) Type() Type { return TypeNested }
func (*Nested) value()     {}

func (n *Nested) String() string {
	part := make([]string, len(n.Elems))
	for i, e := range n.Elems {
		part[i] = e.String()
	}

	return "[" + strings.Join(part, ", ") + "]"
}

type undefined struct{}

func (undefined) Type() Type     { return TypeUndefined }
func (undefined) String() string { return "!NULL" }
func (undefined) value()         {}

// Undefined stands for an argument naming a variable that has no value.
// It is only ever passed to routines; it is never bound to a name.
var Undefined Value = undefined{}

// IsUndefined reports whether v is nil or Undefined.
func IsUndefined(v Value) bool {
	return v == nil || v.Type() == TypeUndefined
}

// Truthy reports whether v counts as true in a condition. Arrays must hold
// exactly one element.
func Truthy(v Value) (bool, error) {
	switch t := v.(type) {
	case Scalar:
		return t.Truthy(), nil
	case Complex:
		return t.Re != 0 || t.Im != 0, nil
	case *Array:
		if t.Len() == 1 {
			return t.data[0] != 0, nil
		}

		return false, ErrTypeMismatch.With(
			slog.String("reason", "array used as a condition"),
			slog.Int("elements", t.Len()),
		)
	}

	return false, ErrTypeMismatch.With(
		slog.String("reason", "value used as a condition"),
		slog.String("type", typeOf(v).String()),
	)
}

// typeOf returns the type of v, treating nil as undefined.
func typeOf(v Value) Type {
	if v == nil {
		return TypeUndefined
	}

	return v.Type()
}

// ScalarValue returns v as a real numeric scalar. One-element arrays are
// accepted.
func ScalarValue(v Value) (Scalar, error) {
	switch t := v.(type) {
	case Scalar:
		if t.typ.numeric() {
			return t, nil
		}
	case *Array:
		if t.Len() == 1 {
			return t.Element(0), nil
		}
	}

	return Scalar{}, ErrTypeMismatch.With(
		slog.String("reason", "expected a numeric scalar"),
		slog.String("type", typeOf(v).String()),
	)
}

// IntValue returns v as an integer.
func IntValue(v Value) (int, error) {
	s, err := ScalarValue(v)
	if err != nil {
		return 0, err
	}

	return int(s.Int()), nil
}

// Len returns the number of elements in v, as N_ELEMENTS reports it.
func Len(v Value) int {
	switch t := v.(type) {
	case nil, undefined:
		return 0
	case *Array:
		return t.Len()
	case *Nested:
		return len(t.Elems)
	}

	return 1
}

// Elements returns the elements of v in order: array elements as scalars,
// list members, or v itself.
func Elements(v Value) []Value {
	switch t := v.(type) {
	case *Array:
		out := make([]Value, t.Len())
		for i := range out {
			out[i] = t.Element(i)
		}

		return out
	case *Nested:
		return t.Elems
	case nil, undefined:
		return nil
	}

	return []Value{v}
}

// Copy returns a value that shares no mutable storage with v.
func Copy(v Value) Value {
	switch t := v.(type) {
	case *Array:
		return t.Clone()
	case *Nested:
		elems := make([]Value, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = Copy(e)
		}

		return &Nested{Elems: elems}
	}

	return v
}

// Equal reports whether a and b hold the same type, shape, and elements.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Scalar:
		y, ok := b.(Scalar)
		if !ok || x.typ != y.typ {
			return false
		}

		if x.typ == TypeString {
			return x.s == y.s
		}

		return x.Float() == y.Float()

	case Complex:
		y, ok := b.(Complex)

		return ok && x == y

	case *Array:
		y, ok := b.(*Array)
		return ok && x.elem == y.elem &&
			slices.Equal(x.shape, y.shape) && slices.Equal(x.data, y.data)

	case *Nested:
		y, ok := b.(*Nested)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}

		for i := range x.Elems {
			if !Equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}

		return true
	}

	return IsUndefined(a) && IsUndefined(b)
}

// Convert returns v converted to numeric type t. Arrays convert elementwise,
// strings are parsed, and complex values keep their real part.
func Convert(v Value, t Type) (Value, error) {
	switch x := v.(type) {
	case Scalar:
		if x.typ == TypeString {
			f, err := strconv.ParseFloat(strings.TrimSpace(x.s), 64)
			if err != nil {
				return nil, ErrTypeMismatch.Wrap(err).With(
					slog.String("reason", "string is not a number"),
					slog.String("value", x.s),
				)
			}

			return newNumber(t, f), nil
		}

		if t == TypeInt && x.typ <= TypeInt {
			return NewInt(x.i), nil
		}

		return newNumber(t, x.Float()), nil

	case Complex:
		return newNumber(t, x.Re), nil

	case *Array:
		out := x.Clone()
		out.elem = t

		for i, f := range out.data {
			out.data[i] = castElem(t, f)
		}

		return out, nil
	}

	return nil, ErrTypeMismatch.With(
		slog.String("reason", "value is not convertible"),
		slog.String("from", typeOf(v).String()),
		slog.String("to", t.String()),
	)
}

// castElem converts an element value to the storage form of type t.
func castElem(t Type, f float64) float64 {
	switch t {
	case TypeBool:
		if f != 0 {
			return 1
		}

		return 0
	case TypeInt:
		return math.Trunc(f)
	case TypeFloat:
		return float64(float32(f))
	}

	return f
}
