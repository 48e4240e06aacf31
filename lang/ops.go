package lang

import (
	"log/slog"
	"math"
	"strings"
)

// opKind groups binary operators by the shape of their result.
type opKind uint8

const (
	opArith opKind = iota
	opCompare
	opLogical
)

func classify(op string) (opKind, bool) {
	switch op {
	case "+", "-", "*", "/", "^", "MOD", "<", ">":
		return opArith, true
	case "EQ", "NE", "LT", "GT", "LE", "GE":
		return opCompare, true
	case "AND", "OR", "XOR", "&&", "||":
		return opLogical, true
	}

	return 0, false
}

// Binary applies a binary operator. Scalars broadcast against arrays;
// arrays combine elementwise and must have equal lengths.
func Binary(op string, x, y Value) (Value, error) {
	switch op {
	case "##":
		return MatMul(x, y)
	case "#":
		return MatMul(y, x)
	}

	kind, ok := classify(op)
	if !ok {
		return nil, ErrNotImplemented.With(slog.String("operator", op))
	}

	if IsUndefined(x) || IsUndefined(y) {
		return nil, ErrUnboundVariable.With(slog.String("operator", op))
	}

	xs, xScalar := x.(Scalar)
	ys, yScalar := y.(Scalar)

	if xScalar && yScalar && xs.typ == TypeString && ys.typ == TypeString {
		return stringOp(op, xs.s, ys.s)
	}

	_, xc := x.(Complex)
	_, yc := y.(Complex)

	if xc || yc {
		return complexOp(op, x, y)
	}

	xa, xArr := x.(*Array)
	ya, yArr := y.(*Array)

	if (!xArr && !(xScalar && xs.typ.numeric())) ||
		(!yArr && !(yScalar && ys.typ.numeric())) {
		return nil, ErrTypeMismatch.With(
			slog.String("operator", op),
			slog.String("left", typeOf(x).String()),
			slog.String("right", typeOf(y).String()),
		)
	}

	lt, rt := typeOf(x), typeOf(y)
	if xArr {
		lt = xa.elem
	}

	if yArr {
		rt = ya.elem
	}

	calc := promote(lt, rt)
	res := calc

	switch {
	case kind != opArith:
		res = TypeBool
	case op == "^" && calc == TypeInt && intPowOverflows(x, y):
		calc, res = TypeDouble, TypeDouble
	}

	if !xArr && !yArr {
		f, err := apply(op, kind, calc, xs.Float(), ys.Float(), xs, ys)
		if err != nil {
			return nil, err
		}

		return newNumber(res, f), nil
	}

	var (
		shape []int
		n     int
	)

	switch {
	case xArr && yArr:
		if xa.Len() != ya.Len() {
			return nil, ErrArity.With(
				slog.String("operator", op),
				slog.Int("left", xa.Len()),
				slog.Int("right", ya.Len()),
			)
		}

		shape, n = xa.shape, xa.Len()
	case xArr:
		shape, n = xa.shape, xa.Len()
	default:
		shape, n = ya.shape, ya.Len()
	}

	at := func(a *Array, s Scalar, isArr bool, i int) (float64, Scalar) {
		if isArr {
			return a.data[i], a.Element(i)
		}

		return s.Float(), s
	}

	data := make([]float64, n)

	for i := range data {
		fx, sx := at(xa, xs, xArr, i)
		fy, sy := at(ya, ys, yArr, i)

		f, err := apply(op, kind, calc, fx, fy, sx, sy)
		if err != nil {
			return nil, err
		}

		data[i] = castElem(res, f)
	}

	return NewArray(res, shape, data)
}

// apply evaluates one element of a binary operation in type t.
func apply(op string, kind opKind, t Type, a, b float64, sa, sb Scalar) (float64, error) {
	switch kind {
	case opCompare:
		return b2f(compare(op, a, b)), nil
	case opLogical:
		return b2f(logical(op, a != 0, b != 0)), nil
	}

	if t == TypeInt {
		return intArith(op, sa.Int(), sb.Int())
	}

	var r float64

	switch op {
	case "+":
		r = a + b
	case "-":
		r = a - b
	case "*":
		r = a * b
	case "/":
		r = a / b
	case "^":
		r = math.Pow(a, b)
	case "MOD":
		r = math.Mod(a, b)
	case "<":
		r = math.Min(a, b)
	case ">":
		r = math.Max(a, b)
	}

	return castElem(t, r), nil
}

func intArith(op string, a, b int64) (float64, error) {
	switch op {
	case "+":
		return float64(a + b), nil
	case "-":
		return float64(a - b), nil
	case "*":
		return float64(a * b), nil
	case "/", "MOD":
		if b == 0 {
			return 0, ErrInvalidArgument.With(
				slog.String("reason", "integer division by zero"),
			)
		}

		if op == "/" {
			return float64(a / b), nil
		}

		return float64(a % b), nil
	case "^":
		if b < 0 {
			return math.Trunc(math.Pow(float64(a), float64(b))), nil
		}

		r, ok := intPow(a, b)
		if !ok {
			return math.Pow(float64(a), float64(b)), nil
		}

		return float64(r), nil
	case "<":
		return float64(min(a, b)), nil
	case ">":
		return float64(max(a, b)), nil
	}

	return 0, ErrNotImplemented.With(slog.String("operator", op))
}

// intPow returns a^b for b >= 0 by repeated squaring, or false when the
// result does not fit in an int64.
func intPow(a, b int64) (int64, bool) {
	r := int64(1)

	for ok := true; b > 0; b >>= 1 {
		if b&1 == 1 {
			if r, ok = mulInt(r, a); !ok {
				return 0, false
			}
		}

		if b > 1 {
			if a, ok = mulInt(a, a); !ok {
				return 0, false
			}
		}
	}

	return r, true
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}

	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}

	c := a * b
	if c/b != a {
		return 0, false
	}

	return c, true
}

// intPowOverflows reports whether any element of x ^ y leaves the int64
// range, in which case the power is computed in double precision.
func intPowOverflows(x, y Value) bool {
	xi, nx := intElems(x)
	yi, ny := intElems(y)

	for i := range max(nx, ny) {
		if b := yi(min(i, ny-1)); b >= 0 {
			if _, ok := intPow(xi(min(i, nx-1)), b); !ok {
				return true
			}
		}
	}

	return false
}

func intElems(v Value) (func(int) int64, int) {
	if a, ok := v.(*Array); ok {
		return func(i int) int64 { return int64(a.data[i]) }, a.Len()
	}

	s, _ := v.(Scalar)

	return func(int) int64 { return s.Int() }, 1
}

func compare(op string, a, b float64) bool {
	switch op {
	case "EQ":
		return a == b
	case "NE":
		return a != b
	case "LT":
		return a < b
	case "GT":
		return a > b
	case "LE":
		return a <= b
	case "GE":
		return a >= b
	}

	return false
}

func logical(op string, a, b bool) bool {
	switch op {
	case "AND", "&&":
		return a && b
	case "OR", "||":
		return a || b
	case "XOR":
		return a != b
	}

	return false
}

func b2f(b bool) float64 {
	if b {
		return 1
	}

	return 0
}

func stringOp(op, a, b string) (Value, error) {
	switch op {
	case "+":
		return NewString(a + b), nil
	case "EQ", "NE", "LT", "GT", "LE", "GE":
		c := float64(strings.Compare(a, b))

		return NewBool(compare(op, c, 0)), nil
	}

	return nil, ErrTypeMismatch.With(
		slog.String("operator", op),
		slog.String("reason", "operator is not defined for strings"),
	)
}

// asComplex promotes a real scalar to a complex value.
func asComplex(v Value) (Complex, bool) {
	switch x := v.(type) {
	case Complex:
		return x, true
	case Scalar:
		if x.typ.numeric() {
			return Complex{Re: x.Float()}, true
		}
	}

	return Complex{}, false
}

// complexOp implements the operators defined on complex values: addition,
// subtraction, and equality. Products and quotients are not implemented.
func complexOp(op string, x, y Value) (Value, error) {
	cx, okx := asComplex(x)
	cy, oky := asComplex(y)

	if !okx || !oky {
		return nil, ErrTypeMismatch.With(
			slog.String("operator", op),
			slog.String("left", typeOf(x).String()),
			slog.String("right", typeOf(y).String()),
		)
	}

	switch op {
	case "+":
		return cx.Add(cy), nil
	case "-":
		return cx.Sub(cy), nil
	case "EQ":
		return NewBool(cx == cy), nil
	case "NE":
		return NewBool(cx != cy), nil
	}

	return nil, ErrNotImplemented.With(
		slog.String("operator", op),
		slog.String("type", TypeComplex.String()),
	)
}

// Unary applies a prefix operator.
func Unary(op string, x Value) (Value, error) {
	switch op {
	case "+":
		if c, ok := x.(Complex); ok {
			return c, nil
		}

		if s, ok := x.(Scalar); ok && s.typ.numeric() {
			return s, nil
		}

		if a, ok := x.(*Array); ok {
			return a.Clone(), nil
		}

	case "-":
		if c, ok := x.(Complex); ok {
			return Complex{Re: -c.Re, Im: -c.Im}, nil
		}

		if s, ok := x.(Scalar); ok && s.typ.numeric() {
			if s.typ <= TypeInt {
				return NewInt(-s.Int()), nil
			}

			return newNumber(s.typ, -s.f), nil
		}

		if a, ok := x.(*Array); ok {
			out := a.Clone()
			if out.elem == TypeBool {
				out.elem = TypeInt
			}

			for i := range out.data {
				out.data[i] = -out.data[i]
			}

			return out, nil
		}

	case "NOT", "~":
		if a, ok := x.(*Array); ok {
			out := &Array{elem: TypeBool, shape: a.Shape(), data: make([]float64, a.Len())}
			for i, f := range a.data {
				out.data[i] = b2f(f == 0)
			}

			return out, nil
		}

		t, err := Truthy(x)
		if err != nil {
			return nil, err
		}

		return NewBool(!t), nil
	}

	return nil, ErrTypeMismatch.With(
		slog.String("operator", op),
		slog.String("type", typeOf(x).String()),
	)
}

// Map applies f to every element of a real numeric scalar or array. Integer
// inputs produce single-precision results; double inputs stay double.
func Map(x Value, f func(float64) float64) (Value, error) {
	switch v := x.(type) {
	case Scalar:
		if !v.typ.numeric() {
			break
		}

		if v.typ == TypeDouble {
			return NewDouble(f(v.f)), nil
		}

		return NewFloat(f(v.Float())), nil

	case *Array:
		t := TypeFloat
		if v.elem == TypeDouble {
			t = TypeDouble
		}

		data := make([]float64, v.Len())
		for i, e := range v.data {
			data[i] = castElem(t, f(e))
		}

		return NewArray(t, v.shape, data)
	}

	return nil, ErrTypeMismatch.With(
		slog.String("reason", "expected a real number or array"),
		slog.String("type", typeOf(x).String()),
	)
}

// MapKeep is like Map but keeps the element type of x.
func MapKeep(x Value, f func(float64) float64) (Value, error) {
	switch v := x.(type) {
	case Scalar:
		if v.typ.numeric() {
			return newNumber(promote(v.typ, v.typ), f(v.Float())), nil
		}

	case *Array:
		out := v.Clone()
		if out.elem == TypeBool {
			out.elem = TypeInt
		}

		for i, e := range out.data {
			out.data[i] = castElem(out.elem, f(e))
		}

		return out, nil
	}

	return nil, ErrTypeMismatch.With(
		slog.String("reason", "expected a real number or array"),
		slog.String("type", typeOf(x).String()),
	)
}

// matrix views v as a two-dimensional array. A rank-1 array is a row.
func matrix(v Value) (*Array, error) {
	switch x := v.(type) {
	case *Array:
		switch x.Rank() {
		case 1:
			return &Array{elem: x.elem, shape: []int{1, x.Len()}, data: x.data}, nil
		case 2:
			return x, nil
		}
	case Scalar:
		if x.typ.numeric() {
			return Vector(x.typ, x.Float()).Reform(1, 1)
		}
	}

	return nil, ErrShapeMismatch.With(
		slog.String("reason", "matrix product needs one or two dimensions"),
		slog.String("type", typeOf(v).String()),
	)
}

// MatMul returns the row-major matrix product x·y. A rank-1 right operand
// is taken as a column when its length matches the inner dimension.
func MatMul(x, y Value) (Value, error) {
	a, err := matrix(x)
	if err != nil {
		return nil, err
	}

	b, err := matrix(y)
	if err != nil {
		return nil, err
	}

	if b.shape[0] == 1 && b.shape[1] == a.shape[1] && a.shape[1] != 1 {
		b = &Array{elem: b.elem, shape: []int{b.shape[1], 1}, data: b.data}
	}

	m, k, n := a.shape[0], a.shape[1], b.shape[1]
	if b.shape[0] != k {
		return nil, ErrShapeMismatch.With(
			slog.String("left", formatShape(a.shape)),
			slog.String("right", formatShape(b.shape)),
		)
	}

	if _, err := shapeSize([]int{m, n}); err != nil {
		return nil, err
	}

	t := promote(a.elem, b.elem)
	data := make([]float64, m*n)

	for i := range m {
		for j := range n {
			var sum float64
			for p := range k {
				sum += a.data[i*k+p] * b.data[p*n+j]
			}

			data[i*n+j] = castElem(t, sum)
		}
	}

	return NewArray(t, []int{m, n}, data)
}

// Meshgrid returns two arrays of shape [len(y), len(x)]: in the first every
// row equals x, in the second row r is filled with y[r].
func Meshgrid(x, y *Array) (*Array, *Array, error) {
	n, m := x.Len(), y.Len()

	if _, err := shapeSize([]int{m, n}); err != nil {
		return nil, nil, err
	}

	xx := make([]float64, m*n)
	yy := make([]float64, m*n)

	for r := range m {
		for c := range n {
			xx[r*n+c] = x.data[c]
			yy[r*n+c] = y.data[r]
		}
	}

	gx, err := NewArray(promote(x.elem, x.elem), []int{m, n}, xx)
	if err != nil {
		return nil, nil, err
	}

	gy, err := NewArray(promote(y.elem, y.elem), []int{m, n}, yy)
	if err != nil {
		return nil, nil, err
	}

	return gx, gy, nil
}

// NChooseK returns the binomial coefficient C(n,k), accumulated as
// C(n,i) = C(n,i-1)*(n-i+1)/i. The result is an integer scalar unless it
// exceeds the integer range, in which case it is a double.
func NChooseK(n, k int64) (Value, error) {
	if n < 0 || k < 0 || k > n {
		return nil, ErrInvalidArgument.With(
			slog.String("reason", "nchoosek requires 0 <= k <= n"),
			slog.Int64("n", n),
			slog.Int64("k", k),
		)
	}

	k = min(k, n-k)

	c := int64(1)

	for i := int64(1); i <= k; i++ {
		m := n - i + 1
		if c > math.MaxInt64/m {
			return nchoosekFloat(n, k), nil
		}

		c = c * m / i
	}

	return NewInt(c), nil
}

func nchoosekFloat(n, k int64) Value {
	c := 1.0
	for i := int64(1); i <= k; i++ {
		c = c * float64(n-i+1) / float64(i)
	}

	return NewDouble(math.Round(c))
}

// Linspace returns n evenly spaced doubles from start to stop inclusive.
func Linspace(start, stop float64, n int) (*Array, error) {
	if n < 1 {
		return nil, ErrInvalidArgument.With(
			slog.String("reason", "linspace needs at least one point"),
			slog.Int("n", n),
		)
	}

	if n > MaxElements {
		return nil, ErrShapeMismatch.With(
			slog.String("reason", "too many elements"),
			slog.Int("n", n),
		)
	}

	data := make([]float64, n)
	if n == 1 {
		data[0] = start

		return Vector(TypeDouble, data...), nil
	}

	step := (stop - start) / float64(n-1)
	for i := range data {
		data[i] = start + float64(i)*step
	}

	data[n-1] = stop

	return Vector(TypeDouble, data...), nil
}
