package lang

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestNChooseK(t *testing.T) {
	tests := []struct {
		n, k int64
		want int64
	}{
		{5, 2, 10},
		{10, 3, 120},
		{0, 0, 1},
		{7, 0, 1},
		{7, 7, 1},
		{52, 5, 2598960},
		{60, 30, 118264581564861424},
	}

	for _, tt := range tests {
		v, err := NChooseK(tt.n, tt.k)
		if err != nil {
			t.Errorf("NChooseK(%d, %d): %v", tt.n, tt.k, err)

			continue
		}

		s := v.(Scalar)
		if s.Type() != TypeInt || s.Int() != tt.want {
			t.Errorf("NChooseK(%d, %d): got %v (%v), want %d", tt.n, tt.k, s, s.Type(), tt.want)
		}
	}
}

func TestNChooseK_Symmetry(t *testing.T) {
	for n := int64(0); n <= 20; n++ {
		for k := int64(0); k <= n; k++ {
			a, _ := NChooseK(n, k)
			b, _ := NChooseK(n, n-k)

			if !Equal(a, b) {
				t.Errorf("C(%d,%d)=%v, C(%d,%d)=%v", n, k, a, n, n-k, b)
			}
		}
	}
}

func TestNChooseK_Errors(t *testing.T) {
	for _, tt := range [][2]int64{{3, 4}, {-1, 0}, {3, -1}} {
		if _, err := NChooseK(tt[0], tt[1]); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("NChooseK(%d, %d): got %v, want ErrInvalidArgument", tt[0], tt[1], err)
		}
	}
}

func TestNChooseK_Overflow(t *testing.T) {
	v, err := NChooseK(100, 50)
	if err != nil {
		t.Fatalf("NChooseK(100, 50): %v", err)
	}

	if v.Type() != TypeDouble {
		t.Errorf("got %v, want DOUBLE", v.Type())
	}
}

func TestMeshgrid(t *testing.T) {
	gx, gy, err := Meshgrid(Vector(TypeInt, 1, 2, 3), Vector(TypeInt, 10, 20))
	if err != nil {
		t.Fatalf("Meshgrid: %v", err)
	}

	for _, g := range []*Array{gx, gy} {
		if !slices.Equal(g.Shape(), []int{2, 3}) {
			t.Errorf("shape: got %v, want [2 3]", g.Shape())
		}
	}

	if want := []float64{1, 2, 3, 1, 2, 3}; !slices.Equal(gx.Data(), want) {
		t.Errorf("X: got %v, want %v", gx.Data(), want)
	}

	if want := []float64{10, 10, 10, 20, 20, 20}; !slices.Equal(gy.Data(), want) {
		t.Errorf("Y: got %v, want %v", gy.Data(), want)
	}
}

func TestComplex(t *testing.T) {
	c := Complex{Re: 3, Im: 4}

	if got := c.Conj(); got != (Complex{Re: 3, Im: -4}) {
		t.Errorf("conj: got %v", got)
	}

	if got := c.Abs(); got != 5 {
		t.Errorf("abs: got %v, want 5", got)
	}

	sum, err := Binary("+", c, NewInt(1))
	if err != nil {
		t.Fatalf("complex + int: %v", err)
	}

	if sum != (Complex{Re: 4, Im: 4}) {
		t.Errorf("sum: got %v", sum)
	}

	if _, err := Binary("*", c, c); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("complex product: got %v, want ErrNotImplemented", err)
	}

	neg, err := Unary("-", c)
	if err != nil || neg != (Complex{Re: -3, Im: -4}) {
		t.Errorf("negation: got %v, %v", neg, err)
	}
}

func TestBinary_Scalars(t *testing.T) {
	tests := []struct {
		op   string
		x, y Value
		want Value
	}{
		{"+", NewInt(2), NewInt(3), NewInt(5)},
		{"/", NewInt(7), NewInt(2), NewInt(3)},
		{"/", NewFloat(7), NewInt(2), NewFloat(3.5)},
		{"MOD", NewInt(7), NewInt(3), NewInt(1)},
		{"^", NewInt(2), NewInt(10), NewInt(1024)},
		{"^", NewDouble(2), NewDouble(0.5), NewDouble(1.4142135623730951)},
		{"<", NewInt(4), NewInt(9), NewInt(4)},
		{">", NewInt(4), NewInt(9), NewInt(9)},
		{"EQ", NewInt(2), NewDouble(2), NewBool(true)},
		{"LT", NewInt(3), NewInt(2), NewBool(false)},
		{"AND", NewInt(1), NewInt(0), NewBool(false)},
		{"XOR", NewInt(1), NewInt(0), NewBool(true)},
		{"+", NewBool(true), NewBool(true), NewInt(2)},
		{"+", NewString("ab"), NewString("cd"), NewString("abcd")},
		{"LT", NewString("ab"), NewString("b"), NewBool(true)},
	}

	for _, tt := range tests {
		got, err := Binary(tt.op, tt.x, tt.y)
		if err != nil {
			t.Errorf("%v %s %v: %v", tt.x, tt.op, tt.y, err)

			continue
		}

		if !Equal(got, tt.want) {
			t.Errorf("%v %s %v: got %v (%v), want %v (%v)",
				tt.x, tt.op, tt.y, got, got.Type(), tt.want, tt.want.Type())
		}
	}
}

func TestBinary_IntPower(t *testing.T) {
	tests := []struct {
		x, y int64
		want Value
	}{
		{2, 10, NewInt(1024)},
		{3, 0, NewInt(1)},
		{-2, 3, NewInt(-8)},
		{2, 62, NewInt(1 << 62)},
		{-2, 63, NewInt(math.MinInt64)},
		{2, -1, NewInt(0)},
		{0, 4000000000000, NewInt(0)},
		{1, 4000000000000, NewInt(1)},
		{-1, 4000000000001, NewInt(-1)},
		{2, 63, NewDouble(math.Pow(2, 63))},
		{10, 19, NewDouble(1e19)},
		{2, 4000000000000, NewDouble(math.Inf(1))},
	}

	for _, tt := range tests {
		got, err := Binary("^", NewInt(tt.x), NewInt(tt.y))
		if err != nil {
			t.Errorf("%d ^ %d: %v", tt.x, tt.y, err)

			continue
		}

		if !Equal(got, tt.want) {
			t.Errorf("%d ^ %d: got %v (%v), want %v (%v)",
				tt.x, tt.y, got, got.Type(), tt.want, tt.want.Type())
		}
	}

	got, err := Binary("^", Vector(TypeInt, 2, 3), NewInt(40))
	if err != nil {
		t.Fatal(err)
	}

	if a := got.(*Array); a.Elem() != TypeDouble || a.Data()[1] != math.Pow(3, 40) {
		t.Errorf("overflowing element: got %v (%v)", a, a.Elem())
	}
}

func TestElementLimit(t *testing.T) {
	long := Vector(TypeFloat, make([]float64, 1<<15+1)...)
	short := Vector(TypeFloat, make([]float64, 1<<15)...)

	if _, _, err := Meshgrid(long, short); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Meshgrid: got %v, want ErrShapeMismatch", err)
	}

	col, err := long.Reform(1<<15+1, 1)
	if err != nil {
		t.Fatal(err)
	}

	row, err := short.Reform(1, 1<<15)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := MatMul(col, row); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("MatMul: got %v, want ErrShapeMismatch", err)
	}

	if _, err := Linspace(0, 1, MaxElements+1); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("Linspace: got %v, want ErrShapeMismatch", err)
	}
}

func TestBinary_Broadcast(t *testing.T) {
	a := Vector(TypeInt, 1, 2, 3)

	got, err := Binary("*", a, NewFloat(2))
	if err != nil {
		t.Fatalf("array * scalar: %v", err)
	}

	want := Vector(TypeFloat, 2, 4, 6)
	if !Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got, err = Binary("-", NewInt(10), a)
	if err != nil {
		t.Fatalf("scalar - array: %v", err)
	}

	if !Equal(got, Vector(TypeInt, 9, 8, 7)) {
		t.Errorf("got %v", got)
	}

	got, err = Binary("GT", a, Vector(TypeInt, 3, 2, 1))
	if err != nil {
		t.Fatalf("array GT array: %v", err)
	}

	if !Equal(got, Vector(TypeBool, 0, 0, 1)) {
		t.Errorf("got %v", got)
	}
}

func TestBinary_KeepsShape(t *testing.T) {
	m, err := NewArray(TypeInt, []int{2, 2}, []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}

	got, err := Binary("+", m, NewInt(1))
	if err != nil {
		t.Fatalf("matrix + scalar: %v", err)
	}

	if s := got.(*Array).Shape(); !slices.Equal(s, []int{2, 2}) {
		t.Errorf("shape: got %v, want [2 2]", s)
	}
}

func TestBinary_Errors(t *testing.T) {
	tests := []struct {
		name string
		op   string
		x, y Value
		want error
	}{
		{"length mismatch", "+", Vector(TypeInt, 1, 2), Vector(TypeInt, 1, 2, 3), ErrArity},
		{"string plus number", "+", NewString("a"), NewInt(1), ErrTypeMismatch},
		{"string product", "*", NewString("a"), NewString("b"), ErrTypeMismatch},
		{"undefined", "+", Undefined, NewInt(1), ErrUnboundVariable},
		{"integer division by zero", "/", NewInt(1), NewInt(0), ErrInvalidArgument},
		{"integer modulo zero", "MOD", NewInt(1), NewInt(0), ErrInvalidArgument},
		{"unknown operator", "%", NewInt(1), NewInt(1), ErrNotImplemented},
		{"list operand", "+", &Nested{}, NewInt(1), ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Binary(tt.op, tt.x, tt.y); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUnary(t *testing.T) {
	tests := []struct {
		op   string
		x    Value
		want Value
	}{
		{"-", NewInt(3), NewInt(-3)},
		{"-", NewBool(true), NewInt(-1)},
		{"-", NewDouble(1.5), NewDouble(-1.5)},
		{"+", NewFloat(2), NewFloat(2)},
		{"NOT", NewInt(0), NewBool(true)},
		{"~", NewInt(5), NewBool(false)},
		{"NOT", Vector(TypeInt, 0, 2), Vector(TypeBool, 1, 0)},
		{"-", Vector(TypeInt, 1, -2), Vector(TypeInt, -1, 2)},
	}

	for _, tt := range tests {
		got, err := Unary(tt.op, tt.x)
		if err != nil {
			t.Errorf("%s %v: %v", tt.op, tt.x, err)

			continue
		}

		if !Equal(got, tt.want) {
			t.Errorf("%s %v: got %v, want %v", tt.op, tt.x, got, tt.want)
		}
	}

	if _, err := Unary("-", NewString("a")); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("negated string: got %v", err)
	}
}

func TestMatMul(t *testing.T) {
	a, _ := NewArray(TypeInt, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	b, _ := NewArray(TypeInt, []int{3, 2}, []float64{7, 8, 9, 10, 11, 12})

	got, err := Binary("##", a, b)
	if err != nil {
		t.Fatalf("a ## b: %v", err)
	}

	want, _ := NewArray(TypeInt, []int{2, 2}, []float64{58, 64, 139, 154})
	if !Equal(got, want) {
		t.Errorf("a ## b: got %v, want %v", got, want)
	}

	// a # b multiplies the other way round
	got, err = Binary("#", b, a)
	if err != nil {
		t.Fatalf("b # a: %v", err)
	}

	if !Equal(got, want) {
		t.Errorf("b # a: got %v, want %v", got, want)
	}

	col, err := Binary("##", a, Vector(TypeInt, 1, 0, 1))
	if err != nil {
		t.Fatalf("matrix ## vector: %v", err)
	}

	if s := col.(*Array).Shape(); !slices.Equal(s, []int{2, 1}) {
		t.Errorf("matrix ## vector shape: got %v, want [2 1]", s)
	}

	if _, err := Binary("##", a, a); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("inner dimension mismatch: got %v", err)
	}
}

func TestLinspace(t *testing.T) {
	a, err := Linspace(0, 1, 5)
	if err != nil {
		t.Fatalf("Linspace: %v", err)
	}

	if want := []float64{0, 0.25, 0.5, 0.75, 1}; !slices.Equal(a.Data(), want) {
		t.Errorf("got %v, want %v", a.Data(), want)
	}

	if _, err := Linspace(0, 1, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero points: got %v", err)
	}
}

func TestConvert(t *testing.T) {
	v, err := Convert(NewString(" 42.5 "), TypeInt)
	if err != nil {
		t.Fatalf("string to LONG: %v", err)
	}

	if !Equal(v, NewInt(42)) {
		t.Errorf("got %v, want 42", v)
	}

	if _, err := Convert(NewString("abc"), TypeFloat); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("non-numeric string: got %v", err)
	}

	arr, err := Convert(Vector(TypeDouble, 1.7, -1.7), TypeInt)
	if err != nil {
		t.Fatalf("array to LONG: %v", err)
	}

	if !Equal(arr, Vector(TypeInt, 1, -1)) {
		t.Errorf("got %v", arr)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
		err  bool
	}{
		{NewInt(0), false, false},
		{NewDouble(0.1), true, false},
		{NewString(""), false, false},
		{NewString("x"), true, false},
		{Complex{Im: 1}, true, false},
		{Vector(TypeInt, 1), true, false},
		{Vector(TypeInt, 1, 0), false, true},
		{Undefined, false, true},
	}

	for _, tt := range tests {
		got, err := Truthy(tt.v)
		if (err != nil) != tt.err {
			t.Errorf("Truthy(%v): error %v, want error %v", tt.v, err, tt.err)

			continue
		}

		if got != tt.want {
			t.Errorf("Truthy(%v): got %v, want %v", tt.v, got, tt.want)
		}
	}
}
