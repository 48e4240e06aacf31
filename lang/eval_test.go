package lang

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

// run executes src in a fresh interpreter and returns it with everything
// written by PRINT and HELP.
func run(t *testing.T, src string, opts ...Option) (*Interpreter, string) {
	t.Helper()

	var out bytes.Buffer

	in := NewInterpreter(append([]Option{WithOutput(&out)}, opts...)...)
	if _, err := in.RunString(t.Context(), src); err != nil {
		t.Fatalf("run error: %v\nsource:\n%s", err, src)
	}

	return in, out.String()
}

func runErr(t *testing.T, src string, opts ...Option) error {
	t.Helper()

	in := NewInterpreter(opts...)

	_, err := in.RunString(t.Context(), src)
	if err == nil {
		t.Fatalf("expected error from:\n%s", src)
	}

	return err
}

func global(t *testing.T, in *Interpreter, name string) Value {
	t.Helper()

	v, ok := in.Globals().Get(name)
	if !ok {
		t.Fatalf("variable %s is not defined", name)
	}

	return v
}

func TestExecute_LoopControl(t *testing.T) {
	src := `FOR i = 1, 10 DO BEGIN
  IF i EQ 5 THEN CONTINUE
  IF i EQ 8 THEN BREAK
  PRINT, i
ENDFOR`

	in, out := run(t, src)

	if want := "1\n2\n3\n4\n6\n7\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	if i := global(t, in, "i"); !Equal(i, NewInt(8)) {
		t.Errorf("loop variable after BREAK: got %v, want 8", i)
	}
}

func TestExecute_FillArray(t *testing.T) {
	in, _ := run(t, "a = FLTARR(10)\nfor i=0,9 do a[i]=i*2")

	a, ok := global(t, in, "A").(*Array)
	if !ok {
		t.Fatalf("got %T, want *Array", global(t, in, "A"))
	}

	want := []float64{0, 2, 4, 6, 8, 10, 12, 14, 16, 18}
	if a.Elem() != TypeFloat || !slices.Equal(a.Data(), want) {
		t.Errorf("got %v %v, want FLOAT %v", a.Elem(), a.Data(), want)
	}
}

func TestExecute_ForBlockFormsEquivalent(t *testing.T) {
	forms := []string{
		"a = INTARR(5)\nFOR i = 0, 4 DO a[i] = i * i",
		"a = INTARR(5)\nFOR i = 0, 4 DO BEGIN\n  a[i] = i * i\nEND",
		"a = INTARR(5)\nFOR i = 0, 4 DO BEGIN\n  a[i] = i * i\nENDFOR",
	}

	var first Value

	for i, src := range forms {
		in, _ := run(t, src)
		a := global(t, in, "a")

		if i == 0 {
			first = a

			continue
		}

		if !Equal(a, first) {
			t.Errorf("form %d: got %v, want %v", i, a, first)
		}
	}
}

func TestExecute_For(t *testing.T) {
	tests := []struct {
		name string
		src  string
		out  string
	}{
		{"final value", "FOR i = 0, 4 DO x = i\nPRINT, i, x", "5 4\n"},
		{"negative step", "FOR i = 10, 1, -3 DO PRINT, i", "10\n7\n4\n1\n"},
		{"float step", "n = 0\nFOR x = 0.0, 1.0, 0.25 DO n = n + 1\nPRINT, n", "5\n"},
		{"no iterations", "n = 0\nFOR i = 5, 1 DO n = n + 1\nPRINT, n, i", "0 5\n"},
		{"body changes variable", "n = 0\nFOR i = 0, 9 DO BEGIN\n  n = n + 1\n  i = i + 1\nENDFOR\nPRINT, n", "5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, out := run(t, tt.src); out != tt.out {
				t.Errorf("got %q, want %q", out, tt.out)
			}
		})
	}
}

func TestExecute_WhileRepeat(t *testing.T) {
	in, _ := run(t, `k = 0
WHILE k LT 5 DO k = k + 1
j = 10
REPEAT j = j + 1 UNTIL 1
m = 3
REPEAT BEGIN
  m = m - 1
ENDREP UNTIL m LE 0`)

	for name, want := range map[string]Value{"K": NewInt(5), "J": NewInt(11), "M": NewInt(0)} {
		if got := global(t, in, name); !Equal(got, want) {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
	}
}

func TestExecute_Foreach(t *testing.T) {
	in, _ := run(t, `s = 0
FOREACH v, [1, 2, 3], i DO s = s + v * i
l = ['a', 'b', 'c']
w = ''
FOREACH e, k IN l DO w = w + e
FOREACH e, l DO IF e EQ 'b' THEN BREAK`)

	if got := global(t, in, "s"); !Equal(got, NewInt(8)) {
		t.Errorf("s: got %v, want 8", got)
	}

	if got := global(t, in, "w"); !Equal(got, NewString("abc")) {
		t.Errorf("w: got %v, want abc", got)
	}

	if got := global(t, in, "k"); !Equal(got, NewInt(2)) {
		t.Errorf("k: got %v, want 2", got)
	}

	if got := global(t, in, "e"); !Equal(got, NewString("b")) {
		t.Errorf("e after BREAK: got %v, want b", got)
	}
}

func TestExecute_Case(t *testing.T) {
	src := `FUNCTION classify, x
  CASE x OF
    1: r = 'one'
    2, 3: r = 'few'
    ELSE: r = 'many'
  ENDCASE
  RETURN, r
END
a = classify(1)
b = classify(3)
c = classify(9)
r = 0
CASE 5 OF
  1: r = 1
ENDCASE
CASE 'b' OF
  'a': s = 1
  'b': s = 2
ENDCASE`

	in, _ := run(t, src)

	want := map[string]Value{
		"A": NewString("one"),
		"B": NewString("few"),
		"C": NewString("many"),
		"R": NewInt(0),
		"S": NewInt(2),
	}

	for name, w := range want {
		if got := global(t, in, name); !Equal(got, w) {
			t.Errorf("%s: got %v, want %v", name, got, w)
		}
	}
}

func TestExecute_Switch(t *testing.T) {
	tests := []struct {
		subject int
		want    string
	}{
		{1, "abc"},
		{2, "bc"},
		{3, "c"},
		{4, "z"},
	}

	for _, tt := range tests {
		src := fmt.Sprintf(`out = ''
SWITCH %d OF
  1: out = out + 'a'
  2: out = out + 'b'
  3: BEGIN
    out = out + 'c'
    BREAK
  END
  ELSE: out = out + 'z'
ENDSWITCH`, tt.subject)

		in, _ := run(t, src)

		if got := global(t, in, "out"); !Equal(got, NewString(tt.want)) {
			t.Errorf("SWITCH %d: got %v, want %s", tt.subject, got, tt.want)
		}
	}
}

func TestExecute_ProcedureCopyOut(t *testing.T) {
	in, _ := run(t, `PRO double_it, x
  x = x * 2
  tmp = 1
END
v = 21
double_it, v
w = 5
double_it, w + 1`)

	if got := global(t, in, "v"); !Equal(got, NewInt(42)) {
		t.Errorf("v: got %v, want 42", got)
	}

	if got := global(t, in, "w"); !Equal(got, NewInt(5)) {
		t.Errorf("w: got %v, want 5", got)
	}

	if _, ok := in.Globals().Get("tmp"); ok {
		t.Error("routine local leaked into the global frame")
	}
}

func TestExecute_FunctionKeywords(t *testing.T) {
	in, _ := run(t, `FUNCTION scale, v, FACTOR=f, OFFSET=o
  IF N_ELEMENTS(f) EQ 0 THEN f = 1
  IF KEYWORD_SET(o) THEN RETURN, v * f + 100
  RETURN, v * f
END
a = scale(2)
b = scale(2, FACT=3)
c = scale(2, FACTOR=3, /OFFSET)`)

	want := map[string]Value{"A": NewInt(2), "B": NewInt(6), "C": NewInt(106)}

	for name, w := range want {
		if got := global(t, in, name); !Equal(got, w) {
			t.Errorf("%s: got %v, want %v", name, got, w)
		}
	}
}

func TestExecute_ArgumentOrder(t *testing.T) {
	const defs = `FUNCTION g, x
  PRINT, x
  RETURN, x
END
FUNCTION f, a, b, KEY=k
  RETURN, a + b + k
END
PRO p, a, b, KEY=k
END
`

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"function", "y = f(g(1), KEY=g(2), g(3))", "1\n2\n3\n"},
		{"keyword first", "y = f(KEY=g(1), g(2), g(3))", "1\n2\n3\n"},
		{"procedure", "p, g(1), KEY=g(2), g(3)", "1\n2\n3\n"},
		{"builtin", "s = SIZE(N_ELEMENTS=g(1), g(2))", "1\n2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out := run(t, defs+tt.src)
			if out != tt.want {
				t.Errorf("evaluation order: got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestExecute_CallOrSubscript(t *testing.T) {
	in, _ := run(t, `sin = [5.0, 6.0, 7.0]
y = sin(1)
z = sin[1]
print = [1, 2, 3]
w = print(2)
v = [4, 5]
u = v(1)`)

	if y, ok := global(t, in, "y").(Scalar); !ok || math.Abs(y.Float()-math.Sin(1)) > 1e-6 {
		t.Errorf("sin(1) with a SIN variable: got %v, want the sine of 1", global(t, in, "y"))
	}

	tests := []struct {
		name string
		want Value
	}{
		{"z", NewFloat(6)},
		{"w", NewInt(3)},
		{"u", NewInt(5)},
	}

	for _, tt := range tests {
		if got := global(t, in, tt.name); !Equal(got, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestExecute_NParams(t *testing.T) {
	in, _ := run(t, `FUNCTION count, a, b, c
  RETURN, N_PARAMS()
END
n0 = count()
n2 = count(1, 2)`)

	if got := global(t, in, "n0"); !Equal(got, NewInt(0)) {
		t.Errorf("n0: got %v, want 0", got)
	}

	if got := global(t, in, "n2"); !Equal(got, NewInt(2)) {
		t.Errorf("n2: got %v, want 2", got)
	}
}

func TestExecute_Recursion(t *testing.T) {
	in, _ := run(t, `FUNCTION fact, n
  IF n LE 1 THEN RETURN, 1
  RETURN, n * fact(n - 1)
END
f = fact(10)`)

	if got := global(t, in, "f"); !Equal(got, NewInt(3628800)) {
		t.Errorf("got %v, want 3628800", got)
	}
}

func TestExecute_MaxDepth(t *testing.T) {
	err := runErr(t, "FUNCTION forever, n\n  RETURN, forever(n + 1)\nEND\nx = forever(0)",
		WithMaxDepth(50))

	if !errors.Is(err, ErrMaxDepth) {
		t.Errorf("got %v, want ErrMaxDepth", err)
	}
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unbound variable", "y = nothing + 1", ErrUnboundVariable},
		{"unbound print argument", "PRINT, q", ErrUnboundVariable},
		{"string arithmetic", "x = 'a' * 2", ErrTypeMismatch},
		{"index past end", "a = FINDGEN(3)\nx = a[5]", ErrIndexOutOfRange},
		{"length mismatch", "c = FINDGEN(3) + FINDGEN(4)", ErrArity},
		{"unknown function", "x = nosuch(1)", ErrFunctionNotFound},
		{"unknown procedure", "nosuch, 1", ErrFunctionNotFound},
		{"bare unknown name", "nosuch", ErrFunctionNotFound},
		{"procedure as function", "PRO p\nEND\nx = p()", ErrFunctionNotFound},
		{"function as procedure", "FUNCTION f\n  RETURN, 1\nEND\nf, 1", ErrFunctionNotFound},
		{"builtin function as procedure", "FINDGEN, 3", ErrFunctionNotFound},
		{"builtin procedure as function", "x = PRINT(1)", ErrFunctionNotFound},
		{"too many arguments", "PRO p, a\nEND\np, 1, 2", ErrArity},
		{"unknown keyword", "PRO p, K=k\nEND\np, Z=1", ErrInvalidArgument},
		{"missing return value", "FUNCTION f\n  x = 1\nEND\ny = f()", ErrTypeMismatch},
		{"transpose of scalar", "x = TRANSPOSE(5)", ErrNotImplemented},
		{"bad reform", "x = REFORM(FINDGEN(6), 4)", ErrShapeMismatch},
		{"oversized array", "x = FLTARR(3037000500, 3037000500)", ErrShapeMismatch},
		{"wrapping shape", "x = FLTARR(4294967296, 4294967296)", ErrShapeMismatch},
		{"oversized reform", "x = REFORM(FINDGEN(4), 4294967296, 4294967296)", ErrShapeMismatch},
		{"zero FOR step", "FOR i = 0, 3, 0 DO x = i", ErrInvalidArgument},
		{"zero subscript step", "a = FINDGEN(4)\nb = a[0:3:0]", ErrInvalidArgument},
		{"array condition", "IF [1, 2] THEN x = 1", ErrTypeMismatch},
		{"string subscript", "a = FINDGEN(4)\nb = a['x']", ErrTypeMismatch},
		{"subscripted scalar store", "s = 1\ns[0] = 2", ErrTypeMismatch},
		{"missing include", "@no_such_script_anywhere", ErrIncludeNotFound},
		{"complex product", "z = COMPLEX(1, 2) * COMPLEX(3, 4)", ErrNotImplemented},
		{"integer division by zero", "x = 1 / 0", ErrInvalidArgument},
		{"parse error", "x = (1", ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runErr(t, tt.src); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExecute_ErrorPosition(t *testing.T) {
	err := runErr(t, "x = 1\n\ny = x + z")

	var ee *Error
	if !errors.As(err, &ee) {
		t.Fatalf("expected *Error, got %T", err)
	}

	pos, ok := ee.Position()
	if !ok {
		t.Fatal("error carries no position")
	}

	if pos.Line != 3 || pos.Column != 1 {
		t.Errorf("got %d:%d, want 3:1", pos.Line, pos.Column)
	}
}

func TestExecute_FailedAssignmentLeavesTarget(t *testing.T) {
	in := NewInterpreter()

	if _, err := in.RunString(t.Context(), "a = INDGEN(3)"); err != nil {
		t.Fatal(err)
	}

	before := Copy(global(t, in, "a"))

	if _, err := in.RunString(t.Context(), "a[1] = nothing"); err == nil {
		t.Fatal("expected error")
	}

	if _, err := in.RunString(t.Context(), "a[[0, 5]] = 9"); err == nil {
		t.Fatal("expected error")
	}

	if got := global(t, in, "a"); !Equal(got, before) {
		t.Errorf("got %v, want %v", got, before)
	}
}

func TestExecute_Print(t *testing.T) {
	_, out := run(t, "PRINT, 'x =', 3, 1.5\nPRINT, [1, 2, 3]\nPRINT, 3 GT 2\nPRINT")

	if want := "x = 3 1.5\n[1, 2, 3]\n1\n\n"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestExecute_Complex(t *testing.T) {
	in, _ := run(t, "c = COMPLEX(3, 4)\nd = CONJ(c)\nm = ABS(c)\nre = REAL_PART(d)\nim = IMAGINARY(d)")

	if got := global(t, in, "d"); got != (Complex{Re: 3, Im: -4}) {
		t.Errorf("conj: got %v", got)
	}

	if got := global(t, in, "m"); !Equal(got, NewDouble(5)) {
		t.Errorf("abs: got %v, want 5", got)
	}

	if got := global(t, in, "im"); !Equal(got, NewDouble(-4)) {
		t.Errorf("imaginary: got %v, want -4", got)
	}
}

func TestExecute_Subscripts(t *testing.T) {
	in, _ := run(t, `a = INDGEN(3, 4)
a[1, *] = 0
a[0, 0] += 5
b = a[*, 0]
c = a(2, 3)
v = INDGEN(5)
last = v[-1]
w = v[[0, 2, 4]]
tail = v[2:*]
evens = v[0:*:2]`)

	tests := map[string]Value{
		"B":     Vector(TypeInt, 5, 0, 8),
		"C":     NewInt(11),
		"LAST":  NewInt(4),
		"W":     Vector(TypeInt, 0, 2, 4),
		"TAIL":  Vector(TypeInt, 2, 3, 4),
		"EVENS": Vector(TypeInt, 0, 2, 4),
	}

	for name, want := range tests {
		if got := global(t, in, name); !Equal(got, want) {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
	}
}

func TestExecute_ValueSemantics(t *testing.T) {
	in, _ := run(t, "a = [1, 2, 3]\nb = a\nb[0] = 99")

	if got := global(t, in, "a"); !Equal(got, Vector(TypeInt, 1, 2, 3)) {
		t.Errorf("a changed through b: %v", got)
	}
}

func TestExecute_ArrayLiterals(t *testing.T) {
	in, _ := run(t, "m = [[1, 2], [3, 4]]\nr = [[1], [2, 3]]\nl = [1, 'a']\nf = [1, 2.5]")

	m, ok := global(t, in, "m").(*Array)
	if !ok || !slices.Equal(m.Shape(), []int{2, 2}) {
		t.Errorf("m: got %v", global(t, in, "m"))
	}

	if _, ok := global(t, in, "r").(*Nested); !ok {
		t.Errorf("ragged rows: got %T, want *Nested", global(t, in, "r"))
	}

	if _, ok := global(t, in, "l").(*Nested); !ok {
		t.Errorf("mixed list: got %T, want *Nested", global(t, in, "l"))
	}

	if f := global(t, in, "f").(*Array); f.Elem() != TypeFloat {
		t.Errorf("promoted literal: got %v, want FLOAT", f.Elem())
	}
}

func TestExecute_SystemVariables(t *testing.T) {
	in, out := run(t, "x = !pi\nn = N_ELEMENTS(!NULL)\nPRINT, !radeg GT 57")

	if x := global(t, in, "x").(Scalar); x.Type() != TypeFloat {
		t.Errorf("!PI type: got %v", x.Type())
	}

	if got := global(t, in, "n"); !Equal(got, NewInt(0)) {
		t.Errorf("N_ELEMENTS(!NULL): got %v", got)
	}

	if out != "1\n" {
		t.Errorf("got %q", out)
	}

	if err := runErr(t, "x = !nosuch"); !errors.Is(err, ErrUnboundVariable) {
		t.Errorf("unknown system variable: got %v", err)
	}
}

func TestExecute_ShortCircuit(t *testing.T) {
	in, _ := run(t, "a = 0 && nothing\nb = 1 || nothing\nc = (1 GT 0) ? 'y' : nothing")

	for name, want := range map[string]Value{
		"A": NewBool(false), "B": NewBool(true), "C": NewString("y"),
	} {
		if got := global(t, in, name); !Equal(got, want) {
			t.Errorf("%s: got %v, want %v", name, got, want)
		}
	}
}

func TestExecute_Help(t *testing.T) {
	_, out := run(t, "x = 1\na = FLTARR(2, 3)\nHELP, x, a")

	want := fmt.Sprintf("%-15s %-9s = 1\n%-15s %-9s = Array[2,3]\n", "X", "LONG", "A", "FLOAT")
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestExecute_Include(t *testing.T) {
	dir := t.TempDir()

	lib := "FUNCTION twice, x\n  RETURN, 2 * x\nEND\nincluded = 1\n"
	if err := os.WriteFile(filepath.Join(dir, "mathlib.pro"), []byte(lib), 0o600); err != nil {
		t.Fatal(err)
	}

	in, _ := run(t, "@mathlib\ny = twice(4)", WithSearchPath(dir))

	if got := global(t, in, "y"); !Equal(got, NewInt(8)) {
		t.Errorf("y: got %v, want 8", got)
	}

	if got := global(t, in, "included"); !Equal(got, NewInt(1)) {
		t.Errorf("included: got %v, want 1", got)
	}
}

func TestExecute_IncludeDepth(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "selfref.pro"), []byte("@selfref\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := runErr(t, "@selfref", WithSearchPath(dir), WithMaxDepth(5))
	if !errors.Is(err, ErrMaxDepth) {
		t.Errorf("got %v, want ErrMaxDepth", err)
	}
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	prog := mustParse(t, "x = 1")

	_, err := Execute(ctx, prog, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestExecute_Environment(t *testing.T) {
	env := NewEnvironment()
	env.Set("base", NewInt(10))

	got, err := Execute(t.Context(), mustParse(t, "y = base * 2"), env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got != env {
		t.Error("Execute returned a different environment")
	}

	if y, _ := env.Get("Y"); !Equal(y, NewInt(20)) {
		t.Errorf("y: got %v, want 20", y)
	}

	failed, err := Execute(t.Context(), mustParse(t, "z = nothing"), env)
	if err == nil || failed != nil {
		t.Errorf("got %v, %v; want nil environment and an error", failed, err)
	}
}

func TestInterpreter_RunStringResult(t *testing.T) {
	in := NewInterpreter()

	tests := []struct {
		src  string
		want Value
	}{
		{"1 + 2", NewInt(3)},
		{"x = 5", nil},
		{"x", NewInt(5)},
		{"TOTAL([1, 2, 3])", NewFloat(6)},
	}

	for _, tt := range tests {
		got, err := in.RunString(t.Context(), tt.src)
		if err != nil {
			t.Fatalf("%q: %v", tt.src, err)
		}

		if tt.want == nil {
			if got != nil {
				t.Errorf("%q: got %v, want nil", tt.src, got)
			}

			continue
		}

		if !Equal(got, tt.want) {
			t.Errorf("%q: got %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestInterpreter_StatePersists(t *testing.T) {
	in := NewInterpreter()

	steps := []string{
		"PRO bump, v\n  v = v + 1\nEND",
		"n = 1",
		"bump, n",
	}

	for _, src := range steps {
		if _, err := in.RunString(t.Context(), src); err != nil {
			t.Fatalf("%q: %v", src, err)
		}
	}

	if got := global(t, in, "n"); !Equal(got, NewInt(2)) {
		t.Errorf("n: got %v, want 2", got)
	}

	if _, ok := in.Routine("BUMP"); !ok {
		t.Error("routine BUMP not retained")
	}

	in.Reset()

	if in.Globals().Len() != 0 || len(in.Routines()) != 0 {
		t.Error("Reset kept state")
	}
}

func TestInterpreter_CustomRegistry(t *testing.T) {
	table := NewTable(&Builtin{
		Name:    "ANSWER",
		MaxArgs: 0,
		Fn: func(context.Context, []Value, *Keywords) (Value, error) {
			return NewInt(42), nil
		},
	})

	in := NewInterpreter(WithRegistry(table))

	v, err := in.RunString(t.Context(), "ANSWER()")
	if err != nil {
		t.Fatalf("ANSWER(): %v", err)
	}

	if !Equal(v, NewInt(42)) {
		t.Errorf("got %v, want 42", v)
	}

	if _, err := in.RunString(t.Context(), "x = FINDGEN(3)"); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("standard builtin with custom registry: got %v", err)
	}
}
