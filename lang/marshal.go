package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
)

// MarshalJSON implements json.Marshaler for Program.
func (prog *Program) MarshalJSON() ([]byte, error) {
	return json.Marshal(prog.ToMap())
}

// ToMap converts the program to a tree of native Go maps and slices.
func (prog *Program) ToMap() map[string]any {
	stmts := make([]any, 0, len(prog.Stmts))

	for _, s := range prog.Stmts {
		if s != nil {
			stmts = append(stmts, nodeMap(s))
		}
	}

	return map[string]any{"program": stmts}
}

// FormatJSON writes the syntax tree of prog as JSON.
func (prog *Program) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	return writeJSON(w, prog.ToMap(), indent)
}

// FormatYAML writes the syntax tree of prog as YAML.
func (prog *Program) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	return writeYAML(ctx, w, prog.ToMap(), indent)
}

// ToMap converts every binding of e to its native Go form.
func (e *Environment) ToMap() map[string]any {
	m := make(map[string]any, len(e.vars))
	for k, v := range e.vars {
		m[k] = ToNative(v)
	}

	return m
}

// MarshalJSON implements json.Marshaler for Environment.
func (e *Environment) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToMap())
}

// FormatJSON writes the bindings of e as a JSON object.
func (e *Environment) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	return writeJSON(w, e.ToMap(), indent)
}

// FormatYAML writes the bindings of e as a YAML mapping.
func (e *Environment) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	return writeYAML(ctx, w, e.ToMap(), indent)
}

func writeJSON(w io.Writer, v any, indent int) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(v, "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

func writeYAML(ctx context.Context, w io.Writer, v any, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, v, opts...)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

// ToNative converts v to plain Go values: bool, int64, float64, string,
// complex128, nested []any following the array shape, or nil for
// Undefined.
func ToNative(v Value) any {
	switch x := v.(type) {
	case Scalar:
		switch x.typ {
		case TypeBool:
			return x.i != 0
		case TypeInt:
			return x.i
		case TypeString:
			return x.s
		}

		return x.f

	case Complex:
		return complex(x.Re, x.Im)

	case *Array:
		return arrayNative(x, 0, 0)

	case *Nested:
		out := make([]any, len(x.Elems))
		for i, e := range x.Elems {
			out[i] = ToNative(e)
		}

		return out
	}

	return nil
}

func arrayNative(a *Array, axis, off int) []any {
	n := a.shape[axis]
	out := make([]any, n)

	if axis == len(a.shape)-1 {
		for i := range n {
			out[i] = ToNative(a.Element(off + i))
		}

		return out
	}

	stride := Strides(a.shape)[axis]
	for i := range n {
		out[i] = arrayNative(a, axis+1, off+i*stride)
	}

	return out
}

// FromNative converts a plain Go value to a Value. Slices of numbers become
// arrays; slices of equally shaped numeric slices become multi-dimensional
// arrays; any other slice becomes a list.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Undefined, nil
	case Value:
		return t, nil
	case bool:
		return NewBool(t), nil
	case string:
		return NewString(t), nil
	case float32:
		return NewFloat(float64(t)), nil
	case float64:
		return NewDouble(t), nil
	case complex64:
		return Complex{Re: float64(real(t)), Im: float64(imag(t))}, nil
	case complex128:
		return Complex{Re: real(t), Im: imag(t)}, nil
	}

	rv := reflect.ValueOf(x)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NewInt(rv.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NewInt(int64(rv.Uint())), nil //nolint:gosec // wraps like a LONG

	case reflect.Slice, reflect.Array:
		vals := make([]Value, rv.Len())
		rows := rv.Len() > 0

		for i := range vals {
			v, err := FromNative(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}

			vals[i] = v

			if _, ok := v.(*Array); !ok {
				rows = false
			}
		}

		if rows {
			arrs := make([]*Array, len(vals))
			for i, v := range vals {
				arrs[i] = v.(*Array) //nolint:forcetypeassert // checked above
			}

			if a, err := Stack(arrs); err == nil {
				return a, nil
			}
		} else if a, ok := Concat(vals); ok {
			return a, nil
		}

		return &Nested{Elems: vals}, nil
	}

	return nil, ErrTypeMismatch.With(
		slog.String("reason", "no corresponding value type"),
		slog.String("type", fmt.Sprintf("%T", x)),
	)
}

func nodeList[T Node](nodes []T) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, nodeMap(n))
	}

	return out
}

func keywordMaps(kws []KeywordArg) []any {
	out := make([]any, len(kws))

	for i, k := range kws {
		m := map[string]any{"name": k.Name, "at": k.At}
		if k.Flag {
			m["flag"] = true
		} else {
			m["value"] = nodeMap(k.Value)
		}

		out[i] = m
	}

	return out
}

// nodeMap converts one syntax tree node to a map keyed by field name, with
// the node kind under "node".
func nodeMap(n Node) map[string]any {
	if n == nil {
		return nil
	}

	m := map[string]any{"pos": n.Position().String()}

	set := func(kind string, kv ...any) map[string]any {
		m["node"] = kind

		for i := 0; i+1 < len(kv); i += 2 {
			if kv[i+1] != nil {
				m[kv[i].(string)] = kv[i+1] //nolint:forcetypeassert // keys are literals
			}
		}

		return m
	}

	opt := func(e Expr) any {
		if e == nil {
			return nil
		}

		return nodeMap(e)
	}

	switch x := n.(type) {
	case *AssignStmt:
		return set("assign", "target", nodeMap(x.Target), "op", x.Op, "value", nodeMap(x.Value))
	case *ExprStmt:
		return set("expr", "x", nodeMap(x.X))
	case *CallStmt:
		return set("call", "name", x.Name,
			"args", nodeList(x.Args), "keywords", keywordMaps(x.Keywords))
	case *IfStmt:
		return set("if", "cond", nodeMap(x.Cond),
			"then", nodeList(x.Then), "else", nodeList(x.Else))
	case *ForStmt:
		return set("for", "var", x.Var, "start", nodeMap(x.Start),
			"end", nodeMap(x.End), "step", opt(x.Step), "body", nodeList(x.Body))
	case *ForeachStmt:
		return set("foreach", "var", x.Var, "index", x.Index,
			"collection", nodeMap(x.Coll), "body", nodeList(x.Body))
	case *WhileStmt:
		return set("while", "cond", nodeMap(x.Cond), "body", nodeList(x.Body))
	case *RepeatStmt:
		return set("repeat", "body", nodeList(x.Body), "until", nodeMap(x.Cond))
	case *CaseStmt:
		clauses := make([]any, len(x.Clauses))
		for i, c := range x.Clauses {
			clauses[i] = map[string]any{
				"pos":    c.Pos.String(),
				"values": nodeList(c.Values),
				"body":   nodeList(c.Body),
			}
		}

		kind := "case"
		if x.Switch {
			kind = "switch"
		}

		m := set(kind, "subject", nodeMap(x.Subject), "clauses", clauses)
		if x.HasElse {
			m["else"] = nodeList(x.Else)
		}

		return m
	case *BreakStmt:
		return set("break")
	case *ContinueStmt:
		return set("continue")
	case *ReturnStmt:
		return set("return", "value", opt(x.Value))
	case *RoutineDef:
		kind := "pro"
		if x.Function {
			kind = "function"
		}

		kws := make(map[string]any, len(x.Keywords))
		for _, k := range x.Keywords {
			kws[k.Name] = k.Var
		}

		return set(kind, "name", x.Name, "params", x.Params,
			"keywords", kws, "body", nodeList(x.Body))
	case *IncludeStmt:
		return set("include", "file", x.File)

	case *Ident:
		return set("ident", "name", x.Name)
	case *SysVarRef:
		return set("sysvar", "name", x.Name)
	case *NumberLit:
		return set("number", "kind", x.Kind.String(), "value", x.Key)
	case *StringLit:
		return set("string", "value", x.Value)
	case *ArrayLit:
		return set("array", "elements", nodeList(x.Elems))
	case *UnaryExpr:
		return set("unary", "op", x.Op, "x", nodeMap(x.X))
	case *BinaryExpr:
		return set("binary", "op", x.Op, "x", nodeMap(x.X), "y", nodeMap(x.Y))
	case *TernaryExpr:
		return set("ternary", "cond", nodeMap(x.Cond),
			"then", nodeMap(x.Then), "else", nodeMap(x.Else))
	case *IndexExpr:
		return set("index", "x", nodeMap(x.X), "subscripts", nodeList(x.Subs))
	case *RangeExpr:
		return set("range", "lo", nodeMap(x.Lo), "hi", nodeMap(x.Hi), "step", opt(x.Step))
	case *StarExpr:
		return set("all")
	case *CallExpr:
		return set("call", "name", x.Name,
			"args", nodeList(x.Args), "keywords", keywordMaps(x.Keywords))
	}

	return set(fmt.Sprintf("%T", n))
}
