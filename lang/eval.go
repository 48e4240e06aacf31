package lang

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/ardnew/xdl/log"
)

// flow is the outcome of executing a statement. Anything but flowNormal
// unwinds enclosing statements until a construct consumes it.
type flow uint8

const (
	flowNormal flow = iota
	flowBreak
	flowContinue
	flowReturn
)

func (f flow) String() string {
	switch f {
	case flowBreak:
		return "break"
	case flowContinue:
		return "continue"
	case flowReturn:
		return "return"
	}

	return "normal"
}

// Interpreter executes programs against a stack of call frames. The
// outermost frame holds the global variables and persists across calls to
// Execute, along with the routines those programs define.
//
// An Interpreter is not safe for concurrent use.
type Interpreter struct {
	cfg      config
	frames   []*frame
	routines map[string]*RoutineDef
	sysvars  map[string]Value
	last     Value
	includes int
}

// NewInterpreter returns an interpreter with an empty global environment.
func NewInterpreter(opts ...Option) *Interpreter {
	in := &Interpreter{cfg: makeConfig(opts...)}
	if in.cfg.path == nil {
		in.cfg.path = SearchPath()
	}

	in.reset(NewEnvironment())

	return in
}

// Execute runs prog against env and returns the updated environment. A nil
// env starts empty. Execution stops at the first runtime error.
func Execute(
	ctx context.Context,
	prog *Program,
	env *Environment,
	opts ...Option,
) (*Environment, error) {
	if env == nil {
		env = NewEnvironment()
	}

	in := NewInterpreter(opts...)
	in.reset(env)

	if err := in.Execute(ctx, prog); err != nil {
		return nil, err
	}

	return env, nil
}

func (in *Interpreter) reset(env *Environment) {
	in.frames = []*frame{{env: env}}
	in.routines = map[string]*RoutineDef{}
	in.sysvars = systemVariables(in.cfg.path)
	in.last = nil
}

// Reset discards all variables and user routines.
func (in *Interpreter) Reset() { in.reset(NewEnvironment()) }

// Globals returns the global environment.
func (in *Interpreter) Globals() *Environment { return in.frames[0].env }

// Registry returns the table builtins are resolved from.
func (in *Interpreter) Registry() Registry { return in.cfg.registry }

// Routine returns the user routine defined under name.
func (in *Interpreter) Routine(name string) (*RoutineDef, bool) {
	def, ok := in.routines[Canonical(name)]

	return def, ok
}

// Routines returns the user routines sorted by name.
func (in *Interpreter) Routines() []*RoutineDef {
	names := slices.Sorted(maps.Keys(in.routines))

	defs := make([]*RoutineDef, len(names))
	for i, n := range names {
		defs[i] = in.routines[n]
	}

	return defs
}

// SystemVariables returns the names of the read-only system variables.
func (in *Interpreter) SystemVariables() []string {
	return slices.Sorted(maps.Keys(in.sysvars))
}

// Execute runs prog in the global frame. Routine definitions anywhere at the
// top level of prog are registered before the first statement runs.
func (in *Interpreter) Execute(ctx context.Context, prog *Program) error {
	in.cfg.logger.TraceContext(ctx, "execute start",
		slog.Int("statement_count", len(prog.Stmts)))

	in.define(ctx, prog)

	ctx = WithOutputContext(ctx, in.cfg.output)

	if _, err := in.execBlock(ctx, prog.Stmts); err != nil {
		in.cfg.logger.TraceContext(ctx, "execute failed", slog.Any("error", err))

		return err
	}

	in.cfg.logger.TraceContext(ctx, "execute complete",
		slog.Int("variable_count", in.Globals().Len()))

	return nil
}

// RunString parses and executes src. When the last statement is a bare
// expression, its value is returned.
func (in *Interpreter) RunString(ctx context.Context, src string) (Value, error) {
	prog, err := ParseString(ctx, src, WithLogger(in.cfg.logger))
	if err != nil {
		return nil, err
	}

	in.last = nil

	if err := in.Execute(ctx, prog); err != nil {
		return nil, err
	}

	if len(prog.Stmts) == 0 {
		return nil, nil
	}

	switch prog.Stmts[len(prog.Stmts)-1].(type) {
	case *ExprStmt, *CallStmt:
		return in.last, nil
	}

	return nil, nil
}

func (in *Interpreter) define(ctx context.Context, prog *Program) {
	for _, def := range prog.Routines() {
		in.routines[def.Name] = def

		in.cfg.logger.DebugContext(ctx, "define routine",
			slog.String("name", def.Text),
			slog.Bool("function", def.Function),
			slog.Int("params", len(def.Params)))
	}
}

func (in *Interpreter) top() *frame { return in.frames[len(in.frames)-1] }

func (in *Interpreter) execBlock(ctx context.Context, stmts []Stmt) (flow, error) {
	for _, s := range stmts {
		if err := ctx.Err(); err != nil {
			return flowNormal, locate(err, s.Position())
		}

		f, err := in.exec(ctx, s)
		if err != nil {
			return flowNormal, locate(err, s.Position())
		}

		if f != flowNormal {
			return f, nil
		}
	}

	return flowNormal, nil
}

func (in *Interpreter) exec(ctx context.Context, s Stmt) (flow, error) {
	switch s := s.(type) {
	case *AssignStmt:
		return flowNormal, in.execAssign(ctx, s)

	case *ExprStmt:
		v, err := in.eval(ctx, s.X)
		if err != nil {
			return flowNormal, err
		}

		in.last = v

		return flowNormal, nil

	case *CallStmt:
		return flowNormal, in.execCall(ctx, s)

	case *IfStmt:
		c, err := in.evalTruth(ctx, s.Cond)
		if err != nil {
			return flowNormal, err
		}

		if c {
			return in.execBlock(ctx, s.Then)
		}

		return in.execBlock(ctx, s.Else)

	case *ForStmt:
		return in.execFor(ctx, s)

	case *ForeachStmt:
		return in.execForeach(ctx, s)

	case *WhileStmt:
		return in.execWhile(ctx, s)

	case *RepeatStmt:
		return in.execRepeat(ctx, s)

	case *CaseStmt:
		return in.execCase(ctx, s)

	case *BreakStmt:
		return flowBreak, nil

	case *ContinueStmt:
		return flowContinue, nil

	case *ReturnStmt:
		if s.Value != nil {
			v, err := in.evalOwned(ctx, s.Value)
			if err != nil {
				return flowNormal, err
			}

			in.top().ret = v
		}

		return flowReturn, nil

	case *RoutineDef:
		return flowNormal, nil

	case *IncludeStmt:
		return in.execInclude(ctx, s)
	}

	return flowNormal, ErrNotImplemented.With(
		slog.String("statement", fmt.Sprintf("%T", s)))
}

// loopStep interprets the outcome of one loop body. It reports whether the
// loop must stop and the outcome to propagate when it does.
func loopStep(f flow) (bool, flow) {
	switch f {
	case flowBreak:
		return true, flowNormal
	case flowReturn:
		return true, flowReturn
	}

	return false, flowNormal
}

func (in *Interpreter) execFor(ctx context.Context, s *ForStmt) (flow, error) {
	start, err := in.evalScalar(ctx, s.Start)
	if err != nil {
		return flowNormal, err
	}

	end, err := in.evalScalar(ctx, s.End)
	if err != nil {
		return flowNormal, err
	}

	step := NewInt(1)
	if s.Step != nil {
		if step, err = in.evalScalar(ctx, s.Step); err != nil {
			return flowNormal, err
		}
	}

	if step.Float() == 0 {
		return flowNormal, ErrInvalidArgument.With(
			slog.String("reason", "FOR step is zero"),
			slog.String("var", s.Text))
	}

	t := promote(start.typ, step.typ)
	v := newNumber(t, start.Float())
	if t == TypeInt {
		v = NewInt(start.Int())
	}

	env := in.top().env
	limit := end.Float()
	up := step.Float() > 0

	for {
		if cur := v.Float(); (up && cur > limit) || (!up && cur < limit) {
			break
		}

		env.Set(s.Var, v)

		f, err := in.execBlock(ctx, s.Body)
		if err != nil {
			return flowNormal, err
		}

		if stop, out := loopStep(f); stop {
			return out, nil
		}

		back, ok := env.Get(s.Var)
		if !ok {
			return flowNormal, ErrUnboundVariable.With(slog.String("name", s.Text))
		}

		cur, err := ScalarValue(back)
		if err != nil {
			return flowNormal, err
		}

		if t == TypeInt {
			v = NewInt(cur.Int() + step.Int())
		} else {
			v = newNumber(t, cur.Float()+step.Float())
		}
	}

	env.Set(s.Var, v)

	return flowNormal, nil
}

func (in *Interpreter) execForeach(ctx context.Context, s *ForeachStmt) (flow, error) {
	coll, err := in.eval(ctx, s.Coll)
	if err != nil {
		return flowNormal, err
	}

	env := in.top().env

	for i, el := range Elements(coll) {
		env.Set(s.Var, Copy(el))

		if s.Index != "" {
			env.Set(s.Index, NewInt(int64(i)))
		}

		f, err := in.execBlock(ctx, s.Body)
		if err != nil {
			return flowNormal, err
		}

		if stop, out := loopStep(f); stop {
			return out, nil
		}
	}

	return flowNormal, nil
}

func (in *Interpreter) execWhile(ctx context.Context, s *WhileStmt) (flow, error) {
	for {
		c, err := in.evalTruth(ctx, s.Cond)
		if err != nil {
			return flowNormal, err
		}

		if !c {
			return flowNormal, nil
		}

		f, err := in.execBlock(ctx, s.Body)
		if err != nil {
			return flowNormal, err
		}

		if stop, out := loopStep(f); stop {
			return out, nil
		}
	}
}

func (in *Interpreter) execRepeat(ctx context.Context, s *RepeatStmt) (flow, error) {
	for {
		f, err := in.execBlock(ctx, s.Body)
		if err != nil {
			return flowNormal, err
		}

		if stop, out := loopStep(f); stop {
			return out, nil
		}

		c, err := in.evalTruth(ctx, s.Cond)
		if err != nil {
			return flowNormal, err
		}

		if c {
			return flowNormal, nil
		}
	}
}

// execCase runs the first clause matching the subject. A SWITCH continues
// into every later clause, and its ELSE, until BREAK. BREAK leaves the
// construct; other outcomes propagate.
func (in *Interpreter) execCase(ctx context.Context, s *CaseStmt) (flow, error) {
	subject, err := in.eval(ctx, s.Subject)
	if err != nil {
		return flowNormal, err
	}

	run := func(body []Stmt) (flow, bool, error) {
		f, err := in.execBlock(ctx, body)
		if err != nil {
			return flowNormal, true, err
		}

		switch f {
		case flowBreak:
			return flowNormal, true, nil
		case flowNormal:
			return flowNormal, !s.Switch, nil
		}

		return f, true, nil
	}

	matched := false

	for _, c := range s.Clauses {
		for _, ve := range c.Values {
			if matched {
				break
			}

			v, err := in.eval(ctx, ve)
			if err != nil {
				return flowNormal, err
			}

			if matched, err = caseMatch(subject, v); err != nil {
				return flowNormal, err
			}
		}

		if !matched {
			continue
		}

		if f, stop, err := run(c.Body); stop {
			return f, err
		}
	}

	if s.HasElse {
		f, _, err := run(s.Else)

		return f, err
	}

	return flowNormal, nil
}

func caseMatch(subject, v Value) (bool, error) {
	a, aok := subject.(Scalar)
	b, bok := v.(Scalar)

	if aok && bok && (a.typ == TypeString) != (b.typ == TypeString) {
		return false, nil
	}

	eq, err := Binary("EQ", subject, v)
	if err != nil {
		return false, err
	}

	return Truthy(eq)
}

func (in *Interpreter) execInclude(ctx context.Context, s *IncludeStmt) (flow, error) {
	if in.includes >= in.cfg.maxDepth {
		return flowNormal, ErrMaxDepth.With(slog.String("include", s.File))
	}

	path, err := ResolveScript(s.File, in.cfg.path)
	if err != nil {
		return flowNormal, err
	}

	f, err := os.Open(path)
	if err != nil {
		return flowNormal, ErrReadInput.Wrap(err).With(slog.String("path", path))
	}
	defer f.Close()

	prog, err := ParseReader(ctx, f, WithLogger(in.cfg.logger))
	if err != nil {
		return flowNormal, WrapError(err).With(slog.String("path", path))
	}

	in.cfg.logger.DebugContext(ctx, "include",
		slog.String("path", path),
		slog.Int("statement_count", len(prog.Stmts)))

	in.define(ctx, prog)

	in.includes++
	defer func() { in.includes-- }()

	out, err := in.execBlock(ctx, prog.Stmts)
	if err != nil {
		return flowNormal, WrapError(err).With(slog.String("path", path))
	}

	return out, nil
}

func (in *Interpreter) execAssign(ctx context.Context, s *AssignStmt) error {
	switch t := s.Target.(type) {
	case *Ident:
		v, err := in.evalOwned(ctx, s.Value)
		if err != nil {
			return err
		}

		if s.Op != "=" {
			cur, err := in.lookup(t)
			if err != nil {
				return err
			}

			if v, err = Binary(s.Op[:1], cur, v); err != nil {
				return err
			}
		}

		in.top().env.Set(t.Name, v)

		return nil

	case *IndexExpr:
		id, ok := t.X.(*Ident)
		if !ok {
			break
		}

		return in.assignIndexed(ctx, id, t.Subs, s)

	case *CallExpr:
		if _, fn := in.routines[t.Name]; fn {
			return ErrTypeMismatch.With(
				slog.String("reason", "cannot assign to a function call"),
				slog.String("name", t.Text))
		}

		return in.assignIndexed(ctx, &Ident{Pos: t.Pos, Name: t.Name, Text: t.Text}, t.Args, s)
	}

	return ErrTypeMismatch.With(slog.String("reason", "invalid assignment target"))
}

// assignIndexed evaluates the subscripts and the value before touching the
// target, so a failure leaves the target unchanged.
func (in *Interpreter) assignIndexed(
	ctx context.Context,
	id *Ident,
	subExprs []Expr,
	s *AssignStmt,
) error {
	cur, err := in.lookup(id)
	if err != nil {
		return err
	}

	subs, err := in.subscripts(ctx, subExprs)
	if err != nil {
		return err
	}

	v, err := in.evalOwned(ctx, s.Value)
	if err != nil {
		return err
	}

	switch target := cur.(type) {
	case *Array:
		if s.Op != "=" {
			old, err := target.Read(subs...)
			if err != nil {
				return err
			}

			if v, err = Binary(s.Op[:1], old, v); err != nil {
				return err
			}
		}

		return target.Write(v, subs...)

	case *Nested:
		if len(subs) != 1 || subs[0].kind != subIndex {
			return ErrNotImplemented.With(
				slog.String("reason", "list assignment takes one index"),
				slog.String("name", id.Text))
		}

		pos, err := subs[0].positions(0, len(target.Elems))
		if err != nil {
			return err
		}

		if s.Op != "=" {
			if v, err = Binary(s.Op[:1], target.Elems[pos[0]], v); err != nil {
				return err
			}
		}

		target.Elems[pos[0]] = v

		return nil
	}

	return ErrTypeMismatch.With(
		slog.String("reason", "subscripted assignment to a non-array"),
		slog.String("name", id.Text),
		slog.String("type", typeOf(cur).String()))
}

func (in *Interpreter) execCall(ctx context.Context, s *CallStmt) error {
	if s.Name == "HELP" {
		if _, user := in.routines[s.Name]; !user {
			return in.help(ctx, s)
		}
	}

	if def, ok := in.routines[s.Name]; ok {
		if def.Function {
			return ErrFunctionNotFound.With(
				slog.String("reason", "function called as a procedure"),
				slog.String("name", s.Text))
		}

		_, err := in.callRoutine(ctx, def, s.Args, s.Keywords)

		return err
	}

	if fn, ok := in.cfg.registry.Resolve(s.Name); ok {
		if proc, known := isProcedure(fn); known && !proc {
			return ErrFunctionNotFound.With(
				slog.String("reason", "function called as a procedure"),
				slog.String("name", s.Text))
		}

		_, err := in.callBuiltin(ctx, s.Text, fn, s.Args, s.Keywords)

		return err
	}

	if len(s.Args) == 0 && len(s.Keywords) == 0 {
		if v, ok := in.top().env.Get(s.Name); ok {
			in.last = v

			return nil
		}
	}

	return ErrFunctionNotFound.With(
		slog.String("kind", "procedure"),
		slog.String("name", s.Text))
}

func isProcedure(fn Callable) (proc, known bool) {
	p, ok := fn.(interface{ IsProcedure() bool })
	if !ok {
		return false, false
	}

	return p.IsProcedure(), true
}

func (in *Interpreter) callBuiltin(
	ctx context.Context,
	name string,
	fn Callable,
	argExprs []Expr,
	kws []KeywordArg,
) (Value, error) {
	undef := false
	if u, ok := fn.(interface{ AcceptsUndefined() bool }); ok {
		undef = u.AcceptsUndefined()
	}

	args, kwv, err := in.evalCallArgs(ctx, argExprs, kws)
	if err != nil {
		return nil, err
	}

	for i, v := range args {
		if !undef && IsUndefined(v) {
			arg := slog.Int("argument", i+1)
			if id, ok := argExprs[i].(*Ident); ok {
				arg = slog.String("name", id.Text)
			}

			return nil, ErrUnboundVariable.With(arg, slog.String("routine", name))
		}
	}

	kw := NewKeywords()
	for i, k := range kws {
		kw.Set(k.Name, kwv[i])
	}

	if in.cfg.logger.Enabled(ctx, log.LevelTrace) {
		in.cfg.logger.TraceContext(ctx, "call builtin",
			slog.String("name", name),
			slog.Int("args", len(args)),
			slog.Int("keywords", kw.Len()))
	}

	return fn.Call(ctx, args, kw)
}

// callRoutine runs a user routine in a new frame. Positional parameters and
// keyword variables are copied in; those bound from plain variables are
// copied back to the caller when the routine completes.
func (in *Interpreter) callRoutine(
	ctx context.Context,
	def *RoutineDef,
	argExprs []Expr,
	kws []KeywordArg,
) (Value, error) {
	if len(in.frames) > in.cfg.maxDepth {
		return nil, ErrMaxDepth.With(
			slog.String("routine", def.Text),
			slog.Int("depth", len(in.frames)))
	}

	if len(argExprs) > len(def.Params) {
		return nil, ErrArity.With(
			slog.String("routine", def.Text),
			slog.Int("max", len(def.Params)),
			slog.Int("got", len(argExprs)))
	}

	type binding struct{ param, caller string }

	var outs []binding

	args, kwv, err := in.evalCallArgs(ctx, argExprs, kws)
	if err != nil {
		return nil, err
	}

	fr := &frame{env: NewEnvironment(), routine: def, nparams: len(argExprs)}

	for i, a := range argExprs {
		fr.env.Set(def.Params[i], args[i])

		if id, ok := a.(*Ident); ok {
			outs = append(outs, binding{def.Params[i], id.Name})
		}
	}

	accepted := make([]string, len(def.Keywords))
	for i, k := range def.Keywords {
		accepted[i] = k.Name
	}

	for i, k := range kws {
		key, kerr := matchKeyword(k.Name, accepted)
		if kerr != nil {
			return nil, kerr.With(slog.String("routine", def.Text))
		}

		param := def.Keywords[slices.Index(accepted, key)].Var

		if id, ok := k.Value.(*Ident); ok && !k.Flag {
			outs = append(outs, binding{param, id.Name})
		}

		fr.env.Set(param, kwv[i])
	}

	caller := in.top()

	in.frames = append(in.frames, fr)
	defer func() { in.frames = in.frames[:len(in.frames)-1] }()

	in.cfg.logger.DebugContext(ctx, "call routine",
		slog.String("name", def.Text),
		slog.Int("depth", len(in.frames)-1),
		slog.Int("args", len(argExprs)),
		slog.Int("keywords", len(kws)))

	if _, err := in.execBlock(ctx, def.Body); err != nil {
		return nil, err
	}

	for _, b := range outs {
		if v, ok := fr.env.Get(b.param); ok {
			caller.env.Set(b.caller, v)
		}
	}

	if !def.Function {
		return nil, nil
	}

	if fr.ret == nil {
		return nil, ErrTypeMismatch.With(
			slog.String("reason", "function returned no value"),
			slog.String("routine", def.Text))
	}

	return fr.ret, nil
}

// evalCallArgs evaluates positional and keyword arguments left to right in
// the order they were written. A /FLAG keyword evaluates to 1.
func (in *Interpreter) evalCallArgs(
	ctx context.Context,
	argExprs []Expr,
	kws []KeywordArg,
) (args, kwv []Value, err error) {
	args = make([]Value, len(argExprs))
	kwv = make([]Value, len(kws))

	for i, keyword := range argOrder(len(argExprs), kws) {
		switch {
		case !keyword:
			args[i], err = in.evalArg(ctx, argExprs[i])
		case kws[i].Flag:
			kwv[i] = NewInt(1)
		default:
			kwv[i], err = in.evalArg(ctx, kws[i].Value)
		}

		if err != nil {
			return nil, nil, err
		}
	}

	return args, kwv, nil
}

// evalArg evaluates a call argument. A plain identifier without a binding
// yields Undefined instead of failing.
func (in *Interpreter) evalArg(ctx context.Context, e Expr) (Value, error) {
	if id, ok := e.(*Ident); ok {
		if v, ok := in.top().env.Get(id.Name); ok {
			return v, nil
		}

		return Undefined, nil
	}

	return in.eval(ctx, e)
}

func (in *Interpreter) help(ctx context.Context, s *CallStmt) error {
	w := OutputFrom(ctx)

	describe := func(name string, v Value) {
		switch x := v.(type) {
		case *Array:
			fmt.Fprintf(w, "%-15s %-9s = Array%s\n", name, x.elem, formatShape(x.shape))
		case *Nested:
			fmt.Fprintf(w, "%-15s %-9s = <List(%d)>\n", name, TypeNested, len(x.Elems))
		default:
			fmt.Fprintf(w, "%-15s %-9s = %s\n", name, typeOf(v), v)
		}
	}

	if len(s.Args) == 0 {
		env := in.top().env
		for _, name := range env.Names() {
			v, _ := env.Get(name)
			describe(name, v)
		}

		for _, def := range in.Routines() {
			kind := "PRO"
			if def.Function {
				kind = "FUNCTION"
			}

			fmt.Fprintf(w, "%-15s %s\n", def.Name, kind)
		}

		return nil
	}

	for _, a := range s.Args {
		v, err := in.evalArg(ctx, a)
		if err != nil {
			return err
		}

		name := "<Expression>"
		if id, ok := a.(*Ident); ok {
			name = id.Name
		}

		describe(name, v)
	}

	return nil
}

func (in *Interpreter) lookup(id *Ident) (Value, error) {
	v, ok := in.top().env.Get(id.Name)
	if !ok {
		return nil, ErrUnboundVariable.With(slog.String("name", id.Text))
	}

	return v, nil
}

// evalOwned evaluates e and returns a value no other binding refers to.
func (in *Interpreter) evalOwned(ctx context.Context, e Expr) (Value, error) {
	v, err := in.eval(ctx, e)
	if err != nil {
		return nil, err
	}

	switch e.(type) {
	case *Ident, *IndexExpr, *CallExpr, *TernaryExpr, *SysVarRef:
		return Copy(v), nil
	}

	return v, nil
}

func (in *Interpreter) evalScalar(ctx context.Context, e Expr) (Scalar, error) {
	v, err := in.eval(ctx, e)
	if err != nil {
		return Scalar{}, err
	}

	return ScalarValue(v)
}

func (in *Interpreter) evalInt(ctx context.Context, e Expr) (int, error) {
	s, err := in.evalScalar(ctx, e)
	if err != nil {
		return 0, err
	}

	return int(s.Int()), nil
}

func (in *Interpreter) evalTruth(ctx context.Context, e Expr) (bool, error) {
	v, err := in.eval(ctx, e)
	if err != nil {
		return false, err
	}

	return Truthy(v)
}

func (in *Interpreter) eval(ctx context.Context, e Expr) (Value, error) {
	switch x := e.(type) {
	case *NumberLit:
		return numberValue(x)

	case *StringLit:
		return NewString(x.Value), nil

	case *SysVarRef:
		v, ok := in.sysvars[x.Name]
		if !ok {
			return nil, ErrUnboundVariable.With(slog.String("name", x.Name))
		}

		return v, nil

	case *Ident:
		return in.lookup(x)

	case *ArrayLit:
		return in.evalArrayLit(ctx, x)

	case *UnaryExpr:
		v, err := in.eval(ctx, x.X)
		if err != nil {
			return nil, err
		}

		return Unary(x.Op, v)

	case *BinaryExpr:
		return in.evalBinary(ctx, x)

	case *TernaryExpr:
		c, err := in.evalTruth(ctx, x.Cond)
		if err != nil {
			return nil, err
		}

		if c {
			return in.eval(ctx, x.Then)
		}

		return in.eval(ctx, x.Else)

	case *IndexExpr:
		base, err := in.eval(ctx, x.X)
		if err != nil {
			return nil, err
		}

		return in.index(ctx, base, x.Subs)

	case *CallExpr:
		return in.evalCall(ctx, x)

	case *RangeExpr, *StarExpr:
		return nil, ErrTypeMismatch.With(
			slog.String("reason", "range used outside of a subscript"))
	}

	return nil, ErrNotImplemented.With(
		slog.String("expression", fmt.Sprintf("%T", e)))
}

func numberValue(x *NumberLit) (Value, error) {
	switch x.Kind {
	case Int:
		i, err := strconv.ParseInt(x.Key, 10, 64)
		if err == nil {
			return NewInt(i), nil
		}

		f, ferr := strconv.ParseFloat(x.Key, 64)
		if ferr != nil {
			return nil, ErrInvalidArgument.Wrap(err).With(slog.String("literal", x.Text))
		}

		return NewDouble(f), nil

	case Float:
		f, err := strconv.ParseFloat(x.Key, 32)
		if err != nil {
			return nil, ErrInvalidArgument.Wrap(err).With(slog.String("literal", x.Text))
		}

		return NewFloat(f), nil
	}

	f, err := strconv.ParseFloat(x.Key, 64)
	if err != nil {
		return nil, ErrInvalidArgument.Wrap(err).With(slog.String("literal", x.Text))
	}

	return NewDouble(f), nil
}

func (in *Interpreter) evalBinary(ctx context.Context, x *BinaryExpr) (Value, error) {
	l, err := in.eval(ctx, x.X)
	if err != nil {
		return nil, err
	}

	if s, ok := l.(Scalar); ok && (x.Op == "&&" || x.Op == "||") {
		t := s.Truthy()
		if (x.Op == "&&" && !t) || (x.Op == "||" && t) {
			return NewBool(t), nil
		}

		rt, err := in.evalTruth(ctx, x.Y)
		if err != nil {
			return nil, err
		}

		return NewBool(rt), nil
	}

	r, err := in.eval(ctx, x.Y)
	if err != nil {
		return nil, err
	}

	return Binary(x.Op, l, r)
}

// evalArrayLit builds an array from a bracketed list. Rows written as
// nested brackets stack into a new leading axis; other numeric elements
// concatenate. Anything else becomes a list.
func (in *Interpreter) evalArrayLit(ctx context.Context, x *ArrayLit) (Value, error) {
	vals := make([]Value, len(x.Elems))
	rows := true

	for i, e := range x.Elems {
		v, err := in.evalOwned(ctx, e)
		if err != nil {
			return nil, err
		}

		vals[i] = v

		if _, ok := e.(*ArrayLit); !ok {
			rows = false
		}
	}

	if rows {
		arrs := make([]*Array, 0, len(vals))

		for _, v := range vals {
			if a, ok := v.(*Array); ok {
				arrs = append(arrs, a)
			}
		}

		if len(arrs) == len(vals) {
			if a, err := Stack(arrs); err == nil {
				return a, nil
			}

			return &Nested{Elems: vals}, nil
		}
	}

	if a, ok := Concat(vals); ok {
		return a, nil
	}

	return &Nested{Elems: vals}, nil
}

func (in *Interpreter) index(ctx context.Context, base Value, subExprs []Expr) (Value, error) {
	subs, err := in.subscripts(ctx, subExprs)
	if err != nil {
		return nil, err
	}

	switch b := base.(type) {
	case *Array:
		return b.Read(subs...)

	case *Nested:
		if len(subs) != 1 {
			return nil, ErrNotImplemented.With(
				slog.String("reason", "list subscripts take one index"))
		}

		pos, err := subs[0].positions(0, len(b.Elems))
		if err != nil {
			return nil, err
		}

		if subs[0].kind == subIndex {
			return b.Elems[pos[0]], nil
		}

		out := make([]Value, len(pos))
		for i, p := range pos {
			out[i] = b.Elems[p]
		}

		return &Nested{Elems: out}, nil

	case Scalar, Complex:
		for axis, s := range subs {
			if _, err := s.positions(axis, 1); err != nil {
				return nil, err
			}
		}

		return base, nil
	}

	return nil, ErrTypeMismatch.With(
		slog.String("reason", "value cannot be subscripted"),
		slog.String("type", typeOf(base).String()))
}

func (in *Interpreter) subscripts(ctx context.Context, exprs []Expr) ([]Subscript, error) {
	subs := make([]Subscript, len(exprs))

	for i, e := range exprs {
		s, err := in.subscript(ctx, e)
		if err != nil {
			return nil, err
		}

		subs[i] = s
	}

	return subs, nil
}

func (in *Interpreter) subscript(ctx context.Context, e Expr) (Subscript, error) {
	switch x := e.(type) {
	case *StarExpr:
		return All(), nil

	case *RangeExpr:
		lo, err := in.evalInt(ctx, x.Lo)
		if err != nil {
			return Subscript{}, err
		}

		step := 1

		if x.Step != nil {
			if step, err = in.evalInt(ctx, x.Step); err != nil {
				return Subscript{}, err
			}

			if step == 0 {
				return Subscript{}, ErrInvalidArgument.With(
					slog.String("reason", "subscript step is zero"))
			}
		}

		if _, ok := x.Hi.(*StarExpr); ok {
			return RangeToEnd(lo, step), nil
		}

		hi, err := in.evalInt(ctx, x.Hi)
		if err != nil {
			return Subscript{}, err
		}

		return Range(lo, hi, step), nil
	}

	v, err := in.eval(ctx, e)
	if err != nil {
		return Subscript{}, err
	}

	switch t := v.(type) {
	case Scalar:
		if t.typ.numeric() {
			return Index(int(t.Int())), nil
		}
	case *Array:
		idx := make([]int, t.Len())
		for i, f := range t.data {
			idx[i] = int(f)
		}

		return List(idx...), nil
	}

	return Subscript{}, ErrTypeMismatch.With(
		slog.String("reason", "subscript must be numeric"),
		slog.String("type", typeOf(v).String()))
}

func (in *Interpreter) evalCall(ctx context.Context, c *CallExpr) (Value, error) {
	def, user := in.routines[c.Name]

	switch {
	case user:
		if !def.Function {
			return nil, ErrFunctionNotFound.With(
				slog.String("reason", "procedure called as a function"),
				slog.String("name", c.Text))
		}

		return in.callRoutine(ctx, def, c.Args, c.Keywords)

	case c.Name == "N_PARAMS" && len(c.Args) == 0:
		return NewInt(int64(in.top().nparams)), nil
	}

	fn, builtin := in.cfg.registry.Resolve(c.Name)
	proc, _ := isProcedure(fn)

	// Parentheses subscript a variable only when no function has its name.
	if !builtin || proc {
		if v, ok := in.top().env.Get(c.Name); ok && len(c.Keywords) == 0 {
			return in.index(ctx, v, c.Args)
		}
	}

	if builtin {
		if proc {
			return nil, ErrFunctionNotFound.With(
				slog.String("reason", "procedure called as a function"),
				slog.String("name", c.Text))
		}

		v, err := in.callBuiltin(ctx, c.Text, fn, c.Args, c.Keywords)
		if err != nil {
			return nil, err
		}

		if v == nil {
			return Undefined, nil
		}

		return v, nil
	}

	return nil, ErrFunctionNotFound.With(slog.String("name", c.Text))
}
