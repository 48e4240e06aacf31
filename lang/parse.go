package lang

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/ardnew/xdl/log"
)

// ParseString tokenizes and parses source text.
func ParseString(
	ctx context.Context,
	src string,
	opts ...Option,
) (*Program, error) {
	cfg := makeConfig(opts...)

	cfg.logger.TraceContext(ctx, "parse start",
		slog.Int("source_length", len(src)))

	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	prog, err := parse(ctx, toks, cfg.logger)
	if err != nil {
		return nil, err
	}

	prog.source = src

	return prog, nil
}

// Parse builds a Program from a token stream produced by Tokenize. A single
// error aborts the whole unit; no partial program is returned.
//
// Errors match ErrParse. When the input ends before a construct is complete
// the error also matches ErrIncomplete.
func Parse(ctx context.Context, toks []Token, opts ...Option) (*Program, error) {
	cfg := makeConfig(opts...)

	return parse(ctx, toks, cfg.logger)
}

func parse(ctx context.Context, toks []Token, logger log.Logger) (*Program, error) {
	if len(toks) == 0 || toks[len(toks)-1].Kind != EOF {
		var end Pos
		if len(toks) > 0 {
			end = toks[len(toks)-1].Pos
		}

		toks = append(slices.Clip(toks), Token{Kind: EOF, Pos: end})
	}

	p := &parser{toks: toks, logger: logger}

	prog, err := p.parseProgram()
	if err != nil {
		logger.TraceContext(ctx, "parse failed", slog.Any("error", err))

		return nil, err
	}

	logger.TraceContext(ctx, "parse complete",
		slog.Int("token_count", len(toks)),
		slog.Int("statement_count", len(prog.Stmts)))

	return prog, nil
}

// parser holds the parser state.
type parser struct {
	toks    []Token
	i       int
	loops   int // enclosing loops, for BREAK and CONTINUE
	cases   int // enclosing CASE/SWITCH, for BREAK
	nesting int // enclosing blocks and routines
	logger  log.Logger
}

func (p *parser) peek() Token { return p.peekN(0) }

func (p *parser) peekN(n int) Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}

	return p.toks[p.i+n]
}

func (p *parser) advance() Token {
	t := p.peek()
	if t.Kind != EOF {
		p.i++
	}

	return t
}

func (p *parser) at(key string) bool { return p.peek().Is(key) }

func (p *parser) accept(key string) bool {
	if p.at(key) {
		p.advance()

		return true
	}

	return false
}

func (p *parser) expect(key string) (Token, error) {
	if !p.at(key) {
		return Token{}, p.fail(key)
	}

	return p.advance(), nil
}

func (p *parser) expectIdent(what string) (Token, error) {
	if p.peek().Kind != Identifier {
		return Token{}, p.fail(what)
	}

	return p.advance(), nil
}

func (p *parser) skipNewlines() {
	for p.peek().Kind == Newline {
		p.advance()
	}
}

func (p *parser) atEnd() bool {
	k := p.peek().Kind

	return k == Newline || k == EOF
}

// fail reports that expected was not found at the current token.
func (p *parser) fail(expected string) error {
	t := p.peek()
	err := parseError(t.Pos, expected, t.String())

	if t.Kind == EOF {
		return ErrIncomplete.Wrap(err)
	}

	return err
}

// reject reports that tok is not allowed where it appears.
func (p *parser) reject(tok Token, reason string) error {
	return ErrParse.Wrap(&SyntaxError{
		Pos:    tok.Pos,
		Reason: reason,
		Found:  tok.String(),
	}).At(tok.Pos)
}

func (p *parser) parseProgram() (*Program, error) {
	prog := &Program{}

	for {
		p.skipNewlines()

		if p.peek().Kind == EOF {
			return prog, nil
		}

		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}

		if s != nil {
			prog.Stmts = append(prog.Stmts, s)
		}

		if !p.atEnd() {
			return nil, p.fail("end of statement")
		}
	}
}

// blockEnds lists the construct-specific terminators. Meeting one that does
// not close the current block is a mismatched terminator.
var blockEnds = []string{
	"ENDIF", "ENDELSE", "ENDFOR", "ENDFOREACH", "ENDWHILE", "ENDREP",
	"ENDCASE", "ENDSWITCH", "ENDFUNCTION", "ENDPRO",
}

func isBlockEnd(t Token) bool {
	return t.Kind == Keyword && (t.Key == "END" || slices.Contains(blockEnds, t.Key))
}

// parseBody parses the body of a block construct: a BEGIN block closed by
// END or one of terms, or else exactly one statement.
func (p *parser) parseBody(terms ...string) ([]Stmt, bool, error) {
	if !p.accept("BEGIN") {
		if p.atEnd() {
			return nil, false, p.fail("statement")
		}

		s, err := p.parseStatement()
		if err != nil {
			return nil, false, err
		}

		if s == nil {
			return nil, false, nil
		}

		return []Stmt{s}, false, nil
	}

	stmts, err := p.parseBlock(terms...)

	return stmts, true, err
}

// parseBlock parses statements up to and including END or one of terms.
func (p *parser) parseBlock(terms ...string) ([]Stmt, error) {
	p.nesting++
	defer func() { p.nesting-- }()

	want := strings.Join(append([]string{"END"}, terms...), " or ")

	var stmts []Stmt

	for {
		p.skipNewlines()

		t := p.peek()

		switch {
		case t.Kind == EOF:
			return nil, p.fail(want)

		case t.Is("END") || (t.Kind == Keyword && slices.Contains(terms, t.Key)):
			p.advance()

			return stmts, nil

		case isBlockEnd(t):
			return nil, p.fail(want)
		}

		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}

		if s != nil {
			stmts = append(stmts, s)
		}

		if !p.atEnd() && !isBlockEnd(p.peek()) {
			return nil, p.fail("end of statement")
		}
	}
}

func (p *parser) parseStatement() (Stmt, error) {
	t := p.peek()

	switch t.Kind {
	case Include:
		p.advance()

		return &IncludeStmt{Pos: t.Pos, File: t.Key}, nil

	case Keyword:
		return p.parseKeywordStatement(t)

	case Identifier:
		if p.isProcedureCall() {
			return p.parseCallStmt()
		}
	}

	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	switch op := p.peek(); {
	case op.Is("="), op.Is("+="), op.Is("-="), op.Is("*="), op.Is("/="):
		if err := p.checkTarget(x); err != nil {
			return nil, err
		}

		p.advance()

		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		return &AssignStmt{Pos: t.Pos, Target: x, Op: op.Key, Value: val}, nil
	}

	return &ExprStmt{Pos: t.Pos, X: x}, nil
}

// isProcedureCall reports whether the identifier at the cursor starts a
// procedure call: NAME followed by a comma, the end of the statement, or a
// keyword that cannot continue an expression.
func (p *parser) isProcedureCall() bool {
	next := p.peekN(1)

	switch next.Kind {
	case Newline, EOF:
		return true
	case Keyword:
		_, binary := binaryKeywords[next.Key]

		return !binary
	}

	return next.Is(",")
}

var binaryKeywords = map[string]struct{}{
	"MOD": {}, "EQ": {}, "NE": {}, "LT": {}, "GT": {}, "LE": {}, "GE": {},
	"AND": {}, "OR": {}, "XOR": {},
}

func (p *parser) checkTarget(x Expr) error {
	switch t := x.(type) {
	case *Ident:
		return nil
	case *IndexExpr:
		if _, ok := t.X.(*Ident); ok {
			return nil
		}
	case *CallExpr:
		if len(t.Keywords) == 0 {
			return nil
		}
	}

	return p.reject(p.peek(), "invalid assignment target")
}

func (p *parser) parseKeywordStatement(t Token) (Stmt, error) {
	switch t.Key {
	case "IF":
		return p.parseIf()
	case "FOR":
		return p.parseFor()
	case "FOREACH":
		return p.parseForeach()
	case "WHILE":
		return p.parseWhile()
	case "REPEAT":
		return p.parseRepeat()
	case "CASE", "SWITCH":
		return p.parseCase()
	case "FUNCTION", "PRO":
		if p.nesting > 0 {
			return nil, p.reject(t, "routine definition inside a block")
		}

		return p.parseRoutine()

	case "BREAK":
		p.advance()

		if p.loops == 0 && p.cases == 0 {
			return nil, p.reject(t, "BREAK outside of a loop or CASE")
		}

		return &BreakStmt{Pos: t.Pos}, nil

	case "CONTINUE":
		p.advance()

		if p.loops == 0 {
			return nil, p.reject(t, "CONTINUE outside of a loop")
		}

		return &ContinueStmt{Pos: t.Pos}, nil

	case "RETURN":
		p.advance()

		ret := &ReturnStmt{Pos: t.Pos}

		if p.accept(",") {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			ret.Value = v
		}

		return ret, nil

	case "COMPILE_OPT":
		// compiler directives have no runtime effect
		for !p.atEnd() {
			p.advance()
		}

		return nil, nil

	case "NOT":
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		return &ExprStmt{Pos: t.Pos, X: x}, nil
	}

	return nil, p.reject(t, "unexpected keyword")
}

func (p *parser) parseIf() (Stmt, error) {
	start := p.advance()

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect("THEN"); err != nil {
		return nil, err
	}

	s := &IfStmt{Pos: start.Pos, Cond: cond}

	if s.Then, s.ThenBlock, err = p.parseBody("ENDIF"); err != nil {
		return nil, err
	}

	// ENDIF may be followed by ELSE on the next line
	if s.ThenBlock && p.peek().Kind == Newline {
		n := 0
		for p.peekN(n).Kind == Newline {
			n++
		}

		if p.peekN(n).Is("ELSE") {
			p.skipNewlines()
		}
	}

	if p.accept("ELSE") {
		if s.Else, s.ElseBlock, err = p.parseBody("ENDELSE"); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (p *parser) parseLoopBody(terms ...string) ([]Stmt, bool, error) {
	p.loops++
	defer func() { p.loops-- }()

	return p.parseBody(terms...)
}

func (p *parser) parseFor() (Stmt, error) {
	start := p.advance()

	v, err := p.expectIdent("loop variable")
	if err != nil {
		return nil, err
	}

	s := &ForStmt{Pos: start.Pos, Var: v.Key, Text: v.Text}

	if _, err := p.expect("="); err != nil {
		return nil, err
	}

	if s.Start, err = p.parseExpr(); err != nil {
		return nil, err
	}

	if _, err := p.expect(","); err != nil {
		return nil, err
	}

	if s.End, err = p.parseExpr(); err != nil {
		return nil, err
	}

	if p.accept(",") {
		if s.Step, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}

	if _, err := p.expect("DO"); err != nil {
		return nil, err
	}

	if s.Body, s.Block, err = p.parseLoopBody("ENDFOR"); err != nil {
		return nil, err
	}

	return s, nil
}

// parseForeach accepts both "FOREACH x, coll[, idx] DO" and
// "FOREACH x[, idx] IN coll DO".
func (p *parser) parseForeach() (Stmt, error) {
	start := p.advance()

	v, err := p.expectIdent("loop variable")
	if err != nil {
		return nil, err
	}

	s := &ForeachStmt{Pos: start.Pos, Var: v.Key}

	switch {
	case p.at(",") && p.peekN(1).Kind == Identifier && p.peekN(2).Is("IN"):
		p.advance()
		s.Index = p.advance().Key

		fallthrough

	case p.at("IN"):
		p.advance()

		if s.Coll, err = p.parseExpr(); err != nil {
			return nil, err
		}

	default:
		if _, err := p.expect(","); err != nil {
			return nil, err
		}

		if s.Coll, err = p.parseExpr(); err != nil {
			return nil, err
		}

		if p.accept(",") {
			idx, err := p.expectIdent("index variable")
			if err != nil {
				return nil, err
			}

			s.Index = idx.Key
		}
	}

	if _, err := p.expect("DO"); err != nil {
		return nil, err
	}

	if s.Body, s.Block, err = p.parseLoopBody("ENDFOREACH", "ENDFOR"); err != nil {
		return nil, err
	}

	return s, nil
}

func (p *parser) parseWhile() (Stmt, error) {
	start := p.advance()

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect("DO"); err != nil {
		return nil, err
	}

	s := &WhileStmt{Pos: start.Pos, Cond: cond}

	if s.Body, s.Block, err = p.parseLoopBody("ENDWHILE"); err != nil {
		return nil, err
	}

	return s, nil
}

func (p *parser) parseRepeat() (Stmt, error) {
	start := p.advance()

	s := &RepeatStmt{Pos: start.Pos}

	var err error

	if s.Body, s.Block, err = p.parseLoopBody("ENDREP"); err != nil {
		return nil, err
	}

	if _, err := p.expect("UNTIL"); err != nil {
		return nil, err
	}

	if s.Cond, err = p.parseExpr(); err != nil {
		return nil, err
	}

	return s, nil
}

func (p *parser) parseCase() (Stmt, error) {
	start := p.advance()

	s := &CaseStmt{Pos: start.Pos, Switch: start.Key == "SWITCH"}

	subject, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	s.Subject = subject

	if _, err := p.expect("OF"); err != nil {
		return nil, err
	}

	end := "ENDCASE"
	if s.Switch {
		end = "ENDSWITCH"
	}

	p.cases++
	defer func() { p.cases-- }()

	p.nesting++
	defer func() { p.nesting-- }()

	for {
		p.skipNewlines()

		t := p.peek()

		switch {
		case t.Kind == EOF:
			return nil, p.fail("END or " + end)

		case t.Is("END") || t.Is(end):
			p.advance()

			return s, nil

		case t.Is("ELSE"):
			if s.HasElse {
				return nil, p.reject(t, "duplicate ELSE clause")
			}

			p.advance()

			if _, err := p.expect(":"); err != nil {
				return nil, err
			}

			if s.Else, err = p.parseClauseBody(); err != nil {
				return nil, err
			}

			s.HasElse = true

			continue
		}

		c := &CaseClause{Pos: t.Pos}

		for {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			c.Values = append(c.Values, v)

			if !p.accept(",") {
				break
			}
		}

		if _, err := p.expect(":"); err != nil {
			return nil, err
		}

		if c.Body, err = p.parseClauseBody(); err != nil {
			return nil, err
		}

		s.Clauses = append(s.Clauses, c)
	}
}

// parseClauseBody parses what follows "value:" in a CASE. The body may be
// empty, one statement, or a BEGIN..END block.
func (p *parser) parseClauseBody() ([]Stmt, error) {
	if p.atEnd() {
		return nil, nil
	}

	body, _, err := p.parseBody()
	if err != nil {
		return nil, err
	}

	if !p.atEnd() {
		return nil, p.fail("end of statement")
	}

	return body, nil
}

func (p *parser) parseRoutine() (Stmt, error) {
	start := p.advance()

	name, err := p.expectIdent("routine name")
	if err != nil {
		return nil, err
	}

	def := &RoutineDef{
		Pos:      start.Pos,
		Function: start.Key == "FUNCTION",
		Name:     name.Key,
		Text:     name.Text,
	}

	seen := map[string]struct{}{}

	for p.accept(",") {
		param, err := p.expectIdent("parameter name")
		if err != nil {
			return nil, err
		}

		if p.accept("=") {
			v, err := p.expectIdent("keyword variable")
			if err != nil {
				return nil, err
			}

			def.Keywords = append(def.Keywords,
				KeywordParam{Name: param.Key, Var: v.Key})

			continue
		}

		if _, dup := seen[param.Key]; dup {
			return nil, p.reject(param, "duplicate parameter")
		}

		seen[param.Key] = struct{}{}
		def.Params = append(def.Params, param.Key)
	}

	if !p.atEnd() {
		return nil, p.fail("end of line")
	}

	term := "ENDPRO"
	if def.Function {
		term = "ENDFUNCTION"
	}

	loops, cases := p.loops, p.cases
	p.loops, p.cases = 0, 0

	defer func() { p.loops, p.cases = loops, cases }()

	if def.Body, err = p.parseBlock(term); err != nil {
		return nil, err
	}

	return def, nil
}

func (p *parser) parseCallStmt() (Stmt, error) {
	name := p.advance()

	s := &CallStmt{Pos: name.Pos, Name: name.Key, Text: name.Text}

	for p.accept(",") {
		arg, kw, err := p.parseArg(false)
		if err != nil {
			return nil, err
		}

		if kw != nil {
			kw.At = len(s.Args)
			s.Keywords = append(s.Keywords, *kw)
		} else {
			s.Args = append(s.Args, arg)
		}
	}

	return s, nil
}

// parseArg parses one call argument: /FLAG, NAME=value, or an expression.
// Subscript forms are accepted when subs is set.
func (p *parser) parseArg(subs bool) (Expr, *KeywordArg, error) {
	t := p.peek()

	if t.Is("/") && p.peekN(1).Kind == Identifier {
		p.advance()
		name := p.advance()

		return nil, &KeywordArg{
			Pos: t.Pos, Name: name.Key, Text: name.Text, Flag: true,
		}, nil
	}

	if t.Kind == Identifier && p.peekN(1).Is("=") {
		p.advance()
		p.advance()

		v, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}

		return nil, &KeywordArg{
			Pos: t.Pos, Name: t.Key, Text: t.Text, Value: v,
		}, nil
	}

	if subs {
		x, err := p.parseSubscript()

		return x, nil, err
	}

	x, err := p.parseExpr()

	return x, nil, err
}

func (p *parser) parseExpr() (Expr, error) { return p.parseTernary() }

func (p *parser) parseTernary() (Expr, error) {
	cond, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}

	t := p.peek()
	if !p.accept("?") {
		return cond, nil
	}

	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(":"); err != nil {
		return nil, err
	}

	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}

	return &TernaryExpr{Pos: t.Pos, Cond: cond, Then: then, Else: els}, nil
}

// precedence lists binary operators from lowest to highest binding.
var precedence = [][]string{
	{"OR", "XOR", "||"},
	{"AND", "&&"},
	{"EQ", "NE", "LT", "GT", "LE", "GE"},
	{"+", "-", "<", ">"},
	{"*", "/", "MOD", "#", "##"},
}

func (p *parser) parseBinary(level int) (Expr, error) {
	if level == len(precedence) {
		return p.parseUnary()
	}

	x, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		if (t.Kind != Operator && t.Kind != Keyword) ||
			!slices.Contains(precedence[level], t.Key) {
			return x, nil
		}

		p.advance()

		y, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}

		x = &BinaryExpr{Pos: t.Pos, Op: t.Key, X: x, Y: y}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	t := p.peek()

	if t.Is("-") || t.Is("+") || t.Is("NOT") || t.Is("~") {
		p.advance()

		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return &UnaryExpr{Pos: t.Pos, Op: t.Key, X: x}, nil
	}

	return p.parsePower()
}

// parsePower parses right-associative exponentiation. The exponent may
// carry its own sign.
func (p *parser) parsePower() (Expr, error) {
	x, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	if !p.accept("^") {
		return x, nil
	}

	y, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	return &BinaryExpr{Pos: t.Pos, Op: "^", X: x, Y: y}, nil
}

func (p *parser) parsePostfix() (Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.at("[") {
		open := p.advance()

		var subs []Expr

		for {
			s, err := p.parseSubscript()
			if err != nil {
				return nil, err
			}

			subs = append(subs, s)

			if !p.accept(",") {
				break
			}
		}

		if _, err := p.expect("]"); err != nil {
			return nil, err
		}

		x = &IndexExpr{Pos: open.Pos, X: x, Subs: subs}
	}

	return x, nil
}

func (p *parser) atSubscriptEnd(n int) bool {
	t := p.peekN(n)

	return t.Is(",") || t.Is("]") || t.Is(")") || t.Is(":")
}

// parseSubscript parses one axis of a subscript: *, lo:hi[:step], or an
// expression.
func (p *parser) parseSubscript() (Expr, error) {
	t := p.peek()

	if t.Is("*") && p.atSubscriptEnd(1) && !p.peekN(1).Is(":") {
		p.advance()

		return &StarExpr{Pos: t.Pos}, nil
	}

	lo, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if !p.accept(":") {
		return lo, nil
	}

	r := &RangeExpr{Pos: t.Pos, Lo: lo}

	if st := p.peek(); st.Is("*") && p.atSubscriptEnd(1) {
		p.advance()

		r.Hi = &StarExpr{Pos: st.Pos}
	} else if r.Hi, err = p.parseExpr(); err != nil {
		return nil, err
	}

	if p.accept(":") {
		if r.Step, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.peek()

	switch t.Kind {
	case Int, Float, Double:
		p.advance()

		return &NumberLit{Pos: t.Pos, Kind: t.Kind, Key: t.Key, Text: t.Text}, nil

	case String:
		p.advance()

		return &StringLit{Pos: t.Pos, Value: t.Key, Text: t.Text}, nil

	case SysVar:
		p.advance()

		return &SysVarRef{Pos: t.Pos, Name: t.Key}, nil

	case Identifier:
		p.advance()

		if p.at("(") {
			return p.parseCallExpr(t)
		}

		return &Ident{Pos: t.Pos, Name: t.Key, Text: t.Text}, nil

	case Operator:
		switch t.Key {
		case "(":
			p.advance()

			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			if _, err := p.expect(")"); err != nil {
				return nil, err
			}

			return x, nil

		case "[":
			return p.parseArrayLit()
		}
	}

	return nil, p.fail("expression")
}

func (p *parser) parseCallExpr(name Token) (Expr, error) {
	p.advance() // '('

	c := &CallExpr{Pos: name.Pos, Name: name.Key, Text: name.Text}

	if p.accept(")") {
		return c, nil
	}

	for {
		arg, kw, err := p.parseArg(true)
		if err != nil {
			return nil, err
		}

		if kw != nil {
			kw.At = len(c.Args)
			c.Keywords = append(c.Keywords, *kw)
		} else {
			c.Args = append(c.Args, arg)
		}

		if !p.accept(",") {
			break
		}
	}

	if _, err := p.expect(")"); err != nil {
		return nil, err
	}

	return c, nil
}

func (p *parser) parseArrayLit() (Expr, error) {
	open := p.advance()

	lit := &ArrayLit{Pos: open.Pos}

	for {
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		lit.Elems = append(lit.Elems, x)

		if !p.accept(",") {
			break
		}
	}

	if _, err := p.expect("]"); err != nil {
		return nil, err
	}

	return lit, nil
}
