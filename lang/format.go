package lang

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// DefaultIndent is the indentation width used by Format when none is given.
const DefaultIndent = 2

// Format writes prog as canonical source: keywords in upper case, one
// statement per line, blocks indented by indent spaces. Identifiers keep
// their original spelling. Parsing the output yields an equivalent program.
func (prog *Program) Format(_ context.Context, w io.Writer, indent int) error {
	if indent <= 0 {
		indent = DefaultIndent
	}

	pr := &printer{unit: strings.Repeat(" ", indent)}

	for i, s := range prog.Stmts {
		if s == nil {
			continue
		}

		if _, def := s.(*RoutineDef); def && i > 0 {
			pr.sb.WriteByte('\n')
		}

		pr.stmt(s, 0)
		pr.sb.WriteByte('\n')
	}

	_, err := io.WriteString(w, pr.sb.String())

	return err
}

// FormatTokens writes one line per token: position, kind, and text.
func FormatTokens(w io.Writer, toks []Token) error {
	for _, t := range toks {
		text := t.Text
		if t.Kind == Newline || t.Kind == EOF {
			text = ""
		}

		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", t.Pos, t.Kind, text); err != nil {
			return err
		}
	}

	return nil
}

type printer struct {
	sb   strings.Builder
	unit string
}

func (pr *printer) indent(depth int) {
	for range depth {
		pr.sb.WriteString(pr.unit)
	}
}

func (pr *printer) write(parts ...string) {
	for _, s := range parts {
		pr.sb.WriteString(s)
	}
}

// body writes a loop or branch body after its introducer. A block is
// written as BEGIN, the indented statements, and end on its own line.
func (pr *printer) body(stmts []Stmt, block bool, end string, depth int) {
	if !block && len(stmts) == 1 {
		pr.write(" ")
		pr.stmt(stmts[0], depth)

		return
	}

	pr.write(" BEGIN\n")
	pr.block(stmts, depth+1)
	pr.indent(depth)
	pr.write(end)
}

func (pr *printer) block(stmts []Stmt, depth int) {
	for _, s := range stmts {
		if s == nil {
			continue
		}

		pr.indent(depth)
		pr.stmt(s, depth)
		pr.sb.WriteByte('\n')
	}
}

func (pr *printer) stmt(s Stmt, depth int) {
	switch s := s.(type) {
	case *AssignStmt:
		pr.write(exprString(s.Target), " ", s.Op, " ", exprString(s.Value))

	case *ExprStmt:
		pr.write(exprString(s.X))

	case *CallStmt:
		pr.write(nameOf(s.Name, s.Text))

		for _, a := range argStrings(s.Args, s.Keywords) {
			pr.write(", ", a)
		}

	case *IfStmt:
		pr.write("IF ", exprString(s.Cond), " THEN")
		pr.body(s.Then, s.ThenBlock, "ENDIF", depth)

		if len(s.Else) > 0 || s.ElseBlock {
			pr.write(" ELSE")
			pr.body(s.Else, s.ElseBlock, "ENDELSE", depth)
		}

	case *ForStmt:
		pr.write("FOR ", nameOf(s.Var, s.Text), " = ",
			exprString(s.Start), ", ", exprString(s.End))

		if s.Step != nil {
			pr.write(", ", exprString(s.Step))
		}

		pr.write(" DO")
		pr.body(s.Body, s.Block, "ENDFOR", depth)

	case *ForeachStmt:
		pr.write("FOREACH ", s.Var, ", ", exprString(s.Coll))

		if s.Index != "" {
			pr.write(", ", s.Index)
		}

		pr.write(" DO")
		pr.body(s.Body, s.Block, "ENDFOREACH", depth)

	case *WhileStmt:
		pr.write("WHILE ", exprString(s.Cond), " DO")
		pr.body(s.Body, s.Block, "ENDWHILE", depth)

	case *RepeatStmt:
		pr.write("REPEAT")
		pr.body(s.Body, s.Block, "ENDREP", depth)
		pr.write(" UNTIL ", exprString(s.Cond))

	case *CaseStmt:
		kw, end := "CASE", "ENDCASE"
		if s.Switch {
			kw, end = "SWITCH", "ENDSWITCH"
		}

		pr.write(kw, " ", exprString(s.Subject), " OF\n")

		for _, c := range s.Clauses {
			vals := make([]string, len(c.Values))
			for i, v := range c.Values {
				vals[i] = exprString(v)
			}

			pr.indent(depth + 1)
			pr.write(strings.Join(vals, ", "), ":")
			pr.clause(c.Body, depth+1)
		}

		if s.HasElse {
			pr.indent(depth + 1)
			pr.write("ELSE:")
			pr.clause(s.Else, depth+1)
		}

		pr.indent(depth)
		pr.write(end)

	case *BreakStmt:
		pr.write("BREAK")

	case *ContinueStmt:
		pr.write("CONTINUE")

	case *ReturnStmt:
		pr.write("RETURN")

		if s.Value != nil {
			pr.write(", ", exprString(s.Value))
		}

	case *RoutineDef:
		kw, end := "PRO", "ENDPRO"
		if s.Function {
			kw, end = "FUNCTION", "ENDFUNCTION"
		}

		pr.write(kw, " ", nameOf(s.Name, s.Text))

		for _, p := range s.Params {
			pr.write(", ", p)
		}

		for _, k := range s.Keywords {
			pr.write(", ", k.Name, "=", k.Var)
		}

		pr.write("\n")
		pr.block(s.Body, depth+1)
		pr.indent(depth)
		pr.write(end)

	case *IncludeStmt:
		pr.write("@", s.File)
	}
}

func (pr *printer) clause(body []Stmt, depth int) {
	switch len(body) {
	case 0:
	case 1:
		pr.write(" ")
		pr.stmt(body[0], depth)
	default:
		pr.write(" BEGIN\n")
		pr.block(body, depth+1)
		pr.indent(depth)
		pr.write("END")
	}

	pr.sb.WriteByte('\n')
}

func nameOf(name, text string) string {
	if text != "" {
		return text
	}

	return name
}

func keywordString(k KeywordArg) string {
	if k.Flag {
		return "/" + nameOf(k.Name, k.Text)
	}

	return nameOf(k.Name, k.Text) + "=" + exprString(k.Value)
}

// Binding strength of each expression form, loosest first.
const (
	precTernary = iota + 1
	precOr
	precAnd
	precCompare
	precAdd
	precMul
	precUnary
	precPower
	precPrimary
)

func binaryPrec(op string) int {
	for i, level := range precedence {
		for _, o := range level {
			if o == op {
				return precOr + i
			}
		}
	}

	return precPower
}

func exprPrec(e Expr) int {
	switch x := e.(type) {
	case *TernaryExpr:
		return precTernary
	case *BinaryExpr:
		return binaryPrec(x.Op)
	case *UnaryExpr:
		return precUnary
	}

	return precPrimary
}

// operand renders e, parenthesised when it binds looser than min.
func operand(e Expr, minPrec int) string {
	s := exprString(e)
	if exprPrec(e) < minPrec {
		return "(" + s + ")"
	}

	return s
}

func exprString(e Expr) string {
	switch x := e.(type) {
	case *Ident:
		return nameOf(x.Name, x.Text)

	case *SysVarRef:
		return x.Name

	case *NumberLit:
		return nameOf(x.Key, x.Text)

	case *StringLit:
		if x.Text != "" {
			return x.Text
		}

		return "'" + strings.ReplaceAll(x.Value, "'", "''") + "'"

	case *ArrayLit:
		return "[" + exprList(x.Elems) + "]"

	case *UnaryExpr:
		op := x.Op
		if op == "NOT" {
			op = "NOT "
		}

		return op + operand(x.X, precUnary)

	case *BinaryExpr:
		if x.Op == "^" {
			return operand(x.X, precPrimary) + "^" + operand(x.Y, precUnary)
		}

		p := binaryPrec(x.Op)

		return operand(x.X, p) + " " + x.Op + " " + operand(x.Y, p+1)

	case *TernaryExpr:
		return operand(x.Cond, precOr) + " ? " + exprString(x.Then) +
			" : " + exprString(x.Else)

	case *IndexExpr:
		return operand(x.X, precPrimary) + "[" + exprList(x.Subs) + "]"

	case *RangeExpr:
		s := exprString(x.Lo) + ":" + exprString(x.Hi)
		if x.Step != nil {
			s += ":" + exprString(x.Step)
		}

		return s

	case *StarExpr:
		return "*"

	case *CallExpr:
		parts := argStrings(x.Args, x.Keywords)

		return nameOf(x.Name, x.Text) + "(" + strings.Join(parts, ", ") + ")"
	}

	return ""
}

func argStrings(args []Expr, kws []KeywordArg) []string {
	parts := make([]string, 0, len(args)+len(kws))

	for i, keyword := range argOrder(len(args), kws) {
		if keyword {
			parts = append(parts, keywordString(kws[i]))
		} else {
			parts = append(parts, exprString(args[i]))
		}
	}

	return parts
}

func exprList(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = exprString(e)
	}

	return strings.Join(parts, ", ")
}
