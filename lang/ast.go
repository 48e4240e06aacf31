package lang

import "iter"

// Node is any element of a parsed program.
type Node interface {
	Position() Pos
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Program is the root of a parsed source unit.
type Program struct {
	Stmts  []Stmt
	source string
}

// Source returns the text the program was parsed from.
func (prog *Program) Source() string { return prog.source }

// Routines returns the FUNCTION and PRO definitions at the top level of prog.
func (prog *Program) Routines() []*RoutineDef {
	var defs []*RoutineDef

	for _, s := range prog.Stmts {
		if d, ok := s.(*RoutineDef); ok {
			defs = append(defs, d)
		}
	}

	return defs
}

// KeywordArg is a NAME=value (or /NAME) argument at a call site.
type KeywordArg struct {
	Pos   Pos
	Name  string // canonical
	Text  string
	Value Expr // nil when Flag is set
	Flag  bool
	At    int // number of positional arguments written before it
}

// argOrder yields the arguments of a call in source order. Each step is an
// index into the positional list, or into kws when keyword is set.
func argOrder(nargs int, kws []KeywordArg) iter.Seq2[int, bool] {
	return func(yield func(i int, keyword bool) bool) {
		k := 0

		for i := range nargs {
			for ; k < len(kws) && kws[k].At <= i; k++ {
				if !yield(k, true) {
					return
				}
			}

			if !yield(i, false) {
				return
			}
		}

		for ; k < len(kws); k++ {
			if !yield(k, true) {
				return
			}
		}
	}
}

// KeywordParam declares a keyword accepted by a user routine: callers use
// Name, the body reads Var.
type KeywordParam struct {
	Name string
	Var  string
}

type (
	// AssignStmt stores Value into Target, optionally combined with the
	// target's current value through a compound operator.
	AssignStmt struct {
		Pos    Pos
		Target Expr // *Ident, *IndexExpr, or *CallExpr used as a subscript
		Op     string
		Value  Expr
	}

	// ExprStmt evaluates an expression for its value.
	ExprStmt struct {
		Pos Pos
		X   Expr
	}

	// CallStmt invokes a procedure: NAME, arg, KEY=value, /FLAG.
	CallStmt struct {
		Pos      Pos
		Name     string
		Text     string
		Args     []Expr
		Keywords []KeywordArg
	}

	IfStmt struct {
		Pos       Pos
		Cond      Expr
		Then      []Stmt
		Else      []Stmt
		ThenBlock bool
		ElseBlock bool
	}

	ForStmt struct {
		Pos   Pos
		Var   string
		Text  string
		Start Expr
		End   Expr
		Step  Expr // nil means 1
		Body  []Stmt
		Block bool
	}

	// ForeachStmt iterates the elements of Coll, binding Var and, when
	// Index is set, the zero-based position.
	ForeachStmt struct {
		Pos   Pos
		Var   string
		Index string
		Coll  Expr
		Body  []Stmt
		Block bool
	}

	WhileStmt struct {
		Pos   Pos
		Cond  Expr
		Body  []Stmt
		Block bool
	}

	RepeatStmt struct {
		Pos   Pos
		Body  []Stmt
		Cond  Expr
		Block bool
	}

	// CaseStmt selects clauses by comparing Subject with each clause
	// value. A SWITCH keeps executing later clauses after the first match
	// until BREAK.
	CaseStmt struct {
		Pos     Pos
		Switch  bool
		Subject Expr
		Clauses []*CaseClause
		Else    []Stmt
		HasElse bool
	}

	BreakStmt struct {
		Pos Pos
	}

	ContinueStmt struct {
		Pos Pos
	}

	ReturnStmt struct {
		Pos   Pos
		Value Expr
	}

	// RoutineDef defines a FUNCTION or a PRO.
	RoutineDef struct {
		Pos      Pos
		Function bool
		Name     string
		Text     string
		Params   []string
		Keywords []KeywordParam
		Body     []Stmt
	}

	IncludeStmt struct {
		Pos  Pos
		File string
	}
)

// CaseClause is one "value[, value...]: body" arm of a CaseStmt.
type CaseClause struct {
	Pos    Pos
	Values []Expr
	Body   []Stmt
}

type (
	Ident struct {
		Pos  Pos
		Name string // canonical
		Text string
	}

	SysVarRef struct {
		Pos  Pos
		Name string
	}

	NumberLit struct {
		Pos  Pos
		Kind Kind // Int, Float, or Double
		Key  string
		Text string
	}

	StringLit struct {
		Pos   Pos
		Value string
		Text  string
	}

	// ArrayLit is a bracketed list. Nested bracketed lists build rows of
	// a matrix.
	ArrayLit struct {
		Pos   Pos
		Elems []Expr
	}

	UnaryExpr struct {
		Pos Pos
		Op  string
		X   Expr
	}

	BinaryExpr struct {
		Pos Pos
		Op  string
		X   Expr
		Y   Expr
	}

	TernaryExpr struct {
		Pos  Pos
		Cond Expr
		Then Expr
		Else Expr
	}

	// IndexExpr subscripts X with one expression per axis, kept in order.
	IndexExpr struct {
		Pos  Pos
		X    Expr
		Subs []Expr
	}

	// RangeExpr is a lo:hi[:step] subscript.
	RangeExpr struct {
		Pos  Pos
		Lo   Expr
		Hi   Expr // *StarExpr for "to the end"
		Step Expr
	}

	// StarExpr is '*' in a subscript.
	StarExpr struct {
		Pos Pos
	}

	// CallExpr is NAME(args). It names a function, or subscripts a
	// variable when no function of that name exists.
	CallExpr struct {
		Pos      Pos
		Name     string
		Text     string
		Args     []Expr
		Keywords []KeywordArg
	}
)

func (s *AssignStmt) Position() Pos   { return s.Pos }
func (s *ExprStmt) Position() Pos     { return s.Pos }
func (s *CallStmt) Position() Pos     { return s.Pos }
func (s *IfStmt) Position() Pos       { return s.Pos }
func (s *ForStmt) Position() Pos      { return s.Pos }
func (s *ForeachStmt) Position() Pos  { return s.Pos }
func (s *WhileStmt) Position() Pos    { return s.Pos }
func (s *RepeatStmt) Position() Pos   { return s.Pos }
func (s *CaseStmt) Position() Pos     { return s.Pos }
func (s *BreakStmt) Position() Pos    { return s.Pos }
func (s *ContinueStmt) Position() Pos { return s.Pos }
func (s *ReturnStmt) Position() Pos   { return s.Pos }
func (s *RoutineDef) Position() Pos   { return s.Pos }
func (s *IncludeStmt) Position() Pos  { return s.Pos }

func (*AssignStmt) stmtNode()   {}
func (*ExprStmt) stmtNode()     {}
func (*CallStmt) stmtNode()     {}
func (*IfStmt) stmtNode()       {}
func (*ForStmt) stmtNode()      {}
func (*ForeachStmt) stmtNode()  {}
func (*WhileStmt) stmtNode()    {}
func (*RepeatStmt) stmtNode()   {}
func (*CaseStmt) stmtNode()     {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()   {}
func (*RoutineDef) stmtNode()   {}
func (*IncludeStmt) stmtNode()  {}

func (e *Ident) Position() Pos       { return e.Pos }
func (e *SysVarRef) Position() Pos   { return e.Pos }
func (e *NumberLit) Position() Pos   { return e.Pos }
func (e *StringLit) Position() Pos   { return e.Pos }
func (e *ArrayLit) Position() Pos    { return e.Pos }
func (e *UnaryExpr) Position() Pos   { return e.Pos }
func (e *BinaryExpr) Position() Pos  { return e.Pos }
func (e *TernaryExpr) Position() Pos { return e.Pos }
func (e *IndexExpr) Position() Pos   { return e.Pos }
func (e *RangeExpr) Position() Pos   { return e.Pos }
func (e *StarExpr) Position() Pos    { return e.Pos }
func (e *CallExpr) Position() Pos    { return e.Pos }

func (*Ident) exprNode()       {}
func (*SysVarRef) exprNode()   {}
func (*NumberLit) exprNode()   {}
func (*StringLit) exprNode()   {}
func (*ArrayLit) exprNode()    {}
func (*UnaryExpr) exprNode()   {}
func (*BinaryExpr) exprNode()  {}
func (*TernaryExpr) exprNode() {}
func (*IndexExpr) exprNode()   {}
func (*RangeExpr) exprNode()   {}
func (*StarExpr) exprNode()    {}
func (*CallExpr) exprNode()    {}
