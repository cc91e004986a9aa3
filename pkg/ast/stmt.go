package ast

// StmtReturn is a `return expr;` statement.
type StmtReturn struct {
	Pos
	ReturnVal Expression
}

func (*StmtReturn) stmtNode() {}

// StmtAssign covers both declarations ("int x = 1;") and plain or
// pointer-target assignments ("x = 1;", "*p = 1;"). IsDefine distinguishes
// the two; DeclType is only meaningful when IsDefine is true.
type StmtAssign struct {
	Pos
	Left     Expression
	Right    Expression
	IsDefine bool
	DeclType string
}

func (*StmtAssign) stmtNode() {}

// StmtExpr is an expression evaluated for effect, its value discarded.
type StmtExpr struct {
	Pos
	Expr Expression
}

func (*StmtExpr) stmtNode() {}

// StmtBlock is a brace-delimited statement list. Whether it opens a new
// scope is a checker-time decision (the outermost function body block
// shares scope with the parameter list).
type StmtBlock struct {
	Pos
	Statements []Statement
}

func (*StmtBlock) stmtNode() {}

// StmtWhile is a while loop.
type StmtWhile struct {
	Pos
	Condition Expression
	Body      *StmtBlock
}

func (*StmtWhile) stmtNode() {}

// StmtIfElse is an if, or if/else, statement. ElseBody is nil when there is
// no else clause.
type StmtIfElse struct {
	Pos
	Condition Expression
	IfBody    *StmtBlock
	ElseBody  *StmtBlock
}

func (*StmtIfElse) stmtNode() {}

// FunParam is one parameter of a function definition.
type FunParam struct {
	Pos
	ParamType string
	ParamVar  *Var
}

// FunDef is a function definition. Locals is populated by the checker:
// every Var introduced as a definition inside the function, parameters
// first, in definition order.
type FunDef struct {
	Pos
	RetType string
	Name    string
	Params  []*FunParam
	Body    *StmtBlock
	Locals  []*Var
}

// SourceFile is the root node: an ordered list of function definitions.
type SourceFile struct {
	Pos
	FunDefs []*FunDef
}
