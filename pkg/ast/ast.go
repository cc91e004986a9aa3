// Package ast defines the typed AST produced by the parser and mutated in
// place by the semantic checker.
package ast

import "fmt"

// Pos is the source position every node is tagged with for diagnostics.
type Pos struct {
	Line   int
	Column int
}

// Position returns p itself; embedding Pos by value gives every node this
// method for free, so any node can be type-asserted to Positioned.
func (p Pos) Position() Pos { return p }

// Positioned is satisfied by every AST node via its embedded Pos.
type Positioned interface {
	Position() Pos
}

// Typed is embedded by every expression node. inferred_type is write-once:
// SetInferredType panics if called twice, InferredType panics if called
// before the first Set. This mirrors the write-once assertion guard the
// reference checker relies on (reading or setting out of order is a bug,
// not a recoverable error).
type Typed struct {
	inferredType string
	checked      bool
}

// SetInferredType records the type this expression was resolved to. Must be
// called exactly once per node.
func (t *Typed) SetInferredType(typ string) {
	if t.checked {
		panic("ast: inferred_type set twice on the same node")
	}
	t.checked = true
	t.inferredType = typ
}

// InferredType returns the type recorded by SetInferredType. Must not be
// called before SetInferredType.
func (t *Typed) InferredType() string {
	if !t.checked {
		panic("ast: inferred_type read before being set")
	}
	return t.inferredType
}

// IsTypeChecked reports whether SetInferredType has already run.
func (t *Typed) IsTypeChecked() bool { return t.checked }

// Typeable is satisfied by every expression node through its embedded
// Typed struct; it lets the checker manipulate inferred types generically
// without a type switch.
type Typeable interface {
	SetInferredType(string)
	InferredType() string
	IsTypeChecked() bool
}

// Expression is implemented by every expression node. Its only method is an
// unexported marker; dispatch happens via type switch, matching how the teacher's
// AST packages shape their Statement/Expression marker interfaces.
type Expression interface {
	exprNode()
}

// Statement is implemented by every statement node.
type Statement interface {
	stmtNode()
}

// Literal is an integer or floating-point constant. Its inferred type
// starts out as the abstract tag "any number" until promoted.
type Literal struct {
	Pos
	Typed
	IsFloat    bool
	IntValue   int64
	FloatValue float64
	Raw        string // original lexeme, kept for diagnostics/printing
}

func (*Literal) exprNode() {}

func (l *Literal) String() string { return l.Raw }

// Var is an identifier reference. IrName is bound by the checker to the
// ir_name of whichever definition this reference resolves to.
type Var struct {
	Pos
	Typed
	Name   string
	IrName string
}

func (*Var) exprNode() {}

func (v *Var) String() string { return v.Name }

// FunCall is a call expression.
type FunCall struct {
	Pos
	Typed
	FunName string
	Args    []Expression
}

func (*FunCall) exprNode() {}

// BinaryOp is the closed set of binary operators.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Equality
	LessThan
	LessThanEqual
	GreaterThan
	GreaterThanEqual
	BitAnd
	BitOr
	DotOp
)

var binaryOpSymbols = map[BinaryOp]string{
	Add: "+", Sub: "-", Mul: "*", Div: "/", Equality: "==",
	LessThan: "<", LessThanEqual: "<=", GreaterThan: ">", GreaterThanEqual: ">=",
	BitAnd: "&", BitOr: "|", DotOp: ".",
}

func (op BinaryOp) String() string {
	if s, ok := binaryOpSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// OpBinary is a binary operator expression. Dot is modeled here rather than
// as a separate node since the grammar treats it as a left-associative
// infix operator like the rest of this tier.
type OpBinary struct {
	Pos
	Typed
	Op          BinaryOp
	Left, Right Expression
}

func (*OpBinary) exprNode() {}

// UnaryOp is the closed set of unary operators.
type UnaryOp int

const (
	Neg UnaryOp = iota
	Deref
	Ref
)

var unaryOpSymbols = map[UnaryOp]string{Neg: "-", Deref: "*", Ref: "&"}

func (op UnaryOp) String() string {
	if s, ok := unaryOpSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// OpUnary is a unary operator expression.
type OpUnary struct {
	Pos
	Typed
	Op      UnaryOp
	Operand Expression
}

func (*OpUnary) exprNode() {}

// TypeCast is an explicit or checker-inserted cast.
type TypeCast struct {
	Pos
	Typed
	CastToType string
	Value      Expression
}

func (*TypeCast) exprNode() {}
