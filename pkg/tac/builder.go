package tac

import (
	"fmt"

	"cminor.dev/compiler/pkg/ast"
)

// binaryOpName maps an ast.BinaryOp to the TAC Arithmetic opcode name.
var binaryOpName = map[ast.BinaryOp]string{
	ast.Add: "add", ast.Sub: "sub", ast.Mul: "imul", ast.Div: "div",
	ast.Equality: "eq", ast.LessThan: "lt", ast.LessThanEqual: "lte",
	ast.GreaterThan: "gt", ast.GreaterThanEqual: "gte",
	ast.BitAnd: "and", ast.BitOr: "or",
}

// floatDomain reports whether typ is lowered to a floating-point register
// in the interpreter, as opposed to an integer one.
func floatDomain(typ string) bool {
	return typ == "float" || typ == "double"
}

// Builder lowers a checked *ast.SourceFile into a *Program.
type Builder struct {
	program         *Program
	labelIdx        int
	registerIdx     int
	currentFunction string
}

// NewBuilder returns a fresh Builder.
func NewBuilder() *Builder {
	return &Builder{program: newProgram()}
}

// Build lowers every function in src, in order, into a single Program.
func Build(src *ast.SourceFile) (*Program, error) {
	b := NewBuilder()
	for _, fd := range src.FunDefs {
		if err := b.buildFunDef(fd); err != nil {
			return nil, err
		}
	}
	return b.program, nil
}

func (b *Builder) addInstruction(ins Instruction) {
	b.program.Code = append(b.program.Code, ins)
}

func (b *Builder) insertLabel(label string) {
	b.program.LabelToIndex[label] = len(b.program.Code)
}

// nextLabel mints a unique block label, stamped with the originating
// source line purely as a debugging aid (`.L<n>_<line>`).
func (b *Builder) nextLabel(pos ast.Pos) string {
	label := fmt.Sprintf(".L%d_%d", b.labelIdx, pos.Line)
	b.labelIdx++
	return label
}

func (b *Builder) nextRegister() Register {
	r := Register{Name: fmt.Sprintf("t%d", b.registerIdx)}
	b.registerIdx++
	return r
}

// bindVariable records irName's operand location and adds it to the
// current function's locals list. Passing a nil reg allocates a fresh
// register; a non-nil reg is bound as given.
func (b *Builder) bindVariable(irName string, reg *Register) Register {
	r := b.nextRegister()
	if reg != nil {
		r = *reg
	}
	b.program.VariableToLocation[irName] = r
	b.program.FunLocals[b.currentFunction] = append(b.program.FunLocals[b.currentFunction], irName)
	return r
}

func (b *Builder) varLocation(irName string) Operand {
	loc, ok := b.program.VariableToLocation[irName]
	if !ok {
		panic(fmt.Sprintf("tac: variable %q has no bound location — checker should have rejected this program", irName))
	}
	return loc
}

func (b *Builder) buildFunDef(fd *ast.FunDef) error {
	b.currentFunction = fd.Name
	b.insertLabel(fd.Name)

	params := make([]Register, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = b.bindVariable(p.ParamVar.IrName, nil)
	}
	b.addInstruction(&Params{Registers: params})

	return b.buildStmtList(fd.Body.Statements)
}

func (b *Builder) buildStmtList(stmts []ast.Statement) error {
	for _, s := range stmts {
		if err := b.buildStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) buildStmt(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.StmtAssign:
		return b.buildStmtAssign(s)
	case *ast.StmtReturn:
		return b.buildStmtReturn(s)
	case *ast.StmtWhile:
		return b.buildStmtWhile(s)
	case *ast.StmtIfElse:
		return b.buildStmtIfElse(s)
	case *ast.StmtExpr:
		_, err := b.buildExpr(s.Expr)
		return err
	case *ast.StmtBlock:
		return b.buildStmtList(s.Statements)
	default:
		return fmt.Errorf("tac: unhandled statement variant %T", stmt)
	}
}

func (b *Builder) buildStmtAssign(stmt *ast.StmtAssign) error {
	rhs, err := b.buildExpr(stmt.Right)
	if err != nil {
		return err
	}

	if stmt.IsDefine {
		target := stmt.Left.(*ast.Var)
		dest := b.bindVariable(target.IrName, nil)
		b.addInstruction(&Move{Dest: dest, Src: rhs})
		return nil
	}

	dest, err := b.buildLValue(stmt.Left)
	if err != nil {
		return err
	}
	b.addInstruction(&Move{Dest: dest, Src: rhs})
	return nil
}

// buildLValue evaluates an assignment target to the Operand that should be
// written, handling both a bare variable and a pointer-dereference target
// (`*p = …`).
func (b *Builder) buildLValue(expr ast.Expression) (Operand, error) {
	switch e := expr.(type) {
	case *ast.Var:
		return b.varLocation(e.IrName), nil
	case *ast.OpUnary:
		if e.Op != ast.Deref {
			return nil, fmt.Errorf("tac: unary operator %s is not a valid assignment target", e.Op)
		}
		addr, err := b.buildExpr(e.Operand)
		if err != nil {
			return nil, err
		}
		return &Mem{Base: addr}, nil
	default:
		return nil, fmt.Errorf("tac: %T is not a valid assignment target", expr)
	}
}

func (b *Builder) buildStmtReturn(stmt *ast.StmtReturn) error {
	val, err := b.buildExpr(stmt.ReturnVal)
	if err != nil {
		return err
	}
	b.addInstruction(&Return{Src: val})
	return nil
}

// buildStmtWhile emits test-before-body control flow: `Ltest:`, evaluate
// the condition, `jump_ifnot Lend`, body, `jump Ltest`, `Lend:`.
func (b *Builder) buildStmtWhile(stmt *ast.StmtWhile) error {
	testLabel := b.nextLabel(stmt.Pos)
	endLabel := b.nextLabel(stmt.Pos)

	b.insertLabel(testLabel)
	cond, err := b.buildExpr(stmt.Condition)
	if err != nil {
		return err
	}
	b.addInstruction(&JumpIfNot{Label: endLabel, Cond: cond})

	if err := b.buildStmtList(stmt.Body.Statements); err != nil {
		return err
	}
	b.addInstruction(&Jump{Label: testLabel})
	b.insertLabel(endLabel)
	return nil
}

func (b *Builder) buildStmtIfElse(stmt *ast.StmtIfElse) error {
	cond, err := b.buildExpr(stmt.Condition)
	if err != nil {
		return err
	}

	elseLabel := b.nextLabel(stmt.Pos)
	endLabel := b.nextLabel(stmt.Pos)

	b.addInstruction(&JumpIfNot{Label: elseLabel, Cond: cond})
	if err := b.buildStmtList(stmt.IfBody.Statements); err != nil {
		return err
	}
	b.addInstruction(&Jump{Label: endLabel})

	b.insertLabel(elseLabel)
	if stmt.ElseBody != nil {
		if err := b.buildStmtList(stmt.ElseBody.Statements); err != nil {
			return err
		}
	}
	b.insertLabel(endLabel)
	return nil
}

func (b *Builder) buildExpr(expr ast.Expression) (Operand, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		if e.IsFloat {
			return FloatConst(e.FloatValue), nil
		}
		return IntConst(e.IntValue), nil

	case *ast.Var:
		return b.varLocation(e.IrName), nil

	case *ast.FunCall:
		return b.buildFunCall(e)

	case *ast.OpBinary:
		return b.buildBinary(e)

	case *ast.OpUnary:
		return b.buildUnary(e)

	case *ast.TypeCast:
		return b.buildTypeCast(e)

	default:
		return nil, fmt.Errorf("tac: unhandled expression variant %T", expr)
	}
}

func (b *Builder) buildBinary(e *ast.OpBinary) (Operand, error) {
	left, err := b.buildExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := b.buildExpr(e.Right)
	if err != nil {
		return nil, err
	}

	opName, ok := binaryOpName[e.Op]
	if !ok {
		return nil, fmt.Errorf("tac: unhandled binary operator %s", e.Op)
	}

	dest := b.nextRegister()
	b.addInstruction(&Arithmetic{Dest: dest, Op: opName, Left: left, Right: right})
	return dest, nil
}

// buildUnary lowers Neg, Deref, and Ref. Neg evaluates the operand first and
// subtracts it from zero — the reference implementation's equivalent
// (tac_unary's "neg" case) allocates the result register but then subtracts
// that same freshly-allocated, never-written register from itself instead
// of the evaluated operand; this fixes that so `-x` actually depends on x.
func (b *Builder) buildUnary(e *ast.OpUnary) (Operand, error) {
	switch e.Op {
	case ast.Neg:
		val, err := b.buildExpr(e.Operand)
		if err != nil {
			return nil, err
		}
		dest := b.nextRegister()
		b.addInstruction(&Arithmetic{Dest: dest, Op: "sub", Left: IntConst(0), Right: val})
		return dest, nil

	case ast.Ref:
		val, err := b.buildExpr(e.Operand)
		if err != nil {
			return nil, err
		}
		slot := &Mem{}
		b.addInstruction(&Push{Val: val, Slot: slot})
		return AddressOf{Slot: slot}, nil

	case ast.Deref:
		addr, err := b.buildExpr(e.Operand)
		if err != nil {
			return nil, err
		}
		dest := b.nextRegister()
		b.addInstruction(&Move{Dest: dest, Src: &Mem{Base: addr}})
		return dest, nil

	default:
		return nil, fmt.Errorf("tac: unhandled unary operator %s", e.Op)
	}
}

func (b *Builder) buildFunCall(e *ast.FunCall) (Operand, error) {
	args := make([]Operand, len(e.Args))
	for i, a := range e.Args {
		val, err := b.buildExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}
	out := b.nextRegister()
	b.addInstruction(&Call{Target: e.FunName, Out: out, Args: args})
	return out, nil
}

// buildTypeCast lowers a checker-inserted or explicit cast. Crossing the
// int/float representation boundary needs an actual conversion; every other
// promotion (e.g. char to int to long) shares representation and is a
// no-op at this level. The reference IR builder leaves TypeCastNode as an
// explicit TODO and forwards the uncast operand unchanged, which silently
// mishandles exactly this boundary (e.g. `float f() { return 1; }`); we
// convert instead of forwarding.
func (b *Builder) buildTypeCast(e *ast.TypeCast) (Operand, error) {
	inner, err := b.buildExpr(e.Value)
	if err != nil {
		return nil, err
	}

	innerTyped, ok := e.Value.(interface{ InferredType() string })
	if !ok {
		return inner, nil
	}
	if floatDomain(innerTyped.InferredType()) == floatDomain(e.CastToType) {
		return inner, nil
	}

	dest := b.nextRegister()
	b.addInstruction(&Convert{Dest: dest, Src: inner, ToFloat: floatDomain(e.CastToType)})
	return dest, nil
}
