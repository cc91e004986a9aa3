// Package check implements the semantic pass: scoping, ir_name assignment,
// type inference, and implicit numeric-promotion insertion.
package check

import (
	"cminor.dev/compiler/pkg/ast"
)

// Checker performs a single pass over a SourceFile, mutating every function
// independently. Functions must be defined before they can be called
// (including calling themselves, which is how recursion is reached) since a
// function's signature is registered before its own body is checked.
type Checker struct {
	functionToType    map[string]string
	functionToAST     map[string]*ast.FunDef
}

// New returns an empty Checker.
func New() *Checker {
	return &Checker{
		functionToType: map[string]string{},
		functionToAST:  map[string]*ast.FunDef{},
	}
}

// Check type-checks every function definition in src, in order.
func (c *Checker) Check(src *ast.SourceFile) error {
	for _, fd := range src.FunDefs {
		if err := c.checkFunDef(fd); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkFunDef(fd *ast.FunDef) error {
	bc := newBlockContext(fd.RetType)

	c.functionToType[fd.Name] = fd.RetType
	c.functionToAST[fd.Name] = fd

	for _, param := range fd.Params {
		if err := bc.defineScopeVar(param.ParamVar, param.ParamType); err != nil {
			return &SemanticError{Message: err.Error(), Line: param.Line}
		}
	}

	// The function body shares the parameter list's scope: no extra block is
	// pushed here, only by nested StmtBlocks.
	if err := c.checkStmtList(fd.Body.Statements, bc); err != nil {
		return err
	}

	fd.Locals = bc.locals
	return nil
}

func (c *Checker) checkStmtList(stmts []ast.Statement, bc *blockContext) error {
	for _, stmt := range stmts {
		if err := c.checkStmt(stmt, bc); err != nil {
			return err
		}
	}
	return nil
}

// checkStmtBlock checks a nested block, pushing and popping its own scope.
// The function's own top-level block is checked via checkStmtList instead,
// since it must not open an additional scope.
func (c *Checker) checkStmtBlock(block *ast.StmtBlock, bc *blockContext) error {
	bc.pushBlock()
	err := c.checkStmtList(block.Statements, bc)
	bc.popBlock()
	return err
}

func (c *Checker) checkStmt(stmt ast.Statement, bc *blockContext) error {
	switch s := stmt.(type) {
	case *ast.StmtAssign:
		return c.checkStmtAssign(s, bc)
	case *ast.StmtReturn:
		return c.checkStmtReturn(s, bc)
	case *ast.StmtWhile:
		return c.checkStmtWhile(s, bc)
	case *ast.StmtIfElse:
		return c.checkStmtIfElse(s, bc)
	case *ast.StmtExpr:
		return c.checkStmtExpr(s, bc)
	case *ast.StmtBlock:
		return c.checkStmtBlock(s, bc)
	default:
		return &SemanticError{Message: "unhandled statement variant reached the checker"}
	}
}

func (c *Checker) checkStmtReturn(stmt *ast.StmtReturn, bc *blockContext) error {
	if _, err := c.getExprType(stmt.ReturnVal, bc); err != nil {
		return err
	}

	promoted := c.getAsPromoted(stmt.ReturnVal, bc.returnType)
	stmt.ReturnVal = promoted

	if !cmpExprType(bc.returnType, typedOf(promoted).InferredType()) {
		return &SemanticError{Message: "return type mismatch", Line: stmt.Line}
	}
	return nil
}

func (c *Checker) checkStmtAssign(stmt *ast.StmtAssign, bc *blockContext) error {
	if stmt.IsDefine {
		if _, err := c.getExprType(stmt.Right, bc); err != nil {
			return err
		}
		stmt.Right = c.getAsPromoted(stmt.Right, stmt.DeclType)

		if typedOf(stmt.Right).InferredType() != stmt.DeclType {
			return &SemanticError{Message: "declaration and initializer type mismatch", Line: stmt.Line}
		}

		target, ok := stmt.Left.(*ast.Var)
		if !ok {
			return &SemanticError{Message: "declaration target is not a variable", Line: stmt.Line}
		}
		return bc.defineScopeVar(target, stmt.DeclType)
	}

	switch target := stmt.Left.(type) {
	case *ast.Var:
	case *ast.OpUnary:
		if target.Op != ast.Deref {
			return &SemanticError{Message: "assignment target is not an l-value", Line: stmt.Line}
		}
	default:
		return &SemanticError{Message: "assignment target is not an l-value", Line: stmt.Line}
	}

	leftType, err := c.getExprType(stmt.Left, bc)
	if err != nil {
		return err
	}
	if _, err := c.getExprType(stmt.Right, bc); err != nil {
		return err
	}

	stmt.Right = c.getAsPromoted(stmt.Right, leftType)
	if typedOf(stmt.Right).InferredType() != leftType {
		return &SemanticError{Message: "assignment type mismatch", Line: stmt.Line}
	}
	return nil
}

func (c *Checker) checkStmtWhile(stmt *ast.StmtWhile, bc *blockContext) error {
	condType, err := c.getExprType(stmt.Condition, bc)
	if err != nil {
		return err
	}
	if !ast.IntegralTypes[condType] && condType != ast.AnyNumber {
		return &SemanticError{Message: "cannot evaluate nonintegral type in while condition", Line: stmt.Line}
	}
	return c.checkStmtBlock(stmt.Body, bc)
}

func (c *Checker) checkStmtIfElse(stmt *ast.StmtIfElse, bc *blockContext) error {
	condType, err := c.getExprType(stmt.Condition, bc)
	if err != nil {
		return err
	}
	if !ast.IntegralTypes[condType] && condType != ast.AnyNumber {
		return &SemanticError{Message: "cannot evaluate nonintegral type in if condition", Line: stmt.Line}
	}
	if err := c.checkStmtBlock(stmt.IfBody, bc); err != nil {
		return err
	}
	if stmt.ElseBody != nil {
		return c.checkStmtBlock(stmt.ElseBody, bc)
	}
	return nil
}

func (c *Checker) checkStmtExpr(stmt *ast.StmtExpr, bc *blockContext) error {
	_, err := c.getExprType(stmt.Expr, bc)
	return err
}
