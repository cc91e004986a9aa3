package check

import (
	"fmt"

	"cminor.dev/compiler/pkg/ast"
)

// typedOf extracts the ast.Typeable view shared by every expression node.
func typedOf(expr ast.Expression) ast.Typeable {
	return expr.(ast.Typeable)
}

// cmpExprType reports whether exprType satisfies expectedType: an
// unresolved "any number" literal is compatible with any basic type,
// otherwise the two type strings must match exactly.
func cmpExprType(exprType, expectedType string) bool {
	if exprType == ast.AnyNumber && ast.BasicTypes[expectedType] {
		return true
	}
	return exprType == expectedType
}

// getAsPromoted wraps expr in a TypeCast toward expectedType when
// expectedType outranks expr's current inferred type in the numeric
// promotion order; otherwise expr is returned unchanged.
func (c *Checker) getAsPromoted(expr ast.Expression, expectedType string) ast.Expression {
	t := typedOf(expr)
	if t.InferredType() == expectedType {
		return expr
	}
	if !ast.Rankable(t.InferredType(), expectedType) {
		return expr
	}
	if ast.TypeRank[expectedType] <= ast.TypeRank[t.InferredType()] {
		return expr
	}

	cast := &ast.TypeCast{CastToType: expectedType, Value: expr}
	if positioned, ok := expr.(ast.Positioned); ok {
		cast.Pos = positioned.Position()
	}
	cast.SetInferredType(expectedType)
	return cast
}

// getExprType resolves and records expr's inferred type, recursing into
// subexpressions and inserting promotions as it goes.
func (c *Checker) getExprType(expr ast.Expression, bc *blockContext) (string, error) {
	exprType, err := c.inferExprType(expr, bc)
	if err != nil {
		return "", err
	}
	typedOf(expr).SetInferredType(exprType)
	return exprType, nil
}

func (c *Checker) inferExprType(expr ast.Expression, bc *blockContext) (string, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return ast.AnyNumber, nil

	case *ast.Var:
		scoped, err := bc.getScopedVar(e.Name)
		if err != nil {
			return "", &SemanticError{Message: err.Error(), Line: e.Line}
		}
		e.IrName = scoped.IrName
		return scoped.InferredType(), nil

	case *ast.FunCall:
		return c.inferFunCallType(e, bc)

	case *ast.OpBinary:
		return c.inferOpBinaryType(e, bc)

	case *ast.OpUnary:
		return c.inferOpUnaryType(e, bc)

	case *ast.TypeCast:
		if _, err := c.getExprType(e.Value, bc); err != nil {
			return "", err
		}
		return e.CastToType, nil

	default:
		return "", &SemanticError{Message: fmt.Sprintf("unhandled expression variant %T reached the checker", expr)}
	}
}

func (c *Checker) inferFunCallType(e *ast.FunCall, bc *blockContext) (string, error) {
	retType, ok := c.functionToType[e.FunName]
	if !ok {
		return "", &SemanticError{Message: fmt.Sprintf("function %q not defined", e.FunName), Line: e.Line}
	}

	fd := c.functionToAST[e.FunName]
	for i, arg := range e.Args {
		argType, err := c.getExprType(arg, bc)
		if err != nil {
			return "", err
		}
		if i >= len(fd.Params) {
			return "", &SemanticError{Message: fmt.Sprintf("too many arguments to %q", e.FunName), Line: e.Line}
		}
		if !cmpExprType(argType, fd.Params[i].ParamType) {
			return "", &SemanticError{
				Message: fmt.Sprintf("argument %d to %q has type %s, expected %s", i, e.FunName, argType, fd.Params[i].ParamType),
				Line:    e.Line,
			}
		}
	}
	if len(e.Args) < len(fd.Params) {
		return "", &SemanticError{Message: fmt.Sprintf("too few arguments to %q", e.FunName), Line: e.Line}
	}

	return retType, nil
}

func (c *Checker) inferOpBinaryType(e *ast.OpBinary, bc *blockContext) (string, error) {
	leftType, err := c.getExprType(e.Left, bc)
	if err != nil {
		return "", err
	}
	rightType, err := c.getExprType(e.Right, bc)
	if err != nil {
		return "", err
	}

	e.Left = c.getAsPromoted(e.Left, rightType)
	e.Right = c.getAsPromoted(e.Right, leftType)

	if typedOf(e.Left).InferredType() != typedOf(e.Right).InferredType() {
		return "", &SemanticError{
			Message: fmt.Sprintf("cannot apply %s to mismatched types %s and %s", e.Op, typedOf(e.Left).InferredType(), typedOf(e.Right).InferredType()),
			Line:    e.Line,
		}
	}

	return typedOf(e.Left).InferredType(), nil
}

func (c *Checker) inferOpUnaryType(e *ast.OpUnary, bc *blockContext) (string, error) {
	operandType, err := c.getExprType(e.Operand, bc)
	if err != nil {
		return "", err
	}

	switch e.Op {
	case ast.Neg:
		if !ast.BasicTypes[operandType] && operandType != ast.AnyNumber {
			return "", &SemanticError{Message: "cannot apply arithmetic negation to a non-basic type", Line: e.Line}
		}
		return operandType, nil
	case ast.Ref:
		return ast.PointerTo(operandType), nil
	case ast.Deref:
		if !ast.IsPointer(operandType) {
			return "", &SemanticError{Message: "cannot dereference a non-pointer type " + operandType, Line: e.Line}
		}
		return ast.DerefType(operandType), nil
	default:
		return "", &SemanticError{Message: "unhandled unary operator reached the checker", Line: e.Line}
	}
}
