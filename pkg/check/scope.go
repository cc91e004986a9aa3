package check

import (
	"fmt"

	"cminor.dev/compiler/pkg/ast"
	"cminor.dev/compiler/pkg/utils"
)

// scope is one nested block's name→definition dictionary.
type scope struct {
	vars map[string]*ast.Var
}

func newScope() scope { return scope{vars: map[string]*ast.Var{}} }

// blockContext tracks per-function checker state: the stack of lexical
// blocks, the monotonic definition counter behind every ir_name, and the
// accumulated locals list later stored on the FunDef. Scoped directly on
// the reference ScopeTable's stack-of-scopes shape, generalized from Jack's
// four named scope kinds (local/parameter/field/static) to the single
// nested block stack this language's scoping rule calls for.
type blockContext struct {
	blocks      utils.Stack[scope]
	variableIdx int
	returnType  string
	locals      []*ast.Var
}

// newBlockContext opens the outermost block, which parameters and the
// function body share (no extra scope is pushed around the body itself).
func newBlockContext(returnType string) *blockContext {
	bc := &blockContext{returnType: returnType}
	bc.blocks.Push(newScope())
	return bc
}

func (bc *blockContext) pushBlock() { bc.blocks.Push(newScope()) }

func (bc *blockContext) popBlock() { _, _ = bc.blocks.Pop() }

// getScopedVar walks outward from the innermost block and returns the
// nearest definition of name.
func (bc *blockContext) getScopedVar(name string) (*ast.Var, error) {
	for s := range bc.blocks.Iterator() {
		if v, ok := s.vars[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("variable %q not defined", name)
}

// defineScopeVar registers a new definition in the innermost block, assigns
// its ir_name and inferred type, and appends it to the function's locals.
func (bc *blockContext) defineScopeVar(v *ast.Var, declaredType string) error {
	top, err := bc.blocks.Top()
	if err != nil {
		return fmt.Errorf("internal error: no open block to define %q in", v.Name)
	}

	if _, redefined := top.vars[v.Name]; redefined {
		return fmt.Errorf("redefining variable %q in the same block", v.Name)
	}

	v.IrName = fmt.Sprintf("%s_%d", v.Name, bc.variableIdx)
	v.SetInferredType(declaredType)

	top.vars[v.Name] = v
	bc.locals = append(bc.locals, v)
	bc.variableIdx++

	return nil
}
