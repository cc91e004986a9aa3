package parser

import (
	"cminor.dev/compiler/pkg/ast"
	"cminor.dev/compiler/pkg/token"
)

func (p *Parser) parseStmtBlock() (*ast.StmtBlock, error) {
	pos := p.posHere()
	if _, err := p.expect(token.LeftBrace, "stmt block left brace"); err != nil {
		return nil, err
	}

	if !validStmtStart[p.kind()] {
		return nil, p.fail("not valid in stmt block")
	}

	var statements []ast.Statement
	for validStmtStart[p.kind()] && p.kind() != token.RightBrace {
		typeName, lookahead, ok := p.tryParseTypeName(0)

		switch {
		case ok && p.kindAt(lookahead) == token.Identifier && p.kindAt(lookahead+1) == token.Assign:
			_ = typeName // re-derived inside parseStmtAssign, mirroring the reference parser's redundant re-check
			stmt, err := p.parseStmtAssign(nil)
			if err != nil {
				return nil, err
			}
			statements = append(statements, stmt)

		case p.kind() == token.Return:
			stmt, err := p.parseStmtReturn()
			if err != nil {
				return nil, err
			}
			statements = append(statements, stmt)

		case p.kind() == token.Identifier && p.kindAt(1) == token.Assign:
			stmt, err := p.parseStmtAssign(nil)
			if err != nil {
				return nil, err
			}
			statements = append(statements, stmt)

		case p.kind() == token.While:
			stmt, err := p.parseStmtWhile()
			if err != nil {
				return nil, err
			}
			statements = append(statements, stmt)

		case p.kind() == token.If:
			stmt, err := p.parseStmtIfElse()
			if err != nil {
				return nil, err
			}
			statements = append(statements, stmt)

		case validExprStart[p.kind()]:
			exprPos := p.posHere()
			left, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if p.kind() == token.Assign {
				stmt, err := p.parseStmtAssign(left)
				if err != nil {
					return nil, err
				}
				statements = append(statements, stmt)
			} else {
				if _, err := p.expect(token.Semicolon, "ending stmt with semicolon"); err != nil {
					return nil, err
				}
				statements = append(statements, &ast.StmtExpr{Pos: exprPos, Expr: left})
			}

		case p.kind() == token.LeftBrace:
			block, err := p.parseStmtBlock()
			if err != nil {
				return nil, err
			}
			statements = append(statements, block)

		default:
			return nil, p.fail("unexpected token at statement start")
		}
	}

	if _, err := p.expect(token.RightBrace, "right brace closing stmt block"); err != nil {
		return nil, err
	}

	return &ast.StmtBlock{Pos: pos, Statements: statements}, nil
}

// parseStmtAssign handles both "type_name identifier = expr;" declarations
// and plain/pointer-target assignments. assignName, when non-nil, is an
// expression already parsed by the caller while probing for an expression
// statement (this is how "*p = x" reaches an assignment: the caller parsed
// "*p" as an expression, saw '=', and handed it back here as the target).
func (p *Parser) parseStmtAssign(assignName ast.Expression) (ast.Statement, error) {
	pos := p.posHere()

	declType, lookahead, ok := p.tryParseTypeName(0)
	if ok {
		p.advanceBy(lookahead)

		target, err := p.parseVar()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Assign, "equal sign in assignment"); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semicolon, "ending semicolon in assignment"); err != nil {
			return nil, err
		}
		return &ast.StmtAssign{Pos: pos, Left: target, Right: rhs, IsDefine: true, DeclType: declType}, nil
	}

	left := assignName
	if left == nil {
		var err error
		left, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(token.Assign, "equal sign in assignment"); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon, "ending semicolon in assignment"); err != nil {
		return nil, err
	}
	return &ast.StmtAssign{Pos: pos, Left: left, Right: rhs, IsDefine: false}, nil
}

func (p *Parser) parseStmtReturn() (ast.Statement, error) {
	pos := p.posHere()
	if _, err := p.expect(token.Return, "return statement start"); err != nil {
		return nil, err
	}
	if !validExprStart[p.kind()] {
		return nil, p.fail("return expr token start")
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semicolon, "ending stmt with semicolon"); err != nil {
		return nil, err
	}
	return &ast.StmtReturn{Pos: pos, ReturnVal: expr}, nil
}

func (p *Parser) parseStmtWhile() (ast.Statement, error) {
	pos := p.posHere()
	if _, err := p.expect(token.While, "stmt while starts with while"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LeftParen, "stmt while left paren"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RightParen, "stmt while end right paren"); err != nil {
		return nil, err
	}
	body, err := p.parseStmtBlock()
	if err != nil {
		return nil, err
	}
	return &ast.StmtWhile{Pos: pos, Condition: cond, Body: body}, nil
}

func (p *Parser) parseStmtIfElse() (ast.Statement, error) {
	pos := p.posHere()
	if _, err := p.expect(token.If, "if/else start if"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LeftParen, "if cond begin left paren"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RightParen, "if cond end right paren"); err != nil {
		return nil, err
	}
	ifBody, err := p.parseStmtBlock()
	if err != nil {
		return nil, err
	}

	var elseBody *ast.StmtBlock
	if p.kind() == token.Else {
		p.advance()
		switch p.kind() {
		case token.If:
			nested, err := p.parseStmtIfElse()
			if err != nil {
				return nil, err
			}
			elseBody = &ast.StmtBlock{Pos: p.posHere(), Statements: []ast.Statement{nested}}
		case token.LeftBrace:
			elseBody, err = p.parseStmtBlock()
			if err != nil {
				return nil, err
			}
		default:
			return nil, p.fail("expected 'if' or '{' after else")
		}
	}

	return &ast.StmtIfElse{Pos: pos, Condition: cond, IfBody: ifBody, ElseBody: elseBody}, nil
}
