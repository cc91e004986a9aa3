package parser

import (
	"strconv"

	"cminor.dev/compiler/pkg/ast"
	"cminor.dev/compiler/pkg/token"
)

// parseExpr is the grammar entry point; precedence is threaded top-down
// from lowest (bitwise) to highest (unary/dot), all levels left-associative.
func (p *Parser) parseExpr() (ast.Expression, error) {
	return p.parseBitwise()
}

func (p *Parser) parseBitwise() (ast.Expression, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}

	for p.kind() == token.Pipe || p.kind() == token.Ampersand {
		pos := p.posHere()
		op := ast.BitOr
		if p.kind() == token.Ampersand {
			op = ast.BitAnd
		}
		p.advance()

		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		left = &ast.OpBinary{Pos: pos, Op: op, Left: left, Right: right}
	}

	return left, nil
}

var cmpOps = map[token.Kind]ast.BinaryOp{
	token.Equality:         ast.Equality,
	token.LessThan:         ast.LessThan,
	token.LessThanEqual:    ast.LessThanEqual,
	token.GreaterThan:      ast.GreaterThan,
	token.GreaterThanEqual: ast.GreaterThanEqual,
}

func (p *Parser) parseCmp() (ast.Expression, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}

	for {
		op, ok := cmpOps[p.kind()]
		if !ok {
			break
		}
		pos := p.posHere()
		p.advance()

		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		left = &ast.OpBinary{Pos: pos, Op: op, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseAdd() (ast.Expression, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}

	for p.kind() == token.Plus || p.kind() == token.Minus {
		pos := p.posHere()
		op := ast.Add
		if p.kind() == token.Minus {
			op = ast.Sub
		}
		p.advance()

		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &ast.OpBinary{Pos: pos, Op: op, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseMul() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.kind() == token.Star || p.kind() == token.Slash {
		pos := p.posHere()
		op := ast.Mul
		if p.kind() == token.Slash {
			op = ast.Div
		}
		p.advance()

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.OpBinary{Pos: pos, Op: op, Left: left, Right: right}
	}

	return left, nil
}

// parseUnary handles the prefix operators; note that unary * (deref) and &
// (ref) are only reached here, at expression-term start, so binary * inside
// parseMul is never confused with it.
func (p *Parser) parseUnary() (ast.Expression, error) {
	pos := p.posHere()

	switch p.kind() {
	case token.Minus:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.OpUnary{Pos: pos, Op: ast.Neg, Operand: operand}, nil
	case token.Star:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.OpUnary{Pos: pos, Op: ast.Deref, Operand: operand}, nil
	case token.Ampersand:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.OpUnary{Pos: pos, Op: ast.Ref, Operand: operand}, nil
	default:
		return p.parseDot()
	}
}

func (p *Parser) parseDot() (ast.Expression, error) {
	pos := p.posHere()
	left, err := p.parseExprTerm()
	if err != nil {
		return nil, err
	}

	for p.kind() == token.Dot {
		p.advance()
		if p.kind() != token.Identifier {
			return nil, p.fail("identifier following dot access")
		}
		right, err := p.parseExprTerm()
		if err != nil {
			return nil, err
		}
		left = &ast.OpBinary{Pos: pos, Op: ast.DotOp, Left: left, Right: right}
	}

	return left, nil
}

func (p *Parser) parseExprTerm() (ast.Expression, error) {
	pos := p.posHere()

	switch p.kind() {
	case token.LiteralInteger, token.LiteralDecimal:
		tok := p.current()
		p.advance()
		return p.makeLiteral(pos, tok)
	case token.Identifier:
		if p.kindAt(1) == token.LeftParen {
			return p.parseFunCall()
		}
		return p.parseVar()
	case token.LeftParen:
		return p.parseParen()
	default:
		return nil, p.fail("expected a literal, identifier, or parenthesized expression")
	}
}

func (p *Parser) makeLiteral(pos ast.Pos, tok token.Token) (*ast.Literal, error) {
	lit := &ast.Literal{Pos: pos, Raw: tok.Lexeme}
	if tok.Kind == token.LiteralDecimal {
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, &ParseError{Message: "malformed decimal literal " + tok.Lexeme, Line: tok.Line}
		}
		lit.IsFloat = true
		lit.FloatValue = f
		return lit, nil
	}

	n, err := strconv.ParseInt(tok.Lexeme, 10, 64)
	if err != nil {
		return nil, &ParseError{Message: "malformed integer literal " + tok.Lexeme, Line: tok.Line}
	}
	lit.IntValue = n
	return lit, nil
}

// parseParen disambiguates a cast from a parenthesized expression: a type
// name must successfully parse and be immediately followed by ')' for the
// construct to commit to a cast. Nothing is consumed until that commitment.
func (p *Parser) parseParen() (ast.Expression, error) {
	pos := p.posHere()
	if _, err := p.expect(token.LeftParen, "paren expr start left"); err != nil {
		return nil, err
	}

	typeName, lookahead, ok := p.tryParseTypeName(0)
	if ok && p.kindAt(lookahead) == token.RightParen {
		p.advanceBy(lookahead)
		if _, err := p.expect(token.RightParen, "type cast end right paren"); err != nil {
			return nil, err
		}
		operand, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.TypeCast{Pos: pos, CastToType: typeName, Value: operand}, nil
	}

	result, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RightParen, "paren expr end right"); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Parser) parseFunCall() (ast.Expression, error) {
	pos := p.posHere()
	if p.kind() != token.Identifier {
		return nil, p.fail("function name identifier")
	}
	name := p.lexeme()
	p.advance()

	if _, err := p.expect(token.LeftParen, "function left_paren or end"); err != nil {
		return nil, err
	}

	var args []ast.Expression
	for p.kind() != token.RightParen {
		if p.atEnd() {
			return nil, p.fail("unexpected end of input in function call")
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.kind() != token.Comma && p.kind() != token.RightParen {
			return nil, p.fail("function arg list comma or right_paren")
		}
		if p.kind() == token.RightParen {
			break
		}
		p.advance()
	}
	p.advance()

	return &ast.FunCall{Pos: pos, FunName: name, Args: args}, nil
}

func (p *Parser) parseVar() (*ast.Var, error) {
	pos := p.posHere()
	if p.kind() != token.Identifier {
		return nil, p.fail("variable name identifier")
	}
	v := &ast.Var{Pos: pos, Name: p.lexeme()}
	p.advance()
	return v, nil
}
