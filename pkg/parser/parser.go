// Package parser implements a recursive-descent parser over the token
// stream produced by pkg/lexer, building the typed AST in pkg/ast.
package parser

import (
	"fmt"
	"strings"

	"cminor.dev/compiler/pkg/ast"
	"cminor.dev/compiler/pkg/token"
)

// ParseError is raised by any failed grammar production. It carries enough
// context for a caller to point at the fault: a message, the offending
// token's line, and a short excerpt of source around its column.
type ParseError struct {
	Message string
	Line    int
	Excerpt string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d near %q: %s", e.Line, e.Excerpt, e.Message)
}

// validExprStart and validStmtStart are the token kinds that may begin an
// expression, respectively a statement, inside a block. They gate the
// statement dispatch loop and give return/expression-statement parsing an
// early, precise failure instead of falling through to a cryptic one.
var validExprStart = map[token.Kind]bool{
	token.LiteralDecimal: true, token.LiteralInteger: true, token.Identifier: true,
	token.LeftParen: true, token.Minus: true, token.Ampersand: true, token.Star: true,
}

var validStmtStart = map[token.Kind]bool{
	token.LeftBrace: true, token.RightBrace: true, token.Return: true, token.While: true,
	token.If: true, token.Identifier: true, token.Struct: true, token.Unsigned: true,
	token.LiteralDecimal: true, token.LiteralInteger: true, token.LeftParen: true,
	token.Minus: true, token.Ampersand: true, token.Star: true,
}

// Parser walks tokens with a cursor; every production either advances the
// cursor and returns a node or returns a non-nil error without partial
// mutation of shared state.
type Parser struct {
	tokens []token.Token
	lines  []string
	pos    int
}

// New returns a Parser over tokens. source is the original buffer, kept
// only to build diagnostic excerpts.
func New(tokens []token.Token, source string) *Parser {
	return &Parser{tokens: tokens, lines: strings.Split(source, "\n")}
}

func (p *Parser) tokenAt(offset int) token.Token {
	idx := p.pos + offset
	if idx >= 0 && idx < len(p.tokens) {
		return p.tokens[idx]
	}
	if len(p.tokens) == 0 {
		return token.Token{Line: 1, Column: 1}
	}
	last := p.tokens[len(p.tokens)-1]
	return token.Token{Line: last.Line, Column: last.Column + len(last.Lexeme)}
}

func (p *Parser) current() token.Token        { return p.tokenAt(0) }
func (p *Parser) kind() token.Kind            { return p.tokenAt(0).Kind }
func (p *Parser) kindAt(offset int) token.Kind { return p.tokenAt(offset).Kind }
func (p *Parser) lexeme() string              { return p.tokenAt(0).Lexeme }
func (p *Parser) lexemeAt(offset int) string  { return p.tokenAt(offset).Lexeme }

func (p *Parser) advance()          { p.pos++ }
func (p *Parser) advanceBy(n int)   { p.pos += n }
func (p *Parser) atEnd() bool       { return p.pos >= len(p.tokens) }

func (p *Parser) posHere() ast.Pos {
	tok := p.current()
	return ast.Pos{Line: tok.Line, Column: tok.Column}
}

func (p *Parser) fail(msg string) error {
	tok := p.current()
	return &ParseError{Message: msg, Line: tok.Line, Excerpt: p.excerptAround(tok.Line, tok.Column)}
}

func (p *Parser) excerptAround(line, column int) string {
	idx := line - 1
	if idx < 0 || idx >= len(p.lines) {
		return ""
	}
	text := p.lines[idx]
	start, end := column-1-10, column-1+10
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if start > end {
		start = end
	}
	return text[start:end]
}

// expect asserts the current token is of kind, advancing past it. On
// mismatch it returns a ParseError without moving the cursor.
func (p *Parser) expect(kind token.Kind, msg string) (token.Token, error) {
	if p.kind() != kind {
		return token.Token{}, p.fail(msg)
	}
	tok := p.current()
	p.advance()
	return tok, nil
}

// tryParseTypeName attempts to recognize a type_name starting at the given
// lookahead offset without consuming input. It returns the canonical type
// string, the lookahead offset just past the recognized type, and whether a
// type was found at all. Grounded directly on the reference parser's
// try_parse_type_name: struct/unsigned/basic-type prefixes, then a
// '*'-suffix loop, with no speculative mutation of the cursor.
func (p *Parser) tryParseTypeName(lookahead int) (string, int, bool) {
	result := ""

	switch p.kindAt(lookahead) {
	case token.Struct:
		result += "struct "
		lookahead++
		if p.kindAt(lookahead) != token.Identifier {
			return "", lookahead, false
		}
		result += p.lexemeAt(lookahead)
		lookahead++
	case token.Unsigned:
		result += "unsigned "
		lookahead++
		if !token.IsIntegralType(p.lexemeAt(lookahead)) {
			return "", lookahead, false
		}
	}

	if token.IsBasicType(p.lexemeAt(lookahead)) {
		result += p.lexemeAt(lookahead)
		lookahead++
	}

	if result == "" {
		return "", lookahead, false
	}

	for p.kindAt(lookahead) == token.Star {
		result += "*"
		lookahead++
	}

	return result, lookahead, true
}

// Parse consumes the entire token stream as a sequence of function
// definitions, returning the root SourceFile node.
func (p *Parser) Parse() (*ast.SourceFile, error) {
	pos := p.posHere()
	var funDefs []*ast.FunDef

	for !p.atEnd() {
		if _, _, ok := p.tryParseTypeName(0); !ok {
			return nil, p.fail("expected a function definition")
		}
		fd, err := p.parseFunDef()
		if err != nil {
			return nil, err
		}
		funDefs = append(funDefs, fd)
	}

	return &ast.SourceFile{Pos: pos, FunDefs: funDefs}, nil
}

func (p *Parser) parseFunDef() (*ast.FunDef, error) {
	pos := p.posHere()

	retType, lookahead, ok := p.tryParseTypeName(0)
	if !ok {
		return nil, p.fail("return type of function")
	}
	p.advanceBy(lookahead)

	if p.kind() != token.Identifier {
		return nil, p.fail("name of function def")
	}
	name := p.lexeme()
	p.advance()

	if _, err := p.expect(token.LeftParen, "function definition left paren"); err != nil {
		return nil, err
	}

	var params []*ast.FunParam
	for p.kind() != token.RightParen {
		paramPos := p.posHere()

		paramType, la, ok := p.tryParseTypeName(0)
		if !ok {
			return nil, p.fail("func parameter type")
		}
		p.advanceBy(la)

		if p.kind() != token.Identifier {
			return nil, p.fail("name of param")
		}
		paramVarPos := p.posHere()
		paramName := p.lexeme()
		p.advance()

		if p.kind() != token.Comma && p.kind() != token.RightParen {
			return nil, p.fail("comma in param list or end right_paren")
		}
		if p.kind() == token.Comma {
			p.advance()
		}

		params = append(params, &ast.FunParam{
			Pos:       paramPos,
			ParamType: paramType,
			ParamVar:  &ast.Var{Pos: paramVarPos, Name: paramName},
		})
	}
	if _, err := p.expect(token.RightParen, "ending param list right_paren"); err != nil {
		return nil, err
	}

	body, err := p.parseStmtBlock()
	if err != nil {
		return nil, err
	}

	return &ast.FunDef{Pos: pos, RetType: retType, Name: name, Params: params, Body: body}, nil
}
