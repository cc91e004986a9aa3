// Package token defines the lexical token kinds produced by the lexer and
// consumed by the parser.
package token

import "fmt"

// Kind is the closed set of lexical categories the lexer can produce.
type Kind int

const (
	Illegal Kind = iota

	Identifier
	LiteralInteger
	LiteralDecimal

	Return
	If
	Else
	While
	Struct
	Unsigned

	LeftParen
	RightParen
	LeftBrace
	RightBrace
	Semicolon
	Comma

	Assign
	Equality
	GreaterThan
	GreaterThanEqual
	LessThan
	LessThanEqual
	Ampersand
	Pipe
	Star
	Slash
	Plus
	Minus
	Dot
)

// Keywords maps the reserved alphabetic runs to their token kind. Checked
// only after the lexer has scanned a maximal identifier-shaped run, so a
// prefix like "return_code" is never mistaken for the keyword "return".
var Keywords = map[string]Kind{
	"return":   Return,
	"if":       If,
	"else":     Else,
	"while":    While,
	"struct":   Struct,
	"unsigned": Unsigned,
}

var kindNames = map[Kind]string{
	Illegal:          "illegal",
	Identifier:       "identifier",
	LiteralInteger:   "literal_integer",
	LiteralDecimal:   "literal_decimal",
	Return:           "return",
	If:               "if",
	Else:             "else",
	While:            "while",
	Struct:           "struct",
	Unsigned:         "unsigned",
	LeftParen:        "left_paren",
	RightParen:       "right_paren",
	LeftBrace:        "left_brace",
	RightBrace:       "right_brace",
	Semicolon:        "semicolon",
	Comma:            "comma",
	Assign:           "assign",
	Equality:         "equality",
	GreaterThan:      "greater_than",
	GreaterThanEqual: "greater_than_equal",
	LessThan:         "less_than",
	LessThanEqual:    "less_than_equal",
	Ampersand:        "ampersand",
	Pipe:             "pipe",
	Star:             "star",
	Slash:            "slash",
	Plus:             "plus",
	Minus:            "minus",
	Dot:              "dot",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a single lexical unit: a kind, its source text, and its position.
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
	Column int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Kind, t.Lexeme, t.Line, t.Column)
}

// IsBasicType reports whether the lexeme of a keyword/identifier token is
// one of the scalar base-type names (used by the parser's type_name rule).
func IsBasicType(lexeme string) bool {
	switch lexeme {
	case "char", "short", "int", "long", "float", "double":
		return true
	default:
		return false
	}
}

// IsIntegralType reports whether the lexeme names an integral base type.
func IsIntegralType(lexeme string) bool {
	switch lexeme {
	case "char", "short", "int", "long":
		return true
	default:
		return false
	}
}
