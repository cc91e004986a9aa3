package lexer_test

import (
	"testing"

	"cminor.dev/compiler/pkg/lexer"
	"cminor.dev/compiler/pkg/token"
)

func TestKeywordsAndIdentifiers(t *testing.T) {
	test := func(src string, expected []token.Kind) {
		tokens, err := lexer.New(src).Tokenize()
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", src, err)
		}
		if len(tokens) != len(expected) {
			t.Fatalf("%q: expected %d tokens, got %d (%v)", src, len(expected), len(tokens), tokens)
		}
		for i, kind := range expected {
			if tokens[i].Kind != kind {
				t.Errorf("%q: token %d: expected %s, got %s", src, i, kind, tokens[i].Kind)
			}
		}
	}

	t.Run("bare keywords", func(t *testing.T) {
		test("return", []token.Kind{token.Return})
		test("if", []token.Kind{token.If})
		test("while", []token.Kind{token.While})
		test("struct", []token.Kind{token.Struct})
		test("unsigned", []token.Kind{token.Unsigned})
	})

	t.Run("keyword prefix does not steal from a longer identifier", func(t *testing.T) {
		// return_code must lex as a single identifier, not return+identifier
		test("return_code", []token.Kind{token.Identifier})
		test("ifdef", []token.Kind{token.Identifier})
		test("whiles", []token.Kind{token.Identifier})
	})

	t.Run("plain identifiers", func(t *testing.T) {
		test("x foo_bar _leading x2", []token.Kind{
			token.Identifier, token.Identifier, token.Identifier, token.Identifier,
		})
	})
}

func TestNumbers(t *testing.T) {
	test := func(src string, expectedKind token.Kind, expectedLexeme string) {
		tokens, err := lexer.New(src).Tokenize()
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", src, err)
		}
		if len(tokens) != 1 {
			t.Fatalf("%q: expected exactly 1 token, got %d", src, len(tokens))
		}
		if tokens[0].Kind != expectedKind {
			t.Errorf("%q: expected kind %s, got %s", src, expectedKind, tokens[0].Kind)
		}
		if tokens[0].Lexeme != expectedLexeme {
			t.Errorf("%q: expected lexeme %q, got %q", src, expectedLexeme, tokens[0].Lexeme)
		}
	}

	test("42", token.LiteralInteger, "42")
	test("0", token.LiteralInteger, "0")
	test("3.14", token.LiteralDecimal, "3.14")
	test(".5", token.LiteralDecimal, ".5")
}

func TestOperatorsAndTwoCharLookahead(t *testing.T) {
	tokens, err := lexer.New("== >= <= = > < & | * / + - . ( ) { } ; ,").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []token.Kind{
		token.Equality, token.GreaterThanEqual, token.LessThanEqual,
		token.Assign, token.GreaterThan, token.LessThan,
		token.Ampersand, token.Pipe, token.Star, token.Slash,
		token.Plus, token.Minus, token.Dot,
		token.LeftParen, token.RightParen, token.LeftBrace, token.RightBrace,
		token.Semicolon, token.Comma,
	}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d (%v)", len(expected), len(tokens), tokens)
	}
	for i, kind := range expected {
		if tokens[i].Kind != kind {
			t.Errorf("token %d: expected %s, got %s", i, kind, tokens[i].Kind)
		}
	}
}

func TestUnrecognizedCharacterFaults(t *testing.T) {
	_, err := lexer.New("int x = 1 @ 2;").Tokenize()
	if err == nil {
		t.Fatalf("expected a Fault for '@', got nil error")
	}

	var fault *lexer.Fault
	if !asFault(err, &fault) {
		t.Fatalf("expected *lexer.Fault, got %T: %v", err, err)
	}
	if fault.Char != '@' {
		t.Errorf("expected fault char '@', got %q", fault.Char)
	}
}

func asFault(err error, target **lexer.Fault) bool {
	if f, ok := err.(*lexer.Fault); ok {
		*target = f
		return true
	}
	return false
}

func TestLineAndColumnTracking(t *testing.T) {
	tokens, err := lexer.New("a\nb  c").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	if tokens[0].Line != 1 {
		t.Errorf("expected 'a' on line 1, got %d", tokens[0].Line)
	}
	if tokens[1].Line != 2 || tokens[1].Column != 1 {
		t.Errorf("expected 'b' at 2:1, got %d:%d", tokens[1].Line, tokens[1].Column)
	}
	if tokens[2].Column != 4 {
		t.Errorf("expected 'c' at column 4, got %d", tokens[2].Column)
	}
}
