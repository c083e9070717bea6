package lexer

import (
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `let x = 5 + 10
pure fn add(a: int, b: int) -> int {
  a + b
}

if x > 10 { "big" } else { "small" }

match value {
  Some(x) => x * 2,
  None => 0,
}

struct Point { x: int, y: int }

// a comment
true && false
1_000_000
x..=10
x += 1
`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{LET, "let"},
		{IDENT, "x"},
		{ASSIGN, "="},
		{INT, "5"},
		{PLUS, "+"},
		{INT, "10"},

		{PURE, "pure"},
		{FN, "fn"},
		{IDENT, "add"},
		{LPAREN, "("},
		{IDENT, "a"},
		{COLON, ":"},
		{IDENT, "int"},
		{COMMA, ","},
		{IDENT, "b"},
		{COLON, ":"},
		{IDENT, "int"},
		{RPAREN, ")"},
		{ARROW, "->"},
		{IDENT, "int"},
		{LBRACE, "{"},
		{IDENT, "a"},
		{PLUS, "+"},
		{IDENT, "b"},
		{RBRACE, "}"},

		{IF, "if"},
		{IDENT, "x"},
		{GT, ">"},
		{INT, "10"},
		{LBRACE, "{"},
		{STRING, "big"},
		{RBRACE, "}"},
		{ELSE, "else"},
		{LBRACE, "{"},
		{STRING, "small"},
		{RBRACE, "}"},

		{MATCH, "match"},
		{IDENT, "value"},
		{LBRACE, "{"},
		{IDENT, "Some"},
		{LPAREN, "("},
		{IDENT, "x"},
		{RPAREN, ")"},
		{FARROW, "=>"},
		{IDENT, "x"},
		{STAR, "*"},
		{INT, "2"},
		{COMMA, ","},
		{IDENT, "None"},
		{FARROW, "=>"},
		{INT, "0"},
		{COMMA, ","},
		{RBRACE, "}"},

		{STRUCT, "struct"},
		{IDENT, "Point"},
		{LBRACE, "{"},
		{IDENT, "x"},
		{COLON, ":"},
		{IDENT, "int"},
		{COMMA, ","},
		{IDENT, "y"},
		{COLON, ":"},
		{IDENT, "int"},
		{RBRACE, "}"},

		{TRUE, "true"},
		{ANDAND, "&&"},
		{FALSE, "false"},

		{INT, "1000000"},

		{IDENT, "x"},
		{DOTDOTEQ, "..="},
		{INT, "10"},

		{IDENT, "x"},
		{PLUSEQ, "+="},
		{INT, "1"},

		{EOF, ""},
	}

	l := New(input, "test.vais")

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%s, got=%s (literal=%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestPositionTracking(t *testing.T) {
	l := New("let\nx = 1", "pos.vais")

	tok := l.NextToken()
	if tok.Line != 1 {
		t.Fatalf("expected line 1, got %d", tok.Line)
	}

	tok = l.NextToken() // x, on line 2
	if tok.Line != 2 {
		t.Fatalf("expected line 2, got %d", tok.Line)
	}
}

func TestUnderscoreInNumbers(t *testing.T) {
	l := New("1_000_000.5", "num.vais")
	tok := l.NextToken()
	if tok.Type != FLOAT || tok.Literal != "1000000.5" {
		t.Fatalf("expected FLOAT 1000000.5, got %s %q", tok.Type, tok.Literal)
	}
}
