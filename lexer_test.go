package main

import (
	"math"
	"testing"
)

func TestLexerTokens(t *testing.T) {
	tests := []struct {
		input string
		want  []TokenType
	}{
		{"1 + 2", []TokenType{TOKEN_INT, TOKEN_PLUS, TOKEN_INT, TOKEN_EOF}},
		{"2**3*4", []TokenType{TOKEN_INT, TOKEN_POWER, TOKEN_INT, TOKEN_STAR, TOKEN_INT, TOKEN_EOF}},
		{"(-1.5 % 2) / 3", []TokenType{TOKEN_LPAREN, TOKEN_MINUS, TOKEN_FLOAT, TOKEN_MOD, TOKEN_INT, TOKEN_RPAREN, TOKEN_SLASH, TOKEN_INT, TOKEN_EOF}},
		{"null true false", []TokenType{TOKEN_NULL, TOKEN_TRUE, TOKEN_FALSE, TOKEN_EOF}},
		{"'a' + \"b\"", []TokenType{TOKEN_STRING, TOKEN_PLUS, TOKEN_STRING, TOKEN_EOF}},
		{"foo", []TokenType{TOKEN_IDENT, TOKEN_EOF}},
		{"1 $ 2", []TokenType{TOKEN_INT, TOKEN_ILLEGAL, TOKEN_INT, TOKEN_EOF}},
		{"", []TokenType{TOKEN_EOF}},
		{"  \n\t ", []TokenType{TOKEN_EOF}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := Tokenize(tt.input)
			if len(tokens) != len(tt.want) {
				t.Fatalf("got %d tokens %v, want %d", len(tokens), tokens, len(tt.want))
			}
			for i, tok := range tokens {
				if tok.Type != tt.want[i] {
					t.Errorf("token %d: got %s, want %s", i, tok.Type, tt.want[i])
				}
			}
		})
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		i     int64
		f     float64
	}{
		{"0", TOKEN_INT, 0, 0},
		{"42", TOKEN_INT, 42, 0},
		{"9223372036854775807", TOKEN_INT, math.MaxInt64, 0},
		{"0xFF", TOKEN_INT, 255, 0},
		{"0b101", TOKEN_INT, 5, 0},
		{"0xFFFFFFFFFFFFFFFF", TOKEN_INT, -1, 0},
		{"3.25", TOKEN_FLOAT, 0, 3.25},
		{"1e3", TOKEN_FLOAT, 0, 1000},
		{"2.5E-1", TOKEN_FLOAT, 0, 0.25},
		{"9223372036854775808", TOKEN_ILLEGAL, 0, 0},
		{"1e999", TOKEN_ILLEGAL, 0, 0},
		{"0x", TOKEN_ILLEGAL, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			if tok.Type != tt.typ {
				t.Fatalf("got %s (%s), want %s", tok.Type, tok.Value, tt.typ)
			}
			switch tt.typ {
			case TOKEN_INT:
				if tok.Int != tt.i {
					t.Errorf("got %d, want %d", tok.Int, tt.i)
				}
			case TOKEN_FLOAT:
				if tok.Float != tt.f {
					t.Errorf("got %g, want %g", tok.Float, tt.f)
				}
			}
		})
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		value string
	}{
		{`'hello'`, TOKEN_STRING, "hello"},
		{`"it's"`, TOKEN_STRING, "it's"},
		{`'a\nb'`, TOKEN_STRING, "a\nb"},
		{`"say \"hi\""`, TOKEN_STRING, `say "hi"`},
		{`''`, TOKEN_STRING, ""},
		{`'open`, TOKEN_ILLEGAL, "unterminated string literal"},
		{"'a\nb'", TOKEN_ILLEGAL, "newline in string literal"},
		{"'a\x00b'", TOKEN_ILLEGAL, "NUL byte in string literal"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			if tok.Type != tt.typ {
				t.Fatalf("got %s, want %s", tok.Type, tt.typ)
			}
			if tok.Value != tt.value {
				t.Errorf("got %q, want %q", tok.Value, tt.value)
			}
		})
	}
}

func TestLexerPositions(t *testing.T) {
	tokens := Tokenize("1 +\n  foo")
	foo := tokens[2]
	if foo.Line != 2 || foo.Column != 3 || foo.Length != 3 {
		t.Errorf("foo at %d:%d len %d, want 2:3 len 3", foo.Line, foo.Column, foo.Length)
	}
	if loc := tokens[1].Location(); loc.String() != "1:3" {
		t.Errorf("'+' at %s, want 1:3", loc)
	}
}
