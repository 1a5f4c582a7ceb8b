// Completion: 100% - Lexer complete, supports every token of the expression language
package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Token types for the expression language
type TokenType int

const (
	TOKEN_EOF TokenType = iota
	TOKEN_INT
	TOKEN_FLOAT
	TOKEN_STRING
	TOKEN_PLUS
	TOKEN_MINUS
	TOKEN_STAR
	TOKEN_POWER // ** (exponentiation)
	TOKEN_SLASH
	TOKEN_MOD
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_NULL    // null keyword
	TOKEN_TRUE    // true keyword
	TOKEN_FALSE   // false keyword
	TOKEN_IDENT   // any other word; never valid, kept for diagnostics
	TOKEN_ILLEGAL // lexing error, Value holds the reason
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:     "end of input",
	TOKEN_INT:     "integer",
	TOKEN_FLOAT:   "float",
	TOKEN_STRING:  "string",
	TOKEN_PLUS:    "'+'",
	TOKEN_MINUS:   "'-'",
	TOKEN_STAR:    "'*'",
	TOKEN_POWER:   "'**'",
	TOKEN_SLASH:   "'/'",
	TOKEN_MOD:     "'%'",
	TOKEN_LPAREN:  "'('",
	TOKEN_RPAREN:  "')'",
	TOKEN_NULL:    "'null'",
	TOKEN_TRUE:    "'true'",
	TOKEN_FALSE:   "'false'",
	TOKEN_IDENT:   "identifier",
	TOKEN_ILLEGAL: "illegal token",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// keywords are the only words the language knows
var keywords = map[string]TokenType{
	"null":  TOKEN_NULL,
	"true":  TOKEN_TRUE,
	"false": TOKEN_FALSE,
}

// Token is one lexeme. The payload field that matters is selected by Type:
// Int for TOKEN_INT, Float for TOKEN_FLOAT, Value for TOKEN_STRING (escapes
// already resolved), TOKEN_IDENT and TOKEN_ILLEGAL (the reason).
type Token struct {
	Type   TokenType
	Value  string
	Int    int64
	Float  float64
	Line   int
	Column int // Column position (1-indexed) where the token starts
	Length int // Length of the lexeme in the source
}

// Location returns the source position of the token
func (t Token) Location() SourceLocation {
	return SourceLocation{Line: t.Line, Column: t.Column, Length: t.Length}
}

// Describe returns a short description for error messages
func (t Token) Describe() string {
	switch t.Type {
	case TOKEN_INT:
		return fmt.Sprintf("integer %d", t.Int)
	case TOKEN_FLOAT:
		return fmt.Sprintf("float %s", strconv.FormatFloat(t.Float, 'g', -1, 64))
	case TOKEN_STRING:
		return fmt.Sprintf("string %q", t.Value)
	case TOKEN_IDENT:
		return fmt.Sprintf("identifier '%s'", t.Value)
	case TOKEN_ILLEGAL:
		return t.Value
	default:
		return t.Type.String()
	}
}

// processEscapeSequences converts escape sequences in a string to their actual characters
func processEscapeSequences(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			switch runes[i+1] {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case 'r':
				result.WriteRune('\r')
			case '\\':
				result.WriteRune('\\')
			case '"':
				result.WriteRune('"')
			case '\'':
				result.WriteRune('\'')
			default:
				// Unknown escape sequence - keep backslash and the character
				result.WriteRune(runes[i])
				result.WriteRune(runes[i+1])
			}
			i++ // Skip the escaped character
		} else {
			result.WriteRune(runes[i])
		}
	}
	return result.String()
}

// isHexDigit checks if a byte is a valid hexadecimal digit
func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Lexer for the expression language
type Lexer struct {
	input     string
	pos       int
	line      int
	lineStart int // Position where current line starts
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input, pos: 0, line: 1, lineStart: 0}
}

// Tokenize lexes the whole input. The result always ends with TOKEN_EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TOKEN_EOF {
			return tokens
		}
	}
}

func (l *Lexer) token(typ TokenType, start int) Token {
	return Token{
		Type:   typ,
		Line:   l.line,
		Column: start - l.lineStart + 1,
		Length: l.pos - start,
	}
}

func (l *Lexer) illegal(start int, format string, args ...any) Token {
	tok := l.token(TOKEN_ILLEGAL, start)
	tok.Value = fmt.Sprintf(format, args...)
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case '\n':
			l.pos++
			l.line++
			l.lineStart = l.pos
		case ' ', '\t', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	start := l.pos
	if l.pos >= len(l.input) {
		return l.token(TOKEN_EOF, start)
	}
	ch := l.input[l.pos]

	switch ch {
	case '+':
		l.pos++
		return l.token(TOKEN_PLUS, start)
	case '-':
		l.pos++
		return l.token(TOKEN_MINUS, start)
	case '*':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '*' {
			l.pos++
			return l.token(TOKEN_POWER, start)
		}
		return l.token(TOKEN_STAR, start)
	case '/':
		l.pos++
		return l.token(TOKEN_SLASH, start)
	case '%':
		l.pos++
		return l.token(TOKEN_MOD, start)
	case '(':
		l.pos++
		return l.token(TOKEN_LPAREN, start)
	case ')':
		l.pos++
		return l.token(TOKEN_RPAREN, start)
	case '"', '\'':
		return l.lexString(ch)
	}

	if isDigit(ch) {
		return l.lexNumber()
	}

	if unicode.IsLetter(rune(ch)) || ch == '_' {
		for l.pos < len(l.input) && (unicode.IsLetter(rune(l.input[l.pos])) || isDigit(l.input[l.pos]) || l.input[l.pos] == '_') {
			l.pos++
		}
		word := l.input[start:l.pos]
		if typ, ok := keywords[word]; ok {
			tok := l.token(typ, start)
			tok.Value = word
			return tok
		}
		tok := l.token(TOKEN_IDENT, start)
		tok.Value = word
		return tok
	}

	l.pos++
	return l.illegal(start, "unexpected character %q", ch)
}

// lexString reads a quoted string; both quote characters are accepted
func (l *Lexer) lexString(quote byte) Token {
	start := l.pos
	l.pos++ // opening quote
	bodyStart := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != quote {
		if l.input[l.pos] == '\n' {
			return l.illegal(start, "newline in string literal")
		}
		// Skip escaped characters (including escaped quotes)
		if l.input[l.pos] == '\\' && l.pos+1 < len(l.input) {
			l.pos += 2
		} else {
			l.pos++
		}
	}
	if l.pos >= len(l.input) {
		return l.illegal(start, "unterminated string literal")
	}
	body := l.input[bodyStart:l.pos]
	l.pos++ // closing quote

	value := processEscapeSequences(body)
	if strings.IndexByte(value, 0) >= 0 {
		return l.illegal(start, "NUL byte in string literal")
	}
	tok := l.token(TOKEN_STRING, start)
	tok.Value = value
	return tok
}

// lexNumber reads decimal, hex (0x) and binary (0b) integers and decimal floats
func (l *Lexer) lexNumber() Token {
	start := l.pos

	if l.input[l.pos] == '0' && l.pos+1 < len(l.input) {
		next := l.input[l.pos+1]
		if next == 'x' || next == 'X' || next == 'b' || next == 'B' {
			l.pos += 2
			digitsStart := l.pos
			for l.pos < len(l.input) && isHexDigit(l.input[l.pos]) {
				l.pos++
			}
			if l.pos == digitsStart {
				return l.illegal(start, "malformed number literal %q", l.input[start:l.pos])
			}
			text := l.input[start:l.pos]
			base := 16
			if next == 'b' || next == 'B' {
				base = 2
			}
			// Hex and binary literals are bit patterns, so the full 64 bits are allowed
			u, err := strconv.ParseUint(text[2:], base, 64)
			if err != nil {
				return l.illegal(start, "malformed number literal %q", text)
			}
			tok := l.token(TOKEN_INT, start)
			tok.Int = int64(u)
			tok.Value = text
			return tok
		}
	}

	isFloat := false
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && isDigit(l.input[l.pos+1]) {
		isFloat = true
		l.pos++
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		p := l.pos + 1
		if p < len(l.input) && (l.input[p] == '+' || l.input[p] == '-') {
			p++
		}
		if p < len(l.input) && isDigit(l.input[p]) {
			isFloat = true
			l.pos = p
			for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
				l.pos++
			}
		}
	}

	text := l.input[start:l.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return l.illegal(start, "float literal %s out of range", text)
		}
		tok := l.token(TOKEN_FLOAT, start)
		tok.Float = f
		tok.Value = text
		return tok
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return l.illegal(start, "integer literal %s out of range", text)
	}
	tok := l.token(TOKEN_INT, start)
	tok.Int = n
	tok.Value = text
	return tok
}
