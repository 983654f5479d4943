// Package scanner tokenizes Lox source text. The compiler pulls tokens
// one at a time; the scanner never looks ahead more than one character
// and tags every token with its 1-based source line.
package scanner

import (
	"unicode"
	"unicode/utf8"
)

// Scanner tokenizes Lox source code.
type Scanner struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
}

// New creates a new scanner for the given input.
func New(input string) *Scanner {
	s := &Scanner{
		input: input,
		line:  1,
	}
	s.readChar()
	return s
}

// readChar reads the next character.
func (s *Scanner) readChar() {
	if s.readPos >= len(s.input) {
		s.ch = 0 // EOF
		s.pos = s.readPos
	} else {
		r, size := utf8.DecodeRuneInString(s.input[s.readPos:])
		s.ch = r
		s.pos = s.readPos
		s.readPos += size
	}
}

// peekChar returns the next character without consuming it.
func (s *Scanner) peekChar() rune {
	if s.readPos >= len(s.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.input[s.readPos:])
	return r
}

// NextToken returns the next token. After the input is exhausted it
// returns TokenEOF forever.
func (s *Scanner) NextToken() Token {
	s.skipWhitespaceAndComments()

	line := s.line

	switch {
	case s.ch == 0:
		return Token{Type: TokenEOF, Line: line}

	case s.ch == '(':
		return s.single(TokenLParen, "(")
	case s.ch == ')':
		return s.single(TokenRParen, ")")
	case s.ch == '{':
		return s.single(TokenLBrace, "{")
	case s.ch == '}':
		return s.single(TokenRBrace, "}")
	case s.ch == ',':
		return s.single(TokenComma, ",")
	case s.ch == '.':
		return s.single(TokenDot, ".")
	case s.ch == '-':
		return s.single(TokenMinus, "-")
	case s.ch == '+':
		return s.single(TokenPlus, "+")
	case s.ch == ';':
		return s.single(TokenSemicolon, ";")
	case s.ch == '*':
		return s.single(TokenStar, "*")
	case s.ch == '%':
		return s.single(TokenPercent, "%")
	case s.ch == '/':
		return s.single(TokenSlash, "/")

	case s.ch == '!':
		return s.oneOrTwo(TokenBang, TokenBangEqual, line)
	case s.ch == '=':
		return s.oneOrTwo(TokenEqual, TokenEqualEqual, line)
	case s.ch == '<':
		return s.oneOrTwo(TokenLess, TokenLessEqual, line)
	case s.ch == '>':
		return s.oneOrTwo(TokenGreater, TokenGreaterEqual, line)

	case s.ch == '"':
		return s.readString(line)

	case isDigit(s.ch):
		return s.readNumber(line)

	case isIdentStart(s.ch):
		return s.readIdentifier(line)

	default:
		ch := s.ch
		s.readChar()
		return Token{Type: TokenError, Lexeme: "unexpected character '" + string(ch) + "'", Line: line}
	}
}

// single consumes the current character and returns a one-character token.
func (s *Scanner) single(tt TokenType, lexeme string) Token {
	line := s.line
	s.readChar()
	return Token{Type: tt, Lexeme: lexeme, Line: line}
}

// oneOrTwo consumes '!' '=' '<' '>' and an optional trailing '='.
func (s *Scanner) oneOrTwo(one, two TokenType, line int) Token {
	s.readChar()
	if s.ch == '=' {
		s.readChar()
		return Token{Type: two, Lexeme: two.String(), Line: line}
	}
	return Token{Type: one, Lexeme: one.String(), Line: line}
}

// readString reads a double-quoted string literal. Lox strings have no
// escape sequences; a newline inside a string is allowed and counted.
func (s *Scanner) readString(line int) Token {
	s.readChar() // opening quote
	start := s.pos
	for s.ch != '"' && s.ch != 0 {
		if s.ch == '\n' {
			s.line++
		}
		s.readChar()
	}
	if s.ch == 0 {
		return Token{Type: TokenError, Lexeme: "unterminated string", Line: line}
	}
	lexeme := s.input[start:s.pos]
	s.readChar() // closing quote
	return Token{Type: TokenString, Lexeme: lexeme, Line: line}
}

// readNumber reads an integer or decimal number literal.
func (s *Scanner) readNumber(line int) Token {
	start := s.pos
	for isDigit(s.ch) {
		s.readChar()
	}
	// Fractional part only when a digit follows the dot, so that
	// "1.foo" scans as NUMBER DOT IDENTIFIER.
	if s.ch == '.' && isDigit(s.peekChar()) {
		s.readChar()
		for isDigit(s.ch) {
			s.readChar()
		}
	}
	return Token{Type: TokenNumber, Lexeme: s.input[start:s.pos], Line: line}
}

// readIdentifier reads an identifier or keyword.
func (s *Scanner) readIdentifier(line int) Token {
	start := s.pos
	for isIdentStart(s.ch) || isDigit(s.ch) {
		s.readChar()
	}
	lexeme := s.input[start:s.pos]
	return Token{Type: LookupIdent(lexeme), Lexeme: lexeme, Line: line}
}

// skipWhitespaceAndComments skips whitespace and // line comments.
func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch {
		case s.ch == '\n':
			s.line++
			s.readChar()
		case s.ch == ' ' || s.ch == '\t' || s.ch == '\r':
			s.readChar()
		case s.ch == '/' && s.peekChar() == '/':
			for s.ch != '\n' && s.ch != 0 {
				s.readChar()
			}
		default:
			return
		}
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}
