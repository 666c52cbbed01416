package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: tokenizer for the IR text form
// ---------------------------------------------------------------------------

// Lexer tokenizes IR source. Instructions are line oriented, so newlines are
// tokens; "#" starts a comment that runs to the end of the line.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // reading position (after current char)
	ch        rune // current character
	line      int  // current line (1-based)
	lineStart int  // offset of current line start
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.pos - l.lineStart + 1,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipSpaceAndComments()

	pos := l.position()

	switch {
	case l.ch == 0 && l.pos >= len(l.input):
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '\n':
		l.readChar()
		return Token{Type: TokenNewline, Literal: "\n", Pos: pos}

	case l.ch == '\'':
		return l.readString(pos)

	case l.ch == '$':
		return l.readCharacter(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case l.ch == '-' && isDigit(l.peekChar()):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos)

	default:
		ch := l.ch
		l.readChar()
		return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %q", ch), Pos: pos}
	}
}

// skipSpaceAndComments skips blanks and "#" comments, stopping at newlines.
func (l *Lexer) skipSpaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && !(l.ch == 0 && l.pos >= len(l.input)) {
				l.readChar()
			}
			continue
		}
		break
	}
}

// readIdentifier reads an operation name. Dots join name parts: heap.set.
func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || (l.ch == '.' && isLetter(l.peekChar())) {
		l.readChar()
	}
	return Token{Type: TokenIdentifier, Literal: l.input[start:l.pos], Pos: pos}
}

// readString reads a string literal. A doubled quote stands for one quote.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // consume opening '

	var sb strings.Builder
	for !(l.ch == 0 && l.pos >= len(l.input)) && l.ch != '\n' {
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				sb.WriteRune('\'')
				l.readChar() // consume first '
				l.readChar() // consume second '
				continue
			}
			l.readChar() // consume closing '
			return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}

	return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
}

// readCharacter reads a character literal.
func (l *Lexer) readCharacter(pos Position) Token {
	l.readChar() // consume $

	if (l.ch == 0 && l.pos >= len(l.input)) || l.ch == '\n' {
		return Token{Type: TokenError, Literal: "unexpected end of line in character literal", Pos: pos}
	}

	ch := l.ch
	l.readChar()

	return Token{Type: TokenCharacter, Literal: string(ch), Pos: pos}
}

// readNumber reads an integer literal, optionally negative or in radix
// notation (16rFF).
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos

	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == 'r' {
		l.readChar()
		digits := l.pos
		for isHexDigit(l.ch) {
			l.readChar()
		}
		if l.pos == digits {
			return Token{Type: TokenError, Literal: "missing digits after radix", Pos: pos}
		}
	}

	if isLetter(l.ch) {
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: TokenError, Literal: fmt.Sprintf("malformed number: %s", l.input[start:l.pos]), Pos: pos}
	}

	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
