package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the IR lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenNewline // ends an instruction

	// Literals
	TokenInteger    // 42, -3, 16rFF
	TokenCharacter  // $a
	TokenString     // 'stack overflow'
	TokenIdentifier // push, heap.set
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNewline:    "NEWLINE",
	TokenInteger:    "INTEGER",
	TokenCharacter:  "CHARACTER",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Position is a location in IR source.
type Position struct {
	Offset int // byte offset (0-based)
	Line   int // line number (1-based)
	Column int // column number (1-based)
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text, or the decoded value for strings and characters
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}
