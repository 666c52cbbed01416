package compiler

import (
	"testing"
)

func TestLexerInstructionLine(t *testing.T) {
	input := "push 5\nheap.set # store it\n"
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenIdentifier, "push"},
		{TokenInteger, "5"},
		{TokenNewline, "\n"},
		{TokenIdentifier, "heap.set"},
		{TokenNewline, "\n"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerIntegers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"0", "0"},
		{"-123", "-123"},
		{"16rFF", "16rFF"},
		{"2r1010", "2r1010"},
		{"8r777", "8r777"},
	}

	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != TokenInteger {
			t.Errorf("%q: type = %v, want INTEGER", tt.input, tok.Type)
		}
		if tok.Literal != tt.want {
			t.Errorf("%q: literal = %q, want %q", tt.input, tok.Literal, tt.want)
		}
	}
}

func TestLexerMalformedNumbers(t *testing.T) {
	for _, input := range []string{"12abc", "16r", "3x"} {
		tok := NewLexer(input).NextToken()
		if tok.Type != TokenError {
			t.Errorf("%q: type = %v, want ERROR", input, tok.Type)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"'hello'", "hello"},
		{"''", ""},
		{"'it''s'", "it's"},
		{"'stack overflow'", "stack overflow"},
	}

	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != TokenString {
			t.Errorf("%q: type = %v, want STRING", tt.input, tok.Type)
		}
		if tok.Literal != tt.want {
			t.Errorf("%q: literal = %q, want %q", tt.input, tok.Literal, tt.want)
		}
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	for _, input := range []string{"'abc", "'abc\ndef'"} {
		tok := NewLexer(input).NextToken()
		if tok.Type != TokenError {
			t.Errorf("%q: type = %v, want ERROR", input, tok.Type)
		}
	}
}

func TestLexerCharacters(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"$a", "a"},
		{"$ ", " "},
		{"$$", "$"},
		{"$é", "é"},
	}

	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != TokenCharacter {
			t.Errorf("%q: type = %v, want CHARACTER", tt.input, tok.Type)
		}
		if tok.Literal != tt.want {
			t.Errorf("%q: literal = %q, want %q", tt.input, tok.Literal, tt.want)
		}
	}

	if tok := NewLexer("$").NextToken(); tok.Type != TokenError {
		t.Errorf("lone $: type = %v, want ERROR", tok.Type)
	}
}

func TestLexerComments(t *testing.T) {
	l := NewLexer("# header\n  # indented\npop")
	want := []TokenType{TokenNewline, TokenNewline, TokenIdentifier, TokenEOF}
	for i, typ := range want {
		if tok := l.NextToken(); tok.Type != typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, typ)
		}
	}
}

func TestLexerPositions(t *testing.T) {
	l := NewLexer("push 1\n  load 3")
	expected := []Position{
		{Offset: 0, Line: 1, Column: 1},
		{Offset: 5, Line: 1, Column: 6},
		{Offset: 6, Line: 1, Column: 7},
		{Offset: 9, Line: 2, Column: 3},
		{Offset: 14, Line: 2, Column: 8},
	}
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Pos != exp {
			t.Errorf("token[%d] %v at %+v, want %+v", i, tok, tok.Pos, exp)
		}
	}
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	l := NewLexer("push @")
	l.NextToken()
	tok := l.NextToken()
	if tok.Type != TokenError {
		t.Fatalf("type = %v, want ERROR", tok.Type)
	}
	if tok.Pos.Column != 6 {
		t.Errorf("column = %d, want 6", tok.Pos.Column)
	}
}
