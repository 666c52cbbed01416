package compiler

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/tapec/pkg/diag"
)

// ---------------------------------------------------------------------------
// Parser: IR text form
// ---------------------------------------------------------------------------

// Parser reads IR instructions, one per line:
//
//	push 5        # operands are decimal, radix (16rFF) or $c
//	load 0
//	heap.set
//	crash 'bad index'
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []*diag.Diagnostic
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) errorf(pos Position, format string, args ...any) {
	d := diag.Errorf("syntax", format, args...)
	d.Line, d.Column = pos.Line, pos.Column
	p.errors = append(p.errors, d)
}

// Errors returns the diagnostics collected while parsing.
func (p *Parser) Errors() []*diag.Diagnostic {
	return p.errors
}

// ParseProgram parses every instruction up to EOF. Malformed lines are
// reported and skipped.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}
	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenNewline) {
			p.nextToken()
			continue
		}
		if in, ok := p.parseInstr(); ok {
			prog.Instrs = append(prog.Instrs, in)
		}
		p.skipLine()
	}
	return prog
}

// skipLine advances past the end of the current line.
func (p *Parser) skipLine() {
	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenNewline) {
		p.nextToken()
	}
	if p.curTokenIs(TokenNewline) {
		p.nextToken()
	}
}

func (p *Parser) parseInstr() (Instr, bool) {
	tok := p.curToken
	if tok.Type == TokenError {
		p.errorf(tok.Pos, "%s", tok.Literal)
		return Instr{}, false
	}
	if tok.Type != TokenIdentifier {
		p.errorf(tok.Pos, "expected operation, got %s", tok.Type)
		return Instr{}, false
	}
	op, ok := LookupOp(tok.Literal)
	if !ok {
		p.errorf(tok.Pos, "unknown operation %q", tok.Literal)
		return Instr{}, false
	}
	in := Instr{Op: op, Pos: tok.Pos}
	p.nextToken()

	arg := p.curToken
	switch GetOpInfo(op).Operand {
	case OperandByte:
		v, ok := p.byteOperand(op, arg)
		if !ok {
			return Instr{}, false
		}
		in.Arg = v
		p.nextToken()
	case OperandAddress:
		if arg.Type != TokenInteger {
			p.errorf(arg.Pos, "%s expects an address, got %s", op, arg.Type)
			return Instr{}, false
		}
		v, err := parseInteger(arg.Literal)
		if err != nil || v < 0 {
			p.errorf(arg.Pos, "invalid address %s", arg.Literal)
			return Instr{}, false
		}
		in.Arg = int(v)
		p.nextToken()
	case OperandMessage:
		if arg.Type != TokenString {
			p.errorf(arg.Pos, "%s expects a string, got %s", op, arg.Type)
			return Instr{}, false
		}
		in.Text = arg.Literal
		p.nextToken()
	}

	if !p.curTokenIs(TokenNewline) && !p.curTokenIs(TokenEOF) {
		p.errorf(p.curToken.Pos, "unexpected %s after %s", p.curToken, op)
		return Instr{}, false
	}
	return in, true
}

// byteOperand decodes a byte operand. Values in [-128, 255] are accepted;
// negative values wrap.
func (p *Parser) byteOperand(op Op, tok Token) (int, bool) {
	switch tok.Type {
	case TokenCharacter:
		r := []rune(tok.Literal)[0]
		if r > 255 {
			p.errorf(tok.Pos, "character %q does not fit in a cell", r)
			return 0, false
		}
		return int(r), true
	case TokenInteger:
		v, err := parseInteger(tok.Literal)
		if err != nil || v < -128 || v > 255 {
			p.errorf(tok.Pos, "value %s does not fit in a cell", tok.Literal)
			return 0, false
		}
		return int(uint8(v)), true
	default:
		p.errorf(tok.Pos, "%s expects a value, got %s", op, tok.Type)
		return 0, false
	}
}

// parseInteger parses decimal or radix (16rFF) literals.
func parseInteger(lit string) (int64, error) {
	neg := strings.HasPrefix(lit, "-")
	lit = strings.TrimPrefix(lit, "-")

	var v int64
	var err error
	if radix, digits, ok := strings.Cut(lit, "r"); ok {
		var base int64
		base, err = strconv.ParseInt(radix, 10, 64)
		if err != nil || base < 2 || base > 16 {
			return 0, fmt.Errorf("invalid radix in %q", lit)
		}
		v, err = strconv.ParseInt(digits, int(base), 64)
	} else {
		v, err = strconv.ParseInt(lit, 10, 64)
	}
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return v, nil
}

// ParseString parses IR source. The returned error joins every syntax
// diagnostic; the program holds the lines that did parse.
func ParseString(name, src string) (*Program, error) {
	p := NewParser(src)
	prog := p.ParseProgram()
	prog.Name = name
	if errs := p.Errors(); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, d := range errs {
			joined[i] = d
		}
		return prog, errors.Join(joined...)
	}
	return prog, nil
}

// Parse reads and parses IR source from r.
func Parse(name string, r io.Reader) (*Program, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return ParseString(name, string(src))
}
