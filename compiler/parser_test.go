package compiler

import (
	"strings"
	"testing"
)

func TestParserInstructions(t *testing.T) {
	tests := []struct {
		input string
		op    Op
		arg   int
		text  string
	}{
		{"push 42", OpPush, 42, ""},
		{"push -1", OpPush, 255, ""},
		{"push 16rFF", OpPush, 255, ""},
		{"push 2r101", OpPush, 5, ""},
		{"push $A", OpPush, 65, ""},
		{"pop", OpPop, 0, ""},
		{"dup", OpDup, 0, ""},
		{"add", OpAdd, 0, ""},
		{"sub", OpSub, 0, ""},
		{"load 3", OpLoad, 3, ""},
		{"store 0", OpStore, 0, ""},
		{"addto 7", OpAddTo, 7, ""},
		{"out", OpOut, 0, ""},
		{"in", OpIn, 0, ""},
		{"heap.set", OpHeapSet, 0, ""},
		{"heap.add", OpHeapAdd, 0, ""},
		{"heap.sub", OpHeapSub, 0, ""},
		{"heap.get", OpHeapGet, 0, ""},
		{"heap.size", OpHeapSize, 0, ""},
		{"heap.destroy", OpHeapDestroy, 0, ""},
		{"crash 'it''s over'", OpCrash, 0, "it's over"},
	}

	for _, tc := range tests {
		prog, err := ParseString("t", tc.input)
		if err != nil {
			t.Errorf("parse %q: %v", tc.input, err)
			continue
		}
		if len(prog.Instrs) != 1 {
			t.Errorf("parse %q: %d instructions, want 1", tc.input, len(prog.Instrs))
			continue
		}
		in := prog.Instrs[0]
		if in.Op != tc.op || in.Arg != tc.arg || in.Text != tc.text {
			t.Errorf("parse %q = {%s %d %q}, want {%s %d %q}", tc.input, in.Op, in.Arg, in.Text, tc.op, tc.arg, tc.text)
		}
	}
}

func TestParserProgram(t *testing.T) {
	src := `# add two numbers
push 5

push 10   # second operand
add
store 0
`
	prog, err := ParseString("sum", src)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if prog.Name != "sum" {
		t.Errorf("Name = %q, want %q", prog.Name, "sum")
	}
	want := []Op{OpPush, OpPush, OpAdd, OpStore}
	if len(prog.Instrs) != len(want) {
		t.Fatalf("got %d instructions, want %d", len(prog.Instrs), len(want))
	}
	for i, op := range want {
		if prog.Instrs[i].Op != op {
			t.Errorf("instr[%d] = %s, want %s", i, prog.Instrs[i].Op, op)
		}
	}
	if pos := prog.Instrs[1].Pos; pos.Line != 4 || pos.Column != 1 {
		t.Errorf("instr[1] at %s, want 4:1", pos)
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input  string
		line   int
		column int
		msg    string
	}{
		{"jump 3", 1, 1, "unknown operation"},
		{"push", 1, 5, "expects a value"},
		{"push 256", 1, 6, "does not fit"},
		{"push -129", 1, 6, "does not fit"},
		{"push 5 6", 1, 8, "unexpected"},
		{"load -1", 1, 6, "invalid address"},
		{"load $a", 1, 6, "expects an address"},
		{"store 'x'", 1, 7, "expects an address"},
		{"crash 5", 1, 7, "expects a string"},
		{"pop\n  42", 2, 3, "expected operation"},
		{"push 'abc", 1, 6, "expects a value"},
		{"push 17r1", 1, 6, "does not fit"},
	}

	for _, tc := range tests {
		p := NewParser(tc.input)
		p.ParseProgram()
		errs := p.Errors()
		if len(errs) == 0 {
			t.Errorf("parse %q: no errors", tc.input)
			continue
		}
		d := errs[0]
		if d.Code != "syntax" {
			t.Errorf("parse %q: code = %q, want syntax", tc.input, d.Code)
		}
		if d.Line != tc.line || d.Column != tc.column {
			t.Errorf("parse %q: error at %d:%d, want %d:%d", tc.input, d.Line, d.Column, tc.line, tc.column)
		}
		if !strings.Contains(d.Message, tc.msg) {
			t.Errorf("parse %q: message %q does not contain %q", tc.input, d.Message, tc.msg)
		}
	}
}

func TestParserRecoversAfterBadLine(t *testing.T) {
	prog, err := ParseString("t", "push 1\nbogus 2 3\npush 2\nadd")
	if err == nil {
		t.Fatal("ParseString() error = nil, want syntax error")
	}
	if len(prog.Instrs) != 3 {
		t.Errorf("got %d instructions, want 3", len(prog.Instrs))
	}
	if !strings.Contains(err.Error(), "2:1") {
		t.Errorf("error %q does not mention 2:1", err)
	}
}

func TestParseReader(t *testing.T) {
	prog, err := Parse("r", strings.NewReader("in\nout\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := prog.String(); got != "in\nout\n" {
		t.Errorf("String() = %q, want %q", got, "in\nout\n")
	}
}

func TestProgramStringRoundTrip(t *testing.T) {
	src := "push 7\nload 2\nheap.set\ncrash 'don''t'\n"
	prog, err := ParseString("t", src)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if got := prog.String(); got != src {
		t.Errorf("String() = %q, want %q", got, src)
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		lit  string
		want int64
		ok   bool
	}{
		{"0", 0, true},
		{"-12", -12, true},
		{"16rff", 255, true},
		{"-8r17", -15, true},
		{"1r0", 0, false},
		{"17r1", 0, false},
		{"2r2", 0, false},
	}
	for _, tt := range tests {
		got, err := parseInteger(tt.lit)
		if (err == nil) != tt.ok {
			t.Errorf("parseInteger(%q) error = %v, want ok=%v", tt.lit, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("parseInteger(%q) = %d, want %d", tt.lit, got, tt.want)
		}
	}
}
