package compact

import (
	"strings"
	"testing"

	"github.com/chazu/tapec/pkg/tape"
)

func TestCompactRender(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"empty", "", ""},
		{"run", "+++++", "+5"},
		{"single", "+", "+"},
		{"mixed runs", ">>><<--+", ">3<2-2+"},
		{"clear", "[-]", "(C)"},
		{"move", "[-<+>>>+<<]", "(M-1;2;)"},
		{"move dec last", "[>+<-]", "(M1;)"},
		{"loop not idiom", "[>]", "[>]"},
		{"io not folded", "..,,", "..,,"},
		{"brackets not folded", "[[-]]", "[(C)]"},
		{"comments dropped", "+ a +\n", "+2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compact(tt.code, nil).String()
			if got != tt.want {
				t.Errorf("Compact(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestCompactPriority(t *testing.T) {
	// The move idiom wins over the clear idiom and run-length encoding.
	p := Compact("[->+<][-]--", nil)
	if len(p.Segments) != 3 {
		t.Fatalf("segments = %v, want 3", p.Segments)
	}
	if p.Segments[0].Kind != KindMove || p.Segments[1].Kind != KindClear {
		t.Errorf("kinds = %s %s, want move clear", p.Segments[0].Kind, p.Segments[1].Kind)
	}
	if p.Segments[2].Count != 2 {
		t.Errorf("run count = %d, want 2", p.Segments[2].Count)
	}
}

func TestMatchMove(t *testing.T) {
	tests := []struct {
		code  string
		dests []int
		n     int
	}{
		{"[->+<]", []int{1}, 6},
		{"[->+>+>+>+<<<<]", []int{1, 2, 3, 4}, 15},
		{"[-<<+>>]", []int{-2}, 8},
		{"[>+<-]+", []int{1}, 6},
	}
	for _, tt := range tests {
		dests, n, ok := matchMove(tt.code, 0)
		if !ok {
			t.Errorf("matchMove(%q) did not match", tt.code)
			continue
		}
		if n != tt.n || len(dests) != len(tt.dests) {
			t.Errorf("matchMove(%q) = %v, %d, want %v, %d", tt.code, dests, n, tt.dests, tt.n)
			continue
		}
		for i := range dests {
			if dests[i] != tt.dests[i] {
				t.Errorf("matchMove(%q) dests = %v, want %v", tt.code, dests, tt.dests)
				break
			}
		}
	}

	rejects := []string{
		"[-]",                // no destination
		"[->+<<]",            // does not return
		"[->++<]",            // doubled destination
		"[-->+<]",            // double decrement
		"[>-<+]",             // decrement away from source
		"[->+>+>+>+>+<<<<<]", // five destinations
		"[->[-]<]",           // nested loop
		"[->.<]",             // output
		"[->+<",              // unterminated
		"+[->+<]",            // not at a loop
	}
	for _, code := range rejects {
		if dests, _, ok := matchMove(code, 0); ok {
			t.Errorf("matchMove(%q) = %v, want no match", code, dests)
		}
	}
}

func TestCompactFiveDestinationsKeepsAll(t *testing.T) {
	code := "[->+>+>+>+>+<<<<<]"
	p := Compact(code, nil)
	for _, s := range p.Segments {
		if s.Kind == KindMove {
			t.Fatalf("five-destination loop folded into %s", s)
		}
	}
	if p.Expand() != code {
		t.Errorf("Expand() = %q, want %q", p.Expand(), code)
	}
}

func TestCompactDebugMap(t *testing.T) {
	d := tape.NewDebugInfo()
	d.AddSourceLocation(0, 1, 1)
	d.AddSourceLocation(3, 2, 1)
	d.AddSourceLocation(6, 3, 1)
	d.StartBlock("clear", 3)
	d.EndBlock(6)

	p := Compact("+++[-]>>", d)
	if p.String() != "+3(C)>2" {
		t.Fatalf("String() = %q", p.String())
	}
	for i, want := range []int{0, 1, 2} {
		if got := d.SourceMap[i].CodeOffset; got != want {
			t.Errorf("SourceMap[%d] offset = %d, want %d", i, got, want)
		}
	}
	if b := d.Blocks[0]; b.Start != 1 || b.End != 2 {
		t.Errorf("block = [%d,%d), want [1,2)", b.Start, b.End)
	}
	if p.Debug != d {
		t.Error("Program.Debug is not the rewritten map")
	}
}

func TestCompactDebugMapMove(t *testing.T) {
	d := tape.NewDebugInfo()
	d.AddSourceLocation(2, 1, 1)
	d.AddSourceLocation(8, 2, 1)

	p := Compact(">>[->+<]++", d)
	if p.String() != ">2(M1;)+2" {
		t.Fatalf("String() = %q", p.String())
	}
	if d.SourceMap[0].CodeOffset != 1 || d.SourceMap[1].CodeOffset != 2 {
		t.Errorf("offsets = %d %d, want 1 2", d.SourceMap[0].CodeOffset, d.SourceMap[1].CodeOffset)
	}
}

func TestCompactDebugMapDroppedBytes(t *testing.T) {
	d := tape.NewDebugInfo()
	d.AddSourceLocation(3, 1, 1)

	Compact("+  >", d)
	if got := d.SourceMap[0].CodeOffset; got != 1 {
		t.Errorf("offset = %d, want 1", got)
	}
}

func TestSegmentRaw(t *testing.T) {
	tests := []struct {
		seg  Segment
		want string
	}{
		{Op(tape.OpInc, 3), "+++"},
		{Op(tape.OpOpen, 1), "["},
		{Clear(), "[-]"},
		{Move(1), "[->+<]"},
		{Move(-1, 2), "[-<+>>>+<<]"},
	}
	for _, tt := range tests {
		if got := tt.seg.Raw(); got != tt.want {
			t.Errorf("%s.Raw() = %q, want %q", tt.seg, got, tt.want)
		}
	}
}

func TestMoveRejectsTooManyTargets(t *testing.T) {
	defer func() {
		if _, ok := recover().(*tape.InternalError); !ok {
			t.Error("Move with five targets did not panic with InternalError")
		}
	}()
	Move(1, 2, 3, 4, 5)
}

func TestStats(t *testing.T) {
	p := Compact("+++[-][->+<]>.", nil)
	st := p.Stats()
	if st.RawLen != 14 || st.Segments != 5 {
		t.Errorf("RawLen, Segments = %d, %d, want 14, 5", st.RawLen, st.Segments)
	}
	if st.Runs != 1 || st.Clears != 1 || st.Moves != 1 {
		t.Errorf("runs/clears/moves = %d/%d/%d, want 1/1/1", st.Runs, st.Clears, st.Moves)
	}
	if (Stats{}).Ratio() != 0 {
		t.Error("Ratio() of empty stats != 0")
	}
}

func TestListing(t *testing.T) {
	d := tape.NewDebugInfo()
	d.AddSourceLocation(0, 4, 2)
	d.StartBlock("heap get", 3)
	d.EndBlock(8)

	p := Compact("+++[->+<]", d)
	out := p.ListingWithName("demo")

	for _, want := range []string{"=== demo ===", "INC 3", "MOVE +1", "heap get", "line 4:2"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}
