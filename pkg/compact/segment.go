// Package compact folds a raw tape program into counted instructions and
// recognized idioms, keeping the program's debug map aligned with the
// folded form.
package compact

import (
	"fmt"
	"strings"

	"github.com/chazu/tapec/pkg/tape"
)

// Kind distinguishes plain instructions from idioms.
type Kind uint8

const (
	KindOp    Kind = iota // A primitive opcode repeated Count times
	KindClear             // [-]
	KindMove              // Add the current cell into each offset in Moves, then zero it
)

// MaxMoveTargets is the number of destinations a Move segment can hold.
const MaxMoveTargets = 4

var kindNames = [...]string{
	KindOp:    "op",
	KindClear: "clear",
	KindMove:  "move",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Segment is one instruction of a compacted program.
type Segment struct {
	Kind  Kind
	Op    tape.Opcode // KindOp only
	Count int         // KindOp only; greater than 1 only for duplicatable opcodes
	Moves []int       // KindMove only; relative destinations, at most MaxMoveTargets
}

// Op returns a single primitive segment.
func Op(op tape.Opcode, count int) Segment {
	return Segment{Kind: KindOp, Op: op, Count: count}
}

// Clear returns a clear idiom segment.
func Clear() Segment {
	return Segment{Kind: KindClear}
}

// Move returns a move idiom segment.
func Move(offsets ...int) Segment {
	if len(offsets) == 0 || len(offsets) > MaxMoveTargets {
		tape.Internalf("compact.Move", "%d destinations", len(offsets))
	}
	return Segment{Kind: KindMove, Moves: append([]int(nil), offsets...)}
}

// String renders the segment: "+5" for a counted run, "(C)" for a clear and
// "(M-1;2;)" for a move to offsets -1 and 2.
func (s Segment) String() string {
	switch s.Kind {
	case KindClear:
		return "(C)"
	case KindMove:
		var sb strings.Builder
		sb.WriteString("(M")
		for _, off := range s.Moves {
			fmt.Fprintf(&sb, "%d;", off)
		}
		sb.WriteString(")")
		return sb.String()
	default:
		if s.Count > 1 {
			return fmt.Sprintf("%c%d", byte(s.Op), s.Count)
		}
		return string(rune(s.Op))
	}
}

// Raw renders the segment back into primitive instructions.
func (s Segment) Raw() string {
	switch s.Kind {
	case KindClear:
		return "[-]"
	case KindMove:
		var sb strings.Builder
		sb.WriteString("[-")
		at := 0
		for _, off := range s.Moves {
			writeMove(&sb, off-at)
			sb.WriteByte(byte(tape.OpInc))
			at = off
		}
		writeMove(&sb, -at)
		sb.WriteByte(byte(tape.OpClose))
		return sb.String()
	default:
		return strings.Repeat(string(rune(s.Op)), s.Count)
	}
}

func writeMove(sb *strings.Builder, delta int) {
	op := tape.OpRight
	if delta < 0 {
		op, delta = tape.OpLeft, -delta
	}
	for i := 0; i < delta; i++ {
		sb.WriteByte(byte(op))
	}
}

// Program is a compacted instruction stream.
type Program struct {
	Segments []Segment

	// RawLen is the length of the stream before compaction.
	RawLen int

	// Debug is the debug map rewritten to segment indices, or nil.
	Debug *tape.DebugInfo
}

// String renders every segment in order.
func (p *Program) String() string {
	var sb strings.Builder
	for _, s := range p.Segments {
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Expand renders the program back into primitive instructions. The result
// is behaviorally equivalent to the stream the program was compacted from.
func (p *Program) Expand() string {
	var sb strings.Builder
	for _, s := range p.Segments {
		sb.WriteString(s.Raw())
	}
	return sb.String()
}

// Stats summarizes a compaction.
type Stats struct {
	RawLen   int
	Segments int
	Runs     int // Op segments with Count > 1
	Clears   int
	Moves    int
}

// Ratio returns segments per raw instruction, or 0 for an empty program.
func (s Stats) Ratio() float64 {
	if s.RawLen == 0 {
		return 0
	}
	return float64(s.Segments) / float64(s.RawLen)
}

// Stats counts the program's segments by kind.
func (p *Program) Stats() Stats {
	st := Stats{RawLen: p.RawLen, Segments: len(p.Segments)}
	for _, s := range p.Segments {
		switch s.Kind {
		case KindClear:
			st.Clears++
		case KindMove:
			st.Moves++
		default:
			if s.Count > 1 {
				st.Runs++
			}
		}
	}
	return st
}
