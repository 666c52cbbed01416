package compact

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/tapec/pkg/tape"
)

var log = commonlog.GetLogger("tapec.compact")

// Compact folds code in a single forward pass. At each position it tries,
// in order, the move idiom, the clear idiom "[-]", and finally run-length
// encoding of "> < + -". Bytes that are not opcodes are dropped.
//
// When debug is non-nil it is rewritten in place so that its offsets refer
// to segment indices, and attached to the returned Program.
func Compact(code string, debug *tape.DebugInfo) *Program {
	p := &Program{RawLen: len(code), Debug: debug}
	segs := make([]Segment, 0, len(code)/2+1)

	for i := 0; i < len(code); {
		pos := len(segs)

		if moves, n, ok := matchMove(code, i); ok {
			segs = append(segs, Move(moves...))
			collapse(debug, pos, n)
			i += n
			continue
		}

		if i+3 <= len(code) && code[i:i+3] == "[-]" {
			segs = append(segs, Clear())
			collapse(debug, pos, 3)
			i += 3
			continue
		}

		b := code[i]
		i++
		if !tape.IsOpcode(b) {
			if debug != nil {
				debug.OffsetCodeFrom(pos+1, -1)
			}
			continue
		}
		op := tape.Opcode(b)
		if pos > 0 && op.Duplicatable() {
			last := &segs[pos-1]
			if last.Kind == KindOp && last.Op == op {
				last.Count++
				collapse(debug, pos-1, 2)
				continue
			}
		}
		segs = append(segs, Op(op, 1))
	}

	p.Segments = segs
	st := p.Stats()
	log.Infof("compacted %d instructions into %d segments (%d runs, %d clears, %d moves)",
		st.RawLen, st.Segments, st.Runs, st.Clears, st.Moves)
	return p
}

func collapse(debug *tape.DebugInfo, position, n int) {
	if debug != nil {
		debug.Collapse(position, n)
	}
}

// matchMove recognizes a loop at code[i] whose body decrements the current
// cell once, increments each of one to MaxMoveTargets distinct other cells
// once, and returns to the current cell. It returns the destinations in the
// order the body visits them and the number of bytes consumed.
//
// Loops with more destinations than a segment can hold are not matched, so
// they are run-length encoded instead of losing a destination.
func matchMove(code string, i int) ([]int, int, bool) {
	if i >= len(code) || tape.Opcode(code[i]) != tape.OpOpen {
		return nil, 0, false
	}
	rel := 0
	dec := false
	var dests []int
	for j := i + 1; j < len(code); j++ {
		switch tape.Opcode(code[j]) {
		case tape.OpRight:
			rel++
		case tape.OpLeft:
			rel--
		case tape.OpDec:
			if rel != 0 || dec {
				return nil, 0, false
			}
			dec = true
		case tape.OpInc:
			if rel == 0 || contains(dests, rel) || len(dests) == MaxMoveTargets {
				return nil, 0, false
			}
			dests = append(dests, rel)
		case tape.OpClose:
			if rel != 0 || !dec || len(dests) == 0 {
				return nil, 0, false
			}
			return dests, j - i + 1, true
		default:
			return nil, 0, false
		}
	}
	return nil, 0, false
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
