package compact

import (
	"fmt"

	"github.com/chazu/tapec/pkg/tape"
)

// Run executes the program's segments on m. Each segment counts as one step
// against the machine's step limit. Idioms operate on the tape directly, so
// a Move to a negative address only fails when the source cell is non-zero,
// as in the expanded loop.
func Run(m *tape.Machine, p *Program) error {
	jumps, err := segmentJumps(p.Segments)
	if err != nil {
		return err
	}

	for ip := 0; ip < len(p.Segments); ip++ {
		if err := m.Tick(); err != nil {
			return err
		}
		s := &p.Segments[ip]

		switch s.Kind {
		case KindClear:
			m.Tape[m.Pointer] = 0

		case KindMove:
			v := m.Tape[m.Pointer]
			if v == 0 {
				continue
			}
			for _, off := range s.Moves {
				if err := m.Grow(m.Pointer + off); err != nil {
					return err
				}
				m.Tape[m.Pointer+off] += v
			}
			m.Tape[m.Pointer] = 0

		default:
			switch s.Op {
			case tape.OpRight:
				err = m.Move(s.Count)
			case tape.OpLeft:
				err = m.Move(-s.Count)
			case tape.OpInc:
				m.Tape[m.Pointer] += byte(s.Count)
			case tape.OpDec:
				m.Tape[m.Pointer] -= byte(s.Count)
			case tape.OpOpen:
				if m.Tape[m.Pointer] == 0 {
					ip = jumps[ip]
				} else if jumps[ip] == ip+1 {
					return fmt.Errorf("%w at segment %d (cell %d)", tape.ErrCrashed, ip, m.Pointer)
				}
			case tape.OpClose:
				if m.Tape[m.Pointer] != 0 {
					ip = jumps[ip]
				}
			case tape.OpOutput:
				for k := 0; k < s.Count && err == nil; k++ {
					err = m.OutputCell()
				}
			case tape.OpInput:
				for k := 0; k < s.Count && err == nil; k++ {
					err = m.InputCell()
				}
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func segmentJumps(segs []Segment) ([]int, error) {
	jumps := make([]int, len(segs))
	var open []int
	for i, s := range segs {
		if s.Kind != KindOp {
			continue
		}
		switch s.Op {
		case tape.OpOpen:
			open = append(open, i)
		case tape.OpClose:
			if len(open) == 0 {
				return nil, fmt.Errorf("%w: unmatched ] at segment %d", tape.ErrUnbalanced, i)
			}
			j := open[len(open)-1]
			open = open[:len(open)-1]
			jumps[i] = j
			jumps[j] = i
		}
	}
	if len(open) != 0 {
		return nil, fmt.Errorf("%w: unmatched [ at segment %d", tape.ErrUnbalanced, open[len(open)-1])
	}
	return jumps, nil
}
