package tape

import (
	"bufio"
	"fmt"
	"io"
)

// DefaultTapeSize is the initial tape length of a new Machine.
const DefaultTapeSize = 30000

// Machine executes tape programs. The tape grows to the right on demand;
// moving left of cell 0 is an error.
type Machine struct {
	Tape    []byte
	Pointer int

	// Steps counts executed instructions across Run calls.
	Steps int

	// StepLimit aborts execution with ErrStepLimit when non-zero.
	StepLimit int

	// Profile, when enabled with EnableProfile, counts executions
	// per code offset of the last Run.
	Profile []int

	in  *bufio.Reader
	out io.Writer
}

// NewMachine creates a machine with size zeroed cells, no input and
// output discarded.
func NewMachine(size int) *Machine {
	if size <= 0 {
		size = DefaultTapeSize
	}
	return &Machine{
		Tape: make([]byte, size),
		out:  io.Discard,
	}
}

// SetInput sets the reader used by ','. At end of input the cell is set to 0.
func (m *Machine) SetInput(r io.Reader) {
	if r == nil {
		m.in = nil
		return
	}
	m.in = bufio.NewReader(r)
}

// SetOutput sets the writer used by '.'.
func (m *Machine) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	m.out = w
}

// EnableProfile turns on per-offset execution counting.
func (m *Machine) EnableProfile() {
	m.Profile = []int{}
}

// Cell returns the value at addr, or 0 beyond the end of the tape.
func (m *Machine) Cell(addr int) byte {
	if addr < 0 || addr >= len(m.Tape) {
		return 0
	}
	return m.Tape[addr]
}

// SetCell stores value at addr, growing the tape if needed.
func (m *Machine) SetCell(addr int, value byte) error {
	if err := m.Grow(addr); err != nil {
		return err
	}
	m.Tape[addr] = value
	return nil
}

// Grow extends the tape so that addr is valid.
func (m *Machine) Grow(addr int) error {
	if addr < 0 {
		return fmt.Errorf("%w: address %d", ErrPointerUnderflow, addr)
	}
	if addr < len(m.Tape) {
		return nil
	}
	n := len(m.Tape) * 2
	if n <= addr {
		n = addr + 1
	}
	grown := make([]byte, n)
	copy(grown, m.Tape)
	m.Tape = grown
	return nil
}

// Tick counts one executed instruction and enforces the step limit.
func (m *Machine) Tick() error {
	m.Steps++
	if m.StepLimit > 0 && m.Steps > m.StepLimit {
		return fmt.Errorf("%w after %d steps", ErrStepLimit, m.StepLimit)
	}
	return nil
}

// InputCell performs one ',' on the current cell.
func (m *Machine) InputCell() error {
	if m.in == nil {
		m.Tape[m.Pointer] = 0
		return nil
	}
	b, err := m.in.ReadByte()
	if err == io.EOF {
		m.Tape[m.Pointer] = 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	m.Tape[m.Pointer] = b
	return nil
}

// OutputCell performs one '.' on the current cell.
func (m *Machine) OutputCell() error {
	if _, err := m.out.Write([]byte{m.Tape[m.Pointer]}); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// Move shifts the pointer by delta cells.
func (m *Machine) Move(delta int) error {
	p := m.Pointer + delta
	if err := m.Grow(p); err != nil {
		return err
	}
	m.Pointer = p
	return nil
}

// Run executes code from its first instruction. Non-opcode bytes are
// ignored. The tape and pointer are not reset between runs.
func (m *Machine) Run(code string) error {
	jumps, traps, err := bracketTable(code)
	if err != nil {
		return err
	}
	if m.Profile != nil {
		m.Profile = make([]int, len(code))
	}

	for ip := 0; ip < len(code); ip++ {
		op := Opcode(code[ip])
		if !IsOpcode(byte(op)) {
			continue
		}
		if err := m.Tick(); err != nil {
			return err
		}
		if m.Profile != nil {
			m.Profile[ip]++
		}

		switch op {
		case OpRight:
			if err := m.Move(1); err != nil {
				return err
			}
		case OpLeft:
			if err := m.Move(-1); err != nil {
				return err
			}
		case OpInc:
			m.Tape[m.Pointer]++
		case OpDec:
			m.Tape[m.Pointer]--
		case OpOpen:
			if m.Tape[m.Pointer] == 0 {
				ip = jumps[ip]
			} else if traps[ip] {
				return fmt.Errorf("%w at offset %d (cell %d)", ErrCrashed, ip, m.Pointer)
			}
		case OpClose:
			if m.Tape[m.Pointer] != 0 {
				ip = jumps[ip]
			}
		case OpOutput:
			if err := m.OutputCell(); err != nil {
				return err
			}
		case OpInput:
			if err := m.InputCell(); err != nil {
				return err
			}
		}
	}
	return nil
}

// bracketTable maps every bracket offset to its partner. traps marks the
// opening bracket of every loop whose body holds no opcode.
func bracketTable(code string) (jumps []int, traps []bool, err error) {
	type frame struct {
		at   int
		body bool
	}
	jumps = make([]int, len(code))
	traps = make([]bool, len(code))
	var open []frame
	for i := 0; i < len(code); i++ {
		if !IsOpcode(code[i]) {
			continue
		}
		if n := len(open); n > 0 && Opcode(code[i]) != OpClose {
			open[n-1].body = true
		}
		switch Opcode(code[i]) {
		case OpOpen:
			open = append(open, frame{at: i})
		case OpClose:
			if len(open) == 0 {
				return nil, nil, fmt.Errorf("%w: unmatched ] at offset %d", ErrUnbalanced, i)
			}
			f := open[len(open)-1]
			open = open[:len(open)-1]
			jumps[i] = f.at
			jumps[f.at] = i
			traps[f.at] = !f.body
		}
	}
	if len(open) != 0 {
		return nil, nil, fmt.Errorf("%w: unmatched [ at offset %d", ErrUnbalanced, open[len(open)-1].at)
	}
	return jumps, traps, nil
}
