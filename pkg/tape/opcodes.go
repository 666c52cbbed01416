package tape

import "fmt"

// Opcode is one instruction of the tape machine.
type Opcode byte

const (
	OpRight  Opcode = '>' // Move pointer one cell right
	OpLeft   Opcode = '<' // Move pointer one cell left
	OpInc    Opcode = '+' // Increment current cell (wraps at 255)
	OpDec    Opcode = '-' // Decrement current cell (wraps at 0)
	OpOpen   Opcode = '[' // Start loop: skip to matching ] if cell is 0
	OpClose  Opcode = ']' // End loop: jump back to matching [ if cell is non-zero
	OpOutput Opcode = '.' // Write current cell to output
	OpInput  Opcode = ',' // Read one byte into current cell
)

// OpcodeInfo provides metadata about each opcode for listings and the compactor.
type OpcodeInfo struct {
	Name         string // Human-readable name
	Duplicatable bool   // Consecutive runs can be folded into one counted instruction
	PointerDelta int    // Effect on the pointer position
	CellDelta    int    // Effect on the current cell
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpRight:  {"RIGHT", true, 1, 0},
	OpLeft:   {"LEFT", true, -1, 0},
	OpInc:    {"INC", true, 0, 1},
	OpDec:    {"DEC", true, 0, -1},
	OpOpen:   {"OPEN", false, 0, 0},
	OpClose:  {"CLOSE", false, 0, 0},
	OpOutput: {"OUTPUT", false, 0, 0},
	OpInput:  {"INPUT", false, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the byte is not an opcode.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsOpcode reports whether b is one of the eight instruction symbols.
func IsOpcode(b byte) bool {
	_, ok := opcodeInfoTable[Opcode(b)]
	return ok
}

// Duplicatable reports whether consecutive copies of op may be run-length encoded.
func (op Opcode) Duplicatable() bool {
	return GetOpcodeInfo(op).Duplicatable
}

// IsLoop reports whether op is a bracket.
func (op Opcode) IsLoop() bool {
	return op == OpOpen || op == OpClose
}

// AllOpcodes returns the eight opcodes in a fixed order.
func AllOpcodes() []Opcode {
	return []Opcode{OpRight, OpLeft, OpInc, OpDec, OpOpen, OpClose, OpOutput, OpInput}
}

// Strip removes every byte that is not an opcode. Tape programs treat all
// other characters as comments.
func Strip(code string) string {
	out := make([]byte, 0, len(code))
	for i := 0; i < len(code); i++ {
		if IsOpcode(code[i]) {
			out = append(out, code[i])
		}
	}
	return string(out)
}

// CheckBalanced reports the first bracket mismatch in code, or nil.
func CheckBalanced(code string) error {
	depth := 0
	for i := 0; i < len(code); i++ {
		switch Opcode(code[i]) {
		case OpOpen:
			depth++
		case OpClose:
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unmatched ] at offset %d", ErrUnbalanced, i)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: %d unclosed [", ErrUnbalanced, depth)
	}
	return nil
}
