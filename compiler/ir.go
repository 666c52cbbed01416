package compiler

import (
	"fmt"
	"strings"
)

// Op is one IR operation. The IR is a stack machine over byte values.
type Op uint8

const (
	OpInvalid Op = iota

	// Stack
	OpPush // push v: -> v
	OpPop  // pop: v ->
	OpDup  // dup: v -> v v
	OpAdd  // add: a b -> a+b
	OpSub  // sub: a b -> a-b

	// Variables
	OpLoad  // load addr: -> var
	OpStore // store addr: v ->
	OpAddTo // addto addr: v ->   (var += v)

	// I/O
	OpOut // out: v ->
	OpIn  // in: -> v

	// Heap
	OpHeapSet     // heap.set: i v ->
	OpHeapAdd     // heap.add: i v ->
	OpHeapSub     // heap.sub: i v ->
	OpHeapGet     // heap.get: i -> heap[i]
	OpHeapSize    // heap.size: -> n
	OpHeapDestroy // heap.destroy

	// Control
	OpCrash // crash 'message'
)

// OperandKind describes the operand an Op takes.
type OperandKind uint8

const (
	OperandNone    OperandKind = iota
	OperandByte                // integer or character literal, stored mod 256
	OperandAddress             // variable address
	OperandMessage             // string literal
)

// OpInfo provides metadata about each IR operation.
type OpInfo struct {
	Name    string
	Operand OperandKind
	Pops    int // values consumed from the IR stack
	Pushes  int // values produced onto the IR stack
}

var opInfoTable = map[Op]OpInfo{
	OpPush:        {"push", OperandByte, 0, 1},
	OpPop:         {"pop", OperandNone, 1, 0},
	OpDup:         {"dup", OperandNone, 1, 2},
	OpAdd:         {"add", OperandNone, 2, 1},
	OpSub:         {"sub", OperandNone, 2, 1},
	OpLoad:        {"load", OperandAddress, 0, 1},
	OpStore:       {"store", OperandAddress, 1, 0},
	OpAddTo:       {"addto", OperandAddress, 1, 0},
	OpOut:         {"out", OperandNone, 1, 0},
	OpIn:          {"in", OperandNone, 0, 1},
	OpHeapSet:     {"heap.set", OperandNone, 2, 0},
	OpHeapAdd:     {"heap.add", OperandNone, 2, 0},
	OpHeapSub:     {"heap.sub", OperandNone, 2, 0},
	OpHeapGet:     {"heap.get", OperandNone, 1, 1},
	OpHeapSize:    {"heap.size", OperandNone, 0, 1},
	OpHeapDestroy: {"heap.destroy", OperandNone, 0, 0},
	OpCrash:       {"crash", OperandMessage, 0, 0},
}

var opsByName = func() map[string]Op {
	m := make(map[string]Op, len(opInfoTable))
	for op, info := range opInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpInfo returns metadata for an operation.
func GetOpInfo(op Op) OpInfo {
	if info, ok := opInfoTable[op]; ok {
		return info
	}
	return OpInfo{Name: fmt.Sprintf("UNKNOWN(%d)", op)}
}

// LookupOp finds an operation by its text name.
func LookupOp(name string) (Op, bool) {
	op, ok := opsByName[name]
	return op, ok
}

func (op Op) String() string {
	return GetOpInfo(op).Name
}

// Instr is one IR instruction.
type Instr struct {
	Op   Op
	Arg  int    // byte value or address
	Text string // message for crash
	Pos  Position
}

func (in Instr) String() string {
	switch GetOpInfo(in.Op).Operand {
	case OperandByte, OperandAddress:
		return fmt.Sprintf("%s %d", in.Op, in.Arg)
	case OperandMessage:
		return fmt.Sprintf("%s '%s'", in.Op, strings.ReplaceAll(in.Text, "'", "''"))
	default:
		return in.Op.String()
	}
}

// Program is a parsed IR program.
type Program struct {
	Name   string
	Instrs []Instr
}

// String renders the program in its text form.
func (p *Program) String() string {
	var sb strings.Builder
	for _, in := range p.Instrs {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
