// Package memory implements the compile-time allocators that give the tape
// machine a call stack and an indexable heap. Both allocators emit their
// code through a tape.Emitter and share its pointer.
package memory

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/tapec/pkg/diag"
	"github.com/chazu/tapec/pkg/tape"
)

var log = commonlog.GetLogger("tapec.memory")

// Stack is a LIFO region [Start, Start+MaxSize) whose layout is tracked at
// compile time. Pushing past MaxSize is allowed: the overflow is guarded by
// a runtime trap and reported as a warning.
type Stack struct {
	Start   int
	MaxSize int

	// MaxUsedSize is the high-water mark of cells in use.
	MaxUsedSize int

	e     *tape.Emitter
	diags *diag.Bag
	slots []*StackAddress
	used  int
}

// StackAddress is a reserved stack region. It must be released exactly once,
// either by one of the Stack's pop operations or by Release, and only while
// it is the top slot.
type StackAddress struct {
	Address int
	Size    int

	stack    *Stack
	released bool
}

// NewStack creates a stack allocator. A non-positive maxSize or negative
// start is a configuration error returned as a diagnostic.
func NewStack(e *tape.Emitter, diags *diag.Bag, start, maxSize int) (*Stack, error) {
	if maxSize <= 0 {
		return nil, diag.Errorf("stack-size", "stack size must be positive, got %d", maxSize)
	}
	if start < 0 {
		return nil, diag.Errorf("stack-start", "stack start must not be negative, got %d", start)
	}
	return &Stack{Start: start, MaxSize: maxSize, e: e, diags: diags}, nil
}

// UsedSize returns the number of cells currently pushed.
func (s *Stack) UsedSize() int {
	return s.used
}

// Depth returns the number of slots currently pushed.
func (s *Stack) Depth() int {
	return len(s.slots)
}

// NextAddress returns the address the next push will use.
func (s *Stack) NextAddress() int {
	return s.Start + s.used
}

// LastAddress returns the address of the top slot.
func (s *Stack) LastAddress() int {
	return s.Top().Address
}

// Top returns the top slot. It panics if the stack is empty.
func (s *Stack) Top() *StackAddress {
	if len(s.slots) == 0 {
		tape.Internalf("Stack.Top", "stack is empty")
	}
	return s.slots[len(s.slots)-1]
}

// PushVirtual reserves size cells without emitting code for their contents.
func (s *Stack) PushVirtual(size int) *StackAddress {
	if size <= 0 {
		tape.Internalf("Stack.PushVirtual", "invalid slot size %d", size)
	}
	addr := &StackAddress{Address: s.NextAddress(), Size: size, stack: s}
	s.slots = append(s.slots, addr)
	s.used += size
	if s.used > s.MaxUsedSize {
		s.MaxUsedSize = s.used
	}

	if s.used > s.MaxSize {
		s.e.Crash(addr.Address, "stack overflow\n")
		d := diag.Warningf("stack-overflow", "stack overflow: %d cells needed, %d available", s.used, s.MaxSize)
		d.Offset = s.e.Len()
		s.diags.Add(d)
	}

	log.Debugf("push %d cell(s) at %d (used %d/%d)", size, addr.Address, s.used, s.MaxSize)
	return addr
}

// Push reserves one cell and stores value in it.
func (s *Stack) Push(value byte) *StackAddress {
	addr := s.PushVirtual(1)
	s.e.SetValue(addr.Address, value)
	return addr
}

// PushCopy reserves one cell and copies src into it. A second cell is
// borrowed as scratch for the copy and released before returning.
func (s *Stack) PushCopy(src int) *StackAddress {
	addr := s.PushVirtual(1)
	tmp := s.PushVirtual(1)
	if src == addr.Address || src == tmp.Address {
		tape.Internalf("Stack.PushCopy", "source %d overlaps the new slot", src)
	}
	s.e.CopyValue(src, addr.Address, tmp.Address)
	// CopyValue leaves the scratch cell at zero.
	s.PopOnAddress(func(int) {})
	return addr
}

// Pop removes the top slot and zeroes its cells.
func (s *Stack) Pop() {
	top := s.pop("Stack.Pop", nil)
	for i := 0; i < top.Size; i++ {
		s.e.ClearValue(top.Address + i)
	}
}

// PopOnAddress removes the top slot without clearing it and hands each of
// its addresses, in order, to fn. fn takes ownership of the cells' values.
func (s *Stack) PopOnAddress(fn func(addr int)) {
	top := s.pop("Stack.PopOnAddress", nil)
	for i := 0; i < top.Size; i++ {
		fn(top.Address + i)
	}
}

// PopAndStore removes the top slot, moving its cells into target, target+1, ...
// (overwriting them).
func (s *Stack) PopAndStore(target int) {
	s.popInto("Stack.PopAndStore", target, s.e.MoveValue)
}

// PopAndAdd removes the top slot, adding its cells into target, target+1, ...
func (s *Stack) PopAndAdd(target int) {
	s.popInto("Stack.PopAndAdd", target, s.e.MoveAddValue)
}

// PopAndSubtract removes the top slot, subtracting its cells from target,
// target+1, ...
func (s *Stack) PopAndSubtract(target int) {
	s.popInto("Stack.PopAndSubtract", target, s.e.MoveSubValue)
}

func (s *Stack) popInto(op string, target int, move func(src int, dsts ...int)) {
	top := s.Top()
	if target < top.Address+top.Size && top.Address < target+top.Size {
		tape.Internalf(op, "target %d overlaps popped slot at %d", target, top.Address)
	}
	s.PopOnAddress(func(addr int) {
		move(addr, target+addr-top.Address)
	})
}

// pop removes the top slot. If want is non-nil it must be the top slot.
func (s *Stack) pop(op string, want *StackAddress) *StackAddress {
	if len(s.slots) == 0 {
		tape.Internalf(op, "pop from empty stack")
	}
	top := s.slots[len(s.slots)-1]
	if want != nil && want != top {
		tape.Internalf(op, "slot at %d released while %d is on top", want.Address, top.Address)
	}
	s.slots = s.slots[:len(s.slots)-1]
	s.used -= top.Size
	top.released = true
	return top
}

// Released reports whether the slot has been popped.
func (a *StackAddress) Released() bool {
	return a.released
}

// Cell returns the address of the i-th cell of the slot.
func (a *StackAddress) Cell(i int) int {
	if i < 0 || i >= a.Size {
		tape.Internalf("StackAddress.Cell", "cell %d outside slot of size %d", i, a.Size)
	}
	return a.Address + i
}

// Release pops the slot, zeroing its cells, unless it was already popped.
// It panics if another slot is above it. Use it with defer to bind a slot
// to a scope:
//
//	tmp := stack.PushVirtual(1)
//	defer tmp.Release()
func (a *StackAddress) Release() {
	if a.released {
		return
	}
	a.stack.pop("StackAddress.Release", a)
	for i := 0; i < a.Size; i++ {
		a.stack.e.ClearValue(a.Address + i)
	}
}
