package tape

import "fmt"

// loopFrame remembers the pointer state at an open bracket.
type loopFrame struct {
	ptr   int
	known bool
	walk  bool
}

// Emitter builds a raw instruction stream while tracking where the pointer
// is. It is the only writer of code in the backend: the stack and heap
// allocators express every operation through it.
type Emitter struct {
	code  []byte
	ptr   int  // Absolute position when known, else relative to the last walk exit
	known bool // Whether ptr is an absolute tape address
	loops []loopFrame

	// Debug receives block spans and source locations. Never nil.
	Debug *DebugInfo
}

// NewEmitter creates an emitter with the pointer at cell 0.
func NewEmitter() *Emitter {
	return &Emitter{
		code:  make([]byte, 0, 256),
		known: true,
		Debug: NewDebugInfo(),
	}
}

// Code returns the instructions emitted so far.
func (e *Emitter) Code() string {
	return string(e.code)
}

// Len returns the number of instructions emitted so far.
func (e *Emitter) Len() int {
	return len(e.code)
}

// Known reports whether the pointer position is a compile-time constant.
func (e *Emitter) Known() bool {
	return e.known
}

// Pointer returns the absolute pointer position. It panics if the position
// is only known to the running program.
func (e *Emitter) Pointer() int {
	e.mustKnow("Pointer")
	return e.ptr
}

// Relative returns the pointer position relative to the cell where the last
// walk ended. When the pointer is known it equals Pointer.
func (e *Emitter) Relative() int {
	return e.ptr
}

// ExpectPointer asserts that the pointer is known and at addr.
func (e *Emitter) ExpectPointer(addr int) {
	e.mustKnow("ExpectPointer")
	if e.ptr != addr {
		Internalf("ExpectPointer", "pointer is at %d, expected %d", e.ptr, addr)
	}
}

// Attach declares that the running program's pointer is at addr. Callers use
// it after a walk whose exit position is fixed by construction.
func (e *Emitter) Attach(addr int) {
	e.ptr = addr
	e.known = true
}

// Depth returns the number of open loops.
func (e *Emitter) Depth() int {
	return len(e.loops)
}

func (e *Emitter) mustKnow(op string) {
	if !e.known {
		Internalf(op, "pointer position depends on runtime data (relative %+d)", e.ptr)
	}
}

func (e *Emitter) emit(op Opcode, n int) {
	for i := 0; i < n; i++ {
		e.code = append(e.code, byte(op))
	}
}

// ---------------------------------------------------------------------------
// Pointer movement
// ---------------------------------------------------------------------------

// MovePointer moves the pointer by delta cells.
func (e *Emitter) MovePointer(delta int) {
	if delta > 0 {
		e.emit(OpRight, delta)
	} else if delta < 0 {
		e.emit(OpLeft, -delta)
	}
	e.ptr += delta
}

// MoveTo moves the pointer to an absolute address.
func (e *Emitter) MoveTo(addr int) {
	e.mustKnow("MoveTo")
	e.MovePointer(addr - e.ptr)
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

// StartLoop opens a balanced loop: the body must leave the pointer where it
// found it.
func (e *Emitter) StartLoop() {
	e.loops = append(e.loops, loopFrame{ptr: e.ptr, known: e.known})
	e.emit(OpOpen, 1)
}

// EndLoop closes a loop opened with StartLoop.
func (e *Emitter) EndLoop() {
	f := e.popLoop("EndLoop")
	if f.walk {
		Internalf("EndLoop", "closing a walk with EndLoop")
	}
	if f.ptr != e.ptr || f.known != e.known {
		Internalf("EndLoop", "unbalanced loop: started at %d, ended at %d", f.ptr, e.ptr)
	}
	e.emit(OpClose, 1)
}

// StartWalk opens a loop whose body moves the pointer. Inside the body only
// relative operations are valid; positions count from the loop start.
func (e *Emitter) StartWalk() {
	e.loops = append(e.loops, loopFrame{ptr: e.ptr, known: e.known, walk: true})
	e.emit(OpOpen, 1)
	e.known = false
	e.ptr = 0
}

// EndWalk closes a walk. Afterwards the pointer is runtime-dependent and
// relative positions count from the cell where the walk stopped.
func (e *Emitter) EndWalk() {
	f := e.popLoop("EndWalk")
	if !f.walk {
		Internalf("EndWalk", "closing a balanced loop with EndWalk")
	}
	e.emit(OpClose, 1)
	e.known = false
	e.ptr = 0
}

func (e *Emitter) popLoop(op string) loopFrame {
	if len(e.loops) == 0 {
		Internalf(op, "no open loop")
	}
	f := e.loops[len(e.loops)-1]
	e.loops = e.loops[:len(e.loops)-1]
	return f
}

// ---------------------------------------------------------------------------
// Relative cell operations (pointer stays on the source cell)
// ---------------------------------------------------------------------------

// ClearHere zeroes the current cell.
func (e *Emitter) ClearHere() {
	e.StartLoop()
	e.emit(OpDec, 1)
	e.EndLoop()
}

// AddHere adds delta (mod 256) to the current cell using the shorter
// direction.
func (e *Emitter) AddHere(delta int) {
	d := ((delta % 256) + 256) % 256
	if d == 0 {
		return
	}
	if d <= 128 {
		e.emit(OpInc, d)
	} else {
		e.emit(OpDec, 256-d)
	}
}

// OutputHere writes the current cell.
func (e *Emitter) OutputHere() {
	e.emit(OpOutput, 1)
}

// InputHere reads into the current cell.
func (e *Emitter) InputHere() {
	e.emit(OpInput, 1)
}

// MoveRelative adds the current cell to each cell at the given offsets and
// zeroes the current cell. Offsets must be non-zero.
func (e *Emitter) MoveRelative(offsets ...int) {
	e.moveLoop("MoveRelative", OpInc, offsets)
}

// MoveSubRelative subtracts the current cell from each cell at the given
// offsets and zeroes the current cell.
func (e *Emitter) MoveSubRelative(offsets ...int) {
	e.moveLoop("MoveSubRelative", OpDec, offsets)
}

func (e *Emitter) moveLoop(name string, op Opcode, offsets []int) {
	if len(offsets) == 0 {
		e.ClearHere()
		return
	}
	origin := e.ptr
	e.StartLoop()
	e.emit(OpDec, 1)
	for _, off := range offsets {
		if off == 0 {
			Internalf(name, "destination equals source")
		}
		e.MovePointer(origin + off - e.ptr)
		e.emit(op, 1)
	}
	e.MovePointer(origin - e.ptr)
	e.EndLoop()
}

// CopyRelative copies the current cell into the cell at dst, routing the
// value through tmp so the source survives. dst and tmp are cleared first.
func (e *Emitter) CopyRelative(dst, tmp int) {
	if dst == 0 || tmp == 0 || dst == tmp {
		Internalf("CopyRelative", "invalid offsets dst=%d tmp=%d", dst, tmp)
	}
	e.MovePointer(dst)
	e.ClearHere()
	e.MovePointer(tmp - dst)
	e.ClearHere()
	e.MovePointer(-tmp)
	e.MoveRelative(dst, tmp)
	e.MovePointer(tmp)
	e.MoveRelative(-tmp)
	e.MovePointer(-tmp)
}

// ---------------------------------------------------------------------------
// Absolute cell operations (require a known pointer)
// ---------------------------------------------------------------------------

// SetValue stores value into addr.
func (e *Emitter) SetValue(addr int, value byte) {
	e.MoveTo(addr)
	e.ClearHere()
	e.AddHere(int(value))
}

// AddValue adds delta (mod 256) to addr.
func (e *Emitter) AddValue(addr int, delta int) {
	e.MoveTo(addr)
	e.AddHere(delta)
}

// ClearValue zeroes every given address.
func (e *Emitter) ClearValue(addrs ...int) {
	for _, a := range addrs {
		e.MoveTo(a)
		e.ClearHere()
	}
}

// MoveValue moves src into every dst, overwriting them, and zeroes src.
func (e *Emitter) MoveValue(src int, dsts ...int) {
	e.ClearValue(dsts...)
	e.MoveAddValue(src, dsts...)
}

// MoveAddValue adds src into every dst and zeroes src.
func (e *Emitter) MoveAddValue(src int, dsts ...int) {
	e.MoveTo(src)
	e.MoveRelative(relative(src, dsts)...)
}

// MoveSubValue subtracts src from every dst and zeroes src.
func (e *Emitter) MoveSubValue(src int, dsts ...int) {
	e.MoveTo(src)
	e.MoveSubRelative(relative(src, dsts)...)
}

// CopyValue copies src into dst using tmp as scratch. src is preserved and
// tmp ends at zero.
func (e *Emitter) CopyValue(src, dst, tmp int) {
	e.MoveTo(src)
	e.CopyRelative(dst-src, tmp-src)
}

// Output writes the cell at addr.
func (e *Emitter) Output(addr int) {
	e.MoveTo(addr)
	e.OutputHere()
}

// Input reads one byte into addr.
func (e *Emitter) Input(addr int) {
	e.MoveTo(addr)
	e.InputHere()
}

// Crash emits a runtime trap at addr: message is written to the output and
// the program then spins in an empty loop, which the Machine reports as
// ErrCrashed. The cell at addr is clobbered.
func (e *Emitter) Crash(addr int, message string) {
	e.MoveTo(addr)
	e.StartBlock("crash")
	e.ClearHere()
	prev := 0
	for i := 0; i < len(message); i++ {
		c := int(message[i])
		e.AddHere(c - prev)
		e.OutputHere()
		prev = c
	}
	e.ClearHere()
	e.AddHere(1)
	e.StartLoop()
	e.EndLoop()
	e.EndBlock()
}

func relative(src int, dsts []int) []int {
	offs := make([]int, len(dsts))
	for i, d := range dsts {
		offs[i] = d - src
	}
	return offs
}

// ---------------------------------------------------------------------------
// Debug annotations
// ---------------------------------------------------------------------------

// StartBlock opens a named block in the debug map.
func (e *Emitter) StartBlock(name string) {
	e.Debug.StartBlock(name, len(e.code))
}

// EndBlock closes the innermost block.
func (e *Emitter) EndBlock() {
	e.Debug.EndBlock(len(e.code))
}

// MarkSource maps the next instruction to a source position.
func (e *Emitter) MarkSource(line, column int) {
	e.Debug.AddSourceLocation(len(e.code), line, column)
}

// Finish checks that every loop and block was closed.
func (e *Emitter) Finish() {
	if len(e.loops) != 0 {
		Internalf("Finish", "%d loops left open", len(e.loops))
	}
	if n := e.Debug.OpenBlocks(); n != 0 {
		Internalf("Finish", "%d blocks left open", n)
	}
}

// String renders the code with the pointer state, for test failures.
func (e *Emitter) String() string {
	if e.known {
		return fmt.Sprintf("%s @%d", e.code, e.ptr)
	}
	return fmt.Sprintf("%s @~%+d", e.code, e.ptr)
}
