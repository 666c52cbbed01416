package memory

import (
	"github.com/chazu/tapec/pkg/diag"
	"github.com/chazu/tapec/pkg/tape"
)

const (
	// BlockSize is the number of cells per heap block.
	BlockSize = 3

	// MaxHeapSize is the largest number of slots a heap may hold. Indices
	// and the capacity stamp must fit in one cell with room for the walk
	// marks.
	MaxHeapSize = 126
)

// Cell offsets inside a block.
const (
	offAddress = 0 // Walk counter on the way out, trail mark on the way back
	offValue   = 1 // Value carried along by a walk
	offData    = 2 // Stored slot contents
)

// Heap is a run-time indexable array laid out as blocks of BlockSize cells
// starting at Start. Block 0 is a header: its address cell is a permanent
// zero that stops backward walks, its value cell receives results of Get
// and its data cell holds the slot count. Slot i lives in block i+1.
//
// An access seeds slot 0's address cell with the index and walks forward,
// decrementing the counter and moving it one block on each step while
// leaving a 1 behind as a trail. The walk returns by clearing the trail.
// Indices are not range-checked at run time.
type Heap struct {
	Start int

	e    *tape.Emitter
	size int
	live bool
	done bool
}

// NewHeap creates an uninitialized heap allocator based at start.
func NewHeap(e *tape.Emitter, start int) *Heap {
	return &Heap{Start: start, e: e}
}

// Size returns the number of slots, or 0 before Init.
func (h *Heap) Size() int {
	return h.size
}

// Cells returns the number of tape cells the heap occupies.
func (h *Heap) Cells() int {
	if h.size == 0 {
		return 0
	}
	return BlockSize * (h.size + 1)
}

// End returns the first address past the heap.
func (h *Heap) End() int {
	return h.Start + h.Cells()
}

// DataAddress returns the address holding the contents of slot i.
func (h *Heap) DataAddress(i int) int {
	return h.block(i+1) + offData
}

func (h *Heap) block(b int) int {
	return h.Start + BlockSize*b
}

func (h *Heap) seedAddress() int { return h.block(1) + offAddress }
func (h *Heap) seedValue() int   { return h.block(1) + offValue }
func (h *Heap) landing() int     { return h.block(0) + offValue }
func (h *Heap) stamp() int       { return h.block(0) + offData }

// Init reserves size slots and writes the slot count into the header. The
// pointer ends on the first heap cell.
func (h *Heap) Init(size int) error {
	if h.live || h.done {
		tape.Internalf("Heap.Init", "heap already initialized")
	}
	if size < 1 || size > MaxHeapSize {
		return diag.Errorf("heap-size", "heap size must be between 1 and %d, got %d", MaxHeapSize, size)
	}
	h.size = size
	h.live = true

	h.e.StartBlock("heap init")
	h.e.SetValue(h.stamp(), byte(size))
	h.e.MoveTo(h.Start)
	h.e.EndBlock()

	log.Debugf("heap of %d slots at %d..%d", size, h.Start, h.End()-1)
	return nil
}

// Destroy zeroes every slot's data and leaves the heap unusable. The slot
// count in the header drives the walk and is consumed by it.
func (h *Heap) Destroy() {
	h.requireLive("Heap.Destroy")
	h.e.StartBlock("heap destroy")

	h.e.MoveAddValue(h.stamp(), h.seedAddress())
	h.e.AddValue(h.seedAddress(), -1)
	h.e.MoveTo(h.seedAddress())
	h.e.StartWalk()
	h.e.AddHere(-1)
	h.e.MoveRelative(BlockSize)
	h.e.MovePointer(offData)
	h.e.ClearHere()
	h.e.MovePointer(-offData)
	h.e.AddHere(1)
	h.e.MovePointer(BlockSize)
	h.e.EndWalk()

	h.e.MovePointer(offData)
	h.e.ClearHere()
	h.e.MovePointer(-offData)
	h.GoBack()

	h.e.EndBlock()
	h.live = false
	h.done = true
}

// GoTo walks from slot 0 to the slot whose index is in slot 0's address
// cell. The pointer ends on the target's address cell, which is zero.
//
// For index i the walk loop tests its condition i+1 times and runs its
// body i times.
func (h *Heap) GoTo() {
	h.requireLive("Heap.GoTo")
	h.e.MoveTo(h.seedAddress())
	h.e.StartBlock("heap goto")
	h.e.StartWalk()
	h.e.AddHere(-1)
	h.e.MoveRelative(BlockSize)
	h.e.AddHere(1)
	h.e.MovePointer(BlockSize)
	h.e.EndWalk()
	h.e.EndBlock()
}

// CarryTo is GoTo that also carries slot 0's value cell to the target.
func (h *Heap) CarryTo() {
	h.requireLive("Heap.CarryTo")
	h.e.MoveTo(h.seedAddress())
	h.e.StartBlock("heap carry")
	h.e.StartWalk()
	h.e.AddHere(-1)
	h.e.MoveRelative(BlockSize)
	h.e.MovePointer(offValue)
	h.e.MoveRelative(BlockSize)
	h.e.MovePointer(-offValue)
	h.e.AddHere(1)
	h.e.MovePointer(BlockSize)
	h.e.EndWalk()
	h.e.EndBlock()
}

// GoBack returns from the target's address cell to the start of the heap,
// erasing the trail.
func (h *Heap) GoBack() {
	h.atTarget("Heap.GoBack")
	h.e.StartBlock("heap back")
	h.e.MovePointer(-BlockSize)
	h.e.StartWalk()
	h.e.AddHere(-1)
	h.e.MovePointer(-BlockSize)
	h.e.EndWalk()
	h.e.Attach(h.Start)
	h.e.EndBlock()
}

// CarryBack is GoBack that carries the target's value cell into the
// header's value cell.
func (h *Heap) CarryBack() {
	h.atTarget("Heap.CarryBack")
	h.e.StartBlock("heap carry back")
	h.carryValueBack()
	h.e.StartWalk()
	h.e.AddHere(-1)
	h.carryValueBack()
	h.e.EndWalk()
	h.e.Attach(h.Start)
	h.e.EndBlock()
}

// carryValueBack moves the value cell of the current block into the
// previous block and steps onto that block's address cell.
func (h *Heap) carryValueBack() {
	h.e.MovePointer(offValue)
	h.e.MoveRelative(-BlockSize)
	h.e.MovePointer(-offValue - BlockSize)
}

// Set stores the value in valueAddr into the slot indexed by pointerAddr.
// Both source cells are consumed.
func (h *Heap) Set(pointerAddr, valueAddr int) {
	h.store("heap set", pointerAddr, valueAddr, h.storeData)
}

// Add adds the value in valueAddr to the slot indexed by pointerAddr.
// Both source cells are consumed.
func (h *Heap) Add(pointerAddr, valueAddr int) {
	h.store("heap add", pointerAddr, valueAddr, h.addData)
}

// Subtract subtracts the value in valueAddr from the slot indexed by
// pointerAddr. Both source cells are consumed.
func (h *Heap) Subtract(pointerAddr, valueAddr int) {
	h.store("heap sub", pointerAddr, valueAddr, h.subData)
}

// SetAbsolute stores a constant into a constant slot.
func (h *Heap) SetAbsolute(pointer int, value byte) error {
	h.requireLive("Heap.SetAbsolute")
	if err := h.checkIndex(pointer); err != nil {
		return err
	}
	h.e.StartBlock("heap set")
	h.e.SetValue(h.seedAddress(), byte(pointer))
	h.e.SetValue(h.seedValue(), value)
	h.CarryTo()
	h.storeData()
	h.GoBack()
	h.e.EndBlock()
	return nil
}

func (h *Heap) store(name string, pointerAddr, valueAddr int, arrive func()) {
	h.requireLive("Heap." + name)
	if pointerAddr == valueAddr {
		tape.Internalf("Heap."+name, "pointer and value share cell %d", pointerAddr)
	}
	h.checkOutside("Heap."+name, pointerAddr, valueAddr)

	h.e.StartBlock(name)
	h.e.MoveAddValue(pointerAddr, h.seedAddress())
	h.e.MoveAddValue(valueAddr, h.seedValue())
	h.CarryTo()
	arrive()
	h.GoBack()
	h.e.EndBlock()
}

// storeData overwrites the target's data with the carried value.
func (h *Heap) storeData() {
	h.e.MovePointer(offData)
	h.e.ClearHere()
	h.e.MovePointer(offValue - offData)
	h.e.MoveRelative(offData - offValue)
	h.e.MovePointer(-offValue)
}

func (h *Heap) addData() {
	h.e.MovePointer(offValue)
	h.e.MoveRelative(offData - offValue)
	h.e.MovePointer(-offValue)
}

func (h *Heap) subData() {
	h.e.MovePointer(offValue)
	h.e.MoveSubRelative(offData - offValue)
	h.e.MovePointer(-offValue)
}

// Get copies the slot indexed by pointerAddr into resultAddr. The pointer
// cell is preserved unless it is also the result cell.
func (h *Heap) Get(pointerAddr, resultAddr int) {
	h.requireLive("Heap.Get")
	h.checkOutside("Heap.Get", pointerAddr, resultAddr)

	h.e.StartBlock("heap get")
	h.e.CopyValue(pointerAddr, h.seedAddress(), h.landing())
	h.GoTo()
	h.fetch()
	h.e.EndBlock()
	h.e.MoveValue(h.landing(), resultAddr)
}

// GetAbsolute copies a constant slot into resultAddr.
func (h *Heap) GetAbsolute(pointer, resultAddr int) error {
	h.requireLive("Heap.GetAbsolute")
	if err := h.checkIndex(pointer); err != nil {
		return err
	}
	h.checkOutside("Heap.GetAbsolute", resultAddr)

	h.e.StartBlock("heap get")
	h.e.SetValue(h.seedAddress(), byte(pointer))
	h.GoTo()
	h.fetch()
	h.e.EndBlock()
	h.e.MoveValue(h.landing(), resultAddr)
	return nil
}

// GetMulti copies size consecutive slots, starting at the index in
// pointerAddr, into resultAddr, resultAddr+1, ... The pointer cell is
// advanced by size-1 as a side effect.
func (h *Heap) GetMulti(pointerAddr, resultAddr, size int) {
	if size < 1 {
		tape.Internalf("Heap.GetMulti", "invalid size %d", size)
	}
	if size > 1 && pointerAddr >= resultAddr && pointerAddr < resultAddr+size {
		tape.Internalf("Heap.GetMulti", "pointer %d inside result range %d+%d", pointerAddr, resultAddr, size)
	}
	for k := 0; k < size; k++ {
		if k > 0 {
			h.e.AddValue(pointerAddr, 1)
		}
		h.Get(pointerAddr, resultAddr+k)
	}
}

// fetch copies the target's data into its value cell, using the address
// cell as scratch, and carries it back to the header.
func (h *Heap) fetch() {
	h.e.MovePointer(offData)
	h.e.CopyRelative(offValue-offData, offAddress-offData)
	h.e.MovePointer(-offData)
	h.CarryBack()
}

func (h *Heap) checkIndex(i int) error {
	if i < 0 || i >= h.size {
		return diag.Errorf("heap-index", "heap index %d out of range [0, %d)", i, h.size)
	}
	return nil
}

func (h *Heap) checkOutside(op string, addrs ...int) {
	for _, a := range addrs {
		if a >= h.Start && a < h.End() {
			tape.Internalf(op, "address %d lies inside the heap", a)
		}
	}
}

func (h *Heap) requireLive(op string) {
	if !h.live {
		if h.done {
			tape.Internalf(op, "heap used after Destroy")
		}
		tape.Internalf(op, "heap used before Init")
	}
}

func (h *Heap) atTarget(op string) {
	if h.e.Known() || h.e.Relative() != 0 {
		tape.Internalf(op, "pointer must rest on a walk target, at %s", h.e)
	}
}
