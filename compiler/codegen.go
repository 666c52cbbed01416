package compiler

import (
	"errors"

	"github.com/tliron/commonlog"

	"github.com/chazu/tapec/pkg/compact"
	"github.com/chazu/tapec/pkg/diag"
	"github.com/chazu/tapec/pkg/memory"
	"github.com/chazu/tapec/pkg/predict"
	"github.com/chazu/tapec/pkg/tape"
)

var log = commonlog.GetLogger("tapec.compiler")

// Options controls what Compile produces besides the raw code.
type Options struct {
	Compact bool // also produce the compact form
	Debug   bool // keep the debug map
}

// Result is the output of one compilation.
type Result struct {
	Code         string
	Compact      *compact.Program // nil unless Options.Compact
	Debug        *tape.DebugInfo  // raw offsets; nil unless Options.Debug
	Diagnostics  []*diag.Diagnostic
	Layout       memory.Layout
	MaxStackUsed int
}

// Err joins the error-severity diagnostics of the result.
func (r *Result) Err() error {
	var errs []error
	for _, d := range r.Diagnostics {
		if d.Severity == diag.SeverityError {
			errs = append(errs, d)
		}
	}
	return errors.Join(errs...)
}

// value is one IR stack entry. A value that is known and not materialized
// exists only at compile time: its cell still holds zero.
type value struct {
	slot         *memory.StackAddress
	pred         predict.Number
	materialized bool
}

// generator lowers IR onto the stack and heap allocators.
type generator struct {
	e      *tape.Emitter
	diags  *diag.Bag
	stack  *memory.Stack
	heap   *memory.Heap
	layout memory.Layout
	values []*value

	heapGone bool
}

// Compile lowers prog into a tape program. Layout errors are returned
// directly; problems in the program are reported as diagnostics in the
// result. A panic from a violated generator invariant is returned as a
// *tape.InternalError.
func Compile(prog *Program, layout memory.Layout, opts Options) (res *Result, err error) {
	defer tape.Recover(&err)

	if errs := layout.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	g := &generator{
		e:      tape.NewEmitter(),
		diags:  diag.NewBag(),
		layout: layout,
	}
	g.stack, err = memory.NewStack(g.e, g.diags, layout.StackStart(), layout.StackSize)
	if err != nil {
		return nil, err
	}
	if layout.HeapSize > 0 {
		g.heap = memory.NewHeap(g.e, layout.HeapStart())
		if err := g.heap.Init(layout.HeapSize); err != nil {
			return nil, err
		}
	}

	for _, in := range prog.Instrs {
		g.instr(in)
	}
	g.finish()

	res = &Result{
		Code:         g.e.Code(),
		Diagnostics:  g.diags.All(),
		Layout:       layout,
		MaxStackUsed: g.stack.MaxUsedSize,
	}
	if opts.Debug {
		res.Debug = g.e.Debug
	}
	if opts.Compact {
		var d *tape.DebugInfo
		if opts.Debug {
			d = g.e.Debug.Clone()
		}
		res.Compact = compact.Compact(res.Code, d)
	}

	log.Infof("%s: %d instructions, %d stack cells used, %d diagnostics",
		prog.Name, len(res.Code), res.MaxStackUsed, len(res.Diagnostics))
	return res, nil
}

func (g *generator) instr(in Instr) {
	g.diags.At(in.Pos.Line, in.Pos.Column)
	g.e.MarkSource(in.Pos.Line, in.Pos.Column)

	if g.overflowed() {
		// Unreachable: the overflow trap has already been emitted.
		log.Debugf("skipping %s after stack overflow", in)
		return
	}

	info := GetOpInfo(in.Op)
	if len(g.values) < info.Pops {
		g.diags.Add(diag.Errorf("stack-underflow", "%s needs %d value(s), stack has %d", in.Op, info.Pops, len(g.values)))
		return
	}

	g.e.StartBlock(in.String())
	defer g.e.EndBlock()

	switch in.Op {
	case OpPush:
		g.pushKnown(byte(in.Arg))
	case OpPop:
		g.drop(g.pop())
	case OpDup:
		g.dup()
	case OpAdd:
		g.arith(false)
	case OpSub:
		g.arith(true)
	case OpLoad:
		if g.checkVariable(in.Arg) {
			g.push(g.stack.PushCopy(in.Arg))
		}
	case OpStore:
		g.storeVariable(in.Arg, false)
	case OpAddTo:
		g.storeVariable(in.Arg, true)
	case OpOut:
		v := g.pop()
		g.materialize(v)
		g.e.Output(v.slot.Address)
		g.drop(v)
	case OpIn:
		slot := g.stack.PushVirtual(1)
		g.e.Input(slot.Address)
		g.push(slot)
	case OpHeapSet, OpHeapAdd, OpHeapSub:
		g.heapStore(in.Op)
	case OpHeapGet:
		g.heapGet()
	case OpHeapSize:
		if g.requireHeap(in.Op) {
			g.pushKnown(byte(g.heap.Size()))
		}
	case OpHeapDestroy:
		if g.requireHeap(in.Op) {
			g.heap.Destroy()
			g.heapGone = true
		}
	case OpCrash:
		g.e.Crash(g.stack.NextAddress(), in.Text+"\n")
	default:
		tape.Internalf("compiler", "no lowering for %s", in.Op)
	}
}

// finish releases values left on the IR stack and closes the emitter.
func (g *generator) finish() {
	if n := len(g.values); n > 0 && !g.overflowed() {
		g.diags.Add(diag.Warningf("stack-leak", "%d value(s) left on the stack at end of program", n))
	}
	for len(g.values) > 0 {
		g.drop(g.pop())
	}
	g.e.Finish()
}

// overflowed reports whether a stack overflow trap has been emitted.
func (g *generator) overflowed() bool {
	return g.stack.MaxUsedSize > g.stack.MaxSize
}

// ---------------------------------------------------------------------------
// IR stack
// ---------------------------------------------------------------------------

// byteValue returns the predicted byte of a known value.
func (v *value) byteValue() byte {
	b, _ := v.pred.Value()
	return b
}

func (g *generator) push(slot *memory.StackAddress) {
	g.values = append(g.values, &value{slot: slot, pred: predict.Unknown, materialized: true})
}

func (g *generator) pushKnown(b byte) {
	slot := g.stack.PushVirtual(1)
	g.values = append(g.values, &value{slot: slot, pred: predict.Known(b)})
}

func (g *generator) pop() *value {
	v := g.values[len(g.values)-1]
	g.values = g.values[:len(g.values)-1]
	return v
}

func (g *generator) top() *value {
	return g.values[len(g.values)-1]
}

// materialize writes a compile-time value into its cell.
func (g *generator) materialize(v *value) {
	if v.materialized {
		return
	}
	g.e.AddValue(v.slot.Address, int(v.byteValue()))
	v.materialized = true
}

// drop releases v's slot, clearing the cell only if it holds data.
func (g *generator) drop(v *value) {
	if v.materialized {
		g.stack.Pop()
		return
	}
	g.stack.PopOnAddress(func(int) {})
}

// consumed releases v's slot after an operation moved its contents out.
func (g *generator) consumed(v *value) {
	if g.stack.Top() != v.slot {
		tape.Internalf("compiler", "releasing value at %d out of order", v.slot.Address)
	}
	g.stack.PopOnAddress(func(int) {})
}

func (g *generator) dup() {
	v := g.top()
	if v.pred.IsKnown() {
		g.pushKnown(v.byteValue())
		return
	}
	g.push(g.stack.PushCopy(v.slot.Address))
}

// arith lowers add and sub. A known right operand is folded into the left
// one without touching the tape when the left operand is known too.
func (g *generator) arith(sub bool) {
	b := g.pop()
	a := g.top()

	if b.pred.IsKnown() {
		delta := int(b.byteValue())
		if sub {
			delta = -delta
			a.pred = a.pred.Sub(b.pred)
		} else {
			a.pred = a.pred.Add(b.pred)
		}
		g.drop(b)
		if a.materialized {
			g.e.AddValue(a.slot.Address, delta)
		}
		return
	}

	g.materialize(a)
	if sub {
		g.stack.PopAndSubtract(a.slot.Address)
	} else {
		g.stack.PopAndAdd(a.slot.Address)
	}
	a.pred = predict.Unknown
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

func (g *generator) checkVariable(addr int) bool {
	if addr < 0 || addr >= g.layout.Variables {
		g.diags.Add(diag.Errorf("variable-range", "address %d outside the %d variable cell(s)", addr, g.layout.Variables))
		return false
	}
	return true
}

func (g *generator) storeVariable(addr int, add bool) {
	v := g.top()
	if !g.checkVariable(addr) {
		g.drop(g.pop())
		return
	}
	g.pop()

	if !v.materialized {
		if add {
			g.e.AddValue(addr, int(v.byteValue()))
		} else {
			g.e.SetValue(addr, v.byteValue())
		}
		g.consumed(v)
		return
	}
	if add {
		g.stack.PopAndAdd(addr)
	} else {
		g.stack.PopAndStore(addr)
	}
}

// ---------------------------------------------------------------------------
// Heap
// ---------------------------------------------------------------------------

func (g *generator) requireHeap(op Op) bool {
	switch {
	case g.heap == nil:
		g.diags.Add(diag.Errorf("no-heap", "%s used without a heap", op))
		return false
	case g.heapGone:
		g.diags.Add(diag.Errorf("heap-destroyed", "%s used after heap.destroy", op))
		return false
	}
	return true
}

// checkIndex rejects known indices outside the heap. Unknown indices are
// not checked at run time.
func (g *generator) checkIndex(i *value) bool {
	if !i.pred.IsKnown() || int(i.byteValue()) < g.heap.Size() {
		return true
	}
	g.diags.Add(diag.Errorf("heap-index", "heap index %d out of range [0, %d)", i.byteValue(), g.heap.Size()))
	return false
}

func (g *generator) heapStore(op Op) {
	v := g.pop()
	i := g.pop()
	if !g.requireHeap(op) || !g.checkIndex(i) {
		g.drop(v)
		g.drop(i)
		return
	}

	if op == OpHeapSet && i.pred.IsKnown() && v.pred.IsKnown() && !i.materialized && !v.materialized {
		g.consumed(v)
		g.consumed(i)
		if err := g.heap.SetAbsolute(int(i.byteValue()), v.byteValue()); err != nil {
			g.diags.AddError(err)
		}
		return
	}

	g.materialize(i)
	g.materialize(v)
	switch op {
	case OpHeapSet:
		g.heap.Set(i.slot.Address, v.slot.Address)
	case OpHeapAdd:
		g.heap.Add(i.slot.Address, v.slot.Address)
	case OpHeapSub:
		g.heap.Subtract(i.slot.Address, v.slot.Address)
	}
	g.consumed(v)
	g.consumed(i)
}

func (g *generator) heapGet() {
	i := g.top()
	if !g.requireHeap(OpHeapGet) || !g.checkIndex(i) {
		return
	}

	if i.pred.IsKnown() {
		index := int(i.byteValue())
		g.drop(g.pop())
		slot := g.stack.PushVirtual(1)
		if err := g.heap.GetAbsolute(index, slot.Address); err != nil {
			g.diags.AddError(err)
		}
		g.push(slot)
		return
	}

	g.heap.Get(i.slot.Address, i.slot.Address)
	i.pred = predict.Unknown
}
