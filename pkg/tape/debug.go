package tape

import "sort"

// SourceLocation maps a code offset to an IR source position.
type SourceLocation struct {
	CodeOffset int // Offset in the instruction stream
	Line       int // Source line number (1-based)
	Column     int // Source column number (1-based)
}

// BlockSpan is a named region of emitted code. Blocks are comment-only: they
// never appear in the instruction stream.
type BlockSpan struct {
	Name  string
	Start int // First offset of the block
	End   int // Offset one past the block
	Depth int // Nesting depth at the time the block was opened
}

// DebugInfo is the debug-offset map of a generated program. Offsets refer to
// raw instruction positions until the compactor rewrites them to segment
// indices.
type DebugInfo struct {
	SourceMap []SourceLocation
	Blocks    []BlockSpan

	open []int // indices into Blocks of unclosed blocks
}

// NewDebugInfo creates an empty debug map.
func NewDebugInfo() *DebugInfo {
	return &DebugInfo{}
}

// AddSourceLocation records that code at offset was generated for line:column.
// A second location at the same offset replaces the first.
func (d *DebugInfo) AddSourceLocation(offset, line, column int) {
	if n := len(d.SourceMap); n > 0 && d.SourceMap[n-1].CodeOffset == offset {
		d.SourceMap[n-1].Line = line
		d.SourceMap[n-1].Column = column
		return
	}
	d.SourceMap = append(d.SourceMap, SourceLocation{CodeOffset: offset, Line: line, Column: column})
}

// Lookup returns the source location of the nearest mapping at or before offset.
func (d *DebugInfo) Lookup(offset int) (line, column int, ok bool) {
	i := sort.Search(len(d.SourceMap), func(i int) bool {
		return d.SourceMap[i].CodeOffset > offset
	})
	if i == 0 {
		return 0, 0, false
	}
	loc := d.SourceMap[i-1]
	return loc.Line, loc.Column, true
}

// StartBlock opens a named block at offset.
func (d *DebugInfo) StartBlock(name string, offset int) {
	d.open = append(d.open, len(d.Blocks))
	d.Blocks = append(d.Blocks, BlockSpan{Name: name, Start: offset, End: offset, Depth: len(d.open) - 1})
}

// EndBlock closes the innermost open block at offset.
func (d *DebugInfo) EndBlock(offset int) {
	if len(d.open) == 0 {
		Internalf("EndBlock", "no open block at offset %d", offset)
	}
	idx := d.open[len(d.open)-1]
	d.open = d.open[:len(d.open)-1]
	d.Blocks[idx].End = offset
}

// OpenBlocks returns the number of blocks not yet closed.
func (d *DebugInfo) OpenBlocks() int {
	return len(d.open)
}

// BlocksAt returns the names of all blocks containing offset, outermost first.
func (d *DebugInfo) BlocksAt(offset int) []string {
	var names []string
	for _, b := range d.Blocks {
		if offset >= b.Start && offset < b.End {
			names = append(names, b.Name)
		}
	}
	return names
}

// OffsetCodeFrom shifts every recorded offset at or after position by delta.
// Shifted offsets are clamped at 0.
func (d *DebugInfo) OffsetCodeFrom(position, delta int) {
	d.remap(func(o int) int {
		if o < position {
			return o
		}
		if o+delta < 0 {
			return 0
		}
		return o + delta
	})
}

// Collapse records that the n instructions starting at position were folded
// into a single instruction. Offsets inside the run map to position; offsets
// after it move left by n-1.
func (d *DebugInfo) Collapse(position, n int) {
	if n <= 1 {
		return
	}
	d.remap(func(o int) int {
		switch {
		case o <= position:
			return o
		case o < position+n:
			return position
		default:
			return o - (n - 1)
		}
	})
}

// remap applies f to every code offset. Block ends are exclusive, so they are
// mapped through their last contained offset.
func (d *DebugInfo) remap(f func(int) int) {
	for i := range d.SourceMap {
		d.SourceMap[i].CodeOffset = f(d.SourceMap[i].CodeOffset)
	}
	for i := range d.Blocks {
		b := &d.Blocks[i]
		if b.End > b.Start {
			b.Start, b.End = f(b.Start), f(b.End-1)+1
		} else {
			b.Start = f(b.Start)
			b.End = b.Start
		}
	}
}

// Clone returns a deep copy of the map.
func (d *DebugInfo) Clone() *DebugInfo {
	if d == nil {
		return nil
	}
	c := &DebugInfo{
		SourceMap: append([]SourceLocation(nil), d.SourceMap...),
		Blocks:    append([]BlockSpan(nil), d.Blocks...),
		open:      append([]int(nil), d.open...),
	}
	return c
}
