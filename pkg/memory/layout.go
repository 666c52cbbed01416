package memory

import "github.com/chazu/tapec/pkg/diag"

// Layout places the program's regions on the tape: variables at
// [0, Variables), the stack right after them, then the heap.
type Layout struct {
	Variables int
	StackSize int
	HeapSize  int // Slots; 0 means no heap
}

// StackStart returns the first stack address.
func (l Layout) StackStart() int {
	return l.Variables
}

// HeapStart returns the first heap address.
func (l Layout) HeapStart() int {
	return l.Variables + l.StackSize
}

// End returns the first address past every region.
func (l Layout) End() int {
	if l.HeapSize == 0 {
		return l.HeapStart()
	}
	return l.HeapStart() + BlockSize*(l.HeapSize+1)
}

// Validate reports every configuration problem in the layout.
func (l Layout) Validate() []error {
	var errs []error
	if l.Variables < 0 {
		errs = append(errs, diag.Errorf("layout-variables", "variables must not be negative, got %d", l.Variables))
	}
	if l.StackSize <= 0 {
		errs = append(errs, diag.Errorf("stack-size", "stack size must be positive, got %d", l.StackSize))
	}
	if l.HeapSize < 0 || l.HeapSize > MaxHeapSize {
		errs = append(errs, diag.Errorf("heap-size", "heap size must be between 0 and %d, got %d", MaxHeapSize, l.HeapSize))
	}
	return errs
}
