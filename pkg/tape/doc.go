// Package tape provides the low-level pieces of the tape backend: the
// eight-symbol instruction set, a code emitter that tracks the pointer
// symbolically, the debug-offset map, and a simulator for running emitted
// programs.
//
// # Machine Model
//
// The target machine has a single tape of wrapping 8-bit cells and one
// pointer. Programs are strings over the alphabet:
//
//	>  move the pointer right      <  move the pointer left
//	+  increment the current cell  -  decrement the current cell
//	[  jump past ] if cell is 0    ]  jump back to [ if cell is non-zero
//	.  write the current cell      ,  read into the current cell
//
// There is no indexed access. Every higher-level memory operation is a walk
// of the pointer plus decrement loops.
//
// # Pointer Tracking
//
// The Emitter keeps the pointer position as a compile-time value. While the
// position is known, absolute operations (MoveTo, SetValue, MoveValue, ...)
// compute the walk themselves. Runtime-computed addressing (see package
// memory) runs loops that leave the pointer at a position only the running
// program knows; the Emitter then tracks positions relative to the loop's
// exit cell until Attach declares the absolute position again. Calling an
// absolute operation in that state panics with an InternalError.
//
// # Traps
//
// Crash emits a message followed by "+[]". The simulator reports entering
// an empty loop with a non-zero cell as ErrCrashed instead of spinning.
package tape
