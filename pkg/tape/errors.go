package tape

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by the Machine.
var (
	ErrCrashed          = errors.New("program reached a crash trap")
	ErrStepLimit        = errors.New("step limit exceeded")
	ErrUnbalanced       = errors.New("unbalanced brackets")
	ErrPointerUnderflow = errors.New("pointer moved left of cell 0")
)

// InternalError signals a bug in the code generator: a pointer precondition
// was violated, a loop did not return to its start, or a stack slot was
// released out of order. It is raised with panic and is never the result of
// malformed input.
type InternalError struct {
	Op     string // Operation that detected the violation
	Detail string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in %s: %s", e.Op, e.Detail)
}

// Internalf panics with an InternalError.
func Internalf(op string, format string, args ...any) {
	panic(&InternalError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

// Recover converts an InternalError panic into *errp. Other panics are
// re-raised. Use it with defer at a package boundary:
//
//	defer tape.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if ie, ok := r.(*InternalError); ok {
		*errp = ie
		return
	}
	panic(r)
}

// IsInternal reports whether err is (or wraps) an InternalError.
func IsInternal(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}
