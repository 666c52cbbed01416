// Package diag collects compile-time diagnostics. Diagnostics are values:
// producing one never aborts generation, and the driver decides at the end
// whether the accumulated errors are fatal.
package diag

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("tapec.diag")

// Severity classifies a diagnostic.
type Severity uint8

const (
	SeverityError   Severity = 1
	SeverityWarning Severity = 2
	SeverityInfo    Severity = 3
)

// String returns a lower-case name for the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("Severity(%d)", s)
	}
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity
	Code     string // Short machine-readable identifier, e.g. "stack-overflow"
	Message  string
	Offset   int // Code offset the diagnostic refers to, -1 if none
	Line     int // IR source line, 0 if unknown
	Column   int
}

// Error implements error so diagnostics can be returned directly.
func (d *Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("%d:%d: %s: %s", d.Line, d.Column, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// Errorf creates an error-severity diagnostic.
func Errorf(code string, format string, args ...any) *Diagnostic {
	return &Diagnostic{Severity: SeverityError, Code: code, Message: fmt.Sprintf(format, args...), Offset: -1}
}

// Warningf creates a warning-severity diagnostic.
func Warningf(code string, format string, args ...any) *Diagnostic {
	return &Diagnostic{Severity: SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...), Offset: -1}
}

// Bag is the diagnostics sink of one generation run. A nil *Bag discards
// everything, so components can be used without one.
type Bag struct {
	items []*Diagnostic

	// Line and Column are stamped onto diagnostics that carry no position.
	Line   int
	Column int
}

// NewBag creates an empty sink.
func NewBag() *Bag {
	return &Bag{}
}

// Add records d and mirrors it to the log.
func (b *Bag) Add(d *Diagnostic) {
	if b == nil || d == nil {
		return
	}
	if d.Line == 0 {
		d.Line, d.Column = b.Line, b.Column
	}
	b.items = append(b.items, d)
	switch d.Severity {
	case SeverityError:
		log.Errorf("%s", d.Error())
	case SeverityWarning:
		log.Warningf("%s", d.Error())
	default:
		log.Infof("%s", d.Error())
	}
}

// AddError records err. Diagnostics keep their severity; other errors
// become error-severity diagnostics.
func (b *Bag) AddError(err error) {
	if err == nil {
		return
	}
	var d *Diagnostic
	if errors.As(err, &d) {
		b.Add(d)
		return
	}
	b.Add(&Diagnostic{Severity: SeverityError, Message: err.Error(), Offset: -1})
}

// At sets the source position stamped onto subsequent diagnostics.
func (b *Bag) At(line, column int) {
	if b == nil {
		return
	}
	b.Line, b.Column = line, column
}

// All returns every recorded diagnostic in order.
func (b *Bag) All() []*Diagnostic {
	if b == nil {
		return nil
	}
	return b.items
}

// Len returns the number of diagnostics.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Count returns the number of diagnostics with severity s.
func (b *Bag) Count(s Severity) int {
	n := 0
	for _, d := range b.All() {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (b *Bag) HasErrors() bool {
	return b.Count(SeverityError) > 0
}

// Err joins all error-severity diagnostics, or returns nil.
func (b *Bag) Err() error {
	var errs []error
	for _, d := range b.All() {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	return errors.Join(errs...)
}
