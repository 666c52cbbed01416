// Package predict implements the constant predictor used during code
// generation: a byte that is either a known value or Unknown.
package predict

import "strconv"

// Number is a predicted cell value. The zero value is Unknown.
type Number struct {
	value byte
	known bool
}

// Unknown is the top of the lattice: any byte is possible.
var Unknown = Number{}

// Known returns the prediction for a concrete byte.
func Known(v byte) Number {
	return Number{value: v, known: true}
}

// IsKnown reports whether n holds a concrete value.
func (n Number) IsKnown() bool {
	return n.known
}

// Value returns the concrete value and whether it is known.
func (n Number) Value() (byte, bool) {
	return n.value, n.known
}

// Add returns n+m with byte wraparound, or Unknown if either side is Unknown.
func (n Number) Add(m Number) Number {
	if !n.known || !m.known {
		return Unknown
	}
	return Known(n.value + m.value)
}

// Sub returns n-m with byte wraparound, or Unknown if either side is Unknown.
func (n Number) Sub(m Number) Number {
	if !n.known || !m.known {
		return Unknown
	}
	return Known(n.value - m.value)
}

// Inc returns n+1.
func (n Number) Inc() Number {
	return n.Add(Known(1))
}

// Dec returns n-1.
func (n Number) Dec() Number {
	return n.Sub(Known(1))
}

// Is reports whether n is known to equal v. Unknown never equals any byte.
func (n Number) Is(v byte) bool {
	return n.known && n.value == v
}

// Equal reports whether both predictions are known and hold the same byte.
// Two Unknown values are not equal.
func (n Number) Equal(m Number) bool {
	return n.known && m.known && n.value == m.value
}

func (n Number) String() string {
	if !n.known {
		return "?"
	}
	return strconv.Itoa(int(n.value))
}
