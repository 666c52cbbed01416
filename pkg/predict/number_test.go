package predict

import (
	"testing"
	"testing/quick"
)

func TestKnownArithmeticWraps(t *testing.T) {
	tests := []struct {
		name string
		got  Number
		want byte
	}{
		{"add", Known(3).Add(Known(4)), 7},
		{"add overflow", Known(250).Add(Known(10)), 4},
		{"sub", Known(10).Sub(Known(3)), 7},
		{"sub underflow", Known(0).Sub(Known(1)), 255},
		{"inc overflow", Known(255).Inc(), 0},
		{"dec underflow", Known(0).Dec(), 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := tt.got.Value()
			if !ok {
				t.Fatalf("%s: result is Unknown", tt.name)
			}
			if v != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, v, tt.want)
			}
		})
	}
}

func TestAddMatchesModularArithmetic(t *testing.T) {
	f := func(a, b byte) bool {
		got := Known(a).Add(Known(b))
		return got.Is(byte((int(a) + int(b)) % 256))
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestUnknownIsAbsorbing(t *testing.T) {
	f := func(a byte) bool {
		k := Known(a)
		return !k.Add(Unknown).IsKnown() &&
			!Unknown.Add(k).IsKnown() &&
			!k.Sub(Unknown).IsKnown() &&
			!Unknown.Sub(k).IsKnown() &&
			!Unknown.Inc().IsKnown() &&
			!Unknown.Dec().IsKnown()
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestUnknownNeverEquals(t *testing.T) {
	for v := 0; v < 256; v++ {
		if Unknown.Is(byte(v)) {
			t.Errorf("Unknown.Is(%d) = true, want false", v)
		}
		if Unknown.Equal(Known(byte(v))) {
			t.Errorf("Unknown.Equal(Known(%d)) = true, want false", v)
		}
	}
	if Unknown.Equal(Unknown) {
		t.Error("Unknown.Equal(Unknown) = true, want false")
	}
	// The zero value carries a zero byte; it still must not match 0.
	var zero Number
	if zero.Is(0) {
		t.Error("zero Number matched byte 0")
	}
}

func TestString(t *testing.T) {
	if got := Unknown.String(); got != "?" {
		t.Errorf("Unknown.String() = %q, want %q", got, "?")
	}
	if got := Known(42).String(); got != "42" {
		t.Errorf("Known(42).String() = %q, want %q", got, "42")
	}
}
