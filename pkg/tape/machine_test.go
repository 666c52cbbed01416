package tape

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestMachineArithmetic(t *testing.T) {
	m := NewMachine(8)
	if err := m.Run("+++>--<[->+<]"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if m.Cell(0) != 0 {
		t.Errorf("cell 0 = %d, want 0", m.Cell(0))
	}
	// 254 + 3 wraps to 1.
	if m.Cell(1) != 1 {
		t.Errorf("cell 1 = %d, want 1", m.Cell(1))
	}
	if m.Steps == 0 {
		t.Error("Steps = 0 after Run")
	}
}

func TestMachineIO(t *testing.T) {
	var out bytes.Buffer
	m := NewMachine(4)
	m.SetInput(strings.NewReader("a"))
	m.SetOutput(&out)
	if err := m.Run(",+.,."); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Second read hits end of input and yields 0.
	if out.String() != "b\x00" {
		t.Errorf("output = %q, want %q", out.String(), "b\x00")
	}
}

func TestMachineGrowsTape(t *testing.T) {
	m := NewMachine(2)
	if err := m.Run(">>>>>+"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if m.Pointer != 5 || m.Cell(5) != 1 {
		t.Errorf("pointer %d cell %d, want 5 and 1", m.Pointer, m.Cell(5))
	}
}

func TestMachineErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want error
	}{
		{"underflow", "<", ErrPointerUnderflow},
		{"unbalanced", "[", ErrUnbalanced},
		{"crash", "+[]", ErrCrashed},
		{"crash with blanks", "+[ \n ]", ErrCrashed},
		{"crash with comment", "+[ trap ]", ErrCrashed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(4)
			if err := m.Run(tt.code); !errors.Is(err, tt.want) {
				t.Errorf("Run(%q) = %v, want %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestMachineTrapAgreesWithSegments(t *testing.T) {
	m := NewMachine(4)
	m.StepLimit = 1000
	if err := m.Run("+[ ]"); !errors.Is(err, ErrCrashed) {
		t.Errorf("Run(%q) = %v, want ErrCrashed", "+[ ]", err)
	}
	if m.Steps > 2 {
		t.Errorf("Steps = %d before the trap, want at most 2", m.Steps)
	}
}

func TestBracketTableTraps(t *testing.T) {
	code := "[ ][[]+][-] []"
	_, traps, err := bracketTable(code)
	if err != nil {
		t.Fatalf("bracketTable() error = %v", err)
	}
	for i, want := range map[int]bool{0: true, 3: false, 4: true, 8: false, 12: true} {
		if traps[i] != want {
			t.Errorf("traps[%d] = %v, want %v", i, traps[i], want)
		}
	}
}

func TestMachineStepLimit(t *testing.T) {
	m := NewMachine(4)
	m.StepLimit = 100
	if err := m.Run("+[>+<]"); !errors.Is(err, ErrStepLimit) {
		t.Errorf("Run() = %v, want ErrStepLimit", err)
	}
}

func TestMachineEmptyLoopOnZero(t *testing.T) {
	m := NewMachine(4)
	if err := m.Run("[]+"); err != nil {
		t.Errorf("Run() = %v, want nil for skipped empty loop", err)
	}
}

func TestMachineProfile(t *testing.T) {
	m := NewMachine(4)
	m.EnableProfile()
	if err := m.Run("+++[-]"); err != nil {
		t.Fatal(err)
	}
	want := []int{1, 1, 1, 1, 3, 3}
	for i, w := range want {
		if m.Profile[i] != w {
			t.Errorf("Profile[%d] = %d, want %d", i, m.Profile[i], w)
		}
	}
}
