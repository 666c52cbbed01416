// Package manifest handles tapec.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/tapec/pkg/diag"
	"github.com/chazu/tapec/pkg/memory"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "tapec.toml"

// Manifest represents a tapec.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Layout  LayoutConfig `toml:"layout"`
	Output  Output       `toml:"output"`
	Run     RunConfig    `toml:"run"`

	// Dir is the directory containing the tapec.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// LayoutConfig places variables, stack and heap on the tape.
type LayoutConfig struct {
	Variables int `toml:"variables"`
	StackSize int `toml:"stack-size"`
	HeapSize  int `toml:"heap-size"`
}

// Output configures what the compiler writes.
type Output struct {
	Compact bool `toml:"compact"`
	Debug   bool `toml:"debug"`
	Wrap    int  `toml:"wrap"` // line width for raw code on a terminal; 0 disables
}

// RunConfig configures the tape machine used by tapec -run.
type RunConfig struct {
	TapeSize  int `toml:"tape-size"`
	StepLimit int `toml:"step-limit"` // 0 means unlimited
}

// Default returns the configuration used when no tapec.toml exists.
func Default() *Manifest {
	return &Manifest{
		Project: Project{Name: "main"},
		Layout:  LayoutConfig{Variables: 4, StackSize: 64, HeapSize: 16},
		Output:  Output{Compact: true, Debug: true, Wrap: 80},
		Run:     RunConfig{TapeSize: 30000, StepLimit: 50_000_000},
	}
}

// Load parses a tapec.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	m, err := LoadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// LoadFile parses the manifest at path. Keys missing from the file keep
// their Default values.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a tapec.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// MemoryLayout returns the tape layout described by the [layout] table.
func (m *Manifest) MemoryLayout() memory.Layout {
	return memory.Layout{
		Variables: m.Layout.Variables,
		StackSize: m.Layout.StackSize,
		HeapSize:  m.Layout.HeapSize,
	}
}

// Validate reports every configuration problem in the manifest.
func (m *Manifest) Validate() []error {
	errs := m.MemoryLayout().Validate()
	if m.Run.TapeSize <= 0 {
		errs = append(errs, diag.Errorf("tape-size", "run.tape-size must be positive, got %d", m.Run.TapeSize))
	}
	if m.Run.StepLimit < 0 {
		errs = append(errs, diag.Errorf("step-limit", "run.step-limit must not be negative, got %d", m.Run.StepLimit))
	}
	if m.Output.Wrap < 0 {
		errs = append(errs, diag.Errorf("wrap", "output.wrap must not be negative, got %d", m.Output.Wrap))
	}
	return errs
}
