// Package artifact stores a compiled tape program together with its compact
// form, debug map and diagnostics in a single CBOR file.
package artifact

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/chazu/tapec/pkg/compact"
	"github.com/chazu/tapec/pkg/diag"
	"github.com/chazu/tapec/pkg/memory"
	"github.com/chazu/tapec/pkg/tape"
)

// Version is the artifact format version written by this package.
const Version = 1

var (
	// ErrVersion is returned when decoding an artifact of another format version.
	ErrVersion = errors.New("unsupported artifact version")
	// ErrHash is returned when the stored code does not match its hash.
	ErrHash = errors.New("artifact code hash mismatch")
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("artifact: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Artifact is the on-disk form of one compilation.
type Artifact struct {
	ID          uuid.UUID    `cbor:"1,keyasint"`
	Version     uint8        `cbor:"2,keyasint"`
	Name        string       `cbor:"3,keyasint"`
	Hash        [32]byte     `cbor:"4,keyasint"` // SHA-256 of Code
	Code        string       `cbor:"5,keyasint"`
	Segments    []Segment    `cbor:"6,keyasint,omitempty"`
	SourceMap   []Location   `cbor:"7,keyasint,omitempty"`
	Blocks      []Block      `cbor:"8,keyasint,omitempty"`
	Layout      Layout       `cbor:"9,keyasint"`
	Diagnostics []Diagnostic `cbor:"10,keyasint,omitempty"`
}

// Segment is the wire form of a compact.Segment.
type Segment struct {
	Kind  uint8 `cbor:"1,keyasint"`
	Op    byte  `cbor:"2,keyasint,omitempty"`
	Count int   `cbor:"3,keyasint,omitempty"`
	Moves []int `cbor:"4,keyasint,omitempty"`
}

// Location is the wire form of a tape.SourceLocation.
type Location struct {
	Offset int `cbor:"1,keyasint"`
	Line   int `cbor:"2,keyasint"`
	Column int `cbor:"3,keyasint"`
}

// Block is the wire form of a tape.BlockSpan.
type Block struct {
	Name  string `cbor:"1,keyasint"`
	Start int    `cbor:"2,keyasint"`
	End   int    `cbor:"3,keyasint"`
	Depth int    `cbor:"4,keyasint,omitempty"`
}

// Layout is the wire form of a memory.Layout.
type Layout struct {
	Variables int `cbor:"1,keyasint"`
	StackSize int `cbor:"2,keyasint"`
	HeapSize  int `cbor:"3,keyasint"`
}

// Diagnostic is the wire form of a diag.Diagnostic.
type Diagnostic struct {
	Severity uint8  `cbor:"1,keyasint"`
	Code     string `cbor:"2,keyasint"`
	Message  string `cbor:"3,keyasint"`
	Offset   int    `cbor:"4,keyasint"`
	Line     int    `cbor:"5,keyasint,omitempty"`
	Column   int    `cbor:"6,keyasint,omitempty"`
}

// New builds an artifact with a fresh ID. prog may be nil when no compact
// form was produced; its debug map is stored when present, otherwise debug
// is stored against raw offsets.
func New(name, code string, prog *compact.Program, debug *tape.DebugInfo, layout memory.Layout, diags []*diag.Diagnostic) *Artifact {
	a := &Artifact{
		ID:      uuid.New(),
		Version: Version,
		Name:    name,
		Hash:    sha256.Sum256([]byte(code)),
		Code:    code,
		Layout: Layout{
			Variables: layout.Variables,
			StackSize: layout.StackSize,
			HeapSize:  layout.HeapSize,
		},
	}

	if prog != nil {
		for _, s := range prog.Segments {
			a.Segments = append(a.Segments, Segment{
				Kind:  uint8(s.Kind),
				Op:    byte(s.Op),
				Count: s.Count,
				Moves: s.Moves,
			})
		}
		if prog.Debug != nil {
			debug = prog.Debug
		}
	}
	if debug != nil {
		for _, l := range debug.SourceMap {
			a.SourceMap = append(a.SourceMap, Location{Offset: l.CodeOffset, Line: l.Line, Column: l.Column})
		}
		for _, b := range debug.Blocks {
			a.Blocks = append(a.Blocks, Block{Name: b.Name, Start: b.Start, End: b.End, Depth: b.Depth})
		}
	}
	for _, d := range diags {
		a.Diagnostics = append(a.Diagnostics, Diagnostic{
			Severity: uint8(d.Severity),
			Code:     d.Code,
			Message:  d.Message,
			Offset:   d.Offset,
			Line:     d.Line,
			Column:   d.Column,
		})
	}
	return a
}

// Program reconstructs the compact form, or returns nil if none was stored.
func (a *Artifact) Program() *compact.Program {
	if len(a.Segments) == 0 {
		return nil
	}
	p := &compact.Program{RawLen: len(a.Code), Debug: a.Debug()}
	for _, s := range a.Segments {
		p.Segments = append(p.Segments, compact.Segment{
			Kind:  compact.Kind(s.Kind),
			Op:    tape.Opcode(s.Op),
			Count: s.Count,
			Moves: s.Moves,
		})
	}
	return p
}

// Debug reconstructs the stored debug map.
func (a *Artifact) Debug() *tape.DebugInfo {
	d := tape.NewDebugInfo()
	for _, l := range a.SourceMap {
		d.SourceMap = append(d.SourceMap, tape.SourceLocation{CodeOffset: l.Offset, Line: l.Line, Column: l.Column})
	}
	for _, b := range a.Blocks {
		d.Blocks = append(d.Blocks, tape.BlockSpan{Name: b.Name, Start: b.Start, End: b.End, Depth: b.Depth})
	}
	return d
}

// MemoryLayout returns the stored layout.
func (a *Artifact) MemoryLayout() memory.Layout {
	return memory.Layout{
		Variables: a.Layout.Variables,
		StackSize: a.Layout.StackSize,
		HeapSize:  a.Layout.HeapSize,
	}
}

// Marshal serializes an artifact to canonical CBOR.
func Marshal(a *Artifact) ([]byte, error) {
	return cborEncMode.Marshal(a)
}

// Unmarshal deserializes an artifact and verifies its version and hash.
func Unmarshal(data []byte) (*Artifact, error) {
	var a Artifact
	if err := cbor.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("artifact: unmarshal: %w", err)
	}
	if a.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, a.Version)
	}
	if sha256.Sum256([]byte(a.Code)) != a.Hash {
		return nil, ErrHash
	}
	return &a, nil
}

// WriteFile marshals a to path.
func WriteFile(path string, a *Artifact) error {
	data, err := Marshal(a)
	if err != nil {
		return fmt.Errorf("artifact: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	return nil
}

// ReadFile reads and verifies an artifact from path.
func ReadFile(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return Unmarshal(data)
}
