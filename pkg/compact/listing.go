package compact

import (
	"fmt"
	"strings"

	"github.com/chazu/tapec/pkg/tape"
)

// Listing returns a human-readable listing of the program, one segment per
// line. When the program carries a debug map, block openings are shown as
// comments and segments are annotated with their source position.
func (p *Program) Listing() string {
	return p.ListingWithName("")
}

// ListingWithName returns a listing with a name header.
func (p *Program) ListingWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	st := p.Stats()
	sb.WriteString(fmt.Sprintf("; %d segments from %d instructions\n", st.Segments, st.RawLen))
	sb.WriteString(fmt.Sprintf("; runs=%d clears=%d moves=%d\n\n", st.Runs, st.Clears, st.Moves))

	depth := 0
	for i, s := range p.Segments {
		if p.Debug != nil {
			for _, b := range p.Debug.Blocks {
				if b.Start == i && b.End > b.Start {
					sb.WriteString(fmt.Sprintf(";%s %s\n", strings.Repeat("  ", b.Depth+1), b.Name))
				}
			}
		}

		if s.Kind == KindOp && s.Op == tape.OpClose && depth > 0 {
			depth--
		}
		text := strings.Repeat("  ", depth) + describe(s)
		if s.Kind == KindOp && s.Op == tape.OpOpen {
			depth++
		}

		if p.Debug != nil {
			if line, col, ok := p.Debug.Lookup(i); ok {
				sb.WriteString(fmt.Sprintf("%04X  %-30s ; line %d:%d\n", i, text, line, col))
				continue
			}
		}
		sb.WriteString(fmt.Sprintf("%04X  %s\n", i, text))
	}

	return sb.String()
}

// describe formats one segment for the listing.
func describe(s Segment) string {
	switch s.Kind {
	case KindClear:
		return "CLEAR"
	case KindMove:
		parts := make([]string, len(s.Moves))
		for i, off := range s.Moves {
			parts[i] = fmt.Sprintf("%+d", off)
		}
		return "MOVE " + strings.Join(parts, " ")
	default:
		if s.Count > 1 {
			return fmt.Sprintf("%s %d", s.Op, s.Count)
		}
		return s.Op.String()
	}
}
