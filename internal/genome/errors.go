package genome

import "fmt"

// SchemaError reports a row lacking a required attribute column.
type SchemaError struct {
	Column string
	Row    int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("row %d: missing required column %q", e.Row, e.Column)
}

// MixedStrandError reports a transcript whose exons lie on both strands.
type MixedStrandError struct {
	Group string
}

func (e *MixedStrandError) Error() string {
	return fmt.Sprintf("transcript %q has exons on both strands", e.Group)
}

// CoordinateError reports a row violating 0 <= start < end or lacking a strand.
type CoordinateError struct {
	Row        int
	Start, End int64
	Strand     bool
}

func (e *CoordinateError) Error() string {
	if e.Strand {
		return fmt.Sprintf("row %d: strand must be + or -", e.Row)
	}
	return fmt.Sprintf("row %d: invalid range [%d, %d)", e.Row, e.Start, e.End)
}
