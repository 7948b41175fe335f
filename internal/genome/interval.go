// Package genome provides the interval table shared by the reference and
// candidate annotation sets, and the reading-frame bookkeeping built on it.
package genome

import "strings"

// Strand of a genomic interval.
type Strand int8

const (
	NoStrand Strand = 0
	Plus     Strand = 1
	Minus    Strand = -1
)

// ParseStrand converts a GFF strand column ("+" or "-") to a Strand.
func ParseStrand(s string) (Strand, bool) {
	switch s {
	case "+":
		return Plus, true
	case "-":
		return Minus, true
	}
	return NoStrand, false
}

func (s Strand) String() string {
	switch s {
	case Plus:
		return "+"
	case Minus:
		return "-"
	}
	return "."
}

// FeatureKind is the subset of GFF feature types the engine distinguishes.
type FeatureKind uint8

const (
	KindOther FeatureKind = iota
	KindCDS
	KindSelenocysteine
)

// ParseFeatureKind classifies a GFF feature column by prefix, so that
// e.g. "CDS_predicted" still counts as coding sequence.
func ParseFeatureKind(feature string) FeatureKind {
	switch {
	case strings.HasPrefix(feature, "CDS"):
		return KindCDS
	case strings.HasPrefix(feature, "Selenocysteine"):
		return KindSelenocysteine
	}
	return KindOther
}

func (k FeatureKind) String() string {
	switch k {
	case KindCDS:
		return "CDS"
	case KindSelenocysteine:
		return "Selenocysteine"
	}
	return "other"
}

// Source tells which annotation set an interval came from.
type Source uint8

const (
	Reference Source = iota
	Candidate
)

func (s Source) String() string {
	if s == Candidate {
		return "candidate"
	}
	return "reference"
}

// Range is a 0-based half-open coordinate range [Start, End).
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bases in the range.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// Overlaps reports whether r and o share at least one base.
func (r Range) Overlaps(o Range) bool {
	return max(r.Start, o.Start) < min(r.End, o.End)
}

// Contains reports whether o lies entirely within r.
func (r Range) Contains(o Range) bool {
	return r.Start <= o.Start && o.End <= r.End
}

// Interval is a single annotated feature.
type Interval struct {
	Chrom  string
	Strand Strand
	Start  int64 // 0-based, inclusive
	End    int64 // 0-based, exclusive
	Kind   FeatureKind
	Source Source
	Group  string            // transcript/gene identifier, set by Table.WithGroupKey
	Attrs  map[string]string // attribute columns; treat as read-only
	Frame  int               // coding frame (0, 1, 2), -1 until computed
	Anchor int               // genomic-frame anchor (0, 1, 2), -1 until computed
}

// NewInterval returns an interval with no frame information.
func NewInterval(chrom string, strand Strand, start, end int64, kind FeatureKind, src Source) Interval {
	return Interval{
		Chrom:  chrom,
		Strand: strand,
		Start:  start,
		End:    end,
		Kind:   kind,
		Source: src,
		Frame:  -1,
		Anchor: -1,
	}
}

// Range returns the interval coordinates.
func (iv Interval) Range() Range {
	return Range{Start: iv.Start, End: iv.End}
}

// Len returns the interval length in bases.
func (iv Interval) Len() int64 {
	return iv.End - iv.Start
}

// Attr returns an attribute column value.
func (iv Interval) Attr(name string) (string, bool) {
	v, ok := iv.Attrs[name]
	return v, ok
}

// HasFrame reports whether the frame calculator has run on this interval.
func (iv Interval) HasFrame() bool {
	return iv.Frame >= 0
}
