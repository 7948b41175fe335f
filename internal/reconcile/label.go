// Package reconcile compares a candidate selenoprotein annotation against a
// reference annotation and labels every candidate.
package reconcile

import "fmt"

// Label is the verdict for a candidate against one reference transcript.
type Label uint8

const (
	WellAnnotated Label = iota
	Missing
	OutOfFrame
	StopCodon
	Skipped
	Upstream
	Downstream
	Other
	Missannotation // coarse label for the five partial categories
)

var labelNames = [...]string{
	WellAnnotated:  "Well annotated",
	Missing:        "Missing",
	OutOfFrame:     "Out of frame",
	StopCodon:      "Stop codon",
	Skipped:        "Skipped",
	Upstream:       "Upstream",
	Downstream:     "Downstream",
	Other:          "Other",
	Missannotation: "Missannotation",
}

func (l Label) String() string {
	if int(l) < len(labelNames) {
		return labelNames[l]
	}
	return fmt.Sprintf("Label(%d)", uint8(l))
}

// ParseLabel converts a rendered label back to a Label.
func ParseLabel(s string) (Label, error) {
	for i, name := range labelNames {
		if name == s {
			return Label(i), nil
		}
	}
	return 0, fmt.Errorf("unknown label %q", s)
}

// Coarse maps the detailed label to the reporting label.
func (l Label) Coarse() Label {
	switch l {
	case OutOfFrame, StopCodon, Skipped, Upstream, Downstream:
		return Missannotation
	}
	return l
}

// Rank orders coarse labels for aggregation; lower wins.
func (l Label) Rank() int {
	switch l.Coarse() {
	case WellAnnotated:
		return 0
	case Missannotation:
		return 1
	case Missing:
		return 2
	}
	return 3
}
