package reconcile

import (
	"sort"

	"github.com/maxtico/assess-annotation/internal/genome"
)

// Row is one line of a result table.
type Row struct {
	CandidateID string
	ReferenceID string
	Label       Label
}

// Hierarchy filters the verdicts of a single candidate down to its detailed
// result rows:
//   - with both Missing and other verdicts, Missing verdicts are dropped;
//   - otherwise verdicts from Selenocysteine records are dropped, leaving
//     the CDS evidence.
//
// A filter that would leave nothing is skipped. Rows are deduplicated on
// (candidate, reference, label), keeping first appearance.
func Hierarchy(verdicts []Verdict) []Row {
	missing := 0
	for _, v := range verdicts {
		if v.Label == Missing {
			missing++
		}
	}

	var keep func(Verdict) bool
	if missing > 0 && missing < len(verdicts) {
		keep = func(v Verdict) bool { return v.Label != Missing }
	} else {
		keep = func(v Verdict) bool { return v.Kind != genome.KindSelenocysteine }
	}

	kept := filterVerdicts(verdicts, keep)
	if len(kept) == 0 {
		kept = verdicts
	}

	type key struct {
		cand, ref string
		label     Label
	}
	seen := make(map[key]bool)
	var rows []Row
	for _, v := range kept {
		k := key{v.CandidateID, v.ReferenceID, v.Label}
		if seen[k] {
			continue
		}
		seen[k] = true
		rows = append(rows, Row{CandidateID: v.CandidateID, ReferenceID: v.ReferenceID, Label: v.Label})
	}
	return rows
}

func filterVerdicts(verdicts []Verdict, keep func(Verdict) bool) []Verdict {
	var out []Verdict
	for _, v := range verdicts {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Aggregate picks the single reporting row for a candidate: the row with the
// lowest-ranked coarse label, earliest first among ties. The returned row
// carries the coarse label. ok is false when rows is empty.
func Aggregate(rows []Row) (Row, bool) {
	if len(rows) == 0 {
		return Row{}, false
	}

	coarse := make([]Row, len(rows))
	for i, r := range rows {
		r.Label = r.Label.Coarse()
		coarse[i] = r
	}
	sort.SliceStable(coarse, func(i, j int) bool {
		return coarse[i].Label.Rank() < coarse[j].Label.Rank()
	})
	return coarse[0], true
}
