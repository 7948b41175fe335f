package reconcile

import "github.com/maxtico/assess-annotation/internal/genome"

// Partition holds the overlap records of one candidate against one
// reference transcript (or against nothing, for the sentinel).
type Partition struct {
	CandidateID string
	ReferenceID string
	Records     []OverlapRecord
}

// Partitions groups records by (candidate, reference) in order of first
// appearance.
func Partitions(records []OverlapRecord) []Partition {
	type key struct{ cand, ref string }
	index := make(map[key]int)
	var out []Partition
	for _, r := range records {
		k := key{r.Candidate.Group, r.ReferenceID()}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Partition{CandidateID: k.cand, ReferenceID: k.ref})
		}
		out[i].Records = append(out[i].Records, r)
	}
	return out
}

// Verdict is the label of a partition for one feature kind present in it.
type Verdict struct {
	CandidateID string
	ReferenceID string
	Kind        genome.FeatureKind
	Label       Label
}

// rule is one step of the classification precedence.
type rule struct {
	label Label
	match func(p Partition) bool
}

// precedence is evaluated top to bottom; the first match wins. Partitions
// that match none fall through to the geometric rules.
var precedence = []rule{
	{Missing, allSentinel},
	{OutOfFrame, anyCDSFrameMismatch},
	{WellAnnotated, anyMarkerHit},
}

func allSentinel(p Partition) bool {
	for _, r := range p.Records {
		if !r.IsSentinel() {
			return false
		}
	}
	return true
}

func anyCDSFrameMismatch(p Partition) bool {
	for _, r := range p.Records {
		if r.Candidate.Kind == genome.KindCDS && !r.IsSentinel() && !r.FrameConcordant() {
			return true
		}
	}
	return false
}

func anyMarkerHit(p Partition) bool {
	for _, r := range p.Records {
		if r.Candidate.Kind == genome.KindSelenocysteine && !r.IsSentinel() {
			return true
		}
	}
	return false
}

// pairTest compares a candidate Selenocysteine range with a reference range.
type pairTest func(sec, ref genome.Range) bool

// geometricRule matches when every one of its tests holds for at least one
// (marker, reference) pair. A rule with no tests always matches.
type geometricRule struct {
	label Label
	tests []pairTest
}

var (
	// forward strand: upstream of the reference means a larger coordinate
	// than its end, downstream means before its start.
	plusStop       pairTest = func(sec, ref genome.Range) bool { return sec.Start == ref.End }
	plusUpstream   pairTest = func(sec, ref genome.Range) bool { return sec.Start > ref.End }
	plusDownstream pairTest = func(sec, ref genome.Range) bool { return sec.End <= ref.Start }

	minusStop       pairTest = func(sec, ref genome.Range) bool { return sec.End == ref.Start }
	minusUpstream   pairTest = func(sec, ref genome.Range) bool { return sec.End < ref.Start }
	minusDownstream pairTest = func(sec, ref genome.Range) bool { return sec.Start >= ref.End }
)

var geometry = map[genome.Strand][]geometricRule{
	genome.Plus: {
		{StopCodon, []pairTest{plusStop}},
		{Skipped, []pairTest{plusUpstream, plusDownstream}},
		{Upstream, []pairTest{plusUpstream}},
		{Downstream, []pairTest{plusDownstream}},
		{Other, nil},
	},
	genome.Minus: {
		{StopCodon, []pairTest{minusStop}},
		{Skipped, []pairTest{minusDownstream, minusUpstream}},
		{Upstream, []pairTest{minusUpstream}},
		{Downstream, []pairTest{minusDownstream}},
		{Other, nil},
	},
}

func (g geometricRule) matches(markers, refs []genome.Range) bool {
	for _, test := range g.tests {
		hit := false
		for _, s := range markers {
			for _, r := range refs {
				if test(s, r) {
					hit = true
					break
				}
			}
			if hit {
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Classify labels one partition. markers are all Selenocysteine intervals
// of the partition's candidate, whether or not they overlap the reference.
func Classify(p Partition, markers []genome.Interval) (Label, error) {
	if err := checkStrand(p.CandidateID, partitionCandidates(p)); err != nil {
		return 0, err
	}

	for _, r := range precedence {
		if r.match(p) {
			return r.label, nil
		}
	}

	if err := checkStrand(p.CandidateID, markers); err != nil {
		return 0, err
	}
	strand := genome.Plus
	if len(markers) > 0 {
		strand = markers[0].Strand
	}

	secs := make([]genome.Range, len(markers))
	for i, m := range markers {
		secs[i] = m.Range()
	}
	var refs []genome.Range
	for _, r := range p.Records {
		if !r.IsSentinel() {
			refs = append(refs, r.Reference.Range())
		}
	}

	for _, g := range geometry[strand] {
		if g.matches(secs, refs) {
			return g.label, nil
		}
	}
	return 0, &ClassificationInvariantError{CandidateID: p.CandidateID, ReferenceID: p.ReferenceID}
}

// ClassifyPartition labels p and returns one verdict per distinct feature
// kind among its candidate intervals.
func ClassifyPartition(p Partition, markers []genome.Interval) ([]Verdict, error) {
	label, err := Classify(p, markers)
	if err != nil {
		return nil, err
	}

	var out []Verdict
	seen := make(map[genome.FeatureKind]bool)
	for _, r := range p.Records {
		if seen[r.Candidate.Kind] {
			continue
		}
		seen[r.Candidate.Kind] = true
		out = append(out, Verdict{
			CandidateID: p.CandidateID,
			ReferenceID: p.ReferenceID,
			Kind:        r.Candidate.Kind,
			Label:       label,
		})
	}
	return out, nil
}

func partitionCandidates(p Partition) []genome.Interval {
	out := make([]genome.Interval, len(p.Records))
	for i, r := range p.Records {
		out[i] = r.Candidate
	}
	return out
}

func checkStrand(group string, rows []genome.Interval) error {
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows[1:] {
		if r.Strand != rows[0].Strand {
			return &genome.MixedStrandError{Group: group}
		}
	}
	return nil
}
