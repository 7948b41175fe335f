package reconcile

import "github.com/maxtico/assess-annotation/internal/genome"

// FilterEvidence drops frame-discordant CDS records that carry no
// selenocysteine evidence. Sentinel records, Selenocysteine records and
// concordant CDS records are always kept; a discordant CDS record is kept
// only when the candidate CDS overlaps one of the candidate's own markers.
// markers maps candidate group keys to their Selenocysteine intervals.
func FilterEvidence(records []OverlapRecord, markers map[string][]genome.Interval) []OverlapRecord {
	var out []OverlapRecord
	for _, r := range records {
		switch {
		case r.IsSentinel(), r.Candidate.Kind == genome.KindSelenocysteine, r.FrameConcordant():
			out = append(out, r)
		case hostsMarker(r.Candidate, markers[r.Candidate.Group]):
			out = append(out, r)
		}
	}
	return out
}

func hostsMarker(cds genome.Interval, markers []genome.Interval) bool {
	for _, m := range markers {
		if m.Chrom == cds.Chrom && m.Range().Overlaps(cds.Range()) {
			return true
		}
	}
	return false
}
