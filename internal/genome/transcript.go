package genome

import "sort"

// Transcript is one group of coding intervals ordered 5' to 3'.
type Transcript struct {
	Key    string     // group key (transcript or gene identifier)
	Chrom  string     // chromosome of the first exon
	Strand Strand     // shared strand of every exon
	Exons  []Interval // 5' to 3': ascending Start on +, descending Start on -
}

// NewTranscript groups rows into a transcript. The rows are copied and
// sorted into transcription order; rows on both strands are rejected.
func NewTranscript(key string, rows []Interval) (*Transcript, error) {
	t := &Transcript{Key: key}
	if len(rows) == 0 {
		return t, nil
	}
	t.Chrom = rows[0].Chrom
	t.Strand = rows[0].Strand
	for _, r := range rows[1:] {
		if r.Strand != t.Strand {
			return nil, &MixedStrandError{Group: key}
		}
	}
	t.Exons = append([]Interval(nil), rows...)
	sortFivePrime(t.Exons, t.Strand)
	return t, nil
}

func sortFivePrime(rows []Interval, strand Strand) {
	sort.SliceStable(rows, func(i, j int) bool {
		return fivePrimeLess(rows[i], rows[j], strand)
	})
}

// fivePrimeLess orders a before b when a lies further 5' on strand.
func fivePrimeLess(a, b Interval, strand Strand) bool {
	if strand == Minus {
		if a.Start != b.Start {
			return a.Start > b.Start
		}
		return a.End > b.End
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}

// IsForwardStrand returns true if the transcript is on the forward strand.
func (t *Transcript) IsForwardStrand() bool {
	return t.Strand == Plus
}

// Anchor returns the genomic-frame anchor of the 5'-most exon, or -1 for
// an empty transcript.
func (t *Transcript) Anchor() int {
	if len(t.Exons) == 0 {
		return -1
	}
	return GenomicAnchor(t.Exons[0], 0)
}

// CodingLength returns the summed length of all exons.
func (t *Transcript) CodingLength() int64 {
	var n int64
	for _, e := range t.Exons {
		n += e.Len()
	}
	return n
}

// Ranges returns the exon coordinates in 5' to 3' order.
func (t *Transcript) Ranges() []Range {
	out := make([]Range, len(t.Exons))
	for i, e := range t.Exons {
		out[i] = e.Range()
	}
	return out
}

// ThreePrimeRanges returns the genomic ranges covering the last n coding
// bases, walking back across exon boundaries as needed. Fewer than n bases
// are covered when the transcript is shorter than n.
func (t *Transcript) ThreePrimeRanges(n int64) []Range {
	var out []Range
	for i := len(t.Exons) - 1; i >= 0 && n > 0; i-- {
		e := t.Exons[i]
		take := min(e.Len(), n)
		if !t.IsForwardStrand() {
			out = append(out, Range{Start: e.Start, End: e.Start + take})
		} else {
			out = append(out, Range{Start: e.End - take, End: e.End})
		}
		n -= take
	}
	return out
}
