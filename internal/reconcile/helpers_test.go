package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maxtico/assess-annotation/internal/genome"
)

// fakeGenome serves sequence from in-memory chromosomes.
type fakeGenome map[string]string

func (g fakeGenome) Spliced(chrom string, strand genome.Strand, ranges []genome.Range) (string, error) {
	chr, ok := g[chrom]
	if !ok {
		return "", fmt.Errorf("sequence %q not found", chrom)
	}
	sorted := append([]genome.Range(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	for _, r := range sorted {
		b.WriteString(chr[r.Start:r.End])
	}
	if strand == genome.Minus {
		return revComp(b.String()), nil
	}
	return b.String(), nil
}

func revComp(s string) string {
	comp := map[byte]byte{'A': 'T', 'T': 'A', 'C': 'G', 'G': 'C'}
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[len(s)-1-i] = comp[s[i]]
	}
	return string(out)
}

// chromosome returns n bases of filler with the given sequences placed at
// their offsets.
func chromosome(n int, at map[int]string) string {
	b := []byte(strings.Repeat("C", n))
	for pos, s := range at {
		copy(b[pos:], s)
	}
	return string(b)
}

func cdsRow(group string, strand genome.Strand, start, end int64, src genome.Source) genome.Interval {
	iv := genome.NewInterval("chr1", strand, start, end, genome.KindCDS, src)
	iv.Group = group
	return iv
}

func secRow(group string, strand genome.Strand, start int64) genome.Interval {
	iv := genome.NewInterval("chr1", strand, start, start+3, genome.KindSelenocysteine, genome.Candidate)
	iv.Group = group
	return iv
}

// framed sets frame and anchor directly.
func framed(iv genome.Interval, frame int) genome.Interval {
	iv.Frame = frame
	iv.Anchor = genome.GenomicAnchor(iv, frame)
	return iv
}

func ranges(rows []genome.Interval) []genome.Range {
	out := make([]genome.Range, len(rows))
	for i, r := range rows {
		out[i] = r.Range()
	}
	return out
}
