package reconcile

import (
	"fmt"
	"strings"

	"github.com/maxtico/assess-annotation/internal/genome"
)

// SequenceLookup returns spliced genomic sequence read 5' to 3' on strand.
type SequenceLookup interface {
	Spliced(chrom string, strand genome.Strand, ranges []genome.Range) (string, error)
}

// DefaultStopCodons is the canonical DNA stop codon set.
var DefaultStopCodons = []string{"TGA", "TAA", "TAG"}

const codonLen = 3

// TrimStats counts what the trimmer did.
type TrimStats struct {
	Transcripts int // transcripts examined
	Trimmed     int // terminal stop codon removed
	Kept        int // terminal triplet not a stop (or transcript too short)
}

// Trimmer removes ordinary terminal stop codons from reference transcripts,
// so that their coding span ends at the last sense codon.
type Trimmer struct {
	seq   SequenceLookup
	stops map[string]struct{}
}

// NewTrimmer creates a trimmer. An empty stops slice selects DefaultStopCodons.
// Every codon must be three nucleotides.
func NewTrimmer(seq SequenceLookup, stops []string) (*Trimmer, error) {
	if len(stops) == 0 {
		stops = DefaultStopCodons
	}
	set := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		codon := strings.ToUpper(s)
		if !isCodon(codon) {
			return nil, fmt.Errorf("invalid stop codon %q", s)
		}
		set[codon] = struct{}{}
	}
	return &Trimmer{seq: seq, stops: set}, nil
}

// ParseStopCodons normalizes stop codons given as a list whose elements may
// themselves be comma-separated, as they arrive from flags, config files and
// environment variables.
func ParseStopCodons(values []string) ([]string, error) {
	var out []string
	for _, v := range values {
		for _, f := range strings.Split(v, ",") {
			f = strings.ToUpper(strings.TrimSpace(f))
			if f == "" {
				continue
			}
			if !isCodon(f) {
				return nil, fmt.Errorf("invalid stop codon %q", f)
			}
			out = append(out, f)
		}
	}
	return out, nil
}

func isCodon(s string) bool {
	if len(s) != codonLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T':
		default:
			return false
		}
	}
	return true
}

// IsStop reports whether codon is in the trimmer's stop set.
func (tr *Trimmer) IsStop(codon string) bool {
	_, ok := tr.stops[strings.ToUpper(codon)]
	return ok
}

// Trim processes every group of t. Frames of the returned rows are not
// recomputed.
func (tr *Trimmer) Trim(t *genome.Table) (*genome.Table, TrimStats, error) {
	var stats TrimStats
	var out []genome.Interval

	for key, rows := range t.Groups() {
		tx, err := genome.NewTranscript(key, rows)
		if err != nil {
			return nil, stats, err
		}
		stats.Transcripts++

		exons, trimmed, err := tr.TrimTranscript(tx)
		if err != nil {
			return nil, stats, err
		}
		if trimmed {
			stats.Trimmed++
		} else {
			stats.Kept++
		}
		out = append(out, exons...)
	}

	return t.WithRows(out), stats, nil
}

// TrimTranscript returns the exons of tx (5' to 3') with a terminal stop
// codon removed, and whether one was found.
func (tr *Trimmer) TrimTranscript(tx *genome.Transcript) ([]genome.Interval, bool, error) {
	if tx.CodingLength() < codonLen {
		return tx.Exons, false, nil
	}

	codon, err := tr.seq.Spliced(tx.Chrom, tx.Strand, tx.ThreePrimeRanges(codonLen))
	if err != nil {
		return nil, false, fmt.Errorf("terminal codon of %s: %w", tx.Key, err)
	}
	if !tr.IsStop(codon) {
		return tx.Exons, false, nil
	}
	return RemoveThreePrime(tx, codonLen), true, nil
}

// RemoveThreePrime shortens tx by n coding bases at its 3' end, walking
// back across exon boundaries. Exons emptied by the removal are dropped.
func RemoveThreePrime(tx *genome.Transcript, n int64) []genome.Interval {
	exons := append([]genome.Interval(nil), tx.Exons...)
	for len(exons) > 0 && n > 0 {
		last := &exons[len(exons)-1]
		take := min(last.Len(), n)
		if !tx.IsForwardStrand() {
			last.Start += take
		} else {
			last.End -= take
		}
		n -= take
		if last.Len() == 0 {
			exons = exons[:len(exons)-1]
		}
	}
	return exons
}

// ExtendTerminal lengthens the 3' exon of tx by n bases.
func ExtendTerminal(tx *genome.Transcript, n int64) []genome.Interval {
	exons := append([]genome.Interval(nil), tx.Exons...)
	if len(exons) == 0 {
		return exons
	}
	last := &exons[len(exons)-1]
	if !tx.IsForwardStrand() {
		last.Start -= n
	} else {
		last.End += n
	}
	return exons
}
