package loader

import (
	"fmt"
	"io"
	"sort"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/maxtico/assess-annotation/internal/genome"
)

// Genome holds chromosome sequences keyed by FASTA record name.
type Genome struct {
	seqs map[string]alphabet.Letters
}

// LoadGenome reads a (optionally gzipped) genome FASTA file.
func LoadGenome(path string) (*Genome, error) {
	r, err := openFile(path)
	if err != nil {
		return nil, fmt.Errorf("open genome FASTA: %w", err)
	}
	defer r.Close()

	g, err := ReadGenome(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return g, nil
}

// ReadGenome parses FASTA records from r. Record names are taken up to the
// first whitespace of the header line.
func ReadGenome(r io.Reader) (*Genome, error) {
	g := &Genome{seqs: make(map[string]alphabet.Letters)}

	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNAredundant)))
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		g.seqs[s.Name()] = s.Seq
	}
	if err := sc.Error(); err != nil {
		return nil, err
	}
	return g, nil
}

// SequenceCount returns the number of loaded records.
func (g *Genome) SequenceCount() int {
	return len(g.seqs)
}

// HasSequence reports whether chrom was loaded.
func (g *Genome) HasSequence(chrom string) bool {
	_, ok := g.seqs[chrom]
	return ok
}

// Spliced returns the upper-case concatenation of ranges on chrom, read
// 5' to 3' on strand. Ranges are sorted by start before joining; on the
// reverse strand the joined sequence is reverse complemented.
func (g *Genome) Spliced(chrom string, strand genome.Strand, ranges []genome.Range) (string, error) {
	chr, ok := g.seqs[chrom]
	if !ok {
		return "", fmt.Errorf("sequence %q not found in genome", chrom)
	}

	sorted := append([]genome.Range(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var letters alphabet.Letters
	for _, r := range sorted {
		if r.Start < 0 || r.Start >= r.End || r.End > int64(len(chr)) {
			return "", fmt.Errorf("range %s:%d-%d outside sequence of length %d", chrom, r.Start, r.End, len(chr))
		}
		letters = append(letters, chr[r.Start:r.End]...)
	}

	if strand == genome.Minus {
		s := linear.NewSeq(chrom, letters, alphabet.DNAredundant)
		s.RevComp()
		letters = s.Seq
	}

	out := make([]byte, len(letters))
	for i, l := range letters {
		out[i] = toUpper(byte(l))
	}
	return string(out), nil
}

func toUpper(b byte) byte {
	if 'a' <= b && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
