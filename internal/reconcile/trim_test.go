package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxtico/assess-annotation/internal/genome"
)

func transcript(t *testing.T, rows ...genome.Interval) *genome.Transcript {
	t.Helper()
	tx, err := genome.NewTranscript(rows[0].Group, rows)
	require.NoError(t, err)
	return tx
}

func newTrimmer(t *testing.T, seq SequenceLookup, stops ...string) *Trimmer {
	t.Helper()
	tr, err := NewTrimmer(seq, stops)
	require.NoError(t, err)
	return tr
}

func TestTrimmer_TrimTranscript(t *testing.T) {
	seq := fakeGenome{"chr1": chromosome(60, map[int]string{
		0:  "TCA", // TGA on the reverse strand
		27: "TGA",
		40: "TGG",
		49: "T",
		50: "AG",
	})}
	tr := newTrimmer(t, seq)

	tests := []struct {
		name    string
		rows    []genome.Interval
		trimmed bool
		want    []genome.Range // 5' to 3'
	}{
		{
			name:    "forward stop in terminal exon",
			rows:    []genome.Interval{cdsRow("tx", genome.Plus, 0, 10, genome.Reference), cdsRow("tx", genome.Plus, 20, 30, genome.Reference)},
			trimmed: true,
			want:    []genome.Range{{Start: 0, End: 10}, {Start: 20, End: 27}},
		},
		{
			name:    "reverse stop at lowest coordinate",
			rows:    []genome.Interval{cdsRow("tx", genome.Minus, 0, 10, genome.Reference), cdsRow("tx", genome.Minus, 20, 30, genome.Reference)},
			trimmed: true,
			want:    []genome.Range{{Start: 20, End: 30}, {Start: 3, End: 10}},
		},
		{
			name:    "stop split across exons drops emptied exon",
			rows:    []genome.Interval{cdsRow("tx", genome.Plus, 30, 50, genome.Reference), cdsRow("tx", genome.Plus, 50, 52, genome.Reference)},
			trimmed: true,
			want:    []genome.Range{{Start: 30, End: 49}},
		},
		{
			name:    "sense codon left alone",
			rows:    []genome.Interval{cdsRow("tx", genome.Plus, 31, 43, genome.Reference)},
			trimmed: false,
			want:    []genome.Range{{Start: 31, End: 43}},
		},
		{
			name:    "shorter than a codon",
			rows:    []genome.Interval{cdsRow("tx", genome.Plus, 27, 29, genome.Reference)},
			trimmed: false,
			want:    []genome.Range{{Start: 27, End: 29}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exons, trimmed, err := tr.TrimTranscript(transcript(t, tt.rows...))
			require.NoError(t, err)
			assert.Equal(t, tt.trimmed, trimmed)
			assert.Equal(t, tt.want, ranges(exons))
		})
	}
}

func TestTrimmer_RoundTrip(t *testing.T) {
	seq := fakeGenome{"chr1": chromosome(60, map[int]string{27: "TAA", 5: "CTA"})}
	tr := newTrimmer(t, seq)

	for _, strand := range []genome.Strand{genome.Plus, genome.Minus} {
		t.Run(strand.String(), func(t *testing.T) {
			var rows []genome.Interval
			if strand == genome.Plus {
				rows = []genome.Interval{cdsRow("tx", strand, 0, 10, genome.Reference), cdsRow("tx", strand, 20, 30, genome.Reference)}
			} else {
				rows = []genome.Interval{cdsRow("tx", strand, 5, 15, genome.Reference), cdsRow("tx", strand, 20, 30, genome.Reference)}
			}
			original := transcript(t, rows...)

			exons, trimmed, err := tr.TrimTranscript(original)
			require.NoError(t, err)
			require.True(t, trimmed)

			restored := ExtendTerminal(transcript(t, exons...), 3)
			assert.Equal(t, ranges(original.Exons), ranges(restored))
		})
	}
}

func TestTrimmer_Trim(t *testing.T) {
	seq := fakeGenome{"chr1": chromosome(60, map[int]string{27: "TAG"})}
	tbl := genome.NewTable([]genome.Interval{
		cdsRow("stop", genome.Plus, 0, 10, genome.Reference),
		cdsRow("sense", genome.Plus, 40, 52, genome.Reference),
		cdsRow("stop", genome.Plus, 20, 30, genome.Reference),
	})

	out, stats, err := newTrimmer(t, seq, "tag").Trim(tbl)
	require.NoError(t, err)
	assert.Equal(t, TrimStats{Transcripts: 2, Trimmed: 1, Kept: 1}, stats)
	assert.Equal(t, []string{"stop", "sense"}, out.GroupKeys())
	assert.Equal(t, 3, tbl.Len(), "input untouched")
	assert.Equal(t, int64(27), out.At(1).End)
}

func TestTrimmer_LookupError(t *testing.T) {
	tr := newTrimmer(t, fakeGenome{})
	_, _, err := tr.Trim(genome.NewTable([]genome.Interval{cdsRow("tx", genome.Plus, 0, 10, genome.Reference)}))
	assert.ErrorContains(t, err, "terminal codon of tx")
}

func TestTrimmer_IsStop(t *testing.T) {
	tr := newTrimmer(t, nil)
	assert.True(t, tr.IsStop("tga"))
	assert.True(t, tr.IsStop("TAA"))
	assert.False(t, tr.IsStop("TGG"))
}

func TestNewTrimmer_RejectsMalformedCodons(t *testing.T) {
	for _, stops := range [][]string{{"TGA,TAA"}, {"TG"}, {"TGAA"}, {"TGN"}} {
		_, err := NewTrimmer(nil, stops)
		assert.ErrorContains(t, err, "invalid stop codon", "%v", stops)
	}
}

func TestParseStopCodons(t *testing.T) {
	got, err := ParseStopCodons([]string{"tga, TAA", "TAG"})
	require.NoError(t, err)
	assert.Equal(t, []string{"TGA", "TAA", "TAG"}, got)

	got, err = ParseStopCodons([]string{"TGA,,"})
	require.NoError(t, err)
	assert.Equal(t, []string{"TGA"}, got)

	_, err = ParseStopCodons([]string{"TGA,TAAG"})
	assert.ErrorContains(t, err, `"TAAG"`)
}
