package genome

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrRow(chrom string, start, end int64, kind FeatureKind, attrs map[string]string) Interval {
	iv := NewInterval(chrom, Plus, start, end, kind, Candidate)
	iv.Attrs = attrs
	return iv
}

func sampleTable() *Table {
	return NewTable([]Interval{
		attrRow("chr2", 10, 20, KindCDS, map[string]string{"transcript_id": "b", "gene_id": "g2"}),
		attrRow("chr1", 30, 40, KindCDS, map[string]string{"transcript_id": "a", "gene_id": "g1"}),
		attrRow("chr2", 50, 60, KindCDS, map[string]string{"transcript_id": "b", "gene_id": "g2"}),
		attrRow("chr2", 52, 55, KindSelenocysteine, map[string]string{"transcript_id": "b"}),
	})
}

func TestTable_WithGroupKey(t *testing.T) {
	tbl, err := sampleTable().WithGroupKey("transcript_id")
	require.NoError(t, err)
	assert.Equal(t, "transcript_id", tbl.GroupKey())
	assert.Equal(t, []string{"b", "a"}, tbl.GroupKeys())

	var sizes []int
	for _, rows := range tbl.Groups() {
		sizes = append(sizes, len(rows))
	}
	assert.Equal(t, []int{3, 1}, sizes)
}

func TestTable_WithGroupKey_MissingColumn(t *testing.T) {
	_, err := sampleTable().WithGroupKey("gene_id")
	var schema *SchemaError
	require.True(t, errors.As(err, &schema))
	assert.Equal(t, "gene_id", schema.Column)
	assert.Equal(t, 3, schema.Row)
}

func TestTable_DerivationsLeaveSourceUntouched(t *testing.T) {
	src, err := sampleTable().WithGroupKey("transcript_id")
	require.NoError(t, err)

	cds := src.OfKind(KindCDS)
	assert.Equal(t, 3, cds.Len())
	assert.Equal(t, 4, src.Len())

	mapped := src.MapGroups(func(s string) string { return "x." + s })
	assert.Equal(t, "x.b", mapped.At(0).Group)
	assert.Equal(t, "b", src.At(0).Group)

	projected := src.Project("gene_id")
	_, ok := projected.At(0).Attr("transcript_id")
	assert.False(t, ok)
	_, ok = src.At(0).Attr("transcript_id")
	assert.True(t, ok)

	assert.Equal(t, 1, src.SelectGroups([]string{"a"}).Len())
	assert.Equal(t, 0, src.OfSource(Reference).Len())
	assert.Equal(t, []string{"chr1", "chr2"}, src.Chromosomes())
}

func TestTable_Validate(t *testing.T) {
	assert.NoError(t, sampleTable().Validate())

	bad := NewTable([]Interval{NewInterval("chr1", Plus, 10, 10, KindCDS, Reference)})
	var coord *CoordinateError
	require.True(t, errors.As(bad.Validate(), &coord))
	assert.False(t, coord.Strand)

	noStrand := NewTable([]Interval{NewInterval("chr1", NoStrand, 10, 20, KindCDS, Reference)})
	require.True(t, errors.As(noStrand.Validate(), &coord))
	assert.True(t, coord.Strand)
}

func TestTable_MixedStrandGroups(t *testing.T) {
	rows := append(exons(Plus, "ok", 0, 10, 20, 30), exons(Plus, "bad", 40, 50)...)
	rows = append(rows, exons(Minus, "bad", 60, 70)...)
	tbl := NewTable(rows)

	assert.Equal(t, []string{"bad"}, tbl.MixedStrandGroups())

	_, err := tbl.WithFrames()
	var mixed *MixedStrandError
	assert.True(t, errors.As(err, &mixed))

	framed, err := tbl.SelectGroups([]string{"ok"}).WithFrames()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, frames(framed.Rows()))
}

func TestParseFeatureKind(t *testing.T) {
	assert.Equal(t, KindCDS, ParseFeatureKind("CDS"))
	assert.Equal(t, KindCDS, ParseFeatureKind("CDS_predicted"))
	assert.Equal(t, KindSelenocysteine, ParseFeatureKind("Selenocysteine"))
	assert.Equal(t, KindOther, ParseFeatureKind("exon"))
}
