package reconcile

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/maxtico/assess-annotation/internal/genome"
	"github.com/maxtico/assess-annotation/internal/loader"
)

// gtfLine renders a candidate record from 0-based half-open coordinates.
func gtfLine(feature string, start, end int64, strand, id string) string {
	return fmt.Sprintf("chr1\tselenoprofiles\t%s\t%d\t%d\t.\t%s\t.\tgene_id \"g\"; transcript_id \"%s\";\n",
		feature, start+1, end, strand, id)
}

// gffLine renders a reference CDS record from 0-based half-open coordinates.
func gffLine(start, end int64, strand, id string) string {
	return fmt.Sprintf("chr1\tensembl\tCDS\t%d\t%d\t.\t%s\t0\tID=CDS:%s;Parent=transcript:T%s\n",
		start+1, end, strand, id, id)
}

func testGenome(t *testing.T) *loader.Genome {
	t.Helper()
	seq := chromosome(400, map[int]string{130: "TGA", 360: "TGA"})
	g, err := loader.ReadGenome(strings.NewReader(">chr1\n" + seq + "\n"))
	require.NoError(t, err)
	return g
}

func parse(t *testing.T, format loader.Format, src genome.Source, text string) *genome.Table {
	t.Helper()
	tbl, err := loader.NewAnnotationLoader("", format, src).Parse(strings.NewReader(text))
	require.NoError(t, err)
	return tbl
}

func referenceFixture(t *testing.T) *genome.Table {
	return parse(t, loader.GFF3, genome.Reference, "##gff-version 3\n"+
		gffLine(100, 133, "+", "ENSP1")+
		gffLine(300, 363, "+", "ENSP3"))
}

func candidateFixture(t *testing.T) *genome.Table {
	return parse(t, loader.GTF, genome.Candidate,
		// Sec just past the reference stop codon
		gtfLine("CDS", 91, 133, "+", "sp:c1")+
			gtfLine("Selenocysteine", 130, 133, "+", "sp:c1")+
			// nothing in the reference
			gtfLine("CDS", 600, 630, "+", "sp:c2")+
			gtfLine("Selenocysteine", 610, 613, "+", "sp:c2")+
			// identical to the reference
			gtfLine("CDS", 300, 360, "+", "sp:c3")+
			gtfLine("Selenocysteine", 330, 333, "+", "sp:c3")+
			// shifted frame with the Sec inside the reference
			gtfLine("CDS", 101, 133, "+", "sp:c5")+
			gtfLine("Selenocysteine", 110, 113, "+", "sp:c5")+
			// Sec in an exon past the reference end
			gtfLine("CDS", 100, 115, "+", "sp:c6")+
			gtfLine("CDS", 140, 160, "+", "sp:c6")+
			gtfLine("Selenocysteine", 145, 148, "+", "sp:c6"))
}

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(testGenome(t), cfg)
	require.NoError(t, err)
	return e
}

func TestEngine_Run(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 2
	e := newEngine(t, cfg)
	e.SetLogger(zap.NewNop())

	res, err := e.Run(context.Background(), candidateFixture(t), referenceFixture(t))
	require.NoError(t, err)

	assert.Equal(t, []Row{
		{CandidateID: "c1", ReferenceID: "ENSP1", Label: StopCodon},
		{CandidateID: "c2", ReferenceID: SentinelID, Label: Missing},
		{CandidateID: "c3", ReferenceID: "ENSP3", Label: WellAnnotated},
		{CandidateID: "c5", ReferenceID: "ENSP1", Label: OutOfFrame},
		{CandidateID: "c6", ReferenceID: "ENSP1", Label: Upstream},
	}, res.Detailed)

	assert.Equal(t, []Row{
		{CandidateID: "c1", ReferenceID: "ENSP1", Label: Missannotation},
		{CandidateID: "c2", ReferenceID: SentinelID, Label: Missing},
		{CandidateID: "c3", ReferenceID: "ENSP3", Label: WellAnnotated},
		{CandidateID: "c5", ReferenceID: "ENSP1", Label: Missannotation},
		{CandidateID: "c6", ReferenceID: "ENSP1", Label: Missannotation},
	}, res.Aggregate)

	assert.Equal(t, 2, res.Stats.ReferenceTranscripts)
	assert.Equal(t, 5, res.Stats.CandidateTranscripts)
	assert.Equal(t, TrimStats{Transcripts: 2, Trimmed: 2}, res.Stats.Trim)
	assert.Zero(t, res.Stats.OrphanMarkers)
}

func TestEngine_RunIsDeterministic(t *testing.T) {
	first, err := newEngine(t, DefaultConfig()).Run(context.Background(), candidateFixture(t), referenceFixture(t))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Workers = 1
	second, err := newEngine(t, cfg).Run(context.Background(), candidateFixture(t), referenceFixture(t))
	require.NoError(t, err)

	assert.Equal(t, first.Detailed, second.Detailed)
	assert.Equal(t, first.Aggregate, second.Aggregate)
}

func TestEngine_SchemaError(t *testing.T) {
	refs := parse(t, loader.GFF3, genome.Reference,
		"chr1\tensembl\tCDS\t101\t133\t.\t+\t0\tParent=transcript:T1\n")

	_, err := newEngine(t, DefaultConfig()).Run(context.Background(), candidateFixture(t), refs)
	var schema *genome.SchemaError
	require.True(t, errors.As(err, &schema))
	assert.Equal(t, "ID", schema.Column)
}

func TestEngine_OrphanMarker(t *testing.T) {
	cands := parse(t, loader.GTF, genome.Candidate,
		gtfLine("CDS", 300, 360, "+", "c3")+
			gtfLine("Selenocysteine", 330, 333, "+", "c3")+
			gtfLine("Selenocysteine", 500, 503, "+", "c3"))

	res, err := newEngine(t, DefaultConfig()).Run(context.Background(), cands, referenceFixture(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.OrphanMarkers)
	assert.Equal(t, []Row{{CandidateID: "c3", ReferenceID: "ENSP3", Label: WellAnnotated}}, res.Aggregate)
}

func TestEngine_MixedStrandPolicy(t *testing.T) {
	cands := parse(t, loader.GTF, genome.Candidate,
		gtfLine("CDS", 300, 360, "+", "c3")+
			gtfLine("Selenocysteine", 330, 333, "+", "c3")+
			gtfLine("CDS", 100, 120, "+", "bad")+
			gtfLine("CDS", 200, 220, "-", "bad"))

	_, err := newEngine(t, DefaultConfig()).Run(context.Background(), cands, referenceFixture(t))
	var mixed *genome.MixedStrandError
	require.True(t, errors.As(err, &mixed))
	assert.Equal(t, "bad", mixed.Group)

	cfg := DefaultConfig()
	cfg.MixedStrand = SkipMixedStrand
	res, err := newEngine(t, cfg).Run(context.Background(), cands, referenceFixture(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.SkippedTranscripts)
	assert.Equal(t, []Row{{CandidateID: "c3", ReferenceID: "ENSP3", Label: WellAnnotated}}, res.Aggregate)
}

func TestNormalizeIDs(t *testing.T) {
	assert.Equal(t, "ENSP1", NormalizeReferenceID("CDS:ENSP1"))
	assert.Equal(t, "ENSP1", NormalizeReferenceID("ENSP1"))
	assert.Equal(t, "c1", NormalizeCandidateID("sp:c1"))
	assert.Equal(t, "c1", NormalizeCandidateID("sp:c1:extra"))
	assert.Equal(t, "c1", NormalizeCandidateID("c1"))
}

func TestParseMixedStrandPolicy(t *testing.T) {
	p, err := ParseMixedStrandPolicy("SKIP")
	require.NoError(t, err)
	assert.Equal(t, SkipMixedStrand, p)

	p, err = ParseMixedStrandPolicy("")
	require.NoError(t, err)
	assert.Equal(t, AbortOnMixedStrand, p)

	_, err = ParseMixedStrandPolicy("ignore")
	assert.Error(t, err)
}

func TestOrderedCollect(t *testing.T) {
	results := make(chan WorkResult, 4)
	results <- WorkResult{Seq: 2, CandidateID: "c"}
	results <- WorkResult{Seq: 0, CandidateID: "a"}
	results <- WorkResult{Seq: 1, CandidateID: "b"}
	close(results)

	var got []string
	err := OrderedCollect(results, func(r WorkResult) error {
		got = append(got, r.CandidateID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestNewEngine_ResolvesWorkers(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	assert.Equal(t, runtime.NumCPU(), e.cfg.Workers)

	cfg := DefaultConfig()
	cfg.Workers = 3
	assert.Equal(t, 3, newEngine(t, cfg).cfg.Workers)
}

func TestNewEngine_InvalidStopCodon(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StopCodons = []string{"TGA,TAA"}
	_, err := NewEngine(testGenome(t), cfg)
	assert.ErrorContains(t, err, "invalid stop codon")
}

func TestCandidateItems_StopsWhenCanceled(t *testing.T) {
	order := make([]string, 100)
	byCandidate := make(map[string][]OverlapRecord)
	for i := range order {
		order[i] = fmt.Sprintf("c%d", i)
		byCandidate[order[i]] = []OverlapRecord{{}}
	}

	ctx, cancel := context.WithCancel(context.Background())
	items := candidateItems(ctx, order, byCandidate, nil, 2)
	first := <-items
	assert.Equal(t, 0, first.Seq)
	cancel()

	n := 1
	for range items {
		n++
	}
	assert.Less(t, n, 10)
}

func TestParallelClassify_LogsWorkerCount(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := newEngine(t, DefaultConfig())
	e.SetLogger(zap.New(core))

	items := make(chan WorkItem)
	close(items)
	for range e.ParallelClassify(items, 2) {
	}

	started := logs.FilterMessage("starting classification workers").All()
	require.Len(t, started, 1)
	assert.Equal(t, int64(2), started[0].ContextMap()["workers"])
}
