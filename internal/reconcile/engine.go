package reconcile

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/maxtico/assess-annotation/internal/genome"
)

// MixedStrandPolicy decides what happens to a transcript with exons on both
// strands.
type MixedStrandPolicy int

const (
	AbortOnMixedStrand MixedStrandPolicy = iota // fail the run
	SkipMixedStrand                             // log and drop the transcript
)

// ParseMixedStrandPolicy converts "abort" or "skip" to a policy.
func ParseMixedStrandPolicy(s string) (MixedStrandPolicy, error) {
	switch strings.ToLower(s) {
	case "", "abort":
		return AbortOnMixedStrand, nil
	case "skip":
		return SkipMixedStrand, nil
	}
	return 0, fmt.Errorf("unknown mixed-strand policy %q (want abort or skip)", s)
}

func (p MixedStrandPolicy) String() string {
	if p == SkipMixedStrand {
		return "skip"
	}
	return "abort"
}

// Config holds engine settings.
type Config struct {
	CandidateIDColumn string   // attribute grouping candidate intervals
	ReferenceIDColumn string   // attribute grouping reference intervals
	StopCodons        []string // codons stripped from reference 3' ends
	StrandSensitive   bool     // only join intervals on the same strand
	Workers           int      // 0 means runtime.NumCPU()
	MixedStrand       MixedStrandPolicy
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		CandidateIDColumn: "transcript_id",
		ReferenceIDColumn: "ID",
		StopCodons:        append([]string(nil), DefaultStopCodons...),
		StrandSensitive:   true,
	}
}

// Stats summarises a run.
type Stats struct {
	ReferenceTranscripts int
	CandidateTranscripts int
	Trim                 TrimStats
	OrphanMarkers        int // Selenocysteine intervals outside any CDS
	SkippedTranscripts   int // dropped by the mixed-strand policy
	OverlapRecords       int
	EvidenceRecords      int // records surviving the evidence filter
}

// Result is the output of a run.
type Result struct {
	Detailed  []Row
	Aggregate []Row
	Stats     Stats
}

// Engine reconciles a candidate annotation with a reference annotation.
type Engine struct {
	cfg     Config
	trimmer *Trimmer
	logger  *zap.Logger
}

// NewEngine creates an engine reading terminal codons from seq. It fails
// when a configured stop codon is not three nucleotides.
func NewEngine(seq SequenceLookup, cfg Config) (*Engine, error) {
	trimmer, err := NewTrimmer(seq, cfg.StopCodons)
	if err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Engine{
		cfg:     cfg,
		trimmer: trimmer,
		logger:  zap.NewNop(),
	}, nil
}

// SetLogger sets the logger for warning and info messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Run labels every candidate transcript. Both tables may contain features
// of any kind; only CDS (and, for candidates, Selenocysteine) rows are used.
func (e *Engine) Run(ctx context.Context, candidates, references *genome.Table) (*Result, error) {
	var stats Stats

	refs, cands, err := e.prepareTables(candidates, references)
	if err != nil {
		return nil, err
	}

	refs, err = e.applyStrandPolicy(refs, "reference", &stats)
	if err != nil {
		return nil, err
	}
	cands, err = e.applyStrandPolicy(cands, "candidate", &stats)
	if err != nil {
		return nil, err
	}
	stats.ReferenceTranscripts = len(refs.GroupKeys())
	stats.CandidateTranscripts = len(cands.GroupKeys())

	e.logger.Info("trimming reference stop codons", zap.Int("transcripts", stats.ReferenceTranscripts))
	refs, stats.Trim, err = e.trimmer.Trim(refs)
	if err != nil {
		return nil, fmt.Errorf("trim reference: %w", err)
	}
	if refs, err = refs.WithFrames(); err != nil {
		return nil, fmt.Errorf("reference frames: %w", err)
	}

	candCDS, err := cands.OfKind(genome.KindCDS).WithFrames()
	if err != nil {
		return nil, fmt.Errorf("candidate frames: %w", err)
	}
	markers, orphans := genome.InheritFrames(candCDS, cands.OfKind(genome.KindSelenocysteine))
	for _, o := range orphans {
		e.logger.Warn("selenocysteine outside any CDS of its transcript, dropped",
			zap.String("candidate", o.Group),
			zap.String("chrom", o.Chrom),
			zap.Int64("start", o.Start))
	}
	stats.OrphanMarkers = len(orphans)

	e.logger.Info("joining candidates with reference",
		zap.Int("candidate_intervals", candCDS.Len()+markers.Len()),
		zap.Int("reference_intervals", refs.Len()))
	joinInput := candCDS.WithRows(append(candCDS.Rows(), markers.Rows()...))
	records, err := Join(ctx, joinInput, refs, JoinOptions{
		StrandSensitive: e.cfg.StrandSensitive,
		Workers:         e.cfg.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	stats.OverlapRecords = len(records)

	markersByCandidate := make(map[string][]genome.Interval)
	for key, rows := range markers.Groups() {
		markersByCandidate[key] = rows
	}
	records = FilterEvidence(records, markersByCandidate)
	stats.EvidenceRecords = len(records)

	e.logger.Info("classifying candidates", zap.Int("candidates", stats.CandidateTranscripts))
	res, err := e.classify(ctx, cands.GroupKeys(), records, markersByCandidate, &stats)
	if err != nil {
		return nil, err
	}
	res.Stats = stats
	return res, nil
}

// prepareTables selects the usable rows of both inputs and sets their group
// keys. Schema problems surface here, before any computation.
func (e *Engine) prepareTables(candidates, references *genome.Table) (refs, cands *genome.Table, err error) {
	refs = references.OfKind(genome.KindCDS)
	if err := refs.Validate(); err != nil {
		return nil, nil, fmt.Errorf("reference: %w", err)
	}
	if refs, err = refs.WithGroupKey(e.cfg.ReferenceIDColumn); err != nil {
		return nil, nil, fmt.Errorf("reference: %w", err)
	}

	cands = candidates.OfKind(genome.KindCDS, genome.KindSelenocysteine)
	if err := cands.Validate(); err != nil {
		return nil, nil, fmt.Errorf("candidate: %w", err)
	}
	if cands, err = cands.WithGroupKey(e.cfg.CandidateIDColumn); err != nil {
		return nil, nil, fmt.Errorf("candidate: %w", err)
	}

	return refs.MapGroups(NormalizeReferenceID), cands.MapGroups(NormalizeCandidateID), nil
}

// NormalizeReferenceID strips the "CDS:" prefix Ensembl puts on CDS ids.
func NormalizeReferenceID(id string) string {
	return strings.TrimPrefix(id, "CDS:")
}

// NormalizeCandidateID keeps the second field of "prefix:id" style ids.
func NormalizeCandidateID(id string) string {
	if parts := strings.Split(id, ":"); len(parts) > 1 {
		return parts[1]
	}
	return id
}

func (e *Engine) applyStrandPolicy(t *genome.Table, side string, stats *Stats) (*genome.Table, error) {
	mixed := t.MixedStrandGroups()
	if len(mixed) == 0 {
		return t, nil
	}
	if e.cfg.MixedStrand == AbortOnMixedStrand {
		return nil, fmt.Errorf("%s: %w", side, &genome.MixedStrandError{Group: mixed[0]})
	}

	drop := make(map[string]bool, len(mixed))
	for _, g := range mixed {
		e.logger.Warn("transcript spans both strands, skipped", zap.String("side", side), zap.String("id", g))
		drop[g] = true
	}
	stats.SkippedTranscripts += len(mixed)
	return t.Filter(func(iv genome.Interval) bool { return !drop[iv.Group] }), nil
}

// classify runs the per-candidate rule list, hierarchy and aggregation on the
// worker pool and collects results in candidate order.
func (e *Engine) classify(ctx context.Context, order []string, records []OverlapRecord,
	markers map[string][]genome.Interval, stats *Stats) (*Result, error) {
	byCandidate := make(map[string][]OverlapRecord)
	for _, r := range records {
		byCandidate[r.Candidate.Group] = append(byCandidate[r.Candidate.Group], r)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	items := candidateItems(ctx, order, byCandidate, markers, 2*e.cfg.Workers)

	res := &Result{}
	err := OrderedCollect(e.ParallelClassify(items, e.cfg.Workers), func(r WorkResult) error {
		if r.Err != nil {
			var mixed *genome.MixedStrandError
			if errors.As(r.Err, &mixed) && e.cfg.MixedStrand == SkipMixedStrand {
				e.logger.Warn("candidate partition spans both strands, skipped",
					zap.String("candidate", r.CandidateID))
				stats.SkippedTranscripts++
				return nil
			}
			cancel()
			return fmt.Errorf("classify %s: %w", r.CandidateID, r.Err)
		}
		res.Detailed = append(res.Detailed, r.Detailed...)
		if r.Aggregated {
			res.Aggregate = append(res.Aggregate, r.Aggregate)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// candidateItems feeds the candidates with records, in order, until ctx is
// done.
func candidateItems(ctx context.Context, order []string, byCandidate map[string][]OverlapRecord,
	markers map[string][]genome.Interval, buffer int) <-chan WorkItem {
	items := make(chan WorkItem, buffer)
	go func() {
		defer close(items)
		seq := 0
		for _, id := range order {
			if ctx.Err() != nil {
				return
			}
			recs, ok := byCandidate[id]
			if !ok {
				continue
			}
			select {
			case items <- WorkItem{Seq: seq, CandidateID: id, Records: recs, Markers: markers[id]}:
				seq++
			case <-ctx.Done():
				return
			}
		}
	}()
	return items
}
