package reconcile

import (
	"context"
	"sort"

	"github.com/biogo/store/interval"
	"golang.org/x/sync/errgroup"

	"github.com/maxtico/assess-annotation/internal/genome"
)

// SentinelID is the reference id reported for a candidate interval that
// overlaps no reference interval.
const SentinelID = "-1"

// OverlapRecord pairs a candidate interval with one overlapping reference
// interval. A nil Reference is the sentinel.
type OverlapRecord struct {
	Candidate genome.Interval
	Reference *genome.Interval
}

// IsSentinel reports whether the candidate interval matched nothing.
func (r OverlapRecord) IsSentinel() bool {
	return r.Reference == nil
}

// ReferenceID returns the reference group key, or SentinelID.
func (r OverlapRecord) ReferenceID() string {
	if r.Reference == nil {
		return SentinelID
	}
	return r.Reference.Group
}

// FrameConcordant reports whether both sides read the same codons.
func (r OverlapRecord) FrameConcordant() bool {
	return r.Reference != nil && r.Candidate.Anchor == r.Reference.Anchor
}

// JoinOptions controls the overlap join.
type JoinOptions struct {
	StrandSensitive bool // only pair intervals on the same strand
	Workers         int  // concurrent partitions; 0 means unlimited
}

type partitionKey struct {
	chrom  string
	strand genome.Strand
}

func keyOf(iv genome.Interval, strandSensitive bool) partitionKey {
	k := partitionKey{chrom: iv.Chrom}
	if strandSensitive {
		k.strand = iv.Strand
	}
	return k
}

// refNode is a reference row stored in an interval tree.
type refNode struct {
	row   int
	start int
	end   int
}

func (n refNode) Overlap(b interval.IntRange) bool {
	return n.start < b.End && b.Start < n.end
}

func (n refNode) ID() uintptr {
	return uintptr(n.row)
}

func (n refNode) Range() interval.IntRange {
	return interval.IntRange{Start: n.start, End: n.end}
}

// overlapQuery is a half-open query range.
type overlapQuery struct {
	start int
	end   int
}

func (q overlapQuery) Overlap(b interval.IntRange) bool {
	return q.start < b.End && b.Start < q.end
}

// Join performs a left-outer overlap join of candidates against references.
// Every candidate interval yields one record per overlapping reference
// interval, or a single sentinel record. Records are ordered by candidate
// table order, then by reference start, end and group.
func Join(ctx context.Context, candidates, references *genome.Table, opts JoinOptions) ([]OverlapRecord, error) {
	refs := references.Rows()
	trees := make(map[partitionKey]*interval.IntTree)
	for i, r := range refs {
		k := keyOf(r, opts.StrandSensitive)
		tree, ok := trees[k]
		if !ok {
			tree = &interval.IntTree{}
			trees[k] = tree
		}
		if err := tree.Insert(refNode{row: i, start: int(r.Start), end: int(r.End)}, true); err != nil {
			return nil, err
		}
	}
	for _, tree := range trees {
		tree.AdjustRanges()
	}

	cands := candidates.Rows()
	byPartition := make(map[partitionKey][]int)
	for i, c := range cands {
		k := keyOf(c, opts.StrandSensitive)
		byPartition[k] = append(byPartition[k], i)
	}

	matches := make([][]int, len(cands))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for k, idx := range byPartition {
		tree, ok := trees[k]
		if !ok {
			continue
		}
		g.Go(func() error {
			for _, ci := range idx {
				if err := ctx.Err(); err != nil {
					return err
				}
				c := cands[ci]
				hits := tree.Get(overlapQuery{start: int(c.Start), end: int(c.End)})
				rows := make([]int, len(hits))
				for j, h := range hits {
					rows[j] = h.(refNode).row
				}
				sortReferenceRows(rows, refs)
				matches[ci] = rows
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []OverlapRecord
	for ci, c := range cands {
		if len(matches[ci]) == 0 {
			out = append(out, OverlapRecord{Candidate: c})
			continue
		}
		for _, ri := range matches[ci] {
			out = append(out, OverlapRecord{Candidate: c, Reference: &refs[ri]})
		}
	}
	return out, nil
}

func sortReferenceRows(rows []int, refs []genome.Interval) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := refs[rows[i]], refs[rows[j]]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return rows[i] < rows[j]
	})
}
