package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/maxtico/assess-annotation/internal/reconcile"
)

// LabelCount is the number of rows carrying one label.
type LabelCount struct {
	Label reconcile.Label
	Count int
}

// Summarize counts rows per label, ordered by rank and then label.
func Summarize(rows []reconcile.Row) []LabelCount {
	counts := make(map[reconcile.Label]int)
	for _, r := range rows {
		counts[r.Label]++
	}

	out := make([]LabelCount, 0, len(counts))
	for l, n := range counts {
		out = append(out, LabelCount{Label: l, Count: n})
	}
	SortCounts(out)
	return out
}

// SortCounts orders counts by label rank, then by label.
func SortCounts(counts []LabelCount) {
	sort.Slice(counts, func(i, j int) bool {
		a, b := counts[i].Label, counts[j].Label
		if a.Rank() != b.Rank() {
			return a.Rank() < b.Rank()
		}
		return a < b
	})
}

// WriteSummary prints a label breakdown with percentages.
func WriteSummary(w io.Writer, counts []LabelCount) error {
	total := 0
	for _, c := range counts {
		total += c.Count
	}

	if _, err := fmt.Fprintf(w, "%-16s %8s %8s\n", "label", "count", "percent"); err != nil {
		return err
	}
	for _, c := range counts {
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(c.Count) / float64(total)
		}
		if _, err := fmt.Fprintf(w, "%-16s %8d %7.1f%%\n", c.Label, c.Count, pct); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%-16s %8d\n", "total", total)
	return err
}
