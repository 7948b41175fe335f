package genome

import "sort"

// ContainmentIndex answers "which rows contain this range" in O(log n + k)
// using a sorted slice. The index is built once and never modified.
type ContainmentIndex struct {
	entries []indexEntry
	maxEnd  []int64 // maxEnd[i] = max(end) for entries[:i+1]
}

type indexEntry struct {
	start int64
	end   int64
	row   int
}

// BuildContainmentIndex indexes rows by position. Results refer to rows by
// their index in the given slice.
func BuildContainmentIndex(rows []Interval) *ContainmentIndex {
	if len(rows) == 0 {
		return &ContainmentIndex{}
	}

	entries := make([]indexEntry, len(rows))
	for i, r := range rows {
		entries[i] = indexEntry{start: r.Start, end: r.End, row: i}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].start != entries[j].start {
			return entries[i].start < entries[j].start
		}
		return entries[i].row < entries[j].row
	})

	maxEnd := make([]int64, len(entries))
	maxEnd[0] = entries[0].end
	for i := 1; i < len(entries); i++ {
		maxEnd[i] = max(maxEnd[i-1], entries[i].end)
	}

	return &ContainmentIndex{entries: entries, maxEnd: maxEnd}
}

// FindContaining returns the indexes of all rows whose range contains r,
// in ascending row order. Chromosome and strand are not considered.
func (x *ContainmentIndex) FindContaining(r Range) []int {
	if len(x.entries) == 0 {
		return nil
	}

	// Only entries starting at or before r.Start can contain it.
	hi := sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].start > r.Start
	})

	var result []int
	for i := hi - 1; i >= 0; i-- {
		if x.maxEnd[i] < r.End {
			break
		}
		if x.entries[i].end >= r.End {
			result = append(result, x.entries[i].row)
		}
	}
	sort.Ints(result)
	return result
}
