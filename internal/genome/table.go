package genome

import (
	"iter"
	"sort"
)

// Table is an ordered, immutable collection of intervals. Every derivation
// returns a new Table and leaves the receiver untouched.
type Table struct {
	rows     []Interval
	groupKey string // attribute column the Group field was taken from
}

// NewTable builds a table over a copy of rows.
func NewTable(rows []Interval) *Table {
	return &Table{rows: append([]Interval(nil), rows...)}
}

// WithRows returns a table holding rows that keeps the receiver's group key.
func (t *Table) WithRows(rows []Interval) *Table {
	return &Table{rows: append([]Interval(nil), rows...), groupKey: t.groupKey}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// At returns row i.
func (t *Table) At(i int) Interval {
	return t.rows[i]
}

// Rows returns a copy of all rows in table order.
func (t *Table) Rows() []Interval {
	return append([]Interval(nil), t.rows...)
}

// GroupKey returns the attribute column last passed to WithGroupKey.
func (t *Table) GroupKey() string {
	return t.groupKey
}

// Validate checks the coordinate and strand invariants of every row.
func (t *Table) Validate() error {
	for i, r := range t.rows {
		if r.Start < 0 || r.Start >= r.End {
			return &CoordinateError{Row: i, Start: r.Start, End: r.End}
		}
		if r.Strand != Plus && r.Strand != Minus {
			return &CoordinateError{Row: i, Start: r.Start, End: r.End, Strand: true}
		}
	}
	return nil
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(Interval) bool) *Table {
	var out []Interval
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return &Table{rows: out, groupKey: t.groupKey}
}

// OfKind returns the rows of the given feature kinds.
func (t *Table) OfKind(kinds ...FeatureKind) *Table {
	return t.Filter(func(iv Interval) bool {
		for _, k := range kinds {
			if iv.Kind == k {
				return true
			}
		}
		return false
	})
}

// OfSource returns the rows from one annotation set.
func (t *Table) OfSource(src Source) *Table {
	return t.Filter(func(iv Interval) bool { return iv.Source == src })
}

// WithGroupKey sets every row's Group from the named attribute column.
// Rows lacking the column are a schema error.
func (t *Table) WithGroupKey(column string) (*Table, error) {
	out := make([]Interval, len(t.rows))
	for i, r := range t.rows {
		v, ok := r.Attrs[column]
		if !ok {
			return nil, &SchemaError{Column: column, Row: i}
		}
		r.Group = v
		out[i] = r
	}
	return &Table{rows: out, groupKey: column}, nil
}

// MapGroups rewrites every row's Group through fn.
func (t *Table) MapGroups(fn func(string) string) *Table {
	out := make([]Interval, len(t.rows))
	for i, r := range t.rows {
		r.Group = fn(r.Group)
		out[i] = r
	}
	return &Table{rows: out, groupKey: t.groupKey}
}

// Project keeps only the named attribute columns.
func (t *Table) Project(columns ...string) *Table {
	out := make([]Interval, len(t.rows))
	for i, r := range t.rows {
		attrs := make(map[string]string, len(columns))
		for _, c := range columns {
			if v, ok := r.Attrs[c]; ok {
				attrs[c] = v
			}
		}
		r.Attrs = attrs
		out[i] = r
	}
	return &Table{rows: out, groupKey: t.groupKey}
}

// SelectGroups keeps the rows whose Group is one of keys.
func (t *Table) SelectGroups(keys []string) *Table {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	return t.Filter(func(iv Interval) bool {
		_, ok := want[iv.Group]
		return ok
	})
}

// GroupKeys returns the distinct Group values in order of first appearance.
func (t *Table) GroupKeys() []string {
	keys, _ := t.index()
	return keys
}

// Groups iterates over (group key, rows) pairs in order of first appearance.
// Each yielded slice is a fresh copy.
func (t *Table) Groups() iter.Seq2[string, []Interval] {
	return func(yield func(string, []Interval) bool) {
		keys, members := t.index()
		for _, k := range keys {
			idx := members[k]
			rows := make([]Interval, len(idx))
			for i, j := range idx {
				rows[i] = t.rows[j]
			}
			if !yield(k, rows) {
				return
			}
		}
	}
}

func (t *Table) index() ([]string, map[string][]int) {
	var keys []string
	members := make(map[string][]int)
	for i, r := range t.rows {
		if _, ok := members[r.Group]; !ok {
			keys = append(keys, r.Group)
		}
		members[r.Group] = append(members[r.Group], i)
	}
	return keys, members
}

// MixedStrandGroups returns the groups whose rows do not share one strand.
func (t *Table) MixedStrandGroups() []string {
	var mixed []string
	for key, rows := range t.Groups() {
		if _, err := NewTranscript(key, rows); err != nil {
			mixed = append(mixed, key)
		}
	}
	return mixed
}

// WithFrames runs the frame calculator on every group.
func (t *Table) WithFrames() (*Table, error) {
	out := make([]Interval, 0, len(t.rows))
	for key, rows := range t.Groups() {
		framed, err := AssignFrames(key, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, framed...)
	}
	return &Table{rows: out, groupKey: t.groupKey}, nil
}

// Chromosomes returns the sorted distinct chromosome names.
func (t *Table) Chromosomes() []string {
	seen := make(map[string]struct{})
	for _, r := range t.rows {
		seen[r.Chrom] = struct{}{}
	}
	chroms := make([]string, 0, len(seen))
	for c := range seen {
		chroms = append(chroms, c)
	}
	sort.Strings(chroms)
	return chroms
}
