package genome

import "sort"

// AssignFrames computes the coding frame and genomic-frame anchor of every
// row in one transcript. The frame of an exon is the number of coding bases
// upstream of it (5' side) modulo 3. The result keeps the input row order.
func AssignFrames(key string, rows []Interval) ([]Interval, error) {
	tx, err := NewTranscript(key, rows)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sortIndexFivePrime(order, rows, tx.Strand)

	out := append([]Interval(nil), rows...)
	var cum int64
	for _, i := range order {
		l := out[i].Len()
		cum += l
		out[i].Frame = int((cum - l) % 3)
		out[i].Anchor = GenomicAnchor(out[i], out[i].Frame)
	}
	return out, nil
}

func sortIndexFivePrime(order []int, rows []Interval, strand Strand) {
	sort.SliceStable(order, func(a, b int) bool {
		return fivePrimeLess(rows[order[a]], rows[order[b]], strand)
	})
}

// GenomicAnchor maps a coding frame to a strand-independent residue that can
// be compared between annotations of the same locus: (start+frame) mod 3 on
// the forward strand, (end+frame) mod 3 on the reverse strand.
func GenomicAnchor(iv Interval, frame int) int {
	if iv.Strand == Minus {
		return int((iv.End + int64(frame)) % 3)
	}
	return int((iv.Start + int64(frame)) % 3)
}

// InheritFrames gives every marker (Selenocysteine) row the frame of the
// framed CDS row of the same group that contains it. The anchor is then
// recomputed from the marker's own coordinates. Markers with no containing
// CDS are returned separately as orphans.
func InheritFrames(cds, markers *Table) (*Table, []Interval) {
	idx := BuildContainmentIndex(cds.rows)

	var framed, orphans []Interval
	for _, m := range markers.rows {
		host := -1
		for _, i := range idx.FindContaining(m.Range()) {
			c := cds.rows[i]
			if c.Group != m.Group || c.Chrom != m.Chrom || c.Strand != m.Strand || !c.HasFrame() {
				continue
			}
			if host == -1 || i < host {
				host = i
			}
		}
		if host == -1 {
			orphans = append(orphans, m)
			continue
		}
		m.Frame = cds.rows[host].Frame
		m.Anchor = GenomicAnchor(m, m.Frame)
		framed = append(framed, m)
	}
	return &Table{rows: framed, groupKey: markers.groupKey}, orphans
}
