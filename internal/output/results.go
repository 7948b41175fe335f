// Package output provides result table formatters.
package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/maxtico/assess-annotation/internal/reconcile"
)

// record is the on-disk shape of a result row.
type record struct {
	CandidateID string `csv:"candidate_id"`
	ReferenceID string `csv:"reference_id"`
	Label       string `csv:"label"`
}

// ResultWriter writes result rows as a tab-separated table with a header.
type ResultWriter struct {
	w *csv.Writer
}

// NewResultWriter creates a new tab-delimited result writer.
func NewResultWriter(w io.Writer) *ResultWriter {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return &ResultWriter{w: cw}
}

// WriteAll writes the header and every row, then flushes.
func (rw *ResultWriter) WriteAll(rows []reconcile.Row) error {
	records := make([]*record, len(rows))
	for i, r := range rows {
		records[i] = &record{CandidateID: r.CandidateID, ReferenceID: r.ReferenceID, Label: r.Label.String()}
	}
	if err := gocsv.MarshalCSV(records, gocsv.NewSafeCSVWriter(rw.w)); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	rw.w.Flush()
	return rw.w.Error()
}

// ReadResults parses a table written by ResultWriter.
func ReadResults(r io.Reader) ([]reconcile.Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true

	var records []*record
	if err := gocsv.UnmarshalCSV(cr, &records); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	rows := make([]reconcile.Row, len(records))
	for i, rec := range records {
		label, err := reconcile.ParseLabel(rec.Label)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows[i] = reconcile.Row{CandidateID: rec.CandidateID, ReferenceID: rec.ReferenceID, Label: label}
	}
	return rows, nil
}
