package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/maxtico/assess-annotation/internal/output"
	"github.com/maxtico/assess-annotation/internal/reconcile"
)

// Level distinguishes the two result tables of a run.
type Level string

const (
	LevelDetailed  Level = "detailed"
	LevelAggregate Level = "aggregate"
)

// RunInfo describes one stored run.
type RunInfo struct {
	ID            string
	CreatedAt     time.Time
	CandidateFile string
	ReferenceFile string
	GenomeFile    string
	Candidates    int64 // rows in the aggregate table
}

// WriteRun stores a run and its result rows under a new run id, which is
// returned.
func (s *Store) WriteRun(info RunInfo, res *reconcile.Result) (string, error) {
	info.ID = uuid.New().String()
	if info.CreatedAt.IsZero() {
		info.CreatedAt = time.Now().UTC()
	}
	info.Candidates = int64(len(res.Aggregate))

	if _, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?)`,
		info.ID, info.CreatedAt, info.CandidateFile, info.ReferenceFile, info.GenomeFile, info.Candidates); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	if err := s.appendResults(info.ID, res); err != nil {
		return "", err
	}
	return info.ID, nil
}

// appendResults batch-inserts result rows using the Appender API.
func (s *Store) appendResults(runID string, res *reconcile.Result) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	tables := []struct {
		level Level
		rows  []reconcile.Row
	}{
		{LevelDetailed, res.Detailed},
		{LevelAggregate, res.Aggregate},
	}
	for _, tbl := range tables {
		for _, r := range tbl.rows {
			if err := appender.AppendRow(runID, string(tbl.level), r.CandidateID, r.ReferenceID, r.Label.String()); err != nil {
				return fmt.Errorf("append result: %w", err)
			}
		}
	}

	return appender.Flush()
}

// LatestRun returns the most recently stored run.
func (s *Store) LatestRun() (RunInfo, error) {
	runs, err := s.Runs()
	if err != nil {
		return RunInfo{}, err
	}
	if len(runs) == 0 {
		return RunInfo{}, fmt.Errorf("no runs stored")
	}
	return runs[0], nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs() ([]RunInfo, error) {
	rows, err := s.db.Query(`SELECT run_id, created_at, candidate_file, reference_file, genome_file, candidates
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.CandidateFile, &r.ReferenceFile, &r.GenomeFile, &r.Candidates); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Results returns the stored rows of one table of a run, in insertion order.
func (s *Store) Results(runID string, level Level) ([]reconcile.Row, error) {
	rows, err := s.db.Query(`SELECT candidate_id, reference_id, label
		FROM results WHERE run_id=? AND level=?`, runID, string(level))
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []reconcile.Row
	for rows.Next() {
		var r reconcile.Row
		var label string
		if err := rows.Scan(&r.CandidateID, &r.ReferenceID, &label); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.Label, err = reconcile.ParseLabel(label); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// LabelCounts aggregates one table of a run by label.
func (s *Store) LabelCounts(runID string, level Level) ([]output.LabelCount, error) {
	rows, err := s.db.Query(`SELECT label, count(*) FROM results
		WHERE run_id=? AND level=? GROUP BY label`, runID, string(level))
	if err != nil {
		return nil, fmt.Errorf("query label counts: %w", err)
	}
	defer rows.Close()

	var counts []output.LabelCount
	for rows.Next() {
		var label string
		var n int64
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan label count: %w", err)
		}
		l, err := reconcile.ParseLabel(label)
		if err != nil {
			return nil, err
		}
		counts = append(counts, output.LabelCount{Label: l, Count: int(n)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate label counts: %w", err)
	}
	output.SortCounts(counts)
	return counts, nil
}

// DeleteRun removes a run and its results.
func (s *Store) DeleteRun(runID string) error {
	if _, err := s.db.Exec("DELETE FROM results WHERE run_id=?", runID); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM runs WHERE run_id=?", runID)
	return err
}
