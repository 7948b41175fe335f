package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maxtico/assess-annotation/internal/duckdb"
	"github.com/maxtico/assess-annotation/internal/output"
)

func newSummaryCmd() *cobra.Command {
	var (
		dbPath string
		runID  string
		level  string
	)

	cmd := &cobra.Command{
		Use:   "summary [results.tsv]",
		Short: "Count labels in a results table or a recorded run",
		Example: `  assess-annotation summary labels.tsv
  assess-annotation summary --db runs.duckdb
  assess-annotation summary --db runs.duckdb --run <run-id> --level detailed`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return summarizeFile(cmd, args[0])
			}
			if dbPath == "" {
				return usageErrorf("either a results file or --db is required")
			}
			lvl := duckdb.Level(level)
			if lvl != duckdb.LevelDetailed && lvl != duckdb.LevelAggregate {
				return usageErrorf("invalid level %q (want detailed or aggregate)", level)
			}
			return summarizeRun(cmd, dbPath, runID, lvl)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "DuckDB file with recorded runs")
	cmd.Flags().StringVar(&runID, "run", "", "Run id (default: latest run)")
	cmd.Flags().StringVar(&level, "level", string(duckdb.LevelAggregate), "Result table: detailed or aggregate")

	return cmd
}

func summarizeFile(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := output.ReadResults(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return output.WriteSummary(cmd.OutOrStdout(), output.Summarize(rows))
}

func summarizeRun(cmd *cobra.Command, dbPath, runID string, level duckdb.Level) error {
	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if runID == "" {
		latest, err := store.LatestRun()
		if err != nil {
			return err
		}
		runID = latest.ID
	}

	counts, err := store.LabelCounts(runID, level)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		return fmt.Errorf("run %s has no %s results", runID, level)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s (%s)\n", runID, level)
	return output.WriteSummary(cmd.OutOrStdout(), counts)
}
