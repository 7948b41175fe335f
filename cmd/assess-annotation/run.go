package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/maxtico/assess-annotation/internal/duckdb"
	"github.com/maxtico/assess-annotation/internal/genome"
	"github.com/maxtico/assess-annotation/internal/loader"
	"github.com/maxtico/assess-annotation/internal/output"
	"github.com/maxtico/assess-annotation/internal/reconcile"
)

// runFlags maps flag names to viper keys.
var runFlags = map[string]string{
	"candidates":          "candidates",
	"reference":           "reference",
	"genome":              "genome",
	"output":              "output",
	"agg":                 "agg",
	"candidate-id-column": "candidate_id_column",
	"reference-id-column": "reference_id_column",
	"stop-codons":         "stop_codons",
	"strand-sensitive":    "strand_sensitive",
	"workers":             "workers",
	"mixed-strand":        "mixed_strand",
	"db":                  "db",
	"cache-dir":           "cache_dir",
	"candidate-format":    "candidate_format",
	"reference-format":    "reference_format",
}

func newRunCmd() *cobra.Command {
	defaults := reconcile.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Label candidate selenoproteins against a reference annotation",
		Example: `  assess-annotation run -s selenoprofiles.gtf -e ensembl.gff3 -f genome.fa -o detailed.tsv --agg labels.tsv
  assess-annotation run -s cand.gtf.gz -e ref.gff3.gz -f genome.fa --db runs.duckdb --cache-dir ~/.assess-annotation/cache`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for flag, key := range runFlags {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssess(cmd)
		},
	}

	f := cmd.Flags()
	f.StringP("candidates", "s", "", "Candidate annotation (GTF/GFF3, optionally gzipped)")
	f.StringP("reference", "e", "", "Reference annotation (GTF/GFF3, optionally gzipped)")
	f.StringP("genome", "f", "", "Genome FASTA file")
	f.StringP("output", "o", "", "Detailed output file (default: stdout)")
	f.String("agg", "", "Aggregated output file, one row per candidate")
	f.String("candidate-id-column", defaults.CandidateIDColumn, "Attribute grouping candidate intervals into transcripts")
	f.String("reference-id-column", defaults.ReferenceIDColumn, "Attribute grouping reference intervals into transcripts")
	f.StringSlice("stop-codons", defaults.StopCodons, "Codons trimmed from reference 3' ends")
	f.Bool("strand-sensitive", defaults.StrandSensitive, "Only overlap intervals on the same strand")
	f.Int("workers", 0, "Classification workers (0: number of CPUs)")
	f.String("mixed-strand", defaults.MixedStrand.String(), "Transcripts spanning both strands: abort or skip")
	f.String("db", "", "DuckDB file to record the run in")
	f.String("cache-dir", "", "Directory for parsed annotation caches")
	f.String("candidate-format", "", "Candidate format: gtf or gff3 (default: GTF if the name contains .gtf, else GFF3)")
	f.String("reference-format", "", "Reference format: gtf or gff3 (default: GFF3 if the name contains .gff3, else GTF)")

	return cmd
}

func runAssess(cmd *cobra.Command) error {
	candPath := viper.GetString("candidates")
	refPath := viper.GetString("reference")
	genomePath := viper.GetString("genome")
	if candPath == "" || refPath == "" || genomePath == "" {
		return usageErrorf("--candidates, --reference and --genome are required")
	}

	policy, err := reconcile.ParseMixedStrandPolicy(viper.GetString("mixed_strand"))
	if err != nil {
		return &usageError{err: err}
	}
	stops, err := reconcile.ParseStopCodons(viper.GetStringSlice("stop_codons"))
	if err != nil {
		return &usageError{err: err}
	}
	refFormat, err := resolveFormat(refPath, viper.GetString("reference_format"), loader.GTF)
	if err != nil {
		return err
	}
	candFormat, err := resolveFormat(candPath, viper.GetString("candidate_format"), loader.GFF3)
	if err != nil {
		return err
	}

	logger, err := newLogger(viper.GetString("log_level"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	seq, err := loader.LoadGenome(genomePath)
	if err != nil {
		return err
	}
	logger.Info("loaded genome", zap.String("path", genomePath), zap.Int("sequences", seq.SequenceCount()))

	cacheDir := viper.GetString("cache_dir")
	refs, err := loadTable(refPath, "reference", genome.Reference, refFormat, cacheDir, logger)
	if err != nil {
		return err
	}
	cands, err := loadTable(candPath, "candidate", genome.Candidate, candFormat, cacheDir, logger)
	if err != nil {
		return err
	}

	cfg := reconcile.Config{
		CandidateIDColumn: viper.GetString("candidate_id_column"),
		ReferenceIDColumn: viper.GetString("reference_id_column"),
		StopCodons:        stops,
		StrandSensitive:   viper.GetBool("strand_sensitive"),
		Workers:           viper.GetInt("workers"),
		MixedStrand:       policy,
	}
	eng, err := reconcile.NewEngine(seq, cfg)
	if err != nil {
		return &usageError{err: err}
	}
	eng.SetLogger(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := eng.Run(ctx, cands, refs)
	if err != nil {
		return err
	}

	if err := writeRows(viper.GetString("output"), cmd.OutOrStdout(), res.Detailed); err != nil {
		return err
	}
	if agg := viper.GetString("agg"); agg != "" {
		if err := writeRows(agg, nil, res.Aggregate); err != nil {
			return err
		}
	}

	if dbPath := viper.GetString("db"); dbPath != "" {
		if err := recordRun(ctx, dbPath, candPath, refPath, genomePath, res, logger); err != nil {
			return err
		}
	}

	logger.Info("done",
		zap.Int("candidates", len(res.Aggregate)),
		zap.Int("detailed_rows", len(res.Detailed)),
		zap.Int("orphan_markers", res.Stats.OrphanMarkers),
		zap.Int("skipped_transcripts", res.Stats.SkippedTranscripts))
	return nil
}

// resolveFormat parses an explicit format name, or detects the format from
// the file name.
func resolveFormat(path, name string, fallback loader.Format) (loader.Format, error) {
	if name == "" {
		return loader.DetectFormat(path, fallback), nil
	}
	format, err := loader.ParseFormat(name)
	if err != nil {
		return 0, &usageError{err: err}
	}
	return format, nil
}

// loadTable reads an annotation file, going through the table cache when
// cacheDir is set.
func loadTable(path, side string, src genome.Source, format loader.Format, cacheDir string, logger *zap.Logger) (*genome.Table, error) {
	l := loader.NewAnnotationLoader(path, format, src)
	l.SetKinds(genome.KindCDS, genome.KindSelenocysteine)

	if cacheDir == "" {
		return l.Load()
	}

	fp, err := duckdb.StatFile(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s annotation: %w", side, err)
	}
	tc := duckdb.NewTableCache(cacheDir, side, path)
	options := format.String()

	if tc.Valid(fp, options) {
		t, err := tc.Load()
		if err == nil {
			logger.Info("loaded cached annotation", zap.String("side", side), zap.Int("rows", t.Len()))
			return t, nil
		}
		logger.Warn("ignoring unreadable annotation cache", zap.String("side", side), zap.Error(err))
	}

	t, err := l.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("loaded annotation", zap.String("side", side), zap.String("path", path), zap.Int("rows", t.Len()))

	if err := tc.Write(t, fp, options); err != nil {
		logger.Warn("could not write annotation cache", zap.String("side", side), zap.Error(err))
	}
	return t, nil
}

// writeRows writes a result table to path, or to fallback when path is empty.
func writeRows(path string, fallback io.Writer, rows []reconcile.Row) error {
	if path == "" {
		return output.NewResultWriter(fallback).WriteAll(rows)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := output.NewResultWriter(f).WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func recordRun(ctx context.Context, dbPath, candPath, refPath, genomePath string, res *reconcile.Result, logger *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.WriteRun(duckdb.RunInfo{
		CandidateFile: candPath,
		ReferenceFile: refPath,
		GenomeFile:    genomePath,
	}, res)
	if err != nil {
		return err
	}
	logger.Info("recorded run", zap.String("db", dbPath), zap.String("run_id", id))
	return nil
}
