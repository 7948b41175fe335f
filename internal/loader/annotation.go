package loader

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/maxtico/assess-annotation/internal/genome"
)

// Format is the dialect of the attribute column.
type Format int

const (
	GTF  Format = iota + 1 // key "value"; key "value";
	GFF3                   // key=value;key=value
)

func (f Format) String() string {
	switch f {
	case GTF:
		return "gtf"
	case GFF3:
		return "gff3"
	}
	return "unknown"
}

// ParseFormat converts a format name ("gtf", "gff3" or "gff") to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "gtf":
		return GTF, nil
	case "gff3", "gff":
		return GFF3, nil
	}
	return 0, fmt.Errorf("unknown annotation format %q (want gtf or gff3)", s)
}

// DetectFormat guesses the format from the file name, ignoring a trailing
// .gz. Only .gtf and .gff3 are conclusive; anything else, including a bare
// .gff, gets fallback.
func DetectFormat(path string, fallback Format) Format {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".gz")
	switch {
	case strings.Contains(name, ".gtf"):
		return GTF
	case strings.Contains(name, ".gff3"):
		return GFF3
	}
	return fallback
}

// FormatError reports a malformed annotation line.
type FormatError struct {
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// AnnotationLoader parses a GTF or GFF3 file into an interval table.
type AnnotationLoader struct {
	path   string
	format Format
	source genome.Source
	kinds  []genome.FeatureKind
}

// NewAnnotationLoader creates a loader for one annotation set.
func NewAnnotationLoader(path string, format Format, src genome.Source) *AnnotationLoader {
	return &AnnotationLoader{path: path, format: format, source: src}
}

// SetKinds restricts the loader to the given feature kinds. Rows of other
// kinds are skipped without validation.
func (l *AnnotationLoader) SetKinds(kinds ...genome.FeatureKind) {
	l.kinds = kinds
}

// Load reads the whole file.
func (l *AnnotationLoader) Load() (*genome.Table, error) {
	r, err := openFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("open annotation file: %w", err)
	}
	defer r.Close()

	t, err := l.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.path, err)
	}
	return t, nil
}

// Parse reads annotation records from r.
func (l *AnnotationLoader) Parse(r io.Reader) (*genome.Table, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long attribute columns
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var rows []genome.Interval
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if line == "##FASTA" {
			break
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		iv, keep, err := l.parseLine(line)
		if err != nil {
			return nil, &FormatError{Line: lineNum, Msg: err.Error()}
		}
		if keep {
			rows = append(rows, iv)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read annotation: %w", err)
	}

	return genome.NewTable(rows), nil
}

func (l *AnnotationLoader) wanted(kind genome.FeatureKind) bool {
	if len(l.kinds) == 0 {
		return true
	}
	for _, k := range l.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// parseLine converts one 9-column record to a 0-based half-open interval.
func (l *AnnotationLoader) parseLine(line string) (genome.Interval, bool, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return genome.Interval{}, false, fmt.Errorf("expected 9 fields, got %d", len(fields))
	}

	kind := genome.ParseFeatureKind(fields[2])
	if !l.wanted(kind) {
		return genome.Interval{}, false, nil
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return genome.Interval{}, false, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return genome.Interval{}, false, fmt.Errorf("parse end: %w", err)
	}
	if start < 1 || end < start {
		return genome.Interval{}, false, fmt.Errorf("invalid range %d-%d", start, end)
	}

	strand, ok := genome.ParseStrand(fields[6])
	if !ok {
		return genome.Interval{}, false, fmt.Errorf("invalid strand %q", fields[6])
	}

	iv := genome.NewInterval(fields[0], strand, start-1, end, kind, l.source)
	if l.format == GFF3 {
		iv.Attrs, err = parseGFF3Attributes(fields[8])
		if err != nil {
			return genome.Interval{}, false, err
		}
	} else {
		iv.Attrs = parseGTFAttributes(fields[8])
	}
	return iv, true, nil
}

// parseGTFAttributes parses a GTF attribute column.
// Format: key "value"; key "value"; ...
func parseGTFAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}

		key := part[:idx]
		value := strings.TrimSpace(part[idx+1:])
		attrs[key] = strings.Trim(value, "\"")
	}

	return attrs
}

// parseGFF3Attributes parses a GFF3 attribute column.
// Format: key=value;key=value, with values percent-encoded.
func parseGFF3Attributes(attrStr string) (map[string]string, error) {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		v, err := url.PathUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", key, err)
		}
		attrs[key] = v
	}

	return attrs, nil
}
