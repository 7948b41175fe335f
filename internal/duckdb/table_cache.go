package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maxtico/assess-annotation/internal/genome"
)

// TableCache manages a gob-serialized annotation table on disk, stored
// next to other caches in one directory:
//
//	{dir}/{name}.gob       (serialized intervals)
//	{dir}/{name}.gob.meta  (source fingerprint and load options)
type TableCache struct {
	dir  string
	name string
}

// NewTableCache creates a cache entry for the annotation file at source.
// The side ("reference" or "candidate") keeps both inputs apart even when
// they share a base name.
func NewTableCache(dir, side, source string) *TableCache {
	return &TableCache{dir: dir, name: side + "." + filepath.Base(source)}
}

func (tc *TableCache) gobPath() string {
	return filepath.Join(tc.dir, tc.name+".gob")
}

func (tc *TableCache) metaPath() string {
	return filepath.Join(tc.dir, tc.name+".gob.meta")
}

// Valid checks whether the cached table was built from the same source file
// with the same load options.
func (tc *TableCache) Valid(src FileFingerprint, options string) bool {
	meta, err := tc.readMeta()
	if err != nil {
		return false
	}

	want := src.metaEntries("source")
	want["options"] = options
	for k, v := range want {
		if meta[k] != v {
			return false
		}
	}

	if _, err := os.Stat(tc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the serialized table from disk.
func (tc *TableCache) Load() (*genome.Table, error) {
	f, err := os.Open(tc.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open table cache: %w", err)
	}
	defer f.Close()

	var rows []genome.Interval
	if err := gob.NewDecoder(f).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode table cache: %w", err)
	}
	return genome.NewTable(rows), nil
}

// Write serializes the table rows to disk and records the source fingerprint.
func (tc *TableCache) Write(t *genome.Table, src FileFingerprint, options string) error {
	if err := os.MkdirAll(tc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	f, err := os.Create(tc.gobPath())
	if err != nil {
		return fmt.Errorf("create table cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(t.Rows()); err != nil {
		f.Close()
		os.Remove(tc.gobPath())
		return fmt.Errorf("encode table cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close table cache: %w", err)
	}

	return tc.writeMeta(src, options)
}

// Clear removes the cached files.
func (tc *TableCache) Clear() {
	os.Remove(tc.gobPath())
	os.Remove(tc.metaPath())
}

func (tc *TableCache) writeMeta(src FileFingerprint, options string) error {
	entries := src.metaEntries("source")
	entries["options"] = options
	entries["created_at"] = time.Now().UTC().Format(time.RFC3339)

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k + "=" + entries[k] + "\n")
	}
	return os.WriteFile(tc.metaPath(), []byte(b.String()), 0644)
}

func (tc *TableCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(tc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
