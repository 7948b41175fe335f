package duckdb

import (
	"os"
	"strconv"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// metaEntries renders the fingerprint as key=value pairs under prefix.
func (fp FileFingerprint) metaEntries(prefix string) map[string]string {
	return map[string]string{
		prefix + "_size":    strconv.FormatInt(fp.Size, 10),
		prefix + "_modtime": fp.ModTime.UTC().Format(time.RFC3339Nano),
	}
}
