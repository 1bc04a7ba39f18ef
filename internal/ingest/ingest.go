// Package ingest turns uploaded CSV, TSV and XLSX files into profile datasets.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabinsight/internal/profile"
)

var (
	// ErrUnsupportedFormat is returned for files that are not .csv, .tsv or .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrSheetNotFound is returned when a named worksheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")
)

// Options selects how a file is decoded.
type Options struct {
	CSV CSVOptions
	// SheetName picks an XLSX worksheet by name (case-insensitive).
	SheetName string
	// SheetIndex picks an XLSX worksheet by its 1-based sheetId when SheetName is empty.
	SheetIndex int
}

// Supported reports whether name has an extension ingest can read.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".xlsx":
		return true
	}
	return false
}

// ReadFile loads a dataset from disk, dispatching on the file extension.
func ReadFile(path string, opt Options) (profile.Dataset, error) {
	if !Supported(path) {
		return profile.Dataset{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return profile.Dataset{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Read(path, data, opt)
}

// Read decodes an in-memory file. name is only used for its extension and in errors.
func Read(name string, data []byte, opt Options) (profile.Dataset, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv":
		if opt.CSV.Delimiter == 0 {
			opt.CSV.Delimiter = sniffDelimiter(name)
		}
		return ReadCSV(bytes.NewReader(data), opt.CSV)
	case ".xlsx":
		ds, err := ReadXLSX(bytes.NewReader(data), int64(len(data)), opt.SheetName, opt.SheetIndex)
		if err != nil {
			return profile.Dataset{}, fmt.Errorf("%s: %w", filepath.Base(name), err)
		}
		return ds, nil
	}
	return profile.Dataset{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(name))
}

// TableNameFromFile derives a table name from an uploaded file name: the base
// name without extension, with spaces replaced by underscores.
func TableNameFromFile(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return SanitizeColumnName(base)
}

// SanitizeColumnName replaces runs of whitespace with a single underscore.
func SanitizeColumnName(name string) string {
	return strings.Join(strings.Fields(name), "_")
}

// SanitizeDataset renames every column with SanitizeColumnName so the dataset
// can be stored as a table. Names that collide after renaming get numeric suffixes.
func SanitizeDataset(ds profile.Dataset) profile.Dataset {
	raw := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		raw[i] = SanitizeColumnName(c)
	}
	names := uniqueHeaders(raw)
	out := profile.Dataset{Columns: names, Rows: make([]profile.Row, len(ds.Rows))}
	for i, r := range ds.Rows {
		nr := make(profile.Row, len(names))
		for j, c := range ds.Columns {
			nr[names[j]] = r[c]
		}
		out.Rows[i] = nr
	}
	return out
}

// uniqueHeaders trims header cells, names blank ones column_<n> (1-based) and
// suffixes repeats with _2, _3 and so on.
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		cand := name
		for n := 2; used[cand]; n++ {
			cand = name + "_" + strconv.Itoa(n)
		}
		used[cand] = true
		out[i] = cand
	}
	return out
}

func sniffDelimiter(name string) rune {
	if strings.EqualFold(filepath.Ext(name), ".tsv") {
		return '\t'
	}
	return ','
}
