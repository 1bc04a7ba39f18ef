package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/KaramelBytes/tabinsight/internal/profile"
)

// CSVOptions configures delimited-text decoding.
type CSVOptions struct {
	// Delimiter defaults to ',' (or tab for .tsv files read through ReadFile).
	Delimiter rune
}

// ReadCSVFile reads a delimited file from disk.
func ReadCSVFile(path string, opt CSVOptions) (profile.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return profile.Dataset{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	return ReadCSV(f, opt)
}

// ReadCSV reads a header row followed by records. Every value is kept as a
// string; short records are padded with empty strings and long ones rejected.
// An empty input yields an empty dataset.
func ReadCSV(r io.Reader, opt CSVOptions) (profile.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return profile.Dataset{}, nil
		}
		return profile.Dataset{}, fmt.Errorf("read header: %w", err)
	}
	ds := profile.Dataset{Columns: uniqueHeaders(header)}
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return profile.Dataset{}, fmt.Errorf("read record %d: %w", line+1, err)
		}
		row, err := toRow(ds.Columns, rec, line)
		if err != nil {
			return profile.Dataset{}, err
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func toRow(cols []string, rec []string, line int) (profile.Row, error) {
	if len(rec) > len(cols) {
		for _, extra := range rec[len(cols):] {
			if extra != "" {
				return nil, &profile.StructuralError{
					Row: line,
					Err: fmt.Errorf("%w: has %d fields, want %d", profile.ErrInconsistentRow, len(rec), len(cols)),
				}
			}
		}
	}
	row := make(profile.Row, len(cols))
	for j, c := range cols {
		if j < len(rec) {
			row[c] = rec[j]
		} else {
			row[c] = ""
		}
	}
	return row, nil
}
