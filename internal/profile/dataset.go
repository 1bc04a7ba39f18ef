// Package profile implements the tabular data-quality engine: column type
// inference, missing/duplicate detection, numeric outliers, date plausibility,
// correlations, per-column insights and the JSON-safe report that ties them
// together.
package profile

import (
	"fmt"
	"math"
	"strings"
)

// Row maps column names to scalar values.
type Row map[string]any

// Dataset is an ordered, rectangular collection of rows sharing one column set.
type Dataset struct {
	Columns []string
	Rows    []Row
}

type missingMarker struct{}

func (missingMarker) String() string { return "<missing>" }

// MarshalJSON renders the marker as null.
func (missingMarker) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Missing is the canonical absent value after normalization.
var Missing = missingMarker{}

// IsMissing reports whether v is the canonical missing marker.
func IsMissing(v any) bool {
	_, ok := v.(missingMarker)
	return ok
}

// Validate checks the dataset invariants: unique column names and every row
// carrying exactly the dataset's column set.
func (d Dataset) Validate() error {
	seen := make(map[string]struct{}, len(d.Columns))
	for _, c := range d.Columns {
		if _, ok := seen[c]; ok {
			return &StructuralError{Row: -1, Column: c, Err: ErrDuplicateColumn}
		}
		seen[c] = struct{}{}
	}
	for i, r := range d.Rows {
		if len(r) != len(d.Columns) {
			return &StructuralError{Row: i, Err: fmt.Errorf("%w: has %d fields, want %d", ErrInconsistentRow, len(r), len(d.Columns))}
		}
		for _, c := range d.Columns {
			if _, ok := r[c]; !ok {
				return &StructuralError{Row: i, Column: c, Err: ErrInconsistentRow}
			}
		}
	}
	return nil
}

// Normalize returns a copy of d with every missing sentinel replaced by
// Missing. The caller's rows are left untouched. Normalize is idempotent.
func Normalize(d Dataset) Dataset {
	out := Dataset{
		Columns: append([]string(nil), d.Columns...),
		Rows:    make([]Row, len(d.Rows)),
	}
	for i, r := range d.Rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = normalizeValue(v)
		}
		out.Rows[i] = nr
	}
	return out
}

// normalizeValue folds nil, blank strings, the literal "NULL" and NaN into
// Missing. Byte slices coming from SQL drivers become strings.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return Missing
	case missingMarker:
		return Missing
	case []byte:
		return normalizeValue(string(x))
	case string:
		t := strings.TrimSpace(x)
		if t == "" || t == "NULL" {
			return Missing
		}
		return x
	case float64:
		if math.IsNaN(x) {
			return Missing
		}
	case float32:
		if math.IsNaN(float64(x)) {
			return Missing
		}
	}
	return v
}
