package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReasonKind names the detector that flagged a row.
type ReasonKind string

const (
	ReasonMissing         ReasonKind = "missing"
	ReasonDuplicate       ReasonKind = "duplicate"
	ReasonNumericOutlier  ReasonKind = "numeric_outlier"
	ReasonImplausibleDate ReasonKind = "implausible_date"
)

// MissingRowReason annotates every entry of Report.LoggedMissingData.
const MissingRowReason = "Missing values"

// Reason is one finding on a row. Column is set for implausible dates only.
type Reason struct {
	Kind   ReasonKind
	Column string
}

func (r Reason) String() string {
	if r.Column != "" {
		return fmt.Sprintf("%s(%s)", r.Kind, r.Column)
	}
	return string(r.Kind)
}

// AnomalyRecord is one flagged row with every reason it accumulated.
type AnomalyRecord struct {
	RowIndex int
	Columns  []string
	Values   Row
	Reasons  []Reason
}

// ReasonText joins the reasons with "; ".
func (a AnomalyRecord) ReasonText() string {
	parts := make([]string, len(a.Reasons))
	for i, r := range a.Reasons {
		parts[i] = r.String()
	}
	return strings.Join(parts, "; ")
}

// MarshalJSON emits the row as a flat object: the columns in dataset order,
// then "row_index" and "reason". A column literally named "row_index" or
// "reason" is shadowed by the annotation.
func (a AnomalyRecord) MarshalJSON() ([]byte, error) {
	return marshalFlat(a.Columns, a.Values, a.RowIndex, a.ReasonText())
}

// RowRecord is an unscored row copied into the report, used for duplicates
// and rows with missing fields.
type RowRecord struct {
	RowIndex int
	Columns  []string
	Values   Row
	Reason   string
}

func (r RowRecord) MarshalJSON() ([]byte, error) {
	return marshalFlat(r.Columns, r.Values, r.RowIndex, r.Reason)
}

func marshalFlat(cols []string, vals Row, rowIndex int, reason string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(k string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}
	for _, c := range cols {
		if c == "row_index" || (c == "reason" && reason != "") {
			continue
		}
		if err := write(c, vals[c]); err != nil {
			return nil, err
		}
	}
	if err := write("row_index", rowIndex); err != nil {
		return nil, err
	}
	if reason != "" {
		if err := write("reason", reason); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Report is the JSON-safe result of profiling one dataset.
type Report struct {
	ID                string          `json:"id"`
	Table             string          `json:"table"`
	Rows              int             `json:"rows"`
	Columns           []string        `json:"columns"`
	GeneratedAt       time.Time       `json:"generated_at"`
	Insights          []Insight       `json:"insights"`
	Correlations      []Correlation   `json:"correlations"`
	Anomalies         []AnomalyRecord `json:"anomalies"`
	Duplicates        []RowRecord     `json:"duplicates"`
	MissingData       map[string]int  `json:"missing_data"`
	LoggedMissingData []RowRecord     `json:"logged_missing_data"`
}

// SanitizeValue converts a scalar into a value encoding/json renders without
// loss or failure: Missing and non-finite floats become nil, integers widen to
// int64 (uint64 above MaxInt64), integral decimals become int64 and times are
// formatted as RFC 3339.
func SanitizeValue(v any) any {
	switch x := v.(type) {
	case nil, missingMarker:
		return nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return SanitizeValue(float64(x))
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return sanitizeUint(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return sanitizeUint(x)
	case decimal.Decimal:
		if x.Equal(x.Truncate(0)) && x.Abs().LessThanOrEqual(decimal.NewFromInt(math.MaxInt64)) {
			return x.IntPart()
		}
		return SanitizeValue(x.InexactFloat64())
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return SanitizeValue(f)
		}
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339)
	case []byte:
		return string(x)
	case string, bool:
		return x
	default:
		return fmt.Sprint(v)
	}
}

func sanitizeUint(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

func sanitizeRow(cols []string, r Row) Row {
	out := make(Row, len(cols))
	for _, c := range cols {
		out[c] = SanitizeValue(normalizeValue(r[c]))
	}
	return out
}
