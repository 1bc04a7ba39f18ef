package profile

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
	KindTemporal    Kind = "temporal"
)

// CoerceOptions controls how string cells are parsed as numbers.
type CoerceOptions struct {
	// DecimalSeparator defaults to '.'.
	DecimalSeparator rune
	// ThousandsSeparator is stripped before parsing when set and different from the decimal separator.
	ThousandsSeparator rune
}

// Frame is the typed, normalized, column-major view of a Dataset.
// Numeric columns hold float64, temporal columns hold time.Time, categorical
// columns keep their original scalars; every column may also hold Missing.
type Frame struct {
	Columns []string
	Kinds   []Kind
	Data    [][]any // Data[col][row]
	NumRows int
}

// Coerce validates d, normalizes missing sentinels on a copy and classifies
// every column. A column converts to numeric or temporal only when all of its
// non-missing values do; anything else stays categorical.
// Slash dates are read day-first, so "03/04/2020" is 3 April 2020;
// month-first input only parses when the day is above 12.
func Coerce(d Dataset, opt CoerceOptions) (*Frame, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	norm := Normalize(d)
	f := &Frame{
		Columns: norm.Columns,
		Kinds:   make([]Kind, len(norm.Columns)),
		Data:    make([][]any, len(norm.Columns)),
		NumRows: len(norm.Rows),
	}
	for j, col := range norm.Columns {
		vals := make([]any, len(norm.Rows))
		for i, r := range norm.Rows {
			vals[i] = r[col]
		}
		f.Kinds[j], f.Data[j] = classify(vals, opt)
	}
	return f, nil
}

// ColumnsOf returns the indexes of columns with the given kind, in column order.
func (f *Frame) ColumnsOf(k Kind) []int {
	var out []int
	for j, kind := range f.Kinds {
		if kind == k {
			out = append(out, j)
		}
	}
	return out
}

// KindOf returns the inferred kind of a column by name.
func (f *Frame) KindOf(name string) (Kind, bool) {
	for j, c := range f.Columns {
		if c == name {
			return f.Kinds[j], true
		}
	}
	return "", false
}

func classify(vals []any, opt CoerceOptions) (Kind, []any) {
	if out, ok := coerceAll(vals, func(v any) (any, bool) { return toFloat(v, opt) }); ok {
		return KindNumeric, out
	}
	if out, ok := coerceAll(vals, func(v any) (any, bool) { return toTime(v) }); ok {
		return KindTemporal, out
	}
	return KindCategorical, vals
}

// coerceAll converts every non-missing value or fails; an all-missing column fails too.
func coerceAll(vals []any, conv func(any) (any, bool)) ([]any, bool) {
	out := make([]any, len(vals))
	converted := 0
	for i, v := range vals {
		if IsMissing(v) {
			out[i] = Missing
			continue
		}
		c, ok := conv(v)
		if !ok {
			return nil, false
		}
		out[i] = c
		converted++
	}
	return out, converted > 0
}

func toFloat(v any, opt CoerceOptions) (any, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case decimal.Decimal:
		f = x.InexactFloat64()
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return nil, false
		}
		f = p
	case string:
		p, ok := parseNumeric(x, opt)
		if !ok {
			return nil, false
		}
		f = p
	default:
		return nil, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

func toTime(v any) (any, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		t, ok := parseTimeMaybe(strings.TrimSpace(x))
		if !ok {
			return nil, false
		}
		return t, true
	}
	return nil, false
}

var timeLayouts = []string{
	time.RFC3339Nano, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
	"2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02 15:04:05",
	"1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string, opt CoerceOptions) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.ContainsRune(raw, '.') {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	// ParseFloat accepts "Inf", "NaN" and hex floats; none of those are data values here.
	if strings.ContainsAny(raw, "xXnNiI") {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
