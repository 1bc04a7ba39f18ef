package profile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RowQuality holds the missing-value and duplicate-row findings for a frame.
type RowQuality struct {
	// MissingRows lists rows with at least one missing field, ascending.
	MissingRows []int
	// MissingCounts is aligned with Frame.Columns.
	MissingCounts []int
	// DuplicateRows lists every row that has at least one identical twin, ascending.
	DuplicateRows []int
	// DuplicateCount is the number of rows taking part in any duplicate group.
	DuplicateCount int
}

// DetectRowQuality finds rows with missing fields and duplicate rows.
// Duplicates use keep-none semantics: every member of a group is reported.
func DetectRowQuality(f *Frame) RowQuality {
	rq := RowQuality{MissingCounts: make([]int, len(f.Columns))}
	groups := make(map[string][]int)
	var b strings.Builder
	for i := 0; i < f.NumRows; i++ {
		b.Reset()
		hasMissing := false
		for j := range f.Columns {
			v := f.Data[j][i]
			if IsMissing(v) {
				rq.MissingCounts[j]++
				hasMissing = true
			}
			b.WriteString(valueKey(v))
			b.WriteByte(0x1f)
		}
		if hasMissing {
			rq.MissingRows = append(rq.MissingRows, i)
		}
		if len(f.Columns) > 0 {
			k := b.String()
			groups[k] = append(groups[k], i)
		}
	}
	for _, idx := range groups {
		if len(idx) > 1 {
			rq.DuplicateRows = append(rq.DuplicateRows, idx...)
		}
	}
	sort.Ints(rq.DuplicateRows)
	rq.DuplicateCount = len(rq.DuplicateRows)
	return rq
}

// valueKey renders a normalized value as an equality key. Type tags keep
// "1" (string) and 1 (number) apart.
func valueKey(v any) string {
	switch x := v.(type) {
	case missingMarker:
		return "m"
	case float64:
		return "f:" + strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	case string:
		return "s:" + strconv.Quote(x)
	default:
		return fmt.Sprintf("%T:%#v", v, v)
	}
}
