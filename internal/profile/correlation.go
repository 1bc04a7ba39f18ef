package profile

import (
	"encoding/json"
	"math"
)

// CorrelationType tags a correlation entry.
type CorrelationType string

const (
	CorrelationNumeric     CorrelationType = "numeric"
	CorrelationCategorical CorrelationType = "categorical"
)

// Correlation is either a Pearson matrix over all numeric columns or a
// Cramér's V score for one pair of categorical columns. Undefined entries are nil.
type Correlation struct {
	Type    CorrelationType
	Columns []string
	Matrix  [][]*float64 // numeric only
	Score   *float64     // categorical only
}

func (c Correlation) MarshalJSON() ([]byte, error) {
	if c.Type == CorrelationNumeric {
		return json.Marshal(struct {
			Type    CorrelationType `json:"type"`
			Columns []string        `json:"columns"`
			Matrix  [][]*float64    `json:"matrix"`
		}{c.Type, c.Columns, c.Matrix})
	}
	return json.Marshal(struct {
		Type    CorrelationType `json:"type"`
		Columns []string        `json:"columns"`
		Score   *float64        `json:"correlation_score"`
	}{c.Type, c.Columns, c.Score})
}

// AnalyzeCorrelations returns the numeric matrix (when any numeric column
// exists) followed by one entry per unordered pair of categorical columns.
// Numeric and categorical columns are never paired with each other.
func AnalyzeCorrelations(f *Frame) []Correlation {
	out := []Correlation{}
	if f.NumRows == 0 {
		return out
	}
	if num := f.ColumnsOf(KindNumeric); len(num) > 0 {
		out = append(out, pearsonMatrix(f, num))
	}
	cat := f.ColumnsOf(KindCategorical)
	for a := 0; a < len(cat); a++ {
		for b := a + 1; b < len(cat); b++ {
			out = append(out, Correlation{
				Type:    CorrelationCategorical,
				Columns: []string{f.Columns[cat[a]], f.Columns[cat[b]]},
				Score:   cramersV(f.Data[cat[a]], f.Data[cat[b]]),
			})
		}
	}
	return out
}

func pearsonMatrix(f *Frame, cols []int) Correlation {
	names := make([]string, len(cols))
	m := make([][]*float64, len(cols))
	for i, j := range cols {
		names[i] = f.Columns[j]
		m[i] = make([]*float64, len(cols))
	}
	for i := range cols {
		m[i][i] = selfCorrelation(f.Data[cols[i]])
		for k := i + 1; k < len(cols); k++ {
			r := pearson(f.Data[cols[i]], f.Data[cols[k]])
			m[i][k], m[k][i] = r, r
		}
	}
	return Correlation{Type: CorrelationNumeric, Columns: names, Matrix: m}
}

// pearson uses rows where both values are present. It returns nil when fewer
// than two such rows exist or either side is constant over them.
func pearson(xs, ys []any) *float64 {
	var x, y []float64
	for i := range xs {
		a, okA := xs[i].(float64)
		b, okB := ys[i].(float64)
		if okA && okB {
			x = append(x, a)
			y = append(y, b)
		}
	}
	if len(x) < 2 || constant(x) || constant(y) {
		return nil
	}
	// r is scale invariant; unit scaling keeps the sums finite for huge magnitudes
	x, y = unitScale(x), unitScale(y)
	mx, my := mean(x), mean(y)
	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	r := sxy / (math.Sqrt(sxx) * math.Sqrt(syy))
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil
	}
	r = math.Max(-1, math.Min(1, r))
	return &r
}

// selfCorrelation is 1 for a column with at least two distinct present values.
func selfCorrelation(xs []any) *float64 {
	var present []float64
	for _, v := range xs {
		if f, ok := v.(float64); ok {
			present = append(present, f)
		}
	}
	if len(present) < 2 || constant(present) {
		return nil
	}
	one := 1.0
	return &one
}

// cramersV computes sqrt(chi2 / (n * min(r-1, c-1))) over rows where both
// values are present, without continuity correction.
func cramersV(xs, ys []any) *float64 {
	rowIdx := map[string]int{}
	colIdx := map[string]int{}
	type cell struct{ r, c int }
	counts := map[cell]int{}
	n := 0
	for i := range xs {
		if IsMissing(xs[i]) || IsMissing(ys[i]) {
			continue
		}
		rk, ck := valueKey(xs[i]), valueKey(ys[i])
		r, ok := rowIdx[rk]
		if !ok {
			r = len(rowIdx)
			rowIdx[rk] = r
		}
		c, ok := colIdx[ck]
		if !ok {
			c = len(colIdx)
			colIdx[ck] = c
		}
		counts[cell{r, c}]++
		n++
	}
	k := min(len(rowIdx), len(colIdx)) - 1
	if n == 0 || k <= 0 {
		return nil
	}
	rowSum := make([]float64, len(rowIdx))
	colSum := make([]float64, len(colIdx))
	for cl, v := range counts {
		rowSum[cl.r] += float64(v)
		colSum[cl.c] += float64(v)
	}
	var chi2 float64
	for r := range rowSum {
		for c := range colSum {
			e := rowSum[r] * colSum[c] / float64(n)
			d := float64(counts[cell{r, c}]) - e
			chi2 += d * d / e
		}
	}
	v := math.Sqrt(chi2 / (float64(n) * float64(k)))
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	v = math.Max(0, math.Min(1, v))
	return &v
}

func constant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}

// unitScale divides xs in place by its largest absolute value.
func unitScale(xs []float64) []float64 {
	var m float64
	for _, v := range xs {
		m = math.Max(m, math.Abs(v))
	}
	if m == 0 {
		return xs
	}
	for i := range xs {
		xs[i] /= m
	}
	return xs
}

func mean(xs []float64) float64 {
	var s float64
	for _, v := range xs {
		s += v
	}
	return s / float64(len(xs))
}
