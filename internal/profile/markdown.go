package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	mdMaxPairs     = 10
	mdMaxAnomalies = 20
	mdMaxCell      = 80
)

// Markdown renders a compact human-readable version of the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Table != "" {
		fmt.Fprintf(&b, "Table: %s\n", r.Table)
	}
	fmt.Fprintf(&b, "Rows: %d\n", r.Rows)
	fmt.Fprintf(&b, "Columns: %d\n", len(r.Columns))
	fmt.Fprintf(&b, "Duplicate rows: %d\n", len(r.Duplicates))
	fmt.Fprintf(&b, "Rows with missing values: %d\n", len(r.LoggedMissingData))
	fmt.Fprintf(&b, "Anomalous rows: %d\n", len(r.Anomalies))

	if len(r.Insights) > 0 {
		b.WriteString("\n[INSIGHTS]\n")
		for _, in := range r.Insights {
			missPct := 0.0
			if r.Rows > 0 {
				missPct = float64(in.MissingValues) * 100.0 / float64(r.Rows)
			}
			fmt.Fprintf(&b, "- %s: %s (missing %d, %.1f%%)", safeName(in.Column), in.Type, in.MissingValues, missPct)
			if in.MostFrequentValue != nil {
				fmt.Fprintf(&b, "; most frequent: %s", safeVal(fmt.Sprint(in.MostFrequentValue)))
			}
			fmt.Fprintf(&b, "; action: %s\n", in.SuggestedAction)
		}
	}

	r.writeCorrelations(&b)

	if len(r.Anomalies) > 0 {
		b.WriteString("\n[ANOMALIES]\n")
		b.WriteString("| row | ")
		for i, c := range r.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c))
		}
		b.WriteString(" | reason |\n|---|")
		for range r.Columns {
			b.WriteString("---|")
		}
		b.WriteString("---|\n")
		for k, a := range r.Anomalies {
			if k == mdMaxAnomalies {
				fmt.Fprintf(&b, "\n(%d more rows omitted)\n", len(r.Anomalies)-mdMaxAnomalies)
				break
			}
			fmt.Fprintf(&b, "| %d | ", a.RowIndex)
			for i, c := range r.Columns {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if v := a.Values[c]; v != nil {
					val = fmt.Sprint(v)
				}
				if len(val) > mdMaxCell {
					val = val[:mdMaxCell-3] + "..."
				}
				b.WriteString(safeVal(val))
			}
			fmt.Fprintf(&b, " | %s |\n", a.ReasonText())
		}
	}
	return b.String()
}

func (r *Report) writeCorrelations(b *strings.Builder) {
	type pair struct {
		A, B string
		V    float64
		Kind CorrelationType
	}
	var pairs []pair
	for _, c := range r.Correlations {
		switch c.Type {
		case CorrelationNumeric:
			for i := range c.Columns {
				for j := i + 1; j < len(c.Columns); j++ {
					if v := c.Matrix[i][j]; v != nil {
						pairs = append(pairs, pair{c.Columns[i], c.Columns[j], *v, c.Type})
					}
				}
			}
		case CorrelationCategorical:
			if c.Score != nil {
				pairs = append(pairs, pair{c.Columns[0], c.Columns[1], *c.Score, c.Type})
			}
		}
	}
	if len(pairs) == 0 {
		return
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].V) > math.Abs(pairs[j].V)
	})
	b.WriteString("\n[CORRELATIONS]\n")
	for i, p := range pairs {
		if i == mdMaxPairs {
			break
		}
		sym := "r"
		if p.Kind == CorrelationCategorical {
			sym = "V"
		}
		fmt.Fprintf(b, "- %s ~ %s: %s=%.3f\n", safeName(p.A), safeName(p.B), sym, p.V)
	}
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
