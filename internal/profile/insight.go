package profile

// Suggested actions, keyed by whether a column has missing values and whether
// the dataset has duplicate rows.
const (
	ActionFillMissing      = "Fill missing values"
	ActionRemoveDuplicates = "Remove duplicates"
	ActionFillAndDedupe    = "Fill missing values, remove duplicates, and check anomalies."
	ActionNone             = "No suggestions"
)

// Insight summarizes one column. DuplicateRows is the dataset-wide count and
// repeats across every column.
type Insight struct {
	Column            string `json:"column"`
	Type              Kind   `json:"type"`
	MissingValues     int    `json:"missing_values"`
	DuplicateRows     int    `json:"duplicate_rows"`
	MostFrequentValue any    `json:"most_frequent_value"`
	SuggestedAction   string `json:"suggested_action"`
}

// ComposeInsights builds one insight per column from the row-quality findings.
func ComposeInsights(f *Frame, rq RowQuality) []Insight {
	out := []Insight{}
	if f.NumRows == 0 {
		return out
	}
	for j, col := range f.Columns {
		out = append(out, Insight{
			Column:            col,
			Type:              f.Kinds[j],
			MissingValues:     rq.MissingCounts[j],
			DuplicateRows:     rq.DuplicateCount,
			MostFrequentValue: SanitizeValue(mostFrequent(f.Data[j])),
			SuggestedAction:   SuggestAction(rq.MissingCounts[j], rq.DuplicateCount),
		})
	}
	return out
}

// SuggestAction maps missing and duplicate counts to a recommendation.
func SuggestAction(missing, duplicates int) string {
	switch {
	case missing > 0 && duplicates > 0:
		return ActionFillAndDedupe
	case missing > 0:
		return ActionFillMissing
	case duplicates > 0:
		return ActionRemoveDuplicates
	default:
		return ActionNone
	}
}

// mostFrequent returns the modal present value, ties going to the value seen
// first, or nil when every value is missing.
func mostFrequent(vals []any) any {
	counts := make(map[string]int)
	var order []string
	first := make(map[string]any)
	for _, v := range vals {
		if IsMissing(v) {
			continue
		}
		k := valueKey(v)
		if _, ok := counts[k]; !ok {
			order = append(order, k)
			first[k] = v
		}
		counts[k]++
	}
	var best string
	for _, k := range order {
		if best == "" || counts[k] > counts[best] {
			best = k
		}
	}
	if best == "" {
		return nil
	}
	return first[best]
}
