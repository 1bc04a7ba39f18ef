package profile

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Options configures every stage of a profiling run.
type Options struct {
	Coerce   CoerceOptions
	Outliers OutlierOptions
	Temporal TemporalOptions
}

// DefaultOptions returns the defaults for every stage.
func DefaultOptions() Options {
	return Options{
		Outliers: DefaultOutlierOptions(),
		Temporal: DefaultTemporalOptions(),
	}
}

// Profiler runs the full pipeline. It holds no mutable state and is safe for
// concurrent use.
type Profiler struct {
	opt   Options
	now   func() time.Time
	newID func() string
}

// New returns a Profiler with the given options.
func New(opt Options) *Profiler {
	return &Profiler{opt: opt, now: time.Now, newID: uuid.NewString}
}

// Profile coerces ds, runs every detector over the normalized frame and
// assembles the report. The caller's rows are not modified. The only error is
// a *StructuralError for a dataset that breaks its invariants.
func (p *Profiler) Profile(name string, ds Dataset) (*Report, error) {
	f, err := Coerce(ds, p.opt.Coerce)
	if err != nil {
		return nil, err
	}
	rq := DetectRowQuality(f)

	rep := &Report{
		ID:                p.newID(),
		Table:             name,
		Rows:              f.NumRows,
		Columns:           append([]string{}, f.Columns...),
		GeneratedAt:       p.now().UTC(),
		Insights:          ComposeInsights(f, rq),
		Correlations:      AnalyzeCorrelations(f),
		Anomalies:         []AnomalyRecord{},
		Duplicates:        []RowRecord{},
		MissingData:       map[string]int{},
		LoggedMissingData: []RowRecord{},
	}
	for j, c := range f.Columns {
		if n := rq.MissingCounts[j]; n > 0 {
			rep.MissingData[c] = n
		}
	}
	for _, i := range rq.DuplicateRows {
		rep.Duplicates = append(rep.Duplicates, RowRecord{
			RowIndex: i, Columns: f.Columns, Values: sanitizeRow(f.Columns, ds.Rows[i]),
		})
	}
	for _, i := range rq.MissingRows {
		rep.LoggedMissingData = append(rep.LoggedMissingData, RowRecord{
			RowIndex: i, Columns: f.Columns, Values: sanitizeRow(f.Columns, ds.Rows[i]), Reason: MissingRowReason,
		})
	}

	var acc reasonSet
	for _, i := range rq.MissingRows {
		acc.add(i, Reason{Kind: ReasonMissing})
	}
	for _, i := range rq.DuplicateRows {
		acc.add(i, Reason{Kind: ReasonDuplicate})
	}
	for _, i := range DetectOutliers(f, p.opt.Outliers) {
		acc.add(i, Reason{Kind: ReasonNumericOutlier})
	}
	temporal := CheckTemporal(f, p.opt.Temporal)
	for i, reasons := range temporal {
		for _, r := range reasons {
			acc.add(i, r)
		}
	}
	for _, i := range acc.rows() {
		rep.Anomalies = append(rep.Anomalies, AnomalyRecord{
			RowIndex: i,
			Columns:  f.Columns,
			Values:   sanitizeRow(f.Columns, ds.Rows[i]),
			Reasons:  acc.byRow[i],
		})
	}
	return rep, nil
}

// reasonSet keeps one ordered, duplicate-free reason list per row.
type reasonSet struct {
	byRow map[int][]Reason
}

func (s *reasonSet) add(row int, r Reason) {
	if s.byRow == nil {
		s.byRow = make(map[int][]Reason)
	}
	for _, have := range s.byRow[row] {
		if have == r {
			return
		}
	}
	s.byRow[row] = append(s.byRow[row], r)
}

func (s *reasonSet) rows() []int {
	out := make([]int, 0, len(s.byRow))
	for i := range s.byRow {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
