package profile

import "time"

// TemporalOptions bounds the plausible calendar years of temporal values.
type TemporalOptions struct {
	MinYear int
	MaxYear int
}

// DefaultTemporalOptions returns the [1900, 2100] plausibility window.
func DefaultTemporalOptions() TemporalOptions {
	return TemporalOptions{MinYear: 1900, MaxYear: 2100}
}

// CheckTemporal flags temporal values whose year falls before MinYear or after
// MaxYear. Each offending column adds its own reason; missing values are skipped.
// A zero TemporalOptions means the default window.
func CheckTemporal(f *Frame, opt TemporalOptions) map[int][]Reason {
	opt = yearWindow(opt)
	out := make(map[int][]Reason)
	for _, j := range f.ColumnsOf(KindTemporal) {
		for i, v := range f.Data[j] {
			t, ok := v.(time.Time)
			if !ok {
				continue
			}
			if y := t.Year(); y < opt.MinYear || y > opt.MaxYear {
				out[i] = append(out[i], Reason{Kind: ReasonImplausibleDate, Column: f.Columns[j]})
			}
		}
	}
	return out
}

func yearWindow(opt TemporalOptions) TemporalOptions {
	if opt == (TemporalOptions{}) {
		return DefaultTemporalOptions()
	}
	return opt
}
