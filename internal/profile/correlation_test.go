package profile

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestPearsonMatrix(t *testing.T) {
	ds := Dataset{Columns: []string{"x", "up", "down", "flat"}}
	for i := 1; i <= 4; i++ {
		ds.Rows = append(ds.Rows, Row{"x": i, "up": 2 * i, "down": 5 - i, "flat": 5})
	}
	ds.Rows = append(ds.Rows, Row{"x": "", "up": 100, "down": "", "flat": 5})
	f, err := Coerce(ds, CoerceOptions{})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	corr := AnalyzeCorrelations(f)
	if len(corr) != 1 || corr[0].Type != CorrelationNumeric {
		t.Fatalf("correlations = %#v", corr)
	}
	m := corr[0].Matrix
	for i := range m {
		for j := range m {
			if (m[i][j] == nil) != (m[j][i] == nil) || (m[i][j] != nil && *m[i][j] != *m[j][i]) {
				t.Fatalf("matrix not symmetric at %d,%d", i, j)
			}
		}
	}
	for i := 0; i < 3; i++ {
		if m[i][i] == nil || *m[i][i] != 1 {
			t.Fatalf("diagonal %d = %v", i, m[i][i])
		}
	}
	if m[3][3] != nil || m[0][3] != nil {
		t.Fatalf("constant column should be null: %v %v", m[3][3], m[0][3])
	}
	// pairwise-complete: the last row is ignored for x ~ up
	if !almostEqual(*m[0][1], 1, 1e-12) {
		t.Fatalf("r(x, up) = %v", *m[0][1])
	}
	if !almostEqual(*m[0][2], -1, 1e-12) {
		t.Fatalf("r(x, down) = %v", *m[0][2])
	}
}

func TestPearsonHugeMagnitudes(t *testing.T) {
	ds := Dataset{Columns: []string{"x", "y", "z"}}
	for i := 1; i <= 5; i++ {
		ds.Rows = append(ds.Rows, Row{"x": float64(i) * 1e200, "y": float64(i) * 2e200, "z": math.MaxFloat64 / float64(i)})
	}
	f, err := Coerce(ds, CoerceOptions{})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	m := AnalyzeCorrelations(f)[0].Matrix
	if m[0][1] == nil || !almostEqual(*m[0][1], 1, 1e-12) {
		t.Fatalf("r(x, y) = %v, want 1", m[0][1])
	}
	if m[0][2] == nil || *m[0][2] >= 0 {
		t.Fatalf("r(x, z) = %v, want negative", m[0][2])
	}
}

func TestPearsonNeedsTwoSharedRows(t *testing.T) {
	ds := Dataset{
		Columns: []string{"a", "b"},
		Rows:    []Row{{"a": 1, "b": ""}, {"a": 2, "b": ""}, {"a": 3, "b": 7}, {"a": "", "b": 8}},
	}
	f, _ := Coerce(ds, CoerceOptions{})
	m := AnalyzeCorrelations(f)[0].Matrix
	if m[0][1] != nil {
		t.Fatalf("r(a, b) = %v, want null", *m[0][1])
	}
	if m[1][1] == nil {
		t.Fatalf("b has two distinct values, diagonal should be 1")
	}
}

func TestCramersV(t *testing.T) {
	tests := []struct {
		name string
		a, b []any
		want *float64
	}{
		{"perfect", []any{"A", "A", "B", "B"}, []any{"X", "X", "Y", "Y"}, ptr(1)},
		{"independent", []any{"A", "A", "B", "B"}, []any{"X", "Y", "X", "Y"}, ptr(0)},
		{"single category", []any{"A", "B", "A", "B"}, []any{"X", "X", "X", "X"}, nil},
		{"all missing", []any{Missing, Missing}, []any{"X", "Y"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cramersV(tt.a, tt.b)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if got != nil && !almostEqual(*got, *tt.want, 1e-12) {
				t.Fatalf("got %v, want %v", *got, *tt.want)
			}
		})
	}
}

func TestCramersVBounded(t *testing.T) {
	a := []any{"r", "g", "b", "r", "g", "b", "r", "r", "g", Missing}
	b := []any{1, 2, 3, 1, 1, 2, 3, 2, 2, 1}
	v := cramersV(a, b)
	if v == nil {
		t.Fatalf("expected a score")
	}
	if *v < 0 || *v > 1 || math.IsNaN(*v) {
		t.Fatalf("score out of range: %v", *v)
	}
}

func TestCorrelationJSON(t *testing.T) {
	ds := Dataset{
		Columns: []string{"n", "c1", "c2"},
		Rows: []Row{
			{"n": 1, "c1": "a", "c2": "x"},
			{"n": 2, "c1": "b", "c2": "x"},
		},
	}
	f, _ := Coerce(ds, CoerceOptions{})
	b, err := json.Marshal(AnalyzeCorrelations(f))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `[{"type":"numeric","columns":["n"],"matrix":[[1]]},{"type":"categorical","columns":["c1","c2"],"correlation_score":null}]`
	if string(b) != want {
		t.Fatalf("json = %s\nwant %s", b, want)
	}
	if strings.Contains(string(b), "NaN") {
		t.Fatalf("non-finite value leaked: %s", b)
	}
}

func ptr(v float64) *float64 { return &v }

func almostEqual(a, b, eps float64) bool { return math.Abs(a-b) <= eps }
