// Package synth generates reproducible messy datasets for trying out the
// profiler: realistic customer records with injected missing values,
// duplicate rows, numeric outliers and out-of-range dates.
package synth

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/KaramelBytes/tabinsight/internal/profile"
)

// Columns of every generated dataset.
var Columns = []string{"id", "name", "city", "email", "age", "income", "signup_date", "active"}

var cities = []string{"Oslo", "Lima", "Rome", "Austin", "Osaka", "Nairobi", "Porto", "Quito"}

// Options controls how much damage is injected.
type Options struct {
	Rows          int
	Seed          int64
	MissingRate   float64 // share of clean rows that lose one field
	DuplicateRate float64 // copies appended, as a share of Rows
	Outliers      int
	BadDates      int
}

// DefaultOptions returns a 500-row dataset with a few of every defect.
func DefaultOptions() Options {
	return Options{Rows: 500, Seed: 42, MissingRate: 0.05, DuplicateRate: 0.02, Outliers: 5, BadDates: 3}
}

// Truth records where defects were injected, as row indexes into the dataset.
type Truth struct {
	MissingRows   []int
	DuplicateRows []int
	OutlierRows   []int
	BadDateRows   []int
}

// Generate builds the dataset. The same options always yield the same rows.
func Generate(opt Options) (profile.Dataset, Truth, error) {
	if opt.Rows < 1 {
		return profile.Dataset{}, Truth{}, fmt.Errorf("rows must be positive, got %d", opt.Rows)
	}
	if opt.Outliers < 0 || opt.BadDates < 0 || opt.Outliers+opt.BadDates > opt.Rows {
		return profile.Dataset{}, Truth{}, fmt.Errorf("cannot inject %d outliers and %d bad dates into %d rows", opt.Outliers, opt.BadDates, opt.Rows)
	}
	faker := gofakeit.New(opt.Seed)
	rng := rand.New(rand.NewSource(opt.Seed))

	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	ds := profile.Dataset{Columns: append([]string(nil), Columns...)}
	for i := 0; i < opt.Rows; i++ {
		ds.Rows = append(ds.Rows, profile.Row{
			"id":          i + 1,
			"name":        faker.Name(),
			"city":        faker.RandomString(cities),
			"email":       faker.Email(),
			"age":         faker.Number(18, 80),
			"income":      math.Round(faker.Float64Range(20000, 120000)*100) / 100,
			"signup_date": faker.DateRange(start, end).Format("2006-01-02"),
			"active":      faker.Bool(),
		})
	}

	var truth Truth
	perm := rng.Perm(opt.Rows)
	tainted := make(map[int]bool)

	for _, i := range perm[:opt.Outliers] {
		ds.Rows[i]["age"] = 400 + rng.Intn(600)
		ds.Rows[i]["income"] = float64(50_000_000 + rng.Intn(50_000_000))
		truth.OutlierRows = append(truth.OutlierRows, i)
		tainted[i] = true
	}
	for _, i := range perm[opt.Outliers : opt.Outliers+opt.BadDates] {
		year := 1700 + rng.Intn(150)
		if rng.Intn(2) == 0 {
			year = 2200 + rng.Intn(300)
		}
		ds.Rows[i]["signup_date"] = fmt.Sprintf("%04d-%02d-%02d", year, 1+rng.Intn(12), 1+rng.Intn(28))
		truth.BadDateRows = append(truth.BadDateRows, i)
		tainted[i] = true
	}

	blankable := []string{"name", "city", "age", "income"}
	for i := range ds.Rows {
		if tainted[i] || rng.Float64() >= opt.MissingRate {
			continue
		}
		ds.Rows[i][blankable[rng.Intn(len(blankable))]] = ""
		truth.MissingRows = append(truth.MissingRows, i)
		tainted[i] = true
	}

	var clean []int
	for i := range ds.Rows {
		if !tainted[i] {
			clean = append(clean, i)
		}
	}
	dups := int(math.Round(opt.DuplicateRate * float64(opt.Rows)))
	for k := 0; k < dups && len(clean) > 0; k++ {
		src := ds.Rows[clean[rng.Intn(len(clean))]]
		cp := make(profile.Row, len(src))
		for c, v := range src {
			cp[c] = v
		}
		truth.DuplicateRows = append(truth.DuplicateRows, len(ds.Rows))
		ds.Rows = append(ds.Rows, cp)
	}

	sort.Ints(truth.OutlierRows)
	sort.Ints(truth.BadDateRows)
	return ds, truth, nil
}

// WriteCSV writes ds with a header row. Missing values become empty fields.
func WriteCSV(w io.Writer, ds profile.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Columns); err != nil {
		return err
	}
	rec := make([]string, len(ds.Columns))
	for _, row := range ds.Rows {
		for j, c := range ds.Columns {
			rec[j] = formatCell(row[c])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes ds to path, replacing any existing file.
func WriteCSVFile(path string, ds profile.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, ds); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	if profile.IsMissing(v) {
		return ""
	}
	return fmt.Sprint(v)
}
