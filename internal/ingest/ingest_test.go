package ingest

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/tabinsight/internal/profile"
)

var csvRows = []string{
	"Group;Concentration (g/L);Temp (°F);Score;LocaleNumber;Category;Note",
	"A;0,5;70;10,0;1.000,0;alpha;first",
	"A;0,6;71;11,0;1.100,0;alpha;second",
	"A;0,55;69;9,5;0.900,0;beta;third",
	"B;0,7;75;10,5;1.050,0;alpha;fourth",
	"B;0,65;74;9,8;0.980,0;beta;fifth",
	"B;0,68;73;10,2;1.020,0;alpha;sixth",
	"A;0,52;68;8,8;0.880,0;gamma;seventh",
	"B;0,75;76;9,7;0.970,0;beta;eighth",
	"A;3,0;95;50,0;5.000,0;alpha;ninth",
	"B;0,66;72;10,1;1.010,0;gamma;tenth",
}

var wantHeader = []string{"Group", "Concentration (g/L)", "Temp (°F)", "Score", "LocaleNumber", "Category", "Note"}

const xlsxFixtureBase64 = `
UEsDBBQAAAAIAMEwN1vYAxPv/wAAALYCAAATABwAW0NvbnRlbnRfVHlwZXNdLnhtbFVUCQADyjjSaMo40mh1eAsAAQQAAAAABAAAAAC1ks1OwzAQhO95CsvX
Kt60B4RQkh74OQKH8gDG3iRW/CfbLeHtcVIEEqIIpHJaWTOz32jlejsZTQ4YonK2oWtWUYJWOKls39Cn3V15SbdtUe9ePUaSvTY2dEjJXwFEMaDhkTmPNiud
C4an/Aw9eC5G3iNsquoChLMJbSrTvIO2BSH1DXZ8rxO5nbJyRAfUkZLro3fGNZR7r5XgKetwsPILqHyHsJxcPHFQPq6ygcIpyCyeZnxGH/JFgpJIHnlI99xk
I0waXlwYn50b2c97vunquk4JlE7sTY6w6ANyGQfEZDRbJjNc2dWvKiz+CMtYn7nLx/6/V9n8d5Ualm/YFm9QSwMECgAAAAAAxDA3WwAAAAAAAAAAAAAAAAMA
HAB4bC9VVAkAA9A40mjyONJodXgLAAEEAAAAAAQAAAAAUEsDBBQAAAAIAMQwN1tM2kS6xQAAAEkBAAAPABwAeGwvd29ya2Jvb2sueG1sVVQJAAPQONJo0DjS
aHV4CwABBAAAAAAEAAAAAI1Qu27DMAzc/RUC90aOhyIwZGcJAnhvP0CxaVuIRRqk+vj8qjEMZOjQ7Y7k3ZF05++4mE8UDUwNHA8lGKSeh0BTA+9v15cTnNvC
fbHcb8x3k8dJG5hTWmtrtZ8xej3wipQ7I0v0KVOZrK6CftAZMcXFVmX5aqMPBJtDLf/x4HEMPV64/4hIaTMRXHzKy+ocVoW2MMY9QvQX7sSQj9hANxELgnnU
uiHfB0bqkIF0wxHsH5KLT/5JUD0Jqk3g7J7n7P6WtvgBUEsDBAoAAAAAANIwN1sAAAAAAAAAAAAAAAAOABwAeGwvd29ya3NoZWV0cy9VVAkAA+s40mjyONJo
dXgLAAEEAAAAAAQAAAAAUEsDBBQAAAAIANIwN1u3fFZsqwIAAIASAAAYABwAeGwvd29ya3NoZWV0cy9zaGVldDIueG1sVVQJAAPrONJo6zjSaHV4CwABBAAA
AAAEAAAAAJ3YT26bQBiH4X1OgVilkguD/wEVJkoMzibKJukBJngMqGYGDeMkvVXP0JN1nEhVQ/r7QCxx/BDsV9/gIbl6bY7Os9BdreTGDTzmOkIWal/LcuN+
f9x9jdyr9CJ5UfpHVwlhHPt+2W3cypj2m+93RSUa3nmqFdL+5aB0w4091KXftVrw/Rtqjv6csbXf8Fq66YXjJG8vZ9zw85E91urF0fb/u+/H9pXifHwduI7Z
uLU81lI8GO2mSd2liUlvtTq1iW/SxD+/4Bcf3Q1yWyULIY3mxn5e57L0777gs2zRWR5F0zqXv3/tCJwh/FAoLbDLkbtTBT+K+1PzJDTmO/jJuRGl0j8xvUX0
Xpn/XHDi22gf8837+ebgjNdEOmTYbEWkQipkRCKEAjYjWA6Zxxgpd0jyY1txogxyh1p3ZlSaRT/NYkIaZNhsTaRBKgyINAgFAZkGMi8YSIPkUBrkOlEouR/V
Ztlvs5zQBhk7NtTcILaOiTgIxdSI5vAKvXigDZJPwlBpEDNVrceVWfXLrMApb4gyyLBZSIRBKiS+4gyhgFw8c8g8tqLLIDk0Ncgd1EmbalSbdb/NekIbZOyK
Rk0NYuGSiINQPIuINvAKvTii2yA5MDWIHerDyDJhv0w4oQwytgzxdW0RCxdEGYTs2MyJNJB5bE6nQXJobJDr6teRbaJ+m2jCvQYZu8oQ39cWMSpohlBETg28
Qi8amBokS940VBrkOvFsNxzj4sT9OPGEwUHG3m6oJQ2xkPhplyEUU7e2HF6hF4d0HCQHljTERF1WI9ME7NPWlE2YHIgW1OfeQhZTvwagom/qOXaDGxxIh1Y2
CGU9dnqCz08P0I6Wmh+I7J2H2uZAFxJrYgaVvfcQ+6McO4/R29cdpENLHIRmYIVL/H+e9yT+34dJ6cUfUEsDBBQAAAAIAMcwN1sqMey0swAAAPgAAAAYABwA
eGwvd29ya3NoZWV0cy9zaGVldDEueG1sVVQJAAPWONJo1jjSaHV4CwABBAAAAAAEAAAAAE2P3WrDMAxG7/MURverkl6MUhyXwegLrHsA46iNqf+QxbLHr5OO
0cvzSfoO0qffGNQPcfU5jTDselCUXJ58uo3wfTm/HeBkOr1kvteZSFTbT3WEWaQcEaubKdq6y4VSm1wzRysN+Ya1MNlpO4oB933/jtH6BKZTSm/xpxW7UmPO
i+Lmhye3xK38MYCSEXwKPtGXMBjtq9FiSrCO5hwmYo1iNK4xur82bHWbBl88Gv+fMN0DUEsDBAoAAAAAAMYwN1sAAAAAAAAAAAAAAAAJABwAeGwvX3JlbHMv
VVQJAAPTONJo8jjSaHV4CwABBAAAAAAEAAAAAFBLAwQUAAAACADGMDdbCmPblLYAAACtAQAAGgAcAHhsL19yZWxzL3dvcmtib29rLnhtbC5yZWxzVVQJAAPT
ONJo0zjSaHV4CwABBAAAAAAEAAAAAL2QSwrCMBBA9z1FmL2dtgsRadqNCN1KPUBIpx/aJiGJv9sbBMWCgitXw/zePCYvr/PEzmTdoBWHNE6AkZK6GVTH4Vjv
Vxsoiyg/0CR8GHH9YBwLO8px6L03W0Qne5qFi7UhFTqttrPwIbUdGiFH0RFmSbJG+86AImJsgWVVw8FWTQqsvhn6Ba/bdpC00/I0k/IfruBF29H1RD5Ahe3I
c3iVHD5CGgcq4Fef7M8+2dMnx8XXi+gOUEsDBAoAAAAAAMMwN1sAAAAAAAAAAAAAAAAGABwAX3JlbHMvVVQJAAPNONJo8jjSaHV4CwABBAAAAAAEAAAAAFBL
AwQUAAAACADDMDdbDxvLDKoAAAAcAQAACwAcAF9yZWxzLy5yZWxzVVQJAAPNONJozTjSaHV4CwABBAAAAAAEAAAAAI3PsQ6CMBAG4J2naG6XgoMxxsJiTFgN
PkAtRyHQXtNWxbe3oxgHx8v9913+Y72YmT3Qh5GsgDIvgKFV1I1WC7i2580e6io7XnCWMUXCMLrA0o0NAoYY3YHzoAY0MuTk0KZNT97ImEavuZNqkhr5tih2
3H8aUGWMrVjWdAJ805XA2pfDf3jq+1HhidTdoI0/vnwlkiy9xihgmfmT/HQjmvKEAk8d+apklb0BUEsBAh4DFAAAAAgAwTA3W9gDE+//AAAAtgIAABMAGAAA
AAAAAQAAAKSBAAAAAFtDb250ZW50X1R5cGVzXS54bWxVVAUAA8o40mh1eAsAAQQAAAAABAAAAABQSwECHgMKAAAAAADEMDdbAAAAAAAAAAAAAAAAAwAYAAAA
AAAAABAA7UFMAQAAeGwvVVQFAAPQONJodXgLAAEEAAAAAAQAAAAAUEsBAh4DFAAAAAgAxDA3W0zaRLrFAAAASQEAAA8AGAAAAAAAAQAAAKSBiQEAAHhsL3dv
cmtib29rLnhtbFVUBQAD0DjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAwoAAAAAANIwN1sAAAAAAAAAAAAAAAAOABgAAAAAAAAAEADtQZcCAAB4bC93b3Jrc2hl
ZXRzL1VUBQAD6zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAxQAAAAIANIwN1u3fFZsqwIAAIASAAAYABgAAAAAAAEAAACkgd8CAAB4bC93b3Jrc2hlZXRzL3No
ZWV0Mi54bWxVVAUAA+s40mh1eAsAAQQAAAAABAAAAABQSwECHgMUAAAACADHMDdbKjHstLMAAAD4AAAAGAAYAAAAAAABAAAApIHcBQAAeGwvd29ya3NoZWV0
cy9zaGVldDEueG1sVVQFAAPWONJodXgLAAEEAAAAAAQAAAAAUEsBAh4DCgAAAAAAxjA3WwAAAAAAAAAAAAAAAAkAGAAAAAAAAAAQAO1B4QYAAHhsL19yZWxz
L1VUBQAD0zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAxQAAAAIAMYwN1sKY9uUtgAAAK0BAAAaABgAAAAAAAEAAACkgSQHAAB4bC9fcmVscy93b3JrYm9vay54
bWwucmVsc1VUBQAD0zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAwoAAAAAAMMwN1sAAAAAAAAAAAAAAAAGABgAAAAAAAAAEADtQS4IAABfcmVscy9VVAUAA804
0mh1eAsAAQQAAAAABAAAAABQSwECHgMUAAAACADDMDdbDxvLDKoAAAAcAQAACwAYAAAAAAABAAAApIFuCAAAX3JlbHMvLnJlbHNVVAUAA8040mh1eAsAAQQA
AAAABAAAAABQSwUGAAAAAAoACgBTAwAAXQkAAAAA
`

func TestReadCSVWithLocaleNumbers(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(strings.Join(csvRows, "\n")), CSVOptions{Delimiter: ';'})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	assertFixture(t, ds)

	f, err := profile.Coerce(ds, profile.CoerceOptions{DecimalSeparator: ',', ThousandsSeparator: '.'})
	if err != nil {
		t.Fatalf("Coerce: %v", err)
	}
	for _, col := range []string{"Concentration (g/L)", "Temp (°F)", "Score", "LocaleNumber"} {
		if k, _ := f.KindOf(col); k != profile.KindNumeric {
			t.Fatalf("%s kind = %s, want numeric", col, k)
		}
	}
	if k, _ := f.KindOf("Category"); k != profile.KindCategorical {
		t.Fatalf("Category kind = %s", k)
	}
}

func TestReadCSVFileSniffsTSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tsv")
	if err := os.WriteFile(path, []byte("a\tb\n1\t2\n3\n"), 0o644); err != nil {
		t.Fatalf("write tsv: %v", err)
	}
	ds, err := ReadCSVFile(path, CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSVFile: %v", err)
	}
	if !reflect.DeepEqual(ds.Columns, []string{"a", "b"}) {
		t.Fatalf("columns = %v", ds.Columns)
	}
	// short rows are padded
	if ds.Rows[1]["b"] != "" {
		t.Fatalf("row 1 = %#v", ds.Rows[1])
	}
	if err := ds.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestReadCSVRejectsLongRows(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,2,3\n"), CSVOptions{})
	if !errors.Is(err, profile.ErrInconsistentRow) {
		t.Fatalf("err = %v, want ErrInconsistentRow", err)
	}
	// trailing empty fields are tolerated
	ds, err := ReadCSV(strings.NewReader("a,b\n1,2,\n"), CSVOptions{})
	if err != nil || len(ds.Rows) != 1 {
		t.Fatalf("trailing delimiter: %v %v", ds, err)
	}
}

func TestReadCSVEmptyAndHeaders(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	if err != nil || len(ds.Columns) != 0 || len(ds.Rows) != 0 {
		t.Fatalf("empty input = %#v, %v", ds, err)
	}
	ds, err = ReadCSV(strings.NewReader("id,,id, name \n1,2,3,4\n"), CSVOptions{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	want := []string{"id", "column_2", "id_2", "name"}
	if !reflect.DeepEqual(ds.Columns, want) {
		t.Fatalf("columns = %v, want %v", ds.Columns, want)
	}
	if ds.Rows[0]["id_2"] != "3" {
		t.Fatalf("row = %#v", ds.Rows[0])
	}
}

func TestReadXLSXSheetSelection(t *testing.T) {
	data := xlsxFixture(t)

	byName, err := ReadXLSX(bytes.NewReader(data), int64(len(data)), "data", 0)
	if err != nil {
		t.Fatalf("ReadXLSX name: %v", err)
	}
	assertFixture(t, byName)

	byIndex, err := ReadXLSX(bytes.NewReader(data), int64(len(data)), "", 2)
	if err != nil {
		t.Fatalf("ReadXLSX index: %v", err)
	}
	assertFixture(t, byIndex)

	first, err := ReadXLSX(bytes.NewReader(data), int64(len(data)), "", 0)
	if err != nil {
		t.Fatalf("ReadXLSX default: %v", err)
	}
	if !reflect.DeepEqual(first.Columns, []string{"placeholder"}) || len(first.Rows) != 0 {
		t.Fatalf("first sheet = %#v", first)
	}

	_, err = ReadXLSX(bytes.NewReader(data), int64(len(data)), "Nope", 0)
	if !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("err = %v, want ErrSheetNotFound", err)
	}
	if !strings.Contains(err.Error(), "Ignore, Data") {
		t.Fatalf("error does not list sheets: %v", err)
	}
}

func TestReadFileDispatch(t *testing.T) {
	dir := t.TempDir()
	xlsxPath := filepath.Join(dir, "analysis dataset.xlsx")
	if err := os.WriteFile(xlsxPath, xlsxFixture(t), 0o644); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	ds, err := ReadFile(xlsxPath, Options{SheetName: "Data"})
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	assertFixture(t, ds)

	_, err = ReadFile(filepath.Join(dir, "notes.txt"), Options{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if got := TableNameFromFile(xlsxPath); got != "analysis_dataset" {
		t.Fatalf("TableNameFromFile = %q", got)
	}
}

func TestSanitizeDataset(t *testing.T) {
	ds := profile.Dataset{
		Columns: []string{"first name", "first_name", "age"},
		Rows:    []profile.Row{{"first name": "a", "first_name": "b", "age": "3"}},
	}
	got := SanitizeDataset(ds)
	want := []string{"first_name", "first_name_2", "age"}
	if !reflect.DeepEqual(got.Columns, want) {
		t.Fatalf("columns = %v, want %v", got.Columns, want)
	}
	if got.Rows[0]["first_name"] != "a" || got.Rows[0]["first_name_2"] != "b" {
		t.Fatalf("row = %#v", got.Rows[0])
	}
	if ds.Columns[0] != "first name" {
		t.Fatalf("input mutated")
	}
}

func TestXLSXHelpers(t *testing.T) {
	paths := []struct{ in, want string }{
		{"/xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"xl/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"/worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"worksheets/sheet1.xml", "xl/worksheets/sheet1.xml"},
		{"styles.xml", "xl/styles.xml"},
	}
	for _, tt := range paths {
		if got := normalizeRelPath(tt.in); got != tt.want {
			t.Errorf("normalizeRelPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	refs := map[string]int{"A1": 0, "C12": 2, "Z3": 25, "AA1": 26, "ab7": 27}
	for ref, want := range refs {
		if got := colIndexFromRef(ref); got != want {
			t.Errorf("colIndexFromRef(%q) = %d, want %d", ref, got, want)
		}
	}
}

func assertFixture(t *testing.T, ds profile.Dataset) {
	t.Helper()
	if !reflect.DeepEqual(ds.Columns, wantHeader) {
		t.Fatalf("columns = %#v, want %#v", ds.Columns, wantHeader)
	}
	if len(ds.Rows) != 10 {
		t.Fatalf("rows = %d, want 10", len(ds.Rows))
	}
	first := []string{"A", "0,5", "70", "10,0", "1.000,0", "alpha", "first"}
	for i, c := range wantHeader {
		if ds.Rows[0][c] != first[i] {
			t.Fatalf("row 0 %s = %#v, want %q", c, ds.Rows[0][c], first[i])
		}
	}
	if ds.Rows[9]["Note"] != "tenth" {
		t.Fatalf("last row = %#v", ds.Rows[9])
	}
}

func xlsxFixture(t *testing.T) []byte {
	t.Helper()
	raw := strings.ReplaceAll(strings.TrimSpace(xlsxFixtureBase64), "\n", "")
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("decode xlsx fixture: %v", err)
	}
	return data
}
