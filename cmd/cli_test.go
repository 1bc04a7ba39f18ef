package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag of c and its children to its default so
// sticky Changed state does not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is execute for invocations that must succeed.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

const peopleCSV = "name,city,joined\nann,Oslo,2020-01-05\nbob,Rome,\ncy,Oslo,1850-03-01\nann,Oslo,2020-01-05\n"

func TestCLI_GenerateThenProfile(t *testing.T) {
	home := withHome(t)
	data := filepath.Join(home, "synthetic.csv")
	report := filepath.Join(home, "out", "synthetic.json")

	out := runCmd(t, "generate", data, "--rows", "80", "--seed", "3")
	assert.Contains(t, out, "Wrote 82 rows")

	out = runCmd(t, "profile", data, "-o", report, "--seed", "9")
	assert.Contains(t, out, "Wrote report to")

	b, err := os.ReadFile(report)
	require.NoError(t, err)
	var rep map[string]any
	require.NoError(t, json.Unmarshal(b, &rep))
	assert.Equal(t, "synthetic", rep["table"])
	assert.EqualValues(t, 82, rep["rows"])
	assert.NotEmpty(t, rep["anomalies"])
	assert.Len(t, rep["duplicates"], 2)
}

func TestCLI_ProfileFormats(t *testing.T) {
	home := withHome(t)
	data := filepath.Join(home, "people.csv")
	require.NoError(t, os.WriteFile(data, []byte(peopleCSV), 0o644))

	out := runCmd(t, "profile", data, "--format", "yaml")
	assert.Contains(t, out, "table: people\n")
	assert.Contains(t, out, "insights:\n")

	out = runCmd(t, "profile", data, "--format", "markdown")
	assert.Contains(t, out, "[DATASET SUMMARY]")

	_, err := execute(t, "profile", data, "--format", "xml")
	assert.Error(t, err)
	_, err = execute(t, "profile", data, "--contamination", "0.9")
	assert.Error(t, err)
	_, err = execute(t, "profile", filepath.Join(home, "notes.txt"))
	assert.Error(t, err)
}

func TestCLI_ProfileYearWindow(t *testing.T) {
	home := withHome(t)
	data := filepath.Join(home, "people.csv")
	require.NoError(t, os.WriteFile(data, []byte(peopleCSV), 0o644))

	out := runCmd(t, "profile", data, "--min-year", "1800")
	assert.NotContains(t, out, "implausible_date")
	out = runCmd(t, "profile", data)
	assert.Contains(t, out, "implausible_date(joined)")
}

func TestCLI_ProfileBatchAvoidsOverwrite(t *testing.T) {
	home := withHome(t)
	for _, d := range []string{"d1", "d2"} {
		require.NoError(t, os.MkdirAll(filepath.Join(home, d), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(home, d, "metrics.csv"), []byte("col1,col2\nA,1\nB,2\nC,3\n"), 0o644))
	}
	outDir := filepath.Join(home, "reports")

	runCmd(t, "profile-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir, "-q")

	for _, name := range []string{"metrics.report.json", "metrics__2.report.json"} {
		b, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(b), `"table": "metrics"`)
	}
}

func TestCLI_UploadAndTables(t *testing.T) {
	home := withHome(t)
	data := filepath.Join(home, "city visits.csv")
	require.NoError(t, os.WriteFile(data, []byte(peopleCSV), 0o644))

	out := runCmd(t, "upload", data)
	assert.Contains(t, out, "Table city_visits created with 4 rows and 3 columns")
	_, err := os.Stat(filepath.Join(home, ".tabinsight", "tables.db"))
	require.NoError(t, err)

	_, err = execute(t, "upload", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.Equal(t, "city_visits\n", runCmd(t, "tables"))
	assert.Equal(t, "1. name\n2. city\n3. joined\n", runCmd(t, "tables", "schema", "city_visits"))

	out = runCmd(t, "tables", "summary", "city_visits", "--top", "1")
	assert.Contains(t, out, "city (2 distinct)")
	assert.Contains(t, out, "Oslo")
	assert.NotContains(t, out, "Rome")

	out = runCmd(t, "tables", "filter", "city_visits", "--where", "city=osl", "--limit", "2")
	var page map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.EqualValues(t, 3, page["total_records"])
	assert.Len(t, page["data"], 2)

	out = runCmd(t, "tables", "profile", "city_visits", "--format", "markdown")
	assert.Contains(t, out, "Table: city_visits")

	_, err = execute(t, "tables", "schema", "ghost")
	assert.Error(t, err)
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := withHome(t)
	path := filepath.Join(home, "cfg.yaml")

	runCmd(t, "--config", path, "config", "set", "max_upload_mb", "8")
	runCmd(t, "--config", path, "config", "set", "db_dsn", "user:supersecret@tcp(db:3306)/tables")
	out := runCmd(t, "--config", path, "config", "show")
	assert.Contains(t, out, "max_upload_mb: 8\n")
	assert.Contains(t, out, "db_dsn: user:sup****ret@tcp(db:3306)/tables\n")
	assert.False(t, strings.Contains(out, "supersecret"))

	_, err := execute(t, "--config", path, "config", "set", "nope", "1")
	assert.Error(t, err)
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://me:******@h/db", maskDSN("postgres://me:pw@h/db"))
	assert.Equal(t, "~/.tabinsight/tables.db", maskDSN("~/.tabinsight/tables.db"))
	assert.Equal(t, "sqlserver://sa@h", maskDSN("sqlserver://sa@h"))
}
