package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabinsight/internal/ingest"
	"github.com/KaramelBytes/tabinsight/internal/profile"
)

// inputFlags are the decoding and detector flags shared by profile and profile-batch.
type inputFlags struct {
	delimiter     string
	decimal       string
	thousands     string
	sheetName     string
	sheetIndex    int
	contamination float64
	seed          int64
	trees         int
	minYear       int
	maxYear       int
	format        string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (default by extension)")
	fl.StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	fl.StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	fl.StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to profile")
	fl.IntVar(&f.sheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	fl.Float64Var(&f.contamination, "contamination", 0, "expected share of outlier rows, 0 < x <= 0.5 (overrides config)")
	fl.Int64Var(&f.seed, "seed", 0, "random seed for the outlier detector (overrides config)")
	fl.IntVar(&f.trees, "trees", 0, "number of isolation trees (overrides config)")
	fl.IntVar(&f.minYear, "min-year", 0, "earliest plausible year (overrides config)")
	fl.IntVar(&f.maxYear, "max-year", 0, "latest plausible year (overrides config)")
	fl.StringVar(&f.format, "format", "json", "report format: json|yaml|markdown")
}

func (f *inputFlags) reset() {
	*f = inputFlags{format: "json"}
}

func (f *inputFlags) ingestOptions() (ingest.Options, error) {
	var opt ingest.Options
	switch f.delimiter {
	case "":
	case ",":
		opt.CSV.Delimiter = ','
	case "\t", "tab":
		opt.CSV.Delimiter = '\t'
	case ";":
		opt.CSV.Delimiter = ';'
	case "|", "pipe":
		opt.CSV.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	opt.SheetName = f.sheetName
	opt.SheetIndex = f.sheetIndex
	return opt, nil
}

func (f *inputFlags) profileOptions(cmd *cobra.Command) (profile.Options, error) {
	c, err := currentConfig()
	if err != nil {
		return profile.Options{}, err
	}
	opt := profileOptions(c)

	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.Coerce.DecimalSeparator = ','
	case ".", "dot":
		opt.Coerce.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(f.thousands) {
	case ",":
		opt.Coerce.ThousandsSeparator = ','
	case ".":
		opt.Coerce.ThousandsSeparator = '.'
	case "space", " ":
		opt.Coerce.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}

	fl := cmd.Flags()
	if fl.Changed("contamination") {
		if f.contamination <= 0 || f.contamination > 0.5 {
			return opt, fmt.Errorf("--contamination must be in (0, 0.5], got %v", f.contamination)
		}
		opt.Outliers.Contamination = f.contamination
	}
	if fl.Changed("seed") {
		opt.Outliers.Seed = f.seed
	}
	if fl.Changed("trees") && f.trees > 0 {
		opt.Outliers.Trees = f.trees
	}
	if fl.Changed("min-year") {
		opt.Temporal.MinYear = f.minYear
	}
	if fl.Changed("max-year") {
		opt.Temporal.MaxYear = f.maxYear
	}
	if opt.Temporal.MinYear > opt.Temporal.MaxYear {
		return opt, fmt.Errorf("min year %d is after max year %d", opt.Temporal.MinYear, opt.Temporal.MaxYear)
	}
	return opt, nil
}

// profileFile reads and profiles one file.
func profileFile(p *profile.Profiler, path string, opt ingest.Options) (*profile.Report, error) {
	ds, err := ingest.ReadFile(path, opt)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rep, err := p.Profile(ingest.TableNameFromFile(path), ds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.WithFields(logrus.Fields{
		"table":       rep.Table,
		"rows":        rep.Rows,
		"anomalies":   len(rep.Anomalies),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("profiled file")
	return rep, nil
}

var (
	profFlags  inputFlags
	profOutput string
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Profile a CSV/TSV/XLSX file and print a data-quality report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inOpt, err := profFlags.ingestOptions()
		if err != nil {
			return err
		}
		opt, err := profFlags.profileOptions(cmd)
		if err != nil {
			return err
		}
		rep, err := profileFile(profile.New(opt), args[0], inOpt)
		if err != nil {
			return err
		}
		data, err := renderReport(rep, profFlags.format)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), profOutput, data)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profFlags.register(profileCmd)
	profileCmd.Flags().StringVarP(&profOutput, "output", "o", "", "write the report to this path instead of stdout")
}
