package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabinsight/internal/synth"
)

var genOpt = synth.DefaultOptions()

var generateCmd = &cobra.Command{
	Use:   "generate <out.csv>",
	Short: "Write a synthetic dataset with injected data-quality problems",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if genOpt.MissingRate < 0 || genOpt.MissingRate > 1 || genOpt.DuplicateRate < 0 {
			return fmt.Errorf("rates must be within [0, 1]")
		}
		ds, truth, err := synth.Generate(genOpt)
		if err != nil {
			return err
		}
		if err := synth.WriteCSVFile(args[0], ds); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Wrote %d rows to %s\n", len(ds.Rows), args[0])
		fmt.Fprintf(out, "  missing: %d  duplicates: %d  outliers: %d  bad dates: %d\n",
			len(truth.MissingRows), len(truth.DuplicateRows), len(truth.OutlierRows), len(truth.BadDateRows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	f := generateCmd.Flags()
	f.IntVar(&genOpt.Rows, "rows", genOpt.Rows, "number of base rows")
	f.Int64Var(&genOpt.Seed, "seed", genOpt.Seed, "random seed")
	f.Float64Var(&genOpt.MissingRate, "missing-rate", genOpt.MissingRate, "share of rows with one blank field")
	f.Float64Var(&genOpt.DuplicateRate, "duplicate-rate", genOpt.DuplicateRate, "duplicate rows appended, as a share of --rows")
	f.IntVar(&genOpt.Outliers, "outliers", genOpt.Outliers, "rows with extreme age and income")
	f.IntVar(&genOpt.BadDates, "bad-dates", genOpt.BadDates, "rows with a signup date outside 1900-2100")
}
