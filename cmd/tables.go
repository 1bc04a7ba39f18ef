package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabinsight/internal/profile"
	"github.com/KaramelBytes/tabinsight/internal/store"
	"github.com/KaramelBytes/tabinsight/internal/utils"
)

var (
	tblFormat string
	tblOutput string
	tblTop    int
	tblWhere  []string
	tblPage   int
	tblLimit  int
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List stored tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		tables, err := st.ListTables(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(tables) == 0 {
			fmt.Fprintln(out, "No tables")
			return nil
		}
		for _, t := range tables {
			fmt.Fprintln(out, t)
		}
		return nil
	},
}

var tablesSchemaCmd = &cobra.Command{
	Use:   "schema <table>",
	Short: "Show the columns of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		cols, err := st.Columns(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for i, c := range cols {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, c)
		}
		return nil
	},
}

var tablesProfileCmd = &cobra.Command{
	Use:   "profile <table>",
	Short: "Profile a stored table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(tblFormat); err != nil {
			return err
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		ds, err := st.FetchAll(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		rep, err := profile.New(profileOptions(c)).Profile(args[0], ds)
		if err != nil {
			return err
		}
		data, err := renderReport(rep, tblFormat)
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), tblOutput, data)
	},
}

var tablesSummaryCmd = &cobra.Command{
	Use:   "summary <table>",
	Short: "Show the most frequent values of every column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		cols, err := st.Columns(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		counts, err := st.ValueCounts(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range cols {
			vcs := counts[c]
			fmt.Fprintf(out, "%s (%d distinct)\n", c, len(vcs))
			tw := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
			for i, vc := range vcs {
				if tblTop > 0 && i >= tblTop {
					break
				}
				fmt.Fprintf(tw, "  %s\t%d\n", displayValue(vc.Value), vc.Count)
			}
			tw.Flush()
		}
		return nil
	},
}

var tablesFilterCmd = &cobra.Command{
	Use:   "filter <table>",
	Short: "Page through rows whose columns contain the given substrings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters := map[string]string{}
		for _, w := range tblWhere {
			col, val, ok := strings.Cut(w, "=")
			if !ok || strings.TrimSpace(col) == "" {
				return fmt.Errorf("invalid --where %q (use column=value)", w)
			}
			filters[strings.TrimSpace(col)] = val
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		res, err := st.Filter(cmd.Context(), args[0], store.FilterQuery{Filters: filters, Page: tblPage, Limit: tblLimit})
		if err != nil {
			return err
		}
		rows := res.Rows
		if rows == nil {
			rows = []profile.Row{}
		}
		b, err := utils.PrettyJSON(map[string]any{"data": rows, "total_records": res.TotalRecords})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func displayValue(v any) string {
	if v == nil {
		return "<null>"
	}
	return fmt.Sprint(v)
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.AddCommand(tablesSchemaCmd, tablesProfileCmd, tablesSummaryCmd, tablesFilterCmd)

	tablesProfileCmd.Flags().StringVar(&tblFormat, "format", "json", "report format: json|yaml|markdown")
	tablesProfileCmd.Flags().StringVarP(&tblOutput, "output", "o", "", "write the report to this path instead of stdout")
	tablesSummaryCmd.Flags().IntVar(&tblTop, "top", 10, "values shown per column (0 = all)")
	tablesFilterCmd.Flags().StringArrayVar(&tblWhere, "where", nil, "column=substring filter (repeatable)")
	tablesFilterCmd.Flags().IntVar(&tblPage, "page", 1, "1-based page number")
	tablesFilterCmd.Flags().IntVar(&tblLimit, "limit", 10, "rows per page (max 1000)")
}
