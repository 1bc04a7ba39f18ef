package cmd

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabinsight/internal/ingest"
	"github.com/KaramelBytes/tabinsight/internal/store"
)

var (
	upTable      string
	upSheetName  string
	upSheetIndex int
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Store a CSV/TSV/XLSX file as a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		ds, err := ingest.ReadFile(path, ingest.Options{SheetName: upSheetName, SheetIndex: upSheetIndex})
		if err != nil {
			return err
		}
		ds = ingest.SanitizeDataset(ds)
		table := upTable
		if table == "" {
			table = ingest.TableNameFromFile(path)
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.CreateTable(cmd.Context(), table, ds); err != nil {
			if errors.Is(err, store.ErrTableExists) {
				return fmt.Errorf("table %s already exists", table)
			}
			return err
		}
		log.WithFields(logrus.Fields{"table": table, "rows": len(ds.Rows)}).Info("table created")
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Table %s created with %d rows and %d columns\n", table, len(ds.Rows), len(ds.Columns))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().StringVarP(&upTable, "table", "t", "", "table name (default: file name without extension)")
	uploadCmd.Flags().StringVar(&upSheetName, "sheet-name", "", "XLSX: sheet name to load")
	uploadCmd.Flags().IntVar(&upSheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}
