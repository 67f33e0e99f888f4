package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	addTables tableFlags
	addName   string
)

var addCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Import a table into the store",
	Long: `Import a CSV, TSV, XLSX or manual-entry (YAML/JSON) table into the configured
store. A workbook stores one dataset per non-empty sheet.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]
		tables, err := addTables.load(file)
		if err != nil {
			return err
		}
		if addName != "" {
			if len(tables) > 1 {
				return fmt.Errorf("--name needs a single table; %s has %d sheets (use --sheet-name)", filepath.Base(file), len(tables))
			}
			tables[0].Name = addName
		}
		return withStore(cmd.Context(), func(s store.Store) error {
			for _, ds := range tables {
				sum, err := s.SaveDataset(cmd.Context(), ds)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Dataset added: %s (%s, %d rows, %d columns)\n", sum.ID, displayName(sum), sum.Rows, len(sum.Columns))
			}
			return nil
		})
	},
}

func displayName(sum *store.DatasetSummary) string {
	if sum.SheetName != "" && sum.SheetName != sum.Name {
		return sum.Name + " / " + sum.SheetName
	}
	return sum.Name
}

func init() {
	rootCmd.AddCommand(addCmd)
	addTables.register(addCmd)
	addCmd.Flags().StringVar(&addName, "name", "", "dataset name (default: file name)")
}
