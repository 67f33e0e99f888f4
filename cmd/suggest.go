package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dashboard"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/KaramelBytes/chartloom-cli/internal/suggest"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	sgTables    tableFlags
	sgDataset   string
	sgDashboard string
	sgJSON      bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [file]",
	Short: "Suggest charts for a table or a stored dataset",
	Long: `Suggest charts for a table file or a stored dataset (--dataset). With
--dashboard the suggestions are added to that dashboard; a file is imported
first so the charts can reference it. Charts whose title is already on the
dashboard are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 0) == (sgDataset == "") {
			return errors.New("pass exactly one of <file> or --dataset")
		}
		ctx := cmd.Context()
		engine := suggest.New()
		out := cmd.OutOrStdout()

		var ds *dataset.Dataset
		if len(args) == 1 {
			if _, err := os.Stat(args[0]); err != nil {
				return err
			}
			tables, err := sgTables.load(args[0])
			if err != nil {
				return err
			}
			if len(tables) > 1 {
				return fmt.Errorf("%s has %d sheets; choose one with --sheet-name or --sheet-index", args[0], len(tables))
			}
			ds = tables[0]
		}

		if sgDataset == "" && sgDashboard == "" {
			return printSuggestions(cmd, engine, ds)
		}

		return withStore(ctx, func(s store.Store) error {
			if ds == nil {
				got, err := s.GetDataset(ctx, sgDataset)
				if err != nil {
					return fmt.Errorf("dataset %s: %w", sgDataset, err)
				}
				ds = got
			} else {
				sum, err := s.SaveDataset(ctx, ds)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Dataset added: %s (%s)\n", sum.ID, displayName(sum))
			}
			if sgDashboard == "" {
				return printSuggestions(cmd, engine, ds)
			}
			d, err := resolveDashboard(ctx, s, sgDashboard)
			if err != nil {
				return err
			}
			specs, err := engine.Suggest(ds)
			if err != nil {
				return err
			}
			added := d.AddCharts(specs)
			if err := dashboard.Save(ctx, s, d); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Added %d of %d suggested charts to %s\n", added, len(specs), d.Name)
			return nil
		})
	},
}

func printSuggestions(cmd *cobra.Command, engine *suggest.Engine, ds *dataset.Dataset) error {
	specs, err := engine.Suggest(ds)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if sgJSON {
		b, err := utils.PrettyJSON(specs)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}
	for i, s := range specs {
		fmt.Fprintf(out, "%d. [%s] %s%s\n", i+1, s.Type, s.Title, axesLabel(s))
	}
	return nil
}

func axesLabel(s chart.Spec) string {
	switch {
	case s.XAxis != "" && len(s.YAxis) > 0:
		return fmt.Sprintf(" (%s of %v by %s)", s.Aggregation, s.YAxis, s.XAxis)
	case len(s.YAxis) > 0:
		return fmt.Sprintf(" (%v)", s.YAxis)
	}
	return ""
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	sgTables.register(suggestCmd)
	suggestCmd.Flags().StringVar(&sgDataset, "dataset", "", "stored dataset id")
	suggestCmd.Flags().StringVarP(&sgDashboard, "dashboard", "d", "", "add suggestions to this dashboard (id or name)")
	suggestCmd.Flags().BoolVar(&sgJSON, "json", false, "print suggestions as JSON")
}
