package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/spf13/cobra"
)

var (
	listDashboards bool
	listDatasets   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List dashboards or datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listDashboards == listDatasets { // either both true or both false
			return fmt.Errorf("specify exactly one of --dashboards or --datasets")
		}
		out := cmd.OutOrStdout()
		return withStore(cmd.Context(), func(s store.Store) error {
			if listDashboards {
				items, err := s.ListDashboards(cmd.Context())
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(out, "(no dashboards)")
					return nil
				}
				for _, d := range items {
					fmt.Fprintf(out, "- %s: %s (updated %s)\n", d.ID, d.Name, d.UpdatedAt.Local().Format("2006-01-02 15:04"))
				}
				return nil
			}
			items, err := s.ListDatasets(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "(no datasets)")
				return nil
			}
			for i := range items {
				d := &items[i]
				fmt.Fprintf(out, "- %s: %s, %d rows [%s]\n", d.ID, displayName(d), d.Rows, strings.Join(d.Columns, ", "))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listDashboards, "dashboards", false, "list dashboards")
	listCmd.Flags().BoolVar(&listDatasets, "datasets", false, "list stored datasets")
}
