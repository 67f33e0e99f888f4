package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/dashboard"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	dbDesc     string
	dbName     string
	dbFormat   string
	dbExportTo string
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"db"},
	Short:   "Create, inspect and export dashboards",
}

var dashboardCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty dashboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return errors.New("dashboard name is required")
		}
		return withStore(cmd.Context(), func(s store.Store) error {
			d, err := dashboard.Create(cmd.Context(), s, name, dbDesc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Dashboard created: %s (%s)\n", d.ID, d.Name)
			return nil
		})
	},
}

var dashboardShowCmd = &cobra.Command{
	Use:   "show <dashboard>",
	Short: "Show a dashboard's charts and layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s store.Store) error {
			d, err := resolveDashboard(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", d.Name, d.ID)
			if d.Description != "" {
				fmt.Fprintln(out, d.Description)
			}
			if len(d.Charts) == 0 {
				fmt.Fprintln(out, "(no charts)")
				return nil
			}
			for _, c := range d.Charts {
				l := d.LayoutFor(c.ID)
				fmt.Fprintf(out, "- %s: [%s] %s @ x=%d y=%d w=%d h=%d", c.ID, c.Type, c.Title, l.X, l.Y, l.W, l.H)
				if len(c.Filters) > 0 {
					fmt.Fprintf(out, " (%d filters)", len(c.Filters))
				}
				fmt.Fprintln(out)
			}
			return nil
		})
	},
}

var dashboardUpdateCmd = &cobra.Command{
	Use:   "rename <dashboard>",
	Short: "Change a dashboard's name or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("name") && !cmd.Flags().Changed("desc") {
			return errors.New("nothing to change: pass --name and/or --desc")
		}
		return withStore(cmd.Context(), func(s store.Store) error {
			d, err := resolveDashboard(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				if strings.TrimSpace(dbName) == "" {
					return errors.New("dashboard name is required")
				}
				d.Name = strings.TrimSpace(dbName)
			}
			if cmd.Flags().Changed("desc") {
				d.Description = dbDesc
			}
			if err := dashboard.Save(cmd.Context(), s, d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Dashboard updated: %s (%s)\n", d.ID, d.Name)
			return nil
		})
	},
}

var dashboardDeleteCmd = &cobra.Command{
	Use:   "delete <dashboard>",
	Short: "Delete a dashboard and its charts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s store.Store) error {
			d, err := resolveDashboard(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			if err := s.DeleteDashboard(cmd.Context(), d.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Dashboard deleted: %s\n", d.Name)
			return nil
		})
	},
}

var dashboardExportCmd = &cobra.Command{
	Use:   "export <dashboard>",
	Short: "Export a dashboard as JSON or YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(s store.Store) error {
			d, err := resolveDashboard(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			b, err := d.Export(strings.ToLower(dbFormat))
			if err != nil {
				return err
			}
			if dbExportTo != "" {
				if err := utils.SafeWriteFile(dbExportTo, b); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %s to %s\n", d.Name, dbExportTo)
				return nil
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		})
	},
}

// resolveDashboard loads a dashboard by id, falling back to a unique
// case-insensitive name match.
func resolveDashboard(ctx context.Context, s store.Store, ref string) (*dashboard.Dashboard, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("dashboard id or name is required")
	}
	d, err := dashboard.Load(ctx, s, ref)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	items, lerr := s.ListDashboards(ctx)
	if lerr != nil {
		return nil, lerr
	}
	var match []string
	for _, it := range items {
		if strings.EqualFold(it.Name, ref) {
			match = append(match, it.ID)
		}
	}
	switch len(match) {
	case 0:
		return nil, fmt.Errorf("dashboard %q: %w", ref, store.ErrNotFound)
	case 1:
		return dashboard.Load(ctx, s, match[0])
	}
	return nil, fmt.Errorf("%d dashboards are named %q; use an id", len(match), ref)
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.AddCommand(dashboardCreateCmd, dashboardShowCmd, dashboardUpdateCmd, dashboardDeleteCmd, dashboardExportCmd)
	dashboardCreateCmd.Flags().StringVarP(&dbDesc, "desc", "d", "", "dashboard description")
	dashboardUpdateCmd.Flags().StringVar(&dbName, "name", "", "new name")
	dashboardUpdateCmd.Flags().StringVarP(&dbDesc, "desc", "d", "", "new description")
	dashboardExportCmd.Flags().StringVarP(&dbFormat, "format", "f", "json", "json|yaml")
	dashboardExportCmd.Flags().StringVarP(&dbExportTo, "output", "o", "", "write to a file instead of stdout")
}
