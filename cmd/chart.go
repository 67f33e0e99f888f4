package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/chartdata"
	"github.com/KaramelBytes/chartloom-cli/internal/dashboard"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/render"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	chDashboard string
	chDataset   string
	chType      string
	chTitle     string
	chX         string
	chY         []string
	chAgg       string
	chColors    []string

	chFilterColumn string
	chFilterOp     string
	chFilterValue  string
	chFilterIndex  int

	chLayoutX, chLayoutY, chLayoutW, chLayoutH int

	chJSON bool
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Add, customize, filter, lay out and render dashboard charts",
	Long: `Chart subcommands operate on one dashboard, selected with --dashboard (id or
name). A chart is addressed by its id or by its 1-based position on the
dashboard.`,
}

var chartAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a chart to a dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if chDataset == "" {
			return errors.New("--dataset is required")
		}
		spec := chart.Spec{DatasetID: chDataset, Aggregation: chart.AggSum}
		if err := spec.SetType(chart.Type(strings.ToLower(chType))); err != nil {
			return err
		}
		if err := spec.SetTitle(chTitle); err != nil {
			return err
		}
		if chAgg != "" {
			if err := spec.SetAggregation(chart.Aggregation(strings.ToLower(chAgg))); err != nil {
				return err
			}
		}
		spec.SetAxes(chX, chY)
		if len(chColors) > 0 {
			spec.SetColors(chColors)
		} else {
			colors := make([]string, max(len(chY), 1))
			for i := range colors {
				colors[i] = chart.PaletteColor(i)
			}
			spec.SetColors(colors)
		}
		return editDashboard(cmd, func(ctx context.Context, s store.Store, d *dashboard.Dashboard) (string, error) {
			if err := checkColumns(ctx, s, spec); err != nil {
				return "", err
			}
			added := d.AddChart(spec)
			return fmt.Sprintf("✓ Chart added: %s", added.Title), nil
		})
	},
}

var chartRemoveCmd = &cobra.Command{
	Use:   "remove <chart>",
	Short: "Remove a chart from a dashboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editDashboard(cmd, func(_ context.Context, _ store.Store, d *dashboard.Dashboard) (string, error) {
			spec, err := chartRef(d, args[0])
			if err != nil {
				return "", err
			}
			title := spec.Title
			if err := d.RemoveChart(spec.ID); err != nil {
				return "", err
			}
			return fmt.Sprintf("✓ Chart removed: %s", title), nil
		})
	},
}

var chartCustomizeCmd = &cobra.Command{
	Use:   "customize <chart>",
	Short: "Change a chart's type, title, axes, aggregation or colors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		return editDashboard(cmd, func(ctx context.Context, s store.Store, d *dashboard.Dashboard) (string, error) {
			cur, err := chartRef(d, args[0])
			if err != nil {
				return "", err
			}
			spec := cur.Clone()
			if f.Changed("type") {
				if err := spec.SetType(chart.Type(strings.ToLower(chType))); err != nil {
					return "", err
				}
			}
			if f.Changed("title") {
				if err := spec.SetTitle(chTitle); err != nil {
					return "", err
				}
			}
			if f.Changed("x") || f.Changed("y") {
				x, y := spec.XAxis, spec.YAxis
				if f.Changed("x") {
					x = chX
				}
				if f.Changed("y") {
					y = chY
				}
				spec.SetAxes(x, y)
			}
			if f.Changed("agg") {
				if err := spec.SetAggregation(chart.Aggregation(strings.ToLower(chAgg))); err != nil {
					return "", err
				}
			}
			if f.Changed("colors") {
				spec.SetColors(chColors)
			}
			if f.Changed("dataset") {
				spec.DatasetID = chDataset
			}
			if err := checkColumns(ctx, s, spec); err != nil {
				return "", err
			}
			if err := d.UpdateChart(spec); err != nil {
				return "", err
			}
			return fmt.Sprintf("✓ Chart updated: %s", spec.Title), nil
		})
	},
}

var chartFilterAddCmd = &cobra.Command{
	Use:   "filter-add <chart>",
	Short: "Add a filter to a chart",
	Long: `Add a filter. Operators: equals, contains, greater, less, between.
A between value is written as "lo..hi".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flt := chart.Filter{
			Column:   chFilterColumn,
			Operator: chart.Operator(strings.ToLower(chFilterOp)),
			Value:    chart.ParseValue(chFilterValue),
		}
		return editDashboard(cmd, func(_ context.Context, _ store.Store, d *dashboard.Dashboard) (string, error) {
			cur, err := chartRef(d, args[0])
			if err != nil {
				return "", err
			}
			spec := cur.Clone()
			if err := spec.AddFilter(flt); err != nil {
				return "", err
			}
			if err := d.UpdateChart(spec); err != nil {
				return "", err
			}
			return fmt.Sprintf("✓ Filter added to %s: %s %s %s", spec.Title, flt.Column, flt.Operator, flt.Value), nil
		})
	},
}

var chartFilterRemoveCmd = &cobra.Command{
	Use:   "filter-remove <chart>",
	Short: "Remove a chart filter by its 0-based index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editDashboard(cmd, func(_ context.Context, _ store.Store, d *dashboard.Dashboard) (string, error) {
			cur, err := chartRef(d, args[0])
			if err != nil {
				return "", err
			}
			spec := cur.Clone()
			if err := spec.RemoveFilter(chFilterIndex); err != nil {
				return "", err
			}
			if err := d.UpdateChart(spec); err != nil {
				return "", err
			}
			return fmt.Sprintf("✓ Filter %d removed from %s", chFilterIndex, spec.Title), nil
		})
	},
}

var chartMoveCmd = &cobra.Command{
	Use:   "move <chart>",
	Short: "Set a chart's grid position and size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		return editDashboard(cmd, func(_ context.Context, _ store.Store, d *dashboard.Dashboard) (string, error) {
			cur, err := chartRef(d, args[0])
			if err != nil {
				return "", err
			}
			item := d.LayoutFor(cur.ID)
			if f.Changed("x") {
				item.X = chLayoutX
			}
			if f.Changed("y") {
				item.Y = chLayoutY
			}
			if f.Changed("w") {
				item.W = chLayoutW
			}
			if f.Changed("h") {
				item.H = chLayoutH
			}
			if err := d.SetLayout(item); err != nil {
				return "", err
			}
			l := d.LayoutFor(cur.ID)
			return fmt.Sprintf("✓ %s placed at x=%d y=%d w=%d h=%d", cur.Title, l.X, l.Y, l.W, l.H), nil
		})
	},
}

var chartRenderCmd = &cobra.Command{
	Use:   "render <chart>",
	Short: "Process a chart against its dataset and print it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if chDashboard == "" {
			return errors.New("--dashboard is required")
		}
		ctx := cmd.Context()
		return withStore(ctx, func(s store.Store) error {
			d, err := resolveDashboard(ctx, s, chDashboard)
			if err != nil {
				return err
			}
			spec, err := chartRef(d, args[0])
			if err != nil {
				return err
			}
			ds, err := s.GetDataset(ctx, spec.DatasetID)
			if err != nil {
				return fmt.Errorf("dataset %s: %w", spec.DatasetID, err)
			}
			rows, err := chartdata.Process(ds, *spec)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if chJSON {
				opt, err := render.ECharts(*spec, ds.ColumnNames(), rows)
				if err != nil {
					return err
				}
				b, err := utils.PrettyJSON(opt)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(b))
				return err
			}
			_, err = fmt.Fprint(out, render.Text(*spec, ds.ColumnNames(), rows))
			return err
		})
	},
}

// editDashboard loads --dashboard, applies fn and saves the result.
func editDashboard(cmd *cobra.Command, fn func(ctx context.Context, s store.Store, d *dashboard.Dashboard) (string, error)) error {
	if chDashboard == "" {
		return errors.New("--dashboard is required")
	}
	ctx := cmd.Context()
	return withStore(ctx, func(s store.Store) error {
		d, err := resolveDashboard(ctx, s, chDashboard)
		if err != nil {
			return err
		}
		msg, err := fn(ctx, s, d)
		if err != nil {
			return err
		}
		if err := dashboard.Save(ctx, s, d); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	})
}

// chartRef finds a chart by id or 1-based position.
func chartRef(d *dashboard.Dashboard, ref string) (*chart.Spec, error) {
	if spec, err := d.Chart(ref); err == nil {
		return spec, nil
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(d.Charts) {
		return &d.Charts[n-1], nil
	}
	return nil, fmt.Errorf("%w: %s", dashboard.ErrChartNotFound, ref)
}

// checkColumns verifies the spec's dataset exists and carries its axes.
func checkColumns(ctx context.Context, s store.Store, spec chart.Spec) error {
	if spec.DatasetID == "" {
		return nil
	}
	ds, err := s.GetDataset(ctx, spec.DatasetID)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", spec.DatasetID, err)
	}
	return missingColumns(ds, append([]string{spec.XAxis}, spec.YAxis...))
}

func missingColumns(ds *dataset.Dataset, names []string) error {
	var missing []string
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := ds.Column(n); !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: dataset %s has no column %s", chart.ErrInvalidSpec, ds.Name, strings.Join(missing, ", "))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.PersistentFlags().StringVarP(&chDashboard, "dashboard", "d", "", "dashboard id or name")
	chartCmd.AddCommand(chartAddCmd, chartRemoveCmd, chartCustomizeCmd, chartFilterAddCmd, chartFilterRemoveCmd, chartMoveCmd, chartRenderCmd)

	for _, c := range []*cobra.Command{chartAddCmd, chartCustomizeCmd} {
		c.Flags().StringVar(&chDataset, "dataset", "", "stored dataset id")
		c.Flags().StringVarP(&chType, "type", "t", string(chart.TypeBar), "bar|line|area|pie|table|metric")
		c.Flags().StringVar(&chTitle, "title", "", "chart title")
		c.Flags().StringVar(&chX, "x", "", "x-axis column (grouping key)")
		c.Flags().StringSliceVar(&chY, "y", nil, "y-axis columns (repeatable)")
		c.Flags().StringVar(&chAgg, "agg", "", "sum|avg|count|min|max (default sum)")
		c.Flags().StringSliceVar(&chColors, "colors", nil, "series colors, e.g. #3b82f6")
	}

	chartFilterAddCmd.Flags().StringVar(&chFilterColumn, "column", "", "column to filter")
	chartFilterAddCmd.Flags().StringVar(&chFilterOp, "op", "", "equals|contains|greater|less|between")
	chartFilterAddCmd.Flags().StringVar(&chFilterValue, "value", "", "operand; lo..hi for between")
	chartFilterRemoveCmd.Flags().IntVar(&chFilterIndex, "index", 0, "0-based filter index")

	chartMoveCmd.Flags().IntVar(&chLayoutX, "x", 0, "grid column (0-11)")
	chartMoveCmd.Flags().IntVar(&chLayoutY, "y", 0, "grid row")
	chartMoveCmd.Flags().IntVar(&chLayoutW, "w", dashboard.DefaultWidth, "width in grid columns")
	chartMoveCmd.Flags().IntVar(&chLayoutH, "h", dashboard.DefaultHeight, "height in grid rows")

	chartRenderCmd.Flags().BoolVar(&chJSON, "json", false, "print the ECharts option instead of a text table")
}
