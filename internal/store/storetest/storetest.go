// Package storetest holds the behavior every store backend must share.
package storetest

import (
	"context"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s through a dashboard, chart and dataset lifecycle.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("dashboards", func(t *testing.T) {
		d, err := s.CreateDashboard(ctx, "Sales", "quarterly")
		require.NoError(t, err)
		require.NotEmpty(t, d.ID)
		assert.Equal(t, "Sales", d.Name)

		upd, err := s.UpdateDashboard(ctx, d.ID, "Sales 2024", "")
		require.NoError(t, err)
		assert.Equal(t, "Sales 2024", upd.Name)
		assert.False(t, upd.UpdatedAt.Before(d.UpdatedAt))

		list, err := s.ListDashboards(ctx)
		require.NoError(t, err)
		found := false
		for _, x := range list {
			if x.ID == d.ID {
				found = true
				assert.Equal(t, "Sales 2024", x.Name)
			}
		}
		assert.True(t, found)

		require.NoError(t, s.DeleteDashboard(ctx, d.ID))
		_, err = s.GetDashboard(ctx, d.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("charts", func(t *testing.T) {
		d, err := s.CreateDashboard(ctx, "Ops", "")
		require.NoError(t, err)

		spec := chart.Spec{
			ID: "chart-local", Type: chart.TypeBar, Title: "units by region", DatasetID: "ds-1",
			XAxis: "region", YAxis: []string{"units"}, Aggregation: chart.AggAvg,
			Colors: []string{"#3b82f6"},
		}
		require.NoError(t, spec.AddFilter(chart.Filter{Column: "units", Operator: chart.OpBetween, Value: chart.Pair(dataset.Number(1), dataset.Number(9))}))
		first, err := s.AddChart(ctx, d.ID, store.Record(spec, chart.LayoutItem{X: 0, Y: 0, W: 6, H: 4}))
		require.NoError(t, err)
		require.NotEmpty(t, first.ID)
		assert.False(t, chart.IsUnsaved(first.ID))

		second, err := s.AddChart(ctx, d.ID, store.Record(chart.Spec{Type: chart.TypeTable, Title: "Full Data Table"}, chart.LayoutItem{X: 6, W: 6, H: 4}))
		require.NoError(t, err)

		got, err := s.GetDashboard(ctx, d.ID)
		require.NoError(t, err)
		require.Len(t, got.Charts, 2)
		assert.Equal(t, first.ID, got.Charts[0].ID)
		assert.Equal(t, second.ID, got.Charts[1].ID)

		back := got.Charts[0].Spec()
		assert.Equal(t, "units by region", back.Title)
		assert.Equal(t, chart.AggAvg, back.Aggregation)
		assert.Equal(t, "ds-1", back.DatasetID)
		require.Len(t, back.Filters, 1)
		lo, hi, ok := back.Filters[0].Value.Bounds()
		require.True(t, ok)
		assert.True(t, lo.Equal(dataset.Number(1)))
		assert.True(t, hi.Equal(dataset.Number(9)))
		assert.Equal(t, store.Position{X: 0, Y: 0, W: 6, H: 4}, got.Charts[0].Position)

		back.Title = "Average units"
		_, err = s.UpdateChart(ctx, first.ID, store.Record(back, chart.LayoutItem{X: 6, Y: 4, W: 6, H: 4}))
		require.NoError(t, err)

		require.NoError(t, s.DeleteChart(ctx, second.ID))
		got, err = s.GetDashboard(ctx, d.ID)
		require.NoError(t, err)
		require.Len(t, got.Charts, 1)
		assert.Equal(t, "Average units", got.Charts[0].Title)
		assert.Equal(t, 6, got.Charts[0].Position.X)

		assert.ErrorIs(t, s.DeleteChart(ctx, second.ID), store.ErrNotFound)
		_, err = s.AddChart(ctx, "missing", store.ChartRecord{Title: "x"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("datasets", func(t *testing.T) {
		ds, err := dataset.New("sales.csv", "sales", []string{"region", "amount"}, [][]dataset.Cell{
			{dataset.Text("North"), dataset.Number(120)},
			{dataset.Text("South"), dataset.Null()},
		}, 0)
		require.NoError(t, err)

		sum, err := s.SaveDataset(ctx, ds)
		require.NoError(t, err)
		assert.Equal(t, ds.ID, sum.ID)
		assert.Equal(t, 2, sum.Rows)

		back, err := s.GetDataset(ctx, ds.ID)
		require.NoError(t, err)
		assert.Equal(t, ds.ID, back.ID)
		assert.Equal(t, []string{"region", "amount"}, back.ColumnNames())
		assert.True(t, back.Rows[0]["amount"].Equal(dataset.Number(120)))
		assert.True(t, back.Rows[1]["amount"].IsNull())

		list, err := s.ListDatasets(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, list)

		require.NoError(t, s.DeleteDataset(ctx, ds.ID))
		_, err = s.GetDataset(ctx, ds.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
