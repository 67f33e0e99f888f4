package dashboard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/store"
	"github.com/KaramelBytes/chartloom-cli/internal/store/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func spec(title string) chart.Spec {
	return chart.Spec{
		ID: "chart-" + title, Type: chart.TypeBar, Title: title,
		XAxis: "region", YAxis: []string{"revenue"}, Aggregation: chart.AggSum,
		Colors: []string{chart.Palette[0]}, Filters: []chart.Filter{},
	}
}

func TestDefaultLayout(t *testing.T) {
	got := DefaultLayout(5)
	want := []chart.LayoutItem{
		{X: 0, Y: 0, W: 6, H: 4},
		{X: 6, Y: 0, W: 6, H: 4},
		{X: 0, Y: 4, W: 6, H: 4},
		{X: 6, Y: 4, W: 6, H: 4},
		{X: 0, Y: 8, W: 6, H: 4},
	}
	assert.Equal(t, want, got)
	assert.Empty(t, DefaultLayout(0))
}

func TestAddChartsDedupesByTitle(t *testing.T) {
	d := New("Sales", "")
	assert.Equal(t, 2, d.AddCharts([]chart.Spec{spec("Total revenue"), spec("revenue by region")}))
	assert.Equal(t, 1, d.AddCharts([]chart.Spec{spec("Total revenue"), spec("Trend Analysis")}))
	assert.Equal(t, 1, d.AddCharts([]chart.Spec{spec("total revenue")}), "title match is case-sensitive")

	require.Len(t, d.Charts, 4)
	require.Len(t, d.Layout, 4)
	for i, c := range d.Charts {
		assert.Equal(t, c.ID, d.Layout[i].ChartID)
		assert.Equal(t, DefaultItem(i, c.ID), d.Layout[i])
	}
}

func TestAddChartKeepsDuplicatesAndAssignsIDs(t *testing.T) {
	d := New("Ops", "")
	d.AddChart(spec("Units"))
	s := spec("Units")
	s.ID = ""
	added := d.AddChart(s)
	require.Len(t, d.Charts, 2)
	assert.True(t, chart.IsUnsaved(added.ID))
}

func TestRemoveAndUpdateChart(t *testing.T) {
	d := New("Ops", "")
	d.AddCharts([]chart.Spec{spec("a"), spec("b"), spec("c")})
	require.NoError(t, d.RemoveChart("chart-b"))
	assert.Len(t, d.Charts, 2)
	assert.Equal(t, chart.LayoutItem{ChartID: "chart-c", X: 0, Y: 4, W: 6, H: 4}, d.LayoutFor("chart-c"))
	assert.ErrorIs(t, d.RemoveChart("chart-b"), ErrChartNotFound)

	c, err := d.Chart("chart-a")
	require.NoError(t, err)
	require.NoError(t, c.SetTitle("renamed"))
	assert.Equal(t, "renamed", d.Charts[0].Title)

	upd := d.Charts[1]
	upd.Type = chart.TypeLine
	require.NoError(t, d.UpdateChart(upd))
	assert.Equal(t, chart.TypeLine, d.Charts[1].Type)
	assert.ErrorIs(t, d.UpdateChart(spec("missing")), ErrChartNotFound)
}

func TestSetLayoutClamps(t *testing.T) {
	d := New("Ops", "")
	d.AddChart(spec("a"))
	require.NoError(t, d.SetLayout(chart.LayoutItem{ChartID: "chart-a", X: 10, Y: -2, W: 4, H: 0}))
	assert.Equal(t, chart.LayoutItem{ChartID: "chart-a", X: 8, Y: 0, W: 4, H: 4}, d.LayoutFor("chart-a"))
	assert.ErrorIs(t, d.SetLayout(chart.LayoutItem{ChartID: "nope"}), ErrChartNotFound)
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	d, err := Create(ctx, s, "Sales", "q3")
	require.NoError(t, err)
	f := spec("revenue by region")
	require.NoError(t, f.AddFilter(chart.Filter{Column: "region", Operator: chart.OpEquals, Value: chart.Scalar(dataset.Text("North"))}))
	d.AddCharts([]chart.Spec{spec("Total revenue"), f})
	require.NoError(t, Save(ctx, s, d))

	for i, c := range d.Charts {
		assert.False(t, chart.IsUnsaved(c.ID), "saved charts carry stored ids")
		assert.Equal(t, c.ID, d.Layout[i].ChartID)
	}

	back, err := Load(ctx, s, d.ID)
	require.NoError(t, err)
	require.Len(t, back.Charts, 2)
	assert.Equal(t, d.Charts[0].ID, back.Charts[0].ID)
	assert.Equal(t, "revenue by region", back.Charts[1].Title)
	require.Len(t, back.Charts[1].Filters, 1)
	assert.Equal(t, d.Layout[1], back.LayoutFor(back.Charts[1].ID))

	// customize, remove and add, then save again
	back.Name = "Sales FY"
	require.NoError(t, back.RemoveChart(back.Charts[0].ID))
	require.NoError(t, back.SetLayout(chart.LayoutItem{ChartID: back.Charts[0].ID, X: 0, Y: 0, W: 12, H: 6}))
	back.AddChart(spec("custom"))
	require.NoError(t, Save(ctx, s, back))

	rec, err := s.GetDashboard(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sales FY", rec.Name)
	require.Len(t, rec.Charts, 2)
	assert.Equal(t, "revenue by region", rec.Charts[0].Title)
	assert.Equal(t, store.Position{X: 0, Y: 0, W: 12, H: 6}, rec.Charts[0].Position)
	assert.Equal(t, "custom", rec.Charts[1].Title)
}

func TestSaveSurfacesFailure(t *testing.T) {
	ctx := context.Background()
	s, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	d := New("never created", "")
	d.AddChart(spec("a"))
	err = Save(ctx, s, d)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, chart.IsUnsaved(d.Charts[0].ID), "local state is kept")
}

func TestExport(t *testing.T) {
	d := New("Sales", "")
	d.AddChart(spec("a"))

	b, err := d.Export("json")
	require.NoError(t, err)
	var back Dashboard
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d.Charts[0].Title, back.Charts[0].Title)

	y, err := d.Export("yaml")
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, yaml.Unmarshal(y, &m))
	assert.Equal(t, "Sales", m["name"])

	_, err = d.Export("pdf")
	assert.Error(t, err)
}
