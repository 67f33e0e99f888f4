package store

import (
	"context"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	spec := chart.Spec{
		ID: "chart-1", Type: chart.TypePie, Title: "revenue by region", DatasetID: "d1",
		XAxis: "region", YAxis: []string{"revenue"}, Aggregation: chart.AggSum,
		Colors:  chart.Palette,
		Filters: []chart.Filter{{Column: "region", Operator: chart.OpEquals, Value: chart.Scalar(dataset.Text("North"))}},
	}
	rec := Record(spec, chart.LayoutItem{ChartID: "chart-1", X: 6, Y: 4, W: 6, H: 4})
	assert.Equal(t, Position{X: 6, Y: 4, W: 6, H: 4}, rec.Position)
	assert.Equal(t, "pie", rec.Type)
	assert.Equal(t, spec, rec.Spec())
	assert.Equal(t, chart.LayoutItem{ChartID: "chart-1", X: 6, Y: 4, W: 6, H: 4}, rec.Layout())

	empty := ChartRecord{Title: "t", Type: "table"}.Spec()
	assert.Equal(t, chart.AggSum, empty.Aggregation)
}

func TestRegistry(t *testing.T) {
	Register("test-null", func(ctx context.Context, cfg Config) (Store, error) { return nil, nil })
	assert.Contains(t, Kinds(), "test-null")
	assert.Panics(t, func() {
		Register("test-null", func(ctx context.Context, cfg Config) (Store, error) { return nil, nil })
	})
	_, err := Open(context.Background(), Config{Kind: "nope"})
	require.Error(t, err)
	_, err = Open(context.Background(), Config{})
	require.Error(t, err)
}
