package suggest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDataset(t *testing.T, headers []string, rows ...string) *dataset.Dataset {
	t.Helper()
	var recs [][]dataset.Cell
	for _, r := range rows {
		var rec []dataset.Cell
		for _, f := range strings.Split(r, ",") {
			rec = append(rec, dataset.Text(f))
		}
		recs = append(recs, rec)
	}
	ds, err := dataset.New("t", "t", headers, recs, 0)
	require.NoError(t, err)
	return ds
}

func salesDataset(t *testing.T) *dataset.Dataset {
	return buildDataset(t, []string{"region", "date", "units", "revenue"},
		"North,2023-01-01,5,100",
		"South,2023-02-01,6,900",
		"East,2023-03-01,5,300",
		"North,2023-04-01,6,700",
		"South,2023-05-01,5,200",
		"East,2023-06-01,6,800",
	)
}

func counter() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("chart-test-%d", n)
	}
}

type shape struct {
	Type  chart.Type
	Title string
	X     string
	Y     []string
}

func shapes(specs []chart.Spec) []shape {
	out := make([]shape, len(specs))
	for i, s := range specs {
		out[i] = shape{s.Type, s.Title, s.XAxis, s.YAxis}
	}
	return out
}

func TestSuggestRuleOrder(t *testing.T) {
	ds := salesDataset(t)
	specs, err := New().Suggest(ds)
	require.NoError(t, err)

	want := []shape{
		{chart.TypeMetric, "Total revenue", "", []string{"revenue"}},
		{chart.TypePie, "revenue by region", "region", []string{"revenue"}},
		{chart.TypeArea, "revenue over Time", "date", []string{"revenue"}},
		{chart.TypeBar, "Comparison: revenue vs units", "region", []string{"revenue", "units"}},
		{chart.TypeArea, "Trend Analysis", "date", []string{"revenue", "units"}},
		{chart.TypeTable, "Full Data Table", "", nil},
	}
	assert.Equal(t, want, shapes(specs))

	for _, s := range specs {
		assert.True(t, chart.IsUnsaved(s.ID), s.ID)
		assert.Equal(t, ds.ID, s.DatasetID)
		assert.NotNil(t, s.Filters)
		assert.Empty(t, s.Filters)
		assert.Equal(t, chart.AggSum, s.Aggregation)
	}
	assert.Equal(t, []string{chart.Palette[0]}, specs[0].Colors)
	assert.Equal(t, chart.Palette, specs[1].Colors)
	assert.Equal(t, chart.Palette[:2], specs[3].Colors)
	assert.Empty(t, specs[5].Colors)
}

func TestSuggestDeterministic(t *testing.T) {
	ds := salesDataset(t)
	a, err := (&Engine{IDs: counter()}).Suggest(ds)
	require.NoError(t, err)
	b, err := (&Engine{IDs: counter()}).Suggest(ds)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := New().Suggest(ds)
	require.NoError(t, err)
	assert.Equal(t, shapes(a), shapes(c))
	assert.NotEqual(t, a[0].ID, c[0].ID)
}

func TestSuggestNoNumericColumns(t *testing.T) {
	ds := buildDataset(t, []string{"name", "city"}, "ann,Paris", "bob,Rome")
	specs, err := New().Suggest(ds)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, chart.TypeTable, specs[0].Type)
}

func TestSuggestShortSpanStaysLine(t *testing.T) {
	ds := buildDataset(t, []string{"day", "sales"},
		"2023-01-01,10",
		"2023-01-15,25",
		"2023-02-01,40",
	)
	specs, err := New().Suggest(ds)
	require.NoError(t, err)
	assert.Equal(t, []shape{
		{chart.TypeMetric, "Total sales", "", []string{"sales"}},
		{chart.TypeLine, "sales over Time", "day", []string{"sales"}},
		{chart.TypeTable, "Full Data Table", "", nil},
	}, shapes(specs))
}

func TestSuggestWideCategoryUsesBar(t *testing.T) {
	var rows []string
	for i := 0; i < 10; i++ {
		rows = append(rows, fmt.Sprintf("store-%d,%d", i, (i+2)*10))
	}
	ds := buildDataset(t, []string{"store", "sales"}, rows...)
	specs, err := New().Suggest(ds)
	require.NoError(t, err)
	require.Len(t, specs, 3)
	assert.Equal(t, chart.TypeBar, specs[1].Type)
	assert.Equal(t, "sales by store", specs[1].Title)
}

func TestSuggestRanksByVariance(t *testing.T) {
	ds := buildDataset(t, []string{"flat", "spread"},
		"5,10",
		"5,500",
		"6,90",
	)
	specs, err := New().Suggest(ds)
	require.NoError(t, err)
	assert.Equal(t, "Total spread", specs[0].Title)
}

func TestSuggestNilDataset(t *testing.T) {
	_, err := New().Suggest(nil)
	assert.Error(t, err)
}

// categoryDataset builds 15 rows with the named categorical columns (each
// cycling through its cardinality) followed by numerics a, b and c, whose
// variance ranks c > a > b.
func categoryDataset(t *testing.T, cats map[string]int, order ...string) *dataset.Dataset {
	t.Helper()
	headers := append(append([]string{}, order...), "a", "b", "c")
	var rows []string
	for i := 0; i < 15; i++ {
		var fields []string
		for _, name := range order {
			fields = append(fields, fmt.Sprintf("%s%d", name, i%cats[name]))
		}
		fields = append(fields, fmt.Sprintf("%d", (i+1)*10), fmt.Sprintf("%d", i+2), fmt.Sprintf("%d", (i+1)*100))
		rows = append(rows, strings.Join(fields, ","))
	}
	return buildDataset(t, headers, rows...)
}

func TestSuggestCategorySelection(t *testing.T) {
	cats := map[string]int{"small": 3, "mid": 10, "wide": 15}
	cases := []struct {
		name  string
		order []string
		want  []shape
	}{
		{
			name:  "widest wins and trend falls back to first category",
			order: []string{"small", "mid"},
			want: []shape{
				{chart.TypeMetric, "Total c", "", []string{"c"}},
				{chart.TypeBar, "c by mid", "mid", []string{"c"}},
				{chart.TypeBar, "Comparison: c vs a", "mid", []string{"c", "a"}},
				{chart.TypeArea, "Trend Analysis", "small", []string{"c", "a", "b"}},
				{chart.TypeTable, "Full Data Table", "", nil},
			},
		},
		{
			name:  "column order only affects the trend axis",
			order: []string{"mid", "small"},
			want: []shape{
				{chart.TypeMetric, "Total c", "", []string{"c"}},
				{chart.TypeBar, "c by mid", "mid", []string{"c"}},
				{chart.TypeBar, "Comparison: c vs a", "mid", []string{"c", "a"}},
				{chart.TypeArea, "Trend Analysis", "mid", []string{"c", "a", "b"}},
				{chart.TypeTable, "Full Data Table", "", nil},
			},
		},
		{
			name:  "comparison cap skips a category the breakdown accepts",
			order: []string{"small", "wide", "mid"},
			want: []shape{
				{chart.TypeMetric, "Total c", "", []string{"c"}},
				{chart.TypeBar, "c by wide", "wide", []string{"c"}},
				{chart.TypeBar, "Comparison: c vs a", "mid", []string{"c", "a"}},
				{chart.TypeArea, "Trend Analysis", "small", []string{"c", "a", "b"}},
				{chart.TypeTable, "Full Data Table", "", nil},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			specs, err := New().Suggest(categoryDataset(t, cats, tc.order...))
			require.NoError(t, err)
			assert.Equal(t, tc.want, shapes(specs))
			assert.Len(t, specs[3].Colors, TrendMaxSeries)
		})
	}
}
