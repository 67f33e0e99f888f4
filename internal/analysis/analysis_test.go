package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/valueparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textColumn(name string, vals ...string) dataset.Column {
	c := dataset.Column{Name: name}
	for _, v := range vals {
		c.Values = append(c.Values, dataset.Text(v))
	}
	return c
}

func TestAnalyzeColumnMedian(t *testing.T) {
	cases := []struct {
		vals   []string
		median float64
	}{
		{[]string{"40", "10", "30", "20"}, 25},
		{[]string{"30", "10", "20"}, 20},
		{[]string{"$1,000", "200", "30.5"}, 200},
	}
	for _, tc := range cases {
		ca := AnalyzeColumn(textColumn("v", tc.vals...), nil)
		require.True(t, ca.IsNumeric, tc.vals)
		require.NotNil(t, ca.Numeric)
		assert.Equal(t, tc.median, ca.Numeric.Median, tc.vals)
		assert.LessOrEqual(t, ca.Numeric.Min, ca.Numeric.Median)
		assert.LessOrEqual(t, ca.Numeric.Median, ca.Numeric.Max)
		assert.LessOrEqual(t, ca.Numeric.Min, ca.Numeric.Avg)
		assert.LessOrEqual(t, ca.Numeric.Avg, ca.Numeric.Max)
	}
}

func TestNumericStatsDiscreteMedian(t *testing.T) {
	assert.Equal(t, 2.5, numericStats([]string{"4", "1", "3", "2"}).Median)
	assert.Equal(t, 2.0, numericStats([]string{"3", "1", "2"}).Median)
	assert.Nil(t, numericStats([]string{"n/a"}))
}

func TestAnalyzeColumnCounts(t *testing.T) {
	col := dataset.Column{Name: "mixed", Values: []dataset.Cell{
		dataset.Null(), dataset.Text(""), dataset.Text("a"), dataset.Number(1),
		dataset.Text("1"), dataset.Text("a"), dataset.Null(),
	}}
	ca := AnalyzeColumn(col, nil)
	assert.Equal(t, 2, ca.NullCount)
	assert.Equal(t, 1, ca.EmptyCount)
	assert.Equal(t, 4, ca.PresentCount)
	assert.Equal(t, len(col.Values), ca.NullCount+ca.EmptyCount+ca.PresentCount)
	// number 1 and text "1" are distinct raw values
	assert.Equal(t, 3, ca.Cardinality)
	assert.Len(t, ca.UniqueValues, 3)
}

func TestAnalyzeColumnEmpty(t *testing.T) {
	ca := AnalyzeColumn(dataset.Column{Name: "e", Values: []dataset.Cell{dataset.Null(), dataset.Text("")}}, nil)
	assert.Equal(t, valueparse.TypeString, ca.ResolvedType)
	assert.Zero(t, ca.Confidence)
	assert.Zero(t, ca.Cardinality)
	assert.Nil(t, ca.Numeric)
	assert.Nil(t, ca.Dates)
}

func TestCategoricalBoundary(t *testing.T) {
	distinct := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("item-%02d", i)
		}
		return out
	}
	assert.True(t, AnalyzeColumn(textColumn("c", distinct(20)...), nil).IsCategorical)
	assert.False(t, AnalyzeColumn(textColumn("c", distinct(21)...), nil).IsCategorical)

	// 30 distinct across 200 rows: ratio 0.15 under the 100 cap
	var many []string
	for i := 0; i < 200; i++ {
		many = append(many, fmt.Sprintf("k%d", i%30))
	}
	assert.True(t, AnalyzeColumn(textColumn("c", many...), nil).IsCategorical)

	nums := AnalyzeColumn(textColumn("n", "10", "20", "30"), nil)
	assert.False(t, nums.IsCategorical)
}

func TestUniqueValuesCapped(t *testing.T) {
	var vals []string
	for i := 0; i < 80; i++ {
		vals = append(vals, fmt.Sprintf("v%d", i))
	}
	ca := AnalyzeColumn(textColumn("c", vals...), nil)
	assert.Equal(t, 80, ca.Cardinality)
	assert.Len(t, ca.UniqueValues, MaxUniqueSample)
}

func TestAnalyzeColumnDates(t *testing.T) {
	ca := AnalyzeColumn(textColumn("d", "2023-01-01", "2023-03-15", "2023-02-01"), nil)
	require.True(t, ca.IsDate)
	require.NotNil(t, ca.Dates)
	assert.Equal(t, "2023-01-01", ca.Dates.Min.Format("2006-01-02"))
	assert.Equal(t, "2023-03-15", ca.Dates.Max.Format("2006-01-02"))
	assert.Equal(t, 73, ca.Dates.SpanDays())
	assert.False(t, ca.IsCategorical)
}

func TestAnalyzeDataset(t *testing.T) {
	_, err := AnalyzeDataset(nil)
	assert.ErrorIs(t, err, ErrNilDataset)

	ds, err := dataset.New("sales.csv", "sales", []string{"region", "amount"}, [][]dataset.Cell{
		{dataset.Text("North"), dataset.Text("$1,200.50")},
		{dataset.Text("South"), dataset.Text("300")},
	}, 0)
	require.NoError(t, err)
	r, err := AnalyzeDataset(ds)
	require.NoError(t, err)
	require.Len(t, r.Columns, 2)
	amount, ok := r.Column("amount")
	require.True(t, ok)
	assert.Equal(t, 750.25, amount.Numeric.Avg)

	again, err := AnalyzeDataset(ds)
	require.NoError(t, err)
	assert.Equal(t, r, again)

	md := r.Markdown()
	assert.True(t, strings.Contains(md, "[DATASET SUMMARY]"))
	assert.True(t, strings.Contains(md, "- region: categorical"))
	assert.True(t, strings.Contains(md, "| North | $1,200.50 |"))
}
