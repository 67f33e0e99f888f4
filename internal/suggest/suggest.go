package suggest

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/chartloom-cli/internal/analysis"
	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/valueparse"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

const (
	// BreakdownMaxCardinality bounds the categorical axis of a breakdown chart.
	BreakdownMaxCardinality = 25
	// PieMaxCardinality switches a breakdown from bar to pie.
	PieMaxCardinality = 8
	// ComparisonMaxCardinality bounds the axis of the two-metric comparison.
	ComparisonMaxCardinality = 12
	// TrendMaxCardinality bounds a categorical trend axis.
	TrendMaxCardinality = 20
	// AreaSpanDays upgrades a time series to an area chart.
	AreaSpanDays = 90
	// TrendMaxSeries is the number of metrics plotted by the trend chart.
	TrendMaxSeries = 3
)

// IDGenerator mints chart ids.
type IDGenerator func() string

// NewID returns an unsaved chart id.
func NewID() string { return chart.UnsavedPrefix + uuid.NewString() }

// Engine proposes chart specifications for a dataset.
type Engine struct {
	IDs     IDGenerator
	Palette []string
}

// New returns an engine with uuid ids and the default palette.
func New() *Engine {
	return &Engine{IDs: NewID, Palette: chart.Palette}
}

type numericColumn struct {
	name     string
	variance float64
}

// Suggest returns suggestions in rule order, always ending with one table
// view. Apart from ids the output depends only on the dataset.
func (e *Engine) Suggest(ds *dataset.Dataset) ([]chart.Spec, error) {
	report, err := analysis.AnalyzeDataset(ds)
	if err != nil {
		return nil, err
	}

	var numeric []numericColumn
	var dates []analysis.ColumnAnalysis
	var categorical []analysis.ColumnAnalysis
	for i, ca := range report.Columns {
		switch {
		case ca.ResolvedType == valueparse.TypeNumber:
			numeric = append(numeric, numericColumn{name: ca.Name, variance: variance(ds.Columns[i])})
		case ca.ResolvedType == valueparse.TypeDate:
			dates = append(dates, ca)
		}
		if ca.IsCategorical {
			categorical = append(categorical, ca)
		}
	}
	sort.SliceStable(numeric, func(i, j int) bool { return numeric[i].variance > numeric[j].variance })

	ids := e.IDs
	if ids == nil {
		ids = NewID
	}
	var out []chart.Spec
	add := func(s chart.Spec) {
		s.ID = ids()
		s.DatasetID = ds.ID
		s.Filters = []chart.Filter{}
		if s.Aggregation == "" {
			s.Aggregation = chart.AggSum
		}
		out = append(out, s)
	}

	if len(numeric) > 0 {
		y := numeric[0].name
		add(chart.Spec{
			Type:   chart.TypeMetric,
			Title:  "Total " + y,
			YAxis:  []string{y},
			Colors: e.colors(1),
		})

		if cat, ok := widestCategory(categorical, BreakdownMaxCardinality); ok {
			typ := chart.TypeBar
			if cat.Cardinality <= PieMaxCardinality {
				typ = chart.TypePie
			}
			add(chart.Spec{
				Type:   typ,
				Title:  fmt.Sprintf("%s by %s", y, cat.Name),
				XAxis:  cat.Name,
				YAxis:  []string{y},
				Colors: e.colors(len(e.palette())),
			})
		}

		if len(dates) > 0 {
			d := dates[0]
			typ := chart.TypeLine
			if d.Dates != nil && d.Dates.SpanDays() > AreaSpanDays {
				typ = chart.TypeArea
			}
			add(chart.Spec{
				Type:   typ,
				Title:  y + " over Time",
				XAxis:  d.Name,
				YAxis:  []string{y},
				Colors: e.colors(1),
			})
		}
	}

	if len(numeric) >= 2 {
		y1, y2 := numeric[0].name, numeric[1].name
		if cat, ok := widestCategory(categorical, ComparisonMaxCardinality); ok {
			add(chart.Spec{
				Type:   chart.TypeBar,
				Title:  fmt.Sprintf("Comparison: %s vs %s", y1, y2),
				XAxis:  cat.Name,
				YAxis:  []string{y1, y2},
				Colors: e.colors(2),
			})
		}

		x := ""
		if len(dates) > 0 {
			x = dates[0].Name
		} else if cat, ok := firstCategory(categorical, TrendMaxCardinality); ok {
			x = cat.Name
		}
		if x != "" {
			n := min(len(numeric), TrendMaxSeries)
			ys := make([]string, n)
			for i := range ys {
				ys[i] = numeric[i].name
			}
			add(chart.Spec{
				Type:   chart.TypeArea,
				Title:  "Trend Analysis",
				XAxis:  x,
				YAxis:  ys,
				Colors: e.colors(n),
			})
		}
	}

	add(chart.Spec{
		Type:   chart.TypeTable,
		Title:  "Full Data Table",
		Colors: []string{},
	})
	return out, nil
}

func (e *Engine) palette() []string {
	if len(e.Palette) == 0 {
		return chart.Palette
	}
	return e.Palette
}

func (e *Engine) colors(n int) []string {
	palette := e.palette()
	out := make([]string, n)
	for i := range out {
		out[i] = palette[i%len(palette)]
	}
	return out
}

// variance is the population variance of the column's cleaned numbers.
func variance(c dataset.Column) float64 {
	nums := analysis.CleanValues(c.PresentStrings())
	if len(nums) == 0 {
		return 0
	}
	return stat.PopVariance(nums, nil)
}

// widestCategory picks the categorical column with the largest cardinality
// not above limit; ties keep the earlier column.
func widestCategory(cols []analysis.ColumnAnalysis, limit int) (analysis.ColumnAnalysis, bool) {
	best, found := analysis.ColumnAnalysis{}, false
	for _, c := range cols {
		if c.Cardinality > limit {
			continue
		}
		if !found || c.Cardinality > best.Cardinality {
			best, found = c, true
		}
	}
	return best, found
}

func firstCategory(cols []analysis.ColumnAnalysis, limit int) (analysis.ColumnAnalysis, bool) {
	for _, c := range cols {
		if c.Cardinality <= limit {
			return c, true
		}
	}
	return analysis.ColumnAnalysis{}, false
}
