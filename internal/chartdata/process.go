package chartdata

import (
	"errors"
	"math"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/valueparse"
)

// ErrNilDataset is returned when Process is given no dataset.
var ErrNilDataset = errors.New("dataset is nil")

// Process filters the dataset's rows by the spec's filters and, when the spec
// binds both axes, aggregates them into one row per x value. Groups keep
// first-seen order and are keyed by raw value, so "A" and "A " stay apart.
func Process(ds *dataset.Dataset, spec chart.Spec) ([]dataset.Row, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}
	rows := Filter(ds.Rows, spec.Filters)
	if !spec.Aggregates() {
		return rows, nil
	}
	return Aggregate(rows, spec.XAxis, spec.YAxis, spec.Aggregation), nil
}

// Filter keeps the rows that satisfy every filter.
func Filter(rows []dataset.Row, filters []chart.Filter) []dataset.Row {
	out := make([]dataset.Row, 0, len(rows))
	for _, r := range rows {
		if Match(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

// Match reports whether row satisfies all filters. Unknown operators pass.
func Match(row dataset.Row, filters []chart.Filter) bool {
	for _, f := range filters {
		if !matchOne(row[f.Column], f) {
			return false
		}
	}
	return true
}

func matchOne(cell dataset.Cell, f chart.Filter) bool {
	switch f.Operator {
	case chart.OpEquals:
		return cell.Equal(f.Value.Scalar())
	case chart.OpContains:
		return strings.Contains(strings.ToLower(cell.String()), strings.ToLower(f.Value.Scalar().String()))
	case chart.OpGreater:
		return Coerce(cell) > Coerce(f.Value.Scalar())
	case chart.OpLess:
		return Coerce(cell) < Coerce(f.Value.Scalar())
	case chart.OpBetween:
		lo, hi, ok := f.Value.Bounds()
		if !ok {
			return false
		}
		v := Coerce(cell)
		return v >= Coerce(lo) && v <= Coerce(hi)
	default:
		return true
	}
}

// Coerce converts a cell to a number for comparison. Text goes through
// valueparse.CleanNumber, so "$5" and "1,200" count as amounts. Anything else,
// blank text included, is NaN and fails every comparison.
func Coerce(c dataset.Cell) float64 {
	if f, ok := c.Float(); ok {
		return f
	}
	if !c.Present() {
		return math.NaN()
	}
	if f, ok := valueparse.CleanNumber(c.String()); ok {
		return f
	}
	return math.NaN()
}

func coerceOrZero(c dataset.Cell) float64 {
	v := Coerce(c)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

type group struct {
	key  dataset.Cell
	rows []dataset.Row
}

// Aggregate groups rows by the raw value of x and reduces every y column.
// Unknown aggregations fall back to sum.
func Aggregate(rows []dataset.Row, x string, ys []string, agg chart.Aggregation) []dataset.Row {
	index := map[string]int{}
	var groups []*group
	for _, r := range rows {
		key := r[x]
		k := key.Key()
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, &group{key: key})
		}
		groups[i].rows = append(groups[i].rows, r)
	}

	out := make([]dataset.Row, len(groups))
	for gi, g := range groups {
		rec := dataset.Row{x: g.key}
		for _, y := range ys {
			vals := make([]float64, len(g.rows))
			for i, r := range g.rows {
				vals[i] = coerceOrZero(r[y])
			}
			rec[y] = dataset.Number(reduce(vals, agg))
		}
		out[gi] = rec
	}
	return out
}

func reduce(vals []float64, agg chart.Aggregation) float64 {
	switch agg {
	case chart.AggCount:
		return float64(len(vals))
	case chart.AggAvg:
		return sum(vals) / float64(len(vals))
	case chart.AggMin:
		m := vals[0]
		for _, v := range vals[1:] {
			m = math.Min(m, v)
		}
		return m
	case chart.AggMax:
		m := vals[0]
		for _, v := range vals[1:] {
			m = math.Max(m, v)
		}
		return m
	default:
		return sum(vals)
	}
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}
