package analysis

import (
	"sort"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/valueparse"
	"github.com/montanaflynn/stats"
)

const (
	// CategoricalMaxCardinality makes any string column with at most this many
	// distinct values categorical.
	CategoricalMaxCardinality = 20
	// CategoricalRatioCap and CategoricalMaxRatio admit medium-cardinality
	// string columns whose distinct/present ratio stays low.
	CategoricalRatioCap = 100
	CategoricalMaxRatio = 0.3
	// MaxUniqueSample caps ColumnAnalysis.UniqueValues.
	MaxUniqueSample = 50
)

// NumericStats summarizes the cleaned numeric values of a column.
type NumericStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
}

// DateStats is the date range of a column.
type DateStats struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// SpanDays is the range length in whole days, rounded up.
func (d DateStats) SpanDays() int {
	h := d.Max.Sub(d.Min).Hours()
	days := int(h / 24)
	if float64(days)*24 < h {
		days++
	}
	return days
}

// ColumnAnalysis is derived from a column and never written back to it.
type ColumnAnalysis struct {
	Name          string          `json:"name"`
	DeclaredType  valueparse.Type `json:"declared_type"`
	ResolvedType  valueparse.Type `json:"resolved_type"`
	Cardinality   int             `json:"cardinality"`
	NullCount     int             `json:"null_count"`
	EmptyCount    int             `json:"empty_count"`
	PresentCount  int             `json:"present_count"`
	UniqueValues  []dataset.Cell  `json:"unique_values"`
	Numeric       *NumericStats   `json:"numeric,omitempty"`
	Dates         *DateStats      `json:"dates,omitempty"`
	IsCategorical bool            `json:"is_categorical"`
	IsNumeric     bool            `json:"is_numeric"`
	IsDate        bool            `json:"is_date"`
	IsString      bool            `json:"is_string"`
	Confidence    float64         `json:"confidence"`
}

// AnalyzeColumn computes the analysis of one column. rows is the owning
// dataset's row projection, accepted so callers can pass the dataset as a
// whole; only the column's own values are inspected.
func AnalyzeColumn(col dataset.Column, rows []dataset.Row) ColumnAnalysis {
	ca := ColumnAnalysis{Name: col.Name, DeclaredType: col.Type, UniqueValues: []dataset.Cell{}}

	present := make([]string, 0, len(col.Values))
	seen := map[string]bool{}
	for _, v := range col.Values {
		switch {
		case v.IsNull():
			ca.NullCount++
			continue
		case v.IsEmpty():
			ca.EmptyCount++
			continue
		}
		present = append(present, v.String())
		if k := v.Key(); !seen[k] {
			seen[k] = true
			if len(ca.UniqueValues) < MaxUniqueSample {
				ca.UniqueValues = append(ca.UniqueValues, v)
			}
		}
	}
	ca.PresentCount = len(present)
	ca.Cardinality = len(seen)

	res := valueparse.ResolveType(present, valueparse.DefaultSampleSize)
	ca.ResolvedType = res.Type
	ca.IsNumeric, ca.IsDate, ca.IsString = res.Numeric, res.Date, res.String
	ca.Confidence = res.Confidence

	if ca.IsNumeric {
		ca.Numeric = numericStats(present)
	}
	if ca.IsDate {
		ca.Dates = dateStats(present)
	}
	ca.IsCategorical = categorical(ca.Cardinality, ca.PresentCount, ca.IsString)
	return ca
}

// CleanValues returns the parseable numbers among values, in input order.
func CleanValues(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := valueparse.CleanNumber(v); ok {
			out = append(out, f)
		}
	}
	return out
}

func numericStats(present []string) *NumericStats {
	nums := CleanValues(present)
	if len(nums) == 0 {
		return nil
	}
	sort.Float64s(nums)
	// errors only signal empty input, ruled out above
	mean, _ := stats.Mean(nums)
	median, _ := stats.Median(nums)
	return &NumericStats{Min: nums[0], Max: nums[len(nums)-1], Avg: mean, Median: median}
}

func dateStats(present []string) *DateStats {
	var ds *DateStats
	for _, v := range present {
		if !valueparse.IsDate(v) {
			continue
		}
		t, ok := valueparse.ParseDate(v)
		if !ok {
			continue
		}
		if ds == nil {
			ds = &DateStats{Min: t, Max: t}
			continue
		}
		if t.Before(ds.Min) {
			ds.Min = t
		}
		if t.After(ds.Max) {
			ds.Max = t
		}
	}
	return ds
}

func categorical(cardinality, present int, isString bool) bool {
	if !isString {
		return false
	}
	if cardinality <= CategoricalMaxCardinality {
		return true
	}
	return cardinality <= CategoricalRatioCap && float64(cardinality)/float64(present) < CategoricalMaxRatio
}
