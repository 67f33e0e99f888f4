package chart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"gopkg.in/yaml.v3"
)

// Type is the visual form of a chart.
type Type string

const (
	TypeBar    Type = "bar"
	TypeLine   Type = "line"
	TypeArea   Type = "area"
	TypePie    Type = "pie"
	TypeTable  Type = "table"
	TypeMetric Type = "metric"
)

// Types lists every chart type.
var Types = []Type{TypeBar, TypeLine, TypeArea, TypePie, TypeTable, TypeMetric}

// Valid reports whether t is a known chart type.
func (t Type) Valid() bool {
	for _, x := range Types {
		if x == t {
			return true
		}
	}
	return false
}

// Aggregation reduces a group of values to one.
type Aggregation string

const (
	AggSum   Aggregation = "sum"
	AggAvg   Aggregation = "avg"
	AggCount Aggregation = "count"
	AggMin   Aggregation = "min"
	AggMax   Aggregation = "max"
)

// Aggregations lists every aggregation.
var Aggregations = []Aggregation{AggSum, AggAvg, AggCount, AggMin, AggMax}

func (a Aggregation) Valid() bool {
	for _, x := range Aggregations {
		if x == a {
			return true
		}
	}
	return false
}

// Palette is the fixed color set handed out by position.
var Palette = []string{
	"#3b82f6", "#8b5cf6", "#10b981", "#f59e0b",
	"#ef4444", "#06b6d4", "#ec4899", "#6366f1",
}

// PaletteColor returns the color for series i.
func PaletteColor(i int) string { return Palette[i%len(Palette)] }

// UnsavedPrefix marks ids minted in-process that no store has assigned yet.
const UnsavedPrefix = "chart-"

// IsUnsaved reports whether id was minted in-process.
func IsUnsaved(id string) bool { return strings.HasPrefix(id, UnsavedPrefix) }

var (
	// ErrInvalidFilter rejects a filter before it is attached to a chart.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrInvalidSpec rejects a customization that names an unknown enum value.
	ErrInvalidSpec = errors.New("invalid chart specification")
)

// Spec is a chart specification. A dashboard owns its specs; DatasetID is a
// reference only.
type Spec struct {
	ID          string      `json:"id" yaml:"id"`
	Type        Type        `json:"type" yaml:"type"`
	Title       string      `json:"title" yaml:"title"`
	DatasetID   string      `json:"dataset_id" yaml:"dataset_id"`
	XAxis       string      `json:"x_axis,omitempty" yaml:"x_axis,omitempty"`
	YAxis       []string    `json:"y_axis,omitempty" yaml:"y_axis,omitempty"`
	Aggregation Aggregation `json:"aggregation" yaml:"aggregation"`
	Colors      []string    `json:"colors" yaml:"colors"`
	Filters     []Filter    `json:"filters" yaml:"filters"`
}

// Aggregates reports whether processing groups rows by XAxis.
func (s Spec) Aggregates() bool { return s.XAxis != "" && len(s.YAxis) > 0 }

// Clone returns a deep copy.
func (s Spec) Clone() Spec {
	out := s
	out.YAxis = append([]string(nil), s.YAxis...)
	out.Colors = append([]string(nil), s.Colors...)
	out.Filters = make([]Filter, len(s.Filters))
	for i, f := range s.Filters {
		out.Filters[i] = Filter{Column: f.Column, Operator: f.Operator, Value: FilterValue{Values: append([]dataset.Cell(nil), f.Value.Values...)}}
	}
	return out
}

// AddFilter validates f and appends it. A rejected filter leaves the
// existing filters untouched.
func (s *Spec) AddFilter(f Filter) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.Filters = append(s.Filters, f)
	return nil
}

// RemoveFilter drops the filter at index i.
func (s *Spec) RemoveFilter(i int) error {
	if i < 0 || i >= len(s.Filters) {
		return fmt.Errorf("filter index %d out of range (%d filters)", i, len(s.Filters))
	}
	s.Filters = append(s.Filters[:i:i], s.Filters[i+1:]...)
	return nil
}

func (s *Spec) SetTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is empty", ErrInvalidSpec)
	}
	s.Title = title
	return nil
}

// SetAxes replaces the axis bindings. An empty x clears grouping.
func (s *Spec) SetAxes(x string, y []string) {
	s.XAxis = x
	s.YAxis = append([]string(nil), y...)
}

func (s *Spec) SetColors(colors []string) { s.Colors = append([]string(nil), colors...) }

func (s *Spec) SetAggregation(a Aggregation) error {
	if !a.Valid() {
		return fmt.Errorf("%w: unknown aggregation %q", ErrInvalidSpec, a)
	}
	s.Aggregation = a
	return nil
}

func (s *Spec) SetType(t Type) error {
	if !t.Valid() {
		return fmt.Errorf("%w: unknown chart type %q", ErrInvalidSpec, t)
	}
	s.Type = t
	return nil
}

// LayoutItem places one chart on the dashboard grid.
type LayoutItem struct {
	ChartID string `json:"chart_id" yaml:"chart_id"`
	X       int    `json:"x" yaml:"x"`
	Y       int    `json:"y" yaml:"y"`
	W       int    `json:"w" yaml:"w"`
	H       int    `json:"h" yaml:"h"`
}

// Operator is a filter comparison.
type Operator string

const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpGreater  Operator = "greater"
	OpLess     Operator = "less"
	OpBetween  Operator = "between"
)

// Operators lists every filter operator.
var Operators = []Operator{OpEquals, OpContains, OpGreater, OpLess, OpBetween}

func (o Operator) Valid() bool {
	for _, x := range Operators {
		if x == o {
			return true
		}
	}
	return false
}

// Filter restricts the rows a chart sees. Filters on a spec are ANDed.
type Filter struct {
	Column   string      `json:"column" yaml:"column"`
	Operator Operator    `json:"operator" yaml:"operator"`
	Value    FilterValue `json:"value" yaml:"value"`
}

// Validate checks that column, operator and value are present and that a
// between filter carries exactly two bounds.
func (f Filter) Validate() error {
	switch {
	case strings.TrimSpace(f.Column) == "":
		return fmt.Errorf("%w: column is required", ErrInvalidFilter)
	case f.Operator == "":
		return fmt.Errorf("%w: operator is required", ErrInvalidFilter)
	case !f.Operator.Valid():
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Operator)
	case f.Value.Missing():
		return fmt.Errorf("%w: value is required", ErrInvalidFilter)
	case len(f.Value.Values) > 2:
		return fmt.Errorf("%w: too many values", ErrInvalidFilter)
	case f.Operator == OpBetween && !f.Value.IsPair():
		return fmt.Errorf("%w: between needs exactly two bounds", ErrInvalidFilter)
	case f.Operator != OpBetween && f.Value.IsPair():
		return fmt.Errorf("%w: %s takes a single value", ErrInvalidFilter, f.Operator)
	}
	return nil
}

// FilterValue is a scalar, or a two-element range for between.
type FilterValue struct {
	Values []dataset.Cell
}

// Scalar builds a single-value filter operand.
func Scalar(c dataset.Cell) FilterValue { return FilterValue{Values: []dataset.Cell{c}} }

// Pair builds a between operand.
func Pair(lo, hi dataset.Cell) FilterValue { return FilterValue{Values: []dataset.Cell{lo, hi}} }

func (v FilterValue) IsPair() bool { return len(v.Values) == 2 }

// Missing reports an operand with no usable value.
func (v FilterValue) Missing() bool {
	if len(v.Values) == 0 {
		return true
	}
	for _, c := range v.Values {
		if !c.Present() {
			return true
		}
	}
	return false
}

// Scalar returns the single operand, or null for a pair.
func (v FilterValue) Scalar() dataset.Cell {
	if len(v.Values) != 1 {
		return dataset.Null()
	}
	return v.Values[0]
}

// Bounds returns both operands of a pair.
func (v FilterValue) Bounds() (lo, hi dataset.Cell, ok bool) {
	if len(v.Values) != 2 {
		return dataset.Null(), dataset.Null(), false
	}
	return v.Values[0], v.Values[1], true
}

func (v FilterValue) String() string {
	parts := make([]string, len(v.Values))
	for i, c := range v.Values {
		parts[i] = c.String()
	}
	return strings.Join(parts, "..")
}

func (v FilterValue) MarshalJSON() ([]byte, error) {
	switch len(v.Values) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(v.Values[0])
	default:
		return json.Marshal(v.Values)
	}
}

func (v *FilterValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var cells []dataset.Cell
		if err := json.Unmarshal(b, &cells); err != nil {
			return err
		}
		v.Values = cells
		return nil
	}
	var c dataset.Cell
	if err := json.Unmarshal(b, &c); err != nil {
		return err
	}
	v.Values = nil
	if !c.IsNull() {
		v.Values = []dataset.Cell{c}
	}
	return nil
}

func (v FilterValue) MarshalYAML() (any, error) {
	switch len(v.Values) {
	case 0:
		return nil, nil
	case 1:
		return v.Values[0].Any(), nil
	default:
		out := make([]any, len(v.Values))
		for i, c := range v.Values {
			out[i] = c.Any()
		}
		return out, nil
	}
}

func (v *FilterValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&v.Values)
	}
	var c dataset.Cell
	if err := node.Decode(&c); err != nil {
		return err
	}
	v.Values = nil
	if !c.IsNull() {
		v.Values = []dataset.Cell{c}
	}
	return nil
}

// ParseValue reads a typed-in operand: "10..20" is a pair, anything else a
// scalar. Operands stay text, as a form field would deliver them.
func ParseValue(s string) FilterValue {
	if lo, hi, ok := strings.Cut(s, ".."); ok {
		return Pair(dataset.Text(strings.TrimSpace(lo)), dataset.Text(strings.TrimSpace(hi)))
	}
	return Scalar(dataset.Text(strings.TrimSpace(s)))
}
