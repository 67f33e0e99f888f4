package chart

import (
	"encoding/json"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFilterValidate(t *testing.T) {
	cases := []struct {
		name string
		f    Filter
		ok   bool
	}{
		{"equals", Filter{Column: "cat", Operator: OpEquals, Value: Scalar(dataset.Text("A"))}, true},
		{"between", Filter{Column: "v", Operator: OpBetween, Value: Pair(dataset.Number(1), dataset.Number(5))}, true},
		{"no column", Filter{Operator: OpEquals, Value: Scalar(dataset.Text("A"))}, false},
		{"no operator", Filter{Column: "cat", Value: Scalar(dataset.Text("A"))}, false},
		{"unknown operator", Filter{Column: "cat", Operator: "like", Value: Scalar(dataset.Text("A"))}, false},
		{"no value", Filter{Column: "cat", Operator: OpEquals}, false},
		{"empty value", Filter{Column: "cat", Operator: OpEquals, Value: Scalar(dataset.Text(""))}, false},
		{"between scalar", Filter{Column: "v", Operator: OpBetween, Value: Scalar(dataset.Number(1))}, false},
		{"greater pair", Filter{Column: "v", Operator: OpGreater, Value: Pair(dataset.Number(1), dataset.Number(2))}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.f.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidFilter)
			}
		})
	}
}

func TestAddFilterRejectsWithoutTouchingExisting(t *testing.T) {
	s := Spec{Title: "x"}
	require.NoError(t, s.AddFilter(Filter{Column: "a", Operator: OpContains, Value: Scalar(dataset.Text("n"))}))
	err := s.AddFilter(Filter{Column: "a", Operator: OpBetween, Value: Scalar(dataset.Number(1))})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	require.Len(t, s.Filters, 1)

	require.NoError(t, s.RemoveFilter(0))
	assert.Empty(t, s.Filters)
	assert.Error(t, s.RemoveFilter(0))
}

func TestCustomizers(t *testing.T) {
	s := Spec{Type: TypeBar, Aggregation: AggSum}
	assert.ErrorIs(t, s.SetType("radar"), ErrInvalidSpec)
	assert.Equal(t, TypeBar, s.Type)
	require.NoError(t, s.SetType(TypeLine))
	assert.ErrorIs(t, s.SetAggregation("median"), ErrInvalidSpec)
	require.NoError(t, s.SetAggregation(AggAvg))
	assert.Error(t, s.SetTitle("  "))
	require.NoError(t, s.SetTitle("Revenue"))
	s.SetAxes("month", []string{"revenue"})
	assert.True(t, s.Aggregates())
	s.SetAxes("", nil)
	assert.False(t, s.Aggregates())
}

func TestFilterValueEncoding(t *testing.T) {
	f := Filter{Column: "v", Operator: OpBetween, Value: Pair(dataset.Number(1), dataset.Number(5))}
	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"column":"v","operator":"between","value":[1,5]}`, string(b))

	var back Filter
	require.NoError(t, json.Unmarshal([]byte(`{"column":"c","operator":"equals","value":"A"}`), &back))
	assert.True(t, back.Value.Scalar().Equal(dataset.Text("A")))

	y, err := yaml.Marshal(f)
	require.NoError(t, err)
	var fromYAML Filter
	require.NoError(t, yaml.Unmarshal(y, &fromYAML))
	lo, hi, ok := fromYAML.Value.Bounds()
	require.True(t, ok)
	assert.True(t, lo.Equal(dataset.Number(1)))
	assert.True(t, hi.Equal(dataset.Number(5)))
}

func TestParseValue(t *testing.T) {
	v := ParseValue("10..20")
	require.True(t, v.IsPair())
	assert.Equal(t, "10..20", v.String())
	assert.True(t, ParseValue("North").Scalar().Equal(dataset.Text("North")))
	assert.True(t, ParseValue(" 2.5 ").Scalar().Equal(dataset.Text("2.5")))
}

func TestPaletteAndUnsaved(t *testing.T) {
	assert.Equal(t, Palette[0], PaletteColor(8))
	assert.True(t, IsUnsaved("chart-123"))
	assert.False(t, IsUnsaved("5f1c"))
}
