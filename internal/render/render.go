package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/chartdata"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// TableLimit caps the rows shown by a table view.
const TableLimit = 50

// Metric totals the first y column over rows. Non-numeric cells add zero.
func Metric(spec chart.Spec, rows []dataset.Row) float64 {
	if len(spec.YAxis) == 0 {
		return 0
	}
	y := spec.YAxis[0]
	var total float64
	for _, r := range rows {
		v := chartdata.Coerce(r[y])
		if !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// FormatNumber prints at most two decimals without trailing zeros.
func FormatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// ECharts maps a processed chart to an Apache ECharts option object. columns
// are the dataset's column names, used by the table view.
func ECharts(spec chart.Spec, columns []string, rows []dataset.Row) (map[string]any, error) {
	colors := spec.Colors
	if len(colors) == 0 {
		colors = chart.Palette
	}
	opt := map[string]any{
		"title": map[string]any{"text": spec.Title},
		"color": colors,
	}
	switch spec.Type {
	case chart.TypeBar, chart.TypeLine, chart.TypeArea:
		if len(spec.YAxis) == 0 {
			return nil, fmt.Errorf("%s chart %q has no y axis", spec.Type, spec.Title)
		}
		opt["tooltip"] = map[string]any{"trigger": "axis"}
		opt["legend"] = map[string]any{"data": spec.YAxis}
		opt["xAxis"] = map[string]any{"type": "category", "data": categories(spec.XAxis, rows)}
		opt["yAxis"] = map[string]any{"type": "value"}
		series := make([]map[string]any, len(spec.YAxis))
		for i, y := range spec.YAxis {
			s := map[string]any{
				"name": y,
				"type": "bar",
				"data": values(y, rows),
			}
			if spec.Type != chart.TypeBar {
				s["type"] = "line"
				s["smooth"] = true
			}
			if spec.Type == chart.TypeArea {
				s["areaStyle"] = map[string]any{}
			}
			s["itemStyle"] = map[string]any{"color": colors[i%len(colors)]}
			series[i] = s
		}
		opt["series"] = series
	case chart.TypePie:
		if spec.XAxis == "" || len(spec.YAxis) == 0 {
			return nil, fmt.Errorf("pie chart %q needs both axes", spec.Title)
		}
		names := categories(spec.XAxis, rows)
		vals := values(spec.YAxis[0], rows)
		data := make([]map[string]any, len(rows))
		for i := range rows {
			data[i] = map[string]any{"name": names[i], "value": vals[i]}
		}
		opt["tooltip"] = map[string]any{"trigger": "item"}
		opt["legend"] = map[string]any{"orient": "vertical", "left": "left"}
		opt["series"] = []map[string]any{{
			"name":   spec.YAxis[0],
			"type":   "pie",
			"radius": "50%",
			"data":   data,
		}}
	case chart.TypeMetric:
		total := Metric(spec, rows)
		opt["series"] = []map[string]any{}
		opt["graphic"] = map[string]any{
			"type":  "text",
			"left":  "center",
			"top":   "middle",
			"style": map[string]any{"text": FormatNumber(total), "fontSize": 40},
		}
		opt["metric"] = map[string]any{"value": total, "formatted": FormatNumber(total)}
	case chart.TypeTable:
		source := [][]any{toAny(columns)}
		for i, r := range rows {
			if i >= TableLimit {
				break
			}
			line := make([]any, len(columns))
			for j, c := range columns {
				line[j] = r[c].Any()
			}
			source = append(source, line)
		}
		opt["dataset"] = map[string]any{"source": source}
	default:
		return nil, fmt.Errorf("unknown chart type %q", spec.Type)
	}
	return opt, nil
}

// Columns returns the columns a processed chart carries: the bound axes for
// grouped charts, otherwise every dataset column.
func Columns(spec chart.Spec, datasetColumns []string) []string {
	if spec.Aggregates() {
		return append([]string{spec.XAxis}, spec.YAxis...)
	}
	return datasetColumns
}

// Text renders a processed chart for a terminal: a metric as one line, every
// other type as a Markdown table.
func Text(spec chart.Spec, columns []string, rows []dataset.Row) string {
	if spec.Type == chart.TypeMetric {
		return fmt.Sprintf("%s: %s\n", spec.Title, FormatNumber(Metric(spec, rows)))
	}
	var b strings.Builder
	if spec.Title != "" {
		b.WriteString("## " + spec.Title + "\n\n")
	}
	b.WriteString(MarkdownTable(Columns(spec, columns), rows, TableLimit))
	return b.String()
}

// MarkdownTable renders rows under the given columns. limit <= 0 means all rows.
func MarkdownTable(columns []string, rows []dataset.Row, limit int) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(escape(columns), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for i, r := range rows {
		if limit > 0 && i >= limit {
			b.WriteString(fmt.Sprintf("\n_%d more rows_\n", len(rows)-limit))
			break
		}
		cells := make([]string, len(columns))
		for j, c := range columns {
			cells[j] = r[c].String()
		}
		b.WriteString("| " + strings.Join(escape(cells), " | ") + " |\n")
	}
	return b.String()
}

func categories(x string, rows []dataset.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		if x == "" {
			out[i] = strconv.Itoa(i + 1)
			continue
		}
		out[i] = r[x].String()
	}
	return out
}

func values(y string, rows []dataset.Row) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		v := chartdata.Coerce(r[y])
		if math.IsNaN(v) {
			v = 0
		}
		out[i] = v
	}
	return out
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func escape(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
	}
	return out
}
