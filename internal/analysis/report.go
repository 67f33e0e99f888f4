package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
)

// ErrNilDataset is returned when analysis is asked for a nil dataset.
var ErrNilDataset = errors.New("dataset is nil")

// SampleRows is the number of leading rows copied into a report.
const SampleRows = 5

// Report is a markdown-friendly analysis of a dataset.
type Report struct {
	DatasetID string           `json:"dataset_id"`
	Name      string           `json:"name"`
	Sheet     string           `json:"sheet"`
	Rows      int              `json:"rows"`
	Columns   []ColumnAnalysis `json:"columns"`
	Samples   [][]string       `json:"samples,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// AnalyzeDataset applies AnalyzeColumn to every column. It is pure: calling it
// twice on the same dataset yields equal reports.
func AnalyzeDataset(ds *dataset.Dataset) (*Report, error) {
	if ds == nil {
		return nil, ErrNilDataset
	}
	r := &Report{
		DatasetID: ds.ID,
		Name:      ds.Name,
		Sheet:     ds.SheetName,
		Rows:      len(ds.Rows),
		Columns:   make([]ColumnAnalysis, len(ds.Columns)),
	}
	for i, c := range ds.Columns {
		ca := AnalyzeColumn(c, ds.Rows)
		r.Columns[i] = ca
		if ca.PresentCount == 0 && len(c.Values) > 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("column %q has no values", c.Name))
		} else if ca.DeclaredType != ca.ResolvedType {
			r.Warnings = append(r.Warnings, fmt.Sprintf("column %q imported as %s, resolved as %s", c.Name, ca.DeclaredType, ca.ResolvedType))
		}
	}
	for i := 0; i < len(ds.Rows) && i < SampleRows; i++ {
		row := make([]string, len(ds.Columns))
		for j, c := range ds.Columns {
			row[j] = ds.Rows[i][c.Name].String()
		}
		r.Samples = append(r.Samples, row)
	}
	return r, nil
}

// Column returns the analysis for the named column.
func (r *Report) Column(name string) (ColumnAnalysis, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnAnalysis{}, false
}

// Markdown renders the report as an import preview.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.Sheet != "" {
		b.WriteString(fmt.Sprintf("Sheet: %s\n", r.Sheet))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Columns)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Columns {
		total := c.PresentCount + c.NullCount + c.EmptyCount
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.NullCount+c.EmptyCount) * 100.0 / float64(total)
		}
		kind := string(c.ResolvedType)
		if c.IsCategorical {
			kind = "categorical"
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%, unique %d, confidence %.0f%%)",
			safeName(c.Name), kind, c.PresentCount, missPct, c.Cardinality, c.Confidence*100))
		switch {
		case c.Numeric != nil:
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, median %.4g",
				c.Numeric.Min, c.Numeric.Max, c.Numeric.Avg, c.Numeric.Median))
		case c.Dates != nil:
			b.WriteString(fmt.Sprintf(" — %s to %s", c.Dates.Min.Format("2006-01-02"), c.Dates.Max.Format("2006-01-02")))
		case c.IsCategorical && len(c.UniqueValues) > 0:
			b.WriteString(" — values: ")
			lim := min(len(c.UniqueValues), 8)
			for i := 0; i < lim; i++ {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(safeVal(c.UniqueValues[i].String()))
			}
			if c.Cardinality > lim {
				b.WriteString(", ...")
			}
		}
		b.WriteString("\n")
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i, val := range row {
				if i > 0 {
					b.WriteString(" | ")
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
