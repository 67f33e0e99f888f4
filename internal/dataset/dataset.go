package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/valueparse"
	"github.com/google/uuid"
)

// ErrEmptyTable is returned when an import yields no header row.
var ErrEmptyTable = errors.New("table is empty")

// Column is one named column with its import-time type guess.
type Column struct {
	Name   string          `json:"name"`
	Type   valueparse.Type `json:"type"`
	Values []Cell          `json:"values"`
}

// PresentStrings returns the text form of every non-null, non-empty value.
func (c Column) PresentStrings() []string {
	out := make([]string, 0, len(c.Values))
	for _, v := range c.Values {
		if v.Present() {
			out = append(out, v.String())
		}
	}
	return out
}

// Row maps column name to cell.
type Row map[string]Cell

// Dataset is an imported table. Columns and Rows are two projections of the
// same rectangular data and are never mutated after construction.
type Dataset struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	SheetName string   `json:"sheet_name"`
	Columns   []Column `json:"columns"`
	Rows      []Row    `json:"rows"`
}

// New builds a dataset from a header row and records. Blank headers become
// "Column N" (1-based). When two headers share a name the later one wins,
// keeping the position of the first. sampleSize drives the import-time type
// guess; 0 means valueparse.DefaultSampleSize.
func New(name, sheet string, headers []string, records [][]Cell, sampleSize int) (*Dataset, error) {
	if len(headers) == 0 {
		return nil, ErrEmptyTable
	}
	names := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		names[i] = h
	}

	ds := &Dataset{
		ID:        uuid.NewString(),
		Name:      name,
		SheetName: sheet,
		Rows:      make([]Row, len(records)),
	}
	pos := map[string]int{}
	for _, n := range names {
		if _, ok := pos[n]; ok {
			continue
		}
		pos[n] = len(ds.Columns)
		ds.Columns = append(ds.Columns, Column{Name: n, Values: make([]Cell, len(records))})
	}
	for r, rec := range records {
		row := make(Row, len(ds.Columns))
		for i, n := range names {
			c := Null()
			if i < len(rec) {
				c = rec[i]
			}
			row[n] = c
			ds.Columns[pos[n]].Values[r] = c
		}
		ds.Rows[r] = row
	}
	for i := range ds.Columns {
		ds.Columns[i].Type = DetectType(ds.Columns[i], sampleSize)
	}
	return ds, nil
}

// DetectType is the import-time type guess. The analyzer refines it later.
func DetectType(c Column, sampleSize int) valueparse.Type {
	return valueparse.ResolveType(c.PresentStrings(), sampleSize).Type
}

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Validate checks the rectangular invariant between columns and rows.
func (d *Dataset) Validate() error {
	if d == nil {
		return errors.New("dataset is nil")
	}
	for _, c := range d.Columns {
		if len(c.Values) != len(d.Rows) {
			return fmt.Errorf("column %q has %d values, dataset has %d rows", c.Name, len(c.Values), len(d.Rows))
		}
	}
	for i, r := range d.Rows {
		for _, c := range d.Columns {
			if _, ok := r[c.Name]; !ok {
				return fmt.Errorf("row %d missing column %q", i+1, c.Name)
			}
		}
	}
	return nil
}

// FromRows rebuilds a dataset from persisted column names and row records.
func FromRows(id, name, sheet string, columns []string, rows []Row, sampleSize int) (*Dataset, error) {
	recs := make([][]Cell, len(rows))
	for i, r := range rows {
		rec := make([]Cell, len(columns))
		for j, c := range columns {
			rec[j] = r[c]
		}
		recs[i] = rec
	}
	ds, err := New(name, sheet, columns, recs, sampleSize)
	if err != nil {
		return nil, err
	}
	if id != "" {
		ds.ID = id
	}
	return ds, nil
}
