package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManualEntry is a hand-typed table, stored as YAML or JSON:
//
//	name: Sales
//	columns: [Category, Value]
//	rows:
//	  - [North, 120]
//	  - [South, 80]
type ManualEntry struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []string `yaml:"columns" json:"columns"`
	Rows    [][]any  `yaml:"rows" json:"rows"`
}

// Validate rejects entries without columns, with blank or repeated column
// names, and rows that were left entirely blank (every cell "" or 0).
func (m ManualEntry) Validate() error {
	if len(m.Columns) == 0 {
		return errors.New("manual entry needs at least one column")
	}
	seen := map[string]bool{}
	for i, c := range m.Columns {
		c = strings.TrimSpace(c)
		if c == "" {
			return fmt.Errorf("column %d has no name", i+1)
		}
		if seen[c] {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}
	if len(m.Rows) == 0 {
		return errors.New("manual entry needs at least one row")
	}
	for i, r := range m.Rows {
		filled := false
		for _, v := range r {
			switch x := v.(type) {
			case nil:
			case string:
				filled = filled || strings.TrimSpace(x) != ""
			case int:
				filled = filled || x != 0
			case float64:
				filled = filled || x != 0
			default:
				filled = true
			}
		}
		if !filled {
			return fmt.Errorf("row %d is empty; fill in its cells", i+1)
		}
	}
	return nil
}

// Dataset converts a validated entry into a dataset.
func (m ManualEntry) Dataset(sampleSize int) (*Dataset, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	records := make([][]Cell, len(m.Rows))
	for i, r := range m.Rows {
		rec := make([]Cell, len(m.Columns))
		for j := range rec {
			if j >= len(r) {
				rec[j] = Null()
				continue
			}
			c, err := FromAny(r[j])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i+1, m.Columns[j], err)
			}
			rec[j] = c
		}
		records[i] = rec
	}
	name := m.Name
	if name == "" {
		name = "Manual Data"
	}
	return New(name, "Manual Entry", m.Columns, records, sampleSize)
}

type manualLoader struct{}

func (manualLoader) CanLoad(filename string) bool {
	return hasSuffix(filename, ".yaml", ".yml", ".json")
}

func (manualLoader) Load(path string, opt Options) ([]*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manual entry: %w", err)
	}
	var m ManualEntry
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manual entry: %w", err)
	}
	if m.Name == "" {
		base := filepath.Base(path)
		m.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if opt.MaxRows > 0 && len(m.Rows) > opt.MaxRows {
		m.Rows = m.Rows[:opt.MaxRows]
	}
	ds, err := m.Dataset(opt.SampleSize)
	if err != nil {
		return nil, err
	}
	return []*Dataset{ds}, nil
}
