package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Options controls table import.
type Options struct {
	// SampleSize feeds the import-time type guess; 0 means the default.
	SampleSize int
	// MaxRows limits data rows read per table; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// SheetName restricts XLSX import to one sheet.
	SheetName string
}

// DefaultOptions returns reasonable defaults for table import.
func DefaultOptions() Options {
	return Options{MaxRows: 100000}
}

// Loader reads a file into one or more datasets.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) ([]*Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates a file format no loader accepts.
var ErrUnsupported = errors.New("unsupported table format")

// LoadFile selects a loader based on filename. A workbook yields one dataset
// per non-empty sheet; every other format yields exactly one.
func LoadFile(path string, opt Options) ([]*Dataset, error) {
	for _, l := range registry {
		if l.CanLoad(path) {
			out, err := l.Load(path, opt)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
	Register(manualLoader{})
}

func hasSuffix(name string, exts ...string) bool {
	lower := strings.ToLower(name)
	for _, e := range exts {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}

func limitRows(n, maxRows int) int {
	if maxRows > 0 && n > maxRows {
		return maxRows
	}
	return n
}
