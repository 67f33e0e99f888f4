package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool { return hasSuffix(filename, ".csv", ".tsv") }

func (csvLoader) Load(path string, opt Options) ([]*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	base := filepath.Base(path)
	ds, err := ReadCSV(f, delim, opt)
	if err != nil {
		return nil, err
	}
	ds.Name = base
	ds.SheetName = strings.TrimSuffix(base, filepath.Ext(base))
	return []*Dataset{ds}, nil
}

// ReadCSV reads a delimited table. A UTF-8 or UTF-16 byte order mark is
// honored and stripped. Every field becomes a text cell.
func ReadCSV(src io.Reader, delim rune, opt Options) (*Dataset, error) {
	dec := transform.NewReader(src, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	r := csv.NewReader(dec)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if delim != 0 {
		r.Comma = delim
	}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTable
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 {
		return nil, ErrEmptyTable
	}
	var records [][]Cell
	for {
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		row := make([]Cell, len(header))
		for i := range row {
			if i < len(rec) {
				row[i] = Text(strings.TrimSpace(rec[i]))
			} else {
				row[i] = Null()
			}
		}
		records = append(records, row)
	}
	return New("", "", header, records, opt.SampleSize)
}

func sniffDelimiter(path string) rune {
	if hasSuffix(path, ".tsv") {
		return '\t'
	}
	return ','
}
