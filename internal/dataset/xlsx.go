package dataset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool { return hasSuffix(filename, ".xlsx", ".xlsm") }

// Load imports every non-empty sheet of a workbook, or only opt.SheetName.
// Numeric cells become number cells; everything else keeps its formatted text.
func (xlsxLoader) Load(path string, opt Options) ([]*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if opt.SheetName != "" {
		found := ""
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				found = s
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				opt.SheetName, filepath.Base(path), strings.Join(sheets, ", "))
		}
		sheets = []string{found}
	}

	base := filepath.Base(path)
	var out []*Dataset
	for _, sheet := range sheets {
		ds, err := readSheet(f, sheet, opt)
		if err != nil {
			return nil, err
		}
		if ds == nil {
			continue
		}
		ds.Name = fmt.Sprintf("%s - %s", base, sheet)
		ds.SheetName = sheet
		out = append(out, ds)
	}
	if len(out) == 0 {
		return nil, ErrEmptyTable
	}
	return out, nil
}

func readSheet(f *excelize.File, sheet string, opt Options) (*Dataset, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	n := limitRows(len(rows)-1, opt.MaxRows)
	records := make([][]Cell, n)
	for r := 0; r < n; r++ {
		src := rows[r+1]
		rec := make([]Cell, len(header))
		for c := range rec {
			if c >= len(src) {
				rec[c] = Null()
				continue
			}
			rec[c] = sheetCell(f, sheet, c+1, r+2, src[c])
		}
		records[r] = rec
	}
	return New("", "", header, records, opt.SampleSize)
}

func sheetCell(f *excelize.File, sheet string, col, row int, formatted string) Cell {
	if formatted == "" {
		return Text("")
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Text(formatted)
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return Text(formatted)
	}
	if typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset {
		if v, err := strconv.ParseFloat(formatted, 64); err == nil {
			return Number(v)
		}
	}
	return Text(formatted)
}
