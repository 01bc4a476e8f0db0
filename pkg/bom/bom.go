// Package bom converts the CSV bill of materials written by kicad-cli into
// a styled spreadsheet.
package bom

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet the rows are written to.
const SheetName = "BoM"

// Options configures a conversion.
type Options struct {
	// Delimiter is the CSV field delimiter, ',' when zero.
	Delimiter rune
	// Title is written to the document properties.
	Title string
}

// ColumnStyle is the presentation of one column, chosen by header name.
type ColumnStyle struct {
	Width   float64
	Numeric bool // cells are written as numbers when they parse
	Wrap    bool
	Align   string
}

var columnStyles = map[string]ColumnStyle{
	"reference": {Width: 28, Wrap: true, Align: "left"},
	"refs":      {Width: 28, Wrap: true, Align: "left"},
	"value":     {Width: 20, Align: "left"},
	"footprint": {Width: 40, Align: "left"},
	"qty":       {Width: 8, Numeric: true, Align: "center"},
	"quantity":  {Width: 8, Numeric: true, Align: "center"},
	"dnp":       {Width: 8, Align: "center"},
}

var defaultStyle = ColumnStyle{Width: 18, Align: "left"}

// StyleFor returns the style of the column with the given header.
func StyleFor(header string) ColumnStyle {
	if s, ok := columnStyles[strings.ToLower(strings.TrimSpace(header))]; ok {
		return s
	}
	return defaultStyle
}

// ReadCSV reads every record of a BOM CSV file.
func ReadCSV(path string, delimiter rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bom: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if delimiter != 0 {
		r.Comma = delimiter
	}
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse bom %q: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// ConvertCSV writes the rows of csvPath to xlsxPath with a styled header
// and per-column styles. It returns the number of data rows written.
func ConvertCSV(csvPath, xlsxPath string, opts Options) (int, error) {
	rows, err := ReadCSV(csvPath, opts.Delimiter)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("bom %q is empty", csvPath)
	}
	if err := WriteXLSX(xlsxPath, rows, opts); err != nil {
		return 0, err
	}
	return len(rows) - 1, nil
}

// WriteXLSX writes rows to a new workbook. The first row is the header.
func WriteXLSX(path string, rows [][]string, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if opts.Title != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: opts.Title}); err != nil {
			return fmt.Errorf("set document properties: %w", err)
		}
	}

	header := rows[0]
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2F5597"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	cellStyles := make([]int, len(header))
	for c, h := range header {
		cs := StyleFor(h)
		id, err := f.NewStyle(&excelize.Style{
			Alignment: &excelize.Alignment{Horizontal: cs.Align, Vertical: "top", WrapText: cs.Wrap},
		})
		if err != nil {
			return fmt.Errorf("column style %q: %w", h, err)
		}
		cellStyles[c] = id

		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, cs.Width); err != nil {
			return fmt.Errorf("column width %q: %w", h, err)
		}
	}

	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, cellValue(header, c, r, val)); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}

			style := headerStyle
			if r > 0 {
				if c >= len(cellStyles) {
					continue
				}
				style = cellStyles[c]
			}
			if err := f.SetCellStyle(SheetName, cell, cell, style); err != nil {
				return fmt.Errorf("style %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %q: %w", path, err)
	}
	return nil
}

func cellValue(header []string, col, row int, val string) any {
	if row == 0 || col >= len(header) || !StyleFor(header[col]).Numeric {
		return val
	}
	if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
		return n
	}
	return val
}
