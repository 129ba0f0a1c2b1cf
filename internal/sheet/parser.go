// Package sheet turns uploaded CSV or XLSX item lists into the master list
// of a stocktake run.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/stocktake/internal/domain/counting"
	"github.com/garyjia/stocktake/internal/domain/entity"
)

// DefaultArea is assigned to every item of a two-column Description,Qty file
const DefaultArea = "All Items"

const (
	colArea        = "area"
	colDescription = "description"
	colQty         = "qty"
)

// requiredColumns lists the expected headers in their display form
var requiredColumns = []struct{ key, label string }{
	{colArea, "Area"},
	{colDescription, "Description"},
	{colQty, "Qty"},
}

// Supported reports whether the filename has an extension Parse understands
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// Parse reads an item list. The format is chosen by the filename extension.
func Parse(filename string, data []byte) ([]entity.Item, error) {
	var (
		rows [][]string
		err  error
	)

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		rows, err = readCSV(data)
	case ".xlsx":
		rows, err = readXLSX(data)
	default:
		return nil, invalid(fmt.Sprintf("unsupported file type %q, upload a .csv or .xlsx file", ext))
	}
	if err != nil {
		return nil, err
	}

	return parseRows(rows)
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, invalidRow(perr.Line, "file could not be parsed: %v", perr.Err)
		}
		return nil, invalid(fmt.Sprintf("file could not be parsed: %v", err))
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, invalid(fmt.Sprintf("spreadsheet could not be opened: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, invalid("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, invalid(fmt.Sprintf("sheet %q could not be read: %v", sheets[0], err))
	}
	return rows, nil
}

// columns maps normalised header names to their position
type columns map[string]int

func headerColumns(header []string) columns {
	cols := make(columns, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func (c columns) cell(row []string, key string) (string, bool) {
	i, ok := c[key]
	if !ok || i >= len(row) {
		return "", ok
	}
	return strings.TrimSpace(row[i]), true
}

func parseRows(rows [][]string) ([]entity.Item, error) {
	if len(rows) == 0 {
		return nil, invalid("file is empty")
	}

	cols := headerColumns(rows[0])

	var missing []string
	for _, rc := range requiredColumns {
		if _, ok := cols[rc.key]; !ok {
			missing = append(missing, rc.label)
		}
	}
	_, hasArea := cols[colArea]
	if len(missing) > 0 && !(len(missing) == 1 && !hasArea) {
		return nil, &InputValidationError{
			Reason:  "file must have columns named 'Area', 'Description' and 'Qty', or 'Description' and 'Qty'",
			Missing: missing,
		}
	}

	items := make([]entity.Item, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if blank(row) {
			continue
		}

		area := DefaultArea
		if hasArea {
			area, _ = cols.cell(row, colArea)
			if area == "" {
				continue
			}
		}

		desc, _ := cols.cell(row, colDescription)
		if desc == "" {
			return nil, invalidRow(line, "description is empty")
		}

		raw, _ := cols.cell(row, colQty)
		qty, err := parseQuantity(raw)
		if err != nil {
			return nil, invalidRow(line, "qty %q for %q: %v", raw, desc, err)
		}

		items = append(items, entity.Item{Area: area, Description: desc, Quantity: qty})
	}

	if len(items) == 0 {
		return nil, invalid("file has no item rows")
	}
	return items, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseQuantity accepts whole numbers, including spreadsheet floats such as
// "3.0". Blank cells count as zero.
func parseQuantity(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, errors.New("not a number")
		}
		if f != math.Trunc(f) {
			return 0, errors.New("must be a whole number")
		}
		if f > counting.MaxQuantity || f < -counting.MaxQuantity {
			return 0, fmt.Errorf("exceeds %d", counting.MaxQuantity)
		}
		n = int(f)
	}

	switch {
	case n < 0:
		return 0, errors.New("must not be negative")
	case n > counting.MaxQuantity:
		return 0, fmt.Errorf("exceeds %d", counting.MaxQuantity)
	}
	return n, nil
}

// Duplicates returns the (area, description) pairs that appear more than once,
// in order of their second appearance. Such rows cannot be merged back.
func Duplicates(items []entity.Item) []entity.Key {
	seen := make(map[entity.Key]int, len(items))
	var dups []entity.Key
	for _, it := range items {
		k := it.Key()
		seen[k]++
		if seen[k] == 2 {
			dups = append(dups, k)
		}
	}
	return dups
}
