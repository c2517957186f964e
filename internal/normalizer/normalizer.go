// Package normalizer turns uploaded tabular documents into canonical receipt
// rows. An import either fully parses or is fully rejected.
package normalizer

import (
	"bytes"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"order-recon-go/internal/errs"
)

// Row is one validated receipt line item. Date is canonical YYYY-MM-DD.
type Row struct {
	Date           string
	TrackingNumber string
	UPC            string
	Quantity       int
}

// requiredColumns are the canonical header names, matched against trimmed,
// lower-cased header labels.
var requiredColumns = []string{"date", "tracking", "upc", "qty"}

type documentKind int

const (
	kindUnknown documentKind = iota
	kindXLSX
	kindXLS
	kindHTML
)

// Normalize sniffs the document format, resolves the header row, and
// validates every data row. Any failure aborts the whole batch: no rows are
// returned alongside an error.
func Normalize(data []byte) ([]Row, error) {
	var (
		grid [][]string
		err  error
	)
	switch sniff(data) {
	case kindXLSX:
		grid, err = readXLSX(data)
	case kindXLS:
		grid, err = readXLS(data)
	case kindHTML:
		grid, err = readHTMLTable(data)
	default:
		return nil, errs.Validation("unrecognized document format")
	}
	if err != nil {
		return nil, err
	}

	if len(grid) == 0 {
		return nil, errs.Validation("document has no header row")
	}

	columns, err := resolveColumns(grid[0])
	if err != nil {
		return nil, err
	}

	var rows []Row
	for i, raw := range grid[1:] {
		if blankRow(raw) {
			continue
		}
		// 1-based data index plus the header row.
		rowNum := i + 2
		row, err := normalizeRow(raw, columns, rowNum)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sniff classifies the document by its leading bytes: ZIP-family means a
// modern workbook, the compound-binary signature means a legacy workbook,
// and HTML markers mean an HTML-table export.
func sniff(data []byte) documentKind {
	if len(data) >= 2 && data[0] == 0x50 && data[1] == 0x4B {
		return kindXLSX
	}
	cfb := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	if len(data) >= 8 && bytes.Equal(data[:8], cfb) {
		return kindXLS
	}

	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	text := strings.ToLower(strings.TrimLeft(string(head), " \t\r\n"))
	if strings.HasPrefix(text, "<!doctype html") || strings.HasPrefix(text, "<html") || strings.Contains(text, "<table") {
		return kindHTML
	}
	return kindUnknown
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Validation("failed to parse workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errs.Validation("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errs.Validation("failed to read sheet %q: %v", sheets[0], err)
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, errs.Validation("failed to parse legacy workbook: %v", err)
	}
	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, errs.Validation("legacy workbook has no sheets")
	}

	var grid [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// resolveColumns maps the four canonical fields onto header indexes, failing
// fast with every missing column named at once.
func resolveColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(requiredColumns))
	var missing []string
	for _, name := range requiredColumns {
		idx := -1
		for i, label := range header {
			if strings.ToLower(strings.TrimSpace(label)) == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			missing = append(missing, name)
			continue
		}
		columns[name] = idx
	}
	if len(missing) > 0 {
		return nil, errs.Validation("missing required columns: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

func normalizeRow(raw []string, columns map[string]int, rowNum int) (Row, error) {
	date, err := normalizeDate(cellAt(raw, columns["date"]))
	if err != nil {
		return Row{}, errs.Validation("row %d: invalid date", rowNum)
	}

	tracking := strings.TrimSpace(cellAt(raw, columns["tracking"]))
	if tracking == "" {
		return Row{}, errs.Validation("row %d: missing tracking number", rowNum)
	}

	upc := strings.TrimSpace(cellAt(raw, columns["upc"]))
	if upc == "" {
		return Row{}, errs.Validation("row %d: missing upc", rowNum)
	}

	quantity, err := parseQuantity(cellAt(raw, columns["qty"]))
	if err != nil {
		return Row{}, errs.Validation("row %d: invalid quantity", rowNum)
	}

	return Row{
		Date:           date,
		TrackingNumber: tracking,
		UPC:            upc,
		Quantity:       quantity,
	}, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
