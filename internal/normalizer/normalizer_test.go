package normalizer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes rows into a fresh xlsx workbook and returns its bytes
func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetList()[0]
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestNormalizeXLSX(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Date", "Tracking", "UPC", "Qty"},
		{"2024-03-04", "TRK001", "012345678905", "2"},
		{"3/5/24", "TRK002", "012345678912", "1"},
	})

	rows, err := Normalize(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{Date: "2024-03-04", TrackingNumber: "TRK001", UPC: "012345678905", Quantity: 2}, rows[0])
	assert.Equal(t, Row{Date: "2024-03-05", TrackingNumber: "TRK002", UPC: "012345678912", Quantity: 1}, rows[1])
}

func TestNormalizeHeaderCaseInsensitive(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"DATE", " tracking ", "Upc", "QTY"},
		{"2024-01-15", "TRK001", "000000000000", "3"},
	})

	rows, err := Normalize(data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Quantity)
}

func TestNormalizeExtraColumnsIgnored(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Store", "Date", "Tracking", "Notes", "UPC", "Qty"},
		{"#42", "2024-01-15", "TRK001", "rush", "000000000000", "3"},
	})

	rows, err := Normalize(data)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TRK001", rows[0].TrackingNumber)
	assert.Equal(t, "000000000000", rows[0].UPC)
}

func TestNormalizeMissingColumnsListedTogether(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Date", "Tracking"},
		{"2024-01-15", "TRK001"},
	})

	_, err := Normalize(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns: upc, qty")
}

func TestNormalizeBadRowAbortsBatch(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Date", "Tracking", "UPC", "Qty"},
		{"2024-03-04", "TRK001", "012345678905", "2"},
		{"not a date", "TRK002", "012345678912", "1"},
	})

	rows, err := Normalize(data)
	require.Error(t, err)
	assert.Nil(t, rows)
	// Row numbers count from the top of the sheet, header included
	assert.Contains(t, err.Error(), "row 3: invalid date")
}

func TestNormalizeRowValidationMessages(t *testing.T) {
	cases := []struct {
		name string
		row  []interface{}
		want string
	}{
		{"missing tracking", []interface{}{"2024-03-04", "", "012345678905", "2"}, "row 2: missing tracking number"},
		{"missing upc", []interface{}{"2024-03-04", "TRK001", " ", "2"}, "row 2: missing upc"},
		{"zero quantity", []interface{}{"2024-03-04", "TRK001", "012345678905", "0"}, "row 2: invalid quantity"},
		{"textual quantity", []interface{}{"2024-03-04", "TRK001", "012345678905", "two"}, "row 2: invalid quantity"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := buildWorkbook(t, [][]interface{}{
				{"Date", "Tracking", "UPC", "Qty"},
				tc.row,
			})
			_, err := Normalize(data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestNormalizeSkipsBlankRows(t *testing.T) {
	data := buildWorkbook(t, [][]interface{}{
		{"Date", "Tracking", "UPC", "Qty"},
		{"2024-03-04", "TRK001", "012345678905", "2"},
		{"", "", "", ""},
		{"2024-03-06", "TRK003", "012345678929", "5"},
	})

	rows, err := Normalize(data)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "TRK003", rows[1].TrackingNumber)
}

func TestNormalizeHTMLTable(t *testing.T) {
	doc := `<html><body>
		<table>
			<tr><th>Date</th><th>Tracking</th><th>UPC</th><th>Qty</th></tr>
			<tr><td>2024-03-04</td><td>TRK001</td><td>012345678905</td><td>2</td></tr>
			<tr><td>3/4/2024</td><td>TRK002</td><td>012345678912</td><td>4</td></tr>
		</table>
	</body></html>`

	rows, err := Normalize([]byte(doc))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-04", rows[0].Date)
	assert.Equal(t, "2024-03-04", rows[1].Date)
	assert.Equal(t, 4, rows[1].Quantity)
}

func TestNormalizeUnrecognizedFormat(t *testing.T) {
	_, err := Normalize([]byte("tracking,upc\nTRK001,000"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized document format")
}

func TestSniff(t *testing.T) {
	assert.Equal(t, kindXLSX, sniff([]byte{0x50, 0x4B, 0x03, 0x04}))
	assert.Equal(t, kindXLS, sniff([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00}))
	assert.Equal(t, kindHTML, sniff([]byte("  <!DOCTYPE html><html></html>")))
	assert.Equal(t, kindHTML, sniff([]byte("<table><tr></tr></table>")))
	assert.Equal(t, kindUnknown, sniff([]byte("plain text")))
	assert.Equal(t, kindUnknown, sniff(nil))
}
