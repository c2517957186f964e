package reconciler

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"order-recon-go/internal/model"
)

const (
	emailSheetName = "Emails"
	orderSheetName = "Orders"
)

// statusStyles are the conditional fill/font pairs applied to computed
// status cells, one per status kind.
var statusStyles = map[Status]excelize.Style{
	StatusMatch: {
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
		Font: &excelize.Font{Color: "006100"},
	},
	StatusOvercount: {
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F4B084"}, Pattern: 1},
		Font: &excelize.Font{Color: "7F2100"},
	},
	StatusMissing: {
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
		Font: &excelize.Font{Color: "9C0006"},
	},
	StatusMismatch: {
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFEB9C"}, Pattern: 1},
		Font: &excelize.Font{Color: "9C6500"},
	},
}

// buildWorkbook renders the two-sheet report. Status cells carry both the
// computed value and a SUMIF-based formula referencing the Orders sheet, so
// the file recomputes correctly when edited.
func buildWorkbook(shipments []model.ShipmentRecord, receipts []model.ReceiptRow, totals map[string]int) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", emailSheetName); err != nil {
		return nil, fmt.Errorf("failed to name email sheet: %w", err)
	}
	if _, err := f.NewSheet(orderSheetName); err != nil {
		return nil, fmt.Errorf("failed to create order sheet: %w", err)
	}

	styleIDs := make(map[Status]int, len(statusStyles))
	for status, style := range statusStyles {
		s := style
		id, err := f.NewStyle(&s)
		if err != nil {
			return nil, fmt.Errorf("failed to register status style: %w", err)
		}
		styleIDs[status] = id
	}

	emailHeader := []interface{}{"Email Date", "Tracking Number", "Quantity", "Status"}
	if err := f.SetSheetRow(emailSheetName, "A1", &emailHeader); err != nil {
		return nil, fmt.Errorf("failed to write email header: %w", err)
	}
	for i, record := range shipments {
		rowNum := i + 2
		row := []interface{}{
			record.EmailDate.UTC().Format("2006-01-02"),
			record.TrackingNumber,
			record.Quantity,
		}
		cell := fmt.Sprintf("A%d", rowNum)
		if err := f.SetSheetRow(emailSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write email row %d: %w", rowNum, err)
		}

		status := ComputeStatus(record.Quantity, totals[record.TrackingNumber])
		statusCell := fmt.Sprintf("D%d", rowNum)
		if err := f.SetCellValue(emailSheetName, statusCell, string(status)); err != nil {
			return nil, fmt.Errorf("failed to write status value: %w", err)
		}
		if err := f.SetCellFormula(emailSheetName, statusCell, statusFormula(rowNum)); err != nil {
			return nil, fmt.Errorf("failed to write status formula: %w", err)
		}
		if err := f.SetCellStyle(emailSheetName, statusCell, statusCell, styleIDs[status]); err != nil {
			return nil, fmt.Errorf("failed to style status cell: %w", err)
		}
	}

	orderHeader := []interface{}{"Date", "Tracking Number", "Quantity"}
	if err := f.SetSheetRow(orderSheetName, "A1", &orderHeader); err != nil {
		return nil, fmt.Errorf("failed to write order header: %w", err)
	}
	for i, row := range receipts {
		cells := []interface{}{row.Date, row.TrackingNumber, row.Quantity}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(orderSheetName, cell, &cells); err != nil {
			return nil, fmt.Errorf("failed to write order row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// statusFormula mirrors ComputeStatus as a live per-row formula over the
// Orders sheet aggregate.
func statusFormula(rowNum int) string {
	sumif := fmt.Sprintf("SUMIF(%s!B:B,B%d,%s!C:C)", orderSheetName, rowNum, orderSheetName)
	return fmt.Sprintf(
		`IF(%[1]s=0,"MISSING",IF(C%[2]d=%[1]s,"MATCH",IF(C%[2]d>%[1]s,"OVERCOUNT","MISMATCH")))`,
		sumif, rowNum,
	)
}
