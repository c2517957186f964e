package model

// ReceiptRow is one normalized line item from an uploaded receipt document.
// Date is canonical YYYY-MM-DD.
type ReceiptRow struct {
	ID                  uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	SpreadsheetImportID uint   `json:"spreadsheet_import_id" gorm:"not null;index"`
	Date                string `json:"date" gorm:"type:varchar(10);not null"`
	TrackingNumber      string `json:"tracking_number" gorm:"type:varchar(64);not null;index"`
	UPC                 string `json:"upc" gorm:"type:varchar(64);not null"`
	Quantity            int    `json:"quantity" gorm:"not null"`
}

// TableName specifies the table name for ReceiptRow
func (ReceiptRow) TableName() string {
	return "receipt_rows"
}
