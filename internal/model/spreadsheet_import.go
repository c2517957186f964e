package model

import "time"

// SpreadsheetImport records one uploaded receipt document. It owns its rows;
// deleting an import cascades to them.
type SpreadsheetImport struct {
	ID         uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	Month      string       `json:"month" gorm:"type:varchar(10);not null;index"`
	SourceName string       `json:"source_name" gorm:"type:varchar(255)"`
	CreatedAt  time.Time    `json:"created_at"`
	Rows       []ReceiptRow `json:"rows,omitempty" gorm:"foreignKey:SpreadsheetImportID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for SpreadsheetImport
func (SpreadsheetImport) TableName() string {
	return "spreadsheet_imports"
}
