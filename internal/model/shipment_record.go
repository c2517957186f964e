package model

import "time"

// ShipmentRecord is one harvested fact derived from an order-confirmation
// email. Records are immutable once written; the unique (user_id, email_id)
// index makes re-ingestion of the same message a no-op.
type ShipmentRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID         uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_email"`
	EmailID        string    `json:"email_id" gorm:"type:varchar(64);not null;uniqueIndex:idx_user_email"`
	EmailDate      time.Time `json:"email_date" gorm:"not null;index"`
	TrackingNumber string    `json:"tracking_number" gorm:"type:varchar(64)"`
	Quantity       int       `json:"quantity" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for ShipmentRecord
func (ShipmentRecord) TableName() string {
	return "shipment_records"
}
