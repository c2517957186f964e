package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"order-recon-go/internal/model"
)

// chunkSize bounds both the id-existence checks and the batch inserts so a
// single statement never carries more than the provider/store limits allow.
const chunkSize = 500

type Repository struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SelectExistingMessageIDs returns which of the given provider message ids
// are already persisted for this user. This is the idempotency gate for
// harvesting: ids in the returned set are never re-fetched.
func (r *Repository) SelectExistingMessageIDs(userID uint, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		var found []string
		result := r.db.Model(&model.ShipmentRecord{}).
			Where("user_id = ? AND email_id IN ?", userID, ids[start:end]).
			Pluck("email_id", &found)
		if result.Error != nil {
			return nil, fmt.Errorf("failed to check existing shipment records: %w", result.Error)
		}
		for _, id := range found {
			existing[id] = struct{}{}
		}
	}
	return existing, nil
}

// UpsertShipments inserts shipment records in chunks, silently ignoring rows
// that collide on (user_id, email_id). Returns the number actually inserted.
func (r *Repository) UpsertShipments(rows []model.ShipmentRecord) (int, error) {
	inserted := 0
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		result := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "email_id"}},
			DoNothing: true,
		}).Create(&batch)
		if result.Error != nil {
			return inserted, fmt.Errorf("failed to insert shipment records: %w", result.Error)
		}
		inserted += int(result.RowsAffected)
	}
	return inserted, nil
}

// LatestShipmentTimestamp returns the newest ingested email timestamp for the
// user, or nil when nothing has been ingested yet. The incremental cursor is
// recomputed from this rather than kept as separate mutable state, so a run
// that crashed mid-batch self-heals on the next invocation.
func (r *Repository) LatestShipmentTimestamp(userID uint) (*time.Time, error) {
	var record model.ShipmentRecord
	result := r.db.Where("user_id = ?", userID).
		Order("email_date DESC").
		First(&record)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load latest shipment timestamp: %w", result.Error)
	}
	ts := record.EmailDate
	return &ts, nil
}

// CreateImport persists one upload and all of its rows in a single
// transaction. Either everything lands or nothing does.
func (r *Repository) CreateImport(month, sourceName string, rows []model.ReceiptRow) (uint, error) {
	imp := model.SpreadsheetImport{
		Month:      month,
		SourceName: sourceName,
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&imp).Error; err != nil {
			return fmt.Errorf("failed to insert spreadsheet import: %w", err)
		}
		for i := range rows {
			rows[i].SpreadsheetImportID = imp.ID
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, chunkSize).Error; err != nil {
			return fmt.Errorf("failed to insert receipt rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return imp.ID, nil
}

// SelectShipments returns the user's shipment records with email_date in
// [start, endExclusive), ordered by timestamp ascending.
func (r *Repository) SelectShipments(userID uint, start, endExclusive time.Time) ([]model.ShipmentRecord, error) {
	var records []model.ShipmentRecord
	result := r.db.Where("user_id = ? AND email_date >= ? AND email_date < ?", userID, start, endExclusive).
		Order("email_date ASC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load shipment records: %w", result.Error)
	}
	return records, nil
}

// SelectReceiptRows returns all rows belonging to imports whose month falls
// in [startMonth, endMonth] (both "YYYY-MM-01"), ordered by import month.
func (r *Repository) SelectReceiptRows(startMonth, endMonth string) ([]model.ReceiptRow, error) {
	var rows []model.ReceiptRow
	result := r.db.
		Joins("JOIN spreadsheet_imports ON spreadsheet_imports.id = receipt_rows.spreadsheet_import_id").
		Where("spreadsheet_imports.month >= ? AND spreadsheet_imports.month <= ?", startMonth, endMonth).
		Order("spreadsheet_imports.month ASC, receipt_rows.id ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load receipt rows: %w", result.Error)
	}
	return rows, nil
}

// ListImports returns every persisted import, newest month first, without
// loading their rows.
func (r *Repository) ListImports() ([]model.SpreadsheetImport, error) {
	var imports []model.SpreadsheetImport
	result := r.db.Order("month DESC, id DESC").Find(&imports)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load spreadsheet imports: %w", result.Error)
	}
	return imports, nil
}

// ImportByMonth returns the import persisted for the month ("YYYY-MM-01"),
// or nil when none exists.
func (r *Repository) ImportByMonth(month string) (*model.SpreadsheetImport, error) {
	var imp model.SpreadsheetImport
	result := r.db.Where("month = ?", month).Order("id DESC").First(&imp)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load spreadsheet import: %w", result.Error)
	}
	return &imp, nil
}

// DeleteImport removes an upload and, via the cascade constraint, its rows.
func (r *Repository) DeleteImport(importID uint) error {
	result := r.db.Delete(&model.SpreadsheetImport{}, importID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete spreadsheet import: %w", result.Error)
	}
	return nil
}
