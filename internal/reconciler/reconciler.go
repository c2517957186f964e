// Package reconciler joins harvested shipment records against uploaded
// receipt rows by tracking number and renders the two-table comparison
// report.
package reconciler

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"order-recon-go/internal/errs"
	"order-recon-go/internal/model"
)

// Status classifies one shipment record against the receipt aggregate for
// its tracking number.
type Status string

const (
	StatusMissing   Status = "MISSING"
	StatusMatch     Status = "MATCH"
	StatusOvercount Status = "OVERCOUNT"
	StatusMismatch  Status = "MISMATCH"
)

// ComputeStatus compares an email quantity against the summed receipt
// quantity for the same tracking number. MISMATCH is the residual case:
// quantity below a non-zero total.
func ComputeStatus(emailQty, orderTotal int) Status {
	switch {
	case orderTotal == 0:
		return StatusMissing
	case emailQty == orderTotal:
		return StatusMatch
	case emailQty > orderTotal:
		return StatusOvercount
	default:
		return StatusMismatch
	}
}

// Store is the slice of the persistence layer the engine reads from.
type Store interface {
	SelectShipments(userID uint, start, endExclusive time.Time) ([]model.ShipmentRecord, error)
	SelectReceiptRows(startMonth, endMonth string) ([]model.ReceiptRow, error)
}

// Params bounds one reconciliation: an email date window (inclusive days)
// and a receipt month window (inclusive months).
type Params struct {
	UserID       uint
	EmailStart   string // YYYY-MM-DD
	EmailEnd     string // YYYY-MM-DD
	ReceiptStart string // YYYY-MM
	ReceiptEnd   string // YYYY-MM
}

// Report is the produced artifact plus its counts.
type Report struct {
	Artifact   []byte
	Filename   string
	EmailCount int
	OrderCount int
}

type Engine struct {
	store Store
}

func New(store Store) *Engine {
	return &Engine{store: store}
}

// Reconcile loads both record sets for the requested windows and builds the
// comparison workbook. All window validation happens before any store query.
func (e *Engine) Reconcile(params Params) (*Report, error) {
	emailStart, err := parseDay(params.EmailStart, "emailStart")
	if err != nil {
		return nil, err
	}
	emailEnd, err := parseDay(params.EmailEnd, "emailEnd")
	if err != nil {
		return nil, err
	}
	if emailStart.After(emailEnd) {
		return nil, errs.Validation("emailStart must be on or before emailEnd")
	}

	receiptStart, err := parseMonth(params.ReceiptStart, "receiptStart")
	if err != nil {
		return nil, err
	}
	receiptEnd, err := parseMonth(params.ReceiptEnd, "receiptEnd")
	if err != nil {
		return nil, err
	}
	if receiptStart.After(receiptEnd) {
		return nil, errs.Validation("receiptStart must be on or before receiptEnd")
	}

	shipments, err := e.store.SelectShipments(params.UserID, emailStart, emailEnd.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	receipts, err := e.store.SelectReceiptRows(
		receiptStart.Format("2006-01-02"),
		receiptEnd.Format("2006-01-02"),
	)
	if err != nil {
		return nil, err
	}

	totals := totalsByTracking(receipts)
	artifact, err := buildWorkbook(shipments, receipts, totals)
	if err != nil {
		return nil, err
	}

	logrus.Infof("Built reconciliation report for user %d: %d emails, %d orders",
		params.UserID, len(shipments), len(receipts))
	return &Report{
		Artifact:   artifact,
		Filename:   fmt.Sprintf("order_match_%s_to_%s.xlsx", params.EmailStart, params.EmailEnd),
		EmailCount: len(shipments),
		OrderCount: len(receipts),
	}, nil
}

// totalsByTracking sums receipt quantities per tracking number. Rows with an
// empty tracking number never aggregate.
func totalsByTracking(rows []model.ReceiptRow) map[string]int {
	totals := make(map[string]int)
	for _, row := range rows {
		if row.TrackingNumber == "" {
			continue
		}
		totals[row.TrackingNumber] += row.Quantity
	}
	return totals
}

func parseDay(value, label string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, errs.Validation("%s must be YYYY-MM-DD", label)
	}
	return t, nil
}

func parseMonth(value, label string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", value, time.UTC)
	if err != nil {
		return time.Time{}, errs.Validation("%s must be YYYY-MM", label)
	}
	return t, nil
}
