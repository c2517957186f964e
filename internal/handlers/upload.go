package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"order-recon-go/internal/errs"
	"order-recon-go/internal/model"
	"order-recon-go/internal/normalizer"
)

// maxUploadBytes bounds uploaded documents at 16 MiB.
const maxUploadBytes = 16 << 20

// UploadSpreadsheet normalizes an uploaded receipt document and persists it
// as one all-or-nothing import
func (h *Handlers) UploadSpreadsheet(c *gin.Context) {
	month := c.PostForm("month")
	if _, err := time.Parse("2006-01", month); err != nil {
		respondError(c, errs.Validation("month must be YYYY-MM"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, errs.Validation("missing file"))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		respondError(c, errs.Validation("file exceeds %d bytes", maxUploadBytes))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		respondError(c, err)
		return
	}

	rows, err := normalizer.Normalize(data)
	if err != nil {
		h.metrics.ImportsRejected.Inc()
		logrus.Warnf("Rejected spreadsheet upload %q: %v", fileHeader.Filename, err)
		respondError(c, err)
		return
	}

	records := make([]model.ReceiptRow, len(rows))
	for i, row := range rows {
		records[i] = model.ReceiptRow{
			Date:           row.Date,
			TrackingNumber: row.TrackingNumber,
			UPC:            row.UPC,
			Quantity:       row.Quantity,
		}
	}

	importID, err := h.repo.CreateImport(month+"-01", fileHeader.Filename, records)
	if err != nil {
		respondError(c, err)
		return
	}

	h.metrics.ImportsAccepted.Inc()
	h.metrics.ImportRows.Add(float64(len(records)))
	logrus.Infof("Imported spreadsheet %q for month %s: %d rows", fileHeader.Filename, month, len(records))

	c.JSON(http.StatusCreated, gin.H{
		"ok":        true,
		"import_id": importID,
		"row_count": len(records),
	})
}
