package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"order-recon-go/internal/reconciler"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportRequest bounds a reconciliation report
type ReportRequest struct {
	UserID       uint   `json:"user_id"`
	EmailStart   string `json:"email_start"`
	EmailEnd     string `json:"email_end"`
	ReceiptStart string `json:"receipt_start"`
	ReceiptEnd   string `json:"receipt_end"`
}

// GenerateReport builds the two-table comparison workbook and streams it as
// a download
func (h *Handlers) GenerateReport(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
			Code:    http.StatusBadRequest,
		})
		return
	}

	userID := req.UserID
	if userID == 0 {
		userID = h.cfg.Harvest.UserID
	}

	report, err := h.engine.Reconcile(reconciler.Params{
		UserID:       userID,
		EmailStart:   req.EmailStart,
		EmailEnd:     req.EmailEnd,
		ReceiptStart: req.ReceiptStart,
		ReceiptEnd:   req.ReceiptEnd,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.metrics.ReportsGenerated.Inc()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, xlsxContentType, report.Artifact)
}
