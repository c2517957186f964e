package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"order-recon-go/internal/errs"
)

// ListImports returns every persisted spreadsheet import
func (h *Handlers) ListImports(c *gin.Context) {
	imports, err := h.repo.ListImports()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"imports": imports,
	})
}

// ListImportRows returns the receipt rows for a month range. Both bounds
// default to the other when only one is given.
func (h *Handlers) ListImportRows(c *gin.Context) {
	startMonth := c.Query("start_month")
	endMonth := c.Query("end_month")
	if startMonth == "" {
		startMonth = endMonth
	}
	if endMonth == "" {
		endMonth = startMonth
	}
	if _, err := time.Parse("2006-01", startMonth); err != nil {
		respondError(c, errs.Validation("start_month must be YYYY-MM"))
		return
	}
	if _, err := time.Parse("2006-01", endMonth); err != nil {
		respondError(c, errs.Validation("end_month must be YYYY-MM"))
		return
	}

	rows, err := h.repo.SelectReceiptRows(startMonth+"-01", endMonth+"-01")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"row_count": len(rows),
		"rows":      rows,
	})
}

// DeleteImport removes the import persisted for one month together with its
// rows
func (h *Handlers) DeleteImport(c *gin.Context) {
	month := c.Param("month")
	if _, err := time.Parse("2006-01", month); err != nil {
		respondError(c, errs.Validation("month must be YYYY-MM"))
		return
	}

	imp, err := h.repo.ImportByMonth(month + "-01")
	if err != nil {
		respondError(c, err)
		return
	}
	if imp == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "No import exists for " + month,
			Code:    http.StatusNotFound,
		})
		return
	}

	if err := h.repo.DeleteImport(imp.ID); err != nil {
		respondError(c, err)
		return
	}

	logrus.Infof("Deleted spreadsheet import %d for month %s", imp.ID, month)
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"import_id": imp.ID,
	})
}
